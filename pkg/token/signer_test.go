package token

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSigner_Mint(t *testing.T) {
	signer := NewSigner("test-secret")

	t.Run("ThreePartStructure", func(t *testing.T) {
		value, issuedAt, err := signer.Mint("alice@example.com")
		require.NoError(t, err)

		segments := strings.Split(value, ".")
		require.Len(t, segments, 3)
		assert.Len(t, segments[0], 32) // 16 random bytes hex encoded
		assert.Len(t, segments[2], 64) // sha256 hex digest

		parts, err := Parse(value)
		require.NoError(t, err)
		assert.Equal(t, segments[0], parts.Random)
		assert.Equal(t, issuedAt.Unix(), parts.IssuedAt.Unix())
		assert.Equal(t, segments[2], parts.Signature)
	})

	t.Run("UniqueValues", func(t *testing.T) {
		seen := make(map[string]bool)
		for i := 0; i < 100; i++ {
			value, _, err := signer.Mint("alice@example.com")
			require.NoError(t, err)
			assert.False(t, seen[value], "duplicate token value minted")
			seen[value] = true
		}
	})
}

func TestSigner_Verify(t *testing.T) {
	signer := NewSigner("test-secret")

	value, _, err := signer.Mint("alice@example.com")
	require.NoError(t, err)

	t.Run("Valid", func(t *testing.T) {
		assert.NoError(t, signer.Verify("alice@example.com", value))
	})

	t.Run("WrongEmail", func(t *testing.T) {
		err := signer.Verify("mallory@example.com", value)
		assert.ErrorIs(t, err, ErrSignatureMismatch)
	})

	t.Run("WrongSecret", func(t *testing.T) {
		other := NewSigner("other-secret")
		err := other.Verify("alice@example.com", value)
		assert.ErrorIs(t, err, ErrSignatureMismatch)
	})

	t.Run("TamperedRandom", func(t *testing.T) {
		parts := strings.Split(value, ".")
		tampered := strings.Repeat("0", len(parts[0])) + "." + parts[1] + "." + parts[2]
		err := signer.Verify("alice@example.com", tampered)
		assert.ErrorIs(t, err, ErrSignatureMismatch)
	})

	t.Run("TamperedTimestamp", func(t *testing.T) {
		parts := strings.Split(value, ".")
		future := time.Now().Add(48 * time.Hour).Unix()
		tampered := parts[0] + "." + strconv.FormatInt(future, 10) + "." + parts[2]
		err := signer.Verify("alice@example.com", tampered)
		assert.ErrorIs(t, err, ErrSignatureMismatch)
	})
}

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"Empty", ""},
		{"OnePart", "abcdef"},
		{"TwoParts", "abcdef.1234567890"},
		{"FourParts", "a.1.c.d"},
		{"NonNumericTimestamp", "abcdef.notatime.signature"},
		{"EmptyRandom", ".1234567890.signature"},
		{"EmptySignature", "abcdef.1234567890."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.value)
			assert.ErrorIs(t, err, ErrMalformedToken)
		})
	}

	t.Run("Valid", func(t *testing.T) {
		parts, err := Parse("abcdef.1700000000.deadbeef")
		require.NoError(t, err)
		assert.Equal(t, "abcdef", parts.Random)
		assert.Equal(t, int64(1700000000), parts.IssuedAt.Unix())
		assert.Equal(t, "deadbeef", parts.Signature)
	})
}
