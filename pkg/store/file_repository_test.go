package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestStore creates a temporary directory and file store for testing
func setupTestStore(t *testing.T) (*FileStore, string) {
	tempDir := filepath.Join(os.TempDir(), "mailproof-store-test-"+uuid.New().String())
	err := os.MkdirAll(tempDir, 0755)
	require.NoError(t, err)

	st, err := NewFileStore(tempDir)
	require.NoError(t, err)

	t.Cleanup(func() {
		os.RemoveAll(tempDir)
	})

	return st, tempDir
}

func testIdentity(email string) Identity {
	return Identity{
		Email:            email,
		DisplayName:      "Test User",
		CredentialDigest: "digest",
		CreatedAt:        time.Now().UTC(),
	}
}

func testToken(email, value string, expiresAt time.Time) VerificationToken {
	return VerificationToken{
		ID:        uuid.New(),
		Token:     value,
		Email:     email,
		IssuedAt:  time.Now().UTC(),
		ExpiresAt: expiresAt,
	}
}

func TestFileStore_NewFileStore(t *testing.T) {
	tempDir := filepath.Join(os.TempDir(), "mailproof-store-test-new-"+uuid.New().String())
	defer os.RemoveAll(tempDir)

	// Should create directory if it doesn't exist
	st, err := NewFileStore(tempDir)
	assert.NoError(t, err)
	assert.NotNil(t, st)
	assert.DirExists(t, tempDir)
}

func TestFileStore_CreateIdentity(t *testing.T) {
	st, _ := setupTestStore(t)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		created, err := st.CreateIdentity(ctx, testIdentity("alice@example.com"))
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", created.Email)
		assert.False(t, created.Verified)
		assert.Nil(t, created.LastAuthenticatedAt)
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		_, err := st.CreateIdentity(ctx, testIdentity("alice@example.com"))
		assert.ErrorIs(t, err, ErrIdentityExists)
	})

	t.Run("CaseSensitiveEmails", func(t *testing.T) {
		_, err := st.CreateIdentity(ctx, testIdentity("Alice@example.com"))
		assert.NoError(t, err)
	})
}

func TestFileStore_GetIdentity(t *testing.T) {
	st, _ := setupTestStore(t)
	ctx := context.Background()

	_, err := st.CreateIdentity(ctx, testIdentity("alice@example.com"))
	require.NoError(t, err)

	t.Run("Success", func(t *testing.T) {
		identity, err := st.GetIdentity(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", identity.Email)
		assert.Equal(t, "Test User", identity.DisplayName)
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := st.GetIdentity(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, ErrIdentityNotFound)
	})

	t.Run("ReturnsCopy", func(t *testing.T) {
		identity, err := st.GetIdentity(ctx, "alice@example.com")
		require.NoError(t, err)

		identity.Verified = true

		reread, err := st.GetIdentity(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.False(t, reread.Verified)
	})
}

func TestFileStore_MarkIdentityVerified(t *testing.T) {
	st, _ := setupTestStore(t)
	ctx := context.Background()

	_, err := st.CreateIdentity(ctx, testIdentity("alice@example.com"))
	require.NoError(t, err)

	t.Run("Success", func(t *testing.T) {
		err := st.MarkIdentityVerified(ctx, "alice@example.com")
		require.NoError(t, err)

		identity, err := st.GetIdentity(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.True(t, identity.Verified)
	})

	t.Run("Idempotent", func(t *testing.T) {
		err := st.MarkIdentityVerified(ctx, "alice@example.com")
		require.NoError(t, err)

		identity, err := st.GetIdentity(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.True(t, identity.Verified)
	})

	t.Run("NotFound", func(t *testing.T) {
		err := st.MarkIdentityVerified(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, ErrIdentityNotFound)
	})
}

func TestFileStore_SetLastAuthenticatedAt(t *testing.T) {
	st, _ := setupTestStore(t)
	ctx := context.Background()

	_, err := st.CreateIdentity(ctx, testIdentity("alice@example.com"))
	require.NoError(t, err)

	at := time.Now().UTC().Truncate(time.Second)
	err = st.SetLastAuthenticatedAt(ctx, "alice@example.com", at)
	require.NoError(t, err)

	identity, err := st.GetIdentity(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, identity.LastAuthenticatedAt)
	assert.Equal(t, at, *identity.LastAuthenticatedAt)
}

func TestFileStore_Tokens(t *testing.T) {
	st, _ := setupTestStore(t)
	ctx := context.Background()

	expiresAt := time.Now().UTC().Add(1 * time.Hour)

	t.Run("CreateAndGet", func(t *testing.T) {
		created, err := st.CreateToken(ctx, testToken("alice@example.com", "token1", expiresAt))
		require.NoError(t, err)
		assert.False(t, created.Consumed())

		found, err := st.GetToken(ctx, "token1")
		require.NoError(t, err)
		assert.Equal(t, created.ID, found.ID)
		assert.Equal(t, "alice@example.com", found.Email)
	})

	t.Run("GetNotFound", func(t *testing.T) {
		_, err := st.GetToken(ctx, "nonexistent")
		assert.ErrorIs(t, err, ErrTokenNotFound)
	})

	t.Run("MultipleOutstandingTokensForSameEmail", func(t *testing.T) {
		_, err := st.CreateToken(ctx, testToken("alice@example.com", "token2", expiresAt))
		require.NoError(t, err)

		first, err := st.GetToken(ctx, "token1")
		require.NoError(t, err)
		second, err := st.GetToken(ctx, "token2")
		require.NoError(t, err)
		assert.False(t, first.Consumed())
		assert.False(t, second.Consumed())
	})
}

func TestFileStore_MarkTokenConsumed(t *testing.T) {
	st, _ := setupTestStore(t)
	ctx := context.Background()

	_, err := st.CreateToken(ctx, testToken("alice@example.com", "token1", time.Now().UTC().Add(time.Hour)))
	require.NoError(t, err)

	t.Run("FirstConsumeWins", func(t *testing.T) {
		err := st.MarkTokenConsumed(ctx, "token1")
		require.NoError(t, err)

		found, err := st.GetToken(ctx, "token1")
		require.NoError(t, err)
		assert.True(t, found.Consumed())
	})

	t.Run("SecondConsumeRejected", func(t *testing.T) {
		err := st.MarkTokenConsumed(ctx, "token1")
		assert.ErrorIs(t, err, ErrTokenAlreadyConsumed)
	})

	t.Run("NotFound", func(t *testing.T) {
		err := st.MarkTokenConsumed(ctx, "nonexistent")
		assert.ErrorIs(t, err, ErrTokenNotFound)
	})
}

func TestFileStore_CleanupExpiredTokens(t *testing.T) {
	st, _ := setupTestStore(t)
	ctx := context.Background()

	expired := time.Now().UTC().Add(-time.Hour)
	live := time.Now().UTC().Add(time.Hour)

	_, err := st.CreateToken(ctx, testToken("a@example.com", "expired-consumed", expired))
	require.NoError(t, err)
	require.NoError(t, st.MarkTokenConsumed(ctx, "expired-consumed"))

	_, err = st.CreateToken(ctx, testToken("b@example.com", "expired-unconsumed", expired))
	require.NoError(t, err)

	_, err = st.CreateToken(ctx, testToken("c@example.com", "live-token", live))
	require.NoError(t, err)

	require.NoError(t, st.CleanupExpiredTokens(ctx))

	// Only the expired-and-consumed token is pruned; the expired-but-unconsumed
	// one stays for its audit trail.
	_, err = st.GetToken(ctx, "expired-consumed")
	assert.ErrorIs(t, err, ErrTokenNotFound)
	_, err = st.GetToken(ctx, "expired-unconsumed")
	assert.NoError(t, err)
	_, err = st.GetToken(ctx, "live-token")
	assert.NoError(t, err)
}

func TestFileStore_PersistsAcrossReload(t *testing.T) {
	st, tempDir := setupTestStore(t)
	ctx := context.Background()

	_, err := st.CreateIdentity(ctx, testIdentity("alice@example.com"))
	require.NoError(t, err)
	_, err = st.CreateToken(ctx, testToken("alice@example.com", "token1", time.Now().UTC().Add(time.Hour)))
	require.NoError(t, err)
	require.NoError(t, st.MarkIdentityVerified(ctx, "alice@example.com"))

	reloaded, err := NewFileStore(tempDir)
	require.NoError(t, err)

	identity, err := reloaded.GetIdentity(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.True(t, identity.Verified)

	found, err := reloaded.GetToken(ctx, "token1")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", found.Email)
	assert.False(t, found.Consumed())
}
