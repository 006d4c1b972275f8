// Package token implements the signed verification token format.
//
// A token is a three-part structured string "random.timestamp.signature":
// 128 bits of cryptographically random data, the issuance time as unix
// seconds, and an HMAC-SHA256 over the bound email plus both other parts.
// The signature binds the token to one email and one issuance time, so
// neither can be swapped without invalidating it.
package token

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrMalformedToken is returned when a token value does not have the
	// three-part random.timestamp.signature structure
	ErrMalformedToken = errors.New("malformed verification token")

	// ErrSignatureMismatch is returned when a token's signature does not
	// verify against the signing secret
	ErrSignatureMismatch = errors.New("verification token signature mismatch")
)

const randomBytes = 16 // 128 bits of entropy

// Signer mints and authenticates verification token values with a fixed
// process-wide secret.
type Signer struct {
	secret []byte
}

// NewSigner creates a signer from an opaque secret string.
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Parts is a structurally valid token value split into its components.
type Parts struct {
	Random    string
	IssuedAt  time.Time
	Signature string
}

// Parse splits a token value into its three parts. It is a cheap structural
// check that callers run before any store lookup; it does not authenticate
// the signature.
func Parse(value string) (Parts, error) {
	segments := strings.Split(value, ".")
	if len(segments) != 3 {
		return Parts{}, ErrMalformedToken
	}

	random, timestamp, signature := segments[0], segments[1], segments[2]
	if random == "" || signature == "" {
		return Parts{}, ErrMalformedToken
	}

	unix, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return Parts{}, ErrMalformedToken
	}

	return Parts{
		Random:    random,
		IssuedAt:  time.Unix(unix, 0).UTC(),
		Signature: signature,
	}, nil
}

// Mint produces a new token value bound to email, together with the issuance
// time captured for it. Two calls never produce the same value short of a
// collision in the random source.
func (s *Signer) Mint(email string) (string, time.Time, error) {
	buf := make([]byte, randomBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate token: %w", err)
	}
	random := hex.EncodeToString(buf)

	issuedAt := time.Now().UTC()
	timestamp := strconv.FormatInt(issuedAt.Unix(), 10)
	signature := s.sign(email, random, timestamp)

	return random + "." + timestamp + "." + signature, issuedAt.Truncate(time.Second), nil
}

// Verify recomputes the signature for a token value bound to email and
// compares it in constant time.
func (s *Signer) Verify(email, value string) error {
	parts, err := Parse(value)
	if err != nil {
		return err
	}

	timestamp := strconv.FormatInt(parts.IssuedAt.Unix(), 10)
	expected := s.sign(email, parts.Random, timestamp)

	if !hmac.Equal([]byte(expected), []byte(parts.Signature)) {
		return ErrSignatureMismatch
	}

	return nil
}

// sign computes the hex HMAC-SHA256 over "email:random:timestamp".
func (s *Signer) sign(email, random, timestamp string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(email + ":" + random + ":" + timestamp))
	return hex.EncodeToString(mac.Sum(nil))
}
