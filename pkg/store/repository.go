package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Identity represents a registered principal keyed by email address.
type Identity struct {
	Email               string     `json:"email"`
	DisplayName         string     `json:"display_name,omitempty"`
	CredentialDigest    string     `json:"credential_digest"`
	Verified            bool       `json:"verified"`
	CreatedAt           time.Time  `json:"created_at"`
	LastAuthenticatedAt *time.Time `json:"last_authenticated_at,omitempty"`
}

// VerificationToken represents one outstanding or historical verification attempt.
// A token is consumed when ConsumedAt is non-nil.
type VerificationToken struct {
	ID         uuid.UUID  `json:"id"`
	Token      string     `json:"token"`
	Email      string     `json:"email"`
	IssuedAt   time.Time  `json:"issued_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	ConsumedAt *time.Time `json:"consumed_at,omitempty"`
}

// Consumed reports whether the token has already been redeemed.
func (t *VerificationToken) Consumed() bool {
	return t.ConsumedAt != nil
}

// Store defines the persistence surface shared by the issuer, verifier and
// account flows. Identities are keyed by email, tokens by their opaque value.
type Store interface {
	// CreateIdentity inserts a new identity. Returns ErrIdentityExists when
	// the email is already registered; this is the only place uniqueness is
	// enforced.
	CreateIdentity(ctx context.Context, identity Identity) (*Identity, error)

	// GetIdentity retrieves an identity by email. Returns ErrIdentityNotFound
	// when no identity with that email exists.
	GetIdentity(ctx context.Context, email string) (*Identity, error)

	// MarkIdentityVerified flips the identity's verified flag to true.
	// The flag is monotonic; marking an already verified identity is a no-op.
	MarkIdentityVerified(ctx context.Context, email string) error

	// SetLastAuthenticatedAt stamps the identity's last successful login time.
	SetLastAuthenticatedAt(ctx context.Context, email string, at time.Time) error

	// CreateToken persists a verification token keyed by its opaque value.
	CreateToken(ctx context.Context, token VerificationToken) (*VerificationToken, error)

	// GetToken retrieves a verification token by its opaque value.
	// Returns ErrTokenNotFound when no such token exists.
	GetToken(ctx context.Context, tokenValue string) (*VerificationToken, error)

	// MarkTokenConsumed flips the token's consumed state exactly once.
	// Returns ErrTokenAlreadyConsumed when the token was consumed before,
	// so that concurrent redemptions of the same token have exactly one winner.
	MarkTokenConsumed(ctx context.Context, tokenValue string) error

	// CleanupExpiredTokens prunes tokens that are both expired and consumed.
	// This is storage hygiene only; correctness never depends on it.
	CleanupExpiredTokens(ctx context.Context) error
}
