package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store backed by PostgreSQL.
//
// Expected schema:
//
//	CREATE TABLE identities (
//	    email                 TEXT PRIMARY KEY,
//	    display_name          TEXT,
//	    credential_digest     TEXT NOT NULL,
//	    verified              BOOLEAN NOT NULL DEFAULT FALSE,
//	    created_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
//	    last_authenticated_at TIMESTAMPTZ
//	);
//
//	CREATE TABLE verification_tokens (
//	    id          UUID PRIMARY KEY,
//	    token       TEXT NOT NULL UNIQUE,
//	    email       TEXT NOT NULL,
//	    issued_at   TIMESTAMPTZ NOT NULL,
//	    expires_at  TIMESTAMPTZ NOT NULL,
//	    consumed_at TIMESTAMPTZ
//	);
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// CreateIdentity inserts a new identity, rejecting duplicate emails.
func (s *PostgresStore) CreateIdentity(ctx context.Context, identity Identity) (*Identity, error) {
	if identity.CreatedAt.IsZero() {
		identity.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO identities (email, display_name, credential_digest, verified, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (email) DO NOTHING
		RETURNING email, display_name, credential_digest, verified, created_at, last_authenticated_at
	`

	var out Identity
	err := s.db.QueryRow(ctx, query,
		identity.Email,
		identity.DisplayName,
		identity.CredentialDigest,
		identity.Verified,
		identity.CreatedAt,
	).Scan(
		&out.Email,
		&out.DisplayName,
		&out.CredentialDigest,
		&out.Verified,
		&out.CreatedAt,
		&out.LastAuthenticatedAt,
	)
	if err != nil {
		// ON CONFLICT DO NOTHING returns no row when the email is taken
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrIdentityExists
		}
		return nil, err
	}

	return &out, nil
}

// GetIdentity retrieves an identity by email.
func (s *PostgresStore) GetIdentity(ctx context.Context, email string) (*Identity, error) {
	query := `
		SELECT email, display_name, credential_digest, verified, created_at, last_authenticated_at
		FROM identities
		WHERE email = $1
	`

	var out Identity
	err := s.db.QueryRow(ctx, query, email).Scan(
		&out.Email,
		&out.DisplayName,
		&out.CredentialDigest,
		&out.Verified,
		&out.CreatedAt,
		&out.LastAuthenticatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrIdentityNotFound
		}
		return nil, err
	}

	return &out, nil
}

// MarkIdentityVerified flips the identity's verified flag to true.
func (s *PostgresStore) MarkIdentityVerified(ctx context.Context, email string) error {
	query := `
		UPDATE identities
		SET verified = TRUE
		WHERE email = $1
	`

	tag, err := s.db.Exec(ctx, query, email)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrIdentityNotFound
	}

	return nil
}

// SetLastAuthenticatedAt stamps the identity's last successful login time.
func (s *PostgresStore) SetLastAuthenticatedAt(ctx context.Context, email string, at time.Time) error {
	query := `
		UPDATE identities
		SET last_authenticated_at = $2
		WHERE email = $1
	`

	tag, err := s.db.Exec(ctx, query, email, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrIdentityNotFound
	}

	return nil
}

// CreateToken persists a verification token keyed by its opaque value.
func (s *PostgresStore) CreateToken(ctx context.Context, token VerificationToken) (*VerificationToken, error) {
	query := `
		INSERT INTO verification_tokens (id, token, email, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, token, email, issued_at, expires_at, consumed_at
	`

	var out VerificationToken
	err := s.db.QueryRow(ctx, query,
		token.ID,
		token.Token,
		token.Email,
		token.IssuedAt,
		token.ExpiresAt,
	).Scan(
		&out.ID,
		&out.Token,
		&out.Email,
		&out.IssuedAt,
		&out.ExpiresAt,
		&out.ConsumedAt,
	)
	if err != nil {
		return nil, err
	}

	return &out, nil
}

// GetToken retrieves a verification token by its opaque value.
func (s *PostgresStore) GetToken(ctx context.Context, tokenValue string) (*VerificationToken, error) {
	query := `
		SELECT id, token, email, issued_at, expires_at, consumed_at
		FROM verification_tokens
		WHERE token = $1
	`

	var out VerificationToken
	err := s.db.QueryRow(ctx, query, tokenValue).Scan(
		&out.ID,
		&out.Token,
		&out.Email,
		&out.IssuedAt,
		&out.ExpiresAt,
		&out.ConsumedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}

	return &out, nil
}

// MarkTokenConsumed flips the token's consumed state exactly once. The guarded
// UPDATE makes concurrent redemptions race on the database row; exactly one
// wins, the rest observe ErrTokenAlreadyConsumed.
func (s *PostgresStore) MarkTokenConsumed(ctx context.Context, tokenValue string) error {
	query := `
		UPDATE verification_tokens
		SET consumed_at = NOW() AT TIME ZONE 'UTC'
		WHERE token = $1
		AND consumed_at IS NULL
	`

	tag, err := s.db.Exec(ctx, query, tokenValue)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// No row updated: either the token does not exist or it lost the race.
	if _, err := s.GetToken(ctx, tokenValue); err != nil {
		return err
	}

	return ErrTokenAlreadyConsumed
}

// CleanupExpiredTokens prunes tokens that are both expired and consumed.
func (s *PostgresStore) CleanupExpiredTokens(ctx context.Context) error {
	query := `
		DELETE FROM verification_tokens
		WHERE consumed_at IS NOT NULL
		AND expires_at < NOW() AT TIME ZONE 'UTC'
	`

	_, err := s.db.Exec(ctx, query)
	return err
}
