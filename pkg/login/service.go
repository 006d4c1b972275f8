package login

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mailproof/mailproof/pkg/store"
)

var (
	// ErrInvalidCredentials is returned for both an unknown email and a
	// credential mismatch, so a caller cannot enumerate registered emails
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrVerificationRequired is returned when the identity exists but its
	// email has not been verified yet
	ErrVerificationRequired = errors.New("email not verified")
)

// Service authenticates identities against their stored credential digest.
type Service struct {
	store         store.Store
	hasher        PasswordHasher
	jwtSecret     string
	tokenDuration time.Duration
}

// ServiceOption defines configuration options
type ServiceOption func(*Service)

// WithPasswordHasher sets the credential digest implementation
func WithPasswordHasher(hasher PasswordHasher) ServiceOption {
	return func(s *Service) {
		s.hasher = hasher
	}
}

// WithJwtSecret sets the secret used to sign session tokens
func WithJwtSecret(secret string) ServiceOption {
	return func(s *Service) {
		s.jwtSecret = secret
	}
}

// WithTokenDuration sets the session token lifetime
func WithTokenDuration(d time.Duration) ServiceOption {
	return func(s *Service) {
		s.tokenDuration = d
	}
}

// NewService creates a new login service
func NewService(st store.Store, opts ...ServiceOption) *Service {
	service := &Service{
		store:         st,
		hasher:        &BcryptHasher{},
		tokenDuration: time.Hour,
	}

	for _, opt := range opts {
		opt(service)
	}

	return service
}

// LoginResult is a successful authentication.
type LoginResult struct {
	Email       string
	DisplayName string
	Verified    bool
	Token       string // session JWT, empty when no signing secret is configured
}

// Login authenticates email and password. An unverified identity is rejected
// with ErrVerificationRequired before the credential is even checked; unknown
// emails and digest mismatches are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	identity, err := s.store.GetIdentity(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrIdentityNotFound) {
			slog.Warn("Login failed - user not found", "email", email)
			return nil, ErrInvalidCredentials
		}
		slog.Error("Failed to get identity", "email", email, "err", err)
		return nil, fmt.Errorf("failed to look up identity: %w", err)
	}

	if !identity.Verified {
		slog.Warn("Login failed - email not verified", "email", email)
		return nil, ErrVerificationRequired
	}

	valid, err := s.hasher.Verify(password, identity.CredentialDigest)
	if err != nil {
		slog.Error("Failed to verify credential", "email", email, "err", err)
		return nil, fmt.Errorf("failed to verify credential: %w", err)
	}
	if !valid {
		slog.Warn("Login failed - invalid password", "email", email)
		return nil, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	if err := s.store.SetLastAuthenticatedAt(ctx, email, now); err != nil {
		slog.Error("Failed to update last authenticated time", "email", email, "err", err)
		// Login still succeeds; the stamp is bookkeeping
	}

	result := &LoginResult{
		Email:       identity.Email,
		DisplayName: identity.DisplayName,
		Verified:    identity.Verified,
	}

	if s.jwtSecret != "" {
		tokenStr, err := s.createSessionToken(identity.Email, identity.DisplayName, now)
		if err != nil {
			slog.Error("Failed to create session token", "email", email, "err", err)
			return nil, fmt.Errorf("failed to create session token: %w", err)
		}
		result.Token = tokenStr
	}

	slog.Info("Login successful", "email", email)
	return result, nil
}

// createSessionToken mints an HS256 session JWT for an authenticated identity.
func (s *Service) createSessionToken(email, displayName string, issuedAt time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub":  email,
		"name": displayName,
		"iat":  issuedAt.Unix(),
		"exp":  issuedAt.Add(s.tokenDuration).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}
