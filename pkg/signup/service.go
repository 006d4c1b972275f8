package signup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mailproof/mailproof/pkg/login"
	"github.com/mailproof/mailproof/pkg/store"
	"github.com/mailproof/mailproof/pkg/verification"
)

var (
	// ErrEmailExists is returned when registering an email that is already taken
	ErrEmailExists = errors.New("user with this email already exists")

	// ErrMissingFields is returned when email or password is empty
	ErrMissingFields = errors.New("email and password are required")
)

// Service handles registration: creating the identity record and kicking off
// the verification-token flow.
type Service struct {
	store               store.Store
	hasher              login.PasswordHasher
	verificationService *verification.Service
}

// ServiceOption defines configuration options
type ServiceOption func(*Service)

// WithPasswordHasher sets the credential digest implementation
func WithPasswordHasher(hasher login.PasswordHasher) ServiceOption {
	return func(s *Service) {
		s.hasher = hasher
	}
}

// NewService creates a new signup service
func NewService(st store.Store, verificationService *verification.Service, opts ...ServiceOption) *Service {
	service := &Service{
		store:               st,
		hasher:              &login.BcryptHasher{},
		verificationService: verificationService,
	}

	for _, opt := range opts {
		opt(service)
	}

	return service
}

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Email    string
	Password string
	Name     string
}

// RegisterResult represents the result of a registration. EmailSent reports
// whether the verification email was handed off successfully; a false value
// never rolls back the registration itself.
type RegisterResult struct {
	Email     string
	EmailSent bool
	ExpiresAt time.Time
}

// Register creates a new unverified identity and issues its first
// verification token. Token delivery is best effort.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	if req.Email == "" || req.Password == "" {
		return nil, ErrMissingFields
	}

	digest, err := s.hasher.Hash(req.Password)
	if err != nil {
		slog.Error("Failed to hash credential", "email", req.Email, "err", err)
		return nil, fmt.Errorf("failed to hash credential: %w", err)
	}

	_, err = s.store.CreateIdentity(ctx, store.Identity{
		Email:            req.Email,
		DisplayName:      req.Name,
		CredentialDigest: digest,
		Verified:         false,
		CreatedAt:        time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, store.ErrIdentityExists) {
			slog.Warn("Registration rejected - email taken", "email", req.Email)
			return nil, ErrEmailExists
		}
		slog.Error("Failed to create identity", "email", req.Email, "err", err)
		return nil, fmt.Errorf("failed to create identity: %w", err)
	}

	result := &RegisterResult{Email: req.Email, EmailSent: true}

	// Token issuance and delivery are best effort: the identity is already
	// registered and a resend can recover from any failure here.
	issued, err := s.verificationService.IssueToken(ctx, req.Email)
	if err != nil {
		slog.Error("Failed to issue verification token", "email", req.Email, "err", err)
		result.EmailSent = false
		return result, nil
	}
	result.ExpiresAt = issued.ExpiresAt

	if err := s.verificationService.Deliver(ctx, req.Email, req.Name, issued); err != nil {
		slog.Error("Failed to deliver verification email", "email", req.Email, "err", err)
		result.EmailSent = false
	}

	slog.Info("User registered", "email", req.Email, "email_sent", result.EmailSent)
	return result, nil
}
