package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mailproof/mailproof/pkg/notification"
	"github.com/mailproof/mailproof/pkg/store"
	"github.com/mailproof/mailproof/pkg/token"
)

// Service issues and redeems verification tokens against an identity store.
type Service struct {
	store               store.Store
	signer              *token.Signer
	notificationManager *notification.NotificationManager
	verificationURL     string
	tokenExpiry         time.Duration
	recheckSignature    bool
}

// ServiceOption defines configuration options
type ServiceOption func(*Service)

// WithTokenExpiry sets the token validity window
func WithTokenExpiry(expiry time.Duration) ServiceOption {
	return func(s *Service) {
		s.tokenExpiry = expiry
	}
}

// WithVerificationURL sets the base URL embedded in verification links
func WithVerificationURL(url string) ServiceOption {
	return func(s *Service) {
		s.verificationURL = url
	}
}

// WithSignatureRecheck re-validates the embedded HMAC at redemption time.
// A mismatch is reported as a not-found token, so the outcomes observed by
// callers are unchanged.
func WithSignatureRecheck() ServiceOption {
	return func(s *Service) {
		s.recheckSignature = true
	}
}

// NewService creates a new verification service
func NewService(
	st store.Store,
	signer *token.Signer,
	notificationManager *notification.NotificationManager,
	opts ...ServiceOption,
) *Service {
	service := &Service{
		store:               st,
		signer:              signer,
		notificationManager: notificationManager,
		verificationURL:     "http://localhost:4000/verify",
		tokenExpiry:         24 * time.Hour, // Default 24 hours
	}

	for _, opt := range opts {
		opt(service)
	}

	return service
}

// TokenExpiry returns the configured validity window.
func (s *Service) TokenExpiry() time.Duration {
	return s.tokenExpiry
}

// IssuedToken is a freshly minted verification token and its validity bound.
type IssuedToken struct {
	Value     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// IssueToken mints a signed, time-bound, single-use token for email and
// persists it. It performs no identity existence check; the registration and
// resend flows own that concern.
func (s *Service) IssueToken(ctx context.Context, email string) (*IssuedToken, error) {
	value, issuedAt, err := s.signer.Mint(email)
	if err != nil {
		slog.Error("Failed to mint verification token", "email", email, "err", err)
		return nil, err
	}

	expiresAt := issuedAt.Add(s.tokenExpiry)

	_, err = s.store.CreateToken(ctx, store.VerificationToken{
		ID:        uuid.New(),
		Token:     value,
		Email:     email,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		slog.Error("Failed to persist verification token", "email", email, "err", err)
		return nil, fmt.Errorf("failed to create verification token: %w", err)
	}

	slog.Info("Verification token issued", "email", email, "expires_at", expiresAt)
	return &IssuedToken{Value: value, IssuedAt: issuedAt, ExpiresAt: expiresAt}, nil
}

// Deliver hands an issued token to the delivery collaborator. Failures are
// the caller's advisory metadata, never a rollback of issuance.
func (s *Service) Deliver(ctx context.Context, email, displayName string, issued *IssuedToken) error {
	if s.notificationManager == nil {
		slog.Warn("Notification manager not configured, skipping email send")
		return nil
	}

	greeting := "Hello,"
	if displayName != "" {
		greeting = fmt.Sprintf("Hello %s,", displayName)
	}

	verificationLink := fmt.Sprintf("%s?token=%s", s.verificationURL, issued.Value)

	err := s.notificationManager.Send(notification.EmailVerification, notification.NotificationData{
		To: email,
		Data: map[string]string{
			"Greeting":         greeting,
			"VerificationLink": verificationLink,
			"ExpiryHours":      fmt.Sprintf("%.0f", s.tokenExpiry.Hours()),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}

	return nil
}

// Redeem authenticates a presented token and, when every check passes,
// marks the token consumed and the bound identity verified. It returns the
// verified email on success.
//
// The first successful call wins; every later call with the same token
// observes ErrTokenAlreadyUsed, even under concurrent attempts.
func (s *Service) Redeem(ctx context.Context, tokenValue string) (string, error) {
	// Structural check before any store lookup
	if _, err := token.Parse(tokenValue); err != nil {
		slog.Warn("Malformed verification token presented")
		return "", ErrTokenNotFound
	}

	stored, err := s.store.GetToken(ctx, tokenValue)
	if err != nil {
		if errors.Is(err, store.ErrTokenNotFound) {
			return "", ErrTokenNotFound
		}
		slog.Error("Failed to get verification token", "err", err)
		return "", fmt.Errorf("failed to look up token: %w", err)
	}

	// Already-consumed is checked before expiry so a double-clicked link gets
	// the more specific diagnostic.
	if stored.Consumed() {
		slog.Warn("Token already used", "token_id", stored.ID, "consumed_at", *stored.ConsumedAt)
		return "", ErrTokenAlreadyUsed
	}

	if time.Now().UTC().After(stored.ExpiresAt) {
		slog.Warn("Token expired", "token_id", stored.ID, "expires_at", stored.ExpiresAt)
		return "", ErrTokenExpired
	}

	identity, err := s.store.GetIdentity(ctx, stored.Email)
	if err != nil {
		if errors.Is(err, store.ErrIdentityNotFound) {
			slog.Error("Identity missing for stored token", "token_id", stored.ID, "email", stored.Email)
			return "", ErrIdentityMissing
		}
		slog.Error("Failed to get identity", "email", stored.Email, "err", err)
		return "", fmt.Errorf("failed to look up identity: %w", err)
	}

	if s.recheckSignature {
		if err := s.signer.Verify(stored.Email, tokenValue); err != nil {
			slog.Warn("Token signature recheck failed", "token_id", stored.ID, "err", err)
			return "", ErrTokenNotFound
		}
	}

	// Consume first: the compare-and-set decides the winner among concurrent
	// redemptions before the identity flag is touched.
	if err := s.store.MarkTokenConsumed(ctx, tokenValue); err != nil {
		if errors.Is(err, store.ErrTokenAlreadyConsumed) {
			return "", ErrTokenAlreadyUsed
		}
		slog.Error("Failed to mark token consumed", "token_id", stored.ID, "err", err)
		return "", fmt.Errorf("failed to consume token: %w", err)
	}

	if err := s.store.MarkIdentityVerified(ctx, identity.Email); err != nil {
		slog.Error("Failed to mark identity verified", "email", identity.Email, "err", err)
		return "", fmt.Errorf("failed to verify identity: %w", err)
	}

	slog.Info("Email verified successfully", "email", identity.Email, "token_id", stored.ID)
	return identity.Email, nil
}

// ResendResult reports a resend attempt. EmailSent is advisory; the token is
// issued either way.
type ResendResult struct {
	EmailSent bool
}

// Resend issues a fresh token for an existing, unverified identity and hands
// it to the delivery collaborator. Prior outstanding tokens stay valid.
func (s *Service) Resend(ctx context.Context, email string) (*ResendResult, error) {
	identity, err := s.store.GetIdentity(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrIdentityNotFound) {
			slog.Warn("Resend requested for unknown email", "email", email)
			return nil, ErrUserNotFound
		}
		slog.Error("Failed to get identity", "email", email, "err", err)
		return nil, fmt.Errorf("failed to look up identity: %w", err)
	}

	if identity.Verified {
		slog.Info("Email already verified", "email", email)
		return nil, ErrAlreadyVerified
	}

	issued, err := s.IssueToken(ctx, email)
	if err != nil {
		return nil, err
	}

	result := &ResendResult{EmailSent: true}
	if err := s.Deliver(ctx, email, identity.DisplayName, issued); err != nil {
		slog.Error("Failed to deliver verification email", "email", email, "err", err)
		result.EmailSent = false
	}

	return result, nil
}

// CleanupExpiredTokens prunes expired-and-consumed tokens from the store.
func (s *Service) CleanupExpiredTokens(ctx context.Context) error {
	if err := s.store.CleanupExpiredTokens(ctx); err != nil {
		slog.Error("Failed to cleanup expired tokens", "err", err)
		return fmt.Errorf("failed to cleanup expired tokens: %w", err)
	}

	return nil
}
