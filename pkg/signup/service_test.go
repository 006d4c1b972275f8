package signup

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailproof/mailproof/pkg/login"
	"github.com/mailproof/mailproof/pkg/notification"
	"github.com/mailproof/mailproof/pkg/store"
	"github.com/mailproof/mailproof/pkg/token"
	"github.com/mailproof/mailproof/pkg/verification"
)

func setupServices(t *testing.T, mock *notification.MockNotifier) (*Service, *verification.Service, *store.InMemStore) {
	st := store.NewInMemStore()
	signer := token.NewSigner("test-secret-key")

	manager := notification.NewNotificationManager()
	manager.RegisterNotifier(notification.ConsoleSystem, mock)
	err := manager.RegisterNotification(notification.EmailVerification, notification.ConsoleSystem, notification.NoticeTemplate{
		Subject: "Verify Your Email Address",
		Text:    "{{.Greeting}} verify at {{.VerificationLink}}",
	})
	require.NoError(t, err)

	verificationService := verification.NewService(st, signer, manager)
	return NewService(st, verificationService), verificationService, st
}

func TestService_Register(t *testing.T) {
	mock := &notification.MockNotifier{}
	svc, _, st := setupServices(t, mock)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		result, err := svc.Register(ctx, RegisterRequest{
			Email:    "alice@example.com",
			Password: "secret",
			Name:     "Alice",
		})
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", result.Email)
		assert.True(t, result.EmailSent)
		assert.False(t, result.ExpiresAt.IsZero())

		identity, err := st.GetIdentity(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.False(t, identity.Verified)
		assert.NotEqual(t, "secret", identity.CredentialDigest)

		require.Len(t, mock.SentNotifications, 1)
		assert.Equal(t, "alice@example.com", mock.SentNotifications[0].To)
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		_, err := svc.Register(ctx, RegisterRequest{
			Email:    "alice@example.com",
			Password: "secret",
		})
		assert.ErrorIs(t, err, ErrEmailExists)
	})

	t.Run("MissingEmail", func(t *testing.T) {
		_, err := svc.Register(ctx, RegisterRequest{Password: "secret"})
		assert.ErrorIs(t, err, ErrMissingFields)
	})

	t.Run("MissingPassword", func(t *testing.T) {
		_, err := svc.Register(ctx, RegisterRequest{Email: "bob@example.com"})
		assert.ErrorIs(t, err, ErrMissingFields)
	})
}

func TestService_Register_DeliveryFailure(t *testing.T) {
	mock := &notification.MockNotifier{Err: assert.AnError}
	svc, _, st := setupServices(t, mock)
	ctx := context.Background()

	result, err := svc.Register(ctx, RegisterRequest{
		Email:    "alice@example.com",
		Password: "secret",
	})
	require.NoError(t, err)
	assert.False(t, result.EmailSent)

	// The identity is registered regardless of delivery
	_, err = st.GetIdentity(ctx, "alice@example.com")
	assert.NoError(t, err)
}

func TestRegisterVerifyLoginFlow(t *testing.T) {
	mock := &notification.MockNotifier{}
	svc, verificationService, st := setupServices(t, mock)
	loginService := login.NewService(st)
	ctx := context.Background()

	// Register
	result, err := svc.Register(ctx, RegisterRequest{
		Email:    "alice@example.com",
		Password: "secret",
		Name:     "Alice",
	})
	require.NoError(t, err)
	require.True(t, result.EmailSent)

	// Login is blocked until the email is verified
	_, err = loginService.Login(ctx, "alice@example.com", "secret")
	require.ErrorIs(t, err, login.ErrVerificationRequired)

	// Follow the delivered verification link
	require.Len(t, mock.SentNotifications, 1)
	link := mock.SentNotifications[0].Data["VerificationLink"]
	parts := strings.SplitN(link, "token=", 2)
	require.Len(t, parts, 2)

	email, err := verificationService.Redeem(ctx, parts[1])
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", email)

	// Login now succeeds
	loginResult, err := loginService.Login(ctx, "alice@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "Alice", loginResult.DisplayName)
	assert.True(t, loginResult.Verified)
}
