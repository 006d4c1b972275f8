package verification

import "errors"

var (
	// ErrTokenNotFound is returned when a presented token is unknown to the store
	ErrTokenNotFound = errors.New("verification token not found")

	// ErrTokenExpired is returned when a verification token has expired
	ErrTokenExpired = errors.New("verification token has expired")

	// ErrTokenAlreadyUsed is returned when a verification token was redeemed before
	ErrTokenAlreadyUsed = errors.New("verification token has already been used")

	// ErrIdentityMissing is returned when a token's bound identity no longer exists
	ErrIdentityMissing = errors.New("identity bound to token not found")

	// ErrUserNotFound is returned when resending for an unknown email
	ErrUserNotFound = errors.New("user not found")

	// ErrAlreadyVerified is returned when resending for an already verified email
	ErrAlreadyVerified = errors.New("email already verified")
)
