package store

import "errors"

var (
	// ErrIdentityExists is returned when registering an email that is already taken
	ErrIdentityExists = errors.New("identity with this email already exists")

	// ErrIdentityNotFound is returned when an identity is not found
	ErrIdentityNotFound = errors.New("identity not found")

	// ErrTokenNotFound is returned when a verification token is not found
	ErrTokenNotFound = errors.New("verification token not found")

	// ErrTokenAlreadyConsumed is returned when marking a token that was consumed before
	ErrTokenAlreadyConsumed = errors.New("verification token already consumed")
)
