package login

// PasswordHasher defines the interface for credential digest implementations.
// Only the one-way digest is ever stored, never the raw secret.
type PasswordHasher interface {
	// Hash produces a one-way digest of the password
	Hash(password string) (string, error)

	// Verify checks if the provided password matches the stored digest
	Verify(password, hashedPassword string) (bool, error)
}
