// Package verification implements the verification-token lifecycle: minting
// signed, time-bound, single-use tokens bound to an email address, delivering
// them through the notification collaborator, and redeeming them exactly once.
//
// # Overview
//
// The package provides:
//   - Token issuance with HMAC-signed opaque values
//   - Single-use redemption with a compare-and-set commit
//   - Resend for registered, unverified identities
//   - Optional signature recheck at redemption time
//   - Expired-token cleanup as storage hygiene
//
// # Basic Usage
//
//	st := store.NewInMemStore()
//	signer := token.NewSigner(secret)
//	svc := verification.NewService(st, signer, notificationManager,
//		verification.WithTokenExpiry(24*time.Hour),
//		verification.WithVerificationURL("https://app.example.com/verify"),
//	)
//
//	issued, err := svc.IssueToken(ctx, "alice@example.com")
//	_ = svc.Deliver(ctx, "alice@example.com", "Alice", issued)
//
//	email, err := svc.Redeem(ctx, issued.Value)
//
// Redemption outcomes are the sentinel errors ErrTokenNotFound,
// ErrTokenAlreadyUsed, ErrTokenExpired and ErrIdentityMissing. Expiry is
// evaluated lazily at redemption; no background sweep is required for
// correctness. Resending never revokes prior tokens: any outstanding,
// unexpired token independently verifies the identity.
package verification
