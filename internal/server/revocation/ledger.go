// Package revocation records access tokens that must be rejected before their
// natural expiry. Entries expire on their own; absence means "not revoked".
package revocation

import (
	"context"
	"time"
)

// KeyPrefix namespaces ledger entries in the shared cache.
const KeyPrefix = "blacklist:"

// Ledger is the revocation ledger. Implementations must be safe for
// concurrent use; operations on distinct tokens never interfere.
type Ledger interface {
	// Revoke marks token as revoked for ttl. Re-revoking is harmless.
	// A non-positive ttl records nothing.
	Revoke(ctx context.Context, token string, ttl time.Duration) error

	// IsRevoked reports whether an unexpired entry exists for token.
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// Key returns the cache key of token's entry.
func Key(token string) string {
	return KeyPrefix + token
}
