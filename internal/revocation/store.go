// Package revocation tracks session tokens that were invalidated before their
// natural expiry.
package revocation

import (
	"context"
	"time"
)

// Store records revoked token ids. Entries are written once and live until the
// token's own expiry; after that the token fails verification on expiry alone,
// so pruning is only a space optimisation.
type Store interface {
	// Revoke is idempotent.
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
	Prune(ctx context.Context, now time.Time) (int, error)
}
