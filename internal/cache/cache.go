// Package cache provides the asset content cache with TTL expiry.
package cache

import (
	"context"
	"time"
)

// DefaultTTL is how long a stored asset is considered fresh.
const DefaultTTL = 60 * time.Minute

// Store is a keyed byte store with per-entry expiry. Implementations must be
// safe for concurrent use; last write wins on concurrent sets of the same key.
type Store interface {
	// Get returns the stored bytes for key, or false when the key is absent
	// or its entry has outlived its TTL.
	Get(ctx context.Context, key string) ([]byte, bool)
	// Set stores val under key for ttl. Errors are reported so callers can
	// degrade to pass-through behavior, never fail the request.
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
}
