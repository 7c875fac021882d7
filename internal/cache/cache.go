// Package cache provides the advisory key-value cache in front of
// single-document lookups. Values are JSON snapshots of entities; entries
// expire by TTL and are never refreshed by reads. The cache is never the
// system of record: a miss only means the store must be consulted.
package cache

import (
	"context"
	"time"
)

// Cache is the capability surface services depend on. Implementations must
// be safe for concurrent use.
type Cache interface {
	// Get deserializes the entry under key into dst. Returns (false, nil)
	// on a miss (absent or expired key). A deserialization failure is an
	// error, not a miss.
	Get(ctx context.Context, key string, dst any) (bool, error)

	// Set serializes value and stores it under key with the given TTL,
	// overwriting any existing entry.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is a no-op.
	Delete(ctx context.Context, key string) error
}
