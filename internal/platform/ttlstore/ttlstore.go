// Package ttlstore provides a small key-value abstraction with per-entry
// expiry. The token revocation set is built on it: the in-memory
// implementation serves single-process deployments, and the Redis-backed
// implementation can be swapped in for multi-instance deployments without
// changing call sites.
package ttlstore

import (
	"context"
	"time"
)

// Store is a key-value store whose entries expire after a TTL.
type Store interface {
	// Set stores the value under key, expiring it after ttl. A non-positive
	// ttl is rejected; entries must always self-expire.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Get retrieves the value under key. The second return value is false if
	// the key does not exist or has expired.
	Get(ctx context.Context, key string) (string, bool, error)

	// Delete removes the key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the store.
	Close() error
}
