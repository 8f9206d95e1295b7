// Package cache provides the TTL-bounded key/value store backing the
// ephemeral checkout state: reservations and QR sessions. Entries expire
// server-side; a read after expiry is indistinguishable from a read of a
// key that never existed.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by Get when the key is absent or expired.
var ErrCacheMiss = errors.New("cache: key not found")

// Cache is a minimal TTL key/value contract. The Redis implementation backs
// production; the memory implementation backs tests and local development.
type Cache interface {
	// Set stores value under key with the given TTL, overwriting any
	// previous value and its remaining TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get returns the value for key, or ErrCacheMiss if absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
