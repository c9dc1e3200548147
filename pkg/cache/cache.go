// Package cache provides the byte-oriented cache used for registry responses
// and package tarballs.
//
// Backends:
//   - [FileCache]: one JSON entry file per key under a directory (CLI default)
//   - [RedisCache]: a shared redis instance (server deployments)
//   - [NullCache]: caching disabled
//
// Keys are produced by a [Keyer] so that deployments sharing one backend
// across registries can isolate their namespaces with [NewScopedKeyer].
package cache

import (
	"context"
	"time"
)

// Default time-to-live values.
const (
	// TTLMetadata bounds how stale registry metadata may get. New versions
	// published upstream become visible after at most this long.
	TTLMetadata = time.Hour

	// TTLTarball is used for tarballs, which are immutable once published.
	TTLTarball = 30 * 24 * time.Hour
)

// Cache stores opaque byte values with an optional expiry.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}
