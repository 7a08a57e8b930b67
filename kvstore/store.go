// Package kvstore defines the opaque key-value store the gateway reads
// credentials from. It stands in for platform secure storage: values are
// bytes, nothing is interpreted, and nothing here survives a restart unless
// the backend itself persists (redis).
package kvstore

import (
	"context"
	"errors"
	"time"
)

// Store is a minimal byte store. Implementations must be safe for concurrent
// use and must return exactly the bytes that were Set.
type Store interface {
	// Get returns (value, true, nil) on hit and (nil, false, nil) on miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value. ttl <= 0 means no expiry where the backend allows it.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	Close(ctx context.Context) error
}

// ErrRejected is returned by Set when a backend dropped the write under
// memory pressure.
var ErrRejected = errors.New("kvstore: write rejected")
