package statestore

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by Get when the key is absent or expired.
	ErrNotFound = errors.New("statestore: key not found")

	// ErrKeyExists is returned by SetNX when the key is already present.
	ErrKeyExists = errors.New("statestore: key already exists")
)

// Store is a string key-value capability with per-entry TTL. Implementations
// must be safe for concurrent use. The library never assumes a particular
// storage medium.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key for ttl. A non-positive ttl means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// SetNX stores value under key only when absent, returning ErrKeyExists
	// otherwise. This is the atomic primitive replay protection relies on.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
