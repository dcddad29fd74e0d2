package session

import (
	"context"
)

// Store is the durable key-value store that carries session identifiers
// across workstation restarts.
//
// Values are plain strings; callers own any encoding. A missing key is
// reported as ErrKeyNotFound, never as an empty value.
type Store interface {
	// Get retrieves the value for a key.
	// Returns ErrKeyNotFound if the key is absent.
	Get(ctx context.Context, key string) (string, error)

	// Set stores a value under a key, replacing any previous value.
	Set(ctx context.Context, key string, value string) error

	// Delete removes a key. Removing an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// DeleteAll removes every listed key, continuing past individual
	// failures and returning the last error encountered.
	DeleteAll(ctx context.Context, keys ...string) error

	// Name returns the identifier for this store (e.g., "memory", "redis").
	// Used for logging and metrics.
	Name() string

	// Close releases any resources held by the store.
	Close() error
}
