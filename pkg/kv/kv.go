// Package kv defines a small key-value interface with expiring entries.
//
// Its primary consumer is the archive service, which uses atomic
// set-if-absent semantics to hold a per-subtree lock while a zip job runs.
// The TTL bounds how long a crashed worker can keep a subtree locked.
package kv

import (
	"context"
	"time"
)

// Store is a key-value store with per-entry expiration.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type Store interface {
	// SetIfAbsent stores value under key with the given TTL, but only if
	// the key is not currently set. It returns true when the value was
	// stored, false when the key already held a live entry.
	//
	// A ttl of zero stores the entry without expiration.
	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// Get returns the value stored under key and whether a live entry
	// exists. Expired entries are treated as absent.
	Get(ctx context.Context, key string) (string, bool, error)

	// Delete removes the entry stored under key. Deleting an absent key
	// is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases resources held by the store.
	Close() error
}
