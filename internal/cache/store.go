// Package cache provides TTL-bounded storage for fetched GitHub data and the
// cached fetch path every upstream call goes through.
package cache

import (
	"context"
	"time"
)

// Entry is a cached payload together with the time it was fetched.
type Entry struct {
	Key       string
	Value     []byte
	FetchedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the entry is past its expiry at now.
func (e *Entry) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// Store is a key/value store with a per-entry TTL.
//
// Set records value as fetched at fetchedAt and expiring ttl after it.
// Get returns a nil entry on a miss. Expiry is evaluated lazily: an expired
// entry is reported as a miss and purged. Implementations must be safe for
// concurrent use; concurrent writes to the same key resolve last-writer-wins.
type Store interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Set(ctx context.Context, key string, value []byte, fetchedAt time.Time, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
