package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMaxEntries bounds the in-memory store. Entries normally leave by expiry;
// the bound only keeps a long-running process from growing without limit.
const DefaultMaxEntries = 10000

// MemoryStore is an in-process Store.
type MemoryStore struct {
	entries *lru.Cache[string, Entry]
	now     func() time.Time
	// mu serializes the expire-then-remove path against Set so a lazy purge
	// never removes an entry written after the expired read.
	mu sync.Mutex
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

// NewMemoryStore creates an in-memory store holding at most maxEntries entries.
func NewMemoryStore(maxEntries int, opts ...MemoryOption) (*MemoryStore, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	entries, err := lru.New[string, Entry](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory store: %w", err)
	}
	s := &MemoryStore{
		entries: entries,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Get returns the live entry for key, or nil.
func (s *MemoryStore) Get(_ context.Context, key string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entries.Get(key)
	if !ok {
		return nil, nil
	}
	if ent.Expired(s.now()) {
		s.entries.Remove(key)
		return nil, nil
	}
	return &ent, nil
}

// Set stores value under key as fetched at fetchedAt, expiring ttl later.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, fetchedAt time.Time, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries.Add(key, Entry{
		Key:       key,
		Value:     value,
		FetchedAt: fetchedAt,
		ExpiresAt: fetchedAt.Add(ttl),
	})
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries.Remove(key)
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (s *MemoryStore) Len() int {
	return s.entries.Len()
}
