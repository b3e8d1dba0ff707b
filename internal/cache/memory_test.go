package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced time source shared by stores and loaders in tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestMemoryStore_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store, err := NewMemoryStore(0, WithClock(clock.Now))
	require.NoError(t, err)

	require.NoError(t, store.Set(ctx, "user:octocat", []byte(`{"login":"octocat"}`), clock.Now(), time.Hour))

	ent, err := store.Get(ctx, "user:octocat")
	require.NoError(t, err)
	require.NotNil(t, ent)
	assert.Equal(t, `{"login":"octocat"}`, string(ent.Value))
	assert.Equal(t, clock.Now(), ent.FetchedAt)
	assert.Equal(t, clock.Now().Add(time.Hour), ent.ExpiresAt)

	require.NoError(t, store.Delete(ctx, "user:octocat"))
	ent, err = store.Get(ctx, "user:octocat")
	require.NoError(t, err)
	assert.Nil(t, ent)

	// Deleting a missing key is fine.
	assert.NoError(t, store.Delete(ctx, "user:nobody"))
}

func TestMemoryStore_LazyExpiry(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store, err := NewMemoryStore(0, WithClock(clock.Now))
	require.NoError(t, err)

	require.NoError(t, store.Set(ctx, "events:octocat", []byte(`[]`), clock.Now(), 30*time.Minute))

	clock.Advance(30 * time.Minute)
	ent, err := store.Get(ctx, "events:octocat")
	require.NoError(t, err)
	assert.NotNil(t, ent, "entry is live exactly at its expiry instant")

	clock.Advance(time.Second)
	ent, err = store.Get(ctx, "events:octocat")
	require.NoError(t, err)
	assert.Nil(t, ent)
	assert.Equal(t, 0, store.Len(), "expired entry should be purged on read")
}

func TestMemoryStore_IndependentTTLs(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store, err := NewMemoryStore(0, WithClock(clock.Now))
	require.NoError(t, err)

	require.NoError(t, store.Set(ctx, "user:a", []byte(`1`), clock.Now(), time.Hour))
	require.NoError(t, store.Set(ctx, "repos:a:1", []byte(`2`), clock.Now(), 30*time.Minute))

	clock.Advance(45 * time.Minute)

	user, err := store.Get(ctx, "user:a")
	require.NoError(t, err)
	assert.NotNil(t, user)

	repos, err := store.Get(ctx, "repos:a:1")
	require.NoError(t, err)
	assert.Nil(t, repos)
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	store, err := NewMemoryStore(0)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("languages:owner/repo-%d", i%10)
			_ = store.Set(ctx, key, []byte(fmt.Sprintf(`{"Go":%d}`, i)), time.Now(), time.Minute)
			_, _ = store.Get(ctx, key)
			if i%7 == 0 {
				_ = store.Delete(ctx, key)
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, store.Len(), 10)
}
