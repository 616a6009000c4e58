package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func TestMemoryStoreIncrementStartsWindow(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(time.Unix(1000, 0))
	store := NewMemoryStore(MemoryStoreOptions{Clock: clock.Now})
	defer store.Close()

	count, resetAt := store.Increment("key", time.Minute)

	assert.Equal(t, 1, count)
	assert.Equal(t, clock.Now().Add(time.Minute), resetAt)
}

func TestMemoryStoreIncrementAccumulatesWithinWindow(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(time.Unix(1000, 0))
	store := NewMemoryStore(MemoryStoreOptions{Clock: clock.Now})
	defer store.Close()

	store.Increment("key", time.Minute)
	clock.Advance(30 * time.Second)
	count, resetAt := store.Increment("key", time.Minute)

	assert.Equal(t, 2, count)
	assert.Equal(t, time.Unix(1060, 0), resetAt, "window end must not move while the window is open")
}

func TestMemoryStoreIncrementResetsExpiredWindow(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(time.Unix(1000, 0))
	store := NewMemoryStore(MemoryStoreOptions{Clock: clock.Now})
	defer store.Close()

	for i := 0; i < 5; i++ {
		store.Increment("key", time.Minute)
	}

	clock.Advance(61 * time.Second)
	count, resetAt := store.Increment("key", time.Minute)

	assert.Equal(t, 1, count, "counter restarts, it does not accumulate")
	assert.Equal(t, clock.Now().Add(time.Minute), resetAt)
}

func TestMemoryStoreKeysAreIndependent(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(time.Unix(1000, 0))
	store := NewMemoryStore(MemoryStoreOptions{Clock: clock.Now})
	defer store.Close()

	store.Increment("a", time.Minute)
	store.Increment("a", time.Minute)
	count, _ := store.Increment("b", time.Minute)

	assert.Equal(t, 1, count)
	assert.Equal(t, 2, store.Len())
}

func TestMemoryStorePeekDoesNotMutate(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(time.Unix(1000, 0))
	store := NewMemoryStore(MemoryStoreOptions{Clock: clock.Now})
	defer store.Close()

	_, _, ok := store.Peek("key")
	assert.False(t, ok, "no state before first increment")

	store.Increment("key", time.Minute)

	count, resetAt, ok := store.Peek("key")
	require.True(t, ok)
	assert.Equal(t, 1, count)
	assert.Equal(t, time.Unix(1060, 0), resetAt)

	count, _, _ = store.Peek("key")
	assert.Equal(t, 1, count, "Peek must not count as a request")
}

func TestMemoryStoreSweepEvictsStaleCounters(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(time.Unix(1000, 0))
	store := NewMemoryStore(MemoryStoreOptions{
		TTL:   10 * time.Minute,
		Clock: clock.Now,
	})
	defer store.Close()

	store.Increment("stale", time.Minute)
	clock.Advance(20 * time.Minute)
	store.Increment("fresh", time.Minute)

	store.sweep()

	assert.Equal(t, 1, store.Len())
	_, _, ok := store.Peek("stale")
	assert.False(t, ok)
	_, _, ok = store.Peek("fresh")
	assert.True(t, ok)
}

func TestMemoryStoreSweepMarksCountersEvicted(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(time.Unix(1000, 0))
	store := NewMemoryStore(MemoryStoreOptions{
		TTL:   10 * time.Minute,
		Clock: clock.Now,
	})
	defer store.Close()

	store.Increment("stale", time.Minute)

	// Hold the counter pointer the way an in-flight Increment would
	// between its map lookup and taking the counter lock.
	store.mu.Lock()
	c := store.counters["stale"]
	store.mu.Unlock()

	clock.Advance(20 * time.Minute)
	store.sweep()

	c.mu.Lock()
	evicted := c.evicted
	c.mu.Unlock()
	assert.True(t, evicted, "a swept counter must be marked so late increments retry")

	// The next increment lands on a fresh counter, not the detached
	// one, so its admission is counted.
	count, _ := store.Increment("stale", time.Minute)
	assert.Equal(t, 1, count)

	c.mu.Lock()
	detachedCount := c.count
	c.mu.Unlock()
	assert.Equal(t, 1, detachedCount, "the detached counter never absorbs the increment")
}

func TestMemoryStoreConcurrentIncrementsLoseNothing(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore(MemoryStoreOptions{})
	defer store.Close()

	const goroutines = 50
	const perGoroutine = 20

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				store.Increment("shared", time.Hour)
			}
		}()
	}
	wg.Wait()

	count, _, ok := store.Peek("shared")
	require.True(t, ok)
	assert.Equal(t, goroutines*perGoroutine, count)
}
