package ratelimit

import (
	"sync"
	"time"
)

// CounterStore tracks per-key request counts within fixed windows.
// Implementations must serialize the reset-then-increment sequence for
// a single key; operations on different keys are independent.
type CounterStore interface {
	// Increment bumps the counter for key, starting a new window of the
	// given length when the current one has expired. It returns the
	// post-increment count and the end of the current window.
	Increment(key string, window time.Duration) (count int, resetAt time.Time)

	// Peek reads the counter without mutating it. ok is false when no
	// state exists for the key.
	Peek(key string) (count int, resetAt time.Time, ok bool)

	// Len reports the number of tracked keys.
	Len() int

	// Close stops background maintenance.
	Close()
}

type counter struct {
	mu      sync.Mutex
	count   int
	resetAt time.Time
	evicted bool
}

// MemoryStore is the in-process CounterStore. Counters are created
// lazily per key; a background sweeper evicts counters whose window
// expired more than TTL ago so the map does not grow without bound.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[string]*counter
	clock    func() time.Time

	ttl       time.Duration
	done      chan struct{}
	closeOnce sync.Once
}

type MemoryStoreOptions struct {
	// TTL is how long an expired counter survives before eviction.
	// Zero disables eviction.
	TTL time.Duration

	// SweepInterval is how often the sweeper runs. Zero disables the
	// background sweeper even when TTL is set.
	SweepInterval time.Duration

	// Clock overrides time.Now, for tests.
	Clock func() time.Time
}

func NewMemoryStore(opts MemoryStoreOptions) *MemoryStore {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	s := &MemoryStore{
		counters: make(map[string]*counter),
		clock:    clock,
		ttl:      opts.TTL,
		done:     make(chan struct{}),
	}

	if opts.TTL > 0 && opts.SweepInterval > 0 {
		go s.sweepLoop(opts.SweepInterval)
	}

	return s
}

func (s *MemoryStore) Increment(key string, window time.Duration) (int, time.Time) {
	for {
		s.mu.Lock()
		c, ok := s.counters[key]
		if !ok {
			c = &counter{resetAt: s.clock()}
			s.counters[key] = c
		}
		s.mu.Unlock()

		// The reset+increment sequence is serialized per key under the
		// counter's own mutex; two requests straddling a window
		// boundary cannot both observe a fresh window at count zero.
		c.mu.Lock()
		if c.evicted {
			// The sweeper removed this counter between the map lookup
			// and taking its lock. An increment applied to a detached
			// counter would be lost, so retry against the live map.
			c.mu.Unlock()
			continue
		}

		now := s.clock()
		if !now.Before(c.resetAt) {
			c.count = 0
			c.resetAt = now.Add(window)
		}
		c.count++

		count, resetAt := c.count, c.resetAt
		c.mu.Unlock()

		return count, resetAt
	}
}

func (s *MemoryStore) Peek(key string) (int, time.Time, bool) {
	s.mu.Lock()
	c, ok := s.counters[key]
	s.mu.Unlock()

	if !ok {
		return 0, time.Time{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.evicted {
		return 0, time.Time{}, false
	}
	return c.count, c.resetAt, true
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.counters)
}

func (s *MemoryStore) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

func (s *MemoryStore) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.done:
			return
		}
	}
}

// sweep drops counters whose window expired more than TTL ago. Each
// counter is marked evicted under its own lock before it leaves the
// map, so an Increment that fetched the pointer just before eviction
// detects the marker and retries instead of counting against a
// detached counter.
func (s *MemoryStore) sweep() {
	cutoff := s.clock().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, c := range s.counters {
		c.mu.Lock()
		if c.resetAt.Before(cutoff) {
			c.evicted = true
			delete(s.counters, key)
		}
		c.mu.Unlock()
	}
}
