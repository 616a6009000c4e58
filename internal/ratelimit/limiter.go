package ratelimit

import (
	"time"
)

// Decision is the outcome of an admission check, carrying everything
// needed to populate rate-limit response headers.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter composes the policy store and counter store into a single
// admission operation using a fixed-window counter. Fixed windows
// permit a burst of up to twice the limit across a window boundary;
// that trade-off is intentional and documented rather than hidden
// behind a sliding window.
type Limiter struct {
	policies *PolicyStore
	counters CounterStore
	clock    func() time.Time
}

func New(policies *PolicyStore, counters CounterStore) *Limiter {
	return &Limiter{
		policies: policies,
		counters: counters,
		clock:    time.Now,
	}
}

func (l *Limiter) Policies() *PolicyStore {
	return l.policies
}

// Admit counts the request against the key's current window and
// decides whether it may proceed. When limiting is globally disabled
// every request is admitted without touching counters.
func (l *Limiter) Admit(key string, policy Policy) Decision {
	if !l.policies.Enabled() {
		return Decision{
			Allowed:   true,
			Limit:     policy.Limit,
			Remaining: policy.Limit,
			ResetAt:   l.clock(),
		}
	}

	count, resetAt := l.counters.Increment(key, policy.Window)

	remaining := policy.Limit - count
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:   count <= policy.Limit,
		Limit:     policy.Limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
}

// Inspect reports the key's current standing without consuming a
// request. A key with no recorded state reports the full limit with a
// reset time of now.
func (l *Limiter) Inspect(key string, policy Policy) Decision {
	count, resetAt, ok := l.counters.Peek(key)
	if !ok {
		return Decision{
			Allowed:   true,
			Limit:     policy.Limit,
			Remaining: policy.Limit,
			ResetAt:   l.clock(),
		}
	}

	remaining := policy.Limit - count
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:   count <= policy.Limit,
		Limit:     policy.Limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
}
