// Package ratelimit implements fixed-window request limiting keyed
// by opaque scope strings (e.g. "ip:1.2.3.4", "user:<id>",
// "endpoint:/v1/auth/login:1.2.3.4"). Fixed windows are simple and
// memory-cheap but admit a known boundary-burst artifact: up to ~2x
// the limit can land in a short interval spanning a window boundary.
// That trade-off is deliberate and not corrected here.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// CounterStore increments the counter for a key inside its current
// fixed window and reports the new count together with the window
// start. Implementations must be safe for concurrent use per key:
// two requests racing on the same key must never both observe a
// count under the limit when the combined total exceeds it.
type CounterStore interface {
	Incr(ctx context.Context, key string, window time.Duration) (count int64, windowStart time.Time, err error)
}

// Decision is the outcome of one acquire attempt, with the fields
// the HTTP layer needs for X-RateLimit-* headers.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int64
	Reset     time.Time // when the current window elapses
}

// Limiter applies per-key fixed-window limits on top of a
// CounterStore. It holds no state of its own, so one limiter can be
// shared by every scope.
type Limiter struct {
	store CounterStore
}

// NewLimiter builds a limiter over the given counter store.
func NewLimiter(store CounterStore) *Limiter {
	return &Limiter{store: store}
}

// Acquire counts one request against the key's current window and
// decides admission. Over-limit requests are rejected immediately;
// there is no queueing or delayed admission. A store failure fails
// open with an error so callers can decide whether to degrade.
func (l *Limiter) Acquire(ctx context.Context, key string, limit int, window time.Duration) (Decision, error) {
	count, start, err := l.store.Incr(ctx, key, window)
	if err != nil {
		return Decision{Allowed: true, Limit: limit, Reset: time.Now().Add(window)}, err
	}
	d := Decision{
		Allowed: count <= int64(limit),
		Limit:   limit,
		Reset:   start.Add(window),
	}
	if remaining := int64(limit) - count; remaining > 0 {
		d.Remaining = remaining
	}
	return d, nil
}

// counter is one key's state inside the memory store.
type counter struct {
	windowStart time.Time
	count       int64
}

// MemoryStore is the default in-process CounterStore: a
// mutex-guarded map of lazily created counters. A counter resets the
// next time it is touched after its window elapsed; counters are
// never persisted. The clock is injectable so tests can cross window
// boundaries deterministically.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[string]*counter
	now      func() time.Time
}

// NewMemoryStore builds an empty in-memory counter store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counters: make(map[string]*counter), now: time.Now}
}

// WithClock replaces the store's clock.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

// Incr implements CounterStore. The whole read-reset-increment step
// runs under the lock; this is the one shared mutable structure in
// the subsystem and a race here would be a security-relevant bypass.
func (s *MemoryStore) Incr(_ context.Context, key string, window time.Duration) (int64, time.Time, error) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[key]
	if !ok || now.Sub(c.windowStart) >= window {
		c = &counter{windowStart: now}
		s.counters[key] = c
	}
	c.count++
	return c.count, c.windowStart, nil
}

// Len reports the number of live counters. Used by tests and the
// eviction sweep.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.counters)
}

// Sweep drops counters whose window elapsed before the given
// instant, bounding memory across many distinct keys. Callers run it
// periodically; correctness does not depend on it because stale
// counters also reset lazily on next use.
func (s *MemoryStore) Sweep(olderThan time.Duration) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, c := range s.counters {
		if now.Sub(c.windowStart) >= olderThan {
			delete(s.counters, key)
		}
	}
}
