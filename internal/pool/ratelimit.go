package pool

import (
	"sync"
	"time"
)

// RateLimiter enforces a minimum interval between calls for each key. A
// caller that arrives too soon sleeps for the remainder of the interval, so
// the added latency is bounded by the floor, never a growing backlog.
type RateLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	last     map[string]time.Time
}

// NewRateLimiter creates a limiter with the given minimum interval.
func NewRateLimiter(interval time.Duration) *RateLimiter {
	return &RateLimiter{
		interval: interval,
		last:     make(map[string]time.Time),
	}
}

// Wait blocks until at least the configured interval has passed since the
// previous Wait for the same key, then records the call time.
func (r *RateLimiter) Wait(key string) {
	r.mu.Lock()
	elapsed := time.Since(r.last[key])
	if elapsed < r.interval {
		// Hold the lock while sleeping so concurrent callers are serialized
		// rather than released in a burst.
		time.Sleep(r.interval - elapsed)
	}
	r.last[key] = time.Now()
	r.mu.Unlock()
}
