// Package resilience contains the per-account guards that protect the
// channel-manager API from overload: a token-bucket rate limiter and a
// circuit breaker. State is in-memory, scoped to one client instance,
// and resets on process restart.
package resilience

import (
	"math"
	"sync"
	"time"
)

// RateLimiter is a token bucket with linear refill. TryConsume never
// blocks; callers decide whether to fail, wait, or retry later.
type RateLimiter struct {
	mu         sync.Mutex
	capacity   float64
	refillRate float64 // tokens per second
	tokens     float64
	lastRefill time.Time

	now func() time.Time
}

// NewRateLimiter creates a token bucket with the given capacity that
// refills linearly over the given window.
func NewRateLimiter(capacity int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		capacity:   float64(capacity),
		refillRate: float64(capacity) / window.Seconds(),
		tokens:     float64(capacity),
		lastRefill: time.Now(),
		now:        time.Now,
	}
}

// TryConsume attempts to take one token. On success it returns (true, 0).
// On failure it returns (false, wait) where wait is the time until the
// next token becomes available.
func (r *RateLimiter) TryConsume() (bool, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.refill()

	if r.tokens >= 1 {
		r.tokens--
		return true, 0
	}

	// Round up so callers that wait the returned duration are guaranteed
	// a token on the next attempt.
	shortfall := 1 - r.tokens
	wait := time.Duration(math.Ceil(shortfall / r.refillRate * float64(time.Second)))
	if wait <= 0 {
		wait = time.Nanosecond
	}
	return false, wait
}

// Available returns the number of whole tokens currently available.
func (r *RateLimiter) Available() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.refill()
	return int(r.tokens)
}

// refill adds tokens proportional to the time elapsed since the last
// refill, capped at capacity. Caller must hold the mutex.
func (r *RateLimiter) refill() {
	now := r.now()
	elapsed := now.Sub(r.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	r.tokens += elapsed * r.refillRate
	if r.tokens > r.capacity {
		r.tokens = r.capacity
	}
	r.lastRefill = now
}
