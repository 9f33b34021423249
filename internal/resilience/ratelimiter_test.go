package resilience

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock lets tests advance time deterministically.
type fakeClock struct {
	current time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{current: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time {
	return c.current
}

func (c *fakeClock) advance(d time.Duration) {
	c.current = c.current.Add(d)
}

func TestRateLimiterExhaustion(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	limiter := NewRateLimiter(100, 5*time.Minute)
	limiter.now = clock.now
	limiter.lastRefill = clock.current

	for i := 0; i < 100; i++ {
		ok, _ := limiter.TryConsume()
		require.True(t, ok, "call %d should succeed", i+1)
	}

	ok, wait := limiter.TryConsume()
	assert.False(t, ok, "101st call should be rejected")
	assert.Positive(t, wait)

	// A full window with no consumption refills the bucket completely.
	clock.advance(5 * time.Minute)
	for i := 0; i < 100; i++ {
		ok, _ := limiter.TryConsume()
		require.True(t, ok, "call %d after refill should succeed", i+1)
	}
	ok, _ = limiter.TryConsume()
	assert.False(t, ok)
}

func TestRateLimiterWaitHint(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	// 1 token per second.
	limiter := NewRateLimiter(60, time.Minute)
	limiter.now = clock.now
	limiter.lastRefill = clock.current

	for i := 0; i < 60; i++ {
		ok, _ := limiter.TryConsume()
		require.True(t, ok)
	}

	ok, wait := limiter.TryConsume()
	require.False(t, ok)
	assert.InDelta(t, float64(time.Second), float64(wait), float64(10*time.Millisecond))

	// Waiting the advertised duration yields exactly one token.
	clock.advance(wait)
	ok, _ = limiter.TryConsume()
	assert.True(t, ok)
	ok, _ = limiter.TryConsume()
	assert.False(t, ok)
}

func TestRateLimiterWaitRoundsUp(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	// 3 tokens per second makes a single-token wait a non-integral
	// nanosecond count, so a truncated hint would come up short.
	limiter := NewRateLimiter(3, time.Second)
	limiter.now = clock.now
	limiter.lastRefill = clock.current

	for i := 0; i < 3; i++ {
		ok, _ := limiter.TryConsume()
		require.True(t, ok)
	}

	ok, wait := limiter.TryConsume()
	require.False(t, ok)
	assert.Equal(t, 333333334*time.Nanosecond, wait)

	// Waiting the advertised duration must yield a token.
	clock.advance(wait)
	ok, _ = limiter.TryConsume()
	assert.True(t, ok)
}

func TestRateLimiterRefillIsCapped(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	limiter := NewRateLimiter(10, time.Minute)
	limiter.now = clock.now
	limiter.lastRefill = clock.current

	// Idling for many windows must not accumulate beyond capacity.
	clock.advance(time.Hour)
	assert.Equal(t, 10, limiter.Available())
}

func TestRateLimiterPartialRefill(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	limiter := NewRateLimiter(100, 5*time.Minute)
	limiter.now = clock.now
	limiter.lastRefill = clock.current

	for i := 0; i < 100; i++ {
		ok, _ := limiter.TryConsume()
		require.True(t, ok)
	}

	// Half a window refills half the bucket.
	clock.advance(150 * time.Second)
	assert.Equal(t, 50, limiter.Available())
}
