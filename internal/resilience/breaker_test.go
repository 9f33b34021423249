package resilience

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSettings() BreakerSettings {
	return BreakerSettings{
		FailureThreshold:    5,
		ResetTimeout:        60 * time.Second,
		HalfOpenMaxRequests: 3,
	}
}

func newTestBreaker(clock *fakeClock) *CircuitBreaker {
	b := NewCircuitBreaker(testSettings())
	b.now = clock.now
	return b
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	b := newTestBreaker(clock)

	for i := 0; i < 4; i++ {
		b.RecordFailure()
		assert.Equal(t, StateClosed, b.State(), "breaker should stay closed before the threshold")
	}

	b.RecordFailure()
	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.CanProceed())

	opened, resetAt := b.OpenedAt()
	assert.Equal(t, clock.current, opened)
	assert.Equal(t, clock.current.Add(60*time.Second), resetAt)
}

func TestBreakerSuccessResetsStreak(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	b := newTestBreaker(clock)

	for i := 0; i < 4; i++ {
		b.RecordFailure()
	}
	b.RecordSuccess()

	// The streak starts over; four more failures must not trip it.
	for i := 0; i < 4; i++ {
		b.RecordFailure()
	}
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerHalfOpenAfterResetTimeout(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	b := newTestBreaker(clock)

	for i := 0; i < 5; i++ {
		b.RecordFailure()
	}
	require.Equal(t, StateOpen, b.State())

	clock.advance(59 * time.Second)
	assert.False(t, b.CanProceed())

	clock.advance(time.Second)
	assert.True(t, b.CanProceed())
	assert.Equal(t, StateHalfOpen, b.State())
}

func TestBreakerClosesAfterConsecutiveHalfOpenSuccesses(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	b := newTestBreaker(clock)

	for i := 0; i < 5; i++ {
		b.RecordFailure()
	}
	clock.advance(61 * time.Second)
	require.True(t, b.CanProceed())

	b.RecordSuccess()
	b.RecordSuccess()
	assert.Equal(t, StateHalfOpen, b.State())

	b.RecordSuccess()
	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.CanProceed())
}

func TestBreakerReopensOnHalfOpenFailure(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	b := newTestBreaker(clock)

	for i := 0; i < 5; i++ {
		b.RecordFailure()
	}
	clock.advance(61 * time.Second)
	require.True(t, b.CanProceed())

	b.RecordSuccess()
	b.RecordFailure()
	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.CanProceed())

	// The half-open counter was reset; the next probe window starts fresh.
	clock.advance(61 * time.Second)
	require.True(t, b.CanProceed())
	b.RecordSuccess()
	b.RecordSuccess()
	b.RecordSuccess()
	assert.Equal(t, StateClosed, b.State())
}
