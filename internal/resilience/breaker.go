package resilience

import (
	"sync"
	"time"
)

// BreakerState is the circuit breaker state.
type BreakerState string

// Circuit breaker states.
const (
	StateClosed   BreakerState = "closed"
	StateOpen     BreakerState = "open"
	StateHalfOpen BreakerState = "half_open"
)

// BreakerSettings holds the circuit breaker tuning parameters.
type BreakerSettings struct {
	// FailureThreshold is the consecutive-failure count that trips the breaker
	FailureThreshold int

	// ResetTimeout is how long the breaker rejects calls after tripping
	ResetTimeout time.Duration

	// HalfOpenMaxRequests is the consecutive-success count required to close
	// the breaker again from half-open
	HalfOpenMaxRequests int
}

// CircuitBreaker isolates a failing remote account. It moves from closed
// to open after FailureThreshold consecutive failures, rejects calls
// while open until ResetTimeout has elapsed since the last failure, then
// probes in half-open: HalfOpenMaxRequests consecutive successes close
// it, any failure reopens it.
type CircuitBreaker struct {
	mu       sync.Mutex
	settings BreakerSettings

	state             BreakerState
	consecutiveFails  int
	halfOpenSuccesses int
	lastFailure       time.Time
	openedAt          time.Time

	now func() time.Time
}

// NewCircuitBreaker creates a closed circuit breaker with the given settings.
func NewCircuitBreaker(settings BreakerSettings) *CircuitBreaker {
	return &CircuitBreaker{
		settings: settings,
		state:    StateClosed,
		now:      time.Now,
	}
}

// CanProceed reports whether a call may be attempted. A false return must
// short-circuit before any network call is made. When the reset timeout
// has elapsed on an open breaker, the breaker transitions to half-open
// and the call is allowed as a probe.
func (b *CircuitBreaker) CanProceed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed, StateHalfOpen:
		return true
	case StateOpen:
		if b.now().Sub(b.lastFailure) >= b.settings.ResetTimeout {
			b.state = StateHalfOpen
			b.halfOpenSuccesses = 0
			return true
		}
		return false
	default:
		return false
	}
}

// RecordSuccess resets the failure streak. In half-open it advances the
// success counter and closes the breaker once enough consecutive probes
// have succeeded.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFails = 0

	if b.state == StateHalfOpen {
		b.halfOpenSuccesses++
		if b.halfOpenSuccesses >= b.settings.HalfOpenMaxRequests {
			b.state = StateClosed
			b.halfOpenSuccesses = 0
		}
	}
}

// RecordFailure counts a breaker-relevant failure. In half-open any
// failure reopens the breaker immediately.
func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastFailure = b.now()

	if b.state == StateHalfOpen {
		b.trip()
		return
	}

	b.consecutiveFails++
	if b.state == StateClosed && b.consecutiveFails >= b.settings.FailureThreshold {
		b.trip()
	}
}

// State returns the current breaker state.
func (b *CircuitBreaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// OpenedAt returns when the breaker last tripped and when it will next
// allow a probe. Both are zero while the breaker has never tripped.
func (b *CircuitBreaker) OpenedAt() (opened, resetAt time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.openedAt.IsZero() {
		return time.Time{}, time.Time{}
	}
	return b.openedAt, b.lastFailure.Add(b.settings.ResetTimeout)
}

// trip moves the breaker to open. Caller must hold the mutex.
func (b *CircuitBreaker) trip() {
	b.state = StateOpen
	b.openedAt = b.now()
	b.consecutiveFails = 0
	b.halfOpenSuccesses = 0
}
