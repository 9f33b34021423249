package remote

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/lodgeworks/channelsync/internal/resilience"
)

// Settings holds the per-account resilience tuning applied by the
// resilient wrapper.
type Settings struct {
	// Timeout is the per-request timeout for the underlying HTTP client
	Timeout time.Duration

	// MaxTries is the total attempt budget per call, including the first
	MaxTries int

	// RateLimitCapacity is the token bucket capacity
	RateLimitCapacity int

	// RateLimitWindow is the token bucket refill window
	RateLimitWindow time.Duration

	// Breaker tunes the circuit breaker
	Breaker resilience.BreakerSettings
}

// ResilientClient wraps an API client with admission control and retries.
// Every call runs the same gauntlet: circuit breaker first, then the
// local token bucket, then the network call, with transient failures
// retried on exponential backoff. Breaker and limiter state is shared by
// all calls through one instance, so there must be exactly one
// ResilientClient per remote account per process.
type ResilientClient struct {
	api      API
	limiter  *resilience.RateLimiter
	breaker  *resilience.CircuitBreaker
	maxTries int
	logger   *slog.Logger

	// newBackOff builds the retry schedule; tests shorten it.
	newBackOff func() backoff.BackOff
}

var _ API = (*ResilientClient)(nil)

// NewResilientClient wraps api with the given settings.
func NewResilientClient(api API, settings Settings, logger *slog.Logger) *ResilientClient {
	if logger == nil {
		logger = slog.Default()
	}
	maxTries := settings.MaxTries
	if maxTries <= 0 {
		maxTries = 1
	}
	return &ResilientClient{
		api:      api,
		limiter:  resilience.NewRateLimiter(settings.RateLimitCapacity, settings.RateLimitWindow),
		breaker:  resilience.NewCircuitBreaker(settings.Breaker),
		maxTries: maxTries,
		logger:   logger,
		newBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
	}
}

// BreakerState exposes the breaker state for health reporting.
func (c *ResilientClient) BreakerState() resilience.BreakerState {
	return c.breaker.State()
}

// execute runs one API call through the breaker, the limiter and the
// retry loop. Non-retryable failures abort immediately; a remote 429
// delays the next attempt by the advertised wait instead of the
// backoff schedule.
func execute[T any](ctx context.Context, c *ResilientClient, op string, call func(ctx context.Context) (T, error)) (T, error) {
	attempt := 0
	operation := func() (T, error) {
		var zero T
		attempt++

		if !c.breaker.CanProceed() {
			opened, resetAt := c.breaker.OpenedAt()
			return zero, backoff.Permanent(&CircuitOpenError{OpenedAt: opened, ResetAt: resetAt})
		}

		if ok, wait := c.limiter.TryConsume(); !ok {
			// Local admission failure: fail fast and let the caller
			// reschedule instead of holding a worker hostage.
			return zero, backoff.Permanent(&RateLimitError{Wait: wait})
		}

		result, err := call(ctx)
		if err == nil {
			c.breaker.RecordSuccess()
			return result, nil
		}

		if CountsAsBreakerFailure(err) {
			c.breaker.RecordFailure()
		}

		var rateErr *RateLimitError
		if errors.As(err, &rateErr) {
			// Honor the remote's advertised wait.
			return zero, errors.Join(err, &backoff.RetryAfterError{Duration: rateErr.Wait})
		}

		if !IsRetryable(err) {
			return zero, backoff.Permanent(err)
		}
		return zero, err
	}

	notify := func(err error, wait time.Duration) {
		c.logger.Warn("remote call failed, retrying",
			"operation", op,
			"attempt", attempt,
			"wait", wait,
			"error", err,
		)
	}

	result, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(uint(c.maxTries)), //nolint:gosec // clamped positive in the constructor
		backoff.WithNotify(notify),
	)
	if err != nil {
		return result, err
	}
	return result, nil
}

// executeVoid adapts execute for calls with no result.
func executeVoid(ctx context.Context, c *ResilientClient, op string, call func(ctx context.Context) error) error {
	_, err := execute(ctx, c, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, call(ctx)
	})
	return err
}

// TestConnection verifies the credential by issuing a cheap read.
func (c *ResilientClient) TestConnection(ctx context.Context) error {
	return executeVoid(ctx, c, "test_connection", c.api.TestConnection)
}

// ListBookings fetches one page of bookings.
func (c *ResilientClient) ListBookings(ctx context.Context, opts ListOptions) (BookingPage, error) {
	return execute(ctx, c, "list_bookings", func(ctx context.Context) (BookingPage, error) {
		return c.api.ListBookings(ctx, opts)
	})
}

// CreateBooking creates a booking and returns the remote record.
func (c *ResilientClient) CreateBooking(ctx context.Context, booking Booking) (Booking, error) {
	return execute(ctx, c, "create_booking", func(ctx context.Context) (Booking, error) {
		return c.api.CreateBooking(ctx, booking)
	})
}

// UpdateBooking updates an existing booking.
func (c *ResilientClient) UpdateBooking(ctx context.Context, remoteID string, booking Booking) (Booking, error) {
	return execute(ctx, c, "update_booking", func(ctx context.Context) (Booking, error) {
		return c.api.UpdateBooking(ctx, remoteID, booking)
	})
}

// CancelBooking cancels an existing booking.
func (c *ResilientClient) CancelBooking(ctx context.Context, remoteID string) error {
	return executeVoid(ctx, c, "cancel_booking", func(ctx context.Context) error {
		return c.api.CancelBooking(ctx, remoteID)
	})
}

// ListCustomers fetches one page of customers.
func (c *ResilientClient) ListCustomers(ctx context.Context, opts ListOptions) (CustomerPage, error) {
	return execute(ctx, c, "list_customers", func(ctx context.Context) (CustomerPage, error) {
		return c.api.ListCustomers(ctx, opts)
	})
}

// CreateCustomer creates a customer and returns the remote record.
func (c *ResilientClient) CreateCustomer(ctx context.Context, customer Customer) (Customer, error) {
	return execute(ctx, c, "create_customer", func(ctx context.Context) (Customer, error) {
		return c.api.CreateCustomer(ctx, customer)
	})
}

// UpdateCustomer updates an existing customer.
func (c *ResilientClient) UpdateCustomer(ctx context.Context, remoteID string, customer Customer) (Customer, error) {
	return execute(ctx, c, "update_customer", func(ctx context.Context) (Customer, error) {
		return c.api.UpdateCustomer(ctx, remoteID, customer)
	})
}

// CreateRoomType publishes a room type and returns the remote record.
func (c *ResilientClient) CreateRoomType(ctx context.Context, roomType RoomTypePayload) (RoomTypePayload, error) {
	return execute(ctx, c, "create_room_type", func(ctx context.Context) (RoomTypePayload, error) {
		return c.api.CreateRoomType(ctx, roomType)
	})
}

// UpdateRoomType updates an existing room type.
func (c *ResilientClient) UpdateRoomType(ctx context.Context, remoteID string, roomType RoomTypePayload) (RoomTypePayload, error) {
	return execute(ctx, c, "update_room_type", func(ctx context.Context) (RoomTypePayload, error) {
		return c.api.UpdateRoomType(ctx, remoteID, roomType)
	})
}

// UpdateAvailability pushes an availability adjustment.
func (c *ResilientClient) UpdateAvailability(ctx context.Context, update AvailabilityUpdate) error {
	return executeVoid(ctx, c, "update_availability", func(ctx context.Context) error {
		return c.api.UpdateAvailability(ctx, update)
	})
}

// UpdateRate pushes a rate adjustment.
func (c *ResilientClient) UpdateRate(ctx context.Context, update RateUpdate) error {
	return executeVoid(ctx, c, "update_rate", func(ctx context.Context) error {
		return c.api.UpdateRate(ctx, update)
	})
}
