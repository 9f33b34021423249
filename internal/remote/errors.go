package remote

import (
	"errors"
	"fmt"
	"time"
)

// ConfigurationError indicates an unusable sync configuration. It is
// fatal: the run or call is aborted without retries.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// AuthenticationError indicates the remote rejected the account
// credential (401/403). Fatal for the call, counted by the breaker.
type AuthenticationError struct {
	StatusCode int
	Message    string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed (status %d): %s", e.StatusCode, e.Message)
}

// ValidationError indicates the remote rejected the payload (4xx other
// than auth and rate limiting). Non-retryable, not counted by the breaker.
type ValidationError struct {
	StatusCode int
	Message    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed (status %d): %s", e.StatusCode, e.Message)
}

// ServerError indicates a 5xx response. Retryable, counted by the breaker.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error (status %d): %s", e.StatusCode, e.Message)
}

// NetworkError wraps transport failures, including request timeouts.
// Retryable, counted by the breaker.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// RateLimitError indicates admission was denied, either by the local
// token bucket or by a remote 429. Wait is how long the caller should
// hold off before trying again.
type RateLimitError struct {
	Wait time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.Wait)
}

// CircuitOpenError indicates the per-account circuit breaker rejected
// the call without touching the network.
type CircuitOpenError struct {
	OpenedAt time.Time
	ResetAt  time.Time
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit open since %s, next probe at %s",
		e.OpenedAt.Format(time.RFC3339), e.ResetAt.Format(time.RFC3339))
}

// IsRetryable reports whether the error class may succeed on a later
// attempt. Rate limiting is retryable after the advertised wait.
func IsRetryable(err error) bool {
	var (
		netErr  *NetworkError
		srvErr  *ServerError
		rateErr *RateLimitError
	)
	return errors.As(err, &netErr) || errors.As(err, &srvErr) || errors.As(err, &rateErr)
}

// CountsAsBreakerFailure reports whether the error class feeds the
// circuit breaker's consecutive-failure count. Validation and rate-limit
// rejections do not: they say nothing about the remote's health.
func CountsAsBreakerFailure(err error) bool {
	var (
		authErr *AuthenticationError
		netErr  *NetworkError
		srvErr  *ServerError
	)
	return errors.As(err, &authErr) || errors.As(err, &netErr) || errors.As(err, &srvErr)
}

// IsFatal reports whether the error must abort a whole sync run rather
// than just the current record.
func IsFatal(err error) bool {
	var (
		cfgErr  *ConfigurationError
		authErr *AuthenticationError
	)
	return errors.As(err, &cfgErr) || errors.As(err, &authErr)
}
