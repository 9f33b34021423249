package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	// DefaultTimeout is the default timeout for HTTP requests
	DefaultTimeout = 30 * time.Second

	// MaxResponseSize is the maximum allowed response size (10MB)
	MaxResponseSize = 10 * 1024 * 1024

	// UserAgent is the user agent string for HTTP requests
	UserAgent = "channelsync/1.0"

	// defaultRetryAfter is used when a 429 carries no usable Retry-After header
	defaultRetryAfter = 30 * time.Second
)

// Credentials identifies one remote account.
type Credentials struct {
	// BaseURL is the API root, without a trailing slash
	BaseURL string

	// APIKey is the account credential sent on every request
	APIKey string
}

// HTTPClient is the raw channel-manager API client. It classifies every
// failure into the package error taxonomy but performs no retries and no
// admission control; that is the resilient wrapper's job.
type HTTPClient struct {
	creds  Credentials
	client *http.Client
}

var _ API = (*HTTPClient)(nil)

// NewHTTPClient creates a raw API client for one account.
// If timeout is 0, DefaultTimeout is used.
func NewHTTPClient(creds Credentials, timeout time.Duration) *HTTPClient {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &HTTPClient{
		creds: creds,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// TestConnection verifies the credential by issuing a cheap read.
func (c *HTTPClient) TestConnection(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/v1/ping", nil, nil, nil)
}

// ListBookings fetches one page of bookings.
func (c *HTTPClient) ListBookings(ctx context.Context, opts ListOptions) (BookingPage, error) {
	var page BookingPage
	err := c.do(ctx, http.MethodGet, "/v1/bookings", listQuery(opts), nil, &page)
	return page, err
}

// CreateBooking creates a booking and returns the remote record.
func (c *HTTPClient) CreateBooking(ctx context.Context, booking Booking) (Booking, error) {
	var created Booking
	err := c.do(ctx, http.MethodPost, "/v1/bookings", nil, booking, &created)
	return created, err
}

// UpdateBooking updates an existing booking.
func (c *HTTPClient) UpdateBooking(ctx context.Context, remoteID string, booking Booking) (Booking, error) {
	var updated Booking
	err := c.do(ctx, http.MethodPut, "/v1/bookings/"+url.PathEscape(remoteID), nil, booking, &updated)
	return updated, err
}

// CancelBooking cancels an existing booking.
func (c *HTTPClient) CancelBooking(ctx context.Context, remoteID string) error {
	return c.do(ctx, http.MethodPost, "/v1/bookings/"+url.PathEscape(remoteID)+"/cancel", nil, nil, nil)
}

// ListCustomers fetches one page of customers.
func (c *HTTPClient) ListCustomers(ctx context.Context, opts ListOptions) (CustomerPage, error) {
	var page CustomerPage
	err := c.do(ctx, http.MethodGet, "/v1/customers", listQuery(opts), nil, &page)
	return page, err
}

// CreateCustomer creates a customer and returns the remote record.
func (c *HTTPClient) CreateCustomer(ctx context.Context, customer Customer) (Customer, error) {
	var created Customer
	err := c.do(ctx, http.MethodPost, "/v1/customers", nil, customer, &created)
	return created, err
}

// UpdateCustomer updates an existing customer.
func (c *HTTPClient) UpdateCustomer(ctx context.Context, remoteID string, customer Customer) (Customer, error) {
	var updated Customer
	err := c.do(ctx, http.MethodPut, "/v1/customers/"+url.PathEscape(remoteID), nil, customer, &updated)
	return updated, err
}

// CreateRoomType publishes a room type and returns the remote record.
func (c *HTTPClient) CreateRoomType(ctx context.Context, roomType RoomTypePayload) (RoomTypePayload, error) {
	var created RoomTypePayload
	err := c.do(ctx, http.MethodPost, "/v1/room_types", nil, roomType, &created)
	return created, err
}

// UpdateRoomType updates an existing room type.
func (c *HTTPClient) UpdateRoomType(ctx context.Context, remoteID string, roomType RoomTypePayload) (RoomTypePayload, error) {
	var updated RoomTypePayload
	err := c.do(ctx, http.MethodPut, "/v1/room_types/"+url.PathEscape(remoteID), nil, roomType, &updated)
	return updated, err
}

// UpdateAvailability pushes an availability adjustment.
func (c *HTTPClient) UpdateAvailability(ctx context.Context, update AvailabilityUpdate) error {
	return c.do(ctx, http.MethodPut, "/v1/availability", nil, update, nil)
}

// UpdateRate pushes a rate adjustment.
func (c *HTTPClient) UpdateRate(ctx context.Context, update RateUpdate) error {
	return c.do(ctx, http.MethodPut, "/v1/rates", nil, update, nil)
}

// listQuery converts ListOptions into URL query parameters.
func listQuery(opts ListOptions) url.Values {
	q := url.Values{}
	if !opts.ModifiedSince.IsZero() {
		q.Set("modified_since", opts.ModifiedSince.UTC().Format(time.RFC3339))
	}
	if opts.Page > 0 {
		q.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(opts.PageSize))
	}
	return q
}

// do executes one request and decodes the JSON response into out (when
// out is non-nil). Failures are classified into the package taxonomy.
func (c *HTTPClient) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	reqURL := c.creds.BaseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return &ConfigurationError{Message: fmt.Sprintf("failed to encode request body: %v", err)}
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return &ConfigurationError{Message: fmt.Sprintf("failed to create request: %v", err)}
	}

	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Api-Key", c.creds.APIKey)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		// Timeouts and connection failures are both transport-level.
		return &NetworkError{Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return &NetworkError{Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if err := classifyStatus(resp, respBody); err != nil {
		return err
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return &ValidationError{
				StatusCode: resp.StatusCode,
				Message:    fmt.Sprintf("failed to decode response: %v", err),
			}
		}
	}

	return nil
}

// classifyStatus maps a non-2xx response onto the error taxonomy.
func classifyStatus(resp *http.Response, body []byte) error {
	code := resp.StatusCode
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return &AuthenticationError{StatusCode: code, Message: errorMessage(body)}
	case code == http.StatusTooManyRequests:
		return &RateLimitError{Wait: retryAfter(resp)}
	case code >= 400 && code < 500:
		return &ValidationError{StatusCode: code, Message: errorMessage(body)}
	default:
		return &ServerError{StatusCode: code, Message: errorMessage(body)}
	}
}

// retryAfter extracts the advertised wait from a 429 response.
func retryAfter(resp *http.Response) time.Duration {
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return defaultRetryAfter
	}
	if seconds, err := strconv.Atoi(header); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(header); err == nil {
		if wait := time.Until(at); wait > 0 {
			return wait
		}
	}
	return defaultRetryAfter
}

// errorMessage pulls the error field out of a JSON error body, falling
// back to the raw body.
func errorMessage(body []byte) string {
	var parsed struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Error != "" {
			return parsed.Error
		}
		if parsed.Message != "" {
			return parsed.Message
		}
	}
	if len(body) > 200 {
		body = body[:200]
	}
	return string(body)
}
