// Package remote contains the client for the channel-manager REST API:
// wire types, the raw HTTP client, the error taxonomy, and the resilient
// wrapper that adds rate limiting, circuit breaking and retries.
package remote

import (
	"context"
	"time"
)

// Booking is the channel manager's reservation record.
type Booking struct {
	ID          string    `json:"id,omitempty"`
	Reference   string    `json:"reference,omitempty"`
	RoomTypeID  string    `json:"room_type_id,omitempty"`
	CustomerID  string    `json:"customer_id,omitempty"`
	Customer    *Customer `json:"customer,omitempty"`
	CheckIn     string    `json:"check_in"`
	CheckOut    string    `json:"check_out"`
	Status      string    `json:"status,omitempty"`
	TotalAmount float64   `json:"total_amount,omitempty"`
	ModifiedAt  time.Time `json:"modified_at,omitempty"`
}

// Customer is the channel manager's guest record.
type Customer struct {
	ID         string    `json:"id,omitempty"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Email      string    `json:"email,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	ModifiedAt time.Time `json:"modified_at,omitempty"`
}

// RoomTypePayload is the channel manager's room-type record.
type RoomTypePayload struct {
	ID        string  `json:"id,omitempty"`
	Code      string  `json:"code"`
	Name      string  `json:"name"`
	Occupancy int     `json:"occupancy,omitempty"`
	BaseRate  float64 `json:"base_rate,omitempty"`
}

// AvailabilityUpdate adjusts sellable inventory for a room type.
type AvailabilityUpdate struct {
	RoomTypeID string `json:"room_type_id"`
	DateFrom   string `json:"date_from"`
	DateTo     string `json:"date_to"`
	Available  int    `json:"available"`
}

// RateUpdate adjusts the nightly rate for a room type.
type RateUpdate struct {
	RoomTypeID string  `json:"room_type_id"`
	DateFrom   string  `json:"date_from"`
	DateTo     string  `json:"date_to"`
	Rate       float64 `json:"rate"`
}

// ListOptions filters and paginates list endpoints.
type ListOptions struct {
	// ModifiedSince restricts results to records modified strictly after
	// the given time. Zero means no filter (full fetch).
	ModifiedSince time.Time

	// Page is the 1-based page number. Zero means the first page.
	Page int

	// PageSize is the page size. Zero means the server default.
	PageSize int
}

// BookingPage is one page of bookings from a list endpoint.
type BookingPage struct {
	Items   []Booking `json:"items"`
	Page    int       `json:"page"`
	HasMore bool      `json:"has_more"`
}

// CustomerPage is one page of customers from a list endpoint.
type CustomerPage struct {
	Items   []Customer `json:"items"`
	Page    int        `json:"page"`
	HasMore bool       `json:"has_more"`
}

// API is the channel-manager operation surface the sync engine consumes.
// The raw HTTP client and the resilient wrapper both implement it, so
// callers never need to care which one they hold.
//
//go:generate mockgen -destination=mocks/mock_api.go -package=mocks -source=types.go API
type API interface {
	// TestConnection verifies the credential by issuing a cheap read.
	TestConnection(ctx context.Context) error

	ListBookings(ctx context.Context, opts ListOptions) (BookingPage, error)
	CreateBooking(ctx context.Context, booking Booking) (Booking, error)
	UpdateBooking(ctx context.Context, remoteID string, booking Booking) (Booking, error)
	CancelBooking(ctx context.Context, remoteID string) error

	ListCustomers(ctx context.Context, opts ListOptions) (CustomerPage, error)
	CreateCustomer(ctx context.Context, customer Customer) (Customer, error)
	UpdateCustomer(ctx context.Context, remoteID string, customer Customer) (Customer, error)

	CreateRoomType(ctx context.Context, roomType RoomTypePayload) (RoomTypePayload, error)
	UpdateRoomType(ctx context.Context, remoteID string, roomType RoomTypePayload) (RoomTypePayload, error)

	UpdateAvailability(ctx context.Context, update AvailabilityUpdate) error
	UpdateRate(ctx context.Context, update RateUpdate) error
}
