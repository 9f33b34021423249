// Package queue is the durable transport between the PMS and the sync
// workers, built on Redis Streams. Delivery is at-least-once: consumers
// acknowledge after handling, failed messages are re-enqueued with an
// incremented attempt count, and messages that exhaust their budget go
// to a dead-letter stream.
package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lodgeworks/channelsync/internal/db/sqlc"
)

// Kind identifies what a message asks a worker to do. The kind selects
// the handler; the payload carries only identifiers, never entity
// snapshots, so workers always push the current database state.
type Kind string

// Message kinds.
const (
	KindReservationUpsert  Kind = "reservation.upsert"
	KindReservationCancel  Kind = "reservation.cancel"
	KindGuestUpsert        Kind = "guest.upsert"
	KindRoomTypeUpsert     Kind = "room_type.upsert"
	KindAvailabilityUpdate Kind = "availability.update"
	KindRateUpdate         Kind = "rate.update"
	KindSyncTrigger        Kind = "sync.trigger"
)

// Message is one queue entry.
type Message struct {
	// StreamID is the Redis stream entry ID, set on consume.
	StreamID string `json:"-"`

	Kind     Kind      `json:"kind"`
	ConfigID uuid.UUID `json:"config_id"`

	// Attempt counts deliveries, starting at 1.
	Attempt int `json:"attempt"`

	EnqueuedAt time.Time       `json:"enqueued_at"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// EntityEvent is the payload for reservation, guest and room-type kinds.
type EntityEvent struct {
	EntityID uuid.UUID `json:"entity_id"`
}

// AvailabilityEvent is the payload for availability updates.
type AvailabilityEvent struct {
	RoomTypeID uuid.UUID `json:"room_type_id"`
	DateFrom   string    `json:"date_from"`
	DateTo     string    `json:"date_to"`
	Available  int       `json:"available"`
}

// RateEvent is the payload for rate updates.
type RateEvent struct {
	RoomTypeID uuid.UUID `json:"room_type_id"`
	DateFrom   string    `json:"date_from"`
	DateTo     string    `json:"date_to"`
	Rate       float64   `json:"rate"`
}

// SyncTrigger is the payload for inbound sync triggers.
type SyncTrigger struct {
	Mode sqlc.SyncMode `json:"mode"`
}

// NewMessage builds a first-attempt message with the payload marshaled.
func NewMessage(kind Kind, configID uuid.UUID, payload any) (Message, error) {
	msg := Message{
		Kind:       kind,
		ConfigID:   configID,
		Attempt:    1,
		EnqueuedAt: time.Now().UTC(),
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Message{}, fmt.Errorf("failed to encode %s payload: %w", kind, err)
		}
		msg.Payload = data
	}
	return msg, nil
}

// DecodePayload unmarshals the payload into v.
func (m Message) DecodePayload(v any) error {
	if len(m.Payload) == 0 {
		return fmt.Errorf("%s message has no payload", m.Kind)
	}
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", m.Kind, err)
	}
	return nil
}

// PermanentError marks a handler failure that must not be retried. The
// consumer dead-letters the message immediately instead of burning the
// remaining attempt budget.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent handler failure: %v", e.Err)
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent wraps err so the consumer dead-letters instead of retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}
