package hotel

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/lodgeworks/channelsync/internal/db/sqlc"
	"github.com/lodgeworks/channelsync/internal/queue"
)

// ConfigSource lists the sync configurations eligible for pushing.
type ConfigSource interface {
	ListEnabledSyncConfigurations(ctx context.Context) ([]sqlc.SyncConfiguration, error)
}

// Publisher enqueues outbound messages.
type Publisher interface {
	Publish(ctx context.Context, msg queue.Message) error
}

// Notifier is the hook PMS code calls after committing a local change.
// It fans the change out to every enabled sync configuration for the
// hotel whose push toggle covers the entity, enqueueing one outbound
// message per configuration. Messages carry identifiers only; workers
// read the current database state when they push.
//
// The inbound sync writer must NOT call the notifier: records written
// from remote data would otherwise be echoed straight back.
type Notifier struct {
	configs   ConfigSource
	publisher Publisher
	logger    *slog.Logger
}

// NewNotifier creates a notifier publishing through the given publisher.
func NewNotifier(configs ConfigSource, publisher Publisher, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{configs: configs, publisher: publisher, logger: logger}
}

// ReservationUpserted enqueues a reservation push.
func (n *Notifier) ReservationUpserted(ctx context.Context, hotelCode string, reservationID uuid.UUID) error {
	return n.fanOut(ctx, hotelCode, queue.KindReservationUpsert, queue.EntityEvent{EntityID: reservationID})
}

// ReservationCancelled enqueues a reservation cancellation push.
func (n *Notifier) ReservationCancelled(ctx context.Context, hotelCode string, reservationID uuid.UUID) error {
	return n.fanOut(ctx, hotelCode, queue.KindReservationCancel, queue.EntityEvent{EntityID: reservationID})
}

// GuestUpserted enqueues a guest push.
func (n *Notifier) GuestUpserted(ctx context.Context, hotelCode string, guestID uuid.UUID) error {
	return n.fanOut(ctx, hotelCode, queue.KindGuestUpsert, queue.EntityEvent{EntityID: guestID})
}

// RoomTypeUpserted enqueues a room-type push.
func (n *Notifier) RoomTypeUpserted(ctx context.Context, hotelCode string, roomTypeID uuid.UUID) error {
	return n.fanOut(ctx, hotelCode, queue.KindRoomTypeUpsert, queue.EntityEvent{EntityID: roomTypeID})
}

// AvailabilityChanged enqueues an availability push.
func (n *Notifier) AvailabilityChanged(ctx context.Context, hotelCode string, event queue.AvailabilityEvent) error {
	return n.fanOut(ctx, hotelCode, queue.KindAvailabilityUpdate, event)
}

// RateChanged enqueues a rate push.
func (n *Notifier) RateChanged(ctx context.Context, hotelCode string, event queue.RateEvent) error {
	return n.fanOut(ctx, hotelCode, queue.KindRateUpdate, event)
}

func (n *Notifier) fanOut(ctx context.Context, hotelCode string, kind queue.Kind, payload any) error {
	configs, err := n.configs.ListEnabledSyncConfigurations(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sync configurations: %w", err)
	}

	for _, cfg := range configs {
		if cfg.HotelCode != hotelCode || !pushEnabled(cfg, kind) {
			continue
		}

		msg, err := queue.NewMessage(kind, cfg.ID, payload)
		if err != nil {
			return err
		}
		if err := n.publisher.Publish(ctx, msg); err != nil {
			return fmt.Errorf("failed to enqueue %s for configuration %s: %w", kind, cfg.ID, err)
		}

		n.logger.Debug("enqueued outbound change",
			"kind", kind,
			"hotel", hotelCode,
			"config_id", cfg.ID,
		)
	}
	return nil
}

// pushEnabled maps a message kind to its configuration toggle.
func pushEnabled(cfg sqlc.SyncConfiguration, kind queue.Kind) bool {
	switch kind {
	case queue.KindReservationUpsert, queue.KindReservationCancel:
		return cfg.PushReservations
	case queue.KindGuestUpsert:
		return cfg.PushGuests
	case queue.KindRoomTypeUpsert:
		return cfg.PushRoomTypes
	case queue.KindAvailabilityUpdate:
		return cfg.PushAvailability
	case queue.KindRateUpdate:
		return cfg.PushRates
	default:
		return false
	}
}
