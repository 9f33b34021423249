// Package outbound pushes local PMS changes to the channel manager. The
// dispatcher consumes queue messages, loads the current database state
// for the referenced entity, resolves identity mappings, and performs
// the remote create, update or cancel.
package outbound

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/lodgeworks/channelsync/internal/db/sqlc"
	"github.com/lodgeworks/channelsync/internal/hotel"
	"github.com/lodgeworks/channelsync/internal/queue"
	"github.com/lodgeworks/channelsync/internal/remote"
	"github.com/lodgeworks/channelsync/internal/sync/audit"
	"github.com/lodgeworks/channelsync/internal/sync/mapping"
)

// dateLayout is the wire format for check-in/out and rate dates.
const dateLayout = "2006-01-02"

// ConfigStore loads sync configurations.
type ConfigStore interface {
	GetSyncConfiguration(ctx context.Context, id uuid.UUID) (sqlc.SyncConfiguration, error)
}

// ClientSource hands out the API client for a configuration.
type ClientSource interface {
	ClientFor(cfg sqlc.SyncConfiguration) (remote.API, error)
}

// Dispatcher handles outbound queue messages.
type Dispatcher struct {
	configs  ConfigStore
	store    hotel.Store
	mappings mapping.Store
	auditLog audit.Log
	clients  ClientSource
	logger   *slog.Logger
}

// NewDispatcher wires an outbound dispatcher.
func NewDispatcher(
	configs ConfigStore,
	store hotel.Store,
	mappings mapping.Store,
	auditLog audit.Log,
	clients ClientSource,
	logger *slog.Logger,
) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		configs:  configs,
		store:    store,
		mappings: mappings,
		auditLog: auditLog,
		clients:  clients,
		logger:   logger,
	}
}

// Register binds every outbound message kind to its handler.
func (d *Dispatcher) Register(registry *queue.Registry) {
	registry.Register(queue.KindReservationUpsert, d.handleReservationUpsert)
	registry.Register(queue.KindReservationCancel, d.handleReservationCancel)
	registry.Register(queue.KindGuestUpsert, d.handleGuestUpsert)
	registry.Register(queue.KindRoomTypeUpsert, d.handleRoomTypeUpsert)
	registry.Register(queue.KindAvailabilityUpdate, d.handleAvailability)
	registry.Register(queue.KindRateUpdate, d.handleRate)
}

// loadConfig fetches the configuration and re-checks its toggles at
// consume time: a toggle may have been switched off between enqueue and
// delivery. A false return means the message is dropped as a no-op.
func (d *Dispatcher) loadConfig(ctx context.Context, msg queue.Message) (sqlc.SyncConfiguration, bool, error) {
	cfg, err := d.configs.GetSyncConfiguration(ctx, msg.ConfigID)
	if err != nil {
		if hotel.IsNotFound(err) {
			d.logger.Warn("dropping message for unknown configuration", "config_id", msg.ConfigID, "kind", msg.Kind)
			return sqlc.SyncConfiguration{}, false, nil
		}
		return sqlc.SyncConfiguration{}, false, fmt.Errorf("failed to load configuration %s: %w", msg.ConfigID, err)
	}
	if !cfg.Enabled || !pushEnabled(cfg, msg.Kind) {
		d.logger.Debug("push disabled, dropping message", "config_id", msg.ConfigID, "kind", msg.Kind)
		return sqlc.SyncConfiguration{}, false, nil
	}
	return cfg, true, nil
}

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

// queueError translates a remote failure into the queue's retry
// semantics: transient classes and an open circuit retry on a later
// delivery, everything else dead-letters.
func queueError(err error) error {
	if err == nil {
		return nil
	}
	var openErr *remote.CircuitOpenError
	if remote.IsRetryable(err) || errors.As(err, &openErr) {
		return err
	}
	return queue.Permanent(err)
}

// record appends an audit entry; audit failures are logged, never fatal.
func (d *Dispatcher) record(ctx context.Context, entry audit.Entry) {
	entry.Direction = sqlc.SyncDirectionOutbound
	if err := d.auditLog.Record(ctx, entry); err != nil {
		d.logger.Error("failed to write audit entry", "config_id", entry.ConfigID, "error", err)
	}
}

func (d *Dispatcher) handleReservationUpsert(ctx context.Context, msg queue.Message) error {
	cfg, ok, err := d.loadConfig(ctx, msg)
	if err != nil || !ok {
		return err
	}

	var event queue.EntityEvent
	if err := msg.DecodePayload(&event); err != nil {
		return queue.Permanent(err)
	}

	res, err := d.store.GetReservation(ctx, event.EntityID)
	if hotel.IsNotFound(err) {
		return queue.Permanent(fmt.Errorf("reservation %s no longer exists", event.EntityID))
	}
	if err != nil {
		return fmt.Errorf("failed to load reservation %s: %w", event.EntityID, err)
	}

	// Records that originated on the channel are never pushed back: the
	// channel manager is authoritative for them.
	if res.Source == sqlc.RecordSourceChannel {
		d.logger.Debug("skipping channel-sourced reservation", "reservation_id", res.ID, "config_id", cfg.ID)
		return nil
	}

	client, err := d.clients.ClientFor(cfg)
	if err != nil {
		return queue.Permanent(err)
	}

	booking, err := d.buildBooking(ctx, cfg, client, res)
	if err != nil {
		d.record(ctx, audit.Entry{
			ConfigID:   cfg.ID,
			EntityKind: sqlc.EntityKindReservation,
			Operation:  sqlc.SyncOperationCreate,
			LocalID:    res.ID.String(),
			Error:      err.Error(),
		})
		return queueError(err)
	}

	localID := res.ID.String()
	m, err := d.mappings.ByLocalID(ctx, cfg.ID, sqlc.EntityKindReservation, localID)
	switch {
	case err == nil:
		_, updateErr := client.UpdateBooking(ctx, m.RemoteID, booking)
		entry := audit.Entry{
			ConfigID:   cfg.ID,
			EntityKind: sqlc.EntityKindReservation,
			Operation:  sqlc.SyncOperationUpdate,
			LocalID:    localID,
			RemoteID:   m.RemoteID,
			Success:    updateErr == nil,
		}
		if updateErr != nil {
			entry.Error = updateErr.Error()
			d.record(ctx, entry)
			return queueError(updateErr)
		}
		d.record(ctx, entry)
		if err := d.mappings.Touch(ctx, cfg.ID, sqlc.EntityKindReservation, localID); err != nil {
			d.logger.Error("failed to touch reservation mapping", "reservation_id", localID, "error", err)
		}
		return nil

	case errors.Is(err, mapping.ErrNotFound):
		created, createErr := client.CreateBooking(ctx, booking)
		entry := audit.Entry{
			ConfigID:   cfg.ID,
			EntityKind: sqlc.EntityKindReservation,
			Operation:  sqlc.SyncOperationCreate,
			LocalID:    localID,
			Success:    createErr == nil,
		}
		if createErr != nil {
			entry.Error = createErr.Error()
			d.record(ctx, entry)
			return queueError(createErr)
		}
		entry.RemoteID = created.ID
		d.record(ctx, entry)
		if _, err := d.mappings.Record(ctx, cfg.ID, sqlc.EntityKindReservation, localID, created.ID); err != nil {
			// Without the mapping a redelivery would create a duplicate
			// remote booking; surface this as a retryable failure so the
			// remote's reference-based dedup gets another chance.
			return err
		}
		return nil

	default:
		return fmt.Errorf("failed to resolve reservation mapping: %w", err)
	}
}

// buildBooking assembles the wire payload for a reservation, pushing its
// guest and room type first when they have no remote counterpart yet.
func (d *Dispatcher) buildBooking(ctx context.Context, cfg sqlc.SyncConfiguration, client remote.API, res sqlc.Reservation) (remote.Booking, error) {
	booking := remote.Booking{
		// Reference carries the local ID so the remote can deduplicate
		// redelivered creates.
		Reference:   res.ID.String(),
		CheckIn:     res.CheckIn.Format(dateLayout),
		CheckOut:    res.CheckOut.Format(dateLayout),
		Status:      res.Status,
		TotalAmount: res.TotalAmount,
	}

	if res.GuestID != nil {
		remoteID, err := d.ensureCustomer(ctx, cfg, client, *res.GuestID)
		if err != nil {
			return remote.Booking{}, fmt.Errorf("failed to resolve guest %s: %w", res.GuestID, err)
		}
		booking.CustomerID = remoteID
	}

	if res.RoomTypeID != nil {
		remoteID, err := d.ensureRoomType(ctx, cfg, client, *res.RoomTypeID)
		if err != nil {
			return remote.Booking{}, fmt.Errorf("failed to resolve room type %s: %w", res.RoomTypeID, err)
		}
		booking.RoomTypeID = remoteID
	}

	return booking, nil
}

// ensureCustomer returns the remote ID for a guest, creating the remote
// customer and recording the mapping on first push.
func (d *Dispatcher) ensureCustomer(ctx context.Context, cfg sqlc.SyncConfiguration, client remote.API, guestID uuid.UUID) (string, error) {
	localID := guestID.String()

	m, err := d.mappings.ByLocalID(ctx, cfg.ID, sqlc.EntityKindGuest, localID)
	if err == nil {
		return m.RemoteID, nil
	}
	if !errors.Is(err, mapping.ErrNotFound) {
		return "", err
	}

	guest, err := d.store.GetGuest(ctx, guestID)
	if err != nil {
		return "", err
	}

	created, err := client.CreateCustomer(ctx, customerPayload(guest))
	entry := audit.Entry{
		ConfigID:   cfg.ID,
		EntityKind: sqlc.EntityKindGuest,
		Operation:  sqlc.SyncOperationCreate,
		LocalID:    localID,
		Success:    err == nil,
	}
	if err != nil {
		entry.Error = err.Error()
		d.record(ctx, entry)
		return "", err
	}
	entry.RemoteID = created.ID
	d.record(ctx, entry)

	if _, err := d.mappings.Record(ctx, cfg.ID, sqlc.EntityKindGuest, localID, created.ID); err != nil {
		return "", err
	}
	return created.ID, nil
}

// ensureRoomType returns the remote ID for a room type, publishing it
// and recording the mapping on first push.
func (d *Dispatcher) ensureRoomType(ctx context.Context, cfg sqlc.SyncConfiguration, client remote.API, roomTypeID uuid.UUID) (string, error) {
	localID := roomTypeID.String()

	m, err := d.mappings.ByLocalID(ctx, cfg.ID, sqlc.EntityKindRoomType, localID)
	if err == nil {
		return m.RemoteID, nil
	}
	if !errors.Is(err, mapping.ErrNotFound) {
		return "", err
	}

	roomType, err := d.store.GetRoomType(ctx, roomTypeID)
	if err != nil {
		return "", err
	}

	created, err := client.CreateRoomType(ctx, roomTypePayload(roomType))
	entry := audit.Entry{
		ConfigID:   cfg.ID,
		EntityKind: sqlc.EntityKindRoomType,
		Operation:  sqlc.SyncOperationCreate,
		LocalID:    localID,
		Success:    err == nil,
	}
	if err != nil {
		entry.Error = err.Error()
		d.record(ctx, entry)
		return "", err
	}
	entry.RemoteID = created.ID
	d.record(ctx, entry)

	if _, err := d.mappings.Record(ctx, cfg.ID, sqlc.EntityKindRoomType, localID, created.ID); err != nil {
		return "", err
	}
	return created.ID, nil
}

func (d *Dispatcher) handleReservationCancel(ctx context.Context, msg queue.Message) error {
	cfg, ok, err := d.loadConfig(ctx, msg)
	if err != nil || !ok {
		return err
	}

	var event queue.EntityEvent
	if err := msg.DecodePayload(&event); err != nil {
		return queue.Permanent(err)
	}

	localID := event.EntityID.String()

	res, err := d.store.GetReservation(ctx, event.EntityID)
	if err == nil && res.Source == sqlc.RecordSourceChannel {
		d.logger.Debug("skipping channel-sourced reservation cancel", "reservation_id", localID, "config_id", cfg.ID)
		return nil
	}
	if err != nil && !hotel.IsNotFound(err) {
		return fmt.Errorf("failed to load reservation %s: %w", event.EntityID, err)
	}

	m, err := d.mappings.ByLocalID(ctx, cfg.ID, sqlc.EntityKindReservation, localID)
	if errors.Is(err, mapping.ErrNotFound) {
		// Never pushed; there is nothing remote to cancel.
		d.logger.Debug("cancel for unmapped reservation, nothing to do", "reservation_id", localID, "config_id", cfg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to resolve reservation mapping: %w", err)
	}

	client, err := d.clients.ClientFor(cfg)
	if err != nil {
		return queue.Permanent(err)
	}

	cancelErr := client.CancelBooking(ctx, m.RemoteID)
	entry := audit.Entry{
		ConfigID:   cfg.ID,
		EntityKind: sqlc.EntityKindReservation,
		Operation:  sqlc.SyncOperationCancel,
		LocalID:    localID,
		RemoteID:   m.RemoteID,
		Success:    cancelErr == nil,
	}
	if cancelErr != nil {
		entry.Error = cancelErr.Error()
		d.record(ctx, entry)
		return queueError(cancelErr)
	}
	d.record(ctx, entry)
	return nil
}

func (d *Dispatcher) handleGuestUpsert(ctx context.Context, msg queue.Message) error {
	cfg, ok, err := d.loadConfig(ctx, msg)
	if err != nil || !ok {
		return err
	}

	var event queue.EntityEvent
	if err := msg.DecodePayload(&event); err != nil {
		return queue.Permanent(err)
	}

	guest, err := d.store.GetGuest(ctx, event.EntityID)
	if hotel.IsNotFound(err) {
		return queue.Permanent(fmt.Errorf("guest %s no longer exists", event.EntityID))
	}
	if err != nil {
		return fmt.Errorf("failed to load guest %s: %w", event.EntityID, err)
	}

	if guest.Source == sqlc.RecordSourceChannel {
		d.logger.Debug("skipping channel-sourced guest", "guest_id", guest.ID, "config_id", cfg.ID)
		return nil
	}

	client, err := d.clients.ClientFor(cfg)
	if err != nil {
		return queue.Permanent(err)
	}

	localID := guest.ID.String()
	m, err := d.mappings.ByLocalID(ctx, cfg.ID, sqlc.EntityKindGuest, localID)
	switch {
	case err == nil:
		_, updateErr := client.UpdateCustomer(ctx, m.RemoteID, customerPayload(guest))
		entry := audit.Entry{
			ConfigID:   cfg.ID,
			EntityKind: sqlc.EntityKindGuest,
			Operation:  sqlc.SyncOperationUpdate,
			LocalID:    localID,
			RemoteID:   m.RemoteID,
			Success:    updateErr == nil,
		}
		if updateErr != nil {
			entry.Error = updateErr.Error()
			d.record(ctx, entry)
			return queueError(updateErr)
		}
		d.record(ctx, entry)
		if err := d.mappings.Touch(ctx, cfg.ID, sqlc.EntityKindGuest, localID); err != nil {
			d.logger.Error("failed to touch guest mapping", "guest_id", localID, "error", err)
		}
		return nil

	case errors.Is(err, mapping.ErrNotFound):
		_, createErr := d.ensureCustomer(ctx, cfg, client, guest.ID)
		return queueError(createErr)

	default:
		return fmt.Errorf("failed to resolve guest mapping: %w", err)
	}
}

func (d *Dispatcher) handleRoomTypeUpsert(ctx context.Context, msg queue.Message) error {
	cfg, ok, err := d.loadConfig(ctx, msg)
	if err != nil || !ok {
		return err
	}

	var event queue.EntityEvent
	if err := msg.DecodePayload(&event); err != nil {
		return queue.Permanent(err)
	}

	roomType, err := d.store.GetRoomType(ctx, event.EntityID)
	if hotel.IsNotFound(err) {
		return queue.Permanent(fmt.Errorf("room type %s no longer exists", event.EntityID))
	}
	if err != nil {
		return fmt.Errorf("failed to load room type %s: %w", event.EntityID, err)
	}

	client, err := d.clients.ClientFor(cfg)
	if err != nil {
		return queue.Permanent(err)
	}

	localID := roomType.ID.String()
	m, err := d.mappings.ByLocalID(ctx, cfg.ID, sqlc.EntityKindRoomType, localID)
	switch {
	case err == nil:
		_, updateErr := client.UpdateRoomType(ctx, m.RemoteID, roomTypePayload(roomType))
		entry := audit.Entry{
			ConfigID:   cfg.ID,
			EntityKind: sqlc.EntityKindRoomType,
			Operation:  sqlc.SyncOperationUpdate,
			LocalID:    localID,
			RemoteID:   m.RemoteID,
			Success:    updateErr == nil,
		}
		if updateErr != nil {
			entry.Error = updateErr.Error()
			d.record(ctx, entry)
			return queueError(updateErr)
		}
		d.record(ctx, entry)
		if err := d.mappings.Touch(ctx, cfg.ID, sqlc.EntityKindRoomType, localID); err != nil {
			d.logger.Error("failed to touch room type mapping", "room_type_id", localID, "error", err)
		}
		return nil

	case errors.Is(err, mapping.ErrNotFound):
		_, createErr := d.ensureRoomType(ctx, cfg, client, roomType.ID)
		return queueError(createErr)

	default:
		return fmt.Errorf("failed to resolve room type mapping: %w", err)
	}
}

func (d *Dispatcher) handleAvailability(ctx context.Context, msg queue.Message) error {
	cfg, ok, err := d.loadConfig(ctx, msg)
	if err != nil || !ok {
		return err
	}

	var event queue.AvailabilityEvent
	if err := msg.DecodePayload(&event); err != nil {
		return queue.Permanent(err)
	}

	client, err := d.clients.ClientFor(cfg)
	if err != nil {
		return queue.Permanent(err)
	}

	remoteID, err := d.ensureRoomType(ctx, cfg, client, event.RoomTypeID)
	if err != nil {
		return queueError(err)
	}

	updateErr := client.UpdateAvailability(ctx, remote.AvailabilityUpdate{
		RoomTypeID: remoteID,
		DateFrom:   event.DateFrom,
		DateTo:     event.DateTo,
		Available:  event.Available,
	})
	entry := audit.Entry{
		ConfigID:   cfg.ID,
		EntityKind: sqlc.EntityKindRoomType,
		Operation:  sqlc.SyncOperationUpdate,
		LocalID:    event.RoomTypeID.String(),
		RemoteID:   remoteID,
		Success:    updateErr == nil,
	}
	if updateErr != nil {
		entry.Error = updateErr.Error()
		d.record(ctx, entry)
		return queueError(updateErr)
	}
	d.record(ctx, entry)
	return nil
}

func (d *Dispatcher) handleRate(ctx context.Context, msg queue.Message) error {
	cfg, ok, err := d.loadConfig(ctx, msg)
	if err != nil || !ok {
		return err
	}

	var event queue.RateEvent
	if err := msg.DecodePayload(&event); err != nil {
		return queue.Permanent(err)
	}

	client, err := d.clients.ClientFor(cfg)
	if err != nil {
		return queue.Permanent(err)
	}

	remoteID, err := d.ensureRoomType(ctx, cfg, client, event.RoomTypeID)
	if err != nil {
		return queueError(err)
	}

	updateErr := client.UpdateRate(ctx, remote.RateUpdate{
		RoomTypeID: remoteID,
		DateFrom:   event.DateFrom,
		DateTo:     event.DateTo,
		Rate:       event.Rate,
	})
	entry := audit.Entry{
		ConfigID:   cfg.ID,
		EntityKind: sqlc.EntityKindRoomType,
		Operation:  sqlc.SyncOperationUpdate,
		LocalID:    event.RoomTypeID.String(),
		RemoteID:   remoteID,
		Success:    updateErr == nil,
	}
	if updateErr != nil {
		entry.Error = updateErr.Error()
		d.record(ctx, entry)
		return queueError(updateErr)
	}
	d.record(ctx, entry)
	return nil
}

// customerPayload maps a guest row onto the wire type.
func customerPayload(guest sqlc.Guest) remote.Customer {
	customer := remote.Customer{
		FirstName: guest.FirstName,
		LastName:  guest.LastName,
	}
	if guest.Email != nil {
		customer.Email = *guest.Email
	}
	if guest.Phone != nil {
		customer.Phone = *guest.Phone
	}
	return customer
}

// roomTypePayload maps a room type row onto the wire type.
func roomTypePayload(roomType sqlc.RoomType) remote.RoomTypePayload {
	return remote.RoomTypePayload{
		Code:      roomType.Code,
		Name:      roomType.Name,
		Occupancy: int(roomType.Occupancy),
		BaseRate:  roomType.BaseRate,
	}
}
