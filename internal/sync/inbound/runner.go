// Package inbound pulls bookings and customers from the channel manager
// into the PMS database. Runs are either full (everything) or
// incremental (records modified since the last completed run's cursor).
// A failing record is logged and counted, never aborts the run; only
// fatal failures (credentials, configuration, transport exhaustion on a
// list call) abort.
package inbound

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lodgeworks/channelsync/internal/db/sqlc"
	"github.com/lodgeworks/channelsync/internal/hotel"
	"github.com/lodgeworks/channelsync/internal/remote"
	"github.com/lodgeworks/channelsync/internal/sync/audit"
	"github.com/lodgeworks/channelsync/internal/sync/mapping"
	"github.com/lodgeworks/channelsync/internal/sync/state"
)

// dateLayout is the wire format for check-in/out dates.
const dateLayout = "2006-01-02"

// ConfigStore loads configurations and records sync outcomes on them.
type ConfigStore interface {
	GetSyncConfiguration(ctx context.Context, id uuid.UUID) (sqlc.SyncConfiguration, error)
	SetLastSuccessfulSync(ctx context.Context, arg sqlc.SetLastSuccessfulSyncParams) error
	SetLastSyncError(ctx context.Context, arg sqlc.SetLastSyncErrorParams) error
}

// ClientSource hands out the API client for a configuration.
type ClientSource interface {
	ClientFor(cfg sqlc.SyncConfiguration) (remote.API, error)
}

// Runner executes inbound sync runs.
type Runner struct {
	configs  ConfigStore
	store    hotel.Store
	mappings mapping.Store
	tracker  state.Tracker
	auditLog audit.Log
	clients  ClientSource
	pageSize int
	logger   *slog.Logger
}

// NewRunner wires an inbound runner. pageSize bounds each list request.
func NewRunner(
	configs ConfigStore,
	store hotel.Store,
	mappings mapping.Store,
	tracker state.Tracker,
	auditLog audit.Log,
	clients ClientSource,
	pageSize int,
	logger *slog.Logger,
) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if pageSize <= 0 {
		pageSize = 100
	}
	return &Runner{
		configs:  configs,
		store:    store,
		mappings: mappings,
		tracker:  tracker,
		auditLog: auditLog,
		clients:  clients,
		pageSize: pageSize,
		logger:   logger,
	}
}

// Run executes one sync run for the configuration and returns its final
// state. A non-nil error means the run was aborted (and recorded as
// failed when a run row was opened).
func (r *Runner) Run(ctx context.Context, configID uuid.UUID, mode sqlc.SyncMode) (sqlc.SyncState, error) {
	cfg, err := r.configs.GetSyncConfiguration(ctx, configID)
	if err != nil {
		return sqlc.SyncState{}, fmt.Errorf("failed to load configuration %s: %w", configID, err)
	}
	if !cfg.Enabled {
		return sqlc.SyncState{}, fmt.Errorf("configuration %s is disabled", configID)
	}

	run, err := r.tracker.Begin(ctx, cfg.ID, mode)
	if err != nil {
		return sqlc.SyncState{}, err
	}

	logger := r.logger.With("config_id", cfg.ID, "run_id", run.ID, "mode", mode)
	logger.Info("sync run started", "hotel", cfg.HotelCode, "account", cfg.AccountCode)

	result, runErr := r.pull(ctx, cfg, run.ID, mode, logger)
	if runErr != nil {
		reason := runErr.Error()
		if err := r.tracker.Fail(ctx, run.ID, reason, result.counts); err != nil {
			logger.Error("failed to record run failure", "error", err)
		}
		if err := r.configs.SetLastSyncError(ctx, sqlc.SetLastSyncErrorParams{ID: cfg.ID, LastSyncError: &reason}); err != nil {
			logger.Error("failed to record configuration error", "error", err)
		}
		logger.Error("sync run aborted", "error", runErr)
		return sqlc.SyncState{}, runErr
	}

	if err := r.tracker.Complete(ctx, run.ID, result.cursor, result.counts); err != nil {
		return sqlc.SyncState{}, err
	}
	completedAt := time.Now().UTC()
	if err := r.configs.SetLastSuccessfulSync(ctx, sqlc.SetLastSuccessfulSyncParams{ID: cfg.ID, LastSuccessfulSync: &completedAt}); err != nil {
		logger.Error("failed to record successful sync", "error", err)
	}

	logger.Info("sync run completed",
		"processed", result.counts.Processed,
		"created", result.counts.Created,
		"updated", result.counts.Updated,
		"failed", result.counts.Failed,
	)

	final := run
	final.Status = sqlc.SyncRunStatusCompleted
	final.CompletedAt = &completedAt
	final.CursorTs = result.cursor
	final.Processed = result.counts.Processed
	final.Created = result.counts.Created
	final.Updated = result.counts.Updated
	final.Failed = result.counts.Failed
	return final, nil
}

// pullResult accumulates across both entity pulls.
type pullResult struct {
	counts state.Counts
	cursor *time.Time
}

func (r *Runner) pull(ctx context.Context, cfg sqlc.SyncConfiguration, runID uuid.UUID, mode sqlc.SyncMode, logger *slog.Logger) (pullResult, error) {
	var result pullResult

	var since time.Time
	if mode == sqlc.SyncModeIncremental {
		cursor, err := r.tracker.LatestCursor(ctx, cfg.ID)
		if err != nil {
			return result, err
		}
		if cursor != nil {
			since = *cursor
			result.cursor = cursor
		}
	}

	client, err := r.clients.ClientFor(cfg)
	if err != nil {
		return result, err
	}

	var maxModified time.Time

	if cfg.PullGuests {
		if err := r.pullCustomers(ctx, cfg, client, runID, since, &result.counts, &maxModified, logger); err != nil {
			return result, err
		}
	}
	if cfg.PullReservations {
		if err := r.pullBookings(ctx, cfg, client, runID, since, &result.counts, &maxModified, logger); err != nil {
			return result, err
		}
	}

	// The cursor advances to the newest record seen; when nothing came
	// back it carries the previous value forward.
	if !maxModified.IsZero() {
		result.cursor = &maxModified
	}
	return result, nil
}

func (r *Runner) pullCustomers(
	ctx context.Context,
	cfg sqlc.SyncConfiguration,
	client remote.API,
	runID uuid.UUID,
	since time.Time,
	counts *state.Counts,
	maxModified *time.Time,
	logger *slog.Logger,
) error {
	for page := 1; ; page++ {
		customers, err := client.ListCustomers(ctx, remote.ListOptions{
			ModifiedSince: since,
			Page:          page,
			PageSize:      r.pageSize,
		})
		if err != nil {
			return fmt.Errorf("failed to list customers (page %d): %w", page, err)
		}

		for _, customer := range customers.Items {
			counts.Processed++
			op, err := r.applyCustomer(ctx, cfg, customer)
			if err != nil {
				counts.Failed++
				logger.Warn("failed to apply customer", "remote_id", customer.ID, "error", err)
				r.record(ctx, audit.Entry{
					ConfigID:   cfg.ID,
					EntityKind: sqlc.EntityKindGuest,
					Operation:  sqlc.SyncOperationCreate,
					RemoteID:   customer.ID,
					Error:      err.Error(),
				})
				continue
			}
			if op == sqlc.SyncOperationCreate {
				counts.Created++
			} else {
				counts.Updated++
			}
			if customer.ModifiedAt.After(*maxModified) {
				*maxModified = customer.ModifiedAt
			}
		}

		r.progress(ctx, runID, *counts, logger)

		if !customers.HasMore {
			return nil
		}
	}
}

func (r *Runner) pullBookings(
	ctx context.Context,
	cfg sqlc.SyncConfiguration,
	client remote.API,
	runID uuid.UUID,
	since time.Time,
	counts *state.Counts,
	maxModified *time.Time,
	logger *slog.Logger,
) error {
	for page := 1; ; page++ {
		bookings, err := client.ListBookings(ctx, remote.ListOptions{
			ModifiedSince: since,
			Page:          page,
			PageSize:      r.pageSize,
		})
		if err != nil {
			return fmt.Errorf("failed to list bookings (page %d): %w", page, err)
		}

		for _, booking := range bookings.Items {
			counts.Processed++
			op, err := r.applyBooking(ctx, cfg, booking)
			if err != nil {
				counts.Failed++
				logger.Warn("failed to apply booking", "remote_id", booking.ID, "error", err)
				r.record(ctx, audit.Entry{
					ConfigID:   cfg.ID,
					EntityKind: sqlc.EntityKindReservation,
					Operation:  sqlc.SyncOperationCreate,
					RemoteID:   booking.ID,
					Error:      err.Error(),
				})
				continue
			}
			if op == sqlc.SyncOperationCreate {
				counts.Created++
			} else {
				counts.Updated++
			}
			if booking.ModifiedAt.After(*maxModified) {
				*maxModified = booking.ModifiedAt
			}
		}

		r.progress(ctx, runID, *counts, logger)

		if !bookings.HasMore {
			return nil
		}
	}
}

// progress publishes the running counters after each page so operators
// watching a long run see movement. Failures never abort the run.
func (r *Runner) progress(ctx context.Context, runID uuid.UUID, counts state.Counts, logger *slog.Logger) {
	if err := r.tracker.Progress(ctx, runID, counts); err != nil {
		logger.Warn("failed to record run progress", "error", err)
	}
}

// applyCustomer upserts one remote customer into the guests table.
// Correlation order: existing mapping, then email natural key, then a
// fresh channel-sourced record.
func (r *Runner) applyCustomer(ctx context.Context, cfg sqlc.SyncConfiguration, customer remote.Customer) (sqlc.SyncOperation, error) {
	if customer.ID == "" {
		return "", fmt.Errorf("customer has no remote id")
	}

	var email, phone *string
	if customer.Email != "" {
		email = &customer.Email
	}
	if customer.Phone != "" {
		phone = &customer.Phone
	}

	m, err := r.mappings.ByRemoteID(ctx, cfg.ID, sqlc.EntityKindGuest, customer.ID)
	switch {
	case err == nil:
		localID, err := uuid.Parse(m.LocalID)
		if err != nil {
			return "", fmt.Errorf("corrupt guest mapping %s: %w", m.LocalID, err)
		}
		if err := r.store.UpdateGuest(ctx, sqlc.UpdateGuestParams{
			ID:        localID,
			FirstName: customer.FirstName,
			LastName:  customer.LastName,
			Email:     email,
			Phone:     phone,
		}); err != nil {
			return "", err
		}
		r.touchAndAudit(ctx, cfg.ID, sqlc.EntityKindGuest, sqlc.SyncOperationUpdate, m.LocalID, customer.ID)
		return sqlc.SyncOperationUpdate, nil

	case errors.Is(err, mapping.ErrNotFound):
		// Natural-key fallback: a guest may exist locally from a direct
		// booking before the channel ever mentioned them.
		if customer.Email != "" {
			existing, findErr := r.store.FindGuestByEmail(ctx, sqlc.FindGuestByEmailParams{
				HotelCode: cfg.HotelCode,
				Email:     customer.Email,
			})
			if findErr == nil {
				if _, err := r.mappings.Record(ctx, cfg.ID, sqlc.EntityKindGuest, existing.ID.String(), customer.ID); err != nil {
					return "", err
				}
				if err := r.store.UpdateGuest(ctx, sqlc.UpdateGuestParams{
					ID:        existing.ID,
					FirstName: customer.FirstName,
					LastName:  customer.LastName,
					Email:     email,
					Phone:     phone,
				}); err != nil {
					return "", err
				}
				r.audit(ctx, cfg.ID, sqlc.EntityKindGuest, sqlc.SyncOperationUpdate, existing.ID.String(), customer.ID)
				return sqlc.SyncOperationUpdate, nil
			}
			if !hotel.IsNotFound(findErr) {
				return "", findErr
			}
		}

		created, err := r.store.InsertGuest(ctx, sqlc.InsertGuestParams{
			HotelCode: cfg.HotelCode,
			FirstName: customer.FirstName,
			LastName:  customer.LastName,
			Email:     email,
			Phone:     phone,
			Source:    sqlc.RecordSourceChannel,
		})
		if err != nil {
			return "", err
		}
		if _, err := r.mappings.Record(ctx, cfg.ID, sqlc.EntityKindGuest, created.ID.String(), customer.ID); err != nil {
			return "", err
		}
		r.audit(ctx, cfg.ID, sqlc.EntityKindGuest, sqlc.SyncOperationCreate, created.ID.String(), customer.ID)
		return sqlc.SyncOperationCreate, nil

	default:
		return "", err
	}
}

// applyBooking upserts one remote booking into the reservations table.
func (r *Runner) applyBooking(ctx context.Context, cfg sqlc.SyncConfiguration, booking remote.Booking) (sqlc.SyncOperation, error) {
	if booking.ID == "" {
		return "", fmt.Errorf("booking has no remote id")
	}

	checkIn, err := time.Parse(dateLayout, booking.CheckIn)
	if err != nil {
		return "", fmt.Errorf("invalid check_in %q: %w", booking.CheckIn, err)
	}
	checkOut, err := time.Parse(dateLayout, booking.CheckOut)
	if err != nil {
		return "", fmt.Errorf("invalid check_out %q: %w", booking.CheckOut, err)
	}

	m, err := r.mappings.ByRemoteID(ctx, cfg.ID, sqlc.EntityKindReservation, booking.ID)
	switch {
	case err == nil:
		return r.updateReservation(ctx, cfg, m.LocalID, booking, checkIn, checkOut)

	case errors.Is(err, mapping.ErrNotFound):
		// Reference round-trip: outbound creates carry the local ID in
		// the reference, so a booking we pushed but failed to map can
		// still be correlated instead of duplicated.
		if localID, parseErr := uuid.Parse(booking.Reference); parseErr == nil {
			if _, getErr := r.store.GetReservation(ctx, localID); getErr == nil {
				if _, err := r.mappings.Record(ctx, cfg.ID, sqlc.EntityKindReservation, localID.String(), booking.ID); err != nil {
					return "", err
				}
				return r.updateReservation(ctx, cfg, localID.String(), booking, checkIn, checkOut)
			}
		}
		return r.createReservation(ctx, cfg, booking, checkIn, checkOut)

	default:
		return "", err
	}
}

func (r *Runner) updateReservation(
	ctx context.Context,
	cfg sqlc.SyncConfiguration,
	localID string,
	booking remote.Booking,
	checkIn, checkOut time.Time,
) (sqlc.SyncOperation, error) {
	id, err := uuid.Parse(localID)
	if err != nil {
		return "", fmt.Errorf("corrupt reservation mapping %s: %w", localID, err)
	}

	guestID, roomTypeID, err := r.resolveBookingRefs(ctx, cfg, booking)
	if err != nil {
		return "", err
	}

	if err := r.store.UpdateReservation(ctx, sqlc.UpdateReservationParams{
		ID:          id,
		GuestID:     guestID,
		RoomTypeID:  roomTypeID,
		CheckIn:     checkIn,
		CheckOut:    checkOut,
		Status:      booking.Status,
		TotalAmount: booking.TotalAmount,
	}); err != nil {
		return "", err
	}
	r.touchAndAudit(ctx, cfg.ID, sqlc.EntityKindReservation, sqlc.SyncOperationUpdate, localID, booking.ID)
	return sqlc.SyncOperationUpdate, nil
}

func (r *Runner) createReservation(
	ctx context.Context,
	cfg sqlc.SyncConfiguration,
	booking remote.Booking,
	checkIn, checkOut time.Time,
) (sqlc.SyncOperation, error) {
	guestID, roomTypeID, err := r.resolveBookingRefs(ctx, cfg, booking)
	if err != nil {
		return "", err
	}

	created, err := r.store.InsertReservation(ctx, sqlc.InsertReservationParams{
		HotelCode:   cfg.HotelCode,
		GuestID:     guestID,
		RoomTypeID:  roomTypeID,
		CheckIn:     checkIn,
		CheckOut:    checkOut,
		Status:      booking.Status,
		TotalAmount: booking.TotalAmount,
		Source:      sqlc.RecordSourceChannel,
	})
	if err != nil {
		return "", err
	}
	if _, err := r.mappings.Record(ctx, cfg.ID, sqlc.EntityKindReservation, created.ID.String(), booking.ID); err != nil {
		return "", err
	}
	r.audit(ctx, cfg.ID, sqlc.EntityKindReservation, sqlc.SyncOperationCreate, created.ID.String(), booking.ID)
	return sqlc.SyncOperationCreate, nil
}

// resolveBookingRefs maps the booking's remote customer and room type
// onto local rows. An embedded customer is applied on the fly; a room
// type the hotel never published fails the record.
func (r *Runner) resolveBookingRefs(ctx context.Context, cfg sqlc.SyncConfiguration, booking remote.Booking) (guestID, roomTypeID *uuid.UUID, err error) {
	if booking.CustomerID != "" {
		m, mapErr := r.mappings.ByRemoteID(ctx, cfg.ID, sqlc.EntityKindGuest, booking.CustomerID)
		switch {
		case mapErr == nil:
			id, parseErr := uuid.Parse(m.LocalID)
			if parseErr != nil {
				return nil, nil, fmt.Errorf("corrupt guest mapping %s: %w", m.LocalID, parseErr)
			}
			guestID = &id
		case errors.Is(mapErr, mapping.ErrNotFound) && booking.Customer != nil:
			customer := *booking.Customer
			customer.ID = booking.CustomerID
			if _, applyErr := r.applyCustomer(ctx, cfg, customer); applyErr != nil {
				return nil, nil, applyErr
			}
			m, mapErr = r.mappings.ByRemoteID(ctx, cfg.ID, sqlc.EntityKindGuest, booking.CustomerID)
			if mapErr != nil {
				return nil, nil, mapErr
			}
			id, parseErr := uuid.Parse(m.LocalID)
			if parseErr != nil {
				return nil, nil, fmt.Errorf("corrupt guest mapping %s: %w", m.LocalID, parseErr)
			}
			guestID = &id
		case errors.Is(mapErr, mapping.ErrNotFound):
			// No embedded customer record to materialize; keep the
			// reservation without a guest link.
		default:
			return nil, nil, mapErr
		}
	}

	if booking.RoomTypeID != "" {
		m, mapErr := r.mappings.ByRemoteID(ctx, cfg.ID, sqlc.EntityKindRoomType, booking.RoomTypeID)
		switch {
		case errors.Is(mapErr, mapping.ErrNotFound):
			// Outbound publishes room types under the hotel's code, so a
			// channel may reference one we never mapped. Fall back to the
			// natural key before failing the record.
			rt, findErr := r.store.FindRoomTypeByCode(ctx, sqlc.FindRoomTypeByCodeParams{
				HotelCode: cfg.HotelCode,
				Code:      booking.RoomTypeID,
			})
			if hotel.IsNotFound(findErr) {
				return nil, nil, fmt.Errorf("remote room type %s has no local counterpart", booking.RoomTypeID)
			}
			if findErr != nil {
				return nil, nil, findErr
			}
			if _, recErr := r.mappings.Record(ctx, cfg.ID, sqlc.EntityKindRoomType, rt.ID.String(), booking.RoomTypeID); recErr != nil {
				return nil, nil, recErr
			}
			id := rt.ID
			roomTypeID = &id
		case mapErr != nil:
			return nil, nil, mapErr
		default:
			id, parseErr := uuid.Parse(m.LocalID)
			if parseErr != nil {
				return nil, nil, fmt.Errorf("corrupt room type mapping %s: %w", m.LocalID, parseErr)
			}
			roomTypeID = &id
		}
	}

	return guestID, roomTypeID, nil
}

func (r *Runner) touchAndAudit(ctx context.Context, configID uuid.UUID, kind sqlc.EntityKind, op sqlc.SyncOperation, localID, remoteID string) {
	if err := r.mappings.Touch(ctx, configID, kind, localID); err != nil {
		r.logger.Error("failed to touch mapping", "kind", kind, "local_id", localID, "error", err)
	}
	r.audit(ctx, configID, kind, op, localID, remoteID)
}

func (r *Runner) audit(ctx context.Context, configID uuid.UUID, kind sqlc.EntityKind, op sqlc.SyncOperation, localID, remoteID string) {
	r.record(ctx, audit.Entry{
		ConfigID:   configID,
		EntityKind: kind,
		Operation:  op,
		LocalID:    localID,
		RemoteID:   remoteID,
		Success:    true,
	})
}

func (r *Runner) record(ctx context.Context, entry audit.Entry) {
	entry.Direction = sqlc.SyncDirectionInbound
	if err := r.auditLog.Record(ctx, entry); err != nil {
		r.logger.Error("failed to write audit entry", "config_id", entry.ConfigID, "error", err)
	}
}
