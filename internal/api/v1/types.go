package v1

import (
	"time"

	"github.com/google/uuid"

	"github.com/lodgeworks/channelsync/internal/db/pgtypes"
	"github.com/lodgeworks/channelsync/internal/db/sqlc"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// ConfigResponse is a sync configuration with the credential stripped.
type ConfigResponse struct {
	ID                 uuid.UUID  `json:"id"`
	HotelCode          string     `json:"hotel_code"`
	AccountCode        string     `json:"account_code"`
	BaseURL            string     `json:"base_url"`
	Enabled            bool       `json:"enabled"`
	PushReservations   bool       `json:"push_reservations"`
	PushGuests         bool       `json:"push_guests"`
	PushRoomTypes      bool       `json:"push_room_types"`
	PushAvailability   bool       `json:"push_availability"`
	PushRates          bool       `json:"push_rates"`
	PullReservations   bool       `json:"pull_reservations"`
	PullGuests         bool       `json:"pull_guests"`
	SyncInterval       string     `json:"sync_interval"`
	LastSuccessfulSync *time.Time `json:"last_successful_sync,omitempty"`
	LastSyncError      *string    `json:"last_sync_error,omitempty"`
}

func configResponse(cfg sqlc.SyncConfiguration) ConfigResponse {
	return ConfigResponse{
		ID:                 cfg.ID,
		HotelCode:          cfg.HotelCode,
		AccountCode:        cfg.AccountCode,
		BaseURL:            cfg.BaseUrl,
		Enabled:            cfg.Enabled,
		PushReservations:   cfg.PushReservations,
		PushGuests:         cfg.PushGuests,
		PushRoomTypes:      cfg.PushRoomTypes,
		PushAvailability:   cfg.PushAvailability,
		PushRates:          cfg.PushRates,
		PullReservations:   cfg.PullReservations,
		PullGuests:         cfg.PullGuests,
		SyncInterval:       pgtypes.IntervalToDuration(cfg.SyncInterval).String(),
		LastSuccessfulSync: cfg.LastSuccessfulSync,
		LastSyncError:      cfg.LastSyncError,
	}
}

// TriggerSyncRequest is the body of a manual sync trigger. Mode defaults
// to incremental when omitted.
type TriggerSyncRequest struct {
	Mode string `json:"mode,omitempty"`
}

// TriggerSyncResponse acknowledges an enqueued sync trigger.
type TriggerSyncResponse struct {
	ConfigID uuid.UUID `json:"config_id"`
	Mode     string    `json:"mode"`
	Status   string    `json:"status"`
}

// RunResponse is one sync run.
type RunResponse struct {
	ID           uuid.UUID  `json:"id"`
	ConfigID     uuid.UUID  `json:"config_id"`
	Mode         string     `json:"mode"`
	Status       string     `json:"status"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	CursorTs     *time.Time `json:"cursor_ts,omitempty"`
	Processed    int64      `json:"processed"`
	Created      int64      `json:"created"`
	Updated      int64      `json:"updated"`
	Failed       int64      `json:"failed"`
	ErrorMessage *string    `json:"error_message,omitempty"`
}

func runResponse(run sqlc.SyncState) RunResponse {
	return RunResponse{
		ID:           run.ID,
		ConfigID:     run.ConfigID,
		Mode:         string(run.Mode),
		Status:       string(run.Status),
		StartedAt:    run.StartedAt,
		CompletedAt:  run.CompletedAt,
		CursorTs:     run.CursorTs,
		Processed:    run.Processed,
		Created:      run.Created,
		Updated:      run.Updated,
		Failed:       run.Failed,
		ErrorMessage: run.ErrorMessage,
	}
}

// LogResponse is one audit log entry.
type LogResponse struct {
	ID           uuid.UUID `json:"id"`
	ConfigID     uuid.UUID `json:"config_id"`
	Direction    string    `json:"direction"`
	EntityKind   string    `json:"entity_kind"`
	LocalID      *string   `json:"local_id,omitempty"`
	RemoteID     *string   `json:"remote_id,omitempty"`
	Operation    string    `json:"operation"`
	Success      bool      `json:"success"`
	ErrorMessage *string   `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func logResponse(entry sqlc.SyncLog) LogResponse {
	return LogResponse{
		ID:           entry.ID,
		ConfigID:     entry.ConfigID,
		Direction:    string(entry.Direction),
		EntityKind:   string(entry.EntityKind),
		LocalID:      entry.LocalID,
		RemoteID:     entry.RemoteID,
		Operation:    string(entry.Operation),
		Success:      entry.Success,
		ErrorMessage: entry.ErrorMessage,
		CreatedAt:    entry.CreatedAt,
	}
}

// BreakerStatesResponse maps configuration IDs to circuit breaker states.
type BreakerStatesResponse struct {
	Breakers map[uuid.UUID]string `json:"breakers"`
}
