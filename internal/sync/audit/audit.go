// Package audit appends one log row per attempted sync operation, both
// directions, success or failure. The log is the operator's answer to
// "what did the sync do to this record and when".
package audit

import (
	"context"

	"github.com/google/uuid"

	"github.com/lodgeworks/channelsync/internal/db/sqlc"
)

// Entry is one audit record.
type Entry struct {
	ConfigID   uuid.UUID
	Direction  sqlc.SyncDirection
	EntityKind sqlc.EntityKind
	Operation  sqlc.SyncOperation

	// LocalID and RemoteID identify the record on each side; either may
	// be empty when the operation failed before correlation.
	LocalID  string
	RemoteID string

	Success bool

	// Error is the failure reason; empty on success.
	Error string
}

// Log records sync operations.
//
//go:generate mockgen -destination=mocks/mock_log.go -package=mocks github.com/lodgeworks/channelsync/internal/sync/audit Log
type Log interface {
	// Record appends one entry. Failures to write the audit log must not
	// abort the operation being logged; callers log and continue.
	Record(ctx context.Context, entry Entry) error

	// List returns recent entries for a configuration, newest first.
	List(ctx context.Context, configID uuid.UUID, limit int32) ([]sqlc.SyncLog, error)
}
