// Package state tracks sync runs: one row per run with its mode, status,
// progress counts and the incremental cursor the next run resumes from.
package state

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/lodgeworks/channelsync/internal/db/sqlc"
)

// Counts are the progress counters of one sync run.
type Counts struct {
	Processed int64
	Created   int64
	Updated   int64
	Failed    int64
}

// Tracker records the lifecycle of sync runs.
//
//go:generate mockgen -destination=mocks/mock_tracker.go -package=mocks github.com/lodgeworks/channelsync/internal/sync/state Tracker
type Tracker interface {
	// Begin opens a new running sync run.
	Begin(ctx context.Context, configID uuid.UUID, mode sqlc.SyncMode) (sqlc.SyncState, error)

	// Progress updates the counters of a running run.
	Progress(ctx context.Context, runID uuid.UUID, counts Counts) error

	// Complete finalizes a run as completed, storing the cursor
	// incremental runs resume from. A nil cursor keeps no cursor.
	Complete(ctx context.Context, runID uuid.UUID, cursor *time.Time, counts Counts) error

	// Fail finalizes a run as failed with the abort reason.
	Fail(ctx context.Context, runID uuid.UUID, reason string, counts Counts) error

	// LatestCursor returns the cursor of the newest completed run, or nil
	// when no completed run has stored one.
	LatestCursor(ctx context.Context, configID uuid.UUID) (*time.Time, error)

	// Latest returns the most recent run for a configuration.
	Latest(ctx context.Context, configID uuid.UUID) (sqlc.SyncState, error)

	// List returns the run history of a configuration, newest first.
	List(ctx context.Context, configID uuid.UUID, limit int32) ([]sqlc.SyncState, error)
}
