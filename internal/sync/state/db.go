package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lodgeworks/channelsync/internal/db/sqlc"
)

// dbTracker is the Postgres-backed run tracker.
type dbTracker struct {
	queries *sqlc.Queries
}

// NewDBTracker creates a tracker backed by the given pool.
func NewDBTracker(pool *pgxpool.Pool) (Tracker, error) {
	if pool == nil {
		return nil, fmt.Errorf("pgx pool is required")
	}
	return &dbTracker{queries: sqlc.New(pool)}, nil
}

func (d *dbTracker) Begin(ctx context.Context, configID uuid.UUID, mode sqlc.SyncMode) (sqlc.SyncState, error) {
	run, err := d.queries.InsertSyncState(ctx, sqlc.InsertSyncStateParams{
		ConfigID: configID,
		Mode:     mode,
	})
	if err != nil {
		return sqlc.SyncState{}, fmt.Errorf("failed to open sync run: %w", err)
	}
	return run, nil
}

func (d *dbTracker) Progress(ctx context.Context, runID uuid.UUID, counts Counts) error {
	if err := d.queries.UpdateSyncStateProgress(ctx, sqlc.UpdateSyncStateProgressParams{
		ID:        runID,
		Processed: counts.Processed,
		Created:   counts.Created,
		Updated:   counts.Updated,
		Failed:    counts.Failed,
	}); err != nil {
		return fmt.Errorf("failed to update sync run progress: %w", err)
	}
	return nil
}

func (d *dbTracker) Complete(ctx context.Context, runID uuid.UUID, cursor *time.Time, counts Counts) error {
	if err := d.queries.CompleteSyncState(ctx, sqlc.CompleteSyncStateParams{
		ID:        runID,
		CursorTs:  cursor,
		Processed: counts.Processed,
		Created:   counts.Created,
		Updated:   counts.Updated,
		Failed:    counts.Failed,
	}); err != nil {
		return fmt.Errorf("failed to complete sync run: %w", err)
	}
	return nil
}

func (d *dbTracker) Fail(ctx context.Context, runID uuid.UUID, reason string, counts Counts) error {
	if err := d.queries.FailSyncState(ctx, sqlc.FailSyncStateParams{
		ID:           runID,
		ErrorMessage: &reason,
		Processed:    counts.Processed,
		Created:      counts.Created,
		Updated:      counts.Updated,
		Failed:       counts.Failed,
	}); err != nil {
		return fmt.Errorf("failed to mark sync run as failed: %w", err)
	}
	return nil
}

func (d *dbTracker) LatestCursor(ctx context.Context, configID uuid.UUID) (*time.Time, error) {
	cursor, err := d.queries.GetLatestCompletedCursor(ctx, configID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read latest sync cursor: %w", err)
	}
	return cursor, nil
}

func (d *dbTracker) Latest(ctx context.Context, configID uuid.UUID) (sqlc.SyncState, error) {
	run, err := d.queries.GetLatestSyncState(ctx, configID)
	if err != nil {
		return sqlc.SyncState{}, fmt.Errorf("failed to read latest sync run: %w", err)
	}
	return run, nil
}

func (d *dbTracker) List(ctx context.Context, configID uuid.UUID, limit int32) ([]sqlc.SyncState, error) {
	runs, err := d.queries.ListSyncStates(ctx, sqlc.ListSyncStatesParams{
		ConfigID: configID,
		Limit:    limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list sync runs: %w", err)
	}
	return runs, nil
}
