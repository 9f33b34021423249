package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lodgeworks/channelsync/internal/db/sqlc"
)

// dbLog is the Postgres-backed audit log.
type dbLog struct {
	queries *sqlc.Queries
}

// NewDBLog creates an audit log backed by the given pool.
func NewDBLog(pool *pgxpool.Pool) (Log, error) {
	if pool == nil {
		return nil, fmt.Errorf("pgx pool is required")
	}
	return &dbLog{queries: sqlc.New(pool)}, nil
}

func (d *dbLog) Record(ctx context.Context, entry Entry) error {
	params := sqlc.InsertSyncLogParams{
		ConfigID:   entry.ConfigID,
		Direction:  entry.Direction,
		EntityKind: entry.EntityKind,
		Operation:  entry.Operation,
		Success:    entry.Success,
	}
	if entry.LocalID != "" {
		params.LocalID = &entry.LocalID
	}
	if entry.RemoteID != "" {
		params.RemoteID = &entry.RemoteID
	}
	if entry.Error != "" {
		params.ErrorMessage = &entry.Error
	}

	if err := d.queries.InsertSyncLog(ctx, params); err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

func (d *dbLog) List(ctx context.Context, configID uuid.UUID, limit int32) ([]sqlc.SyncLog, error) {
	logs, err := d.queries.ListSyncLogs(ctx, sqlc.ListSyncLogsParams{
		ConfigID: configID,
		Limit:    limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	return logs, nil
}
