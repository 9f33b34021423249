package mapping

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lodgeworks/channelsync/internal/db/sqlc"
)

// dbStore is the Postgres-backed mapping store.
type dbStore struct {
	queries *sqlc.Queries
}

// NewDBStore creates a mapping store backed by the given pool.
func NewDBStore(pool *pgxpool.Pool) (Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pgx pool is required")
	}
	return &dbStore{queries: sqlc.New(pool)}, nil
}

func (d *dbStore) ByLocalID(ctx context.Context, configID uuid.UUID, kind sqlc.EntityKind, localID string) (sqlc.EntityMapping, error) {
	m, err := d.queries.GetEntityMappingByLocalID(ctx, sqlc.GetEntityMappingByLocalIDParams{
		ConfigID:   configID,
		EntityKind: kind,
		LocalID:    localID,
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return sqlc.EntityMapping{}, ErrNotFound
	}
	if err != nil {
		return sqlc.EntityMapping{}, fmt.Errorf("failed to look up %s mapping by local id: %w", kind, err)
	}
	return m, nil
}

func (d *dbStore) ByRemoteID(ctx context.Context, configID uuid.UUID, kind sqlc.EntityKind, remoteID string) (sqlc.EntityMapping, error) {
	m, err := d.queries.GetEntityMappingByRemoteID(ctx, sqlc.GetEntityMappingByRemoteIDParams{
		ConfigID:   configID,
		EntityKind: kind,
		RemoteID:   remoteID,
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return sqlc.EntityMapping{}, ErrNotFound
	}
	if err != nil {
		return sqlc.EntityMapping{}, fmt.Errorf("failed to look up %s mapping by remote id: %w", kind, err)
	}
	return m, nil
}

func (d *dbStore) Record(ctx context.Context, configID uuid.UUID, kind sqlc.EntityKind, localID, remoteID string) (sqlc.EntityMapping, error) {
	m, err := d.queries.UpsertEntityMapping(ctx, sqlc.UpsertEntityMappingParams{
		ConfigID:   configID,
		EntityKind: kind,
		LocalID:    localID,
		RemoteID:   remoteID,
	})
	if errors.Is(err, pgx.ErrNoRows) {
		// The conditional upsert matches no row when the local id is
		// already correlated with a different remote id.
		return sqlc.EntityMapping{}, fmt.Errorf("%s mapping %s<->%s: %w", kind, localID, remoteID, ErrConflict)
	}
	if err != nil {
		// The unique index on (config_id, entity_kind, remote_id) rejects
		// a second local record claiming the same remote one.
		return sqlc.EntityMapping{}, fmt.Errorf("failed to record %s mapping %s<->%s: %w", kind, localID, remoteID, err)
	}
	return m, nil
}

func (d *dbStore) Touch(ctx context.Context, configID uuid.UUID, kind sqlc.EntityKind, localID string) error {
	if err := d.queries.TouchEntityMapping(ctx, sqlc.TouchEntityMappingParams{
		ConfigID:   configID,
		EntityKind: kind,
		LocalID:    localID,
	}); err != nil {
		return fmt.Errorf("failed to touch %s mapping for %s: %w", kind, localID, err)
	}
	return nil
}
