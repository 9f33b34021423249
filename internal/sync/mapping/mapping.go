// Package mapping maintains the identity correspondence between local
// PMS records and their channel-manager counterparts. Each sync
// configuration keeps its own bijection per entity kind: one local ID
// maps to exactly one remote ID and vice versa.
package mapping

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/lodgeworks/channelsync/internal/db/sqlc"
)

// ErrNotFound is returned when no mapping exists for the given key.
var ErrNotFound = errors.New("entity mapping not found")

// ErrConflict is returned when a recorded pair contradicts an existing
// correlation: either side of the pair is already mapped to something else.
var ErrConflict = errors.New("entity mapping conflicts with an existing correlation")

// Store provides lookup and recording of entity identity mappings.
//
//go:generate mockgen -destination=mocks/mock_store.go -package=mocks github.com/lodgeworks/channelsync/internal/sync/mapping Store
type Store interface {
	// ByLocalID resolves the remote counterpart of a local record.
	// Returns ErrNotFound when the record was never correlated.
	ByLocalID(ctx context.Context, configID uuid.UUID, kind sqlc.EntityKind, localID string) (sqlc.EntityMapping, error)

	// ByRemoteID resolves the local counterpart of a remote record.
	// Returns ErrNotFound when the record was never correlated.
	ByRemoteID(ctx context.Context, configID uuid.UUID, kind sqlc.EntityKind, remoteID string) (sqlc.EntityMapping, error)

	// Record correlates a local and a remote identifier, creating the
	// mapping or refreshing it when the pair was already known. Recording
	// a pair that re-points either side returns ErrConflict.
	Record(ctx context.Context, configID uuid.UUID, kind sqlc.EntityKind, localID, remoteID string) (sqlc.EntityMapping, error)

	// Touch refreshes last_synced_at on an existing mapping.
	Touch(ctx context.Context, configID uuid.UUID, kind sqlc.EntityKind, localID string) error
}
