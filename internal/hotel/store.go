// Package hotel exposes the slice of the property-management database
// the sync engine reads and writes, plus the notifier that PMS code
// calls when local records change.
package hotel

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lodgeworks/channelsync/internal/db/sqlc"
)

// Store is what sync handlers need from the PMS database: snapshot reads
// for outbound pushes, natural-key lookups and upserts for inbound
// writes. *sqlc.Queries satisfies it.
//
//go:generate mockgen -destination=mocks/mock_store.go -package=mocks -source=store.go Store
type Store interface {
	GetReservation(ctx context.Context, id uuid.UUID) (sqlc.Reservation, error)
	GetGuest(ctx context.Context, id uuid.UUID) (sqlc.Guest, error)
	GetRoomType(ctx context.Context, id uuid.UUID) (sqlc.RoomType, error)

	FindGuestByEmail(ctx context.Context, arg sqlc.FindGuestByEmailParams) (sqlc.Guest, error)
	FindRoomTypeByCode(ctx context.Context, arg sqlc.FindRoomTypeByCodeParams) (sqlc.RoomType, error)

	InsertGuest(ctx context.Context, arg sqlc.InsertGuestParams) (sqlc.Guest, error)
	UpdateGuest(ctx context.Context, arg sqlc.UpdateGuestParams) error
	InsertReservation(ctx context.Context, arg sqlc.InsertReservationParams) (sqlc.Reservation, error)
	UpdateReservation(ctx context.Context, arg sqlc.UpdateReservationParams) error
}

var _ Store = (*sqlc.Queries)(nil)

// IsNotFound reports whether err means the row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
