package mapping

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lodgeworks/channelsync/internal/db/sqlc"
)

// rowDB serves a fixed row for every query.
type rowDB struct {
	row pgx.Row
}

func (f rowDB) Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (f rowDB) Query(context.Context, string, ...interface{}) (pgx.Rows, error) {
	return nil, nil
}

func (f rowDB) QueryRow(context.Context, string, ...interface{}) pgx.Row {
	return f.row
}

type errRow struct {
	err error
}

func (r errRow) Scan(...any) error {
	return r.err
}

func TestRecordRejectsConflictingRePoint(t *testing.T) {
	t.Parallel()

	// The conditional upsert yields no row when the local id is already
	// correlated with a different remote id; that must surface as a
	// conflict, never as a silent overwrite.
	store := &dbStore{queries: sqlc.New(rowDB{row: errRow{err: pgx.ErrNoRows}})}

	_, err := store.Record(t.Context(), uuid.New(), sqlc.EntityKindGuest, uuid.NewString(), "cust-2")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConflict)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestLookupsTranslateMissingRows(t *testing.T) {
	t.Parallel()

	store := &dbStore{queries: sqlc.New(rowDB{row: errRow{err: pgx.ErrNoRows}})}

	_, err := store.ByLocalID(t.Context(), uuid.New(), sqlc.EntityKindReservation, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.ByRemoteID(t.Context(), uuid.New(), sqlc.EntityKindReservation, "book-1")
	assert.ErrorIs(t, err, ErrNotFound)
}
