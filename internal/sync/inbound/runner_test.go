package inbound

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lodgeworks/channelsync/internal/db/sqlc"
	"github.com/lodgeworks/channelsync/internal/remote"
	"github.com/lodgeworks/channelsync/internal/sync/audit"
	"github.com/lodgeworks/channelsync/internal/sync/mapping"
	"github.com/lodgeworks/channelsync/internal/sync/state"
)

type fakeConfigs struct {
	configs       map[uuid.UUID]sqlc.SyncConfiguration
	lastSuccess   *time.Time
	lastError     *string
	successCalled bool
	errorCalled   bool
}

func (f *fakeConfigs) GetSyncConfiguration(_ context.Context, id uuid.UUID) (sqlc.SyncConfiguration, error) {
	cfg, ok := f.configs[id]
	if !ok {
		return sqlc.SyncConfiguration{}, pgx.ErrNoRows
	}
	return cfg, nil
}

func (f *fakeConfigs) SetLastSuccessfulSync(_ context.Context, arg sqlc.SetLastSuccessfulSyncParams) error {
	f.successCalled = true
	f.lastSuccess = arg.LastSuccessfulSync
	return nil
}

func (f *fakeConfigs) SetLastSyncError(_ context.Context, arg sqlc.SetLastSyncErrorParams) error {
	f.errorCalled = true
	f.lastError = arg.LastSyncError
	return nil
}

type fakeStore struct {
	reservations map[uuid.UUID]sqlc.Reservation
	guests       map[uuid.UUID]sqlc.Guest
	roomTypes    map[uuid.UUID]sqlc.RoomType

	guestsInserted       int
	guestsUpdated        int
	reservationsInserted int
	reservationsUpdated  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		reservations: make(map[uuid.UUID]sqlc.Reservation),
		guests:       make(map[uuid.UUID]sqlc.Guest),
		roomTypes:    make(map[uuid.UUID]sqlc.RoomType),
	}
}

func (f *fakeStore) GetReservation(_ context.Context, id uuid.UUID) (sqlc.Reservation, error) {
	r, ok := f.reservations[id]
	if !ok {
		return sqlc.Reservation{}, pgx.ErrNoRows
	}
	return r, nil
}

func (f *fakeStore) GetGuest(_ context.Context, id uuid.UUID) (sqlc.Guest, error) {
	g, ok := f.guests[id]
	if !ok {
		return sqlc.Guest{}, pgx.ErrNoRows
	}
	return g, nil
}

func (f *fakeStore) GetRoomType(_ context.Context, id uuid.UUID) (sqlc.RoomType, error) {
	rt, ok := f.roomTypes[id]
	if !ok {
		return sqlc.RoomType{}, pgx.ErrNoRows
	}
	return rt, nil
}

func (f *fakeStore) FindGuestByEmail(_ context.Context, arg sqlc.FindGuestByEmailParams) (sqlc.Guest, error) {
	for _, g := range f.guests {
		if g.HotelCode == arg.HotelCode && g.Email != nil && strings.EqualFold(*g.Email, arg.Email) {
			return g, nil
		}
	}
	return sqlc.Guest{}, pgx.ErrNoRows
}

func (f *fakeStore) FindRoomTypeByCode(_ context.Context, arg sqlc.FindRoomTypeByCodeParams) (sqlc.RoomType, error) {
	for _, rt := range f.roomTypes {
		if rt.HotelCode == arg.HotelCode && rt.Code == arg.Code {
			return rt, nil
		}
	}
	return sqlc.RoomType{}, pgx.ErrNoRows
}

func (f *fakeStore) InsertGuest(_ context.Context, arg sqlc.InsertGuestParams) (sqlc.Guest, error) {
	g := sqlc.Guest{
		ID:        uuid.New(),
		HotelCode: arg.HotelCode,
		FirstName: arg.FirstName,
		LastName:  arg.LastName,
		Email:     arg.Email,
		Phone:     arg.Phone,
		Source:    arg.Source,
		UpdatedAt: time.Now(),
	}
	f.guests[g.ID] = g
	f.guestsInserted++
	return g, nil
}

func (f *fakeStore) UpdateGuest(_ context.Context, arg sqlc.UpdateGuestParams) error {
	g, ok := f.guests[arg.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	g.FirstName = arg.FirstName
	g.LastName = arg.LastName
	g.Email = arg.Email
	g.Phone = arg.Phone
	f.guests[arg.ID] = g
	f.guestsUpdated++
	return nil
}

func (f *fakeStore) InsertReservation(_ context.Context, arg sqlc.InsertReservationParams) (sqlc.Reservation, error) {
	r := sqlc.Reservation{
		ID:          uuid.New(),
		HotelCode:   arg.HotelCode,
		GuestID:     arg.GuestID,
		RoomTypeID:  arg.RoomTypeID,
		CheckIn:     arg.CheckIn,
		CheckOut:    arg.CheckOut,
		Status:      arg.Status,
		TotalAmount: arg.TotalAmount,
		Source:      arg.Source,
		UpdatedAt:   time.Now(),
	}
	f.reservations[r.ID] = r
	f.reservationsInserted++
	return r, nil
}

func (f *fakeStore) UpdateReservation(_ context.Context, arg sqlc.UpdateReservationParams) error {
	r, ok := f.reservations[arg.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	r.GuestID = arg.GuestID
	r.RoomTypeID = arg.RoomTypeID
	r.CheckIn = arg.CheckIn
	r.CheckOut = arg.CheckOut
	r.Status = arg.Status
	r.TotalAmount = arg.TotalAmount
	f.reservations[arg.ID] = r
	f.reservationsUpdated++
	return nil
}

type fakeMappings struct {
	byLocal  map[string]sqlc.EntityMapping
	byRemote map[string]sqlc.EntityMapping
}

func newFakeMappings() *fakeMappings {
	return &fakeMappings{
		byLocal:  make(map[string]sqlc.EntityMapping),
		byRemote: make(map[string]sqlc.EntityMapping),
	}
}

func mapKey(configID uuid.UUID, kind sqlc.EntityKind, id string) string {
	return configID.String() + "|" + string(kind) + "|" + id
}

func (f *fakeMappings) ByLocalID(_ context.Context, configID uuid.UUID, kind sqlc.EntityKind, localID string) (sqlc.EntityMapping, error) {
	m, ok := f.byLocal[mapKey(configID, kind, localID)]
	if !ok {
		return sqlc.EntityMapping{}, mapping.ErrNotFound
	}
	return m, nil
}

func (f *fakeMappings) ByRemoteID(_ context.Context, configID uuid.UUID, kind sqlc.EntityKind, remoteID string) (sqlc.EntityMapping, error) {
	m, ok := f.byRemote[mapKey(configID, kind, remoteID)]
	if !ok {
		return sqlc.EntityMapping{}, mapping.ErrNotFound
	}
	return m, nil
}

func (f *fakeMappings) Record(_ context.Context, configID uuid.UUID, kind sqlc.EntityKind, localID, remoteID string) (sqlc.EntityMapping, error) {
	m := sqlc.EntityMapping{
		ID:         uuid.New(),
		ConfigID:   configID,
		EntityKind: kind,
		LocalID:    localID,
		RemoteID:   remoteID,
	}
	f.byLocal[mapKey(configID, kind, localID)] = m
	f.byRemote[mapKey(configID, kind, remoteID)] = m
	return m, nil
}

func (f *fakeMappings) Touch(_ context.Context, _ uuid.UUID, _ sqlc.EntityKind, _ string) error {
	return nil
}

type fakeTracker struct {
	runs        map[uuid.UUID]sqlc.SyncState
	cursor      *time.Time
	completed   bool
	failed      bool
	finalCounts state.Counts
	finalCursor *time.Time
	failReason  string
	progress    []state.Counts
}

func newFakeTracker() *fakeTracker {
	return &fakeTracker{runs: make(map[uuid.UUID]sqlc.SyncState)}
}

func (f *fakeTracker) Begin(_ context.Context, configID uuid.UUID, mode sqlc.SyncMode) (sqlc.SyncState, error) {
	run := sqlc.SyncState{
		ID:        uuid.New(),
		ConfigID:  configID,
		Mode:      mode,
		Status:    sqlc.SyncRunStatusRunning,
		StartedAt: time.Now(),
	}
	f.runs[run.ID] = run
	return run, nil
}

func (f *fakeTracker) Progress(_ context.Context, _ uuid.UUID, counts state.Counts) error {
	f.progress = append(f.progress, counts)
	return nil
}

func (f *fakeTracker) Complete(_ context.Context, _ uuid.UUID, cursor *time.Time, counts state.Counts) error {
	f.completed = true
	f.finalCursor = cursor
	f.finalCounts = counts
	return nil
}

func (f *fakeTracker) Fail(_ context.Context, _ uuid.UUID, reason string, counts state.Counts) error {
	f.failed = true
	f.failReason = reason
	f.finalCounts = counts
	return nil
}

func (f *fakeTracker) LatestCursor(_ context.Context, _ uuid.UUID) (*time.Time, error) {
	return f.cursor, nil
}

func (f *fakeTracker) Latest(_ context.Context, _ uuid.UUID) (sqlc.SyncState, error) {
	return sqlc.SyncState{}, pgx.ErrNoRows
}

func (f *fakeTracker) List(_ context.Context, _ uuid.UUID, _ int32) ([]sqlc.SyncState, error) {
	return nil, nil
}

type fakeAudit struct {
	entries []audit.Entry
}

func (f *fakeAudit) Record(_ context.Context, entry audit.Entry) error {
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAudit) List(_ context.Context, _ uuid.UUID, _ int32) ([]sqlc.SyncLog, error) {
	return nil, nil
}

// fakeAPI serves scripted customer and booking pages.
type fakeAPI struct {
	customerPages []remote.CustomerPage
	bookingPages  []remote.BookingPage
	listBookErr   error

	customerOpts []remote.ListOptions
	bookingOpts  []remote.ListOptions
}

func (f *fakeAPI) TestConnection(_ context.Context) error { return nil }

func (f *fakeAPI) ListBookings(_ context.Context, opts remote.ListOptions) (remote.BookingPage, error) {
	if f.listBookErr != nil {
		return remote.BookingPage{}, f.listBookErr
	}
	f.bookingOpts = append(f.bookingOpts, opts)
	idx := opts.Page - 1
	if idx < 0 || idx >= len(f.bookingPages) {
		return remote.BookingPage{}, nil
	}
	return f.bookingPages[idx], nil
}

func (f *fakeAPI) CreateBooking(_ context.Context, b remote.Booking) (remote.Booking, error) {
	return b, nil
}

func (f *fakeAPI) UpdateBooking(_ context.Context, _ string, b remote.Booking) (remote.Booking, error) {
	return b, nil
}

func (f *fakeAPI) CancelBooking(_ context.Context, _ string) error { return nil }

func (f *fakeAPI) ListCustomers(_ context.Context, opts remote.ListOptions) (remote.CustomerPage, error) {
	f.customerOpts = append(f.customerOpts, opts)
	idx := opts.Page - 1
	if idx < 0 || idx >= len(f.customerPages) {
		return remote.CustomerPage{}, nil
	}
	return f.customerPages[idx], nil
}

func (f *fakeAPI) CreateCustomer(_ context.Context, c remote.Customer) (remote.Customer, error) {
	return c, nil
}

func (f *fakeAPI) UpdateCustomer(_ context.Context, _ string, c remote.Customer) (remote.Customer, error) {
	return c, nil
}

func (f *fakeAPI) CreateRoomType(_ context.Context, rt remote.RoomTypePayload) (remote.RoomTypePayload, error) {
	return rt, nil
}

func (f *fakeAPI) UpdateRoomType(_ context.Context, _ string, rt remote.RoomTypePayload) (remote.RoomTypePayload, error) {
	return rt, nil
}

func (f *fakeAPI) UpdateAvailability(_ context.Context, _ remote.AvailabilityUpdate) error {
	return nil
}

func (f *fakeAPI) UpdateRate(_ context.Context, _ remote.RateUpdate) error { return nil }

type fakeClients struct {
	api remote.API
}

func (f *fakeClients) ClientFor(_ sqlc.SyncConfiguration) (remote.API, error) {
	return f.api, nil
}

type fixture struct {
	runner   *Runner
	cfg      sqlc.SyncConfiguration
	configs  *fakeConfigs
	store    *fakeStore
	mappings *fakeMappings
	tracker  *fakeTracker
	auditLog *fakeAudit
	api      *fakeAPI
}

func newFixture() *fixture {
	cfg := sqlc.SyncConfiguration{
		ID:               uuid.New(),
		HotelCode:        "HTL001",
		AccountCode:      "ACC001",
		ApiKey:           "key",
		BaseUrl:          "https://cm.example.com",
		Enabled:          true,
		PullReservations: true,
		PullGuests:       true,
	}

	f := &fixture{
		cfg:      cfg,
		configs:  &fakeConfigs{configs: map[uuid.UUID]sqlc.SyncConfiguration{cfg.ID: cfg}},
		store:    newFakeStore(),
		mappings: newFakeMappings(),
		tracker:  newFakeTracker(),
		auditLog: &fakeAudit{},
		api:      &fakeAPI{},
	}
	f.runner = NewRunner(f.configs, f.store, f.mappings, f.tracker, f.auditLog, &fakeClients{api: f.api}, 100, nil)
	return f
}

// addMappedRoomType registers a local room type with a remote mapping.
func (f *fixture) addMappedRoomType(remoteID string) sqlc.RoomType {
	rt := sqlc.RoomType{ID: uuid.New(), HotelCode: "HTL001", Code: "STD", Name: "Standard"}
	f.store.roomTypes[rt.ID] = rt
	_, _ = f.mappings.Record(context.Background(), f.cfg.ID, sqlc.EntityKindRoomType, rt.ID.String(), remoteID)
	return rt
}

func TestRunFullPullCreatesRecordsAndMappings(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.addMappedRoomType("rt-1")

	modified := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	f.api.customerPages = []remote.CustomerPage{{
		Items: []remote.Customer{
			{ID: "cust-1", FirstName: "Ada", LastName: "Byron", Email: "ada@example.com", ModifiedAt: modified},
		},
	}}
	f.api.bookingPages = []remote.BookingPage{{
		Items: []remote.Booking{{
			ID:          "book-1",
			CustomerID:  "cust-1",
			RoomTypeID:  "rt-1",
			CheckIn:     "2026-09-01",
			CheckOut:    "2026-09-03",
			Status:      "confirmed",
			TotalAmount: 300,
			ModifiedAt:  modified.Add(time.Hour),
		}},
	}}

	final, err := f.runner.Run(t.Context(), f.cfg.ID, sqlc.SyncModeFull)
	require.NoError(t, err)

	assert.Equal(t, sqlc.SyncRunStatusCompleted, final.Status)
	assert.Equal(t, int64(2), final.Processed)
	assert.Equal(t, int64(2), final.Created)
	assert.Equal(t, int64(0), final.Failed)

	// Guest landed with channel provenance and a mapping.
	require.Equal(t, 1, f.store.guestsInserted)
	m, err := f.mappings.ByRemoteID(t.Context(), f.cfg.ID, sqlc.EntityKindGuest, "cust-1")
	require.NoError(t, err)
	guest := f.store.guests[uuid.MustParse(m.LocalID)]
	assert.Equal(t, sqlc.RecordSourceChannel, guest.Source)

	// Reservation landed linked to the pulled guest and mapped room type.
	require.Equal(t, 1, f.store.reservationsInserted)
	rm, err := f.mappings.ByRemoteID(t.Context(), f.cfg.ID, sqlc.EntityKindReservation, "book-1")
	require.NoError(t, err)
	res := f.store.reservations[uuid.MustParse(rm.LocalID)]
	assert.Equal(t, sqlc.RecordSourceChannel, res.Source)
	require.NotNil(t, res.GuestID)
	assert.Equal(t, m.LocalID, res.GuestID.String())

	// Cursor advanced to the newest record seen.
	require.NotNil(t, f.tracker.finalCursor)
	assert.True(t, f.tracker.finalCursor.Equal(modified.Add(time.Hour)))

	assert.True(t, f.configs.successCalled)
	assert.True(t, f.tracker.completed)
}

func TestRunIncrementalUsesStoredCursor(t *testing.T) {
	t.Parallel()

	f := newFixture()
	cursor := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	f.tracker.cursor = &cursor

	_, err := f.runner.Run(t.Context(), f.cfg.ID, sqlc.SyncModeIncremental)
	require.NoError(t, err)

	require.NotEmpty(t, f.api.customerOpts)
	assert.True(t, f.api.customerOpts[0].ModifiedSince.Equal(cursor), "incremental pull must filter by the stored cursor")
	require.NotEmpty(t, f.api.bookingOpts)
	assert.True(t, f.api.bookingOpts[0].ModifiedSince.Equal(cursor))

	// Nothing came back, so the cursor carries forward unchanged.
	require.NotNil(t, f.tracker.finalCursor)
	assert.True(t, f.tracker.finalCursor.Equal(cursor))
}

func TestRunIsolatesPerRecordFailures(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.addMappedRoomType("rt-1")
	f.cfg.PullGuests = false
	f.configs.configs[f.cfg.ID] = f.cfg

	items := make([]remote.Booking, 0, 11)
	for i := 0; i < 10; i++ {
		items = append(items, remote.Booking{
			ID:         uuid.NewString(),
			RoomTypeID: "rt-1",
			CheckIn:    "2026-09-01",
			CheckOut:   "2026-09-02",
			Status:     "confirmed",
		})
	}
	// One booking references a room type this hotel never published.
	items = append(items, remote.Booking{
		ID:         "book-bad",
		RoomTypeID: "rt-unknown",
		CheckIn:    "2026-09-01",
		CheckOut:   "2026-09-02",
		Status:     "confirmed",
	})
	f.api.bookingPages = []remote.BookingPage{{Items: items}}

	final, err := f.runner.Run(t.Context(), f.cfg.ID, sqlc.SyncModeFull)
	require.NoError(t, err, "one bad record must not abort the run")

	assert.Equal(t, sqlc.SyncRunStatusCompleted, final.Status)
	assert.Equal(t, int64(11), final.Processed)
	assert.Equal(t, int64(10), final.Created)
	assert.Equal(t, int64(1), final.Failed)

	// The failure is visible in the audit log.
	var failures int
	for _, entry := range f.auditLog.entries {
		if !entry.Success {
			failures++
			assert.Equal(t, "book-bad", entry.RemoteID)
		}
	}
	assert.Equal(t, 1, failures)
}

func TestCustomerMatchesExistingGuestByEmail(t *testing.T) {
	t.Parallel()

	f := newFixture()
	email := "ada@example.com"
	existing := sqlc.Guest{ID: uuid.New(), HotelCode: "HTL001", FirstName: "A.", LastName: "B.", Email: &email, Source: sqlc.RecordSourceDirect}
	f.store.guests[existing.ID] = existing

	f.api.customerPages = []remote.CustomerPage{{
		Items: []remote.Customer{{ID: "cust-9", FirstName: "Ada", LastName: "Byron", Email: "ADA@example.com"}},
	}}

	final, err := f.runner.Run(t.Context(), f.cfg.ID, sqlc.SyncModeFull)
	require.NoError(t, err)

	assert.Equal(t, int64(1), final.Updated)
	assert.Equal(t, int64(0), final.Created)
	assert.Equal(t, 0, f.store.guestsInserted, "email match must correlate, not duplicate")
	assert.Equal(t, 1, f.store.guestsUpdated)

	m, err := f.mappings.ByRemoteID(t.Context(), f.cfg.ID, sqlc.EntityKindGuest, "cust-9")
	require.NoError(t, err)
	assert.Equal(t, existing.ID.String(), m.LocalID)
}

func TestBookingReferenceRoundTripAvoidsDuplicate(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.cfg.PullGuests = false
	f.configs.configs[f.cfg.ID] = f.cfg

	local := sqlc.Reservation{
		ID:        uuid.New(),
		HotelCode: "HTL001",
		CheckIn:   time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		CheckOut:  time.Date(2026, 9, 3, 0, 0, 0, 0, time.UTC),
		Status:    "confirmed",
		Source:    sqlc.RecordSourceDirect,
	}
	f.store.reservations[local.ID] = local

	f.api.bookingPages = []remote.BookingPage{{
		Items: []remote.Booking{{
			ID:        "book-77",
			Reference: local.ID.String(),
			CheckIn:   "2026-09-01",
			CheckOut:  "2026-09-03",
			Status:    "modified",
		}},
	}}

	final, err := f.runner.Run(t.Context(), f.cfg.ID, sqlc.SyncModeFull)
	require.NoError(t, err)

	assert.Equal(t, int64(1), final.Updated)
	assert.Equal(t, 0, f.store.reservationsInserted, "reference correlation must prevent a duplicate row")
	assert.Equal(t, 1, f.store.reservationsUpdated)
	assert.Equal(t, "modified", f.store.reservations[local.ID].Status)

	m, err := f.mappings.ByRemoteID(t.Context(), f.cfg.ID, sqlc.EntityKindReservation, "book-77")
	require.NoError(t, err)
	assert.Equal(t, local.ID.String(), m.LocalID)
}

func TestRunAbortsOnListFailure(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.cfg.PullGuests = false
	f.configs.configs[f.cfg.ID] = f.cfg
	f.api.listBookErr = &remote.AuthenticationError{StatusCode: 401, Message: "bad key"}

	_, err := f.runner.Run(t.Context(), f.cfg.ID, sqlc.SyncModeFull)
	require.Error(t, err)

	assert.True(t, f.tracker.failed)
	assert.Contains(t, f.tracker.failReason, "bad key")
	assert.True(t, f.configs.errorCalled)
	require.NotNil(t, f.configs.lastError)
	assert.False(t, f.configs.successCalled)
}

func TestRunRejectsDisabledConfiguration(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.cfg.Enabled = false
	f.configs.configs[f.cfg.ID] = f.cfg

	_, err := f.runner.Run(t.Context(), f.cfg.ID, sqlc.SyncModeFull)
	require.Error(t, err)
	assert.Empty(t, f.tracker.runs, "no run row is opened for a disabled configuration")
}

func TestRunPaginatesUntilExhausted(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.cfg.PullReservations = false
	f.configs.configs[f.cfg.ID] = f.cfg

	f.api.customerPages = []remote.CustomerPage{
		{Items: []remote.Customer{{ID: "c-1", FirstName: "A", LastName: "One"}}, HasMore: true},
		{Items: []remote.Customer{{ID: "c-2", FirstName: "B", LastName: "Two"}}, HasMore: true},
		{Items: []remote.Customer{{ID: "c-3", FirstName: "C", LastName: "Three"}}},
	}

	final, err := f.runner.Run(t.Context(), f.cfg.ID, sqlc.SyncModeFull)
	require.NoError(t, err)

	assert.Equal(t, int64(3), final.Processed)
	assert.Len(t, f.api.customerOpts, 3)
	assert.Equal(t, 1, f.api.customerOpts[0].Page)
	assert.Equal(t, 3, f.api.customerOpts[2].Page)
}

// embedded customer records are materialized before the booking.
func TestBookingWithEmbeddedCustomer(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.cfg.PullGuests = false
	f.configs.configs[f.cfg.ID] = f.cfg
	f.addMappedRoomType("rt-1")

	f.api.bookingPages = []remote.BookingPage{{
		Items: []remote.Booking{{
			ID:         "book-5",
			CustomerID: "cust-5",
			Customer:   &remote.Customer{FirstName: "Grace", LastName: "Hopper", Email: "grace@example.com"},
			RoomTypeID: "rt-1",
			CheckIn:    "2026-10-01",
			CheckOut:   "2026-10-04",
			Status:     "confirmed",
		}},
	}}

	final, err := f.runner.Run(t.Context(), f.cfg.ID, sqlc.SyncModeFull)
	require.NoError(t, err)
	assert.Equal(t, int64(0), final.Failed)

	assert.Equal(t, 1, f.store.guestsInserted)
	assert.Equal(t, 1, f.store.reservationsInserted)

	m, err := f.mappings.ByRemoteID(t.Context(), f.cfg.ID, sqlc.EntityKindGuest, "cust-5")
	require.NoError(t, err)
	res := f.store.reservations[uuid.MustParse(mustLocal(t, f, "book-5"))]
	require.NotNil(t, res.GuestID)
	assert.Equal(t, m.LocalID, res.GuestID.String())
}

func TestCustomerFailureWritesAuditEntry(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.cfg.PullReservations = false
	f.configs.configs[f.cfg.ID] = f.cfg

	// A mapping whose local id cannot be parsed makes the apply fail.
	f.mappings.byRemote[mapKey(f.cfg.ID, sqlc.EntityKindGuest, "cust-bad")] = sqlc.EntityMapping{
		ConfigID:   f.cfg.ID,
		EntityKind: sqlc.EntityKindGuest,
		LocalID:    "not-a-uuid",
		RemoteID:   "cust-bad",
	}
	f.api.customerPages = []remote.CustomerPage{{
		Items: []remote.Customer{{ID: "cust-bad", FirstName: "Ada", LastName: "Byron"}},
	}}

	final, err := f.runner.Run(t.Context(), f.cfg.ID, sqlc.SyncModeFull)
	require.NoError(t, err, "a failing record must not abort the run")

	assert.Equal(t, int64(1), final.Processed)
	assert.Equal(t, int64(1), final.Failed)

	// Every attempted record leaves an audit entry, failures included.
	require.Len(t, f.auditLog.entries, 1)
	entry := f.auditLog.entries[0]
	assert.False(t, entry.Success)
	assert.Equal(t, sqlc.SyncDirectionInbound, entry.Direction)
	assert.Equal(t, sqlc.EntityKindGuest, entry.EntityKind)
	assert.Equal(t, "cust-bad", entry.RemoteID)
	assert.NotEmpty(t, entry.Error)
}

func TestRunRecordsProgressPerPage(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.api.customerPages = []remote.CustomerPage{
		{Items: []remote.Customer{{ID: "c-1", FirstName: "A", LastName: "One"}}, HasMore: true},
		{Items: []remote.Customer{{ID: "c-2", FirstName: "B", LastName: "Two"}}},
	}
	f.api.bookingPages = []remote.BookingPage{{
		Items: []remote.Booking{{ID: "book-1", CheckIn: "2026-09-01", CheckOut: "2026-09-02", Status: "confirmed"}},
	}}

	final, err := f.runner.Run(t.Context(), f.cfg.ID, sqlc.SyncModeFull)
	require.NoError(t, err)
	assert.Equal(t, int64(3), final.Processed)

	// One progress snapshot per page, counters accumulating across pulls.
	require.Len(t, f.tracker.progress, 3)
	assert.Equal(t, int64(1), f.tracker.progress[0].Processed)
	assert.Equal(t, int64(2), f.tracker.progress[1].Processed)
	assert.Equal(t, int64(3), f.tracker.progress[2].Processed)
}

func TestBookingRoomTypeFallsBackToCode(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.cfg.PullGuests = false
	f.configs.configs[f.cfg.ID] = f.cfg

	// Local room type exists but was never mapped to the channel.
	rt := sqlc.RoomType{ID: uuid.New(), HotelCode: "HTL001", Code: "DLX", Name: "Deluxe"}
	f.store.roomTypes[rt.ID] = rt

	f.api.bookingPages = []remote.BookingPage{{
		Items: []remote.Booking{{
			ID:         "book-9",
			RoomTypeID: "DLX",
			CheckIn:    "2026-09-01",
			CheckOut:   "2026-09-02",
			Status:     "confirmed",
		}},
	}}

	final, err := f.runner.Run(t.Context(), f.cfg.ID, sqlc.SyncModeFull)
	require.NoError(t, err)
	assert.Equal(t, int64(1), final.Created)
	assert.Equal(t, int64(0), final.Failed)

	res := f.store.reservations[uuid.MustParse(mustLocal(t, f, "book-9"))]
	require.NotNil(t, res.RoomTypeID)
	assert.Equal(t, rt.ID, *res.RoomTypeID)

	// The code match is recorded so the next booking hits the mapping.
	m, err := f.mappings.ByRemoteID(t.Context(), f.cfg.ID, sqlc.EntityKindRoomType, "DLX")
	require.NoError(t, err)
	assert.Equal(t, rt.ID.String(), m.LocalID)
}

func mustLocal(t *testing.T, f *fixture, remoteID string) string {
	t.Helper()
	m, err := f.mappings.ByRemoteID(t.Context(), f.cfg.ID, sqlc.EntityKindReservation, remoteID)
	require.NoError(t, err)
	return m.LocalID
}
