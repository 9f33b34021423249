package coordinator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lodgeworks/channelsync/internal/db/pgtypes"
	"github.com/lodgeworks/channelsync/internal/db/sqlc"
	"github.com/lodgeworks/channelsync/internal/queue"
	"github.com/lodgeworks/channelsync/internal/remote"
)

type fakeLister struct {
	configs []sqlc.SyncConfiguration
}

func (f *fakeLister) ListEnabledSyncConfigurations(_ context.Context) ([]sqlc.SyncConfiguration, error) {
	return f.configs, nil
}

type capturingPublisher struct {
	mu       sync.Mutex
	messages []queue.Message
}

func (p *capturingPublisher) Publish(_ context.Context, msg queue.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
	return nil
}

func (p *capturingPublisher) snapshot() []queue.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]queue.Message(nil), p.messages...)
}

func pullingConfig(interval time.Duration, lastSync *time.Time) sqlc.SyncConfiguration {
	return sqlc.SyncConfiguration{
		ID:                 uuid.New(),
		HotelCode:          "HTL001",
		AccountCode:        "ACC001",
		Enabled:            true,
		PullReservations:   true,
		PullGuests:         true,
		SyncInterval:       pgtypes.DurationToInterval(interval),
		LastSuccessfulSync: lastSync,
	}
}

func TestDue(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	recent := now.Add(-5 * time.Minute)
	stale := now.Add(-time.Hour)

	tests := []struct {
		name string
		cfg  sqlc.SyncConfiguration
		want bool
	}{
		{
			name: "never synced is due immediately",
			cfg:  pullingConfig(30*time.Minute, nil),
			want: true,
		},
		{
			name: "interval elapsed",
			cfg:  pullingConfig(30*time.Minute, &stale),
			want: true,
		},
		{
			name: "interval not elapsed",
			cfg:  pullingConfig(30*time.Minute, &recent),
			want: false,
		},
		{
			name: "zero interval falls back to default",
			cfg:  pullingConfig(0, &recent),
			want: false,
		},
		{
			name: "zero interval with stale sync",
			cfg:  pullingConfig(0, &stale),
			want: true,
		},
		{
			name: "disabled is never due",
			cfg: func() sqlc.SyncConfiguration {
				c := pullingConfig(30*time.Minute, nil)
				c.Enabled = false
				return c
			}(),
			want: false,
		},
		{
			name: "pull-nothing is never due",
			cfg: func() sqlc.SyncConfiguration {
				c := pullingConfig(30*time.Minute, nil)
				c.PullReservations = false
				c.PullGuests = false
				return c
			}(),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, due(tt.cfg, now))
		})
	}
}

func TestEnqueueDueSyncs(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	recent := now.Add(-time.Minute)

	dueCfg := pullingConfig(30*time.Minute, nil)
	freshCfg := pullingConfig(30*time.Minute, &recent)

	lister := &fakeLister{configs: []sqlc.SyncConfiguration{dueCfg, freshCfg}}
	publisher := &capturingPublisher{}

	c := New(lister, publisher).(*defaultCoordinator)
	c.now = func() time.Time { return now }

	c.enqueueDueSyncs(t.Context())

	messages := publisher.snapshot()
	require.Len(t, messages, 1)
	assert.Equal(t, queue.KindSyncTrigger, messages[0].Kind)
	assert.Equal(t, dueCfg.ID, messages[0].ConfigID)

	var trigger queue.SyncTrigger
	require.NoError(t, messages[0].DecodePayload(&trigger))
	assert.Equal(t, sqlc.SyncModeIncremental, trigger.Mode)
}

func TestCoordinatorLifecycle(t *testing.T) {
	t.Parallel()

	lister := &fakeLister{configs: []sqlc.SyncConfiguration{pullingConfig(30*time.Minute, nil)}}
	publisher := &capturingPublisher{}

	c := New(lister, publisher, WithPollingInterval(10*time.Millisecond))

	started := make(chan error, 1)
	go func() { started <- c.Start(t.Context()) }()

	// The initial pass enqueues without waiting for a tick.
	require.Eventually(t, func() bool {
		return len(publisher.snapshot()) >= 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, c.Stop())
	require.NoError(t, <-started)
}

type fakeRunner struct {
	mode  sqlc.SyncMode
	state sqlc.SyncState
	err   error
}

func (f *fakeRunner) Run(_ context.Context, configID uuid.UUID, mode sqlc.SyncMode) (sqlc.SyncState, error) {
	f.mode = mode
	if f.err != nil {
		return sqlc.SyncState{}, f.err
	}
	state := f.state
	state.ConfigID = configID
	return state, nil
}

func triggerMessage(t *testing.T, configID uuid.UUID, mode sqlc.SyncMode) queue.Message {
	t.Helper()
	msg, err := queue.NewMessage(queue.KindSyncTrigger, configID, queue.SyncTrigger{Mode: mode})
	require.NoError(t, err)
	return msg
}

func TestTriggerHandlerRunsRequestedMode(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{state: sqlc.SyncState{Status: sqlc.SyncRunStatusCompleted}}
	handler := NewTriggerHandler(runner, nil, nil)

	registry := queue.NewRegistry()
	handler.Register(registry)

	err := registry.Handle(t.Context(), triggerMessage(t, uuid.New(), sqlc.SyncModeFull))
	require.NoError(t, err)
	assert.Equal(t, sqlc.SyncModeFull, runner.mode)
}

func TestTriggerHandlerDefaultsToIncremental(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	handler := NewTriggerHandler(runner, nil, nil)

	err := handler.handle(t.Context(), triggerMessage(t, uuid.New(), ""))
	require.NoError(t, err)
	assert.Equal(t, sqlc.SyncModeIncremental, runner.mode)
}

func TestTriggerHandlerErrorDisposition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		permanent bool
	}{
		{
			name:      "server failure retries",
			err:       &remote.ServerError{StatusCode: 503, Message: "overloaded"},
			permanent: false,
		},
		{
			name:      "open breaker retries",
			err:       &remote.CircuitOpenError{},
			permanent: false,
		},
		{
			name:      "auth failure dead-letters",
			err:       &remote.AuthenticationError{StatusCode: 401, Message: "bad key"},
			permanent: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			handler := NewTriggerHandler(&fakeRunner{err: tt.err}, nil, nil)
			err := handler.handle(t.Context(), triggerMessage(t, uuid.New(), sqlc.SyncModeIncremental))
			require.Error(t, err)

			var perm *queue.PermanentError
			assert.Equal(t, tt.permanent, errors.As(err, &perm))
		})
	}
}
