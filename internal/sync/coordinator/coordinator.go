package coordinator

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/lodgeworks/channelsync/internal/db/pgtypes"
	"github.com/lodgeworks/channelsync/internal/db/sqlc"
	"github.com/lodgeworks/channelsync/internal/queue"
)

const (
	// basePollingInterval is the base interval at which the coordinator checks for due configurations
	basePollingInterval = time.Minute
	// pollingJitter is the maximum random offset (±15 seconds) applied to the polling interval
	pollingJitter = 15 * time.Second
	// defaultSyncInterval applies when a configuration carries no interval of its own
	defaultSyncInterval = 15 * time.Minute
)

// ConfigLister lists the configurations eligible for scheduling.
type ConfigLister interface {
	ListEnabledSyncConfigurations(ctx context.Context) ([]sqlc.SyncConfiguration, error)
}

// Publisher enqueues trigger messages.
type Publisher interface {
	Publish(ctx context.Context, msg queue.Message) error
}

// Coordinator manages background sync scheduling for all configurations
type Coordinator interface {
	// Start begins the background scheduling loop.
	// Blocks until the context is cancelled.
	Start(ctx context.Context) error

	// Stop gracefully stops the coordinator
	Stop() error
}

// defaultCoordinator is the default implementation of Coordinator
type defaultCoordinator struct {
	configs   ConfigLister
	publisher Publisher
	logger    *slog.Logger

	// pollInterval overrides the jittered default when non-zero (tests)
	pollInterval time.Duration
	now          func() time.Time

	// Lifecycle management
	cancelFunc context.CancelFunc
	done       chan struct{}
}

// Option is a function that configures the coordinator
type Option func(*defaultCoordinator)

// WithPollingInterval fixes the polling interval instead of the jittered default
func WithPollingInterval(d time.Duration) Option {
	return func(c *defaultCoordinator) {
		c.pollInterval = d
	}
}

// WithLogger sets the coordinator's logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *defaultCoordinator) {
		c.logger = logger
	}
}

// New creates a new coordinator with injected dependencies
func New(configs ConfigLister, publisher Publisher, opts ...Option) Coordinator {
	c := &defaultCoordinator{
		configs:   configs,
		publisher: publisher,
		logger:    slog.Default(),
		now:       time.Now,
		done:      make(chan struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// calculatePollingInterval returns the base polling interval with a random jitter applied.
// The jitter prevents all instances from polling the database simultaneously.
func calculatePollingInterval() time.Duration {
	//nolint:gosec // G404: Non-cryptographic randomness is sufficient for polling jitter
	jitterOffset := time.Duration(rand.Int64N(int64(2*pollingJitter))) - pollingJitter
	return basePollingInterval + jitterOffset
}

// Start begins the background scheduling loop
func (c *defaultCoordinator) Start(ctx context.Context) error {
	c.logger.Info("starting sync coordinator")

	coordCtx, cancel := context.WithCancel(ctx)
	c.cancelFunc = cancel
	defer func() {
		close(c.done)
		c.logger.Info("sync coordinator shut down")
	}()

	interval := c.pollInterval
	if interval <= 0 {
		interval = calculatePollingInterval()
	}
	c.logger.Info("configured coordinator polling interval", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Initial pass so a fresh deployment does not wait a full tick.
	c.enqueueDueSyncs(coordCtx)

	for {
		select {
		case <-ticker.C:
			c.enqueueDueSyncs(coordCtx)

			if c.pollInterval <= 0 {
				// Recalculate with new jitter for the next iteration
				ticker.Reset(calculatePollingInterval())
			}
		case <-coordCtx.Done():
			c.logger.Info("sync coordinator stopping")
			return nil
		}
	}
}

// Stop gracefully stops the coordinator
func (c *defaultCoordinator) Stop() error {
	if c.cancelFunc != nil {
		c.cancelFunc()
		<-c.done
	}
	return nil
}

// enqueueDueSyncs enqueues one incremental trigger for every due configuration
func (c *defaultCoordinator) enqueueDueSyncs(ctx context.Context) {
	configs, err := c.configs.ListEnabledSyncConfigurations(ctx)
	if err != nil {
		c.logger.Error("failed to list configurations", "error", err)
		return
	}

	now := c.now()
	for _, cfg := range configs {
		if !due(cfg, now) {
			continue
		}

		msg, err := queue.NewMessage(queue.KindSyncTrigger, cfg.ID, queue.SyncTrigger{
			Mode: sqlc.SyncModeIncremental,
		})
		if err != nil {
			c.logger.Error("failed to build trigger message", "config_id", cfg.ID, "error", err)
			continue
		}
		if err := c.publisher.Publish(ctx, msg); err != nil {
			c.logger.Error("failed to enqueue sync trigger", "config_id", cfg.ID, "error", err)
			continue
		}
		c.logger.Debug("sync trigger enqueued",
			"config_id", cfg.ID,
			"hotel", cfg.HotelCode,
			"account", cfg.AccountCode)
	}
}

// due reports whether the configuration's sync interval has elapsed. A
// configuration that pulls nothing is never due; one that never completed
// a run is due immediately.
func due(cfg sqlc.SyncConfiguration, now time.Time) bool {
	if !cfg.Enabled {
		return false
	}
	if !cfg.PullReservations && !cfg.PullGuests {
		return false
	}
	if cfg.LastSuccessfulSync == nil {
		return true
	}

	interval := pgtypes.IntervalToDuration(cfg.SyncInterval)
	if interval <= 0 {
		interval = defaultSyncInterval
	}
	return now.Sub(*cfg.LastSuccessfulSync) >= interval
}
