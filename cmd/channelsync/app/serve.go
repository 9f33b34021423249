package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lodgeworks/channelsync/internal/api"
	v1 "github.com/lodgeworks/channelsync/internal/api/v1"
	"github.com/lodgeworks/channelsync/internal/config"
	"github.com/lodgeworks/channelsync/internal/db"
	"github.com/lodgeworks/channelsync/internal/db/sqlc"
	"github.com/lodgeworks/channelsync/internal/queue"
	"github.com/lodgeworks/channelsync/internal/remote"
	"github.com/lodgeworks/channelsync/internal/resilience"
	"github.com/lodgeworks/channelsync/internal/sync/audit"
	"github.com/lodgeworks/channelsync/internal/sync/coordinator"
	"github.com/lodgeworks/channelsync/internal/sync/inbound"
	"github.com/lodgeworks/channelsync/internal/sync/mapping"
	"github.com/lodgeworks/channelsync/internal/sync/outbound"
	"github.com/lodgeworks/channelsync/internal/sync/state"
	"github.com/lodgeworks/channelsync/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the sync server",
	Long: `Start the sync server: the admin API, the queue consumers that push
local changes to the channel manager, and the scheduler that triggers
periodic inbound pulls.

The server requires a configuration file (--config) that specifies the
database, Redis and channel-manager client settings.`,
	RunE: runServe,
}

const (
	defaultGracefulTimeout = 30 * time.Second // Kubernetes-friendly shutdown time
	serverRequestTimeout   = 10 * time.Second // Admin API should respond quickly
	serverReadTimeout      = 10 * time.Second // Enough for headers and small requests
	serverWriteTimeout     = 15 * time.Second // Must be > serverRequestTimeout to let middleware handle timeout
	serverIdleTimeout      = 60 * time.Second // Keep connections alive for reuse
)

func init() {
	serveCmd.Flags().String("address", config.DefaultServerAddress, "Address to listen on")
	serveCmd.Flags().String("config", "", "Path to configuration file (YAML format, required)")

	if err := viper.BindPFlag("address", serveCmd.Flags().Lookup("address")); err != nil {
		panic(fmt.Sprintf("failed to bind address flag: %v", err))
	}
	if err := viper.BindPFlag("config", serveCmd.Flags().Lookup("config")); err != nil {
		panic(fmt.Sprintf("failed to bind config flag: %v", err))
	}

	if err := serveCmd.MarkFlagRequired("config"); err != nil {
		panic(fmt.Sprintf("failed to mark config flag as required: %v", err))
	}
}

func runServe(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	configPath := viper.GetString("config")
	cfg, err := config.LoadConfig(config.WithConfigPath(configPath))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	address := cfg.Server.Address
	if flagAddress := viper.GetString("address"); flagAddress != "" && flagAddress != config.DefaultServerAddress {
		address = flagAddress
	}

	slog.Info("Starting sync server", "address", address, "config", configPath)

	tel, err := telemetry.New(ctx, telemetry.WithTelemetryConfig(cfg.Telemetry))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultGracefulTimeout)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to shut down telemetry", "error", err)
		}
	}()

	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() {
		if err := rdb.Close(); err != nil {
			slog.Error("Failed to close redis client", "error", err)
		}
	}()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	queries := sqlc.New(pool)

	mappings, err := mapping.NewDBStore(pool)
	if err != nil {
		return fmt.Errorf("failed to create mapping store: %w", err)
	}
	tracker, err := state.NewDBTracker(pool)
	if err != nil {
		return fmt.Errorf("failed to create run tracker: %w", err)
	}
	auditLog, err := audit.NewDBLog(pool)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}

	clients, err := buildClientRegistry(cfg)
	if err != nil {
		return err
	}

	syncMetrics, err := telemetry.NewSyncMetrics(tel.MeterProvider())
	if err != nil {
		return fmt.Errorf("failed to create sync metrics: %w", err)
	}
	queueMetrics, err := telemetry.NewQueueMetrics(tel.MeterProvider())
	if err != nil {
		return fmt.Errorf("failed to create queue metrics: %w", err)
	}

	inboundPublisher := queue.NewPublisher(rdb, cfg.Queue.InboundStream, nil)

	// Outbound: push handlers keyed by message kind.
	outboundRegistry := queue.NewRegistry()
	outbound.NewDispatcher(queries, queries, mappings, auditLog, clients, nil).Register(outboundRegistry)

	// Inbound: sync triggers executed by the pull runner.
	runner := inbound.NewRunner(queries, queries, mappings, tracker, auditLog, clients, cfg.Remote.PageSize, nil)
	inboundRegistry := queue.NewRegistry()
	coordinator.NewTriggerHandler(runner, syncMetrics, nil).Register(inboundRegistry)

	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()

	queueTracer := tel.Tracer("github.com/lodgeworks/channelsync/queue")

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "channelsync"
	}

	for i := 0; i < cfg.Queue.OutboundConsumers; i++ {
		startConsumer(workerCtx, queue.NewConsumer(rdb, queue.ConsumerOptions{
			Stream:      cfg.Queue.OutboundStream,
			Group:       cfg.Queue.ConsumerGroup,
			Name:        fmt.Sprintf("%s-outbound-%d", hostname, i),
			MaxAttempts: cfg.Queue.MaxAttempts,
			Handler:     outboundRegistry.Handle,
			Metrics:     queueMetrics,
			Tracer:      queueTracer,
		}, nil))
	}
	startConsumer(workerCtx, queue.NewConsumer(rdb, queue.ConsumerOptions{
		Stream:      cfg.Queue.InboundStream,
		Group:       cfg.Queue.ConsumerGroup,
		Name:        hostname + "-inbound",
		MaxAttempts: cfg.Queue.MaxAttempts,
		Handler:     inboundRegistry.Handle,
		Metrics:     queueMetrics,
		Tracer:      queueTracer,
	}, nil))

	// Scheduler enqueuing periodic pull triggers.
	syncCoordinator := coordinator.New(queries, inboundPublisher)
	go func() {
		if err := syncCoordinator.Start(workerCtx); err != nil {
			slog.Error("Sync coordinator failed", "error", err)
		}
	}()

	metricsMiddleware, err := telemetry.MetricsMiddleware(tel.MeterProvider())
	if err != nil {
		return fmt.Errorf("failed to create metrics middleware: %w", err)
	}

	routes := v1.NewRoutes(queries, inboundPublisher, clients, tracker, auditLog, nil)
	router := api.NewServer(routes,
		api.WithMiddlewares(
			middleware.RequestID,
			middleware.RealIP,
			middleware.Recoverer,
			middleware.Timeout(serverRequestTimeout),
			telemetry.TracingMiddleware(tel.TracerProvider()),
			metricsMiddleware,
			api.LoggingMiddleware,
		),
		api.WithReadinessChecker(func(ctx context.Context) error {
			if err := pool.Ping(ctx); err != nil {
				return fmt.Errorf("postgres: %w", err)
			}
			if err := rdb.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
			return nil
		}),
	)

	server := &http.Server{
		Addr:         address,
		Handler:      router,
		ReadTimeout:  serverReadTimeout,
		WriteTimeout: serverWriteTimeout,
		IdleTimeout:  serverIdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Server listening", "address", address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-quit:
		slog.Info("Shutting down", "signal", sig.String())
	}

	if err := syncCoordinator.Stop(); err != nil {
		slog.Error("Failed to stop sync coordinator", "error", err)
	}
	stopWorkers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultGracefulTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		return err
	}

	slog.Info("Server shutdown complete")
	return nil
}

// buildClientRegistry assembles the per-account channel-manager client
// registry from the resilience settings in the configuration.
func buildClientRegistry(cfg *config.Config) (*remote.ClientRegistry, error) {
	timeout, err := cfg.RemoteTimeout()
	if err != nil {
		return nil, err
	}
	window, err := cfg.RateLimitWindow()
	if err != nil {
		return nil, err
	}
	resetTimeout, err := cfg.ResetTimeout()
	if err != nil {
		return nil, err
	}

	return remote.NewClientRegistry(remote.Settings{
		Timeout:           timeout,
		MaxTries:          cfg.Remote.MaxRetries,
		RateLimitCapacity: cfg.Resilience.RateLimitCapacity,
		RateLimitWindow:   window,
		Breaker: resilience.BreakerSettings{
			FailureThreshold:    cfg.Resilience.FailureThreshold,
			ResetTimeout:        resetTimeout,
			HalfOpenMaxRequests: cfg.Resilience.HalfOpenMaxRequests,
		},
	}, nil), nil
}

// startConsumer runs a queue consumer until its context is canceled.
func startConsumer(ctx context.Context, consumer *queue.Consumer) {
	go func() {
		if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("Queue consumer stopped", "error", err)
		}
	}()
}
