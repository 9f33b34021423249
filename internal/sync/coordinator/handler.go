package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lodgeworks/channelsync/internal/db/sqlc"
	"github.com/lodgeworks/channelsync/internal/queue"
	"github.com/lodgeworks/channelsync/internal/remote"
	"github.com/lodgeworks/channelsync/internal/telemetry"
)

// SyncRunner executes one inbound sync run for a configuration.
type SyncRunner interface {
	Run(ctx context.Context, configID uuid.UUID, mode sqlc.SyncMode) (sqlc.SyncState, error)
}

// TriggerHandler consumes sync trigger messages and executes the runs.
// Both the coordinator's scheduled triggers and the admin API's manual
// ones land here.
type TriggerHandler struct {
	runner  SyncRunner
	metrics *telemetry.SyncMetrics
	logger  *slog.Logger
}

// NewTriggerHandler wires a trigger handler. metrics may be nil.
func NewTriggerHandler(runner SyncRunner, metrics *telemetry.SyncMetrics, logger *slog.Logger) *TriggerHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TriggerHandler{
		runner:  runner,
		metrics: metrics,
		logger:  logger,
	}
}

// Register binds the handler to the trigger message kind.
func (h *TriggerHandler) Register(registry *queue.Registry) {
	registry.Register(queue.KindSyncTrigger, h.handle)
}

func (h *TriggerHandler) handle(ctx context.Context, msg queue.Message) error {
	var trigger queue.SyncTrigger
	if err := msg.DecodePayload(&trigger); err != nil {
		return queue.Permanent(err)
	}
	mode := trigger.Mode
	if mode == "" {
		mode = sqlc.SyncModeIncremental
	}

	start := time.Now()
	final, err := h.runner.Run(ctx, msg.ConfigID, mode)
	if err != nil {
		h.metrics.RecordRun(ctx, msg.ConfigID.String(), string(mode), time.Since(start), false)

		// Transient remote failures are retried by the queue; anything
		// else (disabled config, bad credentials) dead-letters.
		var open *remote.CircuitOpenError
		if remote.IsRetryable(err) || errors.As(err, &open) {
			return err
		}
		return queue.Permanent(err)
	}

	h.metrics.RecordRun(ctx, msg.ConfigID.String(), string(mode), time.Since(start), true)
	h.metrics.RecordRecords(ctx, msg.ConfigID.String(), final.Processed, final.Failed)
	return nil
}
