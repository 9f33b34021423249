// Package telemetry provides OpenTelemetry instrumentation for the sync engine.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// SyncMetricsMeterName is the name used for the sync metrics meter
	SyncMetricsMeterName = "github.com/lodgeworks/channelsync/sync"

	// QueueMetricsMeterName is the name used for the queue metrics meter
	QueueMetricsMeterName = "github.com/lodgeworks/channelsync/queue"
)

// SyncMetrics holds the OpenTelemetry instruments for inbound sync runs
type SyncMetrics struct {
	runDuration      metric.Float64Histogram
	recordsProcessed metric.Int64Counter
	recordsFailed    metric.Int64Counter
}

// NewSyncMetrics creates a new SyncMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewSyncMetrics(provider metric.MeterProvider) (*SyncMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(SyncMetricsMeterName)

	runDuration, err := meter.Float64Histogram(
		"channelsync_run_duration_seconds",
		metric.WithDescription("Duration of inbound sync runs in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300),
	)
	if err != nil {
		return nil, err
	}

	recordsProcessed, err := meter.Int64Counter(
		"channelsync_records_processed_total",
		metric.WithDescription("Records pulled from the channel manager"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, err
	}

	recordsFailed, err := meter.Int64Counter(
		"channelsync_records_failed_total",
		metric.WithDescription("Records that failed to apply during a sync run"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, err
	}

	return &SyncMetrics{
		runDuration:      runDuration,
		recordsProcessed: recordsProcessed,
		recordsFailed:    recordsFailed,
	}, nil
}

// RecordRun records the outcome of one inbound sync run for a configuration
func (m *SyncMetrics) RecordRun(ctx context.Context, configID, mode string, duration time.Duration, success bool) {
	if m == nil || m.runDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("config", configID),
		attribute.String("mode", mode),
		attribute.Bool("success", success),
	}

	m.runDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordRecords records per-record counts from one inbound sync run
func (m *SyncMetrics) RecordRecords(ctx context.Context, configID string, processed, failed int64) {
	if m == nil || m.recordsProcessed == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("config", configID),
	}

	m.recordsProcessed.Add(ctx, processed, metric.WithAttributes(attrs...))
	if failed > 0 {
		m.recordsFailed.Add(ctx, failed, metric.WithAttributes(attrs...))
	}
}

// QueueMetrics holds the OpenTelemetry instruments for outbound queue processing
type QueueMetrics struct {
	messagesHandled metric.Int64Counter
	deadLettered    metric.Int64Counter
}

// NewQueueMetrics creates a new QueueMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewQueueMetrics(provider metric.MeterProvider) (*QueueMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(QueueMetricsMeterName)

	messagesHandled, err := meter.Int64Counter(
		"channelsync_queue_messages_total",
		metric.WithDescription("Queue messages handled, by kind and outcome"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, err
	}

	deadLettered, err := meter.Int64Counter(
		"channelsync_queue_dead_letters_total",
		metric.WithDescription("Queue messages moved to the dead-letter stream"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, err
	}

	return &QueueMetrics{
		messagesHandled: messagesHandled,
		deadLettered:    deadLettered,
	}, nil
}

// RecordHandled records one handled queue message and its outcome
// (ack, retry or dead_letter)
func (m *QueueMetrics) RecordHandled(ctx context.Context, kind, outcome string) {
	if m == nil || m.messagesHandled == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("kind", kind),
		attribute.String("outcome", outcome),
	}

	m.messagesHandled.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordDeadLettered records one message moved to the dead-letter stream
func (m *QueueMetrics) RecordDeadLettered(ctx context.Context, kind string) {
	if m == nil || m.deadLettered == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("kind", kind),
	}

	m.deadLettered.Add(ctx, 1, metric.WithAttributes(attrs...))
}
