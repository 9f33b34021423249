package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"

	internalotel "github.com/lodgeworks/channelsync/internal/otel"
	"github.com/lodgeworks/channelsync/internal/telemetry"
)

const (
	// readBlock is how long one XREADGROUP call blocks waiting for entries
	readBlock = 5 * time.Second

	// readBatch is the maximum entries fetched per XREADGROUP call
	readBatch = 10

	// errorBackoff is the pause after a transport error before reading again
	errorBackoff = time.Second

	// claimInterval is how often the consumer sweeps the group's pending
	// list for deliveries abandoned by a crashed consumer
	claimInterval = 30 * time.Second

	// claimMinIdle is how long an entry must sit unacknowledged before
	// another consumer may take it over
	claimMinIdle = time.Minute

	// claimBatch is the maximum entries taken over per XAUTOCLAIM call
	claimBatch = 25

	// DeadLetterSuffix is appended to the stream name to form the
	// dead-letter stream
	DeadLetterSuffix = ":dead"
)

// disposition is what the consumer does with a message after handling.
type disposition int

const (
	dispositionAck disposition = iota
	dispositionRetry
	dispositionDeadLetter
)

// Consumer reads one stream through a consumer group and dispatches each
// message to a handler. Multiple consumers may share a group name; Redis
// partitions entries between them.
type Consumer struct {
	rdb         redis.Cmdable
	stream      string
	group       string
	name        string
	maxAttempts int
	handler     HandlerFunc
	metrics     *telemetry.QueueMetrics
	tracer      trace.Tracer
	logger      *slog.Logger
}

// ConsumerOptions configures a Consumer.
type ConsumerOptions struct {
	// Stream is the stream to read
	Stream string

	// Group is the consumer group name, shared across worker instances
	Group string

	// Name identifies this consumer within the group
	Name string

	// MaxAttempts is the delivery budget before dead-lettering
	MaxAttempts int

	// Handler processes each message
	Handler HandlerFunc

	// Metrics counts handled and dead-lettered messages; may be nil
	Metrics *telemetry.QueueMetrics

	// Tracer creates a span per handled message; may be nil
	Tracer trace.Tracer
}

// NewConsumer creates a consumer. Run must be called to start reading.
func NewConsumer(rdb redis.Cmdable, opts ConsumerOptions, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &Consumer{
		rdb:         rdb,
		stream:      opts.Stream,
		group:       opts.Group,
		name:        opts.Name,
		maxAttempts: maxAttempts,
		handler:     opts.Handler,
		metrics:     opts.Metrics,
		tracer:      opts.Tracer,
		logger:      logger.With("stream", opts.Stream, "consumer", opts.Name),
	}
}

// Run reads and dispatches messages until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.ensureGroup(ctx); err != nil {
		return err
	}

	c.logger.Info("consumer started", "group", c.group)

	lastClaim := time.Now()
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if time.Since(lastClaim) >= claimInterval {
			c.claimPending(ctx)
			lastClaim = time.Now()
		}

		streams, err := c.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.group,
			Consumer: c.name,
			Streams:  []string{c.stream, ">"},
			Count:    readBatch,
			Block:    readBlock,
		}).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error("failed to read from stream", "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(errorBackoff):
			}
			continue
		}

		for _, stream := range streams {
			for _, entry := range stream.Messages {
				c.process(ctx, entry)
			}
		}
	}
}

// claimPending takes over entries another group member read but never
// acknowledged, so a consumer crashing between delivery and XACK cannot
// strand a message in the pending list. Claimed entries go through the
// normal dispatch path, which always ends in an ack.
func (c *Consumer) claimPending(ctx context.Context) {
	start := "0-0"
	for {
		entries, next, err := c.rdb.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   c.stream,
			Group:    c.group,
			Consumer: c.name,
			MinIdle:  claimMinIdle,
			Start:    start,
			Count:    claimBatch,
		}).Result()
		if err != nil {
			if ctx.Err() == nil {
				c.logger.Error("failed to claim pending entries", "error", err)
			}
			return
		}

		for _, entry := range entries {
			c.logger.Warn("reclaimed abandoned entry", "stream_id", entry.ID)
			c.process(ctx, entry)
		}

		if next == "0-0" || len(entries) == 0 {
			return
		}
		start = next
	}
}

// ensureGroup creates the consumer group, tolerating a pre-existing one.
func (c *Consumer) ensureGroup(ctx context.Context) error {
	err := c.rdb.XGroupCreateMkStream(ctx, c.stream, c.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group %s on %s: %w", c.group, c.stream, err)
	}
	return nil
}

// process handles one stream entry. Every path ends in an XACK: retries
// and dead letters are re-published as new entries, never left pending.
func (c *Consumer) process(ctx context.Context, entry redis.XMessage) {
	msg, err := decodeEntry(entry)
	if err != nil {
		c.logger.Error("dropping undecodable entry", "stream_id", entry.ID, "error", err)
		c.deadLetterRaw(ctx, entry)
		c.ack(ctx, entry.ID)
		return
	}

	ctx, span := internalotel.StartSpan(ctx, c.tracer, "queue.process",
		trace.WithAttributes(
			internalotel.AttrStream.String(c.stream),
			internalotel.AttrMessageKind.String(string(msg.Kind)),
			internalotel.AttrConfigID.String(msg.ConfigID.String()),
			internalotel.AttrAttempt.Int(msg.Attempt),
		),
	)
	defer span.End()

	handleErr := c.handler(ctx, msg)
	internalotel.RecordError(span, handleErr)

	switch decide(msg.Attempt, c.maxAttempts, handleErr) {
	case dispositionAck:
		c.metrics.RecordHandled(ctx, string(msg.Kind), "ack")
	case dispositionRetry:
		c.metrics.RecordHandled(ctx, string(msg.Kind), "retry")
		c.logger.Warn("message failed, re-enqueueing",
			"kind", msg.Kind,
			"config_id", msg.ConfigID,
			"attempt", msg.Attempt,
			"error", handleErr,
		)
		c.requeue(ctx, msg)
	case dispositionDeadLetter:
		c.metrics.RecordHandled(ctx, string(msg.Kind), "dead_letter")
		c.metrics.RecordDeadLettered(ctx, string(msg.Kind))
		c.logger.Error("message failed permanently, dead-lettering",
			"kind", msg.Kind,
			"config_id", msg.ConfigID,
			"attempt", msg.Attempt,
			"error", handleErr,
		)
		c.deadLetter(ctx, msg)
	}

	c.ack(ctx, entry.ID)
}

// decide picks a disposition for a handled message.
func decide(attempt, maxAttempts int, err error) disposition {
	if err == nil {
		return dispositionAck
	}
	var permanent *PermanentError
	if errors.As(err, &permanent) {
		return dispositionDeadLetter
	}
	if attempt >= maxAttempts {
		return dispositionDeadLetter
	}
	return dispositionRetry
}

// decodeEntry parses one stream entry into a Message.
func decodeEntry(entry redis.XMessage) (Message, error) {
	raw, ok := entry.Values[streamField]
	if !ok {
		return Message{}, fmt.Errorf("entry %s has no %s field", entry.ID, streamField)
	}
	data, ok := raw.(string)
	if !ok {
		return Message{}, fmt.Errorf("entry %s has a non-string %s field", entry.ID, streamField)
	}

	var msg Message
	if err := json.Unmarshal([]byte(data), &msg); err != nil {
		return Message{}, fmt.Errorf("failed to decode entry %s: %w", entry.ID, err)
	}
	if msg.Attempt <= 0 {
		msg.Attempt = 1
	}
	msg.StreamID = entry.ID
	return msg, nil
}

func (c *Consumer) requeue(ctx context.Context, msg Message) {
	msg.Attempt++
	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("failed to encode retry message", "kind", msg.Kind, "error", err)
		return
	}
	if err := c.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: c.stream,
		Values: map[string]any{streamField: data},
	}).Err(); err != nil {
		c.logger.Error("failed to re-enqueue message", "kind", msg.Kind, "error", err)
	}
}

func (c *Consumer) deadLetter(ctx context.Context, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("failed to encode dead letter", "kind", msg.Kind, "error", err)
		return
	}
	if err := c.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: c.stream + DeadLetterSuffix,
		Values: map[string]any{streamField: data},
	}).Err(); err != nil {
		c.logger.Error("failed to write dead letter", "kind", msg.Kind, "error", err)
	}
}

func (c *Consumer) deadLetterRaw(ctx context.Context, entry redis.XMessage) {
	if err := c.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: c.stream + DeadLetterSuffix,
		Values: entry.Values,
	}).Err(); err != nil {
		c.logger.Error("failed to write raw dead letter", "stream_id", entry.ID, "error", err)
	}
}

func (c *Consumer) ack(ctx context.Context, id string) {
	if err := c.rdb.XAck(ctx, c.stream, c.group, id).Err(); err != nil {
		c.logger.Error("failed to ack entry", "stream_id", id, "error", err)
	}
}
