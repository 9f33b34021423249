package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// streamField is the stream entry field carrying the JSON message.
const streamField = "data"

// Publisher appends messages to one Redis stream.
type Publisher struct {
	rdb    redis.Cmdable
	stream string
	logger *slog.Logger
}

// NewPublisher creates a publisher for the given stream.
func NewPublisher(rdb redis.Cmdable, stream string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{rdb: rdb, stream: stream, logger: logger}
}

// Publish appends one message to the stream.
func (p *Publisher) Publish(ctx context.Context, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode queue message: %w", err)
	}

	id, err := p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{streamField: data},
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", p.stream, err)
	}

	p.logger.Debug("published message",
		"stream", p.stream,
		"stream_id", id,
		"kind", msg.Kind,
		"config_id", msg.ConfigID,
		"attempt", msg.Attempt,
	)
	return nil
}
