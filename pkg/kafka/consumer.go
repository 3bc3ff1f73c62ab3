package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/paperalign/paperalign/pkg/config"
	"github.com/segmentio/kafka-go"
)

// Handler processes a single consumed message. A non-nil error leaves the
// message uncommitted so it is redelivered.
type Handler func(ctx context.Context, key, value []byte) error

// Consumer reads messages from a Kafka topic as part of a consumer group.
type Consumer struct {
	reader *kafka.Reader
	logger *slog.Logger
}

// NewConsumer creates a Consumer for the given topic and group.
func NewConsumer(cfg config.KafkaConfig, topic, groupID string) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        500 * time.Millisecond,
		CommitInterval: 0, // explicit commits
		StartOffset:    kafka.FirstOffset,
	})
	return &Consumer{
		reader: r,
		logger: slog.Default().With("component", "kafka-consumer", "topic", topic, "group", groupID),
	}
}

// Run consumes messages until ctx is cancelled, invoking handler for each.
// Messages are committed only after the handler succeeds.
func (c *Consumer) Run(ctx context.Context, handler Handler) error {
	c.logger.Info("consumer started")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				c.logger.Info("consumer stopping")
				return nil
			}
			c.logger.Error("fetch failed", "error", err)
			return fmt.Errorf("fetching message: %w", err)
		}

		if err := handler(ctx, msg.Key, msg.Value); err != nil {
			c.logger.Error("handler failed, message left uncommitted",
				"key", string(msg.Key),
				"offset", msg.Offset,
				"error", err,
			)
			continue
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("commit failed", "offset", msg.Offset, "error", err)
		}
	}
}

// Close closes the underlying Kafka reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// DecodeJSON unmarshals a consumed message value into T.
func DecodeJSON[T any](value []byte) (T, error) {
	var out T
	if err := json.Unmarshal(value, &out); err != nil {
		return out, fmt.Errorf("decoding event: %w", err)
	}
	return out, nil
}
