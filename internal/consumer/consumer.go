// Package consumer provides Kafka consumer functionality for the
// risk.flagged topic.
package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/sukoon-health/risk-pipeline/internal/events"
	"github.com/sukoon-health/risk-pipeline/internal/kafkautil"
)

// Consumer wraps a Kafka reader and provides a simple interface for
// consuming risk events.
type Consumer struct {
	reader *kafka.Reader
	topic  string
}

// NewConsumer creates a new Kafka consumer with the specified brokers,
// topic, and group ID. The consumer is configured for at-least-once delivery
// semantics: offsets are committed explicitly after processing, so an
// uncommitted message is redelivered after a restart or rebalance.
func NewConsumer(brokers string, topic string, groupID string) (*Consumer, error) {
	if err := kafkautil.ValidateConsumerParams(brokers, topic, groupID); err != nil {
		return nil, err
	}

	brokerList := kafkautil.ParseBrokers(brokers)

	slog.Info("Initializing Kafka consumer",
		"brokers", brokerList,
		"topic", topic,
		"group_id", groupID,
	)

	reader := kafka.NewReader(kafkautil.NewReaderConfig(brokerList, topic, groupID))
	kafkautil.LogReaderConfig()

	return &Consumer{
		reader: reader,
		topic:  topic,
	}, nil
}

// ReadMessage reads the next message from Kafka and deserializes it as a
// RiskFlagged event. Returns the raw message for offset tracking.
func (c *Consumer) ReadMessage(ctx context.Context) (*events.RiskFlagged, *kafka.Message, error) {
	msg, err := c.reader.ReadMessage(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read message from Kafka: %w", err)
	}

	var event events.RiskFlagged
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return nil, &msg, fmt.Errorf("failed to unmarshal risk event: %w", err)
	}

	return &event, &msg, nil
}

// CommitMessage commits the offset for the given message.
// This is the ack: call it only after the message was fully processed.
func (c *Consumer) CommitMessage(ctx context.Context, msg *kafka.Message) error {
	return c.reader.CommitMessages(ctx, *msg)
}

// Close gracefully closes the Kafka reader and releases resources.
func (c *Consumer) Close() error {
	slog.Info("Closing Kafka consumer", "topic", c.topic)
	if err := c.reader.Close(); err != nil {
		slog.Error("Error closing Kafka consumer", "error", err)
		return err
	}
	slog.Info("Kafka consumer closed successfully")
	return nil
}
