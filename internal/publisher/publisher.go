// Package publisher provides a Kafka producer wrapper for publishing risk
// events to the risk.flagged topic. It handles message serialization, keying,
// and Kafka-specific configuration.
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/sukoon-health/risk-pipeline/internal/events"
	"github.com/sukoon-health/risk-pipeline/internal/kafkautil"
)

// RiskPublisher defines the interface for publishing risk events.
type RiskPublisher interface {
	Publish(ctx context.Context, event *events.RiskFlagged) error
	Close() error
}

// Producer wraps a Kafka writer and provides a simple interface for
// publishing risk events. Messages are keyed by user id so one user's events
// land on one partition.
type Producer struct {
	writer *kafka.Writer
	topic  string
}

// Ensure Producer implements RiskPublisher interface
var _ RiskPublisher = (*Producer)(nil)

// New creates a new Kafka producer with the specified brokers and topic.
// The producer is configured for at-least-once delivery semantics with
// synchronous writes. It will attempt to create the topic if it doesn't
// exist (with 3 partitions, replication factor 1).
func New(brokers string, topic string) (*Producer, error) {
	if err := kafkautil.ValidateProducerParams(brokers, topic); err != nil {
		return nil, err
	}

	brokerList := kafkautil.ParseBrokers(brokers)

	slog.Info("Initializing Kafka producer",
		"brokers", brokerList,
		"topic", topic,
	)

	// Try to create topic if it doesn't exist (best effort, may fail silently)
	createTopicIfNotExists(brokerList[0], topic)

	// Configure Kafka writer for at-least-once delivery
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokerList...),
		Topic:        topic,
		Balancer:     &kafka.Hash{}, // Key-based partitioning (hashes the message key)
		WriteTimeout: kafkautil.WriteTimeout,
		RequiredAcks: kafka.RequireOne, // At-least-once semantics (waits for leader ack)
		Async:        false,            // Synchronous writes for reliability and error handling
	}

	slog.Info("Kafka producer configured",
		"write_timeout", kafkautil.WriteTimeout,
		"required_acks", "RequireOne",
		"async", false,
		"balancer", "Hash (key-based partitioning)",
		"partition_key", "userId",
	)

	return &Producer{
		writer: writer,
		topic:  topic,
	}, nil
}

// Publish serializes a risk event to JSON and publishes it to Kafka.
// The message carries routing attributes as headers so subscribers can
// filter without deserializing the payload. Returns an error if
// serialization or publishing fails; retried delivery is the topic client's
// contract, this method does not retry.
func (p *Producer) Publish(ctx context.Context, event *events.RiskFlagged) error {
	msg, err := buildMessage(event)
	if err != nil {
		slog.Error("Failed to marshal risk event",
			"user_id", event.UserID,
			"risk_level", event.RiskLevel,
			"error", err,
		)
		return err
	}

	// Write to Kafka (synchronous, waits for ack)
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		slog.Error("Failed to write risk event to Kafka",
			"user_id", event.UserID,
			"risk_level", event.RiskLevel,
			"topic", p.topic,
			"error", err,
		)
		return fmt.Errorf("failed to write risk event to Kafka: %w", err)
	}

	slog.Info("Published risk event",
		"user_id", event.UserID,
		"risk_level", event.RiskLevel,
		"topic", p.topic,
	)

	return nil
}

// Close gracefully closes the Kafka writer and releases resources.
func (p *Producer) Close() error {
	slog.Info("Closing Kafka producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		slog.Error("Error closing Kafka producer", "error", err)
		return err
	}
	slog.Info("Kafka producer closed successfully")
	return nil
}

// messageTime returns the Kafka message timestamp for an event, falling back
// to now for zero timestamps so Kafka never sees a zero time.
func messageTime(event *events.RiskFlagged) time.Time {
	if event.CreatedAt.IsZero() {
		return time.Now().UTC()
	}
	return event.CreatedAt
}
