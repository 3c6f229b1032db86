// Package notifier provides Kafka producer functionality for the
// notifications topic. Delivery mechanics (SMS/email/on-call paging) belong
// to the downstream consumer of that topic.
package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/sukoon-health/risk-pipeline/internal/events"
	"github.com/sukoon-health/risk-pipeline/internal/kafkautil"
)

// Notifier wraps a Kafka writer and publishes escalation notices.
type Notifier struct {
	writer *kafka.Writer
	topic  string
}

// NewNotifier creates a new Kafka producer with the specified brokers and
// topic, configured for at-least-once delivery with synchronous writes.
func NewNotifier(brokers string, topic string) (*Notifier, error) {
	if err := kafkautil.ValidateProducerParams(brokers, topic); err != nil {
		return nil, err
	}

	brokerList := kafkautil.ParseBrokers(brokers)

	slog.Info("Initializing Kafka notifier",
		"brokers", brokerList,
		"topic", topic,
	)

	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokerList...),
		Topic:        topic,
		Balancer:     &kafka.Hash{}, // Key-based partitioning (hashes the message key)
		WriteTimeout: kafkautil.WriteTimeout,
		RequiredAcks: kafka.RequireOne, // At-least-once semantics (waits for leader ack)
		Async:        false,            // Synchronous writes for reliability and error handling
	}

	return &Notifier{
		writer: writer,
		topic:  topic,
	}, nil
}

// Publish serializes a notification to JSON and publishes it to Kafka,
// keyed by user id with the priority carried as a header for downstream
// routing.
func (n *Notifier) Publish(ctx context.Context, notification *events.Notification) error {
	payload, err := json.Marshal(notification)
	if err != nil {
		slog.Error("Failed to marshal notification",
			"user_id", notification.UserID,
			"priority", notification.Priority,
			"error", err,
		)
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(notification.UserID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(events.TypeNotification)},
			{Key: "priority", Value: []byte(string(notification.Priority))},
		},
		Time: notification.CreatedAt,
	}

	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		slog.Error("Failed to write notification to Kafka",
			"user_id", notification.UserID,
			"priority", notification.Priority,
			"topic", n.topic,
			"error", err,
		)
		return fmt.Errorf("failed to write notification to Kafka: %w", err)
	}

	slog.Info("Published escalation notification",
		"user_id", notification.UserID,
		"priority", notification.Priority,
		"topic", n.topic,
	)

	return nil
}

// Close gracefully closes the Kafka writer and releases resources.
func (n *Notifier) Close() error {
	slog.Info("Closing Kafka notifier", "topic", n.topic)
	if err := n.writer.Close(); err != nil {
		slog.Error("Error closing Kafka notifier", "error", err)
		return err
	}
	return nil
}
