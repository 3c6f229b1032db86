package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/sukoon-health/risk-pipeline/internal/events"
)

// MockPublisher is a mock implementation that logs risk events instead of
// publishing to Kafka. Useful for local development without a Kafka instance.
type MockPublisher struct {
	topic string
}

// Ensure MockPublisher implements RiskPublisher interface
var _ RiskPublisher = (*MockPublisher)(nil)

// NewMock creates a new mock publisher that logs events instead of
// publishing to Kafka.
func NewMock(topic string) *MockPublisher {
	slog.Info("Using mock publisher (no Kafka connection)",
		"topic", topic,
		"note", "Risk events will be logged but not published to Kafka",
	)
	return &MockPublisher{
		topic: topic,
	}
}

// Publish logs the risk event as JSON instead of publishing to Kafka.
func (p *MockPublisher) Publish(ctx context.Context, event *events.RiskFlagged) error {
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("Failed to marshal risk event in mock publisher",
			"user_id", event.UserID,
			"error", err,
		)
		return fmt.Errorf("failed to marshal risk event: %w", err)
	}

	slog.Info("Mock publish (risk event logged, not sent to Kafka)",
		"topic", p.topic,
		"user_id", event.UserID,
		"risk_level", event.RiskLevel,
		"event_json", string(payload),
	)

	return nil
}

// Close is a no-op for the mock publisher.
func (p *MockPublisher) Close() error {
	slog.Info("Mock publisher closed", "topic", p.topic)
	return nil
}
