// Package publisher provides a Kafka producer wrapper for publishing risk
// events.
package publisher

import (
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/sukoon-health/risk-pipeline/internal/events"
)

// buildMessage serializes a risk event and wraps it in a Kafka message.
// The partition key is the user id so a user's events stay ordered within a
// partition, and headers carry the routing attributes {eventType, userId,
// riskLevel} for header-only filtering.
func buildMessage(event *events.RiskFlagged) (kafka.Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal risk event: %w", err)
	}

	return kafka.Message{
		Key:   []byte(event.UserID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(events.TypeRiskFlagged)},
			{Key: "userId", Value: []byte(event.UserID)},
			{Key: "riskLevel", Value: []byte(event.RiskLevel.String())},
			{Key: "schema_version", Value: []byte(fmt.Sprintf("%d", event.SchemaVersion))},
		},
		Time: messageTime(event),
	}, nil
}
