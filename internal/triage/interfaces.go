package triage

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/sukoon-health/risk-pipeline/internal/events"
)

// ErrDecisionConflict indicates a decision row exists under this key for a
// different event identity. With deterministic keys this should never occur;
// if observed it is a key-derivation bug and must not be silently swallowed.
var ErrDecisionConflict = errors.New("triage decision key conflict")

// MessageReader reads risk events from a message queue.
type MessageReader interface {
	// ReadMessage reads the next message and returns the parsed RiskFlagged
	// event. Returns the raw message for offset tracking.
	ReadMessage(ctx context.Context) (*events.RiskFlagged, *kafka.Message, error)

	// CommitMessage commits the offset for the given message.
	CommitMessage(ctx context.Context, msg *kafka.Message) error

	// Close closes the reader and releases resources.
	Close() error
}

// NotificationPublisher publishes escalation notifications to a message queue.
type NotificationPublisher interface {
	// Publish publishes an escalation notification.
	Publish(ctx context.Context, notification *events.Notification) error

	// Close closes the publisher and releases resources.
	Close() error
}

// RiskStore persists risk events and triage decisions.
// All writes are keyed and idempotent so redelivered messages converge on
// the same durable state.
type RiskStore interface {
	// InsertRiskEvent durably records a risk event, ignoring duplicates of
	// the same (userID, createdAt) identity. Returns true if a new row was
	// inserted.
	InsertRiskEvent(ctx context.Context, event *events.RiskFlagged) (bool, error)

	// CountHighRiskEvents counts stored high/critical events for the user
	// with createdAt in (from, to]. Only durably stored events are counted.
	CountHighRiskEvents(ctx context.Context, userID string, from, to time.Time) (int, error)

	// UpsertDecision records a decision under its deterministic key.
	// Returns true if the decision was newly recorded or replaced a
	// non-escalated decision; false if an escalated decision already exists
	// under this key (the caller must then skip re-notification).
	UpsertDecision(ctx context.Context, d *Decision) (bool, error)

	// MarkRiskEventEscalated sets the escalated flag on the stored risk
	// event identified by (userID, createdAt).
	MarkRiskEventEscalated(ctx context.Context, userID string, createdAt time.Time) error

	// Close closes the store connection.
	Close() error
}
