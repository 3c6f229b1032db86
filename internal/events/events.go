// Package events defines the event structures for the risk.flagged and
// notifications topics.
package events

import (
	"time"

	"github.com/sukoon-health/risk-pipeline/internal/risk"
)

// SchemaVersion is the current wire schema version for all pipeline events.
const SchemaVersion = 1

// Event type attribute values carried in message headers.
const (
	TypeRiskFlagged  = "risk.flagged"
	TypeNotification = "notification"
)

// NotificationTypeRiskEscalation is the only notification type produced by
// the triage service.
const NotificationTypeRiskEscalation = "risk_escalation"

// RiskFlagged represents a risk event on the risk.flagged topic.
// The payload never carries the screened text itself, only an opaque locator.
// Escalated is always false at publish time; only the triage subscriber's
// decision sets it on the durable record.
type RiskFlagged struct {
	UserID        string     `json:"userId"`
	SchemaVersion int        `json:"schemaVersion"`
	CreatedAt     time.Time  `json:"createdAt"`
	RiskLevel     risk.Level `json:"riskLevel"`
	Reason        string     `json:"reason"`
	TextRef       string     `json:"textUri"`
	Lang          string     `json:"lang,omitempty"`
	Escalated     bool       `json:"escalated"`
}

// NewRiskFlagged creates a risk event for publication.
// Timestamps are normalized to UTC so the (userId, createdAt) identity is
// stable across producer and consumer.
func NewRiskFlagged(userID string, level risk.Level, reason, textRef string, createdAt time.Time) *RiskFlagged {
	return &RiskFlagged{
		UserID:        userID,
		SchemaVersion: SchemaVersion,
		CreatedAt:     createdAt.UTC(),
		RiskLevel:     level,
		Reason:        reason,
		TextRef:       textRef,
		Escalated:     false,
	}
}

// Notification represents an escalation notice on the notifications topic.
// Emitted at most once per escalated triage decision.
type Notification struct {
	UserID        string        `json:"userId"`
	SchemaVersion int           `json:"schemaVersion"`
	Type          string        `json:"type"`
	Priority      risk.Priority `json:"priority"`
	Message       string        `json:"message"`
	CreatedAt     time.Time     `json:"createdAt"`
}

// NewEscalationNotification creates a crisis-team notification for an
// escalated risk event.
func NewEscalationNotification(event *RiskFlagged, priority risk.Priority, now time.Time) *Notification {
	return &Notification{
		UserID:        event.UserID,
		SchemaVersion: SchemaVersion,
		Type:          NotificationTypeRiskEscalation,
		Priority:      priority,
		Message:       "Risk escalation: " + event.Reason,
		CreatedAt:     now.UTC(),
	}
}
