// Package triage provides the asynchronous re-evaluation of risk events:
// the pure escalation decision function and the consumption loop that
// persists decisions idempotently and dispatches notifications.
package triage

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/sukoon-health/risk-pipeline/internal/events"
	"github.com/sukoon-health/risk-pipeline/internal/risk"
)

// Policy holds the escalation thresholds. These are product policy, not
// derived facts, so they are tunable configuration rather than constants
// baked into the decision logic.
type Policy struct {
	// RecentRiskThreshold is the number of high/critical events within the
	// window (including the current event) at which a high-risk event
	// escalates.
	RecentRiskThreshold int
	// RecentRiskWindow is the trailing window, ending at the event's own
	// timestamp, over which recent events are counted.
	RecentRiskWindow time.Duration
}

// DefaultPolicy returns the production thresholds: 3 events in 7 days.
func DefaultPolicy() Policy {
	return Policy{
		RecentRiskThreshold: 3,
		RecentRiskWindow:    7 * 24 * time.Hour,
	}
}

// Decision is the triage outcome for one risk event. Exactly one decision
// exists per originating event; DecisionID is derived deterministically from
// the event identity so redelivery converges on the same record.
type Decision struct {
	DecisionID     string
	UserID         string
	EventCreatedAt time.Time
	Priority       risk.Priority
	Escalated      bool
	TriagedAt      time.Time
}

// DecisionID derives the deterministic decision key from the originating
// event's identity (userId + createdAt). Redelivered events map to the same
// key, which makes the decision upsert idempotent.
func DecisionID(userID string, createdAt time.Time) string {
	sum := sha256.Sum256([]byte(userID + "|" + createdAt.UTC().Format(time.RFC3339Nano)))
	return hex.EncodeToString(sum[:16])
}

// Decide derives the escalation decision for a risk event. It is a pure
// function of the event, the windowed count of durably stored high/critical
// events (including the current one), and the policy. It never depends on
// delivery order or count, so concurrent redeliveries compute the same
// decision.
//
// Critical events always escalate at urgent priority. High events escalate
// at high priority once the windowed count reaches the threshold, otherwise
// they are recorded at medium priority without escalation. Lower levels
// should never reach the subscriber (the publisher filters them) but are
// recorded at low priority if they do.
func Decide(event *events.RiskFlagged, windowedCount int, policy Policy, now time.Time) Decision {
	d := Decision{
		DecisionID:     DecisionID(event.UserID, event.CreatedAt),
		UserID:         event.UserID,
		EventCreatedAt: event.CreatedAt.UTC(),
		Priority:       risk.PriorityLow,
		Escalated:      false,
		TriagedAt:      now.UTC(),
	}

	switch {
	case event.RiskLevel == risk.LevelCritical:
		d.Priority = risk.PriorityUrgent
		d.Escalated = true
	case event.RiskLevel == risk.LevelHigh && windowedCount >= policy.RecentRiskThreshold:
		d.Priority = risk.PriorityHigh
		d.Escalated = true
	case event.RiskLevel == risk.LevelHigh:
		d.Priority = risk.PriorityMedium
	}

	return d
}

// WindowStart returns the inclusive-exclusive lower bound of the trailing
// window for an event: events strictly older than this are outside the
// window.
func (p Policy) WindowStart(eventCreatedAt time.Time) time.Time {
	return eventCreatedAt.UTC().Add(-p.RecentRiskWindow)
}
