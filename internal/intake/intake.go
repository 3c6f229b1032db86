// Package intake provides the producer-side screening path: synchronous
// classification of user text plus publication of high-severity outcomes to
// the durable risk topic.
package intake

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sukoon-health/risk-pipeline/internal/events"
	"github.com/sukoon-health/risk-pipeline/internal/publisher"
	"github.com/sukoon-health/risk-pipeline/internal/risk"
)

// MinPublishLevel is the lowest risk level that enters the async pipeline.
// Lower levels are logged locally and never published, bounding the volume
// the triage subscriber must re-derive.
const MinPublishLevel = risk.LevelHigh

// Outcome is the result of screening one piece of text.
type Outcome struct {
	// Level is the classified (possibly combined) risk level.
	Level risk.Level
	// Reasons are the human-readable classification reasons.
	Reasons []string
	// Blocked reports whether the assistant reply must be suppressed.
	Blocked bool
	// Flagged reports whether a risk event was published to the topic.
	Flagged bool
	// TextRef is the opaque locator for the screened text; the raw text
	// never leaves the intake path.
	TextRef string
}

// Screener classifies intake text and publishes risk events for levels at or
// above MinPublishLevel.
type Screener struct {
	classifier *risk.Classifier
	publisher  publisher.RiskPublisher
	now        func() time.Time
}

// NewScreener creates a screener over the given publisher.
func NewScreener(pub publisher.RiskPublisher) *Screener {
	return &Screener{
		classifier: risk.NewClassifier(),
		publisher:  pub,
		now:        time.Now,
	}
}

// ScreenMessage classifies a user message and, for high or critical levels,
// publishes a risk event. A critical classification additionally blocks the
// assistant reply.
//
// A publish failure is returned alongside a fully populated outcome: the
// caller still has the classification result for immediate synchronous
// handling and may proceed without the async escalation (log-and-continue).
func (s *Screener) ScreenMessage(ctx context.Context, userID, text string) (*Outcome, error) {
	if userID == "" {
		return nil, fmt.Errorf("userID cannot be empty")
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	sanitized := risk.Sanitize(text)
	level, reasons := s.classifier.Assess(sanitized)

	outcome := &Outcome{
		Level:   level,
		Reasons: reasons,
		Blocked: level == risk.LevelCritical,
		TextRef: newTextRef(userID),
	}

	return outcome, s.maybePublish(ctx, userID, outcome)
}

// ScreenReply classifies an assistant reply and folds its level into the
// prior outcome, conservatively keeping the higher of the two. If the
// combined level crosses the publish boundary and the prior outcome was not
// already flagged, a risk event is published for the combined level.
func (s *Screener) ScreenReply(ctx context.Context, userID string, prior *Outcome, replyText string) (*Outcome, error) {
	replyLevel, replyReasons := s.classifier.Assess(replyText)

	combined := &Outcome{
		Level:   risk.Combine(prior.Level, replyLevel),
		Reasons: mergeReasons(prior.Reasons, replyReasons),
		Blocked: prior.Blocked,
		Flagged: prior.Flagged,
		TextRef: prior.TextRef,
	}

	if combined.Flagged {
		return combined, nil
	}
	return combined, s.maybePublish(ctx, userID, combined)
}

// maybePublish publishes a risk event when the outcome's level is at or
// above the publish boundary, marking the outcome flagged on success.
func (s *Screener) maybePublish(ctx context.Context, userID string, outcome *Outcome) error {
	if !outcome.Level.AtLeast(MinPublishLevel) {
		slog.Debug("Risk below publish threshold, not entering pipeline",
			"user_id", userID,
			"risk_level", outcome.Level,
		)
		return nil
	}

	event := events.NewRiskFlagged(userID, outcome.Level, reasonText(outcome.Reasons), outcome.TextRef, s.now())
	if err := s.publisher.Publish(ctx, event); err != nil {
		// Surface to the caller; the classification result stands and the
		// caller decides whether to proceed without async escalation.
		return fmt.Errorf("risk event publish failed: %w", err)
	}
	outcome.Flagged = true

	slog.Info("Flagged risky message",
		"user_id", userID,
		"risk_level", outcome.Level,
		"blocked", outcome.Blocked,
	)
	return nil
}

// newTextRef creates an opaque locator for screened text. The object itself
// is persisted by the host service; the pipeline only ever carries the ref.
func newTextRef(userID string) string {
	return fmt.Sprintf("text/%s/%s.txt", userID, uuid.NewString())
}

func reasonText(reasons []string) string {
	if len(reasons) == 0 {
		return ""
	}
	return strings.Join(reasons, "; ")
}

func mergeReasons(a, b []string) []string {
	merged := make([]string, 0, len(a)+len(b))
	merged = append(merged, a...)
	for _, r := range b {
		if !contains(merged, r) {
			merged = append(merged, r)
		}
	}
	return merged
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
