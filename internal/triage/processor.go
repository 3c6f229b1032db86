package triage

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sukoon-health/risk-pipeline/internal/events"
	"github.com/sukoon-health/risk-pipeline/internal/risk"
)

// DefaultMessageTimeout bounds the processing of a single delivery so a
// message is never held unacked indefinitely.
const DefaultMessageTimeout = 30 * time.Second

// Processor orchestrates risk event triage: it consumes risk events,
// re-derives escalation decisions against the durable history, persists them
// idempotently, and dispatches notifications for newly escalated decisions.
type Processor struct {
	reader         MessageReader
	notifier       NotificationPublisher
	store          RiskStore
	metrics        MetricsRecorder
	policy         Policy
	messageTimeout time.Duration
	now            func() time.Time
}

// NewProcessor creates a triage processor with the default policy and no-op
// metrics.
func NewProcessor(reader MessageReader, notifier NotificationPublisher, store RiskStore) *Processor {
	return NewProcessorWithOptions(reader, notifier, store, DefaultPolicy(), nil)
}

// NewProcessorWithOptions creates a processor with explicit policy and
// metrics. If m is nil, a no-op implementation is used.
func NewProcessorWithOptions(reader MessageReader, notifier NotificationPublisher, store RiskStore, policy Policy, m MetricsRecorder) *Processor {
	if m == nil {
		m = &NoOpMetrics{}
	}
	return &Processor{
		reader:         reader,
		notifier:       notifier,
		store:          store,
		metrics:        m,
		policy:         policy,
		messageTimeout: DefaultMessageTimeout,
		now:            time.Now,
	}
}

// SetMessageTimeout overrides the per-message processing deadline.
func (p *Processor) SetMessageTimeout(d time.Duration) {
	if d > 0 {
		p.messageTimeout = d
	}
}

// ProcessRiskEvents continuously reads risk events from the message queue,
// triages them, and commits offsets only after successful processing.
// Uncommitted messages are redelivered, which is safe because every write in
// the processing sequence is idempotent.
func (p *Processor) ProcessRiskEvents(ctx context.Context) error {
	slog.Info("Starting triage processing loop",
		"recent_risk_threshold", p.policy.RecentRiskThreshold,
		"recent_risk_window", p.policy.RecentRiskWindow,
	)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Triage processing loop stopped")
			return nil
		default:
			event, msg, err := p.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				slog.Error("Failed to read risk event", "error", err)
				p.metrics.RecordError()
				continue
			}

			p.metrics.RecordReceived()

			// Process the message; only commit if processing succeeds.
			// A failed message stays uncommitted and is redelivered.
			if !p.processMessage(ctx, event) {
				continue
			}

			if err := p.reader.CommitMessage(ctx, msg); err != nil {
				slog.Error("Failed to commit offset",
					"user_id", event.UserID,
					"error", err,
				)
				// Offset will be committed on a later interval or redelivered
			}
		}
	}
}

// processMessage runs the classifying→deciding→persisting sequence for one
// delivery under a per-message deadline. The whole sequence is safely
// repeatable: the event insert and decision upsert are keyed idempotent
// writes, and the windowed count reads only durable state up to the event's
// own timestamp. Returns true if the message should be committed.
func (p *Processor) processMessage(ctx context.Context, event *events.RiskFlagged) bool {
	ctx, cancel := context.WithTimeout(ctx, p.messageTimeout)
	defer cancel()

	startTime := time.Now()

	if event.UserID == "" || !event.RiskLevel.Valid() {
		// Malformed events can never succeed; commit to avoid a redelivery
		// loop, but log loudly for the producer to fix.
		slog.Error("Discarding malformed risk event",
			"user_id", event.UserID,
			"risk_level", event.RiskLevel,
		)
		p.metrics.RecordError()
		return true
	}

	slog.Debug("Received risk event",
		"user_id", event.UserID,
		"risk_level", event.RiskLevel,
		"created_at", event.CreatedAt,
	)

	// Durably record the event first so the windowed count below always
	// includes the current event and never depends on in-flight state.
	inserted, err := p.store.InsertRiskEvent(ctx, event)
	if err != nil {
		slog.Error("Failed to store risk event",
			"user_id", event.UserID,
			"error", err,
		)
		p.metrics.RecordError()
		return false
	}
	if !inserted {
		p.metrics.IncrementCustom("events_redelivered")
	}

	// The window ends at the event's own timestamp, not wall-clock now, so
	// the decision is reproducible under redelivery.
	windowedCount := 0
	if event.RiskLevel == risk.LevelHigh {
		windowedCount, err = p.store.CountHighRiskEvents(ctx, event.UserID, p.policy.WindowStart(event.CreatedAt), event.CreatedAt)
		if err != nil {
			slog.Error("Failed to count recent risk events",
				"user_id", event.UserID,
				"error", err,
			)
			p.metrics.RecordError()
			return false
		}
	}

	decision := Decide(event, windowedCount, p.policy, p.now())

	// The upsert is the idempotency boundary: a redelivered event overwrites
	// the same decision record, and an already-escalated decision blocks
	// re-notification.
	recorded, err := p.store.UpsertDecision(ctx, &decision)
	if err != nil {
		if errors.Is(err, ErrDecisionConflict) {
			slog.Error("Decision key conflict, key derivation is broken",
				"decision_id", decision.DecisionID,
				"user_id", decision.UserID,
				"error", err,
			)
		} else {
			slog.Error("Failed to persist triage decision",
				"decision_id", decision.DecisionID,
				"user_id", decision.UserID,
				"error", err,
			)
		}
		p.metrics.RecordError()
		return false
	}

	if decision.Escalated && recorded {
		if !p.escalate(ctx, event, &decision) {
			return false
		}
	} else if decision.Escalated {
		p.metrics.IncrementCustom("escalations_deduplicated")
		slog.Debug("Escalated decision already recorded, skipping re-notification",
			"decision_id", decision.DecisionID,
			"user_id", decision.UserID,
		)
	}

	p.metrics.RecordProcessed(time.Since(startTime))

	slog.Info("Triaged risk event",
		"user_id", event.UserID,
		"risk_level", event.RiskLevel,
		"priority", decision.Priority,
		"escalated", decision.Escalated,
		"windowed_count", windowedCount,
	)

	return true
}

// escalate marks the stored event escalated and publishes the crisis-team
// notification for a newly escalated decision. Returns true on success.
func (p *Processor) escalate(ctx context.Context, event *events.RiskFlagged, decision *Decision) bool {
	if err := p.store.MarkRiskEventEscalated(ctx, event.UserID, event.CreatedAt); err != nil {
		slog.Error("Failed to mark risk event escalated",
			"user_id", event.UserID,
			"error", err,
		)
		p.metrics.RecordError()
		return false
	}

	notification := events.NewEscalationNotification(event, decision.Priority, p.now())
	if err := p.notifier.Publish(ctx, notification); err != nil {
		// Nack for redelivery; the decision is already durable, so the
		// redelivered message will not page twice.
		slog.Error("Failed to publish escalation notification",
			"user_id", event.UserID,
			"priority", decision.Priority,
			"error", err,
		)
		p.metrics.RecordError()
		return false
	}

	p.metrics.RecordPublished()
	p.metrics.IncrementCustom("risks_escalated")
	return true
}
