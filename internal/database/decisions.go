package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/sukoon-health/risk-pipeline/internal/triage"
)

// UpsertDecision records a triage decision under its deterministic key.
// The conditional upsert is the pipeline's idempotency boundary:
//
//   - a new key inserts the decision;
//   - an existing non-escalated decision is overwritten (last write wins,
//     which is safe because the decision is a pure function of durable
//     inputs);
//   - an existing escalated decision is left untouched and the method
//     returns false, which tells the caller to skip re-notification.
//
// Returns true if the decision was newly recorded or replaced a
// non-escalated decision.
func (db *DB) UpsertDecision(ctx context.Context, d *triage.Decision) (bool, error) {
	query := `
		INSERT INTO triage_decisions (decision_id, user_id, event_created_at, priority, escalated, triaged_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (decision_id) DO UPDATE
		SET priority = EXCLUDED.priority,
		    escalated = EXCLUDED.escalated,
		    triaged_at = EXCLUDED.triaged_at
		WHERE triage_decisions.escalated = false
		RETURNING user_id
	`

	var storedUserID string
	err := db.conn.QueryRowContext(ctx, query,
		d.DecisionID,
		d.UserID,
		d.EventCreatedAt,
		string(d.Priority),
		d.Escalated,
		d.TriagedAt,
	).Scan(&storedUserID)

	if err != nil {
		if err == sql.ErrNoRows {
			// Conflict with an already-escalated decision: nothing written.
			slog.Debug("Escalated decision already exists, skipping",
				"decision_id", d.DecisionID,
				"user_id", d.UserID,
			)
			return false, nil
		}
		return false, fmt.Errorf("failed to upsert triage decision: %w", err)
	}

	if storedUserID != d.UserID {
		return false, fmt.Errorf("%w: decision %s stored for user %s, computed for user %s",
			triage.ErrDecisionConflict, d.DecisionID, storedUserID, d.UserID)
	}

	slog.Info("Recorded triage decision",
		"decision_id", d.DecisionID,
		"user_id", d.UserID,
		"priority", d.Priority,
		"escalated", d.Escalated,
	)

	return true, nil
}
