package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sukoon-health/risk-pipeline/internal/events"
	"github.com/sukoon-health/risk-pipeline/internal/risk"
)

// RiskEventRecord is a stored risk event row.
type RiskEventRecord struct {
	UserID    string     `json:"userId"`
	CreatedAt time.Time  `json:"createdAt"`
	RiskLevel risk.Level `json:"riskLevel"`
	Reason    string     `json:"reason"`
	TextRef   string     `json:"textUri"`
	Escalated bool       `json:"escalated"`
}

// InsertRiskEvent durably records a risk event with idempotency protection.
// Uses INSERT ... ON CONFLICT DO NOTHING so a redelivered event maps onto
// the existing row. Returns true if a new row was inserted.
//
// The escalated flag is always stored false here; only the triage decision
// sets it, via MarkRiskEventEscalated.
func (db *DB) InsertRiskEvent(ctx context.Context, event *events.RiskFlagged) (bool, error) {
	query := `
		INSERT INTO risk_events (user_id, created_at, risk_level, reason, text_uri, escalated)
		VALUES ($1, $2, $3, $4, $5, false)
		ON CONFLICT (user_id, created_at) DO NOTHING
	`

	result, err := db.conn.ExecContext(ctx, query,
		event.UserID,
		event.CreatedAt.UTC(),
		event.RiskLevel.String(),
		event.Reason,
		event.TextRef,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert risk event: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result: %w", err)
	}

	if rows == 0 {
		slog.Debug("Risk event already exists, skipping",
			"user_id", event.UserID,
			"created_at", event.CreatedAt,
		)
		return false, nil
	}

	slog.Debug("Inserted risk event",
		"user_id", event.UserID,
		"risk_level", event.RiskLevel,
	)
	return true, nil
}

// CountHighRiskEvents counts stored high/critical risk events for the user
// with created_at in (from, to]. The upper bound is the originating event's
// own timestamp, so counts only ever reflect durably stored history.
func (db *DB) CountHighRiskEvents(ctx context.Context, userID string, from, to time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM risk_events
		WHERE user_id = $1
		  AND risk_level IN ('high', 'critical')
		  AND created_at > $2
		  AND created_at <= $3
	`

	var count int
	err := db.conn.QueryRowContext(ctx, query, userID, from.UTC(), to.UTC()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count high risk events: %w", err)
	}

	return count, nil
}

// MarkRiskEventEscalated sets the escalated flag on the stored risk event
// identified by (userID, createdAt). Repeating the update is harmless.
func (db *DB) MarkRiskEventEscalated(ctx context.Context, userID string, createdAt time.Time) error {
	query := `
		UPDATE risk_events
		SET escalated = true
		WHERE user_id = $1 AND created_at = $2
	`

	if _, err := db.conn.ExecContext(ctx, query, userID, createdAt.UTC()); err != nil {
		return fmt.Errorf("failed to mark risk event escalated: %w", err)
	}
	return nil
}

// RecentRiskEvents returns the user's stored risk events, newest first.
func (db *DB) RecentRiskEvents(ctx context.Context, userID string, limit int) ([]RiskEventRecord, error) {
	query := `
		SELECT user_id, created_at, risk_level, reason, text_uri, escalated
		FROM risk_events
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := db.conn.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query risk events: %w", err)
	}
	defer rows.Close()

	var records []RiskEventRecord
	for rows.Next() {
		var rec RiskEventRecord
		var level string
		if err := rows.Scan(&rec.UserID, &rec.CreatedAt, &level, &rec.Reason, &rec.TextRef, &rec.Escalated); err != nil {
			return nil, fmt.Errorf("failed to scan risk event: %w", err)
		}
		rec.RiskLevel, err = risk.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("stored risk event has invalid level: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate risk events: %w", err)
	}

	return records, nil
}
