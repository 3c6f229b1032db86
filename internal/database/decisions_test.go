package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/sukoon-health/risk-pipeline/internal/risk"
	"github.com/sukoon-health/risk-pipeline/internal/triage"
)

func testDecision() *triage.Decision {
	eventAt := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	return &triage.Decision{
		DecisionID:     triage.DecisionID("user-1", eventAt),
		UserID:         "user-1",
		EventCreatedAt: eventAt,
		Priority:       risk.PriorityUrgent,
		Escalated:      true,
		TriagedAt:      time.Date(2026, 3, 15, 10, 0, 5, 0, time.UTC),
	}
}

func TestDB_UpsertDecision(t *testing.T) {
	d := testDecision()

	tests := []struct {
		name         string
		setupMock    func(mock sqlmock.Sqlmock)
		wantRecorded bool
		wantErr      bool
		wantConflict bool
	}{
		{
			name: "new decision recorded",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("INSERT INTO triage_decisions").
					WithArgs(d.DecisionID, d.UserID, d.EventCreatedAt, "urgent", true, d.TriagedAt).
					WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("user-1"))
			},
			wantRecorded: true,
		},
		{
			name: "already escalated decision untouched",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("INSERT INTO triage_decisions").
					WithArgs(d.DecisionID, d.UserID, d.EventCreatedAt, "urgent", true, d.TriagedAt).
					WillReturnError(sql.ErrNoRows)
			},
			wantRecorded: false,
		},
		{
			name: "key conflict with different user",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("INSERT INTO triage_decisions").
					WithArgs(d.DecisionID, d.UserID, d.EventCreatedAt, "urgent", true, d.TriagedAt).
					WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("someone-else"))
			},
			wantErr:      true,
			wantConflict: true,
		},
		{
			name: "database error",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("INSERT INTO triage_decisions").
					WillReturnError(errors.New("connection refused"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			tt.setupMock(mock)

			recorded, err := db.UpsertDecision(context.Background(), d)
			if (err != nil) != tt.wantErr {
				t.Errorf("UpsertDecision() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantConflict && !errors.Is(err, triage.ErrDecisionConflict) {
				t.Errorf("UpsertDecision() error = %v, want ErrDecisionConflict", err)
			}
			if recorded != tt.wantRecorded {
				t.Errorf("UpsertDecision() recorded = %v, want %v", recorded, tt.wantRecorded)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unmet expectations: %v", err)
			}
		})
	}
}
