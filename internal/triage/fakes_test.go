package triage

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/sukoon-health/risk-pipeline/internal/events"
	"github.com/sukoon-health/risk-pipeline/internal/risk"
)

// FakeReader is a test fake for MessageReader.
type FakeReader struct {
	Messages   []*events.RiskFlagged
	ReadErr    error
	CommitErr  error
	ReadIndex  int
	Committed  []kafka.Message
	ReadCalled int
}

func (f *FakeReader) ReadMessage(ctx context.Context) (*events.RiskFlagged, *kafka.Message, error) {
	f.ReadCalled++
	if f.ReadErr != nil {
		return nil, nil, f.ReadErr
	}
	if f.ReadIndex >= len(f.Messages) {
		return nil, nil, errors.New("no more messages")
	}
	msg := f.Messages[f.ReadIndex]
	f.ReadIndex++
	return msg, &kafka.Message{Offset: int64(f.ReadIndex)}, nil
}

func (f *FakeReader) CommitMessage(ctx context.Context, msg *kafka.Message) error {
	if f.CommitErr != nil {
		return f.CommitErr
	}
	f.Committed = append(f.Committed, *msg)
	return nil
}

func (f *FakeReader) Close() error {
	return nil
}

// FakeNotifier is a test fake for NotificationPublisher.
type FakeNotifier struct {
	Published  []*events.Notification
	PublishErr error
}

func (f *FakeNotifier) Publish(ctx context.Context, notification *events.Notification) error {
	if f.PublishErr != nil {
		return f.PublishErr
	}
	f.Published = append(f.Published, notification)
	return nil
}

func (f *FakeNotifier) Close() error {
	return nil
}

// FakeStore is an in-memory test fake for RiskStore. It mirrors the durable
// semantics: keyed event inserts, windowed counts over stored events, and the
// guarded decision upsert.
type FakeStore struct {
	Events    map[string]*events.RiskFlagged
	Decisions map[string]*Decision
	Escalated map[string]bool

	InsertErr error
	CountErr  error
	UpsertErr error
	MarkErr   error
}

func NewFakeStore() *FakeStore {
	return &FakeStore{
		Events:    make(map[string]*events.RiskFlagged),
		Decisions: make(map[string]*Decision),
		Escalated: make(map[string]bool),
	}
}

func eventKey(userID string, createdAt time.Time) string {
	return userID + "|" + createdAt.UTC().Format(time.RFC3339Nano)
}

func (f *FakeStore) InsertRiskEvent(ctx context.Context, event *events.RiskFlagged) (bool, error) {
	if f.InsertErr != nil {
		return false, f.InsertErr
	}
	key := eventKey(event.UserID, event.CreatedAt)
	if _, exists := f.Events[key]; exists {
		return false, nil
	}
	f.Events[key] = event
	return true, nil
}

func (f *FakeStore) CountHighRiskEvents(ctx context.Context, userID string, from, to time.Time) (int, error) {
	if f.CountErr != nil {
		return 0, f.CountErr
	}
	count := 0
	for _, e := range f.Events {
		if e.UserID != userID {
			continue
		}
		if !e.RiskLevel.AtLeast(risk.LevelHigh) {
			continue
		}
		if e.CreatedAt.After(from) && !e.CreatedAt.After(to) {
			count++
		}
	}
	return count, nil
}

func (f *FakeStore) UpsertDecision(ctx context.Context, d *Decision) (bool, error) {
	if f.UpsertErr != nil {
		return false, f.UpsertErr
	}
	if existing, exists := f.Decisions[d.DecisionID]; exists && existing.Escalated {
		return false, nil
	}
	copied := *d
	f.Decisions[d.DecisionID] = &copied
	return true, nil
}

func (f *FakeStore) MarkRiskEventEscalated(ctx context.Context, userID string, createdAt time.Time) error {
	if f.MarkErr != nil {
		return f.MarkErr
	}
	f.Escalated[eventKey(userID, createdAt)] = true
	return nil
}

func (f *FakeStore) Close() error {
	return nil
}

// FakeMetrics is a test fake for MetricsRecorder that tracks calls.
type FakeMetrics struct {
	ReceivedCount    int
	ProcessedCount   int
	PublishedCount   int
	ErrorCount       int
	CustomIncrements map[string]int
}

func NewFakeMetrics() *FakeMetrics {
	return &FakeMetrics{
		CustomIncrements: make(map[string]int),
	}
}

func (f *FakeMetrics) RecordReceived() {
	f.ReceivedCount++
}

func (f *FakeMetrics) RecordProcessed(latency time.Duration) {
	f.ProcessedCount++
}

func (f *FakeMetrics) RecordPublished() {
	f.PublishedCount++
}

func (f *FakeMetrics) RecordError() {
	f.ErrorCount++
}

func (f *FakeMetrics) IncrementCustom(name string) {
	f.CustomIncrements[name]++
}
