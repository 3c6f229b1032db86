package triage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sukoon-health/risk-pipeline/internal/events"
	"github.com/sukoon-health/risk-pipeline/internal/risk"
)

func newTestProcessor(reader *FakeReader, notifier *FakeNotifier, store *FakeStore, metrics *FakeMetrics) *Processor {
	p := NewProcessorWithOptions(reader, notifier, store, DefaultPolicy(), metrics)
	p.now = func() time.Time { return testNow }
	return p
}

func TestNewProcessor_Defaults(t *testing.T) {
	p := NewProcessor(&FakeReader{}, &FakeNotifier{}, NewFakeStore())
	if p == nil {
		t.Fatal("NewProcessor() returned nil")
	}
	if p.policy != DefaultPolicy() {
		t.Errorf("policy = %+v, want default", p.policy)
	}
	if p.messageTimeout != DefaultMessageTimeout {
		t.Errorf("messageTimeout = %v, want %v", p.messageTimeout, DefaultMessageTimeout)
	}
	if _, ok := p.metrics.(*NoOpMetrics); !ok {
		t.Error("nil metrics should default to NoOpMetrics")
	}
}

func TestSetMessageTimeout(t *testing.T) {
	p := NewProcessor(&FakeReader{}, &FakeNotifier{}, NewFakeStore())
	p.SetMessageTimeout(5 * time.Second)
	if p.messageTimeout != 5*time.Second {
		t.Errorf("messageTimeout = %v, want 5s", p.messageTimeout)
	}
	p.SetMessageTimeout(0)
	if p.messageTimeout != 5*time.Second {
		t.Error("non-positive timeout should be ignored")
	}
}

func TestProcessMessage_CriticalEscalates(t *testing.T) {
	store := NewFakeStore()
	notifier := &FakeNotifier{}
	metrics := NewFakeMetrics()
	p := newTestProcessor(&FakeReader{}, notifier, store, metrics)

	createdAt := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	event := riskEvent("user-1", risk.LevelCritical, createdAt)

	if !p.processMessage(context.Background(), event) {
		t.Fatal("processMessage() should succeed")
	}

	decision, exists := store.Decisions[DecisionID("user-1", createdAt)]
	if !exists {
		t.Fatal("decision was not recorded")
	}
	if decision.Priority != risk.PriorityUrgent || !decision.Escalated {
		t.Errorf("decision = %+v, want urgent/escalated", decision)
	}

	if len(notifier.Published) != 1 {
		t.Fatalf("published %d notifications, want 1", len(notifier.Published))
	}
	n := notifier.Published[0]
	if n.UserID != "user-1" || n.Priority != risk.PriorityUrgent {
		t.Errorf("notification = %+v", n)
	}
	if n.Message != "Risk escalation: test reason" {
		t.Errorf("Message = %q", n.Message)
	}

	if !store.Escalated[eventKey("user-1", createdAt)] {
		t.Error("stored risk event was not marked escalated")
	}
	if metrics.CustomIncrements["risks_escalated"] != 1 {
		t.Errorf("risks_escalated = %d, want 1", metrics.CustomIncrements["risks_escalated"])
	}
	if metrics.PublishedCount != 1 {
		t.Errorf("PublishedCount = %d, want 1", metrics.PublishedCount)
	}
}

func TestProcessMessage_SingleHighNotEscalated(t *testing.T) {
	store := NewFakeStore()
	notifier := &FakeNotifier{}
	p := newTestProcessor(&FakeReader{}, notifier, store, NewFakeMetrics())

	createdAt := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	event := riskEvent("user-1", risk.LevelHigh, createdAt)

	if !p.processMessage(context.Background(), event) {
		t.Fatal("processMessage() should succeed")
	}

	decision := store.Decisions[DecisionID("user-1", createdAt)]
	if decision == nil {
		t.Fatal("decision was not recorded")
	}
	if decision.Escalated {
		t.Error("a single high event should not escalate")
	}
	if decision.Priority != risk.PriorityMedium {
		t.Errorf("Priority = %v, want medium", decision.Priority)
	}
	if len(notifier.Published) != 0 {
		t.Errorf("published %d notifications, want 0", len(notifier.Published))
	}
}

func TestProcessMessage_HighEscalatesAtThreshold(t *testing.T) {
	store := NewFakeStore()
	notifier := &FakeNotifier{}
	p := newTestProcessor(&FakeReader{}, notifier, store, NewFakeMetrics())
	ctx := context.Background()

	base := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	// First two high events within the window: no escalation yet.
	for i := 0; i < 2; i++ {
		event := riskEvent("user-1", risk.LevelHigh, base.Add(time.Duration(i)*time.Hour))
		if !p.processMessage(ctx, event) {
			t.Fatalf("processMessage() event %d failed", i)
		}
	}
	if len(notifier.Published) != 0 {
		t.Fatalf("published %d notifications before threshold, want 0", len(notifier.Published))
	}

	// Third high event reaches the threshold (the count includes itself).
	third := riskEvent("user-1", risk.LevelHigh, base.Add(2*time.Hour))
	if !p.processMessage(ctx, third) {
		t.Fatal("processMessage() third event failed")
	}

	decision := store.Decisions[DecisionID("user-1", third.CreatedAt)]
	if decision == nil || !decision.Escalated {
		t.Fatalf("third event should escalate, decision = %+v", decision)
	}
	if decision.Priority != risk.PriorityHigh {
		t.Errorf("Priority = %v, want high", decision.Priority)
	}
	if len(notifier.Published) != 1 {
		t.Errorf("published %d notifications, want 1", len(notifier.Published))
	}
}

func TestProcessMessage_OldEventsOutsideWindow(t *testing.T) {
	store := NewFakeStore()
	notifier := &FakeNotifier{}
	p := newTestProcessor(&FakeReader{}, notifier, store, NewFakeMetrics())
	ctx := context.Background()

	current := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	// Two high events 8 days before the current one: outside the 7-day window.
	for i := 0; i < 2; i++ {
		old := riskEvent("user-1", risk.LevelHigh, current.Add(-8*24*time.Hour).Add(time.Duration(i)*time.Hour))
		if !p.processMessage(ctx, old) {
			t.Fatalf("processMessage() old event %d failed", i)
		}
	}

	event := riskEvent("user-1", risk.LevelHigh, current)
	if !p.processMessage(ctx, event) {
		t.Fatal("processMessage() failed")
	}

	decision := store.Decisions[DecisionID("user-1", current)]
	if decision == nil {
		t.Fatal("decision was not recorded")
	}
	if decision.Escalated {
		t.Error("events outside the window must not count toward escalation")
	}
}

func TestProcessMessage_RedeliveryDoesNotDoubleNotify(t *testing.T) {
	store := NewFakeStore()
	notifier := &FakeNotifier{}
	metrics := NewFakeMetrics()
	p := newTestProcessor(&FakeReader{}, notifier, store, metrics)
	ctx := context.Background()

	createdAt := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	event := riskEvent("user-1", risk.LevelCritical, createdAt)

	for i := 0; i < 3; i++ {
		if !p.processMessage(ctx, event) {
			t.Fatalf("processMessage() delivery %d failed", i)
		}
	}

	if len(store.Decisions) != 1 {
		t.Errorf("decisions = %d, want exactly 1", len(store.Decisions))
	}
	if len(notifier.Published) != 1 {
		t.Errorf("published %d notifications across redeliveries, want 1", len(notifier.Published))
	}
	if metrics.CustomIncrements["events_redelivered"] != 2 {
		t.Errorf("events_redelivered = %d, want 2", metrics.CustomIncrements["events_redelivered"])
	}
	if metrics.CustomIncrements["escalations_deduplicated"] != 2 {
		t.Errorf("escalations_deduplicated = %d, want 2", metrics.CustomIncrements["escalations_deduplicated"])
	}
}

func TestProcessMessage_MalformedEventCommitted(t *testing.T) {
	store := NewFakeStore()
	metrics := NewFakeMetrics()
	p := newTestProcessor(&FakeReader{}, &FakeNotifier{}, store, metrics)
	ctx := context.Background()

	malformed := []struct {
		name  string
		event *events.RiskFlagged
	}{
		{"empty user id", riskEvent("", risk.LevelHigh, testNow)},
		{"invalid risk level", riskEvent("user-1", risk.Level(99), testNow)},
	}

	for _, tt := range malformed {
		t.Run(tt.name, func(t *testing.T) {
			if !p.processMessage(ctx, tt.event) {
				t.Error("malformed events must be committed to avoid a redelivery loop")
			}
		})
	}

	if len(store.Events) != 0 {
		t.Errorf("malformed events must not be stored, got %d", len(store.Events))
	}
	if metrics.ErrorCount != 2 {
		t.Errorf("ErrorCount = %d, want 2", metrics.ErrorCount)
	}
}

func TestProcessMessage_StoreFailureNacks(t *testing.T) {
	createdAt := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	event := riskEvent("user-1", risk.LevelCritical, createdAt)
	ctx := context.Background()

	t.Run("insert failure", func(t *testing.T) {
		store := NewFakeStore()
		store.InsertErr = errors.New("db down")
		p := newTestProcessor(&FakeReader{}, &FakeNotifier{}, store, NewFakeMetrics())
		if p.processMessage(ctx, event) {
			t.Error("insert failure should nack for redelivery")
		}
	})

	t.Run("count failure", func(t *testing.T) {
		store := NewFakeStore()
		store.CountErr = errors.New("db down")
		p := newTestProcessor(&FakeReader{}, &FakeNotifier{}, store, NewFakeMetrics())
		highEvent := riskEvent("user-1", risk.LevelHigh, createdAt)
		if p.processMessage(ctx, highEvent) {
			t.Error("count failure should nack for redelivery")
		}
	})

	t.Run("upsert failure", func(t *testing.T) {
		store := NewFakeStore()
		store.UpsertErr = errors.New("db down")
		p := newTestProcessor(&FakeReader{}, &FakeNotifier{}, store, NewFakeMetrics())
		if p.processMessage(ctx, event) {
			t.Error("upsert failure should nack for redelivery")
		}
	})

	t.Run("mark escalated failure", func(t *testing.T) {
		store := NewFakeStore()
		store.MarkErr = errors.New("db down")
		p := newTestProcessor(&FakeReader{}, &FakeNotifier{}, store, NewFakeMetrics())
		if p.processMessage(ctx, event) {
			t.Error("mark failure should nack for redelivery")
		}
	})
}

func TestProcessMessage_NotifyFailureNacks(t *testing.T) {
	store := NewFakeStore()
	notifier := &FakeNotifier{PublishErr: errors.New("kafka down")}
	p := newTestProcessor(&FakeReader{}, notifier, store, NewFakeMetrics())

	createdAt := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	event := riskEvent("user-1", risk.LevelCritical, createdAt)

	if p.processMessage(context.Background(), event) {
		t.Error("notification publish failure should nack for redelivery")
	}

	// The decision itself is durable even though notification failed.
	if len(store.Decisions) != 1 {
		t.Errorf("decisions = %d, want 1", len(store.Decisions))
	}
}

func TestProcessMessage_CountOnlyQueriedForHigh(t *testing.T) {
	store := NewFakeStore()
	store.CountErr = errors.New("must not be called")
	p := newTestProcessor(&FakeReader{}, &FakeNotifier{}, store, NewFakeMetrics())

	// Critical events skip the windowed count entirely.
	event := riskEvent("user-1", risk.LevelCritical, testNow)
	if !p.processMessage(context.Background(), event) {
		t.Error("critical event should process without querying the window")
	}
}

func TestProcessRiskEvents_CommitsAfterProcessing(t *testing.T) {
	store := NewFakeStore()
	notifier := &FakeNotifier{}

	createdAt := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	fakeReader := &FakeReader{
		Messages: []*events.RiskFlagged{
			riskEvent("user-1", risk.LevelCritical, createdAt),
			riskEvent("user-2", risk.LevelHigh, createdAt),
		},
	}

	p := newTestProcessor(fakeReader, notifier, store, NewFakeMetrics())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- p.ProcessRiskEvents(ctx)
	}()

	deadline := time.After(2 * time.Second)
	for len(fakeReader.Committed) < 2 {
		select {
		case <-deadline:
			cancel()
			t.Fatalf("committed %d messages before deadline, want 2", len(fakeReader.Committed))
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	if err := <-done; err != nil {
		t.Errorf("ProcessRiskEvents() error = %v", err)
	}

	if len(store.Decisions) != 2 {
		t.Errorf("decisions = %d, want 2", len(store.Decisions))
	}
	if len(notifier.Published) != 1 {
		t.Errorf("published %d notifications, want 1 (only the critical event)", len(notifier.Published))
	}
}

func TestProcessRiskEvents_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newTestProcessor(&FakeReader{}, &FakeNotifier{}, NewFakeStore(), NewFakeMetrics())
	if err := p.ProcessRiskEvents(ctx); err != nil {
		t.Errorf("ProcessRiskEvents() on canceled context error = %v, want nil", err)
	}
}

func TestNoOpMetrics(t *testing.T) {
	m := &NoOpMetrics{}
	m.RecordReceived()
	m.RecordProcessed(time.Second)
	m.RecordPublished()
	m.RecordError()
	m.IncrementCustom("anything")
}
