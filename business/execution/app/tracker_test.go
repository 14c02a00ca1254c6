package app

import (
	"context"
	"fmt"
	"testing"

	"github.com/sumitrevolt/flasharb/business/execution/domain"
)

func finalizedRecord(t *testing.T, oppID string, outcome domain.Outcome) *domain.ExecutionRecord {
	t.Helper()
	r := domain.NewExecutionRecord(oppID)
	if err := r.Finalize(outcome); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	return r
}

func TestTrackerEvictsOldestAtCap(t *testing.T) {
	tracker, err := NewTracker(3, nil, testLogger())
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		tracker.Add(ctx, finalizedRecord(t, fmt.Sprintf("opp-%d", i), domain.Skipped("test")))
	}

	if tracker.Len() != 3 {
		t.Fatalf("Len = %d, want 3", tracker.Len())
	}

	recent := tracker.Recent(3)
	wantOrder := []string{"opp-4", "opp-3", "opp-2"}
	for i, want := range wantOrder {
		if recent[i].OpportunityID != want {
			t.Errorf("Recent[%d] = %s, want %s", i, recent[i].OpportunityID, want)
		}
	}
}

func TestTrackerRecentBounds(t *testing.T) {
	tracker, err := NewTracker(10, nil, testLogger())
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}

	ctx := context.Background()
	tracker.Add(ctx, finalizedRecord(t, "opp-a", domain.Skipped("test")))
	tracker.Add(ctx, finalizedRecord(t, "opp-b", domain.Failed("test")))

	if got := len(tracker.Recent(100)); got != 2 {
		t.Errorf("Recent(100) returned %d records, want 2", got)
	}
	if got := len(tracker.Recent(1)); got != 1 {
		t.Errorf("Recent(1) returned %d records, want 1", got)
	}
	if got := len(tracker.Recent(0)); got != 2 {
		t.Errorf("Recent(0) returned %d records, want all", got)
	}
}

func TestTrackerSummarize(t *testing.T) {
	tracker, err := NewTracker(10, nil, testLogger())
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}

	ctx := context.Background()
	tracker.Add(ctx, finalizedRecord(t, "opp-1", domain.Skipped("gated")))
	tracker.Add(ctx, finalizedRecord(t, "opp-2", domain.Skipped("gated")))
	tracker.Add(ctx, finalizedRecord(t, "opp-3", domain.Failed("broadcast rejected")))
	tracker.Add(ctx, finalizedRecord(t, "opp-4", domain.Outcome{Kind: domain.OutcomeSuccess}))

	s := tracker.Summarize()
	if s.Total != 4 {
		t.Errorf("Total = %d, want 4", s.Total)
	}
	if s.ByOutcome[domain.OutcomeSkipped] != 2 {
		t.Errorf("skipped = %d, want 2", s.ByOutcome[domain.OutcomeSkipped])
	}
	if s.ByOutcome[domain.OutcomeFailed] != 1 {
		t.Errorf("failed = %d, want 1", s.ByOutcome[domain.OutcomeFailed])
	}
	if s.ByOutcome[domain.OutcomeSuccess] != 1 {
		t.Errorf("success = %d, want 1", s.ByOutcome[domain.OutcomeSuccess])
	}
}

func TestTrackerDefaultCap(t *testing.T) {
	tracker, err := NewTracker(0, nil, testLogger())
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}
	if tracker.cap != defaultHistoryCap {
		t.Errorf("cap = %d, want %d", tracker.cap, defaultHistoryCap)
	}
}
