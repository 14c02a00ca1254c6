package domain

import (
	"time"

	"github.com/google/uuid"
)

// ExecutionRecord is the audit trail for one opportunity. Exactly one record
// exists per opportunity regardless of where the pipeline stops.
type ExecutionRecord struct {
	ID            string
	OpportunityID string
	State         State
	Outcome       *Outcome
	TxHash        string
	Attempts      int
	Error         string
	StageTimes    map[State]time.Time
	CreatedAt     time.Time
	FinalizedAt   time.Time
}

// NewExecutionRecord opens a record for an opportunity in the gated state.
func NewExecutionRecord(opportunityID string) *ExecutionRecord {
	now := time.Now()
	return &ExecutionRecord{
		ID:            uuid.NewString(),
		OpportunityID: opportunityID,
		State:         StateGated,
		StageTimes:    map[State]time.Time{StateGated: now},
		CreatedAt:     now,
	}
}

// Transition moves the record to the next state, rejecting moves the state
// machine does not allow.
func (r *ExecutionRecord) Transition(to State) error {
	if !CanTransition(r.State, to) {
		return &ErrInvalidTransition{From: r.State, To: to}
	}
	r.State = to
	r.StageTimes[to] = time.Now()
	return nil
}

// Finalize short-circuits the record to its terminal state with the given
// outcome. Any state may finalize; a finalized record never changes again.
func (r *ExecutionRecord) Finalize(outcome Outcome) error {
	if err := r.Transition(StateRecorded); err != nil {
		return err
	}
	r.Outcome = &outcome
	r.FinalizedAt = time.Now()
	return nil
}

// Finalized reports whether the record has reached its terminal state.
func (r *ExecutionRecord) Finalized() bool {
	return r.State == StateRecorded
}

// Duration returns the wall time from creation to finalization, or the time
// elapsed so far for an in-flight record.
func (r *ExecutionRecord) Duration() time.Duration {
	if r.Finalized() {
		return r.FinalizedAt.Sub(r.CreatedAt)
	}
	return time.Since(r.CreatedAt)
}
