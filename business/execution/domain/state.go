package domain

import "fmt"

// State is a stage in the execution pipeline. Every execution walks the
// states in order; short-circuits (a gate skip, a failed build) jump straight
// to StateRecorded so that exactly one record exists per opportunity.
type State string

const (
	StateGated      State = "gated"
	StateVerified   State = "verified"
	StateBuilt      State = "built"
	StateSigned     State = "signed"
	StateSent       State = "sent"
	StateConfirmed  State = "confirmed"
	StateClassified State = "classified"
	StateRecorded   State = "recorded"
)

// transitions lists, for each state, the states it may move to. Every state
// may also short-circuit to StateRecorded.
var transitions = map[State][]State{
	StateGated:    {StateVerified},
	StateVerified: {StateBuilt},
	StateBuilt:    {StateSigned},
	// A rejected broadcast may be retried with a fresh plan, so the signed
	// state can loop back to built.
	StateSigned:     {StateSent, StateBuilt},
	StateSent:       {StateConfirmed},
	StateConfirmed:  {StateClassified},
	StateClassified: {StateRecorded},
	StateRecorded:   {},
}

// CanTransition reports whether moving from one state to another is legal.
func CanTransition(from, to State) bool {
	if to == StateRecorded && from != StateRecorded {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ErrInvalidTransition is returned when a state change is not allowed.
type ErrInvalidTransition struct {
	From, To State
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid execution state transition %s -> %s", e.From, e.To)
}
