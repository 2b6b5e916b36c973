package engine

import "github.com/roach88/kinetic/internal/model"

// State is the controller state.
type State int

const (
	StateUninitialized State = iota
	StateReady
	StateRunning
	StatePaused
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// ParseState is the inverse of State.String.
func ParseState(s string) (State, bool) {
	for st := StateUninitialized; st <= StateTerminated; st++ {
		if st.String() == s {
			return st, true
		}
	}
	return 0, false
}

// Reason says why a simulation terminated.
type Reason string

const (
	ReasonRequested Reason = "requested"  // Terminate was called
	ReasonStepBound Reason = "step-bound" // MaxSteps reached
	ReasonTimeBound Reason = "time-bound" // next reaction after EndTime
	ReasonExhausted Reason = "exhausted"  // no reaction can fire again
	ReasonError     Reason = "error"      // fatal RuntimeError
	ReasonCancelled Reason = "cancelled"  // Run's context was done
)

// Status is a snapshot of the controller.
type Status struct {
	State State
	// Reason is set once State is StateTerminated.
	Reason Reason
	Time   model.Time
	// Step is the number of completed steps. A step that fails is not
	// counted: after a fatal error on step n, Step is n-1 and the
	// RuntimeError carries Step n.
	Step int64
	// Err is the fatal error that terminated the run, if any.
	Err error
}
