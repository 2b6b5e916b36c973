package engine

import "github.com/roach88/kinetic/internal/model"

// Bounds limits how far a simulation may run.
//
// Bounds are checked at the top of every step, before the minimum reaction
// executes. A bound that is hit terminates the simulation without running
// that reaction.
type Bounds struct {
	// MaxSteps is the number of steps after which the run stops.
	// Zero means no step bound.
	MaxSteps int64

	// EndTime stops the run before any reaction scheduled after it.
	// Zero means no time bound.
	EndTime model.Time
}

// Check returns the termination reason if the next step must not run.
//
// completed is the number of steps already executed; next is the time of the
// reaction about to execute.
func (b Bounds) Check(completed int64, next model.Time) (Reason, bool) {
	if b.MaxSteps > 0 && completed >= b.MaxSteps {
		return ReasonStepBound, true
	}
	if b.EndTime > 0 && next.After(b.EndTime) {
		return ReasonTimeBound, true
	}
	return "", false
}

// Unbounded reports whether neither bound is set.
func (b Bounds) Unbounded() bool {
	return b.MaxSteps <= 0 && b.EndTime <= 0
}
