package harness

import (
	"github.com/roach88/kinetic/internal/engine"
	"github.com/roach88/kinetic/internal/model"
	"github.com/roach88/kinetic/internal/trace"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every expectation and assertion holds.
	Pass bool `json:"pass"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Trace contains every executed step in order.
	Trace []trace.Record `json:"trace"`

	// Status is the final engine status.
	Status engine.Status `json:"-"`

	// Digest is the trace digest.
	Digest string `json:"digest"`

	// RunID identifies the run in the store.
	RunID string `json:"run_id"`

	// Final holds the contents of every node left at the end of the run.
	Final map[model.NodeID]map[model.Molecule]float64 `json:"-"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
		Trace:  []trace.Record{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
