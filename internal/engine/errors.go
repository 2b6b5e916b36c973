package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/kinetic/internal/model"
)

// RuntimeError is a fatal error detected while a simulation steps.
//
// A RuntimeError always terminates the simulation. It is retained in
// Status().Err and returned from Run.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Step is the step being attempted when the error occurred (1-based).
	// Zero means initialization.
	Step int64

	// Time is the simulated time of the failing step.
	Time model.Time

	// ReactionID identifies the reaction involved, if any.
	ReactionID model.ReactionID

	// Err is the underlying cause.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeConditionEvaluation means a condition could not be evaluated.
	ErrCodeConditionEvaluation RuntimeErrorCode = "CONDITION_EVALUATION"

	// ErrCodeActionExecution means an action failed while mutating state.
	// Earlier actions of the same reaction stay applied.
	ErrCodeActionExecution RuntimeErrorCode = "ACTION_EXECUTION"

	// ErrCodeSchedulingInconsistency means scheduler and dependency graph
	// disagree. This is a programming defect, not a model error.
	ErrCodeSchedulingInconsistency RuntimeErrorCode = "SCHEDULING_INCONSISTENCY"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.ReactionID != "" {
		return fmt.Sprintf("%s: step %d at t=%s (reaction=%s): %v", e.Code, e.Step, e.Time, e.ReactionID, e.Err)
	}
	return fmt.Sprintf("%s: step %d at t=%s: %v", e.Code, e.Step, e.Time, e.Err)
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// IsConditionEvaluationError returns true if err is a RuntimeError with
// ErrCodeConditionEvaluation. Uses errors.As to handle wrapped errors.
func IsConditionEvaluationError(err error) bool {
	return hasCode(err, ErrCodeConditionEvaluation)
}

// IsActionExecutionError returns true if err is a RuntimeError with
// ErrCodeActionExecution.
func IsActionExecutionError(err error) bool {
	return hasCode(err, ErrCodeActionExecution)
}

// IsSchedulingInconsistency returns true if err is a RuntimeError with
// ErrCodeSchedulingInconsistency.
func IsSchedulingInconsistency(err error) bool {
	return hasCode(err, ErrCodeSchedulingInconsistency)
}

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// classify maps the error of a reaction call to a runtime error code.
func classify(err error) RuntimeErrorCode {
	if model.IsConditionError(err) {
		return ErrCodeConditionEvaluation
	}
	return ErrCodeActionExecution
}

// ErrInvalidCommand is wrapped by every CommandError.
var ErrInvalidCommand = errors.New("invalid command")

// CommandError is returned synchronously when a control command is issued
// from a state that does not allow it. The simulation is not affected.
type CommandError struct {
	Command string
	State   State
}

// Error implements the error interface.
func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s not allowed in state %s", ErrInvalidCommand, e.Command, e.State)
}

func (e *CommandError) Unwrap() error {
	return ErrInvalidCommand
}

// IsCommandError returns true if err is (or wraps) a CommandError.
func IsCommandError(err error) bool {
	var ce *CommandError
	return errors.As(err, &ce)
}
