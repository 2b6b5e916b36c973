package model

import (
	"errors"
	"fmt"
)

// ConditionError is returned when a condition cannot be evaluated.
type ConditionError struct {
	Reaction ReactionID
	Index    int // position of the condition in declaration order
	Err      error
}

func (e *ConditionError) Error() string {
	return fmt.Sprintf("reaction %s: condition %d: %v", e.Reaction, e.Index, e.Err)
}

func (e *ConditionError) Unwrap() error {
	return e.Err
}

// ActionError is returned when an action fails while mutating state.
// Actions before Index have already been applied; there is no rollback.
type ActionError struct {
	Reaction ReactionID
	Index    int
	Err      error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("reaction %s: action %d: %v", e.Reaction, e.Index, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// IsConditionError reports whether err wraps a ConditionError.
func IsConditionError(err error) bool {
	var ce *ConditionError
	return errors.As(err, &ce)
}

// IsActionError reports whether err wraps an ActionError.
func IsActionError(err error) bool {
	var ae *ActionError
	return errors.As(err, &ae)
}

// ErrNodeNotFound is returned by environments for unknown node IDs.
var ErrNodeNotFound = errors.New("node not found")

// ErrLayerNotFound is returned when a condition reads a missing layer.
var ErrLayerNotFound = errors.New("layer not found")
