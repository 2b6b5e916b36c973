package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/kinetic/internal/model"
	"github.com/roach88/kinetic/internal/scenario"
	"github.com/roach88/kinetic/internal/trace"
)

// maxTraceLines caps the trace printed with a failed assertion.
const maxTraceLines = 20

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string         // Assertion type for categorization
	Expected string         // Human-readable expected outcome
	Actual   string         // Human-readable actual outcome
	Trace    []trace.Record // Trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nTrace:\n")
		for i, r := range e.Trace {
			if i == maxTraceLines {
				fmt.Fprintf(&buf, "  ... %d more\n", len(e.Trace)-maxTraceLines)
				break
			}
			fmt.Fprintf(&buf, "  [%d] t=%s %s@%d\n", r.Step, trace.FormatTime(r.Time), r.Reaction, r.Node)
		}
	}

	return buf.String()
}

// EvaluateAssertions runs every assertion against a result and returns the
// failure messages.
func EvaluateAssertions(result *Result, assertions []scenario.Assertion) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case scenario.AssertTraceContains:
			err = assertTraceContains(result.Trace, a)
		case scenario.AssertTraceOrder:
			err = assertTraceOrder(result.Trace, a)
		case scenario.AssertTraceCount:
			err = assertTraceCount(result.Trace, a)
		case scenario.AssertFinalState:
			err = assertFinalState(result.Final, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return errs
}

// assertTraceContains checks that the reaction fired at least once, on the
// given node if one is set.
func assertTraceContains(tr []trace.Record, a scenario.Assertion) error {
	for _, r := range tr {
		if string(r.Reaction) == a.Reaction && (a.Node == 0 || int64(r.Node) == a.Node) {
			return nil
		}
	}

	expected := "reaction " + a.Reaction
	if a.Node != 0 {
		expected += fmt.Sprintf(" on node %d", a.Node)
	}
	return &AssertionError{
		Type:     scenario.AssertTraceContains,
		Expected: expected,
		Actual:   "not found in trace",
		Trace:    tr,
	}
}

// assertTraceOrder checks that reactions first fire in the specified order.
// Firings don't need to be consecutive (intervening steps are allowed).
func assertTraceOrder(tr []trace.Record, a scenario.Assertion) error {
	// Step 1: Find first position of each expected reaction
	positions := make(map[string]int)
	for i, r := range tr {
		id := string(r.Reaction)
		if positions[id] == 0 {
			positions[id] = i + 1 // 1-indexed for readability
		}
	}

	// Step 2: Verify all reactions found
	for _, id := range a.Reactions {
		if positions[id] == 0 {
			return &AssertionError{
				Type:     scenario.AssertTraceOrder,
				Expected: fmt.Sprintf("all reactions present: %v", a.Reactions),
				Actual:   fmt.Sprintf("missing reaction: %s", id),
				Trace:    tr,
			}
		}
	}

	// Step 3: Verify order
	for i := 1; i < len(a.Reactions); i++ {
		prev, curr := a.Reactions[i-1], a.Reactions[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     scenario.AssertTraceOrder,
				Expected: fmt.Sprintf("reactions in order: %v", a.Reactions),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: tr,
			}
		}
	}

	return nil
}

// assertTraceCount checks that the reaction fired exactly Count times.
func assertTraceCount(tr []trace.Record, a scenario.Assertion) error {
	count := 0
	for _, r := range tr {
		if string(r.Reaction) == a.Reaction {
			count++
		}
	}

	if count != a.Count {
		return &AssertionError{
			Type:     scenario.AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", a.Count, a.Reaction),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    tr,
		}
	}
	return nil
}

// assertFinalState checks one concentration in the final environment.
func assertFinalState(final map[model.NodeID]map[model.Molecule]float64, a scenario.Assertion) error {
	contents, ok := final[model.NodeID(a.Node)]
	if !ok {
		return &AssertionError{
			Type:     scenario.AssertFinalState,
			Expected: fmt.Sprintf("node %d present", a.Node),
			Actual:   "node not found",
		}
	}

	got := contents[model.NewMolecule(a.Molecule)]
	if got != a.Value {
		return &AssertionError{
			Type:     scenario.AssertFinalState,
			Expected: fmt.Sprintf("%s = %g on node %d", a.Molecule, a.Value, a.Node),
			Actual:   fmt.Sprintf("%s = %g", a.Molecule, got),
		}
	}
	return nil
}

// checkExpect compares the run outcome with the expect block. A run that
// ended in a runtime error fails unless the block expects reason "error".
func checkExpect(exp *scenario.Expect, r *Result) []string {
	s := r.Status
	if exp == nil {
		if s.Err != nil {
			return []string{fmt.Sprintf("run failed: %v", s.Err)}
		}
		return nil
	}

	var errs []string
	mismatch := func(field string, want, got any) {
		errs = append(errs, fmt.Sprintf("expect.%s: want %v, got %v", field, want, got))
	}

	if exp.State != "" && exp.State != s.State.String() {
		mismatch("state", exp.State, s.State)
	}
	if exp.Reason != "" && exp.Reason != string(s.Reason) {
		mismatch("reason", exp.Reason, s.Reason)
	}
	if exp.Steps != nil && *exp.Steps != s.Step {
		mismatch("steps", *exp.Steps, s.Step)
	}
	if exp.Final != nil && model.Time(*exp.Final) != s.Time {
		mismatch("final", *exp.Final, s.Time)
	}
	if exp.Nodes != nil && *exp.Nodes != len(r.Final) {
		mismatch("nodes", *exp.Nodes, len(r.Final))
	}
	if exp.Digest != "" && exp.Digest != r.Digest {
		mismatch("digest", exp.Digest, r.Digest)
	}
	if s.Err != nil && exp.Reason != string(s.Reason) {
		errs = append(errs, fmt.Sprintf("run failed: %v", s.Err))
	}
	return errs
}
