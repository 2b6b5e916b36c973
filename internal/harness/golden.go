package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/kinetic/internal/scenario"
	"github.com/roach88/kinetic/internal/trace"
)

// Snapshot captures the observable outcome of a scenario run.
// All fields use canonical JSON serialization for deterministic comparison.
type Snapshot struct {
	Scenario string
	Seed     int64
	Result   *Result
}

// toCanonicalMap converts a Snapshot to a map[string]any for canonical JSON
// serialization.
func (s *Snapshot) toCanonicalMap() map[string]any {
	st := s.Result.Status
	return map[string]any{
		"scenario": s.Scenario,
		"seed":     s.Seed,
		"status": map[string]any{
			"state":  st.State.String(),
			"reason": string(st.Reason),
			"steps":  st.Step,
			"time":   trace.FormatTime(st.Time),
		},
		"trace": trace.Values(s.Result.Trace),
	}
}

// MarshalSnapshot returns the canonical JSON bytes of a run.
func MarshalSnapshot(sc *scenario.Scenario, result *Result) ([]byte, error) {
	snap := Snapshot{Scenario: sc.Name, Seed: sc.Seed, Result: result}
	return trace.MarshalCanonical(snap.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares the snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can make further checks. Test failure (via
// goldie) occurs if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, sc *scenario.Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(sc)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, sc, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against the scenario's golden
// file without re-running it.
func AssertGolden(t *testing.T, sc *scenario.Scenario, result *Result) error {
	t.Helper()

	data, err := MarshalSnapshot(sc, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, sc.Name, data)
	return nil
}
