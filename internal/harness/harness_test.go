package harness

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kinetic/internal/engine"
	"github.com/roach88/kinetic/internal/scenario"
	"github.com/roach88/kinetic/internal/store"
	"github.com/roach88/kinetic/internal/trace"
)

func loadScenario(t *testing.T, name string) *scenario.Scenario {
	t.Helper()
	sc, err := scenario.Load(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return sc
}

func TestRun_DeterministicScenarioPasses(t *testing.T) {
	sc := loadScenario(t, "relay")

	result, err := Run(sc)
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Errors)
	assert.Len(t, result.Trace, 5)
	assert.Equal(t, "relay", result.RunID, "in-memory store uses the scenario name as run id")
	assert.Equal(t, "851dfeeaf73e51ad4203a98bb3fa1334b03579f7e9760eda9f46104dff086aa1", result.Digest)
	assert.Equal(t, engine.ReasonTimeBound, result.Status.Reason)
}

func TestRun_RuntimeErrorIsAnOutcome(t *testing.T) {
	sc := loadScenario(t, "underflow")

	result, err := Run(sc)
	require.NoError(t, err, "runtime errors are reported in the result")

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	require.Error(t, result.Status.Err)
	assert.True(t, engine.IsActionExecutionError(result.Status.Err))
}

func TestRun_UnexpectedRuntimeErrorFails(t *testing.T) {
	sc := loadScenario(t, "underflow")
	sc.Expect = nil

	result, err := Run(sc)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "run failed")
}

func TestRun_ReportsEveryMismatch(t *testing.T) {
	sc := loadScenario(t, "relay")
	steps := int64(99)
	sc.Expect.Steps = &steps
	sc.Expect.Reason = string(engine.ReasonExhausted)
	sc.Expect.Digest = "nope"
	sc.Assertions = append(sc.Assertions,
		scenario.Assertion{Type: scenario.AssertTraceCount, Reaction: "gate", Count: 2},
		scenario.Assertion{Type: scenario.AssertFinalState, Node: 7, Molecule: "A"},
	)

	result, err := Run(sc)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	assert.Len(t, result.Errors, 5)
	assert.Contains(t, result.Errors[0], "expect.reason")
	assert.Contains(t, result.Errors[1], "expect.steps")
	assert.Contains(t, result.Errors[2], "expect.digest")
	assert.Contains(t, result.Errors[3], "assertion 5")
	assert.Contains(t, result.Errors[4], "node not found")
}

func TestRun_StochasticScenario(t *testing.T) {
	sc := loadScenario(t, "colony")

	first, err := Run(sc)
	require.NoError(t, err)
	assert.True(t, first.Pass, "errors: %v", first.Errors)

	second, err := Run(sc)
	require.NoError(t, err)
	assert.Equal(t, first.Digest, second.Digest, "same seed should give same trace")
	assert.Equal(t, -1, trace.Diff(first.Trace, second.Trace))

	sc.Seed = 8
	other, err := Run(sc)
	require.NoError(t, err)
	assert.NotEqual(t, first.Digest, other.Digest, "different seed should give different trace")
}

func TestRun_AsyncMatchesSync(t *testing.T) {
	sc := loadScenario(t, "colony")

	syncResult, err := Run(sc)
	require.NoError(t, err)
	asyncResult, err := Run(sc, WithAsync(4))
	require.NoError(t, err)

	assert.True(t, asyncResult.Pass, "errors: %v", asyncResult.Errors)
	assert.Equal(t, syncResult.Trace, asyncResult.Trace)
}

func TestRun_WithStorePersistsRun(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "runs.db"), store.WithRunIDs(store.NewFixedGenerator("run-1")))
	require.NoError(t, err)
	defer st.Close()

	sc := loadScenario(t, "relay")
	result, err := Run(sc, WithStore(st))
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	ctx := context.Background()
	run, err := st.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "relay", run.Scenario)
	assert.Equal(t, "terminated", run.State)
	assert.Equal(t, "time-bound", run.Reason)
	assert.Equal(t, int64(5), run.Steps)
	assert.Equal(t, 3.5, run.FinalTime)
	assert.Equal(t, 4.0, run.EndTime)
	assert.Equal(t, result.Digest, run.Digest)

	steps, err := st.ReadSteps(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, result.Trace, steps)
}

func TestRun_CancelledContext(t *testing.T) {
	sc := loadScenario(t, "relay")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RunContext(ctx, sc)
	assert.ErrorIs(t, err, context.Canceled)
}
