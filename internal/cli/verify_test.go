package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerify_Deterministic(t *testing.T) {
	out, _, err := execute(t, NewRootCommand(), "verify", scenarioPath("clock.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "run 0: 6 steps  "+clockDigest)
	assert.Contains(t, out, "run 1: 6 steps  "+clockDigest)
	assert.Contains(t, out, "✓ clock is deterministic (2 runs, seed 1)")
}

func TestVerify_ConcurrentAsyncRunsJSON(t *testing.T) {
	out, _, err := execute(t, NewRootCommand(), "--format", "json", "verify",
		scenarioPath("decay.yaml"), "--runs", "4", "--jobs", "2", "--async")
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   VerifyResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Deterministic)
	assert.Equal(t, "decay", resp.Data.Scenario)
	require.Len(t, resp.Data.Runs, 4)
	for i, r := range resp.Data.Runs {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, int64(20), r.Steps)
		assert.Equal(t, resp.Data.Runs[0].Digest, r.Digest)
	}
}

func TestVerify_RuntimeErrorIsStillDeterministic(t *testing.T) {
	_, _, err := execute(t, NewRootCommand(), "verify", scenarioPath("underflow.yaml"))
	require.NoError(t, err)
}

func TestVerify_CommandErrors(t *testing.T) {
	_, _, err := execute(t, NewRootCommand(), "verify", scenarioPath("clock.yaml"), "--runs", "1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "--runs must be at least 2")

	_, _, err = execute(t, NewRootCommand(), "verify", scenarioPath("absent.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
