package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kinetic/internal/store"
)

// seedDatabase runs clock and decay into a fresh database and returns its
// path and the two run IDs.
func seedDatabase(t *testing.T) (string, string, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	clock := runJSON(t, scenarioPath("clock.yaml"), "--db", dbPath)
	decay := runJSON(t, scenarioPath("decay.yaml"), "--db", dbPath)
	return dbPath, clock.RunID, decay.RunID
}

type traceResponse struct {
	Status string      `json:"status"`
	Data   TraceResult `json:"data"`
}

func TestTrace_ListRuns(t *testing.T) {
	dbPath, clockID, decayID := seedDatabase(t)

	out, _, err := execute(t, NewRootCommand(), "trace", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "RUN")
	assert.Contains(t, out, clockID)
	assert.Contains(t, out, decayID)
	assert.Contains(t, out, "time-bound")
	assert.Contains(t, out, "exhausted")
}

func TestTrace_ListRunsJSON(t *testing.T) {
	dbPath, clockID, decayID := seedDatabase(t)

	out, _, err := execute(t, NewRootCommand(), "--format", "json", "trace", "--db", dbPath)
	require.NoError(t, err)

	var resp struct {
		Data RunList `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Runs, 2)
	assert.Equal(t, clockID, resp.Data.Runs[0].ID)
	assert.Equal(t, decayID, resp.Data.Runs[1].ID)
}

func TestTrace_EmptyDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "empty.db")
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, _, err := execute(t, NewRootCommand(), "trace", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "No runs found in database.")
}

func TestTrace_RunText(t *testing.T) {
	dbPath, clockID, _ := seedDatabase(t)

	out, _, err := execute(t, NewRootCommand(), "trace", "--db", dbPath, "--run", clockID)
	require.NoError(t, err)
	assert.Contains(t, out, "Run: "+clockID)
	assert.Contains(t, out, "Scenario: clock (seed 1)")
	assert.Contains(t, out, "State: terminated (time-bound) after 6 steps at t=3")
	assert.Contains(t, out, "Digest: "+clockDigest)
	assert.Contains(t, out, "[1] t=1 tick@1")
	assert.Contains(t, out, "[6] t=3 tick@2")
	assert.Contains(t, out, "Steps: 6 across 2 node(s)")
	assert.Contains(t, out, "tick: 6")
}

func TestTrace_RunJSON(t *testing.T) {
	dbPath, clockID, _ := seedDatabase(t)

	out, _, err := execute(t, NewRootCommand(), "--format", "json", "trace", "--db", dbPath, "--run", clockID)
	require.NoError(t, err)

	var resp traceResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, clockID, resp.Data.Run.ID)
	assert.Equal(t, 6, resp.Data.Stats.TotalSteps)
	assert.Equal(t, 2, resp.Data.Stats.Nodes)
	assert.Equal(t, map[string]int{"tick": 6}, resp.Data.Stats.Reactions)
	require.Len(t, resp.Data.Timeline, 6)
	assert.Equal(t, TraceStep{Step: 2, Time: 1, Reaction: "tick", Node: 2}, resp.Data.Timeline[1])
}

func TestTrace_LatestWithReactionFilter(t *testing.T) {
	dbPath, _, decayID := seedDatabase(t)

	out, _, err := execute(t, NewRootCommand(), "--format", "json", "trace", "--db", dbPath, "--latest", "decay", "--reaction", "decay")
	require.NoError(t, err)
	var resp traceResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, decayID, resp.Data.Run.ID)
	assert.Equal(t, 20, resp.Data.Stats.TotalSteps)

	out, _, err = execute(t, NewRootCommand(), "--format", "json", "trace", "--db", dbPath, "--latest", "decay", "--reaction", "none")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Empty(t, resp.Data.Timeline)
	assert.Equal(t, 0, resp.Data.Stats.Nodes)
}

func TestTrace_Limit(t *testing.T) {
	dbPath, clockID, _ := seedDatabase(t)

	out, _, err := execute(t, NewRootCommand(), "trace", "--db", dbPath, "--run", clockID, "--limit", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "[2] t=1 tick@2")
	assert.NotContains(t, out, "[3]")
	assert.Contains(t, out, "... 4 more")
}

func TestTrace_Errors(t *testing.T) {
	dbPath, _, _ := seedDatabase(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing db flag", []string{"trace"}, "required flag"},
		{"nonexistent db", []string{"trace", "--db", "/nonexistent/path/test.db"}, "database not found"},
		{"unknown run", []string{"trace", "--db", dbPath, "--run", "nope"}, "run not found: nope"},
		{"unknown scenario", []string{"trace", "--db", dbPath, "--latest", "nope"}, "run not found: latest run of nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, NewRootCommand(), tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
