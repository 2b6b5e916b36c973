package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type validateResponse struct {
	Status string           `json:"status"`
	Data   ValidationResult `json:"data"`
	Error  *CLIError        `json:"error"`
}

func TestValidate_ValidScenario(t *testing.T) {
	out, _, err := execute(t, NewRootCommand(), "validate", scenarioPath("clock.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "✓ "+scenarioPath("clock.yaml")+" (clock)")
	assert.Contains(t, out, "All 1 scenario(s) valid")
}

func TestValidate_ValidScenarioJSON(t *testing.T) {
	out, _, err := execute(t, NewRootCommand(), "--format", "json", "validate", scenarioPath("clock.yaml"), scenarioPath("decay.yaml"))
	require.NoError(t, err)

	var resp validateResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	require.Len(t, resp.Data.Files, 2)
	assert.Equal(t, "decay", resp.Data.Files[1].Name)
}

func TestValidate_DirectoryWithInvalidScenario(t *testing.T) {
	out, _, err := execute(t, NewRootCommand(), "validate", scenariosDir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "1 of 4 scenario(s) invalid")

	assert.Contains(t, out, "✗ "+scenarioPath("bad.yaml"))
	assert.Contains(t, out, "E010: terminate.steps: must be non-negative")
	assert.Contains(t, out, "E010: nodes[0].reactions[0].time.interval: must be positive")
	assert.Contains(t, out, "✓ "+scenarioPath("clock.yaml"))
}

func TestValidate_InvalidScenarioJSON(t *testing.T) {
	out, _, err := execute(t, NewRootCommand(), "--format", "json", "validate", scenarioPath("bad.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp validateResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E010", resp.Error.Code)
	assert.False(t, resp.Data.Valid)
	require.Len(t, resp.Data.Files, 1)
	assert.Len(t, resp.Data.Files[0].Errors, 2)
}

func TestValidate_CUESyntaxErrorHasLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.cue")
	require.NoError(t, os.WriteFile(path, []byte("name: {\n"), 0644))

	fv := validateFile(path)
	assert.False(t, fv.Valid)
	assert.Equal(t, "E004", fv.Code)
	require.Len(t, fv.Errors, 1)
	assert.Greater(t, fv.Errors[0].Line, 0)
}

func TestValidate_CommandErrors(t *testing.T) {
	tests := []struct {
		name string
		path string
		code string
	}{
		{"nonexistent", "/nonexistent/scenarios", "E005"},
		{"empty", t.TempDir(), "E003"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, NewRootCommand(), "validate", tt.path)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, out, "Error ["+tt.code+"]")
		})
	}
}

func TestValidate_VerboseOutputGoesToStderr(t *testing.T) {
	out, errOut, err := execute(t, NewRootCommand(), "-v", "--format", "json", "validate", scenarioPath("clock.yaml"))
	require.NoError(t, err)
	assert.Contains(t, errOut, "Found 1 scenario file(s)")
	assert.Contains(t, errOut, "Validating "+scenarioPath("clock.yaml"))

	var resp validateResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "stdout must stay valid JSON")
}

func TestValidate_MissingArgs(t *testing.T) {
	_, _, err := execute(t, NewRootCommand(), "validate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg")
}
