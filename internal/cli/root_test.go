package cli

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "kinetic", cmd.Use)
	assert.Contains(t, cmd.Long, "next-reaction method")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"run", "validate", "verify", "test", "trace", "replay"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "", configFlag.DefValue)
}

func TestRunCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	runCmd, _, err := cmd.Find([]string{"run"})
	require.NoError(t, err)

	for _, name := range []string{"db", "steps", "until", "seed", "async", "log-every"} {
		assert.NotNil(t, runCmd.Flags().Lookup(name), "run should have --%s", name)
	}
}

func TestStoreCommandsRequireDatabase(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"trace", "replay"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			dbFlag := sub.Flags().Lookup("db")
			require.NotNil(t, dbFlag)
			assert.Contains(t, dbFlag.Annotations, cobra.BashCompOneRequiredFlag)
		})
	}
}

func TestFormatValidation(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))

	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
	assert.False(t, isValidFormat("TEXT"))
}

func TestFormatValidationIntegration(t *testing.T) {
	cmd := NewRootCommand()
	_, _, err := execute(t, cmd, "--format", "invalid", "validate", scenarioPath("clock.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestSetup_InvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kinetic.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: loud\n"), 0644))

	cmd := NewRootCommand()
	_, _, err := execute(t, cmd, "--config", path, "validate", scenarioPath("clock.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestSetup_MissingConfigFile(t *testing.T) {
	opts := &RootOptions{ConfigPath: filepath.Join(t.TempDir(), "absent.yaml")}
	err := opts.setup(os.Stderr)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestSetup_VerboseRaisesLevel(t *testing.T) {
	opts := &RootOptions{Verbose: true}
	require.NoError(t, opts.setup(os.Stderr))
	assert.True(t, opts.log().Enabled(t.Context(), slog.LevelDebug))
}

func TestSetup_ConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kinetic.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine:\n  max_steps: 3\nstore:\n  batch: 8\n"), 0644))

	opts := &RootOptions{ConfigPath: path}
	require.NoError(t, opts.setup(os.Stderr))
	assert.Equal(t, int64(3), opts.config().Engine.MaxSteps)
	assert.Equal(t, 8, opts.config().Store.Batch)
	assert.Equal(t, "info", opts.config().Logging.Level)
}

func TestRootOptions_Defaults(t *testing.T) {
	opts := &RootOptions{}
	assert.NotNil(t, opts.log())
	assert.Equal(t, 512, opts.config().Store.Batch)
}
