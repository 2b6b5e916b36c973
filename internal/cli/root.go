package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/kinetic/internal/config"
	"github.com/roach88/kinetic/internal/logging"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string

	cfg    *config.Config
	logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the kinetic CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "kinetic",
		Short: "kinetic - discrete-event agent simulation",
		Long: `A discrete-event simulator for agent environments.

Scenarios declare nodes, molecules and reactions in YAML or CUE. The engine
executes them with the next-reaction method, recording every step so runs
can be verified, replayed and compared.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return opts.setup(cmd.ErrOrStderr())
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config file")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewVerifyCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))

	return cmd
}

// setup loads the configuration and builds the operational logger. Logs go
// to w so that stdout stays clean for command output. It is a no-op once
// the configuration is loaded.
func (o *RootOptions) setup(w io.Writer) error {
	if o.cfg != nil {
		return nil
	}

	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid config", err)
	}

	level := cfg.Logging.Level
	if o.Verbose && logging.ParseLevel(level) > slog.LevelDebug {
		level = "debug"
	}
	if cfg.Logging.Format == "json" {
		o.logger = logging.NewJSONLogger(level, w)
	} else {
		o.logger = logging.NewLogger(level, w)
	}
	o.cfg = cfg
	return nil
}

// config returns the loaded configuration.
func (o *RootOptions) config() *config.Config {
	if o.cfg == nil {
		return config.Default()
	}
	return o.cfg
}

// log returns the operational logger.
func (o *RootOptions) log() *slog.Logger {
	if o.logger == nil {
		return logging.Discard()
	}
	return o.logger
}

// formatter returns an OutputFormatter writing to the command's streams.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// commandContext returns the command's context, or Background when the
// command is executed without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
