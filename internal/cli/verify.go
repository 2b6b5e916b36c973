package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/kinetic/internal/harness"
	"github.com/roach88/kinetic/internal/scenario"
)

// VerifyOptions holds flags for the verify command.
type VerifyOptions struct {
	*RootOptions
	Runs  int
	Jobs  int
	Async bool
}

// VerifyRun is the outcome of one execution.
type VerifyRun struct {
	Index  int    `json:"index"`
	Steps  int64  `json:"steps"`
	Digest string `json:"digest"`
}

// VerifyResult holds the determinism check of a scenario.
type VerifyResult struct {
	Scenario      string      `json:"scenario"`
	Seed          int64       `json:"seed"`
	Deterministic bool        `json:"deterministic"`
	Runs          []VerifyRun `json:"runs"`
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "verify <scenario>",
		Short: "Check that a scenario is deterministic",
		Long: `Execute a scenario several times with the same seed and compare the
trace digests. Every run must produce the same digest.

Runs execute concurrently, each on its own environment and random source.

Examples:
  kinetic verify ./scenarios/colony.yaml
  kinetic verify ./scenarios/colony.yaml --runs 8 --jobs 4
  kinetic verify ./scenarios/colony.yaml --async`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Runs, "runs", 2, "number of executions to compare")
	cmd.Flags().IntVar(&opts.Jobs, "jobs", 0, "maximum concurrent executions (0 = GOMAXPROCS)")
	cmd.Flags().BoolVar(&opts.Async, "async", false, "deliver events asynchronously in every other run")

	return cmd
}

func runVerify(opts *VerifyOptions, path string, cmd *cobra.Command) error {
	if err := opts.setup(cmd.ErrOrStderr()); err != nil {
		return err
	}
	formatter := opts.formatter(cmd)

	if opts.Runs < 2 {
		return NewExitError(ExitCommandError, fmt.Sprintf("--runs must be at least 2, got %d", opts.Runs))
	}

	sc, err := scenario.Load(path)
	if err != nil {
		_ = formatter.Error(scenario.ErrorCode(err), err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	runs := make([]VerifyRun, opts.Runs)
	g, ctx := errgroup.WithContext(commandContext(cmd))
	g.SetLimit(jobs)
	for i := range runs {
		g.Go(func() error {
			hopts := []harness.Option{harness.WithLogger(opts.log())}
			if opts.Async && i%2 == 1 {
				hopts = append(hopts, harness.WithAsync(opts.config().Observer.Buffer))
			}
			res, err := harness.RunContext(ctx, sc, hopts...)
			if err != nil {
				return fmt.Errorf("run %d: %w", i, err)
			}
			runs[i] = VerifyRun{Index: i, Steps: res.Status.Step, Digest: res.Digest}
			formatter.VerboseLog("run %d: %d steps, digest %s", i, res.Status.Step, res.Digest)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return WrapExitError(ExitCommandError, "execution failed", err)
	}

	result := VerifyResult{Scenario: sc.Name, Seed: sc.Seed, Deterministic: true, Runs: runs}
	for _, r := range runs[1:] {
		if r.Digest != runs[0].Digest {
			result.Deterministic = false
		}
	}

	if opts.Format == "json" {
		if result.Deterministic {
			return formatter.Success(result)
		}
		if err := formatter.Failure(scenario.ErrCodeGeneric, "digests differ", result); err != nil {
			return err
		}
		return NewExitError(ExitFailure, "non-deterministic scenario")
	}

	w := cmd.OutOrStdout()
	for _, r := range runs {
		fmt.Fprintf(w, "  run %d: %d steps  %s\n", r.Index, r.Steps, r.Digest)
	}
	if result.Deterministic {
		fmt.Fprintf(w, "✓ %s is deterministic (%d runs, seed %d)\n", sc.Name, len(runs), sc.Seed)
		return nil
	}
	fmt.Fprintf(w, "✗ %s is not deterministic (seed %d)\n", sc.Name, sc.Seed)
	return NewExitError(ExitFailure, "non-deterministic scenario")
}
