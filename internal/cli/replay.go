package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/kinetic/internal/engine"
	"github.com/roach88/kinetic/internal/harness"
	"github.com/roach88/kinetic/internal/scenario"
	"github.com/roach88/kinetic/internal/store"
	"github.com/roach88/kinetic/internal/trace"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - specific run only
}

// ReplayRunResult holds the replay result for a single stored run.
type ReplayRunResult struct {
	RunID         string `json:"run_id"`
	Seed          int64  `json:"seed"`
	StoredSteps   int    `json:"stored_steps"`
	ReplayedSteps int    `json:"replayed_steps"`
	// Divergence is the first differing step index, or -1.
	Divergence    int    `json:"divergence"`
	StoredDigest  string `json:"stored_digest"`
	ReplayDigest  string `json:"replay_digest"`
	Deterministic bool   `json:"deterministic"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Scenario         string            `json:"scenario"`
	Runs             []ReplayRunResult `json:"runs"`
	TotalRuns        int               `json:"total_runs"`
	AllDeterministic bool              `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <scenario>",
		Short: "Re-execute stored runs and verify determinism",
		Long: `Re-execute stored runs of a scenario and compare the traces.

Each run is executed again with its stored seed and bounds. The new trace
must equal the stored steps exactly and hash to the stored digest.

Exit codes:
  0 - All runs reproduce
  1 - Determinism verification failed (differences detected)
  2 - Command error (database not found, etc.)

Examples:
  kinetic replay --db ./runs.db ./scenarios/colony.yaml
  kinetic replay --db ./runs.db --run 0190f7c4-... ./scenarios/colony.yaml
  kinetic replay --db ./runs.db ./scenarios/colony.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "replay specific run only")

	return cmd
}

func runReplay(opts *ReplayOptions, path string, cmd *cobra.Command) error {
	if err := opts.setup(cmd.ErrOrStderr()); err != nil {
		return err
	}
	ctx := commandContext(cmd)

	sc, err := scenario.Load(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	st, err := openExisting(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	var runs []store.Run
	if opts.RunID != "" {
		run, err := selectRun(cmd, st, opts.RunID, "")
		if err != nil {
			return err
		}
		if run.Scenario != sc.Name {
			return NewExitError(ExitCommandError,
				fmt.Sprintf("run %s belongs to scenario %q, not %q", run.ID, run.Scenario, sc.Name))
		}
		runs = []store.Run{run}
	} else {
		all, err := st.ListRuns(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
		for _, r := range all {
			if r.Scenario == sc.Name {
				runs = append(runs, r)
			}
		}
	}

	result := ReplayResult{
		Scenario:         sc.Name,
		Runs:             make([]ReplayRunResult, 0, len(runs)),
		TotalRuns:        len(runs),
		AllDeterministic: true,
	}
	if len(runs) == 0 {
		if opts.Format == "json" {
			return outputReplayJSON(opts.formatter(cmd), result)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "No runs of %s found in database.\n", sc.Name)
		return nil
	}

	for _, run := range runs {
		rr, err := replayRun(ctx, st, sc, run, opts)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay run %s", run.ID), err)
		}
		result.Runs = append(result.Runs, rr)
		if !rr.Deterministic {
			result.AllDeterministic = false
		}
	}

	if opts.Format == "json" {
		if err := outputReplayJSON(opts.formatter(cmd), result); err != nil {
			return err
		}
	} else {
		outputReplayText(cmd, result, opts.Verbose)
	}

	if !result.AllDeterministic {
		return NewExitError(ExitFailure, "non-deterministic replay detected")
	}
	return nil
}

// replayRun executes the scenario with a stored run's seed and bounds and
// compares the result with the stored steps.
func replayRun(ctx context.Context, st *store.Store, sc *scenario.Scenario, run store.Run, opts *ReplayOptions) (ReplayRunResult, error) {
	stored, err := st.ReadSteps(ctx, run.ID)
	if err != nil {
		return ReplayRunResult{}, err
	}

	again := *sc
	again.Seed = run.Seed
	again.Terminate = scenario.Terminate{Steps: run.MaxSteps, Time: run.EndTime}
	again.Expect = nil
	again.Assertions = nil

	// An interrupted run is reproduced up to the step it reached. A run
	// that never finished has only its stored steps to go by.
	reached := run.Steps
	interrupted := run.Reason == string(engine.ReasonRequested) || run.Reason == string(engine.ReasonCancelled)
	if run.State == engine.StateRunning.String() {
		interrupted = true
		reached = int64(len(stored))
	}
	if interrupted {
		again.Terminate.Steps = reached
	}

	replayed := []trace.Record{}
	if !interrupted || reached > 0 {
		res, err := harness.RunContext(ctx, &again, harness.WithLogger(opts.log()))
		if err != nil {
			return ReplayRunResult{}, err
		}
		replayed = res.Trace
	}
	replayDigest, err := trace.Digest(replayed)
	if err != nil {
		return ReplayRunResult{}, err
	}

	storedDigest := run.Digest
	if storedDigest == "" {
		if storedDigest, err = trace.Digest(stored); err != nil {
			return ReplayRunResult{}, err
		}
	}

	rr := ReplayRunResult{
		RunID:         run.ID,
		Seed:          run.Seed,
		StoredSteps:   len(stored),
		ReplayedSteps: len(replayed),
		Divergence:    trace.Diff(stored, replayed),
		StoredDigest:  storedDigest,
		ReplayDigest:  replayDigest,
	}
	rr.Deterministic = rr.Divergence < 0 && rr.StoredDigest == rr.ReplayDigest
	return rr, nil
}

func outputReplayJSON(f *OutputFormatter, result ReplayResult) error {
	status := "ok"
	var cliErr *CLIError
	if !result.AllDeterministic {
		status = "error"
		cliErr = &CLIError{Code: scenario.ErrCodeGeneric, Message: "non-deterministic replay detected"}
	}
	return f.Respond(CLIResponse{Status: status, Data: result, Error: cliErr})
}

// outputReplayText outputs replay results in human-readable format.
func outputReplayText(cmd *cobra.Command, result ReplayResult, verbose bool) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Replay Summary: %s, %d run(s)\n", result.Scenario, result.TotalRuns)
	fmt.Fprintln(w)

	for _, r := range result.Runs {
		status := "✓"
		if !r.Deterministic {
			status = "✗"
		}
		fmt.Fprintf(w, "%s Run: %s (seed %d)\n", status, r.RunID, r.Seed)
		if verbose {
			fmt.Fprintf(w, "  Stored steps: %d\n", r.StoredSteps)
			fmt.Fprintf(w, "  Replayed steps: %d\n", r.ReplayedSteps)
			fmt.Fprintf(w, "  Stored digest: %s\n", r.StoredDigest)
			fmt.Fprintf(w, "  Replay digest: %s\n", r.ReplayDigest)
		} else {
			fmt.Fprintf(w, "  Steps: %d stored, %d replayed\n", r.StoredSteps, r.ReplayedSteps)
		}
		if r.Divergence >= 0 {
			fmt.Fprintf(w, "  Warning: traces diverge at step index %d\n", r.Divergence)
		} else if !r.Deterministic {
			fmt.Fprintln(w, "  Warning: digest mismatch")
		}
		fmt.Fprintln(w)
	}

	if result.AllDeterministic {
		fmt.Fprintln(w, "✓ All runs verified deterministic")
		return
	}
	fmt.Fprintln(w, "✗ Determinism verification failed")
}
