package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/kinetic/internal/engine"
	"github.com/roach88/kinetic/internal/model"
	"github.com/roach88/kinetic/internal/observer"
	"github.com/roach88/kinetic/internal/scenario"
	"github.com/roach88/kinetic/internal/store"
	"github.com/roach88/kinetic/internal/trace"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Steps    int64
	Until    float64
	Seed     int64
	Async    bool
	LogEvery int64
}

// RunSummary is the outcome of a run command.
type RunSummary struct {
	RunID    string  `json:"run_id,omitempty"`
	Scenario string  `json:"scenario"`
	Seed     int64   `json:"seed"`
	State    string  `json:"state"`
	Reason   string  `json:"reason"`
	Steps    int64   `json:"steps"`
	Time     float64 `json:"time"`
	Nodes    int     `json:"nodes"`
	Digest   string  `json:"digest"`
	Error    string  `json:"error,omitempty"`
	Stored   int64   `json:"stored,omitempty"`
	Elapsed  string  `json:"elapsed"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario>",
		Short: "Execute a scenario",
		Long: `Execute a scenario until it terminates.

Bounds come from the flags, then the scenario's terminate block, then the
config file. With --db (or store.path in the config) every step is
persisted to a SQLite database and the run can later be inspected with
trace or checked with replay.

Ctrl-C terminates the simulation after the step in flight.

Examples:
  kinetic run ./scenarios/decay.yaml
  kinetic run ./scenarios/colony.yaml --steps 10000 --db ./runs.db
  kinetic run ./scenarios/clock.cue --until 50 --seed 7 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database for the trace")
	cmd.Flags().Int64Var(&opts.Steps, "steps", 0, "stop after this many steps (0 = scenario or config)")
	cmd.Flags().Float64Var(&opts.Until, "until", 0, "stop before the first step after this time (0 = scenario or config)")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "override the scenario seed")
	cmd.Flags().BoolVar(&opts.Async, "async", false, "deliver events to observers asynchronously")
	cmd.Flags().Int64Var(&opts.LogEvery, "log-every", 0, "log progress every N steps (default from config)")

	return cmd
}

func runScenarioFile(opts *RunOptions, path string, cmd *cobra.Command) error {
	if err := opts.setup(cmd.ErrOrStderr()); err != nil {
		return err
	}
	cfg := opts.config()
	logger := opts.log()
	formatter := opts.formatter(cmd)

	sc, err := scenario.Load(path)
	if err != nil {
		_ = formatter.Error(scenario.ErrorCode(err), err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	flags := cmd.Flags()
	if flags.Changed("seed") {
		sc.Seed = opts.Seed
	}
	bounds := sc.Bounds()
	if bounds.MaxSteps == 0 {
		bounds.MaxSteps = cfg.Engine.MaxSteps
	}
	if bounds.EndTime == 0 {
		bounds.EndTime = model.Time(cfg.Engine.EndTime)
	}
	if flags.Changed("steps") {
		bounds.MaxSteps = opts.Steps
	}
	if flags.Changed("until") {
		bounds.EndTime = model.Time(opts.Until)
	}
	logEvery := cfg.Observer.LogEvery
	if flags.Changed("log-every") {
		logEvery = opts.LogEvery
	}

	world, err := scenario.Build(sc, scenario.NewRand(sc.Seed))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build scenario", err)
	}

	ctx := commandContext(cmd)

	rec := trace.NewRecorder()
	sinks := []observer.Sink{rec, observer.NewLog(logger, logEvery)}

	var (
		st     *store.Store
		runID  string
		writer *store.Writer
	)
	dbPath := opts.Database
	if dbPath == "" {
		dbPath = cfg.Store.Path
	}
	if dbPath != "" {
		logger.Info("opening database", "path", dbPath)
		st, err = store.Open(dbPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()

		runID, err = st.BeginRun(ctx, store.RunSpec{
			Scenario: sc.Name,
			Seed:     sc.Seed,
			MaxSteps: bounds.MaxSteps,
			EndTime:  bounds.EndTime,
		})
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to begin run", err)
		}
		writer = store.NewWriter(ctx, st, runID, cfg.Store.Batch)
		sinks = append(sinks, writer)
	}

	var obs engine.Observer = observer.Sync(sinks...)
	var async *observer.Async
	if opts.Async || cfg.Observer.Async {
		async = observer.NewAsync(observer.Tee(sinks...), cfg.Observer.Buffer)
		obs = async
	}

	e := engine.New(world,
		engine.WithBounds(bounds),
		engine.WithLogger(logger),
		engine.WithObservers(obs),
	)

	logger.Info("scenario loaded", "scenario", sc.Name, "seed", sc.Seed,
		"max_steps", bounds.MaxSteps, "end_time", bounds.EndTime.String(), "run", runID)

	start := time.Now()
	if err := drive(ctx, e, logger); err != nil {
		return WrapExitError(ExitCommandError, "run interrupted", err)
	}
	if async != nil {
		if err := async.Wait(ctx); err != nil {
			return WrapExitError(ExitCommandError, "observer did not drain", err)
		}
	}
	elapsed := time.Since(start)

	status := e.Status()
	digest, err := rec.Digest()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to digest trace", err)
	}

	summary := RunSummary{
		RunID:    runID,
		Scenario: sc.Name,
		Seed:     sc.Seed,
		State:    status.State.String(),
		Reason:   string(status.Reason),
		Steps:    status.Step,
		Time:     float64(status.Time),
		Nodes:    world.NodeCount(),
		Digest:   digest,
		Elapsed:  elapsed.Round(time.Millisecond).String(),
	}
	if status.Err != nil {
		summary.Error = status.Err.Error()
	}

	if st != nil {
		if err := writer.Flush(); err != nil {
			return WrapExitError(ExitCommandError, "failed to persist trace", err)
		}
		if err := st.FinishRun(ctx, runID, store.NewOutcome(status, digest)); err != nil {
			return WrapExitError(ExitCommandError, "failed to finish run", err)
		}
		summary.Stored = writer.Written()
	}

	if opts.Format == "json" {
		if err := formatter.Success(summary); err != nil {
			return err
		}
	} else {
		outputRunText(cmd.OutOrStdout(), summary, elapsed)
	}

	if status.Err != nil {
		return WrapExitError(ExitFailure, "simulation failed", status.Err)
	}
	return nil
}

// drive plays the engine and runs it to termination. SIGINT and SIGTERM
// terminate the simulation. The returned error is non-nil only when ctx
// ended the run; runtime errors are reported through the engine status.
func drive(ctx context.Context, e *engine.Engine, logger *slog.Logger) error {
	if err := e.Init(); err == nil {
		if err := e.Play(); err != nil {
			return err
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		defer cancel()
		err := e.Run(gctx)
		if ctx.Err() != nil {
			return err
		}
		return nil
	})
	g.Go(func() error {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, terminating", "signal", sig)
			_ = e.Terminate()
		case <-gctx.Done():
		}
		return nil
	})
	return g.Wait()
}

func outputRunText(w io.Writer, s RunSummary, elapsed time.Duration) {
	mark := "✓"
	if s.Error != "" {
		mark = "✗"
	}
	fmt.Fprintf(w, "%s %s: %s (%s)\n", mark, s.Scenario, s.State, s.Reason)
	fmt.Fprintf(w, "  Steps: %s\n", humanize.Comma(s.Steps))
	fmt.Fprintf(w, "  Time: %s\n", humanize.Ftoa(s.Time))
	fmt.Fprintf(w, "  Nodes: %s\n", humanize.Comma(int64(s.Nodes)))
	fmt.Fprintf(w, "  Seed: %d\n", s.Seed)
	fmt.Fprintf(w, "  Digest: %s\n", s.Digest)
	if s.RunID != "" {
		fmt.Fprintf(w, "  Run: %s (%s steps stored)\n", s.RunID, humanize.Comma(s.Stored))
	}
	if secs := elapsed.Seconds(); secs > 0 && s.Steps > 0 {
		fmt.Fprintf(w, "  Elapsed: %s (%s)\n", s.Elapsed, humanize.SIWithDigits(float64(s.Steps)/secs, 2, "steps/s"))
	}
	if s.Error != "" {
		fmt.Fprintf(w, "  Error: %s\n", s.Error)
	}
}
