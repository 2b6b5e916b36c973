package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/roach88/kinetic/internal/model"
	"github.com/roach88/kinetic/internal/store"
	"github.com/roach88/kinetic/internal/trace"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string
	Latest   string // scenario name; selects its most recent run
	Reaction string // optional - filter to specific reaction
	Limit    int
}

// TraceStep is a single step in the trace timeline.
type TraceStep struct {
	Step     int64   `json:"step"`
	Time     float64 `json:"time"`
	Reaction string  `json:"reaction"`
	Node     int64   `json:"node"`
}

// TraceResult holds the steps of one run.
type TraceResult struct {
	Run      store.Run      `json:"run"`
	Timeline []TraceStep    `json:"timeline"`
	Stats    TraceStats     `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	TotalSteps int            `json:"total_steps"`
	Reactions  map[string]int `json:"reactions"`
	Nodes      int            `json:"nodes"`
}

// RunList holds every run in a database.
type RunList struct {
	Runs []store.Run `json:"runs"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect stored runs",
		Long: `Inspect runs persisted with run --db.

Without --run or --latest, lists every run in the database. With a run,
prints its steps in order along with per-reaction counts.

Examples:
  kinetic trace --db ./runs.db
  kinetic trace --db ./runs.db --run 0190f7c4-...
  kinetic trace --db ./runs.db --latest colony --reaction divide
  kinetic trace --db ./runs.db --latest colony --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run ID to print")
	cmd.Flags().StringVar(&opts.Latest, "latest", "", "print the most recent run of this scenario")
	cmd.Flags().StringVar(&opts.Reaction, "reaction", "", "filter to a specific reaction ID")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "print at most this many steps in text output (0 = all)")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	if err := opts.setup(cmd.ErrOrStderr()); err != nil {
		return err
	}
	ctx := commandContext(cmd)
	formatter := opts.formatter(cmd)

	st, err := openExisting(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	if opts.RunID == "" && opts.Latest == "" {
		runs, err := st.ListRuns(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
		if opts.Format == "json" {
			return formatter.Success(RunList{Runs: runs})
		}
		outputRunList(cmd.OutOrStdout(), runs)
		return nil
	}

	run, err := selectRun(cmd, st, opts.RunID, opts.Latest)
	if err != nil {
		return err
	}

	var records []trace.Record
	if opts.Reaction != "" {
		records, err = st.ReadReactionSteps(ctx, run.ID, model.ReactionID(opts.Reaction))
	} else {
		records, err = st.ReadSteps(ctx, run.ID)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read steps", err)
	}

	result := buildTraceResult(run, records)
	if opts.Format == "json" {
		return formatter.Success(result)
	}
	outputTraceText(cmd.OutOrStdout(), result, opts.Limit)
	return nil
}

// openExisting opens a database that must already exist.
func openExisting(path string) (*store.Store, error) {
	if !fileExists(path) {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", path))
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// selectRun reads a run by ID, or the latest run of a scenario.
func selectRun(cmd *cobra.Command, st *store.Store, id, latest string) (store.Run, error) {
	ctx := commandContext(cmd)
	var (
		run store.Run
		err error
	)
	if id != "" {
		run, err = st.ReadRun(ctx, id)
	} else {
		run, err = st.LatestRun(ctx, latest)
	}
	if errors.Is(err, store.ErrRunNotFound) {
		what := id
		if what == "" {
			what = "latest run of " + latest
		}
		return run, NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", what))
	}
	if err != nil {
		return run, WrapExitError(ExitCommandError, "failed to read run", err)
	}
	return run, nil
}

func buildTraceResult(run store.Run, records []trace.Record) TraceResult {
	result := TraceResult{
		Run:      run,
		Timeline: make([]TraceStep, 0, len(records)),
		Stats:    TraceStats{Reactions: make(map[string]int)},
	}
	nodes := make(map[model.NodeID]bool)
	for _, r := range records {
		result.Timeline = append(result.Timeline, TraceStep{
			Step:     r.Step,
			Time:     float64(r.Time),
			Reaction: string(r.Reaction),
			Node:     int64(r.Node),
		})
		result.Stats.Reactions[string(r.Reaction)]++
		nodes[r.Node] = true
	}
	result.Stats.TotalSteps = len(records)
	result.Stats.Nodes = len(nodes)
	return result
}

func outputRunList(w io.Writer, runs []store.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs found in database.")
		return
	}
	fmt.Fprintf(w, "%-36s  %-16s  %-10s  %-10s  %10s  %s\n", "RUN", "SCENARIO", "STATE", "REASON", "STEPS", "SEED")
	for _, r := range runs {
		fmt.Fprintf(w, "%-36s  %-16s  %-10s  %-10s  %10s  %d\n",
			r.ID, r.Scenario, r.State, r.Reason, humanize.Comma(r.Steps), r.Seed)
	}
}

func outputTraceText(w io.Writer, result TraceResult, limit int) {
	run := result.Run
	fmt.Fprintf(w, "Run: %s\n", run.ID)
	fmt.Fprintf(w, "Scenario: %s (seed %d)\n", run.Scenario, run.Seed)
	fmt.Fprintf(w, "State: %s (%s) after %s steps at t=%s\n",
		run.State, run.Reason, humanize.Comma(run.Steps), humanize.Ftoa(run.FinalTime))
	if run.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", run.Error)
	}
	if run.Digest != "" {
		fmt.Fprintf(w, "Digest: %s\n", run.Digest)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Timeline:")
	for i, s := range result.Timeline {
		if limit > 0 && i == limit {
			fmt.Fprintf(w, "  ... %d more\n", len(result.Timeline)-limit)
			break
		}
		fmt.Fprintf(w, "  [%d] t=%s %s@%d\n", s.Step, humanize.Ftoa(s.Time), s.Reaction, s.Node)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Steps: %s across %d node(s)\n", humanize.Comma(int64(result.Stats.TotalSteps)), result.Stats.Nodes)
	for _, id := range sortedKeys(result.Stats.Reactions) {
		fmt.Fprintf(w, "  %s: %s\n", id, humanize.Comma(int64(result.Stats.Reactions[id])))
	}
}
