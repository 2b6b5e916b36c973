package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/kinetic/internal/engine"
	"github.com/roach88/kinetic/internal/observer"
	"github.com/roach88/kinetic/internal/scenario"
	"github.com/roach88/kinetic/internal/store"
	"github.com/roach88/kinetic/internal/trace"
)

// Option configures a harness run.
type Option func(*options)

type options struct {
	store  *store.Store
	logger *slog.Logger
	async  int
}

// WithStore records the run in st instead of a fresh in-memory store.
func WithStore(st *store.Store) Option {
	return func(o *options) {
		o.store = st
	}
}

// WithLogger sets the engine logger. Default: logs discarded.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithAsync delivers events to the recorder and store through an
// observer.Async with the given buffer instead of synchronously.
func WithAsync(buffer int) Option {
	return func(o *options) {
		o.async = buffer
	}
}

// Run executes a scenario and returns the result.
func Run(sc *scenario.Scenario, opts ...Option) (*Result, error) {
	return RunContext(context.Background(), sc, opts...)
}

// RunContext executes a scenario until it terminates or ctx is done.
//
// Execution flow:
// 1. Build the environment from the scenario with its seeded random source
// 2. Open the store (in-memory unless WithStore) and begin a run
// 3. Drive the engine to termination, recording every step
// 4. Finish the run in the store and read its steps back
// 5. Check expectations and assertions
//
// Failures of the simulation itself (runtime errors, unmet expectations)
// are reported in the Result. Only infrastructure failures return an error.
func RunContext(ctx context.Context, sc *scenario.Scenario, opts ...Option) (*Result, error) {
	o := options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}

	world, err := scenario.Build(sc, scenario.NewRand(sc.Seed))
	if err != nil {
		return nil, fmt.Errorf("build scenario %s: %w", sc.Name, err)
	}

	st := o.store
	if st == nil {
		st, err = store.Open(":memory:", store.WithRunIDs(store.NewFixedGenerator(sc.Name)))
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory store: %w", err)
		}
		defer st.Close()
	}

	bounds := sc.Bounds()
	runID, err := st.BeginRun(ctx, store.RunSpec{
		Scenario: sc.Name,
		Seed:     sc.Seed,
		MaxSteps: bounds.MaxSteps,
		EndTime:  bounds.EndTime,
	})
	if err != nil {
		return nil, err
	}

	rec := trace.NewRecorder()
	writer := store.NewWriter(ctx, st, runID, 0)

	var obs engine.Observer = observer.Sync(rec, writer)
	var async *observer.Async
	if o.async > 0 {
		async = observer.NewAsync(observer.Tee(rec, writer), o.async)
		obs = async
	}

	e := engine.New(world,
		engine.WithBounds(bounds),
		engine.WithLogger(o.logger),
		engine.WithObservers(obs),
	)
	if err := e.Init(); err == nil {
		if err := e.Play(); err != nil {
			return nil, err
		}
	}
	if err := e.Run(ctx); err != nil && ctx.Err() != nil {
		return nil, fmt.Errorf("run scenario %s: %w", sc.Name, err)
	}
	if async != nil {
		if err := async.Wait(ctx); err != nil {
			return nil, err
		}
	}

	result := NewResult()
	result.RunID = runID
	result.Status = e.Status()
	result.Trace = rec.Records()
	result.Final = world.Snapshot()
	result.Digest, err = trace.Digest(result.Trace)
	if err != nil {
		return nil, err
	}

	if err := writer.Flush(); err != nil {
		return nil, fmt.Errorf("persist trace: %w", err)
	}
	if err := st.FinishRun(ctx, runID, store.NewOutcome(result.Status, result.Digest)); err != nil {
		return nil, err
	}

	stored, err := st.ReadSteps(ctx, runID)
	if err != nil {
		return nil, err
	}
	if i := trace.Diff(result.Trace, stored); i >= 0 {
		result.AddError(fmt.Sprintf("stored trace diverges from recorded trace at index %d", i))
	}

	for _, msg := range checkExpect(sc.Expect, result) {
		result.AddError(msg)
	}
	for _, msg := range EvaluateAssertions(result, sc.Assertions) {
		result.AddError(msg)
	}

	return result, nil
}
