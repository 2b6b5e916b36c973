package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/kinetic/internal/depgraph"
	"github.com/roach88/kinetic/internal/logging"
	"github.com/roach88/kinetic/internal/model"
	"github.com/roach88/kinetic/internal/scheduler"
)

// Engine is the simulation controller.
//
// It owns the scheduler and the dependency graph built from an environment
// and drives the step loop in Run.
//
// Thread-safety model:
//   - Run(): must be called from exactly one goroutine
//   - Init, Play, Pause, Terminate, Status, Wait, AddObserver,
//     RemoveObserver: safe from any goroutine
//
// Two locks are involved. mu guards the state machine and the observer list
// and is never held while user code runs. stepMu serializes everything that
// touches the environment (initialization, each step, the final
// notification), which is what makes a pause take effect between steps.
type Engine struct {
	env    model.Environment
	sched  *scheduler.Scheduler
	graph  *depgraph.Graph
	clock  *Clock
	bounds Bounds
	logger *slog.Logger
	buffer *structureBuffer

	stepMu sync.Mutex

	mu        sync.Mutex
	state     State
	reason    Reason
	err       error
	running   bool
	cancel    context.CancelFunc
	observers []Observer
	signal    chan struct{} // Signals a state change (buffered, size 1)

	finishOnce sync.Once
	done       chan struct{}
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithMaxSteps stops the simulation after n steps. Zero disables the bound.
func WithMaxSteps(n int64) EngineOption {
	return func(e *Engine) {
		e.bounds.MaxSteps = n
	}
}

// WithEndTime stops the simulation before the first reaction scheduled
// after t. Zero disables the bound.
func WithEndTime(t model.Time) EngineOption {
	return func(e *Engine) {
		e.bounds.EndTime = t
	}
}

// WithBounds sets both bounds at once.
func WithBounds(b Bounds) EngineOption {
	return func(e *Engine) {
		e.bounds = b
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithObservers registers observers before the run starts.
func WithObservers(obs ...Observer) EngineOption {
	return func(e *Engine) {
		e.observers = append(e.observers, obs...)
	}
}

// New creates an engine for env. The engine takes exclusive ownership of env.
func New(env model.Environment, opts ...EngineOption) *Engine {
	e := &Engine{
		env:    env,
		sched:  scheduler.New(),
		graph:  depgraph.New(),
		clock:  NewClock(),
		logger: slog.Default(),
		buffer: &structureBuffer{},
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Init builds the scheduler and the dependency graph from the environment,
// notifies observers and moves to StateReady.
//
// Every reaction's first next time is computed at time zero. Reactions are
// registered in node order, then in the order they were attached.
//
// A condition failing during initialization terminates the simulation; the
// error is returned and retained like any other fatal error.
func (e *Engine) Init() error {
	e.stepMu.Lock()

	e.mu.Lock()
	if e.state != StateUninitialized {
		st := e.state
		e.mu.Unlock()
		e.stepMu.Unlock()
		return &CommandError{Command: "init", State: st}
	}
	e.mu.Unlock()

	if err := e.build(); err != nil {
		e.stepMu.Unlock()
		e.fail(err)
		e.finish()
		return err
	}

	e.mu.Lock()
	if e.state == StateUninitialized {
		e.state = StateReady
	}
	e.mu.Unlock()

	e.logger.Info("simulation initialized",
		"nodes", e.env.NodeCount(),
		"reactions", e.sched.Len(),
		"max_steps", e.bounds.MaxSteps,
		"end_time", e.bounds.EndTime.String())

	for _, o := range e.snapshotObservers() {
		o.Initialized(e.env)
	}
	e.stepMu.Unlock()
	return nil
}

func (e *Engine) build() error {
	for _, n := range e.env.Nodes() {
		for _, r := range n.Reactions() {
			if err := e.register(r, model.Zero, 0); err != nil {
				return err
			}
		}
	}
	e.env.SetStructureListener(e.buffer)
	return nil
}

// register computes r's first next time and adds it to graph and scheduler.
func (e *Engine) register(r model.Reaction, now model.Time, step int64) error {
	if err := r.Initialize(e.env, now); err != nil {
		return &RuntimeError{Code: classify(err), Step: step, Time: now, ReactionID: r.ID(), Err: err}
	}
	if err := e.sched.Insert(r); err != nil {
		return &RuntimeError{Code: ErrCodeSchedulingInconsistency, Step: step, Time: now, ReactionID: r.ID(), Err: err}
	}
	e.graph.Add(r)
	return nil
}

// Play moves from StateReady or StatePaused to StateRunning.
func (e *Engine) Play() error {
	return e.transition("play", StateRunning, StateReady, StatePaused)
}

// Pause moves from StateRunning to StatePaused. A step in flight completes
// first; the loop blocks before picking the next reaction.
func (e *Engine) Pause() error {
	return e.transition("pause", StatePaused, StateRunning)
}

func (e *Engine) transition(cmd string, to State, from ...State) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, f := range from {
		if e.state == f {
			e.state = to
			e.wake()
			e.logger.Debug("state changed", "command", cmd, "from", f.String(), "to", to.String())
			return nil
		}
	}
	return &CommandError{Command: cmd, State: e.state}
}

// Terminate moves from any non-terminal state to StateTerminated.
//
// The step in flight, if any, completes first. Actions see the Run context
// cancelled and may use that to return early. When no Run loop is active,
// Finished is delivered from a separate goroutine; use Wait to observe it.
func (e *Engine) Terminate() error {
	e.mu.Lock()
	if e.state == StateTerminated {
		st := e.state
		e.mu.Unlock()
		return &CommandError{Command: "terminate", State: st}
	}
	e.terminateLocked(ReasonRequested, nil)
	running := e.running
	cancel := e.cancel
	e.mu.Unlock()

	e.logger.Info("terminate requested")
	if cancel != nil {
		cancel()
	}
	if !running {
		go e.finish()
	}
	return nil
}

// Status returns a snapshot of the controller.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Status{
		State:  e.state,
		Reason: e.reason,
		Time:   e.clock.Time(),
		Step:   e.clock.Steps(),
		Err:    e.err,
	}
}

// Wait blocks until the simulation has terminated and observers have been
// told, or ctx is done.
func (e *Engine) Wait(ctx context.Context) error {
	select {
	case <-e.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once the simulation has terminated and Finished has been
// delivered.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// Run is the step loop. It initializes the engine if needed and blocks until
// the simulation terminates.
//
// Run does not start stepping by itself: call Play (before or after Run).
//
// Returns the fatal RuntimeError if one terminated the run, ctx.Err() if ctx
// ended it, nil otherwise.
func (e *Engine) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return &CommandError{Command: "run", State: e.state}
	}
	e.running = true
	e.cancel = cancel
	st := e.state
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.running = false
		e.cancel = nil
		e.mu.Unlock()
	}()

	if st == StateUninitialized {
		if err := e.Init(); err != nil && !IsCommandError(err) {
			return err
		}
	}

	for {
		e.mu.Lock()
		state := e.state
		e.mu.Unlock()

		switch state {
		case StateTerminated:
			e.finish()
			s := e.Status()
			if s.Reason == ReasonCancelled {
				return ctx.Err()
			}
			return s.Err

		case StateRunning:
			if ctx.Err() != nil {
				e.terminate(ReasonCancelled, nil)
				continue
			}
			e.step(runCtx)
			continue
		}

		select {
		case <-ctx.Done():
			e.terminate(ReasonCancelled, nil)
		case <-e.signal:
		}
	}
}

// step runs one iteration of the loop body under stepMu.
func (e *Engine) step(ctx context.Context) {
	e.stepMu.Lock()
	defer e.stepMu.Unlock()

	// A command may have landed between the state check and the lock.
	e.mu.Lock()
	running := e.state == StateRunning
	e.mu.Unlock()
	if !running {
		return
	}

	completed := e.clock.Steps()
	attempt := completed + 1
	now := e.clock.Time()

	if err := e.applyStructure(now, attempt); err != nil {
		e.fail(err)
		return
	}

	next, ok := e.sched.PeekMin()
	if !ok || next.Time.IsInfinite() {
		e.terminate(ReasonExhausted, nil)
		return
	}
	if reason, stop := e.bounds.Check(completed, next.Time); stop {
		e.terminate(reason, nil)
		return
	}
	if next.Time.Before(now) {
		e.fail(&RuntimeError{
			Code:       ErrCodeSchedulingInconsistency,
			Step:       attempt,
			Time:       next.Time,
			ReactionID: next.Reaction.ID(),
			Err:        fmt.Errorf("scheduled at %s before current time %s", next.Time, now),
		})
		return
	}

	r := next.Reaction
	now = next.Time
	e.clock.SetTime(now)

	fired, err := r.Execute(ctx, e.env, now)
	if err != nil {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			// A requested termination keeps its reason.
			e.terminate(ReasonCancelled, nil)
			return
		}
		e.fail(&RuntimeError{Code: classify(err), Step: attempt, Time: now, ReactionID: r.ID(), Err: err})
		return
	}

	if err := e.applyStructure(now, attempt); err != nil {
		e.fail(err)
		return
	}
	if err := e.reschedule(r, now, attempt); err != nil {
		e.fail(err)
		return
	}

	step := e.clock.Advance()
	e.logger.Debug("step done",
		"step", step,
		"time", now.String(),
		"reaction", string(r.ID()),
		"node", int64(r.Node()),
		"fired", fired)

	for _, o := range e.snapshotObservers() {
		o.StepDone(e.env, r, now, step)
	}
}

// reschedule moves the executed reaction to its new time and recomputes
// every reaction its writes may have invalidated.
func (e *Engine) reschedule(r model.Reaction, now model.Time, step int64) error {
	inconsistent := func(id model.ReactionID, err error) error {
		return &RuntimeError{Code: ErrCodeSchedulingInconsistency, Step: step, Time: now, ReactionID: id, Err: err}
	}

	if e.graph.Contains(r) {
		if err := e.sched.UpdateTime(r); err != nil {
			return inconsistent(r.ID(), err)
		}
	}

	for _, dep := range e.graph.Dependents(r) {
		if dep == r {
			continue
		}
		if !e.sched.Contains(dep) {
			return inconsistent(dep.ID(), errors.New("registered in dependency graph but not scheduled"))
		}
		if err := dep.Update(e.env, now); err != nil {
			return &RuntimeError{Code: classify(err), Step: step, Time: now, ReactionID: dep.ID(), Err: err}
		}
		if err := e.sched.UpdateTime(dep); err != nil {
			return inconsistent(dep.ID(), err)
		}
		e.logger.Log(context.Background(), logging.LevelTrace, "dependent rescheduled",
			"step", step,
			"reaction", string(dep.ID()),
			"node", int64(dep.Node()),
			"next", dep.NextTime().String())
	}
	return nil
}

// applyStructure replays buffered structural changes into the graph and the
// scheduler, in the order the environment reported them.
func (e *Engine) applyStructure(now model.Time, step int64) error {
	for _, ch := range e.buffer.drain() {
		r := ch.reaction
		switch ch.kind {
		case reactionAdded:
			if err := e.register(r, now, step); err != nil {
				return err
			}
		case reactionRemoved:
			e.graph.Remove(r)
			if e.sched.Contains(r) {
				if err := e.sched.Remove(r); err != nil {
					return &RuntimeError{Code: ErrCodeSchedulingInconsistency, Step: step, Time: now, ReactionID: r.ID(), Err: err}
				}
			}
		case reactionChanged:
			if err := e.graph.Reindex(r); err != nil {
				return &RuntimeError{Code: ErrCodeSchedulingInconsistency, Step: step, Time: now, ReactionID: r.ID(), Err: err}
			}
			if err := r.Update(e.env, now); err != nil {
				return &RuntimeError{Code: classify(err), Step: step, Time: now, ReactionID: r.ID(), Err: err}
			}
			if err := e.sched.UpdateTime(r); err != nil {
				return &RuntimeError{Code: ErrCodeSchedulingInconsistency, Step: step, Time: now, ReactionID: r.ID(), Err: err}
			}
		}
	}
	return nil
}

// fail terminates with a fatal error and logs it.
func (e *Engine) fail(err error) {
	level := slog.LevelWarn
	if IsSchedulingInconsistency(err) {
		level = slog.LevelError
	}
	e.logger.Log(context.Background(), level, "simulation failed", "error", err)
	e.terminate(ReasonError, err)
}

func (e *Engine) terminate(reason Reason, err error) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.terminateLocked(reason, err)
}

// terminateLocked must be called with mu held. The first termination wins.
func (e *Engine) terminateLocked(reason Reason, err error) bool {
	if e.state == StateTerminated {
		return false
	}
	e.state = StateTerminated
	e.reason = reason
	e.err = err
	e.wake()
	return true
}

// wake signals the loop (non-blocking - buffer of 1 coalesces multiple signals).
func (e *Engine) wake() {
	select {
	case e.signal <- struct{}{}:
	default:
	}
}

// finish delivers Finished exactly once and releases Wait.
func (e *Engine) finish() {
	e.finishOnce.Do(func() {
		e.stepMu.Lock()
		defer e.stepMu.Unlock()

		s := e.Status()
		e.env.SetStructureListener(nil)
		e.logger.Info("simulation finished",
			"reason", string(s.Reason),
			"steps", s.Step,
			"time", s.Time.String(),
			"error", s.Err)

		for _, o := range e.snapshotObservers() {
			o.Finished(e.env, s.Time, s.Step)
		}
		close(e.done)
	})
}
