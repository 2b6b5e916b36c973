package engine

import (
	"slices"

	"github.com/roach88/kinetic/internal/model"
)

// Observer receives simulation progress.
//
// Callbacks run synchronously on the simulation goroutine, in causal order:
// Initialized once, StepDone after every completed step, Finished once.
// A slow observer stalls the simulation; wrap it in observer.Async to
// trade ordering with wall-clock time for throughput.
//
// Observers may call the engine's control methods (Pause, Terminate,
// Status) from inside a callback. They must not keep env past the call.
type Observer interface {
	Initialized(env model.Environment)
	StepDone(env model.Environment, r model.Reaction, t model.Time, step int64)
	Finished(env model.Environment, t model.Time, step int64)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	OnInitialized func(env model.Environment)
	OnStepDone    func(env model.Environment, r model.Reaction, t model.Time, step int64)
	OnFinished    func(env model.Environment, t model.Time, step int64)
}

func (f *ObserverFuncs) Initialized(env model.Environment) {
	if f.OnInitialized != nil {
		f.OnInitialized(env)
	}
}

func (f *ObserverFuncs) StepDone(env model.Environment, r model.Reaction, t model.Time, step int64) {
	if f.OnStepDone != nil {
		f.OnStepDone(env, r, t, step)
	}
}

func (f *ObserverFuncs) Finished(env model.Environment, t model.Time, step int64) {
	if f.OnFinished != nil {
		f.OnFinished(env, t, step)
	}
}

// AddObserver registers o. Safe from any goroutine, including from inside a
// callback; o starts receiving notifications from the next one delivered.
func (e *Engine) AddObserver(o Observer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observers = append(slices.Clip(e.observers), o)
}

// RemoveObserver unregisters o and reports whether it was registered.
// Observers are compared by identity, so register pointers.
func (e *Engine) RemoveObserver(o Observer) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	i := slices.Index(e.observers, o)
	if i < 0 {
		return false
	}
	e.observers = slices.Delete(slices.Clone(e.observers), i, i+1)
	return true
}

// snapshotObservers returns the current list. The slice is never mutated in
// place, so it can be iterated without holding the lock.
func (e *Engine) snapshotObservers() []Observer {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.observers
}
