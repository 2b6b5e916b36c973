// Package observer provides engine observers built on plain-value events.
//
// An engine.Observer receives the live environment and must not keep it.
// The adapters here copy what a consumer needs (reaction ID, node, time,
// step, node count) into an Event and hand that to a Sink. Sync delivers on
// the simulation goroutine; Async delivers from its own goroutine through a
// bounded queue.
package observer

import (
	"github.com/roach88/kinetic/internal/engine"
	"github.com/roach88/kinetic/internal/model"
)

// EventKind distinguishes between event kinds.
type EventKind int

const (
	// EventInitialized is delivered once, after Init.
	EventInitialized EventKind = iota + 1
	// EventStep is delivered after every completed step.
	EventStep
	// EventFinished is delivered once, after termination.
	EventFinished
)

func (k EventKind) String() string {
	switch k {
	case EventInitialized:
		return "initialized"
	case EventStep:
		return "step"
	case EventFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Event is a copy of one observer notification.
type Event struct {
	Kind     EventKind
	Step     int64
	Time     model.Time
	Reaction model.ReactionID // EventStep only
	Node     model.NodeID     // EventStep only
	Nodes    int              // node count when the event was produced
}

// Sink consumes events.
type Sink interface {
	Handle(ev Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ev Event)

func (f SinkFunc) Handle(ev Event) { f(ev) }

func initializedEvent(env model.Environment) Event {
	return Event{Kind: EventInitialized, Nodes: env.NodeCount()}
}

func stepEvent(env model.Environment, r model.Reaction, t model.Time, step int64) Event {
	return Event{Kind: EventStep, Step: step, Time: t, Reaction: r.ID(), Node: r.Node(), Nodes: env.NodeCount()}
}

func finishedEvent(env model.Environment, t model.Time, step int64) Event {
	return Event{Kind: EventFinished, Step: step, Time: t, Nodes: env.NodeCount()}
}

// Tee returns a Sink that hands each event to every sink in order.
func Tee(sinks ...Sink) Sink {
	return SinkFunc(func(ev Event) {
		for _, s := range sinks {
			s.Handle(ev)
		}
	})
}

// syncObserver delivers to a Sink inline.
type syncObserver struct {
	sinks []Sink
}

// Sync returns an observer that hands events to sinks on the simulation
// goroutine, in order.
func Sync(sinks ...Sink) engine.Observer {
	return &syncObserver{sinks: sinks}
}

func (o *syncObserver) Initialized(env model.Environment) {
	o.emit(initializedEvent(env))
}

func (o *syncObserver) StepDone(env model.Environment, r model.Reaction, t model.Time, step int64) {
	o.emit(stepEvent(env, r, t, step))
}

func (o *syncObserver) Finished(env model.Environment, t model.Time, step int64) {
	o.emit(finishedEvent(env, t, step))
}

func (o *syncObserver) emit(ev Event) {
	for _, s := range o.sinks {
		s.Handle(ev)
	}
}
