package observer

import (
	"context"

	"github.com/roach88/kinetic/internal/engine"
	"github.com/roach88/kinetic/internal/model"
)

// DefaultBuffer is the queue capacity used when NewAsync gets zero.
const DefaultBuffer = 256

// Async delivers events to a sink from a dedicated goroutine.
//
// Events keep their order, but the sink now lags behind the simulation:
// when a sink sees step n, the engine may already be at step n+k. The
// queue is bounded; a sink that cannot keep up eventually blocks the
// simulation at Enqueue.
//
// The consumer stops after delivering EventFinished, or after Close.
type Async struct {
	sink  Sink
	queue *eventQueue
	done  chan struct{}
}

var _ engine.Observer = (*Async)(nil)

// NewAsync starts the consumer goroutine. capacity <= 0 uses DefaultBuffer.
func NewAsync(sink Sink, capacity int) *Async {
	if capacity <= 0 {
		capacity = DefaultBuffer
	}
	a := &Async{
		sink:  sink,
		queue: newEventQueue(capacity),
		done:  make(chan struct{}),
	}
	go a.consume()
	return a
}

func (a *Async) consume() {
	defer close(a.done)
	for {
		ev, ok := a.queue.Dequeue()
		if !ok {
			return
		}
		a.sink.Handle(ev)
	}
}

func (a *Async) Initialized(env model.Environment) {
	a.queue.Enqueue(initializedEvent(env))
}

func (a *Async) StepDone(env model.Environment, r model.Reaction, t model.Time, step int64) {
	a.queue.Enqueue(stepEvent(env, r, t, step))
}

// Finished enqueues the final event and closes the queue.
func (a *Async) Finished(env model.Environment, t model.Time, step int64) {
	a.queue.Enqueue(finishedEvent(env, t, step))
	a.queue.Close()
}

// Close stops accepting events. Queued events are still delivered.
func (a *Async) Close() {
	a.queue.Close()
}

// Pending returns the number of queued, undelivered events.
func (a *Async) Pending() int {
	return a.queue.Len()
}

// Wait blocks until the consumer has delivered everything, or ctx is done.
func (a *Async) Wait(ctx context.Context) error {
	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
