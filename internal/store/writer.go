package store

import (
	"context"
	"sync"

	"github.com/roach88/kinetic/internal/observer"
	"github.com/roach88/kinetic/internal/trace"
)

// DefaultBatch is the number of steps buffered before a write.
const DefaultBatch = 512

// Writer is an observer.Sink that persists a run's steps.
//
// Steps are buffered and written in batches; the remainder is flushed on
// EventFinished. The first write error stops all further writes and is
// reported by Err.
type Writer struct {
	ctx   context.Context
	store *Store
	runID string
	batch int

	mu      sync.Mutex
	pending []trace.Record
	written int64
	err     error
}

var _ observer.Sink = (*Writer)(nil)

// NewWriter creates a writer for runID. A batch <= 0 uses DefaultBatch.
func NewWriter(ctx context.Context, s *Store, runID string, batch int) *Writer {
	if batch <= 0 {
		batch = DefaultBatch
	}
	return &Writer{ctx: ctx, store: s, runID: runID, batch: batch}
}

// Handle implements observer.Sink.
func (w *Writer) Handle(ev observer.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.err != nil {
		return
	}
	switch ev.Kind {
	case observer.EventStep:
		w.pending = append(w.pending, trace.Record{Step: ev.Step, Time: ev.Time, Reaction: ev.Reaction, Node: ev.Node})
		if len(w.pending) >= w.batch {
			w.flushLocked()
		}
	case observer.EventFinished:
		w.flushLocked()
	}
}

// Flush writes any buffered steps.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err == nil {
		w.flushLocked()
	}
	return w.err
}

func (w *Writer) flushLocked() {
	if len(w.pending) == 0 {
		return
	}
	if err := w.store.WriteSteps(w.ctx, w.runID, w.pending); err != nil {
		w.err = err
		return
	}
	w.written += int64(len(w.pending))
	w.pending = w.pending[:0]
}

// Written returns the number of steps persisted so far.
func (w *Writer) Written() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written
}

// Err returns the first write error, if any.
func (w *Writer) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}
