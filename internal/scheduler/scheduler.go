// Package scheduler keeps reactions ordered by their next occurrence time.
//
// The queue is an indexed binary min-heap: every entry remembers its heap
// slot, so a time update or a removal costs O(log n) instead of a scan.
// Equal times are ordered by first insertion, which keeps runs reproducible
// when several reactions share a time (Dirac combs on the same grid).
//
// Reactions whose next time is Infinity stay in the heap. They sink below
// any finite entry and only come back through UpdateTime. Removal is for
// structural deletion only.
//
// The scheduler is not safe for concurrent use; the engine's run loop owns it.
package scheduler

import (
	"container/heap"
	"errors"
	"fmt"

	"github.com/roach88/kinetic/internal/model"
)

var (
	// ErrAlreadyScheduled is returned by Insert for a reaction already present.
	ErrAlreadyScheduled = errors.New("reaction already scheduled")

	// ErrNotScheduled is returned by UpdateTime and Remove for unknown reactions.
	ErrNotScheduled = errors.New("reaction not scheduled")
)

// Entry is a reaction together with the time it is scheduled at.
type Entry struct {
	Reaction model.Reaction
	Time     model.Time

	seq   uint64
	index int
}

// Scheduler is the next-reaction priority queue.
type Scheduler struct {
	heap    entryHeap
	entries map[model.Reaction]*Entry
	seq     uint64
}

// New returns an empty scheduler.
func New() *Scheduler {
	return &Scheduler{entries: make(map[model.Reaction]*Entry)}
}

// Insert schedules r at its current NextTime.
func (s *Scheduler) Insert(r model.Reaction) error {
	if _, ok := s.entries[r]; ok {
		return fmt.Errorf("insert %s: %w", r.ID(), ErrAlreadyScheduled)
	}
	s.seq++
	e := &Entry{Reaction: r, Time: r.NextTime(), seq: s.seq}
	s.entries[r] = e
	heap.Push(&s.heap, e)
	return nil
}

// UpdateTime re-reads r.NextTime and restores heap order.
func (s *Scheduler) UpdateTime(r model.Reaction) error {
	e, ok := s.entries[r]
	if !ok {
		return fmt.Errorf("update %s: %w", r.ID(), ErrNotScheduled)
	}
	t := r.NextTime()
	if t == e.Time {
		return nil
	}
	e.Time = t
	heap.Fix(&s.heap, e.index)
	return nil
}

// Remove drops r from the queue.
func (s *Scheduler) Remove(r model.Reaction) error {
	e, ok := s.entries[r]
	if !ok {
		return fmt.Errorf("remove %s: %w", r.ID(), ErrNotScheduled)
	}
	heap.Remove(&s.heap, e.index)
	delete(s.entries, r)
	return nil
}

// PeekMin returns the earliest entry without removing it.
// ok is false when the scheduler is empty.
func (s *Scheduler) PeekMin() (Entry, bool) {
	if len(s.heap) == 0 {
		return Entry{}, false
	}
	return *s.heap[0], true
}

// Contains reports whether r is scheduled.
func (s *Scheduler) Contains(r model.Reaction) bool {
	_, ok := s.entries[r]
	return ok
}

// Scheduled returns the time r is scheduled at.
func (s *Scheduler) Scheduled(r model.Reaction) (model.Time, bool) {
	e, ok := s.entries[r]
	if !ok {
		return 0, false
	}
	return e.Time, true
}

// Len returns the number of scheduled reactions, infinite ones included.
func (s *Scheduler) Len() int {
	return len(s.heap)
}

// Entries returns every entry in pop order. It copies and sorts, so it is
// meant for inspection and tests, not for the hot path.
func (s *Scheduler) Entries() []Entry {
	cp := make(entryHeap, len(s.heap))
	for i, e := range s.heap {
		c := *e
		cp[i] = &c
	}
	out := make([]Entry, 0, len(cp))
	for cp.Len() > 0 {
		out = append(out, *heap.Pop(&cp).(*Entry))
	}
	return out
}

// entryHeap implements heap.Interface.
type entryHeap []*Entry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if c := h[i].Time.Compare(h[j].Time); c != 0 {
		return c < 0
	}
	return h[i].seq < h[j].seq
}

func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *entryHeap) Push(x any) {
	e := x.(*Entry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}
