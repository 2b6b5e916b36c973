package observer

import "sync"

// eventQueue is a thread-safe bounded FIFO queue for events.
//
// Enqueue blocks while the queue is full, which pushes back on the
// simulation instead of dropping or reordering events.
//
// The queue uses channels for signaling in both directions: ready wakes the
// consumer, space wakes a blocked producer.
type eventQueue struct {
	mu       sync.Mutex
	events   []Event
	capacity int
	closed   bool
	ready    chan struct{} // Signals event availability (buffered, size 1)
	space    chan struct{} // Signals free capacity (buffered, size 1)
}

// newEventQueue creates an empty queue holding at most capacity events.
func newEventQueue(capacity int) *eventQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &eventQueue{
		events:   make([]Event, 0, capacity),
		capacity: capacity,
		ready:    make(chan struct{}, 1),
		space:    make(chan struct{}, 1),
	}
}

// Enqueue adds an event to the back of the queue, blocking while it is full.
// Returns false if the queue is closed.
func (q *eventQueue) Enqueue(e Event) bool {
	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return false
		}
		if len(q.events) < q.capacity {
			q.events = append(q.events, e)
			notify(q.ready)
			q.mu.Unlock()
			return true
		}
		q.mu.Unlock()
		<-q.space
	}
}

// TryDequeue attempts to dequeue without blocking.
// Returns (Event{}, false) if queue is empty.
func (q *eventQueue) TryDequeue() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return Event{}, false
	}

	e := q.events[0]
	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}
	if !q.closed {
		notify(q.space)
	}
	return e, true
}

// Dequeue removes and returns the front event.
// Blocks until an event is available or the queue is closed.
// Returns (Event{}, false) if the queue is closed and empty.
func (q *eventQueue) Dequeue() (Event, bool) {
	for {
		if e, ok := q.TryDequeue(); ok {
			return e, true
		}

		q.mu.Lock()
		if q.closed && len(q.events) == 0 {
			q.mu.Unlock()
			return Event{}, false
		}
		q.mu.Unlock()

		<-q.ready
	}
}

// Len returns the current queue length.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Close signals that no more events will be enqueued. Events already queued
// are still delivered. Blocked producers and waiters wake up.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.ready)
	close(q.space)
}

// notify is a non-blocking send; the buffer of 1 coalesces signals.
func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
