package ecs

import (
	"iter"
	"sync"
)

// EventQueue double-buffers events. Writers append to the next buffer;
// readers see the pending buffer, which is frozen for the whole tick. Swap
// promotes next to pending at the start of every tick.
type EventQueue struct {
	pendingMu sync.Mutex
	pending   []any

	nextMu sync.Mutex
	next   []any
}

// NewEventQueue returns an empty queue.
func NewEventQueue() *EventQueue {
	return &EventQueue{}
}

// Push appends an event to the next buffer.
func (q *EventQueue) Push(event any) {
	q.nextMu.Lock()
	q.next = append(q.next, event)
	q.nextMu.Unlock()
}

// Swap replaces the pending buffer with the next buffer and empties next.
func (q *EventQueue) Swap() {
	q.pendingMu.Lock()
	q.nextMu.Lock()
	old := q.pending
	q.pending = q.next
	clear(old)
	q.next = old[:0]
	q.nextMu.Unlock()
	q.pendingMu.Unlock()
}

// Pending returns the events visible to readers during the current tick.
func (q *EventQueue) Pending() []any {
	q.pendingMu.Lock()
	defer q.pendingMu.Unlock()
	return q.pending
}

// Drain removes and returns every pending event.
func (q *EventQueue) Drain() []any {
	q.pendingMu.Lock()
	defer q.pendingMu.Unlock()
	out := q.pending
	q.pending = nil
	return out
}

// Len returns the number of pending events.
func (q *EventQueue) Len() int {
	q.pendingMu.Lock()
	defer q.pendingMu.Unlock()
	return len(q.pending)
}

// PendingOf returns the pending events of type E.
func PendingOf[E any](q *EventQueue) []E {
	var out []E
	for _, ev := range q.Pending() {
		if e, ok := ev.(E); ok {
			out = append(out, e)
		}
	}
	return out
}

// EventWriter is a system parameter that pushes events of type E. They become
// readable on the next tick.
type EventWriter[E any] struct {
	queue *EventQueue
}

// Write queues an event.
func (w EventWriter[E]) Write(event E) {
	w.queue.Push(event)
}

func (w *EventWriter[E]) fetch(ctx *ExecutionContext) { w.queue = ctx.Events }
func (w *EventWriter[E]) release()                    {}

// EventReader is a system parameter that reads the events of type E written
// during the previous tick.
type EventReader[E any] struct {
	events []any
}

// Iter yields the events of type E in write order.
func (r EventReader[E]) Iter() iter.Seq[E] {
	return func(yield func(E) bool) {
		for _, ev := range r.events {
			if e, ok := ev.(E); ok {
				if !yield(e) {
					return
				}
			}
		}
	}
}

// Len counts the events of type E.
func (r EventReader[E]) Len() int {
	n := 0
	for range r.Iter() {
		n++
	}
	return n
}

func (r *EventReader[E]) fetch(ctx *ExecutionContext) { r.events = ctx.Events.Pending() }
func (r *EventReader[E]) release()                    { r.events = nil }
