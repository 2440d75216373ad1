package ecs

import (
	"iter"
	"slices"
	"unsafe"
)

type relationshipFilter struct {
	kind   RelationshipKind
	target EntityId
}

// Query iterates the entities that hold every required component of the
// struct T, in ascending id order. T is a struct of component pointers as
// described on queryShape. Queries can be system parameters or built with
// NewQuery outside of a tick.
type Query[T any] struct {
	shape         *queryShape
	entities      *EntityStore
	relationships *RelationshipStore
	filters       []relationshipFilter
	strict        bool
	workers       int
}

// NewQuery returns a query over w.
func NewQuery[T any](w *Ecs) Query[T] {
	return Query[T]{
		shape:         shapeOf[T](),
		entities:      w.entities,
		relationships: w.relationships,
		strict:        w.strict,
		workers:       w.workers,
	}
}

func (q *Query[T]) fetch(ctx *ExecutionContext) {
	*q = Query[T]{
		shape:         shapeOf[T](),
		entities:      ctx.Entities,
		relationships: ctx.Relationships,
		strict:        ctx.strict,
		workers:       ctx.workers,
	}
}

func (q *Query[T]) release() {}

func (q *Query[T]) validate() { shapeOf[T]() }

// WithRelationship returns a copy of q that only matches sources of a kind
// relationship towards target. Filters combine with AND.
func (q Query[T]) WithRelationship(kind RelationshipKind, target EntityId) Query[T] {
	q.filters = append(slices.Clip(q.filters), relationshipFilter{kind: kind, target: target})
	return q
}

func (q Query[T]) run() *queryRun {
	if q.entities == nil {
		panic("ecs: query is not bound to a world")
	}
	return newQueryRun(q.shape, q.entities, q.strict)
}

func (q Query[T]) accepts(e EntityId) bool {
	for _, f := range q.filters {
		if !q.relationships.Has(f.kind, e, f.target) {
			return false
		}
	}
	return true
}

func (q Query[T]) scan(r *queryRun, from, to EntityId, yield func(EntityId, T) bool) bool {
	var row T
	dst := unsafe.Pointer(&row)
	for e := from; e < to; e++ {
		if !q.accepts(e) {
			continue
		}
		_, cont := r.visit(e, dst, func() bool { return yield(e, row) })
		if !cont {
			return false
		}
	}
	return true
}

// IterWithIds yields each matching entity id with its row. Component locks
// for a row are held until the loop body for that row returns.
func (q Query[T]) IterWithIds() iter.Seq2[EntityId, T] {
	return func(yield func(EntityId, T) bool) {
		r := q.run()
		if r.empty {
			return
		}
		q.scan(r, 0, EntityId(q.entities.EntityCount()), yield)
	}
}

// Iter yields each matching row.
func (q Query[T]) Iter() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, row := range q.IterWithIds() {
			if !yield(row) {
				return
			}
		}
	}
}

// Get calls fn with the row for e and reports whether e matched.
func (q Query[T]) Get(e EntityId, fn func(T)) bool {
	if int(e) >= q.entities.EntityCount() || !q.accepts(e) {
		return false
	}
	r := q.run()
	if r.empty {
		return false
	}
	var row T
	matched, _ := r.visit(e, unsafe.Pointer(&row), func() bool {
		fn(row)
		return true
	})
	return matched
}

// WithId returns a single-entity iterator over e.
func (q Query[T]) WithId(e EntityId) iter.Seq[T] {
	return func(yield func(T) bool) {
		q.Get(e, func(row T) { yield(row) })
	}
}

// Count returns the number of matching entities.
func (q Query[T]) Count() int {
	n := 0
	for range q.IterWithIds() {
		n++
	}
	return n
}

// ForEachParallel splits the id range into chunks of chunkSize and calls fn
// for every matching row, one worker per chunk. fn must be safe to call
// concurrently. It returns once every chunk is done; a panic in fn is
// re-raised on the calling goroutine.
func (q Query[T]) ForEachParallel(chunkSize int, fn func(T)) {
	if chunkSize <= 0 {
		panic("ecs: ForEachParallel chunk size must be positive")
	}
	r := q.run()
	if r.empty {
		return
	}
	n := q.entities.EntityCount()
	chunks := (n + chunkSize - 1) / chunkSize
	runScoped(q.workers, chunks, func(i int) {
		from := EntityId(i * chunkSize)
		to := EntityId(min((i+1)*chunkSize, n))
		q.scan(r, from, to, func(_ EntityId, row T) bool {
			fn(row)
			return true
		})
	})
}
