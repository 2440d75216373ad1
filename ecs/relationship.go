package ecs

import (
	"iter"
	"reflect"
	"slices"

	"github.com/kamstrup/intmap"
)

// RelationshipKind identifies a relationship by a Go type, usually an empty
// struct such as ChildOf.
type RelationshipKind struct {
	typ reflect.Type
}

// RelationshipOf returns the kind identified by R.
func RelationshipOf[R any]() RelationshipKind {
	return RelationshipKind{typ: reflect.TypeFor[R]()}
}

func (k RelationshipKind) String() string {
	if k.typ == nil {
		return "<nil>"
	}
	return k.typ.String()
}

// ChildOf relates a child (source) to its parent (target).
type ChildOf struct{}

// EntitySet is a read-only view of a set of entities held by the
// relationship store. The zero value is an empty set.
type EntitySet struct {
	set *intmap.Set[EntityId]
}

// Has reports whether e is in the set.
func (s EntitySet) Has(e EntityId) bool {
	return s.set != nil && s.set.Has(e)
}

// Len returns the number of entities in the set.
func (s EntitySet) Len() int {
	if s.set == nil {
		return 0
	}
	return s.set.Len()
}

// Sorted returns the entities in ascending id order.
func (s EntitySet) Sorted() []EntityId {
	if s.set == nil {
		return nil
	}
	out := make([]EntityId, 0, s.set.Len())
	s.set.ForEach(func(e EntityId) bool {
		out = append(out, e)
		return true
	})
	slices.Sort(out)
	return out
}

// All iterates the set in ascending id order.
func (s EntitySet) All() iter.Seq[EntityId] {
	return slices.Values(s.Sorted())
}

type relationshipIndex struct {
	sourcesByTarget *intmap.Map[EntityId, *intmap.Set[EntityId]]
	targetsBySource *intmap.Map[EntityId, *intmap.Set[EntityId]]
}

func newRelationshipIndex() *relationshipIndex {
	return &relationshipIndex{
		sourcesByTarget: intmap.New[EntityId, *intmap.Set[EntityId]](64),
		targetsBySource: intmap.New[EntityId, *intmap.Set[EntityId]](64),
	}
}

func addTo(m *intmap.Map[EntityId, *intmap.Set[EntityId]], key, value EntityId) {
	set, ok := m.Get(key)
	if !ok {
		set = intmap.NewSet[EntityId](4)
		m.Put(key, set)
	}
	set.Add(value)
}

// RelationshipStore keeps typed (source, target) pairs with an index in each
// direction. It is only mutated while commands are applied, so reads during a
// tick need no locking.
type RelationshipStore struct {
	kinds map[RelationshipKind]*relationshipIndex
	order []RelationshipKind
}

// NewRelationshipStore returns an empty relationship store.
func NewRelationshipStore() *RelationshipStore {
	return &RelationshipStore{kinds: make(map[RelationshipKind]*relationshipIndex)}
}

func (rs *RelationshipStore) index(kind RelationshipKind) *relationshipIndex {
	idx, ok := rs.kinds[kind]
	if !ok {
		idx = newRelationshipIndex()
		rs.kinds[kind] = idx
		rs.order = append(rs.order, kind)
	}
	return idx
}

// Insert records that source is in relation kind to target.
func (rs *RelationshipStore) Insert(kind RelationshipKind, source, target EntityId) {
	idx := rs.index(kind)
	addTo(idx.sourcesByTarget, target, source)
	addTo(idx.targetsBySource, source, target)
}

// Has reports whether (source, target) is recorded for kind.
func (rs *RelationshipStore) Has(kind RelationshipKind, source, target EntityId) bool {
	idx, ok := rs.kinds[kind]
	if !ok {
		return false
	}
	targets, ok := idx.targetsBySource.Get(source)
	return ok && targets.Has(target)
}

// SourcesOf returns every entity that is in relation kind to target.
func (rs *RelationshipStore) SourcesOf(kind RelationshipKind, target EntityId) EntitySet {
	idx, ok := rs.kinds[kind]
	if !ok {
		return EntitySet{}
	}
	set, _ := idx.sourcesByTarget.Get(target)
	return EntitySet{set: set}
}

// TargetsOf returns every entity that source is in relation kind to.
func (rs *RelationshipStore) TargetsOf(kind RelationshipKind, source EntityId) EntitySet {
	idx, ok := rs.kinds[kind]
	if !ok {
		return EntitySet{}
	}
	set, _ := idx.targetsBySource.Get(source)
	return EntitySet{set: set}
}

// AllSourcesOf returns every entity that is the source of at least one kind
// relationship, in ascending id order.
func (rs *RelationshipStore) AllSourcesOf(kind RelationshipKind) []EntityId {
	idx, ok := rs.kinds[kind]
	if !ok {
		return nil
	}
	out := make([]EntityId, 0, idx.targetsBySource.Len())
	idx.targetsBySource.ForEach(func(source EntityId, targets *intmap.Set[EntityId]) bool {
		if targets.Len() > 0 {
			out = append(out, source)
		}
		return true
	})
	slices.Sort(out)
	return out
}

// Ancestors walks targets transitively starting at e (for ChildOf: parent,
// grandparent, ...). Each entity appears once and e itself is never listed,
// even on cyclic graphs.
func (rs *RelationshipStore) Ancestors(kind RelationshipKind, e EntityId) []EntityId {
	return rs.walk(kind, e, rs.TargetsOf)
}

// Successors walks sources transitively starting at e (for ChildOf: children,
// grandchildren, ...).
func (rs *RelationshipStore) Successors(kind RelationshipKind, e EntityId) []EntityId {
	return rs.walk(kind, e, rs.SourcesOf)
}

func (rs *RelationshipStore) walk(kind RelationshipKind, start EntityId, next func(RelationshipKind, EntityId) EntitySet) []EntityId {
	visited := intmap.NewSet[EntityId](16)
	visited.Add(start)

	var out []EntityId
	work := []EntityId{start}
	for len(work) > 0 {
		e := work[0]
		work = work[1:]
		for _, n := range next(kind, e).Sorted() {
			if visited.Has(n) {
				continue
			}
			visited.Add(n)
			out = append(out, n)
			work = append(work, n)
		}
	}
	return out
}

// Kinds returns the relationship kinds seen so far, in first-insert order.
func (rs *RelationshipStore) Kinds() []RelationshipKind {
	return slices.Clone(rs.order)
}
