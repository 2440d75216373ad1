package ecs

import (
	"math"
	"reflect"
	"sync"
	"unsafe"
)

// Dropper is implemented by components that own something which must be
// released when the component is deleted from its store.
type Dropper interface {
	Drop()
}

// componentStore is the type-erased view of a ComponentStore used by queries,
// commands and stats.
type componentStore interface {
	componentType() reflect.Type
	storeId() int
	storeAny(e EntityId, value any)
	remove(e EntityId)
	has(e EntityId) bool
	pointer(e EntityId) unsafe.Pointer
	lock(e EntityId, exclusive, strict bool)
	unlock(e EntityId, exclusive bool)
	isDirty(e EntityId) bool
	markDirty(e EntityId)
	rollDirty()
	count() int
	capacity() int
}

const minStoreGrowth = 8

// ComponentStore holds every value of a single component type, indexed
// directly by entity id. Occupancy and dirty state live in bitsets; each slot
// has its own read/write lock used by queries.
//
// Dirty state spans two ticks: writes land in the current bitset, and at the
// tick boundary the current bits replace the previous ones. An entry reads as
// dirty when either bitset holds it, so a system sees every write made since
// its own run in the previous tick, whichever set made it.
type ComponentStore[T any] struct {
	typ       reflect.Type
	id        int
	maxCount  int
	zeroSized bool
	zero      T
	data      []T
	present   bitset
	dirty     bitset
	previous  bitset
	locks     []sync.RWMutex
	drop      func(*T)
}

func newComponentStore[T any](id, maxCount int) *ComponentStore[T] {
	s := &ComponentStore[T]{
		typ:      reflect.TypeFor[T](),
		id:       id,
		maxCount: maxCount,
		present:  newBitset(maxCount),
		dirty:    newBitset(maxCount),
		previous: newBitset(maxCount),
		locks:    make([]sync.RWMutex, maxCount),
	}
	s.zeroSized = s.typ.Size() == 0
	if _, ok := any((*T)(nil)).(Dropper); ok {
		s.drop = func(v *T) { any(v).(Dropper).Drop() }
	}
	return s
}

func (s *ComponentStore[T]) grow(n int) {
	if s.zeroSized || n <= len(s.data) {
		return
	}
	size := max(len(s.data)*2, minStoreGrowth)
	for size < n {
		size *= 2
	}
	size = min(size, s.maxCount)
	data := make([]T, size)
	copy(data, s.data)
	s.data = data
}

func (s *ComponentStore[T]) slot(e EntityId) *T {
	if s.zeroSized {
		return &s.zero
	}
	return &s.data[e]
}

// Store writes value into the slot for e and marks the entry dirty. A value
// already there is dropped. Storing past the maximum entity count panics with
// a *CapacityExceededError.
func (s *ComponentStore[T]) Store(e EntityId, value T) {
	if int(e) >= s.maxCount {
		panic(&CapacityExceededError{Entity: e, Max: s.maxCount})
	}
	if s.present.test(e) {
		if s.drop != nil {
			s.drop(s.slot(e))
		}
	} else {
		s.grow(int(e) + 1)
	}
	if !s.zeroSized {
		s.data[e] = value
	}
	s.present.set(e)
	s.dirty.set(e)
}

// Delete clears the slot for e and runs the component's Drop method, if any.
func (s *ComponentStore[T]) Delete(e EntityId) {
	if !s.present.test(e) {
		return
	}
	s.present.unset(e)
	s.dirty.unset(e)
	s.previous.unset(e)
	if s.drop != nil {
		s.drop(s.slot(e))
	}
	if !s.zeroSized {
		var zero T
		s.data[e] = zero
	}
}

// Has reports whether e holds a value of this type.
func (s *ComponentStore[T]) Has(e EntityId) bool {
	return s.present.test(e)
}

// Get returns a shared borrow of the value stored for e. The borrow must be
// released.
func (s *ComponentStore[T]) Get(e EntityId) (Ref[T], bool) {
	if !s.present.test(e) {
		return Ref[T]{}, false
	}
	s.locks[e].RLock()
	return Ref[T]{store: s, entity: e, value: s.slot(e)}, true
}

// GetMut returns an exclusive borrow of the value stored for e. Releasing it
// marks the entry dirty.
func (s *ComponentStore[T]) GetMut(e EntityId) (RefMut[T], bool) {
	if !s.present.test(e) {
		return RefMut[T]{}, false
	}
	s.locks[e].Lock()
	return RefMut[T]{store: s, entity: e, value: s.slot(e)}, true
}

// Dirty reports whether e was mutated during this tick or the previous one.
func (s *ComponentStore[T]) Dirty(e EntityId) bool {
	return s.dirty.test(e) || s.previous.test(e)
}

// SetDirty marks e as mutated.
func (s *ComponentStore[T]) SetDirty(e EntityId) {
	if int(e) < s.maxCount {
		s.dirty.set(e)
	}
}

// ClearDirty resets the dirty bit of every entity in both ticks.
func (s *ComponentStore[T]) ClearDirty() {
	s.dirty.clear()
	s.previous.clear()
}

// Len returns the number of occupied slots.
func (s *ComponentStore[T]) Len() int { return s.present.count() }

// Cap returns the number of slots currently backed by memory. Zero-sized
// component types never allocate and report an unbounded capacity.
func (s *ComponentStore[T]) Cap() int {
	if s.zeroSized {
		return math.MaxInt
	}
	return len(s.data)
}

func (s *ComponentStore[T]) componentType() reflect.Type { return s.typ }
func (s *ComponentStore[T]) storeId() int                { return s.id }
func (s *ComponentStore[T]) remove(e EntityId)           { s.Delete(e) }
func (s *ComponentStore[T]) has(e EntityId) bool         { return s.present.test(e) }
func (s *ComponentStore[T]) isDirty(e EntityId) bool     { return s.Dirty(e) }
func (s *ComponentStore[T]) markDirty(e EntityId)        { s.SetDirty(e) }
func (s *ComponentStore[T]) rollDirty()                  { s.dirty.moveTo(s.previous) }
func (s *ComponentStore[T]) count() int                  { return s.present.count() }
func (s *ComponentStore[T]) capacity() int               { return s.Cap() }

func (s *ComponentStore[T]) storeAny(e EntityId, value any) {
	switch v := value.(type) {
	case T:
		s.Store(e, v)
	case *T:
		s.Store(e, *v)
	default:
		panic("ecs: cannot store " + reflect.TypeOf(value).String() + " in a " + s.typ.String() + " store")
	}
}

func (s *ComponentStore[T]) pointer(e EntityId) unsafe.Pointer {
	return unsafe.Pointer(s.slot(e))
}

func (s *ComponentStore[T]) lock(e EntityId, exclusive, strict bool) {
	l := &s.locks[e]
	switch {
	case strict && exclusive:
		if !l.TryLock() {
			panic(&BorrowConflictError{Entity: e, Component: s.typ.String(), Exclusive: true})
		}
	case strict:
		if !l.TryRLock() {
			panic(&BorrowConflictError{Entity: e, Component: s.typ.String()})
		}
	case exclusive:
		l.Lock()
	default:
		l.RLock()
	}
}

func (s *ComponentStore[T]) unlock(e EntityId, exclusive bool) {
	if exclusive {
		s.dirty.set(e)
		s.locks[e].Unlock()
		return
	}
	s.locks[e].RUnlock()
}

// Ref is a shared borrow of a stored component.
type Ref[T any] struct {
	store  *ComponentStore[T]
	entity EntityId
	value  *T
}

// Get returns the borrowed value.
func (r Ref[T]) Get() *T { return r.value }

// Release gives the borrow back.
func (r Ref[T]) Release() { r.store.locks[r.entity].RUnlock() }

// RefMut is an exclusive borrow of a stored component.
type RefMut[T any] struct {
	store  *ComponentStore[T]
	entity EntityId
	value  *T
}

// Get returns the borrowed value.
func (r RefMut[T]) Get() *T { return r.value }

// Release marks the entry dirty and gives the borrow back.
func (r RefMut[T]) Release() { r.store.unlock(r.entity, true) }
