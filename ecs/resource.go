package ecs

import (
	"reflect"
	"slices"
	"sync"
)

type resourceCell struct {
	mu    sync.RWMutex
	value any
}

// Resources holds one value per type, each behind its own read/write lock.
// Use it for global state that is not attached to an entity: timing, input,
// asset stores and the like.
type Resources struct {
	mu    sync.RWMutex
	cells map[reflect.Type]*resourceCell
}

// NewResources returns an empty resource table.
func NewResources() *Resources {
	return &Resources{cells: make(map[reflect.Type]*resourceCell)}
}

// Insert stores value under its dynamic type, replacing any previous value of
// that type. Outstanding borrows keep the old value alive until released.
func (r *Resources) Insert(value any) {
	t := reflect.TypeOf(value)
	ptr := reflect.New(t)
	ptr.Elem().Set(reflect.ValueOf(value))

	r.mu.Lock()
	cell, ok := r.cells[t]
	if !ok {
		r.cells[t] = &resourceCell{value: ptr.Interface()}
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	cell.mu.Lock()
	cell.value = ptr.Interface()
	cell.mu.Unlock()
}

// Contains reports whether a resource of type t is present.
func (r *Resources) Contains(t reflect.Type) bool {
	return r.cell(t) != nil
}

// Len returns the number of resource types present.
func (r *Resources) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cells)
}

// Types returns the resource types present, sorted by name.
func (r *Resources) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.cells))
	for t := range r.cells {
		names = append(names, t.String())
	}
	slices.Sort(names)
	return names
}

func (r *Resources) cell(t reflect.Type) *resourceCell {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cells[t]
}

// Res is a shared borrow of the resource of type T. As a system parameter it
// is acquired right before the system runs and released right after.
type Res[T any] struct {
	cell  *resourceCell
	value *T
}

// Get returns the borrowed resource.
func (r Res[T]) Get() *T { return r.value }

// Release gives the borrow back.
func (r Res[T]) Release() {
	if r.cell != nil {
		r.cell.mu.RUnlock()
	}
}

func (r *Res[T]) fetch(ctx *ExecutionContext) {
	res, ok := ReadResource[T](ctx.Resources)
	if !ok {
		panic(&MissingResourceError{Type: reflect.TypeFor[T]()})
	}
	*r = res
}

func (r *Res[T]) release() { r.Release() }

func (r *Res[T]) access() paramAccess {
	return paramAccess{resource: reflect.TypeFor[T]()}
}

// ResMut is an exclusive borrow of the resource of type T.
type ResMut[T any] struct {
	cell  *resourceCell
	value *T
}

// Get returns the borrowed resource.
func (r ResMut[T]) Get() *T { return r.value }

// Release gives the borrow back.
func (r ResMut[T]) Release() {
	if r.cell != nil {
		r.cell.mu.Unlock()
	}
}

func (r *ResMut[T]) fetch(ctx *ExecutionContext) {
	res, ok := WriteResource[T](ctx.Resources)
	if !ok {
		panic(&MissingResourceError{Type: reflect.TypeFor[T]()})
	}
	*r = res
}

func (r *ResMut[T]) release() { r.Release() }

func (r *ResMut[T]) access() paramAccess {
	return paramAccess{resource: reflect.TypeFor[T](), exclusive: true}
}

// ReadResource acquires a shared borrow of the T resource. The second result
// is false when no T was inserted.
func ReadResource[T any](r *Resources) (Res[T], bool) {
	cell := r.cell(reflect.TypeFor[T]())
	if cell == nil {
		return Res[T]{}, false
	}
	cell.mu.RLock()
	return Res[T]{cell: cell, value: cell.value.(*T)}, true
}

// WriteResource acquires an exclusive borrow of the T resource.
func WriteResource[T any](r *Resources) (ResMut[T], bool) {
	cell := r.cell(reflect.TypeFor[T]())
	if cell == nil {
		return ResMut[T]{}, false
	}
	cell.mu.Lock()
	return ResMut[T]{cell: cell, value: cell.value.(*T)}, true
}
