package ecs

import (
	"reflect"
	"sync"
)

type storeFactory func(id, maxCount int) componentStore

// ComponentRegistry maps component types to store constructors. Values handed
// to the world as plain `any` must have their type registered here; values
// wrapped with C need no registration.
type ComponentRegistry struct {
	mu        sync.RWMutex
	factories map[reflect.Type]storeFactory
}

// NewComponentRegistry creates a new component registry.
func NewComponentRegistry() *ComponentRegistry {
	return &ComponentRegistry{
		factories: make(map[reflect.Type]storeFactory),
	}
}

// RegisterComponent registers a component type with the given registry.
func RegisterComponent[T any](r *ComponentRegistry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[reflect.TypeFor[T]()] = func(id, maxCount int) componentStore {
		return newComponentStore[T](id, maxCount)
	}
}

// Registered reports whether t has a registered store constructor.
func (r *ComponentRegistry) Registered(t reflect.Type) bool {
	return r.getFactory(t) != nil
}

func (r *ComponentRegistry) getFactory(t reflect.Type) storeFactory {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.factories[t]
}

// Component is a value whose concrete type is known statically. Wrapping
// values with C lets the world create their store without prior registration.
type Component interface {
	ComponentType() reflect.Type
	writeTo(es *EntityStore, e EntityId)
}

type typedComponent[T any] struct {
	value T
}

// C wraps value so that it can be inserted without registering T first.
func C[T any](value T) Component {
	return typedComponent[T]{value: value}
}

func (c typedComponent[T]) ComponentType() reflect.Type { return reflect.TypeFor[T]() }

func (c typedComponent[T]) writeTo(es *EntityStore, e EntityId) {
	storeFor[T](es).Store(e, c.value)
}
