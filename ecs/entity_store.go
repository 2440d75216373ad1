package ecs

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// EntityStore owns the entity counter and one ComponentStore per component
// type. Stores are created lazily on the first insertion of their type.
type EntityStore struct {
	mu       sync.RWMutex
	stores   map[reflect.Type]componentStore
	ordered  []componentStore
	count    atomic.Uint32
	maxCount int
	registry *ComponentRegistry
	log      *zap.Logger
}

func newEntityStore(maxCount int, registry *ComponentRegistry, log *zap.Logger) *EntityStore {
	return &EntityStore{
		stores:   make(map[reflect.Type]componentStore),
		maxCount: maxCount,
		registry: registry,
		log:      log,
	}
}

// EntityCount returns the number of allocated entity ids.
func (es *EntityStore) EntityCount() int { return int(es.count.Load()) }

// MaxEntityCount returns the configured entity capacity.
func (es *EntityStore) MaxEntityCount() int { return es.maxCount }

func (es *EntityStore) allocate() EntityId {
	e := EntityId(es.count.Load())
	if int(e) >= es.maxCount {
		panic(&CapacityExceededError{Entity: e, Max: es.maxCount})
	}
	es.count.Store(uint32(e) + 1)
	es.log.Debug("allocated entity", zap.Uint32("entity", uint32(e)))
	return e
}

// reconcile moves the counter forward to n. It never moves it back.
func (es *EntityStore) reconcile(n int) {
	if n > es.maxCount {
		panic(&CapacityExceededError{Entity: EntityId(n - 1), Max: es.maxCount})
	}
	if n > es.EntityCount() {
		es.count.Store(uint32(n))
	}
}

func (es *EntityStore) write(e EntityId, component any) error {
	if int(e) >= es.EntityCount() {
		return fmt.Errorf("%w: entity %d", ErrEntityNotAllocated, e)
	}
	if c, ok := component.(Component); ok {
		c.writeTo(es, e)
		return nil
	}

	t := reflect.TypeOf(component)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	store := es.storeOf(t)
	if store == nil {
		factory := es.registry.getFactory(t)
		if factory == nil {
			panic("ecs: component type " + t.String() + " is not registered")
		}
		store = es.addStore(t, factory)
	}
	store.storeAny(e, component)
	return nil
}

func (es *EntityStore) storeOf(t reflect.Type) componentStore {
	es.mu.RLock()
	defer es.mu.RUnlock()
	return es.stores[t]
}

func (es *EntityStore) addStore(t reflect.Type, factory storeFactory) componentStore {
	es.mu.Lock()
	defer es.mu.Unlock()
	if s, ok := es.stores[t]; ok {
		return s
	}
	s := factory(len(es.ordered), es.maxCount)
	es.stores[t] = s
	es.ordered = append(es.ordered, s)
	es.log.Debug("created component store", zap.Stringer("type", t))
	return s
}

// HasComponent reports whether e holds a component of type t.
func (es *EntityStore) HasComponent(e EntityId, t reflect.Type) bool {
	s := es.storeOf(t)
	return s != nil && s.has(e)
}

// DeleteComponent removes the component of type t from e.
func (es *EntityStore) DeleteComponent(e EntityId, t reflect.Type) {
	if s := es.storeOf(t); s != nil {
		s.remove(e)
	}
}

// MarkDirty flags the component of type t on e as changed.
func (es *EntityStore) MarkDirty(e EntityId, t reflect.Type) {
	if s := es.storeOf(t); s != nil && s.has(e) {
		s.markDirty(e)
	}
}

// rollDirty starts a new dirty window in every store.
func (es *EntityStore) rollDirty() {
	es.mu.RLock()
	defer es.mu.RUnlock()
	for _, s := range es.ordered {
		s.rollDirty()
	}
}

func (es *EntityStore) snapshot() []componentStore {
	es.mu.RLock()
	defer es.mu.RUnlock()
	return append([]componentStore(nil), es.ordered...)
}

// ComponentView is a live pointer to one component of an entity.
type ComponentView struct {
	Type  reflect.Type
	Value reflect.Value
}

// Inspect returns views of every component e carries, in store creation
// order. Views bypass borrow tracking and are only safe between ticks.
func (es *EntityStore) Inspect(e EntityId) []ComponentView {
	var views []ComponentView
	for _, s := range es.snapshot() {
		if !s.has(e) {
			continue
		}
		views = append(views, ComponentView{
			Type:  s.componentType(),
			Value: reflect.NewAt(s.componentType(), s.pointer(e)),
		})
	}
	return views
}

// StoreOf returns the store for T, or nil if no T was ever inserted.
func StoreOf[T any](es *EntityStore) *ComponentStore[T] {
	s, _ := es.storeOf(reflect.TypeFor[T]()).(*ComponentStore[T])
	return s
}

func storeFor[T any](es *EntityStore) *ComponentStore[T] {
	t := reflect.TypeFor[T]()
	if s, ok := es.storeOf(t).(*ComponentStore[T]); ok {
		return s
	}
	s := es.addStore(t, func(id, maxCount int) componentStore {
		return newComponentStore[T](id, maxCount)
	})
	return s.(*ComponentStore[T])
}
