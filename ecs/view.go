package ecs

import (
	"fmt"
	"reflect"
	"slices"
	"sync"
	"unsafe"
)

// fetchKind says how a query field is fetched for each entity.
type fetchKind uint8

const (
	fetchShared fetchKind = iota
	fetchExclusive
	fetchOptional
	fetchOptionalExclusive
	fetchDirty
)

func (k fetchKind) required() bool {
	return k == fetchShared || k == fetchExclusive
}

func (k fetchKind) exclusive() bool {
	return k == fetchExclusive || k == fetchOptionalExclusive
}

// Dirty is a query field type reporting whether component C was mutated on
// the entity during the current or the previous tick. It never rejects an
// entity and takes no lock.
type Dirty[C any] bool

func (Dirty[C]) dirtyComponent() reflect.Type { return reflect.TypeFor[C]() }

type dirtyFlag interface {
	dirtyComponent() reflect.Type
}

var dirtyFlagType = reflect.TypeFor[dirtyFlag]()

type queryField struct {
	name      string
	kind      fetchKind
	component reflect.Type
	offset    uintptr
}

// queryShape is the parsed layout of a query struct. The struct holds one
// pointer field per component; embedded fields are always required, named
// fields accept the `ecs:"optional"`, `ecs:"mut"` and `ecs:"optional,mut"`
// tags.
type queryShape struct {
	typ    reflect.Type
	fields []queryField
}

var shapeCache sync.Map

func shapeOf[T any]() *queryShape {
	t := reflect.TypeFor[T]()
	if s, ok := shapeCache.Load(t); ok {
		return s.(*queryShape)
	}
	s, _ := shapeCache.LoadOrStore(t, parseShape(t))
	return s.(*queryShape)
}

func parseShape(t reflect.Type) *queryShape {
	if t.Kind() != reflect.Struct {
		panic("ecs: query type parameter must be a struct, got " + t.String())
	}
	if t.NumField() > 64 {
		panic("ecs: query struct " + t.String() + " has more than 64 fields")
	}

	shape := &queryShape{typ: t, fields: make([]queryField, 0, t.NumField())}
	seen := make(map[reflect.Type]bool, t.NumField())

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)

		if f.Type.Implements(dirtyFlagType) {
			shape.fields = append(shape.fields, queryField{
				name:      f.Name,
				kind:      fetchDirty,
				component: reflect.Zero(f.Type).Interface().(dirtyFlag).dirtyComponent(),
				offset:    f.Offset,
			})
			continue
		}

		if f.Type.Kind() != reflect.Pointer {
			panic("ecs: query struct fields must be component pointers or ecs.Dirty[C], " + f.Name + " is " + f.Type.String())
		}

		kind := fetchShared
		switch tag := f.Tag.Get("ecs"); tag {
		case "":
		case "mut":
			kind = fetchExclusive
		case "optional":
			kind = fetchOptional
		case "optional,mut", "mut,optional":
			kind = fetchOptionalExclusive
		default:
			panic("ecs: invalid ecs tag value: \"" + tag + "\" on field " + f.Name)
		}
		if f.Anonymous && !kind.required() {
			panic("ecs: embedded query field " + f.Name + " cannot be optional")
		}

		component := f.Type.Elem()
		if seen[component] {
			panic(fmt.Sprintf("ecs: component %s appears twice in query %s", component, t))
		}
		seen[component] = true

		shape.fields = append(shape.fields, queryField{
			name:      f.Name,
			kind:      kind,
			component: component,
			offset:    f.Offset,
		})
	}
	return shape
}

// queryRun is a query shape resolved against the stores present at the start
// of an iteration.
type queryRun struct {
	shape  *queryShape
	stores []componentStore
	order  []int
	strict bool
	empty  bool
}

func newQueryRun(shape *queryShape, es *EntityStore, strict bool) *queryRun {
	r := &queryRun{
		shape:  shape,
		stores: make([]componentStore, len(shape.fields)),
		strict: strict,
	}
	for i, f := range shape.fields {
		s := es.storeOf(f.component)
		r.stores[i] = s
		if s == nil {
			if f.kind.required() {
				r.empty = true
			}
			continue
		}
		if f.kind != fetchDirty {
			r.order = append(r.order, i)
		}
	}
	// Row locks are always taken in store order so that two queries touching
	// the same stores cannot deadlock each other.
	slices.SortFunc(r.order, func(a, b int) int {
		return r.stores[a].storeId() - r.stores[b].storeId()
	})
	return r
}

func fieldAt(dst unsafe.Pointer, offset uintptr) unsafe.Pointer {
	return unsafe.Add(dst, offset)
}

// acquire fills dst with the row for e and returns the set of locked fields.
// It returns false without holding anything when e does not match.
func (r *queryRun) acquire(e EntityId, dst unsafe.Pointer) (held uint64, ok bool) {
	for i, f := range r.shape.fields {
		if f.kind.required() && !r.stores[i].has(e) {
			return 0, false
		}
	}

	if r.strict {
		defer func() {
			if p := recover(); p != nil {
				r.release(e, held)
				panic(p)
			}
		}()
	}

	for _, i := range r.order {
		f := r.shape.fields[i]
		s := r.stores[i]
		ptr := fieldAt(dst, f.offset)
		if !s.has(e) {
			*(*unsafe.Pointer)(ptr) = nil
			continue
		}
		s.lock(e, f.kind.exclusive(), r.strict)
		held |= 1 << i
		*(*unsafe.Pointer)(ptr) = s.pointer(e)
	}

	for i, f := range r.shape.fields {
		ptr := fieldAt(dst, f.offset)
		switch {
		case f.kind == fetchDirty:
			s := r.stores[i]
			*(*bool)(ptr) = s != nil && s.isDirty(e)
		case r.stores[i] == nil:
			*(*unsafe.Pointer)(ptr) = nil
		}
	}
	return held, true
}

func (r *queryRun) release(e EntityId, held uint64) {
	for j := len(r.order) - 1; j >= 0; j-- {
		i := r.order[j]
		if held&(1<<i) == 0 {
			continue
		}
		r.stores[i].unlock(e, r.shape.fields[i].kind.exclusive())
	}
}

// visit acquires the row for e, hands it to fn and releases it, even when fn
// panics. It reports whether e matched and what fn returned.
func (r *queryRun) visit(e EntityId, dst unsafe.Pointer, fn func() bool) (matched, cont bool) {
	held, ok := r.acquire(e, dst)
	if !ok {
		return false, true
	}
	defer r.release(e, held)
	return true, fn()
}
