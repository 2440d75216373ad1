package ecs

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"
)

// System is a unit of behaviour run once per tick.
//
// Struct systems may declare exported fields of parameter types (Query, Res,
// ResMut, EventReader, EventWriter or *CommandBuffer). They are filled right
// before Execute and released when it returns, so the struct can keep its
// own state between ticks alongside them.
type System interface {
	Execute(ctx *ExecutionContext)
}

// SystemFunc adapts a plain function to System.
type SystemFunc func(ctx *ExecutionContext)

func (f SystemFunc) Execute(ctx *ExecutionContext) { f(ctx) }

// systemParam is implemented (on the pointer) by every injectable parameter
// type.
type systemParam interface {
	fetch(ctx *ExecutionContext)
	release()
}

type paramValidator interface {
	validate()
}

type paramAccess struct {
	resource  reflect.Type
	exclusive bool
}

type resourceAccessor interface {
	access() paramAccess
}

var (
	systemParamType     = reflect.TypeFor[systemParam]()
	commandBufferType   = reflect.TypeFor[*CommandBuffer]()
	executionContextPtr = reflect.TypeFor[*ExecutionContext]()
)

type paramKind uint8

const (
	paramInjected paramKind = iota
	paramCommands
	paramContext
)

func classifyParam(t reflect.Type, where string) paramKind {
	switch {
	case t == commandBufferType:
		return paramCommands
	case t == executionContextPtr:
		return paramContext
	case reflect.PointerTo(t).Implements(systemParamType):
		return paramInjected
	}
	panic(fmt.Sprintf("ecs: unsupported system parameter type %s in %s", t, where))
}

// checkParams validates every injected parameter up front: query shapes are
// parsed and a resource may only be borrowed once per system.
func checkParams(types []reflect.Type, kinds []paramKind, where string) {
	resources := make(map[reflect.Type]bool)
	for i, t := range types {
		if kinds[i] != paramInjected {
			continue
		}
		v := reflect.New(t).Interface()
		if pv, ok := v.(paramValidator); ok {
			pv.validate()
		}
		if ra, ok := v.(resourceAccessor); ok {
			a := ra.access()
			if resources[a.resource] {
				panic(fmt.Sprintf("ecs: resource %s is borrowed more than once in %s", a.resource, where))
			}
			resources[a.resource] = true
		}
	}
}

// NewSystem turns s into a System. s may be a System (struct parameter fields
// are injected), a func(*ExecutionContext), or any function whose parameters
// are all injectable types, e.g.
//
//	func(cmd *ecs.CommandBuffer, q ecs.Query[struct{ *Health }], dt ecs.Res[DeltaTime])
func NewSystem(s any) System {
	switch v := s.(type) {
	case nil:
		panic("ecs: nil system")
	case func(*ExecutionContext):
		return SystemFunc(v)
	case System:
		if fs := newFieldSystem(v); fs != nil {
			return fs
		}
		return v
	}
	return newFuncSystem(s)
}

func systemName(s System) string {
	switch v := s.(type) {
	case *funcSystem:
		return v.name
	case *fieldSystem:
		return systemName(v.inner)
	case SystemFunc:
		return funcName(reflect.ValueOf(v))
	}
	t := reflect.TypeOf(s)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

func funcName(v reflect.Value) string {
	f := runtime.FuncForPC(v.Pointer())
	if f == nil {
		return v.Type().String()
	}
	name := f.Name()
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return name
}

type funcSystem struct {
	name  string
	fn    reflect.Value
	types []reflect.Type
	kinds []paramKind
}

func newFuncSystem(fn any) *funcSystem {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		panic(fmt.Sprintf("ecs: %T is neither a System nor a function", fn))
	}
	t := v.Type()
	s := &funcSystem{
		name:  funcName(v),
		fn:    v,
		types: make([]reflect.Type, t.NumIn()),
		kinds: make([]paramKind, t.NumIn()),
	}
	for i := range t.NumIn() {
		s.types[i] = t.In(i)
		s.kinds[i] = classifyParam(t.In(i), s.name)
	}
	checkParams(s.types, s.kinds, s.name)
	return s
}

func (s *funcSystem) Execute(ctx *ExecutionContext) {
	args := make([]reflect.Value, len(s.types))
	fetched := make([]systemParam, 0, len(s.types))
	defer func() {
		for i := len(fetched) - 1; i >= 0; i-- {
			fetched[i].release()
		}
	}()

	for i, t := range s.types {
		switch s.kinds[i] {
		case paramCommands:
			args[i] = reflect.ValueOf(ctx.Commands)
		case paramContext:
			args[i] = reflect.ValueOf(ctx)
		default:
			v := reflect.New(t)
			p := v.Interface().(systemParam)
			p.fetch(ctx)
			fetched = append(fetched, p)
			args[i] = v.Elem()
		}
	}
	s.fn.Call(args)
}

type fieldSystem struct {
	inner  System
	value  reflect.Value
	fields []int
	kinds  []paramKind
}

// newFieldSystem returns nil when s has no injectable fields.
func newFieldSystem(s System) *fieldSystem {
	v := reflect.ValueOf(s)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return nil
	}
	v = v.Elem()
	t := v.Type()

	fs := &fieldSystem{inner: s, value: v}
	var types []reflect.Type
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		var kind paramKind
		switch {
		case f.Type == commandBufferType:
			kind = paramCommands
		case reflect.PointerTo(f.Type).Implements(systemParamType):
			kind = paramInjected
		default:
			continue
		}
		fs.fields = append(fs.fields, i)
		fs.kinds = append(fs.kinds, kind)
		types = append(types, f.Type)
	}
	if len(fs.fields) == 0 {
		return nil
	}
	checkParams(types, fs.kinds, t.Name())
	return fs
}

func (s *fieldSystem) Execute(ctx *ExecutionContext) {
	fetched := make([]systemParam, 0, len(s.fields))
	defer func() {
		for i := len(fetched) - 1; i >= 0; i-- {
			fetched[i].release()
		}
	}()

	for i, idx := range s.fields {
		field := s.value.Field(idx)
		if s.kinds[i] == paramCommands {
			field.Set(reflect.ValueOf(ctx.Commands))
			continue
		}
		p := field.Addr().Interface().(systemParam)
		p.fetch(ctx)
		fetched = append(fetched, p)
	}
	s.inner.Execute(ctx)
}
