package ecs_test

import (
	"sync/atomic"

	"github.com/tubereng/tuber/ecs"
)

// Common test component types
type Position struct {
	X, Y float32
}

type Velocity struct {
	DX, DY float32
}

type Name struct {
	Value string
}

type Health struct {
	Current int
	Max     int
}

type Player struct{}

type Hat struct {
	Color string
}

type Score int32

type Tag string

// Resource counters
type EventCount struct {
	N int
}

type Gravity struct {
	G float32
}

// Events
type AEvent struct {
	Value int
}

type BEvent struct{}

// Tracked counts Drop calls through a shared counter.
type Tracked struct {
	drops *atomic.Int32
}

func (t *Tracked) Drop() {
	t.drops.Add(1)
}

func newTestRegistry() *ecs.ComponentRegistry {
	registry := ecs.NewComponentRegistry()
	ecs.RegisterComponent[Position](registry)
	ecs.RegisterComponent[Velocity](registry)
	ecs.RegisterComponent[Name](registry)
	ecs.RegisterComponent[Health](registry)
	ecs.RegisterComponent[Player](registry)
	ecs.RegisterComponent[Hat](registry)
	ecs.RegisterComponent[Score](registry)
	ecs.RegisterComponent[Tag](registry)
	ecs.RegisterComponent[Tracked](registry)
	return registry
}

func newTestEcs(opts ...ecs.Option) *ecs.Ecs {
	return ecs.New(append([]ecs.Option{ecs.WithRegistry(newTestRegistry())}, opts...)...)
}
