package main

import (
	"math/rand/v2"

	"github.com/tubereng/tuber/ecs"
)

type Position struct {
	X, Y float32
}

type Velocity struct {
	DX, DY float32
}

type Health struct {
	Current, Max int32
}

type Mass struct {
	Kg float32
}

type Tag struct {
	Group uint8
}

// Clock is the per-tick delta handed to the systems.
type Clock struct {
	Delta float32
}

// Died is written when an entity's health reaches zero.
type Died struct {
	Entity ecs.EntityId
}

const componentCount = 5

func registerComponents(r *ecs.ComponentRegistry) {
	ecs.RegisterComponent[Position](r)
	ecs.RegisterComponent[Velocity](r)
	ecs.RegisterComponent[Health](r)
	ecs.RegisterComponent[Mass](r)
	ecs.RegisterComponent[Tag](r)
}

// spawnRandomEntity inserts an entity with n of the stress components.
func spawnRandomEntity(w *ecs.Ecs, rng *rand.Rand, n int) ecs.EntityId {
	all := []ecs.Component{
		ecs.C(Position{X: rng.Float32() * 100, Y: rng.Float32() * 100}),
		ecs.C(Velocity{DX: rng.Float32() - 0.5, DY: rng.Float32() - 0.5}),
		ecs.C(Health{Current: 1 + rng.Int32N(100), Max: 100}),
		ecs.C(Mass{Kg: 1 + rng.Float32()*10}),
		ecs.C(Tag{Group: uint8(rng.IntN(8))}),
	}
	rng.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
	components := make([]any, 0, n)
	for _, c := range all[:min(n, len(all))] {
		components = append(components, c)
	}
	return w.Insert(components...)
}

// attachChildren links every entity in groups of fanout under the first one.
func attachChildren(w *ecs.Ecs, fanout int) error {
	kind := ecs.RelationshipOf[ecs.ChildOf]()
	for i := range w.EntityCount() {
		if i%fanout == 0 {
			continue
		}
		parent := ecs.EntityId(i - i%fanout)
		if err := w.InsertRelationship(kind, ecs.EntityId(i), parent); err != nil {
			return err
		}
	}
	return nil
}

type movingBody struct {
	P *Position `ecs:"mut"`
	*Velocity
}

type MovementSystem struct {
	Bodies    ecs.Query[movingBody]
	Clock     ecs.Res[Clock]
	ChunkSize int
}

func (s *MovementSystem) Execute(ctx *ecs.ExecutionContext) {
	dt := s.Clock.Get().Delta
	s.Bodies.ForEachParallel(s.ChunkSize, func(b movingBody) {
		b.P.X += b.DX * dt
		b.P.Y += b.DY * dt
	})
}

type DecaySystem struct {
	Living ecs.Query[struct {
		H *Health `ecs:"mut"`
	}]
	Deaths ecs.EventWriter[Died]
}

func (s *DecaySystem) Execute(ctx *ecs.ExecutionContext) {
	for id, row := range s.Living.IterWithIds() {
		row.H.Current--
		if row.H.Current == 0 {
			s.Deaths.Write(Died{Entity: id})
		}
	}
}

// reviveSystem restores the health of entities that died last tick.
func reviveSystem(deaths ecs.EventReader[Died], cmd *ecs.CommandBuffer) {
	for d := range deaths.Iter() {
		cmd.AddComponent(d.Entity, ecs.C(Health{Current: 100, Max: 100}))
	}
}

type heavyBody struct {
	V *Velocity `ecs:"mut"`
	*Mass
}

// gravitySystem pulls children toward their parent.
func gravitySystem(ctx *ecs.ExecutionContext, bodies ecs.Query[heavyBody]) {
	kind := ecs.RelationshipOf[ecs.ChildOf]()
	for id, b := range bodies.IterWithIds() {
		if ctx.Relationships.TargetsOf(kind, id).Len() > 0 {
			b.V.DY -= 0.01 / b.Kg
		}
	}
}

func registerSystems(w *ecs.Ecs, chunkSize int) {
	w.RegisterSystemSet(ecs.NewSystemSet("simulation",
		&MovementSystem{ChunkSize: chunkSize},
		&DecaySystem{},
	))
	w.RegisterSystem(gravitySystem)
	w.RegisterSystem(reviveSystem)
}

const systemCount = 4
