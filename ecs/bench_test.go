package ecs_test

import (
	"testing"

	"github.com/tubereng/tuber/ecs"
)

const benchEntities = 1 << 14

func newBenchEcs(b *testing.B) *ecs.Ecs {
	b.Helper()
	w := newTestEcs(ecs.WithMaxEntityCount(benchEntities))
	for i := range benchEntities {
		if i%2 == 0 {
			w.Insert(Position{X: 1, Y: 2}, Velocity{DX: 0.5, DY: 0.5})
		} else {
			w.Insert(Position{X: 1, Y: 2}, Health{Current: 100, Max: 100})
		}
	}
	return w
}

func BenchmarkInsert(b *testing.B) {
	for b.Loop() {
		w := newTestEcs(ecs.WithMaxEntityCount(1024))
		for range 1024 {
			w.Insert(Position{X: 1.0, Y: 2.0}, Velocity{DX: 0.5, DY: 0.5})
		}
	}
}

func BenchmarkBufferedInsert(b *testing.B) {
	for b.Loop() {
		w := newTestEcs(ecs.WithMaxEntityCount(1024))
		cmd := w.Commands()
		for range 1024 {
			cmd.Insert(ecs.C(Position{X: 1.0, Y: 2.0}), ecs.C(Velocity{DX: 0.5, DY: 0.5}))
		}
		_ = w.ExecutePendingCommands()
	}
}

func BenchmarkQueryIter(b *testing.B) {
	w := newBenchEcs(b)
	q := ecs.NewQuery[struct {
		Pos *Position `ecs:"mut"`
		*Velocity
	}](w)

	for b.Loop() {
		for row := range q.Iter() {
			row.Pos.X += row.DX
		}
	}
}

func BenchmarkQueryOptional(b *testing.B) {
	w := newBenchEcs(b)
	q := ecs.NewQuery[struct {
		*Position
		Vel *Velocity `ecs:"optional"`
		HP  *Health   `ecs:"optional"`
	}](w)

	for b.Loop() {
		n := 0
		for row := range q.Iter() {
			if row.Vel != nil {
				n++
			}
		}
		_ = n
	}
}

func BenchmarkQueryForEachParallel(b *testing.B) {
	w := newBenchEcs(b)
	type row = struct {
		Pos *Position `ecs:"mut"`
		*Velocity
	}
	q := ecs.NewQuery[row](w)

	for b.Loop() {
		q.ForEachParallel(1024, func(r row) {
			r.Pos.X += r.DX
		})
	}
}

func BenchmarkTick(b *testing.B) {
	w := newBenchEcs(b)
	w.InsertResource(Gravity{G: 0.1})
	w.RegisterSystemSet(ecs.NewSystemSet("physics",
		func(q ecs.Query[struct {
			Pos *Position `ecs:"mut"`
			*Velocity
		}], g ecs.Res[Gravity]) {
			for row := range q.Iter() {
				row.Pos.Y -= g.Get().G
			}
		},
		func(q ecs.Query[struct {
			HP *Health `ecs:"mut"`
		}]) {
			for row := range q.Iter() {
				row.HP.Current--
			}
		},
	))

	for b.Loop() {
		w.RunSystems()
		_ = w.ExecutePendingCommands()
	}
}
