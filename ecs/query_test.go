package ecs_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tubereng/tuber/ecs"
)

func TestQueryEntityCreateAndIterate(t *testing.T) {
	w := newTestEcs()
	w.Insert(Player{}, Health{Current: 10})
	w.Insert(Player{}, Health{Current: 8})

	q := ecs.NewQuery[struct {
		*Player
		*Health
	}](w)

	var got []int
	for row := range q.Iter() {
		got = append(got, row.Health.Current)
	}
	assert.Equal(t, []int{10, 8}, got)
}

func TestQueryRequiredAndOptional(t *testing.T) {
	w := newTestEcs()
	a := w.Insert(Position{X: 1}, Velocity{DX: 1})
	b := w.Insert(Position{X: 2})
	w.Insert(Velocity{DX: 3})
	d := w.Insert(Position{X: 4}, Velocity{DX: 4}, Name{Value: "d"})

	t.Run("required only", func(t *testing.T) {
		q := ecs.NewQuery[struct {
			*Position
			*Velocity
		}](w)
		var ids []ecs.EntityId
		for id := range q.IterWithIds() {
			ids = append(ids, id)
		}
		assert.Equal(t, []ecs.EntityId{a, d}, ids)
	})

	t.Run("optional fields", func(t *testing.T) {
		q := ecs.NewQuery[struct {
			*Position
			Vel  *Velocity `ecs:"optional"`
			Name *Name     `ecs:"optional"`
		}](w)

		rows := map[ecs.EntityId]bool{}
		for id, row := range q.IterWithIds() {
			rows[id] = true
			switch id {
			case a:
				assert.NotNil(t, row.Vel)
				assert.Nil(t, row.Name)
			case b:
				assert.Nil(t, row.Vel)
				assert.Nil(t, row.Name)
			case d:
				require.NotNil(t, row.Name)
				assert.Equal(t, "d", row.Name.Value)
			}
		}
		assert.Equal(t, map[ecs.EntityId]bool{a: true, b: true, d: true}, rows)
	})

	t.Run("missing store", func(t *testing.T) {
		q := ecs.NewQuery[struct {
			*Position
			*Hat
		}](w)
		assert.Equal(t, 0, q.Count())

		opt := ecs.NewQuery[struct {
			*Position
			Hat *Hat `ecs:"optional"`
		}](w)
		assert.Equal(t, 3, opt.Count())
	})
}

func TestQueryMutation(t *testing.T) {
	w := newTestEcs()
	w.Insert(Position{X: 1}, Velocity{DX: 2, DY: 3})
	w.Insert(Position{X: 5}, Velocity{DX: -1})
	ecs.StoreOf[Position](w.Entities()).ClearDirty()
	ecs.StoreOf[Velocity](w.Entities()).ClearDirty()

	q := ecs.NewQuery[struct {
		Pos *Position `ecs:"mut"`
		Vel *Velocity
	}](w)
	for row := range q.Iter() {
		row.Pos.X += row.Vel.DX
		row.Pos.Y += row.Vel.DY
	}

	p0, _ := ecs.Get[Position](w, 0)
	p1, _ := ecs.Get[Position](w, 1)
	assert.Equal(t, Position{X: 3, Y: 3}, p0)
	assert.Equal(t, Position{X: 4}, p1)

	store := ecs.StoreOf[Position](w.Entities())
	assert.True(t, store.Dirty(0))
	assert.False(t, ecs.StoreOf[Velocity](w.Entities()).Dirty(0), "shared borrows do not mark entries dirty")
}

type movedName struct {
	*Name
	Moved ecs.Dirty[Position]
}

type hatWearer struct {
	Pos *Position `ecs:"mut"`
	*Hat
}

// movedNames registers a system collecting the names whose Position is dirty.
func movedNames(w *ecs.Ecs, changed *[]string) {
	w.RegisterSystem(func(q ecs.Query[movedName]) {
		*changed = (*changed)[:0]
		for row := range q.Iter() {
			if row.Moved {
				*changed = append(*changed, row.Name.Value)
			}
		}
	})
}

func TestQueryDirtyFlag(t *testing.T) {
	t.Run("earlier set sees a later set's write on the next tick", func(t *testing.T) {
		w := newTestEcs()
		w.Insert(Position{}, Name{Value: "a"})
		w.Insert(Position{}, Name{Value: "b"}, Hat{})

		var changed []string
		movedNames(w, &changed)
		w.RegisterSystem(func(q ecs.Query[hatWearer]) {
			for row := range q.Iter() {
				row.Pos.X++
			}
		})

		w.RunSystems()
		assert.Equal(t, []string{"a", "b"}, changed, "fresh components are dirty")

		w.RunSystems()
		assert.Equal(t, []string{"b"}, changed)

		w.RunSystems()
		assert.Equal(t, []string{"b"}, changed)
	})

	t.Run("later set sees an earlier set's write in the same tick", func(t *testing.T) {
		w := newTestEcs()
		w.Insert(Position{}, Name{Value: "a"})
		w.Insert(Position{}, Name{Value: "b"}, Hat{})

		w.RegisterSystem(func(q ecs.Query[hatWearer]) {
			for row := range q.Iter() {
				row.Pos.X++
			}
		})
		var changed []string
		movedNames(w, &changed)

		w.RunSystems()
		w.RunSystems()
		w.RunSystems()
		assert.Equal(t, []string{"b"}, changed)
	})

	t.Run("command replacement is seen on the next tick", func(t *testing.T) {
		w := newTestEcs()
		a := w.Insert(Position{}, Name{Value: "a"})
		w.Insert(Position{}, Name{Value: "b"})

		var changed []string
		movedNames(w, &changed)
		w.RunSystems()
		w.RunSystems()
		require.Empty(t, changed)

		w.Commands().AddComponent(a, Position{X: 2})
		require.NoError(t, w.ExecutePendingCommands())
		w.RunSystems()
		assert.Equal(t, []string{"a"}, changed)

		w.RunSystems()
		assert.Empty(t, changed, "the write is two ticks old")
	})

	t.Run("clear resets both ticks", func(t *testing.T) {
		w := newTestEcs()
		e := w.Insert(Position{})
		w.RunSystems()
		store := ecs.StoreOf[Position](w.Entities())
		require.True(t, store.Dirty(e))
		store.ClearDirty()
		assert.False(t, store.Dirty(e))
	})
}

func TestQueryRelationshipFilter(t *testing.T) {
	w := newTestEcs()
	childOf := ecs.RelationshipOf[ecs.ChildOf]()
	parent := w.Insert(Name{Value: "P"})
	c1 := w.Insert(Hat{Color: "red"})
	c2 := w.Insert(Hat{Color: "blue"})
	other := w.Insert(Hat{Color: "green"})
	require.NoError(t, w.InsertRelationship(childOf, c1, parent))
	require.NoError(t, w.InsertRelationship(childOf, c2, parent))
	require.NoError(t, w.InsertRelationship(childOf, other, c1))

	q := ecs.NewQuery[struct{ *Hat }](w)
	var ids []ecs.EntityId
	for id := range q.WithRelationship(childOf, parent).IterWithIds() {
		ids = append(ids, id)
	}
	assert.Equal(t, []ecs.EntityId{c1, c2}, ids)
	assert.Equal(t, 3, q.Count(), "filters do not leak into the original query")

	require.NoError(t, w.InsertRelationship(ecs.RelationshipOf[Likes](), c2, other))
	both := q.WithRelationship(childOf, parent).WithRelationship(ecs.RelationshipOf[Likes](), other)
	ids = ids[:0]
	for id := range both.IterWithIds() {
		ids = append(ids, id)
	}
	assert.Equal(t, []ecs.EntityId{c2}, ids)
}

func TestQueryGet(t *testing.T) {
	w := newTestEcs()
	a := w.Insert(Position{X: 1}, Health{Current: 3})
	b := w.Insert(Position{X: 2})

	type row = struct {
		*Position
		*Health
	}
	q := ecs.NewQuery[row](w)

	var hp int
	assert.True(t, q.Get(a, func(r row) { hp = r.Health.Current }))
	assert.Equal(t, 3, hp)
	assert.False(t, q.Get(b, func(row) {}))
	assert.False(t, q.Get(99, func(row) {}))

	n := 0
	for range q.WithId(a) {
		n++
	}
	assert.Equal(t, 1, n)
}

func TestQueryEarlyBreakReleasesLocks(t *testing.T) {
	w := newTestEcs(ecs.WithStrictBorrows(true))
	for i := range 5 {
		w.Insert(Position{X: float32(i)})
	}
	q := ecs.NewQuery[struct {
		Pos *Position `ecs:"mut"`
	}](w)
	for range q.Iter() {
		break
	}
	assert.NotPanics(t, func() {
		for range q.Iter() {
		}
	})
}

func TestQueryForEachParallel(t *testing.T) {
	w := newTestEcs(ecs.WithMaxEntityCount(1024))
	for i := range 1000 {
		if i%3 == 0 {
			w.Insert(Score(i))
		} else {
			w.Insert(Score(i), Tag("x"))
		}
	}

	type row = struct {
		S *Score `ecs:"mut"`
		*Tag
	}
	q := ecs.NewQuery[row](w)

	var visited atomic.Int64
	q.ForEachParallel(64, func(r row) {
		*r.S = -1
		visited.Add(1)
	})
	assert.Equal(t, int64(q.Count()), visited.Load())

	for i := range 1000 {
		s, _ := ecs.Get[Score](w, ecs.EntityId(i))
		if i%3 == 0 {
			assert.Equal(t, Score(i), s)
		} else {
			assert.Equal(t, Score(-1), s)
		}
	}

	assert.Panics(t, func() { q.ForEachParallel(0, func(row) {}) })
}

func TestQueryForEachParallelPropagatesPanics(t *testing.T) {
	w := newTestEcs()
	for range 100 {
		w.Insert(Score(1))
	}
	q := ecs.NewQuery[struct{ *Score }](w)
	assert.PanicsWithValue(t, "boom", func() {
		q.ForEachParallel(10, func(struct{ *Score }) { panic("boom") })
	})
}

func TestStrictBorrowConflict(t *testing.T) {
	w := newTestEcs(ecs.WithStrictBorrows(true))
	e := w.Insert(Position{})

	ref, ok := ecs.StoreOf[Position](w.Entities()).Get(e)
	require.True(t, ok)
	defer ref.Release()

	q := ecs.NewQuery[struct {
		Pos *Position `ecs:"mut"`
	}](w)

	defer func() {
		r := recover()
		err, ok := r.(*ecs.BorrowConflictError)
		require.True(t, ok, "unexpected panic value %v", r)
		assert.Equal(t, e, err.Entity)
		assert.Equal(t, "ecs_test.Position", err.Component)
		assert.True(t, err.Exclusive)
	}()
	for range q.Iter() {
	}
}

func TestSharedQueriesDoNotBlock(t *testing.T) {
	w := newTestEcs()
	w.Insert(Position{}, Velocity{})

	ref, _ := ecs.StoreOf[Position](w.Entities()).Get(0)
	defer ref.Release()

	done := make(chan struct{})
	go func() {
		defer close(done)
		q := ecs.NewQuery[struct{ *Position }](w)
		for range q.Iter() {
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("shared query blocked on a shared borrow")
	}
}

func TestExclusiveQueryWaitsForSharedBorrow(t *testing.T) {
	w := newTestEcs()
	w.Insert(Position{})

	ref, _ := ecs.StoreOf[Position](w.Entities()).Get(0)
	var wrote atomic.Bool
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		q := ecs.NewQuery[struct {
			Pos *Position `ecs:"mut"`
		}](w)
		for row := range q.Iter() {
			row.Pos.X = 1
			wrote.Store(true)
		}
	}()

	time.Sleep(20 * time.Millisecond)
	assert.False(t, wrote.Load())
	ref.Release()
	wg.Wait()
	assert.True(t, wrote.Load())
}
