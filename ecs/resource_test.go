package ecs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tubereng/tuber/ecs"
)

func TestResourceInsertReplaces(t *testing.T) {
	w := newTestEcs()
	w.InsertResource(Gravity{G: 9.8})
	w.InsertResource(Gravity{G: 1.6})

	res, ok := ecs.Resource[Gravity](w)
	require.True(t, ok)
	assert.Equal(t, float32(1.6), res.Get().G)
	res.Release()

	assert.Equal(t, 1, w.Resources().Len())
	assert.Equal(t, []string{"ecs_test.Gravity"}, w.Resources().Types())
}

func TestResourceMutation(t *testing.T) {
	w := newTestEcs()
	w.InsertResource(EventCount{N: 1})

	mut, ok := ecs.ResourceMut[EventCount](w)
	require.True(t, ok)
	mut.Get().N = 5
	mut.Release()

	res, _ := ecs.Resource[EventCount](w)
	defer res.Release()
	assert.Equal(t, 5, res.Get().N)

	_, ok = ecs.Resource[Gravity](w)
	assert.False(t, ok)
}

func TestMissingResourcePanics(t *testing.T) {
	w := newTestEcs()
	w.RegisterSystem(func(g ecs.Res[Gravity]) {})

	defer func() {
		r := recover()
		err, ok := r.(*ecs.MissingResourceError)
		require.True(t, ok, "unexpected panic value %v", r)
		assert.Contains(t, err.Error(), "Gravity")
	}()
	w.RunSystems()
}

func TestResourceBorrowedTwicePanics(t *testing.T) {
	assert.Panics(t, func() {
		ecs.NewSystem(func(a ecs.Res[Gravity], b ecs.ResMut[Gravity]) {})
	})
	assert.NotPanics(t, func() {
		ecs.NewSystem(func(a ecs.Res[Gravity], b ecs.ResMut[EventCount]) {})
	})
}

func TestResourceSystemParams(t *testing.T) {
	w := newTestEcs()
	w.InsertResource(Gravity{G: 2})
	w.InsertResource(EventCount{})

	set := ecs.NewSystemSet("readers")
	for range 4 {
		set.Add(func(g ecs.Res[Gravity], c ecs.ResMut[EventCount]) {
			c.Get().N += int(g.Get().G)
		})
	}
	w.RegisterSystemSet(set)
	w.RunSystems()

	res, _ := ecs.Resource[EventCount](w)
	defer res.Release()
	assert.Equal(t, 8, res.Get().N)
}
