package ecs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tubereng/tuber/ecs"
)

type Likes struct{}

func TestRelationshipInsert(t *testing.T) {
	rs := ecs.NewRelationshipStore()
	childOf := ecs.RelationshipOf[ecs.ChildOf]()
	likes := ecs.RelationshipOf[Likes]()

	rs.Insert(childOf, 1, 0)
	rs.Insert(childOf, 2, 0)
	rs.Insert(likes, 0, 2)

	for _, pair := range [][2]ecs.EntityId{{1, 0}, {2, 0}} {
		assert.True(t, rs.Has(childOf, pair[0], pair[1]))
		assert.True(t, rs.TargetsOf(childOf, pair[0]).Has(pair[1]))
		assert.True(t, rs.SourcesOf(childOf, pair[1]).Has(pair[0]))
	}

	assert.False(t, rs.Has(childOf, 0, 1), "relationships are directed")
	assert.False(t, rs.Has(likes, 1, 0), "kinds are independent")
	assert.True(t, rs.Has(likes, 0, 2))

	assert.Equal(t, []ecs.EntityId{1, 2}, rs.SourcesOf(childOf, 0).Sorted())
	assert.Equal(t, 0, rs.SourcesOf(childOf, 5).Len())
	assert.Equal(t, 0, rs.TargetsOf(ecs.RelationshipOf[struct{}](), 1).Len())
	assert.Equal(t, []ecs.EntityId{1, 2}, rs.AllSourcesOf(childOf))

	var all []ecs.EntityId
	for e := range rs.SourcesOf(childOf, 0).All() {
		all = append(all, e)
	}
	assert.Equal(t, []ecs.EntityId{1, 2}, all)

	assert.Equal(t, "ecs.ChildOf", childOf.String())
	assert.Len(t, rs.Kinds(), 2)
}

func TestAncestorsAndSuccessors(t *testing.T) {
	rs := ecs.NewRelationshipStore()
	childOf := ecs.RelationshipOf[ecs.ChildOf]()

	// 3 -> 2 -> 1 -> 0, and 4 -> 1
	rs.Insert(childOf, 3, 2)
	rs.Insert(childOf, 2, 1)
	rs.Insert(childOf, 1, 0)
	rs.Insert(childOf, 4, 1)

	assert.Equal(t, []ecs.EntityId{2, 1, 0}, rs.Ancestors(childOf, 3))
	assert.Empty(t, rs.Ancestors(childOf, 0))
	assert.Equal(t, []ecs.EntityId{1, 2, 4, 3}, rs.Successors(childOf, 0))
	assert.Empty(t, rs.Successors(childOf, 3))
}

func TestTraversalTerminatesOnCycles(t *testing.T) {
	rs := ecs.NewRelationshipStore()
	childOf := ecs.RelationshipOf[ecs.ChildOf]()

	rs.Insert(childOf, 0, 1)
	rs.Insert(childOf, 1, 2)
	rs.Insert(childOf, 2, 0)
	rs.Insert(childOf, 2, 2)
	rs.Insert(childOf, 1, 3)

	ancestors := rs.Ancestors(childOf, 0)
	assert.ElementsMatch(t, []ecs.EntityId{1, 2, 3}, ancestors)
	assertUnique(t, ancestors)

	successors := rs.Successors(childOf, 0)
	assert.ElementsMatch(t, []ecs.EntityId{2, 1}, successors)
	assertUnique(t, successors)
}

func assertUnique(t *testing.T, ids []ecs.EntityId) {
	t.Helper()
	seen := map[ecs.EntityId]bool{}
	for _, id := range ids {
		assert.False(t, seen[id], "entity %d listed twice", id)
		seen[id] = true
	}
}

func TestInsertRelationshipRequiresAllocatedEntities(t *testing.T) {
	w := newTestEcs()
	p := w.Insert(Name{Value: "p"})
	c := w.Insert(Name{Value: "c"})

	assert.NoError(t, w.InsertRelationship(ecs.RelationshipOf[ecs.ChildOf](), c, p))
	assert.ErrorIs(t, w.InsertRelationship(ecs.RelationshipOf[ecs.ChildOf](), 9, p), ecs.ErrEntityNotAllocated)
	assert.True(t, w.Relationships().Has(ecs.RelationshipOf[ecs.ChildOf](), c, p))
}
