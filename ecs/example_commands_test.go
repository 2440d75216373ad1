package ecs_test

import (
	"fmt"

	"github.com/tubereng/tuber/ecs"
)

// ExampleCommandBuffer demonstrates deferring structural changes. Systems see
// a fixed set of entities for the whole tick; inserts are given their ids
// immediately but only exist once the pending commands are applied.
func ExampleCommandBuffer() {
	w := ecs.New()
	w.RegisterSystem(func(cmd *ecs.CommandBuffer, q ecs.Query[struct{ *Health }]) {
		if q.Count() > 0 {
			return
		}
		parent := cmd.Insert(ecs.C(Name{Value: "spawner"}))
		child := cmd.Insert(ecs.C(Health{Current: 10, Max: 10}))
		cmd.InsertRelationship(ecs.RelationshipOf[ecs.ChildOf](), child, parent)
		fmt.Printf("reserved %d and %d\n", parent, child)
	})

	w.RunSystems()
	fmt.Println("entities before apply:", w.EntityCount())
	if err := w.ExecutePendingCommands(); err != nil {
		fmt.Println(err)
	}
	fmt.Println("entities after apply:", w.EntityCount())
	fmt.Println("children of 0:", w.Relationships().SourcesOf(ecs.RelationshipOf[ecs.ChildOf](), 0).Sorted())

	// Output:
	// reserved 0 and 1
	// entities before apply: 0
	// entities after apply: 2
	// children of 0: [1]
}
