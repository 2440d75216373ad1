package ecs

// EntityId is a dense handle handed out by a monotonic counter. Ids are never
// reused for the lifetime of an Ecs.
type EntityId uint32

// DefaultMaxEntityCount is the entity capacity used when no WithMaxEntityCount
// option is given.
const DefaultMaxEntityCount = 1024

type bundleLink struct {
	kind   RelationshipKind
	target int
}

// Bundle stages several related entities so that they can be inserted
// together through a CommandBuffer. Entities are referred to by their index
// in the bundle until the buffer turns them into real ids.
type Bundle struct {
	entities [][]any
	links    [][]bundleLink
	root     int
}

// NewBundle returns an empty bundle whose root is the first entity added.
func NewBundle() *Bundle {
	return &Bundle{}
}

// Add appends an entity definition and returns its index in the bundle.
func (b *Bundle) Add(components ...any) int {
	b.entities = append(b.entities, components)
	b.links = append(b.links, nil)
	return len(b.entities) - 1
}

// AddRelationship records that the bundled entity at index source is in
// relation kind to the bundled entity at index target.
func (b *Bundle) AddRelationship(kind RelationshipKind, source, target int) {
	if source < 0 || source >= len(b.entities) || target < 0 || target >= len(b.entities) {
		panic("ecs: bundle relationship references an entity outside the bundle")
	}
	b.links[source] = append(b.links[source], bundleLink{kind: kind, target: target})
}

// SetRoot designates which bundled entity id InsertBundle returns.
func (b *Bundle) SetRoot(index int) {
	if index < 0 || index >= len(b.entities) {
		panic("ecs: bundle root out of range")
	}
	b.root = index
}

// Root returns the index of the root entity.
func (b *Bundle) Root() int { return b.root }

// Len returns the number of entities in the bundle.
func (b *Bundle) Len() int { return len(b.entities) }
