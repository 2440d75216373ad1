package ecs

import (
	"fmt"
	"sync"
)

// CommandBuffer records structural changes made by systems during a tick.
// They are applied in submission order once every system set has run. The
// buffer reserves entity ids up front so that Insert can return an id that
// later commands in the same tick may refer to.
type CommandBuffer struct {
	mu       sync.Mutex
	next     EntityId
	inserts  int
	commands []command
}

type command interface {
	apply(w *Ecs) error
}

// NewCommandBuffer returns a buffer whose first reserved id is next.
func NewCommandBuffer(next EntityId) *CommandBuffer {
	return &CommandBuffer{next: next}
}

type insertEntityCommand struct {
	id         EntityId
	components []any
}

func (c insertEntityCommand) apply(w *Ecs) error {
	if got := EntityId(w.entities.EntityCount()); got != c.id {
		return fmt.Errorf("%w: reserved %d, next free %d", ErrReservationMismatch, c.id, got)
	}
	e := w.entities.allocate()
	for _, component := range c.components {
		if err := w.entities.write(e, component); err != nil {
			return err
		}
	}
	return nil
}

type addComponentCommand struct {
	entity    EntityId
	component any
}

func (c addComponentCommand) apply(w *Ecs) error {
	return w.entities.write(c.entity, c.component)
}

type insertRelationshipCommand struct {
	kind           RelationshipKind
	source, target EntityId
}

func (c insertRelationshipCommand) apply(w *Ecs) error {
	count := EntityId(w.entities.EntityCount())
	if c.source >= count || c.target >= count {
		return fmt.Errorf("%w: relationship %s(%d, %d)", ErrEntityNotAllocated, c.kind, c.source, c.target)
	}
	w.relationships.Insert(c.kind, c.source, c.target)
	return nil
}

type insertResourceCommand struct {
	value any
}

func (c insertResourceCommand) apply(w *Ecs) error {
	w.resources.Insert(c.value)
	return nil
}

type registerSystemCommand struct {
	system any
}

func (c registerSystemCommand) apply(w *Ecs) error {
	w.RegisterSystem(c.system)
	return nil
}

type registerSystemSetCommand struct {
	set *SystemSet
}

func (c registerSystemSetCommand) apply(w *Ecs) error {
	w.RegisterSystemSet(c.set)
	return nil
}

type deferCommand struct {
	fn func(w *Ecs)
}

func (c deferCommand) apply(w *Ecs) error {
	c.fn(w)
	return nil
}

func (b *CommandBuffer) push(c command) {
	b.mu.Lock()
	b.commands = append(b.commands, c)
	b.mu.Unlock()
}

// Insert queues a new entity holding components and returns the id it will
// be given.
func (b *CommandBuffer) Insert(components ...any) EntityId {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.insertLocked(components)
}

func (b *CommandBuffer) insertLocked(components []any) EntityId {
	id := b.next
	b.next++
	b.inserts++
	b.commands = append(b.commands, insertEntityCommand{id: id, components: components})
	return id
}

// InsertBundle queues every entity of the bundle with consecutive ids,
// followed by the bundle's relationships, and returns the id of the root.
func (b *CommandBuffer) InsertBundle(bundle *Bundle) EntityId {
	if bundle.Len() == 0 {
		panic("ecs: cannot insert an empty bundle")
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	ids := make([]EntityId, bundle.Len())
	for i, components := range bundle.entities {
		ids[i] = b.insertLocked(components)
	}
	for source, links := range bundle.links {
		for _, link := range links {
			b.commands = append(b.commands, insertRelationshipCommand{
				kind:   link.kind,
				source: ids[source],
				target: ids[link.target],
			})
		}
	}
	return ids[bundle.root]
}

// AddComponent queues adding (or replacing) a component on an existing or
// reserved entity.
func (b *CommandBuffer) AddComponent(entity EntityId, component any) {
	b.push(addComponentCommand{entity: entity, component: component})
}

// InsertRelationship queues a relationship between two entities.
func (b *CommandBuffer) InsertRelationship(kind RelationshipKind, source, target EntityId) {
	b.push(insertRelationshipCommand{kind: kind, source: source, target: target})
}

// InsertResource queues inserting (or replacing) a resource.
func (b *CommandBuffer) InsertResource(value any) {
	b.push(insertResourceCommand{value: value})
}

// RegisterSystem queues registering a system in a set of its own.
func (b *CommandBuffer) RegisterSystem(system any) {
	b.push(registerSystemCommand{system: system})
}

// RegisterSystemSet queues registering a system set after the existing ones.
func (b *CommandBuffer) RegisterSystemSet(set *SystemSet) {
	b.push(registerSystemSetCommand{set: set})
}

// Defer queues an arbitrary function run against the world at apply time.
func (b *CommandBuffer) Defer(fn func(w *Ecs)) {
	b.push(deferCommand{fn: fn})
}

// Len returns the number of queued commands.
func (b *CommandBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.commands)
}

// NextEntityId returns the id the next Insert will reserve.
func (b *CommandBuffer) NextEntityId() EntityId {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.next
}

func (b *CommandBuffer) advance(next EntityId) {
	b.mu.Lock()
	b.next = max(b.next, next)
	b.mu.Unlock()
}

// PendingInserts returns how many entity inserts are queued. Outside apply the
// world's entity count equals NextEntityId minus this value.
func (b *CommandBuffer) PendingInserts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inserts
}

// apply runs the queued commands in order and stops at the first failure.
// The world's entity counter is moved up to the buffer's counter afterwards
// so that ids handed out by Insert are never reused.
func (b *CommandBuffer) apply(w *Ecs) (int, error) {
	b.mu.Lock()
	commands := b.commands
	next := b.next
	b.commands = nil
	b.inserts = 0
	b.mu.Unlock()

	var err error
	applied := 0
	for _, c := range commands {
		if err = c.apply(w); err != nil {
			break
		}
		applied++
	}
	w.entities.reconcile(int(next))
	return applied, err
}
