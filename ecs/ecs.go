package ecs

import (
	"fmt"
	"reflect"
	"runtime"
	"time"

	"go.uber.org/zap"
)

type options struct {
	maxEntityCount int
	workers        int
	strict         bool
	log            *zap.Logger
	registry       *ComponentRegistry
}

// Option configures an Ecs.
type Option func(*options)

// WithMaxEntityCount sets the entity capacity. It must be a power of two.
func WithMaxEntityCount(n int) Option {
	return func(o *options) { o.maxEntityCount = n }
}

// WithWorkers limits how many systems of one set run at the same time.
// Zero means GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithStrictBorrows makes conflicting component borrows panic with a
// *BorrowConflictError instead of blocking.
func WithStrictBorrows(strict bool) Option {
	return func(o *options) { o.strict = strict }
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithRegistry sets the registry used to store untyped component values.
func WithRegistry(r *ComponentRegistry) Option {
	return func(o *options) { o.registry = r }
}

// Ecs is the world: entities with their components, relationships, events,
// resources, the pending command buffer and the registered systems.
type Ecs struct {
	entities      *EntityStore
	relationships *RelationshipStore
	events        *EventQueue
	resources     *Resources
	pending       *CommandBuffer

	setup      System
	setupStats *systemStatsInternal
	sets       []*SystemSet

	workers int
	strict  bool
	log     *zap.Logger
}

// New creates an empty world.
func New(opts ...Option) *Ecs {
	o := options{maxEntityCount: DefaultMaxEntityCount}
	for _, opt := range opts {
		opt(&o)
	}
	if o.maxEntityCount <= 0 || o.maxEntityCount&(o.maxEntityCount-1) != 0 {
		panic(fmt.Sprintf("ecs: max entity count %d is not a power of two", o.maxEntityCount))
	}
	if o.workers <= 0 {
		o.workers = runtime.GOMAXPROCS(0)
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}
	if o.registry == nil {
		o.registry = NewComponentRegistry()
	}

	return &Ecs{
		entities:      newEntityStore(o.maxEntityCount, o.registry, o.log),
		relationships: NewRelationshipStore(),
		events:        NewEventQueue(),
		resources:     NewResources(),
		pending:       NewCommandBuffer(0),
		workers:       o.workers,
		strict:        o.strict,
		log:           o.log,
	}
}

// Entities returns the entity store.
func (w *Ecs) Entities() *EntityStore { return w.entities }

// Relationships returns the relationship store.
func (w *Ecs) Relationships() *RelationshipStore { return w.relationships }

// Events returns the event queue.
func (w *Ecs) Events() *EventQueue { return w.events }

// Resources returns the resource table.
func (w *Ecs) Resources() *Resources { return w.resources }

// Commands returns the command buffer that collects changes for the next
// apply.
func (w *Ecs) Commands() *CommandBuffer { return w.pending }

// EntityCount returns the number of allocated entities.
func (w *Ecs) EntityCount() int { return w.entities.EntityCount() }

// PendingCommands returns the number of commands waiting to be applied.
func (w *Ecs) PendingCommands() int { return w.pending.Len() }

// Insert allocates an entity holding components right away. It must not be
// called while systems are running; systems use their CommandBuffer.
func (w *Ecs) Insert(components ...any) EntityId {
	if n := w.pending.PendingInserts(); n > 0 {
		panic(fmt.Sprintf("ecs: direct insert while %d buffered inserts are pending", n))
	}
	e := w.entities.allocate()
	for _, c := range components {
		if err := w.entities.write(e, c); err != nil {
			panic(err)
		}
	}
	w.pending.advance(EntityId(w.entities.EntityCount()))
	return e
}

// InsertComponent adds (or replaces) a component on an allocated entity.
func (w *Ecs) InsertComponent(e EntityId, component any) error {
	return w.entities.write(e, component)
}

// InsertRelationship records a relationship between two allocated entities.
func (w *Ecs) InsertRelationship(kind RelationshipKind, source, target EntityId) error {
	return insertRelationshipCommand{kind: kind, source: source, target: target}.apply(w)
}

// InsertResource inserts (or replaces) a resource.
func (w *Ecs) InsertResource(value any) {
	w.resources.Insert(value)
}

// RegisterSetupSystem sets the system run once by RunSetupSystem.
func (w *Ecs) RegisterSetupSystem(system any) {
	w.setup = NewSystem(system)
	w.setupStats = newSystemStats(systemName(w.setup))
	w.log.Debug("registered setup system", zap.String("system", w.setupStats.name))
}

// RegisterSystemSet appends a set; sets run in registration order.
func (w *Ecs) RegisterSystemSet(set *SystemSet) {
	w.sets = append(w.sets, set)
	w.log.Debug("registered system set", zap.String("set", set.name), zap.Int("systems", set.Len()))
}

// RegisterSystem registers system in a set of its own.
func (w *Ecs) RegisterSystem(system any) {
	sys := NewSystem(system)
	name := systemName(sys)
	set := &SystemSet{name: name, systems: []System{sys}, stats: []*systemStatsInternal{newSystemStats(name)}}
	w.RegisterSystemSet(set)
}

// SystemSets returns the number of registered sets.
func (w *Ecs) SystemSets() int { return len(w.sets) }

func (w *Ecs) newContext() *ExecutionContext {
	return &ExecutionContext{
		Commands:      w.pending,
		Entities:      w.entities,
		Relationships: w.relationships,
		Resources:     w.resources,
		Events:        w.events,
		Log:           w.log,
		strict:        w.strict,
		workers:       w.workers,
	}
}

// RunSetupSystem runs the setup system, if any, on the calling goroutine and
// applies the commands it issued.
func (w *Ecs) RunSetupSystem() error {
	if w.setup == nil {
		return nil
	}
	start := time.Now()
	w.setup.Execute(w.newContext())
	w.setupStats.record(time.Since(start))
	w.log.Info("ran setup system", zap.String("system", w.setupStats.name), zap.Duration("took", time.Since(start)))
	return w.ExecutePendingCommands()
}

// RunSystems runs one tick worth of systems: the event buffers are swapped,
// the dirty bits roll over to a new tick and every system set runs in order.
// Commands issued by the systems stay pending until ExecutePendingCommands.
func (w *Ecs) RunSystems() {
	w.events.Swap()
	w.entities.rollDirty()
	ctx := w.newContext()
	for _, set := range w.sets {
		set.run(ctx)
	}
}

// ExecutePendingCommands applies the pending command buffer and installs a
// fresh one whose counter equals the new entity count. On failure the
// commands before the failing one stay applied and the rest are dropped.
// Ids reserved by dropped inserts are still consumed: EntityCount then
// includes entities that carry no components.
func (w *Ecs) ExecutePendingCommands() error {
	buf := w.pending
	applied, err := buf.apply(w)
	w.pending = NewCommandBuffer(EntityId(w.entities.EntityCount()))
	if applied > 0 || err != nil {
		w.log.Debug("applied commands", zap.Int("applied", applied), zap.Int("entities", w.entities.EntityCount()), zap.Error(err))
	}
	return err
}

// SystemStats returns execution statistics for the setup system and every
// registered system.
func (w *Ecs) SystemStats() *SchedulerStats {
	stats := &SchedulerStats{}
	if w.setupStats != nil {
		stats.Systems = append(stats.Systems, w.setupStats.export("setup"))
	}
	for _, set := range w.sets {
		stats.Systems = append(stats.Systems, set.exportStats()...)
	}
	stats.SystemCount = len(stats.Systems)
	for _, s := range stats.Systems {
		stats.TotalExecutions += s.ExecutionCount
	}
	return stats
}

// Resource acquires a shared borrow of w's T resource. Release it when done.
func Resource[T any](w *Ecs) (Res[T], bool) {
	return ReadResource[T](w.resources)
}

// ResourceMut acquires an exclusive borrow of w's T resource.
func ResourceMut[T any](w *Ecs) (ResMut[T], bool) {
	return WriteResource[T](w.resources)
}

// Get returns a copy of e's T component.
func Get[T any](w *Ecs, e EntityId) (T, bool) {
	var zero T
	s := StoreOf[T](w.entities)
	if s == nil {
		return zero, false
	}
	ref, ok := s.Get(e)
	if !ok {
		return zero, false
	}
	defer ref.Release()
	return *ref.Get(), true
}

// Has reports whether e holds a T component.
func Has[T any](w *Ecs, e EntityId) bool {
	return w.entities.HasComponent(e, reflect.TypeFor[T]())
}

// Delete removes e's T component, running its Drop method if it has one.
func Delete[T any](w *Ecs, e EntityId) {
	w.entities.DeleteComponent(e, reflect.TypeFor[T]())
}
