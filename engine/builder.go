package engine

import (
	"go.uber.org/zap"

	"github.com/tubereng/tuber/asset"
	"github.com/tubereng/tuber/ecs"
	"github.com/tubereng/tuber/input"
)

// Builder assembles an Engine.
type Builder struct {
	title    string
	setup    any
	fs       asset.FileSystem
	log      *zap.Logger
	registry *ecs.ComponentRegistry
	ecsOpts  []ecs.Option
}

// NewBuilder returns a Builder with every setting at its default.
func NewBuilder() *Builder {
	return &Builder{}
}

// WithApplicationTitle sets the window title.
func (b *Builder) WithApplicationTitle(title string) *Builder {
	b.title = title
	return b
}

// WithSetupSystem sets the system run once by Engine.RunSetupSystem. It
// accepts anything ecs.NewSystem does.
func (b *Builder) WithSetupSystem(system any) *Builder {
	b.setup = system
	return b
}

// WithFileSystem sets where the Assets resource reads from. Without one,
// assets are read from the assets directory next to the executable.
func (b *Builder) WithFileSystem(fs asset.FileSystem) *Builder {
	b.fs = fs
	return b
}

// WithLogger sets the logger shared by the engine and its world.
func (b *Builder) WithLogger(log *zap.Logger) *Builder {
	b.log = log
	return b
}

// WithRegistry sets the component registry used for untyped components.
func (b *Builder) WithRegistry(r *ecs.ComponentRegistry) *Builder {
	b.registry = r
	return b
}

// WithEcsOptions passes opts through to ecs.New.
func (b *Builder) WithEcsOptions(opts ...ecs.Option) *Builder {
	b.ecsOpts = append(b.ecsOpts, opts...)
	return b
}

// Build creates the engine and its world with the InputState, DeltaTime,
// EngineStatistics and Assets resources inserted.
func (b *Builder) Build() (*Engine, error) {
	log := b.log
	if log == nil {
		log = zap.NewNop()
	}
	fs := b.fs
	if fs == nil {
		dir, err := asset.ExecutableDir()
		if err != nil {
			return nil, err
		}
		fs = dir
	}
	title := b.title
	if title == "" {
		title = DefaultApplicationTitle
	}

	opts := []ecs.Option{ecs.WithLogger(log.Named("ecs"))}
	if b.registry != nil {
		opts = append(opts, ecs.WithRegistry(b.registry))
	}
	world := ecs.New(append(opts, b.ecsOpts...)...)

	setup := b.setup
	if setup == nil {
		setup = func() {}
	}
	world.RegisterSetupSystem(setup)
	world.InsertResource(Assets{Store: asset.NewStore(fs, asset.WithLogger(log.Named("asset")))})
	world.InsertResource(input.InputState{})
	world.InsertResource(DeltaTime(0))
	world.InsertResource(EngineStatistics{})

	log.Info("engine built", zap.String("title", title))
	return &Engine{title: title, world: world, log: log}, nil
}
