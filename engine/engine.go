// Package engine drives an ecs world frame by frame: it owns the tick
// order, the built-in resources, input forwarding and the renderer.
package engine

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"go.uber.org/zap"

	"github.com/tubereng/tuber/asset"
	"github.com/tubereng/tuber/ecs"
	"github.com/tubereng/tuber/input"
	"github.com/tubereng/tuber/render"
)

// DefaultApplicationTitle is used when the builder is given no title.
const DefaultApplicationTitle = "TuberApp"

// ExitRequest asks the engine to stop. Write it through an
// ecs.EventWriter[ExitRequest]; the engine observes it once the event
// becomes pending, at the end of the following tick.
type ExitRequest struct{}

// DeltaTime is the resource holding the duration of the previous frame in
// seconds.
type DeltaTime float32

// Assets is the resource wrapping the engine's asset store.
type Assets struct {
	*asset.Store
}

// EngineStatistics is refreshed at the end of every Update.
type EngineStatistics struct {
	EntityCount int
	// LastUpdateDuration is the duration of the update before this one.
	LastUpdateDuration time.Duration
	Updates            uint64
	FramesRendered     uint64
}

// Engine drives one world frame by frame for a platform loop.
type Engine struct {
	title    string
	world    *ecs.Ecs
	renderer *render.Renderer
	log      *zap.Logger

	shouldExit bool
	lastUpdate time.Duration
}

// ApplicationTitle is the title the engine was built with.
func (e *Engine) ApplicationTitle() string { return e.title }

// Ecs returns the engine's world.
func (e *Engine) Ecs() *ecs.Ecs { return e.world }

// Renderer returns the attached renderer, or nil when running headless.
func (e *Engine) Renderer() *render.Renderer { return e.renderer }

// InitializeRenderer attaches r. Until a renderer is attached PrepareRender
// and Render do nothing.
func (e *Engine) InitializeRenderer(r *render.Renderer) {
	e.renderer = r
	e.log.Info("renderer initialized")
}

// RunSetupSystem runs the setup system once and applies its commands.
func (e *Engine) RunSetupSystem() error {
	return e.world.RunSetupSystem()
}

// Update runs one tick: the DeltaTime resource is set, every system set
// runs, pending commands are applied, pending ExitRequest events are
// observed and EngineStatistics is refreshed. The returned error comes from
// applying commands; the rest of the tick still completes.
func (e *Engine) Update(dt float32) error {
	start := time.Now()
	e.world.InsertResource(DeltaTime(dt))

	e.world.RunSystems()
	applyErr := e.world.ExecutePendingCommands()

	for _, ev := range e.world.Events().Drain() {
		if _, ok := ev.(ExitRequest); ok {
			e.log.Info("exit requested")
			e.Exit()
		}
	}

	stats := mustResourceMut[EngineStatistics](e.world)
	stats.Get().EntityCount = e.world.EntityCount()
	stats.Get().LastUpdateDuration = e.lastUpdate
	stats.Get().Updates++
	stats.Release()

	e.lastUpdate = time.Since(start)
	e.log.Debug("update finished", zap.Duration("took", e.lastUpdate))
	if applyErr != nil {
		return fmt.Errorf("apply commands: %w", applyErr)
	}
	return nil
}

// OnInput records in into the InputState resource.
func (e *Engine) OnInput(in input.Input) {
	e.log.Debug("handling input", zap.Any("input", in))
	st := mustResourceMut[input.InputState](e.world)
	defer st.Release()
	st.Get().Apply(in)
}

// ClearLastFrameInputs rolls the input state over to the next frame.
func (e *Engine) ClearLastFrameInputs() {
	st := mustResourceMut[input.InputState](e.world)
	defer st.Release()
	st.Get().ClearLastFrameInputs()
}

// PrepareRender lets the render pipeline collect this frame's draws.
func (e *Engine) PrepareRender() error {
	if e.renderer == nil {
		return nil
	}
	start := time.Now()
	assets := mustResourceMut[Assets](e.world)
	defer assets.Release()
	if err := e.renderer.Prepare(e.world, assets.Get().Store); err != nil {
		return fmt.Errorf("prepare render: %w", err)
	}
	e.log.Debug("frame prepared", zap.Duration("took", time.Since(start)))
	return nil
}

// Render draws and presents one frame. When the surface cannot provide a
// texture the frame is dropped with a warning and nil is returned.
func (e *Engine) Render() error {
	if e.renderer == nil {
		return nil
	}
	if err := e.renderer.Render(); err != nil {
		if errors.Is(err, render.ErrSurfaceAcquire) {
			e.log.Warn("frame skipped", zap.Error(err))
			return nil
		}
		return fmt.Errorf("render: %w", err)
	}
	stats := mustResourceMut[EngineStatistics](e.world)
	stats.Get().FramesRendered++
	stats.Release()
	return nil
}

// RunFrame is one iteration of a platform loop: update, render, then roll
// the input state over.
func (e *Engine) RunFrame(dt float32) error {
	if err := e.Update(dt); err != nil {
		return err
	}
	if err := e.PrepareRender(); err != nil {
		return err
	}
	if err := e.Render(); err != nil {
		return err
	}
	e.ClearLastFrameInputs()
	return nil
}

// Resize forwards a window size change to the renderer.
func (e *Engine) Resize(width, height uint32) {
	if e.renderer != nil {
		e.renderer.Resize(width, height)
	}
}

// ShouldExit reports whether the platform loop should stop.
func (e *Engine) ShouldExit() bool { return e.shouldExit }

// Exit asks the platform loop to stop after the current frame.
func (e *Engine) Exit() { e.shouldExit = true }

func mustResourceMut[T any](w *ecs.Ecs) ecs.ResMut[T] {
	r, ok := ecs.ResourceMut[T](w)
	if !ok {
		panic(&ecs.MissingResourceError{Type: reflect.TypeFor[T]()})
	}
	return r
}
