package render

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/tubereng/tuber/asset"
	"github.com/tubereng/tuber/ecs"
	"github.com/tubereng/tuber/gpu"
)

var ErrSurfaceAcquire = errors.New("render: surface texture acquisition failed")

// Pipeline decides what a frame draws. Setup runs once, Prepare after every
// tick and Render once per presented frame.
type Pipeline interface {
	Setup(ctx *Context) error
	Prepare(ctx *Context, w *ecs.Ecs, assets *asset.Store) error
	Render(ctx *Context, encoder gpu.CommandEncoder, target gpu.TextureView) error
}

type Renderer struct {
	ctx      *Context
	surface  gpu.Surface
	pipeline Pipeline
	frames   int
}

type rendererOptions struct {
	log     *zap.Logger
	shaders map[string]gpu.ShaderModuleDescriptor
	format  gpu.TextureFormat
}

type Option func(*rendererOptions)

func WithLogger(log *zap.Logger) Option {
	return func(o *rendererOptions) { o.log = log }
}

// WithShaders registers backend shader sources by name.
func WithShaders(shaders map[string]gpu.ShaderModuleDescriptor) Option {
	return func(o *rendererOptions) { o.shaders = shaders }
}

func WithSurfaceFormat(format gpu.TextureFormat) Option {
	return func(o *rendererOptions) { o.format = format }
}

// NewRenderer configures surface at size, loads shaders and runs the
// pipeline's Setup.
func NewRenderer(device gpu.Device, queue gpu.Queue, surface gpu.Surface, size gpu.Extent, pipeline Pipeline, opts ...Option) (*Renderer, error) {
	o := rendererOptions{log: zap.NewNop(), format: gpu.FormatRGBA8UnormSrgb}
	for _, opt := range opts {
		opt(&o)
	}
	config := gpu.SurfaceConfiguration{
		Format:      o.format,
		Width:       size.Width,
		Height:      size.Height,
		PresentMode: gpu.PresentFifo,
	}
	surface.Configure(device, config)

	ctx := NewContext(device, queue, config, o.log)
	if err := ctx.LoadShaders(o.shaders); err != nil {
		return nil, err
	}
	if err := pipeline.Setup(ctx); err != nil {
		return nil, fmt.Errorf("render pipeline setup: %w", err)
	}
	return &Renderer{ctx: ctx, surface: surface, pipeline: pipeline}, nil
}

func (r *Renderer) Context() *Context { return r.ctx }

func (r *Renderer) Pipeline() Pipeline { return r.pipeline }

// Frames returns the number of frames presented.
func (r *Renderer) Frames() int { return r.frames }

// Prepare lets the pipeline collect draw commands from the world.
func (r *Renderer) Prepare(w *ecs.Ecs, assets *asset.Store) error {
	return r.pipeline.Prepare(r.ctx, w, assets)
}

// Render encodes, submits and presents one frame. A surface that cannot
// provide a texture yields an error wrapping ErrSurfaceAcquire and nothing
// is submitted.
func (r *Renderer) Render() error {
	defer func() { r.ctx.DrawCommands = r.ctx.DrawCommands[:0] }()

	st, err := r.surface.CurrentTexture()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSurfaceAcquire, err)
	}
	view := st.Texture().CreateView()
	encoder := r.ctx.Device.CreateCommandEncoder("render_encoder")
	if err := r.pipeline.Render(r.ctx, encoder, view); err != nil {
		return err
	}
	r.ctx.Queue.Submit(encoder.Finish())
	st.Present()
	r.frames++
	return nil
}

// Resize reconfigures the surface and recreates size-dependent textures.
// Zero sizes, as reported for minimized windows, are ignored.
func (r *Renderer) Resize(width, height uint32) {
	if width == 0 || height == 0 {
		return
	}
	r.ctx.Config.Width = width
	r.ctx.Config.Height = height
	r.surface.Configure(r.ctx.Device, r.ctx.Config)
	r.ctx.Textures.OnResize(r.ctx.Device, width, height)
	r.ctx.Log.Debug("renderer resized", zap.Uint32("width", width), zap.Uint32("height", height))
}
