package render_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tubereng/tuber/gpu"
	"github.com/tubereng/tuber/gpu/soft"
	"github.com/tubereng/tuber/render"
)

type fixture struct {
	device *soft.Device
	queue  *soft.Queue
	ctx    *render.Context
	target *soft.Texture
}

func newFixture(t *testing.T, w, h uint32) *fixture {
	t.Helper()
	dev, queue := soft.New()
	ctx := render.NewContext(dev, queue, gpu.SurfaceConfiguration{Format: gpu.FormatRGBA8UnormSrgb, Width: w, Height: h}, nil)
	require.NoError(t, ctx.LoadShaders(soft.Shaders()))
	target := dev.CreateTexture(gpu.TextureDescriptor{
		Label:  "target",
		Size:   gpu.Extent{Width: w, Height: h},
		Format: gpu.FormatRGBA8UnormSrgb,
		Usage:  gpu.TextureUsageRenderAttachment,
	}).(*soft.Texture)
	return &fixture{device: dev, queue: queue, ctx: ctx, target: target}
}

func (f *fixture) execute(g *render.RenderGraph) {
	enc := f.device.CreateCommandEncoder("test")
	g.Execute(enc, f.ctx)
	f.queue.Submit(enc.Finish())
}

func TestClearOnlyGraph(t *testing.T) {
	f := newFixture(t, 16, 9)
	color := gpu.Color{R: 0.25, G: 0.5, B: 0.75, A: 1}
	clearer := render.NewClearer(f.device, color)

	g := render.NewRenderGraph()
	clearer.AddPass(g, g.RegisterRenderTarget(f.target.CreateView()))
	require.Equal(t, 1, g.Len())
	f.execute(g)

	for y := range 9 {
		for x := range 16 {
			require.Equal(t, color, f.target.At(x, y), "pixel %d,%d", x, y)
		}
	}

	clearer.SetColor(f.queue, gpu.Black)
	f.execute(g)
	assert.Equal(t, gpu.Black, f.target.At(15, 8))
	assert.Equal(t, gpu.Black, clearer.Color())
}

func TestPipelineCaching(t *testing.T) {
	f := newFixture(t, 4, 4)
	clearer := render.NewClearer(f.device, gpu.White)

	build := func() *render.RenderGraph {
		g := render.NewRenderGraph()
		target := g.RegisterRenderTarget(f.target.CreateView())
		clearer.AddPass(g, target)
		return g
	}

	f.execute(build())
	assert.Equal(t, 1, f.ctx.PipelineBuilds())
	assert.Equal(t, int64(1), f.device.Stats().PipelinesCreated)

	f.execute(build())
	assert.Equal(t, 1, f.ctx.PipelineBuilds(), "the second execution re-uses the cached pipeline")
	assert.Equal(t, int64(1), f.device.Stats().PipelinesCreated)
	assert.Len(t, f.ctx.Pipelines, 1)
	assert.Contains(t, f.ctx.Pipelines, render.ClearPassId)
}

func TestPassesRunInDeclarationOrder(t *testing.T) {
	f := newFixture(t, 2, 2)
	red := render.NewClearer(f.device, gpu.Color{R: 1, A: 1})
	blue := render.NewClearer(f.device, gpu.Color{B: 1, A: 1})

	var order []string
	g := render.NewRenderGraph()
	target := g.RegisterRenderTarget(f.target.CreateView())
	red.AddPass(g, target)
	layout := f.device.CreateBindGroupLayout(gpu.BindGroupLayoutDescriptor{
		Entries: []gpu.BindGroupLayoutEntry{{Binding: 0, Type: gpu.BindingUniformBuffer}},
	})
	g.AddPass("second").
		WithShader(render.ShaderClear).
		WithRenderTarget(target).
		WithNoVertexBuffer().
		WithBindGroupLayout(layout).
		Dispatch(func(pass gpu.RenderPass, res render.PassResources) {
			order = append(order, "second")
			assert.Empty(t, res.BindGroups)
			assert.NotNil(t, res.Materials)
		})
	blue.AddPass(g, target)
	f.execute(g)

	assert.Equal(t, []string{"second"}, order)
	assert.Equal(t, gpu.Color{B: 1, A: 1}, f.target.At(0, 0), "the last pass wins")
	assert.Len(t, f.ctx.Pipelines, 2, "passes sharing an identifier share a pipeline")
}

func TestMissingShaderPanics(t *testing.T) {
	f := newFixture(t, 2, 2)
	g := render.NewRenderGraph()
	target := g.RegisterRenderTarget(f.target.CreateView())
	g.AddPass("broken").WithShader("nope").WithRenderTarget(target).WithNoVertexBuffer().Dispatch(nil)

	defer func() {
		r := recover()
		err, ok := r.(*render.PipelineError)
		require.True(t, ok, "unexpected panic value %v", r)
		assert.Equal(t, "broken", err.Pass)
		assert.ErrorIs(t, err, render.ErrMissingShader)
	}()
	f.execute(g)
}

func TestPassBuilderValidation(t *testing.T) {
	g := render.NewRenderGraph()
	assert.Panics(t, func() { g.AddPass("no shader").WithRenderTarget(0).Dispatch(nil) })
	assert.Panics(t, func() { g.AddPass("no target").WithShader(render.ShaderClear).Dispatch(nil) })
	assert.Panics(t, func() { g.AddPass("unknown target").WithShader(render.ShaderClear).WithRenderTarget(3).Dispatch(nil) })
	assert.Equal(t, 0, g.Len())
}

func TestDepthBufferClearFlag(t *testing.T) {
	f := newFixture(t, 2, 2)
	h := f.ctx.Textures.CreateDepthTexture(f.device, "depth", 2, 2, false)
	depth := f.ctx.Textures.DepthTexture(h).Texture().(*soft.Texture)

	for _, tc := range []struct {
		name  string
		clear bool
		want  float32
	}{
		{"load keeps contents", false, 0.5},
		{"clear resets to the far plane", true, 1},
	} {
		t.Run(tc.name, func(t *testing.T) {
			// Seed the depth buffer through a pass that clears it to 0.5.
			enc := f.device.CreateCommandEncoder("seed")
			p := enc.BeginRenderPass(gpu.RenderPassDescriptor{
				ColorAttachments: []gpu.ColorAttachment{{View: f.target.CreateView()}},
				DepthStencil:     &gpu.DepthStencilAttachment{View: depth.CreateView(), DepthLoad: gpu.LoadOpClear, ClearDepth: 0.5},
			})
			p.End()
			f.queue.Submit(enc.Finish())

			g := render.NewRenderGraph()
			target := g.RegisterRenderTarget(f.target.CreateView())
			g.AddPass("depth-"+tc.name).
				WithShader(render.ShaderClear).
				WithRenderTarget(target).
				WithNoVertexBuffer().
				WithDepthBuffer(h, tc.clear).
				Dispatch(nil)
			f.execute(g)
			assert.Equal(t, tc.want, depth.Depth(1, 1))
		})
	}
}
