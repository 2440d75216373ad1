package soft_test

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tubereng/tuber/gpu"
	"github.com/tubereng/tuber/gpu/soft"
)

func floats(v ...float32) []byte {
	out := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(f))
	}
	return out
}

func newTarget(dev *soft.Device, w, h uint32, format gpu.TextureFormat) *soft.Texture {
	return dev.CreateTexture(gpu.TextureDescriptor{
		Label:  "target",
		Size:   gpu.Extent{Width: w, Height: h},
		Format: format,
		Usage:  gpu.TextureUsageRenderAttachment,
	}).(*soft.Texture)
}

// flatProgram emits positions from a two-float vertex attribute and shades
// every fragment with a fixed color.
func flatProgram(c gpu.Color, z float32) *soft.Program {
	return &soft.Program{
		Vertex: func(in *soft.VertexInput) soft.VertexOutput {
			p := in.Attributes[0]
			return soft.VertexOutput{Position: [4]float32{p[0], p[1], z, 1}}
		},
		Fragment: func(*soft.FragmentInput) (gpu.Color, bool) { return c, true },
	}
}

var posLayout = gpu.VertexBufferLayout{
	Stride:     8,
	Attributes: []gpu.VertexAttribute{{Format: gpu.VertexFloat32x2, Location: 0}},
}

func pipeline(t *testing.T, dev *soft.Device, prog *soft.Program, mod func(*gpu.RenderPipelineDescriptor)) gpu.RenderPipeline {
	t.Helper()
	sm, err := dev.CreateShaderModule(gpu.ShaderModuleDescriptor{Label: "test", Source: prog})
	require.NoError(t, err)
	desc := gpu.RenderPipelineDescriptor{
		Label:        "test",
		Module:       sm,
		Buffers:      []gpu.VertexBufferLayout{posLayout},
		Topology:     gpu.TriangleList,
		CullMode:     gpu.CullBack,
		TargetFormat: gpu.FormatRGBA8UnormSrgb,
		Blend:        gpu.BlendReplace,
	}
	if mod != nil {
		mod(&desc)
	}
	p, err := dev.CreateRenderPipeline(desc)
	require.NoError(t, err)
	return p
}

// fullQuad is two counter-clockwise triangles covering clip space.
var fullQuad = floats(-1, -1, 1, -1, 1, 1, -1, -1, 1, 1, -1, 1)

func drawQuad(dev *soft.Device, queue *soft.Queue, target gpu.Texture, depth gpu.Texture, p gpu.RenderPipeline, vertices []byte, load gpu.LoadOp) {
	vb := dev.CreateBuffer(gpu.BufferDescriptor{Contents: vertices, Usage: gpu.BufferUsageVertex})
	enc := dev.CreateCommandEncoder("test")
	desc := gpu.RenderPassDescriptor{
		ColorAttachments: []gpu.ColorAttachment{{View: target.CreateView(), Load: load, ClearValue: gpu.Black}},
	}
	if depth != nil {
		desc.DepthStencil = &gpu.DepthStencilAttachment{View: depth.CreateView(), DepthLoad: gpu.LoadOpLoad}
	}
	pass := enc.BeginRenderPass(desc)
	pass.SetPipeline(p)
	pass.SetVertexBuffer(0, vb)
	pass.Draw(uint32(len(vertices)/8), 1, 0, 0)
	pass.End()
	queue.Submit(enc.Finish())
}

func TestClearLoadOp(t *testing.T) {
	dev, queue := soft.New()
	target := newTarget(dev, 4, 3, gpu.FormatRGBA8UnormSrgb)

	enc := dev.CreateCommandEncoder("clear")
	pass := enc.BeginRenderPass(gpu.RenderPassDescriptor{
		ColorAttachments: []gpu.ColorAttachment{{View: target.CreateView(), Load: gpu.LoadOpClear, ClearValue: gpu.Color{R: 1, A: 1}}},
	})
	pass.End()

	assert.Equal(t, gpu.Transparent, target.At(0, 0), "nothing runs before submit")
	queue.Submit(enc.Finish())

	for y := range 3 {
		for x := range 4 {
			assert.Equal(t, gpu.Color{R: 1, A: 1}, target.At(x, y))
		}
	}
	assert.Equal(t, int64(1), dev.Stats().Submits)
	assert.Equal(t, int64(1), dev.Stats().RenderPasses)
}

func TestTriangleCoverage(t *testing.T) {
	dev, queue := soft.New()
	target := newTarget(dev, 8, 8, gpu.FormatRGBA8UnormSrgb)
	p := pipeline(t, dev, flatProgram(gpu.White, 0.5), nil)

	drawQuad(dev, queue, target, nil, p, fullQuad, gpu.LoadOpClear)
	for y := range 8 {
		for x := range 8 {
			assert.Equal(t, gpu.White, target.At(x, y), "pixel %d,%d", x, y)
		}
	}
	assert.GreaterOrEqual(t, dev.Stats().Fragments, int64(64))
	assert.Equal(t, int64(1), dev.Stats().DrawCalls)

	// A triangle over the left half only.
	target = newTarget(dev, 8, 8, gpu.FormatRGBA8UnormSrgb)
	drawQuad(dev, queue, target, nil, p, floats(-1, -1, 0, -1, 0, 1, -1, -1, 0, 1, -1, 1), gpu.LoadOpClear)
	assert.Equal(t, gpu.White, target.At(1, 4))
	assert.Equal(t, gpu.Black, target.At(6, 4))
}

func TestBackFaceCulling(t *testing.T) {
	dev, queue := soft.New()
	clockwise := floats(-1, -1, -1, 1, 1, 1)

	culled := newTarget(dev, 4, 4, gpu.FormatRGBA8UnormSrgb)
	drawQuad(dev, queue, culled, nil, pipeline(t, dev, flatProgram(gpu.White, 0), nil), clockwise, gpu.LoadOpClear)
	assert.Equal(t, gpu.Black, culled.At(0, 1))

	kept := newTarget(dev, 4, 4, gpu.FormatRGBA8UnormSrgb)
	noCull := pipeline(t, dev, flatProgram(gpu.White, 0), func(d *gpu.RenderPipelineDescriptor) { d.CullMode = gpu.CullNone })
	drawQuad(dev, queue, kept, nil, noCull, clockwise, gpu.LoadOpClear)
	assert.Equal(t, gpu.White, kept.At(0, 1))
}

func TestDepthTest(t *testing.T) {
	dev, queue := soft.New()
	target := newTarget(dev, 4, 4, gpu.FormatRGBA8UnormSrgb)
	depth := newTarget(dev, 4, 4, gpu.FormatDepth32Float)
	assert.Equal(t, float32(1), depth.Depth(0, 0), "depth textures start cleared to the far plane")

	withDepth := func(d *gpu.RenderPipelineDescriptor) {
		d.DepthStencil = &gpu.DepthStencilState{Format: gpu.FormatDepth32Float, DepthWrite: true, DepthCompare: gpu.CompareLess}
	}
	red := gpu.Color{R: 1, A: 1}
	blue := gpu.Color{B: 1, A: 1}

	drawQuad(dev, queue, target, depth, pipeline(t, dev, flatProgram(red, 0.2), withDepth), fullQuad, gpu.LoadOpClear)
	drawQuad(dev, queue, target, depth, pipeline(t, dev, flatProgram(blue, 0.6), withDepth), fullQuad, gpu.LoadOpLoad)
	assert.Equal(t, red, target.At(2, 2), "farther fragments fail the depth test")
	assert.InDelta(t, 0.2, depth.Depth(2, 2), 1e-6)

	drawQuad(dev, queue, target, depth, pipeline(t, dev, flatProgram(blue, 0.1), withDepth), fullQuad, gpu.LoadOpLoad)
	assert.Equal(t, blue, target.At(2, 2))
}

func TestAlphaBlend(t *testing.T) {
	dev, queue := soft.New()
	target := newTarget(dev, 2, 2, gpu.FormatRGBA8UnormSrgb)
	p := pipeline(t, dev, flatProgram(gpu.Color{R: 1, A: 0.5}, 0), func(d *gpu.RenderPipelineDescriptor) { d.Blend = gpu.BlendAlpha })

	drawQuad(dev, queue, target, nil, p, fullQuad, gpu.LoadOpClear)
	c := target.At(0, 0)
	assert.InDelta(t, 0.5, c.R, 1e-9)
	assert.InDelta(t, 0, c.G, 1e-9)
	assert.InDelta(t, 1, c.A, 1e-9)
}

func TestIndexedDrawAndVaryings(t *testing.T) {
	dev, queue := soft.New()
	target := newTarget(dev, 4, 4, gpu.FormatRGBA8UnormSrgb)
	prog := &soft.Program{
		Varyings: 1,
		Vertex: func(in *soft.VertexInput) soft.VertexOutput {
			p := in.Attributes[0]
			return soft.VertexOutput{Position: [4]float32{p[0], p[1], 0, 1}, Varyings: []float32{0.25}}
		},
		Fragment: func(in *soft.FragmentInput) (gpu.Color, bool) {
			return gpu.Color{G: float64(in.Varyings[0]), A: 1}, true
		},
	}
	p := pipeline(t, dev, prog, nil)

	vb := dev.CreateBuffer(gpu.BufferDescriptor{Contents: floats(-1, -1, 1, -1, 1, 1, -1, 1), Usage: gpu.BufferUsageVertex})
	ib := dev.CreateBuffer(gpu.BufferDescriptor{Contents: []byte{0, 0, 1, 0, 2, 0, 0, 0, 2, 0, 3, 0}, Usage: gpu.BufferUsageIndex})

	enc := dev.CreateCommandEncoder("indexed")
	pass := enc.BeginRenderPass(gpu.RenderPassDescriptor{
		ColorAttachments: []gpu.ColorAttachment{{View: target.CreateView(), Load: gpu.LoadOpClear}},
	})
	pass.SetPipeline(p)
	pass.SetVertexBuffer(0, vb)
	pass.SetIndexBuffer(ib, gpu.IndexUint16)
	pass.DrawIndexed(6, 1, 0, 0, 0)
	pass.End()
	queue.Submit(enc.Finish())

	for y := range 4 {
		for x := range 4 {
			assert.InDelta(t, 0.25, target.At(x, y).G, 1e-6)
		}
	}
}

func TestBindingsAndClearProgram(t *testing.T) {
	dev, queue := soft.New()
	target := newTarget(dev, 3, 3, gpu.FormatRGBA8UnormSrgb)

	layout := dev.CreateBindGroupLayout(gpu.BindGroupLayoutDescriptor{
		Entries: []gpu.BindGroupLayoutEntry{{Binding: 0, Visibility: gpu.StageFragment, Type: gpu.BindingUniformBuffer}},
	})
	color := dev.CreateBuffer(gpu.BufferDescriptor{Contents: floats(0, 0, 1, 1), Usage: gpu.BufferUsageUniform})
	group := dev.CreateBindGroup(gpu.BindGroupDescriptor{Layout: layout, Entries: []gpu.BindGroupEntry{{Binding: 0, Buffer: color}}})

	sm, err := dev.CreateShaderModule(soft.Shaders()[soft.ShaderClear])
	require.NoError(t, err)
	p, err := dev.CreateRenderPipeline(gpu.RenderPipelineDescriptor{
		Module:           sm,
		BindGroupLayouts: []gpu.BindGroupLayout{layout},
		CullMode:         gpu.CullBack,
	})
	require.NoError(t, err)

	enc := dev.CreateCommandEncoder("clear")
	pass := enc.BeginRenderPass(gpu.RenderPassDescriptor{
		ColorAttachments: []gpu.ColorAttachment{{View: target.CreateView()}},
	})
	pass.SetPipeline(p)
	pass.SetBindGroup(0, group)
	pass.Draw(3, 1, 0, 0)
	pass.End()
	queue.Submit(enc.Finish())

	img := target.Image(nil)
	for y := range 3 {
		for x := range 3 {
			assert.Equal(t, uint8(255), img.NRGBAAt(x, y).B)
		}
	}

	queue.WriteBuffer(color, 0, floats(1, 0, 0, 1))
	queue.Submit(enc.Finish())
	assert.Equal(t, gpu.Color{R: 1, A: 1}, target.At(1, 1), "uniform writes are visible to later submits")
}

func TestTextureWriteAndSample(t *testing.T) {
	dev, queue := soft.New()
	tex := newTarget(dev, 2, 1, gpu.FormatRGBA8UnormSrgb)
	queue.WriteTexture(tex, []byte{255, 0, 0, 255, 0, 0, 255, 255})
	assert.Equal(t, gpu.Color{R: 1, A: 1}, tex.At(0, 0))
	assert.Equal(t, gpu.Color{B: 1, A: 1}, tex.At(1, 0))
	assert.Equal(t, gpu.Transparent, tex.At(5, 0))

	assert.Panics(t, func() { queue.WriteTexture(tex, []byte{1, 2}) })
}

func TestPipelineErrors(t *testing.T) {
	dev, _ := soft.New()

	_, err := dev.CreateShaderModule(gpu.ShaderModuleDescriptor{Label: "kage", Source: []byte("package main")})
	assert.Error(t, err)
	_, err = dev.CreateShaderModule(gpu.ShaderModuleDescriptor{Label: "half", Source: &soft.Program{}})
	assert.Error(t, err)

	_, err = dev.CreateRenderPipeline(gpu.RenderPipelineDescriptor{Label: "none"})
	assert.Error(t, err)

	sm, err := dev.CreateShaderModule(soft.Shaders()[soft.ShaderMesh])
	require.NoError(t, err)
	_, err = dev.CreateRenderPipeline(gpu.RenderPipelineDescriptor{
		Module:       sm,
		DepthStencil: &gpu.DepthStencilState{Format: gpu.FormatRGBA8UnormSrgb},
	})
	assert.Error(t, err)
	assert.Equal(t, int64(0), dev.Stats().PipelinesCreated)
}

func TestSurface(t *testing.T) {
	dev, _ := soft.New()
	s := soft.NewSurface()

	_, err := s.CurrentTexture()
	assert.ErrorIs(t, err, gpu.ErrUnconfigured)

	var presented *soft.Texture
	s.SetPresentHook(func(tex *soft.Texture) { presented = tex })
	s.Configure(dev, gpu.SurfaceConfiguration{Format: gpu.FormatRGBA8UnormSrgb, Width: 6, Height: 2})
	assert.Equal(t, uint32(6), s.Configuration().Width)

	st, err := s.CurrentTexture()
	require.NoError(t, err)
	assert.Equal(t, gpu.Extent{Width: 6, Height: 2}, st.Texture().Size())
	st.Present()
	assert.Equal(t, 1, s.Presented())
	assert.Same(t, s.Frame(), presented)

	lost := errors.New("lost")
	s.FailNextAcquire(lost)
	_, err = s.CurrentTexture()
	assert.ErrorIs(t, err, lost)
	_, err = s.CurrentTexture()
	assert.NoError(t, err, "failure injection only affects one acquire")
}
