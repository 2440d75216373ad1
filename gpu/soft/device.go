// Package soft is a CPU implementation of the gpu contract. Textures hold
// float texels, shaders are Go functions and submission rasterizes
// synchronously on the calling goroutine.
package soft

import (
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/tubereng/tuber/gpu"
)

// Stats counts the work a Device has done since it was created.
type Stats struct {
	TexturesCreated   int64
	BuffersCreated    int64
	BindGroupsCreated int64
	PipelinesCreated  int64
	Submits           int64
	RenderPasses      int64
	DrawCalls         int64
	Fragments         int64
}

type Device struct {
	log *zap.Logger

	textures   atomic.Int64
	buffers    atomic.Int64
	bindGroups atomic.Int64
	pipelines  atomic.Int64
	submits    atomic.Int64
	passes     atomic.Int64
	draws      atomic.Int64
	fragments  atomic.Int64
}

type Option func(*Device)

func WithLogger(log *zap.Logger) Option {
	return func(d *Device) { d.log = log }
}

// New creates a device and its queue.
func New(opts ...Option) (*Device, *Queue) {
	d := &Device{log: zap.NewNop()}
	for _, opt := range opts {
		opt(d)
	}
	return d, &Queue{device: d}
}

func (d *Device) Stats() Stats {
	return Stats{
		TexturesCreated:   d.textures.Load(),
		BuffersCreated:    d.buffers.Load(),
		BindGroupsCreated: d.bindGroups.Load(),
		PipelinesCreated:  d.pipelines.Load(),
		Submits:           d.submits.Load(),
		RenderPasses:      d.passes.Load(),
		DrawCalls:         d.draws.Load(),
		Fragments:         d.fragments.Load(),
	}
}

func (d *Device) CreateTexture(desc gpu.TextureDescriptor) gpu.Texture {
	d.textures.Add(1)
	return newTexture(desc)
}

func (d *Device) CreateBuffer(desc gpu.BufferDescriptor) gpu.Buffer {
	d.buffers.Add(1)
	size := desc.Size
	if desc.Contents != nil {
		size = uint64(len(desc.Contents))
	}
	b := &Buffer{label: desc.Label, usage: desc.Usage, data: make([]byte, size)}
	copy(b.data, desc.Contents)
	return b
}

func (d *Device) CreateSampler(desc gpu.SamplerDescriptor) gpu.Sampler {
	return &Sampler{label: desc.Label, mag: desc.MagFilter, min: desc.MinFilter}
}

func (d *Device) CreateBindGroupLayout(desc gpu.BindGroupLayoutDescriptor) gpu.BindGroupLayout {
	return &BindGroupLayout{label: desc.Label, entries: append([]gpu.BindGroupLayoutEntry(nil), desc.Entries...)}
}

func (d *Device) CreateBindGroup(desc gpu.BindGroupDescriptor) gpu.BindGroup {
	d.bindGroups.Add(1)
	layout := handle[*BindGroupLayout](desc.Layout, "bind group layout")
	g := &BindGroup{label: desc.Label, layout: layout, entries: make(map[uint32]gpu.BindGroupEntry, len(desc.Entries))}
	for _, e := range desc.Entries {
		g.entries[e.Binding] = e
	}
	return g
}

func (d *Device) CreateShaderModule(desc gpu.ShaderModuleDescriptor) (gpu.ShaderModule, error) {
	var prog *Program
	switch src := desc.Source.(type) {
	case *Program:
		prog = src
	case Program:
		prog = &src
	default:
		return nil, fmt.Errorf("soft: shader module %q: unsupported source %T", desc.Label, desc.Source)
	}
	if prog == nil || prog.Vertex == nil || prog.Fragment == nil {
		return nil, fmt.Errorf("soft: shader module %q: program needs vertex and fragment stages", desc.Label)
	}
	return &ShaderModule{label: desc.Label, program: prog}, nil
}

func (d *Device) CreateRenderPipeline(desc gpu.RenderPipelineDescriptor) (gpu.RenderPipeline, error) {
	if desc.Module == nil {
		return nil, fmt.Errorf("soft: pipeline %q: %w", desc.Label, errNoModule)
	}
	mod, ok := desc.Module.(*ShaderModule)
	if !ok {
		return nil, fmt.Errorf("soft: pipeline %q: foreign shader module %T", desc.Label, desc.Module)
	}
	if desc.DepthStencil != nil && !desc.DepthStencil.Format.IsDepth() {
		return nil, fmt.Errorf("soft: pipeline %q: depth state uses color format %s", desc.Label, desc.DepthStencil.Format)
	}
	if desc.TargetFormat.IsDepth() {
		return nil, fmt.Errorf("soft: pipeline %q: color target uses depth format", desc.Label)
	}
	layouts := make([]*BindGroupLayout, len(desc.BindGroupLayouts))
	for i, l := range desc.BindGroupLayouts {
		layouts[i] = handle[*BindGroupLayout](l, "bind group layout")
	}
	d.pipelines.Add(1)
	d.log.Debug("created render pipeline", zap.String("label", desc.Label), zap.Int("bind_groups", len(layouts)))
	return &RenderPipeline{desc: desc, program: mod.program, layouts: layouts}, nil
}

func (d *Device) CreateCommandEncoder(label string) gpu.CommandEncoder {
	return &CommandEncoder{device: d, label: label}
}

var errNoModule = errors.New("missing shader module")

// handle unwraps a gpu handle created by this backend. Mixing backends is a
// programming error.
func handle[T any](h any, what string) T {
	v, ok := h.(T)
	if !ok {
		panic(fmt.Sprintf("soft: %s %T was not created by this backend", what, h))
	}
	return v
}

type Buffer struct {
	label     string
	usage     gpu.BufferUsage
	data      []byte
	destroyed bool
}

func (b *Buffer) Label() string          { return b.label }
func (b *Buffer) Size() uint64           { return uint64(len(b.data)) }
func (b *Buffer) Usage() gpu.BufferUsage { return b.usage }
func (b *Buffer) Destroy()               { b.destroyed = true; b.data = nil }

// Bytes exposes the buffer contents.
func (b *Buffer) Bytes() []byte { return b.data }

type Sampler struct {
	label string
	mag   gpu.FilterMode
	min   gpu.FilterMode
}

func (s *Sampler) Label() string { return s.label }

type BindGroupLayout struct {
	label   string
	entries []gpu.BindGroupLayoutEntry
}

func (l *BindGroupLayout) Label() string { return l.label }

type BindGroup struct {
	label   string
	layout  *BindGroupLayout
	entries map[uint32]gpu.BindGroupEntry
}

func (g *BindGroup) Label() string               { return g.label }
func (g *BindGroup) Layout() gpu.BindGroupLayout { return g.layout }

type ShaderModule struct {
	label   string
	program *Program
}

func (m *ShaderModule) Label() string { return m.label }

type RenderPipeline struct {
	desc    gpu.RenderPipelineDescriptor
	program *Program
	layouts []*BindGroupLayout
}

func (p *RenderPipeline) Label() string { return p.desc.Label }
