// Package render builds a per-frame render graph over the gpu contract and
// drives it from a Renderer.
package render

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/tubereng/tuber/gpu"
)

var ErrMissingShader = errors.New("render: missing shader module")

// PipelineError is raised as a panic when a pass cannot get a pipeline.
type PipelineError struct {
	Pass   string
	Shader string
	Err    error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("render: pipeline for pass %q (shader %q): %v", e.Pass, e.Shader, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

type RenderTargetId int

// PassResources is what a pass callback gets to draw with.
type PassResources struct {
	BindGroups    []gpu.BindGroup
	VertexBuffers []gpu.Buffer
	IndexBuffers  []gpu.Buffer
	DrawCommands  []DrawCommand
	Materials     *MaterialCache
}

// DispatchFunc records the draws of one pass. The pipeline is already set.
type DispatchFunc func(pass gpu.RenderPass, res PassResources)

type renderPass struct {
	id         string
	shader     string
	targets    []RenderTargetId
	depth      DepthBufferHandle
	hasDepth   bool
	clearDepth bool
	blend      *gpu.BlendState
	topology   gpu.PrimitiveTopology
	vertices   bool
	layouts    []gpu.BindGroupLayout
	groups     []gpu.BindGroup
	dispatch   DispatchFunc
}

// RenderGraph is an ordered list of passes over registered render targets.
// It is rebuilt every frame; pipelines outlive it in the Context.
type RenderGraph struct {
	passes  []*renderPass
	targets []gpu.TextureView
}

func NewRenderGraph() *RenderGraph {
	return &RenderGraph{}
}

// RegisterRenderTarget adds a color attachment and returns its id.
func (g *RenderGraph) RegisterRenderTarget(view gpu.TextureView) RenderTargetId {
	g.targets = append(g.targets, view)
	return RenderTargetId(len(g.targets) - 1)
}

// Len returns the number of passes.
func (g *RenderGraph) Len() int { return len(g.passes) }

// AddPass starts a pass. The pass joins the graph when Dispatch is called.
func (g *RenderGraph) AddPass(id string) *PassBuilder {
	return &PassBuilder{graph: g, pass: &renderPass{
		id:         id,
		topology:   gpu.TriangleList,
		vertices:   true,
		clearDepth: true,
	}}
}

type PassBuilder struct {
	graph *RenderGraph
	pass  *renderPass
}

func (b *PassBuilder) WithShader(shader string) *PassBuilder {
	b.pass.shader = shader
	return b
}

func (b *PassBuilder) WithRenderTarget(target RenderTargetId) *PassBuilder {
	b.pass.targets = append(b.pass.targets, target)
	return b
}

// WithDepthBuffer attaches a depth buffer, cleared to the far plane on pass
// entry when clear is set.
func (b *PassBuilder) WithDepthBuffer(h DepthBufferHandle, clear bool) *PassBuilder {
	b.pass.depth = h
	b.pass.hasDepth = true
	b.pass.clearDepth = clear
	return b
}

func (b *PassBuilder) WithPrimitiveTopology(t gpu.PrimitiveTopology) *PassBuilder {
	b.pass.topology = t
	return b
}

func (b *PassBuilder) WithBlendState(s gpu.BlendState) *PassBuilder {
	b.pass.blend = &s
	return b
}

// WithNoVertexBuffer builds the pipeline without a vertex layout.
func (b *PassBuilder) WithNoVertexBuffer() *PassBuilder {
	b.pass.vertices = false
	return b
}

// WithBindGroupLayout adds a layout whose bind group the callback sets itself.
func (b *PassBuilder) WithBindGroupLayout(layout gpu.BindGroupLayout) *PassBuilder {
	b.pass.layouts = append(b.pass.layouts, layout)
	return b
}

func (b *PassBuilder) WithBindGroup(layout gpu.BindGroupLayout, group gpu.BindGroup) *PassBuilder {
	b.pass.layouts = append(b.pass.layouts, layout)
	b.pass.groups = append(b.pass.groups, group)
	return b
}

// Dispatch sets the pass callback and appends the pass to the graph.
func (b *PassBuilder) Dispatch(fn DispatchFunc) {
	if b.pass.shader == "" {
		panic(fmt.Sprintf("render: pass %q has no shader", b.pass.id))
	}
	if len(b.pass.targets) == 0 {
		panic(fmt.Sprintf("render: pass %q has no render target", b.pass.id))
	}
	for _, t := range b.pass.targets {
		if int(t) < 0 || int(t) >= len(b.graph.targets) {
			panic(fmt.Sprintf("render: pass %q uses unknown render target %d", b.pass.id, t))
		}
	}
	b.pass.dispatch = fn
	b.graph.passes = append(b.graph.passes, b.pass)
}

// Execute records every pass in declaration order into encoder. Pipelines
// are built on first use of a pass id and cached in ctx.
func (g *RenderGraph) Execute(encoder gpu.CommandEncoder, ctx *Context) {
	for _, p := range g.passes {
		desc := gpu.RenderPassDescriptor{
			Label: p.id,
			ColorAttachments: []gpu.ColorAttachment{{
				View:  g.targets[p.targets[0]],
				Load:  gpu.LoadOpLoad,
				Store: gpu.StoreOpStore,
			}},
		}
		if p.hasDepth {
			load := gpu.LoadOpLoad
			if p.clearDepth {
				load = gpu.LoadOpClear
			}
			desc.DepthStencil = &gpu.DepthStencilAttachment{
				View:       ctx.Textures.DepthTexture(p.depth),
				DepthLoad:  load,
				DepthStore: gpu.StoreOpStore,
				ClearDepth: 1,
			}
		}

		pass := encoder.BeginRenderPass(desc)
		pipeline, ok := ctx.Pipelines[p.id]
		if !ok {
			ctx.Log.Debug("caching pipeline for pass", zap.String("pass", p.id), zap.String("shader", p.shader))
			pipeline = createPipeline(ctx, p)
			ctx.Pipelines[p.id] = pipeline
			ctx.pipelineBuilds++
		}
		pass.SetPipeline(pipeline)
		if p.dispatch != nil {
			p.dispatch(pass, PassResources{
				BindGroups:    p.groups,
				VertexBuffers: ctx.VertexBuffers,
				IndexBuffers:  ctx.IndexBuffers,
				DrawCommands:  ctx.DrawCommands,
				Materials:     ctx.Materials,
			})
		}
		pass.End()
	}
}

func createPipeline(ctx *Context, p *renderPass) gpu.RenderPipeline {
	module, ok := ctx.Shaders[p.shader]
	if !ok {
		panic(&PipelineError{Pass: p.id, Shader: p.shader, Err: ErrMissingShader})
	}
	desc := gpu.RenderPipelineDescriptor{
		Label:            p.id + "_pipeline",
		BindGroupLayouts: p.layouts,
		Module:           module,
		VertexEntry:      "vs_main",
		FragmentEntry:    "fs_main",
		Topology:         p.topology,
		FrontFace:        gpu.FrontFaceCCW,
		CullMode:         gpu.CullBack,
		TargetFormat:     ctx.Config.Format,
		Blend:            gpu.BlendReplace,
	}
	if p.vertices {
		desc.Buffers = []gpu.VertexBufferLayout{VertexLayout()}
	}
	if p.hasDepth {
		desc.DepthStencil = &gpu.DepthStencilState{
			Format:       gpu.FormatDepth32Float,
			DepthWrite:   true,
			DepthCompare: gpu.CompareLess,
		}
	}
	if p.blend != nil {
		desc.Blend = *p.blend
	}
	pipeline, err := ctx.Device.CreateRenderPipeline(desc)
	if err != nil {
		panic(&PipelineError{Pass: p.id, Shader: p.shader, Err: err})
	}
	return pipeline
}
