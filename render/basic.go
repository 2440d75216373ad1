package render

import (
	"fmt"

	"github.com/tubereng/tuber/asset"
	"github.com/tubereng/tuber/ecs"
	"github.com/tubereng/tuber/gpu"
)

// Mesh is the geometry component drawn by BasicPipeline. Geometry is
// uploaded the first time the entity is seen and again whenever the
// component is marked dirty.
type Mesh struct {
	Vertices []Vertex
	Indices  []uint16
}

// Transform places a mesh in clip space: scale, then rotate around z, then
// translate. A zero Scale means unit scale.
type Transform struct {
	Position [3]float32
	Rotation float32
	Scale    [3]float32
}

func (t Transform) Matrix() Mat4 {
	s := t.Scale
	if s == ([3]float32{}) {
		s = [3]float32{1, 1, 1}
	}
	return Translation(t.Position[0], t.Position[1], t.Position[2]).
		Mul(RotationZ(t.Rotation)).
		Mul(Scaling(s[0], s[1], s[2]))
}

// MaterialRef selects the material a mesh is drawn with.
type MaterialRef struct {
	Handle asset.Handle[MaterialAsset]
}

// RegisterComponents registers the components BasicPipeline reads.
func RegisterComponents(r *ecs.ComponentRegistry) {
	ecs.RegisterComponent[Mesh](r)
	ecs.RegisterComponent[Transform](r)
	ecs.RegisterComponent[MaterialRef](r)
}

const (
	MeshPassId = "mesh"

	// meshUniformStride keeps every dynamic offset 256-byte aligned.
	meshUniformStride = 256
	mat4Size          = 64
)

type meshBuffers struct {
	vertex  int
	index   int
	indexed bool
}

type meshRow = struct {
	*Mesh
	Changed  ecs.Dirty[Mesh]
	Xform    *Transform   `ecs:"optional"`
	Material *MaterialRef `ecs:"optional"`
}

// BasicPipeline clears the surface and draws every Mesh entity with a depth
// buffer and its material.
type BasicPipeline struct {
	ClearColor gpu.Color

	clearer        *Clearer
	depth          DepthBufferHandle
	meshLayout     gpu.BindGroupLayout
	meshGroup      gpu.BindGroup
	meshUniform    gpu.Buffer
	meshCapacity   int
	materialLayout gpu.BindGroupLayout
	buffers        map[ecs.EntityId]meshBuffers
}

func NewBasicPipeline(clearColor gpu.Color) *BasicPipeline {
	return &BasicPipeline{ClearColor: clearColor, buffers: make(map[ecs.EntityId]meshBuffers)}
}

func (p *BasicPipeline) Setup(ctx *Context) error {
	for _, name := range []string{ShaderClear, ShaderMesh} {
		if _, ok := ctx.Shaders[name]; !ok {
			return fmt.Errorf("%w: %q", ErrMissingShader, name)
		}
	}
	p.clearer = NewClearer(ctx.Device, p.ClearColor)
	p.depth = ctx.Textures.CreateDepthTexture(ctx.Device, "depth_buffer", ctx.Config.Width, ctx.Config.Height, true)
	p.meshLayout = ctx.Device.CreateBindGroupLayout(gpu.BindGroupLayoutDescriptor{
		Label: "mesh_bind_group_layout",
		Entries: []gpu.BindGroupLayoutEntry{{
			Binding:          0,
			Visibility:       gpu.StageVertex,
			Type:             gpu.BindingUniformBuffer,
			HasDynamicOffset: true,
		}},
	})
	p.materialLayout = NewMaterialBindGroupLayout(ctx.Device)
	p.growMeshUniform(ctx, 64)
	ctx.Materials.SetFallback(NewMaterial(ctx.Device, p.materialLayout, "default_material", ctx.Textures.White(ctx.Device, ctx.Queue), gpu.White))
	return nil
}

func (p *BasicPipeline) growMeshUniform(ctx *Context, capacity int) {
	if p.meshUniform != nil {
		p.meshUniform.Destroy()
	}
	p.meshCapacity = capacity
	p.meshUniform = ctx.Device.CreateBuffer(gpu.BufferDescriptor{
		Label: "mesh_uniform",
		Size:  uint64(capacity * meshUniformStride),
		Usage: gpu.BufferUsageUniform | gpu.BufferUsageCopyDst,
	})
	p.meshGroup = ctx.Device.CreateBindGroup(gpu.BindGroupDescriptor{
		Label:   "mesh_bind_group",
		Layout:  p.meshLayout,
		Entries: []gpu.BindGroupEntry{{Binding: 0, Buffer: p.meshUniform, Size: mat4Size}},
	})
}

// SetClearColor changes the clear color from the next frame on.
func (p *BasicPipeline) SetClearColor(ctx *Context, c gpu.Color) {
	p.ClearColor = c
	p.clearer.SetColor(ctx.Queue, c)
}

// MaterialLayout is the layout materials for this pipeline are created with.
func (p *BasicPipeline) MaterialLayout() gpu.BindGroupLayout { return p.materialLayout }

func (p *BasicPipeline) Prepare(ctx *Context, w *ecs.Ecs, assets *asset.Store) error {
	q := ecs.NewQuery[meshRow](w)
	for id, row := range q.IterWithIds() {
		label := fmt.Sprintf("mesh_%d", id)
		b, seen := p.buffers[id]
		switch {
		case !seen:
			b.vertex = ctx.UploadVertices(label, row.Vertices)
			if len(row.Indices) > 0 {
				b.index = ctx.UploadIndices(label, row.Indices)
				b.indexed = true
			}
			p.buffers[id] = b
		case bool(row.Changed):
			ctx.ReplaceVertices(b.vertex, label, row.Vertices)
			if len(row.Indices) > 0 {
				if b.indexed {
					ctx.ReplaceIndices(b.index, label, row.Indices)
				} else {
					b.index = ctx.UploadIndices(label, row.Indices)
					b.indexed = true
				}
			} else {
				b.indexed = false
			}
			p.buffers[id] = b
		}

		cmd := DrawCommand{
			VertexBuffer: b.vertex,
			IndexBuffer:  b.index,
			Indexed:      b.indexed,
			VertexCount:  uint32(len(row.Vertices)),
			ElementCount: uint32(len(row.Indices)),
			Transform:    Identity(),
		}
		if row.Xform != nil {
			cmd.Transform = row.Xform.Matrix()
		}
		if row.Material != nil && assets != nil {
			h := row.Material.Handle
			if !ctx.Materials.Has(h) {
				if err := ctx.Materials.Load(h, assets, ctx.Textures, p.materialLayout, ctx.Device, ctx.Queue); err != nil {
					return fmt.Errorf("prepare entity %d: %w", id, err)
				}
			}
			cmd.Material = h
			cmd.HasMaterial = true
		}
		ctx.DrawCommands = append(ctx.DrawCommands, cmd)
	}

	if n := len(ctx.DrawCommands); n > p.meshCapacity {
		p.growMeshUniform(ctx, max(n, p.meshCapacity*2))
	}
	for i, cmd := range ctx.DrawCommands {
		ctx.Queue.WriteBuffer(p.meshUniform, uint64(i*meshUniformStride), cmd.Transform.bytes())
	}
	return nil
}

func (p *BasicPipeline) Render(ctx *Context, encoder gpu.CommandEncoder, target gpu.TextureView) error {
	g := NewRenderGraph()
	t := g.RegisterRenderTarget(target)
	p.clearer.AddPass(g, t)
	g.AddPass(MeshPassId).
		WithShader(ShaderMesh).
		WithRenderTarget(t).
		WithDepthBuffer(p.depth, true).
		WithBlendState(gpu.BlendAlpha).
		WithBindGroup(p.meshLayout, p.meshGroup).
		WithBindGroupLayout(p.materialLayout).
		Dispatch(drawMeshes)
	g.Execute(encoder, ctx)
	return nil
}

func drawMeshes(pass gpu.RenderPass, res PassResources) {
	for i, cmd := range res.DrawCommands {
		pass.SetBindGroup(0, res.BindGroups[0], uint32(i*meshUniformStride))
		if m := res.Materials.Resolve(cmd); m != nil {
			m.Bind(1, pass)
		}
		pass.SetVertexBuffer(0, res.VertexBuffers[cmd.VertexBuffer])
		if cmd.Indexed {
			pass.SetIndexBuffer(res.IndexBuffers[cmd.IndexBuffer], gpu.IndexUint16)
			pass.DrawIndexed(cmd.ElementCount, 1, 0, 0, 0)
		} else {
			pass.Draw(cmd.VertexCount, 1, 0, 0)
		}
	}
}
