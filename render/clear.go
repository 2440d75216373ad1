package render

import "github.com/tubereng/tuber/gpu"

// Shader names the built-in passes look up in Context.Shaders.
const (
	ShaderClear = "clear"
	ShaderMesh  = "mesh"
)

// ClearPassId is the pass identifier, and so the pipeline cache key, of the
// clear pass.
const ClearPassId = "clear"

// Clearer fills a render target with a solid color. Color attachments are
// always loaded, so a graph that needs a clean target starts with its pass.
type Clearer struct {
	layout gpu.BindGroupLayout
	group  gpu.BindGroup
	buffer gpu.Buffer
	color  gpu.Color
}

func NewClearer(device gpu.Device, color gpu.Color) *Clearer {
	layout := device.CreateBindGroupLayout(gpu.BindGroupLayoutDescriptor{
		Label:   "clear_bind_group_layout",
		Entries: []gpu.BindGroupLayoutEntry{{Binding: 0, Visibility: gpu.StageFragment, Type: gpu.BindingUniformBuffer}},
	})
	buf := device.CreateBuffer(gpu.BufferDescriptor{
		Label:    "clear_color",
		Usage:    gpu.BufferUsageUniform | gpu.BufferUsageCopyDst,
		Contents: colorBytes(color),
	})
	return &Clearer{
		layout: layout,
		buffer: buf,
		color:  color,
		group: device.CreateBindGroup(gpu.BindGroupDescriptor{
			Label:   "clear_bind_group",
			Layout:  layout,
			Entries: []gpu.BindGroupEntry{{Binding: 0, Buffer: buf}},
		}),
	}
}

func (c *Clearer) Color() gpu.Color { return c.color }

func (c *Clearer) SetColor(queue gpu.Queue, color gpu.Color) {
	c.color = color
	queue.WriteBuffer(c.buffer, 0, colorBytes(color))
}

// AddPass appends a full-target clear pass drawing into target.
func (c *Clearer) AddPass(g *RenderGraph, target RenderTargetId) {
	g.AddPass(ClearPassId).
		WithShader(ShaderClear).
		WithRenderTarget(target).
		WithNoVertexBuffer().
		WithBindGroup(c.layout, c.group).
		Dispatch(func(pass gpu.RenderPass, res PassResources) {
			pass.SetBindGroup(0, res.BindGroups[0])
			pass.Draw(3, 1, 0, 0)
		})
}
