package soft

import (
	"fmt"

	"github.com/tubereng/tuber/gpu"
)

type CommandEncoder struct {
	device   *Device
	label    string
	passes   []*RenderPass
	finished bool
}

func (e *CommandEncoder) BeginRenderPass(desc gpu.RenderPassDescriptor) gpu.RenderPass {
	if e.finished {
		panic(fmt.Sprintf("soft: encoder %q used after Finish", e.label))
	}
	if len(desc.ColorAttachments) == 0 {
		panic(fmt.Sprintf("soft: render pass %q has no color attachment", desc.Label))
	}
	p := &RenderPass{device: e.device, desc: desc}
	e.passes = append(e.passes, p)
	return p
}

func (e *CommandEncoder) Finish() gpu.CommandBuffer {
	e.finished = true
	return &CommandBuffer{label: e.label, passes: e.passes}
}

type CommandBuffer struct {
	label  string
	passes []*RenderPass
}

func (c *CommandBuffer) Label() string { return c.label }

type passState struct {
	pipeline      *RenderPipeline
	bindings      Bindings
	vertexBuffers [8]*Buffer
	indexBuffer   *Buffer
	indexFormat   gpu.IndexFormat
}

// RenderPass records commands; they run when the owning command buffer is
// submitted.
type RenderPass struct {
	device   *Device
	desc     gpu.RenderPassDescriptor
	commands []func(*passState, *rasterizer)
	ended    bool
}

func (p *RenderPass) record(cmd func(*passState, *rasterizer)) {
	if p.ended {
		panic(fmt.Sprintf("soft: render pass %q used after End", p.desc.Label))
	}
	p.commands = append(p.commands, cmd)
}

func (p *RenderPass) SetPipeline(pipeline gpu.RenderPipeline) {
	rp := handle[*RenderPipeline](pipeline, "pipeline")
	p.record(func(s *passState, _ *rasterizer) { s.pipeline = rp })
}

func (p *RenderPass) SetBindGroup(index uint32, group gpu.BindGroup, dynamicOffsets ...uint32) {
	if index >= maxBindGroups {
		panic(fmt.Sprintf("soft: bind group index %d out of range", index))
	}
	g := handle[*BindGroup](group, "bind group")
	offsets := append([]uint32(nil), dynamicOffsets...)
	p.record(func(s *passState, _ *rasterizer) {
		s.bindings.groups[index] = boundGroup{group: g, offsets: offsets}
	})
}

func (p *RenderPass) SetVertexBuffer(slot uint32, buf gpu.Buffer) {
	b := handle[*Buffer](buf, "buffer")
	p.record(func(s *passState, _ *rasterizer) { s.vertexBuffers[slot] = b })
}

func (p *RenderPass) SetIndexBuffer(buf gpu.Buffer, format gpu.IndexFormat) {
	b := handle[*Buffer](buf, "buffer")
	p.record(func(s *passState, _ *rasterizer) {
		s.indexBuffer = b
		s.indexFormat = format
	})
}

func (p *RenderPass) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	p.record(func(s *passState, r *rasterizer) {
		p.device.draws.Add(1)
		for inst := firstInstance; inst < firstInstance+instanceCount; inst++ {
			indices := make([]uint32, vertexCount)
			for i := range indices {
				indices[i] = firstVertex + uint32(i)
			}
			r.draw(s, indices, inst)
		}
	})
}

func (p *RenderPass) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	p.record(func(s *passState, r *rasterizer) {
		if s.indexBuffer == nil {
			panic(fmt.Sprintf("soft: render pass %q: indexed draw without an index buffer", p.desc.Label))
		}
		p.device.draws.Add(1)
		indices := readIndices(s.indexBuffer, s.indexFormat, firstIndex, indexCount, baseVertex)
		for inst := firstInstance; inst < firstInstance+instanceCount; inst++ {
			r.draw(s, indices, inst)
		}
	})
}

func (p *RenderPass) End() { p.ended = true }

func (p *RenderPass) execute() {
	p.device.passes.Add(1)
	color := p.desc.ColorAttachments[0]
	target := handle[*TextureView](color.View, "texture view").texture
	if color.Load == gpu.LoadOpClear {
		target.clear(color.ClearValue)
	}
	var depth *Texture
	if ds := p.desc.DepthStencil; ds != nil {
		depth = handle[*TextureView](ds.View, "texture view").texture
		if ds.DepthLoad == gpu.LoadOpClear {
			depth.clearDepth(ds.ClearDepth)
		}
	}
	r := &rasterizer{device: p.device, target: target, depth: depth}
	var s passState
	for _, cmd := range p.commands {
		cmd(&s, r)
	}
}

type Queue struct {
	device *Device
}

func (q *Queue) WriteBuffer(buf gpu.Buffer, offset uint64, data []byte) {
	b := handle[*Buffer](buf, "buffer")
	if offset+uint64(len(data)) > uint64(len(b.data)) {
		panic(fmt.Sprintf("soft: write of %d bytes at %d overflows buffer %q of %d bytes", len(data), offset, b.label, len(b.data)))
	}
	copy(b.data[offset:], data)
}

func (q *Queue) WriteTexture(tex gpu.Texture, data []byte) {
	handle[*Texture](tex, "texture").write(data)
}

// Submit runs every recorded pass in order before returning.
func (q *Queue) Submit(buffers ...gpu.CommandBuffer) {
	for _, cb := range buffers {
		q.device.submits.Add(1)
		for _, p := range handle[*CommandBuffer](cb, "command buffer").passes {
			p.execute()
		}
	}
}
