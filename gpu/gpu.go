// Package gpu is the contract between the renderer and a graphics backend.
//
// All handles are opaque. Resource creation goes through a Device, commands
// are recorded into a CommandEncoder and run by Queue.Submit, which blocks
// until the work is complete from the caller's point of view.
package gpu

import "errors"

var (
	ErrSurfaceLost     = errors.New("gpu: surface lost")
	ErrSurfaceOutdated = errors.New("gpu: surface outdated")
	ErrUnconfigured    = errors.New("gpu: surface not configured")
)

type Device interface {
	CreateTexture(desc TextureDescriptor) Texture
	CreateBuffer(desc BufferDescriptor) Buffer
	CreateSampler(desc SamplerDescriptor) Sampler
	CreateBindGroupLayout(desc BindGroupLayoutDescriptor) BindGroupLayout
	CreateBindGroup(desc BindGroupDescriptor) BindGroup
	CreateShaderModule(desc ShaderModuleDescriptor) (ShaderModule, error)
	CreateRenderPipeline(desc RenderPipelineDescriptor) (RenderPipeline, error)
	CreateCommandEncoder(label string) CommandEncoder
}

type Queue interface {
	WriteBuffer(buf Buffer, offset uint64, data []byte)
	// WriteTexture uploads tightly packed texel data covering the whole
	// texture: RGBA8 for color formats, little-endian float32 for float
	// formats.
	WriteTexture(tex Texture, data []byte)
	Submit(buffers ...CommandBuffer)
}

type Surface interface {
	Configure(device Device, config SurfaceConfiguration)
	Configuration() SurfaceConfiguration
	CurrentTexture() (SurfaceTexture, error)
}

type SurfaceTexture interface {
	Texture() Texture
	Present()
}

type Texture interface {
	Label() string
	Size() Extent
	Format() TextureFormat
	CreateView() TextureView
	Destroy()
}

type TextureView interface {
	Texture() Texture
}

type Buffer interface {
	Label() string
	Size() uint64
	Usage() BufferUsage
	Destroy()
}

type Sampler interface {
	Label() string
}

type BindGroupLayout interface {
	Label() string
}

type BindGroup interface {
	Label() string
	Layout() BindGroupLayout
}

type ShaderModule interface {
	Label() string
}

type RenderPipeline interface {
	Label() string
}

type CommandEncoder interface {
	BeginRenderPass(desc RenderPassDescriptor) RenderPass
	Finish() CommandBuffer
}

type CommandBuffer interface {
	Label() string
}

type RenderPass interface {
	SetPipeline(p RenderPipeline)
	SetBindGroup(index uint32, group BindGroup, dynamicOffsets ...uint32)
	SetVertexBuffer(slot uint32, buf Buffer)
	SetIndexBuffer(buf Buffer, format IndexFormat)
	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)
	DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32)
	End()
}
