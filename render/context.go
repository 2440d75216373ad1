package render

import (
	"fmt"
	"maps"
	"slices"

	"go.uber.org/zap"

	"github.com/tubereng/tuber/gpu"
)

// Context owns the GPU objects shared by every frame: shader modules, the
// pipeline cache, uploaded buffers, the draw list and the texture and
// material caches.
type Context struct {
	Device gpu.Device
	Queue  gpu.Queue
	Config gpu.SurfaceConfiguration

	Shaders   map[string]gpu.ShaderModule
	Pipelines map[string]gpu.RenderPipeline

	VertexBuffers []gpu.Buffer
	IndexBuffers  []gpu.Buffer
	DrawCommands  []DrawCommand

	Textures  *TextureCache
	Materials *MaterialCache

	Log *zap.Logger

	pipelineBuilds int
}

func NewContext(device gpu.Device, queue gpu.Queue, config gpu.SurfaceConfiguration, log *zap.Logger) *Context {
	if log == nil {
		log = zap.NewNop()
	}
	return &Context{
		Device:    device,
		Queue:     queue,
		Config:    config,
		Shaders:   make(map[string]gpu.ShaderModule),
		Pipelines: make(map[string]gpu.RenderPipeline),
		Textures:  NewTextureCache(),
		Materials: NewMaterialCache(),
		Log:       log,
	}
}

// LoadShaders creates a shader module for every descriptor, keyed by name.
func (c *Context) LoadShaders(shaders map[string]gpu.ShaderModuleDescriptor) error {
	for _, name := range slices.Sorted(maps.Keys(shaders)) {
		mod, err := c.Device.CreateShaderModule(shaders[name])
		if err != nil {
			return fmt.Errorf("load shader %q: %w", name, err)
		}
		c.Shaders[name] = mod
		c.Log.Debug("loaded shader module", zap.String("shader", name))
	}
	return nil
}

// PipelineBuilds returns how many pipelines the render graph has created
// through this context.
func (c *Context) PipelineBuilds() int { return c.pipelineBuilds }

// UploadVertices creates a vertex buffer and returns its index.
func (c *Context) UploadVertices(label string, vertices []Vertex) int {
	c.VertexBuffers = append(c.VertexBuffers, c.Device.CreateBuffer(gpu.BufferDescriptor{
		Label:    label,
		Usage:    gpu.BufferUsageVertex | gpu.BufferUsageCopyDst,
		Contents: EncodeVertices(vertices),
	}))
	return len(c.VertexBuffers) - 1
}

// UploadIndices creates an index buffer and returns its index.
func (c *Context) UploadIndices(label string, indices []uint16) int {
	c.IndexBuffers = append(c.IndexBuffers, c.Device.CreateBuffer(gpu.BufferDescriptor{
		Label:    label,
		Usage:    gpu.BufferUsageIndex | gpu.BufferUsageCopyDst,
		Contents: EncodeIndices(indices),
	}))
	return len(c.IndexBuffers) - 1
}

// ReplaceVertices swaps the vertex buffer at index for freshly uploaded data.
func (c *Context) ReplaceVertices(index int, label string, vertices []Vertex) {
	data := EncodeVertices(vertices)
	if old := c.VertexBuffers[index]; old.Size() == uint64(len(data)) {
		c.Queue.WriteBuffer(old, 0, data)
		return
	}
	c.VertexBuffers[index].Destroy()
	c.VertexBuffers[index] = c.Device.CreateBuffer(gpu.BufferDescriptor{
		Label:    label,
		Usage:    gpu.BufferUsageVertex | gpu.BufferUsageCopyDst,
		Contents: data,
	})
}

// ReplaceIndices swaps the index buffer at index for freshly uploaded data.
func (c *Context) ReplaceIndices(index int, label string, indices []uint16) {
	data := EncodeIndices(indices)
	if old := c.IndexBuffers[index]; old.Size() == uint64(len(data)) {
		c.Queue.WriteBuffer(old, 0, data)
		return
	}
	c.IndexBuffers[index].Destroy()
	c.IndexBuffers[index] = c.Device.CreateBuffer(gpu.BufferDescriptor{
		Label:    label,
		Usage:    gpu.BufferUsageIndex | gpu.BufferUsageCopyDst,
		Contents: data,
	})
}
