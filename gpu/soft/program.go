package soft

import (
	"encoding/binary"
	"math"

	"github.com/tubereng/tuber/gpu"
)

// Program is the shader source accepted by Device.CreateShaderModule.
type Program struct {
	// Vertex transforms one vertex into clip space.
	Vertex func(in *VertexInput) VertexOutput
	// Fragment shades one covered pixel. Returning false discards it.
	Fragment func(in *FragmentInput) (gpu.Color, bool)
	// Varyings is the number of values Vertex writes to VertexOutput.Varyings.
	Varyings int
}

type VertexInput struct {
	VertexIndex   uint32
	InstanceIndex uint32
	// Attributes holds decoded attribute values indexed by shader location.
	Attributes [][]float32
	Bindings   *Bindings
}

type VertexOutput struct {
	Position [4]float32
	Varyings []float32
}

type FragmentInput struct {
	X, Y     int
	Depth    float32
	Front    bool
	Varyings []float32
	Bindings *Bindings
}

const maxBindGroups = 8

type boundGroup struct {
	group   *BindGroup
	offsets []uint32
}

// Bindings gives shaders access to the bind groups set on the pass.
type Bindings struct {
	groups [maxBindGroups]boundGroup
}

func (b *Bindings) entry(group, binding uint32) (gpu.BindGroupEntry, uint64, bool) {
	if group >= maxBindGroups || b.groups[group].group == nil {
		return gpu.BindGroupEntry{}, 0, false
	}
	bg := b.groups[group]
	e, ok := bg.group.entries[binding]
	if !ok {
		return e, 0, false
	}
	var offset uint64
	dyn := 0
	for _, le := range bg.group.layout.entries {
		if !le.HasDynamicOffset {
			continue
		}
		if le.Binding == binding && dyn < len(bg.offsets) {
			offset = uint64(bg.offsets[dyn])
		}
		dyn++
	}
	return e, offset, true
}

// Uniform returns the bytes of the uniform buffer bound at (group, binding),
// with any dynamic offset applied.
func (b *Bindings) Uniform(group, binding uint32) []byte {
	e, offset, ok := b.entry(group, binding)
	if !ok || e.Buffer == nil {
		return nil
	}
	data := handle[*Buffer](e.Buffer, "buffer").data
	if offset >= uint64(len(data)) {
		return nil
	}
	data = data[offset:]
	if e.Size > 0 && e.Size < uint64(len(data)) {
		data = data[:e.Size]
	}
	return data
}

// Floats decodes the uniform at (group, binding) into dst as little-endian
// float32 values and returns the filled prefix.
func (b *Bindings) Floats(group, binding uint32, dst []float32) []float32 {
	data := b.Uniform(group, binding)
	n := min(len(dst), len(data)/4)
	for i := range n {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return dst[:n]
}

// Texture returns the texture bound at (group, binding).
func (b *Bindings) Texture(group, binding uint32) *Texture {
	e, _, ok := b.entry(group, binding)
	if !ok || e.Texture == nil {
		return nil
	}
	return handle[*TextureView](e.Texture, "texture view").texture
}

// Sample samples the texture at (group, texture) with the sampler at
// (group, sampler). Missing bindings sample as opaque white.
func (b *Bindings) Sample(group, texture, sampler uint32, u, v float64) gpu.Color {
	t := b.Texture(group, texture)
	if t == nil {
		return gpu.White
	}
	filter := gpu.FilterNearest
	if e, _, ok := b.entry(group, sampler); ok && e.Sampler != nil {
		filter = handle[*Sampler](e.Sampler, "sampler").mag
	}
	return t.sample(u, v, filter)
}
