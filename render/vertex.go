package render

import (
	"encoding/binary"
	"math"

	"github.com/tubereng/tuber/gpu"
)

// Vertex is the layout every mesh pass uploads: position, color, normal and
// texture coordinates, as tightly packed float32.
type Vertex struct {
	Position [3]float32
	Color    [3]float32
	Normal   [3]float32
	UV       [2]float32
}

// VertexStride is the size of one encoded Vertex in bytes.
const VertexStride = 11 * 4

// VertexLayout describes Vertex to a pipeline.
func VertexLayout() gpu.VertexBufferLayout {
	return gpu.VertexBufferLayout{
		Stride: VertexStride,
		Attributes: []gpu.VertexAttribute{
			{Format: gpu.VertexFloat32x3, Offset: 0, Location: 0},
			{Format: gpu.VertexFloat32x3, Offset: 12, Location: 1},
			{Format: gpu.VertexFloat32x3, Offset: 24, Location: 2},
			{Format: gpu.VertexFloat32x2, Offset: 36, Location: 3},
		},
	}
}

// EncodeVertices packs vertices little-endian for upload.
func EncodeVertices(vertices []Vertex) []byte {
	out := make([]byte, 0, len(vertices)*VertexStride)
	for _, v := range vertices {
		out = appendFloats(out, v.Position[:]...)
		out = appendFloats(out, v.Color[:]...)
		out = appendFloats(out, v.Normal[:]...)
		out = appendFloats(out, v.UV[:]...)
	}
	return out
}

// EncodeIndices packs 16-bit indices for upload.
func EncodeIndices(indices []uint16) []byte {
	out := make([]byte, 0, len(indices)*2)
	for _, i := range indices {
		out = binary.LittleEndian.AppendUint16(out, i)
	}
	return out
}

func appendFloats(dst []byte, values ...float32) []byte {
	for _, f := range values {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(f))
	}
	return dst
}

// Mat4 is a column-major 4x4 matrix.
type Mat4 [16]float32

func Identity() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

func Translation(x, y, z float32) Mat4 {
	m := Identity()
	m[12], m[13], m[14] = x, y, z
	return m
}

func Scaling(x, y, z float32) Mat4 {
	m := Identity()
	m[0], m[5], m[10] = x, y, z
	return m
}

// RotationZ rotates counter-clockwise by angle radians around the z axis.
func RotationZ(angle float32) Mat4 {
	s, c := math.Sincos(float64(angle))
	m := Identity()
	m[0], m[1] = float32(c), float32(s)
	m[4], m[5] = float32(-s), float32(c)
	return m
}

// Mul returns m * n.
func (m Mat4) Mul(n Mat4) Mat4 {
	var out Mat4
	for col := range 4 {
		for row := range 4 {
			var sum float32
			for k := range 4 {
				sum += m[k*4+row] * n[col*4+k]
			}
			out[col*4+row] = sum
		}
	}
	return out
}

func (m Mat4) bytes() []byte {
	return appendFloats(make([]byte, 0, 64), m[:]...)
}

func colorBytes(c gpu.Color) []byte {
	return appendFloats(make([]byte, 0, 16), float32(c.R), float32(c.G), float32(c.B), float32(c.A))
}
