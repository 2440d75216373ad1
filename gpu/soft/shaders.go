package soft

import (
	"github.com/tubereng/tuber/gpu"
)

// Shader names understood by the render package.
const (
	ShaderClear = "clear"
	ShaderMesh  = "mesh"
)

// ClearProgram covers the whole target with one triangle and writes the
// color held in the uniform at group 0, binding 0.
func ClearProgram() *Program {
	corners := [3][2]float32{{-1, -1}, {3, -1}, {-1, 3}}
	return &Program{
		Vertex: func(in *VertexInput) VertexOutput {
			c := corners[in.VertexIndex%3]
			return VertexOutput{Position: [4]float32{c[0], c[1], 0, 1}}
		},
		Fragment: func(in *FragmentInput) (gpu.Color, bool) {
			var buf [4]float32
			v := in.Bindings.Floats(0, 0, buf[:])
			if len(v) < 4 {
				return gpu.Black, true
			}
			return gpu.Color{R: float64(v[0]), G: float64(v[1]), B: float64(v[2]), A: float64(v[3])}, true
		},
	}
}

// MeshProgram draws vertices laid out as position (location 0), color (1),
// normal (2) and texture coordinates (3). Group 0 binding 0 holds the
// column-major model matrix; group 1 holds the material: texture (0),
// sampler (1) and tint (2).
func MeshProgram() *Program {
	return &Program{
		Varyings: 5,
		Vertex: func(in *VertexInput) VertexOutput {
			var m [16]float32
			mat := in.Bindings.Floats(0, 0, m[:])
			if len(mat) < 16 {
				m = identity
			}
			p := attr(in.Attributes, 0, 3)
			col := attr(in.Attributes, 1, 3)
			uv := attr(in.Attributes, 3, 2)
			return VertexOutput{
				Position: mulPoint(&m, p[0], p[1], p[2]),
				Varyings: []float32{col[0], col[1], col[2], uv[0], uv[1]},
			}
		},
		Fragment: func(in *FragmentInput) (gpu.Color, bool) {
			v := in.Varyings
			tex := in.Bindings.Sample(1, 0, 1, float64(v[3]), float64(v[4]))
			tint := gpu.White
			var buf [4]float32
			if t := in.Bindings.Floats(1, 2, buf[:]); len(t) == 4 {
				tint = gpu.Color{R: float64(t[0]), G: float64(t[1]), B: float64(t[2]), A: float64(t[3])}
			}
			return gpu.Color{
				R: float64(v[0]) * tex.R * tint.R,
				G: float64(v[1]) * tex.G * tint.G,
				B: float64(v[2]) * tex.B * tint.B,
				A: tex.A * tint.A,
			}, true
		},
	}
}

// Shaders returns the descriptors of every built-in program, keyed by name.
func Shaders() map[string]gpu.ShaderModuleDescriptor {
	return map[string]gpu.ShaderModuleDescriptor{
		ShaderClear: {Label: ShaderClear, Source: ClearProgram()},
		ShaderMesh:  {Label: ShaderMesh, Source: MeshProgram()},
	}
}

var identity = [16]float32{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 1, 0,
	0, 0, 0, 1,
}

func attr(attrs [][]float32, loc, n int) []float32 {
	if loc < len(attrs) && len(attrs[loc]) >= n {
		return attrs[loc]
	}
	return make([]float32, n)
}

func mulPoint(m *[16]float32, x, y, z float32) [4]float32 {
	return [4]float32{
		m[0]*x + m[4]*y + m[8]*z + m[12],
		m[1]*x + m[5]*y + m[9]*z + m[13],
		m[2]*x + m[6]*y + m[10]*z + m[14],
		m[3]*x + m[7]*y + m[11]*z + m[15],
	}
}
