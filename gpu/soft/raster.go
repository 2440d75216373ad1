package soft

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/tubereng/tuber/gpu"
)

type rasterizer struct {
	device *Device
	target *Texture
	depth  *Texture
}

type clipVertex struct {
	pos      [4]float32
	varyings []float32
	// screen space position, depth and 1/w
	sx, sy, sz, invW float64
}

func readIndices(buf *Buffer, format gpu.IndexFormat, first, count uint32, base int32) []uint32 {
	size := uint32(2)
	if format == gpu.IndexUint32 {
		size = 4
	}
	end := uint64(first+count) * uint64(size)
	if end > uint64(len(buf.data)) {
		panic(fmt.Sprintf("soft: index range [%d, %d) out of buffer %q", first, first+count, buf.label))
	}
	out := make([]uint32, count)
	for i := range count {
		off := (first + i) * size
		var idx uint32
		if size == 2 {
			idx = uint32(binary.LittleEndian.Uint16(buf.data[off:]))
		} else {
			idx = binary.LittleEndian.Uint32(buf.data[off:])
		}
		out[i] = uint32(int64(idx) + int64(base))
	}
	return out
}

func (r *rasterizer) fetch(s *passState, index uint32) [][]float32 {
	desc := s.pipeline.desc
	var attrs [][]float32
	for slot, layout := range desc.Buffers {
		buf := s.vertexBuffers[slot]
		if buf == nil {
			panic(fmt.Sprintf("soft: pipeline %q: no vertex buffer in slot %d", desc.Label, slot))
		}
		base := uint64(index) * layout.Stride
		for _, a := range layout.Attributes {
			n := a.Format.Components()
			off := base + a.Offset
			if off+uint64(n*4) > uint64(len(buf.data)) {
				panic(fmt.Sprintf("soft: vertex %d out of range of buffer %q", index, buf.label))
			}
			v := make([]float32, n)
			for i := range n {
				v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf.data[off+uint64(i*4):]))
			}
			for int(a.Location) >= len(attrs) {
				attrs = append(attrs, nil)
			}
			attrs[a.Location] = v
		}
	}
	return attrs
}

func (r *rasterizer) draw(s *passState, indices []uint32, instance uint32) {
	if s.pipeline == nil {
		panic("soft: draw without a pipeline")
	}
	prog := s.pipeline.program
	cache := make(map[uint32]*clipVertex, len(indices))
	shade := func(idx uint32) *clipVertex {
		if v, ok := cache[idx]; ok {
			return v
		}
		out := prog.Vertex(&VertexInput{
			VertexIndex:   idx,
			InstanceIndex: instance,
			Attributes:    r.fetch(s, idx),
			Bindings:      &s.bindings,
		})
		v := r.project(out)
		cache[idx] = v
		return v
	}

	switch s.pipeline.desc.Topology {
	case gpu.TriangleList:
		for i := 0; i+2 < len(indices); i += 3 {
			r.triangle(s, shade(indices[i]), shade(indices[i+1]), shade(indices[i+2]))
		}
	case gpu.TriangleStrip:
		for i := 0; i+2 < len(indices); i++ {
			a, b, c := shade(indices[i]), shade(indices[i+1]), shade(indices[i+2])
			if i%2 == 1 {
				a, b = b, a
			}
			r.triangle(s, a, b, c)
		}
	case gpu.LineList:
		for i := 0; i+1 < len(indices); i += 2 {
			r.line(s, shade(indices[i]), shade(indices[i+1]))
		}
	case gpu.PointList:
		for _, idx := range indices {
			r.point(s, shade(idx))
		}
	}
}

func (r *rasterizer) project(out VertexOutput) *clipVertex {
	v := &clipVertex{pos: out.Position, varyings: out.Varyings}
	w := float64(out.Position[3])
	if w <= 0 {
		return v
	}
	nx := float64(out.Position[0]) / w
	ny := float64(out.Position[1]) / w
	v.sz = float64(out.Position[2]) / w
	v.sx = (nx + 1) * 0.5 * float64(r.target.size.Width)
	v.sy = (1 - ny) * 0.5 * float64(r.target.size.Height)
	v.invW = 1 / w
	return v
}

func edge(ax, ay, bx, by, px, py float64) float64 {
	return (bx-ax)*(py-ay) - (by-ay)*(px-ax)
}

func (r *rasterizer) triangle(s *passState, a, b, c *clipVertex) {
	if a.invW == 0 || b.invW == 0 || c.invW == 0 {
		return
	}
	area := edge(a.sx, a.sy, b.sx, b.sy, c.sx, c.sy)
	if area == 0 {
		return
	}
	// Screen y points down, so counter-clockwise in NDC has negative area here.
	ccw := area < 0
	desc := s.pipeline.desc
	front := ccw == (desc.FrontFace == gpu.FrontFaceCCW)
	switch desc.CullMode {
	case gpu.CullBack:
		if !front {
			return
		}
	case gpu.CullFront:
		if front {
			return
		}
	}

	w, h := int(r.target.size.Width), int(r.target.size.Height)
	minX := max(0, int(math.Floor(min(a.sx, b.sx, c.sx))))
	maxX := min(w-1, int(math.Ceil(max(a.sx, b.sx, c.sx))))
	minY := max(0, int(math.Floor(min(a.sy, b.sy, c.sy))))
	maxY := min(h-1, int(math.Ceil(max(a.sy, b.sy, c.sy))))

	varyings := make([]float32, s.pipeline.program.Varyings)
	for py := minY; py <= maxY; py++ {
		for px := minX; px <= maxX; px++ {
			cx, cy := float64(px)+0.5, float64(py)+0.5
			w0 := edge(b.sx, b.sy, c.sx, c.sy, cx, cy) / area
			w1 := edge(c.sx, c.sy, a.sx, a.sy, cx, cy) / area
			w2 := edge(a.sx, a.sy, b.sx, b.sy, cx, cy) / area
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}
			z := w0*a.sz + w1*b.sz + w2*c.sz
			pw0, pw1, pw2 := w0*a.invW, w1*b.invW, w2*c.invW
			norm := pw0 + pw1 + pw2
			for k := range varyings {
				varyings[k] = float32((pw0*at(a.varyings, k) + pw1*at(b.varyings, k) + pw2*at(c.varyings, k)) / norm)
			}
			r.fragment(s, px, py, z, front, varyings)
		}
	}
}

func (r *rasterizer) line(s *passState, a, b *clipVertex) {
	if a.invW == 0 || b.invW == 0 {
		return
	}
	dx, dy := b.sx-a.sx, b.sy-a.sy
	steps := int(math.Ceil(max(math.Abs(dx), math.Abs(dy))))
	varyings := make([]float32, s.pipeline.program.Varyings)
	for i := 0; i <= steps; i++ {
		t := 0.0
		if steps > 0 {
			t = float64(i) / float64(steps)
		}
		px, py := int(math.Floor(a.sx+dx*t)), int(math.Floor(a.sy+dy*t))
		if !r.target.inBounds(px, py) {
			continue
		}
		for k := range varyings {
			varyings[k] = float32(at(a.varyings, k)*(1-t) + at(b.varyings, k)*t)
		}
		r.fragment(s, px, py, a.sz*(1-t)+b.sz*t, true, varyings)
	}
}

func (r *rasterizer) point(s *passState, v *clipVertex) {
	if v.invW == 0 {
		return
	}
	px, py := int(math.Floor(v.sx)), int(math.Floor(v.sy))
	if !r.target.inBounds(px, py) {
		return
	}
	varyings := make([]float32, s.pipeline.program.Varyings)
	for k := range varyings {
		varyings[k] = float32(at(v.varyings, k))
	}
	r.fragment(s, px, py, v.sz, true, varyings)
}

func at(v []float32, i int) float64 {
	if i < len(v) {
		return float64(v[i])
	}
	return 0
}

func (r *rasterizer) fragment(s *passState, x, y int, z float64, front bool, varyings []float32) {
	if z < 0 || z > 1 {
		return
	}
	desc := s.pipeline.desc
	ds := desc.DepthStencil
	useDepth := ds != nil && r.depth != nil
	if useDepth && !depthPasses(ds.DepthCompare, float32(z), r.depth.Depth(x, y)) {
		return
	}
	c, keep := s.pipeline.program.Fragment(&FragmentInput{
		X:        x,
		Y:        y,
		Depth:    float32(z),
		Front:    front,
		Varyings: varyings,
		Bindings: &s.bindings,
	})
	if !keep {
		return
	}
	r.device.fragments.Add(1)
	r.target.set(x, y, blend(c, r.target.At(x, y), desc.Blend))
	if useDepth && ds.DepthWrite {
		r.depth.setDepth(x, y, float32(z))
	}
}

func depthPasses(fn gpu.CompareFunction, z, stored float32) bool {
	switch fn {
	case gpu.CompareLess:
		return z < stored
	case gpu.CompareLessEqual:
		return z <= stored
	case gpu.CompareGreater:
		return z > stored
	default:
		return true
	}
}

func blend(src, dst gpu.Color, state gpu.BlendState) gpu.Color {
	if state == (gpu.BlendState{}) {
		state = gpu.BlendReplace
	}
	mix := func(s, d float64, c gpu.BlendComponent) float64 {
		sf := factor(c.Src, src, dst) * s
		df := factor(c.Dst, src, dst) * d
		if c.Op == gpu.BlendOpSubtract {
			return clamp(sf-df, 0, 1)
		}
		return clamp(sf+df, 0, 1)
	}
	return gpu.Color{
		R: mix(src.R, dst.R, state.Color),
		G: mix(src.G, dst.G, state.Color),
		B: mix(src.B, dst.B, state.Color),
		A: mix(src.A, dst.A, state.Alpha),
	}
}

func factor(f gpu.BlendFactor, src, dst gpu.Color) float64 {
	switch f {
	case gpu.BlendOne:
		return 1
	case gpu.BlendSrcAlpha:
		return src.A
	case gpu.BlendOneMinusSrcAlpha:
		return 1 - src.A
	case gpu.BlendDstAlpha:
		return dst.A
	case gpu.BlendOneMinusDstAlpha:
		return 1 - dst.A
	default:
		return 0
	}
}
