package soft

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/tubereng/tuber/gpu"
)

// Texture stores texels as float32: four channels for color formats, one
// for depth.
type Texture struct {
	label     string
	size      gpu.Extent
	format    gpu.TextureFormat
	usage     gpu.TextureUsage
	pix       []float32
	destroyed bool
}

func newTexture(desc gpu.TextureDescriptor) *Texture {
	t := &Texture{label: desc.Label, size: desc.Size, format: desc.Format, usage: desc.Usage}
	t.pix = make([]float32, int(desc.Size.Width)*int(desc.Size.Height)*t.channels())
	if desc.Format.IsDepth() {
		t.clearDepth(1)
	}
	return t
}

func (t *Texture) Label() string               { return t.label }
func (t *Texture) Size() gpu.Extent            { return t.size }
func (t *Texture) Format() gpu.TextureFormat   { return t.format }
func (t *Texture) CreateView() gpu.TextureView { return &TextureView{texture: t} }
func (t *Texture) Destroy()                    { t.destroyed = true; t.pix = nil }

func (t *Texture) channels() int {
	if t.format.IsDepth() {
		return 1
	}
	return 4
}

func (t *Texture) inBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < int(t.size.Width) && y < int(t.size.Height)
}

func (t *Texture) offset(x, y int) int {
	return (y*int(t.size.Width) + x) * t.channels()
}

// At returns the color texel at (x, y). Out of range reads return
// transparent black.
func (t *Texture) At(x, y int) gpu.Color {
	if !t.inBounds(x, y) || t.format.IsDepth() {
		return gpu.Transparent
	}
	o := t.offset(x, y)
	return gpu.Color{R: float64(t.pix[o]), G: float64(t.pix[o+1]), B: float64(t.pix[o+2]), A: float64(t.pix[o+3])}
}

// Depth returns the depth texel at (x, y).
func (t *Texture) Depth(x, y int) float32 {
	if !t.inBounds(x, y) || !t.format.IsDepth() {
		return 1
	}
	return t.pix[t.offset(x, y)]
}

func (t *Texture) set(x, y int, c gpu.Color) {
	o := t.offset(x, y)
	t.pix[o] = float32(c.R)
	t.pix[o+1] = float32(c.G)
	t.pix[o+2] = float32(c.B)
	t.pix[o+3] = float32(c.A)
}

func (t *Texture) setDepth(x, y int, z float32) {
	t.pix[t.offset(x, y)] = z
}

func (t *Texture) clear(c gpu.Color) {
	for o := 0; o+3 < len(t.pix); o += 4 {
		t.pix[o] = float32(c.R)
		t.pix[o+1] = float32(c.G)
		t.pix[o+2] = float32(c.B)
		t.pix[o+3] = float32(c.A)
	}
}

func (t *Texture) clearDepth(z float32) {
	for i := range t.pix {
		t.pix[i] = z
	}
}

func (t *Texture) write(data []byte) {
	n := int(t.size.Width) * int(t.size.Height) * t.channels()
	switch t.format {
	case gpu.FormatRGBA8UnormSrgb, gpu.FormatBGRA8UnormSrgb:
		if len(data) < n {
			panic(fmt.Sprintf("soft: texture %q: write of %d bytes, need %d", t.label, len(data), n))
		}
		for i := range n {
			t.pix[i] = float32(data[i]) / 255
		}
	default:
		if len(data) < n*4 {
			panic(fmt.Sprintf("soft: texture %q: write of %d bytes, need %d", t.label, len(data), n*4))
		}
		for i := range n {
			t.pix[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
		}
	}
}

// sample reads the texture at normalized coordinates, clamping to the edge.
func (t *Texture) sample(u, v float64, filter gpu.FilterMode) gpu.Color {
	w, h := float64(t.size.Width), float64(t.size.Height)
	if w == 0 || h == 0 {
		return gpu.Transparent
	}
	x := clamp(u, 0, 1)*w - 0.5
	y := clamp(v, 0, 1)*h - 0.5
	if filter == gpu.FilterNearest {
		return t.At(clampInt(int(math.Round(x)), int(w)-1), clampInt(int(math.Round(y)), int(h)-1))
	}
	x0, y0 := math.Floor(x), math.Floor(y)
	fx, fy := x-x0, y-y0
	ix0, iy0 := clampInt(int(x0), int(w)-1), clampInt(int(y0), int(h)-1)
	ix1, iy1 := clampInt(int(x0)+1, int(w)-1), clampInt(int(y0)+1, int(h)-1)
	top := lerpColor(t.At(ix0, iy0), t.At(ix1, iy0), fx)
	bottom := lerpColor(t.At(ix0, iy1), t.At(ix1, iy1), fx)
	return lerpColor(top, bottom, fy)
}

// Image converts the color texels to an 8-bit image, reusing dst when it has
// the right bounds.
func (t *Texture) Image(dst *image.NRGBA) *image.NRGBA {
	w, h := int(t.size.Width), int(t.size.Height)
	if dst == nil || dst.Bounds().Dx() != w || dst.Bounds().Dy() != h {
		dst = image.NewNRGBA(image.Rect(0, 0, w, h))
	}
	for y := range h {
		for x := range w {
			dst.SetNRGBA(x, y, toNRGBA(t.At(x, y)))
		}
	}
	return dst
}

func toNRGBA(c gpu.Color) color.NRGBA {
	return color.NRGBA{R: to8(c.R), G: to8(c.G), B: to8(c.B), A: to8(c.A)}
}

func to8(v float64) uint8 {
	return uint8(math.Round(clamp(v, 0, 1) * 255))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func clampInt(v, hi int) int {
	return max(0, min(v, hi))
}

func lerpColor(a, b gpu.Color, t float64) gpu.Color {
	return gpu.Color{
		R: a.R + (b.R-a.R)*t,
		G: a.G + (b.G-a.G)*t,
		B: a.B + (b.B-a.B)*t,
		A: a.A + (b.A-a.A)*t,
	}
}

type TextureView struct {
	texture *Texture
}

func (v *TextureView) Texture() gpu.Texture { return v.texture }
