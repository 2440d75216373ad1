package render

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/png"

	"github.com/kamstrup/intmap"

	"github.com/tubereng/tuber/asset"
	"github.com/tubereng/tuber/gpu"
)

// TextureAsset is a decoded image ready to upload.
type TextureAsset struct {
	Image *image.NRGBA
}

// TextureLoader decodes PNG files into TextureAssets.
type TextureLoader struct{}

func (TextureLoader) Load(data []byte) (TextureAsset, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return TextureAsset{}, fmt.Errorf("%w: image: %w", asset.ErrDecodeFailed, err)
	}
	if nrgba, ok := img.(*image.NRGBA); ok {
		return TextureAsset{Image: nrgba}, nil
	}
	b := img.Bounds()
	nrgba := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(nrgba, nrgba.Bounds(), img, b.Min, draw.Src)
	return TextureAsset{Image: nrgba}, nil
}

// DepthBufferHandle refers to a depth texture owned by a TextureCache.
type DepthBufferHandle int

// RenderTextureHandle refers to a color render target owned by a
// TextureCache.
type RenderTextureHandle int

type cachedTexture struct {
	label    string
	format   gpu.TextureFormat
	usage    gpu.TextureUsage
	texture  gpu.Texture
	view     gpu.TextureView
	onResize bool
}

func (t *cachedTexture) create(device gpu.Device, width, height uint32) {
	if t.texture != nil {
		t.texture.Destroy()
	}
	t.texture = device.CreateTexture(gpu.TextureDescriptor{
		Label:  t.label,
		Size:   gpu.Extent{Width: width, Height: height},
		Format: t.format,
		Usage:  t.usage,
	})
	t.view = t.texture.CreateView()
}

// TextureCache holds depth buffers, size-dependent render textures and
// textures uploaded from assets.
type TextureCache struct {
	depth  []*cachedTexture
	render []*cachedTexture
	assets *intmap.Map[uint32, gpu.Texture]
	white  gpu.Texture
}

func NewTextureCache() *TextureCache {
	return &TextureCache{assets: intmap.New[uint32, gpu.Texture](16)}
}

// CreateDepthTexture creates a Depth32Float texture. When recreateOnResize is
// set, OnResize replaces it with one matching the new window size.
func (c *TextureCache) CreateDepthTexture(device gpu.Device, label string, width, height uint32, recreateOnResize bool) DepthBufferHandle {
	t := &cachedTexture{
		label:    label,
		format:   gpu.FormatDepth32Float,
		usage:    gpu.TextureUsageRenderAttachment | gpu.TextureUsageTextureBinding,
		onResize: recreateOnResize,
	}
	t.create(device, width, height)
	c.depth = append(c.depth, t)
	return DepthBufferHandle(len(c.depth) - 1)
}

// DepthTexture returns the current view of a depth buffer.
func (c *TextureCache) DepthTexture(h DepthBufferHandle) gpu.TextureView {
	return c.depth[h].view
}

// CreateRenderTexture creates a color texture usable both as a render target
// and as a shader input.
func (c *TextureCache) CreateRenderTexture(device gpu.Device, label string, format gpu.TextureFormat, width, height uint32, recreateOnResize bool) RenderTextureHandle {
	t := &cachedTexture{
		label:    label,
		format:   format,
		usage:    gpu.TextureUsageRenderAttachment | gpu.TextureUsageTextureBinding,
		onResize: recreateOnResize,
	}
	t.create(device, width, height)
	c.render = append(c.render, t)
	return RenderTextureHandle(len(c.render) - 1)
}

func (c *TextureCache) RenderTexture(h RenderTextureHandle) gpu.TextureView {
	return c.render[h].view
}

// OnResize recreates every texture registered as size-dependent.
func (c *TextureCache) OnResize(device gpu.Device, width, height uint32) {
	for _, list := range [][]*cachedTexture{c.depth, c.render} {
		for _, t := range list {
			if t.onResize {
				t.create(device, width, height)
			}
		}
	}
}

func (c *TextureCache) Has(h asset.Handle[TextureAsset]) bool {
	return c.assets.Has(h.Id())
}

func (c *TextureCache) Get(h asset.Handle[TextureAsset]) (gpu.Texture, bool) {
	return c.assets.Get(h.Id())
}

// LoadToVRAM uploads a texture asset and caches it under its handle.
func (c *TextureCache) LoadToVRAM(h asset.Handle[TextureAsset], tex TextureAsset, device gpu.Device, queue gpu.Queue) gpu.Texture {
	b := tex.Image.Bounds()
	t := device.CreateTexture(gpu.TextureDescriptor{
		Label:  h.String(),
		Size:   gpu.Extent{Width: uint32(b.Dx()), Height: uint32(b.Dy())},
		Format: gpu.FormatRGBA8UnormSrgb,
		Usage:  gpu.TextureUsageTextureBinding | gpu.TextureUsageCopyDst,
	})
	queue.WriteTexture(t, packedPixels(tex.Image))
	c.assets.Put(h.Id(), t)
	return t
}

// White returns a shared 1x1 opaque white texture.
func (c *TextureCache) White(device gpu.Device, queue gpu.Queue) gpu.Texture {
	if c.white == nil {
		c.white = device.CreateTexture(gpu.TextureDescriptor{
			Label:  "white",
			Size:   gpu.Extent{Width: 1, Height: 1},
			Format: gpu.FormatRGBA8UnormSrgb,
			Usage:  gpu.TextureUsageTextureBinding | gpu.TextureUsageCopyDst,
		})
		queue.WriteTexture(c.white, []byte{255, 255, 255, 255})
	}
	return c.white
}

func packedPixels(img *image.NRGBA) []byte {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if img.Stride == w*4 {
		return img.Pix[:w*h*4]
	}
	out := make([]byte, 0, w*h*4)
	for y := range h {
		out = append(out, img.Pix[y*img.Stride:y*img.Stride+w*4]...)
	}
	return out
}

var ErrTextureNotFound = errors.New("render: texture asset not found")
