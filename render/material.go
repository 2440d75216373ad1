package render

import (
	"errors"
	"fmt"

	"github.com/kamstrup/intmap"

	"github.com/tubereng/tuber/asset"
	"github.com/tubereng/tuber/gpu"
)

var ErrMaterialNotFound = errors.New("render: material asset not found")

// MaterialAsset is the on-disk material description, usually a YAML file.
type MaterialAsset struct {
	// Texture is an asset path to a PNG; empty means plain white.
	Texture string `yaml:"texture" toml:"texture"`
	// Color tints the texture; the zero value means opaque white.
	Color [4]float32 `yaml:"color" toml:"color"`
}

func (m MaterialAsset) tint() gpu.Color {
	if m.Color == ([4]float32{}) {
		return gpu.White
	}
	return gpu.Color{R: float64(m.Color[0]), G: float64(m.Color[1]), B: float64(m.Color[2]), A: float64(m.Color[3])}
}

// Material is a material uploaded to the GPU.
type Material struct {
	BindGroup gpu.BindGroup
	tint      gpu.Buffer
}

// Bind sets the material's bind group at index.
func (m *Material) Bind(index uint32, pass gpu.RenderPass) {
	pass.SetBindGroup(index, m.BindGroup)
}

// NewMaterialBindGroupLayout returns the layout materials are bound with:
// texture, sampler and tint uniform.
func NewMaterialBindGroupLayout(device gpu.Device) gpu.BindGroupLayout {
	return device.CreateBindGroupLayout(gpu.BindGroupLayoutDescriptor{
		Label: "material_bind_group_layout",
		Entries: []gpu.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gpu.StageFragment, Type: gpu.BindingTexture},
			{Binding: 1, Visibility: gpu.StageFragment, Type: gpu.BindingSampler},
			{Binding: 2, Visibility: gpu.StageFragment, Type: gpu.BindingUniformBuffer},
		},
	})
}

// NewMaterial creates a material from an uploaded texture and a tint.
func NewMaterial(device gpu.Device, layout gpu.BindGroupLayout, label string, texture gpu.Texture, tint gpu.Color) *Material {
	sampler := device.CreateSampler(gpu.SamplerDescriptor{
		Label:     label + "_sampler",
		MagFilter: gpu.FilterNearest,
		MinFilter: gpu.FilterNearest,
	})
	buf := device.CreateBuffer(gpu.BufferDescriptor{
		Label:    label + "_tint",
		Usage:    gpu.BufferUsageUniform | gpu.BufferUsageCopyDst,
		Contents: colorBytes(tint),
	})
	return &Material{
		tint: buf,
		BindGroup: device.CreateBindGroup(gpu.BindGroupDescriptor{
			Label:  label,
			Layout: layout,
			Entries: []gpu.BindGroupEntry{
				{Binding: 0, Texture: texture.CreateView()},
				{Binding: 1, Sampler: sampler},
				{Binding: 2, Buffer: buf},
			},
		}),
	}
}

// SetTint rewrites the material's tint uniform.
func (m *Material) SetTint(queue gpu.Queue, tint gpu.Color) {
	queue.WriteBuffer(m.tint, 0, colorBytes(tint))
}

// MaterialCache maps material asset handles to uploaded materials.
type MaterialCache struct {
	materials *intmap.Map[uint32, *Material]
	fallback  *Material
}

func NewMaterialCache() *MaterialCache {
	return &MaterialCache{materials: intmap.New[uint32, *Material](16)}
}

func (c *MaterialCache) Has(h asset.Handle[MaterialAsset]) bool {
	return c.materials.Has(h.Id())
}

func (c *MaterialCache) Get(h asset.Handle[MaterialAsset]) (*Material, bool) {
	return c.materials.Get(h.Id())
}

func (c *MaterialCache) Len() int { return c.materials.Len() }

// Fallback is used for draws that name no material.
func (c *MaterialCache) Fallback() *Material { return c.fallback }

func (c *MaterialCache) SetFallback(m *Material) { c.fallback = m }

// Resolve returns the material for a draw command, falling back to the
// default material.
func (c *MaterialCache) Resolve(cmd DrawCommand) *Material {
	if cmd.HasMaterial {
		if m, ok := c.Get(cmd.Material); ok {
			return m
		}
	}
	return c.fallback
}

// Load uploads the material h refers to, loading its texture through the
// asset store.
func (c *MaterialCache) Load(h asset.Handle[MaterialAsset], assets *asset.Store, textures *TextureCache, layout gpu.BindGroupLayout, device gpu.Device, queue gpu.Queue) error {
	desc, ok := asset.Get(assets, h)
	if !ok {
		return fmt.Errorf("%w: %s", ErrMaterialNotFound, h)
	}
	tex := textures.White(device, queue)
	if desc.Texture != "" {
		th, err := asset.Load(assets, desc.Texture, TextureLoader{})
		if err != nil {
			return fmt.Errorf("load material %s texture: %w", h, err)
		}
		img, ok := asset.Get(assets, th)
		if !ok {
			return fmt.Errorf("%w: %s", ErrTextureNotFound, th)
		}
		tex = textures.LoadToVRAM(th, img, device, queue)
	}
	c.materials.Put(h.Id(), NewMaterial(device, layout, h.String(), tex, desc.tint()))
	return nil
}
