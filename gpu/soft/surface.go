package soft

import (
	"github.com/tubereng/tuber/gpu"
)

// Surface is an offscreen swap target. Presented frames are handed to an
// optional hook, which is how platform presenters get at the pixels.
type Surface struct {
	config     gpu.SurfaceConfiguration
	configured bool
	device     *Device
	texture    *Texture
	failNext   error
	onPresent  func(*Texture)
	presented  int
}

func NewSurface() *Surface {
	return &Surface{}
}

// SetPresentHook installs fn to be called with the frame on every Present.
func (s *Surface) SetPresentHook(fn func(*Texture)) {
	s.onPresent = fn
}

// FailNextAcquire makes the next CurrentTexture call return err.
func (s *Surface) FailNextAcquire(err error) {
	s.failNext = err
}

// Presented returns the number of frames presented so far.
func (s *Surface) Presented() int { return s.presented }

// Frame returns the texture frames are rendered into.
func (s *Surface) Frame() *Texture { return s.texture }

func (s *Surface) Configure(device gpu.Device, config gpu.SurfaceConfiguration) {
	s.device = handle[*Device](device, "device")
	s.config = config
	s.configured = config.Width > 0 && config.Height > 0
	if !s.configured {
		return
	}
	s.texture = s.device.CreateTexture(gpu.TextureDescriptor{
		Label:  "surface",
		Size:   gpu.Extent{Width: config.Width, Height: config.Height},
		Format: config.Format,
		Usage:  gpu.TextureUsageRenderAttachment | gpu.TextureUsageCopySrc,
	}).(*Texture)
}

func (s *Surface) Configuration() gpu.SurfaceConfiguration { return s.config }

func (s *Surface) CurrentTexture() (gpu.SurfaceTexture, error) {
	if err := s.failNext; err != nil {
		s.failNext = nil
		return nil, err
	}
	if !s.configured {
		return nil, gpu.ErrUnconfigured
	}
	return &surfaceTexture{surface: s, texture: s.texture}, nil
}

type surfaceTexture struct {
	surface *Surface
	texture *Texture
}

func (st *surfaceTexture) Texture() gpu.Texture { return st.texture }

func (st *surfaceTexture) Present() {
	st.surface.presented++
	if st.surface.onPresent != nil {
		st.surface.onPresent(st.texture)
	}
}
