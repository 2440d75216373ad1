// Package ebiten runs an engine inside an ebiten window. The engine renders
// with the software backend; each presented frame is uploaded to an ebiten
// image and scaled to the window.
package ebiten

import (
	"image"

	"github.com/hajimehoshi/ebiten/v2"
	"go.uber.org/zap"

	"github.com/tubereng/tuber/engine"
	"github.com/tubereng/tuber/gpu/soft"
)

// Overlay is drawn over the engine frame. debugui/ebiten.ImguiBackend
// satisfies it.
type Overlay interface {
	BeginFrame()
	EndFrame()
	Draw(screen *ebiten.Image)
	Layout(width, height int)
}

type options struct {
	pixelScale int
	overlay    Overlay
	log        *zap.Logger
}

type Option func(*options)

// WithPixelScale renders at 1/scale of the window resolution.
func WithPixelScale(scale int) Option {
	return func(o *options) { o.pixelScale = scale }
}

func WithOverlay(overlay Overlay) Option {
	return func(o *options) { o.overlay = overlay }
}

func WithLogger(log *zap.Logger) Option {
	return func(o *options) { o.log = log }
}

// Game implements ebiten.Game for an engine.
type Game struct {
	engine     *engine.Engine
	overlay    Overlay
	pixelScale int
	log        *zap.Logger

	frame  *ebiten.Image
	nrgba  *image.NRGBA
	pixels []byte

	snapshot   Snapshot
	translator Translator
	outside    image.Point
}

// NewGame hooks surface presentation. A nil surface leaves the engine
// headless; the window then only shows the overlay.
func NewGame(e *engine.Engine, surface *soft.Surface, opts ...Option) *Game {
	o := options{pixelScale: 1, log: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	g := &Game{
		engine:     e,
		overlay:    o.overlay,
		pixelScale: max(o.pixelScale, 1),
		log:        o.log,
	}
	if surface != nil {
		surface.SetPresentHook(g.present)
	}
	return g
}

func (g *Game) present(tex *soft.Texture) {
	g.nrgba = tex.Image(g.nrgba)
	g.pixels = Premultiply(g.pixels, g.nrgba)
	size := g.nrgba.Bounds().Size()
	if g.frame == nil || g.frame.Bounds().Size() != size {
		if g.frame != nil {
			g.frame.Deallocate()
		}
		g.frame = ebiten.NewImage(size.X, size.Y)
	}
	g.frame.WritePixels(g.pixels)
}

// Update runs one engine frame. Overlay widgets queued by systems are built
// while the engine applies commands, inside the overlay frame.
func (g *Game) Update() error {
	if g.overlay != nil {
		g.overlay.BeginFrame()
	}
	Poll(&g.snapshot)
	for _, in := range g.translator.Translate(&g.snapshot) {
		g.engine.OnInput(in)
	}
	err := g.engine.RunFrame(1 / float32(ebiten.TPS()))
	if g.overlay != nil {
		g.overlay.EndFrame()
	}
	if err != nil {
		return err
	}
	if g.engine.ShouldExit() {
		g.log.Info("window loop stopped")
		return ebiten.Termination
	}
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	if g.frame != nil {
		op := &ebiten.DrawImageOptions{}
		op.GeoM.Scale(FrameScale(g.frame.Bounds().Size(), screen.Bounds().Size()))
		screen.DrawImage(g.frame, op)
	}
	if g.overlay != nil {
		g.overlay.Draw(screen)
	}
}

// Layout keeps the screen at window resolution and resizes the engine
// surface when the window changes.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	outside := image.Pt(outsideWidth, outsideHeight)
	if outside != g.outside {
		g.outside = outside
		w, h := RenderSize(outside, g.pixelScale)
		g.log.Debug("window resized", zap.Int("width", outsideWidth), zap.Int("height", outsideHeight))
		g.engine.Resize(w, h)
	}
	if g.overlay != nil {
		g.overlay.Layout(outsideWidth, outsideHeight)
	}
	return outsideWidth, outsideHeight
}

// Run opens the window and blocks until the engine exits or the window is
// closed.
func Run(g *Game, width, height int) error {
	ebiten.SetWindowTitle(g.engine.ApplicationTitle())
	ebiten.SetWindowSize(width, height)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	g.log.Info("window loop started", zap.Int("width", width), zap.Int("height", height))
	return ebiten.RunGame(g)
}

// RenderSize is the surface size for a window of the given size.
func RenderSize(window image.Point, pixelScale int) (uint32, uint32) {
	pixelScale = max(pixelScale, 1)
	return uint32(max(window.X/pixelScale, 1)), uint32(max(window.Y/pixelScale, 1))
}

// FrameScale stretches a frame over the screen.
func FrameScale(frame, screen image.Point) (float64, float64) {
	if frame.X == 0 || frame.Y == 0 {
		return 1, 1
	}
	return float64(screen.X) / float64(frame.X), float64(screen.Y) / float64(frame.Y)
}

// Premultiply converts src to the premultiplied RGBA layout WritePixels
// expects, reusing dst when it is large enough.
func Premultiply(dst []byte, src *image.NRGBA) []byte {
	size := src.Bounds().Size()
	n := size.X * size.Y * 4
	if cap(dst) < n {
		dst = make([]byte, n)
	}
	dst = dst[:n]
	for y := range size.Y {
		row := src.Pix[y*src.Stride : y*src.Stride+size.X*4]
		out := dst[y*size.X*4:]
		for i := 0; i < len(row); i += 4 {
			a := uint16(row[i+3])
			out[i] = uint8(uint16(row[i]) * a / 255)
			out[i+1] = uint8(uint16(row[i+1]) * a / 255)
			out[i+2] = uint8(uint16(row[i+2]) * a / 255)
			out[i+3] = row[i+3]
		}
	}
	return dst
}
