package terminal_test

import (
	"context"
	"testing"
	"testing/fstest"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tubereng/tuber/asset"
	"github.com/tubereng/tuber/ecs"
	"github.com/tubereng/tuber/engine"
	"github.com/tubereng/tuber/gpu"
	"github.com/tubereng/tuber/gpu/soft"
	"github.com/tubereng/tuber/input"
	"github.com/tubereng/tuber/platform/terminal"
	"github.com/tubereng/tuber/render"
)

func newSimScreen(t *testing.T, w, h int) tcell.SimulationScreen {
	t.Helper()
	ss := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, ss.Init())
	ss.SetSize(w, h)
	t.Cleanup(ss.Fini)
	return ss
}

func newEngine(t *testing.T) *engine.Engine {
	t.Helper()
	e, err := engine.NewBuilder().
		WithApplicationTitle("term").
		WithFileSystem(asset.FromFS(fstest.MapFS{})).
		Build()
	require.NoError(t, err)
	require.NoError(t, e.RunSetupSystem())
	return e
}

func TestPresenterHalfBlocks(t *testing.T) {
	ss := newSimScreen(t, 4, 3)
	p := terminal.NewPresenter(ss, "demo")
	assert.Equal(t, gpu.Extent{Width: 4, Height: 4}, p.FrameSize())

	dev, queue := soft.New()
	tex := dev.CreateTexture(gpu.TextureDescriptor{
		Size:   p.FrameSize(),
		Format: gpu.FormatRGBA8UnormSrgb,
		Usage:  gpu.TextureUsageCopyDst,
	}).(*soft.Texture)
	pixels := make([]byte, 4*4*4)
	for i := range 4 {
		copy(pixels[i*4:], []byte{255, 0, 0, 255})        // row 0: red
		copy(pixels[16+i*4:], []byte{0, 0, 255, 255})     // row 1: blue
		copy(pixels[32+i*4:], []byte{0, 255, 0, 255})     // row 2: green
		copy(pixels[48+i*4:], []byte{255, 255, 255, 255}) // row 3: white
	}
	queue.WriteTexture(tex, pixels)

	p.Present(tex)

	r, _, style, _ := ss.GetContent(2, 1)
	assert.Equal(t, '▀', r)
	fg, bg, _ := style.Decompose()
	assert.Equal(t, tcell.NewRGBColor(255, 0, 0), fg)
	assert.Equal(t, tcell.NewRGBColor(0, 0, 255), bg)

	_, _, style, _ = ss.GetContent(0, 2)
	fg, bg, _ = style.Decompose()
	assert.Equal(t, tcell.NewRGBColor(0, 255, 0), fg)
	assert.Equal(t, tcell.NewRGBColor(255, 255, 255), bg)
}

func TestPresenterStatusLine(t *testing.T) {
	ss := newSimScreen(t, 10, 2)
	p := terminal.NewPresenter(ss, "title")
	p.SetStatus("a long status line")
	dev, _ := soft.New()
	tex := dev.CreateTexture(gpu.TextureDescriptor{Size: p.FrameSize(), Format: gpu.FormatRGBA8UnormSrgb}).(*soft.Texture)

	p.Present(tex)

	var line []rune
	for x := range 10 {
		r, _, _, _ := ss.GetContent(x, 0)
		line = append(line, r)
	}
	assert.Equal(t, "title │ a…", string(line), "the status is truncated to the screen width")
}

func TestTranslatorKeys(t *testing.T) {
	var tr terminal.Translator

	assert.Equal(t, []input.Input{input.KeyDown{Key: input.KeyW}},
		tr.Translate(tcell.NewEventKey(tcell.KeyRune, 'w', tcell.ModNone)))
	assert.Equal(t, []input.Input{input.KeyDown{Key: input.KeyLShift}, input.KeyDown{Key: input.KeyQ}},
		tr.Translate(tcell.NewEventKey(tcell.KeyRune, 'Q', tcell.ModNone)))
	assert.Equal(t, []input.Input{input.KeyDown{Key: input.KeyArrowLeft}},
		tr.Translate(tcell.NewEventKey(tcell.KeyLeft, 0, tcell.ModNone)))
	assert.Equal(t, []input.Input{input.KeyDown{Key: input.KeyReturn}},
		tr.Translate(tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone)))

	assert.Equal(t, []input.Input{
		input.KeyUp{Key: input.KeyW},
		input.KeyUp{Key: input.KeyLShift},
		input.KeyUp{Key: input.KeyQ},
		input.KeyUp{Key: input.KeyArrowLeft},
		input.KeyUp{Key: input.KeyReturn},
	}, tr.EndFrame())
	assert.Empty(t, tr.EndFrame())

	assert.Nil(t, tr.Translate(tcell.NewEventResize(10, 10)))
}

func TestTranslatorMouse(t *testing.T) {
	var tr terminal.Translator

	assert.Equal(t, []input.Input{input.CursorMoved{X: 3, Y: 2}},
		tr.Translate(tcell.NewEventMouse(3, 2, tcell.ButtonNone, tcell.ModNone)))
	assert.Equal(t, []input.Input{
		input.MouseMotion{DX: 1, DY: 2},
		input.CursorMoved{X: 4, Y: 4},
		input.MouseButtonDown{Button: input.MouseLeft},
	}, tr.Translate(tcell.NewEventMouse(4, 3, tcell.Button1, tcell.ModNone)))
	assert.Equal(t, []input.Input{
		input.MouseButtonUp{Button: input.MouseLeft},
		input.MouseButtonDown{Button: input.MouseRight},
	}, tr.Translate(tcell.NewEventMouse(4, 3, tcell.Button2, tcell.ModNone)))
}

func TestDriverFrameReleasesKeys(t *testing.T) {
	ss := newSimScreen(t, 8, 5)
	e := newEngine(t)
	var held []bool
	e.Ecs().RegisterSystem(func(st ecs.Res[input.InputState]) {
		held = append(held, st.Get().Keyboard.IsKeyDown(input.KeyA))
	})
	d := terminal.NewDriver(e, ss, nil)

	d.Handle(tcell.NewEventKey(tcell.KeyRune, 'a', tcell.ModNone))
	require.NoError(t, d.Frame(0.1))
	require.NoError(t, d.Frame(0.1))
	assert.Equal(t, []bool{true, false}, held)

	d.Handle(tcell.NewEventKey(tcell.KeyCtrlC, 0, tcell.ModCtrl))
	assert.True(t, e.ShouldExit())
}

func TestDriverRunRendersUntilExit(t *testing.T) {
	ss := newSimScreen(t, 6, 4)
	e := newEngine(t)

	surface := soft.NewSurface()
	dev, queue := soft.New()
	r, err := render.NewRenderer(dev, queue, surface, terminal.NewPresenter(ss, "").FrameSize(),
		render.NewBasicPipeline(gpu.Color{R: 1, A: 1}), render.WithShaders(soft.Shaders()))
	require.NoError(t, err)
	e.InitializeRenderer(r)
	d := terminal.NewDriver(e, ss, surface, terminal.WithFrameRate(200))

	frames := 0
	e.Ecs().RegisterSystem(func(out ecs.EventWriter[engine.ExitRequest]) {
		frames++
		if frames == 3 {
			out.Write(engine.ExitRequest{})
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Run(ctx))

	assert.Equal(t, 4, frames, "the request is observed one tick after it is written")
	assert.Equal(t, 4, surface.Presented())
	_, _, style, _ := ss.GetContent(1, 1)
	fg, bg, _ := style.Decompose()
	assert.Equal(t, tcell.NewRGBColor(255, 0, 0), fg)
	assert.Equal(t, tcell.NewRGBColor(255, 0, 0), bg)
}

func TestDriverRunStopsOnContext(t *testing.T) {
	ss := newSimScreen(t, 4, 4)
	d := terminal.NewDriver(newEngine(t), ss, nil, terminal.WithFrameRate(100))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Run(ctx), context.DeadlineExceeded)
}
