// Package terminal runs the engine inside a terminal. Frames rendered by the
// software backend are drawn with half-block cells, two pixels per cell.
package terminal

import (
	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"github.com/tubereng/tuber/gpu"
	"github.com/tubereng/tuber/gpu/soft"
)

// halfBlock paints the upper pixel as foreground and the lower one as
// background.
const halfBlock = '▀'

// Presenter blits software frames to a tcell screen below a one-line
// status bar.
type Presenter struct {
	screen tcell.Screen
	title  string
	status string
}

func NewPresenter(screen tcell.Screen, title string) *Presenter {
	return &Presenter{screen: screen, title: title}
}

// FrameSize is the surface size that exactly fills the screen below the
// status bar.
func (p *Presenter) FrameSize() gpu.Extent {
	w, h := p.screen.Size()
	return gpu.Extent{Width: uint32(max(w, 1)), Height: uint32(max(h-1, 1) * 2)}
}

// SetStatus sets the text shown after the title.
func (p *Presenter) SetStatus(status string) { p.status = status }

// Present draws frame and shows the screen. It is meant to be installed as
// the surface's present hook.
func (p *Presenter) Present(frame *soft.Texture) {
	w, h := p.screen.Size()
	size := frame.Size()
	rows := min(h-1, int(size.Height+1)/2)
	cols := min(w, int(size.Width))
	for y := range rows {
		for x := range cols {
			top := frame.At(x, 2*y)
			bottom := frame.At(x, 2*y+1)
			style := tcell.StyleDefault.Foreground(cellColor(top)).Background(cellColor(bottom))
			p.screen.SetContent(x, y+1, halfBlock, nil, style)
		}
	}
	p.drawStatus(w)
	p.screen.Show()
}

func (p *Presenter) drawStatus(width int) {
	text := p.title
	if p.status != "" {
		text += " │ " + p.status
	}
	text = runewidth.Truncate(text, width, "…")

	style := tcell.StyleDefault.Reverse(true)
	x := 0
	for _, r := range text {
		p.screen.SetContent(x, 0, r, nil, style)
		x += runewidth.RuneWidth(r)
	}
	for ; x < width; x++ {
		p.screen.SetContent(x, 0, ' ', nil, style)
	}
}

func cellColor(c gpu.Color) tcell.Color {
	return tcell.NewRGBColor(channel(c.R), channel(c.G), channel(c.B))
}

func channel(v float64) int32 {
	return int32(min(max(v, 0), 1)*255 + 0.5)
}
