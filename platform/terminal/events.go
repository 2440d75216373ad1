package terminal

import (
	"github.com/gdamore/tcell/v2"

	"github.com/tubereng/tuber/input"
)

// Translator turns tcell events into engine inputs. Terminals report key
// presses but no releases, so every key seen during a frame is released by
// EndFrame.
type Translator struct {
	pressed   []input.Key
	buttons   tcell.ButtonMask
	cursor    [2]float64
	hasCursor bool
}

// Translate returns the inputs ev stands for. Events that carry no input,
// such as resizes, yield nothing.
func (t *Translator) Translate(ev tcell.Event) []input.Input {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		return t.key(ev)
	case *tcell.EventMouse:
		return t.mouse(ev)
	}
	return nil
}

func (t *Translator) key(ev *tcell.EventKey) []input.Input {
	var out []input.Input
	if ev.Modifiers()&tcell.ModShift != 0 || (ev.Key() == tcell.KeyRune && ev.Rune() >= 'A' && ev.Rune() <= 'Z') {
		out = append(out, t.press(input.KeyLShift))
	}
	if ev.Modifiers()&tcell.ModCtrl != 0 {
		out = append(out, t.press(input.KeyLControl))
	}
	return append(out, t.press(keyOf(ev)))
}

func (t *Translator) press(k input.Key) input.Input {
	t.pressed = append(t.pressed, k)
	return input.KeyDown{Key: k}
}

func keyOf(ev *tcell.EventKey) input.Key {
	switch ev.Key() {
	case tcell.KeyRune:
		return input.KeyFromRune(ev.Rune())
	case tcell.KeyEscape:
		return input.KeyEscape
	case tcell.KeyEnter:
		return input.KeyReturn
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		return input.KeyBackspace
	case tcell.KeyTab:
		return input.KeyTab
	case tcell.KeyUp:
		return input.KeyArrowUp
	case tcell.KeyDown:
		return input.KeyArrowDown
	case tcell.KeyLeft:
		return input.KeyArrowLeft
	case tcell.KeyRight:
		return input.KeyArrowRight
	}
	return input.KeyUnknown
}

var mouseButtons = [...]struct {
	mask   tcell.ButtonMask
	button input.MouseButton
}{
	{tcell.Button1, input.MouseLeft},
	{tcell.Button2, input.MouseRight},
	{tcell.Button3, input.MouseMiddle},
}

// mouse reports button transitions and cursor movement. Cell coordinates
// become pixel coordinates of the half-block frame.
func (t *Translator) mouse(ev *tcell.EventMouse) []input.Input {
	var out []input.Input
	cx, cy := ev.Position()
	x, y := float64(cx), float64(cy-1)*2
	if t.hasCursor && (x != t.cursor[0] || y != t.cursor[1]) {
		out = append(out, input.MouseMotion{DX: x - t.cursor[0], DY: y - t.cursor[1]})
	}
	if !t.hasCursor || x != t.cursor[0] || y != t.cursor[1] {
		out = append(out, input.CursorMoved{X: x, Y: y})
	}
	t.cursor = [2]float64{x, y}
	t.hasCursor = true

	buttons := ev.Buttons()
	for _, b := range mouseButtons {
		was, is := t.buttons&b.mask != 0, buttons&b.mask != 0
		switch {
		case is && !was:
			out = append(out, input.MouseButtonDown{Button: b.button})
		case was && !is:
			out = append(out, input.MouseButtonUp{Button: b.button})
		}
	}
	t.buttons = buttons
	return out
}

// EndFrame releases every key pressed since the previous call.
func (t *Translator) EndFrame() []input.Input {
	if len(t.pressed) == 0 {
		return nil
	}
	out := make([]input.Input, 0, len(t.pressed))
	for _, k := range t.pressed {
		out = append(out, input.KeyUp{Key: k})
	}
	t.pressed = t.pressed[:0]
	return out
}
