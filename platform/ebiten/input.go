package ebiten

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/tubereng/tuber/input"
)

// Snapshot is the ebiten input observed during one tick.
type Snapshot struct {
	Pressed         []ebiten.Key
	Released        []ebiten.Key
	ButtonsPressed  []ebiten.MouseButton
	ButtonsReleased []ebiten.MouseButton
	CursorX         int
	CursorY         int
}

var trackedButtons = [...]ebiten.MouseButton{
	ebiten.MouseButtonLeft,
	ebiten.MouseButtonRight,
	ebiten.MouseButtonMiddle,
}

// Poll fills s from ebiten's input state. It must be called from Game.Update.
func Poll(s *Snapshot) {
	s.Pressed = inpututil.AppendJustPressedKeys(s.Pressed[:0])
	s.Released = inpututil.AppendJustReleasedKeys(s.Released[:0])
	s.ButtonsPressed = s.ButtonsPressed[:0]
	s.ButtonsReleased = s.ButtonsReleased[:0]
	for _, b := range trackedButtons {
		if inpututil.IsMouseButtonJustPressed(b) {
			s.ButtonsPressed = append(s.ButtonsPressed, b)
		}
		if inpututil.IsMouseButtonJustReleased(b) {
			s.ButtonsReleased = append(s.ButtonsReleased, b)
		}
	}
	s.CursorX, s.CursorY = ebiten.CursorPosition()
}

// Translator turns snapshots into engine inputs. Cursor motion is reported
// relative to the previous snapshot, so the first one only sets the cursor.
type Translator struct {
	cursor    [2]float64
	hasCursor bool
}

func (t *Translator) Translate(s *Snapshot) []input.Input {
	var out []input.Input

	x, y := float64(s.CursorX), float64(s.CursorY)
	if !t.hasCursor || x != t.cursor[0] || y != t.cursor[1] {
		if t.hasCursor {
			out = append(out, input.MouseMotion{DX: x - t.cursor[0], DY: y - t.cursor[1]})
		}
		out = append(out, input.CursorMoved{X: x, Y: y})
		t.cursor = [2]float64{x, y}
		t.hasCursor = true
	}

	for _, k := range s.Pressed {
		if key := KeyOf(k); key != input.KeyUnknown {
			out = append(out, input.KeyDown{Key: key})
		}
	}
	for _, k := range s.Released {
		if key := KeyOf(k); key != input.KeyUnknown {
			out = append(out, input.KeyUp{Key: key})
		}
	}
	for _, b := range s.ButtonsPressed {
		if button, ok := ButtonOf(b); ok {
			out = append(out, input.MouseButtonDown{Button: button})
		}
	}
	for _, b := range s.ButtonsReleased {
		if button, ok := ButtonOf(b); ok {
			out = append(out, input.MouseButtonUp{Button: button})
		}
	}
	return out
}

// KeyOf maps an ebiten key to an engine key. Keys the engine does not track
// map to KeyUnknown.
func KeyOf(k ebiten.Key) input.Key {
	switch k {
	case ebiten.KeyEscape:
		return input.KeyEscape
	case ebiten.KeyEnter, ebiten.KeyNumpadEnter:
		return input.KeyReturn
	case ebiten.KeyShiftLeft:
		return input.KeyLShift
	case ebiten.KeyShiftRight:
		return input.KeyRShift
	case ebiten.KeyControlLeft:
		return input.KeyLControl
	case ebiten.KeyControlRight:
		return input.KeyRControl
	case ebiten.KeyBackspace:
		return input.KeyBackspace
	case ebiten.KeySpace:
		return input.KeySpace
	case ebiten.KeyTab:
		return input.KeyTab
	case ebiten.KeyArrowUp:
		return input.KeyArrowUp
	case ebiten.KeyArrowDown:
		return input.KeyArrowDown
	case ebiten.KeyArrowLeft:
		return input.KeyArrowLeft
	case ebiten.KeyArrowRight:
		return input.KeyArrowRight
	}
	if name := k.String(); len(name) == 1 {
		return input.KeyFromRune(rune(name[0]))
	}
	return input.KeyUnknown
}

func ButtonOf(b ebiten.MouseButton) (input.MouseButton, bool) {
	switch b {
	case ebiten.MouseButtonLeft:
		return input.MouseLeft, true
	case ebiten.MouseButtonRight:
		return input.MouseRight, true
	case ebiten.MouseButtonMiddle:
		return input.MouseMiddle, true
	}
	return 0, false
}
