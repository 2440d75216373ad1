// Package input defines the events the platform layer forwards to the engine
// and the InputState resource systems read them from.
package input

import "fmt"

// Key identifies a keyboard key.
type Key uint8

const (
	KeyEscape Key = iota
	KeyReturn
	KeyLShift
	KeyRShift
	KeyLControl
	KeyRControl
	KeyBackspace
	KeySpace
	KeyTab
	KeyArrowUp
	KeyArrowDown
	KeyArrowLeft
	KeyArrowRight
	KeyA
	KeyB
	KeyC
	KeyD
	KeyE
	KeyF
	KeyG
	KeyH
	KeyI
	KeyJ
	KeyK
	KeyL
	KeyM
	KeyN
	KeyO
	KeyP
	KeyQ
	KeyR
	KeyS
	KeyT
	KeyU
	KeyV
	KeyW
	KeyX
	KeyY
	KeyZ
	KeyUnknown

	keyCount
)

var keyNames = [keyCount]string{
	"Escape", "Return", "LShift", "RShift", "LControl", "RControl", "Backspace",
	"Space", "Tab", "ArrowUp", "ArrowDown", "ArrowLeft", "ArrowRight",
	"A", "B", "C", "D", "E", "F", "G", "H", "I", "J", "K", "L", "M",
	"N", "O", "P", "Q", "R", "S", "T", "U", "V", "W", "X", "Y", "Z",
	"Unknown",
}

func (k Key) String() string {
	if k < keyCount {
		return keyNames[k]
	}
	return fmt.Sprintf("Key(%d)", uint8(k))
}

// KeyFromRune maps a letter to its key, ignoring case. Anything else maps to
// KeyUnknown.
func KeyFromRune(r rune) Key {
	switch {
	case r >= 'a' && r <= 'z':
		return KeyA + Key(r-'a')
	case r >= 'A' && r <= 'Z':
		return KeyA + Key(r-'A')
	case r == ' ':
		return KeySpace
	}
	return KeyUnknown
}

// MouseButton identifies a mouse button.
type MouseButton uint8

const (
	MouseLeft MouseButton = iota
	MouseRight
	MouseMiddle

	mouseButtonCount
)

// Input is one event coming from the platform: KeyDown, KeyUp,
// MouseButtonDown, MouseButtonUp, MouseMotion or CursorMoved.
type Input interface {
	isInput()
}

type KeyDown struct{ Key Key }

type KeyUp struct{ Key Key }

type MouseButtonDown struct{ Button MouseButton }

type MouseButtonUp struct{ Button MouseButton }

// MouseMotion is a relative pointer movement.
type MouseMotion struct{ DX, DY float64 }

// CursorMoved is an absolute cursor position in window coordinates.
type CursorMoved struct{ X, Y float64 }

func (KeyDown) isInput()         {}
func (KeyUp) isInput()           {}
func (MouseButtonDown) isInput() {}
func (MouseButtonUp) isInput()   {}
func (MouseMotion) isInput()     {}
func (CursorMoved) isInput()     {}
