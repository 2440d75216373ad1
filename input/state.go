package input

type pressState struct {
	current  bool
	previous bool
}

// KeyboardState tracks which keys are down now and which were down at the
// end of the previous frame.
type KeyboardState struct {
	keys [keyCount]pressState
}

// IsKeyDown reports whether k is currently held.
func (s *KeyboardState) IsKeyDown(k Key) bool { return k < keyCount && s.keys[k].current }

// IsKeyUp reports whether k is currently released.
func (s *KeyboardState) IsKeyUp(k Key) bool { return !s.IsKeyDown(k) }

// WasKeyDown reports whether k was held at the end of the previous frame.
func (s *KeyboardState) WasKeyDown(k Key) bool { return k < keyCount && s.keys[k].previous }

// JustPressed reports whether k went down during this frame.
func (s *KeyboardState) JustPressed(k Key) bool { return s.IsKeyDown(k) && !s.WasKeyDown(k) }

// JustReleased reports whether k went up during this frame.
func (s *KeyboardState) JustReleased(k Key) bool { return !s.IsKeyDown(k) && s.WasKeyDown(k) }

func (s *KeyboardState) set(k Key, down bool) {
	if k < keyCount {
		s.keys[k].current = down
	}
}

func (s *KeyboardState) endFrame() {
	for i := range s.keys {
		s.keys[i].previous = s.keys[i].current
	}
}

// MouseState tracks buttons, the last relative motion and the cursor.
type MouseState struct {
	buttons [mouseButtonCount]pressState
	motionX float64
	motionY float64
	cursorX float64
	cursorY float64
}

// IsButtonDown reports whether b is currently held.
func (s *MouseState) IsButtonDown(b MouseButton) bool {
	return b < mouseButtonCount && s.buttons[b].current
}

// WasButtonDown reports whether b was held at the end of the previous frame.
func (s *MouseState) WasButtonDown(b MouseButton) bool {
	return b < mouseButtonCount && s.buttons[b].previous
}

// Motion returns the relative motion received this frame.
func (s *MouseState) Motion() (dx, dy float64) { return s.motionX, s.motionY }

// Cursor returns the last known cursor position.
func (s *MouseState) Cursor() (x, y float64) { return s.cursorX, s.cursorY }

func (s *MouseState) endFrame() {
	for i := range s.buttons {
		s.buttons[i].previous = s.buttons[i].current
	}
	s.motionX, s.motionY = 0, 0
}

// InputState is the ECS resource that accumulates platform input.
type InputState struct {
	Keyboard KeyboardState
	Mouse    MouseState
}

// Apply folds one event into the state.
func (s *InputState) Apply(in Input) {
	switch ev := in.(type) {
	case KeyDown:
		s.Keyboard.set(ev.Key, true)
	case KeyUp:
		s.Keyboard.set(ev.Key, false)
	case MouseButtonDown:
		if ev.Button < mouseButtonCount {
			s.Mouse.buttons[ev.Button].current = true
		}
	case MouseButtonUp:
		if ev.Button < mouseButtonCount {
			s.Mouse.buttons[ev.Button].current = false
		}
	case MouseMotion:
		s.Mouse.motionX, s.Mouse.motionY = ev.DX, ev.DY
	case CursorMoved:
		s.Mouse.cursorX, s.Mouse.cursorY = ev.X, ev.Y
	}
}

// ClearLastFrameInputs moves current key and button state to previous and
// resets per-frame motion. The driver calls it once per frame after
// rendering.
func (s *InputState) ClearLastFrameInputs() {
	s.Keyboard.endFrame()
	s.Mouse.endFrame()
}
