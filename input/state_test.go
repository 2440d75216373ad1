package input_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tubereng/tuber/input"
)

func TestInitialState(t *testing.T) {
	var s input.InputState
	assert.False(t, s.Keyboard.IsKeyDown(input.KeyA))
	assert.True(t, s.Keyboard.IsKeyUp(input.KeyA))
	assert.False(t, s.Mouse.IsButtonDown(input.MouseLeft))
	x, y := s.Mouse.Cursor()
	assert.Zero(t, x)
	assert.Zero(t, y)
}

func TestKeyTransitions(t *testing.T) {
	var s input.InputState

	s.Apply(input.KeyDown{Key: input.KeyW})
	assert.True(t, s.Keyboard.IsKeyDown(input.KeyW))
	assert.True(t, s.Keyboard.JustPressed(input.KeyW))
	assert.False(t, s.Keyboard.WasKeyDown(input.KeyW))

	s.ClearLastFrameInputs()
	assert.True(t, s.Keyboard.WasKeyDown(input.KeyW))
	assert.False(t, s.Keyboard.JustPressed(input.KeyW))

	s.Apply(input.KeyUp{Key: input.KeyW})
	assert.True(t, s.Keyboard.JustReleased(input.KeyW))

	s.ClearLastFrameInputs()
	assert.False(t, s.Keyboard.WasKeyDown(input.KeyW))
	assert.False(t, s.Keyboard.JustReleased(input.KeyW))
}

func TestMouse(t *testing.T) {
	var s input.InputState
	s.Apply(input.MouseButtonDown{Button: input.MouseRight})
	s.Apply(input.MouseMotion{DX: 3, DY: -2})
	s.Apply(input.CursorMoved{X: 100, Y: 50})

	assert.True(t, s.Mouse.IsButtonDown(input.MouseRight))
	dx, dy := s.Mouse.Motion()
	assert.Equal(t, 3.0, dx)
	assert.Equal(t, -2.0, dy)

	s.ClearLastFrameInputs()
	dx, dy = s.Mouse.Motion()
	assert.Zero(t, dx)
	assert.Zero(t, dy)
	x, y := s.Mouse.Cursor()
	assert.Equal(t, 100.0, x, "the cursor position survives the frame boundary")
	assert.Equal(t, 50.0, y)
	assert.True(t, s.Mouse.WasButtonDown(input.MouseRight))

	s.Apply(input.MouseButtonUp{Button: input.MouseRight})
	assert.False(t, s.Mouse.IsButtonDown(input.MouseRight))
}

func TestKeyFromRune(t *testing.T) {
	assert.Equal(t, input.KeyA, input.KeyFromRune('a'))
	assert.Equal(t, input.KeyZ, input.KeyFromRune('Z'))
	assert.Equal(t, input.KeySpace, input.KeyFromRune(' '))
	assert.Equal(t, input.KeyUnknown, input.KeyFromRune('#'))
	assert.Equal(t, "ArrowLeft", input.KeyArrowLeft.String())
	assert.Equal(t, "Key(200)", input.Key(200).String())
}
