// Package debugui provides immediate-mode GUI integration for engine worlds using Dear ImGui.
// Windows are entities carrying an ImguiItem; their render functions run while
// the engine applies commands, on the frame goroutine and inside the ImGui frame.
package debugui

import (
	"github.com/AllenDang/cimgui-go/imgui"

	"github.com/tubereng/tuber/ecs"
)

// ImguiItem is a component that holds a Dear ImGui render function.
// Attach this to entities that should render ImGui widgets each frame.
type ImguiItem struct {
	Render func(w *ecs.Ecs)
}

// ImguiInputState tracks Dear ImGui's input capture state as a resource.
// Use this to determine if ImGui is consuming mouse or keyboard input.
type ImguiInputState struct {
	WantCaptureMouse    bool
	WantCaptureKeyboard bool
}

// ImguiSystem queries all ImguiItem components and defers their render functions.
// It also updates the ImguiInputState resource with the current capture state.
type ImguiSystem struct {
	Items      ecs.Query[struct{ *ImguiItem }]
	InputState ecs.ResMut[ImguiInputState]

	// Capture reports ImGui's capture state. Nil reads the current ImGui IO.
	Capture func() ImguiInputState
}

func (s *ImguiSystem) Execute(ctx *ecs.ExecutionContext) {
	capture := s.Capture
	if capture == nil {
		capture = currentCapture
	}
	*s.InputState.Get() = capture()

	for item := range s.Items.Iter() {
		render := item.Render
		ctx.Commands.Defer(render)
	}
}

func currentCapture() ImguiInputState {
	io := imgui.CurrentIO()
	return ImguiInputState{
		WantCaptureMouse:    io.WantCaptureMouse(),
		WantCaptureKeyboard: io.WantCaptureKeyboard(),
	}
}

func RegisterComponents(registry *ecs.ComponentRegistry) {
	ecs.RegisterComponent[ImguiItem](registry)
}

// Install registers the ImguiSystem and spawns the built-in inspection
// windows. Call it from a setup system or before the first tick.
func Install(w *ecs.Ecs) {
	w.InsertResource(ImguiInputState{})
	w.RegisterSystem(&ImguiSystem{})

	inspector := NewComponentInspector()
	browser := NewEntityBrowser(100, inspector)
	stores := NewStoreViewer()
	perf := NewPerformanceStats(120)
	w.Insert(ecs.C(ImguiItem{Render: browser.Render}))
	w.Insert(ecs.C(ImguiItem{Render: inspector.Render}))
	w.Insert(ecs.C(ImguiItem{Render: stores.Render}))
	w.Insert(ecs.C(ImguiItem{Render: perf.Render}))
}
