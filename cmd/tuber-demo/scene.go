package main

import (
	"embed"
	"io/fs"

	"go.uber.org/zap"

	"github.com/tubereng/tuber/asset"
	"github.com/tubereng/tuber/ecs"
	"github.com/tubereng/tuber/engine"
	"github.com/tubereng/tuber/input"
	"github.com/tubereng/tuber/render"
)

//go:embed assets
var embedded embed.FS

// embeddedAssets serves the bundled assets directory.
func embeddedAssets() asset.FileSystem {
	sub, err := fs.Sub(embedded, "assets")
	if err != nil {
		panic(err)
	}
	return asset.FromFS(sub)
}

// Spin rotates a mesh around z at Speed radians per second.
type Spin struct {
	Speed float32
}

// Player marks the mesh moved with the arrow keys.
type Player struct{}

// DemoState is toggled from the keyboard.
type DemoState struct {
	Paused bool
}

const playerSpeed = 1.2

func registerComponents(r *ecs.ComponentRegistry) {
	render.RegisterComponents(r)
	ecs.RegisterComponent[Spin](r)
	ecs.RegisterComponent[Player](r)
}

func triangle(r, g, b float32) render.Mesh {
	c := [3]float32{r, g, b}
	return render.Mesh{Vertices: []render.Vertex{
		{Position: [3]float32{0, 0.25, 0}, Color: c, UV: [2]float32{0.5, 0}},
		{Position: [3]float32{-0.22, -0.15, 0}, Color: c, UV: [2]float32{0, 1}},
		{Position: [3]float32{0.22, -0.15, 0}, Color: c, UV: [2]float32{1, 1}},
	}}
}

// quad is a unit square around the origin drawn with two indexed triangles.
func quad() render.Mesh {
	white := [3]float32{1, 1, 1}
	return render.Mesh{
		Vertices: []render.Vertex{
			{Position: [3]float32{-0.5, -0.5, 0}, Color: white, UV: [2]float32{0, 1}},
			{Position: [3]float32{0.5, -0.5, 0}, Color: white, UV: [2]float32{1, 1}},
			{Position: [3]float32{0.5, 0.5, 0}, Color: white, UV: [2]float32{1, 0}},
			{Position: [3]float32{-0.5, 0.5, 0}, Color: white, UV: [2]float32{0, 0}},
		},
		Indices: []uint16{0, 1, 2, 0, 2, 3},
	}
}

// setupScene spawns the ground, three spinning triangles and the player.
// A material that fails to load is logged and the mesh keeps the default.
func setupScene(ctx *ecs.ExecutionContext, assets ecs.ResMut[engine.Assets], cmd *ecs.CommandBuffer) {
	store := assets.Get().Store
	cmd.InsertResource(DemoState{})

	ground := []any{quad(), render.Transform{Position: [3]float32{0, 0, 0.9}, Scale: [3]float32{1.8, 1.8, 1}}}
	if h, err := asset.Load(store, "materials/ground.yaml", asset.YAMLLoader[render.MaterialAsset]{}); err != nil {
		ctx.Log.Warn("ground material unavailable", zap.Error(err))
	} else {
		ground = append(ground, render.MaterialRef{Handle: h})
	}
	cmd.Insert(ground...)

	for i, c := range [][3]float32{{0.9, 0.2, 0.2}, {0.2, 0.85, 0.3}, {0.25, 0.4, 0.95}} {
		cmd.Insert(
			triangle(c[0], c[1], c[2]),
			render.Transform{Position: [3]float32{-0.55 + 0.55*float32(i), 0.35, 0.5}},
			Spin{Speed: 1 + float32(i)*0.75},
		)
	}

	player := []any{quad(), Player{}, render.Transform{Position: [3]float32{0, -0.4, 0.3}, Scale: [3]float32{0.25, 0.25, 1}}}
	if h, err := asset.Load(store, "materials/player.toml", asset.TOMLLoader[render.MaterialAsset]{}); err != nil {
		ctx.Log.Warn("player material unavailable", zap.Error(err))
	} else {
		player = append(player, render.MaterialRef{Handle: h})
	}
	cmd.Insert(player...)
}

type spinner struct {
	T *render.Transform `ecs:"mut"`
	*Spin
}

func spinSystem(dt ecs.Res[engine.DeltaTime], state ecs.Res[DemoState], q ecs.Query[spinner]) {
	if state.Get().Paused {
		return
	}
	step := float32(*dt.Get())
	for row := range q.Iter() {
		row.T.Rotation += row.Speed * step
	}
}

type controlled struct {
	T *render.Transform `ecs:"mut"`
	*Player
}

// controlSystem moves the player, toggles the pause with space and asks the
// engine to exit on escape or q.
func controlSystem(
	in ecs.Res[input.InputState],
	dt ecs.Res[engine.DeltaTime],
	state ecs.ResMut[DemoState],
	exit ecs.EventWriter[engine.ExitRequest],
	q ecs.Query[controlled],
) {
	keys := &in.Get().Keyboard
	if keys.JustPressed(input.KeyEscape) || keys.JustPressed(input.KeyQ) {
		exit.Write(engine.ExitRequest{})
	}
	if keys.JustPressed(input.KeySpace) {
		state.Get().Paused = !state.Get().Paused
	}

	var dx, dy float32
	if keys.IsKeyDown(input.KeyArrowLeft) || keys.IsKeyDown(input.KeyA) {
		dx--
	}
	if keys.IsKeyDown(input.KeyArrowRight) || keys.IsKeyDown(input.KeyD) {
		dx++
	}
	if keys.IsKeyDown(input.KeyArrowUp) || keys.IsKeyDown(input.KeyW) {
		dy++
	}
	if keys.IsKeyDown(input.KeyArrowDown) || keys.IsKeyDown(input.KeyS) {
		dy--
	}
	if dx == 0 && dy == 0 {
		return
	}
	step := playerSpeed * float32(*dt.Get())
	for row := range q.Iter() {
		row.T.Position[0] = clamp(row.T.Position[0]+dx*step, -0.9, 0.9)
		row.T.Position[1] = clamp(row.T.Position[1]+dy*step, -0.9, 0.9)
	}
}

func clamp(v, lo, hi float32) float32 {
	return max(lo, min(hi, v))
}

// registerSystems gives each system its own set: both write Transform.
func registerSystems(w *ecs.Ecs) {
	w.RegisterSystem(controlSystem)
	w.RegisterSystem(spinSystem)
}
