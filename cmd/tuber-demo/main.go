// Command tuber-demo renders a small scene with the software backend, either
// in the terminal, in an ebiten window or headless.
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"os"
	"os/signal"
	"time"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"

	"github.com/tubereng/tuber/asset"
	"github.com/tubereng/tuber/config"
	"github.com/tubereng/tuber/debugui"
	debugui_ebiten "github.com/tubereng/tuber/debugui/ebiten"
	"github.com/tubereng/tuber/ecs"
	"github.com/tubereng/tuber/engine"
	"github.com/tubereng/tuber/gpu"
	"github.com/tubereng/tuber/gpu/soft"
	ebitenplatform "github.com/tubereng/tuber/platform/ebiten"
	"github.com/tubereng/tuber/platform/terminal"
	"github.com/tubereng/tuber/render"
)

type flags struct {
	configPath string
	platform   string
	frames     int
	fps        int
	pixelScale int
	debug      bool
}

func main() {
	var f flags
	flag.StringVar(&f.configPath, "config", config.DefaultPath, "Path to the TOML config file. "+config.EnvPath+" overrides it.")
	flag.StringVar(&f.platform, "platform", "terminal", "Where to run: terminal, ebiten or headless.")
	flag.IntVar(&f.frames, "frames", 120, "Frames to run on the headless platform.")
	flag.IntVar(&f.fps, "fps", terminal.DefaultFrameRate, "Terminal frame rate.")
	flag.IntVar(&f.pixelScale, "pixel-scale", 2, "Window pixels per rendered pixel on the ebiten platform.")
	flag.BoolVar(&f.debug, "debug", false, "Show the ImGui debug overlay on the ebiten platform.")
	flag.Parse()

	if err := run(f); err != nil {
		fmt.Fprintln(os.Stderr, "tuber-demo:", err)
		os.Exit(1)
	}
}

func run(f flags) error {
	cfg, err := config.LoadOrDefault(config.Path(f.configPath))
	if err != nil {
		return err
	}
	if f.platform == "terminal" && cfg.Logging.File == "" {
		cfg.Logging.File = "tuber-demo.log"
	}
	log, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync()

	e, err := buildEngine(cfg, log, f.debug && f.platform == "ebiten")
	if err != nil {
		return err
	}

	switch f.platform {
	case "terminal":
		return runTerminal(e, cfg, log, f.fps)
	case "ebiten":
		return runEbiten(e, cfg, log, f)
	case "headless":
		return runHeadless(e, cfg, log, f.frames)
	}
	return fmt.Errorf("unknown platform %q", f.platform)
}

func buildEngine(cfg *config.Config, log *zap.Logger, debug bool) (*engine.Engine, error) {
	var fs asset.FileSystem = embeddedAssets()
	if cfg.Assets.Root != "" {
		fs = asset.Dir(cfg.Assets.Root)
	}

	registry := ecs.NewComponentRegistry()
	registerComponents(registry)
	debugui.RegisterComponents(registry)

	ecsOpts := []ecs.Option{
		ecs.WithMaxEntityCount(cfg.Ecs.MaxEntityCount),
		ecs.WithStrictBorrows(cfg.Ecs.StrictBorrows),
	}
	if cfg.Ecs.Workers > 0 {
		ecsOpts = append(ecsOpts, ecs.WithWorkers(cfg.Ecs.Workers))
	}

	e, err := engine.NewBuilder().
		WithApplicationTitle(cfg.Window.Title).
		WithFileSystem(fs).
		WithLogger(log).
		WithRegistry(registry).
		WithEcsOptions(ecsOpts...).
		WithSetupSystem(setupScene).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build engine: %w", err)
	}
	registerSystems(e.Ecs())
	if debug {
		debugui.Install(e.Ecs())
	}
	if err := e.RunSetupSystem(); err != nil {
		return nil, fmt.Errorf("setup: %w", err)
	}
	return e, nil
}

// attachRenderer gives e a software renderer drawing into surface.
func attachRenderer(e *engine.Engine, cfg *config.Config, log *zap.Logger, surface *soft.Surface, size gpu.Extent) error {
	device, queue := soft.New()
	r, err := render.NewRenderer(device, queue, surface, size,
		render.NewBasicPipeline(cfg.Render.Color()),
		render.WithShaders(soft.Shaders()),
		render.WithLogger(log.Named("render")),
	)
	if err != nil {
		return fmt.Errorf("create renderer: %w", err)
	}
	e.InitializeRenderer(r)
	return nil
}

func runTerminal(e *engine.Engine, cfg *config.Config, log *zap.Logger, fps int) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("open terminal: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("init terminal: %w", err)
	}
	defer screen.Fini()

	surface := soft.NewSurface()
	size := terminal.NewPresenter(screen, "").FrameSize()
	if err := attachRenderer(e, cfg, log, surface, size); err != nil {
		return err
	}
	d := terminal.NewDriver(e, screen, surface, terminal.WithFrameRate(fps), terminal.WithLogger(log.Named("terminal")))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := d.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func runEbiten(e *engine.Engine, cfg *config.Config, log *zap.Logger, f flags) error {
	opts := []ebitenplatform.Option{
		ebitenplatform.WithPixelScale(f.pixelScale),
		ebitenplatform.WithLogger(log.Named("ebiten")),
	}
	if f.debug {
		overlay := debugui_ebiten.NewImguiBackend(cfg.Window.Title, cfg.Window.Width, cfg.Window.Height)
		opts = append(opts, ebitenplatform.WithOverlay(overlay))
	}

	surface := soft.NewSurface()
	w, h := ebitenplatform.RenderSize(image.Pt(cfg.Window.Width, cfg.Window.Height), f.pixelScale)
	if err := attachRenderer(e, cfg, log, surface, gpu.Extent{Width: w, Height: h}); err != nil {
		return err
	}
	g := ebitenplatform.NewGame(e, surface, opts...)
	return ebitenplatform.Run(g, cfg.Window.Width, cfg.Window.Height)
}

// runHeadless renders frames fixed-step into an unpresented surface and logs
// the engine statistics.
func runHeadless(e *engine.Engine, cfg *config.Config, log *zap.Logger, frames int) error {
	surface := soft.NewSurface()
	size := gpu.Extent{Width: uint32(cfg.Window.Width), Height: uint32(cfg.Window.Height)}
	if err := attachRenderer(e, cfg, log, surface, size); err != nil {
		return err
	}

	const dt = float32(1.0 / 60)
	start := time.Now()
	for i := 0; i < frames && !e.ShouldExit(); i++ {
		if err := e.RunFrame(dt); err != nil {
			return err
		}
	}
	if stats, ok := ecs.Resource[engine.EngineStatistics](e.Ecs()); ok {
		s := stats.Get()
		log.Info("headless run finished",
			zap.Uint64("updates", s.Updates),
			zap.Uint64("frames", s.FramesRendered),
			zap.Int("entities", s.EntityCount),
			zap.Duration("elapsed", time.Since(start)),
		)
		stats.Release()
	}
	return nil
}
