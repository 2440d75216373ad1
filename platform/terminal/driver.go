package terminal

import (
	"context"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"

	"github.com/tubereng/tuber/ecs"
	"github.com/tubereng/tuber/engine"
	"github.com/tubereng/tuber/gpu/soft"
)

const DefaultFrameRate = 30

type options struct {
	frameRate int
	log       *zap.Logger
}

type Option func(*options)

// WithFrameRate sets the target number of frames per second.
func WithFrameRate(fps int) Option {
	return func(o *options) { o.frameRate = fps }
}

func WithLogger(log *zap.Logger) Option {
	return func(o *options) { o.log = log }
}

// Driver runs an engine on a tcell screen at a fixed frame rate.
type Driver struct {
	engine     *engine.Engine
	screen     tcell.Screen
	presenter  *Presenter
	translator Translator
	frameTime  time.Duration
	log        *zap.Logger
}

// NewDriver wires surface presentation to screen. screen must already be
// initialized; the driver enables mouse reporting on it.
func NewDriver(e *engine.Engine, screen tcell.Screen, surface *soft.Surface, opts ...Option) *Driver {
	o := options{frameRate: DefaultFrameRate, log: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.frameRate <= 0 {
		o.frameRate = DefaultFrameRate
	}
	d := &Driver{
		engine:    e,
		screen:    screen,
		presenter: NewPresenter(screen, e.ApplicationTitle()),
		frameTime: time.Second / time.Duration(o.frameRate),
		log:       o.log,
	}
	screen.EnableMouse()
	if surface != nil {
		surface.SetPresentHook(d.presenter.Present)
	}
	return d
}

func (d *Driver) Presenter() *Presenter { return d.presenter }

// Run drives frames until the engine asks to exit, ctx is done or the screen
// stops delivering events. The caller finalizes the screen afterwards.
func (d *Driver) Run(ctx context.Context) error {
	events := make(chan tcell.Event, 64)
	done := make(chan struct{})
	defer close(done)
	go func() {
		defer close(events)
		for {
			ev := d.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-done:
				return
			}
		}
	}()

	ticker := time.NewTicker(d.frameTime)
	defer ticker.Stop()
	last := time.Now()
	d.log.Info("terminal loop started", zap.Duration("frame_time", d.frameTime))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			d.Handle(ev)
		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now
			if err := d.Frame(float32(dt.Seconds())); err != nil {
				return err
			}
			if d.engine.ShouldExit() {
				d.log.Info("terminal loop stopped")
				return nil
			}
		}
	}
}

// Handle forwards one tcell event. Ctrl-C asks the engine to exit.
func (d *Driver) Handle(ev tcell.Event) {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		d.screen.Sync()
		size := d.presenter.FrameSize()
		d.engine.Resize(size.Width, size.Height)
		return
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyCtrlC {
			d.engine.Exit()
			return
		}
	}
	for _, in := range d.translator.Translate(ev) {
		d.engine.OnInput(in)
	}
}

// Frame runs one engine frame, then releases the keys pressed during it.
func (d *Driver) Frame(dt float32) error {
	err := d.engine.RunFrame(dt)
	for _, in := range d.translator.EndFrame() {
		d.engine.OnInput(in)
	}
	if err != nil {
		return err
	}
	if stats, ok := ecs.Resource[engine.EngineStatistics](d.engine.Ecs()); ok {
		fps := 0.0
		if dt > 0 {
			fps = 1 / float64(dt)
		}
		d.presenter.SetStatus(fmt.Sprintf("%d entities │ %.0f fps", stats.Get().EntityCount, fps))
		stats.Release()
	}
	return nil
}
