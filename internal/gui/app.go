package gui

import (
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/san-kum/fluidsim/internal/config"
	"github.com/san-kum/fluidsim/internal/experiment"
	"github.com/san-kum/fluidsim/internal/metrics"
	"github.com/san-kum/fluidsim/internal/sim"
	"gonum.org/v1/gonum/spatial/r2"
)

// Theme Colors (Monochrome with a water accent)
var (
	ColBg      = rl.NewColor(10, 10, 10, 255)
	ColFluid   = rl.NewColor(79, 195, 247, 255)
	ColFast    = rl.NewColor(255, 255, 255, 255)
	ColSelect  = rl.NewColor(255, 255, 255, 255)
	ColText    = rl.NewColor(140, 140, 140, 255)
	ColTextDim = rl.NewColor(60, 60, 60, 255)
	ColGrid    = rl.NewColor(30, 30, 30, 255)
	ColAccent  = rl.NewColor(180, 180, 180, 255)
)

const (
	windowW, windowH = 1280, 720
	hudHeight        = 90
	maxTelemetry     = 200

	pourCount   = 9
	pourSpacing = 8.0
	pourSpeed   = 3.0
	pourEvery   = 3
)

type App struct {
	Sim     *sim.Simulation
	Cfg     *config.Config
	Title   string
	Running bool

	// world to screen: screen = Origin + Scale*world
	Scale  float32
	Origin rl.Vector2

	Frame     int
	Energy    *metrics.KineticEnergy
	Telemetry []float64
	Err       error
}

// Input is one frame of user intent, read from the window or built by hand.
type Input struct {
	Pour        bool
	Pointer     r2.Vec
	Gravity     r2.Vec // unit direction, zero for no change
	TogglePause bool
	Reset       bool
}

func initWindow(title string) {
	rl.InitWindow(windowW, windowH, title)
	rl.SetTargetFPS(60)
	rl.SetExitKey(0)
}

// NewApp fits the simulation domain into the window above the HUD.
func NewApp(s *sim.Simulation, cfg *config.Config, title string) *App {
	p := s.Params()
	scale := math.Min(float64(windowW-40)/p.Width, float64(windowH-hudHeight-40)/p.Height)
	a := &App{
		Sim:       s,
		Cfg:       cfg,
		Title:     title,
		Running:   true,
		Scale:     float32(scale),
		Energy:    metrics.NewKineticEnergy(),
		Telemetry: make([]float64, 0, maxTelemetry),
	}
	a.Origin = rl.NewVector2(
		float32((windowW-p.Width*scale)/2),
		float32(hudHeight/2+(windowH-hudHeight-p.Height*scale)/2),
	)
	return a
}

// Run opens a window on cfg and blocks until it is closed.
func Run(cfg *config.Config, reg *experiment.Registry, opts ...experiment.Option) error {
	exp, err := experiment.New(cfg, reg, opts...)
	if err != nil {
		return err
	}
	initWindow("fluidsim")
	defer rl.CloseWindow()

	app := NewApp(exp.Simulation(), cfg, cfg.Solver)
	app.RunLoop()
	return nil
}

func (a *App) RunLoop() {
	for !rl.WindowShouldClose() {
		if rl.IsKeyPressed(rl.KeyQ) {
			return
		}
		a.Update(a.readInput())
		a.Draw()
	}
}

func (a *App) readInput() Input {
	in := Input{
		Pour:        rl.IsMouseButtonDown(rl.MouseLeftButton),
		Pointer:     a.toWorld(rl.GetMousePosition()),
		TogglePause: rl.IsKeyPressed(rl.KeySpace),
		Reset:       rl.IsKeyPressed(rl.KeyR),
	}
	switch {
	case rl.IsKeyPressed(rl.KeyLeft):
		in.Gravity = r2.Vec{X: -1}
	case rl.IsKeyPressed(rl.KeyRight):
		in.Gravity = r2.Vec{X: 1}
	case rl.IsKeyPressed(rl.KeyUp):
		in.Gravity = r2.Vec{Y: -1}
	case rl.IsKeyPressed(rl.KeyDown):
		in.Gravity = r2.Vec{Y: 1}
	}
	return in
}

// Update applies one frame of input and advances the simulation by the
// configured dt unless paused.
func (a *App) Update(in Input) {
	if in.TogglePause {
		a.Running = !a.Running
	}
	if in.Reset {
		a.Sim.Reset()
		a.Err = experiment.PlaceScene(a.Sim, a.Cfg.Scene)
		a.Energy.Reset()
		a.Telemetry = a.Telemetry[:0]
		a.Frame = 0
	}
	if in.Gravity != (r2.Vec{}) {
		g := r2.Norm(a.Sim.Params().Gravity)
		if g == 0 {
			g = r2.Norm(a.Sim.Gravity())
		}
		a.Sim.SetGravity(r2.Scale(g, in.Gravity))
	}
	if !a.Running {
		return
	}

	if in.Pour && a.Frame%pourEvery == 0 {
		_, _ = a.Sim.Spawn(in.Pointer, pourCount, pourSpacing, r2.Vec{Y: pourSpeed})
	}
	if err := experiment.Pour(a.Sim, a.Cfg.Pour, a.Sim.Steps()); err != nil {
		a.Err = err
	}
	a.Sim.Step(a.Cfg.Dt)
	a.Frame++

	a.Energy.Observe(a.Sim)
	if len(a.Telemetry) >= maxTelemetry {
		a.Telemetry = a.Telemetry[1:]
	}
	a.Telemetry = append(a.Telemetry, a.Energy.Value())
}

func (a *App) toScreen(p r2.Vec) rl.Vector2 {
	return rl.NewVector2(a.Origin.X+a.Scale*float32(p.X), a.Origin.Y+a.Scale*float32(p.Y))
}

func (a *App) toWorld(v rl.Vector2) r2.Vec {
	return r2.Vec{
		X: float64((v.X - a.Origin.X) / a.Scale),
		Y: float64((v.Y - a.Origin.Y) / a.Scale),
	}
}
