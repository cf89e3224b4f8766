package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/fluidsim/internal/config"
	"github.com/san-kum/fluidsim/internal/experiment"
	"github.com/san-kum/fluidsim/internal/metrics"
	"github.com/san-kum/fluidsim/internal/sim"
	"gonum.org/v1/gonum/spatial/r2"
)

const (
	canvasRows      = 24
	historyCapacity = 120
	frameRate       = 60
)

// Pointer pour: while the left button is held a row of pourCount particles,
// pourSpacing apart and moving down at pourSpeed, enters every pourEvery
// frames.
const (
	pourCount   = 9
	pourSpacing = 8.0
	pourSpeed   = 3.0
	pourEvery   = 3
)

// The canvas is drawn inside canvasStyle's padding; mouse cells are offset
// by the same amount.
const canvasLeft, canvasTop = 2, 1

var (
	canvasStyle = lipgloss.NewStyle().Padding(canvasTop, canvasLeft)
	statsStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(1, 2).Width(45)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Model runs a simulation one step per frame and draws it on a braille
// canvas next to a stats panel.
type Model struct {
	sim    *sim.Simulation
	cfg    *config.Config
	title  string
	canvas *Canvas
	domain r2.Box

	energy        *metrics.KineticEnergy
	speed         *metrics.MaxSpeed
	energyHistory []float64
	speedHistory  []float64

	running  bool
	pouring  bool
	pointer  r2.Vec
	frame    int
	showHelp bool
	err      error
}

// NewModel wraps an already populated simulation. cfg supplies the step
// size, the scheduled pour and the scene restored on reset.
func NewModel(s *sim.Simulation, cfg *config.Config, title string) Model {
	p := s.Params()
	m := Model{
		sim:           s,
		cfg:           cfg,
		title:         title,
		canvas:        NewCanvas(canvasCols(p), canvasRows),
		domain:        p.Domain(),
		energy:        metrics.NewKineticEnergy(),
		speed:         metrics.NewMaxSpeed(),
		energyHistory: make([]float64, 0, historyCapacity),
		speedHistory:  make([]float64, 0, historyCapacity),
		running:       true,
	}
	m.draw()
	return m
}

// NewLive builds a simulation from cfg and wraps it in a Model.
func NewLive(cfg *config.Config, reg *experiment.Registry, opts ...experiment.Option) (Model, error) {
	exp, err := experiment.New(cfg, reg, opts...)
	if err != nil {
		return Model{}, err
	}
	return NewModel(exp.Simulation(), cfg, cfg.Solver), nil
}

// canvasCols keeps braille dots roughly square for the domain's aspect.
func canvasCols(p sim.Params) int {
	dotsHigh := float64(canvasRows * 4)
	cols := int(math.Round(dotsHigh * p.Width / p.Height / 2))
	return max(8, min(cols, 120))
}

func (m Model) Init() tea.Cmd { return tick() }

// Update handles input events and steps the simulation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.reset()
		case "left", "right", "up", "down":
			m.setGravity(msg.String())
		case "t":
			NextTheme()
		case "?":
			m.showHelp = !m.showHelp
		}
		m.draw()
	case tea.MouseMsg:
		m.mouse(msg)
	case TickMsg:
		if m.running {
			m.step()
		}
		m.draw()
		return m, tick()
	}
	return m, nil
}

func (m *Model) mouse(msg tea.MouseMsg) {
	col, row := msg.X-canvasLeft, msg.Y-canvasTop
	inside := col >= 0 && row >= 0 && col < m.canvas.Width && row < m.canvas.Height

	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button == tea.MouseButtonLeft && inside {
			m.pouring = true
			m.pointer = m.canvas.ToWorld(col, row, m.domain)
		}
	case tea.MouseActionMotion:
		if m.pouring && inside {
			m.pointer = m.canvas.ToWorld(col, row, m.domain)
		}
	case tea.MouseActionRelease:
		m.pouring = false
	}
}

func (m *Model) step() {
	if m.pouring && m.frame%pourEvery == 0 {
		// the cap is logged once by the simulation
		_, _ = m.sim.Spawn(m.pointer, pourCount, pourSpacing, r2.Vec{Y: pourSpeed})
	}
	if err := experiment.Pour(m.sim, m.cfg.Pour, m.sim.Steps()); err != nil {
		m.err = err
	}
	m.sim.Step(m.cfg.Dt)
	m.frame++

	m.energy.Observe(m.sim)
	m.speed.Observe(m.sim)
	m.energyHistory = appendCapped(m.energyHistory, m.energy.Value())
	m.speedHistory = appendCapped(m.speedHistory, m.speed.Value())
}

func appendCapped(h []float64, v float64) []float64 {
	if len(h) >= historyCapacity {
		copy(h, h[1:])
		h = h[:len(h)-1]
	}
	return append(h, v)
}

// setGravity points gravity along an arrow key, keeping the configured
// magnitude.
func (m *Model) setGravity(key string) {
	g := r2.Norm(m.sim.Params().Gravity)
	if g == 0 {
		g = r2.Norm(m.sim.Gravity())
	}
	if g == 0 {
		return
	}
	var dir r2.Vec
	switch key {
	case "left":
		dir = r2.Vec{X: -1}
	case "right":
		dir = r2.Vec{X: 1}
	case "up":
		dir = r2.Vec{Y: -1}
	case "down":
		dir = r2.Vec{Y: 1}
	}
	m.sim.SetGravity(r2.Scale(g, dir))
}

func (m *Model) reset() {
	m.sim.Reset()
	m.err = experiment.PlaceScene(m.sim, m.cfg.Scene)
	m.energy.Reset()
	m.speed.Reset()
	m.energyHistory = m.energyHistory[:0]
	m.speedHistory = m.speedHistory[:0]
	m.frame = 0
	m.pouring = false
}

func (m *Model) draw() {
	m.canvas.Clear()
	m.canvas.Frame()
	m.sim.ForEachParticle(func(pos r2.Vec, _ float64) {
		m.canvas.Plot(pos, m.domain)
	})
	m.drawGravity()
}

// drawGravity draws a short needle in the top right corner pointing along
// the current gravity.
func (m *Model) drawGravity() {
	g := m.sim.Gravity()
	n := r2.Norm(g)
	if n == 0 {
		return
	}
	w, _ := m.canvas.Dots()
	cx, cy := w-8, 7
	const length = 5
	m.canvas.DrawLine(cx, cy, cx+int(math.Round(g.X/n*length)), cy+int(math.Round(g.Y/n*length)))
}

// View renders the TUI interface.
func (m Model) View() string {
	theme := CurrentTheme
	canvasView := canvasStyle.Foreground(theme.Fluid).Render(m.canvas.String())

	var s strings.Builder
	s.WriteString(GradientText(strings.ToUpper(m.title), theme.Primary, theme.Secondary) + "\n\n")

	switch {
	case !m.running:
		s.WriteString(StatusPaused.Render("PAUSED"))
	case m.pouring:
		s.WriteString(StatusPouring.Render("POURING"))
	default:
		s.WriteString(StatusRunning.Render("RUNNING"))
	}
	s.WriteString("\n\n")

	p := m.sim.Params()
	s.WriteString(labelStyle.Render("Particles") + valueStyle.Render(fmt.Sprintf("%d / %d", m.sim.Len(), p.MaxParticles)) + "\n")
	s.WriteString(labelStyle.Render("") + ProgressBar(float64(m.sim.Len())/float64(p.MaxParticles), 24) + "\n")
	if r := m.sim.Rejected(); r > 0 {
		s.WriteString(labelStyle.Render("Dropped") + SparkLow.Render(fmt.Sprintf("%d", r)) + "\n")
	}
	s.WriteString(labelStyle.Render("Time") + valueStyle.Render(fmt.Sprintf("%.2f", m.sim.Time())) + "\n")
	s.WriteString(labelStyle.Render("Steps") + valueStyle.Render(fmt.Sprintf("%d", m.sim.Steps())) + "\n")
	g := m.sim.Gravity()
	s.WriteString(labelStyle.Render("Gravity") + valueStyle.Render(fmt.Sprintf("(%.3g, %.3g)", g.X, g.Y)) + "\n")

	if len(m.energyHistory) > 1 {
		chart := asciigraph.Plot(m.energyHistory, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Kinetic energy"))
		s.WriteString(graphStyle.Render(chart) + "\n")
	}
	s.WriteString(labelStyle.Render("Max speed") + MetricValue.Render(fmt.Sprintf("%.3g", m.speed.Value())) + "\n")
	s.WriteString(labelStyle.Render("") + SparklineChart(m.speedHistory, 24) + "\n")
	if m.err != nil {
		s.WriteString("\n" + SparkLow.Render(m.err.Error()) + "\n")
	}

	s.WriteString(helpStyle.Render(Separator(30) + "\nSP:Pause R:Reset Q:Quit\nMouse:Pour ←↑↓→:Gravity\nT:Theme ?:Help"))
	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsStyle.Render(s.String()))

	if m.showHelp {
		// below the canvas so mouse cells keep their offset
		return mainView + `
╔══════════════════════════════════════╗
║          KEYBOARD SHORTCUTS          ║
╠══════════════════════════════════════╣
║  Space    - Pause/Resume simulation  ║
║  R        - Reset to the scene       ║
║  Q        - Quit                     ║
║  Mouse    - Hold left button to pour ║
║  Arrows   - Point gravity            ║
║  T        - Cycle themes             ║
║  ?        - Toggle this help         ║
╚══════════════════════════════════════╝
` + Subtle.Render("themes: "+strings.Join(ThemeNames(), ", ")+" (now "+CurrentTheme.Name+")") + "\n"
	}
	return mainView
}
