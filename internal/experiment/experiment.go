package experiment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/san-kum/fluidsim/internal/config"
	"github.com/san-kum/fluidsim/internal/metrics"
	"github.com/san-kum/fluidsim/internal/sim"
	"gonum.org/v1/gonum/spatial/r2"
)

// Result is what a headless run produces. Series holds one slice per metric,
// sampled at the same instants as Times.
type Result struct {
	Solver   string
	Config   *config.Config
	Times    []float64
	Metrics  []string
	Series   map[string][]float64
	Final    []sim.Particle
	Steps    int
	Rejected int
	Elapsed  time.Duration
}

// Last returns the final sample of the named metric.
func (r *Result) Last(name string) (float64, bool) {
	s := r.Series[name]
	if len(s) == 0 {
		return 0, false
	}
	return s[len(s)-1], true
}

type Experiment struct {
	cfg         *config.Config
	simulation  *sim.Simulation
	metrics     []metrics.Metric
	logger      *log.Logger
	sampleEvery int
}

type Option func(*Experiment)

func WithLogger(l *log.Logger) Option {
	return func(e *Experiment) {
		if l != nil {
			e.logger = l
		}
	}
}

func WithMetrics(ms ...metrics.Metric) Option {
	return func(e *Experiment) { e.metrics = ms }
}

// WithSampleEvery records metrics every n steps. The final step is always
// recorded.
func WithSampleEvery(n int) Option {
	return func(e *Experiment) {
		if n > 0 {
			e.sampleEvery = n
		}
	}
}

// New validates cfg, builds the solver and simulation, and places the
// configured scene.
func New(cfg *config.Config, reg *Registry, opts ...Option) (*Experiment, error) {
	if err := reg.Validate(cfg); err != nil {
		return nil, err
	}
	e := &Experiment{
		cfg:         cfg,
		metrics:     metrics.Default(),
		logger:      log.New(io.Discard),
		sampleEvery: 1,
	}
	for _, opt := range opts {
		opt(e)
	}

	solver, err := reg.GetSolver(cfg.Solver)
	if err != nil {
		return nil, err
	}
	e.simulation, err = sim.New(cfg.Params(), solver, sim.WithLogger(e.logger))
	if err != nil {
		return nil, err
	}
	if err := PlaceScene(e.simulation, cfg.Scene); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Experiment) Simulation() *sim.Simulation { return e.simulation }

// Run advances cfg.Steps steps, pouring on schedule. On cancellation it
// returns the samples taken so far together with the context error.
func (e *Experiment) Run(ctx context.Context) (*Result, error) {
	s := e.simulation
	res := &Result{
		Solver: e.cfg.Solver,
		Config: e.cfg,
		Series: make(map[string][]float64, len(e.metrics)),
	}
	for _, m := range e.metrics {
		m.Reset()
		res.Metrics = append(res.Metrics, m.Name())
	}

	e.logger.Info("run started", "solver", e.cfg.Solver, "steps", e.cfg.Steps, "dt", e.cfg.Dt, "particles", s.Len())
	start := time.Now()

	var runErr error
	for step := 0; step < e.cfg.Steps; step++ {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		if err := Pour(s, e.cfg.Pour, step); err != nil {
			runErr = err
			break
		}
		s.Step(e.cfg.Dt)

		if (step+1)%e.sampleEvery == 0 || step+1 == e.cfg.Steps {
			e.sample(res)
		}
	}

	res.Final = s.Snapshot()
	res.Steps = s.Steps()
	res.Rejected = s.Rejected()
	res.Elapsed = time.Since(start)

	if runErr != nil {
		e.logger.Warn("run stopped", "step", s.Steps(), "err", runErr)
		return res, runErr
	}
	e.logger.Info("run finished", "particles", s.Len(), "elapsed", res.Elapsed.Round(time.Millisecond))
	return res, nil
}

func (e *Experiment) sample(res *Result) {
	res.Times = append(res.Times, e.simulation.Time())
	for _, m := range e.metrics {
		m.Observe(e.simulation)
		res.Series[m.Name()] = append(res.Series[m.Name()], m.Value())
	}
}

// PlaceScene fills the configured block row by row.
func PlaceScene(s *sim.Simulation, sc config.SceneConfig) error {
	for row := 0; row < sc.Rows; row++ {
		for col := 0; col < sc.Cols; col++ {
			pos := r2.Vec{X: sc.X + float64(col)*sc.Spacing, Y: sc.Y + float64(row)*sc.Spacing}
			if err := s.Place(pos, r2.Vec{}); err != nil {
				return fmt.Errorf("scene: %w", err)
			}
		}
	}
	return nil
}

// Pour spawns the configured row when step is due. Hitting the particle cap
// is not an error here; the simulation logs it once.
func Pour(s *sim.Simulation, p config.PourConfig, step int) error {
	if p.Count <= 0 || p.Every <= 0 || step >= p.Until || step%p.Every != 0 {
		return nil
	}
	_, err := s.Spawn(r2.Vec{X: p.X, Y: p.Y}, p.Count, p.Spacing, r2.Vec{X: p.VX, Y: p.VY})
	if errors.Is(err, sim.ErrCapacity) {
		return nil
	}
	return err
}
