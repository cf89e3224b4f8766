package sim

import (
	"fmt"
	"io"
	"math"

	"github.com/charmbracelet/log"
	"github.com/san-kum/fluidsim/internal/grid"
	"gonum.org/v1/gonum/spatial/r2"
)

// Simulation owns the particle collection, the grid and the configuration,
// and advances them through its Solver. It is not safe for concurrent use;
// the host calls Step, Spawn and ForEachParticle from one goroutine.
type Simulation struct {
	world    World
	solver   Solver
	logger   *log.Logger
	steps    int
	time     float64
	capped   bool
	rejected int
}

type Option func(*Simulation)

func WithLogger(l *log.Logger) Option {
	return func(s *Simulation) {
		if l != nil {
			s.logger = l
		}
	}
}

func New(p Params, solver Solver, opts ...Option) (*Simulation, error) {
	if solver == nil {
		return nil, fmt.Errorf("%w: nil solver", ErrInvalidParams)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	cell := solver.CellSize(p)
	if !positive(cell) {
		return nil, fmt.Errorf("%w: cell size %g for solver %s", ErrInvalidParams, cell, solver.Name())
	}

	s := &Simulation{
		world: World{
			Particles: make([]Particle, 0, min(p.MaxParticles, 1024)),
			Grid:      grid.New(p.Width, p.Height, cell),
			Params:    p,
			Gravity:   p.Gravity,
		},
		solver: solver,
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(s)
	}

	cols, rows := s.world.Grid.Dims()
	s.logger.Debug("simulation ready", "solver", solver.Name(), "grid", fmt.Sprintf("%dx%d", cols, rows), "cell", cell)
	return s, nil
}

// Step advances the simulation by dt. A non-positive dt skips the step.
func (s *Simulation) Step(dt float64) {
	if !(dt > 0) || math.IsInf(dt, 1) {
		return
	}
	s.solver.Step(&s.world, dt)
	s.steps++
	s.time += dt
}

// Spawn injects count particles in a horizontal row centred on origin,
// spacing apart, all moving with vel. It returns how many were added; when
// the particle cap cuts the batch short the error wraps ErrCapacity.
func (s *Simulation) Spawn(origin r2.Vec, count int, spacing float64, vel r2.Vec) (int, error) {
	if count <= 0 || !finiteVec(origin) || !finiteVec(vel) || !finite(spacing) {
		return 0, fmt.Errorf("%w: count=%d origin=%v vel=%v", ErrInvalidSpawn, count, origin, vel)
	}

	room := s.world.Params.MaxParticles - len(s.world.Particles)
	n := min(count, room)
	half := float64(count-1) / 2
	for i := 0; i < n; i++ {
		pos := r2.Vec{X: origin.X + (float64(i)-half)*spacing, Y: origin.Y}
		s.world.Particles = append(s.world.Particles, Particle{Pos: pos, Vel: vel, Predicted: pos})
	}

	if n < count {
		s.rejected += count - n
		if !s.capped {
			s.logger.Warn("particle cap reached, dropping spawns", "max", s.world.Params.MaxParticles)
			s.capped = true
		}
		return max(n, 0), fmt.Errorf("%w: added %d of %d (max %d)", ErrCapacity, max(n, 0), count, s.world.Params.MaxParticles)
	}
	return n, nil
}

// Place adds a single particle.
func (s *Simulation) Place(pos, vel r2.Vec) error {
	if !finiteVec(pos) || !finiteVec(vel) {
		return fmt.Errorf("%w: pos=%v vel=%v", ErrInvalidSpawn, pos, vel)
	}
	if len(s.world.Particles) >= s.world.Params.MaxParticles {
		s.rejected++
		return fmt.Errorf("%w: max %d", ErrCapacity, s.world.Params.MaxParticles)
	}
	s.world.Particles = append(s.world.Particles, Particle{Pos: pos, Vel: vel, Predicted: pos})
	return nil
}

// ForEachParticle calls fn with each particle's position and draw radius.
func (s *Simulation) ForEachParticle(fn func(pos r2.Vec, radius float64)) {
	r := s.world.Params.DrawRadius
	for i := range s.world.Particles {
		fn(s.world.Particles[i].Pos, r)
	}
}

// ForEachState calls fn with a copy of each particle, for observers that need
// more than positions.
func (s *Simulation) ForEachState(fn func(p Particle)) {
	for i := range s.world.Particles {
		fn(s.world.Particles[i])
	}
}

// SetGravity replaces the gravity vector; it takes effect on the next Step.
func (s *Simulation) SetGravity(g r2.Vec) {
	if finiteVec(g) {
		s.world.Gravity = g
	}
}

func (s *Simulation) Gravity() r2.Vec { return s.world.Gravity }
func (s *Simulation) Len() int        { return len(s.world.Particles) }
func (s *Simulation) Steps() int      { return s.steps }
func (s *Simulation) Time() float64   { return s.time }
func (s *Simulation) Params() Params  { return s.world.Params }
func (s *Simulation) Solver() Solver  { return s.solver }

// Rejected counts particles dropped by the capacity limit.
func (s *Simulation) Rejected() int { return s.rejected }

// Snapshot returns a copy of the particle state.
func (s *Simulation) Snapshot() []Particle {
	out := make([]Particle, len(s.world.Particles))
	copy(out, s.world.Particles)
	return out
}

// Reset drops every particle and restores the configured gravity.
func (s *Simulation) Reset() {
	s.world.Particles = s.world.Particles[:0]
	s.world.Grid.Clear()
	s.world.Gravity = s.world.Params.Gravity
	s.steps, s.time = 0, 0
	s.capped, s.rejected = false, 0
}

func finiteVec(v r2.Vec) bool { return finite(v.X) && finite(v.Y) }
