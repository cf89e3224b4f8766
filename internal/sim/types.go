package sim

import (
	"fmt"
	"math"

	"github.com/san-kum/fluidsim/internal/grid"
	"gonum.org/v1/gonum/spatial/r2"
)

// Particle is one fluid sample. Predicted, Lambda and Delta are only used by
// the position-based solver.
type Particle struct {
	Pos   r2.Vec
	Vel   r2.Vec
	Force r2.Vec

	Density  float64
	Pressure float64

	GX, GY int // cell cached during the last grid rebuild

	Predicted r2.Vec
	Lambda    float64
	Delta     r2.Vec
}

// Params is fixed at construction. Gravity is the starting value; the live
// gravity vector is changed through Simulation.SetGravity.
type Params struct {
	Width  float64
	Height float64
	Radius float64 // interaction radius h

	Gravity     r2.Vec
	RestDensity float64
	Pressure    float64 // explicit pressure coefficient
	Viscosity   float64 // explicit viscosity coefficient

	// explicit soft boundary
	Margin            float64
	BoundaryStiffness float64
	BoundaryDamping   float64

	// position-based solver
	Iterations    int
	Mass          float64
	TensileK      float64
	TensileDeltaQ float64
	TensileExp    int
	LambdaEpsilon float64
	XSPH          float64
	ClampEpsilon  float64

	MaxParticles int
	DrawRadius   float64
	Workers      int
}

// DefaultParams matches the explicit solver's tuning: a 465px square domain
// advanced in frame units (dt = 1).
func DefaultParams() Params {
	return Params{
		Width:             465,
		Height:            465,
		Radius:            10,
		Gravity:           r2.Vec{Y: 0.025},
		RestDensity:       0.1,
		Pressure:          2.0,
		Viscosity:         0.05,
		Margin:            5,
		BoundaryStiffness: 0.5,
		BoundaryDamping:   0.5,
		Iterations:        3,
		Mass:              1,
		TensileK:          1,
		TensileDeltaQ:     2,
		TensileExp:        4,
		LambdaEpsilon:     1,
		XSPH:              0.01,
		ClampEpsilon:      0.001,
		MaxParticles:      DefaultMaxParticles,
		DrawRadius:        1.5,
		Workers:           1,
	}
}

// PositionBasedParams is tuned for the position-based solver at dt = 0.005.
func PositionBasedParams() Params {
	p := DefaultParams()
	p.Width, p.Height = 800, 600
	p.Radius = 25
	p.Gravity = r2.Vec{Y: 1000}
	p.RestDensity = 0.00019
	p.TensileDeltaQ = 0.2 * p.Radius
	p.DrawRadius = 2
	return p
}

const DefaultMaxParticles = 4000

// Validate reports the first parameter that would make a step ill-defined.
func (p Params) Validate() error {
	switch {
	case !positive(p.Width) || !positive(p.Height):
		return fmt.Errorf("%w: domain %gx%g", ErrInvalidParams, p.Width, p.Height)
	case !positive(p.Radius):
		return fmt.Errorf("%w: radius %g", ErrInvalidParams, p.Radius)
	case !positive(p.RestDensity):
		return fmt.Errorf("%w: rest density %g", ErrInvalidParams, p.RestDensity)
	case !finite(p.Gravity.X) || !finite(p.Gravity.Y):
		return fmt.Errorf("%w: gravity %v", ErrInvalidParams, p.Gravity)
	case p.Margin < 0 || 2*p.Margin >= math.Min(p.Width, p.Height):
		return fmt.Errorf("%w: margin %g", ErrInvalidParams, p.Margin)
	case p.Iterations < 0:
		return fmt.Errorf("%w: iterations %d", ErrInvalidParams, p.Iterations)
	case p.Iterations > 0 && !positive(p.LambdaEpsilon):
		return fmt.Errorf("%w: lambda epsilon %g", ErrInvalidParams, p.LambdaEpsilon)
	case p.MaxParticles <= 0:
		return fmt.Errorf("%w: max particles %d", ErrInvalidParams, p.MaxParticles)
	case p.ClampEpsilon < 0 || 2*p.ClampEpsilon >= math.Min(p.Width, p.Height):
		return fmt.Errorf("%w: clamp epsilon %g", ErrInvalidParams, p.ClampEpsilon)
	}
	return nil
}

// Domain is the simulated rectangle [0, Width] x [0, Height].
func (p Params) Domain() r2.Box {
	return r2.Box{Max: r2.Vec{X: p.Width, Y: p.Height}}
}

// World is what a Solver advances: the particle slice, the grid sized for
// that solver, the configuration and the current gravity.
type World struct {
	Particles []Particle
	Grid      *grid.Grid
	Params    Params
	Gravity   r2.Vec
}

// Solver advances a World by one step. Implementations own their scratch
// buffers and reuse them across steps.
type Solver interface {
	Name() string
	CellSize(p Params) float64
	Step(w *World, dt float64)
}

func positive(v float64) bool { return v > 0 && !math.IsInf(v, 1) }
func finite(v float64) bool   { return !math.IsNaN(v) && !math.IsInf(v, 0) }
