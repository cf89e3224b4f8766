package config

import (
	"fmt"
	"os"

	"github.com/san-kum/fluidsim/internal/physics"
	"github.com/san-kum/fluidsim/internal/sim"
	"gonum.org/v1/gonum/spatial/r2"
	"gopkg.in/yaml.v3"
)

const (
	DefaultExplicitDt      = 1.0
	DefaultPositionBasedDt = 0.005
	DefaultSteps           = 600
)

type Config struct {
	Solver   string         `yaml:"solver"`
	Dt       float64        `yaml:"dt"`
	Steps    int            `yaml:"steps"`
	Workers  int            `yaml:"workers"`
	Domain   DomainConfig   `yaml:"domain"`
	Fluid    FluidConfig    `yaml:"fluid"`
	Boundary BoundaryConfig `yaml:"boundary"`
	PBF      PBFConfig      `yaml:"pbf"`
	Scene    SceneConfig    `yaml:"scene"`
	Pour     PourConfig     `yaml:"pour"`
}

type DomainConfig struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

type FluidConfig struct {
	Radius       float64 `yaml:"radius"`
	Gravity      r2.Vec  `yaml:"gravity"`
	RestDensity  float64 `yaml:"rest_density"`
	Pressure     float64 `yaml:"pressure"`
	Viscosity    float64 `yaml:"viscosity"`
	MaxParticles int     `yaml:"max_particles"`
	DrawRadius   float64 `yaml:"draw_radius"`
}

type BoundaryConfig struct {
	Margin       float64 `yaml:"margin"`
	Stiffness    float64 `yaml:"stiffness"`
	Damping      float64 `yaml:"damping"`
	ClampEpsilon float64 `yaml:"clamp_epsilon"`
}

type PBFConfig struct {
	Iterations    int     `yaml:"iterations"`
	Mass          float64 `yaml:"mass"`
	TensileK      float64 `yaml:"tensile_k"`
	TensileDeltaQ float64 `yaml:"tensile_delta_q"`
	TensileExp    int     `yaml:"tensile_exp"`
	LambdaEpsilon float64 `yaml:"lambda_epsilon"`
	XSPH          float64 `yaml:"xsph"`
}

// SceneConfig places a block of resting particles before the first step.
// Cols or Rows of zero means an empty scene.
type SceneConfig struct {
	X       float64 `yaml:"x"`
	Y       float64 `yaml:"y"`
	Cols    int     `yaml:"cols"`
	Rows    int     `yaml:"rows"`
	Spacing float64 `yaml:"spacing"`
}

// PourConfig spawns a row of Count particles every Every steps while the
// step number is below Until. Count of zero disables pouring.
type PourConfig struct {
	X       float64 `yaml:"x"`
	Y       float64 `yaml:"y"`
	Count   int     `yaml:"count"`
	Spacing float64 `yaml:"spacing"`
	VX      float64 `yaml:"vx"`
	VY      float64 `yaml:"vy"`
	Every   int     `yaml:"every"`
	Until   int     `yaml:"until"`
}

// DefaultConfig is the explicit solver pouring into an empty tank.
func DefaultConfig() *Config {
	return ForSolver(physics.ExplicitName)
}

// ForSolver returns the defaults tuned for the named solver. Unknown names
// get the explicit defaults with the name kept, so Validate reports them.
func ForSolver(name string) *Config {
	p, dt := sim.DefaultParams(), DefaultExplicitDt
	if name == physics.PositionBasedName {
		p, dt = sim.PositionBasedParams(), DefaultPositionBasedDt
	}
	cfg := FromParams(p)
	cfg.Solver = name
	cfg.Dt = dt
	cfg.Steps = DefaultSteps
	cfg.Pour = PourConfig{
		X: p.Width / 2, Y: 20, Count: 9, Spacing: 8, VY: 3, Every: 3, Until: DefaultSteps / 2,
	}
	return cfg
}

// FromParams copies simulation parameters into a Config, leaving the run
// fields (solver, dt, steps, scene, pour) zero.
func FromParams(p sim.Params) *Config {
	return &Config{
		Workers: p.Workers,
		Domain:  DomainConfig{Width: p.Width, Height: p.Height},
		Fluid: FluidConfig{
			Radius:       p.Radius,
			Gravity:      p.Gravity,
			RestDensity:  p.RestDensity,
			Pressure:     p.Pressure,
			Viscosity:    p.Viscosity,
			MaxParticles: p.MaxParticles,
			DrawRadius:   p.DrawRadius,
		},
		Boundary: BoundaryConfig{
			Margin:       p.Margin,
			Stiffness:    p.BoundaryStiffness,
			Damping:      p.BoundaryDamping,
			ClampEpsilon: p.ClampEpsilon,
		},
		PBF: PBFConfig{
			Iterations:    p.Iterations,
			Mass:          p.Mass,
			TensileK:      p.TensileK,
			TensileDeltaQ: p.TensileDeltaQ,
			TensileExp:    p.TensileExp,
			LambdaEpsilon: p.LambdaEpsilon,
			XSPH:          p.XSPH,
		},
	}
}

// Load reads a YAML file over the defaults of the solver it names, so a file
// holding only "solver: pbf" yields the full position-based configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var head struct {
		Solver string `yaml:"solver"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if head.Solver == "" {
		head.Solver = physics.ExplicitName
	}

	cfg := ForSolver(head.Solver)
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Params() sim.Params {
	return sim.Params{
		Width:             c.Domain.Width,
		Height:            c.Domain.Height,
		Radius:            c.Fluid.Radius,
		Gravity:           c.Fluid.Gravity,
		RestDensity:       c.Fluid.RestDensity,
		Pressure:          c.Fluid.Pressure,
		Viscosity:         c.Fluid.Viscosity,
		Margin:            c.Boundary.Margin,
		BoundaryStiffness: c.Boundary.Stiffness,
		BoundaryDamping:   c.Boundary.Damping,
		Iterations:        c.PBF.Iterations,
		Mass:              c.PBF.Mass,
		TensileK:          c.PBF.TensileK,
		TensileDeltaQ:     c.PBF.TensileDeltaQ,
		TensileExp:        c.PBF.TensileExp,
		LambdaEpsilon:     c.PBF.LambdaEpsilon,
		XSPH:              c.PBF.XSPH,
		ClampEpsilon:      c.Boundary.ClampEpsilon,
		MaxParticles:      c.Fluid.MaxParticles,
		DrawRadius:        c.Fluid.DrawRadius,
		Workers:           c.Workers,
	}
}

// Validate checks the run and simulation parameters. Whether the solver
// name has a constructor is up to the registry that builds it.
func (c *Config) Validate() error {
	if c.Solver == "" {
		return fmt.Errorf("%w: no solver named", sim.ErrUnknownSolver)
	}
	if !(c.Dt > 0) {
		return fmt.Errorf("%w: dt %g", sim.ErrInvalidParams, c.Dt)
	}
	if c.Steps < 0 {
		return fmt.Errorf("%w: steps %d", sim.ErrInvalidParams, c.Steps)
	}
	return c.Params().Validate()
}
