package config

import (
	"math"
	"sort"

	"github.com/san-kum/fluidsim/internal/physics"
)

var Presets = map[string]map[string]*Config{
	physics.ExplicitName: {
		"pour": ForSolver(physics.ExplicitName),
		"block": with(ForSolver(physics.ExplicitName), func(c *Config) {
			c.Scene = SceneConfig{X: 100, Y: 100, Cols: 10, Rows: 10, Spacing: 8}
			c.Pour = PourConfig{}
			c.Steps = 400
		}),
		"dambreak": with(ForSolver(physics.ExplicitName), func(c *Config) {
			c.Scene = SceneConfig{X: 12, Y: 160, Cols: 24, Rows: 40, Spacing: 7}
			c.Pour = PourConfig{}
			c.Steps = 800
		}),
		"sideways": with(ForSolver(physics.ExplicitName), func(c *Config) {
			c.Fluid.Gravity.X, c.Fluid.Gravity.Y = 0.025, 0
			c.Scene = SceneConfig{X: 100, Y: 100, Cols: 16, Rows: 16, Spacing: 8}
			c.Pour = PourConfig{}
		}),
	},
	physics.PositionBasedName: {
		"square": with(ForSolver(physics.PositionBasedName), func(c *Config) {
			side := int(math.Sqrt(800))
			c.Scene = SceneConfig{X: 50, Y: 100, Cols: side, Rows: side, Spacing: 15}
			c.Pour = PourConfig{}
			c.Steps = 400
		}),
		"pour": ForSolver(physics.PositionBasedName),
		"parallel": with(ForSolver(physics.PositionBasedName), func(c *Config) {
			side := int(math.Sqrt(1600))
			c.Scene = SceneConfig{X: 60, Y: 40, Cols: side, Rows: side, Spacing: 12}
			c.Pour = PourConfig{}
			c.Workers = 4
			c.Steps = 400
		}),
	},
}

func with(c *Config, fn func(*Config)) *Config {
	fn(c)
	return c
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(solver, preset string) *Config {
	solverPresets, ok := Presets[solver]
	if !ok {
		return nil
	}
	cfg, ok := solverPresets[preset]
	if !ok {
		return nil
	}
	c := *cfg
	return &c
}

func ListPresets(solver string) []string {
	solverPresets, ok := Presets[solver]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(solverPresets))
	for name := range solverPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListSolvers returns the solver names that have presets.
func ListSolvers() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
