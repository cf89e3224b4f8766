package automation

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/san-kum/fluidsim/internal/config"
	"github.com/san-kum/fluidsim/internal/experiment"
	"github.com/san-kum/fluidsim/internal/optim"
	"github.com/san-kum/fluidsim/internal/physics"
	"gopkg.in/yaml.v3"
)

// Scenario is a scripted sequence of runs.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`

	dir string
}

// ScenarioStep describes one run. The base configuration is the config file
// if given, else the preset, else the solver defaults; Steps, Workers and
// Params are applied on top.
type ScenarioStep struct {
	Name    string             `yaml:"name"`
	Solver  string             `yaml:"solver"`
	Preset  string             `yaml:"preset"`
	Config  string             `yaml:"config"`
	Steps   int                `yaml:"steps"`
	Workers int                `yaml:"workers"`
	Params  map[string]float64 `yaml:"params"`
}

// LoadScenario loads a scenario from a YAML file. Config paths inside it are
// relative to the file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %s has no steps", path)
	}
	scenario.dir = filepath.Dir(path)
	return &scenario, nil
}

// Config builds the run configuration for step i.
func (s *Scenario) Config(i int) (*config.Config, error) {
	step := s.Steps[i]
	solver := step.Solver
	if solver == "" {
		solver = physics.ExplicitName
	}

	var cfg *config.Config
	switch {
	case step.Config != "":
		path := step.Config
		if !filepath.IsAbs(path) {
			path = filepath.Join(s.dir, path)
		}
		c, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = c
	case step.Preset != "":
		if cfg = config.GetPreset(solver, step.Preset); cfg == nil {
			return nil, fmt.Errorf("unknown preset %s/%s", solver, step.Preset)
		}
	default:
		cfg = config.ForSolver(solver)
	}

	if step.Steps > 0 {
		cfg.Steps = step.Steps
	}
	if step.Workers > 0 {
		cfg.Workers = step.Workers
	}
	for name, v := range step.Params {
		set, ok := optim.Setters[name]
		if !ok {
			return nil, fmt.Errorf("unknown parameter %q (available: %v)", name, optim.ParamNames())
		}
		set(cfg, v)
	}
	return cfg, nil
}

// RunScenario executes the steps in order. It stops at the first failure and
// returns the results gathered so far.
func RunScenario(ctx context.Context, scenario *Scenario, registry *experiment.Registry, logger *log.Logger) ([]*experiment.Result, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	results := make([]*experiment.Result, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		name := step.Name
		if name == "" {
			name = fmt.Sprintf("step %d", i+1)
		}
		logger.Info("scenario step", "n", i+1, "of", len(scenario.Steps), "name", name)

		cfg, err := scenario.Config(i)
		if err != nil {
			return results, fmt.Errorf("%s: %w", name, err)
		}
		exp, err := experiment.New(cfg, registry, experiment.WithLogger(logger.With("step", name)))
		if err != nil {
			return results, fmt.Errorf("%s setup: %w", name, err)
		}
		result, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("%s run: %w", name, err)
		}
		results = append(results, result)
	}

	return results, nil
}
