package optim

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/fluidsim/internal/config"
	"github.com/san-kum/fluidsim/internal/experiment"
)

// Setters are the config fields a search can vary, by name.
var Setters = map[string]func(*config.Config, float64){
	"viscosity":    func(c *config.Config, v float64) { c.Fluid.Viscosity = v },
	"pressure":     func(c *config.Config, v float64) { c.Fluid.Pressure = v },
	"rest_density": func(c *config.Config, v float64) { c.Fluid.RestDensity = v },
	"radius":       func(c *config.Config, v float64) { c.Fluid.Radius = v },
	"stiffness":    func(c *config.Config, v float64) { c.Boundary.Stiffness = v },
	"damping":      func(c *config.Config, v float64) { c.Boundary.Damping = v },
	"iterations":   func(c *config.Config, v float64) { c.PBF.Iterations = int(v) },
	"xsph":         func(c *config.Config, v float64) { c.PBF.XSPH = v },
	"gravity_x":    func(c *config.Config, v float64) { c.Fluid.Gravity.X = v },
	"gravity_y":    func(c *config.Config, v float64) { c.Fluid.Gravity.Y = v },
	"dt":           func(c *config.Config, v float64) { c.Dt = v },
}

// ParamNames lists the names accepted by Setters.
func ParamNames() []string {
	names := make([]string, 0, len(Setters))
	for name := range Setters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Trial is one evaluated point of the grid.
type Trial struct {
	Params map[string]float64
	Value  float64
	Err    error
}

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) (*GridSearch, error) {
	if len(params) != len(ranges) {
		return nil, fmt.Errorf("%d params but %d ranges", len(params), len(ranges))
	}
	for _, name := range params {
		if _, ok := Setters[name]; !ok {
			return nil, fmt.Errorf("unknown parameter %q (available: %v)", name, ParamNames())
		}
	}
	return &GridSearch{paramNames: params, ranges: ranges}, nil
}

// Search runs base once per grid point and returns every trial together
// with the index of the one whose final metric value is smallest (largest
// when maximize is set). Trials that fail to build or run keep their error
// and are never chosen; best is -1 when every trial failed.
func (g *GridSearch) Search(
	ctx context.Context,
	base *config.Config,
	reg *experiment.Registry,
	metricName string,
	maximize bool,
) (trials []Trial, best int, err error) {
	best = -1
	bestVal := math.Inf(1)

	err = g.searchRecursive(ctx, 0, make(map[string]float64), func(params map[string]float64) {
		val, runErr := evaluate(ctx, base, reg, params, metricName)
		trials = append(trials, Trial{Params: params, Value: val, Err: runErr})
		if runErr != nil {
			return
		}
		score := val
		if maximize {
			score = -val
		}
		if score < bestVal {
			bestVal, best = score, len(trials)-1
		}
	})
	return trials, best, err
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	visit func(map[string]float64),
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if depth == len(g.paramNames) {
		visit(current)
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64, len(current)+1)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, visit); err != nil {
			return err
		}
	}
	return nil
}

func evaluate(ctx context.Context, base *config.Config, reg *experiment.Registry, params map[string]float64, metricName string) (float64, error) {
	cfg := *base
	for name, v := range params {
		Setters[name](&cfg, v)
	}

	exp, err := experiment.New(&cfg, reg, experiment.WithSampleEvery(max(cfg.Steps, 1)))
	if err != nil {
		return 0, err
	}
	result, err := exp.Run(ctx)
	if err != nil {
		return 0, err
	}
	val, ok := result.Last(metricName)
	if !ok {
		return 0, fmt.Errorf("metric %q not recorded", metricName)
	}
	return val, nil
}
