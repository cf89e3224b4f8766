package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/fluidsim/internal/config"
	"github.com/san-kum/fluidsim/internal/physics"
	"github.com/san-kum/fluidsim/internal/sim"
)

// Registry maps solver names to constructors. Each call builds a fresh
// solver since solvers hold per-simulation scratch buffers.
type Registry struct {
	solvers map[string]func() sim.Solver
}

func NewRegistry() *Registry {
	r := &Registry{
		solvers: make(map[string]func() sim.Solver),
	}

	r.Register(physics.ExplicitName, func() sim.Solver { return physics.NewExplicit() })
	r.Register(physics.PositionBasedName, func() sim.Solver { return physics.NewPositionBased() })

	return r
}

// Register adds or replaces the constructor for name.
func (r *Registry) Register(name string, fn func() sim.Solver) {
	r.solvers[name] = fn
}

func (r *Registry) GetSolver(name string) (sim.Solver, error) {
	fn, ok := r.solvers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", sim.ErrUnknownSolver, name)
	}
	return fn(), nil
}

// Validate checks that cfg names a registered solver and that its
// parameters are usable.
func (r *Registry) Validate(cfg *config.Config) error {
	if _, ok := r.solvers[cfg.Solver]; !ok {
		return fmt.Errorf("%w: %q (available: %v)", sim.ErrUnknownSolver, cfg.Solver, r.ListSolvers())
	}
	return cfg.Validate()
}

func (r *Registry) ListSolvers() []string {
	names := make([]string, 0, len(r.solvers))
	for name := range r.solvers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
