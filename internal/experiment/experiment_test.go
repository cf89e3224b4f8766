package experiment

import (
	"context"
	"errors"
	"testing"

	"github.com/san-kum/fluidsim/internal/config"
	"github.com/san-kum/fluidsim/internal/physics"
	"github.com/san-kum/fluidsim/internal/sim"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	for _, name := range []string{physics.ExplicitName, physics.PositionBasedName} {
		s, err := r.GetSolver(name)
		if err != nil {
			t.Fatalf("GetSolver(%q): %v", name, err)
		}
		if s.Name() != name {
			t.Errorf("solver name = %q, want %q", s.Name(), name)
		}
	}

	a, _ := r.GetSolver(physics.ExplicitName)
	b, _ := r.GetSolver(physics.ExplicitName)
	if a == b {
		t.Error("GetSolver returned a shared solver")
	}

	if _, err := r.GetSolver("flip"); !errors.Is(err, sim.ErrUnknownSolver) {
		t.Errorf("unknown solver error = %v", err)
	}
	if got := r.ListSolvers(); len(got) != 2 || got[0] != "pbf" || got[1] != "sph" {
		t.Errorf("ListSolvers() = %v", got)
	}
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	cfg := config.ForSolver("damped")
	cfg.Steps = 3

	if err := r.Validate(cfg); !errors.Is(err, sim.ErrUnknownSolver) {
		t.Fatalf("unregistered solver: err = %v", err)
	}

	r.Register("damped", func() sim.Solver { return physics.NewExplicit() })
	if err := r.Validate(cfg); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	exp, err := New(cfg, r)
	if err != nil {
		t.Fatal(err)
	}
	res, err := exp.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Steps != 3 {
		t.Errorf("steps = %d, want 3", res.Steps)
	}
	if got := r.ListSolvers(); len(got) != 3 {
		t.Errorf("ListSolvers() = %v", got)
	}
}

func TestRun_Pour(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Steps = 30
	cfg.Pour.Until = 12

	exp, err := New(cfg, NewRegistry(), WithSampleEvery(7))
	if err != nil {
		t.Fatal(err)
	}
	res, err := exp.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	// steps 0, 3, 6, 9 pour 9 particles each
	if n := exp.Simulation().Len(); n != 36 {
		t.Errorf("particles = %d, want 36", n)
	}
	if res.Steps != 30 || len(res.Final) != 36 {
		t.Errorf("steps %d final %d", res.Steps, len(res.Final))
	}
	// samples after steps 7, 14, 21, 28 and the final step 30
	if len(res.Times) != 5 {
		t.Errorf("samples = %d, want 5", len(res.Times))
	}
	for _, name := range res.Metrics {
		if len(res.Series[name]) != len(res.Times) {
			t.Errorf("series %q has %d samples, want %d", name, len(res.Series[name]), len(res.Times))
		}
	}
	if n, ok := res.Last("particles"); !ok || n != 36 {
		t.Errorf("last particle count = %v, %v", n, ok)
	}
}

func TestRun_Scene(t *testing.T) {
	cfg := config.GetPreset(physics.PositionBasedName, "square")
	cfg.Steps = 5

	exp, err := New(cfg, NewRegistry())
	if err != nil {
		t.Fatal(err)
	}
	if n := exp.Simulation().Len(); n != 28*28 {
		t.Fatalf("scene placed %d particles, want %d", n, 28*28)
	}
	if _, err := exp.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestRun_Cancelled(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Steps = 1000

	exp, err := New(cfg, NewRegistry())
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := exp.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if res == nil || res.Steps != 0 {
		t.Errorf("expected partial result with no steps, got %+v", res)
	}
}

func TestNew_Errors(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Solver = "flip"
	if _, err := New(cfg, NewRegistry()); !errors.Is(err, sim.ErrUnknownSolver) {
		t.Errorf("err = %v, want ErrUnknownSolver", err)
	}

	cfg = config.DefaultConfig()
	cfg.Fluid.MaxParticles = 10
	cfg.Scene = config.SceneConfig{X: 10, Y: 10, Cols: 5, Rows: 5, Spacing: 8}
	if _, err := New(cfg, NewRegistry()); !errors.Is(err, sim.ErrCapacity) {
		t.Errorf("err = %v, want ErrCapacity", err)
	}
}

func TestCompare(t *testing.T) {
	a := config.DefaultConfig()
	a.Steps = 20
	b := config.ForSolver(physics.PositionBasedName)
	b.Steps = 20

	results, err := Compare(context.Background(), []*config.Config{a, b, a}, NewRegistry(), nil, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("results = %d", len(results))
	}
	if results[0].Solver != physics.ExplicitName || results[1].Solver != physics.PositionBasedName {
		t.Errorf("results out of order: %s, %s", results[0].Solver, results[1].Solver)
	}
	// identical configs run concurrently still agree exactly
	ea, _ := results[0].Last("kinetic_energy")
	ec, _ := results[2].Last("kinetic_energy")
	if ea != ec {
		t.Errorf("concurrent identical runs diverged: %v vs %v", ea, ec)
	}
}

func TestCompare_Fails(t *testing.T) {
	bad := config.DefaultConfig()
	bad.Dt = 0
	if _, err := Compare(context.Background(), []*config.Config{config.DefaultConfig(), bad}, NewRegistry(), nil, 1); err == nil {
		t.Error("expected error from invalid config")
	}
}
