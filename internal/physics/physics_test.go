package physics

import (
	"fmt"
	"math"
	"testing"

	"github.com/san-kum/fluidsim/internal/grid"
	"github.com/san-kum/fluidsim/internal/kernel"
	"github.com/san-kum/fluidsim/internal/neighbor"
	"github.com/san-kum/fluidsim/internal/sim"
	"gonum.org/v1/gonum/spatial/r2"
)

func world(p sim.Params, s sim.Solver, pts ...r2.Vec) *sim.World {
	w := &sim.World{
		Grid:    grid.New(p.Width, p.Height, s.CellSize(p)),
		Params:  p,
		Gravity: p.Gravity,
	}
	for _, pt := range pts {
		w.Particles = append(w.Particles, sim.Particle{Pos: pt, Predicted: pt})
	}
	return w
}

func TestPressure(t *testing.T) {
	tests := []struct {
		name              string
		density, rest     float64
		wantDensity, want float64
	}{
		{"isolated", 0, 0.1, 0.1, 0},
		{"below rest", 0.05, 0.1, 0.1, 0},
		{"at rest", 0.1, 0.1, 0.1, 0},
		{"compressed", 0.35, 0.1, 0.35, 0.25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ps := []sim.Particle{{Density: tt.density}}
			Pressure(ps, tt.rest)
			if ps[0].Density != tt.wantDensity {
				t.Errorf("Density = %v, want %v", ps[0].Density, tt.wantDensity)
			}
			if math.Abs(ps[0].Pressure-tt.want) > 1e-12 {
				t.Errorf("Pressure = %v, want %v", ps[0].Pressure, tt.want)
			}
		})
	}
}

func TestExplicit_MomentumSymmetry(t *testing.T) {
	p := sim.DefaultParams()
	p.Gravity = r2.Vec{}
	e := NewExplicit()
	w := world(p, e, r2.Vec{X: 100, Y: 100}, r2.Vec{X: 105, Y: 100})
	w.Particles[0].Vel = r2.Vec{X: 0.3, Y: -0.1}
	w.Particles[1].Vel = r2.Vec{X: -0.2, Y: 0.4}

	e.Step(w, 1)

	a, b := w.Particles[0], w.Particles[1]
	if sum := r2.Add(a.Force, b.Force); r2.Norm(sum) > 1e-12 {
		t.Errorf("net interaction force = %v, want zero", sum)
	}
	if a.Force == (r2.Vec{}) {
		t.Fatal("pair within h produced no force")
	}

	// weight 0.5: each density is 0.125, each pressure 0.025
	if math.Abs(a.Density-0.125) > 1e-12 || math.Abs(b.Density-0.125) > 1e-12 {
		t.Errorf("densities = %v, %v, want 0.125", a.Density, b.Density)
	}
	// pressure pushes A (on the left) further left
	if wantX := -0.5*0.05/0.25*2 + 0.5/0.25*0.05*(-0.5); math.Abs(a.Force.X-wantX) > 1e-12 {
		t.Errorf("A.Force.X = %v, want %v", a.Force.X, wantX)
	}
}

func TestExplicit_IsolatedParticle(t *testing.T) {
	p := sim.DefaultParams()
	e := NewExplicit()
	w := world(p, e, r2.Vec{X: 200, Y: 200})

	e.Step(w, 1)

	got := w.Particles[0]
	if got.Density != p.RestDensity || got.Pressure != 0 {
		t.Errorf("isolated density/pressure = %v/%v, want %v/0", got.Density, got.Pressure, p.RestDensity)
	}
	if got.Force != (r2.Vec{}) {
		t.Errorf("isolated force = %v, want zero", got.Force)
	}
	if got.Vel != p.Gravity {
		t.Errorf("vel = %v, want gravity %v", got.Vel, p.Gravity)
	}
}

func TestPositionBased_Containment(t *testing.T) {
	p := sim.PositionBasedParams()
	b := NewPositionBased()
	var pts []r2.Vec
	for x := 0; x < 12; x++ {
		for y := 0; y < 12; y++ {
			pts = append(pts, r2.Vec{X: 10 + float64(x)*15, Y: 400 + float64(y)*15})
		}
	}
	w := world(p, b, pts...)
	w.Particles[0].Vel = r2.Vec{X: -5000, Y: 9000}

	for step := 0; step < 60; step++ {
		b.Step(w, 0.005)
		for i, pt := range w.Particles {
			if pt.Pos.X < p.ClampEpsilon || pt.Pos.X > p.Width-p.ClampEpsilon ||
				pt.Pos.Y < p.ClampEpsilon || pt.Pos.Y > p.Height-p.ClampEpsilon {
				t.Fatalf("step %d: particle %d escaped to %v", step, i, pt.Pos)
			}
		}
	}
}

func TestPositionBased_FreeFall(t *testing.T) {
	p := sim.PositionBasedParams()
	b := NewPositionBased()
	w := world(p, b, r2.Vec{X: 400, Y: 100})

	b.Step(w, 0.005)

	got := w.Particles[0]
	if got.Density != 0 {
		t.Errorf("lone particle density = %v, want 0", got.Density)
	}
	if math.Abs(got.Vel.Y-5) > 1e-9 || got.Vel.X != 0 {
		t.Errorf("vel = %v, want (0, 5)", got.Vel)
	}
	if math.Abs(got.Pos.Y-100.025) > 1e-9 {
		t.Errorf("pos = %v, want y 100.025", got.Pos)
	}
}

func TestPositionBased_Workers(t *testing.T) {
	run := func(workers int) []sim.Particle {
		p := sim.PositionBasedParams()
		p.Workers = workers
		b := NewPositionBased()
		var pts []r2.Vec
		for x := 0; x < 20; x++ {
			for y := 0; y < 20; y++ {
				pts = append(pts, r2.Vec{X: 50 + float64(x)*15, Y: 100 + float64(y)*15})
			}
		}
		w := world(p, b, pts...)
		for i := 0; i < 25; i++ {
			b.Step(w, 0.005)
		}
		return w.Particles
	}

	serial, parallel := run(1), run(4)
	for i := range serial {
		if serial[i] != parallel[i] {
			t.Fatalf("particle %d differs: 1 worker %+v, 4 workers %+v", i, serial[i], parallel[i])
		}
	}
}

func TestPositionBased_Coincident(t *testing.T) {
	p := sim.PositionBasedParams()
	b := NewPositionBased()
	w := world(p, b, r2.Vec{X: 400, Y: 100}, r2.Vec{X: 400, Y: 100})

	b.Step(w, 0.005)

	for i, got := range w.Particles {
		if got.Lambda != 1 || got.Density != 0 {
			t.Errorf("particle %d: lambda = %v density = %v, want 1 and 0", i, got.Lambda, got.Density)
		}
		if math.Abs(got.Vel.Y-5) > 1e-9 || got.Vel.X != 0 || math.Abs(got.Pos.Y-100.025) > 1e-9 {
			t.Errorf("particle %d: pos %v vel %v, want free fall", i, got.Pos, got.Vel)
		}
	}
}

// Three particles on a line, 5 apart, with h = 25 and dq = 5. Densities,
// multipliers and corrections are written out from the kernel formulas.
func TestPositionBased_LambdaDelta(t *testing.T) {
	p := sim.PositionBasedParams()
	b := NewPositionBased()
	w := world(p, b, r2.Vec{X: 395, Y: 300}, r2.Vec{X: 400, Y: 300}, r2.Vec{X: 405, Y: 300})
	ps := w.Particles

	b.prepare(p, len(ps))
	neighbor.Rebuild(ps, w.Grid, neighbor.Predicted)
	for i := range ps {
		b.bufs[0] = b.lambda(ps, w.Grid, i, &p, b.bufs[0])
	}
	for i := range ps {
		b.bufs[0] = b.delta(ps, w.Grid, i, &p, b.bufs[0])
	}

	h, rho0, eps := p.Radius, p.RestDensity, p.LambdaEpsilon
	poly6 := func(r float64) float64 { return 315 / (64 * math.Pi * math.Pow(h, 9)) * math.Pow(h*h-r*r, 3) }
	grad := func(r float64) float64 { return 45 / (math.Pi * math.Pow(h, 6)) * (h - r) * (h - r) / rho0 }
	w5, w10 := poly6(5), poly6(10)
	g5, g10 := grad(5), grad(10)

	lambdaMid := -(2*w5/rho0 - 1) / (2*g5*g5 + eps)
	lambdaEnd := -((w5+w10)/rho0 - 1) / (g5*g5 + g10*g10 + (g5+g10)*(g5+g10) + eps)
	corr5 := -p.TensileK
	corr10 := -p.TensileK * math.Pow(w10/w5, float64(p.TensileExp))
	deltaEnd := (lambdaEnd+lambdaMid+corr5)*g5 + (2*lambdaEnd+corr10)*g10

	near := func(got, want float64) bool { return math.Abs(got-want) <= 1e-9*math.Max(1, math.Abs(want)) }

	if !near(ps[1].Density, 2*w5) || !near(ps[0].Density, w5+w10) {
		t.Errorf("density = %v, %v", ps[0].Density, ps[1].Density)
	}
	if !near(ps[1].Lambda, lambdaMid) {
		t.Errorf("middle lambda = %v, want %v", ps[1].Lambda, lambdaMid)
	}
	for _, i := range []int{0, 2} {
		if !near(ps[i].Lambda, lambdaEnd) {
			t.Errorf("end %d lambda = %v, want %v", i, ps[i].Lambda, lambdaEnd)
		}
	}
	if !near(ps[0].Delta.X, deltaEnd) || !near(ps[2].Delta.X, -deltaEnd) {
		t.Errorf("end deltas = %v, %v, want x %v and %v", ps[0].Delta, ps[2].Delta, deltaEnd, -deltaEnd)
	}
	if math.Abs(ps[1].Delta.X) > 1e-9 || ps[0].Delta.Y != 0 || ps[1].Delta.Y != 0 {
		t.Errorf("middle delta = %v, end delta = %v", ps[1].Delta, ps[0].Delta)
	}
}

func TestPositionBased_CompressedClusterSpreads(t *testing.T) {
	p := sim.PositionBasedParams()
	p.Gravity = r2.Vec{}
	b := NewPositionBased()
	var pts []r2.Vec
	for y := -1; y <= 1; y++ {
		for x := -1; x <= 1; x++ {
			pts = append(pts, r2.Vec{X: 400 + 4*float64(x), Y: 300 + 4*float64(y)})
		}
	}
	w := world(p, b, pts...)
	k := kernel.New(p.Radius)
	const centre = 4

	spreadBefore, densityBefore := spread(w.Particles), densityAt(w.Particles, centre, k, p.Mass)
	if densityBefore <= p.RestDensity {
		t.Fatalf("cluster not compressed: density %v <= %v", densityBefore, p.RestDensity)
	}

	b.Step(w, 0.005)

	if after := spread(w.Particles); after <= spreadBefore {
		t.Errorf("spread %v -> %v, want growth", spreadBefore, after)
	}
	after := densityAt(w.Particles, centre, k, p.Mass)
	if math.Abs(after-p.RestDensity) >= math.Abs(densityBefore-p.RestDensity) {
		t.Errorf("centre density %v -> %v, want closer to %v", densityBefore, after, p.RestDensity)
	}
}

func TestPositionBased_XSPHBlends(t *testing.T) {
	p := sim.PositionBasedParams()
	p.Gravity = r2.Vec{}
	p.Iterations = 0
	p.XSPH = 1000
	b := NewPositionBased()
	w := world(p, b, r2.Vec{X: 400, Y: 300}, r2.Vec{X: 405, Y: 300})
	w.Particles[0].Vel = r2.Vec{X: 10}
	w.Particles[1].Vel = r2.Vec{X: -10}

	b.Step(w, 0.005)

	a, c := w.Particles[0], w.Particles[1]
	weight := kernel.New(p.Radius).Poly6At(a.Pos, c.Pos)
	want := 10 - p.XSPH*weight*20
	if math.Abs(a.Vel.X-want) > 1e-6 || math.Abs(c.Vel.X+want) > 1e-6 {
		t.Errorf("vel = %v, %v, want x %v and %v", a.Vel, c.Vel, want, -want)
	}
	if rel := a.Vel.X - c.Vel.X; rel <= 0 || rel >= 20 {
		t.Errorf("relative velocity %v, want in (0, 20)", rel)
	}
}

func spread(ps []sim.Particle) float64 {
	var c r2.Vec
	for _, pt := range ps {
		c = r2.Add(c, pt.Pos)
	}
	c = r2.Scale(1/float64(len(ps)), c)
	sum := 0.0
	for _, pt := range ps {
		sum += r2.Norm(r2.Sub(pt.Pos, c))
	}
	return sum / float64(len(ps))
}

func densityAt(ps []sim.Particle, i int, k kernel.Kernels, mass float64) float64 {
	d := 0.0
	for j := range ps {
		if j != i {
			d += mass * k.Poly6At(ps[i].Pos, ps[j].Pos)
		}
	}
	return d
}

func TestIpow(t *testing.T) {
	if got := ipow(0.5, 4); got != 0.0625 {
		t.Errorf("ipow(0.5, 4) = %v", got)
	}
	if got := ipow(3, 0); got != 1 {
		t.Errorf("ipow(3, 0) = %v", got)
	}
}

func BenchmarkExplicitStep(b *testing.B) {
	p := sim.DefaultParams()
	e := NewExplicit()
	var pts []r2.Vec
	for i := 0; i < 1000; i++ {
		pts = append(pts, r2.Vec{X: 40 + float64(i%40)*7, Y: 100 + float64(i/40)*7})
	}
	w := world(p, e, pts...)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.Step(w, 1)
	}
}

func BenchmarkPositionBasedStep(b *testing.B) {
	for _, workers := range []int{1, 4} {
		b.Run(fmt.Sprintf("workers=%d", workers), func(b *testing.B) {
			p := sim.PositionBasedParams()
			p.Workers = workers
			s := NewPositionBased()
			var pts []r2.Vec
			for i := 0; i < 800; i++ {
				pts = append(pts, r2.Vec{X: 50 + float64(i%28)*15, Y: 100 + float64(i/28)*15})
			}
			w := world(p, s, pts...)

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				s.Step(w, 0.005)
			}
		})
	}
}
