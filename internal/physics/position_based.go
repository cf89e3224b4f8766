package physics

import (
	"github.com/san-kum/fluidsim/internal/grid"
	"github.com/san-kum/fluidsim/internal/integrators"
	"github.com/san-kum/fluidsim/internal/kernel"
	"github.com/san-kum/fluidsim/internal/neighbor"
	"github.com/san-kum/fluidsim/internal/sim"
	"gonum.org/v1/gonum/spatial/r2"
)

// PositionBased is a Position Based Fluids solver (Macklin & Muller 2013).
// Instead of integrating pressure forces it projects predicted positions
// onto a constant-density constraint a fixed number of times per step.
//
// Every per-particle pass reads only state written by an earlier pass, so
// passes fan out across Params.Workers and give the same result for any
// worker count.
type PositionBased struct {
	k   kernel.Kernels
	h   float64
	wdq float64 // Poly6 at the tensile reference distance

	bufs [][]int
	vel  []r2.Vec
}

func NewPositionBased() *PositionBased { return &PositionBased{} }

func (b *PositionBased) Name() string                  { return PositionBasedName }
func (b *PositionBased) CellSize(p sim.Params) float64 { return 2 * p.Radius }

func (b *PositionBased) prepare(p sim.Params, n int) int {
	if b.h != p.Radius {
		b.k = kernel.New(p.Radius)
		b.h = p.Radius
	}
	b.wdq = b.k.Poly6(p.TensileDeltaQ * p.TensileDeltaQ)
	workers := max(p.Workers, 1)
	for len(b.bufs) < workers {
		b.bufs = append(b.bufs, make([]int, 0, 64))
	}
	if cap(b.vel) < n {
		b.vel = make([]r2.Vec, n)
	}
	b.vel = b.vel[:n]
	return workers
}

func (b *PositionBased) Step(w *sim.World, dt float64) {
	p := w.Params
	ps := w.Particles
	n := len(ps)
	workers := b.prepare(p, n)
	box := p.Domain()

	for i := range ps {
		ps[i].Vel = r2.Add(ps[i].Vel, r2.Scale(dt, w.Gravity))
		ps[i].Predicted = r2.Add(ps[i].Pos, r2.Scale(dt, ps[i].Vel))
	}
	integrators.ClampPredicted(ps, box, p.ClampEpsilon)
	neighbor.Rebuild(ps, w.Grid, neighbor.Predicted)

	for iter := 0; iter < p.Iterations; iter++ {
		sim.ParallelFor(n, workers, func(wk, start, end int) {
			for i := start; i < end; i++ {
				b.bufs[wk] = b.lambda(ps, w.Grid, i, &p, b.bufs[wk])
			}
		})
		sim.ParallelFor(n, workers, func(wk, start, end int) {
			for i := start; i < end; i++ {
				b.bufs[wk] = b.delta(ps, w.Grid, i, &p, b.bufs[wk])
			}
		})
		for i := range ps {
			ps[i].Predicted = integrators.Clamp(r2.Add(ps[i].Predicted, ps[i].Delta), box, p.ClampEpsilon)
		}
	}

	inv := 1 / dt
	for i := range ps {
		ps[i].Vel = r2.Scale(inv, r2.Sub(ps[i].Predicted, ps[i].Pos))
		b.vel[i] = ps[i].Vel
	}
	if p.XSPH != 0 {
		sim.ParallelFor(n, workers, func(wk, start, end int) {
			for i := start; i < end; i++ {
				b.bufs[wk] = b.xsph(ps, w.Grid, i, p.XSPH, b.bufs[wk])
			}
		})
	}
	for i := range ps {
		ps[i].Pos = ps[i].Predicted
	}
}

// lambda computes particle i's density and constraint multiplier.
func (b *PositionBased) lambda(ps []sim.Particle, g *grid.Grid, i int, p *sim.Params, buf []int) []int {
	buf = neighbor.Gather(ps, g, i, b.k.H2, neighbor.Predicted, buf)
	pi := ps[i].Predicted
	inv := 1 / p.RestDensity

	density := 0.0
	for _, j := range buf {
		density += p.Mass * b.k.Poly6At(pi, ps[j].Predicted)
	}
	c := density*inv - 1

	var sum r2.Vec
	mag := 0.0
	for _, j := range buf {
		grad := r2.Scale(inv, b.k.SpikyGrad(pi, ps[j].Predicted))
		sum = r2.Add(sum, grad)
		mag += r2.Norm2(grad)
	}
	mag += r2.Norm2(sum)

	ps[i].Density = density
	ps[i].Lambda = -c / (mag + p.LambdaEpsilon)
	return buf
}

// delta computes particle i's position correction, including the tensile
// term that keeps sparse regions from clumping.
func (b *PositionBased) delta(ps []sim.Particle, g *grid.Grid, i int, p *sim.Params, buf []int) []int {
	buf = neighbor.Gather(ps, g, i, b.k.H2, neighbor.Predicted, buf)
	pi := ps[i].Predicted
	li := ps[i].Lambda

	var d r2.Vec
	for _, j := range buf {
		pj := ps[j].Predicted
		corr := 0.0
		if b.wdq > 0 {
			corr = -p.TensileK * ipow(b.k.Poly6At(pi, pj)/b.wdq, p.TensileExp)
		}
		d = r2.Add(d, r2.Scale(li+ps[j].Lambda+corr, b.k.SpikyGrad(pi, pj)))
	}
	ps[i].Delta = r2.Scale(1/p.RestDensity, d)
	return buf
}

// xsph blends particle i's velocity toward its neighbors' using the velocity
// snapshot in b.vel.
func (b *PositionBased) xsph(ps []sim.Particle, g *grid.Grid, i int, c float64, buf []int) []int {
	buf = neighbor.Gather(ps, g, i, b.k.H2, neighbor.Predicted, buf)
	pi := ps[i].Predicted
	vi := b.vel[i]

	var acc r2.Vec
	for _, j := range buf {
		w := b.k.Poly6At(pi, ps[j].Predicted)
		acc = r2.Add(acc, r2.Scale(w, r2.Sub(b.vel[j], vi)))
	}
	ps[i].Vel = r2.Add(vi, r2.Scale(c, acc))
	return buf
}

func ipow(x float64, n int) float64 {
	r := 1.0
	for ; n > 0; n-- {
		r *= x
	}
	return r
}
