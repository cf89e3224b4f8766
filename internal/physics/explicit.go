package physics

import (
	"github.com/san-kum/fluidsim/internal/integrators"
	"github.com/san-kum/fluidsim/internal/neighbor"
	"github.com/san-kum/fluidsim/internal/sim"
	"gonum.org/v1/gonum/spatial/r2"
)

// Explicit is a pairwise SPH solver with a linear kernel. Each pair scatters
// equal and opposite forces, so total momentum from interactions is zero.
type Explicit struct {
	finder *neighbor.Finder
	h      float64
}

func NewExplicit() *Explicit { return &Explicit{} }

func (e *Explicit) Name() string                  { return ExplicitName }
func (e *Explicit) CellSize(p sim.Params) float64 { return p.Radius }

func (e *Explicit) Step(w *sim.World, dt float64) {
	p := w.Params
	ps := w.Particles
	if e.finder == nil || e.h != p.Radius {
		e.finder = neighbor.NewFinder(p.Radius)
		e.h = p.Radius
	}

	for i := range ps {
		ps[i].Force = r2.Vec{}
		ps[i].Density = 0
	}
	neighbor.Rebuild(ps, w.Grid, neighbor.Current)
	pairs := e.finder.Pairs(ps, w.Grid)

	for _, pr := range pairs {
		w3 := pr.Weight * pr.Weight * pr.Weight
		ps[pr.A].Density += w3
		ps[pr.B].Density += w3
	}
	Pressure(ps, p.RestDensity)

	for _, pr := range pairs {
		a, b := &ps[pr.A], &ps[pr.B]
		sum := a.Density + b.Density

		pw := pr.Weight * (a.Pressure + b.Pressure) / sum * p.Pressure
		fp := r2.Scale(pw, pr.Normal)

		vw := pr.Weight / sum * p.Viscosity
		fv := r2.Scale(vw, r2.Sub(b.Vel, a.Vel))

		f := r2.Add(fp, fv)
		a.Force = r2.Add(a.Force, f)
		b.Force = r2.Sub(b.Force, f)
	}

	integrators.SemiImplicitEuler(ps, w.Gravity, dt)
	integrators.SoftBoundary(ps, p.Domain(), p.Margin, p.BoundaryStiffness, p.BoundaryDamping)
}

// Pressure floors each density at rest and sets pressure to the excess.
// Isolated particles end with Density == rest and zero pressure.
func Pressure(ps []sim.Particle, rest float64) {
	for i := range ps {
		if ps[i].Density < rest {
			ps[i].Density = rest
		}
		ps[i].Pressure = ps[i].Density - rest
	}
}
