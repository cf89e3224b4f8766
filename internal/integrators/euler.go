package integrators

import (
	"github.com/san-kum/fluidsim/internal/sim"
	"gonum.org/v1/gonum/spatial/r2"
)

// SemiImplicitEuler updates velocity from gravity plus the accumulated force,
// then moves each particle with the new velocity.
func SemiImplicitEuler(ps []sim.Particle, g r2.Vec, dt float64) {
	for i := range ps {
		p := &ps[i]
		acc := r2.Add(g, p.Force)
		p.Vel = r2.Add(p.Vel, r2.Scale(dt, acc))
		p.Pos = r2.Add(p.Pos, r2.Scale(dt, p.Vel))
	}
}
