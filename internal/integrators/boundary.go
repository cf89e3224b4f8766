package integrators

import (
	"github.com/san-kum/fluidsim/internal/sim"
	"gonum.org/v1/gonum/spatial/r2"
)

// SoftBoundary pushes particles that drifted past the margin back toward the
// interior with a damped spring on velocity. Positions are not moved; a
// particle may sit outside the margin for a few steps, but its velocity
// normal to that edge never points outward after this call.
func SoftBoundary(ps []sim.Particle, box r2.Box, margin, stiffness, damping float64) {
	lo := r2.Add(box.Min, r2.Vec{X: margin, Y: margin})
	hi := r2.Sub(box.Max, r2.Vec{X: margin, Y: margin})
	for i := range ps {
		p := &ps[i]
		p.Vel.X = spring(p.Pos.X, p.Vel.X, lo.X, hi.X, stiffness, damping)
		p.Vel.Y = spring(p.Pos.Y, p.Vel.Y, lo.Y, hi.Y, stiffness, damping)
	}
}

func spring(x, v, lo, hi, k, d float64) float64 {
	switch {
	case x < lo:
		v += (lo-x)*k - v*d
		if v < 0 {
			v = 0
		}
	case x > hi:
		v += (hi-x)*k - v*d
		if v > 0 {
			v = 0
		}
	}
	return v
}

// Clamp returns p limited to [Min+eps, Max-eps] on both axes.
func Clamp(p r2.Vec, box r2.Box, eps float64) r2.Vec {
	return r2.Vec{
		X: clamp(p.X, box.Min.X+eps, box.Max.X-eps),
		Y: clamp(p.Y, box.Min.Y+eps, box.Max.Y-eps),
	}
}

// ClampPredicted applies Clamp to every predicted position.
func ClampPredicted(ps []sim.Particle, box r2.Box, eps float64) {
	for i := range ps {
		ps[i].Predicted = Clamp(ps[i].Predicted, box, eps)
	}
}

func clamp(v, lo, hi float64) float64 {
	if !(v >= lo) {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
