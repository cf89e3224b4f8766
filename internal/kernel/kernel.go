// Package kernel holds the smoothing kernels shared by both fluid solvers.
//
// Every method is a pure function of its arguments and the radius fixed in
// [New], so evaluation order never changes a result.
package kernel

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Kernels evaluates the Poly6, Spiky-gradient and linear kernels for a fixed
// interaction radius h.
type Kernels struct {
	H   float64
	H2  float64
	c6  float64 // 315 / (64 pi h^9)
	cs  float64 // -45 / (pi h^6)
	inv float64 // 1 / h
}

func New(h float64) Kernels {
	return Kernels{
		H:   h,
		H2:  h * h,
		c6:  315.0 / (64.0 * math.Pi * math.Pow(h, 9)),
		cs:  -45.0 / (math.Pi * math.Pow(h, 6)),
		inv: 1.0 / h,
	}
}

// Poly6 takes a squared distance. Zero outside the support and at d2 <= 0.
func (k Kernels) Poly6(d2 float64) float64 {
	if d2 > k.H2 || d2 <= 0 {
		return 0
	}
	x := k.H2 - d2
	return k.c6 * x * x * x
}

func (k Kernels) Poly6At(pi, pj r2.Vec) float64 {
	return k.Poly6(r2.Norm2(r2.Sub(pi, pj)))
}

// SpikyGrad returns the Spiky gradient for the displacement pi - pj. The
// result points along that displacement scaled by Cs (h - r)^2, so it is
// negative, pulling pi toward pj.
func (k Kernels) SpikyGrad(pi, pj r2.Vec) r2.Vec {
	d := r2.Sub(pi, pj)
	d2 := r2.Norm2(d)
	if d2 > k.H2 || d2 <= 0 {
		return r2.Vec{}
	}
	r := math.Sqrt(d2)
	x := k.H - r
	return r2.Scale(k.cs*x*x/r, d)
}

// Linear is the cheap pair weight of the explicit solver, 1 - dist/h.
// Callers only pass 0 < dist < h, so the result lies in (0, 1).
func (k Kernels) Linear(dist float64) float64 {
	return 1.0 - dist*k.inv
}
