// Package neighbor finds interacting particles through the spatial grid.
//
// Explicit SPH works on symmetric pairs: each unordered pair is emitted once
// and the solver scatters to both ends. The position-based solver instead
// gathers a per-particle list so that each particle's sums can run on its own
// goroutine.
package neighbor

import (
	"math"

	"github.com/san-kum/fluidsim/internal/grid"
	"github.com/san-kum/fluidsim/internal/kernel"
	"github.com/san-kum/fluidsim/internal/sim"
	"gonum.org/v1/gonum/spatial/r2"
)

// Pair is one interacting pair with A < B. Normal points from B to A.
type Pair struct {
	A, B   int
	Normal r2.Vec
	Dist   float64
	Weight float64 // 1 - Dist/h
}

// Selector picks which position of a particle the grid and distance tests use.
type Selector func(p *sim.Particle) r2.Vec

func Current(p *sim.Particle) r2.Vec   { return p.Pos }
func Predicted(p *sim.Particle) r2.Vec { return p.Predicted }

// Rebuild clears g and inserts every particle at at(p), caching its cell.
func Rebuild(ps []sim.Particle, g *grid.Grid, at Selector) {
	g.Clear()
	for i := range ps {
		ps[i].GX, ps[i].GY = g.Insert(i, at(&ps[i]))
	}
}

type Finder struct {
	k     kernel.Kernels
	pairs []Pair
}

func NewFinder(h float64) *Finder {
	return &Finder{k: kernel.New(h), pairs: make([]Pair, 0, 1024)}
}

// Pairs enumerates every unordered pair closer than h, using the cells cached
// by the last Rebuild. The returned slice is reused by the next call.
func (f *Finder) Pairs(ps []sim.Particle, g *grid.Grid) []Pair {
	f.pairs = f.pairs[:0]

	for i := range ps {
		pi := ps[i].Pos
		cx, cy := ps[i].GX, ps[i].GY
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				for _, j := range g.CellAt(cx+dx, cy+dy) {
					if j <= i {
						continue
					}
					d := r2.Sub(pi, ps[j].Pos)
					d2 := r2.Norm2(d)
					if d2 >= f.k.H2 || d2 <= 0 {
						continue
					}
					dist := math.Sqrt(d2)
					f.pairs = append(f.pairs, Pair{
						A:      i,
						B:      j,
						Normal: r2.Scale(1/dist, d),
						Dist:   dist,
						Weight: f.k.Linear(dist),
					})
				}
			}
		}
	}
	return f.pairs
}

// Gather appends to buf[:0] the indices of every particle other than i whose
// selected position lies within sqrt(h2) of particle i's. Particles sitting
// exactly on i are left out.
func Gather(ps []sim.Particle, g *grid.Grid, i int, h2 float64, at Selector, buf []int) []int {
	buf = buf[:0]
	pi := at(&ps[i])
	cx, cy := g.CellOf(pi)
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			for _, j := range g.CellAt(cx+dx, cy+dy) {
				if j == i {
					continue
				}
				if d2 := r2.Norm2(r2.Sub(pi, at(&ps[j]))); d2 > 0 && d2 < h2 {
					buf = append(buf, j)
				}
			}
		}
	}
	return buf
}
