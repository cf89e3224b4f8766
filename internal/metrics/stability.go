package metrics

import (
	"github.com/san-kum/fluidsim/internal/sim"
	"gonum.org/v1/gonum/spatial/r2"
)

// Containment is the fraction of observations in which every particle lay
// inside the domain. The explicit solver's soft boundary lets particles
// overshoot briefly, so values just below 1 are normal there.
type Containment struct {
	name       string
	violations int
	samples    int
}

func NewContainment() *Containment {
	return &Containment{name: "containment"}
}

func (c *Containment) Name() string { return c.name }

func (c *Containment) Observe(s *sim.Simulation) {
	c.samples++
	box := s.Params().Domain()
	escaped := false
	s.ForEachParticle(func(pos r2.Vec, _ float64) {
		if pos.X < box.Min.X || pos.X > box.Max.X || pos.Y < box.Min.Y || pos.Y > box.Max.Y {
			escaped = true
		}
	})
	if escaped {
		c.violations++
	}
}

func (c *Containment) Value() float64 {
	if c.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(c.violations)/float64(c.samples)
}

func (c *Containment) Reset() {
	c.violations = 0
	c.samples = 0
}
