package metrics

import "github.com/san-kum/fluidsim/internal/sim"

type Count struct {
	name string
	n    int
}

func NewCount() *Count { return &Count{name: "particles"} }

func (c *Count) Name() string              { return c.name }
func (c *Count) Observe(s *sim.Simulation) { c.n = s.Len() }
func (c *Count) Value() float64            { return float64(c.n) }
func (c *Count) Reset()                    { c.n = 0 }

// MeanDensity averages the density left on the particles by the last step.
// Explicit densities are floored at rest; position-based ones are raw.
type MeanDensity struct {
	name string
	mean float64
}

func NewMeanDensity() *MeanDensity { return &MeanDensity{name: "mean_density"} }

func (m *MeanDensity) Name() string { return m.name }

func (m *MeanDensity) Observe(s *sim.Simulation) {
	n, sum := 0, 0.0
	s.ForEachState(func(p sim.Particle) {
		sum += p.Density
		n++
	})
	m.mean = 0
	if n > 0 {
		m.mean = sum / float64(n)
	}
}

func (m *MeanDensity) Value() float64 { return m.mean }
func (m *MeanDensity) Reset()         { m.mean = 0 }
