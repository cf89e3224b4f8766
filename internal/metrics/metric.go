// Package metrics observes a running simulation and reduces its particle
// state to scalars for overlays, stored series and comparisons.
package metrics

import "github.com/san-kum/fluidsim/internal/sim"

type Metric interface {
	Name() string
	Observe(s *sim.Simulation)
	Value() float64
	Reset()
}

// Default is the set recorded by headless runs, in column order.
func Default() []Metric {
	return []Metric{
		NewCount(),
		NewKineticEnergy(),
		NewMaxSpeed(),
		NewMeanDensity(),
		NewContainment(),
	}
}
