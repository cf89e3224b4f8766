package metrics

import (
	"github.com/san-kum/fluidsim/internal/sim"
	"gonum.org/v1/gonum/spatial/r2"
)

// KineticEnergy is sum(m |v|^2 / 2) at the last observation. Mass comes from
// the simulation parameters.
type KineticEnergy struct {
	name   string
	energy float64
	peak   float64
}

func NewKineticEnergy() *KineticEnergy {
	return &KineticEnergy{name: "kinetic_energy"}
}

func (e *KineticEnergy) Name() string { return e.name }

func (e *KineticEnergy) Observe(s *sim.Simulation) {
	m := s.Params().Mass
	sum := 0.0
	s.ForEachState(func(p sim.Particle) {
		sum += r2.Norm2(p.Vel)
	})
	e.energy = 0.5 * m * sum
	if e.energy > e.peak {
		e.peak = e.energy
	}
}

func (e *KineticEnergy) Value() float64 { return e.energy }

// Peak is the largest energy observed since the last Reset.
func (e *KineticEnergy) Peak() float64 { return e.peak }

func (e *KineticEnergy) Reset() {
	e.energy = 0
	e.peak = 0
}

// MaxSpeed tracks the fastest particle seen since the last Reset.
type MaxSpeed struct {
	name string
	max  float64
}

func NewMaxSpeed() *MaxSpeed { return &MaxSpeed{name: "max_speed"} }

func (m *MaxSpeed) Name() string { return m.name }

func (m *MaxSpeed) Observe(s *sim.Simulation) {
	s.ForEachState(func(p sim.Particle) {
		if v := r2.Norm(p.Vel); v > m.max {
			m.max = v
		}
	})
}

func (m *MaxSpeed) Value() float64 { return m.max }
func (m *MaxSpeed) Reset()         { m.max = 0 }
