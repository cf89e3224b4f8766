package sim_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/san-kum/fluidsim/internal/physics"
	"github.com/san-kum/fluidsim/internal/sim"
)

func nan() float64 { return math.NaN() }
func inf() float64 { return math.Inf(1) }

var _ = Describe("Scenarios", func() {
	Context("a column falling under gravity alone", func() {
		const (
			count   = 16
			spacing = 20.0 // wider than h, so no pair interacts
			steps   = 600
		)

		var (
			s *sim.Simulation
			p sim.Params
		)

		BeforeEach(func() {
			p = sim.DefaultParams()
			var err error
			s, err = sim.New(p, physics.NewExplicit())
			Expect(err).NotTo(HaveOccurred())
			for i := 0; i < count; i++ {
				Expect(s.Place(r2.Vec{X: 232, Y: 20 + float64(i)*spacing}, r2.Vec{})).To(Succeed())
			}
		})

		It("accelerates freely until the floor, then decelerates", func() {
			floor := p.Height - p.Margin
			bottom := count - 1

			contact := -1
			peak := 0.0
			for n := 1; n <= steps; n++ {
				s.Step(1)
				ps := s.Snapshot()

				if contact < 0 && ps[bottom].Pos.Y > floor {
					contact = n
				}
				if contact < 0 {
					want := p.Gravity.Y * float64(n)
					for i := range ps {
						Expect(ps[i].Vel.Y).To(BeNumerically("~", want, 1e-9), "particle %d at step %d", i, n)
						Expect(ps[i].Vel.X).To(BeZero())
					}
					peak = ps[bottom].Vel.Y
					continue
				}

				if n == contact {
					Expect(ps[bottom].Vel.Y).To(BeNumerically("<", peak))
				}
				for i := range ps {
					Expect(math.IsNaN(ps[i].Pos.Y)).To(BeFalse())
					Expect(math.Abs(ps[i].Vel.Y)).To(BeNumerically("<", 10*peak), "particle %d at step %d", i, n)
				}
			}

			Expect(contact).To(BeNumerically(">", 0), "the column never reached the floor")
		})
	})

	Context("determinism", func() {
		pour := func(solver sim.Solver, p sim.Params, dt float64) []sim.Particle {
			s, err := sim.New(p, solver)
			Expect(err).NotTo(HaveOccurred())
			for frame := 0; frame < 240; frame++ {
				if frame%3 == 0 && frame < 150 {
					_, err := s.Spawn(r2.Vec{X: p.Width / 2, Y: 20}, 9, 8, r2.Vec{Y: 3})
					Expect(err).NotTo(HaveOccurred())
				}
				s.Step(dt)
			}
			return s.Snapshot()
		}

		It("reproduces explicit runs bit for bit", func() {
			a := pour(physics.NewExplicit(), sim.DefaultParams(), 1)
			b := pour(physics.NewExplicit(), sim.DefaultParams(), 1)
			Expect(a).To(HaveLen(450))
			Expect(a).To(Equal(b))
		})

		It("reproduces position-based runs regardless of worker count", func() {
			p := sim.PositionBasedParams()
			a := pour(physics.NewPositionBased(), p, 0.005)
			p.Workers = 4
			b := pour(physics.NewPositionBased(), p, 0.005)
			Expect(a).To(Equal(b))
		})
	})
})
