package sim_test

import (
	"bytes"
	"strings"

	"github.com/charmbracelet/log"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/san-kum/fluidsim/internal/physics"
	"github.com/san-kum/fluidsim/internal/sim"
)

var _ = Describe("Simulation", func() {
	var s *sim.Simulation

	BeforeEach(func() {
		var err error
		s, err = sim.New(sim.DefaultParams(), physics.NewExplicit())
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("New", func() {
		It("rejects invalid parameters", func() {
			p := sim.DefaultParams()
			p.Radius = 0
			_, err := sim.New(p, physics.NewExplicit())
			Expect(err).To(MatchError(sim.ErrInvalidParams))

			p = sim.DefaultParams()
			p.Margin = 300
			_, err = sim.New(p, physics.NewExplicit())
			Expect(err).To(MatchError(sim.ErrInvalidParams))
		})

		It("rejects a nil solver", func() {
			_, err := sim.New(sim.DefaultParams(), nil)
			Expect(err).To(MatchError(sim.ErrInvalidParams))
		})
	})

	Describe("Spawn", func() {
		It("centres a row of particles on the origin", func() {
			n, err := s.Spawn(r2.Vec{X: 232, Y: 20}, 9, 8, r2.Vec{Y: 3})
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(9))

			ps := s.Snapshot()
			Expect(ps).To(HaveLen(9))
			for i, p := range ps {
				Expect(p.Pos.X).To(BeNumerically("~", 232+float64(i-4)*8, 1e-12))
				Expect(p.Pos.Y).To(Equal(20.0))
				Expect(p.Vel).To(Equal(r2.Vec{Y: 3}))
			}
		})

		It("offsets an even batch by half a spacing", func() {
			_, err := s.Spawn(r2.Vec{X: 100, Y: 100}, 2, 10, r2.Vec{})
			Expect(err).NotTo(HaveOccurred())
			ps := s.Snapshot()
			Expect(ps[0].Pos.X).To(Equal(95.0))
			Expect(ps[1].Pos.X).To(Equal(105.0))
		})

		It("rejects malformed requests", func() {
			_, err := s.Spawn(r2.Vec{X: 10, Y: 10}, 0, 8, r2.Vec{})
			Expect(err).To(MatchError(sim.ErrInvalidSpawn))
			_, err = s.Spawn(r2.Vec{X: nan(), Y: 10}, 3, 8, r2.Vec{})
			Expect(err).To(MatchError(sim.ErrInvalidSpawn))
			Expect(s.Place(r2.Vec{X: 1, Y: 1}, r2.Vec{X: inf()})).To(MatchError(sim.ErrInvalidSpawn))
			Expect(s.Len()).To(BeZero())
		})

		It("truncates at the particle cap and warns once", func() {
			var buf bytes.Buffer
			p := sim.DefaultParams()
			p.MaxParticles = 20
			capped, err := sim.New(p, physics.NewExplicit(), sim.WithLogger(log.New(&buf)))
			Expect(err).NotTo(HaveOccurred())

			n, err := capped.Spawn(r2.Vec{X: 200, Y: 50}, 15, 8, r2.Vec{})
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(15))

			n, err = capped.Spawn(r2.Vec{X: 200, Y: 80}, 9, 8, r2.Vec{})
			Expect(err).To(MatchError(sim.ErrCapacity))
			Expect(n).To(Equal(5))

			n, err = capped.Spawn(r2.Vec{X: 200, Y: 110}, 9, 8, r2.Vec{})
			Expect(err).To(MatchError(sim.ErrCapacity))
			Expect(n).To(BeZero())
			Expect(capped.Place(r2.Vec{X: 5, Y: 5}, r2.Vec{})).To(MatchError(sim.ErrCapacity))

			Expect(capped.Len()).To(Equal(20))
			Expect(capped.Rejected()).To(Equal(14))
			Expect(strings.Count(buf.String(), "particle cap reached")).To(Equal(1))
		})
	})

	Describe("ForEachParticle", func() {
		It("visits every particle with the draw radius and changes nothing", func() {
			_, err := s.Spawn(r2.Vec{X: 200, Y: 200}, 5, 20, r2.Vec{X: 1})
			Expect(err).NotTo(HaveOccurred())
			before := s.Snapshot()

			var seen []r2.Vec
			s.ForEachParticle(func(pos r2.Vec, radius float64) {
				Expect(radius).To(Equal(sim.DefaultParams().DrawRadius))
				seen = append(seen, pos)
			})

			Expect(seen).To(HaveLen(5))
			for i := range seen {
				Expect(seen[i]).To(Equal(before[i].Pos))
			}
			Expect(s.Snapshot()).To(Equal(before))
		})
	})

	Describe("Step", func() {
		It("ignores non-positive time steps", func() {
			Expect(s.Place(r2.Vec{X: 100, Y: 100}, r2.Vec{X: 1})).To(Succeed())
			before := s.Snapshot()

			s.Step(0)
			s.Step(-1)
			s.Step(nan())

			Expect(s.Snapshot()).To(Equal(before))
			Expect(s.Steps()).To(BeZero())
			Expect(s.Time()).To(BeZero())
		})

		It("counts steps and simulated time", func() {
			s.Step(1)
			s.Step(0.5)
			Expect(s.Steps()).To(Equal(2))
			Expect(s.Time()).To(Equal(1.5))
		})
	})

	Describe("SetGravity", func() {
		It("applies the new vector from the next step", func() {
			Expect(s.Place(r2.Vec{X: 200, Y: 200}, r2.Vec{})).To(Succeed())
			s.SetGravity(r2.Vec{X: -0.025})
			Expect(s.Gravity()).To(Equal(r2.Vec{X: -0.025}))

			s.Step(1)
			v := s.Snapshot()[0].Vel
			Expect(v.X).To(BeNumerically("~", -0.025, 1e-15))
			Expect(v.Y).To(BeZero())
		})

		It("ignores non-finite vectors", func() {
			s.SetGravity(r2.Vec{Y: inf()})
			Expect(s.Gravity()).To(Equal(sim.DefaultParams().Gravity))
		})
	})

	Describe("Reset", func() {
		It("drops particles and restores gravity", func() {
			_, _ = s.Spawn(r2.Vec{X: 200, Y: 50}, 9, 8, r2.Vec{})
			s.SetGravity(r2.Vec{X: 1})
			s.Step(1)

			s.Reset()

			Expect(s.Len()).To(BeZero())
			Expect(s.Steps()).To(BeZero())
			Expect(s.Gravity()).To(Equal(sim.DefaultParams().Gravity))
			Expect(s.Params()).To(Equal(sim.DefaultParams()))
			Expect(s.Solver().Name()).To(Equal(physics.ExplicitName))
		})
	})
})
