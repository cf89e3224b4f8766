// Package physics provides the fluid solvers.
//
// Each solver implements [sim.Solver] and advances a [sim.World] by one
// step:
//
//   - [Explicit]: pairwise SPH with a linear kernel, a density floor and a
//     soft spring boundary. Tuned for frame-unit steps (dt = 1).
//   - [PositionBased]: Position Based Fluids. Predicts positions, projects
//     them onto a density constraint over a few Jacobi iterations, then
//     derives velocities and applies XSPH smoothing. Tuned for dt = 0.005.
//
// Solvers own their scratch buffers and are not safe for concurrent use;
// create one per simulation.
//
//	s, err := sim.New(sim.DefaultParams(), physics.NewExplicit())
//	if err != nil {
//	    return err
//	}
//	s.Spawn(r2.Vec{X: 232, Y: 20}, 9, 8, r2.Vec{Y: 3})
//	s.Step(1)
package physics

// Solver names used by configs and the CLI.
const (
	ExplicitName      = "sph"
	PositionBasedName = "pbf"
)
