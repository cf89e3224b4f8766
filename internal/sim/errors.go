package sim

import "errors"

// Errors returned at the API boundary. Numerical edge cases inside a step
// are clamped and never surface as errors.
var (
	// ErrInvalidParams indicates a configuration that cannot be simulated.
	ErrInvalidParams = errors.New("sim: invalid parameters")

	// ErrCapacity indicates a spawn request was cut short by MaxParticles.
	ErrCapacity = errors.New("sim: particle capacity reached")

	// ErrInvalidSpawn indicates a spawn request with a non-positive count or
	// non-finite coordinates.
	ErrInvalidSpawn = errors.New("sim: invalid spawn request")

	// ErrUnknownSolver indicates a solver name with no registered constructor.
	ErrUnknownSolver = errors.New("sim: unknown solver")
)
