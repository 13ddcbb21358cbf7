package scenario

import (
	"errors"

	"airline_recovery/internal/sim"
)

// Load errors are fatal: they abort the run before simulation starts. Each is
// a distinct recoverable value at the host boundary; callers match them with
// errors.Is.
var (
	// ErrScenarioNotFound means no scenarios row exists for the given id.
	ErrScenarioNotFound = errors.New("scenario not found")

	// ErrMissingReference means a child row references an airport, aircraft
	// or crew member that is not part of the scenario. It is the engine's
	// sentinel so callers match one value whether the reference was rejected
	// at load or at engine build.
	ErrMissingReference = sim.ErrMissingReference

	// ErrUnknownSelector means a selector column names a strategy the engine
	// does not register. It is the engine's sentinel so callers match one
	// value whether the name was rejected at load or at engine build.
	ErrUnknownSelector = sim.ErrUnknownSelector

	// ErrBadTimestamp means a stored time did not match the store format.
	ErrBadTimestamp = errors.New("malformed timestamp")

	// ErrBadDisruption means a disruptions row has an unknown type or an
	// inverted window.
	ErrBadDisruption = errors.New("malformed disruption")
)
