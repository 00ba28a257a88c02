package scenario

import "errors"

var (
	// ErrNoScenarios is returned when a dispatcher is built without entries.
	ErrNoScenarios = errors.New("no scenarios configured")

	// ErrInvalidWeight is returned for a negative or non-finite weight.
	ErrInvalidWeight = errors.New("scenario weight must not be negative or non-finite")

	// ErrDuplicateScenario is returned when two scenarios share a name.
	ErrDuplicateScenario = errors.New("duplicate scenario name")

	// ErrNoRequests is returned for an HTTP scenario without requests.
	ErrNoRequests = errors.New("scenario has no requests")

	// ErrInvalidCheck is returned when a check cannot be compiled.
	ErrInvalidCheck = errors.New("invalid check")
)
