package execution

import "errors"

var (
	// ErrNoStages is returned when a ramp is built without stages.
	ErrNoStages = errors.New("no stages defined")

	// ErrNegativeDuration is returned for a stage with a negative duration.
	ErrNegativeDuration = errors.New("stage duration must not be negative")

	// ErrNegativeTarget is returned for a stage or start with a negative VU target.
	ErrNegativeTarget = errors.New("stage target must not be negative")

	// ErrZeroTotalDuration is returned when all stages together last no time.
	ErrZeroTotalDuration = errors.New("total stage duration must be greater than zero")

	// ErrNilDispatcher is returned when the scheduler has nothing to dispatch.
	ErrNilDispatcher = errors.New("scenario dispatcher is nil")

	// ErrNilRegistry is returned when the scheduler has nowhere to record.
	ErrNilRegistry = errors.New("metric registry is nil")

	// ErrAlreadyStarted is returned when Ramp is called twice.
	ErrAlreadyStarted = errors.New("scheduler already started")

	// ErrScenarioPanic wraps a panic recovered from a scenario.
	ErrScenarioPanic = errors.New("scenario panicked")
)
