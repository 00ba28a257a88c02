package metrics

import "errors"

var (
	// ErrTypeMismatch is returned when a metric name is reused with another type.
	ErrTypeMismatch = errors.New("metric already registered with a different type")

	// ErrEmptyName is returned when registering a metric without a name.
	ErrEmptyName = errors.New("metric name is empty")

	// ErrUnknownPolicy is returned for an unsupported trend percentile policy.
	ErrUnknownPolicy = errors.New("unknown trend policy")
)
