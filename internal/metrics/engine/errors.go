package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidExpression is wrapped by every ParseError.
	ErrInvalidExpression = errors.New("invalid threshold expression")

	// ErrUnknownMetric is returned when a threshold names a metric the run never registers.
	ErrUnknownMetric = errors.New("threshold references unknown metric")

	// ErrInvalidStat is returned when a stat does not apply to the metric's type.
	ErrInvalidStat = errors.New("stat not supported for metric type")
)

// ParseError describes a malformed threshold expression.
type ParseError struct {
	Metric     string
	Expression string
	Reason     string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("threshold %q on %s: %s", e.Expression, e.Metric, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return ErrInvalidExpression
}
