package scenario

import (
	"context"

	"yqhp/loadtest-engine/pkg/metrics"
	"yqhp/loadtest-engine/pkg/types"
)

// Scenario is one unit of work a VU performs per iteration. Run must tolerate
// any target behaviour: bad statuses, malformed bodies and connection errors
// are recorded as failed checks and are not returned. A returned error is an
// internal fault of the scenario itself.
type Scenario interface {
	Name() string
	Run(ctx context.Context, it *Iteration) error
}

// Iteration carries what a scenario needs for one run.
type Iteration struct {
	VUID     int64
	Number   int64
	Recorder *metrics.Recorder
}

// Check records a named boolean assertion on the checks rate and returns ok.
func (it *Iteration) Check(name string, ok bool) bool {
	if it.Recorder != nil {
		it.Recorder.Rate(metrics.Checks, ok)
	}
	return ok
}

// Entry is a scenario with its dispatch weight and optional pacing override.
type Entry struct {
	Scenario  Scenario
	Weight    float64
	ThinkTime *types.ThinkTime
}

// Func adapts a plain function to the Scenario interface.
type Func struct {
	name string
	fn   func(ctx context.Context, it *Iteration) error
}

// NewFunc returns a Scenario named name that calls fn.
func NewFunc(name string, fn func(ctx context.Context, it *Iteration) error) *Func {
	return &Func{name: name, fn: fn}
}

func (f *Func) Name() string { return f.name }

func (f *Func) Run(ctx context.Context, it *Iteration) error {
	return f.fn(ctx, it)
}
