package scenario

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
)

// Dispatcher picks a scenario per iteration using a cumulative weight table
// and a single uniform draw. It is immutable after construction and safe for
// concurrent Pick.
type Dispatcher struct {
	entries    []Entry
	cumulative []float64
	total      float64
	rand       func() float64
}

// DispatcherOption customizes a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithRand replaces the uniform [0,1) source.
func WithRand(fn func() float64) DispatcherOption {
	return func(d *Dispatcher) { d.rand = fn }
}

// NewDispatcher builds the weight table. A zero weight means the default of 1.
func NewDispatcher(entries []Entry, opts ...DispatcherOption) (*Dispatcher, error) {
	if len(entries) == 0 {
		return nil, ErrNoScenarios
	}

	d := &Dispatcher{
		entries:    make([]Entry, len(entries)),
		cumulative: make([]float64, len(entries)),
		rand:       rand.Float64,
	}
	seen := make(map[string]struct{}, len(entries))
	for i, e := range entries {
		name := e.Scenario.Name()
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateScenario, name)
		}
		seen[name] = struct{}{}

		w := e.Weight
		if w == 0 {
			w = 1
		}
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, fmt.Errorf("%w: %s has %v", ErrInvalidWeight, name, e.Weight)
		}
		e.Weight = w
		d.total += w
		d.entries[i] = e
		d.cumulative[i] = d.total
	}

	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Pick returns the entry whose cumulative bucket contains the draw.
func (d *Dispatcher) Pick() Entry {
	r := d.rand() * d.total
	i := sort.Search(len(d.cumulative), func(i int) bool { return d.cumulative[i] > r })
	if i >= len(d.entries) {
		i = len(d.entries) - 1
	}
	return d.entries[i]
}

// Entries returns the normalized entries in declaration order.
func (d *Dispatcher) Entries() []Entry {
	return d.entries
}

// Probability returns the chance that name is picked.
func (d *Dispatcher) Probability(name string) float64 {
	for _, e := range d.entries {
		if e.Scenario.Name() == name {
			return e.Weight / d.total
		}
	}
	return 0
}
