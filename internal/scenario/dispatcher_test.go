package scenario

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func named(name string) Scenario {
	return NewFunc(name, func(context.Context, *Iteration) error { return nil })
}

func TestNewDispatcher_Validation(t *testing.T) {
	_, err := NewDispatcher(nil)
	assert.ErrorIs(t, err, ErrNoScenarios)

	_, err = NewDispatcher([]Entry{{Scenario: named("a"), Weight: -1}})
	assert.ErrorIs(t, err, ErrInvalidWeight)

	_, err = NewDispatcher([]Entry{{Scenario: named("a"), Weight: math.Inf(1)}})
	assert.ErrorIs(t, err, ErrInvalidWeight)
	assert.ErrorContains(t, err, "must not be negative or non-finite")

	_, err = NewDispatcher([]Entry{{Scenario: named("a"), Weight: math.NaN()}})
	assert.ErrorIs(t, err, ErrInvalidWeight)

	_, err = NewDispatcher([]Entry{{Scenario: named("a"), Weight: 0}})
	assert.NoError(t, err)

	_, err = NewDispatcher([]Entry{{Scenario: named("a")}, {Scenario: named("a")}})
	assert.ErrorIs(t, err, ErrDuplicateScenario)
}

func TestDispatcher_CumulativeBuckets(t *testing.T) {
	var draw float64
	d, err := NewDispatcher([]Entry{
		{Scenario: named("a"), Weight: 1},
		{Scenario: named("b"), Weight: 2},
		{Scenario: named("c"), Weight: 1},
	}, WithRand(func() float64 { return draw }))
	require.NoError(t, err)

	cases := []struct {
		draw float64
		want string
	}{
		{0, "a"},
		{0.24, "a"},
		{0.25, "b"},
		{0.74, "b"},
		{0.75, "c"},
		{0.9999, "c"},
	}
	for _, c := range cases {
		draw = c.draw
		assert.Equal(t, c.want, d.Pick().Scenario.Name(), "draw %v", c.draw)
	}

	assert.InDelta(t, 0.5, d.Probability("b"), 1e-9)
	assert.Equal(t, 0.0, d.Probability("zzz"))
}

func TestDispatcher_DefaultWeightIsUniform(t *testing.T) {
	d, err := NewDispatcher([]Entry{
		{Scenario: named("health_check")},
		{Scenario: named("api_usage")},
		{Scenario: named("cost_tracking")},
		{Scenario: named("metrics")},
	})
	require.NoError(t, err)
	for _, e := range d.Entries() {
		assert.Equal(t, 1.0, e.Weight)
		assert.InDelta(t, 0.25, d.Probability(e.Scenario.Name()), 1e-9)
	}
}

func TestDispatcher_ConcurrentPickDistribution(t *testing.T) {
	d, err := NewDispatcher([]Entry{
		{Scenario: named("light"), Weight: 1},
		{Scenario: named("heavy"), Weight: 3},
	})
	require.NoError(t, err)

	const workers, picks = 8, 5000
	var mu sync.Mutex
	counts := map[string]int{}
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := map[string]int{}
			for i := 0; i < picks; i++ {
				local[d.Pick().Scenario.Name()]++
			}
			mu.Lock()
			for k, v := range local {
				counts[k] += v
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	total := float64(workers * picks)
	assert.InDelta(t, 0.75, float64(counts["heavy"])/total, 0.03)
	assert.InDelta(t, 0.25, float64(counts["light"])/total, 0.03)
}
