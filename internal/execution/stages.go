package execution

import (
	"fmt"
	"math"
	"time"

	"yqhp/loadtest-engine/pkg/types"
)

// Ramp is an immutable piecewise-linear VU target over time.
type Ramp struct {
	start  int
	stages []types.Stage
	ends   []time.Duration
	total  time.Duration
}

// NewRamp validates stages and precomputes their end offsets. start is the
// target before the first stage, normally 0.
func NewRamp(start int, stages []types.Stage) (*Ramp, error) {
	if len(stages) == 0 {
		return nil, ErrNoStages
	}
	if start < 0 {
		return nil, fmt.Errorf("%w: start_vus is %d", ErrNegativeTarget, start)
	}

	r := &Ramp{
		start:  start,
		stages: append([]types.Stage(nil), stages...),
		ends:   make([]time.Duration, len(stages)),
	}
	for i, s := range stages {
		if s.Duration < 0 {
			return nil, fmt.Errorf("%w: stage %d is %s", ErrNegativeDuration, i, s.Duration)
		}
		if s.Target < 0 {
			return nil, fmt.Errorf("%w: stage %d is %d", ErrNegativeTarget, i, s.Target)
		}
		r.total += s.Duration
		r.ends[i] = r.total
	}
	if r.total == 0 {
		return nil, ErrZeroTotalDuration
	}
	return r, nil
}

// Duration is the sum of all stage durations.
func (r *Ramp) Duration() time.Duration {
	return r.total
}

// Stages returns a copy of the stages.
func (r *Ramp) Stages() []types.Stage {
	return append([]types.Stage(nil), r.stages...)
}

// MaxTarget is the highest target the ramp ever reaches.
func (r *Ramp) MaxTarget() int {
	max := r.start
	for _, s := range r.stages {
		if s.Target > max {
			max = s.Target
		}
	}
	return max
}

// TargetAt returns the target concurrency at elapsed. Inside stage i it is
// p_i + (p_{i+1}-p_i)*(t-t_i)/d_i truncated toward p_i, so the ramp never
// overshoots mid-stage and equals the stage target exactly at its end. A
// zero-duration stage is an instant jump at its seam. At or after the end the
// final target is returned.
func (r *Ramp) TargetAt(elapsed time.Duration) int {
	if elapsed < 0 {
		return r.start
	}
	prev := r.start
	var stageStart time.Duration
	for i, s := range r.stages {
		end := r.ends[i]
		if elapsed < end && s.Duration > 0 {
			frac := float64(elapsed-stageStart) / float64(s.Duration)
			delta := float64(s.Target-prev) * frac
			return prev + int(math.Trunc(delta))
		}
		prev = s.Target
		stageStart = end
	}
	return prev
}

// StageAt returns the index of the stage active at elapsed, or len(stages)
// once the ramp has finished.
func (r *Ramp) StageAt(elapsed time.Duration) int {
	for i, end := range r.ends {
		if elapsed < end {
			return i
		}
	}
	return len(r.stages)
}
