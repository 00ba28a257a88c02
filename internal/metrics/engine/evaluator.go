package engine

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"yqhp/loadtest-engine/pkg/logger"
	"yqhp/loadtest-engine/pkg/metrics"
	"yqhp/loadtest-engine/pkg/types"

	"go.uber.org/zap"
)

// Evaluator holds the parsed thresholds of a plan.
type Evaluator struct {
	thresholds []*Threshold
}

// NewEvaluator parses every expression in set. All syntax errors are
// reported together.
func NewEvaluator(set types.ThresholdSet) (*Evaluator, error) {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)

	e := &Evaluator{}
	var errs []error
	for _, name := range names {
		for _, spec := range set[name] {
			th, err := Parse(name, spec)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			e.thresholds = append(e.thresholds, th)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return e, nil
}

// Thresholds returns the parsed thresholds in metric name order.
func (e *Evaluator) Thresholds() []*Threshold {
	return e.thresholds
}

// HasAbortOnFail reports whether any threshold can stop the run early.
func (e *Evaluator) HasAbortOnFail() bool {
	for _, t := range e.thresholds {
		if t.AbortOnFail {
			return true
		}
	}
	return false
}

// Validate resolves every threshold's metric against reg. A submetric such as
// "http_req_duration{scenario:api}" resolves through its base metric.
func (e *Evaluator) Validate(reg *metrics.Registry) error {
	var errs []error
	for _, t := range e.thresholds {
		name := t.Metric
		m, ok := reg.Get(name)
		if !ok {
			base, _ := metrics.SplitSubmetricName(name)
			m, ok = reg.Get(base)
		}
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrUnknownMetric, name))
			continue
		}
		if !metrics.ValidStat(m.Type(), t.Stat) {
			errs = append(errs, fmt.Errorf("%w: %s on %s metric %s", ErrInvalidStat, t.Stat, m.Type(), name))
			continue
		}
		t.metricType = m.Type()
	}
	return errors.Join(errs...)
}

// Evaluate checks every threshold against snap.
func (e *Evaluator) Evaluate(snap metrics.Snapshot) []types.ThresholdResult {
	results := make([]types.ThresholdResult, 0, len(e.thresholds))
	for _, t := range e.thresholds {
		r := types.ThresholdResult{
			Metric:      t.Metric,
			Expression:  t.Source,
			AbortOnFail: t.AbortOnFail,
		}
		observed, err := t.observe(snap)
		if err != nil {
			r.Error = err.Error()
		} else {
			r.Observed = observed
			r.Passed = t.Check(observed)
		}
		results = append(results, r)
	}
	return results
}

func (t *Threshold) observe(snap metrics.Snapshot) (float64, error) {
	ms, ok := snap.Get(t.Metric)
	if !ok {
		// A validated submetric that never received a sample reads as empty.
		if t.metricType != "" {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %s", ErrUnknownMetric, t.Metric)
	}
	v, ok := ms.Stat(t.Stat)
	if !ok {
		return 0, fmt.Errorf("%w: %s on %s metric %s", ErrInvalidStat, t.Stat, ms.Type, t.Metric)
	}
	return v, nil
}

// ShouldAbort evaluates only abort_on_fail thresholds whose delay has passed.
// Metrics without samples are skipped. It returns the breached metric names.
func (e *Evaluator) ShouldAbort(snap metrics.Snapshot, elapsed time.Duration) ([]string, bool) {
	var breached []string
	for _, t := range e.thresholds {
		if !t.AbortOnFail || elapsed < t.DelayAbortEval {
			continue
		}
		ms, ok := snap.Get(t.Metric)
		if !ok || ms.Values[metrics.StatCount] == 0 {
			continue
		}
		v, ok := ms.Stat(t.Stat)
		if !ok || t.Check(v) {
			continue
		}
		logger.Debug("abort threshold crossed",
			zap.String("threshold", t.String()),
			zap.Float64("observed", v),
		)
		breached = append(breached, t.Metric)
	}
	return breached, len(breached) > 0
}

// Passed is the AND of all results; an empty slice passes.
func Passed(results []types.ThresholdResult) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}
