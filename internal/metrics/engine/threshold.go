package engine

import (
	"strconv"
	"strings"
	"time"

	"yqhp/loadtest-engine/pkg/metrics"
	"yqhp/loadtest-engine/pkg/types"
)

// Operators in match order; two-character operators first so "<=" is not read as "<".
var operators = []string{"<=", ">=", "!=", "==", "<", ">"}

// Threshold is a parsed "<stat> <op> <number>" expression bound to a metric.
type Threshold struct {
	Metric         string
	Source         string
	Stat           string
	Op             string
	Value          float64
	AbortOnFail    bool
	DelayAbortEval time.Duration

	metricType metrics.MetricType
}

// Parse compiles a threshold spec for metric.
func Parse(metric string, spec types.ThresholdSpec) (*Threshold, error) {
	expr := strings.TrimSpace(spec.Expression)
	fail := func(reason string) (*Threshold, error) {
		return nil, &ParseError{Metric: metric, Expression: spec.Expression, Reason: reason}
	}
	if expr == "" {
		return fail("empty expression")
	}
	if spec.DelayAbortEval < 0 {
		return fail("delay_abort_eval must not be negative")
	}

	for _, op := range operators {
		idx := strings.Index(expr, op)
		if idx < 0 {
			continue
		}
		stat := strings.TrimSpace(expr[:idx])
		rhs := strings.TrimSpace(expr[idx+len(op):])
		if stat == "" {
			return fail("missing stat")
		}
		if !knownStat(stat) {
			return fail("unknown stat " + strconv.Quote(stat))
		}
		value, err := strconv.ParseFloat(rhs, 64)
		if err != nil {
			return fail("right-hand side is not a number")
		}
		return &Threshold{
			Metric:         metric,
			Source:         spec.Expression,
			Stat:           stat,
			Op:             op,
			Value:          value,
			AbortOnFail:    spec.AbortOnFail,
			DelayAbortEval: spec.DelayAbortEval,
		}, nil
	}
	return fail("no comparison operator")
}

func knownStat(stat string) bool {
	switch stat {
	case metrics.StatCount, metrics.StatRate, metrics.StatPasses, metrics.StatFails,
		metrics.StatAvg, metrics.StatMin, metrics.StatMax, metrics.StatMed:
		return true
	}
	_, ok := metrics.ParsePercentile(stat)
	return ok
}

// Check compares an observed value against the threshold.
func (t *Threshold) Check(observed float64) bool {
	switch t.Op {
	case "<":
		return observed < t.Value
	case "<=":
		return observed <= t.Value
	case ">":
		return observed > t.Value
	case ">=":
		return observed >= t.Value
	case "==":
		return observed == t.Value
	case "!=":
		return observed != t.Value
	}
	return false
}

func (t *Threshold) String() string {
	return t.Metric + ": " + t.Source
}
