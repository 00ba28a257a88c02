// Package summary builds the end-of-run SummaryReport and renders it as a
// terminal summary, a JSON document and an HTML page. The renderers are pure
// functions of the report.
package summary

import (
	"sort"
	"time"

	"yqhp/loadtest-engine/internal/metrics/engine"
	"yqhp/loadtest-engine/pkg/metrics"
	"yqhp/loadtest-engine/pkg/types"

	"github.com/duke-git/lancet/v2/maputil"
)

// Input is everything the run controller knows at teardown.
type Input struct {
	RunID              string
	Plan               *types.TestPlan
	StartTime          time.Time
	EndTime            time.Time
	Iterations         int64
	MaxVUs             int
	Interrupted        bool
	AbortedByThreshold bool
	TrendPolicy        string
	Snapshot           metrics.Snapshot
	Thresholds         []types.ThresholdResult
}

// Build assembles the immutable report.
func Build(in Input) *types.SummaryReport {
	r := &types.SummaryReport{
		RunID:              in.RunID,
		StartTime:          in.StartTime,
		EndTime:            in.EndTime,
		Duration:           in.EndTime.Sub(in.StartTime),
		State:              types.RunStateReported,
		TotalIterations:    in.Iterations,
		MaxVUs:             in.MaxVUs,
		Interrupted:        in.Interrupted,
		AbortedByThreshold: in.AbortedByThreshold,
		TrendPolicy:        in.TrendPolicy,
		Metrics:            maputil.Merge(in.Snapshot.Metrics),
		Thresholds:         append([]types.ThresholdResult(nil), in.Thresholds...),
		Passed:             engine.Passed(in.Thresholds),
	}
	if in.Plan != nil {
		r.PlanName = in.Plan.Name
		r.Profile = in.Plan.Profile
		r.BaseURL = in.Plan.BaseURL
		r.Tags = maputil.Merge(in.Plan.Tags)
	}
	return r
}

// metricGroup is a base metric followed by its submetrics.
type metricGroup struct {
	base metrics.MetricSnapshot
	subs []metrics.MetricSnapshot
}

// groupMetrics orders metrics by name with submetrics nested under their base.
func groupMetrics(all map[string]metrics.MetricSnapshot) []metricGroup {
	names := maputil.Keys(all)
	sort.Strings(names)

	var groups []metricGroup
	index := map[string]int{}
	for _, name := range names {
		m := all[name]
		if m.IsSubmetric() {
			continue
		}
		index[name] = len(groups)
		groups = append(groups, metricGroup{base: m})
	}
	for _, name := range names {
		m := all[name]
		if !m.IsSubmetric() {
			continue
		}
		i, ok := index[m.Base]
		if !ok {
			index[name] = len(groups)
			groups = append(groups, metricGroup{base: m})
			continue
		}
		groups[i].subs = append(groups[i].subs, m)
	}
	return groups
}
