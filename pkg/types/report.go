package types

import (
	"time"

	"yqhp/loadtest-engine/pkg/metrics"
)

// SummaryReport is the final, read-only result of a run. Every output format
// is rendered from it alone.
type SummaryReport struct {
	RunID              string                            `json:"run_id"`
	PlanName           string                            `json:"plan_name"`
	Profile            string                            `json:"profile,omitempty"`
	BaseURL            string                            `json:"base_url"`
	StartTime          time.Time                         `json:"start_time"`
	EndTime            time.Time                         `json:"end_time"`
	Duration           time.Duration                     `json:"duration"`
	State              RunState                          `json:"state"`
	TotalIterations    int64                             `json:"total_iterations"`
	MaxVUs             int                               `json:"max_vus"`
	Interrupted        bool                              `json:"interrupted,omitempty"`
	AbortedByThreshold bool                              `json:"aborted_by_threshold,omitempty"`
	TrendPolicy        string                            `json:"trend_policy"`
	Tags               map[string]string                 `json:"tags,omitempty"`
	Metrics            map[string]metrics.MetricSnapshot `json:"metrics"`
	Thresholds         []ThresholdResult                 `json:"thresholds"`
	Passed             bool                              `json:"passed"`
}

// FailedThresholds counts results that did not pass, configuration errors included.
func (r *SummaryReport) FailedThresholds() int {
	n := 0
	for _, t := range r.Thresholds {
		if !t.Passed {
			n++
		}
	}
	return n
}
