package metrics

import (
	"regexp"
	"strconv"
	"time"
)

// MetricSnapshot is a point-in-time copy of one metric's aggregates.
type MetricSnapshot struct {
	Name   string             `json:"name"`
	Type   MetricType         `json:"type"`
	Base   string             `json:"base,omitempty"`
	Tags   Tags               `json:"tags,omitempty"`
	Values map[string]float64 `json:"values"`

	q quantiler
}

var percentileStat = regexp.MustCompile(`^p\((\d+(?:\.\d+)?)\)$`)

// Stat returns the named aggregate. Trend snapshots also answer arbitrary
// percentiles such as "p(99.9)".
func (s MetricSnapshot) Stat(name string) (float64, bool) {
	if v, ok := s.Values[name]; ok {
		return v, true
	}
	if s.Type != TypeTrend {
		return 0, false
	}
	p, ok := ParsePercentile(name)
	if !ok {
		return 0, false
	}
	if s.q == nil || s.Values[StatCount] == 0 {
		return 0, true
	}
	return s.q.percentile(p), true
}

// IsSubmetric reports whether the snapshot belongs to a tagged submetric.
func (s MetricSnapshot) IsSubmetric() bool {
	return s.Base != "" && s.Base != s.Name
}

// ParsePercentile extracts N from "p(N)" with 0 <= N <= 100.
func ParsePercentile(stat string) (float64, bool) {
	m := percentileStat.FindStringSubmatch(stat)
	if m == nil {
		return 0, false
	}
	p, err := strconv.ParseFloat(m[1], 64)
	if err != nil || p < 0 || p > 100 {
		return 0, false
	}
	return p, true
}

// ValidStat reports whether stat can be asked of a metric of type t.
func ValidStat(t MetricType, stat string) bool {
	switch t {
	case TypeCounter:
		return stat == StatCount || stat == StatRate
	case TypeRate:
		return stat == StatRate || stat == StatPasses || stat == StatFails || stat == StatCount
	case TypeTrend:
		switch stat {
		case StatCount, StatAvg, StatMin, StatMax, StatMed:
			return true
		}
		_, ok := ParsePercentile(stat)
		return ok
	}
	return false
}

// Snapshot is a consistent-enough view of every metric in a registry.
type Snapshot struct {
	Time    time.Time                 `json:"time"`
	Elapsed time.Duration             `json:"elapsed"`
	Metrics map[string]MetricSnapshot `json:"metrics"`
}

// Get returns the snapshot of a single metric.
func (s Snapshot) Get(name string) (MetricSnapshot, bool) {
	m, ok := s.Metrics[name]
	return m, ok
}
