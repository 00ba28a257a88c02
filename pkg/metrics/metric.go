package metrics

// MetricType identifies the aggregate kind.
type MetricType string

const (
	// TypeCounter is a monotonically increasing integer total.
	TypeCounter MetricType = "counter"
	// TypeRate is the fraction of boolean observations that were true.
	TypeRate MetricType = "rate"
	// TypeTrend is a distribution of numeric samples, in milliseconds for durations.
	TypeTrend MetricType = "trend"
)

// Metric is implemented by Counter, Rate and Trend.
type Metric interface {
	Name() string
	Type() MetricType
	snapshot(elapsedSeconds float64) MetricSnapshot
}

// Stat keys used in snapshots and threshold expressions.
const (
	StatCount  = "count"
	StatRate   = "rate"
	StatPasses = "passes"
	StatFails  = "fails"
	StatAvg    = "avg"
	StatMin    = "min"
	StatMax    = "max"
	StatMed    = "med"
	StatP90    = "p(90)"
	StatP95    = "p(95)"
	StatP99    = "p(99)"
)
