package metrics

import (
	"time"

	"yqhp/loadtest-engine/pkg/logger"

	"go.uber.org/zap"
)

// Recorder writes samples into a registry on behalf of one tagged source,
// usually a scenario. Each sample lands on the base metric and, when the
// recorder carries tags, on the matching submetric.
type Recorder struct {
	reg  *Registry
	tags Tags
}

// NewRecorder binds tags to reg. A nil or empty tag set records to base
// metrics only.
func NewRecorder(reg *Registry, tags Tags) *Recorder {
	return &Recorder{reg: reg, tags: tags}
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *Registry {
	return r.reg
}

// Tags returns the recorder's tags.
func (r *Recorder) Tags() Tags {
	return r.tags
}

// Add increments the counter name by n.
func (r *Recorder) Add(name string, n int64) {
	r.each(name, TypeCounter, func(m Metric) { m.(*Counter).Add(n) })
}

// Rate records one boolean observation on the rate name.
func (r *Recorder) Rate(name string, ok bool) {
	r.each(name, TypeRate, func(m Metric) { m.(*Rate).Add(ok) })
}

// Trend records a raw sample on the trend name.
func (r *Recorder) Trend(name string, v float64) {
	r.each(name, TypeTrend, func(m Metric) { m.(*Trend).Add(v) })
}

// Duration records d in milliseconds on the trend name.
func (r *Recorder) Duration(name string, d time.Duration) {
	r.each(name, TypeTrend, func(m Metric) { m.(*Trend).AddDuration(d) })
}

func (r *Recorder) each(name string, typ MetricType, fn func(Metric)) {
	m, err := r.reg.Register(name, typ)
	if err != nil {
		logger.Warn("dropping sample", zap.String("metric", name), zap.Error(err))
		return
	}
	fn(m)
	if len(r.tags) == 0 {
		return
	}
	sub, err := r.reg.submetric(name, r.tags, typ)
	if err != nil {
		logger.Warn("dropping sample", zap.String("metric", SubmetricName(name, r.tags)), zap.Error(err))
		return
	}
	fn(sub)
}
