package metrics

import (
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// Counter is a lock-free monotonically increasing total.
type Counter struct {
	name  string
	value atomic.Int64
}

func (c *Counter) Name() string     { return c.name }
func (c *Counter) Type() MetricType { return TypeCounter }

// Add increments the counter. Negative deltas are ignored to keep it monotonic.
func (c *Counter) Add(n int64) {
	if n <= 0 {
		return
	}
	c.value.Add(n)
}

// Value returns the current total.
func (c *Counter) Value() int64 {
	return c.value.Load()
}

func (c *Counter) snapshot(elapsed float64) MetricSnapshot {
	v := float64(c.value.Load())
	values := map[string]float64{StatCount: v, StatRate: 0}
	if elapsed > 0 {
		values[StatRate] = v / elapsed
	}
	return MetricSnapshot{Name: c.name, Type: TypeCounter, Values: values}
}

// Rate tracks how many boolean observations were true.
type Rate struct {
	name  string
	mu    sync.Mutex
	trues int64
	total int64
}

func (r *Rate) Name() string     { return r.name }
func (r *Rate) Type() MetricType { return TypeRate }

// Add records one observation.
func (r *Rate) Add(ok bool) {
	r.mu.Lock()
	r.total++
	if ok {
		r.trues++
	}
	r.mu.Unlock()
}

// Value returns trues/total, or 0 without observations.
func (r *Rate) Value() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.total == 0 {
		return 0
	}
	return float64(r.trues) / float64(r.total)
}

func (r *Rate) snapshot(float64) MetricSnapshot {
	r.mu.Lock()
	trues, total := r.trues, r.total
	r.mu.Unlock()

	values := map[string]float64{
		StatPasses: float64(trues),
		StatFails:  float64(total - trues),
		StatCount:  float64(total),
		StatRate:   0,
	}
	if total > 0 {
		values[StatRate] = float64(trues) / float64(total)
	}
	return MetricSnapshot{Name: r.name, Type: TypeRate, Values: values}
}

// Trend accumulates numeric samples and answers distribution queries.
type Trend struct {
	name  string
	mu    sync.Mutex
	store sampleStore
	count int64
	sum   float64
	min   float64
	max   float64
}

func (t *Trend) Name() string     { return t.name }
func (t *Trend) Type() MetricType { return TypeTrend }

// Add records one sample. NaN and infinite values are dropped.
func (t *Trend) Add(v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.store.add(v)
	if t.count == 0 || v < t.min {
		t.min = v
	}
	if t.count == 0 || v > t.max {
		t.max = v
	}
	t.count++
	t.sum += v
}

// AddDuration records d in milliseconds.
func (t *Trend) AddDuration(d time.Duration) {
	t.Add(float64(d) / float64(time.Millisecond))
}

// Count returns the number of recorded samples.
func (t *Trend) Count() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

func (t *Trend) snapshot(float64) MetricSnapshot {
	// Only the copy happens under the lock; sorting and quantiles run on the copy.
	t.mu.Lock()
	q := t.store.freeze()
	count, sum, min, max := t.count, t.sum, t.min, t.max
	t.mu.Unlock()

	values := map[string]float64{
		StatCount: float64(count),
		StatMin:   min,
		StatMax:   max,
		StatAvg:   0,
		StatMed:   0,
		StatP90:   0,
		StatP95:   0,
		StatP99:   0,
	}
	if count > 0 {
		q.prepare()
		values[StatAvg] = sum / float64(count)
		values[StatMed] = q.percentile(50)
		values[StatP90] = q.percentile(90)
		values[StatP95] = q.percentile(95)
		values[StatP99] = q.percentile(99)
	}
	return MetricSnapshot{Name: t.name, Type: TypeTrend, Values: values, q: q}
}
