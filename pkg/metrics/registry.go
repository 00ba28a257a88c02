package metrics

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

type entry struct {
	metric Metric
	base   string
	tags   Tags
}

// Registry owns every metric of a run. It is created per run and passed
// explicitly to whoever records.
type Registry struct {
	mu      sync.RWMutex
	metrics map[string]*entry
	policy  TrendPolicy
	start   time.Time
}

// NewRegistry creates an empty registry whose trends use policy.
func NewRegistry(policy TrendPolicy) *Registry {
	if policy == "" {
		policy = PolicyExact
	}
	return &Registry{
		metrics: make(map[string]*entry),
		policy:  policy,
	}
}

// Policy returns the trend policy.
func (r *Registry) Policy() TrendPolicy {
	return r.policy
}

// MarkStart sets the origin used for per-second counter rates.
func (r *Registry) MarkStart(t time.Time) {
	r.mu.Lock()
	r.start = t
	r.mu.Unlock()
}

// Register returns the metric named name, creating it when absent. Reusing a
// name with another type fails with ErrTypeMismatch.
func (r *Registry) Register(name string, typ MetricType) (Metric, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	base, tags := SplitSubmetricName(name)
	return r.register(name, base, tags, typ)
}

func (r *Registry) register(name, base string, tags Tags, typ MetricType) (Metric, error) {
	r.mu.RLock()
	e, ok := r.metrics[name]
	r.mu.RUnlock()
	if ok {
		return checkType(e.metric, typ)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.metrics[name]; ok {
		return checkType(e.metric, typ)
	}

	var m Metric
	switch typ {
	case TypeCounter:
		m = &Counter{name: name}
	case TypeRate:
		m = &Rate{name: name}
	case TypeTrend:
		m = &Trend{name: name, store: newStore(r.policy)}
	default:
		return nil, fmt.Errorf("unknown metric type %q", typ)
	}
	r.metrics[name] = &entry{metric: m, base: base, tags: tags}
	return m, nil
}

func checkType(m Metric, typ MetricType) (Metric, error) {
	if m.Type() != typ {
		return nil, fmt.Errorf("%w: %s is a %s, not a %s", ErrTypeMismatch, m.Name(), m.Type(), typ)
	}
	return m, nil
}

// Counter returns the named counter and panics on a type mismatch.
func (r *Registry) Counter(name string) *Counter {
	return mustRegister(r, name, TypeCounter).(*Counter)
}

// Rate returns the named rate and panics on a type mismatch.
func (r *Registry) Rate(name string) *Rate {
	return mustRegister(r, name, TypeRate).(*Rate)
}

// Trend returns the named trend and panics on a type mismatch.
func (r *Registry) Trend(name string) *Trend {
	return mustRegister(r, name, TypeTrend).(*Trend)
}

func mustRegister(r *Registry, name string, typ MetricType) Metric {
	m, err := r.Register(name, typ)
	if err != nil {
		panic(err)
	}
	return m
}

// submetric returns the tagged child of base, creating it on first use.
func (r *Registry) submetric(base string, tags Tags, typ MetricType) (Metric, error) {
	return r.register(SubmetricName(base, tags), base, tags, typ)
}

// Get looks up a metric by its full name.
func (r *Registry) Get(name string) (Metric, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.metrics[name]
	if !ok {
		return nil, false
	}
	return e.metric, true
}

// Names returns all metric names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.metrics))
	for name := range r.metrics {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Snapshot copies every metric's aggregates. Each metric is copied under its
// own lock; recorders are never blocked for the whole registry.
func (r *Registry) Snapshot() Snapshot {
	now := time.Now()

	r.mu.RLock()
	entries := make([]*entry, 0, len(r.metrics))
	for _, e := range r.metrics {
		entries = append(entries, e)
	}
	start := r.start
	r.mu.RUnlock()

	var elapsed time.Duration
	if !start.IsZero() {
		elapsed = now.Sub(start)
	}

	out := Snapshot{
		Time:    now,
		Elapsed: elapsed,
		Metrics: make(map[string]MetricSnapshot, len(entries)),
	}
	for _, e := range entries {
		s := e.metric.snapshot(elapsed.Seconds())
		s.Base = e.base
		s.Tags = e.tags
		out.Metrics[s.Name] = s
	}
	return out
}
