// Package prometheus exposes a run's metric registry to Prometheus, either
// scraped through an HTTP handler or pushed to a Push Gateway on an interval.
package prometheus

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"yqhp/loadtest-engine/pkg/logger"
	"yqhp/loadtest-engine/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
	"go.uber.org/zap"
)

const namespace = "loadtest"

var (
	invalidChars = regexp.MustCompile(`[^a-zA-Z0-9_]`)

	trendQuantiles = []struct {
		q    float64
		stat string
	}{
		{0.5, metrics.StatMed},
		{0.9, metrics.StatP90},
		{0.95, metrics.StatP95},
		{0.99, metrics.StatP99},
	}
)

// Config holds Push Gateway settings. An empty URL disables pushing.
type Config struct {
	PushGatewayURL string
	JobName        string
	PushInterval   time.Duration
}

// Collector converts registry snapshots into const Prometheus metrics on
// every collection. Base metrics carry scenario="", per-scenario submetrics
// carry their scenario name. Run tags become const labels.
type Collector struct {
	reg         *metrics.Registry
	constLabels prometheus.Labels
}

// NewCollector builds an unchecked collector over reg.
func NewCollector(reg *metrics.Registry, tags map[string]string) *Collector {
	labels := prometheus.Labels{}
	for k, v := range tags {
		labels[SanitizeName(k)] = v
	}
	return &Collector{reg: reg, constLabels: labels}
}

// Describe sends nothing, which makes the collector unchecked: the metric
// set grows as scenarios record new names.
func (c *Collector) Describe(chan<- *prometheus.Desc) {}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.reg.Snapshot()
	names := make([]string, 0, len(snap.Metrics))
	for name := range snap.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		m := snap.Metrics[name]
		scenario := ""
		base := m.Name
		if m.IsSubmetric() {
			if len(m.Tags) != 1 || m.Tags[metrics.TagScenario] == "" {
				continue
			}
			scenario = m.Tags[metrics.TagScenario]
			base = m.Base
		}
		if err := c.emit(ch, base, scenario, m); err != nil {
			logger.Warn("skipping metric in prometheus export", zap.String("metric", name), zap.Error(err))
		}
	}
}

func (c *Collector) emit(ch chan<- prometheus.Metric, base, scenario string, m metrics.MetricSnapshot) error {
	v := m.Values
	fq := prometheus.BuildFQName(namespace, "", SanitizeName(base))
	labels := []string{metrics.TagScenario}

	switch m.Type {
	case metrics.TypeCounter:
		desc := prometheus.NewDesc(fq+"_total", base+" counter", labels, c.constLabels)
		pm, err := prometheus.NewConstMetric(desc, prometheus.CounterValue, v[metrics.StatCount], scenario)
		if err != nil {
			return err
		}
		ch <- pm
	case metrics.TypeRate:
		desc := prometheus.NewDesc(fq+"_ratio", base+" rate of true observations", labels, c.constLabels)
		pm, err := prometheus.NewConstMetric(desc, prometheus.GaugeValue, v[metrics.StatRate], scenario)
		if err != nil {
			return err
		}
		ch <- pm
	case metrics.TypeTrend:
		desc := prometheus.NewDesc(fq+"_milliseconds", base+" distribution in milliseconds", labels, c.constLabels)
		quantiles := make(map[float64]float64, len(trendQuantiles))
		for _, q := range trendQuantiles {
			quantiles[q.q] = v[q.stat]
		}
		count := v[metrics.StatCount]
		pm, err := prometheus.NewConstSummary(desc, uint64(count), v[metrics.StatAvg]*count, quantiles, scenario)
		if err != nil {
			return err
		}
		ch <- pm
	default:
		return fmt.Errorf("unsupported metric type %q", m.Type)
	}
	return nil
}

// SanitizeName maps a metric or tag name onto the Prometheus charset.
func SanitizeName(name string) string {
	s := strings.Trim(invalidChars.ReplaceAllString(name, "_"), "_")
	if s != "" && s[0] >= '0' && s[0] <= '9' {
		s = "_" + s
	}
	return s
}

// Handler serves the collector in the text exposition format.
func Handler(c *Collector) http.Handler {
	r := prometheus.NewRegistry()
	r.MustRegister(c)
	return promhttp.HandlerFor(r, promhttp.HandlerOpts{})
}

// Pusher periodically pushes the collector to a Push Gateway.
type Pusher struct {
	pusher   *push.Pusher
	interval time.Duration
}

// NewPusher returns nil when cfg has no URL.
func NewPusher(c *Collector, runID string, cfg Config) *Pusher {
	if cfg.PushGatewayURL == "" {
		return nil
	}
	if cfg.JobName == "" {
		cfg.JobName = "loadtest_engine"
	}
	if cfg.PushInterval <= 0 {
		cfg.PushInterval = 10 * time.Second
	}
	p := push.New(cfg.PushGatewayURL, cfg.JobName).
		Collector(c).
		Grouping("run_id", runID)
	return &Pusher{pusher: p, interval: cfg.PushInterval}
}

// Run pushes on every interval until ctx is done, then pushes once more so
// the gateway holds the final values.
func (p *Pusher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			p.push(context.WithoutCancel(ctx))
			return
		case <-ticker.C:
			p.push(ctx)
		}
	}
}

func (p *Pusher) push(ctx context.Context) {
	if err := p.pusher.PushContext(ctx); err != nil {
		logger.Warn("prometheus push failed", zap.Error(err))
	}
}
