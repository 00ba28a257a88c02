package summary

import (
	"fmt"
	"strings"
	"time"

	"yqhp/loadtest-engine/pkg/metrics"
	"yqhp/loadtest-engine/pkg/types"

	"github.com/duke-git/lancet/v2/slice"
)

const (
	colorGreen = "\x1b[32m"
	colorRed   = "\x1b[31m"
	colorDim   = "\x1b[2m"
	colorReset = "\x1b[0m"

	nameWidth = 44
)

// TextOptions tune the terminal rendering.
type TextOptions struct {
	NoColor bool
}

// Text renders the k6-style terminal summary.
func Text(r *types.SummaryReport, opts TextOptions) string {
	p := &printer{color: !opts.NoColor}

	p.line(0, "")
	title := r.PlanName
	if r.Profile != "" {
		title += " (" + r.Profile + ")"
	}
	p.line(1, "run: %s", title)
	p.line(1, "id: %s", r.RunID)
	if r.BaseURL != "" {
		p.line(1, "target: %s", r.BaseURL)
	}
	p.line(1, "duration: %s, iterations: %d, max vus: %d", r.Duration.Round(time.Millisecond), r.TotalIterations, r.MaxVUs)
	switch {
	case r.AbortedByThreshold:
		p.line(1, "%s", p.paint(colorRed, "run aborted: a threshold with abort_on_fail was crossed"))
	case r.Interrupted:
		p.line(1, "%s", p.paint(colorRed, "run interrupted by operator"))
	}
	p.line(0, "")

	for _, g := range groupMetrics(r.Metrics) {
		p.metric(1, g.base, g.base.Name)
		for _, sub := range g.subs {
			label := "{" + strings.TrimPrefix(sub.Name, sub.Base+"{")
			p.metric(2, sub, label)
		}
	}

	if len(r.Thresholds) > 0 {
		p.line(0, "")
		failed := slice.Filter(r.Thresholds, func(_ int, t types.ThresholdResult) bool { return !t.Passed })
		p.line(1, "thresholds: %d passed, %d failed", len(r.Thresholds)-len(failed), len(failed))
		for _, t := range r.Thresholds {
			mark := p.paint(colorGreen, "✓")
			if !t.Passed {
				mark = p.paint(colorRed, "✗")
			}
			detail := fmt.Sprintf("observed %s", formatFloat(t.Observed))
			if t.Error != "" {
				detail = "error: " + t.Error
			}
			p.line(2, "%s %s %s %s", mark, t.Metric, t.Expression, p.paint(colorDim, detail))
		}
	}

	p.line(0, "")
	if r.Passed {
		p.line(1, "%s", p.paint(colorGreen, "PASSED"))
	} else {
		p.line(1, "%s", p.paint(colorRed, "FAILED"))
	}
	return p.String()
}

type printer struct {
	strings.Builder
	color bool
}

func (p *printer) line(indent int, format string, args ...any) {
	p.WriteString(strings.Repeat("  ", indent))
	fmt.Fprintf(p, format, args...)
	p.WriteByte('\n')
}

func (p *printer) paint(color, s string) string {
	if !p.color {
		return s
	}
	return color + s + colorReset
}

func (p *printer) metric(indent int, m metrics.MetricSnapshot, label string) {
	dots := nameWidth - len(label) - 2*indent
	if dots < 3 {
		dots = 3
	}
	p.line(indent, "%s%s: %s", label, p.paint(colorDim, strings.Repeat(".", dots)), FormatValues(m))
}

// FormatValues renders a metric's aggregates on one line.
func FormatValues(m metrics.MetricSnapshot) string {
	v := m.Values
	switch m.Type {
	case metrics.TypeCounter:
		return fmt.Sprintf("%s %s/s", formatFloat(v[metrics.StatCount]), formatFloat(v[metrics.StatRate]))
	case metrics.TypeRate:
		return fmt.Sprintf("%.2f%% ✓ %d ✗ %d",
			v[metrics.StatRate]*100, int64(v[metrics.StatPasses]), int64(v[metrics.StatFails]))
	case metrics.TypeTrend:
		parts := make([]string, 0, 7)
		for _, k := range []string{metrics.StatAvg, metrics.StatMin, metrics.StatMed, metrics.StatMax, metrics.StatP90, metrics.StatP95, metrics.StatP99} {
			parts = append(parts, k+"="+formatMillis(v[k]))
		}
		return strings.Join(parts, " ")
	default:
		return ""
	}
}

func formatMillis(ms float64) string {
	switch {
	case ms >= 60_000:
		return (time.Duration(ms * float64(time.Millisecond))).Round(time.Second).String()
	case ms >= 1000:
		return fmt.Sprintf("%.2fs", ms/1000)
	case ms >= 1:
		return fmt.Sprintf("%.2fms", ms)
	case ms > 0:
		return fmt.Sprintf("%.2fµs", ms*1000)
	default:
		return "0s"
	}
}

func formatFloat(f float64) string {
	if f == float64(int64(f)) && f < 1e15 && f > -1e15 {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%.4g", f)
}
