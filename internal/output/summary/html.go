package summary

import (
	"bytes"
	"html/template"
	"time"

	"yqhp/loadtest-engine/pkg/metrics"
	"yqhp/loadtest-engine/pkg/types"
)

var htmlTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"values": FormatValues,
	"round": func(d time.Duration) time.Duration {
		return d.Round(time.Millisecond)
	},
	"ts": func(t time.Time) string {
		return t.Format(time.RFC3339)
	},
	"num": formatFloat,
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Load test report: {{.Report.PlanName}}</title>
<style>
body { font-family: -apple-system, "Segoe UI", Roboto, sans-serif; margin: 2rem; color: #222; }
h1 { margin-bottom: 0.2rem; }
.meta { color: #666; margin-bottom: 1.5rem; }
table { border-collapse: collapse; width: 100%; margin-bottom: 2rem; }
th, td { text-align: left; padding: 0.4rem 0.6rem; border-bottom: 1px solid #eee; font-size: 0.9rem; }
th { background: #fafafa; }
td.sub { padding-left: 2rem; color: #555; }
.pass { color: #1a7f37; font-weight: 600; }
.fail { color: #cf222e; font-weight: 600; }
.banner { padding: 0.8rem 1rem; border-radius: 4px; margin-bottom: 1.5rem; }
.banner.pass { background: #dafbe1; }
.banner.fail { background: #ffebe9; }
</style>
</head>
<body>
<h1>{{.Report.PlanName}}{{if .Report.Profile}} ({{.Report.Profile}}){{end}}</h1>
<div class="meta">
run {{.Report.RunID}} &middot; {{ts .Report.StartTime}} &middot; {{round .Report.Duration}}
&middot; {{.Report.TotalIterations}} iterations &middot; max {{.Report.MaxVUs}} VUs
{{if .Report.BaseURL}}&middot; {{.Report.BaseURL}}{{end}}
</div>
{{if .Report.Passed}}
<div class="banner pass">All thresholds passed</div>
{{else}}
<div class="banner fail">{{.Report.FailedThresholds}} threshold(s) failed</div>
{{end}}
{{if .Report.AbortedByThreshold}}<div class="banner fail">Run aborted by an abort_on_fail threshold</div>{{end}}
{{if .Report.Interrupted}}<div class="banner fail">Run interrupted by operator</div>{{end}}

<h2>Thresholds</h2>
<table>
<tr><th>Metric</th><th>Expression</th><th>Observed</th><th>Result</th></tr>
{{range .Report.Thresholds}}
<tr>
<td>{{.Metric}}</td><td>{{.Expression}}</td>
<td>{{if .Error}}{{.Error}}{{else}}{{num .Observed}}{{end}}</td>
<td class="{{if .Passed}}pass{{else}}fail{{end}}">{{if .Passed}}PASS{{else}}FAIL{{end}}</td>
</tr>
{{end}}
</table>

<h2>Metrics</h2>
<table>
<tr><th>Metric</th><th>Type</th><th>Values</th></tr>
{{range .Groups}}
<tr><td>{{.Base.Name}}</td><td>{{.Base.Type}}</td><td>{{values .Base}}</td></tr>
{{range .Subs}}<tr><td class="sub">{{.Name}}</td><td>{{.Type}}</td><td>{{values .}}</td></tr>
{{end}}{{end}}
</table>

{{if .Report.Tags}}
<h2>Tags</h2>
<table>
{{range $k, $v := .Report.Tags}}<tr><td>{{$k}}</td><td>{{$v}}</td></tr>
{{end}}
</table>
{{end}}
</body>
</html>
`))

type htmlGroup struct {
	Base metrics.MetricSnapshot
	Subs []metrics.MetricSnapshot
}

// HTML renders a standalone page with pass/fail styling.
func HTML(r *types.SummaryReport) ([]byte, error) {
	groups := groupMetrics(r.Metrics)
	data := struct {
		Report *types.SummaryReport
		Groups []htmlGroup
	}{Report: r}
	for _, g := range groups {
		data.Groups = append(data.Groups, htmlGroup{Base: g.base, Subs: g.subs})
	}

	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
