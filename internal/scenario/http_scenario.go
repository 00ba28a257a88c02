package scenario

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"yqhp/loadtest-engine/pkg/metrics"
	"yqhp/loadtest-engine/pkg/types"
)

type compiledRequest struct {
	name   string
	req    Request
	expect []int
	checks []Check
	sleep  time.Duration
}

// HTTPScenario runs a fixed sequence of requests against the target and
// records the built-in HTTP metrics plus the scenario's custom metrics.
type HTTPScenario struct {
	name     string
	client   *HTTPClient
	requests []compiledRequest
	custom   types.ScenarioMetrics
}

// NewHTTPScenario compiles spec. Custom metrics are not registered here; see Build.
func NewHTTPScenario(spec types.ScenarioSpec, client *HTTPClient) (*HTTPScenario, error) {
	if spec.Name == "" {
		return nil, fmt.Errorf("scenario name is empty")
	}
	if len(spec.Requests) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoRequests, spec.Name)
	}

	s := &HTTPScenario{name: spec.Name, client: client, custom: spec.Metrics}
	for i, rs := range spec.Requests {
		name := rs.Name
		if name == "" {
			name = fmt.Sprintf("%s #%d", spec.Name, i+1)
		}
		cr := compiledRequest{
			name: name,
			req: Request{
				Method:  strings.ToUpper(rs.Method),
				Path:    rs.Path,
				Headers: rs.Headers,
				Timeout: rs.Timeout,
			},
			expect: rs.ExpectStatus,
			sleep:  rs.Sleep,
		}
		if rs.Body != "" {
			cr.req.Body = []byte(rs.Body)
		}
		for _, cs := range rs.Checks {
			c, err := CompileCheck(cs)
			if err != nil {
				return nil, fmt.Errorf("scenario %s, request %s: %w", spec.Name, name, err)
			}
			cr.checks = append(cr.checks, c)
		}
		s.requests = append(s.requests, cr)
	}
	return s, nil
}

func (s *HTTPScenario) Name() string { return s.name }

// Run executes every request in order. Target failures become failed checks
// and http_req_failed samples; Run itself only fails on context cancellation
// between requests.
func (s *HTTPScenario) Run(ctx context.Context, it *Iteration) error {
	rec := it.Recorder
	start := time.Now()

	for i, cr := range s.requests {
		resp := s.client.Do(ctx, cr.req)

		rec.Add(metrics.HTTPReqs, 1)
		rec.Duration(metrics.HTTPReqDuration, resp.Duration)
		ok := resp.Err == nil && expectedStatus(cr.expect, resp.Status)
		rec.Rate(metrics.HTTPReqFailed, !ok)
		rec.Add(metrics.DataSent, resp.BytesSent)
		rec.Add(metrics.DataReceived, resp.BytesReceived)

		passed := true
		for _, c := range cr.checks {
			if !it.Check(c.Name(), c.Eval(resp)) {
				passed = false
			}
		}
		// A request without checks is judged by its status alone.
		if len(cr.checks) == 0 {
			passed = it.Check(cr.name+" status ok", ok)
		}

		if s.custom.Counter != "" {
			rec.Add(s.custom.Counter, 1)
		}
		if s.custom.ErrorRate != "" {
			rec.Rate(s.custom.ErrorRate, !passed)
		}

		if cr.sleep > 0 && i < len(s.requests)-1 {
			if err := sleep(ctx, cr.sleep); err != nil {
				return nil
			}
		}
	}

	if s.custom.Trend != "" {
		rec.Duration(s.custom.Trend, time.Since(start))
	}
	return nil
}

// expectedStatus treats 2xx and 3xx as success unless explicit codes are given.
func expectedStatus(expect []int, status int) bool {
	if len(expect) == 0 {
		return status >= 200 && status < 400
	}
	return slices.Contains(expect, status)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Build compiles every scenario spec and registers their custom metrics on
// reg so thresholds on them validate before the run starts.
func Build(specs []types.ScenarioSpec, client *HTTPClient, reg *metrics.Registry) ([]Entry, error) {
	entries := make([]Entry, 0, len(specs))
	for _, spec := range specs {
		s, err := NewHTTPScenario(spec, client)
		if err != nil {
			return nil, err
		}
		for _, m := range []struct {
			name string
			typ  metrics.MetricType
		}{
			{spec.Metrics.Trend, metrics.TypeTrend},
			{spec.Metrics.Counter, metrics.TypeCounter},
			{spec.Metrics.ErrorRate, metrics.TypeRate},
		} {
			if m.name == "" {
				continue
			}
			if _, err := reg.Register(m.name, m.typ); err != nil {
				return nil, fmt.Errorf("scenario %s: %w", spec.Name, err)
			}
		}
		entries = append(entries, Entry{Scenario: s, Weight: spec.Weight, ThinkTime: spec.ThinkTime})
	}
	return entries, nil
}
