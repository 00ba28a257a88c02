package scenario

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"yqhp/loadtest-engine/pkg/metrics"
	"yqhp/loadtest-engine/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

func costsHandler(ctx *fasthttp.RequestCtx) {
	switch string(ctx.Path()) {
	case "/health":
		ctx.SetContentType("application/json")
		ctx.SetBodyString(`{"status":"ok"}`)
	case "/api/costs/daily":
		ctx.SetContentType("application/json")
		ctx.SetBodyString(`{"date":"` + string(ctx.QueryArgs().Peek("date")) + `","total":12}`)
	case "/api/metrics/containers":
		ctx.SetBodyString(`{"containers":[{"id":"a"}]}`)
	case "/slow":
		time.Sleep(200 * time.Millisecond)
		ctx.SetBodyString(`{}`)
	case "/broken":
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		ctx.SetBodyString(`not json`)
	default:
		ctx.SetStatusCode(fasthttp.StatusNotFound)
	}
}

func TestHTTPClient_Do(t *testing.T) {
	client := newTestClient(t, costsHandler)

	resp := client.Do(context.Background(), Request{Path: "/health"})
	require.NoError(t, resp.Err)
	assert.Equal(t, 200, resp.Status)
	assert.Positive(t, resp.BytesSent)
	assert.Positive(t, resp.BytesReceived)

	body, err := resp.JSON()
	require.NoError(t, err)
	assert.Equal(t, "ok", body.(map[string]any)["status"])
}

func TestHTTPClient_Timeout(t *testing.T) {
	client := newTestClient(t, costsHandler)

	resp := client.Do(context.Background(), Request{Path: "/slow", Timeout: 20 * time.Millisecond})
	require.Error(t, resp.Err)
	assert.ErrorIs(t, resp.Err, ErrRequestTimeout)
	assert.Equal(t, 0, resp.Status)
}

func TestHTTPClient_URL(t *testing.T) {
	c := NewHTTPClient(ClientConfig{BaseURL: "http://localhost/"})
	assert.Equal(t, "http://localhost/health", c.URL("/health"))
	assert.Equal(t, "http://localhost/health", c.URL("health"))
	assert.Equal(t, "https://other/x", c.URL("https://other/x"))
}

func newIteration(reg *metrics.Registry, name string) *Iteration {
	return &Iteration{VUID: 1, Number: 1, Recorder: metrics.NewRecorder(reg, metrics.Tags{metrics.TagScenario: name})}
}

func TestHTTPScenario_RecordsMetricsAndChecks(t *testing.T) {
	client := newTestClient(t, costsHandler)
	reg := metrics.NewRegistry(metrics.PolicyExact)
	metrics.RegisterBuiltins(reg)

	specs := []types.ScenarioSpec{{
		Name: "api_usage",
		Requests: []types.RequestSpec{
			{
				Path: "/api/costs/daily?date=2024-01-01",
				Checks: []types.CheckSpec{
					{Status: 200},
					{JSONPath: "$.date", Equals: "2024-01-01"},
					{JSONPath: "$.total", Equals: 12},
					{MaxDuration: time.Second},
				},
				Sleep: 10 * time.Millisecond,
			},
			{
				Path:   "/api/metrics/containers",
				Checks: []types.CheckSpec{{JSONPath: "$.containers", IsArray: true}},
			},
		},
		Metrics: types.ScenarioMetrics{Trend: "api_call_duration", Counter: "api_calls", ErrorRate: "errors"},
	}}
	entries, err := Build(specs, client, reg)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	require.NoError(t, entries[0].Scenario.Run(context.Background(), newIteration(reg, "api_usage")))

	snap := reg.Snapshot()
	assert.Equal(t, 2.0, snap.Metrics[metrics.HTTPReqs].Values[metrics.StatCount])
	assert.Equal(t, 0.0, snap.Metrics[metrics.HTTPReqFailed].Values[metrics.StatRate])
	assert.Equal(t, 1.0, snap.Metrics[metrics.Checks].Values[metrics.StatRate])
	assert.Equal(t, 5.0, snap.Metrics[metrics.Checks].Values[metrics.StatCount])
	assert.Equal(t, 2.0, snap.Metrics["api_calls"].Values[metrics.StatCount])
	assert.Equal(t, 0.0, snap.Metrics["errors"].Values[metrics.StatRate])
	assert.Equal(t, 1.0, snap.Metrics["api_call_duration"].Values[metrics.StatCount])
	assert.GreaterOrEqual(t, snap.Metrics["api_call_duration"].Values[metrics.StatMin], 10.0)

	sub, ok := snap.Get("http_reqs{scenario:api_usage}")
	require.True(t, ok)
	assert.Equal(t, 2.0, sub.Values[metrics.StatCount])
}

func TestHTTPScenario_TargetFailuresAreFailedChecks(t *testing.T) {
	client := newTestClient(t, costsHandler)
	reg := metrics.NewRegistry(metrics.PolicyExact)

	s, err := NewHTTPScenario(types.ScenarioSpec{
		Name: "broken",
		Requests: []types.RequestSpec{
			{Path: "/broken", Checks: []types.CheckSpec{{Name: "status is 200", Status: 200}, {JSONPath: "$.x"}}},
			{Path: "/slow", Timeout: 10 * time.Millisecond},
		},
		Metrics: types.ScenarioMetrics{ErrorRate: "errors"},
	}, client)
	require.NoError(t, err)

	require.NoError(t, s.Run(context.Background(), newIteration(reg, "broken")))

	snap := reg.Snapshot()
	assert.Equal(t, 1.0, snap.Metrics[metrics.HTTPReqFailed].Values[metrics.StatRate])
	assert.Equal(t, 0.0, snap.Metrics[metrics.Checks].Values[metrics.StatRate])
	assert.Equal(t, 3.0, snap.Metrics[metrics.Checks].Values[metrics.StatCount])
	assert.Equal(t, 1.0, snap.Metrics["errors"].Values[metrics.StatRate])
}

func TestHTTPScenario_RequestWithoutChecksUsesStatus(t *testing.T) {
	var n atomic.Int64
	client := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		switch n.Add(1) % 10 {
		case 0:
			ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		case 5:
			time.Sleep(150 * time.Millisecond)
		}
		ctx.SetBodyString(`{}`)
	})
	reg := metrics.NewRegistry(metrics.PolicyExact)

	s, err := NewHTTPScenario(types.ScenarioSpec{
		Name:     "flaky",
		Requests: []types.RequestSpec{{Name: "ping", Path: "/api/ping", Timeout: 50 * time.Millisecond}},
		Metrics:  types.ScenarioMetrics{ErrorRate: "errors"},
	}, client)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		require.NoError(t, s.Run(context.Background(), newIteration(reg, "flaky")))
	}

	snap := reg.Snapshot()
	assert.Equal(t, 20.0, snap.Metrics[metrics.HTTPReqs].Values[metrics.StatCount])
	assert.Equal(t, 20.0, snap.Metrics[metrics.Checks].Values[metrics.StatCount])
	assert.InDelta(t, 0.8, snap.Metrics[metrics.Checks].Values[metrics.StatRate], 1e-9)
	assert.InDelta(t, 0.2, snap.Metrics[metrics.HTTPReqFailed].Values[metrics.StatRate], 1e-9)
	assert.InDelta(t, 0.2, snap.Metrics["errors"].Values[metrics.StatRate], 1e-9)
}

func TestHTTPScenario_ExpectStatus(t *testing.T) {
	assert.True(t, expectedStatus(nil, 204))
	assert.True(t, expectedStatus(nil, 302))
	assert.False(t, expectedStatus(nil, 404))
	assert.False(t, expectedStatus(nil, 0))
	assert.True(t, expectedStatus([]int{404}, 404))
	assert.False(t, expectedStatus([]int{404}, 200))
}

func TestBuild_Errors(t *testing.T) {
	reg := metrics.NewRegistry(metrics.PolicyExact)
	client := NewHTTPClient(ClientConfig{BaseURL: "http://localhost"})

	_, err := Build([]types.ScenarioSpec{{Name: "empty"}}, client, reg)
	assert.ErrorIs(t, err, ErrNoRequests)

	_, err = Build([]types.ScenarioSpec{{
		Name:     "bad",
		Requests: []types.RequestSpec{{Path: "/", Checks: []types.CheckSpec{{Status: 200, JS: "true"}}}},
	}}, client, reg)
	assert.ErrorIs(t, err, ErrInvalidCheck)

	reg.Counter("taken")
	_, err = Build([]types.ScenarioSpec{{
		Name:     "clash",
		Requests: []types.RequestSpec{{Path: "/"}},
		Metrics:  types.ScenarioMetrics{Trend: "taken"},
	}}, client, reg)
	assert.ErrorIs(t, err, metrics.ErrTypeMismatch)
}
