package runner

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"yqhp/loadtest-engine/internal/metrics/engine"
	"yqhp/loadtest-engine/internal/scenario"
	"yqhp/loadtest-engine/pkg/metrics"
	"yqhp/loadtest-engine/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

func newTarget(t *testing.T, handler fasthttp.RequestHandler) *scenario.HTTPClient {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: handler}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() {
		_ = srv.Shutdown()
		_ = ln.Close()
	})
	return scenario.NewHTTPClient(scenario.ClientConfig{
		BaseURL: "http://target.local",
		Timeout: 2 * time.Second,
		Dial:    func(string) (net.Conn, error) { return ln.Dial() },
	})
}

func healthyHandler(ctx *fasthttp.RequestCtx) {
	ctx.SetContentType("application/json")
	ctx.SetBodyString(`{"status":"ok"}`)
}

// failingHandler fails every request whose sequence number mod 20 is below fails.
func failingHandler(fails int64) fasthttp.RequestHandler {
	var n atomic.Int64
	return func(ctx *fasthttp.RequestCtx) {
		if string(ctx.Path()) == "/health" {
			healthyHandler(ctx)
			return
		}
		if n.Add(1)%20 < fails {
			ctx.SetStatusCode(fasthttp.StatusInternalServerError)
			return
		}
		healthyHandler(ctx)
	}
}

func basePlan(stages []types.Stage, thresholds types.ThresholdSet) *types.TestPlan {
	return &types.TestPlan{
		Name:       "test",
		BaseURL:    "http://target.local",
		Stages:     stages,
		Thresholds: thresholds,
		Scenarios: []types.ScenarioSpec{{
			Name: "health_check",
			Requests: []types.RequestSpec{{
				Path:   "/api/ping",
				Checks: []types.CheckSpec{{Status: 200}, {JSONPath: "$.status", Equals: "ok"}},
			}},
			Metrics: types.ScenarioMetrics{ErrorRate: "errors"},
		}},
		Options: types.Options{
			ThinkTime:    types.ThinkTime{Min: 10 * time.Millisecond, Max: 30 * time.Millisecond},
			TickInterval: 50 * time.Millisecond,
		},
	}
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrNilPlan)

	plan := basePlan(nil, nil)
	_, err = New(plan)
	assert.Error(t, err)

	plan = basePlan([]types.Stage{{Duration: time.Second, Target: 1}}, types.ThresholdSet{
		"no_such_metric": {{Expression: "count > 0"}},
	})
	_, err = New(plan)
	assert.ErrorIs(t, err, engine.ErrUnknownMetric)

	plan = basePlan([]types.Stage{{Duration: time.Second, Target: 1}}, types.ThresholdSet{
		"errors": {{Expression: "rate <"}},
	})
	_, err = New(plan)
	assert.ErrorIs(t, err, engine.ErrInvalidExpression)

	plan = basePlan([]types.Stage{{Duration: time.Second, Target: 1}}, nil)
	plan.Options.TrendPolicy = "bogus"
	_, err = New(plan)
	assert.ErrorIs(t, err, metrics.ErrUnknownPolicy)
}

func TestController_EndToEndReachesReported(t *testing.T) {
	client := newTarget(t, healthyHandler)
	plan := basePlan([]types.Stage{
		{Duration: time.Second, Target: 10},
		{Duration: 3 * time.Second, Target: 10},
		{Duration: time.Second, Target: 0},
	}, types.ThresholdSet{
		metrics.HTTPReqDuration: {{Expression: "p(95) < 500"}},
		metrics.HTTPReqFailed:   {{Expression: "rate < 0.01"}},
		"errors":                {{Expression: "rate < 0.05"}},
	})

	var teardownElapsed time.Duration
	c, err := New(plan, WithHTTPClient(client), WithTeardownHook(func(_ string, d time.Duration) { teardownElapsed = d }))
	require.NoError(t, err)
	assert.Equal(t, types.RunStateSetup, c.State())

	report, err := c.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.Equal(t, types.RunStateReported, c.State())
	assert.Equal(t, types.RunStateReported, report.State)
	assert.Same(t, report, c.Report())
	assert.True(t, report.Passed, "%+v", report.Thresholds)
	assert.False(t, report.Interrupted)
	assert.Equal(t, 10, report.MaxVUs)
	assert.Positive(t, report.TotalIterations)
	assert.GreaterOrEqual(t, teardownElapsed, 5*time.Second)
	assert.Equal(t, 0, c.Status().Execution.ActiveVUs)

	reqs := report.Metrics[metrics.HTTPReqs].Values[metrics.StatCount]
	assert.Equal(t, float64(report.TotalIterations), reqs)
}

func TestController_SpikeWithInjectedFailuresFails(t *testing.T) {
	client := newTarget(t, failingHandler(3)) // 3 of every 20 = 15%
	plan := basePlan([]types.Stage{
		{Duration: 200 * time.Millisecond, Target: 10},
		{Duration: 100 * time.Millisecond, Target: 200},
		{Duration: 600 * time.Millisecond, Target: 200},
		{Duration: 200 * time.Millisecond, Target: 10},
		{Duration: 200 * time.Millisecond, Target: 0},
	}, types.ThresholdSet{
		metrics.HTTPReqDuration: {{Expression: "p(95) < 1000"}},
		metrics.HTTPReqFailed:   {{Expression: "rate < 0.10"}},
	})

	c, err := New(plan, WithHTTPClient(client))
	require.NoError(t, err)
	report, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.False(t, report.Passed)
	var failed *types.ThresholdResult
	for i := range report.Thresholds {
		if report.Thresholds[i].Metric == metrics.HTTPReqFailed {
			failed = &report.Thresholds[i]
		}
	}
	require.NotNil(t, failed)
	assert.False(t, failed.Passed)
	assert.InDelta(t, 0.15, failed.Observed, 0.03)
	assert.Greater(t, report.MaxVUs, 100)
}

func TestController_SetupFailureAborts(t *testing.T) {
	client := newTarget(t, func(ctx *fasthttp.RequestCtx) { ctx.SetStatusCode(fasthttp.StatusServiceUnavailable) })
	plan := basePlan([]types.Stage{{Duration: time.Second, Target: 5}}, nil)

	var loadSeen atomic.Bool
	c, err := New(plan, WithHTTPClient(client), WithScenarios(scenario.Entry{
		Scenario: scenario.NewFunc("never", func(context.Context, *scenario.Iteration) error {
			loadSeen.Store(true)
			return nil
		}),
	}))
	require.NoError(t, err)

	report, err := c.Run(context.Background())
	assert.ErrorIs(t, err, ErrSetupFailed)
	assert.Nil(t, report)
	assert.Equal(t, types.RunStateAborted, c.State())
	assert.Nil(t, c.Report())
	assert.False(t, loadSeen.Load())
}

func TestController_CustomProber(t *testing.T) {
	plan := basePlan([]types.Stage{{Duration: 0, Target: 1}, {Duration: 100 * time.Millisecond, Target: 1}}, nil)
	c, err := New(plan,
		WithProber(ProberFunc(func(context.Context) error { return errors.New("db down") })),
		WithScenarios(scenario.Entry{Scenario: scenario.NewFunc("noop", func(context.Context, *scenario.Iteration) error { return nil })}),
	)
	require.NoError(t, err)
	_, err = c.Run(context.Background())
	assert.ErrorIs(t, err, ErrSetupFailed)
	assert.Contains(t, err.Error(), "db down")
}

func TestController_StopInterrupts(t *testing.T) {
	client := newTarget(t, healthyHandler)
	plan := basePlan([]types.Stage{{Duration: 0, Target: 3}, {Duration: time.Hour, Target: 3}}, nil)

	c, err := New(plan, WithHTTPClient(client))
	require.NoError(t, err)

	done := make(chan *types.SummaryReport, 1)
	go func() {
		r, _ := c.Run(context.Background())
		done <- r
	}()
	require.Eventually(t, func() bool { return c.Status().Execution.Iterations > 0 }, 3*time.Second, 10*time.Millisecond)
	c.Stop()

	select {
	case r := <-done:
		require.NotNil(t, r)
		assert.True(t, r.Interrupted)
		assert.False(t, r.AbortedByThreshold)
		assert.True(t, c.Status().Stopped)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop")
	}

	_, err = c.Run(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyRun)
}

func TestController_ContextCancelInterrupts(t *testing.T) {
	client := newTarget(t, healthyHandler)
	plan := basePlan([]types.Stage{{Duration: 0, Target: 2}, {Duration: time.Hour, Target: 2}}, nil)
	c, err := New(plan, WithHTTPClient(client))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	report, err := c.Run(ctx)
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.True(t, report.Interrupted)
	assert.Equal(t, types.RunStateReported, c.State())
	assert.Equal(t, types.RunStateReported, report.State)
	assert.Zero(t, c.Status().Execution.ActiveVUs)
}

func TestController_ExplicitCancelInterrupts(t *testing.T) {
	client := newTarget(t, healthyHandler)
	plan := basePlan([]types.Stage{{Duration: 0, Target: 3}, {Duration: time.Hour, Target: 3}}, nil)
	c, err := New(plan, WithHTTPClient(client))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(200*time.Millisecond, cancel)
	report, err := c.Run(ctx)
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.True(t, report.Interrupted)
	assert.Zero(t, c.Status().Execution.ActiveVUs)
}

func TestController_AbortOnFailStopsEarly(t *testing.T) {
	client := newTarget(t, failingHandler(20))
	plan := basePlan([]types.Stage{{Duration: 0, Target: 5}, {Duration: time.Hour, Target: 5}}, types.ThresholdSet{
		metrics.HTTPReqFailed: {{Expression: "rate < 0.01", AbortOnFail: true}},
	})

	c, err := New(plan, WithHTTPClient(client))
	require.NoError(t, err)

	start := time.Now()
	report, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 10*time.Second)
	assert.True(t, report.AbortedByThreshold)
	assert.False(t, report.Interrupted)
	assert.False(t, report.Passed)
}
