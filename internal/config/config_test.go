package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"yqhp/loadtest-engine/pkg/metrics"
	"yqhp/loadtest-engine/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePlan = `
name: cost-api
base_url: http://api.internal:3000
start_vus: 2
stages:
  - duration: 30s
    target: 10
    name: warm-up
  - duration: 1m
    target: 10
  - duration: 15s
    target: 0
thresholds:
  http_req_duration:
    - "p(95) < 500"
    - threshold: "p(99) < 1500"
      abort_on_fail: true
      delay_abort_eval: 10s
  errors: ["rate<0.05"]
tags:
  project: cost-tracker
options:
  think_time:
    min: 500ms
    max: 2s
  trend_policy: hdr
scenarios:
  - name: daily_costs
    weight: 3
    requests:
      - path: /api/costs/daily
        checks:
          - status: 200
          - json_path: $.date
          - js: "r.json.total >= 0"
    metrics:
      trend: api_call_duration
      error_rate: errors
`

func writePlan(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func noEnv(string) (string, bool) { return "", false }

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefaultPlan(t *testing.T) {
	plan := DefaultPlan()

	assert.Equal(t, DefaultBaseURL, plan.BaseURL)
	assert.Equal(t, types.ThinkTime{Min: time.Second, Max: 3 * time.Second}, plan.Options.ThinkTime)
	assert.Equal(t, 10*time.Second, plan.Options.RequestTimeout)
	assert.Equal(t, time.Second, plan.Options.TickInterval)
	assert.Equal(t, "exact", plan.Options.TrendPolicy)
	assert.Equal(t, "/health", plan.Setup.HealthPath)
	assert.Equal(t, 200, plan.Setup.ExpectStatus)
}

func TestLoad_FromFile(t *testing.T) {
	plan, err := NewLoader().WithEnvLookup(noEnv).WithPlanPath(writePlan(t, samplePlan)).Load()
	require.NoError(t, err)

	assert.Equal(t, "cost-api", plan.Name)
	assert.Equal(t, "http://api.internal:3000", plan.BaseURL)
	assert.Equal(t, 2, plan.StartVUs)
	require.Len(t, plan.Stages, 3)
	assert.Equal(t, types.Stage{Duration: 30 * time.Second, Target: 10, Name: "warm-up"}, plan.Stages[0])
	assert.Equal(t, 105*time.Second, plan.TotalDuration())

	durations := plan.Thresholds[metrics.HTTPReqDuration]
	require.Len(t, durations, 2)
	assert.Equal(t, "p(95) < 500", durations[0].Expression)
	assert.True(t, durations[1].AbortOnFail)
	assert.Equal(t, 10*time.Second, durations[1].DelayAbortEval)
	assert.Equal(t, "rate<0.05", plan.Thresholds["errors"][0].Expression)

	assert.Equal(t, types.ThinkTime{Min: 500 * time.Millisecond, Max: 2 * time.Second}, plan.Options.ThinkTime)
	assert.Equal(t, "hdr", plan.Options.TrendPolicy)
	// Untouched options keep their defaults.
	assert.Equal(t, DefaultRequestTimeout, plan.Options.RequestTimeout)

	require.Len(t, plan.Scenarios, 1)
	sc := plan.Scenarios[0]
	assert.Equal(t, 3.0, sc.Weight)
	require.Len(t, sc.Requests[0].Checks, 3)
	assert.Equal(t, 200, sc.Requests[0].Checks[0].Status)
	assert.Equal(t, "errors", sc.Metrics.ErrorRate)

	require.NoError(t, NewValidator().Validate(plan))
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := NewLoader().WithPlanPath(filepath.Join(t.TempDir(), "missing.yaml")).Load()
	require.Error(t, err)
}

func TestLoad_Precedence(t *testing.T) {
	path := writePlan(t, samplePlan)

	plan, err := NewLoader().
		WithPlanPath(path).
		WithEnvLookup(envMap(map[string]string{
			"BASE_URL":                 "http://from-env:8080",
			"LOADTEST_REQUEST_TIMEOUT": "5s",
			"LOADTEST_TREND_POLICY":    "exact",
			"LOADTEST_SKIP_SETUP":      "true",
		})).
		Load()
	require.NoError(t, err)
	assert.Equal(t, "http://from-env:8080", plan.BaseURL)
	assert.Equal(t, 5*time.Second, plan.Options.RequestTimeout)
	assert.Equal(t, "exact", plan.Options.TrendPolicy)
	assert.True(t, plan.Setup.Skip)

	plan, err = NewLoader().
		WithPlanPath(path).
		WithEnvLookup(envMap(map[string]string{"BASE_URL": "http://from-env:8080"})).
		WithCmdArgs(map[string]string{
			"base_url":              "http://from-flag:9090",
			"options.tick_interval": "250ms",
			"tags":                  "team=perf, region=eu",
		}).
		Load()
	require.NoError(t, err)
	assert.Equal(t, "http://from-flag:9090", plan.BaseURL)
	assert.Equal(t, 250*time.Millisecond, plan.Options.TickInterval)
	assert.Equal(t, map[string]string{"project": "cost-tracker", "team": "perf", "region": "eu"}, plan.Tags)
}

func TestLoad_InvalidOverrides(t *testing.T) {
	_, err := NewLoader().
		WithEnvLookup(envMap(map[string]string{"LOADTEST_TICK_INTERVAL": "soon"})).
		Load()
	require.Error(t, err)

	_, err = NewLoader().WithEnvLookup(noEnv).WithCmdArgs(map[string]string{"options.nope": "1"}).Load()
	require.Error(t, err)

	_, err = NewLoader().WithEnvLookup(noEnv).WithCmdArgs(map[string]string{"name.inner": "x"}).Load()
	require.Error(t, err)
}

func TestLoad_ProfileLayering(t *testing.T) {
	path := writePlan(t, `
profile: spike
base_url: http://staging
thresholds:
  http_req_failed: ["rate<0.02"]
`)
	plan, err := NewLoader().WithEnvLookup(noEnv).WithPlanPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "spike", plan.Profile)
	assert.Equal(t, "http://staging", plan.BaseURL)
	assert.Equal(t, 200, plan.MaxTarget())
	assert.Equal(t, "rate<0.02", plan.Thresholds[metrics.HTTPReqFailed][0].Expression)
	assert.Equal(t, "p(95)<1000", plan.Thresholds[metrics.HTTPReqDuration][0].Expression)

	plan, err = NewLoader().WithEnvLookup(noEnv).WithPlanPath(path).WithProfile("stress").Load()
	require.NoError(t, err)
	assert.Equal(t, "stress", plan.Profile)
	assert.Equal(t, 400, plan.MaxTarget())
}

func TestLoad_UnknownProfile(t *testing.T) {
	_, err := NewLoader().WithEnvLookup(noEnv).WithProfile("marathon").Load()
	require.ErrorIs(t, err, ErrUnknownProfile)
}

func TestLoad_StagesShortcut(t *testing.T) {
	plan, err := NewLoader().
		WithEnvLookup(noEnv).
		WithProfile("load").
		WithStages([]types.Stage{{Duration: 0, Target: 5}, {Duration: 30 * time.Second, Target: 5}}).
		Load()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, plan.TotalDuration())
	assert.Equal(t, 5, plan.MaxTarget())
}

func TestLoad_BundledPlan(t *testing.T) {
	plan, err := NewLoader().WithEnvLookup(noEnv).WithPlanPath(filepath.Join("..", "..", "plans", "cost-api.yaml")).LoadAndValidate()
	require.NoError(t, err)
	assert.Equal(t, "cost-api", plan.Name)
	assert.Len(t, plan.Scenarios, 3)
	assert.True(t, plan.Thresholds[metrics.HTTPReqFailed][0].AbortOnFail)
}
