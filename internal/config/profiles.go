package config

import (
	"fmt"
	"sort"
	"time"

	"yqhp/loadtest-engine/pkg/metrics"
	"yqhp/loadtest-engine/pkg/types"
)

// ProfileInfo describes a built-in profile for listings.
type ProfileInfo struct {
	Name        string
	Description string
	Duration    time.Duration
	MaxVUs      int
}

var profiles = map[string]struct {
	description string
	build       func(*types.TestPlan)
}{
	"load": {
		description: "mixed API traffic warming up to a 100 VU spike",
		build:       loadProfile,
	},
	"stress": {
		description: "climbs to 400 VUs to find the breaking point",
		build:       stressProfile,
	},
	"spike": {
		description: "sudden jump from 10 to 200 VUs on the health endpoint",
		build:       spikeProfile,
	},
	"soak": {
		description: "50 VUs held for two hours to expose leaks",
		build:       soakProfile,
	},
}

// Profile returns a fresh copy of a built-in plan.
func Profile(name string) (*types.TestPlan, error) {
	p, ok := profiles[name]
	if !ok {
		return nil, fmt.Errorf("%w %q (available: %v)", ErrUnknownProfile, name, ProfileNames())
	}
	plan := DefaultPlan()
	plan.Name = name
	plan.Profile = name
	p.build(plan)
	return plan, nil
}

// ProfileNames lists the built-in profiles in sorted order.
func ProfileNames() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Profiles describes every built-in profile.
func Profiles() []ProfileInfo {
	infos := make([]ProfileInfo, 0, len(profiles))
	for _, name := range ProfileNames() {
		plan, _ := Profile(name)
		infos = append(infos, ProfileInfo{
			Name:        name,
			Description: profiles[name].description,
			Duration:    plan.TotalDuration(),
			MaxVUs:      plan.MaxTarget(),
		})
	}
	return infos
}

func stage(d time.Duration, target int, name string) types.Stage {
	return types.Stage{Duration: d, Target: target, Name: name}
}

func thresholds(kv ...string) types.ThresholdSet {
	set := make(types.ThresholdSet, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		set[kv[i]] = append(set[kv[i]], types.ThresholdSpec{Expression: kv[i+1]})
	}
	return set
}

func get(path string, checks ...types.CheckSpec) types.RequestSpec {
	return types.RequestSpec{Method: "GET", Path: path, Checks: checks}
}

func status200(name string) types.CheckSpec {
	return types.CheckSpec{Name: name, Status: 200}
}

const (
	errorsMetric        = "errors"
	totalRequestsMetric = "total_requests"
	healthCheckMetric   = "health_check_duration"
	apiCallMetric       = "api_call_duration"
)

func loadProfile(plan *types.TestPlan) {
	plan.Stages = []types.Stage{
		stage(time.Minute, 10, "warm-up"),
		stage(3*time.Minute, 10, "stay"),
		stage(time.Minute, 50, "ramp-up"),
		stage(5*time.Minute, 50, "peak"),
		stage(2*time.Minute, 100, "spike"),
		stage(2*time.Minute, 100, "spike hold"),
		stage(2*time.Minute, 0, "cool-down"),
	}
	plan.Thresholds = thresholds(
		metrics.HTTPReqDuration, "p(95)<500",
		metrics.HTTPReqFailed, "rate<0.01",
		errorsMetric, "rate<0.05",
		healthCheckMetric, "p(95)<200",
		apiCallMetric, "p(95)<1000",
	)
	plan.Tags = map[string]string{"project": "openclaw-vps", "environment": "load-test"}

	apiMetrics := types.ScenarioMetrics{Trend: apiCallMetric, Counter: totalRequestsMetric, ErrorRate: errorsMetric}
	plan.Scenarios = []types.ScenarioSpec{
		{
			Name: "health_check",
			Requests: []types.RequestSpec{get("/health",
				status200("health check status is 200"),
				types.CheckSpec{Name: "health check has status field", JSONPath: "$.status", Equals: "ok"},
				types.CheckSpec{Name: "health check response time < 200ms", MaxDuration: 200 * time.Millisecond},
			)},
			Metrics: types.ScenarioMetrics{Trend: healthCheckMetric, Counter: totalRequestsMetric, ErrorRate: errorsMetric},
		},
		{
			Name: "api_usage",
			Requests: []types.RequestSpec{get("/api/costs/daily",
				status200("api usage status is 200"),
				types.CheckSpec{Name: "api usage has date field", JSONPath: "$.date"},
				types.CheckSpec{Name: "api usage response time < 1000ms", MaxDuration: time.Second},
			)},
			Metrics: apiMetrics,
		},
		{
			Name: "cost_tracking",
			Requests: []types.RequestSpec{
				withSleep(get("/api/costs/monthly",
					status200("monthly costs status is 200"),
					types.CheckSpec{Name: "monthly costs has total_cost", JSONPath: "$.total_cost"},
				), 500*time.Millisecond),
				get("/api/costs/forecast",
					status200("forecast status is 200"),
					types.CheckSpec{Name: "forecast has prediction", JSONPath: "$.forecast_month_end"},
				),
			},
			Metrics: apiMetrics,
		},
		{
			Name: "metrics",
			Requests: []types.RequestSpec{
				withSleep(get("/api/metrics/system",
					status200("system metrics status is 200"),
					types.CheckSpec{Name: "system metrics has cpu", JSONPath: "$.cpu"},
				), 300*time.Millisecond),
				get("/api/metrics/containers",
					status200("container metrics status is 200"),
					types.CheckSpec{Name: "container metrics has containers", JSONPath: "$.containers", IsArray: true},
				),
			},
			Metrics: apiMetrics,
		},
	}
}

func stressProfile(plan *types.TestPlan) {
	plan.Stages = []types.Stage{
		stage(time.Minute, 50, ""),
		stage(2*time.Minute, 100, ""),
		stage(2*time.Minute, 200, ""),
		stage(2*time.Minute, 300, ""),
		stage(2*time.Minute, 400, ""),
		stage(5*time.Minute, 0, "cool-down"),
	}
	plan.Thresholds = thresholds(
		metrics.HTTPReqDuration, "p(95)<2000",
		metrics.HTTPReqFailed, "rate<0.20",
	)
	plan.Options.ThinkTime = types.ThinkTime{Min: 0, Max: time.Second}

	not500 := types.CheckSpec{Name: "status is not 500", JS: "r.status !== 500"}
	plan.Scenarios = []types.ScenarioSpec{
		{Name: "health", Requests: []types.RequestSpec{get("/health", not500)}},
		{Name: "costs", Requests: []types.RequestSpec{get("/api/costs/daily", not500)}},
		{Name: "system_metrics", Requests: []types.RequestSpec{get("/api/metrics/system", not500)}},
	}
}

func spikeProfile(plan *types.TestPlan) {
	plan.Stages = []types.Stage{
		stage(30*time.Second, 10, "prepare"),
		stage(10*time.Second, 200, "spike"),
		stage(time.Minute, 200, "spike hold"),
		stage(30*time.Second, 10, "recover"),
		stage(30*time.Second, 0, "cool-down"),
	}
	plan.Thresholds = thresholds(
		metrics.HTTPReqDuration, "p(95)<1000",
		metrics.HTTPReqFailed, "rate<0.10",
	)
	plan.Options.ThinkTime = types.ThinkTime{Min: 500 * time.Millisecond, Max: 500 * time.Millisecond}
	plan.Scenarios = []types.ScenarioSpec{
		{Name: "health", Requests: []types.RequestSpec{get("/health", status200("status is 200"))}},
	}
}

func soakProfile(plan *types.TestPlan) {
	plan.Stages = []types.Stage{
		stage(5*time.Minute, 50, "warm-up"),
		stage(2*time.Hour, 50, "soak"),
		stage(5*time.Minute, 0, "cool-down"),
	}
	plan.Thresholds = thresholds(
		metrics.HTTPReqDuration, "p(95)<500",
		metrics.HTTPReqFailed, "rate<0.01",
	)
	plan.Options.ThinkTime = types.ThinkTime{}
	plan.Options.TrendPolicy = string(metrics.PolicyHDR)
	plan.Scenarios = []types.ScenarioSpec{
		{
			Name: "user_journey",
			Requests: []types.RequestSpec{
				withSleep(get("/health", status200("health check OK")), 2*time.Second),
				withSleep(get("/api/costs/daily", status200("costs API OK")), 3*time.Second),
				withSleep(get("/api/metrics/system", status200("metrics API OK")), 5*time.Second),
			},
		},
	}
}

func withSleep(r types.RequestSpec, d time.Duration) types.RequestSpec {
	r.Sleep = d
	return r
}
