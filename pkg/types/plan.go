package types

import "time"

// Stage is one segment of the concurrency ramp. The target is reached at the
// end of the stage, interpolating linearly from the previous stage's target.
type Stage struct {
	Duration time.Duration `yaml:"duration" json:"duration"`
	Target   int           `yaml:"target" json:"target"`
	Name     string        `yaml:"name,omitempty" json:"name,omitempty"`
}

// ThinkTime is the uniform pacing range slept between iterations.
type ThinkTime struct {
	Min time.Duration `yaml:"min" json:"min"`
	Max time.Duration `yaml:"max" json:"max"`
}

// Options are plan-wide execution knobs.
type Options struct {
	ThinkTime             ThinkTime     `yaml:"think_time"`
	RequestTimeout        time.Duration `yaml:"request_timeout" env:"LOADTEST_REQUEST_TIMEOUT"`
	TickInterval          time.Duration `yaml:"tick_interval" env:"LOADTEST_TICK_INTERVAL"`
	TrendPolicy           string        `yaml:"trend_policy" env:"LOADTEST_TREND_POLICY"`
	MaxConnsPerHost       int           `yaml:"max_conns_per_host" env:"LOADTEST_MAX_CONNS_PER_HOST"`
	InsecureSkipTLSVerify bool          `yaml:"insecure_skip_tls_verify" env:"LOADTEST_INSECURE_SKIP_TLS_VERIFY"`
}

// SetupSpec configures the one-shot health probe run before any load.
type SetupSpec struct {
	Skip         bool          `yaml:"skip" env:"LOADTEST_SKIP_SETUP"`
	HealthPath   string        `yaml:"health_path"`
	ExpectStatus int           `yaml:"expect_status"`
	Timeout      time.Duration `yaml:"timeout"`
}

// SummarySpec names the report artifacts written at the end of a run.
type SummarySpec struct {
	JSONPath string `yaml:"json" env:"LOADTEST_SUMMARY_JSON"`
	HTMLPath string `yaml:"html" env:"LOADTEST_SUMMARY_HTML"`
	NoColor  bool   `yaml:"no_color"`
}

// PrometheusSpec configures pushing live metrics to a Prometheus Push Gateway.
type PrometheusSpec struct {
	PushGatewayURL string        `yaml:"push_gateway_url" env:"LOADTEST_PROM_PUSH_URL"`
	JobName        string        `yaml:"job_name" env:"LOADTEST_PROM_JOB"`
	PushInterval   time.Duration `yaml:"push_interval"`
}

// TestPlan is the complete, immutable description of a run.
type TestPlan struct {
	Name       string            `yaml:"name"`
	Profile    string            `yaml:"profile,omitempty"`
	BaseURL    string            `yaml:"base_url" env:"BASE_URL"`
	StartVUs   int               `yaml:"start_vus"`
	Stages     []Stage           `yaml:"stages"`
	Thresholds ThresholdSet      `yaml:"thresholds"`
	Scenarios  []ScenarioSpec    `yaml:"scenarios"`
	Tags       map[string]string `yaml:"tags"`
	Options    Options           `yaml:"options"`
	Setup      SetupSpec         `yaml:"setup"`
	Summary    SummarySpec       `yaml:"summary"`
	Prometheus PrometheusSpec    `yaml:"prometheus"`
}

// TotalDuration sums every stage duration.
func (p *TestPlan) TotalDuration() time.Duration {
	var total time.Duration
	for _, s := range p.Stages {
		total += s.Duration
	}
	return total
}

// MaxTarget returns the highest concurrency any stage asks for.
func (p *TestPlan) MaxTarget() int {
	max := p.StartVUs
	for _, s := range p.Stages {
		if s.Target > max {
			max = s.Target
		}
	}
	return max
}
