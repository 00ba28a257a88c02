package types

import "time"

// ScenarioSpec declares an HTTP scenario: a sequence of requests executed as
// one VU iteration.
type ScenarioSpec struct {
	Name      string          `yaml:"name"`
	Weight    float64         `yaml:"weight"`
	ThinkTime *ThinkTime      `yaml:"think_time,omitempty"`
	Requests  []RequestSpec   `yaml:"requests"`
	Metrics   ScenarioMetrics `yaml:"metrics"`
}

// ScenarioMetrics names custom metrics a scenario feeds besides the built-ins.
type ScenarioMetrics struct {
	// Trend receives the scenario's elapsed time from the first request to the last response.
	Trend string `yaml:"trend"`
	// Counter is incremented once per request.
	Counter string `yaml:"counter"`
	// ErrorRate records true for every request whose checks did not all pass.
	ErrorRate string `yaml:"error_rate"`
}

// RequestSpec is one HTTP call inside a scenario.
type RequestSpec struct {
	Name         string            `yaml:"name"`
	Method       string            `yaml:"method"`
	Path         string            `yaml:"path"`
	Headers      map[string]string `yaml:"headers"`
	Body         string            `yaml:"body"`
	Timeout      time.Duration     `yaml:"timeout"`
	ExpectStatus []int             `yaml:"expect_status"`
	Checks       []CheckSpec       `yaml:"checks"`
	// Sleep pauses after the response, before the next request of the scenario.
	Sleep time.Duration `yaml:"sleep"`
}

// CheckSpec is a boolean assertion over a response. Exactly one of Status,
// JSONPath, MaxDuration or JS is expected to be set.
type CheckSpec struct {
	Name        string        `yaml:"name"`
	Status      int           `yaml:"status,omitempty"`
	JSONPath    string        `yaml:"json_path,omitempty"`
	Equals      any           `yaml:"equals,omitempty"`
	IsArray     bool          `yaml:"is_array,omitempty"`
	MaxDuration time.Duration `yaml:"max_duration,omitempty"`
	JS          string        `yaml:"js,omitempty"`
}
