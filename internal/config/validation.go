package config

import (
	"fmt"
	"net/url"
	"strings"

	"yqhp/loadtest-engine/internal/metrics/engine"
	"yqhp/loadtest-engine/internal/scenario"
	"yqhp/loadtest-engine/pkg/metrics"
	"yqhp/loadtest-engine/pkg/types"
)

// ValidationError represents a plan validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("plan validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator checks a plan before any load is generated.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new plan validator.
func NewValidator() *Validator {
	return &Validator{errors: make(ValidationErrors, 0)}
}

func (v *Validator) addError(field, format string, args ...any) {
	v.errors = append(v.errors, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Validate validates the whole plan and returns ValidationErrors, or nil.
func (v *Validator) Validate(plan *types.TestPlan) error {
	v.errors = make(ValidationErrors, 0)

	v.validateTarget(plan)
	v.validateStages(plan)
	v.validateOptions(&plan.Options)
	v.validateSetup(&plan.Setup)
	known := v.validateScenarios(plan.Scenarios)
	v.validateThresholds(plan.Thresholds, known)
	if plan.Prometheus.PushInterval < 0 {
		v.addError("prometheus.push_interval", "must not be negative")
	}

	if v.errors.HasErrors() {
		return v.errors
	}
	return nil
}

func (v *Validator) validateTarget(plan *types.TestPlan) {
	if plan.BaseURL == "" {
		v.addError("base_url", "is required")
		return
	}
	u, err := url.Parse(plan.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		v.addError("base_url", "must be an absolute http(s) URL, got %q", plan.BaseURL)
	}
}

func (v *Validator) validateStages(plan *types.TestPlan) {
	if plan.StartVUs < 0 {
		v.addError("start_vus", "must not be negative")
	}
	if len(plan.Stages) == 0 {
		v.addError("stages", "at least one stage is required")
		return
	}
	for i, s := range plan.Stages {
		if s.Duration < 0 {
			v.addError(fmt.Sprintf("stages[%d].duration", i), "must not be negative")
		}
		if s.Target < 0 {
			v.addError(fmt.Sprintf("stages[%d].target", i), "must not be negative")
		}
	}
	if plan.TotalDuration() <= 0 {
		v.addError("stages", "total duration must be positive")
	}
}

func (v *Validator) validateThinkTime(field string, tt types.ThinkTime) {
	if tt.Min < 0 || tt.Max < 0 {
		v.addError(field, "must not be negative")
	}
	if tt.Max < tt.Min {
		v.addError(field, "max %s is below min %s", tt.Max, tt.Min)
	}
}

func (v *Validator) validateOptions(o *types.Options) {
	v.validateThinkTime("options.think_time", o.ThinkTime)
	if o.RequestTimeout <= 0 {
		v.addError("options.request_timeout", "must be positive")
	}
	if o.TickInterval <= 0 {
		v.addError("options.tick_interval", "must be positive")
	}
	if _, err := metrics.ParsePolicy(o.TrendPolicy); err != nil {
		v.addError("options.trend_policy", "must be exact or hdr, got %q", o.TrendPolicy)
	}
	if o.MaxConnsPerHost < 0 {
		v.addError("options.max_conns_per_host", "must not be negative")
	}
}

func (v *Validator) validateSetup(s *types.SetupSpec) {
	if s.Skip {
		return
	}
	if s.HealthPath != "" && !strings.HasPrefix(s.HealthPath, "/") {
		v.addError("setup.health_path", "must start with /")
	}
	if s.ExpectStatus != 0 && (s.ExpectStatus < 100 || s.ExpectStatus > 599) {
		v.addError("setup.expect_status", "%d is not an HTTP status", s.ExpectStatus)
	}
	if s.Timeout < 0 {
		v.addError("setup.timeout", "must not be negative")
	}
}

var httpMethods = map[string]bool{
	"": true, "GET": true, "HEAD": true, "POST": true, "PUT": true,
	"PATCH": true, "DELETE": true, "OPTIONS": true,
}

// validateScenarios returns every metric name the run will register with its type.
func (v *Validator) validateScenarios(specs []types.ScenarioSpec) map[string]metrics.MetricType {
	known := make(map[string]metrics.MetricType)
	declare := func(field, name string, typ metrics.MetricType) {
		if name == "" {
			return
		}
		if bt, ok := metrics.BuiltinType(name); ok && bt != typ {
			v.addError(field, "%s is a built-in %s metric", name, bt)
			return
		}
		if prev, ok := known[name]; ok && prev != typ {
			v.addError(field, "%s already declared as %s", name, prev)
			return
		}
		known[name] = typ
	}

	if len(specs) == 0 {
		v.addError("scenarios", "at least one scenario is required")
		return known
	}

	names := make(map[string]bool, len(specs))
	for i, s := range specs {
		field := fmt.Sprintf("scenarios[%d]", i)
		switch {
		case s.Name == "":
			v.addError(field+".name", "is required")
		case names[s.Name]:
			v.addError(field+".name", "duplicate scenario %q", s.Name)
		}
		names[s.Name] = true

		if s.Weight < 0 {
			v.addError(field+".weight", "must not be negative")
		}
		if s.ThinkTime != nil {
			v.validateThinkTime(field+".think_time", *s.ThinkTime)
		}
		if len(s.Requests) == 0 {
			v.addError(field+".requests", "at least one request is required")
		}
		for j, r := range s.Requests {
			rf := fmt.Sprintf("%s.requests[%d]", field, j)
			if !httpMethods[strings.ToUpper(r.Method)] {
				v.addError(rf+".method", "unsupported method %q", r.Method)
			}
			if r.Path == "" {
				v.addError(rf+".path", "is required")
			}
			if r.Timeout < 0 || r.Sleep < 0 {
				v.addError(rf, "timeout and sleep must not be negative")
			}
			for k, c := range r.Checks {
				if _, err := scenario.CompileCheck(c); err != nil {
					v.addError(fmt.Sprintf("%s.checks[%d]", rf, k), "%v", err)
				}
			}
		}

		declare(field+".metrics.trend", s.Metrics.Trend, metrics.TypeTrend)
		declare(field+".metrics.counter", s.Metrics.Counter, metrics.TypeCounter)
		declare(field+".metrics.error_rate", s.Metrics.ErrorRate, metrics.TypeRate)
	}
	return known
}

func (v *Validator) validateThresholds(set types.ThresholdSet, custom map[string]metrics.MetricType) {
	for name, specs := range set {
		base, _ := metrics.SplitSubmetricName(name)
		typ, ok := metrics.BuiltinType(base)
		if !ok {
			typ, ok = custom[base]
		}
		field := "thresholds." + name
		if !ok {
			v.addError(field, "%v", fmt.Errorf("%w: %s", engine.ErrUnknownMetric, name))
			continue
		}
		for _, spec := range specs {
			t, err := engine.Parse(name, spec)
			if err != nil {
				v.addError(field, "%v", err)
				continue
			}
			if !metrics.ValidStat(typ, t.Stat) {
				v.addError(field, "%s is not available on %s metrics", t.Stat, typ)
			}
		}
	}
}
