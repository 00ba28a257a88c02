package runner

import (
	"time"

	"yqhp/loadtest-engine/internal/scenario"
	"yqhp/loadtest-engine/pkg/metrics"
)

// TeardownHook runs once after every VU stopped, before thresholds are
// evaluated.
type TeardownHook func(runID string, elapsed time.Duration)

// Option configures a Controller.
type Option func(*Controller)

// WithScenarios replaces the plan's declarative scenarios with code.
func WithScenarios(entries ...scenario.Entry) Option {
	return func(c *Controller) { c.entries = entries }
}

// WithHTTPClient replaces the client built from the plan options.
func WithHTTPClient(client *scenario.HTTPClient) Option {
	return func(c *Controller) { c.client = client }
}

// WithRegistry records into reg instead of a fresh registry.
func WithRegistry(reg *metrics.Registry) Option {
	return func(c *Controller) { c.reg = reg }
}

// WithProber replaces the HTTP health probe. A nil prober skips setup.
func WithProber(p Prober) Option {
	return func(c *Controller) {
		c.prober = p
		c.proberSet = true
	}
}

// WithTeardownHook adds a hook run during teardown.
func WithTeardownHook(h TeardownHook) Option {
	return func(c *Controller) { c.hooks = append(c.hooks, h) }
}

// WithRunID fixes the run identifier instead of generating one.
func WithRunID(id string) Option {
	return func(c *Controller) { c.runID = id }
}
