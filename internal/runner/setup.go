package runner

import (
	"context"
	"fmt"
	"time"

	"yqhp/loadtest-engine/internal/scenario"
	"yqhp/loadtest-engine/pkg/types"
)

const (
	defaultHealthPath   = "/health"
	defaultSetupTimeout = 10 * time.Second
)

// Prober checks the target is reachable before any load is generated.
type Prober interface {
	Probe(ctx context.Context) error
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(ctx context.Context) error

func (f ProberFunc) Probe(ctx context.Context) error { return f(ctx) }

// HTTPProbe issues one GET and expects a fixed status.
type HTTPProbe struct {
	client  *scenario.HTTPClient
	path    string
	expect  int
	timeout time.Duration
}

// NewHTTPProbe builds a probe from the plan's setup section.
func NewHTTPProbe(client *scenario.HTTPClient, spec types.SetupSpec) *HTTPProbe {
	p := &HTTPProbe{client: client, path: spec.HealthPath, expect: spec.ExpectStatus, timeout: spec.Timeout}
	if p.path == "" {
		p.path = defaultHealthPath
	}
	if p.expect == 0 {
		p.expect = 200
	}
	if p.timeout <= 0 {
		p.timeout = defaultSetupTimeout
	}
	return p
}

func (p *HTTPProbe) Probe(ctx context.Context) error {
	resp := p.client.Do(ctx, scenario.Request{Path: p.path, Timeout: p.timeout})
	if resp.Err != nil {
		return fmt.Errorf("GET %s: %w", p.client.URL(p.path), resp.Err)
	}
	if resp.Status != p.expect {
		return fmt.Errorf("GET %s: status %d, want %d", p.client.URL(p.path), resp.Status, p.expect)
	}
	return nil
}
