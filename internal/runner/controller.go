package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"yqhp/loadtest-engine/internal/execution"
	"yqhp/loadtest-engine/internal/metrics/engine"
	"yqhp/loadtest-engine/internal/output/summary"
	"yqhp/loadtest-engine/internal/scenario"
	"yqhp/loadtest-engine/pkg/logger"
	"yqhp/loadtest-engine/pkg/metrics"
	"yqhp/loadtest-engine/pkg/types"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Controller owns a single run. Its state only moves forward:
// setup -> ramping -> draining -> teardown -> reported, or setup -> aborted.
type Controller struct {
	plan      *types.TestPlan
	reg       *metrics.Registry
	client    *scenario.HTTPClient
	entries   []scenario.Entry
	evaluator *engine.Evaluator
	scheduler *execution.Scheduler
	prober    Prober
	proberSet bool
	hooks     []TeardownHook
	runID     string

	mu     sync.RWMutex
	state  types.RunState
	start  time.Time
	end    time.Time
	report *types.SummaryReport
	ran    bool

	interrupted        atomic.Bool
	abortedByThreshold atomic.Bool
}

// Status is the live view served by the control surface.
type Status struct {
	RunID     string          `json:"run_id"`
	Plan      string          `json:"plan"`
	State     types.RunState  `json:"state"`
	StartTime time.Time       `json:"start_time,omitempty"`
	Elapsed   time.Duration   `json:"elapsed"`
	Stopped   bool            `json:"stopped"`
	Execution execution.State `json:"execution"`
}

// New validates plan completely before anything touches the target: the
// ramp, every scenario and check, and every threshold against the metrics
// the run will register.
func New(plan *types.TestPlan, opts ...Option) (*Controller, error) {
	if plan == nil {
		return nil, ErrNilPlan
	}
	c := &Controller{plan: plan, state: types.RunStateSetup}
	for _, opt := range opts {
		opt(c)
	}
	if c.runID == "" {
		c.runID = uuid.NewString()
	}

	policy, err := metrics.ParsePolicy(plan.Options.TrendPolicy)
	if err != nil {
		return nil, err
	}
	if c.reg == nil {
		c.reg = metrics.NewRegistry(policy)
	}
	metrics.RegisterBuiltins(c.reg)

	ramp, err := execution.NewRamp(plan.StartVUs, plan.Stages)
	if err != nil {
		return nil, fmt.Errorf("stages: %w", err)
	}

	if c.client == nil {
		c.client = scenario.NewHTTPClient(scenario.ClientConfig{
			BaseURL:               plan.BaseURL,
			Timeout:               plan.Options.RequestTimeout,
			MaxConnsPerHost:       plan.Options.MaxConnsPerHost,
			InsecureSkipTLSVerify: plan.Options.InsecureSkipTLSVerify,
		})
	}
	if c.entries == nil {
		if c.entries, err = scenario.Build(plan.Scenarios, c.client, c.reg); err != nil {
			return nil, err
		}
	}
	dispatcher, err := scenario.NewDispatcher(c.entries)
	if err != nil {
		return nil, err
	}

	if c.evaluator, err = engine.NewEvaluator(plan.Thresholds); err != nil {
		return nil, err
	}
	if err := c.evaluator.Validate(c.reg); err != nil {
		return nil, err
	}

	if !c.proberSet && !plan.Setup.Skip {
		c.prober = NewHTTPProbe(c.client, plan.Setup)
	}

	c.scheduler, err = execution.NewScheduler(execution.Config{
		Ramp:         ramp,
		Dispatcher:   dispatcher,
		Registry:     c.reg,
		ThinkTime:    plan.Options.ThinkTime,
		TickInterval: plan.Options.TickInterval,
		OnTick:       c.onTick,
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Run executes the whole lifecycle and returns the report. When the setup
// probe fails the state becomes aborted and the error wraps ErrSetupFailed.
// Cancelling ctx is an operator abort: VUs drain and a report is still built.
func (c *Controller) Run(ctx context.Context) (*types.SummaryReport, error) {
	c.mu.Lock()
	if c.ran {
		c.mu.Unlock()
		return nil, ErrAlreadyRun
	}
	c.ran = true
	c.mu.Unlock()

	log := logger.L().With(zap.String("run_id", c.runID), zap.String("plan", c.plan.Name))

	if c.prober != nil {
		log.Info("running setup health probe")
		if err := c.prober.Probe(ctx); err != nil {
			c.setState(types.RunStateAborted)
			log.Error("setup failed, no load generated", zap.Error(err))
			return nil, fmt.Errorf("%w: %v", ErrSetupFailed, err)
		}
	}

	start := time.Now()
	c.mu.Lock()
	c.start = start
	c.mu.Unlock()
	c.reg.MarkStart(start)
	c.setState(types.RunStateRamping)
	log.Info("ramp started",
		zap.Int("stages", len(c.plan.Stages)),
		zap.Duration("duration", c.plan.TotalDuration()),
		zap.Int("max_vus", c.plan.MaxTarget()),
	)

	// Cancellation, whether by Stop, a signal or a deadline, still drains and reports.
	err := c.scheduler.Ramp(ctx)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		c.scheduler.Stop()
		c.scheduler.Wait()
		return nil, err
	}
	if ctx.Err() != nil {
		c.interrupted.Store(true)
	}

	c.setState(types.RunStateDraining)
	c.scheduler.Wait()

	c.setState(types.RunStateTeardown)
	end := time.Now()
	c.mu.Lock()
	c.end = end
	c.mu.Unlock()
	elapsed := end.Sub(start)
	log.Info("load test completed", zap.Float64("seconds", elapsed.Seconds()))
	for _, h := range c.hooks {
		h(c.runID, elapsed)
	}

	snap := c.reg.Snapshot()
	results := c.evaluator.Evaluate(snap)
	st := c.scheduler.State()
	report := summary.Build(summary.Input{
		RunID:              c.runID,
		Plan:               c.plan,
		StartTime:          start,
		EndTime:            end,
		Iterations:         st.Iterations,
		MaxVUs:             st.MaxVUs,
		Interrupted:        c.interrupted.Load() && !c.abortedByThreshold.Load(),
		AbortedByThreshold: c.abortedByThreshold.Load(),
		TrendPolicy:        string(c.reg.Policy()),
		Snapshot:           snap,
		Thresholds:         results,
	})

	c.mu.Lock()
	c.report = report
	c.state = types.RunStateReported
	c.mu.Unlock()
	log.Info("run reported", zap.Bool("passed", report.Passed), zap.Int("failed_thresholds", report.FailedThresholds()))
	return report, nil
}

// Stop aborts the run on behalf of an operator. Running VUs finish their
// current iteration.
func (c *Controller) Stop() {
	if c.interrupted.CompareAndSwap(false, true) {
		logger.Warn("run stop requested", zap.String("run_id", c.runID))
	}
	c.scheduler.Stop()
}

func (c *Controller) onTick(st execution.State) {
	if !c.evaluator.HasAbortOnFail() || c.abortedByThreshold.Load() {
		return
	}
	breached, abort := c.evaluator.ShouldAbort(c.reg.Snapshot(), st.Elapsed)
	if !abort || !c.abortedByThreshold.CompareAndSwap(false, true) {
		return
	}
	logger.Warn("thresholds crossed with abort_on_fail, stopping run",
		zap.String("run_id", c.runID),
		zap.String("metrics", strings.Join(breached, ", ")),
	)
	c.scheduler.Stop()
}

func (c *Controller) setState(s types.RunState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	logger.Debug("run state changed", zap.String("run_id", c.runID), zap.String("state", string(s)))
}

// State returns the current lifecycle state.
func (c *Controller) State() types.RunState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Status returns a live snapshot for the control surface.
func (c *Controller) Status() Status {
	c.mu.RLock()
	st := Status{
		RunID:     c.runID,
		Plan:      c.plan.Name,
		State:     c.state,
		StartTime: c.start,
		Stopped:   c.interrupted.Load() || c.abortedByThreshold.Load(),
	}
	switch {
	case !c.end.IsZero():
		st.Elapsed = c.end.Sub(c.start)
	case !c.start.IsZero():
		st.Elapsed = time.Since(c.start)
	}
	c.mu.RUnlock()
	st.Execution = c.scheduler.State()
	return st
}

// Report returns the final report, or nil before the run reported.
func (c *Controller) Report() *types.SummaryReport {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.report
}

// Registry exposes the run's metrics.
func (c *Controller) Registry() *metrics.Registry {
	return c.reg
}

// RunID identifies the run in logs and reports.
func (c *Controller) RunID() string {
	return c.runID
}

// Plan returns the plan being executed.
func (c *Controller) Plan() *types.TestPlan {
	return c.plan
}
