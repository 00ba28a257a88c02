package execution

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"yqhp/loadtest-engine/internal/scenario"
	"yqhp/loadtest-engine/pkg/logger"
	"yqhp/loadtest-engine/pkg/metrics"
	"yqhp/loadtest-engine/pkg/types"

	"go.uber.org/zap"
)

const defaultTickInterval = time.Second

// Config wires a Scheduler.
type Config struct {
	Ramp       *Ramp
	Dispatcher *scenario.Dispatcher
	Registry   *metrics.Registry
	// ThinkTime is the pacing range used by entries without their own.
	ThinkTime    types.ThinkTime
	TickInterval time.Duration
	// OnTick is called after every pool adjustment, from the scheduler goroutine.
	OnTick func(State)
}

// State is a point-in-time view of the scheduler.
type State struct {
	Elapsed    time.Duration `json:"elapsed"`
	ActiveVUs  int           `json:"active_vus"`
	TargetVUs  int           `json:"target_vus"`
	Stage      int           `json:"stage"`
	StageName  string        `json:"stage_name,omitempty"`
	Iterations int64         `json:"iterations"`
	MaxVUs     int           `json:"max_vus"`
	Draining   bool          `json:"draining"`
}

// Scheduler owns the VU pool and resizes it on every tick.
type Scheduler struct {
	cfg Config
	env *vuEnv

	mu       sync.Mutex
	vus      []*VirtualUser
	nextID   int64
	start    time.Time
	draining bool
	state    State
	cancel   context.CancelFunc
	started  bool

	wg         sync.WaitGroup
	iterations atomic.Int64
}

// NewScheduler validates cfg and prepares one recorder per scenario.
func NewScheduler(cfg Config) (*Scheduler, error) {
	if cfg.Ramp == nil {
		return nil, ErrNoStages
	}
	if cfg.Dispatcher == nil {
		return nil, ErrNilDispatcher
	}
	if cfg.Registry == nil {
		return nil, ErrNilRegistry
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = defaultTickInterval
	}

	s := &Scheduler{cfg: cfg}
	recorders := make(map[string]*metrics.Recorder)
	for _, e := range cfg.Dispatcher.Entries() {
		name := e.Scenario.Name()
		recorders[name] = metrics.NewRecorder(cfg.Registry, metrics.Tags{metrics.TagScenario: name})
	}
	s.env = &vuEnv{
		dispatcher:  cfg.Dispatcher,
		registry:    cfg.Registry,
		recorders:   recorders,
		thinkTime:   cfg.ThinkTime,
		onIteration: func() { s.iterations.Add(1) },
	}
	return s, nil
}

// Ramp drives the pool through every stage and blocks until the last stage
// ends or ctx is cancelled. Either way every VU is then told to drain; use
// Wait to block until they have all stopped. It returns ctx.Err() when
// cancelled before the ramp completed.
func (s *Scheduler) Ramp(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.start = time.Now()
	s.mu.Unlock()
	defer cancel()

	// VUs outlive the ramp context so a stop never cuts a request short.
	vuCtx := context.WithoutCancel(ctx)

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()
	end := time.NewTimer(s.cfg.Ramp.Duration())
	defer end.Stop()

	s.adjust(vuCtx)
	for {
		select {
		case <-ctx.Done():
			logger.Info("ramp interrupted, draining all virtual users", zap.Duration("elapsed", s.elapsed()))
			s.drainAll()
			return ctx.Err()
		case <-end.C:
			logger.Info("ramp complete, draining all virtual users", zap.Duration("elapsed", s.elapsed()))
			s.drainAll()
			return nil
		case <-ticker.C:
			s.adjust(vuCtx)
		}
	}
}

// Stop cancels the ramp as an operator abort would.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Wait blocks until every VU has stopped.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// State returns the latest snapshot of the pool.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	st.Iterations = s.iterations.Load()
	st.ActiveVUs = len(s.vus)
	if !s.start.IsZero() {
		st.Elapsed = time.Since(s.start)
	}
	return st
}

func (s *Scheduler) elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.start)
}

func (s *Scheduler) adjust(ctx context.Context) {
	s.mu.Lock()
	if s.draining {
		s.mu.Unlock()
		return
	}
	elapsed := time.Since(s.start)
	target := s.cfg.Ramp.TargetAt(elapsed)
	stage := s.cfg.Ramp.StageAt(elapsed)

	running := make([]*VirtualUser, 0, len(s.vus))
	for _, vu := range s.vus {
		if vu.State() == types.VURunning {
			running = append(running, vu)
		}
	}

	switch {
	case len(running) < target:
		for i := len(running); i < target; i++ {
			s.spawnLocked(ctx)
		}
	case len(running) > target:
		// newest first
		for i := len(running) - 1; i >= target; i-- {
			running[i].Drain()
		}
	}

	s.state.TargetVUs = target
	s.state.Stage = stage
	s.state.StageName = ""
	if stage < len(s.cfg.Ramp.stages) {
		s.state.StageName = s.cfg.Ramp.stages[stage].Name
	}
	if n := len(s.vus); n > s.state.MaxVUs {
		s.state.MaxVUs = n
	}
	st := s.state
	st.Elapsed = elapsed
	st.ActiveVUs = len(s.vus)
	st.Iterations = s.iterations.Load()
	s.mu.Unlock()

	if s.cfg.OnTick != nil {
		s.cfg.OnTick(st)
	}
}

func (s *Scheduler) spawnLocked(ctx context.Context) {
	s.nextID++
	vu := newVirtualUser(s.nextID)
	vu.state.Store(int32(types.VURunning))
	s.vus = append(s.vus, vu)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.remove(vu)
		vu.run(ctx, s.env)
	}()
}

func (s *Scheduler) remove(vu *VirtualUser) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, v := range s.vus {
		if v == vu {
			s.vus = append(s.vus[:i], s.vus[i+1:]...)
			return
		}
	}
}

func (s *Scheduler) drainAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draining = true
	s.state.Draining = true
	s.state.TargetVUs = 0
	for _, vu := range s.vus {
		vu.Drain()
	}
}
