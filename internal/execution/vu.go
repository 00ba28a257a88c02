package execution

import (
	"context"
	"fmt"
	"math/rand/v2"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"yqhp/loadtest-engine/internal/scenario"
	"yqhp/loadtest-engine/pkg/logger"
	"yqhp/loadtest-engine/pkg/metrics"
	"yqhp/loadtest-engine/pkg/types"

	"go.uber.org/zap"
)

// VirtualUser is one simulated client looping over scenario iterations. It is
// created and retired by the Scheduler only.
type VirtualUser struct {
	ID int64

	state      atomic.Int32
	iterations atomic.Int64
	drainCh    chan struct{}
	drainOnce  sync.Once
}

func newVirtualUser(id int64) *VirtualUser {
	return &VirtualUser{ID: id, drainCh: make(chan struct{})}
}

// State returns the current lifecycle state.
func (vu *VirtualUser) State() types.VUState {
	return types.VUState(vu.state.Load())
}

// Iterations returns how many iterations this VU completed.
func (vu *VirtualUser) Iterations() int64 {
	return vu.iterations.Load()
}

// Drain asks the VU to stop after its current iteration. It is idempotent
// and wakes a VU sleeping between iterations.
func (vu *VirtualUser) Drain() {
	vu.drainOnce.Do(func() {
		for {
			cur := vu.state.Load()
			if cur == int32(types.VUStopped) {
				break
			}
			if vu.state.CompareAndSwap(cur, int32(types.VUDraining)) {
				break
			}
		}
		close(vu.drainCh)
	})
}

func (vu *VirtualUser) draining() bool {
	select {
	case <-vu.drainCh:
		return true
	default:
		return false
	}
}

// vuEnv is what every VU of a scheduler shares.
type vuEnv struct {
	dispatcher  *scenario.Dispatcher
	registry    *metrics.Registry
	recorders   map[string]*metrics.Recorder
	thinkTime   types.ThinkTime
	onIteration func()
}

func (e *vuEnv) recorder(name string) *metrics.Recorder {
	if rec, ok := e.recorders[name]; ok {
		return rec
	}
	return metrics.NewRecorder(e.registry, metrics.Tags{metrics.TagScenario: name})
}

// run loops until drained or an internal fault. ctx is never cancelled by a
// drain so in-flight requests always complete.
func (vu *VirtualUser) run(ctx context.Context, env *vuEnv) {
	vu.state.CompareAndSwap(int32(types.VUIdle), int32(types.VURunning))
	defer vu.state.Store(int32(types.VUStopped))

	for n := int64(1); ; n++ {
		if vu.draining() {
			return
		}

		entry := env.dispatcher.Pick()
		name := entry.Scenario.Name()
		rec := env.recorder(name)
		it := &scenario.Iteration{VUID: vu.ID, Number: n, Recorder: rec}

		start := time.Now()
		err := runScenario(ctx, entry.Scenario, it)
		if err != nil {
			logger.Error("virtual user fault, retiring",
				zap.Int64("vu", vu.ID),
				zap.String("scenario", name),
				zap.Int64("iteration", n),
				zap.Error(err),
			)
			rec.Add(metrics.VUFaults, 1)
			return
		}
		rec.Add(metrics.Iterations, 1)
		rec.Duration(metrics.IterationDuration, time.Since(start))
		vu.iterations.Add(1)
		if env.onIteration != nil {
			env.onIteration()
		}

		tt := env.thinkTime
		if entry.ThinkTime != nil {
			tt = *entry.ThinkTime
		}
		if !vu.pause(drawThinkTime(tt)) {
			return
		}
	}
}

// pause sleeps for d, returning false if the VU was drained meanwhile.
func (vu *VirtualUser) pause(d time.Duration) bool {
	if d <= 0 {
		return !vu.draining()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-vu.drainCh:
		return false
	}
}

func runScenario(ctx context.Context, s scenario.Scenario, it *scenario.Iteration) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Debug("scenario panic stack", zap.ByteString("stack", debug.Stack()))
			err = fmt.Errorf("%w: %v", ErrScenarioPanic, r)
		}
	}()
	return s.Run(ctx, it)
}

// drawThinkTime picks uniformly from [Min, Max].
func drawThinkTime(tt types.ThinkTime) time.Duration {
	if tt.Max <= tt.Min {
		return tt.Min
	}
	return tt.Min + rand.N(tt.Max-tt.Min+1)
}
