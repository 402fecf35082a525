// Package scheduler runs the high-rate control task and provides the
// monotonic tick counter the flight machine measures time with.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Task is invoked once per tick with the tick period.
type Task func(dt time.Duration)

// Gate drives registered tasks at a fixed period. Sampling tasks run on every
// tick; control tasks run only while the gate is enabled. The tick counter
// advances whether or not the gate is enabled.
//
// Register tasks before calling Run or Step.
type Gate struct {
	period time.Duration

	enabled atomic.Bool
	ticks   atomic.Uint64

	stepMu   sync.Mutex
	sampling []Task
	control  []Task
}

func New(period time.Duration) *Gate {
	if period <= 0 {
		period = 5 * time.Millisecond
	}
	return &Gate{period: period}
}

// FromHz returns the tick period for a control frequency.
func FromHz(hz int) (time.Duration, error) {
	if hz <= 0 {
		return 0, fmt.Errorf("scheduler: control frequency must be > 0 (got %d)", hz)
	}
	return time.Second / time.Duration(hz), nil
}

func (g *Gate) OnSample(t Task)  { g.sampling = append(g.sampling, t) }
func (g *Gate) OnControl(t Task) { g.control = append(g.control, t) }

func (g *Gate) Enable() { g.enabled.Store(true) }

// Disable stops the control tasks. It waits for a step in progress, so no
// control task runs after it returns.
func (g *Gate) Disable() {
	g.stepMu.Lock()
	g.enabled.Store(false)
	g.stepMu.Unlock()
}

func (g *Gate) Enabled() bool         { return g.enabled.Load() }
func (g *Gate) Period() time.Duration { return g.period }
func (g *Gate) TickCount() uint64     { return g.ticks.Load() }

// TicksSince returns the ticks elapsed since start, or 0 if start is ahead.
func (g *Gate) TicksSince(start uint64) uint64 {
	now := g.ticks.Load()
	if now < start {
		return 0
	}
	return now - start
}

// Step advances one tick and runs the tasks due on it.
func (g *Gate) Step() {
	g.stepMu.Lock()
	defer g.stepMu.Unlock()

	g.ticks.Add(1)
	for _, t := range g.sampling {
		t(g.period)
	}
	if !g.enabled.Load() {
		return
	}
	for _, t := range g.control {
		t(g.period)
	}
}

// Run steps the gate every period until ctx is canceled. A tick that finds
// the previous one still running is dropped by the ticker, never queued.
func (g *Gate) Run(ctx context.Context) error {
	t := time.NewTicker(g.period)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			g.Step()
		}
	}
}
