// Clock: drives the wheel forward in lockstep, one Tick per wall-clock
// second, using a ctx/wg/select dispatcher loop for the run/stop lifecycle.

package minitimer_internal

import (
	"context"
	"sync"
	"time"
)

const CLOCK_TICK_INTERVAL = time.Second

var clockLog = NewCompLogger("clock")

// TickFunc is invoked once per tick, in the Clock's own goroutine. It must
// not block for anywhere close to a full tick interval.
type TickFunc func()

// Clock is a real-time, 1Hz driver. It is not itself reusable across
// Start/Stop cycles; construct a new one if a fresh run is needed.
type Clock struct {
	onTick       TickFunc
	tickInterval time.Duration
	cancel       context.CancelFunc
	wg           sync.WaitGroup
}

// NewClock builds a Clock that calls onTick once per tickInterval. A
// non-positive tickInterval falls back to CLOCK_TICK_INTERVAL - production
// configs should never set anything else, since the wheel arithmetic assumes
// a 1Hz cadence; only test harnesses have a reason to override it.
func NewClock(onTick TickFunc, tickInterval time.Duration) *Clock {
	if tickInterval <= 0 {
		tickInterval = CLOCK_TICK_INTERVAL
	}
	return &Clock{onTick: onTick, tickInterval: tickInterval}
}

// Start launches the tick loop in its own goroutine. It is an error to call
// Start twice on the same Clock.
func (c *Clock) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.wg.Add(1)
	go c.run(ctx)
}

func (c *Clock) run(ctx context.Context) {
	defer c.wg.Done()
	clockLog.Info("start clock")
	defer clockLog.Info("clock stopped")

	ticker := time.NewTicker(c.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.onTick()
		}
	}
}

// Stop signals the tick loop to exit and blocks until it has. It is safe to
// call Stop more than once.
func (c *Clock) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
}

// ManualClock is a test/embedding double: it never ticks on its own.
// Callers drive it explicitly via Advance, which is useful for deterministic
// cascade tests and for embedding the scheduler in a host that already owns
// a 1Hz loop of its own.
type ManualClock struct {
	onTick TickFunc
}

func NewManualClock(onTick TickFunc) *ManualClock {
	return &ManualClock{onTick: onTick}
}

// Advance invokes onTick n times, synchronously, in the caller's goroutine.
func (mc *ManualClock) Advance(n uint64) {
	for i := uint64(0); i < n; i++ {
		mc.onTick()
	}
}
