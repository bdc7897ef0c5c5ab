package minitimer_internal

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestManualClockAdvance(t *testing.T) {
	var count atomic.Uint64
	mc := NewManualClock(func() { count.Add(1) })
	mc.Advance(5)
	if got := count.Load(); got != 5 {
		t.Fatalf("tick count: want 5, got %d", got)
	}
}

func TestManualClockAdvanceZero(t *testing.T) {
	var count atomic.Uint64
	mc := NewManualClock(func() { count.Add(1) })
	mc.Advance(0)
	if got := count.Load(); got != 0 {
		t.Fatalf("tick count: want 0, got %d", got)
	}
}

func TestClockStartStop(t *testing.T) {
	ticks := make(chan struct{}, 8)
	c := NewClock(func() {
		select {
		case ticks <- struct{}{}:
		default:
		}
	}, 10*time.Millisecond)

	c.Start(context.Background())

	select {
	case <-ticks:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for the first tick")
	}

	c.Stop()
}

func TestClockDefaultsToOneSecondTick(t *testing.T) {
	c := NewClock(func() {}, 0)
	if c.tickInterval != CLOCK_TICK_INTERVAL {
		t.Errorf("tickInterval: want %s, got %s", CLOCK_TICK_INTERVAL, c.tickInterval)
	}
}

func TestClockStopIsIdempotent(t *testing.T) {
	c := NewClock(func() {}, 10*time.Millisecond)
	c.Start(context.Background())
	c.Stop()
	c.Stop()
}

func TestClockStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := NewClock(func() {}, 10*time.Millisecond)
	c.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("clock goroutine did not exit after context cancellation")
	}
}
