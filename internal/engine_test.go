package minitimer_internal

import (
	"context"
	"testing"
	"time"
)

func newTestEngineConfig() *EngineConfig {
	cfg := DefaultEngineConfig()
	cfg.ClockConfig.TickInterval = 10 * time.Millisecond
	cfg.InternalMetricsConfig.Interval = 0
	cfg.ExecutorConfig.NumWorkers = 1
	return cfg
}

func TestEngineAddRemoveTrackingInfo(t *testing.T) {
	engine, err := NewEngine(newTestEngineConfig())
	if err != nil {
		t.Fatal(err)
	}

	task, err := NewTaskBuilder(1).Once(30).Build(0, func() bool { return true })
	if err != nil {
		t.Fatal(err)
	}
	if err := engine.Add(task); err != nil {
		t.Fatal(err)
	}
	if engine.Len() != 1 {
		t.Fatalf("Len: want 1, got %d", engine.Len())
	}

	if _, ok := engine.TrackingInfo(1); !ok {
		t.Fatal("TrackingInfo: want ok=true for a just-added task")
	}

	removed, ok := engine.Remove(1)
	if !ok || removed.TaskId != 1 {
		t.Fatalf("Remove: want (task 1, true), got (%v, %v)", removed, ok)
	}
	if engine.Len() != 0 {
		t.Errorf("Len after Remove: want 0, got %d", engine.Len())
	}
}

func TestEngineStartFiresSubscribedEvent(t *testing.T) {
	engine, err := NewEngine(newTestEngineConfig())
	if err != nil {
		t.Fatal(err)
	}
	ch := engine.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	engine.Start(ctx)
	defer func() {
		cancel()
		engine.Stop()
	}()

	task, err := NewTaskBuilder(2).Once(1).Build(0, func() bool { return false })
	if err != nil {
		t.Fatal(err)
	}
	if err := engine.Add(task); err != nil {
		t.Fatal(err)
	}

	select {
	case event := <-ch:
		if event.TaskId != 2 || event.Outcome != TimerEventTerminal {
			t.Errorf("event: want {TaskId:2, Terminal}, got %+v", event)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for the task to fire")
	}
}

func TestEngineStartIsIdempotent(t *testing.T) {
	engine, err := NewEngine(newTestEngineConfig())
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine.Start(ctx)
	engine.Start(ctx) // second call should be a warned-and-ignored no-op
	engine.Stop()
}

func TestEngineStopIsIdempotent(t *testing.T) {
	engine, err := NewEngine(newTestEngineConfig())
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine.Start(ctx)
	engine.Stop()
	engine.Stop()
}

func TestEngineExecutorStatsAndCascadeCounts(t *testing.T) {
	engine, err := NewEngine(newTestEngineConfig())
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	engine.Start(ctx)
	defer func() {
		cancel()
		engine.Stop()
	}()

	// Anchored at the engine's own clock so the task lands a tick or two
	// ahead of the second hand, well before the hand wraps.
	task, err := NewTaskBuilder(3).Once(2).Build(uint64(time.Now().Unix()), func() bool { return false })
	if err != nil {
		t.Fatal(err)
	}
	if err := engine.Add(task); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		stats := engine.ExecutorStats(nil)
		if ts, ok := stats[3]; ok && ts.Uint64Stats[TASK_STATS_EXECUTED_COUNT] == 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	if minuteCount, hourCount := engine.WheelCascadeCounts(); minuteCount != 0 || hourCount != 0 {
		t.Errorf("WheelCascadeCounts: want (0, 0) for a task firing within the seconds wheel, got (%d, %d)", minuteCount, hourCount)
	}
	if got := engine.EventBusDroppedCount(); got != 0 {
		t.Errorf("EventBusDroppedCount: want 0, got %d", got)
	}
}
