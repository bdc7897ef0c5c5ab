// Engine: the top-level object wiring MultiWheel + Clock + Executor +
// EventBus + InternalMetrics into a runnable scheduler instance: component
// construction, start, and shutdown. Config load, logger setup, os/signal
// handling, and flag parsing belong to the cmd/ binary instead of this
// library package.

package minitimer_internal

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

const INSTANCE_DEFAULT = "minitimer"

var (
	// The instance name; primed with INSTANCE_DEFAULT, may be overridden by
	// EngineConfig.Instance or a command line arg in cmd/.
	Instance string = INSTANCE_DEFAULT

	// The hostname, used as a metric label; set by NewEngine unless
	// overridden by the caller beforehand.
	Hostname string

	// Build info, normally set via init() by the binary embedding this
	// package.
	Version string
	GitInfo string
)

var engineLog = NewCompLogger("engine")

type EngineState int

const (
	EngineStateCreated EngineState = iota
	EngineStateRunning
	EngineStateStopped
)

var engineStateNames = map[EngineState]string{
	EngineStateCreated: "Created",
	EngineStateRunning: "Running",
	EngineStateStopped: "Stopped",
}

func (s EngineState) String() string {
	return engineStateNames[s]
}

// Engine owns every moving part of a scheduler instance: the MultiWheel
// (task placement + cascades), the Clock (tick driver), the Executor
// (worker pool), and the EventBus (arrival notifications). It exposes the
// minimal public surface: Add/Remove/TrackingInfo/Subscribe/Start/Stop.
type Engine struct {
	wheel    *MultiWheel
	clock    *Clock
	executor *Executor
	events   *EventBus
	metrics  *InternalMetrics

	mu    sync.Mutex
	state EngineState

	nowFn func() uint64
}

// NewEngine constructs an Engine from cfg (nil selects all defaults). It
// does not start any goroutines; call Start for that.
func NewEngine(cfg *EngineConfig) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultEngineConfig()
	}

	if err := SetLogger(cfg.LoggerConfig); err != nil {
		return nil, fmt.Errorf("engine: logger setup: %v", err)
	}

	Instance = cfg.Instance
	if Hostname == "" {
		hostname, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("engine: hostname: %v", err)
		}
		if cfg.UseShortHostname {
			if i := strings.Index(hostname, "."); i > 0 {
				hostname = hostname[:i]
			}
		}
		Hostname = hostname
	}

	events, err := NewEventBus(cfg.EventBusConfig)
	if err != nil {
		return nil, err
	}

	nowFn := func() uint64 { return uint64(time.Now().Unix()) }

	engine := &Engine{
		wheel:  NewMultiWheel(),
		events: events,
		nowFn:  nowFn,
		state:  EngineStateCreated,
	}
	executor, err := NewExecutor(cfg.ExecutorConfig, engine.wheel.Add, nowFn, events)
	if err != nil {
		return nil, err
	}
	engine.executor = executor
	tickInterval := CLOCK_TICK_INTERVAL
	if cfg.ClockConfig != nil {
		tickInterval = cfg.ClockConfig.TickInterval
	}
	engine.clock = NewClock(engine.onTick, tickInterval)

	metrics, err := NewInternalMetrics(cfg.InternalMetricsConfig, engine)
	if err != nil {
		return nil, err
	}
	engine.metrics = metrics

	engineLog.Infof("instance=%s hostname=%s", Instance, Hostname)
	return engine, nil
}

func (e *Engine) onTick() {
	arrived := e.wheel.Tick()
	if len(arrived) > 0 {
		e.executor.Submit(arrived)
	}
}

// Add schedules task, consuming its FrequencyState's next timestamp.
func (e *Engine) Add(task *Task) error {
	return e.wheel.Add(task, e.nowFn())
}

// Remove cancels a live task.
func (e *Engine) Remove(taskId TaskId) (*Task, bool) {
	return e.wheel.Remove(taskId)
}

// TrackingInfo reports a live task's current wheel residency.
func (e *Engine) TrackingInfo(taskId TaskId) (TrackingInfo, bool) {
	return e.wheel.TrackingInfo(taskId)
}

// Len reports the number of currently tracked (live, not yet arrived) tasks.
func (e *Engine) Len() int {
	return e.wheel.Len()
}

// Subscribe returns a channel of TimerEvent values for every task arrival.
func (e *Engine) Subscribe() <-chan TimerEvent {
	return e.events.Subscribe()
}

// Start launches the Clock and the Executor's worker pool. It is a no-op if
// the Engine is not in the Created state.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	canStart := e.state == EngineStateCreated
	if canStart {
		e.state = EngineStateRunning
	}
	e.mu.Unlock()
	if !canStart {
		engineLog.Warnf("engine can only be started from %q state, not from %q", EngineStateCreated, e.state)
		return
	}

	engineLog.Info("start engine")
	e.executor.Start(ctx)
	e.clock.Start(ctx)
	e.metrics.Start(ctx)
	engineLog.Info("engine started")
}

// Stop halts the Clock, drains the Executor's in-flight work, and returns.
func (e *Engine) Stop() {
	e.mu.Lock()
	alreadyStopped := e.state == EngineStateStopped
	e.state = EngineStateStopped
	e.mu.Unlock()
	if alreadyStopped {
		engineLog.Warn("engine already stopped")
		return
	}

	engineLog.Info("stop engine")
	e.clock.Stop()
	e.executor.Stop()
	e.metrics.Stop()
	engineLog.Info("engine stopped")
}

// ExecutorStats snapshots the Executor's per-task stats.
func (e *Engine) ExecutorStats(to ExecutorStats) ExecutorStats {
	return e.executor.SnapStats(to)
}

// EventBusDroppedCount reports how many TimerEvent publishes were dropped
// for full subscriber queues.
func (e *Engine) EventBusDroppedCount() uint64 {
	return e.events.DroppedCount()
}

// WheelCascadeCounts reports the lifetime count of minute-wheel and
// hour-wheel cascade events.
func (e *Engine) WheelCascadeCounts() (minuteCount, hourCount uint64) {
	return e.wheel.CascadeCounts()
}
