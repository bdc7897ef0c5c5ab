// Package minitimer is the public face of the hierarchical timing-wheel
// scheduler: build tasks with a TaskBuilder, hand them to an Engine, and
// consume TimerEvent notifications as they fire.

package minitimer

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	internal "github.com/bgp59/minitimer/internal"
)

type (
	TaskId                = internal.TaskId
	Task                  = internal.Task
	Runner                = internal.Runner
	TrackingInfo          = internal.TrackingInfo
	TimerEvent            = internal.TimerEvent
	TimerEventOutcome     = internal.TimerEventOutcome
	EngineConfig          = internal.EngineConfig
	ExecutorConfig        = internal.ExecutorConfig
	EventBusConfig        = internal.EventBusConfig
	ClockConfig           = internal.ClockConfig
	InternalMetricsConfig = internal.InternalMetricsConfig
	CollectableLogger     = internal.CollectableLogger
)

const (
	TimerEventFired    = internal.TimerEventFired
	TimerEventTerminal = internal.TimerEventTerminal
	TimerEventDropped  = internal.TimerEventDropped
)

var ErrInvalidFrequency = internal.ErrInvalidFrequency

// TaskBuilder assembles a Task: chain exactly one of Once/OnceAt/Repeated/
// CountDown, then Build. Unlike the internal builder it wraps, Build takes
// only a Runner - the anchor time is always "now", taken internally at
// Build time, so callers never have to thread a timestamp through.
type TaskBuilder struct {
	inner *internal.TaskBuilder
}

// NewTaskBuilder starts assembling a task with the given id. Exactly one of
// Once/OnceAt/Repeated/CountDown should be chained before Build.
func NewTaskBuilder(id TaskId) *TaskBuilder {
	return &TaskBuilder{inner: internal.NewTaskBuilder(id)}
}

// Once arranges for the task to fire exactly once, delaySeconds from Build
// time.
func (b *TaskBuilder) Once(delaySeconds uint64) *TaskBuilder {
	b.inner.Once(delaySeconds)
	return b
}

// OnceAt arranges for the task to fire exactly once, at the given absolute
// epoch-second timestamp (which must be strictly after Build time).
func (b *TaskBuilder) OnceAt(epochSeconds uint64) *TaskBuilder {
	b.inner.OnceAt(epochSeconds)
	return b
}

// Repeated arranges for the task to fire every periodSeconds, forever.
func (b *TaskBuilder) Repeated(periodSeconds uint64) *TaskBuilder {
	b.inner.Repeated(periodSeconds)
	return b
}

// CountDown arranges for the task to fire every periodSeconds, count times,
// then terminate.
func (b *TaskBuilder) CountDown(count, periodSeconds uint64) *TaskBuilder {
	b.inner.CountDown(count, periodSeconds)
	return b
}

// Build constructs the Task, anchored at the current time. It returns
// ErrInvalidFrequency if the configured frequency cannot produce a valid
// firing sequence.
func (b *TaskBuilder) Build(runner Runner) (*Task, error) {
	return b.inner.Build(NowUnix(), runner)
}

// Engine owns every moving part of a scheduler instance: the wheel, the
// clock, the worker pool, and the event bus. Build one with NewEngine,
// Start it, feed it tasks with Add, and Stop it when done.
type Engine struct {
	inner *internal.Engine
}

// NewEngine constructs an Engine from cfg (nil selects all defaults). It
// does not start any goroutines; call Start for that.
func NewEngine(cfg *EngineConfig) (*Engine, error) {
	inner, err := internal.NewEngine(cfg)
	if err != nil {
		return nil, err
	}
	return &Engine{inner: inner}, nil
}

// DefaultEngineConfig returns an EngineConfig with every section defaulted,
// suitable as a starting point before overriding a handful of fields.
func DefaultEngineConfig() *EngineConfig {
	return internal.DefaultEngineConfig()
}

// LoadConfig reads an EngineConfig from a YAML file under the
// "minitimer_config" top-level key.
func LoadConfig(cfgFile string) (*EngineConfig, error) {
	return internal.LoadConfig(cfgFile, nil)
}

// Add schedules task, consuming its FrequencyState's next timestamp.
// Re-adding an id already tracked replaces its previous placement.
func (e *Engine) Add(task *Task) error {
	return e.inner.Add(task)
}

// Remove cancels a live task. It is idempotent.
func (e *Engine) Remove(taskId TaskId) (*Task, bool) {
	return e.inner.Remove(taskId)
}

// TrackingInfo reports a live task's current wheel residency.
func (e *Engine) TrackingInfo(taskId TaskId) (TrackingInfo, bool) {
	return e.inner.TrackingInfo(taskId)
}

// Len reports the number of currently tracked (live, not yet arrived) tasks.
func (e *Engine) Len() int {
	return e.inner.Len()
}

// Subscribe returns a channel of TimerEvent values for every task arrival.
// Subscribers that fall behind have events dropped rather than blocking the
// Executor; see EventBusDroppedCount.
func (e *Engine) Subscribe() <-chan TimerEvent {
	return e.inner.Subscribe()
}

// Start launches the Clock, the Executor's worker pool, and internal
// metrics rendering. ctx governs their lifetime in addition to Stop.
func (e *Engine) Start(ctx context.Context) {
	e.inner.Start(ctx)
}

// Stop halts the Clock and drains the Executor's in-flight work.
func (e *Engine) Stop() {
	e.inner.Stop()
}

// EventBusDroppedCount reports how many TimerEvent publishes were dropped
// for full subscriber queues.
func (e *Engine) EventBusDroppedCount() uint64 {
	return e.inner.EventBusDroppedCount()
}

// SetDefaultInstance primes the instance name before NewEngine is called,
// typically from an init(). Its value may be overridden by EngineConfig.
func SetDefaultInstance(instance string) {
	internal.Instance = instance
}

// UpdateBuildInfo records version (semver) and git info, surfaced in the
// buildinfo internal metric. Call before NewEngine, typically from init().
func UpdateBuildInfo(version, gitInfo string) {
	internal.Version = version
	internal.GitInfo = gitInfo
}

// GetInstance returns the instance name, set from config or
// SetDefaultInstance.
func GetInstance() string {
	return internal.Instance
}

// GetHostname returns the hostname used as a metric label.
func GetHostname() string {
	return internal.Hostname
}

// GetRootLogger exposes the root logger for tests that need to capture log
// output; see testutils/log_collector.go.
func GetRootLogger() *CollectableLogger { return internal.RootLogger }

// NewCompLogger creates a component logger with a comp=compName field.
func NewCompLogger(comp string) *logrus.Entry {
	return internal.NewCompLogger(comp)
}

// AddCallerSrcPathPrefixToLogger lets an embedding binary register its own
// module root so logged file paths are relative rather than absolute.
// Typically called from main.init() with upNDirs=0.
func AddCallerSrcPathPrefixToLogger(upNDirs int) {
	internal.AddCallerSrcPathPrefixToLogger(upNDirs, 1)
}

// NowUnix is exposed only so the cmd/ binary and tests can anchor
// TaskBuilder.Build at the same clock the Engine itself uses.
func NowUnix() uint64 {
	return uint64(time.Now().Unix())
}
