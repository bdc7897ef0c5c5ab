// Executor: the worker pool that runs arrived tasks and decides whether
// to re-arm them. A plain fan-in channel fed by MultiWheel.Tick supplies
// arrived tasks to the workers; ordering is the wheel's job, not the
// Executor's.

package minitimer_internal

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const (
	EXECUTOR_CONFIG_NUM_WORKERS_DEFAULT = -1
	EXECUTOR_MAX_NUM_WORKERS            = 64
	EXECUTOR_TODO_Q_LEN                 = 256
)

const (
	// How many times the task was handed to a worker.
	TASK_STATS_SCHEDULED_COUNT = iota
	// How many times the task's Runner returned, successfully or not.
	TASK_STATS_EXECUTED_COUNT
	// How many times the Runner's runtime reached or exceeded
	// CLOCK_TICK_INTERVAL (one second) - a sign the task is too slow for this
	// wheel's resolution.
	TASK_STATS_OVERRUN_COUNT
	// How many times the task was dropped because re-adding it to the wheel
	// failed, rather than because the Runner/FrequencyState said stop.
	TASK_STATS_DROPPED_COUNT
	// Total runtime of the task across all executions, in microseconds.
	TASK_STATS_TOTAL_RUNTIME_USEC

	TASK_STATS_UINT64_LEN
)

type TaskStats struct {
	Uint64Stats []uint64
}

func NewTaskStats() *TaskStats {
	return &TaskStats{Uint64Stats: make([]uint64, TASK_STATS_UINT64_LEN)}
}

type ExecutorStats map[TaskId]*TaskStats

// ExecutorConfig controls worker pool sizing and, optionally, a global cap
// on how many tasks may start per second.
type ExecutorConfig struct {
	// Number of worker goroutines. -1 matches the number of available CPUs.
	NumWorkers int `yaml:"num_workers"`
	// Optional global task-start rate limit, e.g. "500" or "500:1s" (see
	// ParseCreditRateSpec). Empty disables throttling.
	MaxTaskRate string `yaml:"max_task_rate"`
}

func DefaultExecutorConfig() *ExecutorConfig {
	return &ExecutorConfig{NumWorkers: EXECUTOR_CONFIG_NUM_WORKERS_DEFAULT}
}

var executorLog = NewCompLogger("executor")

// ReAddFunc re-arms a task that asked to continue. It is expected to be
// MultiWheel.Add, wired in by the Engine.
type ReAddFunc func(task *Task, now uint64) error

type Executor struct {
	todoQ      chan *Task
	numWorkers int
	reAdd      ReAddFunc
	nowFn      func() uint64
	events     *EventBus
	rateLimit  *Credit
	cancel     context.CancelFunc

	mu    sync.Mutex
	stats ExecutorStats

	wg sync.WaitGroup
}

func NewExecutor(cfg *ExecutorConfig, reAdd ReAddFunc, nowFn func() uint64, events *EventBus) (*Executor, error) {
	if cfg == nil {
		cfg = DefaultExecutorConfig()
	}
	numWorkers := cfg.NumWorkers
	if numWorkers <= 0 {
		numWorkers = GetAvailableCPUCount()
	}
	if numWorkers > EXECUTOR_MAX_NUM_WORKERS {
		numWorkers = EXECUTOR_MAX_NUM_WORKERS
	}
	if numWorkers < 1 {
		numWorkers = 1
	}

	var rateLimit *Credit
	if cfg.MaxTaskRate != "" {
		var err error
		rateLimit, err = NewCreditFromSpec(cfg.MaxTaskRate)
		if err != nil {
			return nil, fmt.Errorf("executor: max_task_rate: %v", err)
		}
	}

	executorLog.Infof("num_workers=%d max_task_rate=%q", numWorkers, cfg.MaxTaskRate)
	return &Executor{
		todoQ:      make(chan *Task, EXECUTOR_TODO_Q_LEN),
		numWorkers: numWorkers,
		reAdd:      reAdd,
		nowFn:      nowFn,
		events:     events,
		rateLimit:  rateLimit,
		stats:      make(ExecutorStats),
	}, nil
}

// Submit enqueues arrived tasks for execution. It may block if the todo
// queue is momentarily full; callers (the Engine's tick handler) are
// expected to call this from a single goroutine per MultiWheel.Tick batch.
func (e *Executor) Submit(tasks []*Task) {
	for _, task := range tasks {
		e.mu.Lock()
		if e.stats[task.TaskId] == nil {
			e.stats[task.TaskId] = NewTaskStats()
		}
		e.stats[task.TaskId].Uint64Stats[TASK_STATS_SCHEDULED_COUNT]++
		e.mu.Unlock()
		e.todoQ <- task
	}
}

func (e *Executor) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)
	for workerId := 0; workerId < e.numWorkers; workerId++ {
		e.wg.Add(1)
		go e.workerLoop(ctx, workerId)
	}
}

func (e *Executor) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()
	if e.rateLimit != nil {
		e.rateLimit.StopReplenishWait()
	}
}

func (e *Executor) workerLoop(ctx context.Context, workerId int) {
	executorLog.Infof("start worker# %d", workerId)
	defer func() {
		executorLog.Infof("worker# %d stopped", workerId)
		e.wg.Done()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case task := <-e.todoQ:
			e.runOne(task)
		}
	}
}

func (e *Executor) runOne(task *Task) {
	if e.rateLimit != nil {
		e.rateLimit.GetCredit(1, 1)
	}

	startTs := time.Now()
	again := true
	if task.Runner != nil {
		again = task.Runner()
	}
	runtime := time.Since(startTs)

	e.mu.Lock()
	taskStats := e.stats[task.TaskId]
	taskStats.Uint64Stats[TASK_STATS_EXECUTED_COUNT]++
	taskStats.Uint64Stats[TASK_STATS_TOTAL_RUNTIME_USEC] += uint64(runtime.Microseconds())
	if runtime >= CLOCK_TICK_INTERVAL {
		taskStats.Uint64Stats[TASK_STATS_OVERRUN_COUNT]++
	}
	e.mu.Unlock()

	now := e.nowFn()

	if !again || task.Freq.Done() {
		e.publish(TimerEvent{TaskId: task.TaskId, FiredAt: now, Outcome: TimerEventTerminal})
		return
	}

	reArmed := task.cloneForReAdd()
	if err := e.reAdd(reArmed, now); err != nil {
		executorLog.Warnf("task %d: re-add failed: %v", task.TaskId, err)
		e.mu.Lock()
		e.stats[task.TaskId].Uint64Stats[TASK_STATS_DROPPED_COUNT]++
		e.mu.Unlock()
		e.publish(TimerEvent{TaskId: task.TaskId, FiredAt: now, Outcome: TimerEventDropped})
		return
	}
	e.publish(TimerEvent{TaskId: task.TaskId, FiredAt: now, Outcome: TimerEventFired})
}

func (e *Executor) publish(event TimerEvent) {
	if e.events != nil {
		e.events.Publish(event)
	}
}

// SnapStats copies the current stats into to (allocating it if nil) and
// returns it, so a caller reading stats concurrently never shares the
// live map.
func (e *Executor) SnapStats(to ExecutorStats) ExecutorStats {
	if to == nil {
		to = make(ExecutorStats)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for taskId, taskStats := range e.stats {
		toTaskStats := to[taskId]
		if toTaskStats == nil {
			toTaskStats = NewTaskStats()
			to[taskId] = toTaskStats
		}
		copy(toTaskStats.Uint64Stats, taskStats.Uint64Stats)
	}
	return to
}
