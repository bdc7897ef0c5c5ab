// Task + TaskBuilder: the scheduled unit and its configuration surface.

package minitimer_internal

// TaskId is an opaque identifier, unique per live task within one
// MultiWheel. Duplicate insertion replaces the previous task.
type TaskId uint64

// Runner is the task's body: a single-method capability. Returning true
// signals success - if the task's FrequencyState has a further timestamp,
// it is re-armed; returning false (or a FrequencyState with nothing left)
// drops the task.
type Runner func() bool

// Task is the scheduled unit. It is created by TaskBuilder, placed and
// cascaded by MultiWheel, and advanced by the Executor upon completion.
type Task struct {
	TaskId TaskId
	Runner Runner
	Guide  CascadeGuide
	Freq   *FrequencyState
}

// Arrived reports whether the task currently sits in the seconds wheel,
// ready to fire as soon as the second hand reaches its slot.
func (t *Task) Arrived() bool {
	return t.Guide.Arrived()
}

// TaskBuilder assembles a Task from a TaskId and a FrequencySpec. Use
// NewTaskBuilder(id) and chain exactly one frequency method before Build.
type TaskBuilder struct {
	taskId TaskId
	spec   FrequencySpec
}

func NewTaskBuilder(id TaskId) *TaskBuilder {
	return &TaskBuilder{taskId: id, spec: DefaultFrequencySpec()}
}

// Once arranges for the task to fire exactly once, delaySeconds from
// construction time.
func (b *TaskBuilder) Once(delaySeconds uint64) *TaskBuilder {
	b.spec = FrequencySpec{Kind: FrequencyOnce, PeriodSeconds: delaySeconds}
	return b
}

// OnceAt arranges for the task to fire exactly once, at the given absolute
// epoch-second timestamp (which must be strictly after now at Build time).
func (b *TaskBuilder) OnceAt(epochSeconds uint64) *TaskBuilder {
	b.spec = FrequencySpec{Kind: FrequencyOnce, PeriodSeconds: 1, AbsoluteAt: epochSeconds}
	return b
}

// Repeated arranges for the task to fire every periodSeconds, forever.
func (b *TaskBuilder) Repeated(periodSeconds uint64) *TaskBuilder {
	b.spec = FrequencySpec{Kind: FrequencyRepeated, PeriodSeconds: periodSeconds}
	return b
}

// CountDown arranges for the task to fire every periodSeconds, count times,
// then terminate.
func (b *TaskBuilder) CountDown(count, periodSeconds uint64) *TaskBuilder {
	b.spec = FrequencySpec{Kind: FrequencyCountDown, PeriodSeconds: periodSeconds, Remaining: count}
	return b
}

// Build constructs the Task, anchoring its FrequencyState at now. It
// returns ErrInvalidFrequency if the configured spec cannot produce a valid
// firing sequence.
func (b *TaskBuilder) Build(now uint64, runner Runner) (*Task, error) {
	freq, err := NewFrequencyState(b.spec, now)
	if err != nil {
		return nil, err
	}
	return &Task{TaskId: b.taskId, Runner: runner, Freq: freq}, nil
}

// cloneForReAdd returns a deep copy of the task suitable for re-adding to
// the MultiWheel after a successful run. See clone.go for why a copy,
// rather than the same pointer, is required here.
func (t *Task) cloneForReAdd() *Task {
	return cloneTask(t)
}
