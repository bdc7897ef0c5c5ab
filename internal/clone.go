// cloneTask produces an independent copy of a Task for re-insertion into
// the wheel after the Executor has run it. A shallow copy would leave the
// re-armed task sharing the same Guide/FrequencyState pointers as whatever
// the original caller still holds a reference to (e.g. a slice returned by
// Tick that the Executor is iterating while MultiWheel.Add runs
// concurrently on another goroutine) - go-clone gives us a deep copy without
// hand-writing one field at a time as the Task shape grows.

package minitimer_internal

import "github.com/huandu/go-clone"

func cloneTask(t *Task) *Task {
	return clone.Clone(t).(*Task)
}
