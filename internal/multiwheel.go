// MultiWheel: the coordinator - placement arithmetic, tick + cascade
// protocol, tracking index, add/remove/query API.
//
// N.B. a naive hour-cascade would decrement `round` even on the branch
// where it is already 0 (an unsigned underflow); this is guarded against
// explicitly - see TestMultiWheelHourCascadeRoundZeroDescends.

package minitimer_internal

import "sync/atomic"

const (
	SECONDS_PER_WHEEL = 60
	MINUTES_PER_WHEEL = 60
	HOURS_PER_WHEEL   = 24
)

var multiWheelLog = NewCompLogger("multiwheel")

type MultiWheel struct {
	sec   *Wheel
	min   *Wheel
	hour  *Wheel
	index *TrackingIndex

	cascadeMinuteCount atomic.Uint64
	cascadeHourCount   atomic.Uint64
}

func NewMultiWheel() *MultiWheel {
	return &MultiWheel{
		sec:   NewWheel(SECONDS_PER_WHEEL),
		min:   NewWheel(MINUTES_PER_WHEEL),
		hour:  NewWheel(HOURS_PER_WHEEL),
		index: NewTrackingIndex(),
	}
}

// HandPositions returns the current (second, minute, hour) hand positions.
func (mw *MultiWheel) HandPositions() (sec, min, hour uint64) {
	return mw.sec.HandPosition(), mw.min.HandPosition(), mw.hour.HandPosition()
}

func (mw *MultiWheel) wheelFor(kind WheelKind) *Wheel {
	switch kind {
	case SecondWheel:
		return mw.sec
	case MinuteWheel:
		return mw.min
	case HourWheel:
		return mw.hour
	default:
		panic("minitimer: unknown wheel kind")
	}
}

// place computes the guide for delta seconds from the current hand
// positions, stores it on task, and inserts task into the destination
// wheel+slot. It does not touch the tracking index; callers update it.
func (mw *MultiWheel) place(task *Task, delta uint64) (WheelKind, uint64) {
	cs, cm, ch := mw.HandPositions()
	guide, kind := ComputeCascadeGuide(cs, cm, ch, delta)
	task.Guide = guide

	var slotIndex uint64
	switch kind {
	case HourWheel:
		slotIndex = *guide.Hour
	case MinuteWheel:
		slotIndex = *guide.Min
	default:
		slotIndex = guide.Sec
	}
	mw.wheelFor(kind).Insert(task, slotIndex)
	return kind, slotIndex
}

// Add consumes the next timestamp from task's FrequencyState and places the
// task accordingly. now is an absolute epoch-second timestamp. If the
// FrequencyState has nothing left, Add is a no-op success (the task is
// considered already completed). If task.TaskId is already tracked, its
// previous placement is removed first.
func (mw *MultiWheel) Add(task *Task, now uint64) error {
	fireTs, ok := task.Freq.Advance()
	if !ok {
		return nil
	}

	if prev, ok := mw.index.Get(task.TaskId); ok {
		mw.wheelFor(prev.Wheel).Remove(task.TaskId, prev.SlotIndex)
		mw.index.Delete(task.TaskId)
	}

	var delta uint64
	if fireTs > now {
		delta = fireTs - now
	}

	kind, slotIndex := mw.place(task, delta)
	mw.index.Set(TrackingInfo{
		TaskId:    task.TaskId,
		Wheel:     kind,
		SlotIndex: slotIndex,
		Guide:     task.Guide,
	})
	return nil
}

// Remove cancels a live task. It is idempotent: a second call on the same
// id returns (nil, false).
func (mw *MultiWheel) Remove(taskId TaskId) (*Task, bool) {
	info, ok := mw.index.Get(taskId)
	if !ok {
		return nil, false
	}
	task, ok := mw.wheelFor(info.Wheel).Remove(taskId, info.SlotIndex)
	mw.index.Delete(taskId)
	if !ok {
		return nil, false
	}
	return task, true
}

// TrackingInfo is an O(1) read of a live task's current wheel residency.
func (mw *MultiWheel) TrackingInfo(taskId TaskId) (TrackingInfo, bool) {
	return mw.index.Get(taskId)
}

// Len reports the number of tracked (live) tasks.
func (mw *MultiWheel) Len() int {
	return mw.index.Len()
}

// CascadeCounts reports the lifetime count of minute-wheel and hour-wheel
// cascade events, for delta-stats rendering by InternalMetrics.
func (mw *MultiWheel) CascadeCounts() (minuteCount, hourCount uint64) {
	return mw.cascadeMinuteCount.Load(), mw.cascadeHourCount.Load()
}

// Tick advances the second hand by one and runs whatever cascades the carry
// triggers, in order: minute cascade completes before hour cascade; within a
// cascade no task moves twice. It returns the tasks that arrived in the
// current second - i.e. the seconds-wheel slot the hand now points to.
func (mw *MultiWheel) Tick() []*Task {
	secCarry, secCarried := mw.sec.Advance(1)
	if !secCarried {
		return mw.drainArrived()
	}

	minCarry, minCarried := mw.min.Advance(secCarry)
	mw.cascadeMinute()
	mw.cascadeMinuteCount.Add(1)

	if minCarried {
		mw.hour.Advance(minCarry)
		mw.cascadeHour()
		mw.cascadeHourCount.Add(1)
	}

	return mw.drainArrived()
}

// drainArrived removes and returns every task in the seconds slot the hand
// currently points to, deleting their tracking index entries (they are no
// longer "live" within the wheel - the Executor now owns them).
func (mw *MultiWheel) drainArrived() []*Task {
	hand := mw.sec.HandPosition()
	tasks := mw.sec.SlotAt(hand).Drain()
	for _, task := range tasks {
		mw.index.Delete(task.TaskId)
	}
	return tasks
}

// cascadeMinute drains the minute slot the minute hand now points to, and
// re-places every task it held into the seconds wheel at the slot recorded
// in its guide.
func (mw *MultiWheel) cascadeMinute() {
	hand := mw.min.HandPosition()
	tasks := mw.min.SlotAt(hand).Drain()
	for _, task := range tasks {
		slotIndex := task.Guide.Sec
		task.Guide.Min = nil
		mw.sec.Insert(task, slotIndex)
		mw.index.Set(TrackingInfo{
			TaskId:    task.TaskId,
			Wheel:     SecondWheel,
			SlotIndex: slotIndex,
			Guide:     task.Guide,
		})
	}
}

// cascadeHour drains the hour slot the hour hand now points to. Tasks whose
// guide still carries a pending round are decremented and kept in the hour
// wheel (same slot, another day to wait); tasks whose round has already
// reached 0 descend to the minute wheel at the slot recorded in their guide.
func (mw *MultiWheel) cascadeHour() {
	hand := mw.hour.HandPosition()
	tasks := mw.hour.SlotAt(hand).Drain()
	for _, task := range tasks {
		if task.Guide.Round > 0 {
			task.Guide.Round--
			mw.hour.Insert(task, hand)
			mw.index.Set(TrackingInfo{
				TaskId:    task.TaskId,
				Wheel:     HourWheel,
				SlotIndex: hand,
				Guide:     task.Guide,
			})
			continue
		}

		if task.Guide.Min == nil {
			// A programming invariant violation: a task in the hour wheel
			// with round == 0 must have a minute slot recorded.
			multiWheelLog.Fatalf("task %d: hour cascade with round=0 and no minute slot recorded", task.TaskId)
		}
		slotIndex := *task.Guide.Min
		task.Guide.Hour = nil
		mw.min.Insert(task, slotIndex)
		mw.index.Set(TrackingInfo{
			TaskId:    task.TaskId,
			Wheel:     MinuteWheel,
			SlotIndex: slotIndex,
			Guide:     task.Guide,
		})
	}
}
