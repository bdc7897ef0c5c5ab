// TrackingIndex: the secondary map from TaskId to current (wheel, slot,
// guide), used for O(1) cancellation and querying.

package minitimer_internal

import "sync"

// TrackingInfo records where a live task currently resides.
type TrackingInfo struct {
	TaskId    TaskId
	Wheel     WheelKind
	SlotIndex uint64
	Guide     CascadeGuide
}

// TrackingIndex is a mutex-guarded map: contention here is low relative to
// per-slot traffic, so one shared lock suffices rather than per-entry
// locking.
type TrackingIndex struct {
	mu    sync.RWMutex
	index map[TaskId]TrackingInfo
}

func NewTrackingIndex() *TrackingIndex {
	return &TrackingIndex{index: make(map[TaskId]TrackingInfo)}
}

func (ti *TrackingIndex) Set(info TrackingInfo) {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	ti.index[info.TaskId] = info
}

func (ti *TrackingIndex) Get(taskId TaskId) (TrackingInfo, bool) {
	ti.mu.RLock()
	defer ti.mu.RUnlock()
	info, ok := ti.index[taskId]
	return info, ok
}

func (ti *TrackingIndex) Delete(taskId TaskId) {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	delete(ti.index, taskId)
}

func (ti *TrackingIndex) Len() int {
	ti.mu.RLock()
	defer ti.mu.RUnlock()
	return len(ti.index)
}
