// Slot: one bucket of a wheel, mapping TaskId to Task.
//
// Each slot owns its own mutex so that operations on distinct slots never
// contend. A single lock per wheel would also be correct, but per-slot
// locking is stricter and costs nothing extra in Go.

package minitimer_internal

import "sync"

type Slot struct {
	mu      sync.Mutex
	taskMap map[TaskId]*Task
}

func NewSlot() *Slot {
	return &Slot{taskMap: make(map[TaskId]*Task)}
}

// Insert adds or replaces a task by id, returning the previous task if any.
func (s *Slot) Insert(task *Task) *Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.taskMap[task.TaskId]
	s.taskMap[task.TaskId] = task
	if prev != nil {
		return prev
	}
	return nil
}

// Update has identical semantics to Insert; it is a second name for the same
// operation, and nothing in this package (metrics included) tells the two
// apart.
func (s *Slot) Update(task *Task) *Task {
	return s.Insert(task)
}

// Remove deletes a task by id, returning it if present.
func (s *Slot) Remove(taskId TaskId) (*Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.taskMap[taskId]
	if !ok {
		return nil, false
	}
	delete(s.taskMap, taskId)
	return task, true
}

// Drain empties the slot and returns every task it held. The underlying map
// is reused (cleared), not reallocated, so a slot's amortized cost stays
// O(1) across repeated cascade cycles.
func (s *Slot) Drain() []*Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.taskMap) == 0 {
		return nil
	}
	tasks := make([]*Task, 0, len(s.taskMap))
	for id, task := range s.taskMap {
		tasks = append(tasks, task)
		delete(s.taskMap, id)
	}
	return tasks
}

// Len reports how many tasks the slot currently holds.
func (s *Slot) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.taskMap)
}
