package minitimer_internal

import "testing"

func TestCloneTaskIsDistinctPointer(t *testing.T) {
	task, err := NewTaskBuilder(1).Once(30).Build(0, func() bool { return true })
	if err != nil {
		t.Fatal(err)
	}
	clone := cloneTask(task)
	if clone == task {
		t.Fatal("cloneTask: want a distinct *Task pointer")
	}
	if clone.TaskId != task.TaskId {
		t.Errorf("TaskId: want %d, got %d", task.TaskId, clone.TaskId)
	}
}

func TestCloneTaskGuidePointersAreIndependent(t *testing.T) {
	min := uint64(5)
	hour := uint64(3)
	task := &Task{
		TaskId: 1,
		Guide:  CascadeGuide{Sec: 10, Min: &min, Hour: &hour, Round: 2},
	}
	clone := cloneTask(task)

	if clone.Guide.Min == task.Guide.Min {
		t.Error("Guide.Min: want a distinct pointer, got the same one as the original")
	}
	if clone.Guide.Hour == task.Guide.Hour {
		t.Error("Guide.Hour: want a distinct pointer, got the same one as the original")
	}
	if *clone.Guide.Min != *task.Guide.Min || *clone.Guide.Hour != *task.Guide.Hour {
		t.Error("Guide pointer values should still match despite being independent")
	}

	*clone.Guide.Min = 99
	if *task.Guide.Min != 5 {
		t.Errorf("mutating the clone's Guide.Min leaked into the original: got %d", *task.Guide.Min)
	}
}

func TestCloneTaskFrequencyStateIsIndependent(t *testing.T) {
	task, err := NewTaskBuilder(1).Repeated(10).Build(0, func() bool { return true })
	if err != nil {
		t.Fatal(err)
	}
	clone := cloneTask(task)

	origNext, _ := task.Freq.Peek()
	clone.Freq.Advance()
	stillNext, _ := task.Freq.Peek()
	if origNext != stillNext {
		t.Errorf("advancing the clone's FrequencyState leaked into the original: %d != %d", origNext, stillNext)
	}
}
