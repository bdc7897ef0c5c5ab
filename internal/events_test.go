package minitimer_internal

import "testing"

func TestEventBusPublishSubscribe(t *testing.T) {
	eb, err := NewEventBus(DefaultEventBusConfig())
	if err != nil {
		t.Fatal(err)
	}
	ch := eb.Subscribe()

	eb.Publish(TimerEvent{TaskId: 1, FiredAt: 100, Outcome: TimerEventFired})

	select {
	case event := <-ch:
		if event.TaskId != 1 || event.Outcome != TimerEventFired {
			t.Errorf("event: want {TaskId:1, Fired}, got %+v", event)
		}
	default:
		t.Fatal("want an event waiting on the subscriber channel")
	}
}

func TestEventBusFanOut(t *testing.T) {
	eb, _ := NewEventBus(DefaultEventBusConfig())
	ch1 := eb.Subscribe()
	ch2 := eb.Subscribe()

	eb.Publish(TimerEvent{TaskId: 7, Outcome: TimerEventTerminal})

	for _, ch := range []<-chan TimerEvent{ch1, ch2} {
		select {
		case event := <-ch:
			if event.TaskId != 7 {
				t.Errorf("TaskId: want 7, got %d", event.TaskId)
			}
		default:
			t.Fatal("every subscriber should receive the published event")
		}
	}
}

func TestEventBusDropsOnFullQueue(t *testing.T) {
	eb, err := NewEventBus(&EventBusConfig{QueueCapacity: 1, MaxQueueMemory: "1m"})
	if err != nil {
		t.Fatal(err)
	}
	ch := eb.Subscribe()

	eb.Publish(TimerEvent{TaskId: 1})
	eb.Publish(TimerEvent{TaskId: 2})

	if got := eb.DroppedCount(); got != 1 {
		t.Errorf("DroppedCount: want 1, got %d", got)
	}
	<-ch // drain the one event that made it through, to avoid masking a leak
}

func TestEventBusInvalidMaxQueueMemory(t *testing.T) {
	_, err := NewEventBus(&EventBusConfig{QueueCapacity: 1, MaxQueueMemory: "not-a-size"})
	if err == nil {
		t.Fatal("want an error for an unparseable max_queue_memory")
	}
}

func TestTimerEventOutcomeString(t *testing.T) {
	cases := map[TimerEventOutcome]string{
		TimerEventFired:       "fired",
		TimerEventTerminal:    "terminal",
		TimerEventDropped:     "dropped",
		TimerEventOutcome(99): "unknown",
	}
	for outcome, want := range cases {
		if got := outcome.String(); got != want {
			t.Errorf("String(%d): want %q, got %q", outcome, want, got)
		}
	}
}
