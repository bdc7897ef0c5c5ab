// EventBus: best-effort fan-out of TimerEvent values to subscribers, using
// a buffered-channel-plus-loop shape - simplified relative to the metrics
// sink's since TimerEvent is a small value type rather than a pooled byte
// buffer.

package minitimer_internal

import (
	"fmt"
	"sync"

	"github.com/docker/go-units"
)

// TimerEventOutcome classifies why a TimerEvent was published.
type TimerEventOutcome int

const (
	// TimerEventFired: the task's Runner ran and asked to continue; it has
	// been re-added with its advanced FrequencyState.
	TimerEventFired TimerEventOutcome = iota
	// TimerEventTerminal: the task's Runner ran and either returned false or
	// exhausted its FrequencyState; it will not fire again.
	TimerEventTerminal
	// TimerEventDropped: the task arrived but could not be re-added (e.g. the
	// MultiWheel rejected it); also terminal from the caller's perspective.
	TimerEventDropped
)

var timerEventOutcomeNames = map[TimerEventOutcome]string{
	TimerEventFired:    "fired",
	TimerEventTerminal: "terminal",
	TimerEventDropped:  "dropped",
}

func (o TimerEventOutcome) String() string {
	if name, ok := timerEventOutcomeNames[o]; ok {
		return name
	}
	return "unknown"
}

// TimerEvent is published once per task arrival, after the Executor has run
// its Runner and decided whether to re-add it.
type TimerEvent struct {
	TaskId  TaskId
	FiredAt uint64
	Outcome TimerEventOutcome
}

const EVENT_BUS_CONFIG_QUEUE_CAPACITY_DEFAULT = 256
const EVENT_BUS_CONFIG_MAX_QUEUE_MEMORY_DEFAULT = "1m"

// EventBusConfig controls subscriber queue sizing. MaxQueueMemory is an
// advisory budget (parsed with docker/go-units, e.g. "1m", "512k"); it is
// logged, not enforced, since Go channels are sized in elements, not bytes.
type EventBusConfig struct {
	QueueCapacity  int    `yaml:"queue_capacity"`
	MaxQueueMemory string `yaml:"max_queue_memory"`
}

func DefaultEventBusConfig() *EventBusConfig {
	return &EventBusConfig{
		QueueCapacity:  EVENT_BUS_CONFIG_QUEUE_CAPACITY_DEFAULT,
		MaxQueueMemory: EVENT_BUS_CONFIG_MAX_QUEUE_MEMORY_DEFAULT,
	}
}

var eventBusLog = NewCompLogger("event_bus")

type EventBus struct {
	mu           sync.Mutex
	subscribers  []chan TimerEvent
	queueCap     int
	droppedCount uint64
}

func NewEventBus(cfg *EventBusConfig) (*EventBus, error) {
	if cfg == nil {
		cfg = DefaultEventBusConfig()
	}
	budget, err := units.RAMInBytes(cfg.MaxQueueMemory)
	if err != nil {
		return nil, fmt.Errorf("event_bus: invalid max_queue_memory %q: %v", cfg.MaxQueueMemory, err)
	}
	eventBusLog.Infof("queue_capacity=%d max_queue_memory=%s (%d bytes, advisory)", cfg.QueueCapacity, cfg.MaxQueueMemory, budget)
	return &EventBus{queueCap: cfg.QueueCapacity}, nil
}

// Subscribe returns a read-only channel that receives every event published
// from this point forward. Callers must keep draining it; a slow or absent
// reader only ever loses events, never blocks Publish.
func (eb *EventBus) Subscribe() <-chan TimerEvent {
	ch := make(chan TimerEvent, eb.queueCap)
	eb.mu.Lock()
	eb.subscribers = append(eb.subscribers, ch)
	eb.mu.Unlock()
	return ch
}

// Publish fans out event to every subscriber on a best-effort basis. A
// subscriber whose queue is full has the event dropped for it, and the
// bus-wide dropped counter is incremented; Publish itself never blocks.
func (eb *EventBus) Publish(event TimerEvent) {
	eb.mu.Lock()
	subscribers := eb.subscribers
	eb.mu.Unlock()

	for _, ch := range subscribers {
		select {
		case ch <- event:
		default:
			eb.mu.Lock()
			eb.droppedCount++
			eb.mu.Unlock()
		}
	}
}

// DroppedCount reports how many publish attempts were dropped for a full
// subscriber queue, cumulative across all subscribers.
func (eb *EventBus) DroppedCount() uint64 {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	return eb.droppedCount
}
