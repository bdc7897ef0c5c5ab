package minitimer_internal

import (
	"bytes"
	"strings"
	"testing"

	minitimer_testutils "github.com/bgp59/minitimer/testutils"
)

// recordingBufferQueue wraps a TestMetricsQueue to additionally keep each
// rendered batch as a whole string, so tests can assert on a single render's
// output directly rather than only on cumulative per-metric counts.
type recordingBufferQueue struct {
	*minitimer_testutils.TestMetricsQueue
	batches []string
}

func newRecordingBufferQueue() *recordingBufferQueue {
	return &recordingBufferQueue{TestMetricsQueue: minitimer_testutils.NewTestMetricsQueue(0)}
}

func (r *recordingBufferQueue) QueueBuf(buf *bytes.Buffer) {
	r.batches = append(r.batches, buf.String())
	r.TestMetricsQueue.QueueBuf(buf)
}

func newTestInternalMetrics(t *testing.T) (*InternalMetrics, *recordingBufferQueue) {
	t.Helper()
	engine, err := NewEngine(newTestEngineConfig())
	if err != nil {
		t.Fatal(err)
	}
	im, err := NewInternalMetrics(&InternalMetricsConfig{FullMetricsFactor: 12}, engine)
	if err != nil {
		t.Fatal(err)
	}
	fake := newRecordingBufferQueue()
	im.sink = fake
	return im, fake
}

func TestInternalMetricsRenderProducesABatch(t *testing.T) {
	im, fake := newTestInternalMetrics(t)

	if ok := im.render(); !ok {
		t.Fatal("render: want true")
	}
	if len(fake.batches) != 1 {
		t.Fatalf("batches: want 1, got %d", len(fake.batches))
	}
	batch := fake.batches[0]
	for _, want := range []string{ENGINE_UPTIME_METRIC, ENGINE_BUILDINFO_METRIC, GO_NUM_GOROUTINE_METRIC, WHEEL_TASKS_TRACKED_METRIC} {
		if !strings.Contains(batch, want) {
			t.Errorf("batch missing metric %q", want)
		}
	}

	errBuf := fake.GenerateReport([]string{}, false, nil)
	if errBuf.Len() != 0 {
		t.Errorf("GenerateReport unexpectedly reported: %s", errBuf.String())
	}
}

func TestInternalMetricsBuildinfoOnlyOnFullMetricsCycle(t *testing.T) {
	im, fake := newTestInternalMetrics(t)
	im.fullMetricsFactor = 2

	im.render()
	im.render()
	im.render()

	if !strings.Contains(fake.batches[0], ENGINE_BUILDINFO_METRIC) {
		t.Error("1st render: want buildinfo present (first pass)")
	}
	if strings.Contains(fake.batches[1], ENGINE_BUILDINFO_METRIC) {
		t.Error("2nd render: want buildinfo absent (not a full-metrics cycle)")
	}
	if !strings.Contains(fake.batches[2], ENGINE_BUILDINFO_METRIC) {
		t.Error("3rd render: want buildinfo present (cycleNum wrapped back to 0)")
	}
}

func TestInternalMetricsReportsTrackedTasks(t *testing.T) {
	im, fake := newTestInternalMetrics(t)
	engine := im.engine

	task, err := NewTaskBuilder(1).Once(30).Build(0, func() bool { return true })
	if err != nil {
		t.Fatal(err)
	}
	if err := engine.Add(task); err != nil {
		t.Fatal(err)
	}

	im.render()
	if !strings.Contains(fake.batches[0], WHEEL_TASKS_TRACKED_METRIC) {
		t.Fatal("batch missing wheel_tasks_tracked metric")
	}
}

func TestInternalMetricsStartDisabledWhenIntervalZero(t *testing.T) {
	engine, err := NewEngine(newTestEngineConfig())
	if err != nil {
		t.Fatal(err)
	}
	im, err := NewInternalMetrics(&InternalMetricsConfig{Interval: 0}, engine)
	if err != nil {
		t.Fatal(err)
	}
	if im.sink != nil {
		t.Error("sink: want nil when interval <= 0 (no StdoutMetricsSink constructed)")
	}
	// Start/Stop must be safe no-ops in this configuration.
	im.Start(nil)
	im.Stop()
}
