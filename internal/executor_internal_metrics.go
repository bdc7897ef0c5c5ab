// Executor metrics: delta-stats rendering of per-task execution counters,
// using a dual-storage current/previous toggle so every counter renders as
// a since-last-interval delta rather than a lifetime total.

package minitimer_internal

import (
	"bytes"
	"fmt"
	"strconv"
)

// Map stats index to the metric name, with the task_id label baked in:
type taskStatsIndexMetricMap map[int][]byte

type ExecutorInternalMetrics struct {
	internalMetrics *InternalMetrics

	// Dual storage for snapping the stats, used as current/previous,
	// toggled after every metrics generation:
	stats [2]ExecutorStats
	currIndex int

	// Cache the full metric-line prefix for each taskId and stats index:
	uint64DeltaMetricsCache map[TaskId]taskStatsIndexMetricMap

	// Previous-cycle values for the scalar wheel/event-bus counters, to
	// turn the lifetime totals the Engine reports into deltas:
	prevMinuteCascades, prevHourCascades, prevEventBusDropped uint64
}

// The following stats are rendered as deltas since the previous interval:
var taskStatsUint64DeltaMetricsNameMap = map[int]string{
	TASK_STATS_SCHEDULED_COUNT:    TASK_STATS_SCHEDULED_DELTA_METRIC,
	TASK_STATS_EXECUTED_COUNT:     TASK_STATS_EXECUTED_DELTA_METRIC,
	TASK_STATS_OVERRUN_COUNT:      TASK_STATS_OVERRUN_DELTA_METRIC,
	TASK_STATS_DROPPED_COUNT:      TASK_STATS_DROPPED_DELTA_METRIC,
	TASK_STATS_TOTAL_RUNTIME_USEC: TASK_STATS_AVG_RUNTIME_METRIC,
}

func NewExecutorInternalMetrics(internalMetrics *InternalMetrics) *ExecutorInternalMetrics {
	return &ExecutorInternalMetrics{
		internalMetrics:         internalMetrics,
		uint64DeltaMetricsCache: make(map[TaskId]taskStatsIndexMetricMap),
	}
}

func (eim *ExecutorInternalMetrics) SnapStats(engine *Engine) {
	eim.stats[eim.currIndex] = engine.ExecutorStats(eim.stats[eim.currIndex])
}

func (eim *ExecutorInternalMetrics) updateMetricsCache(taskId TaskId) {
	instance, hostname := Instance, Hostname
	taskIdStr := strconv.FormatUint(uint64(taskId), 10)

	indexMetricMap := make(taskStatsIndexMetricMap)
	for index, name := range taskStatsUint64DeltaMetricsNameMap {
		metric := fmt.Sprintf(
			`%s{%s="%s",%s="%s",%s="%s"} `, // N.B. include whitespace separating the metric from the value
			name,
			INSTANCE_LABEL_NAME, instance,
			HOSTNAME_LABEL_NAME, hostname,
			TASK_STATS_TASK_ID_LABEL_NAME, taskIdStr,
		)
		indexMetricMap[index] = []byte(metric)
	}
	eim.uint64DeltaMetricsCache[taskId] = indexMetricMap
}

func (eim *ExecutorInternalMetrics) generateMetrics(buf *bytes.Buffer, tsSuffix []byte) (int, int, *bytes.Buffer) {
	sink := eim.internalMetrics.sink
	metricsCount, partialByteCount, bufMaxSize := 0, 0, sink.GetTargetSize()

	currStats, prevStats := eim.stats[eim.currIndex], eim.stats[1-eim.currIndex]
	var prevTaskStats *TaskStats
	for taskId, currTaskStats := range currStats {
		if buf == nil {
			buf = sink.GetBuf()
		}

		if prevStats != nil {
			prevTaskStats = prevStats[taskId]
		} else {
			prevTaskStats = nil
		}
		uint64IndexMetricMap := eim.uint64DeltaMetricsCache[taskId]
		if uint64IndexMetricMap == nil {
			eim.updateMetricsCache(taskId)
			uint64IndexMetricMap = eim.uint64DeltaMetricsCache[taskId]
		}
		executedCount, runtime, avgRuntimeMetric := uint64(0), uint64(0), []byte(nil)
		for index, metric := range uint64IndexMetricMap {
			val := currTaskStats.Uint64Stats[index]
			if prevTaskStats != nil {
				val -= prevTaskStats.Uint64Stats[index]
			}
			if index == TASK_STATS_TOTAL_RUNTIME_USEC {
				runtime, avgRuntimeMetric = val, metric
				// Postpone writing the avg runtime metric until we know how
				// many tasks ran this interval.
				continue
			}
			if index == TASK_STATS_EXECUTED_COUNT {
				executedCount = val
			}

			buf.Write(metric)
			buf.WriteString(strconv.FormatUint(val, 10))
			buf.Write(tsSuffix)
			metricsCount++
		}
		if executedCount > 0 {
			buf.Write(avgRuntimeMetric)
			buf.WriteString(strconv.FormatFloat(
				// the runtime is in microseconds; render seconds
				float64(runtime)/1_000_000.0/float64(executedCount),
				'f', TASK_STATS_AVG_RUNTIME_METRIC_PRECISION, 64,
			))
			buf.Write(tsSuffix)
			metricsCount++
		}

		if n := buf.Len(); bufMaxSize > 0 && n >= bufMaxSize {
			partialByteCount += n
			sink.QueueBuf(buf)
			buf = nil
		}
	}

	if buf == nil {
		buf = sink.GetBuf()
	}

	minuteCascades, hourCascades := eim.internalMetrics.engine.WheelCascadeCounts()
	eim.writeCounterMetric(buf, tsSuffix, WHEEL_CASCADE_MINUTE_DELTA_METRIC, minuteCascades-eim.prevMinuteCascades)
	metricsCount++
	eim.writeCounterMetric(buf, tsSuffix, WHEEL_CASCADE_HOUR_DELTA_METRIC, hourCascades-eim.prevHourCascades)
	metricsCount++
	eim.prevMinuteCascades, eim.prevHourCascades = minuteCascades, hourCascades

	eim.writeCounterMetric(buf, tsSuffix, WHEEL_TASKS_TRACKED_METRIC, uint64(eim.internalMetrics.engine.Len()))
	metricsCount++

	eventBusDropped := eim.internalMetrics.engine.EventBusDroppedCount()
	eim.writeCounterMetric(buf, tsSuffix, EVENT_BUS_DROPPED_DELTA_METRIC, eventBusDropped-eim.prevEventBusDropped)
	metricsCount++
	eim.prevEventBusDropped = eventBusDropped

	// Flip the stats storage:
	eim.currIndex = 1 - eim.currIndex

	return metricsCount, partialByteCount, buf
}

func (eim *ExecutorInternalMetrics) writeCounterMetric(buf *bytes.Buffer, tsSuffix []byte, name string, val uint64) {
	fmt.Fprintf(
		buf, `%s{%s="%s",%s="%s"} `,
		name, INSTANCE_LABEL_NAME, Instance, HOSTNAME_LABEL_NAME, Hostname,
	)
	buf.WriteString(strconv.FormatUint(val, 10))
	buf.Write(tsSuffix)
}
