// All internal metrics definitions in one place

package minitimer_internal

const (
	// The following labels are common to all metrics:
	INSTANCE_LABEL_NAME = "minitimer_inst"
	HOSTNAME_LABEL_NAME = "hostname"

	//////////////////////////////////////////////////////
	// Task/Executor Metrics
	//////////////////////////////////////////////////////

	TASK_STATS_SCHEDULED_DELTA_METRIC       = "minitimer_task_scheduled_delta"
	TASK_STATS_EXECUTED_DELTA_METRIC        = "minitimer_task_executed_delta"
	TASK_STATS_OVERRUN_DELTA_METRIC         = "minitimer_task_overrun_delta"
	TASK_STATS_DROPPED_DELTA_METRIC         = "minitimer_task_dropped_delta"
	TASK_STATS_AVG_RUNTIME_METRIC           = "minitimer_task_avg_runtime_sec"
	TASK_STATS_AVG_RUNTIME_METRIC_PRECISION = 6

	TASK_STATS_TASK_ID_LABEL_NAME = "task_id"

	//////////////////////////////////////////////////////
	// Wheel Metrics
	//////////////////////////////////////////////////////

	WHEEL_TASKS_TRACKED_METRIC        = "minitimer_wheel_tasks_tracked"
	WHEEL_CASCADE_MINUTE_DELTA_METRIC = "minitimer_wheel_cascade_minute_delta"
	WHEEL_CASCADE_HOUR_DELTA_METRIC   = "minitimer_wheel_cascade_hour_delta"

	//////////////////////////////////////////////////////
	// Event Bus Metrics
	//////////////////////////////////////////////////////

	EVENT_BUS_DROPPED_DELTA_METRIC = "minitimer_event_bus_dropped_delta"

	//////////////////////////////////////////////////////
	// Go Metrics
	//////////////////////////////////////////////////////

	GO_NUM_GOROUTINE_METRIC           = "minitimer_go_num_goroutine"
	GO_MEM_SYS_BYTES_METRIC           = "minitimer_go_mem_sys_bytes"
	GO_MEM_HEAP_BYTES_METRIC          = "minitimer_go_mem_heap_bytes"
	GO_MEM_HEAP_SYS_BYTES_METRIC      = "minitimer_go_mem_heap_sys_bytes"
	GO_MEM_IN_USE_OBJECT_COUNT_METRIC = "minitimer_go_mem_in_use_object_count"

	// Deltas since previous internal metrics interval:
	GO_MEM_MALLOCS_DELTA_METRIC = "minitimer_go_mem_malloc_delta"
	GO_MEM_FREE_DELTA_METRIC    = "minitimer_go_mem_free_delta"
	GO_MEM_NUM_GC_DELTA_METRIC  = "minitimer_go_mem_gc_delta"

	//////////////////////////////////////////////////////
	// Engine / Host Metrics
	//////////////////////////////////////////////////////

	ENGINE_UPTIME_METRIC = "minitimer_uptime_sec" // heartbeat

	ENGINE_BUILDINFO_METRIC    = "minitimer_buildinfo"
	ENGINE_VERSION_LABEL_NAME  = "minitimer_version"
	ENGINE_GIT_INFO_LABEL_NAME = "minitimer_git_info"

	// OS metrics:
	OS_INFO_METRIC          = "minitimer_os_info"
	OS_INFO_LABEL_PREFIX    = "os_info_" // prefix + OSInfoLabelKeys
	OS_RELEASE_METRIC       = "minitimer_os_release"
	OS_RELEASE_LABEL_PREFIX = "os_rel_" // prefix + OSReleaseLabelKeys
	OS_UPTIME_METRIC        = "minitimer_os_uptime_sec"

	UPTIME_METRIC_PRECISION = 6

	// %CPU over internal metrics interval, for this process:
	HOST_PROC_PCPU_METRIC = "minitimer_proc_pcpu"

	//////////////////////////////////////////////////////
	// Internal Metrics Generator's own metrics
	//////////////////////////////////////////////////////

	INTERNAL_METRICS_INVOCATION_DELTA_METRIC = "minitimer_internal_metrics_invocation_delta"
	INTERNAL_METRICS_METRICS_DELTA_METRIC    = "minitimer_internal_metrics_metrics_delta"
	INTERNAL_METRICS_BYTE_DELTA_METRIC       = "minitimer_internal_metrics_byte_delta"
)
