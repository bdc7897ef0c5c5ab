// Internal metrics: Prometheus-exposition-format self-observation for an
// Engine, rendered on its own periodic timer and queued into a
// MetricsSink. There is exactly one producer in this domain, so its
// invocation/metric/byte counters are inlined here directly rather than
// shared through a separate base struct.

package minitimer_internal

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"
)

const (
	INTERNAL_METRICS_CONFIG_INTERVAL_DEFAULT            = 5 * time.Second
	INTERNAL_METRICS_CONFIG_FULL_METRICS_FACTOR_DEFAULT = 12

	INTERNAL_METRICS_ID = "internal_metrics"
)

var internalMetricsLog = NewCompLogger(INTERNAL_METRICS_ID)

// The following OsInfo keys will be used as labels in OS info metrics:
var OSInfoLabelKeys = []string{"name", "release", "version", "machine"}

// The following OSRelease keys will be used as labels in OS info metrics:
var OSReleaseLabelKeys = []string{
	"id", "name", "pretty_name", "version", "version_codename", "version_id",
}

type InternalMetricsConfig struct {
	Interval          time.Duration      `yaml:"interval"`
	FullMetricsFactor int                `yaml:"full_metrics_factor"`
	Sink              *MetricsSinkConfig `yaml:"sink"`
}

func DefaultInternalMetricsConfig() *InternalMetricsConfig {
	return &InternalMetricsConfig{
		Interval:          INTERNAL_METRICS_CONFIG_INTERVAL_DEFAULT,
		FullMetricsFactor: INTERNAL_METRICS_CONFIG_FULL_METRICS_FACTOR_DEFAULT,
		Sink:              DefaultMetricsSinkConfig(),
	}
}

type internalMetricsGenFunc func(*bytes.Buffer, []byte) (int, int, *bytes.Buffer)

// InternalMetrics periodically renders every collaborator's stats (Go
// runtime, host process, executor, wheel, event bus) as Prometheus text and
// queues it into a BufferQueue.
type InternalMetrics struct {
	engine *Engine
	sink   BufferQueue

	interval          time.Duration
	fullMetricsFactor int
	cycleNum          int
	initialized       bool

	executorMetrics *ExecutorInternalMetrics
	goMetrics       *GoInternalMetrics
	hostMetrics     *HostInternalMetrics

	mGenFuncList []internalMetricsGenFunc

	// Cached, label-complete metric prefixes:
	uptimeMetric    []byte
	buildinfoMetric []byte
	osInfoMetric    []byte
	osReleaseMetric []byte
	osUptimeMetric  []byte

	// This generator's own invocation/metric/byte-count metric prefixes:
	invocationMetric []byte
	metricsCntMetric []byte
	byteCntMetric    []byte

	startTs time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewInternalMetrics(cfg *InternalMetricsConfig, engine *Engine) (*InternalMetrics, error) {
	if cfg == nil {
		cfg = DefaultInternalMetricsConfig()
	}

	var sink BufferQueue
	if cfg.Interval > 0 {
		stdoutSink, err := NewStdoutMetricsSink(cfg.Sink)
		if err != nil {
			return nil, err
		}
		sink = stdoutSink
	}

	im := &InternalMetrics{
		engine:            engine,
		sink:              sink,
		interval:          cfg.Interval,
		fullMetricsFactor: cfg.FullMetricsFactor,
		startTs:           time.Now(),
	}
	im.executorMetrics = NewExecutorInternalMetrics(im)
	im.goMetrics = NewGoInternalMetrics(im)
	im.hostMetrics = NewHostInternalMetrics(im)

	internalMetricsLog.Infof("interval=%s full_metrics_factor=%d", im.interval, im.fullMetricsFactor)
	return im, nil
}

func (im *InternalMetrics) initialize() {
	im.cycleNum = 0

	instance, hostname := Instance, Hostname

	im.uptimeMetric = []byte(fmt.Sprintf(
		`%s{%s="%s",%s="%s"} `, // N.B. whitespace before value!
		ENGINE_UPTIME_METRIC,
		INSTANCE_LABEL_NAME, instance,
		HOSTNAME_LABEL_NAME, hostname,
	))

	im.buildinfoMetric = []byte(fmt.Sprintf(
		`%s{%s="%s",%s="%s",%s="%s",%s="%s"} 1`,
		ENGINE_BUILDINFO_METRIC,
		INSTANCE_LABEL_NAME, instance,
		HOSTNAME_LABEL_NAME, hostname,
		ENGINE_VERSION_LABEL_NAME, Version,
		ENGINE_GIT_INFO_LABEL_NAME, GitInfo,
	))

	buf := &bytes.Buffer{}
	fmt.Fprintf(buf, `%s{%s="%s",%s="%s"`, OS_INFO_METRIC, INSTANCE_LABEL_NAME, instance, HOSTNAME_LABEL_NAME, hostname)
	for _, key := range OSInfoLabelKeys {
		fmt.Fprintf(buf, `,%s%s="%s"`, OS_INFO_LABEL_PREFIX, key, OsInfo[key])
	}
	fmt.Fprintf(buf, `} 1`)
	im.osInfoMetric = bytes.Clone(buf.Bytes())

	buf.Reset()
	fmt.Fprintf(buf, `%s{%s="%s",%s="%s"`, OS_RELEASE_METRIC, INSTANCE_LABEL_NAME, instance, HOSTNAME_LABEL_NAME, hostname)
	for _, key := range OSReleaseLabelKeys {
		fmt.Fprintf(buf, `,%s%s="%s"`, OS_RELEASE_LABEL_PREFIX, key, OsRelease[key])
	}
	fmt.Fprintf(buf, `} 1`)
	im.osReleaseMetric = bytes.Clone(buf.Bytes())

	im.osUptimeMetric = []byte(fmt.Sprintf(
		`%s{%s="%s",%s="%s"} `,
		OS_UPTIME_METRIC,
		INSTANCE_LABEL_NAME, instance,
		HOSTNAME_LABEL_NAME, hostname,
	))

	im.invocationMetric = []byte(fmt.Sprintf(
		`%s{%s="%s",%s="%s"} `,
		INTERNAL_METRICS_INVOCATION_DELTA_METRIC,
		INSTANCE_LABEL_NAME, instance,
		HOSTNAME_LABEL_NAME, hostname,
	))
	im.metricsCntMetric = []byte(fmt.Sprintf(
		`%s{%s="%s",%s="%s"} `,
		INTERNAL_METRICS_METRICS_DELTA_METRIC,
		INSTANCE_LABEL_NAME, instance,
		HOSTNAME_LABEL_NAME, hostname,
	))
	im.byteCntMetric = []byte(fmt.Sprintf(
		`%s{%s="%s",%s="%s"} `,
		INTERNAL_METRICS_BYTE_DELTA_METRIC,
		INSTANCE_LABEL_NAME, instance,
		HOSTNAME_LABEL_NAME, hostname,
	))

	im.initialized = true
}

func (im *InternalMetrics) render() bool {
	firstPass := !im.initialized
	if firstPass {
		im.initialize()
	}

	im.executorMetrics.SnapStats(im.engine)
	im.goMetrics.SnapStats()
	im.hostMetrics.SnapStats()

	ts := time.Now()
	tsSuffix := []byte(fmt.Sprintf(" %d\n", ts.UnixMilli()))

	buf := im.sink.GetBuf()
	metricsCount, byteCount := 0, 0

	if im.mGenFuncList == nil {
		im.mGenFuncList = []internalMetricsGenFunc{
			im.executorMetrics.generateMetrics,
			im.goMetrics.generateMetrics,
			im.hostMetrics.generateMetrics,
		}
	}
	for _, genFunc := range im.mGenFuncList {
		var partialMetricsCount, partialByteCount int
		partialMetricsCount, partialByteCount, buf = genFunc(buf, tsSuffix)
		metricsCount += partialMetricsCount
		byteCount += partialByteCount
	}
	if buf == nil {
		buf = im.sink.GetBuf()
	}

	buf.Write(im.uptimeMetric)
	buf.WriteString(strconv.FormatFloat(ts.Sub(im.startTs).Seconds(), 'f', UPTIME_METRIC_PRECISION, 64))
	buf.Write(tsSuffix)
	metricsCount++

	buf.Write(im.osUptimeMetric)
	buf.WriteString(strconv.FormatFloat(ts.Sub(BootTime).Seconds(), 'f', UPTIME_METRIC_PRECISION, 64))
	buf.Write(tsSuffix)
	metricsCount++

	if firstPass || im.cycleNum == 0 {
		buf.Write(im.buildinfoMetric)
		buf.Write(tsSuffix)
		metricsCount++

		buf.Write(im.osInfoMetric)
		buf.Write(tsSuffix)
		metricsCount++

		buf.Write(im.osReleaseMetric)
		buf.Write(tsSuffix)
		metricsCount++
	}

	buf.Write(im.invocationMetric)
	buf.WriteByte('1')
	buf.Write(tsSuffix)
	metricsCount++

	buf.Write(im.metricsCntMetric)
	buf.WriteString(strconv.Itoa(metricsCount + 1))
	buf.Write(tsSuffix)
	metricsCount++

	buf.Write(im.byteCntMetric)
	buf.WriteString(strconv.Itoa(byteCount + buf.Len() + len(tsSuffix)))
	buf.Write(tsSuffix)

	im.sink.QueueBuf(buf)

	if im.cycleNum++; im.cycleNum >= im.fullMetricsFactor {
		im.cycleNum = 0
	}
	return true
}

// Start launches the periodic rendering loop, if an interval is configured.
func (im *InternalMetrics) Start(ctx context.Context) {
	if im.interval <= 0 {
		internalMetricsLog.Info("interval <= 0, internal metrics disabled")
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	im.cancel = cancel
	im.wg.Add(1)
	go im.loop(ctx)
}

func (im *InternalMetrics) loop(ctx context.Context) {
	defer im.wg.Done()
	ticker := time.NewTicker(im.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			im.render()
		}
	}
}

func (im *InternalMetrics) Stop() {
	if im.cancel != nil {
		im.cancel()
	}
	im.wg.Wait()
	if sink, ok := im.sink.(*StdoutMetricsSink); ok {
		sink.Shutdown()
	}
}
