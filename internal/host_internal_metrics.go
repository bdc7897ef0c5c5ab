// Host process metrics: %CPU utilization for this process, derived from
// getrusage() via a dual-storage cpuTime/statsTs toggle.

package minitimer_internal

import (
	"bytes"
	"fmt"
	"strconv"
	"time"
)

type HostInternalMetrics struct {
	internalMetrics *InternalMetrics

	cpuTime [2]float64
	statsTs [2]time.Time
	currIndex int

	pcpuMetric []byte
}

func NewHostInternalMetrics(internalMetrics *InternalMetrics) *HostInternalMetrics {
	return &HostInternalMetrics{
		internalMetrics: internalMetrics,
		cpuTime:         [2]float64{-1, -1},
		statsTs:         [2]time.Time{},
		currIndex:       0,
	}
}

func (him *HostInternalMetrics) SnapStats() {
	var err error
	him.cpuTime[him.currIndex], err = GetMyCpuTime()
	if err != nil {
		internalMetricsLog.Warnf("GetMyCpuTime(): %v", err)
		him.cpuTime[him.currIndex] = -1
	}
	him.statsTs[him.currIndex] = time.Now()
}

func (him *HostInternalMetrics) updateMetricsCache() {
	instance, hostname := Instance, Hostname
	him.pcpuMetric = []byte(fmt.Sprintf(
		`%s{%s="%s",%s="%s"} `, // N.B. include the whitespace separating the metric from value
		HOST_PROC_PCPU_METRIC,
		INSTANCE_LABEL_NAME, instance,
		HOSTNAME_LABEL_NAME, hostname,
	))
}

func (him *HostInternalMetrics) generateMetrics(buf *bytes.Buffer, tsSuffix []byte) (int, int, *bytes.Buffer) {
	if him.pcpuMetric == nil {
		him.updateMetricsCache()
	}

	sink := him.internalMetrics.sink
	metricsCount, partialByteCount, bufMaxSize := 0, 0, sink.GetTargetSize()

	if him.cpuTime[1-him.currIndex] >= 0 {
		if buf == nil {
			buf = sink.GetBuf()
		}
		dTime := him.statsTs[him.currIndex].Sub(him.statsTs[1-him.currIndex]).Seconds()
		dTimeCpu := him.cpuTime[him.currIndex] - him.cpuTime[1-him.currIndex]
		buf.Write(him.pcpuMetric)
		buf.WriteString(strconv.FormatFloat(dTimeCpu/dTime*100, 'f', 1, 64))
		buf.Write(tsSuffix)
		metricsCount++

		if n := buf.Len(); bufMaxSize > 0 && n >= bufMaxSize {
			partialByteCount += n
			sink.QueueBuf(buf)
			buf = nil
		}
	}

	him.currIndex = 1 - him.currIndex

	return metricsCount, partialByteCount, buf
}
