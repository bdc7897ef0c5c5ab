// MetricsSink: where rendered internal-metrics batches go, backed by a
// buffer pool and a channel-fed print loop.

package minitimer_internal

import (
	"bytes"
	"fmt"
	"os"
	"sync"

	"github.com/docker/go-units"
)

// BufferQueue is the abstraction InternalMetrics renders into: get a
// reusable buffer, fill it with Prometheus-exposition-format lines, queue it
// for output, and learn the target size a single batch should aim for
// before being queued.
type BufferQueue interface {
	GetBuf() *bytes.Buffer
	ReturnBuf(b *bytes.Buffer)
	QueueBuf(b *bytes.Buffer)
	GetTargetSize() int
}

type MetricsSinkConfig struct {
	// Fill with metrics up to this target size before queuing a batch.
	BatchTargetSize string `yaml:"batch_target_size"`
	// Max buffers retained in the pool between uses.
	BufferPoolMaxSize int `yaml:"buffer_pool_max_size"`
	// Channel capacity.
	QueueSize int `yaml:"queue_size"`
}

const (
	METRICS_SINK_BATCH_TARGET_SIZE_DEFAULT    = "64k"
	METRICS_SINK_BUFFER_POOL_MAX_SIZE_DEFAULT = 8
	METRICS_SINK_QUEUE_SIZE_DEFAULT           = 16
)

func DefaultMetricsSinkConfig() *MetricsSinkConfig {
	return &MetricsSinkConfig{
		BatchTargetSize:   METRICS_SINK_BATCH_TARGET_SIZE_DEFAULT,
		BufferPoolMaxSize: METRICS_SINK_BUFFER_POOL_MAX_SIZE_DEFAULT,
		QueueSize:         METRICS_SINK_QUEUE_SIZE_DEFAULT,
	}
}

// StdoutMetricsSink is a BufferQueue that prints rendered batches to
// stdout. It is the only sink this package ships; a host embedding the
// Engine may implement BufferQueue itself to redirect output elsewhere.
type StdoutMetricsSink struct {
	bufPool         *ReadFileBufPool
	queue           chan *bytes.Buffer
	batchTargetSize int
	wg              sync.WaitGroup
	firstUse        bool
}

func NewStdoutMetricsSink(cfg *MetricsSinkConfig) (*StdoutMetricsSink, error) {
	if cfg == nil {
		cfg = DefaultMetricsSinkConfig()
	}

	batchTargetSize, err := units.RAMInBytes(cfg.BatchTargetSize)
	if err != nil {
		return nil, fmt.Errorf(
			"NewStdoutMetricsSink: invalid batch_target_size %q: %v",
			cfg.BatchTargetSize, err,
		)
	}

	sink := &StdoutMetricsSink{
		bufPool:         NewBufPool(cfg.BufferPoolMaxSize),
		queue:           make(chan *bytes.Buffer, cfg.QueueSize),
		batchTargetSize: int(batchTargetSize),
		firstUse:        true,
	}

	sink.wg.Add(1)
	go sink.loop()

	return sink, nil
}

func (s *StdoutMetricsSink) GetBuf() *bytes.Buffer {
	return s.bufPool.GetBuf()
}

func (s *StdoutMetricsSink) ReturnBuf(buf *bytes.Buffer) {
	s.bufPool.ReturnBuf(buf)
}

func (s *StdoutMetricsSink) QueueBuf(buf *bytes.Buffer) {
	s.queue <- buf
}

func (s *StdoutMetricsSink) GetTargetSize() int {
	return s.batchTargetSize
}

func (s *StdoutMetricsSink) loop() {
	defer s.wg.Done()

	for {
		buf, isOpen := <-s.queue
		if !isOpen {
			return
		}
		if s.firstUse {
			os.Stdout.WriteString("\n# Internal metrics will be displayed to stdout\n\n")
			s.firstUse = false
		}
		if buf.Len() > 0 {
			os.Stdout.Write(buf.Bytes())
			os.Stdout.WriteString("\n")
		}
		s.bufPool.ReturnBuf(buf)
	}
}

func (s *StdoutMetricsSink) Shutdown() {
	close(s.queue)
	s.wg.Wait()
}
