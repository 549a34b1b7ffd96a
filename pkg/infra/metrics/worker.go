package metrics

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/NeuralTrust/QuoteGate/pkg/domain/telemetry"
	"github.com/NeuralTrust/QuoteGate/pkg/infra/metrics/metric_events"
	"github.com/NeuralTrust/QuoteGate/pkg/infra/prometheus"
	"github.com/sirupsen/logrus"
)

const (
	DefaultQueueSize = 1000
	exportTimeout    = 5 * time.Second
)

type Worker interface {
	Shutdown()
	StartWorkers(n int)
	Process(evt *metric_events.Event)
}

type WorkerOption func(*worker)

func WithQueueSize(size int) WorkerOption {
	return func(w *worker) {
		if size > 0 {
			w.queueSize = size
		}
	}
}

func WithExporters(exporters ...telemetry.Exporter) WorkerOption {
	return func(w *worker) {
		w.exporters = append(w.exporters, exporters...)
	}
}

type worker struct {
	logger       *logrus.Logger
	exporters    []telemetry.Exporter
	queueSize    int
	taskChan     chan func()
	ctx          context.Context
	cancel       context.CancelFunc
	closed       atomic.Bool
	wg           sync.WaitGroup
	shutdownOnce sync.Once
}

func NewWorker(logger *logrus.Logger, opts ...WorkerOption) Worker {
	ctx, cancel := context.WithCancel(context.Background())
	m := &worker{
		logger:    logger,
		queueSize: DefaultQueueSize,
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.taskChan = make(chan func(), m.queueSize)
	return m
}

// Shutdown stops accepting events, lets the workers drain what is queued
// and closes the exporters.
func (m *worker) Shutdown() {
	m.shutdownOnce.Do(func() {
		m.closed.Store(true)
		m.logger.Info("shutting down metrics workers")
		m.cancel()
		m.wg.Wait()
		for _, exporter := range m.exporters {
			exporter.Close()
		}
		m.logger.Info("metrics workers stopped")
	})
}

func (m *worker) Process(evt *metric_events.Event) {
	if evt == nil {
		return
	}
	m.enqueueTask(func() {
		m.registryMetricsToPrometheus(evt)
	}, evt.TraceID)

	if len(m.exporters) > 0 {
		m.enqueueTask(func() {
			m.registryMetricsToExporters(evt)
		}, evt.TraceID)
	}
}

func (m *worker) registryMetricsToExporters(evt *metric_events.Event) {
	var failedExporters []string
	for _, exporter := range m.exporters {
		ctx, cancel := context.WithTimeout(context.Background(), exportTimeout)
		err := exporter.Handle(ctx, evt)
		cancel()
		if err != nil {
			m.logger.WithFields(logrus.Fields{
				"trace_id": evt.TraceID,
				"exporter": exporter.Name(),
			}).WithError(err).Error("exporter failed")
			failedExporters = append(failedExporters, exporter.Name())
		}
	}
	if len(failedExporters) > 0 {
		m.logger.WithField("failedExporters", failedExporters).
			Warnf("%d exporters failed to handle trace event", len(failedExporters))
	}
}

func (m *worker) registryMetricsToPrometheus(evt *metric_events.Event) {
	prometheus.RequestTotal.WithLabelValues(
		evt.Route,
		evt.Method,
		getStatusClass(evt.StatusCode),
	).Inc()

	if prometheus.Config.EnableLatency {
		prometheus.RequestLatency.WithLabelValues(evt.Route).Observe(float64(evt.Latency))
	}
	if !prometheus.Config.EnableUpstream {
		return
	}
	if evt.Upstream != nil {
		prometheus.UpstreamLatency.WithLabelValues(evt.Upstream.Operation).Observe(float64(evt.Upstream.Latency))
	}
	if evt.ErrorKind != "" {
		prometheus.UpstreamErrors.WithLabelValues(evt.Route, evt.ErrorKind).Inc()
	}
}

func (m *worker) StartWorkers(n int) {
	m.logger.WithField("workers", n).Info("starting metrics workers")
	for i := 0; i < n; i++ {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			for {
				select {
				case task := <-m.taskChan:
					task()
				case <-m.ctx.Done():
					m.drain()
					return
				}
			}
		}()
	}
}

func (m *worker) drain() {
	for {
		select {
		case task := <-m.taskChan:
			task()
		default:
			return
		}
	}
}

func (m *worker) enqueueTask(task func(), traceID string) {
	if m.closed.Load() {
		return
	}
	select {
	case m.taskChan <- task:
	default:
		m.logger.WithField("trace_id", traceID).
			Warn("taskChan is full, dropping metrics task")
	}
}

func getStatusClass(code int) string {
	if code < 100 || code > 599 {
		return "5xx"
	}
	return fmt.Sprintf("%dxx", code/100)
}
