// monitor/monitor.go
package monitor

import (
	"expvar"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	EventsProcessed prometheus.Counter
	EventsSkipped   prometheus.Counter
	BatchesAcked    prometheus.Counter
	BatchesDropped  prometheus.Counter
	PublishFailures prometheus.Counter
	ApplyLatency    prometheus.Histogram
	ActiveWorkers   prometheus.Gauge
	GatewaySessions prometheus.Gauge
}

func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		EventsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_processed_total",
			Help:      "Total number of player events applied",
		}),
		EventsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_skipped_total",
			Help:      "Player events skipped by per-event error isolation",
		}),
		BatchesAcked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_acked_total",
			Help:      "Event batches acknowledged to the broker",
		}),
		BatchesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_dropped_total",
			Help:      "Event batches dropped after exhausting commit retries",
		}),
		PublishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_failures_total",
			Help:      "State update publications that failed",
		}),
		ApplyLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "apply_latency_seconds",
			Help:      "Per-event load/apply/save latency",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10),
		}),
		ActiveWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_workers",
			Help:      "Number of running consumer workers",
		}),
		GatewaySessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gateway_sessions",
			Help:      "Number of connected gateway sessions",
		}),
	}

	prometheus.MustRegister(
		m.EventsProcessed,
		m.EventsSkipped,
		m.BatchesAcked,
		m.BatchesDropped,
		m.PublishFailures,
		m.ApplyLatency,
		m.ActiveWorkers,
		m.GatewaySessions,
	)

	return m
}

type Monitor struct {
	metrics    *Metrics
	startTime  time.Time
	eventCount int64
	mutex      sync.Mutex
}

func NewMonitor(namespace string) *Monitor {
	return &Monitor{
		metrics:   NewMetrics(namespace),
		startTime: time.Now(),
	}
}

func (m *Monitor) StartServer(addr string) {
	http.Handle("/metrics", promhttp.Handler())

	// 添加expvar指标
	expvar.Publish("uptime", expvar.Func(func() interface{} {
		return time.Since(m.startTime).Seconds()
	}))

	expvar.Publish("events", expvar.Func(func() interface{} {
		m.mutex.Lock()
		defer m.mutex.Unlock()
		return m.eventCount
	}))

	go http.ListenAndServe(addr, nil)
}

func (m *Monitor) IncEventsProcessed() {
	m.metrics.EventsProcessed.Inc()
	m.mutex.Lock()
	m.eventCount++
	m.mutex.Unlock()
}

func (m *Monitor) IncEventsSkipped() {
	m.metrics.EventsSkipped.Inc()
}

func (m *Monitor) IncBatchesAcked() {
	m.metrics.BatchesAcked.Inc()
}

func (m *Monitor) IncBatchesDropped() {
	m.metrics.BatchesDropped.Inc()
}

func (m *Monitor) IncPublishFailures() {
	m.metrics.PublishFailures.Inc()
}

func (m *Monitor) ObserveApplyLatency(duration time.Duration) {
	m.metrics.ApplyLatency.Observe(duration.Seconds())
}

func (m *Monitor) SetActiveWorkers(count int) {
	m.metrics.ActiveWorkers.Set(float64(count))
}

func (m *Monitor) IncGatewaySessions() {
	m.metrics.GatewaySessions.Inc()
}

func (m *Monitor) DecGatewaySessions() {
	m.metrics.GatewaySessions.Dec()
}
