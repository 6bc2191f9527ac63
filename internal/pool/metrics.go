package pool

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains Prometheus metrics for the worker pool.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	workers prometheus.Gauge
	idle    prometheus.Gauge
	tasks   prometheus.Counter
	panics  prometheus.Counter
}

// NewMetrics creates pool metrics and registers them with reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "dispatcher"
	}

	m := &Metrics{
		workers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "workers",
			Help:      "Number of live workers",
		}),
		idle: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "idle_workers",
			Help:      "Number of workers waiting for a task",
		}),
		tasks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "tasks_total",
			Help:      "Total number of executed tasks",
		}),
		panics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "panics_total",
			Help:      "Total number of recovered task panics",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.workers, m.idle, m.tasks, m.panics)
	}

	return m
}

func (m *Metrics) workerStarted() {
	if m != nil {
		m.workers.Inc()
	}
}

func (m *Metrics) workerStopped() {
	if m != nil {
		m.workers.Dec()
	}
}

func (m *Metrics) idleDelta(d float64) {
	if m != nil {
		m.idle.Add(d)
	}
}

func (m *Metrics) taskDone(panicked bool) {
	if m == nil {
		return
	}
	m.tasks.Inc()
	if panicked {
		m.panics.Inc()
	}
}
