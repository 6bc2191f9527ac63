package health

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for health checks.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	checksTotal *prometheus.CounterVec
	checkStatus *prometheus.GaugeVec
}

// NewMetrics creates health metrics and registers them with reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "dispatcher"
	}

	m := &Metrics{
		checksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "health",
				Name:      "checks_total",
				Help:      "Total number of health checks performed",
			},
			[]string{"type"},
		),
		checkStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "health",
				Name:      "check_status",
				Help:      "Current health check status (1=healthy, 0.5=degraded, 0=unhealthy)",
			},
			[]string{"check"},
		),
	}

	// Pre-create the series so they show up before the first probe.
	for _, t := range []string{"liveness", "readiness"} {
		m.checksTotal.WithLabelValues(t)
	}

	if reg != nil {
		reg.MustRegister(m.checksTotal, m.checkStatus)
	}

	return m
}

func (m *Metrics) checked(kind string) {
	if m != nil {
		m.checksTotal.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) setStatus(check string, status Status) {
	if m == nil {
		return
	}
	var v float64
	switch status {
	case StatusHealthy:
		v = 1
	case StatusDegraded:
		v = 0.5
	}
	m.checkStatus.WithLabelValues(check).Set(v)
}
