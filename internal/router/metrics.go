package router

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Resolution outcome label values.
const (
	outcomeMatched          = "matched"
	outcomeNotFound         = "not_found"
	outcomeMethodNotAllowed = "method_not_allowed"
)

// Metrics contains Prometheus metrics for route registration and resolution.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	resolutions *prometheus.CounterVec
	routes      prometheus.Gauge
	rejected    *prometheus.CounterVec
}

// NewMetrics creates router metrics and registers them with reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "dispatcher"
	}

	m := &Metrics{
		resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "router",
				Name:      "resolutions_total",
				Help:      "Total number of route resolutions by outcome",
			},
			[]string{"outcome"},
		),
		routes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "router",
				Name:      "routes",
				Help:      "Number of registered routes",
			},
		),
		rejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "router",
				Name:      "registrations_rejected_total",
				Help:      "Total number of rejected route registrations by reason",
			},
			[]string{"reason"},
		),
	}

	if reg != nil {
		reg.MustRegister(m.resolutions, m.routes, m.rejected)
	}

	for _, outcome := range []string{outcomeMatched, outcomeNotFound, outcomeMethodNotAllowed} {
		m.resolutions.WithLabelValues(outcome)
	}

	return m
}

func (m *Metrics) recordResolution(outcome string) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) setRoutes(n int) {
	if m == nil {
		return
	}
	m.routes.Set(float64(n))
}

func (m *Metrics) recordRejected(reason string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(reason).Inc()
}
