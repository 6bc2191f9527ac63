package transport

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
)

// Rejection reasons for the rejected_total counter.
const (
	reasonConnLimit   = "connection_limit"
	reasonMalformed   = "malformed_request"
	reasonBodyTooBig  = "body_too_large"
	reasonUnavailable = "unavailable"
)

// Metrics contains Prometheus metrics for the transports.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	open     *prometheus.GaugeVec
	accepted *prometheus.CounterVec
	rejected *prometheus.CounterVec
}

// NewMetrics creates transport metrics and registers them with reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "dispatcher"
	}

	m := &Metrics{
		open: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "open_connections",
			Help:      "Number of connections currently open",
		}, []string{"transport"}),
		accepted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "requests_accepted_total",
			Help:      "Total number of requests handed to the dispatcher",
		}, []string{"transport"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "requests_rejected_total",
			Help:      "Total number of requests answered by the transport itself",
		}, []string{"transport", "reason"}),
	}

	if reg != nil {
		reg.MustRegister(m.open, m.accepted, m.rejected)
	}

	return m
}

func (m *Metrics) connOpened(transport string) {
	if m != nil {
		m.open.WithLabelValues(transport).Inc()
	}
}

func (m *Metrics) connClosed(transport string) {
	if m != nil {
		m.open.WithLabelValues(transport).Dec()
	}
}

func (m *Metrics) requestAccepted(transport string) {
	if m != nil {
		m.accepted.WithLabelValues(transport).Inc()
	}
}

func (m *Metrics) requestRejected(transport, reason string) {
	if m != nil {
		m.rejected.WithLabelValues(transport, reason).Inc()
	}
}

func rejectReason(status int) string {
	switch status {
	case http.StatusRequestEntityTooLarge:
		return reasonBodyTooBig
	case http.StatusBadRequest:
		return reasonMalformed
	default:
		return reasonUnavailable
	}
}
