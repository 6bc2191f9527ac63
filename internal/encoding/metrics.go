package encoding

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains Prometheus metrics for encoding operations.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	negotiationsTotal *prometheus.CounterVec
	encodeTotal       *prometheus.CounterVec
	decodeTotal       *prometheus.CounterVec
}

// NewMetrics creates encoding metrics and registers them with reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "dispatcher"
	}

	m := &Metrics{
		negotiationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "encoding",
				Name:      "negotiations_total",
				Help:      "Total number of content type negotiations",
			},
			[]string{"content_type", "result"},
		),
		encodeTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "encoding",
				Name:      "encode_total",
				Help:      "Total number of encode operations",
			},
			[]string{"content_type", "result"},
		),
		decodeTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "encoding",
				Name:      "decode_total",
				Help:      "Total number of decode operations",
			},
			[]string{"content_type", "result"},
		),
	}

	if reg != nil {
		reg.MustRegister(m.negotiationsTotal, m.encodeTotal, m.decodeTotal)
	}

	return m
}

func (m *Metrics) recordNegotiation(contentType, result string) {
	if m == nil {
		return
	}
	m.negotiationsTotal.WithLabelValues(contentType, result).Inc()
}

func (m *Metrics) recordEncode(contentType string, err error) {
	if m == nil {
		return
	}
	m.encodeTotal.WithLabelValues(contentType, resultLabel(err)).Inc()
}

func (m *Metrics) recordDecode(contentType string, err error) {
	if m == nil {
		return
	}
	m.decodeTotal.WithLabelValues(contentType, resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
