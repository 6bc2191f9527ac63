package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// UnmatchedHandler is the handler label used for requests that did not
// resolve to a route, keeping label cardinality bounded.
const UnmatchedHandler = "unmatched"

// Circuit breaker state values exported by the circuit_breaker_state gauge.
const (
	CircuitClosed   = 0
	CircuitHalfOpen = 1
	CircuitOpen     = 2
)

// Metrics holds the dispatcher's Prometheus metrics and the registry
// backing the /metrics endpoint.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestSize     *prometheus.HistogramVec
	responseSize    *prometheus.HistogramVec
	inFlight        prometheus.Gauge
	handlerPanics   *prometheus.CounterVec
	circuitBreaker  *prometheus.GaugeVec
	rateLimitHits   prometheus.Counter
	buildInfo       *prometheus.GaugeVec
	startTime       prometheus.Gauge
	registry        *prometheus.Registry
	namespace       string
}

// NewMetrics creates a new Metrics instance with its own registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "dispatcher"
	}

	m := &Metrics{
		registry:  prometheus.NewRegistry(),
		namespace: namespace,
	}

	m.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of dispatched requests",
		},
		[]string{"method", "handler", "status"},
	)

	m.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Dispatch duration in seconds, from copy to response",
			Buckets: []float64{
				.001, .005, .01, .025, .05,
				.1, .25, .5, 1, 2.5, 5, 10,
			},
		},
		[]string{"method", "handler", "status"},
	)

	m.requestSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_size_bytes",
			Help:      "Request body size in bytes",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"handler"},
	)

	m.responseSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "response_size_bytes",
			Help:      "Response body size in bytes",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"handler", "status"},
	)

	m.inFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "in_flight_requests",
			Help:      "Number of requests currently being dispatched",
		},
	)

	m.handlerPanics = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handler_panics_total",
			Help:      "Total number of recovered handler panics",
		},
		[]string{"handler"},
	)

	m.circuitBreaker = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Per-handler circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"handler"},
	)

	m.rateLimitHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_hits_total",
			Help:      "Total number of requests rejected by the rate limiter",
		},
	)

	m.buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "Build information for the dispatcher",
		},
		[]string{"version", "commit", "build_time"},
	)

	m.startTime = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "start_time_seconds",
			Help:      "Start time of the dispatcher in unix seconds",
		},
	)

	m.registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.requestSize,
		m.responseSize,
		m.inFlight,
		m.handlerPanics,
		m.circuitBreaker,
		m.rateLimitHits,
		m.buildInfo,
		m.startTime,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m.startTime.SetToCurrentTime()

	return m
}

// Namespace returns the metric namespace.
func (m *Metrics) Namespace() string {
	return m.namespace
}

// RecordRequest records a completed dispatch. The handler label is the
// handler name, never the raw URI.
func (m *Metrics) RecordRequest(
	method, handler string,
	status int,
	duration time.Duration,
	reqSize, respSize int,
) {
	if handler == "" {
		handler = UnmatchedHandler
	}
	statusStr := strconv.Itoa(status)

	m.requestsTotal.WithLabelValues(method, handler, statusStr).Inc()
	m.requestDuration.WithLabelValues(method, handler, statusStr).Observe(duration.Seconds())
	m.requestSize.WithLabelValues(handler).Observe(float64(reqSize))
	m.responseSize.WithLabelValues(handler, statusStr).Observe(float64(respSize))
}

// IncInFlight increments the in-flight gauge.
func (m *Metrics) IncInFlight() {
	m.inFlight.Inc()
}

// DecInFlight decrements the in-flight gauge.
func (m *Metrics) DecInFlight() {
	m.inFlight.Dec()
}

// RecordPanic records a recovered handler panic.
func (m *Metrics) RecordPanic(handler string) {
	m.handlerPanics.WithLabelValues(handler).Inc()
}

// SetCircuitBreakerState sets a handler's circuit breaker state.
func (m *Metrics) SetCircuitBreakerState(handler string, state int) {
	m.circuitBreaker.WithLabelValues(handler).Set(float64(state))
}

// RecordRateLimitHit records a request rejected by the rate limiter.
func (m *Metrics) RecordRateLimitHit() {
	m.rateLimitHits.Inc()
}

// SetBuildInfo sets the build information metric.
func (m *Metrics) SetBuildInfo(version, commit, buildTime string) {
	m.buildInfo.WithLabelValues(version, commit, buildTime).Set(1)
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(
		m.registry,
		promhttp.HandlerOpts{EnableOpenMetrics: true},
	)
}

// Registry returns the Prometheus registry. Other packages register their
// collectors here so a single endpoint exposes everything.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
