package main

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vyrodovalexey/avadispatch/internal/config"
	"github.com/vyrodovalexey/avadispatch/internal/observability"
)

// reloadMetrics holds Prometheus metrics for route reloads.
type reloadMetrics struct {
	total       *prometheus.CounterVec
	duration    prometheus.Histogram
	lastSuccess prometheus.Gauge
	watcher     prometheus.Gauge
}

func newReloadMetrics(namespace string, reg prometheus.Registerer) *reloadMetrics {
	m := &reloadMetrics{
		total: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reload_total",
				Help:      "Total number of configuration reloads",
			},
			[]string{"result"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "config_reload_duration_seconds",
				Help:      "Duration of route table rebuilds",
				Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1},
			},
		),
		lastSuccess: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "config_reload_last_success_timestamp",
				Help:      "Timestamp of the last successful reload",
			},
		),
		watcher: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "config_watcher_running",
				Help:      "Whether the config file watcher is running (1=running, 0=stopped)",
			},
		),
	}

	for _, r := range []string{"success", "failure"} {
		m.total.WithLabelValues(r)
	}
	reg.MustRegister(m.total, m.duration, m.lastSuccess, m.watcher)

	return m
}

func (m *reloadMetrics) watcherRunning(running bool) {
	if running {
		m.watcher.Set(1)
		return
	}
	m.watcher.Set(0)
}

// reloadRoutes rebuilds the route table from cfg and swaps it in. Only the
// route list is reloaded; the old table stays in place on any error.
func (a *application) reloadRoutes(cfg *config.Config) error {
	start := time.Now()

	table, err := a.buildTable(cfg.Routes)
	a.reload.duration.Observe(time.Since(start).Seconds())
	if err != nil {
		a.reload.total.WithLabelValues("failure").Inc()
		return err
	}

	if _, err := a.dispatcher.SwapTable(table); err != nil {
		a.reload.total.WithLabelValues("failure").Inc()
		return err
	}

	a.reload.total.WithLabelValues("success").Inc()
	a.reload.lastSuccess.SetToCurrentTime()
	a.logger.Info("routes reloaded",
		observability.Int("routes", table.Len()),
		observability.Duration("duration", time.Since(start)),
	)
	return nil
}
