package observability

import (
	"context"
	"errors"
	"fmt"
)

// Config holds configuration for observability.
type Config struct {
	ServiceName      string
	ServiceVersion   string
	MetricsNamespace string
	Log              LogConfig
	Tracing          TracerConfig
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		ServiceName:      "avadispatch",
		ServiceVersion:   "dev",
		MetricsNamespace: "dispatcher",
		Log:              DefaultLogConfig(),
		Tracing: TracerConfig{
			ServiceName:  "avadispatch",
			Insecure:     true,
			SamplingRate: 1.0,
		},
	}
}

// Observability bundles the logger, metrics and tracer shared by every
// dispatcher component.
type Observability struct {
	config  Config
	logger  Logger
	metrics *Metrics
	tracer  *Tracer
}

// New initializes logging, metrics and tracing.
func New(ctx context.Context, cfg Config) (*Observability, error) {
	logger, err := NewLogger(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger = logger.With(
		String("service", cfg.ServiceName),
		String("version", cfg.ServiceVersion),
	)

	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = cfg.ServiceName
	}
	tracer, err := NewTracer(ctx, cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	metrics := NewMetrics(cfg.MetricsNamespace)

	logger.Info("observability initialized",
		Bool("tracing", tracer.Enabled()),
		String("metrics_namespace", metrics.Namespace()),
	)

	return &Observability{
		config:  cfg,
		logger:  logger,
		metrics: metrics,
		tracer:  tracer,
	}, nil
}

// Logger returns the logger.
func (o *Observability) Logger() Logger {
	return o.logger
}

// Metrics returns the metrics.
func (o *Observability) Metrics() *Metrics {
	return o.metrics
}

// Tracer returns the tracer.
func (o *Observability) Tracer() *Tracer {
	return o.tracer
}

// Shutdown flushes spans and logs.
func (o *Observability) Shutdown(ctx context.Context) error {
	var errs []error

	if err := o.tracer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to stop tracing: %w", err))
	}

	// Syncing stdout and stderr fails on some platforms and is harmless.
	if err := o.logger.Sync(); err != nil && o.config.Log.Output != "stdout" && o.config.Log.Output != "stderr" {
		errs = append(errs, fmt.Errorf("failed to sync logger: %w", err))
	}

	return errors.Join(errs...)
}
