// Package observability provides logging, metrics and tracing for the
// dispatcher.
//
// # Logging
//
// The Logger interface wraps zap:
//
//	logger, err := observability.NewLogger(observability.DefaultLogConfig())
//	if err != nil {
//	    return err
//	}
//	defer logger.Sync()
//
//	logger.WithContext(ctx).Info("request dispatched",
//	    observability.Int("status", 200),
//	)
//
// WithContext adds the request ID, handler name and OpenTelemetry trace and
// span IDs found in the context.
//
// # Metrics
//
// Metrics owns the Prometheus registry served on the admin /metrics
// endpoint. Other packages register their collectors on Registry().
//
// # Tracing
//
// Tracer exports spans over OTLP/gRPC when enabled and is a no-op otherwise.
package observability
