package main

import (
	"context"
	"fmt"
	"time"

	"github.com/vyrodovalexey/avadispatch/internal/config"
	"github.com/vyrodovalexey/avadispatch/internal/dispatch"
	"github.com/vyrodovalexey/avadispatch/internal/encoding"
	"github.com/vyrodovalexey/avadispatch/internal/handlers"
	"github.com/vyrodovalexey/avadispatch/internal/health"
	"github.com/vyrodovalexey/avadispatch/internal/observability"
	"github.com/vyrodovalexey/avadispatch/internal/pool"
	"github.com/vyrodovalexey/avadispatch/internal/registry"
	"github.com/vyrodovalexey/avadispatch/internal/router"
	"github.com/vyrodovalexey/avadispatch/internal/transport"
)

const serviceName = "avadispatch"

// application holds all application components.
type application struct {
	cfg        *config.Config
	configPath string

	obs     *observability.Observability
	logger  observability.Logger
	metrics *observability.Metrics

	catalog       *registry.Catalog
	routerMetrics *router.Metrics
	policy        router.OverlapPolicy
	workers       *pool.Pool
	dispatcher    *dispatch.Dispatcher
	server        transport.Server
	admin         *health.Server
	watcher       *config.Watcher
	reload        *reloadMetrics
}

// newApplication wires every component from cfg. Nothing listens until start.
func newApplication(ctx context.Context, cfg *config.Config, configPath string) (*application, error) {
	obs, err := observability.New(ctx, observabilityConfig(cfg))
	if err != nil {
		return nil, err
	}

	logger := obs.Logger()
	metrics := obs.Metrics()
	metrics.SetBuildInfo(version, gitCommit, buildTime)
	ns, reg := metrics.Namespace(), metrics.Registry()

	policy, err := router.ParseOverlapPolicy(cfg.Dispatch.OverlapPolicy)
	if err != nil {
		return nil, err
	}

	app := &application{
		cfg:           cfg,
		configPath:    configPath,
		obs:           obs,
		logger:        logger,
		metrics:       metrics,
		routerMetrics: router.NewMetrics(ns, reg),
		policy:        policy,
		reload:        newReloadMetrics(ns, reg),
	}
	app.catalog = handlers.Catalog(app.routes)

	table, err := app.buildTable(cfg.Routes)
	if err != nil {
		return nil, fmt.Errorf("failed to build route table: %w", err)
	}

	encMetrics := encoding.NewMetrics(ns, reg)
	codecs := encoding.NewRegistry(logger,
		encoding.WithMetrics(encMetrics),
		encoding.WithPrettyJSON(cfg.Dispatch.PrettyJSON),
	)
	negOpts := []encoding.NegotiatorOption{
		encoding.WithNegotiatorLogger(logger),
		encoding.WithNegotiatorMetrics(encMetrics),
	}
	if ct := cfg.Dispatch.DefaultContentType; ct != "" {
		negOpts = append(negOpts, encoding.WithDefaultType(ct))
	}
	negotiator := encoding.NewNegotiator(codecs.SupportedTypes(), negOpts...)

	app.workers = pool.New(
		pool.WithMaxWorkers(cfg.Dispatch.MaxWorkers),
		pool.WithIdleTimeout(cfg.Dispatch.WorkerIdleTimeout.Duration()),
		pool.WithLogger(logger),
		pool.WithMetrics(pool.NewMetrics(ns, reg)),
	)

	opts := []dispatch.Option{
		dispatch.WithLogger(logger),
		dispatch.WithMetrics(metrics),
		dispatch.WithTracer(obs.Tracer()),
		dispatch.WithPool(app.workers),
		dispatch.WithCodecs(codecs),
		dispatch.WithNegotiator(negotiator),
		dispatch.WithHandlerTimeout(cfg.Dispatch.HandlerTimeout.Duration()),
		dispatch.WithMaxBodyBytes(cfg.Dispatch.MaxBodyBytes),
	}
	if rl := cfg.Dispatch.RateLimit; rl != nil && rl.Enabled {
		opts = append(opts, dispatch.WithRateLimit(rl.RequestsPerSecond, rl.Burst))
	}
	if cb := cfg.Dispatch.CircuitBreaker; cb != nil && cb.Enabled {
		opts = append(opts, dispatch.WithCircuitBreaker(dispatch.BreakerSettings{
			Threshold:        cb.Threshold,
			Timeout:          cb.Timeout.Duration(),
			HalfOpenRequests: cb.HalfOpenRequests,
			Interval:         cb.Interval.Duration(),
		}))
	}

	app.dispatcher, err = dispatch.New(table, opts...)
	if err != nil {
		return nil, err
	}

	app.server, err = transport.New(cfg.Server.Transport, transportConfig(cfg), app.dispatcher,
		transport.WithLogger(logger),
		transport.WithMetrics(transport.NewMetrics(ns, reg)),
	)
	if err != nil {
		return nil, err
	}

	if cfg.Admin.Enabled {
		checker := health.NewChecker(version, health.WithMetrics(health.NewMetrics(ns, reg)))
		checker.RegisterCheck("routes", health.TableCheck(app.dispatcher.Table))
		checker.RegisterCheck("transport", health.RunningCheck(app.server))

		app.admin = health.NewServer(cfg.Admin.Host, cfg.Admin.Port, checker,
			health.WithLogger(logger),
			health.WithMetricsHandler(metrics.Handler()),
			health.WithRoutes(app.routes),
		)
	}

	return app, nil
}

func transportConfig(cfg *config.Config) transport.Config {
	return transport.Config{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		ReadTimeout:    cfg.Server.ReadTimeout.Duration(),
		WriteTimeout:   cfg.Server.WriteTimeout.Duration(),
		MaxConnections: cfg.Server.MaxConnections,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}
}

func observabilityConfig(cfg *config.Config) observability.Config {
	oc := observability.DefaultConfig()
	oc.ServiceName = serviceName
	oc.ServiceVersion = version
	oc.Log = observability.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	oc.Tracing = observability.TracerConfig{
		Enabled:      cfg.Tracing.Enabled,
		ServiceName:  cfg.Tracing.ServiceName,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		Insecure:     cfg.Tracing.Insecure,
		SamplingRate: cfg.Tracing.SamplingRate,
	}
	return oc
}

// routes lists the paths of the table currently being served.
func (a *application) routes() []router.Path {
	if a.dispatcher == nil {
		return nil
	}
	return a.dispatcher.Table().AllPaths()
}

// buildTable builds and seals a route table from the configured routes.
func (a *application) buildTable(routes []config.RouteConfig) (*dispatch.Table, error) {
	return registry.Build(
		[]registry.Source{registry.FromConfig(routes, a.catalog)},
		registry.WithTableOptions(
			router.WithOverlapPolicy(a.policy),
			router.WithMetrics(a.routerMetrics),
		),
		registry.WithLogger(a.logger),
	)
}

// start opens the listeners and, when enabled, the configuration watcher.
func (a *application) start(ctx context.Context) error {
	if err := a.server.Start(ctx); err != nil {
		return err
	}
	a.logger.Info("dispatcher started",
		observability.String("transport", a.cfg.Server.Transport),
		observability.String("address", a.server.Addr()),
		observability.Int("routes", a.dispatcher.Table().Len()),
	)

	if a.admin != nil {
		if err := a.admin.Start(ctx); err != nil {
			return err
		}
	}

	if a.cfg.Watch {
		if err := a.startWatcher(ctx); err != nil {
			a.logger.Warn("configuration watcher not started", observability.Error(err))
		}
	}
	return nil
}

func (a *application) startWatcher(ctx context.Context) error {
	w, err := config.NewWatcher(a.configPath, a.reloadRoutes, config.WithLogger(a.logger))
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		_ = w.Stop()
		return err
	}
	a.watcher = w
	a.reload.watcherRunning(true)
	return nil
}

// shutdownTimeout returns the configured drain budget.
func (a *application) shutdownTimeout() time.Duration {
	if d := a.cfg.Server.ShutdownTimeout.Duration(); d > 0 {
		return d
	}
	return config.DefaultShutdownTimeout
}
