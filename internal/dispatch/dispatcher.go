package dispatch

import (
	"context"
	"errors"
	"net/http"
	"runtime/debug"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/avadispatch/internal/encoding"
	"github.com/vyrodovalexey/avadispatch/internal/observability"
	"github.com/vyrodovalexey/avadispatch/internal/pool"
	"github.com/vyrodovalexey/avadispatch/internal/util"
)

// DefaultMaxBodyBytes bounds request bodies copied by Dispatch.
const DefaultMaxBodyBytes = 10 << 20

// Option is a functional option for configuring the dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithMetrics sets the request metrics.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = metrics
	}
}

// WithTracer sets the tracer.
func WithTracer(tracer *observability.Tracer) Option {
	return func(d *Dispatcher) {
		d.tracer = tracer
	}
}

// WithPool runs requests on p. Without it the dispatcher creates an
// unbounded pool and closes it on Close.
func WithPool(p *pool.Pool) Option {
	return func(d *Dispatcher) {
		d.pool = p
	}
}

// WithCodecs sets the codecs used for response bodies and Request.Decode.
func WithCodecs(codecs *encoding.Registry) Option {
	return func(d *Dispatcher) {
		d.codecs = codecs
	}
}

// WithNegotiator sets the Accept header negotiator.
func WithNegotiator(n encoding.Negotiator) Option {
	return func(d *Dispatcher) {
		d.negotiator = n
	}
}

// WithHandlerTimeout bounds each handler call. Zero means no deadline.
func WithHandlerTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		d.timeout = timeout
	}
}

// WithMaxBodyBytes limits copied request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(d *Dispatcher) {
		d.maxBody = n
	}
}

// WithRateLimit admits at most rps requests per second, with bursts of
// up to burst, across all handlers.
func WithRateLimit(rps float64, burst int) Option {
	return func(d *Dispatcher) {
		if rps > 0 {
			d.limiter = newLimiter(rps, burst)
		}
	}
}

// WithCircuitBreaker guards every handler with its own circuit breaker.
func WithCircuitBreaker(settings BreakerSettings) Option {
	return func(d *Dispatcher) {
		d.breakerSettings = &settings
	}
}

// Dispatcher resolves requests against a route table and runs the matched
// handlers on a worker pool.
type Dispatcher struct {
	table atomic.Pointer[Table]

	pool     *pool.Pool
	ownsPool bool
	builder  *ResponseBuilder
	limiter  *limiter
	breakers *breakers
	timeout  time.Duration
	maxBody  int64

	codecs          *encoding.Registry
	negotiator      encoding.Negotiator
	breakerSettings *BreakerSettings

	logger  observability.Logger
	metrics *observability.Metrics
	tracer  *observability.Tracer
}

// New creates a dispatcher serving table. The table is sealed if it is not
// already.
func New(table *Table, opts ...Option) (*Dispatcher, error) {
	if table == nil {
		return nil, util.NewConfigError("table", "route table is required")
	}

	d := &Dispatcher{
		maxBody: DefaultMaxBodyBytes,
		logger:  observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(d)
	}

	if d.pool == nil {
		d.pool = pool.New(pool.WithLogger(d.logger))
		d.ownsPool = true
	}
	if d.codecs == nil {
		d.codecs = defaultCodecs
	}
	d.builder = NewResponseBuilder(d.codecs, d.negotiator, d.logger)
	if d.breakerSettings != nil {
		d.breakers = newBreakers(*d.breakerSettings, d.logger, d.metrics)
	}

	table.Seal()
	d.table.Store(table)

	return d, nil
}

// Table returns the route table currently in use.
func (d *Dispatcher) Table() *Table {
	return d.table.Load()
}

// SwapTable atomically replaces the route table and returns the previous
// one. Requests already resolving keep the table they loaded.
func (d *Dispatcher) SwapTable(table *Table) (*Table, error) {
	if table == nil {
		return nil, util.NewConfigError("table", "route table is required")
	}
	table.Seal()
	old := d.table.Swap(table)

	d.logger.Info("route table replaced",
		observability.Int("routes", table.Len()),
		observability.Int("previous_routes", old.Len()),
	)
	return old, nil
}

// Dispatch copies r and queues it on the pool. It returns once the copy is
// queued; the worker writes the response through w and closes it. An
// error means nothing was queued and w was not used: the body was over the
// limit (util.ErrBodyTooLarge), the pool is closed, or r's context ended
// while waiting for a bounded pool.
func (d *Dispatcher) Dispatch(r *http.Request, w Responder) error {
	req, err := NewRequest(r, d.maxBody)
	if err != nil {
		return err
	}
	req.codecs = d.codecs

	return d.pool.SubmitContext(r.Context(), func() {
		d.complete(req, w)
	})
}

// complete runs on a pool worker.
func (d *Dispatcher) complete(req *Request, w Responder) {
	resp := d.Serve(req.Context(), req)

	logger := d.logger.With(observability.String("request_id", req.ID))
	if err := w.Respond(resp); err != nil {
		logger.Warn("failed to write response", observability.Error(err))
	}
	if err := w.Close(); err != nil {
		logger.Debug("failed to close connection", observability.Error(err))
	}
}

// Serve resolves and handles req synchronously and returns the response.
// It never panics because of a handler.
func (d *Dispatcher) Serve(ctx context.Context, req *Request) *Response {
	start := time.Now()
	if d.metrics != nil {
		d.metrics.IncInFlight()
		defer d.metrics.DecInFlight()
	}

	ctx = observability.ExtractTraceContext(ctx, req.Header)
	ctx = util.ContextWithRequestID(ctx, req.ID)
	ctx = util.ContextWithStartTime(ctx, start)

	ctx, span := d.tracer.StartSpan(ctx, "dispatch",
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	handlerName := observability.UnmatchedHandler
	var result any

	match, err := d.table.Load().Resolve(req.URI, req.Method)
	if err == nil {
		ep := match.Handler
		handlerName = ep.Name
		req.Params = match.Params

		ctx = util.ContextWithHandler(ctx, ep.Name)
		span.SetName("dispatch " + ep.Name)

		result, err = d.invoke(ctx, ep, req.WithContext(ctx))
	}
	span.SetAttributes(observability.DispatchAttributes(req.Method, req.Path, handlerName)...)

	if err != nil && handlerName != observability.UnmatchedHandler {
		d.logFailure(ctx, err)
	}

	resp := d.builder.Build(ctx, req, result, err)

	span.SetAttributes(attribute.Int("http.response.status_code", resp.Status))
	if resp.Status >= http.StatusInternalServerError {
		observability.RecordSpanError(span, err)
	}

	duration := time.Since(start)
	if d.metrics != nil {
		d.metrics.RecordRequest(req.Method, handlerName, resp.Status, duration, len(req.Body), len(resp.Body))
	}
	d.logAccess(ctx, req, resp, duration)

	return resp
}

// invoke applies the rate limit and circuit breaker around the handler.
func (d *Dispatcher) invoke(ctx context.Context, ep *Endpoint, req *Request) (any, error) {
	if d.limiter != nil {
		if err := d.limiter.allow(); err != nil {
			if d.metrics != nil {
				d.metrics.RecordRateLimitHit()
			}
			return nil, err
		}
	}

	call := func() (any, error) {
		return d.call(ctx, ep, req)
	}
	if d.breakers != nil {
		return d.breakers.execute(ep.Name, call)
	}
	return call()
}

// call invokes the handler, bounded by the handler timeout when set. On
// timeout the handler goroutine is left to finish against a cancelled
// context; its result is discarded.
func (d *Dispatcher) call(ctx context.Context, ep *Endpoint, req *Request) (any, error) {
	if d.timeout <= 0 {
		return d.safeHandle(ctx, ep, req)
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	req = req.WithContext(ctx)

	type outcome struct {
		result any
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		result, err := d.safeHandle(ctx, ep, req)
		done <- outcome{result: result, err: err}
	}()

	select {
	case o := <-done:
		return o.result, o.err
	case <-ctx.Done():
		te := util.NewTimeoutError("handler "+ep.Name, d.timeout)
		te.Cause = ctx.Err()
		return nil, te
	}
}

// safeHandle runs the handler and converts a panic into a HandlerError.
func (d *Dispatcher) safeHandle(ctx context.Context, ep *Endpoint, req *Request) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			if d.metrics != nil {
				d.metrics.RecordPanic(ep.Name)
			}
			result = nil
			err = util.NewHandlerError(ep.Name, &util.PanicError{Value: r, Stack: debug.Stack()})
		}
	}()

	result, err = ep.Handler.Handle(ctx, req)
	if err != nil {
		return nil, util.NewHandlerError(ep.Name, err)
	}
	return result, nil
}

// logFailure records a handler failure. ctx carries the handler name.
func (d *Dispatcher) logFailure(ctx context.Context, err error) {
	logger := d.logger.WithContext(ctx)

	var pe *util.PanicError
	switch {
	case errors.As(err, &pe):
		logger.Error("handler panicked",
			observability.Any("panic", pe.Value),
			observability.String("stack", string(pe.Stack)),
		)
	case util.IsClientError(err):
		logger.Debug("handler rejected request", observability.Error(err))
	default:
		logger.Error("handler failed",
			observability.Error(err),
			observability.Duration("elapsed", util.ElapsedTime(ctx)),
		)
	}
}

func (d *Dispatcher) logAccess(ctx context.Context, req *Request, resp *Response, duration time.Duration) {
	fields := []observability.Field{
		observability.String("method", req.Method),
		observability.String("uri", req.URI),
		observability.Int("status", resp.Status),
		observability.Duration("duration", duration),
		observability.Int("request_bytes", len(req.Body)),
		observability.Int("response_bytes", len(resp.Body)),
		observability.String("remote_addr", req.RemoteAddr),
	}

	logger := d.logger.WithContext(ctx)
	switch {
	case resp.Status >= http.StatusInternalServerError:
		logger.Error("request completed", fields...)
	case resp.Status >= http.StatusBadRequest:
		logger.Warn("request completed", fields...)
	default:
		logger.Info("request completed", fields...)
	}
}

// Close stops accepting requests and waits for queued ones to finish or
// ctx to expire. A pool passed with WithPool is left to its owner.
func (d *Dispatcher) Close(ctx context.Context) error {
	if !d.ownsPool {
		return nil
	}
	return d.pool.Close(ctx)
}
