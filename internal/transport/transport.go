package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/vyrodovalexey/avadispatch/internal/dispatch"
	"github.com/vyrodovalexey/avadispatch/internal/observability"
	"github.com/vyrodovalexey/avadispatch/internal/util"
)

// Transport kinds.
const (
	KindHTTP = "http"
	KindConn = "conn"
)

// Default server settings.
const (
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxConnections  = 10000
	DefaultMaxHeaderBytes  = 1 << 20
)

// Dispatcher is the part of the dispatcher a transport drives.
type Dispatcher interface {
	Dispatch(r *http.Request, w dispatch.Responder) error
}

// Server is a running transport.
type Server interface {
	// Start binds the listener and serves in the background.
	Start(ctx context.Context) error
	// Shutdown stops accepting and waits for in-flight requests or ctx.
	Shutdown(ctx context.Context) error
	// Addr returns the bound address, or "" before Start.
	Addr() string
	// Running reports whether the server is accepting requests.
	Running() bool
}

// Config holds the settings shared by both transports.
type Config struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxConnections int
	MaxHeaderBytes int
}

// Address returns host:port for the listener.
func (c Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c Config) withDefaults() Config {
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.MaxConnections <= 0 {
		c.MaxConnections = DefaultMaxConnections
	}
	if c.MaxHeaderBytes <= 0 {
		c.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	return c
}

// Option configures a server.
type Option func(*options)

type options struct {
	logger  observability.Logger
	metrics *Metrics
}

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics sets the connection metrics.
func WithMetrics(metrics *Metrics) Option {
	return func(o *options) {
		o.metrics = metrics
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: observability.NopLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New creates the server for kind.
func New(kind string, cfg Config, d Dispatcher, opts ...Option) (Server, error) {
	if d == nil {
		return nil, util.NewConfigError("server", "dispatcher is required")
	}
	switch kind {
	case KindHTTP, "":
		return NewHTTPServer(cfg, d, opts...), nil
	case KindConn:
		return NewConnServer(cfg, d, opts...), nil
	default:
		return nil, util.NewConfigError("server.transport", fmt.Sprintf("unknown transport %q", kind))
	}
}

// rejectStatus maps an error returned by Dispatch to the status the
// transport answers with itself.
func rejectStatus(err error) int {
	switch {
	case errors.Is(err, util.ErrBodyTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, util.ErrPoolClosed),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// rejectResponse builds the response for a request the dispatcher refused.
func rejectResponse(err error) *dispatch.Response {
	return statusResponse(rejectStatus(err))
}

// statusResponse is a plain-text response carrying only a status line.
func statusResponse(status int) *dispatch.Response {
	header := make(http.Header)
	header.Set(dispatch.HeaderConnection, "close")
	header.Set(dispatch.HeaderContentType, "text/plain; charset=utf-8")
	return &dispatch.Response{
		Status: status,
		Header: header,
		Body:   []byte(http.StatusText(status) + "\n"),
	}
}
