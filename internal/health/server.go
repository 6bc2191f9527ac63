package health

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/avadispatch/internal/handlers"
	"github.com/vyrodovalexey/avadispatch/internal/observability"
	"github.com/vyrodovalexey/avadispatch/internal/transport"
)

// Admin endpoint paths.
const (
	PathHealth  = "/healthz"
	PathReady   = "/readyz"
	PathRoutes  = "/routes"
	PathMetrics = "/metrics"
)

const adminReadTimeout = 10 * time.Second

// ServerOption configures the admin server.
type ServerOption func(*Server)

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetricsHandler serves h on /metrics.
func WithMetricsHandler(h http.Handler) ServerOption {
	return func(s *Server) {
		s.metricsHandler = h
	}
}

// WithRoutes serves the paths returned by routes on /routes.
func WithRoutes(routes handlers.PathLister) ServerOption {
	return func(s *Server) {
		s.routes = routes
	}
}

// Server is the admin HTTP listener.
type Server struct {
	host           string
	port           int
	checker        *Checker
	engine         *gin.Engine
	logger         observability.Logger
	metricsHandler http.Handler
	routes         handlers.PathLister

	mu       sync.RWMutex
	server   *http.Server
	listener net.Listener
	done     chan struct{}
}

// NewServer creates an admin server bound to host:port.
func NewServer(host string, port int, checker *Checker, opts ...ServerOption) *Server {
	s := &Server{
		host:    host,
		port:    port,
		checker: checker,
		logger:  observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.engine = transport.NewEngine(s.logger)
	s.engine.GET(PathHealth, s.health)
	s.engine.GET(PathReady, s.ready)
	if s.routes != nil {
		s.engine.GET(PathRoutes, s.listRoutes)
	}
	if s.metricsHandler != nil {
		s.engine.GET(PathMetrics, gin.WrapH(s.metricsHandler))
	}

	return s
}

// Handler returns the gin engine.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, s.checker.Health())
}

func (s *Server) ready(c *gin.Context) {
	resp := s.checker.Readiness(c.Request.Context())
	status := http.StatusOK
	if resp.Status == StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}

func (s *Server) listRoutes(c *gin.Context) {
	c.JSON(http.StatusOK, handlers.DescribeRoutes(s.routes()))
}

// Start binds the listener and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return fmt.Errorf("admin server already running")
	}

	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.server = &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: adminReadTimeout,
	}
	s.listener = ln
	s.done = make(chan struct{})

	s.logger.Info("starting admin server",
		observability.String("address", ln.Addr().String()),
	)

	go func(srv *http.Server, done chan struct{}) {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("admin server error", observability.Error(err))
		}
	}(s.server, s.done)

	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown stops the admin server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	srv, done := s.server, s.done
	s.mu.RUnlock()

	if srv == nil {
		return nil
	}

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown admin server: %w", err)
	}
	<-done

	s.logger.Info("admin server stopped")
	return nil
}
