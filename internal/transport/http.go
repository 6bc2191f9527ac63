package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/avadispatch/internal/dispatch"
	"github.com/vyrodovalexey/avadispatch/internal/observability"
)

const transportHTTP = "http"

// HTTPServer serves requests with net/http and a gin engine whose only
// handler forwards to the dispatcher.
type HTTPServer struct {
	cfg        Config
	dispatcher Dispatcher
	engine     *gin.Engine
	logger     observability.Logger
	metrics    *Metrics

	mu       sync.RWMutex
	server   *http.Server
	listener net.Listener
	running  bool
	done     chan struct{}
}

// NewHTTPServer creates an HTTP transport.
func NewHTTPServer(cfg Config, d Dispatcher, opts ...Option) *HTTPServer {
	o := buildOptions(opts)

	s := &HTTPServer{
		cfg:        cfg.withDefaults(),
		dispatcher: d,
		engine:     NewEngine(o.logger),
		logger:     o.logger,
		metrics:    o.metrics,
	}

	// Every path and method reaches NoRoute because nothing is registered.
	s.engine.NoRoute(s.handle)

	return s
}

// Handler returns the gin engine, for tests and embedding.
func (s *HTTPServer) Handler() http.Handler {
	return s.engine
}

// Start binds the listener and serves in the background.
func (s *HTTPServer) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("http server already running")
	}

	addr := s.cfg.Address()
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.server = &http.Server{
		Handler:           s.engine,
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		MaxHeaderBytes:    s.cfg.MaxHeaderBytes,
		ConnState:         s.trackState,
	}
	s.server.SetKeepAlivesEnabled(false)
	s.listener = ln
	s.running = true
	s.done = make(chan struct{})

	s.logger.Info("starting HTTP server",
		observability.String("address", ln.Addr().String()),
		observability.Duration("read_timeout", s.cfg.ReadTimeout),
		observability.Duration("write_timeout", s.cfg.WriteTimeout),
	)

	go s.serve(s.server, ln, s.done)
	return nil
}

func (s *HTTPServer) serve(srv *http.Server, ln net.Listener, done chan struct{}) {
	defer close(done)

	err := srv.Serve(ln)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("HTTP server error", observability.Error(err))
	}

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

func (s *HTTPServer) trackState(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.metrics.connOpened(transportHTTP)
	case http.StateClosed, http.StateHijacked:
		s.metrics.connClosed(transportHTTP)
	}
}

// Shutdown stops the server, waiting for in-flight requests until ctx ends.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	srv, done := s.server, s.done
	s.mu.RUnlock()

	if srv == nil {
		return nil
	}

	s.logger.Info("stopping HTTP server")

	if err := srv.Shutdown(ctx); err != nil {
		if closeErr := srv.Close(); closeErr != nil {
			s.logger.Debug("error closing HTTP server", observability.Error(closeErr))
		}
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}
	<-done

	s.logger.Info("HTTP server stopped")
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *HTTPServer) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Running reports whether the server is accepting requests.
func (s *HTTPServer) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// handle runs on the net/http goroutine. It queues the request and waits
// for the worker to hand back the response, which it then writes itself
// since the ResponseWriter must not outlive the handler.
func (s *HTTPServer) handle(c *gin.Context) {
	w := newHTTPResponder()

	if err := s.dispatcher.Dispatch(c.Request, w); err != nil {
		resp := rejectResponse(err)
		s.metrics.requestRejected(transportHTTP, rejectReason(resp.Status))
		s.logger.Debug("request rejected by transport",
			observability.String("method", c.Request.Method),
			observability.String("uri", c.Request.RequestURI),
			observability.Int("status", resp.Status),
			observability.Error(err),
		)
		s.write(c, resp)
		return
	}
	s.metrics.requestAccepted(transportHTTP)

	select {
	case <-w.done:
		s.write(c, w.response())
	case <-c.Request.Context().Done():
		// The client went away; the worker still finishes and its
		// response is dropped.
		c.Abort()
	}
}

func (s *HTTPServer) write(c *gin.Context, resp *dispatch.Response) {
	if resp == nil {
		c.Status(http.StatusInternalServerError)
		c.Writer.WriteHeaderNow()
		return
	}
	if err := resp.Write(c.Writer); err != nil {
		s.logger.Debug("failed to write response", observability.Error(err))
	}
	// gin writes its default 404 body unless the header is flushed here.
	c.Writer.WriteHeaderNow()
}

// httpResponder receives the worker's response for the waiting handler.
type httpResponder struct {
	resp chan *dispatch.Response
	done chan struct{}
	once sync.Once
}

func newHTTPResponder() *httpResponder {
	return &httpResponder{
		resp: make(chan *dispatch.Response, 1),
		done: make(chan struct{}),
	}
}

// Respond stores the response. Only the first call has an effect.
func (r *httpResponder) Respond(resp *dispatch.Response) error {
	select {
	case r.resp <- resp:
		return nil
	default:
		return errors.New("response already written")
	}
}

// Close releases the waiting handler.
func (r *httpResponder) Close() error {
	r.once.Do(func() { close(r.done) })
	return nil
}

func (r *httpResponder) response() *dispatch.Response {
	select {
	case resp := <-r.resp:
		return resp
	default:
		return nil
	}
}
