package transport

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/vyrodovalexey/avadispatch/internal/dispatch"
	"github.com/vyrodovalexey/avadispatch/internal/observability"
)

const transportConn = "conn"

// ConnServer reads one request per TCP connection. The connection goroutine
// returns as soon as the request is queued; the dispatch worker writes the
// response and closes the connection.
type ConnServer struct {
	cfg        Config
	dispatcher Dispatcher
	logger     observability.Logger
	metrics    *Metrics
	conns      *connTracker

	mu       sync.Mutex
	listener net.Listener
	ctx      context.Context
	cancel   context.CancelFunc
	running  bool
	inflight sync.WaitGroup
	acceptWG sync.WaitGroup
}

// NewConnServer creates a raw connection transport.
func NewConnServer(cfg Config, d Dispatcher, opts ...Option) *ConnServer {
	o := buildOptions(opts)
	cfg = cfg.withDefaults()

	return &ConnServer{
		cfg:        cfg,
		dispatcher: d,
		logger:     o.logger,
		metrics:    o.metrics,
		conns:      newConnTracker(cfg.MaxConnections, o.logger),
	}
}

// Start binds the listener and accepts in the background. Cancelling ctx
// stops the accept loop.
func (s *ConnServer) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("conn server already running")
	}

	addr := s.cfg.Address()
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.listener = ln
	s.ctx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	s.running = true

	s.logger.Info("starting conn server",
		observability.String("address", ln.Addr().String()),
		observability.Duration("read_timeout", s.cfg.ReadTimeout),
		observability.Duration("write_timeout", s.cfg.WriteTimeout),
		observability.Int("max_connections", s.cfg.MaxConnections),
	)

	s.acceptWG.Add(1)
	go s.acceptLoop(ctx, ln)
	return nil
}

func (s *ConnServer) acceptLoop(ctx context.Context, ln net.Listener) {
	defer s.acceptWG.Done()

	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				break
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			s.logger.Error("accept error", observability.Error(err))
			continue
		}
		s.handleConn(conn)
	}

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// handleConn registers conn and reads its request on a new goroutine.
func (s *ConnServer) handleConn(conn net.Conn) {
	tc, err := s.conns.add(conn)
	if err != nil {
		s.logger.Warn("rejecting connection",
			observability.String("remote_addr", conn.RemoteAddr().String()),
			observability.Error(err),
		)
		s.metrics.requestRejected(transportConn, reasonConnLimit)
		_ = conn.Close()
		return
	}
	s.metrics.connOpened(transportConn)

	s.inflight.Add(1)
	go s.readRequest(tc)
}

func (s *ConnServer) readRequest(tc *trackedConn) {
	w := &connResponder{server: s, tc: tc, writeTimeout: s.cfg.WriteTimeout}

	_ = tc.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	req, err := http.ReadRequest(bufio.NewReader(tc.conn))
	if err != nil {
		if !errors.Is(err, io.EOF) {
			s.logger.Debug("malformed request",
				observability.String("remote_addr", tc.RemoteAddr),
				observability.Error(err),
			)
			s.metrics.requestRejected(transportConn, reasonMalformed)
			_ = w.Respond(statusResponse(http.StatusBadRequest))
		}
		_ = w.Close()
		return
	}
	req.RemoteAddr = tc.RemoteAddr
	req = req.WithContext(s.ctx)
	w.req = req

	if err := s.dispatcher.Dispatch(req, w); err != nil {
		resp := rejectResponse(err)
		s.metrics.requestRejected(transportConn, rejectReason(resp.Status))
		s.logger.Debug("request rejected by transport",
			observability.String("method", req.Method),
			observability.String("uri", req.RequestURI),
			observability.Int("status", resp.Status),
			observability.Error(err),
		)
		if werr := w.Respond(resp); werr != nil {
			s.logger.Debug("failed to write response", observability.Error(werr))
		}
		_ = w.Close()
		return
	}
	s.metrics.requestAccepted(transportConn)
}

// Shutdown stops accepting, then waits for queued requests to be answered.
// When ctx ends first, the remaining connections are closed.
func (s *ConnServer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()

	if ln == nil {
		return nil
	}

	s.logger.Info("stopping conn server",
		observability.Int("open_connections", s.conns.len()),
	)

	if err := ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		s.logger.Debug("error closing listener", observability.Error(err))
	}
	s.acceptWG.Wait()

	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		s.logger.Info("conn server stopped")
		return nil
	case <-ctx.Done():
		s.cancel()
		s.logger.Warn("shutdown timeout, closing remaining connections",
			observability.Int("open_connections", s.conns.len()),
		)
		s.conns.closeAll()
		return ctx.Err()
	}
}

// Addr returns the bound address, or "" before Start.
func (s *ConnServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Running reports whether the server is accepting connections.
func (s *ConnServer) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// OpenConnections returns the number of connections awaiting a response.
func (s *ConnServer) OpenConnections() int {
	return s.conns.len()
}

// connResponder writes a response straight to the connection it came from.
type connResponder struct {
	server       *ConnServer
	tc           *trackedConn
	writeTimeout time.Duration
	req          *http.Request
	closeOnce    sync.Once
}

// Respond serializes resp as an HTTP/1.1 response on the connection.
func (w *connResponder) Respond(resp *dispatch.Response) error {
	_ = w.tc.conn.SetWriteDeadline(time.Now().Add(w.writeTimeout))

	header := resp.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}
	header.Del("Content-Length")

	out := &http.Response{
		StatusCode:    resp.Status,
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(resp.Body)),
		ContentLength: int64(len(resp.Body)),
		Close:         true,
		Request:       w.req,
	}

	bw := bufio.NewWriter(w.tc.conn)
	if err := out.Write(bw); err != nil {
		return err
	}
	return bw.Flush()
}

// Close closes the connection and releases it from the tracker.
func (w *connResponder) Close() error {
	var err error
	w.closeOnce.Do(func() {
		err = w.tc.conn.Close()
		w.server.conns.remove(w.tc.ID)
		w.server.metrics.connClosed(transportConn)
		w.server.inflight.Done()
	})
	return err
}
