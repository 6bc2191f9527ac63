package health

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/avadispatch/internal/handlers"
	"github.com/vyrodovalexey/avadispatch/internal/router"
)

func serve(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestServer_Health(t *testing.T) {
	t.Parallel()

	s := NewServer("127.0.0.1", 0, NewChecker("1.0.0"))
	rec := serve(t, s, PathHealth)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Equal(t, "1.0.0", resp.Version)
}

func TestServer_Ready(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		status   Status
		expected int
	}{
		{name: "healthy", status: StatusHealthy, expected: http.StatusOK},
		{name: "degraded", status: StatusDegraded, expected: http.StatusOK},
		{name: "unhealthy", status: StatusUnhealthy, expected: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := NewChecker("test")
			c.RegisterCheck("table", staticCheck(tt.status))
			rec := serve(t, NewServer("127.0.0.1", 0, c), PathReady)

			assert.Equal(t, tt.expected, rec.Code)
			var resp ReadinessResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.status, resp.Status)
			assert.Equal(t, tt.status, resp.Checks["table"].Status)
		})
	}
}

func TestServer_Routes(t *testing.T) {
	t.Parallel()

	paths := []router.Path{
		router.Exact("/ping", router.MethodGet),
		router.Prefix("/static", router.MethodAny),
	}
	s := NewServer("127.0.0.1", 0, NewChecker("test"),
		WithRoutes(func() []router.Path { return paths }))

	rec := serve(t, s, PathRoutes)
	require.Equal(t, http.StatusOK, rec.Code)

	var list handlers.RouteList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, handlers.DescribeRoutes(paths), list)
}

func TestServer_OptionalEndpoints(t *testing.T) {
	t.Parallel()

	s := NewServer("127.0.0.1", 0, NewChecker("test"))
	assert.Equal(t, http.StatusNotFound, serve(t, s, PathRoutes).Code)
	assert.Equal(t, http.StatusNotFound, serve(t, s, PathMetrics).Code)
}

func TestServer_Metrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)
	s := NewServer("127.0.0.1", 0, NewChecker("test", WithMetrics(m)),
		WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	serve(t, s, PathHealth)
	rec := serve(t, s, PathMetrics)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `test_health_checks_total{type="liveness"} 1`)
}

func TestServer_StartAndShutdown(t *testing.T) {
	t.Parallel()

	s := NewServer("127.0.0.1", 0, NewChecker("test"))
	assert.Empty(t, s.Addr())
	require.NoError(t, s.Start(context.Background()))
	assert.Error(t, s.Start(context.Background()))

	resp, err := http.Get("http://" + s.Addr() + PathHealth)
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
}

func TestServer_ShutdownBeforeStart(t *testing.T) {
	t.Parallel()

	s := NewServer("127.0.0.1", 0, NewChecker("test"))
	assert.NoError(t, s.Shutdown(context.Background()))
}
