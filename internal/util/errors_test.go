package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfigError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		field          string
		message        string
		cause          error
		expectedString string
	}{
		{
			name:           "with field",
			field:          "routes[0].pattern",
			message:        "pattern cannot be empty",
			expectedString: "config error at routes[0].pattern: pattern cannot be empty",
		},
		{
			name:           "without field",
			message:        "invalid configuration",
			expectedString: "config error: invalid configuration",
		},
		{
			name:           "with cause",
			field:          "server.port",
			message:        "invalid port",
			cause:          errors.New("port out of range"),
			expectedString: "config error at server.port: invalid port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var err *ConfigError
			if tt.cause != nil {
				err = NewConfigErrorWithCause(tt.field, tt.message, tt.cause)
			} else {
				err = NewConfigError(tt.field, tt.message)
			}

			assert.Equal(t, tt.expectedString, err.Error())
			assert.Equal(t, tt.cause, err.Unwrap())
			assert.True(t, errors.Is(err, ErrConfigInvalid))
			assert.True(t, errors.Is(err, &ConfigError{}))
		})
	}
}

func TestRoutingErrors_Is(t *testing.T) {
	t.Parallel()

	notFound := NewRouteNotFoundError("GET", "/missing")
	assert.Equal(t, "no route found for GET /missing", notFound.Error())
	assert.True(t, errors.Is(notFound, ErrNotFound))
	assert.False(t, errors.Is(notFound, ErrMethodNotAllowed))

	notAllowed := NewMethodNotAllowedError("POST", "/ping", []string{"GET", "HEAD"})
	assert.Equal(t, "method POST not allowed for /ping (allowed: GET, HEAD)", notAllowed.Error())
	assert.True(t, errors.Is(notAllowed, ErrMethodNotAllowed))
	assert.False(t, errors.Is(notAllowed, ErrNotFound))

	dup := NewDuplicateRouteError("/dup", "exact", "GET", "GET /dup (exact)")
	assert.True(t, errors.Is(dup, ErrDuplicateRoute))
	assert.Contains(t, dup.Error(), "duplicate route")

	overlap := NewOverlappingRouteError("GET /a (prefix)", "GET /a/b (exact)")
	assert.True(t, errors.Is(overlap, ErrDuplicateRoute))
	assert.Contains(t, overlap.Error(), "overlaps")
}

func TestHandlerError(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	err := NewHandlerError("boomHandler", cause)

	assert.Equal(t, "handler boomHandler failed: boom", err.Error())
	assert.True(t, errors.Is(err, ErrHandlerFailure))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestStatusError(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "teapot", NewStatusError(http.StatusTeapot, "teapot").Error())
	assert.Equal(t, "Conflict", NewStatusError(http.StatusConflict, "").Error())

	cause := errors.New("underlying")
	withCause := NewStatusErrorWithCause(http.StatusBadRequest, "", cause)
	assert.Equal(t, "underlying", withCause.Error())
	assert.True(t, errors.Is(withCause, cause))
}

func TestTimeoutAndRateLimitErrors(t *testing.T) {
	t.Parallel()

	timeout := NewTimeoutError("handle ping", 2*time.Second)
	assert.Equal(t, "timeout after 2s during handle ping", timeout.Error())
	assert.True(t, errors.Is(timeout, ErrTimeout))

	limited := NewRateLimitError(10, time.Second)
	assert.True(t, errors.Is(limited, ErrRateLimited))

	open := NewCircuitOpenError("ping", "open")
	assert.Equal(t, "circuit breaker ping is open", open.Error())
	assert.True(t, errors.Is(open, ErrCircuitOpen))
}

func TestStatusCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "nil", err: nil, expected: http.StatusOK},
		{name: "not found", err: NewRouteNotFoundError("GET", "/x"), expected: http.StatusNotFound},
		{name: "method not allowed", err: NewMethodNotAllowedError("POST", "/x", nil), expected: http.StatusMethodNotAllowed},
		{name: "rate limited", err: NewRateLimitError(1, time.Second), expected: http.StatusTooManyRequests},
		{name: "circuit open", err: NewCircuitOpenError("x", "open"), expected: http.StatusServiceUnavailable},
		{name: "timeout", err: NewTimeoutError("x", time.Second), expected: http.StatusGatewayTimeout},
		{name: "body too large", err: fmt.Errorf("read: %w", ErrBodyTooLarge), expected: http.StatusRequestEntityTooLarge},
		{name: "plain handler failure", err: NewHandlerError("h", errors.New("x")), expected: http.StatusInternalServerError},
		{
			name:     "mapped handler failure",
			err:      NewHandlerError("h", NewStatusError(http.StatusConflict, "exists")),
			expected: http.StatusConflict,
		},
		{name: "panic", err: NewHandlerError("h", &PanicError{Value: "x"}), expected: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, StatusCode(tt.err))
		})
	}

	assert.True(t, IsClientError(ErrNotFound))
	assert.False(t, IsClientError(errors.New("x")))
	assert.True(t, IsServerError(errors.New("x")))
	assert.False(t, IsServerError(nil))
}
