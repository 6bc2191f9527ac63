// Package util provides utility functions and types for the dispatcher.
//
// # Error Conventions
//
// This project follows a standardized error pattern across all packages:
//
//   - Sentinel errors (errors.New) for well-known, stable conditions
//     that callers check with errors.Is(). Example: ErrNotFound.
//   - Structured error types for context-rich errors that carry
//     additional fields (e.g., ConfigError, HandlerError). Each type
//     implements Error(), Unwrap() (if wrapping), and Is().
//   - fmt.Errorf with %w for ad-hoc wrapping that adds context to an
//     existing error without introducing a new type.
//
// All custom error types must implement:
//
//	Error() string           – human-readable message
//	Unwrap() error           – if the type wraps another error
//	Is(target error) bool    – for errors.Is() compatibility
package util

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Common sentinel errors.
var (
	ErrNotFound         = errors.New("not found")
	ErrMethodNotAllowed = errors.New("method not allowed")
	ErrDuplicateRoute   = errors.New("duplicate route")
	ErrHandlerFailure   = errors.New("handler failure")
	ErrTimeout          = errors.New("timeout")
	ErrCircuitOpen      = errors.New("circuit breaker open")
	ErrRateLimited      = errors.New("rate limit exceeded")
	ErrConfigInvalid    = errors.New("invalid configuration")
	ErrTableSealed      = errors.New("route table is sealed")
	ErrPoolClosed       = errors.New("worker pool is closed")
	ErrBodyTooLarge     = errors.New("request body too large")
)

// ConfigError represents a configuration-related error.
type ConfigError struct {
	Field   string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error at %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *ConfigError) Is(target error) bool {
	if target == ErrConfigInvalid {
		return true
	}
	_, ok := target.(*ConfigError)
	return ok || errors.Is(e.Cause, target)
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// NewConfigErrorWithCause creates a new ConfigError with a cause.
func NewConfigErrorWithCause(field, message string, cause error) *ConfigError {
	return &ConfigError{Field: field, Message: message, Cause: cause}
}

// RouteNotFoundError is returned when no registered pattern matches the
// request URI under any method.
type RouteNotFoundError struct {
	Path   string
	Method string
}

// Error implements the error interface.
func (e *RouteNotFoundError) Error() string {
	return fmt.Sprintf("no route found for %s %s", e.Method, e.Path)
}

// Is checks if the error matches the target.
func (e *RouteNotFoundError) Is(target error) bool {
	if target == ErrNotFound {
		return true
	}
	_, ok := target.(*RouteNotFoundError)
	return ok
}

// NewRouteNotFoundError creates a new RouteNotFoundError.
func NewRouteNotFoundError(method, path string) *RouteNotFoundError {
	return &RouteNotFoundError{Path: path, Method: method}
}

// MethodNotAllowedError is returned when at least one pattern matches the
// request URI but none of those routes accepts the request method.
type MethodNotAllowedError struct {
	Path    string
	Method  string
	Allowed []string
}

// Error implements the error interface.
func (e *MethodNotAllowedError) Error() string {
	return fmt.Sprintf("method %s not allowed for %s (allowed: %s)",
		e.Method, e.Path, strings.Join(e.Allowed, ", "))
}

// Is checks if the error matches the target.
func (e *MethodNotAllowedError) Is(target error) bool {
	if target == ErrMethodNotAllowed {
		return true
	}
	_, ok := target.(*MethodNotAllowedError)
	return ok
}

// NewMethodNotAllowedError creates a new MethodNotAllowedError.
func NewMethodNotAllowedError(method, path string, allowed []string) *MethodNotAllowedError {
	return &MethodNotAllowedError{Path: path, Method: method, Allowed: allowed}
}

// DuplicateRouteError is returned at registration time when a route with the
// same pattern and match mode already exists.
type DuplicateRouteError struct {
	Pattern  string
	Mode     string
	Method   string
	Existing string
}

// Error implements the error interface.
func (e *DuplicateRouteError) Error() string {
	return fmt.Sprintf("duplicate route: %s %s (%s) already registered as %s",
		e.Method, e.Pattern, e.Mode, e.Existing)
}

// Is checks if the error matches the target.
func (e *DuplicateRouteError) Is(target error) bool {
	if target == ErrDuplicateRoute {
		return true
	}
	_, ok := target.(*DuplicateRouteError)
	return ok
}

// NewDuplicateRouteError creates a new DuplicateRouteError.
func NewDuplicateRouteError(pattern, mode, method, existing string) *DuplicateRouteError {
	return &DuplicateRouteError{Pattern: pattern, Mode: mode, Method: method, Existing: existing}
}

// OverlappingRouteError is returned at registration time when two routes with
// a common method could match the same URI. It belongs to the duplicate route
// class: errors.Is(err, ErrDuplicateRoute) is true.
type OverlappingRouteError struct {
	Route    string
	Conflict string
}

// Error implements the error interface.
func (e *OverlappingRouteError) Error() string {
	return fmt.Sprintf("duplicate route: %s overlaps %s", e.Route, e.Conflict)
}

// Is checks if the error matches the target.
func (e *OverlappingRouteError) Is(target error) bool {
	if target == ErrDuplicateRoute {
		return true
	}
	_, ok := target.(*OverlappingRouteError)
	return ok
}

// NewOverlappingRouteError creates a new OverlappingRouteError.
func NewOverlappingRouteError(route, conflict string) *OverlappingRouteError {
	return &OverlappingRouteError{Route: route, Conflict: conflict}
}

// HandlerError wraps any failure raised by a resolved handler.
type HandlerError struct {
	Handler string
	Cause   error
}

// Error implements the error interface.
func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler %s failed: %v", e.Handler, e.Cause)
}

// Unwrap returns the underlying error.
func (e *HandlerError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *HandlerError) Is(target error) bool {
	if target == ErrHandlerFailure {
		return true
	}
	_, ok := target.(*HandlerError)
	return ok || errors.Is(e.Cause, target)
}

// NewHandlerError creates a new HandlerError.
func NewHandlerError(handler string, cause error) *HandlerError {
	return &HandlerError{Handler: handler, Cause: cause}
}

// PanicError carries a value recovered from a panicking handler.
type PanicError struct {
	Value interface{}
	Stack []byte
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// StatusError lets a handler choose the HTTP status of its failure.
type StatusError struct {
	Code    int
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return http.StatusText(e.Code)
}

// Unwrap returns the underlying error.
func (e *StatusError) Unwrap() error {
	return e.Cause
}

// NewStatusError creates a new StatusError.
func NewStatusError(code int, message string) *StatusError {
	return &StatusError{Code: code, Message: message}
}

// NewStatusErrorWithCause creates a new StatusError with a cause.
func NewStatusErrorWithCause(code int, message string, cause error) *StatusError {
	return &StatusError{Code: code, Message: message, Cause: cause}
}

// TimeoutError represents a timeout error.
type TimeoutError struct {
	Operation string
	Duration  time.Duration
	Cause     error
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout after %v during %s", e.Duration, e.Operation)
}

// Unwrap returns the underlying error.
func (e *TimeoutError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *TimeoutError) Is(target error) bool {
	if target == ErrTimeout {
		return true
	}
	_, ok := target.(*TimeoutError)
	return ok || errors.Is(e.Cause, target)
}

// NewTimeoutError creates a new TimeoutError.
func NewTimeoutError(operation string, duration time.Duration) *TimeoutError {
	return &TimeoutError{Operation: operation, Duration: duration}
}

// RateLimitError represents a rate limit exceeded error.
type RateLimitError struct {
	Limit      float64
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded (limit: %g/s, retry after: %v)", e.Limit, e.RetryAfter)
}

// Is checks if the error matches the target.
func (e *RateLimitError) Is(target error) bool {
	if target == ErrRateLimited {
		return true
	}
	_, ok := target.(*RateLimitError)
	return ok
}

// NewRateLimitError creates a new RateLimitError.
func NewRateLimitError(limit float64, retryAfter time.Duration) *RateLimitError {
	return &RateLimitError{Limit: limit, RetryAfter: retryAfter}
}

// CircuitOpenError represents a circuit breaker open error.
type CircuitOpenError struct {
	Name  string
	State string
}

// Error implements the error interface.
func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit breaker %s is %s", e.Name, e.State)
}

// Is checks if the error matches the target.
func (e *CircuitOpenError) Is(target error) bool {
	if target == ErrCircuitOpen {
		return true
	}
	_, ok := target.(*CircuitOpenError)
	return ok
}

// NewCircuitOpenError creates a new CircuitOpenError.
func NewCircuitOpenError(name, state string) *CircuitOpenError {
	return &CircuitOpenError{Name: name, State: state}
}

// StatusCode maps an error to the HTTP status code it is surfaced as.
// A nil error maps to 200.
func StatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.Code > 0 {
		return statusErr.Code
	}

	switch {
	case errors.Is(err, ErrMethodNotAllowed):
		return http.StatusMethodNotAllowed
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrCircuitOpen):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrBodyTooLarge):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// IsClientError returns true if the error is a client error (4xx).
func IsClientError(err error) bool {
	code := StatusCode(err)
	return code >= 400 && code < 500
}

// IsServerError returns true if the error is a server error (5xx).
func IsServerError(err error) bool {
	return StatusCode(err) >= 500
}
