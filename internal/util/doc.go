// Package util provides utility functions and types for the
// dispatcher.
//
// This package contains shared utilities used across the dispatcher
// including context helpers, error types, and validation functions.
//
// # Context Helpers
//
// Context utilities for request-scoped data:
//
//	ctx = util.ContextWithRequestID(ctx, "req-123")
//	requestID := util.RequestIDFromContext(ctx)
//
// # Error Types
//
// Structured error types for consistent error handling:
//
//   - RouteNotFoundError, MethodNotAllowedError: resolution failures
//   - DuplicateRouteError, OverlappingRouteError: registration failures
//   - HandlerError, StatusError: handler failures
//   - Common sentinel errors: ErrNotFound, ErrTimeout, etc.
//
// StatusCode maps any of them to the HTTP status it is surfaced as:
//
//	code := util.StatusCode(err)
//
// # Validation
//
// Input validation helpers for ports, durations, and patterns:
//
//	err := util.ValidatePort(8080)
//	err := util.ValidatePathPattern("/users/{id}")
package util
