package router

import (
	"fmt"
	"net/http"
	"strings"
)

// Method is an HTTP method a route accepts.
type Method string

// Supported methods. MethodAny accepts every request method.
const (
	MethodGet     Method = http.MethodGet
	MethodHead    Method = http.MethodHead
	MethodPost    Method = http.MethodPost
	MethodPut     Method = http.MethodPut
	MethodPatch   Method = http.MethodPatch
	MethodDelete  Method = http.MethodDelete
	MethodOptions Method = http.MethodOptions
	MethodConnect Method = http.MethodConnect
	MethodTrace   Method = http.MethodTrace
	MethodAny     Method = "*"
)

var knownMethods = map[Method]bool{
	MethodGet:     true,
	MethodHead:    true,
	MethodPost:    true,
	MethodPut:     true,
	MethodPatch:   true,
	MethodDelete:  true,
	MethodOptions: true,
	MethodConnect: true,
	MethodTrace:   true,
	MethodAny:     true,
}

// ParseMethod parses a method name. Matching is case-insensitive and an
// empty string means MethodAny.
func ParseMethod(s string) (Method, error) {
	if s == "" {
		return MethodAny, nil
	}
	m := Method(strings.ToUpper(strings.TrimSpace(s)))
	if !knownMethods[m] {
		return "", fmt.Errorf("invalid HTTP method: %s", s)
	}
	return m, nil
}

// String returns the method name.
func (m Method) String() string {
	return string(m)
}

// Accepts reports whether a request with the given method is accepted.
func (m Method) Accepts(requestMethod string) bool {
	return m == MethodAny || string(m) == requestMethod
}

// intersects reports whether some request method is accepted by both.
func (m Method) intersects(other Method) bool {
	return m == other || m == MethodAny || other == MethodAny
}

// MatchMode selects how a pattern is compared to a request URI.
type MatchMode int

const (
	// MatchExact requires the URI path to equal the pattern.
	MatchExact MatchMode = iota
	// MatchPrefix requires the URI path to start with the pattern.
	MatchPrefix
)

// String returns the mode name.
func (m MatchMode) String() string {
	switch m {
	case MatchExact:
		return "exact"
	case MatchPrefix:
		return "prefix"
	default:
		return fmt.Sprintf("MatchMode(%d)", int(m))
	}
}

// ParseMatchMode parses "exact" or "prefix". An empty string means exact.
func ParseMatchMode(s string) (MatchMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "exact":
		return MatchExact, nil
	case "prefix":
		return MatchPrefix, nil
	default:
		return 0, fmt.Errorf("invalid match mode: %s", s)
	}
}

// Path is the routing key: a pattern, a match mode and a method.
// It is a comparable value and can be used as a map key.
type Path struct {
	Pattern string
	Mode    MatchMode
	Method  Method
}

// Exact returns an exact-match path.
func Exact(pattern string, method Method) Path {
	return Path{Pattern: pattern, Mode: MatchExact, Method: method}
}

// Prefix returns a prefix-match path.
func Prefix(pattern string, method Method) Path {
	return Path{Pattern: pattern, Mode: MatchPrefix, Method: method}
}

// String returns a human-readable form such as "GET /ping (exact)".
func (p Path) String() string {
	return fmt.Sprintf("%s %s (%s)", p.Method, p.Pattern, p.Mode)
}

// patternKey identifies a path regardless of its method.
type patternKey struct {
	pattern string
	mode    MatchMode
}

func (p Path) key() patternKey {
	return patternKey{pattern: p.Pattern, mode: p.Mode}
}
