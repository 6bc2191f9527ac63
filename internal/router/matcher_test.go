package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExactMatcher(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		pattern  string
		path     string
		expected bool
	}{
		{name: "exact match", pattern: "/ping", path: "/ping", expected: true},
		{name: "different path", pattern: "/ping", path: "/pong", expected: false},
		{name: "trailing slash", pattern: "/ping", path: "/ping/", expected: false},
		{name: "longer path", pattern: "/ping", path: "/ping/1", expected: false},
		{name: "root", pattern: "/", path: "/", expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			matcher := NewExactMatcher(tt.pattern)
			matched, params := matcher.Match(tt.path)
			assert.Equal(t, tt.expected, matched)
			assert.Nil(t, params)
			assert.Equal(t, "exact", matcher.Type())
			assert.Equal(t, tt.pattern, matcher.Pattern())
		})
	}
}

func TestPrefixMatcher(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		pattern  string
		path     string
		expected bool
	}{
		{name: "equal", pattern: "/users", path: "/users", expected: true},
		{name: "sub path", pattern: "/users", path: "/users/7", expected: true},
		{name: "no segment boundary", pattern: "/users", path: "/usersettings", expected: true},
		{name: "shorter path", pattern: "/users", path: "/user", expected: false},
		{name: "root matches all", pattern: "/", path: "/anything/at/all", expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			matcher := NewPrefixMatcher(tt.pattern)
			matched, params := matcher.Match(tt.path)
			assert.Equal(t, tt.expected, matched)
			assert.Nil(t, params)
			assert.Equal(t, "prefix", matcher.Type())
		})
	}
}

func TestParameterMatcher(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		pattern        string
		path           string
		expectedMatch  bool
		expectedParams map[string]string
	}{
		{
			name:           "single parameter",
			pattern:        "/users/{id}",
			path:           "/users/42",
			expectedMatch:  true,
			expectedParams: map[string]string{"id": "42"},
		},
		{
			name:           "two parameters",
			pattern:        "/users/{id}/posts/{postId}",
			path:           "/users/1/posts/9",
			expectedMatch:  true,
			expectedParams: map[string]string{"id": "1", "postId": "9"},
		},
		{
			name:          "empty segment",
			pattern:       "/users/{id}",
			path:          "/users/",
			expectedMatch: false,
		},
		{
			name:          "extra segment",
			pattern:       "/users/{id}",
			path:          "/users/1/posts",
			expectedMatch: false,
		},
		{
			name:          "literal mismatch",
			pattern:       "/users/{id}",
			path:          "/orders/1",
			expectedMatch: false,
		},
		{
			name:           "dot in literal is not a wildcard",
			pattern:        "/v1.0/{name}",
			path:           "/v1.0/x",
			expectedMatch:  true,
			expectedParams: map[string]string{"name": "x"},
		},
		{
			name:          "dot literal mismatch",
			pattern:       "/v1.0/{name}",
			path:          "/v1x0/x",
			expectedMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			matcher, err := NewParameterMatcher(tt.pattern)
			require.NoError(t, err)

			matched, params := matcher.Match(tt.path)
			assert.Equal(t, tt.expectedMatch, matched)
			if tt.expectedMatch {
				assert.Equal(t, tt.expectedParams, params)
			}
			assert.Equal(t, "parameter", matcher.Type())
			assert.Equal(t, tt.pattern, matcher.Pattern())
		})
	}
}

func TestNewParameterMatcher_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		pattern string
	}{
		{name: "empty name", pattern: "/users/{}"},
		{name: "invalid name", pattern: "/users/{a-b}"},
		{name: "duplicate name", pattern: "/a/{id}/b/{id}"},
		{name: "partial brace", pattern: "/users/x{id}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewParameterMatcher(tt.pattern)
			assert.Error(t, err)
		})
	}
}

func TestCreatePathMatcher(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		pattern      string
		mode         MatchMode
		expectedType string
		wantErr      bool
	}{
		{name: "exact literal", pattern: "/ping", mode: MatchExact, expectedType: "exact"},
		{name: "exact with parameter", pattern: "/users/{id}", mode: MatchExact, expectedType: "parameter"},
		{name: "prefix", pattern: "/static", mode: MatchPrefix, expectedType: "prefix"},
		{name: "prefix with parameter", pattern: "/users/{id}", mode: MatchPrefix, wantErr: true},
		{name: "stray brace", pattern: "/users/{id", mode: MatchExact, wantErr: true},
		{name: "unknown mode", pattern: "/x", mode: MatchMode(9), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m, err := CreatePathMatcher(tt.pattern, tt.mode)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedType, m.Type())
		})
	}
}

func TestMatchersOverlap(t *testing.T) {
	t.Parallel()

	exact := func(p string) PathMatcher { return NewExactMatcher(p) }
	prefix := func(p string) PathMatcher { return NewPrefixMatcher(p) }
	param := func(p string) PathMatcher {
		m, err := NewParameterMatcher(p)
		if err != nil {
			panic(err)
		}
		return m
	}

	tests := []struct {
		name     string
		a, b     PathMatcher
		expected bool
	}{
		{name: "exact same", a: exact("/a"), b: exact("/a"), expected: true},
		{name: "exact different", a: exact("/a"), b: exact("/b"), expected: false},
		{name: "prefix covers exact", a: prefix("/api"), b: exact("/api/users"), expected: true},
		{name: "exact under prefix", a: exact("/api/users"), b: prefix("/api"), expected: true},
		{name: "prefix disjoint from exact", a: prefix("/api"), b: exact("/ping"), expected: false},
		{name: "nested prefixes", a: prefix("/api"), b: prefix("/api/v1"), expected: true},
		{name: "disjoint prefixes", a: prefix("/api"), b: prefix("/static"), expected: false},
		{name: "parameter matches exact", a: param("/users/{id}"), b: exact("/users/me"), expected: true},
		{name: "exact matched by parameter", a: exact("/users/me"), b: param("/users/{id}"), expected: true},
		{name: "parameter vs exact disjoint", a: param("/users/{id}"), b: exact("/users"), expected: false},
		{name: "parameters same shape", a: param("/users/{id}"), b: param("/users/{name}"), expected: true},
		{name: "parameters different literals", a: param("/users/{id}"), b: param("/orders/{id}"), expected: false},
		{name: "parameters different length", a: param("/users/{id}"), b: param("/users/{id}/posts"), expected: false},
		{name: "prefix covers parameter", a: prefix("/users/"), b: param("/users/{id}"), expected: true},
		{name: "prefix partial literal", a: prefix("/us"), b: param("/users/{id}"), expected: true},
		{name: "prefix into parameter", a: prefix("/users/ab"), b: param("/users/{id}"), expected: true},
		{name: "prefix too deep", a: prefix("/users/1/posts"), b: param("/users/{id}"), expected: false},
		{name: "prefix disjoint from parameter", a: param("/users/{id}"), b: prefix("/orders"), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, matchersOverlap(tt.a, tt.b))
		})
	}
}

func TestHasPathParameters(t *testing.T) {
	t.Parallel()

	assert.True(t, HasPathParameters("/users/{id}"))
	assert.False(t, HasPathParameters("/users"))
	assert.False(t, HasPathParameters("/users/{id"))
}
