package router

import (
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/avadispatch/internal/util"
)

func TestParseOverlapPolicy(t *testing.T) {
	t.Parallel()

	p, err := ParseOverlapPolicy("")
	require.NoError(t, err)
	assert.Equal(t, OverlapReject, p)

	p, err = ParseOverlapPolicy("priority")
	require.NoError(t, err)
	assert.Equal(t, OverlapPriority, p)
	assert.Equal(t, "priority", p.String())
	assert.Equal(t, "reject", OverlapReject.String())

	_, err = ParseOverlapPolicy("first")
	assert.ErrorIs(t, err, util.ErrConfigInvalid)
}

func TestTable_Register(t *testing.T) {
	t.Parallel()

	table := NewTable[string]()
	require.NoError(t, table.Register(Exact("/ping", MethodGet), "ping"))
	require.NoError(t, table.Register(Prefix("/static", MethodGet), "static"))
	require.NoError(t, table.Register(Exact("/users/{id}", MethodAny), "user"))

	assert.Equal(t, 3, table.Len())

	assert.ElementsMatch(t, []Path{
		Exact("/ping", MethodGet),
		Prefix("/static", MethodGet),
		Exact("/users/{id}", MethodAny),
	}, table.AllPaths())
}

func TestTable_Register_Duplicate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		first  Path
		second Path
	}{
		{name: "same path", first: Exact("/a", MethodGet), second: Exact("/a", MethodGet)},
		{name: "different method", first: Exact("/a", MethodGet), second: Exact("/a", MethodPost)},
		{name: "prefix different method", first: Prefix("/a", MethodGet), second: Prefix("/a", MethodDelete)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			table := NewTable[int]()
			require.NoError(t, table.Register(tt.first, 1))

			err := table.Register(tt.second, 2)
			require.Error(t, err)
			assert.True(t, errors.Is(err, util.ErrDuplicateRoute))

			var dup *util.DuplicateRouteError
			require.True(t, errors.As(err, &dup))
			assert.Equal(t, tt.second.Pattern, dup.Pattern)
			assert.Equal(t, tt.first.String(), dup.Existing)

			assert.Equal(t, 1, table.Len())
		})
	}
}

func TestTable_Register_SamePatternDifferentMode(t *testing.T) {
	t.Parallel()

	table := NewTable[int](WithOverlapPolicy(OverlapPriority))
	require.NoError(t, table.Register(Exact("/a", MethodGet), 1))
	require.NoError(t, table.Register(Prefix("/a", MethodGet), 2))
	assert.Equal(t, 2, table.Len())
}

func TestTable_Register_Overlap(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		first    Path
		second   Path
		overlaps bool
	}{
		{
			name:     "prefix then exact under it",
			first:    Prefix("/api", MethodGet),
			second:   Exact("/api/users", MethodGet),
			overlaps: true,
		},
		{
			name:     "wildcard method overlaps",
			first:    Prefix("/api", MethodAny),
			second:   Exact("/api/users", MethodPost),
			overlaps: true,
		},
		{
			name:     "disjoint methods do not overlap",
			first:    Prefix("/api", MethodGet),
			second:   Exact("/api/users", MethodPost),
			overlaps: false,
		},
		{
			name:     "parameter and literal",
			first:    Exact("/users/{id}", MethodGet),
			second:   Exact("/users/me", MethodGet),
			overlaps: true,
		},
		{
			name:     "disjoint patterns",
			first:    Exact("/a", MethodGet),
			second:   Exact("/b", MethodGet),
			overlaps: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			table := NewTable[int]()
			require.NoError(t, table.Register(tt.first, 1))

			err := table.Register(tt.second, 2)
			if !tt.overlaps {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.True(t, errors.Is(err, util.ErrDuplicateRoute))
			var overlap *util.OverlappingRouteError
			require.True(t, errors.As(err, &overlap))
			assert.Equal(t, tt.second.String(), overlap.Route)
			assert.Equal(t, tt.first.String(), overlap.Conflict)

			// Priority policy accepts the same pair.
			priority := NewTable[int](WithOverlapPolicy(OverlapPriority))
			require.NoError(t, priority.Register(tt.first, 1))
			assert.NoError(t, priority.Register(tt.second, 2))
		})
	}
}

func TestTable_Register_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		path Path
	}{
		{name: "empty pattern", path: Exact("", MethodGet)},
		{name: "relative pattern", path: Exact("ping", MethodGet)},
		{name: "unknown method", path: Exact("/ping", Method("FETCH"))},
		{name: "parameter in prefix", path: Prefix("/users/{id}", MethodGet)},
		{name: "bad parameter name", path: Exact("/users/{1d}", MethodGet)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			table := NewTable[int]()
			err := table.Register(tt.path, 1)
			require.Error(t, err)
			assert.True(t, errors.Is(err, util.ErrConfigInvalid))
			assert.Equal(t, 0, table.Len())
		})
	}
}

func TestTable_Seal(t *testing.T) {
	t.Parallel()

	table := NewTable[int]()
	require.NoError(t, table.Register(Exact("/a", MethodGet), 1))
	assert.False(t, table.Sealed())

	table.Seal()
	assert.True(t, table.Sealed())

	err := table.Register(Exact("/b", MethodGet), 2)
	assert.ErrorIs(t, err, util.ErrTableSealed)
	assert.Equal(t, 1, table.Len())

	// Reads still work after sealing.
	match, err := table.Resolve("/a", "GET")
	require.NoError(t, err)
	assert.Equal(t, 1, match.Handler)
}

func TestTable_AllPaths_ScanOrder(t *testing.T) {
	t.Parallel()

	table := NewTable[int](WithOverlapPolicy(OverlapPriority))
	require.NoError(t, table.Register(Prefix("/", MethodAny), 1))
	require.NoError(t, table.Register(Prefix("/api", MethodGet), 2))
	require.NoError(t, table.Register(Exact("/users/{id}", MethodGet), 3))
	require.NoError(t, table.Register(Exact("/users/{id}/posts/{postId}", MethodGet), 4))
	require.NoError(t, table.Register(Exact("/ping", MethodAny), 5))
	require.NoError(t, table.Register(Exact("/health", MethodGet), 6))

	assert.Equal(t, []Path{
		Exact("/health", MethodGet),
		Exact("/ping", MethodAny),
		Exact("/users/{id}/posts/{postId}", MethodGet),
		Exact("/users/{id}", MethodGet),
		Prefix("/api", MethodGet),
		Prefix("/", MethodAny),
	}, table.AllPaths())
}

func TestTable_Metrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	metrics := NewMetrics("test", reg)
	table := NewTable[int](WithMetrics(metrics))

	require.NoError(t, table.Register(Exact("/a", MethodGet), 1))
	require.NoError(t, table.Register(Exact("/b", MethodGet), 2))
	require.Error(t, table.Register(Exact("/a", MethodPost), 3))
	require.Error(t, table.Register(Exact("bad", MethodGet), 4))

	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.routes))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.rejected.WithLabelValues("duplicate")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.rejected.WithLabelValues("invalid")))
}

func TestTable_ConcurrentRegisterAndResolve(t *testing.T) {
	t.Parallel()

	table := NewTable[int]()
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = table.Register(Exact("/r/"+string(rune('a'+i)), MethodGet), i)
		}(i)
		go func() {
			defer wg.Done()
			_, _ = table.Resolve("/r/a", "GET")
		}()
	}
	wg.Wait()
	table.Seal()

	assert.Equal(t, 20, table.Len())
	m, err := table.Resolve("/r/a", "GET")
	require.NoError(t, err)
	assert.Equal(t, 0, m.Handler)
}
