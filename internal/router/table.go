package router

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/vyrodovalexey/avadispatch/internal/util"
)

// OverlapPolicy controls what happens when two routes with a common method
// could match the same URI.
type OverlapPolicy int

const (
	// OverlapReject fails the second registration with an
	// OverlappingRouteError. This is the default.
	OverlapReject OverlapPolicy = iota
	// OverlapPriority accepts overlapping routes and resolves them in
	// priority order: literal exact, then parameterised exact (more literal
	// segments first), then prefix (longer first). Specific methods win over
	// the wildcard.
	OverlapPriority
)

// String returns the policy name.
func (p OverlapPolicy) String() string {
	if p == OverlapPriority {
		return "priority"
	}
	return "reject"
}

// ParseOverlapPolicy parses "reject" or "priority". An empty string means reject.
func ParseOverlapPolicy(s string) (OverlapPolicy, error) {
	switch s {
	case "", "reject":
		return OverlapReject, nil
	case "priority":
		return OverlapPriority, nil
	default:
		return 0, util.NewConfigError("overlapPolicy", "must be one of: reject, priority")
	}
}

// Matcher kind ranks used for scan ordering. Lower ranks are scanned first.
const (
	rankExact = iota
	rankParameter
	rankPrefix
)

// route is a registered, pre-compiled table entry.
type route[H any] struct {
	path    Path
	handler H
	matcher PathMatcher
	rank    int
	weight  int
	seq     int
}

// Table maps registered paths to handlers. It is written during startup
// and sealed before serving; lookups on a sealed table take no locks.
type Table[H any] struct {
	routes  []*route[H]
	byKey   map[patternKey]*route[H]
	policy  OverlapPolicy
	metrics *Metrics
	mu      sync.RWMutex
	sealed  atomic.Bool
}

// TableOption is a functional option for configuring a table.
type TableOption func(*tableOptions)

type tableOptions struct {
	policy  OverlapPolicy
	metrics *Metrics
}

// WithOverlapPolicy sets the overlap policy.
func WithOverlapPolicy(policy OverlapPolicy) TableOption {
	return func(o *tableOptions) {
		o.policy = policy
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(metrics *Metrics) TableOption {
	return func(o *tableOptions) {
		o.metrics = metrics
	}
}

// NewTable creates an empty route table.
func NewTable[H any](opts ...TableOption) *Table[H] {
	o := tableOptions{policy: OverlapReject}
	for _, opt := range opts {
		opt(&o)
	}

	return &Table[H]{
		routes:  make([]*route[H], 0),
		byKey:   make(map[patternKey]*route[H]),
		policy:  o.policy,
		metrics: o.metrics,
	}
}

// Register adds a route. It fails when the table is sealed, when the path is
// invalid, when a route with the same pattern and match mode already exists
// (whatever its method), and, under OverlapReject, when an existing route
// with a common method could match the same URI.
func (t *Table[H]) Register(path Path, handler H) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.sealed.Load() {
		return util.ErrTableSealed
	}

	compiled, err := t.compile(path, handler)
	if err != nil {
		t.metrics.recordRejected("invalid")
		return err
	}

	if existing, ok := t.byKey[path.key()]; ok {
		t.metrics.recordRejected("duplicate")
		return util.NewDuplicateRouteError(
			path.Pattern, path.Mode.String(), path.Method.String(), existing.path.String(),
		)
	}

	if t.policy == OverlapReject {
		for _, r := range t.routes {
			if r.path.Method.intersects(path.Method) && matchersOverlap(r.matcher, compiled.matcher) {
				t.metrics.recordRejected("overlap")
				return util.NewOverlappingRouteError(path.String(), r.path.String())
			}
		}
	}

	compiled.seq = len(t.routes)
	t.routes = append(t.routes, compiled)
	t.byKey[path.key()] = compiled

	sort.SliceStable(t.routes, func(i, j int) bool {
		return routeLess(t.routes[i], t.routes[j])
	})

	t.metrics.setRoutes(len(t.routes))

	return nil
}

// compile validates a path and builds its matcher.
func (t *Table[H]) compile(path Path, handler H) (*route[H], error) {
	if err := util.ValidatePathPattern(path.Pattern); err != nil {
		return nil, util.NewConfigErrorWithCause("pattern", err.Error(), err)
	}
	if !knownMethods[path.Method] {
		return nil, util.NewConfigError("method", "invalid HTTP method: "+path.Method.String())
	}

	matcher, err := CreatePathMatcher(path.Pattern, path.Mode)
	if err != nil {
		return nil, util.NewConfigErrorWithCause("pattern", err.Error(), err)
	}

	r := &route[H]{
		path:    path,
		handler: handler,
		matcher: matcher,
	}

	switch m := matcher.(type) {
	case *ExactMatcher:
		r.rank = rankExact
	case *ParameterMatcher:
		r.rank = rankParameter
		r.weight = m.literalSegments()
	default:
		r.rank = rankPrefix
		r.weight = len(path.Pattern)
	}

	return r, nil
}

// routeLess orders routes for scanning. Without overlaps the order does not
// change results; with OverlapPriority it is the tie-break.
func routeLess[H any](a, b *route[H]) bool {
	if a.rank != b.rank {
		return a.rank < b.rank
	}
	if a.weight != b.weight {
		return a.weight > b.weight
	}
	aAny, bAny := a.path.Method == MethodAny, b.path.Method == MethodAny
	if aAny != bAny {
		return bAny
	}
	if a.path.Pattern != b.path.Pattern {
		return a.path.Pattern < b.path.Pattern
	}
	return a.seq < b.seq
}

// Seal makes the table read-only. Further registrations fail with
// util.ErrTableSealed.
func (t *Table[H]) Seal() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sealed.Store(true)
}

// Sealed reports whether the table is sealed.
func (t *Table[H]) Sealed() bool {
	return t.sealed.Load()
}

// Policy returns the overlap policy.
func (t *Table[H]) Policy() OverlapPolicy {
	return t.policy
}

// Len returns the number of registered routes.
func (t *Table[H]) Len() int {
	defer t.rlock()()
	return len(t.routes)
}

// AllPaths returns the registered paths in scan order.
func (t *Table[H]) AllPaths() []Path {
	defer t.rlock()()

	paths := make([]Path, len(t.routes))
	for i, r := range t.routes {
		paths[i] = r.path
	}
	return paths
}

// rlock takes the read lock only while the table can still change and
// returns the matching unlock.
func (t *Table[H]) rlock() func() {
	if t.sealed.Load() {
		return func() {}
	}
	t.mu.RLock()
	return t.mu.RUnlock
}
