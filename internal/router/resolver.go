package router

import (
	"sort"
	"strings"

	"github.com/vyrodovalexey/avadispatch/internal/util"
)

// Match is a successful resolution.
type Match[H any] struct {
	Path    Path
	Handler H
	Params  map[string]string
}

// Resolve finds the handler for a request URI and method.
//
// The query string is ignored. When some pattern matches the URI but no
// route accepts the method the result is a *util.MethodNotAllowedError
// listing the accepted methods; when no pattern matches at all it is a
// *util.RouteNotFoundError.
func (t *Table[H]) Resolve(uri, method string) (*Match[H], error) {
	defer t.rlock()()

	path := stripQuery(uri)

	uriMatched := false
	var allowed []string

	for _, r := range t.routes {
		matched, params := r.matcher.Match(path)
		if !matched {
			continue
		}
		uriMatched = true

		if !r.path.Method.Accepts(method) {
			allowed = append(allowed, r.path.Method.String())
			continue
		}

		t.metrics.recordResolution(outcomeMatched)
		return &Match[H]{
			Path:    r.path,
			Handler: r.handler,
			Params:  params,
		}, nil
	}

	if uriMatched {
		t.metrics.recordResolution(outcomeMethodNotAllowed)
		return nil, util.NewMethodNotAllowedError(method, path, dedupSorted(allowed))
	}

	t.metrics.recordResolution(outcomeNotFound)
	return nil, util.NewRouteNotFoundError(method, path)
}

// stripQuery drops the query string and fragment from a request URI.
func stripQuery(uri string) string {
	if i := strings.IndexAny(uri, "?#"); i >= 0 {
		return uri[:i]
	}
	return uri
}

func dedupSorted(methods []string) []string {
	sort.Strings(methods)
	out := methods[:0]
	for i, m := range methods {
		if i > 0 && m == methods[i-1] {
			continue
		}
		out = append(out, m)
	}
	return out
}
