// Package router provides route registration and request resolution for
// the dispatcher.
//
// A route is keyed by a Path: a URI pattern, a match mode (exact or
// prefix) and an HTTP method. Routes are registered once at startup into a
// Table, which is then sealed and only read while serving.
//
// # Features
//
//   - Exact and prefix path matching
//   - {name} path parameters in exact patterns
//   - HTTP method filtering with a "*" wildcard
//   - Duplicate and overlap detection at registration time
//   - Distinct not-found and method-not-allowed resolution failures
//   - Lock-free lookups once the table is sealed
//
// # Usage
//
// Build a table and resolve requests against it:
//
//	t := router.NewTable[Handler]()
//	if err := t.Register(router.Exact("/ping", router.MethodGet), ping); err != nil {
//	    return err
//	}
//	t.Seal()
//
//	match, err := t.Resolve(r.URL.RequestURI(), r.Method)
//	switch {
//	case errors.Is(err, util.ErrMethodNotAllowed):
//	    // 405
//	case errors.Is(err, util.ErrNotFound):
//	    // 404
//	}
package router
