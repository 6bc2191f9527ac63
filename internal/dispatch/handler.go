package dispatch

import (
	"context"

	"github.com/vyrodovalexey/avadispatch/internal/router"
)

// Handler is the business logic bound to a route. It returns a domain
// result to serialize, or an error. A *util.StatusError selects the
// response status; any other error becomes a 500.
type Handler interface {
	Handle(ctx context.Context, req *Request) (any, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, req *Request) (any, error)

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, req *Request) (any, error) {
	return f(ctx, req)
}

// Endpoint is a handler together with the name it is logged, traced and
// measured under.
type Endpoint struct {
	Name    string
	Handler Handler
}

// NewEndpoint names a handler.
func NewEndpoint(name string, h Handler) *Endpoint {
	return &Endpoint{Name: name, Handler: h}
}

// Table is the route table the dispatcher resolves against.
type Table = router.Table[*Endpoint]

// NewTable creates an empty route table for endpoints.
func NewTable(opts ...router.TableOption) *Table {
	return router.NewTable[*Endpoint](opts...)
}
