package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/vyrodovalexey/avadispatch/internal/config"
	"github.com/vyrodovalexey/avadispatch/internal/dispatch"
	"github.com/vyrodovalexey/avadispatch/internal/observability"
	"github.com/vyrodovalexey/avadispatch/internal/router"
	"github.com/vyrodovalexey/avadispatch/internal/util"
)

// Registration declares one route.
type Registration struct {
	Name    string
	Pattern string
	Mode    router.MatchMode
	Method  router.Method
	Handler dispatch.Handler
}

// Path returns the routing key of the registration.
func (r Registration) Path() router.Path {
	return router.Path{Pattern: r.Pattern, Mode: r.Mode, Method: r.Method}
}

// Source enumerates registrations. ForEach stops at the first error fn
// returns and passes it back.
type Source interface {
	ForEach(fn func(Registration) error) error
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(fn func(Registration) error) error

// ForEach calls f.
func (f SourceFunc) ForEach(fn func(Registration) error) error {
	return f(fn)
}

// Static is a fixed list of registrations.
type Static []Registration

// ForEach implements Source.
func (s Static) ForEach(fn func(Registration) error) error {
	for _, r := range s {
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

// Catalog maps handler names used in configuration to handlers.
type Catalog struct {
	mu       sync.RWMutex
	handlers map[string]dispatch.Handler
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{handlers: make(map[string]dispatch.Handler)}
}

// Add registers a handler under name, replacing any previous one.
func (c *Catalog) Add(name string, h dispatch.Handler) *Catalog {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[name] = h
	return c
}

// Lookup returns the handler registered under name.
func (c *Catalog) Lookup(name string) (dispatch.Handler, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	h, ok := c.handlers[name]
	return h, ok
}

// Names returns the registered handler names, sorted.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.handlers))
	for name := range c.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ConfigSource binds configured routes to catalog handlers.
type ConfigSource struct {
	Routes  []config.RouteConfig
	Catalog *Catalog
}

// FromConfig creates a source for the configured routes.
func FromConfig(routes []config.RouteConfig, catalog *Catalog) *ConfigSource {
	return &ConfigSource{Routes: routes, Catalog: catalog}
}

// ForEach implements Source. A route naming a handler missing from the
// catalog, or with an invalid match mode or method, yields a
// *util.ConfigError.
func (s *ConfigSource) ForEach(fn func(Registration) error) error {
	for i, rc := range s.Routes {
		field := fmt.Sprintf("routes[%d]", i)

		mode, err := router.ParseMatchMode(rc.Match)
		if err != nil {
			return util.NewConfigErrorWithCause(field+".match", err.Error(), err)
		}
		method, err := router.ParseMethod(rc.Method)
		if err != nil {
			return util.NewConfigErrorWithCause(field+".method", err.Error(), err)
		}

		var h dispatch.Handler
		if s.Catalog != nil {
			h, _ = s.Catalog.Lookup(rc.Handler)
		}
		if h == nil {
			return util.NewConfigError(field+".handler", fmt.Sprintf("unknown handler %q", rc.Handler))
		}

		reg := Registration{
			Name:    rc.Name,
			Pattern: rc.Pattern,
			Mode:    mode,
			Method:  method,
			Handler: h,
		}
		if err := fn(reg); err != nil {
			return err
		}
	}
	return nil
}

// Option is a functional option for Build.
type Option func(*builder)

type builder struct {
	tableOpts []router.TableOption
	logger    observability.Logger
}

// WithTableOptions passes options to the route table.
func WithTableOptions(opts ...router.TableOption) Option {
	return func(b *builder) {
		b.tableOpts = append(b.tableOpts, opts...)
	}
}

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(b *builder) {
		b.logger = logger
	}
}

// Build registers the registrations of every source, in order, into a new
// table and seals it. The first rejected registration aborts the build;
// its error wraps the table's (util.ErrDuplicateRoute, util.ErrConfigInvalid).
func Build(sources []Source, opts ...Option) (*dispatch.Table, error) {
	b := &builder{logger: observability.NopLogger()}
	for _, opt := range opts {
		opt(b)
	}

	table := dispatch.NewTable(b.tableOpts...)

	for _, src := range sources {
		err := src.ForEach(func(reg Registration) error {
			name := reg.Name
			if name == "" {
				name = reg.Path().String()
			}
			if reg.Handler == nil {
				return util.NewConfigError("handler", fmt.Sprintf("route %q has no handler", name))
			}

			if err := table.Register(reg.Path(), dispatch.NewEndpoint(name, reg.Handler)); err != nil {
				return fmt.Errorf("route %q: %w", name, err)
			}

			b.logger.Debug("registered route",
				observability.String("route", name),
				observability.String("path", reg.Path().String()),
			)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	table.Seal()
	b.logger.Info("route table built",
		observability.Int("routes", table.Len()),
		observability.String("overlap_policy", table.Policy().String()),
	)
	return table, nil
}
