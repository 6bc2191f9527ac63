package config

import (
	"fmt"
	"strings"

	"github.com/vyrodovalexey/avadispatch/internal/encoding"
	"github.com/vyrodovalexey/avadispatch/internal/router"
	"github.com/vyrodovalexey/avadispatch/internal/util"
)

var (
	validTransports = map[string]bool{TransportHTTP: true, TransportConn: true}
	validLogLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validLogFormats = map[string]bool{"json": true, "console": true}
	validLogOutputs = map[string]bool{"stdout": true, "stderr": true}
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Path    string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, e[i].Error())
	}
	return sb.String()
}

// Is lets errors.Is match util.ErrConfigInvalid.
func (e ValidationErrors) Is(target error) bool {
	return target == util.ErrConfigInvalid
}

// HasErrors returns true if there are validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates dispatcher configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate validates cfg with a fresh Validator.
func Validate(cfg *Config) error {
	return NewValidator().Validate(cfg)
}

// Validate checks every section and returns all problems found at once.
func (v *Validator) Validate(cfg *Config) error {
	v.errors = nil

	if cfg == nil {
		v.addError("", "configuration is nil")
		return v.errors
	}

	v.validateServer(&cfg.Server)
	v.validateAdmin(&cfg.Admin, &cfg.Server)
	v.validateDispatch(&cfg.Dispatch)
	v.validateLogging(&cfg.Logging)
	v.validateTracing(&cfg.Tracing)
	v.validateRoutes(cfg.Routes)

	if v.errors.HasErrors() {
		return v.errors
	}
	return nil
}

func (v *Validator) validateServer(s *ServerConfig) {
	if !validTransports[s.Transport] {
		v.addError("server.transport",
			fmt.Sprintf("invalid transport %q, must be one of: %s, %s", s.Transport, TransportHTTP, TransportConn))
	}
	if err := util.ValidateNonNegativePort(s.Port); err != nil {
		v.addError("server.port", err.Error())
	}
	v.checkDuration("server.readTimeout", s.ReadTimeout)
	v.checkDuration("server.writeTimeout", s.WriteTimeout)
	v.checkDuration("server.shutdownTimeout", s.ShutdownTimeout)
	if s.MaxConnections < 0 {
		v.addError("server.maxConnections", "must be non-negative")
	}
	if s.MaxHeaderBytes < 0 {
		v.addError("server.maxHeaderBytes", "must be non-negative")
	}
}

func (v *Validator) validateAdmin(a *AdminConfig, s *ServerConfig) {
	if !a.Enabled {
		return
	}
	if err := util.ValidateNonNegativePort(a.Port); err != nil {
		v.addError("admin.port", err.Error())
		return
	}
	if a.Port != 0 && a.Port == s.Port {
		v.addError("admin.port", fmt.Sprintf("must differ from server.port (%d)", s.Port))
	}
}

func (v *Validator) validateDispatch(d *DispatchConfig) {
	if d.MaxWorkers < 0 {
		v.addError("dispatch.maxWorkers", "must be non-negative")
	}
	v.checkDuration("dispatch.workerIdleTimeout", d.WorkerIdleTimeout)
	v.checkDuration("dispatch.handlerTimeout", d.HandlerTimeout)

	if _, err := router.ParseOverlapPolicy(d.OverlapPolicy); err != nil {
		v.addError("dispatch.overlapPolicy", fmt.Sprintf("invalid policy %q", d.OverlapPolicy))
	}
	if d.MaxBodyBytes <= 0 {
		v.addError("dispatch.maxBodyBytes", "must be positive")
	}
	if d.DefaultContentType != "" {
		if _, err := encoding.NewRegistry(nil).Get(d.DefaultContentType); err != nil {
			v.addError("dispatch.defaultContentType",
				fmt.Sprintf("unsupported content type %q", d.DefaultContentType))
		}
	}

	if rl := d.RateLimit; rl != nil && rl.Enabled {
		if rl.RequestsPerSecond <= 0 {
			v.addError("dispatch.rateLimit.requestsPerSecond", "must be positive")
		}
		if rl.Burst <= 0 {
			v.addError("dispatch.rateLimit.burst", "must be positive")
		}
	}

	if cb := d.CircuitBreaker; cb != nil && cb.Enabled {
		if cb.Threshold == 0 {
			v.addError("dispatch.circuitBreaker.threshold", "must be positive")
		}
		if err := util.ValidatePositiveDuration(cb.Timeout.Duration()); err != nil {
			v.addError("dispatch.circuitBreaker.timeout", err.Error())
		}
		v.checkDuration("dispatch.circuitBreaker.interval", cb.Interval)
	}
}

func (v *Validator) validateLogging(l *LoggingConfig) {
	if !validLogLevels[l.Level] {
		v.addError("logging.level", fmt.Sprintf("invalid level %q, must be one of: debug, info, warn, error", l.Level))
	}
	if !validLogFormats[l.Format] {
		v.addError("logging.format", fmt.Sprintf("invalid format %q, must be one of: json, console", l.Format))
	}
	if l.Output != "" && !validLogOutputs[l.Output] {
		v.addError("logging.output", fmt.Sprintf("invalid output %q, must be one of: stdout, stderr", l.Output))
	}
}

func (v *Validator) validateTracing(t *TracingConfig) {
	if !t.Enabled {
		return
	}
	if err := util.ValidateRatio(t.SamplingRate); err != nil {
		v.addError("tracing.samplingRate", err.Error())
	}
	if err := util.ValidateNonEmpty(t.ServiceName, "serviceName"); err != nil {
		v.addError("tracing.serviceName", err.Error())
	}
}

func (v *Validator) validateRoutes(routes []RouteConfig) {
	names := make(map[string]int, len(routes))

	for i := range routes {
		r := &routes[i]
		path := fmt.Sprintf("routes[%d]", i)

		if err := util.ValidateNonEmpty(r.Name, "name"); err != nil {
			v.addError(path+".name", err.Error())
		} else if first, dup := names[r.Name]; dup {
			v.addError(path+".name", fmt.Sprintf("duplicate route name %q (also routes[%d])", r.Name, first))
		} else {
			names[r.Name] = i
		}

		if err := util.ValidatePathPattern(r.Pattern); err != nil {
			v.addError(path+".pattern", err.Error())
		}

		mode, err := router.ParseMatchMode(r.Match)
		if err != nil {
			v.addError(path+".match", err.Error())
		} else if mode == router.MatchPrefix && strings.Contains(r.Pattern, "{") {
			v.addError(path+".pattern", "path parameters are only allowed with exact matching")
		}

		if _, err := router.ParseMethod(r.Method); err != nil {
			v.addError(path+".method", err.Error())
		}

		if err := util.ValidateNonEmpty(r.Handler, "handler"); err != nil {
			v.addError(path+".handler", err.Error())
		}
	}
}

func (v *Validator) checkDuration(path string, d Duration) {
	if err := util.ValidateDuration(d.Duration()); err != nil {
		v.addError(path, err.Error())
	}
}

func (v *Validator) addError(path, message string) {
	v.errors = append(v.errors, ValidationError{Path: path, Message: message})
}
