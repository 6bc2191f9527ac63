package config

import (
	"time"
)

// Transport names.
const (
	TransportHTTP = "http"
	TransportConn = "conn"
)

// Default values.
const (
	DefaultHost              = "0.0.0.0"
	DefaultPort              = 8080
	DefaultAdminPort         = 9090
	DefaultReadTimeout       = 30 * time.Second
	DefaultWriteTimeout      = 30 * time.Second
	DefaultShutdownTimeout   = 15 * time.Second
	DefaultWorkerIdleTimeout = 60 * time.Second
	DefaultMaxBodyBytes      = 10 << 20
	DefaultMaxConnections    = 10000
	DefaultMaxHeaderBytes    = 1 << 20
	DefaultOverlapPolicy     = "reject"
)

// Config is the dispatcher configuration file.
type Config struct {
	Server   ServerConfig   `yaml:"server" json:"server"`
	Admin    AdminConfig    `yaml:"admin" json:"admin"`
	Dispatch DispatchConfig `yaml:"dispatch" json:"dispatch"`
	Logging  LoggingConfig  `yaml:"logging" json:"logging"`
	Tracing  TracingConfig  `yaml:"tracing" json:"tracing"`
	Routes   []RouteConfig  `yaml:"routes" json:"routes"`

	// Watch reloads routes when the file changes.
	Watch bool `yaml:"watch" json:"watch"`
}

// ServerConfig configures the inbound transport.
type ServerConfig struct {
	Transport       string   `yaml:"transport" json:"transport"`
	Host            string   `yaml:"host" json:"host"`
	Port            int      `yaml:"port" json:"port"`
	ReadTimeout     Duration `yaml:"readTimeout" json:"readTimeout"`
	WriteTimeout    Duration `yaml:"writeTimeout" json:"writeTimeout"`
	ShutdownTimeout Duration `yaml:"shutdownTimeout" json:"shutdownTimeout"`
	// MaxConnections caps open connections on the conn transport.
	MaxConnections int `yaml:"maxConnections" json:"maxConnections"`
	MaxHeaderBytes int `yaml:"maxHeaderBytes" json:"maxHeaderBytes"`
}

// AdminConfig configures the admin listener serving health, routes and metrics.
type AdminConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Host    string `yaml:"host" json:"host"`
	Port    int    `yaml:"port" json:"port"`
}

// DispatchConfig configures the dispatcher and its worker pool.
type DispatchConfig struct {
	// MaxWorkers bounds concurrent workers. Zero means unbounded.
	MaxWorkers        int      `yaml:"maxWorkers" json:"maxWorkers"`
	WorkerIdleTimeout Duration `yaml:"workerIdleTimeout" json:"workerIdleTimeout"`
	// HandlerTimeout bounds a handler invocation. Zero means no deadline.
	HandlerTimeout Duration              `yaml:"handlerTimeout" json:"handlerTimeout"`
	OverlapPolicy  string                `yaml:"overlapPolicy" json:"overlapPolicy"`
	MaxBodyBytes   int64                 `yaml:"maxBodyBytes" json:"maxBodyBytes"`
	PrettyJSON     bool                  `yaml:"prettyJSON" json:"prettyJSON"`
	RateLimit      *RateLimitConfig      `yaml:"rateLimit,omitempty" json:"rateLimit,omitempty"`
	CircuitBreaker *CircuitBreakerConfig `yaml:"circuitBreaker,omitempty" json:"circuitBreaker,omitempty"`
	// DefaultContentType answers requests without a usable Accept header.
	// Empty means JSON.
	DefaultContentType string `yaml:"defaultContentType,omitempty" json:"defaultContentType,omitempty"`
}

// RateLimitConfig configures the global token bucket.
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled" json:"enabled"`
	RequestsPerSecond float64 `yaml:"requestsPerSecond" json:"requestsPerSecond"`
	Burst             int     `yaml:"burst" json:"burst"`
}

// CircuitBreakerConfig configures the per-handler circuit breakers.
type CircuitBreakerConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	// Threshold is the number of consecutive failures that opens a breaker.
	Threshold uint32 `yaml:"threshold" json:"threshold"`
	// Timeout is how long a breaker stays open before probing.
	Timeout Duration `yaml:"timeout" json:"timeout"`
	// HalfOpenRequests is the number of probes allowed while half-open.
	HalfOpenRequests uint32 `yaml:"halfOpenRequests" json:"halfOpenRequests"`
	// Interval clears the failure counts of a closed breaker. Zero never clears.
	Interval Duration `yaml:"interval" json:"interval"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	Output string `yaml:"output" json:"output"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	ServiceName  string  `yaml:"serviceName" json:"serviceName"`
	OTLPEndpoint string  `yaml:"otlpEndpoint" json:"otlpEndpoint"`
	Insecure     bool    `yaml:"insecure" json:"insecure"`
	SamplingRate float64 `yaml:"samplingRate" json:"samplingRate"`
}

// RouteConfig binds a path to a named handler.
type RouteConfig struct {
	Name    string `yaml:"name" json:"name"`
	Pattern string `yaml:"pattern" json:"pattern"`
	// Match is "exact" (default) or "prefix".
	Match string `yaml:"match" json:"match"`
	// Method is an HTTP method or "*". Empty means "*".
	Method  string `yaml:"method" json:"method"`
	Handler string `yaml:"handler" json:"handler"`
}

// DefaultConfig returns a Config with default values and no routes.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Transport:       TransportHTTP,
			Host:            DefaultHost,
			Port:            DefaultPort,
			ReadTimeout:     Duration(DefaultReadTimeout),
			WriteTimeout:    Duration(DefaultWriteTimeout),
			ShutdownTimeout: Duration(DefaultShutdownTimeout),
			MaxConnections:  DefaultMaxConnections,
			MaxHeaderBytes:  DefaultMaxHeaderBytes,
		},
		Admin: AdminConfig{
			Enabled: true,
			Host:    DefaultHost,
			Port:    DefaultAdminPort,
		},
		Dispatch: DispatchConfig{
			WorkerIdleTimeout: Duration(DefaultWorkerIdleTimeout),
			OverlapPolicy:     DefaultOverlapPolicy,
			MaxBodyBytes:      DefaultMaxBodyBytes,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Tracing: TracingConfig{
			ServiceName:  "avadispatch",
			Insecure:     true,
			SamplingRate: 1.0,
		},
	}
}
