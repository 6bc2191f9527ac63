package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfigYAML = `
server:
  transport: conn
  port: 8081
  readTimeout: 5s
dispatch:
  maxWorkers: 16
  handlerTimeout: 250ms
  overlapPolicy: priority
  rateLimit:
    enabled: true
    requestsPerSecond: 100
    burst: 20
routes:
  - name: ping
    pattern: /ping
    method: GET
    handler: ping
  - name: static
    pattern: /static/
    match: prefix
    handler: echo
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "dispatcher.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeConfig(t, sampleConfigYAML))
	require.NoError(t, err)

	assert.Equal(t, TransportConn, cfg.Server.Transport)
	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout.Duration())
	assert.Equal(t, 16, cfg.Dispatch.MaxWorkers)
	assert.Equal(t, 250*time.Millisecond, cfg.Dispatch.HandlerTimeout.Duration())
	assert.Equal(t, "priority", cfg.Dispatch.OverlapPolicy)
	require.NotNil(t, cfg.Dispatch.RateLimit)
	assert.Equal(t, 20, cfg.Dispatch.RateLimit.Burst)

	require.Len(t, cfg.Routes, 2)
	assert.Equal(t, RouteConfig{Name: "ping", Pattern: "/ping", Method: "GET", Handler: "ping"}, cfg.Routes[0])
	assert.Equal(t, "prefix", cfg.Routes[1].Match)
}

func TestLoad_KeepsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeConfig(t, "server:\n  port: 9000\n"))
	require.NoError(t, err)

	def := DefaultConfig()
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, def.Server.Host, cfg.Server.Host)
	assert.Equal(t, def.Server.WriteTimeout, cfg.Server.WriteTimeout)
	assert.Equal(t, def.Admin, cfg.Admin)
	assert.Equal(t, def.Logging, cfg.Logging)
	assert.Equal(t, int64(DefaultMaxBodyBytes), cfg.Dispatch.MaxBodyBytes)
	assert.Empty(t, cfg.Routes)
}

func TestLoad_EmptyFile(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_FileNotFound(t *testing.T) {
	t.Parallel()

	_, err := Load("/nonexistent/path/dispatcher.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_UnknownField(t *testing.T) {
	t.Parallel()

	_, err := Load(writeConfig(t, "server:\n  prot: 8080\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Parallel()

	_, err := Load(writeConfig(t, "server:\n  readTimeout: soon\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestLoadFromReader(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFromReader(strings.NewReader(sampleConfigYAML))
	require.NoError(t, err)
	assert.Len(t, cfg.Routes, 2)
}

func TestLoadAndValidate(t *testing.T) {
	t.Parallel()

	_, err := LoadAndValidate(writeConfig(t, sampleConfigYAML))
	require.NoError(t, err)

	_, err = LoadAndValidate(writeConfig(t, "server:\n  transport: udp\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.transport")
}

func TestLoad_EnvSubstitution(t *testing.T) {
	t.Setenv("DISPATCHER_TEST_PORT", "7070")
	t.Setenv("DISPATCHER_TEST_HANDLER", "echo")

	content := `
server:
  port: ${DISPATCHER_TEST_PORT}
routes:
  - name: r
    pattern: /r
    handler: ${DISPATCHER_TEST_HANDLER}
  - name: d
    pattern: /d
    handler: ${DISPATCHER_TEST_UNSET:-ping}
`
	cfg, err := Load(writeConfig(t, content))
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "echo", cfg.Routes[0].Handler)
	assert.Equal(t, "ping", cfg.Routes[1].Handler)
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("DISPATCHER_TEST_VALUE", "set")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "set variable", input: "a=${DISPATCHER_TEST_VALUE}", want: "a=set"},
		{name: "unset without default", input: "a=${DISPATCHER_TEST_MISSING}", want: "a="},
		{name: "unset with default", input: "a=${DISPATCHER_TEST_MISSING:-x}", want: "a=x"},
		{name: "set ignores default", input: "a=${DISPATCHER_TEST_VALUE:-x}", want: "a=set"},
		{name: "empty default", input: "a=${DISPATCHER_TEST_MISSING:-}", want: "a="},
		{name: "escaped dollar", input: "price: $$5", want: "price: $5"},
		{name: "escaped reference", input: "$${DISPATCHER_TEST_VALUE}", want: "${DISPATCHER_TEST_VALUE}"},
		{name: "no references", input: "plain", want: "plain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, substituteEnvVars(tt.input))
		})
	}
}

func TestResolveConfigPath(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "")

	resolved, err := ResolveConfigPath(path)
	require.NoError(t, err)
	assert.Equal(t, path, resolved)

	_, err = ResolveConfigPath("/nonexistent/dispatcher.yaml")
	assert.Error(t, err)

	_, err = ResolveConfigPath("definitely-not-here.yaml")
	assert.Error(t, err)
}
