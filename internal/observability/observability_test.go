package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	assert.Equal(t, "avadispatch", cfg.ServiceName)
	assert.Equal(t, "dispatcher", cfg.MetricsNamespace)
	assert.False(t, cfg.Tracing.Enabled)
}

func TestNew(t *testing.T) {
	t.Parallel()

	obs, err := New(context.Background(), DefaultConfig())
	require.NoError(t, err)

	assert.NotNil(t, obs.Logger())
	assert.NotNil(t, obs.Metrics())
	assert.False(t, obs.Tracer().Enabled())
	assert.NoError(t, obs.Shutdown(context.Background()))
}

func TestNew_InvalidLogLevel(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Log.Level = "chatty"

	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}
