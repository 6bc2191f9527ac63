package config

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const watchedConfigYAML = `
routes:
  - name: ping
    pattern: /ping
    handler: ping
`

const updatedConfigYAML = `
routes:
  - name: ping
    pattern: /ping
    handler: ping
  - name: echo
    pattern: /echo
    handler: echo
`

func TestWatcher_StartLoadsInitialConfig(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, watchedConfigYAML)
	w, err := NewWatcher(path, nil)
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	require.NoError(t, w.Start(context.Background()))
	require.NotNil(t, w.Current())
	assert.Len(t, w.Current().Routes, 1)

	// A second Start is a no-op.
	assert.NoError(t, w.Start(context.Background()))
}

func TestWatcher_StartInvalidConfig(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "server:\n  transport: udp\n")
	w, err := NewWatcher(path, nil)
	require.NoError(t, err)

	assert.Error(t, w.Start(context.Background()))
	assert.Nil(t, w.Current())
	assert.NoError(t, w.Stop())
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, watchedConfigYAML)

	var reloads atomic.Int32
	w, err := NewWatcher(path, func(cfg *Config) error {
		reloads.Add(1)
		return nil
	}, WithDebounceDelay(10*time.Millisecond))
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, os.WriteFile(path, []byte(updatedConfigYAML), 0o600))

	require.Eventually(t, func() bool {
		return len(w.Current().Routes) == 2
	}, 2*time.Second, 10*time.Millisecond)
	assert.GreaterOrEqual(t, reloads.Load(), int32(1))
}

func TestWatcher_KeepsPreviousOnInvalidFile(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, watchedConfigYAML)

	errCh := make(chan error, 4)
	w, err := NewWatcher(path, nil,
		WithDebounceDelay(10*time.Millisecond),
		WithErrorCallback(func(err error) {
			select {
			case errCh <- err:
			default:
			}
		}),
	)
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, os.WriteFile(path, []byte("routes: [\n"), 0o600))

	select {
	case err := <-errCh:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("expected reload error")
	}
	assert.Len(t, w.Current().Routes, 1)
}

func TestWatcher_ReloadRejectedByCallback(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, watchedConfigYAML)
	errRejected := errors.New("handler missing")

	w, err := NewWatcher(path, func(cfg *Config) error {
		if len(cfg.Routes) > 1 {
			return errRejected
		}
		return nil
	})
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, os.WriteFile(path, []byte(updatedConfigYAML), 0o600))

	err = w.Reload()
	require.Error(t, err)
	assert.ErrorIs(t, err, errRejected)
	assert.Len(t, w.Current().Routes, 1)
}

func TestWatcher_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, watchedConfigYAML)
	w, err := NewWatcher(path, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))
	cancel()

	select {
	case <-w.doneCh:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
	assert.NoError(t, w.Stop())
}
