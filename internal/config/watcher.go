package config

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vyrodovalexey/avadispatch/internal/observability"
)

// DefaultDebounceDelay coalesces the burst of events editors produce on save.
const DefaultDebounceDelay = 100 * time.Millisecond

// ReloadFunc receives each configuration that loaded and validated
// successfully. A returned error is reported like a load failure and the
// previous configuration stays current.
type ReloadFunc func(*Config) error

// ErrorCallback is called when a reload fails.
type ErrorCallback func(error)

// Watcher reloads a configuration file whenever it changes on disk.
type Watcher struct {
	path          string
	fs            *fsnotify.Watcher
	onReload      ReloadFunc
	onError       ErrorCallback
	logger        observability.Logger
	debounceDelay time.Duration

	mu      sync.RWMutex
	current *Config
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// WatcherOption is a functional option for configuring the watcher.
type WatcherOption func(*Watcher)

// WithDebounceDelay sets the delay between the last file event and the reload.
func WithDebounceDelay(delay time.Duration) WatcherOption {
	return func(w *Watcher) {
		if delay > 0 {
			w.debounceDelay = delay
		}
	}
}

// WithLogger sets the logger for the watcher.
func WithLogger(logger observability.Logger) WatcherOption {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// WithErrorCallback sets the callback invoked on failed reloads.
func WithErrorCallback(callback ErrorCallback) WatcherOption {
	return func(w *Watcher) {
		w.onError = callback
	}
}

// NewWatcher creates a watcher for path. Nothing is watched until Start.
func NewWatcher(path string, onReload ReloadFunc, opts ...WatcherOption) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		path:          absPath,
		fs:            fsWatcher,
		onReload:      onReload,
		logger:        observability.NopLogger(),
		debounceDelay: DefaultDebounceDelay,
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	return w, nil
}

// Start loads the file once and begins watching its directory. Watching
// the directory survives editors that replace the file by rename.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	cfg, err := LoadAndValidate(w.path)
	if err != nil {
		return err
	}
	if err := w.fs.Add(filepath.Dir(w.path)); err != nil {
		return err
	}

	w.current = cfg
	w.running = true

	w.logger.Info("watching configuration file",
		observability.String("path", w.path),
		observability.Duration("debounce", w.debounceDelay),
	)

	go w.loop(ctx)
	return nil
}

// Stop ends watching and releases the underlying watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	wasRunning := w.running
	w.running = false
	w.mu.Unlock()

	if wasRunning {
		close(w.stopCh)
		<-w.doneCh
	}
	return w.fs.Close()
}

// Current returns the last configuration that loaded successfully.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.doneCh)

	debounce := time.NewTimer(w.debounceDelay)
	if !debounce.Stop() {
		<-debounce.C
	}
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("config watcher stopped", observability.Error(ctx.Err()))
			return
		case <-w.stopCh:
			w.logger.Debug("config watcher stopped")
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if w.relevant(event) {
				debounce.Reset(w.debounceDelay)
			}
		case <-debounce.C:
			if err := w.Reload(); err != nil {
				w.fail(err)
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.fail(err)
		}
	}
}

// relevant reports whether event may have changed the watched file.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}

// Reload loads the file now, hands it to the reload callback and makes it
// current when the callback accepts it.
func (w *Watcher) Reload() error {
	cfg, err := LoadAndValidate(w.path)
	if err != nil {
		return err
	}

	if w.onReload != nil {
		if err := w.onReload(cfg); err != nil {
			return errors.Join(errors.New("reload rejected"), err)
		}
	}

	w.mu.Lock()
	w.current = cfg
	w.mu.Unlock()

	w.logger.Info("configuration reloaded",
		observability.String("path", w.path),
		observability.Int("routes", len(cfg.Routes)),
	)
	return nil
}

func (w *Watcher) fail(err error) {
	w.logger.Error("configuration reload failed, keeping previous configuration",
		observability.String("path", w.path),
		observability.Error(err),
	)
	if w.onError != nil {
		w.onError(err)
	}
}
