package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/vyrodovalexey/avadispatch/internal/observability"
)

// waitForShutdown blocks until SIGINT or SIGTERM, then shuts down.
func waitForShutdown(app *application) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	app.logger.Info("received shutdown signal", observability.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), app.shutdownTimeout())
	defer cancel()
	app.shutdown(ctx)
}

// shutdown stops accepting, drains queued requests, then releases the
// worker pool, admin listener and telemetry. Errors are logged.
func (a *application) shutdown(ctx context.Context) {
	if a.watcher != nil {
		if err := a.watcher.Stop(); err != nil {
			a.logger.Debug("failed to stop config watcher", observability.Error(err))
		}
		a.reload.watcherRunning(false)
	}

	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.Error("failed to stop transport gracefully", observability.Error(err))
	}

	if err := a.workers.Close(ctx); err != nil {
		a.logger.Error("failed to drain worker pool", observability.Error(err))
	}

	if a.admin != nil {
		if err := a.admin.Shutdown(ctx); err != nil {
			a.logger.Error("failed to stop admin server", observability.Error(err))
		}
	}

	a.logger.Info("dispatcher stopped")

	if err := a.obs.Shutdown(ctx); err != nil {
		a.logger.Error("failed to shutdown observability", observability.Error(err))
	}
}
