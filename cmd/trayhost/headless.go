package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// runHeadless supervises the API server without a tray and blocks until
// SIGINT or SIGTERM, or until ctx is done.
func runHeadless(ctx context.Context, app *App) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	app.logger.Info("Running headless; send SIGINT or SIGTERM to stop")
	app.start(ctx)
	<-ctx.Done()

	app.logger.Info("Shutting down application")
	app.shutdown()
}
