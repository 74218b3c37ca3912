package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/canopy-network/gravityx/app/watcher"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := watcher.Initialize(ctx)
	if err != nil {
		panic(err)
	}

	// Immediate pass before cron
	app.ReconcileOnce(ctx)

	// Start cron scheduler
	app.StartCron()

	// Setup server
	app.SetupServer()

	// Start server
	app.Start(ctx)
}
