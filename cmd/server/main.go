package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/dmitrijs2005/cloudvault/internal/logging"
	"github.com/dmitrijs2005/cloudvault/internal/server"
	"github.com/dmitrijs2005/cloudvault/internal/server/config"
)

func main() {

	ctx := context.Background()

	// Startup errors happen before the configured logger exists, so they
	// go through a plain slog logger on stderr.
	boot := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	cfg, err := config.LoadConfig()
	if err != nil {
		boot.Error(ctx, "config error", "error", err)
		os.Exit(1)
	}

	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		boot.Error(ctx, "startup error", "error", err)
		os.Exit(1)
	}

	app.Run(ctx)
}
