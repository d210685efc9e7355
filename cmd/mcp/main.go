package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	mcpadapter "github.com/kirillkom/theo-assistant/internal/adapters/mcp"
	"github.com/kirillkom/theo-assistant/internal/bootstrap"
	"github.com/kirillkom/theo-assistant/internal/config"
	"github.com/kirillkom/theo-assistant/internal/observability/logging"
)

const (
	serviceName = "theo-mcp"
	version     = "1.0.0"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		slog.Warn("dotenv_load_failed", "error", err.Error())
	}
	cfg := config.Load()
	// stdout carries the protocol.
	logger := logging.Install(logging.New(os.Stderr, serviceName, cfg.LogLevel, "json"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{Service: serviceName, Role: bootstrap.RoleLocal})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err.Error())
		os.Exit(1)
	}
	defer app.Close()

	server := mcpadapter.NewServer(mcpadapter.Dependencies{
		Processor:  app.Processor,
		Extractor:  app.Stages.Extractor,
		Matcher:    app.Stages.Matcher,
		Checklists: app.Stages.Checklists,
		Drafter:    app.Stages.Drafter,
		Catalog:    app.Catalog,
	}, version)
	if err := mcpadapter.ServeStdio(server); err != nil {
		logger.Error("mcp_serve_failed", "error", err.Error())
		os.Exit(1)
	}
}
