package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/kirillkom/theo-assistant/internal/adapters/http"
	"github.com/kirillkom/theo-assistant/internal/bootstrap"
	"github.com/kirillkom/theo-assistant/internal/config"
	"github.com/kirillkom/theo-assistant/internal/observability/logging"
	"github.com/kirillkom/theo-assistant/internal/observability/metrics"
)

const serviceName = "theo-api"

func main() {
	if err := config.LoadDotEnv(); err != nil {
		slog.Warn("dotenv_load_failed", "error", err.Error())
	}
	cfg := config.Load()
	logger := logging.Install(logging.NewJSONLogger(serviceName, cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpMetrics := metrics.NewHTTPServerMetrics(serviceName)
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{
		Service:    serviceName,
		Role:       bootstrap.RoleAPI,
		Registerer: httpMetrics.Registry(),
	})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err.Error())
		os.Exit(1)
	}
	defer app.Close()

	router := httpadapter.NewRouter(cfg, httpadapter.Dependencies{
		Processor:  app.Processor,
		Extractor:  app.Stages.Extractor,
		Matcher:    app.Stages.Matcher,
		Checklists: app.Stages.Checklists,
		Drafter:    app.Stages.Drafter,
		Chat:       app.Chat,
		Catalog:    app.Catalog,
		Runs:       app.Runs,
		Metrics:    httpMetrics,
	})

	writeTimeout := cfg.PipelineTimeout() + 15*time.Second
	if cfg.PipelineTimeout() <= 0 {
		writeTimeout = 10 * time.Minute
	}
	server := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("api_listening", "addr", server.Addr, "pipeline_mode", cfg.PipelineMode)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api_server_failed", "error", err.Error())
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api_shutdown_failed", "error", err.Error())
	}
}
