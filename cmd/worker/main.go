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

	"github.com/kirillkom/theo-assistant/internal/bootstrap"
	"github.com/kirillkom/theo-assistant/internal/config"
	"github.com/kirillkom/theo-assistant/internal/infrastructure/queue/nats"
	"github.com/kirillkom/theo-assistant/internal/observability/logging"
	"github.com/kirillkom/theo-assistant/internal/observability/metrics"
)

const serviceName = "theo-worker"

func main() {
	if err := config.LoadDotEnv(); err != nil {
		slog.Warn("dotenv_load_failed", "error", err.Error())
	}
	cfg := config.Load()
	logger := logging.Install(logging.NewJSONLogger(serviceName, cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{
		Service:    serviceName,
		Role:       bootstrap.RoleWorker,
		Registerer: workerMetrics.Registry(),
	})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err.Error())
		os.Exit(1)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker_metrics_failed", "error", err.Error())
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	server := nats.NewPipelineServer(app.NATS, app.Pipeline, nats.ServerOptions{
		Service:     serviceName,
		Concurrency: cfg.PipelineConcurrency,
		Observer:    workerMetrics,
	})
	if err := server.Serve(ctx); err != nil {
		logger.Error("worker_serve_failed", "error", err.Error())
		os.Exit(1)
	}
}
