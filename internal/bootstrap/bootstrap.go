package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/theo-assistant/internal/catalog"
	"github.com/kirillkom/theo-assistant/internal/config"
	"github.com/kirillkom/theo-assistant/internal/core/ports"
	"github.com/kirillkom/theo-assistant/internal/core/usecase"
	"github.com/kirillkom/theo-assistant/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/theo-assistant/internal/infrastructure/llm/openai"
	"github.com/kirillkom/theo-assistant/internal/infrastructure/queue/nats"
	"github.com/kirillkom/theo-assistant/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/theo-assistant/internal/infrastructure/resilience"
	"github.com/kirillkom/theo-assistant/internal/observability/metrics"
)

// Role selects which process is being assembled.
type Role int

const (
	// RoleLocal runs the pipeline in-process regardless of PIPELINE_MODE.
	RoleLocal Role = iota
	// RoleAPI forwards report processing to workers when PIPELINE_MODE is nats.
	RoleAPI
	// RoleWorker always connects to NATS to serve pipeline requests.
	RoleWorker
)

type Options struct {
	Service    string
	Role       Role
	Registerer prometheus.Registerer
}

type App struct {
	Config config.Config

	Catalog   *catalog.Catalog
	Generator ports.TextGenerator
	Stages    usecase.PipelineStages
	Pipeline  *usecase.ReportPipeline
	Processor ports.ReportProcessor
	Chat      *usecase.ChatUseCase
	Runs      ports.RunReader
	Metrics   *metrics.PipelineMetrics
	NATS      *nats.Conn

	closeFns []func()
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	service := opts.Service
	if service == "" {
		service = "theo"
	}
	registerer := opts.Registerer
	if registerer == nil {
		registerer = prometheus.NewRegistry()
	}

	app := &App{Config: cfg}

	cat, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}
	app.Catalog = cat

	app.Metrics = metrics.NewPipelineMetrics(service, registerer)
	executor := resilience.NewExecutor(cfg.Resilience(), app.Metrics)
	app.Generator = app.Metrics.InstrumentGenerator(cfg.LLMProvider, newGenerator(cfg, executor))

	var recorder ports.RunRecorder
	if strings.TrimSpace(cfg.PostgresDSN) != "" {
		db, repo, err := openRuns(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		app.closeFns = append(app.closeFns, func() { _ = db.Close() })
		recorder = repo
		app.Runs = repo
	} else {
		slog.Info("run_audit_disabled")
	}

	app.Stages = usecase.NewPipelineStages(app.Generator, cat, app.Metrics, cfg.PipelineConcurrency)
	app.Pipeline = usecase.NewReportPipeline(app.Stages, usecase.PipelineOptions{
		Concurrency: cfg.PipelineConcurrency,
		Timeout:     cfg.PipelineTimeout(),
		Observer:    app.Metrics,
		Recorder:    recorder,
	})
	app.Processor = app.Pipeline
	app.Chat = usecase.NewChatUseCase(app.Generator, cat, app.Metrics)

	remote := opts.Role == RoleAPI && cfg.PipelineMode == config.ModeNATS
	if remote || opts.Role == RoleWorker {
		conn, err := nats.ConnectWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			Name:               service,
			ResilienceExecutor: executor,
		})
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("init message queue: %w", err)
		}
		app.closeFns = append(app.closeFns, conn.Close)
		app.NATS = conn
		if remote {
			app.Processor = nats.NewPipelineClient(conn)
		}
	}

	slog.Info("bootstrap_ready",
		"service", service,
		"provider", cfg.LLMProvider,
		"pipeline_mode", cfg.PipelineMode,
		"benefits", len(cat.Entries()),
		"run_audit", app.Runs != nil,
	)
	return app, nil
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return catalog.LoadDefault()
	}
	return catalog.LoadFile(path)
}

func newGenerator(cfg config.Config, executor *resilience.Executor) ports.TextGenerator {
	if cfg.LLMProvider == config.ProviderOpenAI {
		return openai.New(openai.Config{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
		}, executor)
	}
	return ollama.New(ollama.Config{
		BaseURL: cfg.OllamaURL,
		Model:   cfg.OllamaGenModel,
	}, executor)
}

func openRuns(ctx context.Context, dsn string) (*sql.DB, *postgres.RunRepository, error) {
	db, err := postgres.OpenDB(dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewRunRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ensure schema: %w", err)
	}
	return db, repo, nil
}

func (a *App) Close() {
	for i := len(a.closeFns) - 1; i >= 0; i-- {
		a.closeFns[i]()
	}
	a.closeFns = nil
}
