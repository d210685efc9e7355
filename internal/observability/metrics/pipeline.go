package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/theo-assistant/internal/core/domain"
	"github.com/kirillkom/theo-assistant/internal/core/ports"
)

// PipelineMetrics implements ports.PipelineObserver and resilience.CallObserver
// and instruments text generators.
type PipelineMetrics struct {
	service string

	stageDuration *prometheus.HistogramVec
	fallbackTotal *prometheus.CounterVec
	runTotal      *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	matched       *prometheus.HistogramVec
	llmCallTotal  *prometheus.CounterVec
	llmDuration   *prometheus.HistogramVec
	retryTotal    *prometheus.CounterVec
	breakerState  *prometheus.GaugeVec
}

func NewPipelineMetrics(service string, registerer prometheus.Registerer) *PipelineMetrics {
	m := &PipelineMetrics{
		service: service,
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "stage_duration_seconds",
				Help:      "Pipeline stage duration in seconds.",
				Buckets:   []float64{0.01, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"service", "stage"},
		),
		fallbackTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "fallbacks_total",
				Help:      "Local degradations applied by pipeline stages.",
			},
			[]string{"service", "fallback"},
		),
		runTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "runs_total",
				Help:      "Completed pipeline runs by status.",
			},
			[]string{"service", "status"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "run_duration_seconds",
				Help:      "End-to-end pipeline run duration in seconds.",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
			},
			[]string{"service", "status"},
		),
		matched: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "matched_benefits",
				Help:      "Matched benefits per successful run.",
				Buckets:   []float64{0, 1, 2, 4, 6, 8, 10, 12},
			},
			[]string{"service"},
		),
		llmCallTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "llm",
				Name:      "calls_total",
				Help:      "Text generation calls by provider, task and outcome.",
			},
			[]string{"service", "provider", "task", "status"},
		),
		llmDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "llm",
				Name:      "call_duration_seconds",
				Help:      "Text generation call duration in seconds, retries included.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"service", "provider", "task"},
		),
		retryTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "resilience",
				Name:      "retries_total",
				Help:      "Retried provider and worker calls by operation.",
			},
			[]string{"service", "operation"},
		),
		breakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "resilience",
				Name:      "breaker_state",
				Help:      "Circuit breaker state per provider: 0 closed, 1 half-open, 2 open.",
			},
			[]string{"service", "provider"},
		),
	}
	registerer.MustRegister(
		m.stageDuration,
		m.fallbackTotal,
		m.runTotal,
		m.runDuration,
		m.matched,
		m.llmCallTotal,
		m.llmDuration,
		m.retryTotal,
		m.breakerState,
	)
	return m
}

func (m *PipelineMetrics) ObserveStage(stage domain.PipelineStage, duration time.Duration) {
	m.stageDuration.WithLabelValues(m.service, string(stage)).Observe(duration.Seconds())
}

func (m *PipelineMetrics) ObserveFallback(fallback string) {
	m.fallbackTotal.WithLabelValues(m.service, fallback).Inc()
}

func (m *PipelineMetrics) ObserveRun(status domain.RunStatus, matched int, duration time.Duration) {
	m.runTotal.WithLabelValues(m.service, string(status)).Inc()
	m.runDuration.WithLabelValues(m.service, string(status)).Observe(duration.Seconds())
	if status == domain.RunSucceeded {
		m.matched.WithLabelValues(m.service).Observe(float64(matched))
	}
}

func (m *PipelineMetrics) ObserveRetry(operation string) {
	m.retryTotal.WithLabelValues(m.service, operation).Inc()
}

func (m *PipelineMetrics) ObserveBreakerState(provider, state string) {
	value := 0.0
	switch state {
	case "half-open":
		value = 1
	case "open":
		value = 2
	}
	m.breakerState.WithLabelValues(m.service, provider).Set(value)
}

// InstrumentGenerator counts every call made through next.
func (m *PipelineMetrics) InstrumentGenerator(provider string, next ports.TextGenerator) ports.TextGenerator {
	return &instrumentedGenerator{metrics: m, provider: provider, next: next}
}

type instrumentedGenerator struct {
	metrics  *PipelineMetrics
	provider string
	next     ports.TextGenerator
}

func (g *instrumentedGenerator) Generate(ctx context.Context, req domain.GenerationRequest) (string, error) {
	start := time.Now()
	out, err := g.next.Generate(ctx, req)

	status := "success"
	if err != nil {
		status = domain.KindName(err)
	}
	task := string(req.Task)
	g.metrics.llmCallTotal.WithLabelValues(g.metrics.service, g.provider, task, status).Inc()
	g.metrics.llmDuration.WithLabelValues(g.metrics.service, g.provider, task).Observe(time.Since(start).Seconds())
	return out, err
}
