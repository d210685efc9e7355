package ports

import (
	"context"
	"time"

	"github.com/kirillkom/theo-assistant/internal/core/domain"
)

// TextGenerator is the text-generation and text-understanding capability.
type TextGenerator interface {
	Generate(ctx context.Context, req domain.GenerationRequest) (string, error)
}

// RunRecorder persists pipeline run audit records.
type RunRecorder interface {
	RecordRun(ctx context.Context, run domain.PipelineRun) error
}

// PipelineObserver receives stage timings, fallbacks and run outcomes.
type PipelineObserver interface {
	ObserveStage(stage domain.PipelineStage, duration time.Duration)
	ObserveFallback(fallback string)
	ObserveRun(status domain.RunStatus, matched int, duration time.Duration)
}

// NoopObserver discards all events. Useful for tests.
type NoopObserver struct{}

func (NoopObserver) ObserveStage(domain.PipelineStage, time.Duration) {}
func (NoopObserver) ObserveFallback(string)                           {}
func (NoopObserver) ObserveRun(domain.RunStatus, int, time.Duration)  {}
