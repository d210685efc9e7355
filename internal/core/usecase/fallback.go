package usecase

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/kirillkom/theo-assistant/internal/core/domain"
	"github.com/kirillkom/theo-assistant/internal/core/ports"
)

// runTracker counts the local degradations applied during one pipeline run.
// Configuration errors are kept aside because they must reach the caller.
type runTracker struct {
	fallbacks atomic.Int64
	mu        sync.Mutex
	configErr error
}

type runTrackerKey struct{}

func withRunTracker(ctx context.Context) (context.Context, *runTracker) {
	t := &runTracker{}
	return context.WithValue(ctx, runTrackerKey{}, t), t
}

func trackerFrom(ctx context.Context) *runTracker {
	t, _ := ctx.Value(runTrackerKey{}).(*runTracker)
	return t
}

func (t *runTracker) configurationError() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.configErr
}

// noteFallback records that a stage replaced a failed generation with its fallback.
func noteFallback(ctx context.Context, observer ports.PipelineObserver, fallback string, err error) {
	if observer != nil {
		observer.ObserveFallback(fallback)
	}
	if t := trackerFrom(ctx); t != nil {
		t.fallbacks.Add(1)
		if domain.IsKind(err, domain.ErrConfiguration) {
			t.mu.Lock()
			if t.configErr == nil {
				t.configErr = err
			}
			t.mu.Unlock()
		}
	}
	slog.Warn("stage_fallback", "fallback", fallback, "error_kind", domain.KindName(err), "error", errString(err))
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func observerOrNoop(o ports.PipelineObserver) ports.PipelineObserver {
	if o == nil {
		return ports.NoopObserver{}
	}
	return o
}
