package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/kirillkom/theo-assistant/internal/core/domain"
)

type fakeGenerator struct {
	mu      sync.Mutex
	calls   []domain.GenerationRequest
	respond func(ctx context.Context, req domain.GenerationRequest) (string, error)
}

func (f *fakeGenerator) Generate(ctx context.Context, req domain.GenerationRequest) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	if f.respond == nil {
		return "", errors.New("generator unavailable")
	}
	return f.respond(ctx, req)
}

func (f *fakeGenerator) callsFor(task domain.GenerationTask) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Task == task {
			n++
		}
	}
	return n
}

func byTask(answers map[domain.GenerationTask]string) func(context.Context, domain.GenerationRequest) (string, error) {
	return func(_ context.Context, req domain.GenerationRequest) (string, error) {
		out, ok := answers[req.Task]
		if !ok {
			return "", domain.WrapError(domain.ErrTemporary, "fake generate", errors.New("no answer for task"))
		}
		return out, nil
	}
}

type fakeCatalog struct {
	entries []domain.BenefitDescriptor
	maxAge  map[string]int
}

func (c *fakeCatalog) Entries() []domain.BenefitDescriptor {
	out := make([]domain.BenefitDescriptor, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e.Clone())
	}
	return out
}

func (c *fakeCatalog) Get(id string) (domain.BenefitDescriptor, bool) {
	for _, e := range c.entries {
		if e.ID == id {
			return e.Clone(), true
		}
	}
	return domain.BenefitDescriptor{}, false
}

func (c *fakeCatalog) Eligible(b domain.BenefitDescriptor, facts domain.ReportFacts) bool {
	ceiling, limited := c.maxAge[b.ID]
	age, known := facts.KnownAge()
	return !(limited && known && age > ceiling)
}

func (c *fakeCatalog) Vocabulary() map[string]struct{} {
	return map[string]struct{}{}
}

type recordingObserver struct {
	mu        sync.Mutex
	stages    []domain.PipelineStage
	fallbacks map[string]int
	runs      []domain.RunStatus
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{fallbacks: map[string]int{}}
}

func (o *recordingObserver) ObserveStage(stage domain.PipelineStage, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stages = append(o.stages, stage)
}

func (o *recordingObserver) ObserveFallback(fallback string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fallbacks[fallback]++
}

func (o *recordingObserver) ObserveRun(status domain.RunStatus, _ int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.runs = append(o.runs, status)
}

func (o *recordingObserver) fallbackCount(name string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.fallbacks[name]
}

type fakeRecorder struct {
	mu   sync.Mutex
	runs []domain.PipelineRun
	err  error
}

func (r *fakeRecorder) RecordRun(_ context.Context, run domain.PipelineRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, run)
	return r.err
}

func benefit(id string, priority domain.Priority) domain.BenefitDescriptor {
	return domain.BenefitDescriptor{
		ID:           id,
		Name:         "Benefício " + id,
		Category:     domain.CategoryLegalRight,
		Description:  "descrição " + id,
		Requirements: []string{"Laudo médico"},
		Priority:     priority,
	}
}
