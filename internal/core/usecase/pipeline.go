package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/theo-assistant/internal/core/domain"
	"github.com/kirillkom/theo-assistant/internal/core/ports"
)

const recordRunTimeout = 3 * time.Second

// PipelineStages groups the five collaborators the orchestrator sequences.
type PipelineStages struct {
	Extractor  ports.ReportFactsExtractor
	Matcher    ports.BenefitMatcher
	Checklists ports.ChecklistBuilder
	Drafter    ports.DocumentDrafter
	Empathy    ports.EmpathyWriter
}

// NewPipelineStages wires the default stage implementations around one generator.
func NewPipelineStages(generator ports.TextGenerator, catalog ports.BenefitCatalog, observer ports.PipelineObserver, concurrency int) PipelineStages {
	return PipelineStages{
		Extractor:  NewReportExtractor(generator, catalog, observer),
		Matcher:    NewBenefitMatcher(catalog, generator, observer, concurrency),
		Checklists: NewChecklistBuilder(generator, observer),
		Drafter:    NewDocumentDrafter(generator),
		Empathy:    NewEmpathyWriter(generator, observer),
	}
}

type PipelineOptions struct {
	Concurrency int
	// Timeout bounds a whole run. Zero leaves only the caller's deadline.
	Timeout  time.Duration
	Observer ports.PipelineObserver
	Recorder ports.RunRecorder
}

type ReportPipeline struct {
	stages      PipelineStages
	concurrency int
	timeout     time.Duration
	observer    ports.PipelineObserver
	recorder    ports.RunRecorder
	now         func() time.Time
	newID       func() string
}

func NewReportPipeline(stages PipelineStages, opts PipelineOptions) *ReportPipeline {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &ReportPipeline{
		stages:      stages,
		concurrency: concurrency,
		timeout:     opts.Timeout,
		observer:    observerOrNoop(opts.Observer),
		recorder:    opts.Recorder,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// ProcessReport runs extract, match and the per-benefit fan-out, then aggregates.
// Only invalid input, missing configuration and the run deadline are returned as errors.
func (p *ReportPipeline) ProcessReport(ctx context.Context, reportText string) (*domain.AggregateResult, error) {
	if !utf8.ValidString(reportText) {
		return nil, domain.WrapError(domain.ErrInvalidInput, "process report", errors.New("report text must be valid UTF-8"))
	}
	if err := p.checkStages(); err != nil {
		return nil, err
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	started := p.now()
	run := domain.PipelineRun{ID: p.newID(), CreatedAt: started.UTC()}
	ctx, tracker := withRunTracker(ctx)

	var facts domain.ReportFacts
	p.timeStage(domain.StageExtracting, func() {
		facts = p.stages.Extractor.Extract(ctx, reportText).Normalized()
	})
	var benefits []domain.BenefitDescriptor
	p.timeStage(domain.StageMatching, func() {
		benefits = p.stages.Matcher.Match(ctx, facts)
	})

	matched := make([]domain.MatchedBenefit, len(benefits))
	var support string
	p.timeStage(domain.StageEnriching, func() {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			support = p.stages.Empathy.SupportMessage(gctx, facts)
			return nil
		})
		g.Go(func() error {
			p.enrichAll(gctx, facts, benefits, matched)
			return nil
		})
		_ = g.Wait()
	})

	run.FallbackCount = int(tracker.fallbacks.Load())
	if err := ctx.Err(); err != nil {
		return nil, p.fail(ctx, run, started, fmt.Errorf("process report: %w", err))
	}
	if err := tracker.configurationError(); err != nil {
		return nil, p.fail(ctx, run, started, err)
	}

	var result *domain.AggregateResult
	p.timeStage(domain.StageAggregating, func() {
		result = &domain.AggregateResult{
			RunID: run.ID,
			ReportSummary: domain.ReportSummary{
				ReportFacts: facts,
				Digest:      p.stages.Extractor.Summarize(facts),
			},
			MatchedBenefits:  matched,
			EmotionalSupport: support,
		}
	})

	run.Status = domain.RunSucceeded
	run.MatchedCount = len(matched)
	for _, m := range matched {
		if m.Benefit.Priority == domain.PriorityHigh {
			run.HighPriorityCount++
		}
		run.DocumentCount += len(m.OfficialDocuments)
	}
	p.finish(ctx, run, started)
	return result, nil
}

func (p *ReportPipeline) checkStages() error {
	s := p.stages
	if s.Extractor == nil || s.Matcher == nil || s.Checklists == nil || s.Drafter == nil || s.Empathy == nil {
		return domain.WrapError(domain.ErrConfiguration, "process report", errors.New("pipeline stages are not configured"))
	}
	return nil
}

// enrichAll writes each benefit's record into its own slot, so output order follows the matcher.
func (p *ReportPipeline) enrichAll(ctx context.Context, facts domain.ReportFacts, benefits []domain.BenefitDescriptor, out []domain.MatchedBenefit) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, benefit := range benefits {
		g.Go(func() error {
			out[i] = p.enrichBenefit(gctx, facts, benefit)
			return nil
		})
	}
	_ = g.Wait()
}

func (p *ReportPipeline) enrichBenefit(ctx context.Context, facts domain.ReportFacts, benefit domain.BenefitDescriptor) domain.MatchedBenefit {
	record := domain.MatchedBenefit{Benefit: benefit}
	docTypes := DocumentPlan(benefit)
	drafted := make([]*domain.OfficialDocument, len(docTypes))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		record.Checklist = p.stages.Checklists.Build(gctx, benefit)
		return nil
	})
	g.Go(func() error {
		record.EmpathicExplanation = p.stages.Empathy.Explain(gctx, benefit, facts)
		return nil
	})
	for i, docType := range docTypes {
		g.Go(func() error {
			doc, err := p.stages.Drafter.Draft(gctx, benefit, facts, docType, "")
			if err != nil {
				noteFallback(gctx, p.observer, domain.FallbackDocument, err)
				return nil
			}
			drafted[i] = &doc
			return nil
		})
	}
	_ = g.Wait()

	for _, doc := range drafted {
		if doc != nil {
			record.OfficialDocuments = append(record.OfficialDocuments, *doc)
		}
	}
	return record
}

// DocumentPlan lists the documents drafted for a benefit: none unless it is high priority,
// then a request and an email, plus a school letter for educational support.
func DocumentPlan(benefit domain.BenefitDescriptor) []domain.DocumentType {
	if benefit.Priority != domain.PriorityHigh {
		return nil
	}
	plan := []domain.DocumentType{domain.DocumentAdministrativeRequest, domain.DocumentFormalEmail}
	if benefit.Education {
		plan = append(plan, domain.DocumentSchoolLetter)
	}
	return plan
}

func (p *ReportPipeline) timeStage(stage domain.PipelineStage, fn func()) {
	started := p.now()
	fn()
	p.observer.ObserveStage(stage, p.now().Sub(started))
}

func (p *ReportPipeline) fail(ctx context.Context, run domain.PipelineRun, started time.Time, err error) error {
	run.Status = domain.RunFailed
	run.ErrorKind = domain.KindName(err)
	p.finish(ctx, run, started)
	return err
}

func (p *ReportPipeline) finish(ctx context.Context, run domain.PipelineRun, started time.Time) {
	run.Duration = p.now().Sub(started)
	p.observer.ObserveRun(run.Status, run.MatchedCount, run.Duration)
	slog.Info("pipeline_run",
		"run_id", run.ID,
		"status", run.Status,
		"matched", run.MatchedCount,
		"documents", run.DocumentCount,
		"fallbacks", run.FallbackCount,
		"error_kind", run.ErrorKind,
		"duration_ms", run.Duration.Milliseconds(),
	)
	if p.recorder == nil {
		return
	}
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordRunTimeout)
	defer cancel()
	if err := p.recorder.RecordRun(recordCtx, run); err != nil {
		slog.Warn("run_record_failed", "run_id", run.ID, "error", err.Error())
	}
}
