package httpadapter

import (
	"context"
	"sync"

	"github.com/kirillkom/theo-assistant/internal/config"
	"github.com/kirillkom/theo-assistant/internal/core/domain"
	"github.com/kirillkom/theo-assistant/internal/core/usecase"
)

type processorFake struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (f *processorFake) ProcessReport(_ context.Context, reportText string) (*domain.AggregateResult, error) {
	f.mu.Lock()
	f.texts = append(f.texts, reportText)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &domain.AggregateResult{RunID: "run-1", EmotionalSupport: "Você não está sozinho."}, nil
}

type extractorFake struct{}

func (extractorFake) Extract(_ context.Context, reportText string) domain.ReportFacts {
	facts := domain.EmptyFacts()
	if reportText != "" {
		facts.DiagnosisCode = "F84.0"
		facts.Age = domain.IntPtr(7)
	}
	return facts
}

func (extractorFake) Summarize(facts domain.ReportFacts) string {
	return usecase.SummarizeFacts(facts)
}

type matcherFake struct {
	got domain.ReportFacts
}

func (f *matcherFake) Match(_ context.Context, facts domain.ReportFacts) []domain.BenefitDescriptor {
	f.got = facts
	return []domain.BenefitDescriptor{testBenefit()}
}

type checklistFake struct{}

func (checklistFake) Build(_ context.Context, benefit domain.BenefitDescriptor) []domain.ChecklistItem {
	return usecase.FallbackChecklist(benefit)
}

type drafterFake struct{}

func (drafterFake) Draft(_ context.Context, benefit domain.BenefitDescriptor, _ domain.ReportFacts, docType domain.DocumentType, recipient string) (domain.OfficialDocument, error) {
	return domain.OfficialDocument{
		Type:    docType,
		Title:   usecase.DocumentTitle(benefit, docType),
		Content: "Prezados, " + recipient,
	}, nil
}

type chatFake struct{}

func (chatFake) Respond(_ context.Context, req domain.ChatRequest) (*domain.ChatReply, error) {
	next, err := req.Session.Next(req.Action, req.BenefitID)
	if err != nil {
		return nil, err
	}
	return &domain.ChatReply{Reply: "Olá!", Session: next}, nil
}

type catalogFake struct{}

func (catalogFake) Entries() []domain.BenefitDescriptor {
	return []domain.BenefitDescriptor{testBenefit()}
}

func (catalogFake) Get(id string) (domain.BenefitDescriptor, bool) {
	if id != testBenefit().ID {
		return domain.BenefitDescriptor{}, false
	}
	return testBenefit(), true
}

func (catalogFake) Eligible(domain.BenefitDescriptor, domain.ReportFacts) bool { return true }

func (catalogFake) Vocabulary() map[string]struct{} { return map[string]struct{}{} }

type runsFake struct{}

func (runsFake) GetRun(_ context.Context, id string) (*domain.PipelineRun, error) {
	if id != "run-1" {
		return nil, domain.WrapError(domain.ErrNotFound, "get run", context.Canceled)
	}
	return &domain.PipelineRun{ID: "run-1", Status: domain.RunSucceeded, MatchedCount: 2}, nil
}

func testBenefit() domain.BenefitDescriptor {
	return domain.BenefitDescriptor{
		ID:           "ciptea",
		Name:         "CIPTEA",
		Category:     domain.CategoryStateBenefit,
		Description:  "Carteira de identificação",
		Requirements: []string{"Laudo médico"},
		Priority:     domain.PriorityMedium,
	}
}

func testDependencies() Dependencies {
	return Dependencies{
		Processor:  &processorFake{},
		Extractor:  extractorFake{},
		Matcher:    &matcherFake{},
		Checklists: checklistFake{},
		Drafter:    drafterFake{},
		Chat:       chatFake{},
		Catalog:    catalogFake{},
	}
}

func testConfig() config.Config {
	return config.Config{MaxUploadBytes: 1 << 20}
}
