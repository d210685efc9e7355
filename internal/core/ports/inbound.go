package ports

import (
	"context"

	"github.com/kirillkom/theo-assistant/internal/core/domain"
)

// ReportProcessor is the inbound contract for the full report pipeline.
type ReportProcessor interface {
	ProcessReport(ctx context.Context, reportText string) (*domain.AggregateResult, error)
}

// ReportFactsExtractor turns free report text into structured facts.
type ReportFactsExtractor interface {
	Extract(ctx context.Context, reportText string) domain.ReportFacts
	Summarize(facts domain.ReportFacts) string
}

// BenefitMatcher selects and ranks catalog benefits for extracted facts.
type BenefitMatcher interface {
	Match(ctx context.Context, facts domain.ReportFacts) []domain.BenefitDescriptor
}

// ChecklistBuilder produces ordered application steps for one benefit.
type ChecklistBuilder interface {
	Build(ctx context.Context, benefit domain.BenefitDescriptor) []domain.ChecklistItem
}

// DocumentDrafter drafts one official document for one benefit.
type DocumentDrafter interface {
	Draft(ctx context.Context, benefit domain.BenefitDescriptor, facts domain.ReportFacts, docType domain.DocumentType, recipient string) (domain.OfficialDocument, error)
}

// EmpathyWriter produces supportive text alongside the mechanical outputs.
type EmpathyWriter interface {
	Explain(ctx context.Context, benefit domain.BenefitDescriptor, facts domain.ReportFacts) string
	SupportMessage(ctx context.Context, facts domain.ReportFacts) string
}

// BenefitCatalog is the read-only benefit configuration.
type BenefitCatalog interface {
	Entries() []domain.BenefitDescriptor
	Get(id string) (domain.BenefitDescriptor, bool)
	Eligible(benefit domain.BenefitDescriptor, facts domain.ReportFacts) bool
	Vocabulary() map[string]struct{}
}

// ChatResponder answers one chat turn given explicit session state.
type ChatResponder interface {
	Respond(ctx context.Context, req domain.ChatRequest) (*domain.ChatReply, error)
}

// RunReader reads pipeline run audit records.
type RunReader interface {
	GetRun(ctx context.Context, id string) (*domain.PipelineRun, error)
}
