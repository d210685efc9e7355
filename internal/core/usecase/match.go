package usecase

import (
	"context"
	"errors"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/theo-assistant/internal/core/domain"
	"github.com/kirillkom/theo-assistant/internal/core/ports"
)

const defaultConcurrency = 4

type BenefitMatcher struct {
	catalog     ports.BenefitCatalog
	generator   ports.TextGenerator
	observer    ports.PipelineObserver
	concurrency int
}

func NewBenefitMatcher(catalog ports.BenefitCatalog, generator ports.TextGenerator, observer ports.PipelineObserver, concurrency int) *BenefitMatcher {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &BenefitMatcher{
		catalog:     catalog,
		generator:   generator,
		observer:    observerOrNoop(observer),
		concurrency: concurrency,
	}
}

// Match filters the catalog by the facts, personalises each survivor's description
// and orders the result by priority. Ties keep catalog order.
func (uc *BenefitMatcher) Match(ctx context.Context, facts domain.ReportFacts) []domain.BenefitDescriptor {
	candidates := uc.Eligible(facts)
	if len(candidates) == 0 {
		return candidates
	}

	enriched := make([]domain.BenefitDescriptor, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.concurrency)
	for i, benefit := range candidates {
		g.Go(func() error {
			enriched[i] = uc.enrich(gctx, benefit, facts)
			return nil
		})
	}
	_ = g.Wait()

	SortByPriority(enriched)
	return enriched
}

// Eligible returns the catalog entries that apply to the facts, in catalog order, without enrichment.
func (uc *BenefitMatcher) Eligible(facts domain.ReportFacts) []domain.BenefitDescriptor {
	if uc.catalog == nil {
		return nil
	}
	entries := uc.catalog.Entries()
	out := make([]domain.BenefitDescriptor, 0, len(entries))
	for _, e := range entries {
		if uc.catalog.Eligible(e, facts) {
			out = append(out, e)
		}
	}
	return out
}

func (uc *BenefitMatcher) enrich(ctx context.Context, benefit domain.BenefitDescriptor, facts domain.ReportFacts) domain.BenefitDescriptor {
	if uc.generator == nil {
		noteFallback(ctx, uc.observer, domain.FallbackRationale, missingGenerator("enrich benefit"))
		return benefit
	}
	text, err := uc.generator.Generate(ctx, domain.GenerationRequest{
		Task:   domain.TaskRationale,
		System: systemAssistant,
		Prompt: buildRationalePrompt(benefit, facts),
	})
	if err == nil {
		text = strings.TrimSpace(text)
		if text == "" {
			err = errors.New("empty rationale")
		}
	}
	if err != nil {
		noteFallback(ctx, uc.observer, domain.FallbackRationale, err)
		return benefit
	}
	return benefit.WithDescription(text)
}

// SortByPriority orders benefits high to low, keeping the relative order of equal priorities.
func SortByPriority(benefits []domain.BenefitDescriptor) {
	sort.SliceStable(benefits, func(i, j int) bool {
		return benefits[i].Priority.Rank() > benefits[j].Priority.Rank()
	})
}
