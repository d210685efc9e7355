package usecase

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/kirillkom/theo-assistant/internal/core/domain"
	"github.com/kirillkom/theo-assistant/internal/core/ports"
)

const maxEmphasisSpans = 3

var emphasisSpan = regexp.MustCompile(`\*\*([^*]+)\*\*`)

const supportFallback = "Cuidar de uma criança com necessidades específicas exige muito, e buscar informação já é um passo importante. " +
	"Você não está sozinho(a): vamos seguir juntos, um passo de cada vez."

type EmpathyWriter struct {
	generator ports.TextGenerator
	observer  ports.PipelineObserver
}

func NewEmpathyWriter(generator ports.TextGenerator, observer ports.PipelineObserver) *EmpathyWriter {
	return &EmpathyWriter{generator: generator, observer: observerOrNoop(observer)}
}

func (uc *EmpathyWriter) Explain(ctx context.Context, benefit domain.BenefitDescriptor, facts domain.ReportFacts) string {
	text, err := uc.generate(ctx, buildExplainPrompt(benefit, facts))
	if err != nil {
		noteFallback(ctx, uc.observer, domain.FallbackExplain, err)
		return ExplainFallback(benefit)
	}
	return text
}

func (uc *EmpathyWriter) SupportMessage(ctx context.Context, facts domain.ReportFacts) string {
	text, err := uc.generate(ctx, buildSupportPrompt(facts))
	if err != nil {
		noteFallback(ctx, uc.observer, domain.FallbackSupport, err)
		return supportFallback
	}
	return text
}

func (uc *EmpathyWriter) generate(ctx context.Context, prompt string) (string, error) {
	if uc.generator == nil {
		return "", missingGenerator("generate supportive text")
	}
	text, err := uc.generator.Generate(ctx, domain.GenerationRequest{
		Task:   domain.TaskEmpathy,
		System: systemAssistant,
		Prompt: prompt,
	})
	if err != nil {
		return "", err
	}
	text = LimitEmphasis(strings.TrimSpace(text), maxEmphasisSpans)
	if text == "" {
		return "", errors.New("empty supportive text")
	}
	return text, nil
}

func ExplainFallback(benefit domain.BenefitDescriptor) string {
	return benefit.Name + " existe para apoiar famílias como a sua. " +
		"Conhecer esse direito já ajuda a garantir o cuidado que seu filho(a) merece."
}

// LimitEmphasis keeps the first limit **bold** spans and unwraps the rest.
func LimitEmphasis(text string, limit int) string {
	seen := 0
	return emphasisSpan.ReplaceAllStringFunc(text, func(span string) string {
		seen++
		if seen <= limit {
			return span
		}
		return strings.TrimSuffix(strings.TrimPrefix(span, "**"), "**")
	})
}
