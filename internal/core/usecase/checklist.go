package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/kirillkom/theo-assistant/internal/core/domain"
	"github.com/kirillkom/theo-assistant/internal/core/ports"
	"github.com/kirillkom/theo-assistant/internal/core/structured"
)

type checklistPayload struct {
	Items []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Details     string `json:"details"`
	} `json:"items"`
}

type ChecklistBuilder struct {
	generator ports.TextGenerator
	observer  ports.PipelineObserver
}

func NewChecklistBuilder(generator ports.TextGenerator, observer ports.PipelineObserver) *ChecklistBuilder {
	return &ChecklistBuilder{generator: generator, observer: observerOrNoop(observer)}
}

// Build returns between MinChecklistItems and MaxChecklistItems ordered steps.
// Unusable generation output yields the fixed three-step fallback.
func (uc *ChecklistBuilder) Build(ctx context.Context, benefit domain.BenefitDescriptor) []domain.ChecklistItem {
	if uc.generator == nil {
		noteFallback(ctx, uc.observer, domain.FallbackChecklist, missingGenerator("build checklist"))
		return FallbackChecklist(benefit)
	}
	raw, err := uc.generator.Generate(ctx, domain.GenerationRequest{
		Task:   domain.TaskChecklist,
		System: systemAssistant,
		Prompt: buildChecklistPrompt(benefit),
		JSON:   true,
	})
	if err != nil {
		noteFallback(ctx, uc.observer, domain.FallbackChecklist, err)
		return FallbackChecklist(benefit)
	}

	payload, err := structured.ExtractJSON[checklistPayload](raw, validateChecklist)
	if err != nil {
		noteFallback(ctx, uc.observer, domain.FallbackChecklist, err)
		return FallbackChecklist(benefit)
	}

	items := make([]domain.ChecklistItem, 0, len(payload.Items))
	for _, it := range payload.Items {
		title := strings.TrimSpace(it.Title)
		if title == "" {
			continue
		}
		items = append(items, domain.ChecklistItem{
			Title:       title,
			Description: strings.TrimSpace(it.Description),
			Details:     strings.TrimSpace(it.Details),
		})
		if len(items) == domain.MaxChecklistItems {
			break
		}
	}
	if len(items) < domain.MinChecklistItems {
		noteFallback(ctx, uc.observer, domain.FallbackChecklist, fmt.Errorf("%w: only %d usable steps", structured.ErrInvalidOutput, len(items)))
		return FallbackChecklist(benefit)
	}
	return numberItems(items)
}

func validateChecklist(p checklistPayload) error {
	if len(p.Items) == 0 {
		return errors.New("items is empty")
	}
	return nil
}

// FallbackChecklist is the fixed minimal plan used when generation is unusable.
func FallbackChecklist(benefit domain.BenefitDescriptor) []domain.ChecklistItem {
	docs := "Separe laudo médico, documentos de identidade e comprovante de residência."
	if len(benefit.Requirements) > 0 {
		docs = "Separe: " + strings.Join(benefit.Requirements, "; ") + "."
	}
	return numberItems([]domain.ChecklistItem{
		{
			Title:       "Pesquise os requisitos",
			Description: fmt.Sprintf("Confirme as regras atuais de %s.", benefit.Name),
			Details:     "Consulte o site oficial do órgão responsável ou ligue para a central de atendimento e anote os requisitos e prazos.",
		},
		{
			Title:       "Reúna os documentos",
			Description: "Junte toda a documentação exigida.",
			Details:     docs + " Faça cópias e guarde os originais em uma pasta.",
		},
		{
			Title:       "Faça a solicitação",
			Description: "Protocole o pedido no canal oficial.",
			Details:     "Entregue o pedido presencialmente ou pelo canal digital do órgão, guarde o número de protocolo e acompanhe a resposta.",
		},
	})
}

func numberItems(items []domain.ChecklistItem) []domain.ChecklistItem {
	for i := range items {
		items[i].ID = strconv.Itoa(i + 1)
		items[i].Completed = false
	}
	return items
}
