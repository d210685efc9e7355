package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kirillkom/theo-assistant/internal/core/domain"
	"github.com/kirillkom/theo-assistant/internal/core/ports"
)

var documentTitles = map[domain.DocumentType]string{
	domain.DocumentAdministrativeRequest: "Requerimento Administrativo",
	domain.DocumentFormalEmail:           "E-mail Formal",
	domain.DocumentSchoolLetter:          "Carta à Escola",
	domain.DocumentLegalPetition:         "Petição",
}

type DocumentDrafter struct {
	generator ports.TextGenerator
}

func NewDocumentDrafter(generator ports.TextGenerator) *DocumentDrafter {
	return &DocumentDrafter{generator: generator}
}

// Draft asks the capability for the document body. Title and subject are derived locally.
func (uc *DocumentDrafter) Draft(
	ctx context.Context,
	benefit domain.BenefitDescriptor,
	facts domain.ReportFacts,
	docType domain.DocumentType,
	recipient string,
) (domain.OfficialDocument, error) {
	if _, err := domain.ParseDocumentType(string(docType)); err != nil {
		return domain.OfficialDocument{}, err
	}
	if strings.TrimSpace(benefit.Name) == "" {
		return domain.OfficialDocument{}, domain.WrapError(domain.ErrInvalidInput, "draft document", errors.New("benefit name is required"))
	}
	if uc.generator == nil {
		return domain.OfficialDocument{}, missingGenerator("draft document")
	}
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		recipient = DefaultRecipient(benefit, docType)
	}

	content, err := uc.generator.Generate(ctx, domain.GenerationRequest{
		Task:   domain.TaskDocument,
		System: systemAssistant,
		Prompt: buildDocumentPrompt(benefit, facts.Normalized(), docType, recipient),
	})
	if err != nil {
		return domain.OfficialDocument{}, fmt.Errorf("draft %s: %w", docType, err)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return domain.OfficialDocument{}, fmt.Errorf("draft %s: empty document", docType)
	}

	doc := domain.OfficialDocument{
		Type:    docType,
		Title:   DocumentTitle(benefit, docType),
		Content: content,
	}
	if docType == domain.DocumentFormalEmail {
		doc.Subject = "Solicitação: " + benefit.Name
	}
	return doc, nil
}

func DocumentTitle(benefit domain.BenefitDescriptor, docType domain.DocumentType) string {
	return documentTitles[docType] + " - " + benefit.Name
}

func DefaultRecipient(benefit domain.BenefitDescriptor, docType domain.DocumentType) string {
	switch docType {
	case domain.DocumentSchoolLetter:
		return "Direção da escola"
	case domain.DocumentLegalPetition:
		return "Juízo da Vara competente"
	}
	switch benefit.Category {
	case domain.CategoryFederalBenefit:
		return "Órgão federal responsável pelo benefício"
	case domain.CategoryStateBenefit:
		return "Secretaria estadual responsável"
	case domain.CategoryMunicipalBenefit:
		return "Prefeitura municipal"
	default:
		return "Órgão ou instituição responsável"
	}
}
