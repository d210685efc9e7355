package usecase

import (
	"fmt"
	"strings"

	"github.com/kirillkom/theo-assistant/internal/core/domain"
)

const maxReportSnippet = 12000

const systemAssistant = `Você é o Theo, um assistente que ajuda famílias de crianças com deficiência no Brasil
a entender e acessar benefícios e direitos. Escreva em português do Brasil, com linguagem simples e acolhedora.`

func buildExtractPrompt(reportText string) string {
	snippet := truncateRunes(reportText, maxReportSnippet)
	return `Leia o laudo médico abaixo e devolva somente um objeto JSON com as chaves:
diagnosis_code (string, código CID como F84.0, ou vazio),
age (número inteiro de anos, ou null),
support_level (string curta, ou vazio),
school_type ("public", "private" ou "unspecified"),
observations (string curta com até 3 frases, ou vazio).
Nunca copie nomes de pessoas, endereços, documentos ou qualquer dado pessoal.
Sem markdown, sem chaves extras.

Laudo:
` + snippet
}

func describeFacts(facts domain.ReportFacts) string {
	var b strings.Builder
	if facts.DiagnosisCode != "" {
		fmt.Fprintf(&b, "CID: %s\n", facts.DiagnosisCode)
	}
	if age, ok := facts.KnownAge(); ok {
		fmt.Fprintf(&b, "Idade: %d anos\n", age)
	}
	if facts.SupportLevel != "" {
		fmt.Fprintf(&b, "Nível de suporte: %s\n", facts.SupportLevel)
	}
	if label := schoolLabel(facts.SchoolType); label != "" {
		fmt.Fprintf(&b, "Escola: %s\n", label)
	}
	if facts.Observations != "" {
		fmt.Fprintf(&b, "Observações: %s\n", facts.Observations)
	}
	if b.Len() == 0 {
		return "Nenhuma informação extraída do laudo.\n"
	}
	return b.String()
}

func describeBenefit(benefit domain.BenefitDescriptor) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Benefício: %s\nCategoria: %s\nDescrição: %s\n", benefit.Name, benefit.Category, benefit.Description)
	if len(benefit.Requirements) > 0 {
		b.WriteString("Requisitos:\n")
		for _, r := range benefit.Requirements {
			fmt.Fprintf(&b, "- %s\n", r)
		}
	}
	return b.String()
}

func buildRationalePrompt(benefit domain.BenefitDescriptor, facts domain.ReportFacts) string {
	return `Explique em 2 ou 3 frases por que este benefício pode se aplicar a esta família,
usando apenas as informações abaixo. Não invente dados. Responda só com o texto.

` + describeBenefit(benefit) + "\nInformações do laudo:\n" + describeFacts(facts)
}

func buildChecklistPrompt(benefit domain.BenefitDescriptor) string {
	return fmt.Sprintf(`Monte um passo a passo de %d a %d etapas, em ordem de execução, para solicitar o benefício abaixo.
Devolva somente JSON no formato {"items":[{"title":"...","description":"...","details":"..."}]}.
title: frase curta no imperativo. description: uma frase. details: instruções práticas em poucas frases.

%s`, 5, domain.MaxChecklistItems, describeBenefit(benefit))
}

var documentTemplates = map[domain.DocumentType]string{
	domain.DocumentAdministrativeRequest: `Redija um requerimento administrativo com: saudação ao órgão, identificação do requerente como responsável pela criança,
exposição da necessidade, pedido claro do benefício com base legal quando houver, e fecho com local, data e espaço para assinatura.`,
	domain.DocumentFormalEmail: `Redija o corpo de um e-mail formal com: saudação, apresentação breve do responsável, motivo do contato,
pedido objetivo com prazo razoável para resposta e despedida cordial. Não inclua a linha de assunto.`,
	domain.DocumentSchoolLetter: `Redija uma carta à direção da escola com: saudação, identificação do aluno apenas como "meu filho(a)",
descrição das necessidades de apoio, pedido de providências com base na Lei 12.764/2012 e fecho cordial.`,
	domain.DocumentLegalPetition: `Redija uma petição simples com: endereçamento ao juízo, qualificação genérica das partes entre colchetes,
fatos, fundamentos jurídicos, pedidos numerados e fecho.`,
}

func buildDocumentPrompt(benefit domain.BenefitDescriptor, facts domain.ReportFacts, docType domain.DocumentType, recipient string) string {
	return documentTemplates[docType] + `
Destinatário: ` + recipient + `
Use somente os dados abaixo. Não invente nomes, números de documentos ou dados pessoais;
quando faltar algum dado, use um espaço entre colchetes como [NOME DO RESPONSÁVEL].
Responda só com o texto do documento.

` + describeBenefit(benefit) + "\nInformações do laudo:\n" + describeFacts(facts)
}

const toneRules = `Tom: acolhedor, linguagem simples, sem jargão jurídico, sem ordens nem frases burocráticas.
Use no máximo 3 trechos em **negrito**.`

func buildExplainPrompt(benefit domain.BenefitDescriptor, facts domain.ReportFacts) string {
	return "Em 2 ou 3 frases, explique à família por que este benefício importa e encoraje o próximo passo.\n" +
		toneRules + "\n\n" + describeBenefit(benefit) + "\nInformações do laudo:\n" + describeFacts(facts)
}

func buildSupportPrompt(facts domain.ReportFacts) string {
	return "Escreva um único parágrafo de apoio emocional para a família que acabou de enviar o laudo. " +
		"Não fale de nenhum benefício específico.\n" + toneRules + "\n\nInformações do laudo:\n" + describeFacts(facts)
}

func buildChatPrompt(session domain.ChatSession, focus *domain.BenefitDescriptor, message string, catalog []domain.BenefitDescriptor) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Etapa da conversa: %s\n", session.Stage)
	switch session.Stage {
	case domain.ChatBenefitFocus:
		if focus != nil {
			b.WriteString("A família quer saber sobre este benefício:\n")
			b.WriteString(describeBenefit(*focus))
		}
	case domain.ChatAwaitingReport:
		b.WriteString("Peça com gentileza que a família envie o laudo médico e explique que dados pessoais não são guardados.\n")
	case domain.ChatReportReviewed:
		b.WriteString("O laudo já foi analisado. Ajude a família a escolher por onde começar.\n")
	default:
		b.WriteString("Benefícios conhecidos:\n")
		for _, e := range catalog {
			fmt.Fprintf(&b, "- %s (%s)\n", e.Name, e.ID)
		}
	}
	b.WriteString("\n" + toneRules + "\nResponda em até 4 frases.\n\nMensagem da família:\n")
	b.WriteString(message)
	return b.String()
}
