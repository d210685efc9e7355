package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillkom/theo-assistant/internal/core/domain"
)

func TestExtractEmptyTextSkipsGeneration(t *testing.T) {
	gen := &fakeGenerator{}
	uc := NewReportExtractor(gen, nil, nil)

	facts := uc.Extract(context.Background(), "   \n")

	assert.Equal(t, domain.EmptyFacts(), facts)
	assert.Equal(t, domain.SchoolUnspecified, facts.SchoolType)
	assert.Nil(t, facts.Age)
	assert.Zero(t, gen.callsFor(domain.TaskExtract))
}

func TestExtractParsesFields(t *testing.T) {
	gen := &fakeGenerator{respond: byTask(map[domain.GenerationTask]string{
		domain.TaskExtract: "Aqui está:\n```json\n{\"diagnosisCode\": \"CID F84.0\", \"age\": \"6 anos\", \"support_level\": \"moderado\", \"school_type\": \"Escola Municipal\", \"observations\": \"Atraso de fala.\"}\n```",
	})}
	uc := NewReportExtractor(gen, nil, nil)

	facts := uc.Extract(context.Background(), "laudo qualquer")

	assert.Equal(t, "F84.0", facts.DiagnosisCode)
	require.NotNil(t, facts.Age)
	assert.Equal(t, 6, *facts.Age)
	assert.Equal(t, "moderado", facts.SupportLevel)
	assert.Equal(t, domain.SchoolPublic, facts.SchoolType)
	assert.Equal(t, "Atraso de fala.", facts.Observations)
}

func TestExtractDropsMalformedFields(t *testing.T) {
	gen := &fakeGenerator{respond: byTask(map[domain.GenerationTask]string{
		domain.TaskExtract: `{"diagnosis_code": "autismo leve", "age": -3, "support_level": 2, "school_type": "talvez", "observations": ["x"]}`,
	})}
	uc := NewReportExtractor(gen, nil, nil)

	facts := uc.Extract(context.Background(), "laudo")

	assert.Empty(t, facts.DiagnosisCode)
	assert.Nil(t, facts.Age)
	assert.Equal(t, "2", facts.SupportLevel)
	assert.Equal(t, domain.SchoolUnspecified, facts.SchoolType)
	assert.Empty(t, facts.Observations)
}

func TestExtractFallsBackToEmptyFacts(t *testing.T) {
	cases := map[string]*fakeGenerator{
		"generator error": {respond: func(context.Context, domain.GenerationRequest) (string, error) {
			return "", errors.New("connection refused")
		}},
		"no json": {respond: byTask(map[domain.GenerationTask]string{domain.TaskExtract: "não consegui ler o laudo"})},
	}
	for name, gen := range cases {
		t.Run(name, func(t *testing.T) {
			obs := newRecordingObserver()
			uc := NewReportExtractor(gen, nil, obs)

			facts := uc.Extract(context.Background(), "laudo")

			assert.Equal(t, domain.EmptyFacts(), facts)
			assert.Equal(t, 1, obs.fallbackCount(domain.FallbackExtraction))
		})
	}
}

func TestExtractRemovesPlantedNames(t *testing.T) {
	report := "Paciente: Maria Fernanda Souza, 6 anos. Mãe: Joana Souza. " +
		"Atendida no Hospital São Lucas pela Dra. Beatriz Lima. Diagnóstico: Transtorno do Espectro Autista."
	gen := &fakeGenerator{respond: byTask(map[domain.GenerationTask]string{
		domain.TaskExtract: `{"age": 6, "support_level": "Nível 2 segundo Joana",
			"observations": "Maria Fernanda apresenta atraso de fala; acompanhada pela Dra. Beatriz Lima no Hospital São Lucas. Transtorno do Espectro Autista."}`,
	})}
	uc := NewReportExtractor(gen, nil, nil)

	facts := uc.Extract(context.Background(), report)

	for _, name := range []string{"Maria", "Fernanda", "Souza", "Joana", "Beatriz", "Lima", "Lucas"} {
		assert.NotContains(t, facts.Observations, name)
		assert.NotContains(t, facts.SupportLevel, name)
	}
	assert.Contains(t, facts.Observations, "atraso de fala")
	assert.Contains(t, facts.Observations, "Transtorno do Espectro Autista")
	assert.Equal(t, "Nível 2 segundo", facts.SupportLevel)
}

func TestExtractRemovesNamesInAnyPosition(t *testing.T) {
	cases := map[string]struct {
		report       string
		observations string
		want         string
	}{
		"name opens the text": {
			report:       "Joaquim, 6 anos, diagnóstico de TEA.",
			observations: "Joaquim apresenta atraso de fala.",
			want:         "apresenta atraso de fala.",
		},
		"name opens a sentence": {
			report:       "Relatório médico. Joaquim tem 6 anos e diagnóstico de TEA.",
			observations: "Joaquim apresenta atraso de fala.",
			want:         "apresenta atraso de fala.",
		},
		"all caps header": {
			report:       "JOAQUIM BARRETO - 6 anos.\nDiagnóstico de TEA.",
			observations: "Joaquim Barreto apresenta atraso de fala.",
			want:         "apresenta atraso de fala.",
		},
		"lower case copy": {
			report:       "Joaquim tem 6 anos.",
			observations: "criança joaquim apresenta atraso de fala.",
			want:         "criança apresenta atraso de fala.",
		},
		"common opening word survives": {
			report:       "Apresenta atraso de fala. Joaquim tem 6 anos.",
			observations: "Apresenta atraso de fala.",
			want:         "Apresenta atraso de fala.",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			gen := &fakeGenerator{respond: byTask(map[domain.GenerationTask]string{
				domain.TaskExtract: `{"age": 6, "observations": "` + tc.observations + `"}`,
			})}
			uc := NewReportExtractor(gen, nil, nil)

			facts := uc.Extract(context.Background(), tc.report)

			assert.Equal(t, tc.want, facts.Observations)
			assert.NotContains(t, strings.ToLower(facts.Observations), "joaquim")
		})
	}
}

func TestExtractNilGeneratorDegrades(t *testing.T) {
	uc := NewReportExtractor(nil, nil, nil)
	assert.Equal(t, domain.EmptyFacts(), uc.Extract(context.Background(), "laudo"))
}

func TestSummarizeOmitsUnknownFields(t *testing.T) {
	assert.Empty(t, SummarizeFacts(domain.EmptyFacts()))

	facts := domain.EmptyFacts()
	facts.Age = domain.IntPtr(6)
	digest := SummarizeFacts(facts)
	assert.Equal(t, "- Idade: 6 anos", digest)
	assert.NotContains(t, strings.ToLower(digest), "desconhecid")
}

func TestSummarizeAllFields(t *testing.T) {
	facts := domain.ReportFacts{
		DiagnosisCode: "F84.0",
		Age:           domain.IntPtr(1),
		SupportLevel:  "nível 1",
		SchoolType:    domain.SchoolPrivate,
		Observations:  "Boa interação.",
	}
	want := "- CID: F84.0\n- Idade: 1 ano\n- Nível de suporte: nível 1\n- Escola: particular\n- Observações: Boa interação."
	assert.Equal(t, want, NewReportExtractor(nil, nil, nil).Summarize(facts))
}
