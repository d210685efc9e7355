package usecase

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/kirillkom/theo-assistant/internal/core/domain"
	"github.com/kirillkom/theo-assistant/internal/core/ports"
	"github.com/kirillkom/theo-assistant/internal/core/structured"
)

const (
	maxObservationRune = 600
	maxSupportRune     = 80
)

var (
	diagnosisPattern = regexp.MustCompile(`^[A-Z0-9]{3,4}(\.[A-Z0-9]{1,3})?$`)
	leadingNumber    = regexp.MustCompile(`^\d{1,3}`)
)

type ReportExtractor struct {
	generator  ports.TextGenerator
	vocabulary map[string]struct{}
	observer   ports.PipelineObserver
}

func NewReportExtractor(generator ports.TextGenerator, catalog ports.BenefitCatalog, observer ports.PipelineObserver) *ReportExtractor {
	var vocab map[string]struct{}
	if catalog != nil {
		vocab = catalog.Vocabulary()
	}
	return &ReportExtractor{
		generator:  generator,
		vocabulary: vocab,
		observer:   observerOrNoop(observer),
	}
}

// Extract never fails: any problem with the capability or its output yields empty facts.
func (uc *ReportExtractor) Extract(ctx context.Context, reportText string) domain.ReportFacts {
	if strings.TrimSpace(reportText) == "" {
		return domain.EmptyFacts()
	}
	if uc.generator == nil {
		noteFallback(ctx, uc.observer, domain.FallbackExtraction, missingGenerator("extract report facts"))
		return domain.EmptyFacts()
	}

	raw, err := uc.generator.Generate(ctx, domain.GenerationRequest{
		Task:   domain.TaskExtract,
		System: systemAssistant,
		Prompt: buildExtractPrompt(reportText),
		JSON:   true,
	})
	if err != nil {
		noteFallback(ctx, uc.observer, domain.FallbackExtraction, err)
		return domain.EmptyFacts()
	}

	fields, err := structured.ExtractJSON[map[string]any](raw, nil)
	if err != nil {
		noteFallback(ctx, uc.observer, domain.FallbackExtraction, err)
		return domain.EmptyFacts()
	}

	facts := coerceFacts(fields)
	scrub := newPIIScrubber(reportText, uc.vocabulary)
	facts.SupportLevel = truncateRunes(scrub.Clean(facts.SupportLevel), maxSupportRune)
	facts.Observations = truncateRunes(scrub.Clean(facts.Observations), maxObservationRune)
	return facts.Normalized()
}

// Summarize renders the known facts as a bulleted digest. Unknown facts are omitted.
func (uc *ReportExtractor) Summarize(facts domain.ReportFacts) string {
	return SummarizeFacts(facts)
}

func SummarizeFacts(facts domain.ReportFacts) string {
	var lines []string
	if facts.DiagnosisCode != "" {
		lines = append(lines, "- CID: "+facts.DiagnosisCode)
	}
	if age, ok := facts.KnownAge(); ok {
		unit := "anos"
		if age == 1 {
			unit = "ano"
		}
		lines = append(lines, fmt.Sprintf("- Idade: %d %s", age, unit))
	}
	if facts.SupportLevel != "" {
		lines = append(lines, "- Nível de suporte: "+facts.SupportLevel)
	}
	if label := schoolLabel(facts.SchoolType); label != "" {
		lines = append(lines, "- Escola: "+label)
	}
	if facts.Observations != "" {
		lines = append(lines, "- Observações: "+facts.Observations)
	}
	return strings.Join(lines, "\n")
}

func schoolLabel(t domain.SchoolType) string {
	switch t {
	case domain.SchoolPublic:
		return "pública"
	case domain.SchoolPrivate:
		return "particular"
	default:
		return ""
	}
}

func coerceFacts(fields map[string]any) domain.ReportFacts {
	facts := domain.EmptyFacts()
	facts.DiagnosisCode = normalizeDiagnosis(stringField(fields, "diagnosis_code", "diagnosisCode", "cid"))
	facts.Age = ageField(fields, "age", "idade")
	facts.SupportLevel = strings.TrimSpace(stringField(fields, "support_level", "supportLevel", "nivel_suporte"))
	facts.SchoolType = normalizeSchool(stringField(fields, "school_type", "schoolType", "escola"))
	facts.Observations = strings.TrimSpace(stringField(fields, "observations", "observacoes"))
	return facts
}

func lookup(fields map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := fields[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func stringField(fields map[string]any, keys ...string) string {
	v, ok := lookup(fields, keys...)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == math.Trunc(t) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

func ageField(fields map[string]any, keys ...string) *int {
	v, ok := lookup(fields, keys...)
	if !ok {
		return nil
	}
	var age int
	switch t := v.(type) {
	case float64:
		if t != math.Trunc(t) {
			return nil
		}
		age = int(t)
	case string:
		digits := leadingNumber.FindString(strings.TrimSpace(t))
		if digits == "" {
			return nil
		}
		age, _ = strconv.Atoi(digits)
	default:
		return nil
	}
	if !domain.ValidAge(age) {
		return nil
	}
	return domain.IntPtr(age)
}

func normalizeDiagnosis(raw string) string {
	code := strings.ToUpper(strings.TrimSpace(raw))
	code = strings.TrimPrefix(code, "CID-10")
	code = strings.TrimPrefix(code, "CID-11")
	code = strings.TrimPrefix(code, "CID")
	code = strings.Trim(code, " :-")
	code = strings.ReplaceAll(code, " ", "")
	if !diagnosisPattern.MatchString(code) || !strings.ContainsAny(code, "0123456789") {
		return ""
	}
	return code
}

func normalizeSchool(raw string) domain.SchoolType {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case s == "":
		return domain.SchoolUnspecified
	case strings.Contains(s, "privat"), strings.Contains(s, "privad"), strings.Contains(s, "particular"):
		return domain.SchoolPrivate
	case strings.Contains(s, "public"), strings.Contains(s, "públic"),
		strings.Contains(s, "municipal"), strings.Contains(s, "estadual"), strings.Contains(s, "federal"):
		return domain.SchoolPublic
	default:
		return domain.SchoolUnspecified
	}
}

func truncateRunes(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return strings.TrimSpace(string(r[:limit]))
}

func missingGenerator(op string) error {
	return domain.WrapError(domain.ErrConfiguration, op, fmt.Errorf("text generation capability is not configured"))
}
