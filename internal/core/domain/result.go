package domain

type ReportSummary struct {
	ReportFacts
	Digest string `json:"digest"`
}

type MatchedBenefit struct {
	Benefit             BenefitDescriptor  `json:"benefit"`
	EmpathicExplanation string             `json:"empathic_explanation"`
	Checklist           []ChecklistItem    `json:"checklist"`
	OfficialDocuments   []OfficialDocument `json:"official_documents,omitempty"`
}

// AggregateResult is the single output of one pipeline run.
type AggregateResult struct {
	RunID            string           `json:"run_id"`
	ReportSummary    ReportSummary    `json:"report_summary"`
	MatchedBenefits  []MatchedBenefit `json:"matched_benefits"`
	EmotionalSupport string           `json:"emotional_support"`
}
