package domain

type BenefitCategory string

const (
	CategoryFederalBenefit   BenefitCategory = "federal-benefit"
	CategoryStateBenefit     BenefitCategory = "state-benefit"
	CategoryMunicipalBenefit BenefitCategory = "municipal-benefit"
	CategoryLegalRight       BenefitCategory = "legal-right"
)

func (c BenefitCategory) Valid() bool {
	switch c {
	case CategoryFederalBenefit, CategoryStateBenefit, CategoryMunicipalBenefit, CategoryLegalRight:
		return true
	default:
		return false
	}
}

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func (p Priority) Valid() bool {
	return p.Rank() > 0
}

// Rank orders priorities so that a larger value sorts first.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// BenefitDescriptor is one catalog entry, possibly carrying a personalised description.
type BenefitDescriptor struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Category     BenefitCategory `json:"category"`
	Description  string          `json:"description"`
	Requirements []string        `json:"requirements"`
	Priority     Priority        `json:"priority"`
	Education    bool            `json:"education,omitempty"`
}

// Clone returns a copy that shares no slices with the receiver.
func (b BenefitDescriptor) Clone() BenefitDescriptor {
	out := b
	out.Requirements = append([]string(nil), b.Requirements...)
	return out
}

// WithDescription returns a copy with a new description; identity fields are kept.
func (b BenefitDescriptor) WithDescription(description string) BenefitDescriptor {
	out := b.Clone()
	out.Description = description
	return out
}
