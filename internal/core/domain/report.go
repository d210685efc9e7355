package domain

type SchoolType string

const (
	SchoolPublic      SchoolType = "public"
	SchoolPrivate     SchoolType = "private"
	SchoolUnspecified SchoolType = "unspecified"
)

// ReportFacts is the structured record extracted from one medical report.
// Empty strings and a nil Age mean the fact is unknown.
type ReportFacts struct {
	DiagnosisCode string     `json:"diagnosis_code,omitempty"`
	Age           *int       `json:"age,omitempty"`
	SupportLevel  string     `json:"support_level,omitempty"`
	SchoolType    SchoolType `json:"school_type"`
	Observations  string     `json:"observations"`
}

// MaxAge is the largest age accepted as a plausible fact.
const MaxAge = 120

// ValidAge reports whether age is a plausible age in years.
func ValidAge(age int) bool {
	return age >= 0 && age <= MaxAge
}

// EmptyFacts returns facts with every optional field unset.
func EmptyFacts() ReportFacts {
	return ReportFacts{SchoolType: SchoolUnspecified}
}

// KnownAge reports the age when it was extracted.
func (f ReportFacts) KnownAge() (int, bool) {
	if f.Age == nil {
		return 0, false
	}
	return *f.Age, true
}

// Normalized fills the school type default, drops an implausible age and
// detaches the age pointer so the value can be shared between goroutines.
func (f ReportFacts) Normalized() ReportFacts {
	out := f
	switch out.SchoolType {
	case SchoolPublic, SchoolPrivate:
	default:
		out.SchoolType = SchoolUnspecified
	}
	out.Age = nil
	if f.Age != nil && ValidAge(*f.Age) {
		age := *f.Age
		out.Age = &age
	}
	return out
}

func IntPtr(v int) *int {
	return &v
}
