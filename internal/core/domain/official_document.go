package domain

import "fmt"

type DocumentType string

const (
	DocumentAdministrativeRequest DocumentType = "administrative-request"
	DocumentFormalEmail           DocumentType = "formal-email"
	DocumentSchoolLetter          DocumentType = "school-letter"
	DocumentLegalPetition         DocumentType = "legal-petition"
)

func ParseDocumentType(raw string) (DocumentType, error) {
	switch t := DocumentType(raw); t {
	case DocumentAdministrativeRequest, DocumentFormalEmail, DocumentSchoolLetter, DocumentLegalPetition:
		return t, nil
	default:
		return "", WrapError(ErrInvalidInput, "parse document type", fmt.Errorf("unknown type %q", raw))
	}
}

type OfficialDocument struct {
	Type    DocumentType `json:"type"`
	Title   string       `json:"title"`
	Content string       `json:"content"`
	Subject string       `json:"subject,omitempty"`
}
