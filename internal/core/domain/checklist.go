package domain

const (
	MinChecklistItems = 3
	MaxChecklistItems = 12
)

// ChecklistItem is one ordered step. Completed belongs to the caller and is never set here.
type ChecklistItem struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Details     string `json:"details"`
	Completed   bool   `json:"completed"`
}
