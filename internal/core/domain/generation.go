package domain

// GenerationTask names the purpose of a text-generation call. Providers use it
// for per-task timeouts and temperatures, metrics use it as a label.
type GenerationTask string

const (
	TaskExtract   GenerationTask = "extract"
	TaskRationale GenerationTask = "rationale"
	TaskChecklist GenerationTask = "checklist"
	TaskDocument  GenerationTask = "document"
	TaskEmpathy   GenerationTask = "empathy"
	TaskChat      GenerationTask = "chat"
)

type GenerationRequest struct {
	Task   GenerationTask
	System string
	Prompt string
	// JSON asks the provider for a JSON-only response when it supports it.
	JSON bool
}
