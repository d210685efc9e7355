package domain

import "time"

type PipelineStage string

const (
	StageReceived    PipelineStage = "received"
	StageExtracting  PipelineStage = "extracting"
	StageMatching    PipelineStage = "matching"
	StageEnriching   PipelineStage = "enriching"
	StageAggregating PipelineStage = "aggregating"
	StageDone        PipelineStage = "done"
)

// Fallback labels identify which local degradation a stage applied.
const (
	FallbackExtraction = "extraction"
	FallbackRationale  = "rationale"
	FallbackChecklist  = "checklist"
	FallbackDocument   = "document"
	FallbackExplain    = "explain"
	FallbackSupport    = "support"
	FallbackChat       = "chat"
)

type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// PipelineRun is the audit record of one run. It never carries report content.
type PipelineRun struct {
	ID                string        `json:"id"`
	Status            RunStatus     `json:"status"`
	MatchedCount      int           `json:"matched_count"`
	HighPriorityCount int           `json:"high_priority_count"`
	DocumentCount     int           `json:"document_count"`
	FallbackCount     int           `json:"fallback_count"`
	Duration          time.Duration `json:"duration_ns"`
	ErrorKind         string        `json:"error_kind,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
}
