package models

import "time"

// PipelineStage names a step of the announcement sync pipeline.
type PipelineStage string

const (
	StageLogin       PipelineStage = "login"
	StagePageQuery   PipelineStage = "page_query"
	StageEnrichment  PipelineStage = "enrichment"
	StageLedgerWrite PipelineStage = "ledger_write"
	StageLedgerSync  PipelineStage = "ledger_sync"
	StageNodeSkipped PipelineStage = "node_skipped"
)

// PipelineEvent is emitted to the event sink after each pipeline step.
type PipelineEvent struct {
	Stage          PipelineStage
	Credential     string
	AnnouncementID string
	Count          int
	Duration       time.Duration
	Err            error
}

// Outcome returns "success" or "failure" for metric labels.
func (e PipelineEvent) Outcome() string {
	if e.Err != nil {
		return "failure"
	}
	return "success"
}

// MetricsSnapshot aggregates counters for the summary endpoint.
type MetricsSnapshot struct {
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	PortalCalls              uint64    `json:"portal_calls"`
	PortalFailures           uint64    `json:"portal_failures"`
	EnrichmentFailures       uint64    `json:"enrichment_failures"`
	LedgerWrites             uint64    `json:"ledger_writes"`
	LedgerWriteFailures      uint64    `json:"ledger_write_failures"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
