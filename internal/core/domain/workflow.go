package domain

import (
	"strings"
	"time"
)

type ExtractionStatus string

const (
	ExtractionComplete      ExtractionStatus = "complete"
	ExtractionPartialUsable ExtractionStatus = "partial_usable"
	ExtractionInsufficient  ExtractionStatus = "insufficient"
)

// Usable reports whether extraction produced enough to attempt acquisition.
func (s ExtractionStatus) Usable() bool {
	return s == ExtractionComplete || s == ExtractionPartialUsable
}

// TradeRole distinguishes which side of the trade a country name was
// extracted for. Agreement placeholders resolve to different representative
// members depending on the role.
type TradeRole string

const (
	RoleExporter TradeRole = "exporter"
	RoleImporter TradeRole = "importer"
)

// ExtractedFields is the structured result of the extraction stage after
// normalization. Immutable once normalization has run.
type ExtractedFields struct {
	Exporter    string           `json:"exporter"`
	Importer    string           `json:"importer"`
	ProductName string           `json:"product"`
	ProductCode string           `json:"hs_code"`
	Status      ExtractionStatus `json:"status"`
}

// ProductOrCode prefers the HS code over the free-text product name.
func (f ExtractedFields) ProductOrCode() string {
	if code := strings.TrimSpace(f.ProductCode); code != "" {
		return code
	}
	return strings.TrimSpace(f.ProductName)
}

// StageStatus is the typed outcome of one pipeline stage. Routing decisions
// are made on these values, never on status message text.
type StageStatus string

const (
	StageSuccess     StageStatus = "success"
	StageEmptyResult StageStatus = "empty"
	StageError       StageStatus = "error"
	StageSkipped     StageStatus = "skipped"
)

type Stage string

const (
	StageExtract Stage = "extract_info"
	StageAcquire Stage = "acquire_documents"
	StageRefresh Stage = "refresh_index"
	StageAnswer  Stage = "answer"
)

// AcquisitionResult is the acquisition agent's return contract. The
// orchestrator reads only this and the corpus directory state.
type AcquisitionResult struct {
	DocumentsWritten      bool        `json:"documents_written"`
	FallbackRecordWritten bool        `json:"fallback_record_written"`
	Reused                bool        `json:"reused"`
	References            []SourceRef `json:"references,omitempty"`
}

// TariffRecord is the structured fallback produced when no preferential
// agreement documents exist for a trade lane.
type TariffRecord struct {
	Exporter    string    `json:"exporter"`
	Importer    string    `json:"importer"`
	HSCode      string    `json:"hs_code"`
	MFNDuty     string    `json:"mfn_duty"`
	AppliedDuty string    `json:"applied_duty,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	SourceURL   string    `json:"source_url,omitempty"`
	RetrievedAt time.Time `json:"retrieved_at"`
}

// WorkflowState threads one request through the pipeline. Stage outputs are
// appended, never removed; the record is discarded once the request ends.
type WorkflowState struct {
	RunID     string
	UserQuery string
	StartedAt time.Time

	Extracted         ExtractedFields
	ExtractionStatus  StageStatus
	AcquisitionStatus StageStatus
	Acquisition       AcquisitionResult
	RefreshStatus     StageStatus
	AnswerStatus      StageStatus

	RetrievedChunkCount int
	FallbackUsed        bool
	FailedStage         Stage
	FinalAnswer         string
}

// RunRecord is the audit row published after a request completes.
type RunRecord struct {
	ID                  string    `json:"id"`
	Question            string    `json:"question"`
	ExtractionStatus    string    `json:"extraction_status"`
	AcquisitionStatus   string    `json:"acquisition_status"`
	DocumentsWritten    bool      `json:"documents_written"`
	FallbackUsed        bool      `json:"fallback_used"`
	RetrievedChunkCount int       `json:"retrieved_chunk_count"`
	FailedStage         string    `json:"failed_stage,omitempty"`
	AnswerPreview       string    `json:"answer_preview"`
	DurationMS          int64     `json:"duration_ms"`
	CreatedAt           time.Time `json:"created_at"`
}
