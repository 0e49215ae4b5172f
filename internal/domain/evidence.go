package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type EvidenceStatus string

const (
	EvidenceStatusUploaded   EvidenceStatus = "UPLOADED"
	EvidenceStatusProcessing EvidenceStatus = "PROCESSING"
	EvidenceStatusCompleted  EvidenceStatus = "COMPLETED"
	EvidenceStatusFailed     EvidenceStatus = "FAILED"
)

func (s EvidenceStatus) Valid() bool {
	switch s {
	case EvidenceStatusUploaded, EvidenceStatusProcessing, EvidenceStatusCompleted, EvidenceStatusFailed:
		return true
	}
	return false
}

// Rank orders statuses along the lifecycle. FAILED shares PROCESSING's rank
// because it may be re-entered into PROCESSING.
func (s EvidenceStatus) Rank() int {
	switch s {
	case EvidenceStatusUploaded:
		return 0
	case EvidenceStatusProcessing, EvidenceStatusFailed:
		return 1
	case EvidenceStatusCompleted:
		return 2
	}
	return -1
}

// Evidence is keyed by CaseID so all evidence of a case is scanned together.
// BlobPathRaw is immutable after creation.
type Evidence struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CaseID      uuid.UUID `gorm:"type:uuid;not null;index:idx_evidence_case_uploaded,priority:1" json:"caseId"`
	Department  *string   `gorm:"type:text;index" json:"department,omitempty"`
	FileName    string    `gorm:"type:text;not null" json:"fileName"`
	FileType    FileType  `gorm:"type:text;not null" json:"fileType"`
	FileSize    *int64    `json:"fileSize,omitempty"`
	ContentType *string   `gorm:"type:text" json:"contentType,omitempty"`
	BlobPathRaw string    `gorm:"type:text;not null;uniqueIndex" json:"blobPathRaw"`
	BlobURLRaw  string    `gorm:"column:blob_url_raw;type:text;not null" json:"blobUrlRaw"`
	UploadedAt  time.Time `gorm:"not null;index:idx_evidence_case_uploaded,priority:2" json:"uploadedAt"`
	UploadedBy  string    `gorm:"type:text;not null" json:"uploadedBy"`

	Description *string                     `gorm:"type:text" json:"description,omitempty"`
	UserTags    datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"userTags,omitempty"`
	AutoTags    datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"autoTags,omitempty"`
	Tags        datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"tags,omitempty"`
	ConfirmedAt *time.Time                  `json:"confirmedAt,omitempty"`

	Status          EvidenceStatus `gorm:"type:text;not null;index" json:"status"`
	StatusUpdatedAt time.Time      `gorm:"not null" json:"statusUpdatedAt"`
	ExtractedText   *string        `gorm:"type:text" json:"extractedText,omitempty"`
	OCRLanguage     *string        `gorm:"column:ocr_language;type:text" json:"ocrLanguage,omitempty"`
	OCRLines        *int           `gorm:"column:ocr_lines" json:"ocrLines,omitempty"`
	ProcessingError *string        `gorm:"type:text" json:"processingError,omitempty"`
	ProcessedAt     *time.Time     `json:"processedAt,omitempty"`

	// Version guards status transitions against concurrent deliveries.
	Version int64 `gorm:"not null;default:0" json:"-"`
}

func (Evidence) TableName() string { return "evidence" }

// AlreadyProcessed is the ingestion idempotency gate.
func (e *Evidence) AlreadyProcessed() bool {
	return e != nil && e.Status == EvidenceStatusCompleted && e.ProcessedAt != nil
}

func (e *Evidence) DepartmentOrEmpty() string {
	if e == nil || e.Department == nil {
		return ""
	}
	return *e.Department
}
