package domain

import (
	"time"

	"github.com/google/uuid"
)

type CaseStatus string

const (
	CaseStatusOpen   CaseStatus = "OPEN"
	CaseStatusOnHold CaseStatus = "ON_HOLD"
	CaseStatusClosed CaseStatus = "CLOSED"
)

func (s CaseStatus) Valid() bool {
	switch s {
	case CaseStatusOpen, CaseStatusOnHold, CaseStatusClosed:
		return true
	}
	return false
}

// Case is keyed by Department for range scans; the department is fixed at creation.
type Case struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Department  string     `gorm:"type:text;not null;index:idx_case_department_created,priority:1" json:"department"`
	Title       string     `gorm:"type:text;not null" json:"title"`
	Description *string    `gorm:"type:text" json:"description,omitempty"`
	Status      CaseStatus `gorm:"type:text;not null;index" json:"status"`
	CreatedAt   time.Time  `gorm:"not null;index:idx_case_department_created,priority:2" json:"createdAt"`
	CreatedBy   string     `gorm:"type:text;not null" json:"createdBy"`
	UpdatedAt   *time.Time `gorm:"autoUpdateTime:false" json:"updatedAt,omitempty"`

	Notes []CaseNote `gorm:"foreignKey:CaseID;references:ID" json:"notes"`
}

// TableName avoids the reserved word "case".
func (Case) TableName() string { return "investigation_case" }

// CaseNote is append-only; notes are never edited, only added or removed.
type CaseNote struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CaseID    uuid.UUID `gorm:"type:uuid;not null;index:idx_case_note_case_seq,priority:1" json:"-"`
	Seq       int64     `gorm:"not null;index:idx_case_note_case_seq,priority:2" json:"-"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	CreatedBy string    `gorm:"type:text;not null" json:"createdBy"`
}

func (CaseNote) TableName() string { return "case_note" }
