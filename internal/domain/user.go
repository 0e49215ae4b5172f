package domain

import (
	"time"

	"gorm.io/datatypes"
)

const (
	RoleAdmin       = "admin"
	RoleDetective   = "detective"
	RoleCaseOfficer = "case_officer"
	RoleProsecutor  = "prosecutor"
)

// UserRecord is the only store of a case officer's department assignment.
type UserRecord struct {
	ID          string                      `gorm:"type:text;primaryKey" json:"id"`
	DisplayName *string                     `gorm:"type:text" json:"displayName,omitempty"`
	Email       *string                     `gorm:"type:text" json:"email,omitempty"`
	Roles       datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"roles,omitempty"`
	Department  *string                     `gorm:"type:text;index" json:"department,omitempty"`
	CreatedAt   time.Time                   `gorm:"not null" json:"createdAt"`
}

func (UserRecord) TableName() string { return "user_record" }
