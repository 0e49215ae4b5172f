package domain

import "time"

// Department owns cases. ID is the natural key (e.g. "district_a").
type Department struct {
	ID          string    `gorm:"type:text;primaryKey" json:"id"`
	Name        string    `gorm:"type:text;not null" json:"name"`
	Description *string   `gorm:"type:text" json:"description,omitempty"`
	CreatedAt   time.Time `gorm:"not null;index" json:"createdAt"`
	CreatedBy   string    `gorm:"type:text;not null" json:"createdBy"`
}

func (Department) TableName() string { return "department" }
