package db

import (
	"gorm.io/gorm"

	"github.com/yungbote/evidence-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Department{},
		&domain.Case{},
		&domain.CaseNote{},
		&domain.Evidence{},
		&domain.UserRecord{},
	)
}
