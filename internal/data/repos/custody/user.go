package custody

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/evidence-backend/internal/domain"
	"github.com/yungbote/evidence-backend/internal/platform/dbctx"
	"github.com/yungbote/evidence-backend/internal/platform/logger"
)

type UserRecordRepo interface {
	Get(dbc dbctx.Context, id string) (*domain.UserRecord, error)
	List(dbc dbctx.Context) ([]*domain.UserRecord, error)
	// Upsert inserts the record or replaces its profile, roles and department.
	Upsert(dbc dbctx.Context, u *domain.UserRecord) error
}

type userRecordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRecordRepo(db *gorm.DB, baseLog *logger.Logger) UserRecordRepo {
	repoLog := baseLog.With("repo", "UserRecordRepo")
	return &userRecordRepo{db: db, log: repoLog}
}

// Get returns nil, nil when no record exists for the subject.
func (r *userRecordRepo) Get(dbc dbctx.Context, id string) (*domain.UserRecord, error) {
	var results []*domain.UserRecord
	if err := dbc.DB(r.db).Where("id = ?", id).Limit(1).Find(&results).Error; err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

func (r *userRecordRepo) List(dbc dbctx.Context) ([]*domain.UserRecord, error) {
	var results []*domain.UserRecord
	if err := dbc.DB(r.db).Order("id ASC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *userRecordRepo) Upsert(dbc dbctx.Context, u *domain.UserRecord) error {
	return dbc.DB(r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"display_name", "email", "roles", "department"}),
	}).Create(u).Error
}
