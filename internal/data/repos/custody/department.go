package custody

import (
	"gorm.io/gorm"

	"github.com/yungbote/evidence-backend/internal/domain"
	"github.com/yungbote/evidence-backend/internal/platform/dbctx"
	"github.com/yungbote/evidence-backend/internal/platform/logger"
)

type DepartmentRepo interface {
	Create(dbc dbctx.Context, dept *domain.Department) error
	GetByID(dbc dbctx.Context, id string) (*domain.Department, error)
	List(dbc dbctx.Context) ([]*domain.Department, error)
	Update(dbc dbctx.Context, id string, updates map[string]interface{}) (int64, error)
	Delete(dbc dbctx.Context, id string) (int64, error)
}

type departmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDepartmentRepo(db *gorm.DB, baseLog *logger.Logger) DepartmentRepo {
	repoLog := baseLog.With("repo", "DepartmentRepo")
	return &departmentRepo{db: db, log: repoLog}
}

func (r *departmentRepo) Create(dbc dbctx.Context, dept *domain.Department) error {
	return dbc.DB(r.db).Create(dept).Error
}

// GetByID returns nil, nil when the department does not exist.
func (r *departmentRepo) GetByID(dbc dbctx.Context, id string) (*domain.Department, error) {
	var results []*domain.Department
	if err := dbc.DB(r.db).Where("id = ?", id).Limit(1).Find(&results).Error; err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

func (r *departmentRepo) List(dbc dbctx.Context) ([]*domain.Department, error) {
	var results []*domain.Department
	if err := dbc.DB(r.db).Order("id ASC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *departmentRepo) Update(dbc dbctx.Context, id string, updates map[string]interface{}) (int64, error) {
	if len(updates) == 0 {
		return 0, nil
	}
	res := dbc.DB(r.db).Model(&domain.Department{}).Where("id = ?", id).Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *departmentRepo) Delete(dbc dbctx.Context, id string) (int64, error) {
	res := dbc.DB(r.db).Where("id = ?", id).Delete(&domain.Department{})
	return res.RowsAffected, res.Error
}
