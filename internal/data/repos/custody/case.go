package custody

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/evidence-backend/internal/domain"
	"github.com/yungbote/evidence-backend/internal/platform/dbctx"
	"github.com/yungbote/evidence-backend/internal/platform/logger"
)

type CaseFilter struct {
	// Department scopes the scan to one partition; empty scans all.
	Department string
	Status     domain.CaseStatus
}

type CaseRepo interface {
	Create(dbc dbctx.Context, c *domain.Case) error
	Get(dbc dbctx.Context, department string, id uuid.UUID) (*domain.Case, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Case, error)
	List(dbc dbctx.Context, filter CaseFilter) ([]*domain.Case, error)
	CountByDepartment(dbc dbctx.Context, department string) (int64, error)
	Update(dbc dbctx.Context, department string, id uuid.UUID, updates map[string]interface{}) (int64, error)
	Delete(dbc dbctx.Context, department string, id uuid.UUID) (int64, error)
}

type caseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCaseRepo(db *gorm.DB, baseLog *logger.Logger) CaseRepo {
	repoLog := baseLog.With("repo", "CaseRepo")
	return &caseRepo{db: db, log: repoLog}
}

func (r *caseRepo) Create(dbc dbctx.Context, c *domain.Case) error {
	return dbc.DB(r.db).Omit("Notes").Create(c).Error
}

// Get is the point read by id and owning department. Returns nil, nil when absent.
func (r *caseRepo) Get(dbc dbctx.Context, department string, id uuid.UUID) (*domain.Case, error) {
	return r.first(dbc.DB(r.db).Where("department = ? AND id = ?", department, id))
}

// GetByID resolves a case when only its id is known (e.g. from a route).
func (r *caseRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Case, error) {
	return r.first(dbc.DB(r.db).Where("id = ?", id))
}

func (r *caseRepo) first(q *gorm.DB) (*domain.Case, error) {
	var results []*domain.Case
	err := q.Preload("Notes", func(db *gorm.DB) *gorm.DB {
		return db.Order("seq ASC")
	}).Limit(1).Find(&results).Error
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	if results[0].Notes == nil {
		results[0].Notes = []domain.CaseNote{}
	}
	return results[0], nil
}

func (r *caseRepo) List(dbc dbctx.Context, filter CaseFilter) ([]*domain.Case, error) {
	q := dbc.DB(r.db)
	if filter.Department != "" {
		q = q.Where("department = ?", filter.Department)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	var results []*domain.Case
	if err := q.Order("created_at DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *caseRepo) CountByDepartment(dbc dbctx.Context, department string) (int64, error) {
	var n int64
	err := dbc.DB(r.db).Model(&domain.Case{}).Where("department = ?", department).Count(&n).Error
	return n, err
}

func (r *caseRepo) Update(dbc dbctx.Context, department string, id uuid.UUID, updates map[string]interface{}) (int64, error) {
	if len(updates) == 0 {
		return 0, nil
	}
	res := dbc.DB(r.db).Model(&domain.Case{}).
		Where("department = ? AND id = ?", department, id).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *caseRepo) Delete(dbc dbctx.Context, department string, id uuid.UUID) (int64, error) {
	res := dbc.DB(r.db).Where("department = ? AND id = ?", department, id).Delete(&domain.Case{})
	return res.RowsAffected, res.Error
}
