package custody

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/evidence-backend/internal/domain"
	"github.com/yungbote/evidence-backend/internal/platform/dbctx"
	"github.com/yungbote/evidence-backend/internal/platform/logger"
)

// ExtractionFields are stamped on an evidence record when processing completes.
type ExtractionFields struct {
	Text     *string
	Lines    *int
	Language *string
}

type EvidenceRepo interface {
	Create(dbc dbctx.Context, ev *domain.Evidence) error
	Get(dbc dbctx.Context, caseID, id uuid.UUID) (*domain.Evidence, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Evidence, error)
	ListByCase(dbc dbctx.Context, caseID uuid.UUID) ([]*domain.Evidence, error)
	CountByCase(dbc dbctx.Context, caseID uuid.UUID) (int64, error)
	Delete(dbc dbctx.Context, caseID, id uuid.UUID) (int64, error)

	// ConfirmMetadata applies client-confirmed metadata once; a second call affects no rows.
	ConfirmMetadata(dbc dbctx.Context, caseID, id uuid.UUID, description *string, userTags, tags []string, at time.Time) (int64, error)

	// Status transitions are conditional on the version the caller observed.
	// They return false when another writer changed the record first.
	MarkProcessing(dbc dbctx.Context, caseID, id uuid.UUID, expectedVersion int64, at time.Time) (bool, error)
	MarkCompleted(dbc dbctx.Context, caseID, id uuid.UUID, expectedVersion int64, fields ExtractionFields, at time.Time) (bool, error)
	MarkFailed(dbc dbctx.Context, caseID, id uuid.UUID, expectedVersion int64, message string, at time.Time) (bool, error)
}

type evidenceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEvidenceRepo(db *gorm.DB, baseLog *logger.Logger) EvidenceRepo {
	repoLog := baseLog.With("repo", "EvidenceRepo")
	return &evidenceRepo{db: db, log: repoLog}
}

func (r *evidenceRepo) Create(dbc dbctx.Context, ev *domain.Evidence) error {
	return dbc.DB(r.db).Create(ev).Error
}

// Get is the point read by id and owning case. Returns nil, nil when absent.
func (r *evidenceRepo) Get(dbc dbctx.Context, caseID, id uuid.UUID) (*domain.Evidence, error) {
	return r.first(dbc.DB(r.db).Where("case_id = ? AND id = ?", caseID, id))
}

func (r *evidenceRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Evidence, error) {
	return r.first(dbc.DB(r.db).Where("id = ?", id))
}

func (r *evidenceRepo) first(q *gorm.DB) (*domain.Evidence, error) {
	var results []*domain.Evidence
	if err := q.Limit(1).Find(&results).Error; err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

func (r *evidenceRepo) ListByCase(dbc dbctx.Context, caseID uuid.UUID) ([]*domain.Evidence, error) {
	var results []*domain.Evidence
	if err := dbc.DB(r.db).
		Where("case_id = ?", caseID).
		Order("uploaded_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *evidenceRepo) CountByCase(dbc dbctx.Context, caseID uuid.UUID) (int64, error) {
	var n int64
	err := dbc.DB(r.db).Model(&domain.Evidence{}).Where("case_id = ?", caseID).Count(&n).Error
	return n, err
}

func (r *evidenceRepo) Delete(dbc dbctx.Context, caseID, id uuid.UUID) (int64, error) {
	res := dbc.DB(r.db).Where("case_id = ? AND id = ?", caseID, id).Delete(&domain.Evidence{})
	return res.RowsAffected, res.Error
}

func (r *evidenceRepo) ConfirmMetadata(dbc dbctx.Context, caseID, id uuid.UUID, description *string, userTags, tags []string, at time.Time) (int64, error) {
	updates := map[string]interface{}{
		"user_tags":    datatypes.JSONSlice[string](userTags),
		"tags":         datatypes.JSONSlice[string](tags),
		"confirmed_at": at,
	}
	if description != nil {
		updates["description"] = *description
	}
	res := dbc.DB(r.db).Model(&domain.Evidence{}).
		Where("case_id = ? AND id = ? AND confirmed_at IS NULL", caseID, id).
		Updates(updates)
	return res.RowsAffected, res.Error
}

// MarkProcessing never leaves COMPLETED, whatever version the caller saw.
func (r *evidenceRepo) MarkProcessing(dbc dbctx.Context, caseID, id uuid.UUID, expectedVersion int64, at time.Time) (bool, error) {
	q := dbc.DB(r.db).Where("status IN ?", []domain.EvidenceStatus{
		domain.EvidenceStatusUploaded,
		domain.EvidenceStatusFailed,
		domain.EvidenceStatusProcessing,
	})
	return r.transition(q, caseID, id, expectedVersion, map[string]interface{}{
		"status":            domain.EvidenceStatusProcessing,
		"status_updated_at": at,
		"processing_error":  nil,
	})
}

func (r *evidenceRepo) MarkCompleted(dbc dbctx.Context, caseID, id uuid.UUID, expectedVersion int64, fields ExtractionFields, at time.Time) (bool, error) {
	return r.transition(dbc.DB(r.db), caseID, id, expectedVersion, map[string]interface{}{
		"status":            domain.EvidenceStatusCompleted,
		"status_updated_at": at,
		"processed_at":      at,
		"processing_error":  nil,
		"extracted_text":    fields.Text,
		"ocr_lines":         fields.Lines,
		"ocr_language":      fields.Language,
	})
}

func (r *evidenceRepo) MarkFailed(dbc dbctx.Context, caseID, id uuid.UUID, expectedVersion int64, message string, at time.Time) (bool, error) {
	return r.transition(dbc.DB(r.db), caseID, id, expectedVersion, map[string]interface{}{
		"status":            domain.EvidenceStatusFailed,
		"status_updated_at": at,
		"processing_error":  message,
	})
}

func (r *evidenceRepo) transition(q *gorm.DB, caseID, id uuid.UUID, expectedVersion int64, updates map[string]interface{}) (bool, error) {
	updates["version"] = gorm.Expr("version + 1")
	res := q.Model(&domain.Evidence{}).
		Where("case_id = ? AND id = ? AND version = ?", caseID, id, expectedVersion).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
