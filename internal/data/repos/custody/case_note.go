package custody

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/evidence-backend/internal/domain"
	"github.com/yungbote/evidence-backend/internal/platform/dbctx"
	"github.com/yungbote/evidence-backend/internal/platform/logger"
)

type CaseNoteRepo interface {
	// Append assigns the next sequence number within the case and inserts the note.
	Append(dbc dbctx.Context, note *domain.CaseNote) error
	ListByCase(dbc dbctx.Context, caseID uuid.UUID) ([]domain.CaseNote, error)
	Delete(dbc dbctx.Context, caseID, noteID uuid.UUID) (int64, error)
	DeleteByCase(dbc dbctx.Context, caseID uuid.UUID) (int64, error)
}

type caseNoteRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCaseNoteRepo(db *gorm.DB, baseLog *logger.Logger) CaseNoteRepo {
	repoLog := baseLog.With("repo", "CaseNoteRepo")
	return &caseNoteRepo{db: db, log: repoLog}
}

func (r *caseNoteRepo) Append(dbc dbctx.Context, note *domain.CaseNote) error {
	return dbc.DB(r.db).Transaction(func(tx *gorm.DB) error {
		var maxSeq int64
		if err := tx.Model(&domain.CaseNote{}).
			Where("case_id = ?", note.CaseID).
			Select("COALESCE(MAX(seq), 0)").
			Scan(&maxSeq).Error; err != nil {
			return err
		}
		note.Seq = maxSeq + 1
		return tx.Create(note).Error
	})
}

func (r *caseNoteRepo) ListByCase(dbc dbctx.Context, caseID uuid.UUID) ([]domain.CaseNote, error) {
	results := []domain.CaseNote{}
	if err := dbc.DB(r.db).Where("case_id = ?", caseID).Order("seq ASC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *caseNoteRepo) Delete(dbc dbctx.Context, caseID, noteID uuid.UUID) (int64, error) {
	res := dbc.DB(r.db).Where("case_id = ? AND id = ?", caseID, noteID).Delete(&domain.CaseNote{})
	return res.RowsAffected, res.Error
}

func (r *caseNoteRepo) DeleteByCase(dbc dbctx.Context, caseID uuid.UUID) (int64, error) {
	res := dbc.DB(r.db).Where("case_id = ?", caseID).Delete(&domain.CaseNote{})
	return res.RowsAffected, res.Error
}
