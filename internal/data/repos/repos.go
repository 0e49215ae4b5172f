package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/evidence-backend/internal/data/repos/custody"
	"github.com/yungbote/evidence-backend/internal/platform/logger"
)

type DepartmentRepo = custody.DepartmentRepo
type CaseRepo = custody.CaseRepo
type CaseNoteRepo = custody.CaseNoteRepo
type EvidenceRepo = custody.EvidenceRepo
type UserRecordRepo = custody.UserRecordRepo

type CaseFilter = custody.CaseFilter
type ExtractionFields = custody.ExtractionFields

type Set struct {
	Departments DepartmentRepo
	Cases       CaseRepo
	Notes       CaseNoteRepo
	Evidence    EvidenceRepo
	Users       UserRecordRepo
}

func New(db *gorm.DB, log *logger.Logger) Set {
	return Set{
		Departments: custody.NewDepartmentRepo(db, log),
		Cases:       custody.NewCaseRepo(db, log),
		Notes:       custody.NewCaseNoteRepo(db, log),
		Evidence:    custody.NewEvidenceRepo(db, log),
		Users:       custody.NewUserRecordRepo(db, log),
	}
}
