package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/evidence-backend/internal/domain"
)

func SeedDepartment(tb testing.TB, ctx context.Context, tx *gorm.DB, id string) *domain.Department {
	tb.Helper()
	d := &domain.Department{
		ID:        id,
		Name:      "Department " + id,
		CreatedAt: time.Now().UTC(),
		CreatedBy: "seed",
	}
	if err := tx.WithContext(ctx).Create(d).Error; err != nil {
		tb.Fatalf("seed department: %v", err)
	}
	return d
}

func SeedCase(tb testing.TB, ctx context.Context, tx *gorm.DB, department string) *domain.Case {
	tb.Helper()
	c := &domain.Case{
		ID:         uuid.New(),
		Department: department,
		Title:      "case",
		Status:     domain.CaseStatusOpen,
		CreatedAt:  time.Now().UTC(),
		CreatedBy:  "seed",
	}
	if err := tx.WithContext(ctx).Omit("Notes").Create(c).Error; err != nil {
		tb.Fatalf("seed case: %v", err)
	}
	return c
}

func SeedEvidence(tb testing.TB, ctx context.Context, tx *gorm.DB, c *domain.Case, fileName string, status domain.EvidenceStatus) *domain.Evidence {
	tb.Helper()
	id := uuid.New()
	name := domain.SanitizeFileName(fileName)
	ft := domain.ClassifyFile(name, "")
	dept := c.Department
	now := time.Now().UTC()
	path := domain.BlobPath(c.ID, id, name)
	ev := &domain.Evidence{
		ID:              id,
		CaseID:          c.ID,
		Department:      &dept,
		FileName:        name,
		FileType:        ft,
		BlobPathRaw:     path,
		BlobURLRaw:      "gs://test-bucket/" + path,
		UploadedAt:      now,
		UploadedBy:      "seed",
		AutoTags:        datatypes.JSONSlice[string](domain.AutoTags(name, ft)),
		Tags:            datatypes.JSONSlice[string](domain.AutoTags(name, ft)),
		Status:          status,
		StatusUpdatedAt: now,
	}
	if status == domain.EvidenceStatusCompleted {
		ev.ProcessedAt = &now
	}
	if err := tx.WithContext(ctx).Create(ev).Error; err != nil {
		tb.Fatalf("seed evidence: %v", err)
	}
	return ev
}

func SeedUserRecord(tb testing.TB, ctx context.Context, tx *gorm.DB, id string, department *string, roles ...string) *domain.UserRecord {
	tb.Helper()
	u := &domain.UserRecord{
		ID:         id,
		Roles:      datatypes.JSONSlice[string](roles),
		Department: department,
		CreatedAt:  time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user record: %v", err)
	}
	return u
}
