package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/evidence-backend/internal/authz"
	"github.com/yungbote/evidence-backend/internal/data/repos"
	"github.com/yungbote/evidence-backend/internal/domain"
	"github.com/yungbote/evidence-backend/internal/platform/apierr"
	"github.com/yungbote/evidence-backend/internal/platform/dbctx"
	"github.com/yungbote/evidence-backend/internal/platform/envutil"
	"github.com/yungbote/evidence-backend/internal/platform/gcp"
	"github.com/yungbote/evidence-backend/internal/platform/logger"
)

const maxTagsPerEvidence = 50

// UploadStore is the part of the object store the upload flow needs.
type UploadStore interface {
	SignedWriteURL(ctx context.Context, path, contentType string, ttl time.Duration) (string, time.Time, error)
	Exists(ctx context.Context, path string) (bool, error)
	ObjectURL(path string) string
}

// IndexPublisher upserts search documents.
type IndexPublisher interface {
	Publish(ctx context.Context, doc domain.SearchDocument) error
}

type UploadConfig struct {
	WriteURLTTL  time.Duration
	MaxFileBytes int64
}

func LoadUploadConfig() UploadConfig {
	return UploadConfig{
		WriteURLTTL:  envutil.Minutes("UPLOAD_URL_TTL_MINUTES", gcp.DefaultWriteURLTTL),
		MaxFileBytes: int64(envutil.Int("UPLOAD_MAX_MB", 2048)) << 20,
	}
}

type InitiateUploadInput struct {
	CaseID      uuid.UUID `json:"caseId"`
	FileName    string    `json:"fileName"`
	ContentType string    `json:"contentType,omitempty"`
	FileSize    *int64    `json:"fileSize,omitempty"`
}

type InitiateUploadResult struct {
	EvidenceID uuid.UUID `json:"evidenceId"`
	WriteURL   string    `json:"writeUrl"`
	ExpiresAt  time.Time `json:"expiresAt"`
	BlobPath   string    `json:"blobPath"`
	// ContentType must be sent on the PUT when set; it is part of the signature.
	ContentType string `json:"contentType,omitempty"`
}

type ConfirmUploadInput struct {
	EvidenceID  uuid.UUID `json:"evidenceId"`
	CaseID      uuid.UUID `json:"caseId"`
	Description *string   `json:"description,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
}

// UploadCoordinator creates evidence records and the capabilities clients
// use to write the bytes directly to the object store.
type UploadCoordinator interface {
	Initiate(dbc dbctx.Context, p authz.Principal, in InitiateUploadInput) (*InitiateUploadResult, error)
	Confirm(dbc dbctx.Context, p authz.Principal, in ConfirmUploadInput) (*domain.Evidence, error)
}

type uploadCoordinator struct {
	log   *logger.Logger
	guard *authz.Guard
	repos repos.Set
	store UploadStore
	index IndexPublisher
	cfg   UploadConfig
}

func NewUploadCoordinator(log *logger.Logger, guard *authz.Guard, rs repos.Set, store UploadStore, index IndexPublisher, cfg UploadConfig) UploadCoordinator {
	if cfg.WriteURLTTL <= 0 {
		cfg.WriteURLTTL = gcp.DefaultWriteURLTTL
	}
	return &uploadCoordinator{
		log:   log.With("service", "UploadCoordinator"),
		guard: guard,
		repos: rs,
		store: store,
		index: index,
		cfg:   cfg,
	}
}

func (u *uploadCoordinator) Initiate(dbc dbctx.Context, p authz.Principal, in InitiateUploadInput) (*InitiateUploadResult, error) {
	if in.CaseID == uuid.Nil {
		return nil, apierr.Validation("missing_case_id", "caseId is required")
	}
	if strings.TrimSpace(in.FileName) == "" {
		return nil, apierr.Validation("missing_file_name", "fileName is required")
	}
	if in.FileSize != nil {
		if *in.FileSize < 0 {
			return nil, apierr.Validation("invalid_file_size", "fileSize must not be negative")
		}
		if u.cfg.MaxFileBytes > 0 && *in.FileSize > u.cfg.MaxFileBytes {
			return nil, apierr.Validation("file_too_large", "fileSize exceeds the upload limit")
		}
	}

	theCase, err := u.repos.Cases.GetByID(dbc, in.CaseID)
	if err != nil {
		return nil, fmt.Errorf("load case: %w", err)
	}
	if theCase == nil {
		return nil, apierr.NotFound("case_not_found", "case not found")
	}
	if err := u.guard.Authorize(p, authz.ActionWrite, theCase.Department).Err(); err != nil {
		return nil, err
	}

	id := uuid.New()
	name := domain.SanitizeFileName(in.FileName)
	contentType := strings.TrimSpace(in.ContentType)
	ft := domain.ClassifyFile(name, contentType)
	autoTags := domain.NormalizeTags(domain.AutoTags(name, ft))
	blobPath := domain.BlobPath(theCase.ID, id, name)
	dept := theCase.Department
	now := nowUTC()

	ev := &domain.Evidence{
		ID:              id,
		CaseID:          theCase.ID,
		Department:      &dept,
		FileName:        name,
		FileType:        ft,
		FileSize:        in.FileSize,
		BlobPathRaw:     blobPath,
		BlobURLRaw:      u.store.ObjectURL(blobPath),
		UploadedAt:      now,
		UploadedBy:      p.Subject,
		AutoTags:        datatypes.JSONSlice[string](autoTags),
		Tags:            datatypes.JSONSlice[string](autoTags),
		Status:          domain.EvidenceStatusUploaded,
		StatusUpdatedAt: now,
	}
	if contentType != "" {
		ev.ContentType = &contentType
	}
	if err := u.repos.Evidence.Create(dbc, ev); err != nil {
		return nil, fmt.Errorf("create evidence: %w", err)
	}

	writeURL, expiresAt, err := u.store.SignedWriteURL(dbc.Ctx, blobPath, contentType, u.cfg.WriteURLTTL)
	if err != nil {
		// Without a capability the record can never receive bytes.
		if _, delErr := u.repos.Evidence.Delete(dbc, ev.CaseID, ev.ID); delErr != nil {
			u.log.Warn("Rollback of unsigned evidence failed", "evidence_id", ev.ID, "error", delErr)
		}
		return nil, err
	}

	u.log.Info("Upload initiated",
		"evidence_id", id,
		"case_id", theCase.ID,
		"file_type", ft,
		"subject", p.Subject,
	)
	return &InitiateUploadResult{
		EvidenceID:  id,
		WriteURL:    writeURL,
		ExpiresAt:   expiresAt,
		BlobPath:    blobPath,
		ContentType: contentType,
	}, nil
}

func (u *uploadCoordinator) Confirm(dbc dbctx.Context, p authz.Principal, in ConfirmUploadInput) (*domain.Evidence, error) {
	if in.EvidenceID == uuid.Nil {
		return nil, apierr.Validation("missing_evidence_id", "evidenceId is required")
	}
	desc := optionalText(in.Description)
	if desc != nil {
		if err := checkLength("description", *desc, maxDescriptionLength); err != nil {
			return nil, err
		}
	}
	userTags := domain.NormalizeTags(in.Tags)
	if len(userTags) > maxTagsPerEvidence {
		return nil, apierr.Validation("too_many_tags", "too many tags")
	}

	ev, err := u.repos.Evidence.Get(dbc, in.CaseID, in.EvidenceID)
	if err != nil {
		return nil, fmt.Errorf("load evidence: %w", err)
	}
	if ev == nil {
		other, err := u.repos.Evidence.GetByID(dbc, in.EvidenceID)
		if err != nil {
			return nil, fmt.Errorf("load evidence: %w", err)
		}
		if other != nil {
			otherDept, err := evidenceDepartment(dbc, u.repos.Cases, other)
			if err != nil {
				return nil, err
			}
			if err := u.guard.Authorize(p, authz.ActionWrite, otherDept).Err(); err != nil {
				return nil, err
			}
			u.log.Warn("Confirm with mismatched case", "evidence_id", in.EvidenceID, "case_id", in.CaseID)
			return nil, apierr.Conflict("case_mismatch", "evidence does not belong to the given case")
		}
		return nil, apierr.NotFound("evidence_not_found", "evidence not found")
	}

	dept, err := evidenceDepartment(dbc, u.repos.Cases, ev)
	if err != nil {
		return nil, err
	}
	if err := u.guard.Authorize(p, authz.ActionWrite, dept).Err(); err != nil {
		return nil, err
	}
	if ev.ConfirmedAt != nil {
		return nil, apierr.Conflict("already_confirmed", "upload already confirmed")
	}

	exists, err := u.store.Exists(dbc.Ctx, ev.BlobPathRaw)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apierr.Conflict("upload_not_found", "no object has been uploaded for this evidence")
	}

	tags := domain.NormalizeTags(ev.AutoTags, userTags)
	n, err := u.repos.Evidence.ConfirmMetadata(dbc, ev.CaseID, ev.ID, desc, userTags, tags, nowUTC())
	if err != nil {
		return nil, fmt.Errorf("confirm metadata: %w", err)
	}
	if n == 0 {
		return nil, apierr.Conflict("already_confirmed", "upload already confirmed")
	}

	updated, err := u.repos.Evidence.Get(dbc, ev.CaseID, ev.ID)
	if err != nil {
		return nil, fmt.Errorf("reload evidence: %w", err)
	}
	if updated == nil {
		return nil, apierr.NotFound("evidence_not_found", "evidence not found")
	}

	// Ingestion may have finished before the client confirmed; its index
	// document predates the confirmed tags.
	if updated.Status == domain.EvidenceStatusCompleted && u.index != nil {
		if err := u.index.Publish(dbc.Ctx, domain.NewSearchDocument(updated)); err != nil {
			u.log.Warn("Republish after confirm failed", "evidence_id", updated.ID, "error", err)
		}
	}
	return updated, nil
}
