package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/evidence-backend/internal/authz"
	"github.com/yungbote/evidence-backend/internal/data/repos"
	"github.com/yungbote/evidence-backend/internal/domain"
	"github.com/yungbote/evidence-backend/internal/observability"
	"github.com/yungbote/evidence-backend/internal/platform/apierr"
	"github.com/yungbote/evidence-backend/internal/platform/dbctx"
	"github.com/yungbote/evidence-backend/internal/platform/gcp"
	"github.com/yungbote/evidence-backend/internal/platform/logger"
	"github.com/yungbote/evidence-backend/internal/search"
)

// ReadURLSigner mints read-only capabilities.
type ReadURLSigner interface {
	SignedReadURL(ctx context.Context, path string, ttl time.Duration) (string, time.Time, error)
}

// Searcher runs index queries.
type Searcher interface {
	Query(ctx context.Context, q search.Query) (*search.Result, error)
}

type ReadURL struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
	FileName  string    `json:"fileName"`
}

type SearchInput struct {
	Text       string
	CaseID     string
	Department string
	Status     string
	Tag        string
	Top        int
	Skip       int
}

type EvidenceService interface {
	Get(dbc dbctx.Context, p authz.Principal, caseID, evidenceID uuid.UUID) (*domain.Evidence, error)
	ListByCase(dbc dbctx.Context, p authz.Principal, caseID uuid.UUID) ([]*domain.Evidence, error)
	ReadURL(dbc dbctx.Context, p authz.Principal, caseID, evidenceID uuid.UUID) (*ReadURL, error)
	Search(dbc dbctx.Context, p authz.Principal, in SearchInput) (*search.Result, error)
	Delete(dbc dbctx.Context, p authz.Principal, caseID, evidenceID uuid.UUID) (*CascadeReport, error)
}

type evidenceService struct {
	log        *logger.Logger
	guard      *authz.Guard
	repos      repos.Set
	signer     ReadURLSigner
	searcher   Searcher
	cascade    CascadeOrchestrator
	metrics    *observability.Metrics
	readURLTTL time.Duration
}

func NewEvidenceService(log *logger.Logger, guard *authz.Guard, rs repos.Set, signer ReadURLSigner, searcher Searcher, cascade CascadeOrchestrator, metrics *observability.Metrics, readURLTTL time.Duration) EvidenceService {
	if readURLTTL <= 0 {
		readURLTTL = gcp.DefaultReadURLTTL
	}
	return &evidenceService{
		log:        log.With("service", "EvidenceService"),
		guard:      guard,
		repos:      rs,
		signer:     signer,
		searcher:   searcher,
		cascade:    cascade,
		metrics:    metrics,
		readURLTTL: readURLTTL,
	}
}

func (s *evidenceService) loadCase(dbc dbctx.Context, p authz.Principal, caseID uuid.UUID, action authz.Action) (*domain.Case, error) {
	c, err := s.repos.Cases.GetByID(dbc, caseID)
	if err != nil {
		return nil, fmt.Errorf("load case: %w", err)
	}
	if c == nil {
		return nil, apierr.NotFound("case_not_found", "case not found")
	}
	if err := s.guard.Authorize(p, action, c.Department).Err(); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *evidenceService) Get(dbc dbctx.Context, p authz.Principal, caseID, evidenceID uuid.UUID) (*domain.Evidence, error) {
	if _, err := s.loadCase(dbc, p, caseID, authz.ActionRead); err != nil {
		return nil, err
	}
	ev, err := s.repos.Evidence.Get(dbc, caseID, evidenceID)
	if err != nil {
		return nil, fmt.Errorf("load evidence: %w", err)
	}
	if ev == nil {
		return nil, apierr.NotFound("evidence_not_found", "evidence not found")
	}
	return ev, nil
}

func (s *evidenceService) ListByCase(dbc dbctx.Context, p authz.Principal, caseID uuid.UUID) ([]*domain.Evidence, error) {
	if _, err := s.loadCase(dbc, p, caseID, authz.ActionRead); err != nil {
		return nil, err
	}
	out, err := s.repos.Evidence.ListByCase(dbc, caseID)
	if err != nil {
		return nil, fmt.Errorf("list evidence: %w", err)
	}
	return out, nil
}

func (s *evidenceService) ReadURL(dbc dbctx.Context, p authz.Principal, caseID, evidenceID uuid.UUID) (*ReadURL, error) {
	ev, err := s.Get(dbc, p, caseID, evidenceID)
	if err != nil {
		return nil, err
	}
	if ev.ConfirmedAt == nil && ev.Status == domain.EvidenceStatusUploaded {
		return nil, apierr.Conflict("upload_not_confirmed", "upload has not been confirmed")
	}
	u, exp, err := s.signer.SignedReadURL(dbc.Ctx, ev.BlobPathRaw, s.readURLTTL)
	if err != nil {
		return nil, err
	}
	s.log.Info("Read URL issued", "evidence_id", ev.ID, "subject", p.Subject)
	return &ReadURL{URL: u, ExpiresAt: exp, FileName: ev.FileName}, nil
}

// Search queries the index. Department-scoped principals are always
// narrowed to their own department.
func (s *evidenceService) Search(dbc dbctx.Context, p authz.Principal, in SearchInput) (*search.Result, error) {
	dept := strings.TrimSpace(in.Department)
	if err := s.guard.Authorize(p, authz.ActionRead, dept).Err(); err != nil {
		return nil, err
	}
	if scope := s.guard.ScopeFor(p, authz.ActionRead); scope != "" {
		dept = scope
	}
	caseID := strings.TrimSpace(in.CaseID)
	if caseID != "" {
		if _, err := uuid.Parse(caseID); err != nil {
			return nil, apierr.Validation("invalid_case_id", "caseId must be a uuid")
		}
	}
	status := strings.ToUpper(strings.TrimSpace(in.Status))
	if status != "" && !domain.EvidenceStatus(status).Valid() {
		return nil, apierr.Validation("invalid_status", "unknown evidence status")
	}

	res, err := s.searcher.Query(dbc.Ctx, search.Query{
		Text:       in.Text,
		CaseID:     caseID,
		Department: dept,
		Status:     status,
		Tag:        in.Tag,
		Top:        in.Top,
		Skip:       in.Skip,
	})
	if err != nil {
		s.metrics.IncSearch("query", "error")
		return nil, err
	}
	s.metrics.IncSearch("query", "ok")
	return res, nil
}

func (s *evidenceService) Delete(dbc dbctx.Context, p authz.Principal, caseID, evidenceID uuid.UUID) (*CascadeReport, error) {
	return s.cascade.DeleteEvidence(dbc, p, caseID, evidenceID)
}

// evidenceDepartment never returns "" so that authorization is always
// evaluated against a concrete department.
func evidenceDepartment(dbc dbctx.Context, cases repos.CaseRepo, ev *domain.Evidence) (string, error) {
	if d := ev.DepartmentOrEmpty(); d != "" {
		return d, nil
	}
	c, err := cases.GetByID(dbc, ev.CaseID)
	if err != nil {
		return "", fmt.Errorf("load case: %w", err)
	}
	if c == nil {
		return "", apierr.NotFound("case_not_found", "case not found")
	}
	return c.Department, nil
}
