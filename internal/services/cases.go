package services

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/evidence-backend/internal/authz"
	"github.com/yungbote/evidence-backend/internal/data/repos"
	"github.com/yungbote/evidence-backend/internal/domain"
	"github.com/yungbote/evidence-backend/internal/platform/apierr"
	"github.com/yungbote/evidence-backend/internal/platform/dbctx"
	"github.com/yungbote/evidence-backend/internal/platform/logger"
)

type CreateCaseInput struct {
	Department  string  `json:"department"`
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
}

type UpdateCaseInput struct {
	Title       *string            `json:"title,omitempty"`
	Description *string            `json:"description,omitempty"`
	Status      *domain.CaseStatus `json:"status,omitempty"`
}

type ListCasesInput struct {
	Department string
	Status     string
}

type CaseService interface {
	Create(dbc dbctx.Context, p authz.Principal, in CreateCaseInput) (*domain.Case, error)
	Get(dbc dbctx.Context, p authz.Principal, id uuid.UUID) (*domain.Case, error)
	List(dbc dbctx.Context, p authz.Principal, in ListCasesInput) ([]*domain.Case, error)
	Update(dbc dbctx.Context, p authz.Principal, id uuid.UUID, in UpdateCaseInput) (*domain.Case, error)
	Delete(dbc dbctx.Context, p authz.Principal, id uuid.UUID) (*CascadeReport, error)

	AddNote(dbc dbctx.Context, p authz.Principal, caseID uuid.UUID, text string) (*domain.CaseNote, error)
	DeleteNote(dbc dbctx.Context, p authz.Principal, caseID, noteID uuid.UUID) error
}

type caseService struct {
	log     *logger.Logger
	guard   *authz.Guard
	repos   repos.Set
	cascade CascadeOrchestrator
}

func NewCaseService(log *logger.Logger, guard *authz.Guard, rs repos.Set, cascade CascadeOrchestrator) CaseService {
	return &caseService{
		log:     log.With("service", "CaseService"),
		guard:   guard,
		repos:   rs,
		cascade: cascade,
	}
}

func (s *caseService) Create(dbc dbctx.Context, p authz.Principal, in CreateCaseInput) (*domain.Case, error) {
	dept := strings.TrimSpace(in.Department)
	if dept == "" {
		return nil, apierr.Validation("missing_department", "department is required")
	}
	title, err := requireText("title", in.Title, maxTitleLength)
	if err != nil {
		return nil, err
	}
	desc := optionalText(in.Description)
	if desc != nil {
		if err := checkLength("description", *desc, maxDescriptionLength); err != nil {
			return nil, err
		}
	}
	if err := s.guard.Authorize(p, authz.ActionWrite, dept).Err(); err != nil {
		return nil, err
	}

	found, err := s.repos.Departments.GetByID(dbc, dept)
	if err != nil {
		return nil, fmt.Errorf("load department: %w", err)
	}
	if found == nil {
		return nil, apierr.NotFound("department_not_found", "department not found")
	}

	c := &domain.Case{
		ID:          uuid.New(),
		Department:  dept,
		Title:       title,
		Description: desc,
		Status:      domain.CaseStatusOpen,
		CreatedAt:   nowUTC(),
		CreatedBy:   p.Subject,
		Notes:       []domain.CaseNote{},
	}
	if err := s.repos.Cases.Create(dbc, c); err != nil {
		return nil, fmt.Errorf("create case: %w", err)
	}
	s.log.Info("Case created", "case_id", c.ID, "department", dept, "subject", p.Subject)
	return c, nil
}

// load resolves a case by id and authorizes action against its department.
func (s *caseService) load(dbc dbctx.Context, p authz.Principal, id uuid.UUID, action authz.Action) (*domain.Case, error) {
	c, err := s.repos.Cases.GetByID(dbc, id)
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

func (s *caseService) Get(dbc dbctx.Context, p authz.Principal, id uuid.UUID) (*domain.Case, error) {
	return s.load(dbc, p, id, authz.ActionRead)
}

func (s *caseService) List(dbc dbctx.Context, p authz.Principal, in ListCasesInput) ([]*domain.Case, error) {
	dept := strings.TrimSpace(in.Department)
	if err := s.guard.Authorize(p, authz.ActionRead, dept).Err(); err != nil {
		return nil, err
	}
	if scope := s.guard.ScopeFor(p, authz.ActionRead); scope != "" {
		dept = scope
	}
	filter := repos.CaseFilter{Department: dept}
	if raw := strings.TrimSpace(in.Status); raw != "" {
		st := domain.CaseStatus(strings.ToUpper(raw))
		if !st.Valid() {
			return nil, apierr.Validation("invalid_status", "unknown case status")
		}
		filter.Status = st
	}
	out, err := s.repos.Cases.List(dbc, filter)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	return out, nil
}

func (s *caseService) Update(dbc dbctx.Context, p authz.Principal, id uuid.UUID, in UpdateCaseInput) (*domain.Case, error) {
	c, err := s.load(dbc, p, id, authz.ActionWrite)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if in.Title != nil {
		title, err := requireText("title", *in.Title, maxTitleLength)
		if err != nil {
			return nil, err
		}
		updates["title"] = title
	}
	if in.Description != nil {
		desc := optionalText(in.Description)
		if desc != nil {
			if err := checkLength("description", *desc, maxDescriptionLength); err != nil {
				return nil, err
			}
		}
		updates["description"] = desc
	}
	if in.Status != nil {
		st := domain.CaseStatus(strings.ToUpper(strings.TrimSpace(string(*in.Status))))
		if !st.Valid() {
			return nil, apierr.Validation("invalid_status", "unknown case status")
		}
		updates["status"] = st
	}
	if len(updates) == 0 {
		return c, nil
	}
	updates["updated_at"] = nowUTC()
	if _, err := s.repos.Cases.Update(dbc, c.Department, c.ID, updates); err != nil {
		return nil, fmt.Errorf("update case: %w", err)
	}
	return s.load(dbc, p, id, authz.ActionRead)
}

func (s *caseService) Delete(dbc dbctx.Context, p authz.Principal, id uuid.UUID) (*CascadeReport, error) {
	return s.cascade.DeleteCase(dbc, p, id)
}

func (s *caseService) AddNote(dbc dbctx.Context, p authz.Principal, caseID uuid.UUID, text string) (*domain.CaseNote, error) {
	text, err := requireText("text", text, maxNoteLength)
	if err != nil {
		return nil, err
	}
	c, err := s.load(dbc, p, caseID, authz.ActionWrite)
	if err != nil {
		return nil, err
	}
	note := &domain.CaseNote{
		ID:        uuid.New(),
		CaseID:    c.ID,
		Text:      text,
		CreatedAt: nowUTC(),
		CreatedBy: p.Subject,
	}
	if err := s.repos.Notes.Append(dbc, note); err != nil {
		return nil, fmt.Errorf("append note: %w", err)
	}
	return note, nil
}

func (s *caseService) DeleteNote(dbc dbctx.Context, p authz.Principal, caseID, noteID uuid.UUID) error {
	c, err := s.load(dbc, p, caseID, authz.ActionDelete)
	if err != nil {
		return err
	}
	n, err := s.repos.Notes.Delete(dbc, c.ID, noteID)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	if n == 0 {
		return apierr.NotFound("note_not_found", "note not found")
	}
	return nil
}
