package services

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"gorm.io/gorm"

	"github.com/yungbote/evidence-backend/internal/authz"
	"github.com/yungbote/evidence-backend/internal/data/repos"
	"github.com/yungbote/evidence-backend/internal/domain"
	"github.com/yungbote/evidence-backend/internal/platform/apierr"
	"github.com/yungbote/evidence-backend/internal/platform/dbctx"
	"github.com/yungbote/evidence-backend/internal/platform/logger"
)

var departmentIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

type CreateDepartmentInput struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

type UpdateDepartmentInput struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

type DepartmentService interface {
	Create(dbc dbctx.Context, p authz.Principal, in CreateDepartmentInput) (*domain.Department, error)
	Get(dbc dbctx.Context, p authz.Principal, id string) (*domain.Department, error)
	List(dbc dbctx.Context, p authz.Principal) ([]*domain.Department, error)
	Update(dbc dbctx.Context, p authz.Principal, id string, in UpdateDepartmentInput) (*domain.Department, error)
	Delete(dbc dbctx.Context, p authz.Principal, id string) (*CascadeReport, error)
}

type departmentService struct {
	log     *logger.Logger
	guard   *authz.Guard
	repos   repos.Set
	cascade CascadeOrchestrator
}

func NewDepartmentService(log *logger.Logger, guard *authz.Guard, rs repos.Set, cascade CascadeOrchestrator) DepartmentService {
	return &departmentService{
		log:     log.With("service", "DepartmentService"),
		guard:   guard,
		repos:   rs,
		cascade: cascade,
	}
}

func (s *departmentService) Create(dbc dbctx.Context, p authz.Principal, in CreateDepartmentInput) (*domain.Department, error) {
	id := strings.ToLower(strings.TrimSpace(in.ID))
	if !departmentIDPattern.MatchString(id) {
		return nil, apierr.Validation("invalid_department_id", "department id must match [a-z0-9_-] and be at most 64 characters")
	}
	name, err := requireText("name", in.Name, maxTitleLength)
	if err != nil {
		return nil, err
	}
	desc := optionalText(in.Description)
	if desc != nil {
		if err := checkLength("description", *desc, maxDescriptionLength); err != nil {
			return nil, err
		}
	}
	if err := s.guard.Authorize(p, authz.ActionWrite, id).Err(); err != nil {
		return nil, err
	}

	existing, err := s.repos.Departments.GetByID(dbc, id)
	if err != nil {
		return nil, fmt.Errorf("load department: %w", err)
	}
	if existing != nil {
		return nil, apierr.Conflict("department_exists", "department already exists")
	}

	dept := &domain.Department{
		ID:          id,
		Name:        name,
		Description: desc,
		CreatedAt:   nowUTC(),
		CreatedBy:   p.Subject,
	}
	if err := s.repos.Departments.Create(dbc, dept); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apierr.Conflict("department_exists", "department already exists")
		}
		return nil, fmt.Errorf("create department: %w", err)
	}
	s.log.Info("Department created", "department", id, "subject", p.Subject)
	return dept, nil
}

func (s *departmentService) Get(dbc dbctx.Context, p authz.Principal, id string) (*domain.Department, error) {
	if err := s.guard.Authorize(p, authz.ActionRead, id).Err(); err != nil {
		return nil, err
	}
	return s.load(dbc, id)
}

func (s *departmentService) load(dbc dbctx.Context, id string) (*domain.Department, error) {
	dept, err := s.repos.Departments.GetByID(dbc, id)
	if err != nil {
		return nil, fmt.Errorf("load department: %w", err)
	}
	if dept == nil {
		return nil, apierr.NotFound("department_not_found", "department not found")
	}
	return dept, nil
}

// List returns every department, or only the caller's own for
// department-scoped principals.
func (s *departmentService) List(dbc dbctx.Context, p authz.Principal) ([]*domain.Department, error) {
	if err := s.guard.Authorize(p, authz.ActionRead, "").Err(); err != nil {
		return nil, err
	}
	if scope := s.guard.ScopeFor(p, authz.ActionRead); scope != "" {
		dept, err := s.repos.Departments.GetByID(dbc, scope)
		if err != nil {
			return nil, fmt.Errorf("load department: %w", err)
		}
		if dept == nil {
			return []*domain.Department{}, nil
		}
		return []*domain.Department{dept}, nil
	}
	out, err := s.repos.Departments.List(dbc)
	if err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	return out, nil
}

// Update is rejected once any case references the department.
func (s *departmentService) Update(dbc dbctx.Context, p authz.Principal, id string, in UpdateDepartmentInput) (*domain.Department, error) {
	if err := s.guard.Authorize(p, authz.ActionWrite, id).Err(); err != nil {
		return nil, err
	}
	if _, err := s.load(dbc, id); err != nil {
		return nil, err
	}
	n, err := s.repos.Cases.CountByDepartment(dbc, id)
	if err != nil {
		return nil, fmt.Errorf("count cases: %w", err)
	}
	if n > 0 {
		return nil, apierr.Conflict("department_in_use", "department is referenced by cases")
	}

	updates := map[string]interface{}{}
	if in.Name != nil {
		name, err := requireText("name", *in.Name, maxTitleLength)
		if err != nil {
			return nil, err
		}
		updates["name"] = name
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
	if _, err := s.repos.Departments.Update(dbc, id, updates); err != nil {
		return nil, fmt.Errorf("update department: %w", err)
	}
	return s.load(dbc, id)
}

func (s *departmentService) Delete(dbc dbctx.Context, p authz.Principal, id string) (*CascadeReport, error) {
	return s.cascade.DeleteDepartment(dbc, p, id)
}
