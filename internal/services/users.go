package services

import (
	"fmt"
	"strings"

	"gorm.io/datatypes"

	"github.com/yungbote/evidence-backend/internal/authz"
	"github.com/yungbote/evidence-backend/internal/data/repos"
	"github.com/yungbote/evidence-backend/internal/domain"
	"github.com/yungbote/evidence-backend/internal/platform/apierr"
	"github.com/yungbote/evidence-backend/internal/platform/dbctx"
	"github.com/yungbote/evidence-backend/internal/platform/identity"
	"github.com/yungbote/evidence-backend/internal/platform/logger"
)

var knownRoles = map[string]struct{}{
	domain.RoleAdmin:       {},
	domain.RoleDetective:   {},
	domain.RoleCaseOfficer: {},
	domain.RoleProsecutor:  {},
}

type UpsertUserInput struct {
	DisplayName *string  `json:"displayName,omitempty"`
	Email       *string  `json:"email,omitempty"`
	Roles       []string `json:"roles"`
	Department  *string  `json:"department,omitempty"`
}

type Me struct {
	Subject     string             `json:"subject"`
	Tenant      string             `json:"tenant,omitempty"`
	DisplayName string             `json:"displayName,omitempty"`
	Username    string             `json:"username,omitempty"`
	Roles       []string           `json:"roles"`
	Department  string             `json:"department,omitempty"`
	Record      *domain.UserRecord `json:"record,omitempty"`
}

// UserService governs user records. Only manage_users may change them.
type UserService interface {
	Me(dbc dbctx.Context, claims *identity.Claims) (*Me, error)
	List(dbc dbctx.Context, p authz.Principal) ([]*domain.UserRecord, error)
	Upsert(dbc dbctx.Context, p authz.Principal, id string, in UpsertUserInput) (*domain.UserRecord, error)
}

type userService struct {
	log      *logger.Logger
	guard    *authz.Guard
	repos    repos.Set
	resolver PrincipalResolver
}

func NewUserService(log *logger.Logger, guard *authz.Guard, rs repos.Set, resolver PrincipalResolver) UserService {
	return &userService{
		log:      log.With("service", "UserService"),
		guard:    guard,
		repos:    rs,
		resolver: resolver,
	}
}

func (s *userService) Me(dbc dbctx.Context, claims *identity.Claims) (*Me, error) {
	p, rec, err := s.resolver.Resolve(dbc, claims)
	if err != nil {
		return nil, err
	}
	roles := p.Roles
	if roles == nil {
		roles = []string{}
	}
	return &Me{
		Subject:     p.Subject,
		Tenant:      claims.Tenant,
		DisplayName: claims.DisplayName,
		Username:    claims.Username,
		Roles:       roles,
		Department:  p.Department,
		Record:      rec,
	}, nil
}

func (s *userService) List(dbc dbctx.Context, p authz.Principal) ([]*domain.UserRecord, error) {
	if err := s.guard.Authorize(p, authz.ActionManageUsers, "").Err(); err != nil {
		return nil, err
	}
	out, err := s.repos.Users.List(dbc)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return out, nil
}

func (s *userService) Upsert(dbc dbctx.Context, p authz.Principal, id string, in UpsertUserInput) (*domain.UserRecord, error) {
	if err := s.guard.Authorize(p, authz.ActionManageUsers, "").Err(); err != nil {
		return nil, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apierr.Validation("missing_user_id", "user id is required")
	}
	roles := mergeRoles(in.Roles)
	for _, r := range roles {
		if _, ok := knownRoles[r]; !ok {
			return nil, apierr.Validation("invalid_role", fmt.Sprintf("unknown role %q", r))
		}
	}
	dept := optionalText(in.Department)
	if dept != nil {
		found, err := s.repos.Departments.GetByID(dbc, *dept)
		if err != nil {
			return nil, fmt.Errorf("load department: %w", err)
		}
		if found == nil {
			return nil, apierr.Validation("unknown_department", "department does not exist")
		}
	}

	rec := &domain.UserRecord{
		ID:          id,
		DisplayName: optionalText(in.DisplayName),
		Email:       optionalText(in.Email),
		Roles:       datatypes.JSONSlice[string](roles),
		Department:  dept,
		CreatedAt:   nowUTC(),
	}
	if err := s.repos.Users.Upsert(dbc, rec); err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	s.log.Info("User record updated", "user_id", id, "roles", roles, "subject", p.Subject)

	out, err := s.repos.Users.Get(dbc, id)
	if err != nil {
		return nil, fmt.Errorf("reload user: %w", err)
	}
	return out, nil
}
