package services

import (
	"fmt"
	"strings"

	"github.com/yungbote/evidence-backend/internal/authz"
	"github.com/yungbote/evidence-backend/internal/data/repos"
	"github.com/yungbote/evidence-backend/internal/domain"
	"github.com/yungbote/evidence-backend/internal/platform/apierr"
	"github.com/yungbote/evidence-backend/internal/platform/dbctx"
	"github.com/yungbote/evidence-backend/internal/platform/identity"
	"github.com/yungbote/evidence-backend/internal/platform/logger"
)

// PrincipalResolver turns verified token claims into an authorization
// principal. The user record is read on every call; department assignments
// are never cached between requests.
type PrincipalResolver interface {
	Resolve(dbc dbctx.Context, claims *identity.Claims) (authz.Principal, *domain.UserRecord, error)
}

type principalResolver struct {
	log   *logger.Logger
	users repos.UserRecordRepo
}

func NewPrincipalResolver(log *logger.Logger, users repos.UserRecordRepo) PrincipalResolver {
	return &principalResolver{
		log:   log.With("service", "PrincipalResolver"),
		users: users,
	}
}

func (r *principalResolver) Resolve(dbc dbctx.Context, claims *identity.Claims) (authz.Principal, *domain.UserRecord, error) {
	if claims == nil || strings.TrimSpace(claims.Subject) == "" {
		return authz.Principal{}, nil, apierr.Unauthenticated("missing subject")
	}
	rec, err := r.users.Get(dbc, claims.Subject)
	if err != nil {
		return authz.Principal{}, nil, fmt.Errorf("load user record: %w", err)
	}

	p := authz.Principal{
		Subject: claims.Subject,
		Roles:   mergeRoles(claims.Roles, recordRoles(rec)),
	}
	if rec != nil && rec.Department != nil {
		p.Department = strings.TrimSpace(*rec.Department)
	}
	if p.NeedsDepartment() && p.Department == "" {
		r.log.Debug("Case officer without department assignment", "subject", claims.Subject)
	}
	return p, rec, nil
}

func recordRoles(rec *domain.UserRecord) []string {
	if rec == nil {
		return nil
	}
	return rec.Roles
}

// mergeRoles lowercases and de-duplicates roles while keeping first-seen order.
func mergeRoles(sets ...[]string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, set := range sets {
		for _, r := range set {
			r = strings.ToLower(strings.TrimSpace(r))
			if r == "" {
				continue
			}
			if _, ok := seen[r]; ok {
				continue
			}
			seen[r] = struct{}{}
			out = append(out, r)
		}
	}
	return out
}
