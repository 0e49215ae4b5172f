package authz

import (
	"fmt"
	"strings"
	"sync"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/yungbote/evidence-backend/internal/domain"
	"github.com/yungbote/evidence-backend/internal/platform/apierr"
)

type Action string

const (
	ActionRead        Action = "read"
	ActionWrite       Action = "write"
	ActionDelete      Action = "delete"
	ActionManageUsers Action = "manage_users"
)

func (a Action) valid() bool {
	switch a {
	case ActionRead, ActionWrite, ActionDelete, ActionManageUsers:
		return true
	}
	return false
}

type DenyReason = apierr.Reason

const (
	MissingRole                 = apierr.ReasonMissingRole
	WrongDepartment             = apierr.ReasonWrongDepartment
	MissingDepartmentAssignment = apierr.ReasonMissingDepartmentAssignment
)

// Principal is an authenticated caller. Department is the assignment read
// from the caller's user record; it is empty when none exists.
type Principal struct {
	Subject    string
	Roles      []string
	Department string
}

func (p Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if strings.EqualFold(strings.TrimSpace(r), role) {
			return true
		}
	}
	return false
}

// NeedsDepartment reports whether the principal holds a department-scoped role.
func (p Principal) NeedsDepartment() bool {
	return p.HasRole(domain.RoleCaseOfficer)
}

type Decision struct {
	Allowed bool
	Reason  DenyReason
	// Scope is the widest scope that granted the action.
	Scope Scope
}

func Allow(scope Scope) Decision { return Decision{Allowed: true, Scope: scope} }

func Deny(reason DenyReason) Decision { return Decision{Reason: reason} }

// Err converts a denial into an authorization error; nil when allowed.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return apierr.Forbidden(d.Reason)
}

// Guard evaluates role and department claims. It performs no I/O.
type Guard struct {
	mu       sync.RWMutex
	enforcer *casbin.Enforcer
}

func NewGuard() (*Guard, error) {
	return NewGuardFromPolicy(defaultPolicy)
}

func NewGuardFromPolicy(raw []byte) (*Guard, error) {
	rules, err := parsePolicy(raw)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("casbin model: %w", err)
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("casbin enforcer: %w", err)
	}
	for _, r := range rules {
		if _, err := e.AddPolicy(r.Role, string(r.Action), string(r.Scope)); err != nil {
			return nil, fmt.Errorf("add policy %s/%s: %w", r.Role, r.Action, err)
		}
	}
	return &Guard{enforcer: e}, nil
}

// Authorize decides whether p may perform action on a resource owned by
// resourceDepartment. An empty resourceDepartment denotes a listing that
// spans departments; department-scoped principals are then allowed and the
// caller must narrow the listing with ScopeFor.
func (g *Guard) Authorize(p Principal, action Action, resourceDepartment string) Decision {
	scope, ok := g.widestScope(p, action)
	if !ok {
		return Deny(MissingRole)
	}
	if scope == ScopeAll {
		return Allow(ScopeAll)
	}
	assigned := strings.TrimSpace(p.Department)
	if assigned == "" {
		return Deny(MissingDepartmentAssignment)
	}
	if resourceDepartment != "" && resourceDepartment != assigned {
		return Deny(WrongDepartment)
	}
	return Allow(ScopeDepartment)
}

// ScopeFor returns the department a listing must be restricted to, or ""
// when the principal may see every department. It assumes Authorize allowed.
func (g *Guard) ScopeFor(p Principal, action Action) string {
	scope, ok := g.widestScope(p, action)
	if !ok || scope == ScopeAll {
		return ""
	}
	return strings.TrimSpace(p.Department)
}

func (g *Guard) widestScope(p Principal, action Action) (Scope, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	found := false
	widest := ScopeDepartment
	for _, role := range p.Roles {
		role = strings.ToLower(strings.TrimSpace(role))
		if role == "" {
			continue
		}
		ok, explain, err := g.enforcer.EnforceEx(role, string(action))
		if err != nil || !ok || len(explain) < 3 {
			continue
		}
		found = true
		if Scope(explain[2]) == ScopeAll {
			widest = ScopeAll
		}
	}
	return widest, found
}
