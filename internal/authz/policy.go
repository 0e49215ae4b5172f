package authz

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed policy.yaml
var defaultPolicy []byte

const modelText = `
[request_definition]
r = role, act

[policy_definition]
p = role, act, scope

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.role == p.role && r.act == p.act
`

type Scope string

const (
	ScopeAll        Scope = "all"
	ScopeDepartment Scope = "department"
)

type policyDoc struct {
	Roles map[string]map[string]string `yaml:"roles"`
}

type rule struct {
	Role   string
	Action Action
	Scope  Scope
}

func parsePolicy(raw []byte) ([]rule, error) {
	var doc policyDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse policy: %w", err)
	}
	var rules []rule
	for role, actions := range doc.Roles {
		for act, scope := range actions {
			s := Scope(scope)
			if s != ScopeAll && s != ScopeDepartment {
				return nil, fmt.Errorf("policy %s/%s: unknown scope %q", role, act, scope)
			}
			a := Action(act)
			if !a.valid() {
				return nil, fmt.Errorf("policy %s: unknown action %q", role, act)
			}
			rules = append(rules, rule{Role: role, Action: a, Scope: s})
		}
	}
	sort.Slice(rules, func(i, j int) bool {
		if rules[i].Role == rules[j].Role {
			return rules[i].Action < rules[j].Action
		}
		return rules[i].Role < rules[j].Role
	})
	return rules, nil
}
