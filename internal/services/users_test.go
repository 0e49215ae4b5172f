package services

import (
	"testing"

	"github.com/yungbote/evidence-backend/internal/data/repos/testutil"
	"github.com/yungbote/evidence-backend/internal/platform/apierr"
	"github.com/yungbote/evidence-backend/internal/platform/identity"
)

func newUserService(t *testing.T, h *harness) UserService {
	t.Helper()
	log := testutil.Logger(t)
	return NewUserService(log, h.guard, h.repos, NewPrincipalResolver(log, h.repos.Users))
}

func TestUpsertUserRequiresManageUsers(t *testing.T) {
	h := newHarness(t)
	testutil.SeedDepartment(t, h.ctx, h.tx, "district_a")
	us := newUserService(t, h)

	dept := "district_a"
	in := UpsertUserInput{Roles: []string{"Case_Officer"}, Department: &dept}
	if _, err := us.Upsert(h.dbc, detective(), "sub-9", in); apierr.ReasonOf(err) != apierr.ReasonMissingRole {
		t.Fatalf("detective upsert: want=%s got=%v", apierr.ReasonMissingRole, err)
	}
	rec, err := us.Upsert(h.dbc, adminOnly(), "sub-9", in)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if rec.Department == nil || *rec.Department != "district_a" || len(rec.Roles) != 1 || rec.Roles[0] != "case_officer" {
		t.Fatalf("record: %+v", rec)
	}

	// Department reassignment takes effect on the next request.
	other := "district_b"
	testutil.SeedDepartment(t, h.ctx, h.tx, other)
	if _, err := us.Upsert(h.dbc, adminOnly(), "sub-9", UpsertUserInput{Roles: []string{"case_officer"}, Department: &other}); err != nil {
		t.Fatalf("Upsert reassignment: %v", err)
	}
	me, err := us.Me(h.dbc, &identity.Claims{Subject: "sub-9"})
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if me.Department != "district_b" {
		t.Fatalf("department after reassignment: want=district_b got=%q", me.Department)
	}
}

func TestUpsertUserValidation(t *testing.T) {
	h := newHarness(t)
	us := newUserService(t, h)

	if _, err := us.Upsert(h.dbc, adminOnly(), "sub-1", UpsertUserInput{Roles: []string{"sheriff"}}); !apierr.IsKind(err, apierr.KindValidation) {
		t.Fatalf("unknown role: want validation got=%v", err)
	}
	missing := "nowhere"
	if _, err := us.Upsert(h.dbc, adminOnly(), "sub-1", UpsertUserInput{Department: &missing}); !apierr.IsKind(err, apierr.KindValidation) {
		t.Fatalf("unknown department: want validation got=%v", err)
	}
	list, err := us.List(h.dbc, adminOnly())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("list: want=0 got=%d", len(list))
	}
	if _, err := us.List(h.dbc, prosecutor()); apierr.ReasonOf(err) != apierr.ReasonMissingRole {
		t.Fatalf("prosecutor list: want=%s got=%v", apierr.ReasonMissingRole, err)
	}
}
