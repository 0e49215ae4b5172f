package services

import (
	"strings"
	"testing"

	"github.com/yungbote/evidence-backend/internal/data/repos/testutil"
	"github.com/yungbote/evidence-backend/internal/domain"
	"github.com/yungbote/evidence-backend/internal/platform/apierr"
)

func newEvidenceService(t *testing.T, h *harness) EvidenceService {
	t.Helper()
	return NewEvidenceService(testutil.Logger(t), h.guard, h.repos, h.store, h.index, newCascade(t, h), nil, 0)
}

func TestSearchForcesOfficerDepartment(t *testing.T) {
	h := newHarness(t)
	es := newEvidenceService(t, h)

	if _, err := es.Search(h.dbc, officer("district_a"), SearchInput{Text: "knife", Tag: `a"b`}); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if h.index.lastQuery.Department != "district_a" {
		t.Fatalf("department: want=district_a got=%q", h.index.lastQuery.Department)
	}
	if h.index.lastQuery.Tag != `a"b` {
		t.Fatalf("tag passed through: got=%q", h.index.lastQuery.Tag)
	}

	if _, err := es.Search(h.dbc, officer("district_a"), SearchInput{Department: "district_b"}); apierr.ReasonOf(err) != apierr.ReasonWrongDepartment {
		t.Fatalf("officer other dept: want=%s got=%v", apierr.ReasonWrongDepartment, err)
	}
	if _, err := es.Search(h.dbc, adminOnly(), SearchInput{}); apierr.ReasonOf(err) != apierr.ReasonMissingRole {
		t.Fatalf("admin search: want=%s got=%v", apierr.ReasonMissingRole, err)
	}

	if _, err := es.Search(h.dbc, prosecutor(), SearchInput{Status: "completed"}); err != nil {
		t.Fatalf("prosecutor search: %v", err)
	}
	if h.index.lastQuery.Department != "" || h.index.lastQuery.Status != "COMPLETED" {
		t.Fatalf("prosecutor query: %+v", h.index.lastQuery)
	}
	if _, err := es.Search(h.dbc, prosecutor(), SearchInput{CaseID: "not-a-uuid"}); !apierr.IsKind(err, apierr.KindValidation) {
		t.Fatalf("bad case id: want validation got=%v", err)
	}
}

func TestReadURLRequiresConfirmedUpload(t *testing.T) {
	h := newHarness(t)
	testutil.SeedDepartment(t, h.ctx, h.tx, "district_a")
	c := testutil.SeedCase(t, h.ctx, h.tx, "district_a")
	pending := testutil.SeedEvidence(t, h.ctx, h.tx, c, "a.txt", domain.EvidenceStatusUploaded)
	done := testutil.SeedEvidence(t, h.ctx, h.tx, c, "b.txt", domain.EvidenceStatusCompleted)
	es := newEvidenceService(t, h)

	if _, err := es.ReadURL(h.dbc, prosecutor(), c.ID, pending.ID); !apierr.IsKind(err, apierr.KindConflict) {
		t.Fatalf("unconfirmed: want conflict got=%v", err)
	}
	u, err := es.ReadURL(h.dbc, prosecutor(), c.ID, done.ID)
	if err != nil {
		t.Fatalf("ReadURL: %v", err)
	}
	if !strings.HasSuffix(u.URL, done.BlobPathRaw) || h.store.lastMethod != "GET" {
		t.Fatalf("read url: %+v method=%s", u, h.store.lastMethod)
	}
	if _, err := es.ReadURL(h.dbc, officer("district_b"), c.ID, done.ID); apierr.ReasonOf(err) != apierr.ReasonWrongDepartment {
		t.Fatalf("officer other dept: want=%s got=%v", apierr.ReasonWrongDepartment, err)
	}
}

func TestListEvidenceByCase(t *testing.T) {
	h := newHarness(t)
	testutil.SeedDepartment(t, h.ctx, h.tx, "district_a")
	c := testutil.SeedCase(t, h.ctx, h.tx, "district_a")
	testutil.SeedEvidence(t, h.ctx, h.tx, c, "a.txt", domain.EvidenceStatusUploaded)
	testutil.SeedEvidence(t, h.ctx, h.tx, c, "b.txt", domain.EvidenceStatusUploaded)
	es := newEvidenceService(t, h)

	list, err := es.ListByCase(h.dbc, officer("district_a"), c.ID)
	if err != nil {
		t.Fatalf("ListByCase: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("count: want=2 got=%d", len(list))
	}
}
