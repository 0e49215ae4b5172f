package services

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/evidence-backend/internal/data/repos/testutil"
	"github.com/yungbote/evidence-backend/internal/domain"
	"github.com/yungbote/evidence-backend/internal/platform/apierr"
)

func newUploadCoordinator(t *testing.T, h *harness) UploadCoordinator {
	t.Helper()
	return NewUploadCoordinator(testutil.Logger(t), h.guard, h.repos, h.store, h.index, UploadConfig{MaxFileBytes: 1 << 20})
}

func TestInitiateCreatesUploadedEvidence(t *testing.T) {
	h := newHarness(t)
	testutil.SeedDepartment(t, h.ctx, h.tx, "district_a")
	c := testutil.SeedCase(t, h.ctx, h.tx, "district_a")
	up := newUploadCoordinator(t, h)

	size := int64(1234)
	res, err := up.Initiate(h.dbc, detective(), InitiateUploadInput{
		CaseID:      c.ID,
		FileName:    "Scan #1 (final).PDF",
		ContentType: "application/pdf",
		FileSize:    &size,
	})
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	wantPath := c.ID.String() + "/" + res.EvidenceID.String() + "/Scan_1_final_.PDF"
	if res.BlobPath != wantPath {
		t.Fatalf("blob path: want=%q got=%q", wantPath, res.BlobPath)
	}
	if !strings.HasSuffix(res.WriteURL, wantPath) {
		t.Fatalf("write url not scoped to path: %q", res.WriteURL)
	}
	if h.store.lastTTL != 10*time.Minute {
		t.Fatalf("ttl: want=%s got=%s", 10*time.Minute, h.store.lastTTL)
	}
	if h.store.lastCT != "application/pdf" {
		t.Fatalf("content type: want=%q got=%q", "application/pdf", h.store.lastCT)
	}

	ev, err := h.repos.Evidence.Get(h.dbc, c.ID, res.EvidenceID)
	if err != nil || ev == nil {
		t.Fatalf("Get evidence: ev=%v err=%v", ev, err)
	}
	if ev.Status != domain.EvidenceStatusUploaded {
		t.Fatalf("status: want=%s got=%s", domain.EvidenceStatusUploaded, ev.Status)
	}
	if ev.FileType != domain.FileTypeDocument {
		t.Fatalf("file type: want=%s got=%s", domain.FileTypeDocument, ev.FileType)
	}
	if ev.DepartmentOrEmpty() != "district_a" {
		t.Fatalf("department: want=district_a got=%q", ev.DepartmentOrEmpty())
	}
	if ev.BlobURLRaw != "gs://test-bucket/"+wantPath {
		t.Fatalf("blob url: got=%q", ev.BlobURLRaw)
	}
	ref, err := domain.ParseBlobPath(ev.BlobPathRaw)
	if err != nil || ref.CaseID != c.ID || ref.EvidenceID != ev.ID {
		t.Fatalf("path round trip: ref=%+v err=%v", ref, err)
	}
}

func TestInitiateAuthorization(t *testing.T) {
	h := newHarness(t)
	testutil.SeedDepartment(t, h.ctx, h.tx, "district_a")
	c := testutil.SeedCase(t, h.ctx, h.tx, "district_a")
	up := newUploadCoordinator(t, h)

	in := InitiateUploadInput{CaseID: c.ID, FileName: "a.txt"}

	if _, err := up.Initiate(h.dbc, officer("district_b"), in); apierr.ReasonOf(err) != apierr.ReasonWrongDepartment {
		t.Fatalf("officer other dept: want=%s got=%v", apierr.ReasonWrongDepartment, err)
	}
	if _, err := up.Initiate(h.dbc, prosecutor(), in); apierr.ReasonOf(err) != apierr.ReasonMissingRole {
		t.Fatalf("prosecutor: want=%s got=%v", apierr.ReasonMissingRole, err)
	}
	if _, err := up.Initiate(h.dbc, adminOnly(), in); apierr.ReasonOf(err) != apierr.ReasonMissingRole {
		t.Fatalf("admin: want=%s got=%v", apierr.ReasonMissingRole, err)
	}
	if _, err := up.Initiate(h.dbc, officer(""), in); apierr.ReasonOf(err) != apierr.ReasonMissingDepartmentAssignment {
		t.Fatalf("unassigned officer: want=%s got=%v", apierr.ReasonMissingDepartmentAssignment, err)
	}
	if _, err := up.Initiate(h.dbc, officer("district_a"), in); err != nil {
		t.Fatalf("officer same dept: %v", err)
	}
}

func TestInitiateValidation(t *testing.T) {
	h := newHarness(t)
	testutil.SeedDepartment(t, h.ctx, h.tx, "district_a")
	c := testutil.SeedCase(t, h.ctx, h.tx, "district_a")
	up := newUploadCoordinator(t, h)

	neg := int64(-1)
	huge := int64(2 << 20)
	for name, in := range map[string]InitiateUploadInput{
		"missing case":  {FileName: "a.txt"},
		"missing name":  {CaseID: c.ID, FileName: "  "},
		"negative size": {CaseID: c.ID, FileName: "a.txt", FileSize: &neg},
		"too large":     {CaseID: c.ID, FileName: "a.txt", FileSize: &huge},
	} {
		if _, err := up.Initiate(h.dbc, detective(), in); !apierr.IsKind(err, apierr.KindValidation) {
			t.Fatalf("%s: want validation error got=%v", name, err)
		}
	}
	if _, err := up.Initiate(h.dbc, detective(), InitiateUploadInput{CaseID: uuid.New(), FileName: "a.txt"}); !apierr.IsKind(err, apierr.KindNotFound) {
		t.Fatalf("unknown case: want not found got=%v", err)
	}
}

func TestInitiateRollsBackWhenSigningFails(t *testing.T) {
	h := newHarness(t)
	testutil.SeedDepartment(t, h.ctx, h.tx, "district_a")
	c := testutil.SeedCase(t, h.ctx, h.tx, "district_a")
	h.store.signErr = apierr.Upstream("object_store", 403, "forbidden", errBoom)
	up := newUploadCoordinator(t, h)

	if _, err := up.Initiate(h.dbc, detective(), InitiateUploadInput{CaseID: c.ID, FileName: "a.txt"}); !apierr.IsKind(err, apierr.KindUpstream) {
		t.Fatalf("want upstream error got=%v", err)
	}
	n, err := h.repos.Evidence.CountByCase(h.dbc, c.ID)
	if err != nil {
		t.Fatalf("CountByCase: %v", err)
	}
	if n != 0 {
		t.Fatalf("evidence rows after failed signing: want=0 got=%d", n)
	}
}

func TestConfirmRejectsOrphan(t *testing.T) {
	h := newHarness(t)
	testutil.SeedDepartment(t, h.ctx, h.tx, "district_a")
	c := testutil.SeedCase(t, h.ctx, h.tx, "district_a")
	ev := testutil.SeedEvidence(t, h.ctx, h.tx, c, "notes.txt", domain.EvidenceStatusUploaded)
	up := newUploadCoordinator(t, h)

	_, err := up.Confirm(h.dbc, detective(), ConfirmUploadInput{EvidenceID: ev.ID, CaseID: c.ID})
	if e, ok := apierr.As(err); !ok || e.Kind != apierr.KindConflict || e.Code != "upload_not_found" {
		t.Fatalf("want conflict upload_not_found got=%v", err)
	}
	after, _ := h.repos.Evidence.Get(h.dbc, c.ID, ev.ID)
	if after.Status != domain.EvidenceStatusUploaded || after.ConfirmedAt != nil {
		t.Fatalf("record changed: status=%s confirmedAt=%v", after.Status, after.ConfirmedAt)
	}
}

func TestConfirmCaseMismatch(t *testing.T) {
	h := newHarness(t)
	testutil.SeedDepartment(t, h.ctx, h.tx, "district_a")
	c := testutil.SeedCase(t, h.ctx, h.tx, "district_a")
	other := testutil.SeedCase(t, h.ctx, h.tx, "district_a")
	ev := testutil.SeedEvidence(t, h.ctx, h.tx, c, "notes.txt", domain.EvidenceStatusUploaded)
	h.store.put(ev.BlobPathRaw)
	up := newUploadCoordinator(t, h)

	for _, caseID := range []uuid.UUID{other.ID, uuid.Nil} {
		_, err := up.Confirm(h.dbc, detective(), ConfirmUploadInput{EvidenceID: ev.ID, CaseID: caseID})
		if e, ok := apierr.As(err); !ok || e.Code != "case_mismatch" {
			t.Fatalf("case %s: want case_mismatch got=%v", caseID, err)
		}
	}
	_, err := up.Confirm(h.dbc, detective(), ConfirmUploadInput{EvidenceID: uuid.New(), CaseID: c.ID})
	if !apierr.IsKind(err, apierr.KindNotFound) {
		t.Fatalf("unknown evidence: want not found got=%v", err)
	}
}

func TestConfirmCaseMismatchIsAuthorizedFirst(t *testing.T) {
	h := newHarness(t)
	testutil.SeedDepartment(t, h.ctx, h.tx, "district_a")
	testutil.SeedDepartment(t, h.ctx, h.tx, "district_b")
	c := testutil.SeedCase(t, h.ctx, h.tx, "district_a")
	own := testutil.SeedCase(t, h.ctx, h.tx, "district_b")
	ev := testutil.SeedEvidence(t, h.ctx, h.tx, c, "notes.txt", domain.EvidenceStatusUploaded)
	h.store.put(ev.BlobPathRaw)
	up := newUploadCoordinator(t, h)

	_, err := up.Confirm(h.dbc, officer("district_b"), ConfirmUploadInput{EvidenceID: ev.ID, CaseID: own.ID})
	if apierr.ReasonOf(err) != apierr.ReasonWrongDepartment {
		t.Fatalf("officer other dept: want=%s got=%v", apierr.ReasonWrongDepartment, err)
	}
	_, err = up.Confirm(h.dbc, officer("district_a"), ConfirmUploadInput{EvidenceID: ev.ID, CaseID: own.ID})
	if e, ok := apierr.As(err); !ok || e.Code != "case_mismatch" {
		t.Fatalf("officer same dept: want case_mismatch got=%v", err)
	}
}

func TestConfirmMergesTagsOnce(t *testing.T) {
	h := newHarness(t)
	testutil.SeedDepartment(t, h.ctx, h.tx, "district_a")
	c := testutil.SeedCase(t, h.ctx, h.tx, "district_a")
	ev := testutil.SeedEvidence(t, h.ctx, h.tx, c, "photo.jpg", domain.EvidenceStatusUploaded)
	h.store.put(ev.BlobPathRaw)
	up := newUploadCoordinator(t, h)

	desc := "  front door  "
	got, err := up.Confirm(h.dbc, officer("district_a"), ConfirmUploadInput{
		EvidenceID:  ev.ID,
		CaseID:      c.ID,
		Description: &desc,
		Tags:        []string{"Exterior", "image", " exterior "},
	})
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	want := []string{"exterior", "image", "jpg"}
	if strings.Join(got.Tags, ",") != strings.Join(want, ",") {
		t.Fatalf("tags: want=%v got=%v", want, got.Tags)
	}
	if strings.Join(got.UserTags, ",") != "exterior,image" {
		t.Fatalf("user tags: got=%v", got.UserTags)
	}
	if got.Description == nil || *got.Description != "front door" {
		t.Fatalf("description: got=%v", got.Description)
	}
	if len(h.index.published) != 0 {
		t.Fatalf("publish before processing: want=0 got=%d", len(h.index.published))
	}

	_, err = up.Confirm(h.dbc, officer("district_a"), ConfirmUploadInput{EvidenceID: ev.ID, CaseID: c.ID})
	if e, ok := apierr.As(err); !ok || e.Code != "already_confirmed" {
		t.Fatalf("second confirm: want already_confirmed got=%v", err)
	}
}

func TestConfirmRepublishesCompletedEvidence(t *testing.T) {
	h := newHarness(t)
	testutil.SeedDepartment(t, h.ctx, h.tx, "district_a")
	c := testutil.SeedCase(t, h.ctx, h.tx, "district_a")
	ev := testutil.SeedEvidence(t, h.ctx, h.tx, c, "memo.txt", domain.EvidenceStatusCompleted)
	h.store.put(ev.BlobPathRaw)
	up := newUploadCoordinator(t, h)

	if _, err := up.Confirm(h.dbc, detective(), ConfirmUploadInput{EvidenceID: ev.ID, CaseID: c.ID, Tags: []string{"witness"}}); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if len(h.index.published) != 1 {
		t.Fatalf("publish count: want=1 got=%d", len(h.index.published))
	}
	doc := h.index.published[0]
	if doc.ID != ev.ID.String() || !containsString(doc.Tags, "witness") {
		t.Fatalf("published doc: %+v", doc)
	}
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
