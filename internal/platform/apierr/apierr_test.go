package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOfWrapped(t *testing.T) {
	base := Conflict("upload_not_found", "object missing")
	wrapped := fmt.Errorf("confirm: %w", base)

	if got := KindOf(wrapped); got != KindConflict {
		t.Fatalf("KindOf: want=%s got=%s", KindConflict, got)
	}
	e, ok := As(wrapped)
	if !ok {
		t.Fatalf("As: expected *Error in chain")
	}
	if e.Code != "upload_not_found" {
		t.Fatalf("code: want=%q got=%q", "upload_not_found", e.Code)
	}
}

func TestKindOfUnclassified(t *testing.T) {
	if got := KindOf(errors.New("boom")); got != KindInternal {
		t.Fatalf("KindOf: want=%s got=%s", KindInternal, got)
	}
	if IsKind(nil, KindInternal) {
		t.Fatalf("IsKind(nil): want=false")
	}
}

func TestForbiddenCarriesReason(t *testing.T) {
	err := fmt.Errorf("create case: %w", Forbidden(ReasonWrongDepartment))
	if got := ReasonOf(err); got != ReasonWrongDepartment {
		t.Fatalf("ReasonOf: want=%s got=%s", ReasonWrongDepartment, got)
	}
	e, _ := As(err)
	if e.Status != http.StatusForbidden {
		t.Fatalf("status: want=%d got=%d", http.StatusForbidden, e.Status)
	}
}

func TestUpstreamKeepsCause(t *testing.T) {
	cause := errors.New("deadline")
	err := Upstream("search_index", 503, "UNAVAILABLE", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("errors.Is: expected cause in chain")
	}
	if err.UpstreamStatus != 503 || err.UpstreamCode != "UNAVAILABLE" {
		t.Fatalf("upstream fields: got status=%d code=%q", err.UpstreamStatus, err.UpstreamCode)
	}
}

func TestNewDerivesKindFromStatus(t *testing.T) {
	if got := New(http.StatusNotFound, "x", nil).Kind; got != KindNotFound {
		t.Fatalf("kind: want=%s got=%s", KindNotFound, got)
	}
}
