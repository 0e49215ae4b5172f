package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestBlobPathRoundTrip(t *testing.T) {
	names := []string{
		"report.pdf",
		"photo of scene (1).JPG",
		"../../etc/passwd",
		"ünïcødé.txt",
		"a/b/c.png",
		"",
		strings.Repeat("x", 500) + ".tiff",
	}
	for _, name := range names {
		caseID := uuid.New()
		evidenceID := uuid.New()
		sanitized := SanitizeFileName(name)
		p := BlobPath(caseID, evidenceID, sanitized)

		ref, err := ParseBlobPath(p)
		if err != nil {
			t.Fatalf("ParseBlobPath(%q): %v", p, err)
		}
		if ref.CaseID != caseID {
			t.Fatalf("case id (%q): want=%s got=%s", name, caseID, ref.CaseID)
		}
		if ref.EvidenceID != evidenceID {
			t.Fatalf("evidence id (%q): want=%s got=%s", name, evidenceID, ref.EvidenceID)
		}
		if ref.FileName != sanitized {
			t.Fatalf("file name (%q): want=%q got=%q", name, sanitized, ref.FileName)
		}
		if !strings.HasPrefix(p, EvidencePrefix(caseID, evidenceID)) {
			t.Fatalf("path %q outside evidence prefix", p)
		}
	}
}

func TestSanitizeFileName(t *testing.T) {
	cases := map[string]string{
		"report.pdf":           "report.pdf",
		"photo of scene 1.JPG": "photo_of_scene_1.JPG",
		"../../etc/passwd":     "passwd",
		`C:\temp\memo.txt`:     "memo.txt",
		"   ":                  "file",
		"...":                  "file",
		"a  &&  b.csv":         "a_b.csv",
	}
	for in, want := range cases {
		if got := SanitizeFileName(in); got != want {
			t.Fatalf("SanitizeFileName(%q): want=%q got=%q", in, want, got)
		}
	}
}

func TestSanitizeFileNameCapsLengthKeepingExtension(t *testing.T) {
	got := SanitizeFileName(strings.Repeat("a", 400) + ".pdf")
	if len(got) > MaxFileNameLength {
		t.Fatalf("length: want<=%d got=%d", MaxFileNameLength, len(got))
	}
	if !strings.HasSuffix(got, ".pdf") {
		t.Fatalf("extension lost: %q", got)
	}
}

func TestParseBlobPathRejects(t *testing.T) {
	caseID := uuid.New()
	evidenceID := uuid.New()
	bad := []string{
		"",
		caseID.String(),
		caseID.String() + "/" + evidenceID.String(),
		caseID.String() + "/not-a-uuid/file.pdf",
		"not-a-uuid/" + evidenceID.String() + "/file.pdf",
		DerivedPrefix(caseID, evidenceID) + "output-1.json",
		caseID.String() + "/" + evidenceID.String() + "/",
	}
	for _, p := range bad {
		if _, err := ParseBlobPath(p); !errors.Is(err, ErrNotEvidencePath) {
			t.Fatalf("ParseBlobPath(%q): want ErrNotEvidencePath got=%v", p, err)
		}
	}
}

func TestClassifyFile(t *testing.T) {
	cases := []struct {
		name, contentType string
		want              FileType
	}{
		{"scan.PDF", "", FileTypeDocument},
		{"page.tiff", "", FileTypeDocument},
		{"img.jpeg", "", FileTypeImage},
		{"notes.txt", "", FileTypeText},
		{"call.mp3", "", FileTypeAudio},
		{"cctv.mov", "", FileTypeVideo},
		{"blob", "image/heic", FileTypeImage},
		{"blob", "text/plain; charset=utf-8", FileTypeText},
		{"archive.zip", "application/zip", FileTypeOther},
	}
	for _, tc := range cases {
		if got := ClassifyFile(tc.name, tc.contentType); got != tc.want {
			t.Fatalf("ClassifyFile(%q,%q): want=%s got=%s", tc.name, tc.contentType, tc.want, got)
		}
	}
	if FileTypeAudio.Extractable() || FileTypeVideo.Extractable() {
		t.Fatalf("audio/video must not be extractable")
	}
}

func TestNormalizeTagsUnion(t *testing.T) {
	got := NormalizeTags([]string{"image", "jpg"}, []string{" Weapon ", "image", ""})
	want := []string{"image", "jpg", "weapon"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("NormalizeTags: want=%v got=%v", want, got)
	}
}
