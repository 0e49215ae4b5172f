package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const (
	MaxFileNameLength = 200
	// DerivedRoot holds extraction output, outside the upload namespace so
	// it never fires the ingestion trigger.
	DerivedRoot = "_derived"
)

var ErrNotEvidencePath = errors.New("object path is not an evidence path")

// BlobRef is the correlation key decoded from an object path.
type BlobRef struct {
	CaseID     uuid.UUID
	EvidenceID uuid.UUID
	FileName   string
}

// SanitizeFileName keeps [A-Za-z0-9._-], replaces every other run with a
// single underscore and caps the length while preserving the extension.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	var b strings.Builder
	lastUnderscore := false
	for _, r := range name {
		allowed := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '.' || r == '-' || r == '_'
		if !allowed {
			r = '_'
		}
		if r == '_' {
			if lastUnderscore {
				continue
			}
			lastUnderscore = true
		} else {
			lastUnderscore = false
		}
		b.WriteRune(r)
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "file"
	}
	if len(out) > MaxFileNameLength {
		ext := ""
		if i := strings.LastIndex(out, "."); i > 0 && len(out)-i <= 16 {
			ext = out[i:]
		}
		out = strings.TrimRight(out[:MaxFileNameLength-len(ext)], "._") + ext
	}
	return out
}

// BlobPath builds the canonical object path {caseId}/{evidenceId}/{fileName}.
func BlobPath(caseID, evidenceID uuid.UUID, sanitizedName string) string {
	return fmt.Sprintf("%s/%s/%s", caseID, evidenceID, sanitizedName)
}

// ParseBlobPath decomposes a canonical object path. Paths under DerivedRoot
// and paths without case and evidence segments return ErrNotEvidencePath.
func ParseBlobPath(p string) (BlobRef, error) {
	p = strings.TrimPrefix(strings.TrimSpace(p), "/")
	parts := strings.SplitN(p, "/", 3)
	if len(parts) != 3 || parts[0] == DerivedRoot {
		return BlobRef{}, ErrNotEvidencePath
	}
	caseID, err := uuid.Parse(parts[0])
	if err != nil {
		return BlobRef{}, fmt.Errorf("%w: case segment %q", ErrNotEvidencePath, parts[0])
	}
	evidenceID, err := uuid.Parse(parts[1])
	if err != nil {
		return BlobRef{}, fmt.Errorf("%w: evidence segment %q", ErrNotEvidencePath, parts[1])
	}
	if strings.TrimSpace(parts[2]) == "" {
		return BlobRef{}, fmt.Errorf("%w: empty file name", ErrNotEvidencePath)
	}
	return BlobRef{CaseID: caseID, EvidenceID: evidenceID, FileName: parts[2]}, nil
}

func CasePrefix(caseID uuid.UUID) string {
	return caseID.String() + "/"
}

func EvidencePrefix(caseID, evidenceID uuid.UUID) string {
	return fmt.Sprintf("%s/%s/", caseID, evidenceID)
}

func DerivedCasePrefix(caseID uuid.UUID) string {
	return fmt.Sprintf("%s/%s/", DerivedRoot, caseID)
}

func DerivedPrefix(caseID, evidenceID uuid.UUID) string {
	return fmt.Sprintf("%s/%s/%s/", DerivedRoot, caseID, evidenceID)
}
