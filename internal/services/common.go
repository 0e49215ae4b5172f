package services

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/yungbote/evidence-backend/internal/platform/apierr"
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 4000
	maxNoteLength        = 10000
)

func nowUTC() time.Time { return time.Now().UTC() }

// optionalText trims v and turns blank input into nil.
func optionalText(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return nil
	}
	return &s
}

func checkLength(field string, v string, max int) error {
	if utf8.RuneCountInString(v) > max {
		return apierr.Validation("invalid_"+field, field+" is too long")
	}
	return nil
}

func requireText(field, v string, max int) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", apierr.Validation("missing_"+field, field+" is required")
	}
	if err := checkLength(field, v, max); err != nil {
		return "", err
	}
	return v, nil
}
