package domain

import (
	"sort"
	"strings"
	"unicode/utf8"
)

const MaxTagLength = 64

// NormalizeTags trims, lowercases and de-duplicates tags from all inputs.
func NormalizeTags(sets ...[]string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, set := range sets {
		for _, t := range set {
			t = strings.ToLower(strings.TrimSpace(t))
			if t == "" {
				continue
			}
			t = truncateTag(t)
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}

// truncateTag cuts t to at most MaxTagLength bytes on a rune boundary.
func truncateTag(t string) string {
	if len(t) <= MaxTagLength {
		return t
	}
	cut := MaxTagLength
	for cut > 0 && !utf8.RuneStart(t[cut]) {
		cut--
	}
	return t[:cut]
}
