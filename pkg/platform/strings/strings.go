// Package strings provides small text utilities shared across the pipeline.
package strings

import "strings"

// DedupeAndTrim removes duplicate and empty strings from a slice, trimming
// whitespace. Order of first occurrence is preserved.
func DedupeAndTrim(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// maxSlugLen keeps identifiers short enough to stay readable in logs and URLs.
const maxSlugLen = 48

// Slug lowercases the input and collapses every run of non-alphanumeric
// characters into a single hyphen. The result is truncated to 48 characters
// and stripped of leading and trailing hyphens. Empty input yields "untitled".
func Slug(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastHyphen := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	out := strings.Trim(b.String(), "-")
	if len(out) > maxSlugLen {
		out = strings.Trim(out[:maxSlugLen], "-")
	}
	if out == "" {
		return "untitled"
	}
	return out
}
