// Package sanitizer normalizes free-text input before validation and
// persistence. It only collapses whitespace and trims; it never rejects,
// that is the validator's job.
package sanitizer

import (
	"strings"
	"unicode"
)

func TrimAndNormalize(s string) string {
	s = strings.TrimSpace(s)

	if s == "" {
		return ""
	}

	var result strings.Builder
	var lastWasSpace bool

	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				result.WriteRune(' ')
				lastWasSpace = true
			}
		} else {
			result.WriteRune(r)
			lastWasSpace = false
		}
	}

	return result.String()
}

func NormalizeName(name string) string {
	return TrimAndNormalize(name)
}

func NormalizeLocation(location string) string {
	return TrimAndNormalize(location)
}

// NormalizeText is for longer free text (reasons, descriptions, comments)
// where internal newlines are meaningful and only the edges are trimmed.
func NormalizeText(text string) string {
	return strings.TrimSpace(text)
}
