package sanitizer

import (
	"strings"
	"unicode"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

// TrimAndNormalize trims s and collapses every whitespace run to one space.
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

// stripControl replaces control characters with spaces. Tabs and newlines
// are whitespace and are collapsed later.
func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
}

var textPipeline = Pipeline{stripControl, TrimAndNormalize}

func NormalizeName(name string) string {
	return textPipeline.Apply(name)
}

func NormalizeTitle(title string) string {
	return textPipeline.Apply(title)
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeKey is the comparison form used for case-insensitive lookups.
func NormalizeKey(s string) string {
	return strings.ToLower(textPipeline.Apply(s))
}
