package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var leadingArticles = []string{"the ", "a ", "an "}

// Normalize returns the comparison form of a title. Any string is accepted,
// including the empty string.
func Normalize(title string) string {
	if strings.TrimSpace(title) == "" {
		return ""
	}
	lowered := cases.Lower(language.Und).String(norm.NFC.String(title))

	var b strings.Builder
	b.Grow(len(lowered))
	pendingSpace := false
	for _, r := range lowered {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
		case unicode.IsSpace(r):
			pendingSpace = true
		}
	}
	return stripArticles(b.String())
}

// stripArticles removes leading articles until none remain, so that
// Normalize stays idempotent for titles such as "The A Team".
func stripArticles(value string) string {
	for {
		stripped := false
		for _, article := range leadingArticles {
			if rest, ok := strings.CutPrefix(value, article); ok {
				value = rest
				stripped = true
				break
			}
		}
		if !stripped {
			return value
		}
	}
}
