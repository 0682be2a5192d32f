// Package htmlsanitize checks that user-supplied names are plain text.
//
// Names are stored exactly as typed, so nothing is stripped or decoded here.
// A name is refused when the strict policy would have to change it.
package htmlsanitize

import (
	"errors"
	"html"

	"github.com/microcosm-cc/bluemonday"
)

// ErrMarkup is returned for text containing HTML tags or character entities.
var ErrMarkup = errors.New("must be plain text without HTML tags or entities")

// strict removes every tag. bluemonday policies are safe for concurrent use.
var strict = bluemonday.StrictPolicy()

// Plain reports whether s passes through the strict policy unchanged. The
// policy escapes bare "&", "<" and quotes, so its output is compared after
// unescaping; a literal entity in s decodes to something else and fails.
func Plain(s string) bool {
	if s == "" {
		return true
	}
	return html.UnescapeString(strict.Sanitize(s)) == s
}

// CheckText returns ErrMarkup unless s is plain text.
func CheckText(s string) error {
	if !Plain(s) {
		return ErrMarkup
	}
	return nil
}
