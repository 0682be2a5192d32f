// Package normalize canonicalises user input before it is compared or stored.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Email trims surrounding whitespace and lower-cases the address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims a display name and collapses runs of inner whitespace.
// Case and accents are preserved.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Key folds a name for case- and accent-insensitive comparison:
// "Sofá" and "sofa " yield the same key.
func Key(s string) string {
	// transform chains keep state, so build one per call.
	strip := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(strip, Name(s))
	if err != nil {
		out = Name(s)
	}
	return cases.Fold().String(out)
}

// SameKey reports whether a and b normalize to the same key.
func SameKey(a, b string) bool {
	return Key(a) == Key(b)
}
