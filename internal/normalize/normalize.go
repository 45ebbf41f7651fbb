// Package normalize canonicalizes free-text classifier fields such as
// product and form type so that "Autoavaliação" and "autoavaliacao" compare equal.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize decomposes accented characters, drops combining marks and any
// remaining non-ASCII runes, trims surrounding whitespace and lower-cases.
// It never fails; on a transform error the input is processed without decomposition.
func Normalize(text string) string {
	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		runes.Remove(runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII })),
	)

	out, _, err := transform.String(t, text)
	if err != nil {
		out = strings.Map(func(r rune) rune {
			if r > unicode.MaxASCII {
				return -1
			}
			return r
		}, text)
	}

	return strings.ToLower(strings.TrimSpace(out))
}

// Contains reports whether the normalized form of s contains the normalized substr
func Contains(s, substr string) bool {
	return strings.Contains(Normalize(s), Normalize(substr))
}
