// Package normalize trims and canonicalizes form and query values before
// they reach validation or the stores.
package normalize

import (
	"strings"

	"github.com/dalemusser/waffle/pantry/text"
)

// Email trims and lowercases an address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims surrounding whitespace and collapses inner runs of spaces.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// QueryParam trims a free-text query value, preserving case.
func QueryParam(s string) string {
	return strings.TrimSpace(s)
}

// Filter normalizes a list filter value: "all" (any case) and blank both
// mean "no filter" and come back as "".
func Filter(s string) string {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "all") {
		return ""
	}
	return s
}

// Enum trims and lowercases a value drawn from a fixed set (status, role).
func Enum(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Slug builds a URL slug from a display name: diacritics folded, anything
// that is not a letter or digit collapsed to single hyphens.
func Slug(s string) string {
	folded := text.Fold(s)
	var b strings.Builder
	dash := false
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		default:
			if b.Len() > 0 && !dash {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
