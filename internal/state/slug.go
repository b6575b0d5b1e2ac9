package state

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const maxSlugRunes = 50

var deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify reduces a title to a lowercase hyphenated token safe for file
// names. Diacritics are stripped, anything outside [a-z0-9] becomes a
// hyphen, and the result is capped at 50 runes.
func Slugify(title string) string {
	flattened, _, err := transform.String(deaccent, title)
	if err != nil {
		flattened = title
	}

	var sb strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(flattened) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				sb.WriteRune('-')
				lastHyphen = true
			}
		}
	}

	slug := strings.Trim(sb.String(), "-")
	if len([]rune(slug)) > maxSlugRunes {
		slug = strings.Trim(string([]rune(slug)[:maxSlugRunes]), "-")
	}
	if slug == "" {
		slug = "untitled"
	}
	return slug
}
