package colsearch

import (
	"regexp"
	"strings"
)

// YearPlaceholder is replaced by a year capture group in patterns.
const YearPlaceholder = "{year}"

const yearGroup = `(?P<year>[0-9]{4})`

var yearPattern = regexp.MustCompile(`[0-9]{4}`)

// FlipParens swaps the meaning of escaped and unescaped parentheses:
// "(" becomes a literal `\(` and `\(` becomes a grouping "(". Other
// backslash escapes are kept.
func FlipParens(pattern string) string {
	var b strings.Builder
	backslashes := 0
	for _, r := range pattern {
		switch r {
		case '\\':
			backslashes++
		case '(', ')':
			if backslashes%2 == 0 {
				b.WriteString(strings.Repeat(`\`, backslashes+1))
			} else {
				b.WriteString(strings.Repeat(`\`, backslashes-1))
			}
			b.WriteRune(r)
			backslashes = 0
		default:
			b.WriteString(strings.Repeat(`\`, backslashes))
			backslashes = 0
			b.WriteRune(r)
		}
	}
	b.WriteString(strings.Repeat(`\`, backslashes))
	return b.String()
}

// ExpandPattern replaces the first {year} placeholder with a named
// four-digit year group.
func ExpandPattern(pattern string) string {
	return strings.Replace(pattern, YearPlaceholder, yearGroup, 1)
}

// AbstractYear replaces every four-digit run in value with {year}, so that
// names differing only in their year compare equal.
func AbstractYear(value string) string {
	return yearPattern.ReplaceAllLiteralString(value, YearPlaceholder)
}
