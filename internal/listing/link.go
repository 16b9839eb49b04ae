package listing

import (
	"regexp"
	"sort"
	"strings"
)

// Link is one hyperlink of a directory listing.
type Link struct {
	// Href is the link target exactly as written in the page.
	Href string

	// Label is the anchor text with whitespace runs collapsed and trimmed.
	Label string
}

// IsDir reports whether the link names a sub-directory. Directory labels
// end with a slash in the remote listings.
func (l Link) IsDir() bool {
	return strings.HasSuffix(l.Label, "/")
}

// Listing maps hrefs to labels for one remote directory. Hrefs are unique
// within a page; labels may repeat.
type Listing map[string]string

// Sorted returns the links ordered by label, then by href, so that two
// traversals of the same page visit entries in the same order.
func (l Listing) Sorted() []Link {
	links := make([]Link, 0, len(l))
	for href, label := range l {
		links = append(links, Link{Href: href, Label: label})
	}
	sort.Slice(links, func(i, j int) bool {
		if links[i].Label != links[j].Label {
			return links[i].Label < links[j].Label
		}
		return links[i].Href < links[j].Href
	})
	return links
}

// Dirs returns the sorted sub-directory links.
func (l Listing) Dirs() []Link {
	return l.filter(Link.IsDir)
}

// Files returns the sorted non-directory links.
func (l Listing) Files() []Link {
	return l.filter(func(k Link) bool { return !k.IsDir() })
}

func (l Listing) filter(keep func(Link) bool) []Link {
	var out []Link
	for _, k := range l.Sorted() {
		if keep(k) {
			out = append(out, k)
		}
	}
	return out
}

var whitespaceRun = regexp.MustCompile(`[ \t\n\r]+`)

// NormalizeLabel collapses every run of spaces, tabs and line breaks to a
// single space and trims the result.
func NormalizeLabel(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}
