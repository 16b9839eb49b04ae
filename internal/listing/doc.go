// Package listing fetches remote directory pages and extracts their
// hyperlinks.
//
// A directory page is an HTML document whose canonical listing is a single
// table of anchors; headers and footers around it carry navigation links
// that must not be mistaken for directory entries. The Parser therefore
// scopes extraction to that table and fails loudly with a StructureError
// when the page no longer has exactly one, which is the first sign that the
// remote layout has drifted.
//
// # Usage
//
//	p := listing.NewParser(fetch.New())
//	entries, err := p.Links(ctx, "https://www2.census.gov/programs-surveys/acs/summary_file/", true)
//	for _, l := range entries.Sorted() {
//	    fmt.Println(l.Href, l.Label, l.IsDir())
//	}
package listing
