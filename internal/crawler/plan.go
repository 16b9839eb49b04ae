package crawler

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/nao1215/acsmirror/internal/classify"
	"github.com/nao1215/acsmirror/internal/listing"
)

// Local names of the two branches of a year directory.
const (
	DocumentationDir = "documentation"
	DataDir          = "data"
)

// ShellsDir is the local directory holding the table shells tree.
const ShellsDir = "table_shells"

// Plan decides what to do with every entry of l, the listing of t.
// Actions are returned in execution order. Entries nothing accepts are
// returned as skips after the accepted ones.
//
// For a KindYearDir task without exactly one documentation and one data
// branch, Plan returns a *listing.StructureError.
func (c *Crawler) Plan(t Task, l listing.Listing) ([]Action, error) {
	switch t.Kind {
	case KindRoot, KindShellsRoot:
		return c.planRoot(t, l.Sorted()), nil
	case KindYearDir:
		return c.planYear(t, l.Sorted())
	case KindGenericFetch:
		return c.planGeneric(t, l), nil
	case KindRegionFetch:
		return c.planRegion(t, l.Sorted()), nil
	case KindRegionLeaf:
		return c.planLeaf(t, l.Sorted()), nil
	default:
		return nil, fmt.Errorf("unknown task kind %v", t.Kind)
	}
}

func (c *Crawler) planRoot(t Task, links []Link) []Action {
	var accepted, skipped []Action
	for _, link := range links {
		role, _, _ := classify.Classify(link.Label, classify.RoleOtherDirectory, c.matcher)
		if role != classify.RoleYear {
			skipped = append(skipped, skip(t, link, role, "not a year directory"))
			continue
		}
		year := classify.Year(link.Label)
		if !c.settings.IncludesYear(year) {
			skipped = append(skipped, skip(t, link, role, "year not selected"))
			continue
		}
		u, err := resolve(t.URL, link.Href)
		if err != nil {
			skipped = append(skipped, skipErr(t, link, role, err))
			continue
		}

		child := Task{Kind: KindYearDir, URL: u, Dir: filepath.Join(t.Dir, year), Year: year}
		if t.Kind == KindShellsRoot {
			child.Kind = KindGenericFetch
			child.Extensions = c.settings.ShellExtensions()
		}
		accepted = append(accepted, Action{Kind: ActionDescend, Link: link, Role: role, Year: year, Task: child})
	}
	return append(accepted, skipped...)
}

func (c *Crawler) planYear(t Task, links []Link) ([]Action, error) {
	var docs, data []Link
	var skipped []Action
	for _, link := range links {
		role, _, _ := classify.Classify(link.Label, classify.RoleYear, c.matcher)
		switch role {
		case classify.RoleDocumentation:
			docs = append(docs, link)
		case classify.RoleData:
			data = append(data, link)
		default:
			skipped = append(skipped, skip(t, link, role, "not a documentation or data branch"))
		}
	}
	if len(docs) != 1 {
		return nil, &listing.StructureError{URL: t.URL, Reason: fmt.Sprintf("found %d documentation directories, want 1", len(docs))}
	}
	if len(data) != 1 {
		return nil, &listing.StructureError{URL: t.URL, Reason: fmt.Sprintf("found %d data directories, want 1", len(data))}
	}

	docURL, err := resolve(t.URL, docs[0].Href)
	if err != nil {
		return nil, &listing.StructureError{URL: t.URL, Reason: err.Error()}
	}
	dataURL, err := resolve(t.URL, data[0].Href)
	if err != nil {
		return nil, &listing.StructureError{URL: t.URL, Reason: err.Error()}
	}

	docTask := t.child(KindGenericFetch, docURL, filepath.Join(t.Dir, DocumentationDir))
	docTask.Extensions = c.settings.DocExtensions()
	dataTask := t.child(KindRegionFetch, dataURL, filepath.Join(t.Dir, DataDir))

	actions := []Action{
		{Kind: ActionDescend, Link: docs[0], Role: classify.RoleDocumentation, Year: t.Year, Task: docTask},
		{Kind: ActionDescend, Link: data[0], Role: classify.RoleData, Year: t.Year, Task: dataTask},
	}
	return append(actions, skipped...), nil
}

func (c *Crawler) planGeneric(t Task, l listing.Listing) []Action {
	var dirs, files, skipped []Action
	for _, link := range l.Dirs() {
		a, ok := c.descend(t, link, classify.RoleOtherDirectory, KindGenericFetch)
		if ok {
			dirs = append(dirs, a)
		} else {
			skipped = append(skipped, a)
		}
	}
	for _, link := range l.Files() {
		if !classify.HasExtension(link.Label, t.Extensions) {
			skipped = append(skipped, skip(t, link, classify.RoleOtherFile, "extension not selected"))
			continue
		}
		a, ok := c.download(t, link, classify.RoleOtherFile)
		if ok {
			files = append(files, a)
		} else {
			skipped = append(skipped, a)
		}
	}
	actions := append(dirs, files...)
	return append(actions, skipped...)
}

// planRegion orders its actions in four groups: region archives, region
// directories, file template archives, by-state groupings.
func (c *Crawler) planRegion(t Task, links []Link) []Action {
	var archives, regions, templates, groups, skipped []Action
	for _, link := range links {
		role, region, err := classify.Classify(link.Label, classify.RoleData, c.matcher)
		if err != nil {
			skipped = append(skipped, skipErr(t, link, role, err))
			continue
		}
		switch role {
		case classify.RoleState:
			if link.IsDir() {
				a, ok := c.descend(t, link, role, KindRegionLeaf)
				a.Task.Region = region
				if ok {
					regions = append(regions, a)
				} else {
					skipped = append(skipped, a)
				}
				continue
			}
			a, ok := c.download(t, link, role)
			if ok {
				archives = append(archives, a)
			} else {
				skipped = append(skipped, a)
			}
		case classify.RoleFileTemplateArchive:
			a, ok := c.download(t, link, role)
			if ok {
				templates = append(templates, a)
			} else {
				skipped = append(skipped, a)
			}
		case classify.RoleByStateGroup:
			a, ok := c.descend(t, link, role, KindRegionFetch)
			if ok {
				groups = append(groups, a)
			} else {
				skipped = append(skipped, a)
			}
		default:
			reason := "no region rule matches"
			if classify.IsExcludedGroup(link.Label) {
				reason = "excluded grouping"
			}
			skipped = append(skipped, skip(t, link, role, reason))
		}
	}

	actions := make([]Action, 0, len(links))
	for _, group := range [][]Action{archives, regions, templates, groups, skipped} {
		actions = append(actions, group...)
	}
	return actions
}

func (c *Crawler) planLeaf(t Task, links []Link) []Action {
	var files, skipped []Action
	for _, link := range links {
		role, _, _ := classify.Classify(link.Label, classify.RoleState, c.matcher)
		if role != classify.RoleStateLeafArchive {
			skipped = append(skipped, skip(t, link, role, "not a region payload file"))
			continue
		}
		a, ok := c.download(t, link, role)
		if ok {
			files = append(files, a)
		} else {
			skipped = append(skipped, a)
		}
	}
	return append(files, skipped...)
}

// descend builds a descend action into link. ok is false, and the action
// is a skip, when the link cannot be mapped to a URL and a local name.
func (c *Crawler) descend(t Task, link Link, role classify.Role, kind Kind) (Action, bool) {
	name, ok := localName(link.Label)
	if !ok {
		return skip(t, link, role, "unsafe local name"), false
	}
	u, err := resolve(t.URL, link.Href)
	if err != nil {
		return skipErr(t, link, role, err), false
	}
	return Action{
		Kind: ActionDescend,
		Link: link,
		Role: role,
		Year: t.Year,
		Task: t.child(kind, u, filepath.Join(t.Dir, name)),
	}, true
}

// download builds a download action for link, like descend.
func (c *Crawler) download(t Task, link Link, role classify.Role) (Action, bool) {
	name, ok := localName(link.Label)
	if !ok {
		return skip(t, link, role, "unsafe local name"), false
	}
	u, err := resolve(t.URL, link.Href)
	if err != nil {
		return skipErr(t, link, role, err), false
	}
	return Action{
		Kind: ActionDownload,
		Link: link,
		Role: role,
		Year: t.Year,
		URL:  u,
		Path: filepath.Join(t.Dir, name),
	}, true
}

// Link is a listing entry.
type Link = listing.Link

func skip(t Task, link Link, role classify.Role, reason string) Action {
	return Action{Kind: ActionSkip, Link: link, Role: role, Year: t.Year, Reason: reason}
}

func skipErr(t Task, link Link, role classify.Role, err error) Action {
	a := skip(t, link, role, err.Error())
	a.Err = err
	return a
}

// localName returns the local file or directory name for a label. Local
// names equal remote labels, without a directory's trailing slash.
func localName(label string) (string, bool) {
	name := strings.TrimSuffix(label, "/")
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", false
	}
	return name, true
}

// resolve returns href relative to the directory URL base.
func resolve(base, href string) (string, error) {
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid directory URL %q: %w", base, err)
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("invalid href %q: %w", href, err)
	}
	return b.ResolveReference(ref).String(), nil
}
