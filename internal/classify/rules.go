package classify

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	yearDirPattern       = regexp.MustCompile(`^[0-9]{4}/$`)
	documentationPattern = regexp.MustCompile(`^documentation/$`)
	dataPattern          = regexp.MustCompile(`^data/$`)
	byStatePattern       = regexp.MustCompile(`^[0-9]_year(_by_state)?/?$`)
	excludedGroupPattern = regexp.MustCompile(`^[0-9]_year_(seq_by_state|entire_sf)/?$`)
	fileTemplatePattern  = regexp.MustCompile(`File(_)?Templates\.zip`)

	// leafPayloadPattern accepts, inside one region directory: the summary
	// archive (all_al.zip or al_all.zip), geography archives, legacy
	// geography text files (g20061al.txt) and dated geography files
	// (algeo.2009-1yr).
	leafPayloadPattern = regexp.MustCompile(`^((all_[a-z]{2}\.zip)|([a-z]{2}_all\.zip)|(geo.*\.zip)|(g[0-9]{4}.*\.txt)|([a-z]{2}geo\.[0-9]{4}-[0-9]yr))$`)
)

// IsYearDir reports whether label is a year directory such as "2013/".
func IsYearDir(label string) bool {
	return yearDirPattern.MatchString(label)
}

// Year returns the year of a year directory label, without the slash.
func Year(label string) string {
	return strings.TrimSuffix(label, "/")
}

// IsDocumentationDir reports whether label is the documentation branch of a year.
func IsDocumentationDir(label string) bool {
	return documentationPattern.MatchString(label)
}

// IsDataDir reports whether label is the data branch of a year.
func IsDataDir(label string) bool {
	return dataPattern.MatchString(label)
}

// IsExcludedGroup reports whether label is a sequence-table or entire-file
// grouping. These hold very large redundant bundles and are never entered.
func IsExcludedGroup(label string) bool {
	return excludedGroupPattern.MatchString(label)
}

// IsByStateGroup reports whether label is an intermediate grouping the
// crawler descends through, such as "1_year/" or "5_year_by_state/".
func IsByStateGroup(label string) bool {
	return byStatePattern.MatchString(label) && !IsExcludedGroup(label)
}

// IsFileTemplateArchive reports whether label names a summary file
// template archive, e.g. "2010_1yr_Summary_FileTemplates.zip".
// The match is case-sensitive.
func IsFileTemplateArchive(label string) bool {
	return fileTemplatePattern.MatchString(label)
}

// IsLeafPayload reports whether label is one of the files wanted inside a
// region directory.
func IsLeafPayload(label string) bool {
	return leafPayloadPattern.MatchString(label)
}

// HasExtension reports whether label ends with one of exts.
func HasExtension(label string, exts []string) bool {
	for _, ext := range exts {
		if strings.HasSuffix(label, ext) {
			return true
		}
	}
	return false
}

// ErrAmbiguousRegion is returned when two suffix readings of one label
// name two different configured regions.
var ErrAmbiguousRegion = errors.New("label matches more than one region")

const archiveExt = ".zip"

// Region archive suffixes, placed between the region name and ".zip".
const (
	SuffixAllGeographies        = "_All_Geographies"
	SuffixNotTractsBlockGroups  = "_All_Geographies_Not_Tracts_Block_Groups"
	SuffixTractsBlockGroupsOnly = "_Tracts_Block_Groups_Only"
)

// RegionMatcher maps labels onto configured region names.
type RegionMatcher struct {
	has      func(string) bool
	suffixes []string
}

// NewRegionMatcher builds a matcher over the regions accepted by has.
// With tractsAndBlockGroups set, "_Tracts_Block_Groups_Only" archives are
// also recognised.
func NewRegionMatcher(has func(string) bool, tractsAndBlockGroups bool) RegionMatcher {
	suffixes := []string{"", SuffixAllGeographies, SuffixNotTractsBlockGroups}
	if tractsAndBlockGroups {
		suffixes = append(suffixes, SuffixTractsBlockGroupsOnly)
	}
	return RegionMatcher{has: has, suffixes: suffixes}
}

// Match returns the region named by an archive label such as
// "Alabama_All_Geographies.zip". Each known suffix is tried; the label
// matches when stripping it leaves exactly a configured region. ok is
// false when no reading matches. ErrAmbiguousRegion is returned when two
// readings name different regions.
func (m RegionMatcher) Match(label string) (region string, ok bool, err error) {
	base, found := strings.CutSuffix(label, archiveExt)
	if !found {
		return "", false, nil
	}
	for _, sfx := range m.suffixes {
		name, cut := strings.CutSuffix(base, sfx)
		if !cut || !m.has(name) {
			continue
		}
		if ok && name != region {
			return "", false, fmt.Errorf("%w: %q is %q or %q", ErrAmbiguousRegion, label, region, name)
		}
		region, ok = name, true
	}
	return region, ok, nil
}

// MatchDir returns the region named by a directory label such as "Alabama/".
func (m RegionMatcher) MatchDir(label string) (string, bool) {
	name := strings.Trim(label, "/")
	if m.has(name) {
		return name, true
	}
	return "", false
}
