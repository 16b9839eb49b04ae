package metadata

import (
	"path/filepath"
	"regexp"
	"strconv"
)

// File kinds recognized by ParseFilename.
const (
	KindMetadata = "_metadata.csv"
	KindText     = ".txt"
	KindWithAnn  = "_with_ann.csv"
)

var (
	filenamePattern       = regexp.MustCompile(`ACS_(?P<year>[0-9][0-9])_(?P<span>[0-9])YR_(?P<table>[A-Z0-9]+)(?P<kind>_metadata\.csv|\.txt|_with_ann\.csv)`)
	legacyFilenamePattern = regexp.MustCompile(`ACS_(?P<year>[0-9][0-9])_EST_(?P<table>[A-Z0-9]+)(?P<kind>_metadata\.csv|\.txt|_with_ann\.csv)`)
)

// TableFile describes an ACS table file name.
type TableFile struct {
	// Year is the final year of the data.
	Year int

	// Span is the number of years the estimate covers. Zero when the name
	// does not say, as in the 2005 to 2006 "EST" files.
	Span int

	Table string
	Kind  string
}

// SpanString returns Span for output, or the empty string when unknown.
func (f TableFile) SpanString() string {
	if f.Span == 0 {
		return ""
	}
	return strconv.Itoa(f.Span)
}

// ParseFilename recognizes names like "ACS_14_1YR_S0902_with_ann.csv" and
// the older "ACS_05_EST_S0701_metadata.csv". Only the base name is
// examined.
func ParseFilename(name string) (TableFile, bool) {
	base := filepath.Base(name)
	if m := filenamePattern.FindStringSubmatch(base); m != nil {
		yy, _ := strconv.Atoi(m[filenamePattern.SubexpIndex("year")])
		span, _ := strconv.Atoi(m[filenamePattern.SubexpIndex("span")])
		return TableFile{
			Year:  2000 + yy,
			Span:  span,
			Table: m[filenamePattern.SubexpIndex("table")],
			Kind:  m[filenamePattern.SubexpIndex("kind")],
		}, true
	}
	if m := legacyFilenamePattern.FindStringSubmatch(base); m != nil {
		yy, _ := strconv.Atoi(m[legacyFilenamePattern.SubexpIndex("year")])
		return TableFile{
			Year:  2000 + yy,
			Table: m[legacyFilenamePattern.SubexpIndex("table")],
			Kind:  m[legacyFilenamePattern.SubexpIndex("kind")],
		}, true
	}
	return TableFile{}, false
}
