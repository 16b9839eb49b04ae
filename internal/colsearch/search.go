package colsearch

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"
)

// Columns added to matched records.
const (
	ColLongNameAbstract = "LONGCOLNAME_ar"
	ColNameAbstract     = "NAME_ar"
)

// DefaultHeader is the output column order of a search.
var DefaultHeader = []string{
	ColLongNameAbstract, "ACS_YEAR", "ACS_SPAN", "EST_OR_MARGIN", ColNameAbstract,
	"ROLLUP1", "ROLLUP2", "SHORTCOLNAME", "TABLE", "FILENAME", "LONGCOLNAME", "NAME",
}

// YearsHeader is the output column order of a years summary.
var YearsHeader = []string{"count", ColLongNameAbstract, "tables", "shortcolnames", "years"}

// ErrUnknownColumn is returned when a rule or an output column names a
// column the metadata does not have.
var ErrUnknownColumn = errors.New("unknown column")

// Record is one metadata row keyed by column name.
type Record map[string]string

// Table is a loaded metadata file.
type Table struct {
	Header  []string
	Records []Record
}

// Load reads a metadata CSV whose first row is the header.
func Load(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	t := &Table{Header: header}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return t, nil
		}
		if err != nil {
			return nil, err
		}
		rec := make(Record, len(header))
		for i, col := range header {
			rec[col] = row[i]
		}
		t.Records = append(t.Records, rec)
	}
}

// HasColumn reports whether col is available in search output.
func (t *Table) HasColumn(col string) bool {
	return col == ColLongNameAbstract || col == ColNameAbstract || slices.Contains(t.Header, col)
}

// Rule matches one column against a regular expression.
type Rule struct {
	Column        string
	Pattern       string
	CaseSensitive bool
}

// NewRule builds a rule from a user pattern, applying FlipParens and
// ExpandPattern.
func NewRule(column, pattern string, caseSensitive bool) Rule {
	return Rule{Column: column, Pattern: ExpandPattern(FlipParens(pattern)), CaseSensitive: caseSensitive}
}

// EstimateRule keeps only estimate columns.
func EstimateRule() Rule {
	return Rule{Column: "EST_OR_MARGIN", Pattern: "^ESTIMATE$"}
}

func (r Rule) compile() (*regexp.Regexp, error) {
	expr := r.Pattern
	if !r.CaseSensitive {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("rule %s %q: %w", r.Column, r.Pattern, err)
	}
	return re, nil
}

// Scan returns the records matching every rule, in table order. Matched
// records are copies with the LONGCOLNAME_ar and NAME_ar columns added.
func Scan(t *Table, rules []Rule) ([]Record, error) {
	res := make([]*regexp.Regexp, len(rules))
	for i, r := range rules {
		if !slices.Contains(t.Header, r.Column) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, r.Column)
		}
		re, err := r.compile()
		if err != nil {
			return nil, err
		}
		res[i] = re
	}

	var out []Record
	for _, rec := range t.Records {
		if !matches(rec, rules, res) {
			continue
		}
		m := make(Record, len(rec)+2)
		for k, v := range rec {
			m[k] = v
		}
		m[ColLongNameAbstract] = AbstractYear(rec["LONGCOLNAME"])
		m[ColNameAbstract] = AbstractYear(rec["NAME"])
		out = append(out, m)
	}
	return out, nil
}

func matches(rec Record, rules []Rule, res []*regexp.Regexp) bool {
	for i, r := range rules {
		if !res[i].MatchString(rec[r.Column]) {
			return false
		}
	}
	return true
}

// YearSummary groups matched columns sharing one year-abstracted long name.
type YearSummary struct {
	LongNameAbstract string
	Years            []string
	Tables           []string
	ShortColNames    []string
}

// Count is the number of distinct years.
func (s YearSummary) Count() int {
	return len(s.Years)
}

// SummarizeYears groups records by LONGCOLNAME_ar, ordered by year count
// and then by name, both descending.
func SummarizeYears(recs []Record) []YearSummary {
	type sets struct {
		years, tables, short map[string]struct{}
	}
	groups := make(map[string]*sets)
	for _, rec := range recs {
		key := rec[ColLongNameAbstract]
		g, ok := groups[key]
		if !ok {
			g = &sets{
				years:  make(map[string]struct{}),
				tables: make(map[string]struct{}),
				short:  make(map[string]struct{}),
			}
			groups[key] = g
		}
		g.years[rec["ACS_YEAR"]] = struct{}{}
		g.tables[rec["TABLE"]] = struct{}{}
		g.short[rec["SHORTCOLNAME"]] = struct{}{}
	}

	out := make([]YearSummary, 0, len(groups))
	for key, g := range groups {
		out = append(out, YearSummary{
			LongNameAbstract: key,
			Years:            sortedKeys(g.years),
			Tables:           sortedKeys(g.tables),
			ShortColNames:    sortedKeys(g.short),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count() != out[j].Count() {
			return out[i].Count() > out[j].Count()
		}
		return out[i].LongNameAbstract > out[j].LongNameAbstract
	})
	return out
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// WriteRecords writes header and the selected columns of recs as CSV.
func WriteRecords(w io.Writer, header []string, recs []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	row := make([]string, len(header))
	for _, rec := range recs {
		for i, col := range header {
			row[i] = rec[col]
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteYearsSummary writes summaries as CSV with YearsHeader.
func WriteYearsSummary(w io.Writer, summaries []YearSummary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(YearsHeader); err != nil {
		return err
	}
	for _, s := range summaries {
		row := []string{
			strconv.Itoa(s.Count()),
			s.LongNameAbstract,
			strings.Join(s.Tables, " "),
			strings.Join(s.ShortColNames, " "),
			strings.Join(s.Years, " "),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
