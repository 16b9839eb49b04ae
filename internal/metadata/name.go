package metadata

import "strings"

// NameParts is a long column name split on semicolons.
//
// "Foreign born; Born in Europe; Estimate; Civilian employed population"
// has Rollup1 "Foreign born", Rollup2 "Born in Europe", EstOrMargin
// "Estimate" and Name "Civilian employed population".
type NameParts struct {
	EstOrMargin string
	Name        string
	Rollup1     string
	Rollup2     string
}

// BurstName splits a long column name. Names without a semicolon yield
// empty parts.
func BurstName(long string) NameParts {
	if !strings.Contains(long, ";") {
		return NameParts{}
	}
	fields := strings.Split(long, ";")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	n := len(fields)
	p := NameParts{
		Name:        fields[n-1],
		EstOrMargin: fields[n-2],
	}
	switch n {
	case 3:
		p.Rollup1 = fields[0]
	case 4:
		p.Rollup1 = fields[0]
		p.Rollup2 = fields[1]
	}
	return p
}
