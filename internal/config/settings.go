package config

import (
	"slices"
)

// Settings is the read-only view of the configuration consulted during a
// crawl. It is built once and shared by value; every accessor returns
// copies so that no caller can change the filters mid-crawl.
type Settings struct {
	regions              map[string]struct{}
	tractsAndBlockGroups bool
	docExtensions        []string
	shellExtensions      []string
	years                map[string]struct{}
}

// SettingsOption configures optional parts of Settings.
type SettingsOption func(*Settings)

// WithShellExtensions sets the extensions accepted in the table shells tree.
func WithShellExtensions(exts []string) SettingsOption {
	return func(s *Settings) {
		s.shellExtensions = slices.Clone(exts)
	}
}

// WithYears restricts the crawl to the given year directories.
func WithYears(years []string) SettingsOption {
	return func(s *Settings) {
		if len(years) == 0 {
			s.years = nil
			return
		}
		s.years = make(map[string]struct{}, len(years))
		for _, y := range years {
			s.years[y] = struct{}{}
		}
	}
}

// NewSettings builds Settings from a region list, the fine-grained
// geography flag and the documentation extensions.
func NewSettings(regions []string, tractsAndBlockGroups bool, docExtensions []string, opts ...SettingsOption) Settings {
	s := Settings{
		regions:              make(map[string]struct{}, len(regions)),
		tractsAndBlockGroups: tractsAndBlockGroups,
		docExtensions:        slices.Clone(docExtensions),
		shellExtensions:      DefaultShellExtensions(),
	}
	for _, r := range regions {
		s.regions[r] = struct{}{}
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// HasRegion reports whether name is an accepted region.
func (s Settings) HasRegion(name string) bool {
	_, ok := s.regions[name]
	return ok
}

// Regions returns the accepted regions in sorted order.
func (s Settings) Regions() []string {
	out := make([]string, 0, len(s.regions))
	for r := range s.regions {
		out = append(out, r)
	}
	slices.Sort(out)
	return out
}

// TractsAndBlockGroups reports whether fine-grained sub-county archives are wanted.
func (s Settings) TractsAndBlockGroups() bool {
	return s.tractsAndBlockGroups
}

// DocExtensions returns the accepted documentation extensions.
func (s Settings) DocExtensions() []string {
	return slices.Clone(s.docExtensions)
}

// ShellExtensions returns the accepted table shell extensions.
func (s Settings) ShellExtensions() []string {
	return slices.Clone(s.shellExtensions)
}

// IncludesYear reports whether the year directory named year (without the
// trailing slash) should be crawled.
func (s Settings) IncludesYear(year string) bool {
	if s.years == nil {
		return true
	}
	_, ok := s.years[year]
	return ok
}
