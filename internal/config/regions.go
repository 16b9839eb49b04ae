package config

import "slices"

// StateRegions lists the region directory names published under each
// summary file year: the fifty states, the District of Columbia and
// Puerto Rico. Names are written exactly as they appear on the remote
// listing, without spaces.
var StateRegions = []string{
	"Alabama",
	"Alaska",
	"Arizona",
	"Arkansas",
	"California",
	"Colorado",
	"Connecticut",
	"Delaware",
	"DistrictofColumbia",
	"Florida",
	"Georgia",
	"Hawaii",
	"Idaho",
	"Illinois",
	"Indiana",
	"Iowa",
	"Kansas",
	"Kentucky",
	"Louisiana",
	"Maine",
	"Maryland",
	"Massachusetts",
	"Michigan",
	"Minnesota",
	"Mississippi",
	"Missouri",
	"Montana",
	"Nebraska",
	"Nevada",
	"NewHampshire",
	"NewJersey",
	"NewMexico",
	"NewYork",
	"NorthCarolina",
	"NorthDakota",
	"Ohio",
	"Oklahoma",
	"Oregon",
	"Pennsylvania",
	"PuertoRico",
	"RhodeIsland",
	"SouthCarolina",
	"SouthDakota",
	"Tennessee",
	"Texas",
	"Utah",
	"Vermont",
	"Virginia",
	"Washington",
	"WestVirginia",
	"Wisconsin",
	"Wyoming",
}

// NationalRegions are the names under which the national aggregate is
// published. The 2005 tree prefixes it with "0" so that it sorts first.
var NationalRegions = []string{
	"0UnitedStates",
	"UnitedStates",
}

// DefaultRegions returns a fresh copy of every known region name.
func DefaultRegions() []string {
	regions := make([]string, 0, len(StateRegions)+len(NationalRegions))
	regions = append(regions, NationalRegions...)
	regions = append(regions, StateRegions...)
	return regions
}

// IsKnownRegion reports whether name is a published region directory name.
func IsKnownRegion(name string) bool {
	return slices.Contains(StateRegions, name) || slices.Contains(NationalRegions, name)
}
