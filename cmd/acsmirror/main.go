// Package main provides the entry point for the acsmirror CLI.
//
// acsmirror mirrors the American Community Survey summary file tree
// published by the Census Bureau into a local directory, keeping only the
// regions and files you ask for, and prepares downloaded table archives
// for searching.
//
// Usage:
//
//	acsmirror fetch
//	acsmirror fetch --region NewYork --region UnitedStates --year 2019
//	acsmirror burst ./data ./raw --assemble all_metadata.csv
//	acsmirror search -r LONGCOLNAME "median household income"
//
// See --help for all available options.
package main

// main is the entry point for acsmirror.
func main() {
	Execute()
}
