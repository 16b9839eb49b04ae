// Package metadata collects the column descriptions of unpacked ACS tables
// into one searchable CSV file.
//
// American FactFinder tables come as pairs such as
// ACS_10_5YR_S1901_with_ann.csv and ACS_10_5YR_S1901_metadata.csv. The
// metadata file maps each short column name to a long, semicolon
// separated description. Assemble walks a tree of such files and writes
// one row per column, with the year, span and table taken from the file
// name and the long name split into its parts.
package metadata
