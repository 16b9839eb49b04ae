// Package colsearch finds columns in assembled ACS metadata.
//
// A search is a list of rules, each a regular expression applied to one
// column of the metadata CSV; a record matches when every rule matches.
// Patterns treat parentheses as literal text unless escaped, so that a
// label such as "median income (dollars)" can be pasted as is, and the
// placeholder {year} stands for any four-digit year.
package colsearch
