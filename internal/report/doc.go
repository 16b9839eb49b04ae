// Package report renders the summary of a crawl.
//
// Three writers are provided:
//   - TextWriter: human-readable text for the terminal
//   - JSONWriter: structured JSON for scripts
//   - MarkdownWriter: a Markdown document with tables and an optional chart
//
// All of them implement Writer, so they can be chosen at run time with
// NewWriter or combined with MultiWriter.
package report
