// Package model defines the records shared by the crawler, the manifest
// database and the report writers.
//
// This package contains the following main types:
//   - Run: one invocation of a crawl, identified by a UUID
//   - Transfer: one file the crawler saved or found already present
//   - StructureIssue: a remote layout assumption that did not hold
//   - Summary: the counters and records collected during one run
//
// The models are kept here so that crawler, database and report can share
// them without importing each other.
package model
