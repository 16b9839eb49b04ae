// Package database provides the SQLite transfer manifest of acsmirror.
//
// The Manifest stores:
//   - Runs, one row per crawl invocation with its outcome
//   - Transfers, every file a run saved or found already present
//   - Structure issues, the remote layout problems that made a run abandon
//     a year
//
// The mirror itself lives on the filesystem and does not depend on the
// manifest; the manifest answers "what did the last crawls do" for the
// status command.
//
// SQLite is accessed through modernc.org/sqlite, a CGO-free driver, so the
// manifest is a single file in the data directory.
package database
