// Package database provides SQLite-based storage for gatewayscan results.
//
// The ResultDB stores:
//   - every ScanResult produced by a run, as JSON plus indexed columns
//   - confirmation feedback as (url, succeeded) pairs
//
// The database lives in a single file under the XDG data directory and is
// read back by the history command. modernc.org/sqlite is used so the
// binary stays CGO-free.
package database
