// Package ledger appends one CSV row per scanned candidate.
//
// The header row is written only when the ledger file is created, so
// successive runs keep appending to the same file.
package ledger
