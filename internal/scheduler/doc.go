// Package scheduler runs the scan loop over a stream of candidate URLs.
//
// For each candidate not seen earlier in the run the Scheduler invokes the
// site analyzer, hands the result to every sink, notifies on FOUND and
// records confirmation feedback. Candidates are paced by a randomized
// delay. An optional liveness probe against a control URL detects access
// blocks and triggers a fixed cool-down.
package scheduler
