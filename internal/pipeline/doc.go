// Package pipeline implements the per-candidate site analyzer.
//
// A candidate moves through a fixed sequence of states:
//
//	VALIDATING → FETCHING_ROOT → EXTRACTING → FETCHING_SUBPAGES → AGGREGATING → SCORING → REPORTED
//
// with FAILED reachable from every non-terminal state. Each state is a
// Step; the Pipeline runs them in order, stops at the first failure, and
// turns panics into ERROR results so one bad candidate never stops a run.
//
// Sub-page and script asset fetches fan out with errgroup and are joined
// before aggregation. Every fetch holds one unit of a semaphore shared by
// the whole run, which bounds in-flight fetches across candidates. No fetch
// task writes shared state; outcomes are collected by index and folded into
// the Scan after the join.
package pipeline
