// Package model defines the data types shared by the gatewayscan components.
//
// The types in this package carry no behavior beyond validation and small
// helpers. They describe a candidate site, the outcome of a single fetch,
// and the final ScanResult produced for every candidate.
//
// # Lifecycle
//
// A Candidate is created by the scheduler when a URL is pulled from the
// input source. The site analyzer walks it through the State machine and
// emits exactly one ScanResult, which is never modified afterwards.
package model
