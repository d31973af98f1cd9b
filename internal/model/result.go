package model

import (
	"strings"
	"time"
)

// Status is the classification of a scanned candidate.
type Status string

const (
	// StatusFound means hits reached the configured threshold.
	StatusFound Status = "FOUND"
	// StatusNotFound means the candidate was scored below the threshold.
	StatusNotFound Status = "NOT_FOUND"
	// StatusError means the candidate could not be scored.
	StatusError Status = "ERROR"
)

// String returns the status text.
func (s Status) String() string {
	return string(s)
}

// ScanResult is the single immutable outcome for one candidate.
//
// Invariants: Status is FOUND iff Hits >= the threshold used at scoring,
// and len(MatchedSignals) == Hits.
type ScanResult struct {
	// URL is the normalized candidate URL, or the raw input if it was invalid.
	URL string `json:"url"`

	// PagesChecked counts the root page plus every sub-page fetched successfully.
	PagesChecked int `json:"pagesChecked"`

	// Hits is the number of matched signals.
	Hits int `json:"hits"`

	// TotalSignals is the size of the signal bank used for scoring.
	TotalSignals int `json:"totalSignals"`

	// Threshold is the minimum hit count that was required for FOUND.
	Threshold int `json:"threshold"`

	// MatchedSignals lists matched signal names in bank order.
	MatchedSignals []string `json:"matchedSignals"`

	// Status is the classification.
	Status Status `json:"status"`

	// Detail is a human readable error message for ERROR results.
	Detail string `json:"detail,omitempty"`

	// ErrorKind classifies the failure for ERROR results.
	ErrorKind string `json:"errorKind,omitempty"`

	// Confirmed is the outcome of the optional confirmation check.
	// Nil when the check did not run. It never affects Status.
	Confirmed *bool `json:"confirmed,omitempty"`

	// CorpusDigest is the hex SHA3-256 digest of the aggregated corpus.
	CorpusDigest string `json:"corpusDigest,omitempty"`

	// ScannedAt is when analysis of the candidate started.
	ScannedAt time.Time `json:"scannedAt"`

	// Duration is how long the analysis took.
	Duration time.Duration `json:"duration"`
}

// NewErrorResult builds an ERROR result with zero hits and zero pages.
func NewErrorResult(url string, kind ErrorKind, detail string) *ScanResult {
	return &ScanResult{
		URL:            url,
		MatchedSignals: []string{},
		Status:         StatusError,
		Detail:         detail,
		ErrorKind:      kind.String(),
		ScannedAt:      time.Now(),
	}
}

// IsFound reports whether the candidate was classified FOUND.
func (r *ScanResult) IsFound() bool {
	return r.Status == StatusFound
}

// SignalsText returns the matched signal names joined by ", ".
func (r *ScanResult) SignalsText() string {
	return strings.Join(r.MatchedSignals, ", ")
}

// DetailsText returns the ledger "details" column: matched signals for
// scored results, the error detail otherwise.
func (r *ScanResult) DetailsText() string {
	if r.Status == StatusError {
		return r.Detail
	}
	return r.SignalsText()
}
