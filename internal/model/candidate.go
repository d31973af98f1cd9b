package model

// State is a stage of the site analyzer state machine.
type State int

const (
	// StateValidating checks the candidate URL.
	StateValidating State = iota
	// StateFetchingRoot retrieves the candidate's root document.
	StateFetchingRoot
	// StateExtracting discovers payment sub-pages in the root document.
	StateExtracting
	// StateFetchingSubpages fetches sub-pages and their script assets concurrently.
	StateFetchingSubpages
	// StateAggregating builds the text corpus.
	StateAggregating
	// StateScoring evaluates the signal bank against the corpus.
	StateScoring
	// StateReported is the terminal success state.
	StateReported
	// StateFailed is the absorbing failure state.
	StateFailed
)

// String returns the state name used in logs.
func (s State) String() string {
	switch s {
	case StateValidating:
		return "VALIDATING"
	case StateFetchingRoot:
		return "FETCHING_ROOT"
	case StateExtracting:
		return "EXTRACTING"
	case StateFetchingSubpages:
		return "FETCHING_SUBPAGES"
	case StateAggregating:
		return "AGGREGATING"
	case StateScoring:
		return "SCORING"
	case StateReported:
		return "REPORTED"
	case StateFailed:
		return "FAILED"
	default:
		return unknownStr
	}
}

// IsTerminal reports whether no further transition is possible.
func (s State) IsTerminal() bool {
	return s == StateReported || s == StateFailed
}

// Candidate is one URL submitted for analysis.
type Candidate struct {
	// Raw is the string as received from the candidate source.
	Raw string

	// URL is the normalized absolute form. Empty until validation succeeds.
	URL string

	// State is the current processing stage.
	State State
}

// NewCandidate creates a Candidate in the VALIDATING state.
func NewCandidate(raw string) *Candidate {
	return &Candidate{Raw: raw, State: StateValidating}
}

// DisplayURL returns the normalized URL if known, otherwise the raw input.
func (c *Candidate) DisplayURL() string {
	if c.URL != "" {
		return c.URL
	}
	return c.Raw
}
