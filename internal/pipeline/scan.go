package pipeline

import (
	"time"

	"github.com/nao1215/gatewayscan/internal/crawler"
	"github.com/nao1215/gatewayscan/internal/detect"
	"github.com/nao1215/gatewayscan/internal/model"
)

// SubPage is the outcome of one payment sub-page fetch.
type SubPage struct {
	// URL is the absolute sub-page URL.
	URL string

	// Body is the fetched document. Empty when the fetch failed.
	Body string

	// Extraction is the sub-page's inline scripts, forms and script sources.
	// Nil when the fetch failed.
	Extraction *crawler.Extraction

	// AssetBodies are the bodies of the sub-page's script assets that were
	// fetched successfully, in reference order.
	AssetBodies []string

	// Err is the fetch failure, if any.
	Err *model.FetchError
}

// OK reports whether the sub-page was fetched.
func (s *SubPage) OK() bool {
	return s.Err == nil && s.Extraction != nil
}

// Scan is the working state of one candidate while it moves through the
// pipeline. Only the pipeline goroutine writes to it; concurrent fetch
// tasks return values that are stored after they are joined.
type Scan struct {
	Candidate *model.Candidate

	// RootBody is the root document, possibly replaced by its rendered DOM.
	RootBody string

	// Root is the extraction of the root document.
	Root *crawler.Extraction

	// SubPages are the payment sub-pages in discovery order.
	SubPages []*SubPage

	// PagesChecked counts the root plus every fetched sub-page.
	PagesChecked int

	// Corpus is the aggregated text scored by the detector.
	Corpus string

	// CorpusDigest is the hex SHA3-256 digest of Corpus.
	CorpusDigest string

	// Detection is the scoring outcome.
	Detection detect.Detection

	// Status is set by the scoring step.
	Status model.Status

	// Confirmed is the confirmation outcome, nil when it did not run.
	Confirmed *bool

	startedAt  time.Time
	failed     bool
	failKind   model.ErrorKind
	failDetail string
}

// NewScan creates the working state for a raw candidate string.
func NewScan(raw string) *Scan {
	return &Scan{
		Candidate: model.NewCandidate(raw),
		startedAt: time.Now(),
	}
}

// Failed reports whether the candidate reached FAILED.
func (s *Scan) Failed() bool {
	return s.failed
}

func (s *Scan) fail(kind model.ErrorKind, detail string) {
	s.failed = true
	s.failKind = kind
	s.failDetail = detail
	s.Candidate.State = model.StateFailed
}

// Result builds the immutable ScanResult. threshold and total describe the
// classification rule and bank size used for scoring.
func (s *Scan) Result(threshold, total int) *model.ScanResult {
	if s.failed {
		r := model.NewErrorResult(s.Candidate.DisplayURL(), s.failKind, s.failDetail)
		r.TotalSignals = total
		r.Threshold = threshold
		r.ScannedAt = s.startedAt
		r.Duration = time.Since(s.startedAt)
		return r
	}
	matched := append([]string{}, s.Detection.Matched...)
	return &model.ScanResult{
		URL:            s.Candidate.URL,
		PagesChecked:   s.PagesChecked,
		Hits:           s.Detection.Hits,
		TotalSignals:   total,
		Threshold:      threshold,
		MatchedSignals: matched,
		Status:         s.Status,
		Confirmed:      s.Confirmed,
		CorpusDigest:   s.CorpusDigest,
		ScannedAt:      s.startedAt,
		Duration:       time.Since(s.startedAt),
	}
}
