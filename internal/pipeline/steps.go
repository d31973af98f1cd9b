package pipeline

import (
	"context"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/sha3"
	"golang.org/x/sync/semaphore"

	"github.com/nao1215/gatewayscan/internal/crawler"
	"github.com/nao1215/gatewayscan/internal/detect"
	"github.com/nao1215/gatewayscan/internal/model"
)

// ERROR details recorded by the steps.
const (
	detailInvalidURL = "Invalid URL"
	detailEmptyRoot  = "Empty root document"
)

// errEmptyBody marks a sub-page that answered 200 with no content.
var errEmptyBody = errors.New("empty response body")

// Renderer produces the DOM of a page after its scripts ran.
// *render.ChromeRenderer implements it.
type Renderer interface {
	Render(ctx context.Context, pageURL string) (string, error)
}

// ValidateStep normalizes the candidate URL.
type ValidateStep struct{}

// Name returns the step name.
func (ValidateStep) Name() string { return "validate" }

// State returns VALIDATING.
func (ValidateStep) State() model.State { return model.StateValidating }

// Do executes the validation step.
func (ValidateStep) Do(_ context.Context, scan *Scan) error {
	u, err := model.NormalizeURL(scan.Candidate.Raw)
	if err != nil {
		return &StepError{Kind: model.KindInvalidURL, Detail: detailInvalidURL, Err: err}
	}
	scan.Candidate.URL = u
	return nil
}

// FetchRootStep retrieves the root document and optionally renders it.
type FetchRootStep struct {
	fetcher  Fetcher
	timeout  time.Duration
	renderer Renderer
	logger   *slog.Logger
}

// NewFetchRootStep creates a FetchRootStep. renderer may be nil.
func NewFetchRootStep(fetcher Fetcher, timeout time.Duration, renderer Renderer, logger *slog.Logger) *FetchRootStep {
	return &FetchRootStep{fetcher: fetcher, timeout: timeout, renderer: renderer, logger: logger}
}

// Name returns the step name.
func (s *FetchRootStep) Name() string { return "fetch_root" }

// State returns FETCHING_ROOT.
func (s *FetchRootStep) State() model.State { return model.StateFetchingRoot }

// Do executes the root fetch step.
func (s *FetchRootStep) Do(ctx context.Context, scan *Scan) error {
	out := s.fetcher.Fetch(ctx, scan.Candidate.URL, s.timeout)
	if !out.OK() {
		return &StepError{Kind: out.Err.Kind, Detail: out.Err.Error(), Err: out.Err}
	}
	if out.Body == "" {
		return &StepError{Kind: model.KindParse, Detail: detailEmptyRoot}
	}
	scan.RootBody = out.Body
	scan.PagesChecked = 1

	if s.renderer == nil {
		return nil
	}
	rendered, err := s.renderer.Render(ctx, scan.Candidate.URL)
	if err != nil {
		s.logger.Warn("render failed, using fetched document",
			"url", scan.Candidate.URL,
			"error", err,
		)
		return nil
	}
	if strings.TrimSpace(rendered) != "" {
		scan.RootBody = rendered
	}
	return nil
}

// ExtractStep discovers payment sub-pages in the root document.
type ExtractStep struct {
	extractor *crawler.Extractor
}

// NewExtractStep creates an ExtractStep.
func NewExtractStep(extractor *crawler.Extractor) *ExtractStep {
	return &ExtractStep{extractor: extractor}
}

// Name returns the step name.
func (s *ExtractStep) Name() string { return "extract" }

// State returns EXTRACTING.
func (s *ExtractStep) State() model.State { return model.StateExtracting }

// Do executes the extraction step.
func (s *ExtractStep) Do(_ context.Context, scan *Scan) error {
	ext, err := s.extractor.Extract(scan.Candidate.URL, scan.RootBody)
	if err != nil {
		return &StepError{Kind: model.KindParse, Detail: "failed to parse root document", Err: err}
	}
	scan.Root = ext
	return nil
}

// FetchSubpagesStep fetches every payment sub-page, extracts it, and then
// fetches the script assets the sub-pages reference. Individual failures
// are skipped.
type FetchSubpagesStep struct {
	fetcher   Fetcher
	extractor *crawler.Extractor
	gate      *semaphore.Weighted
	timeout   time.Duration
	logger    *slog.Logger
}

// NewFetchSubpagesStep creates a FetchSubpagesStep. gate is the run-wide
// admission gate shared by every candidate.
func NewFetchSubpagesStep(fetcher Fetcher, extractor *crawler.Extractor, gate *semaphore.Weighted, timeout time.Duration, logger *slog.Logger) *FetchSubpagesStep {
	return &FetchSubpagesStep{fetcher: fetcher, extractor: extractor, gate: gate, timeout: timeout, logger: logger}
}

// Name returns the step name.
func (s *FetchSubpagesStep) Name() string { return "fetch_subpages" }

// State returns FETCHING_SUBPAGES.
func (s *FetchSubpagesStep) State() model.State { return model.StateFetchingSubpages }

// Do executes the sub-page fan-out.
func (s *FetchSubpagesStep) Do(ctx context.Context, scan *Scan) error {
	pages := scan.Root.PaymentPages
	outcomes := fetchAll(ctx, s.fetcher, s.gate, pages, s.timeout)

	scan.SubPages = make([]*SubPage, len(pages))
	var assetURLs []string
	assetIndex := make(map[string]int)

	for i, out := range outcomes {
		sp := &SubPage{URL: pages[i]}
		scan.SubPages[i] = sp
		if !out.OK() {
			sp.Err = out.Err
			s.logger.Debug("sub-page skipped",
				"url", pages[i],
				"kind", out.Err.Kind.String(),
				"error", out.Err,
			)
			continue
		}
		// Empty documents contribute nothing and are not counted as checked.
		if out.Body == "" {
			sp.Err = &model.FetchError{Kind: model.KindParse, URL: pages[i], Err: errEmptyBody}
			s.logger.Debug("sub-page skipped", "url", pages[i], "kind", sp.Err.Kind.String(), "error", errEmptyBody)
			continue
		}
		ext, err := s.extractor.Extract(pages[i], out.Body)
		if err != nil {
			sp.Err = &model.FetchError{Kind: model.KindParse, URL: pages[i], Err: err}
			continue
		}
		sp.Body = out.Body
		sp.Extraction = ext
		scan.PagesChecked++

		for _, src := range ext.ScriptSources {
			if _, ok := assetIndex[src]; !ok {
				assetIndex[src] = len(assetURLs)
				assetURLs = append(assetURLs, src)
			}
		}
	}

	if len(assetURLs) == 0 {
		return nil
	}

	// Each distinct asset is fetched once per candidate.
	assets := fetchAll(ctx, s.fetcher, s.gate, assetURLs, s.timeout)
	for _, sp := range scan.SubPages {
		if !sp.OK() {
			continue
		}
		for _, src := range sp.Extraction.ScriptSources {
			if out := assets[assetIndex[src]]; out.OK() {
				sp.AssetBodies = append(sp.AssetBodies, out.Body)
			}
		}
	}
	return nil
}

// AggregateStep builds the corpus from the root and the fetched sub-pages.
type AggregateStep struct{}

// Name returns the step name.
func (AggregateStep) Name() string { return "aggregate" }

// State returns AGGREGATING.
func (AggregateStep) State() model.State { return model.StateAggregating }

// Do executes the aggregation step.
func (AggregateStep) Do(_ context.Context, scan *Scan) error {
	scan.Corpus = Aggregate(scan.RootBody, scan.SubPages)
	sum := sha3.Sum256([]byte(scan.Corpus))
	scan.CorpusDigest = hex.EncodeToString(sum[:])
	return nil
}

// Aggregate concatenates the root document with, for every fetched
// sub-page, its inline scripts, form markup and script asset bodies.
func Aggregate(root string, subPages []*SubPage) string {
	var b strings.Builder
	b.WriteString(root)
	for _, sp := range subPages {
		if !sp.OK() {
			continue
		}
		b.WriteString(strings.Join(sp.Extraction.InlineScripts, "\n"))
		b.WriteString(sp.Extraction.FormMarkup)
		for _, body := range sp.AssetBodies {
			b.WriteString(body)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// ScoreStep evaluates the signal bank and classifies the candidate.
type ScoreStep struct {
	detector  *detect.Detector
	threshold int
}

// NewScoreStep creates a ScoreStep.
func NewScoreStep(detector *detect.Detector, threshold int) *ScoreStep {
	return &ScoreStep{detector: detector, threshold: threshold}
}

// Name returns the step name.
func (s *ScoreStep) Name() string { return "score" }

// State returns SCORING.
func (s *ScoreStep) State() model.State { return model.StateScoring }

// Do executes the scoring step.
func (s *ScoreStep) Do(_ context.Context, scan *Scan) error {
	scan.Detection = s.detector.Detect(scan.Corpus)
	scan.Status = detect.Classify(scan.Detection.Hits, s.threshold)
	return nil
}

// ConfirmStep re-fetches the root page of candidates with at least one hit
// and records whether it mentions a confirmation term. It never changes
// the status and a failed re-fetch leaves Confirmed unset.
type ConfirmStep struct {
	fetcher Fetcher
	timeout time.Duration
	logger  *slog.Logger
}

// NewConfirmStep creates a ConfirmStep.
func NewConfirmStep(fetcher Fetcher, timeout time.Duration, logger *slog.Logger) *ConfirmStep {
	return &ConfirmStep{fetcher: fetcher, timeout: timeout, logger: logger}
}

// Name returns the step name.
func (s *ConfirmStep) Name() string { return "confirm" }

// State returns SCORING; confirmation is part of scoring.
func (s *ConfirmStep) State() model.State { return model.StateScoring }

// Do executes the confirmation step.
func (s *ConfirmStep) Do(ctx context.Context, scan *Scan) error {
	if scan.Detection.Hits == 0 {
		return nil
	}
	out := s.fetcher.Fetch(ctx, scan.Candidate.URL, s.timeout)
	if !out.OK() {
		s.logger.Debug("confirmation fetch failed",
			"url", scan.Candidate.URL,
			"error", out.Err,
		)
		return nil
	}
	confirmed := detect.Confirm(out.Body)
	scan.Confirmed = &confirmed
	return nil
}
