package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/nao1215/gatewayscan/internal/crawler"
	"github.com/nao1215/gatewayscan/internal/detect"
	"github.com/nao1215/gatewayscan/internal/model"
)

// AnalyzerConfig holds the settings a SiteAnalyzer needs.
type AnalyzerConfig struct {
	// Threshold is the minimum hit count for FOUND.
	Threshold int
	// RootTimeout bounds each attempt to fetch the root document.
	RootTimeout time.Duration
	// RequestTimeout bounds each attempt to fetch a sub-page or asset.
	RequestTimeout time.Duration
	// Confirm enables the confirmation re-fetch.
	Confirm bool
}

// SiteAnalyzer drives one candidate through the state machine and
// produces exactly one ScanResult.
//
// Design decision: each stage is a Step run by a Pipeline rather than one
// long function because:
//  1. A StepError carries the failure kind and the ERROR detail together
//  2. The candidate state is advanced in one place before each step
//  3. Steps can be tested alone against a stub Fetcher
type SiteAnalyzer struct {
	cfg      AnalyzerConfig
	detector *detect.Detector
	pipeline *Pipeline
	logger   *slog.Logger
}

// AnalyzerOption configures a SiteAnalyzer.
type AnalyzerOption func(*analyzerOptions)

type analyzerOptions struct {
	renderer Renderer
	detector *detect.Detector
	logger   *slog.Logger
}

// WithRenderer renders root documents before extraction.
func WithRenderer(r Renderer) AnalyzerOption {
	return func(o *analyzerOptions) {
		o.renderer = r
	}
}

// WithDetector replaces the default detector.
func WithDetector(d *detect.Detector) AnalyzerOption {
	return func(o *analyzerOptions) {
		o.detector = d
	}
}

// WithAnalyzerLogger sets the logger.
func WithAnalyzerLogger(logger *slog.Logger) AnalyzerOption {
	return func(o *analyzerOptions) {
		o.logger = logger
	}
}

// NewSiteAnalyzer wires the steps of the state machine.
// gate is the run-wide admission gate for sub-page and asset fetches.
func NewSiteAnalyzer(cfg AnalyzerConfig, fetcher Fetcher, extractor *crawler.Extractor, gate *semaphore.Weighted, opts ...AnalyzerOption) *SiteAnalyzer {
	o := &analyzerOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.detector == nil {
		o.detector = detect.NewDetector(nil)
	}

	p := New(WithLogger(o.logger))
	p.AddSteps(
		ValidateStep{},
		NewFetchRootStep(fetcher, cfg.RootTimeout, o.renderer, o.logger),
		NewExtractStep(extractor),
		NewFetchSubpagesStep(fetcher, extractor, gate, cfg.RequestTimeout, o.logger),
		AggregateStep{},
		NewScoreStep(o.detector, cfg.Threshold),
	)
	if cfg.Confirm {
		p.AddStep(NewConfirmStep(fetcher, cfg.RootTimeout, o.logger))
	}

	return &SiteAnalyzer{
		cfg:      cfg,
		detector: o.detector,
		pipeline: p,
		logger:   o.logger,
	}
}

// Analyze processes one raw candidate string. It always returns a result;
// failures are reported as status ERROR.
func (a *SiteAnalyzer) Analyze(ctx context.Context, raw string) *model.ScanResult {
	scan := NewScan(raw)
	a.pipeline.Execute(ctx, scan)
	result := scan.Result(a.cfg.Threshold, a.detector.Bank().Len())

	a.logger.Info("candidate analyzed",
		"url", result.URL,
		"status", result.Status.String(),
		"hits", result.Hits,
		"pages", result.PagesChecked,
		"state", scan.Candidate.State.String(),
	)
	return result
}

// StepNames returns the configured step names in execution order.
func (a *SiteAnalyzer) StepNames() []string {
	return a.pipeline.StepNames()
}
