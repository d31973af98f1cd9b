package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/nao1215/gatewayscan/internal/crawler"
	"github.com/nao1215/gatewayscan/internal/model"
	"github.com/nao1215/gatewayscan/internal/notify"
	"github.com/nao1215/gatewayscan/internal/report"
)

// Analyzer turns one raw candidate into exactly one result.
type Analyzer interface {
	Analyze(ctx context.Context, raw string) *model.ScanResult
}

// Prober performs a single liveness request.
type Prober interface {
	Probe(ctx context.Context, rawURL string, timeout time.Duration) error
}

// FeedbackRecorder stores (url, succeeded) pairs from the confirmation check.
type FeedbackRecorder interface {
	RecordFeedback(ctx context.Context, url string, succeeded bool) error
}

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Config holds the pacing and probing settings.
type Config struct {
	// MinDelay and MaxDelay bound the randomized pause between candidates.
	MinDelay time.Duration
	MaxDelay time.Duration

	// ProbeEnabled runs the liveness probe after every candidate.
	ProbeEnabled bool
	// ProbeURL is the control URL.
	ProbeURL string
	// ProbeTimeout bounds the probe request.
	ProbeTimeout time.Duration
	// Cooldown is the pause after a failed probe.
	Cooldown time.Duration

	// Destination identifies where notifications go (a chat id).
	Destination string
}

// Stats counts what happened during a run.
type Stats struct {
	Processed int
	Skipped   int
	Found     int
	NotFound  int
	Errors    int
	Blocks    int
}

func (s *Stats) record(result *model.ScanResult) {
	s.Processed++
	switch result.Status {
	case model.StatusFound:
		s.Found++
	case model.StatusNotFound:
		s.NotFound++
	default:
		s.Errors++
	}
}

// Scheduler drives candidates through an Analyzer one at a time.
//
// It owns everything that spans candidates: the seen-set that drops
// duplicates, the inter-candidate delay, the result sinks, the liveness
// probe and the run Stats.
//
// Design decision: candidates are analyzed sequentially. Concurrency lives
// inside a candidate (sub-page and asset fan-out) where a shared gate
// already bounds it, so a slow merchant site never reorders the ledger
// and the politeness delay applies between whole sites.
type Scheduler struct {
	cfg      Config
	analyzer Analyzer
	sinks    []report.Writer
	sink     *report.MultiWriter
	notifier notify.Notifier
	feedback FeedbackRecorder
	prober   Prober
	sleep    SleepFunc
	jitter   func(n int64) int64
	logger   *slog.Logger
	seen     map[string]struct{}
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithSinks adds result sinks (ledger, database, terminal).
func WithSinks(sinks ...report.Writer) Option {
	return func(s *Scheduler) {
		s.sinks = append(s.sinks, sinks...)
	}
}

// WithNotifier sets the notifier used for FOUND results and block alerts.
func WithNotifier(n notify.Notifier) Option {
	return func(s *Scheduler) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithFeedback sets where confirmation outcomes are recorded.
func WithFeedback(f FeedbackRecorder) Option {
	return func(s *Scheduler) {
		s.feedback = f
	}
}

// WithProber sets the liveness prober. Probing also requires Config.ProbeEnabled.
func WithProber(p Prober) Option {
	return func(s *Scheduler) {
		s.prober = p
	}
}

// WithSleep replaces the sleep used for delays and cool-downs.
func WithSleep(sleep SleepFunc) Option {
	return func(s *Scheduler) {
		if sleep != nil {
			s.sleep = sleep
		}
	}
}

// WithJitter replaces the random source used for delays.
// It must return a value in [0, n).
func WithJitter(jitter func(n int64) int64) Option {
	return func(s *Scheduler) {
		if jitter != nil {
			s.jitter = jitter
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Scheduler.
func New(cfg Config, analyzer Analyzer, opts ...Option) *Scheduler {
	s := &Scheduler{
		cfg:      cfg,
		analyzer: analyzer,
		notifier: notify.Nop{},
		sleep:    crawler.SleepContext,
		jitter:   rand.Int64N,
		logger:   slog.Default(),
		seen:     make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.sink = report.NewMultiWriter(s.sinks...)
	return s
}

// Run consumes src until it is exhausted or ctx is cancelled.
// A failing candidate never stops the run; only source errors and
// cancellation do.
func (s *Scheduler) Run(ctx context.Context, src Source) (Stats, error) {
	var stats Stats

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		raw, ok, err := src.Next(ctx)
		if err != nil {
			return stats, err
		}
		if !ok {
			return stats, nil
		}

		key := seenKey(raw)
		if _, dup := s.seen[key]; dup {
			stats.Skipped++
			s.logger.Debug("skipping duplicate candidate", "url", key)
			continue
		}
		s.seen[key] = struct{}{}

		if stats.Processed > 0 {
			if err := s.pause(ctx); err != nil {
				return stats, err
			}
		}

		result := s.analyzer.Analyze(ctx, raw)
		stats.record(result)
		s.emit(ctx, result)

		if s.cfg.ProbeEnabled && s.prober != nil {
			blocked, err := s.probe(ctx)
			if blocked {
				stats.Blocks++
			}
			if err != nil {
				return stats, err
			}
		}
	}
}

// emit delivers the result to every collaborator. Failures are logged only.
func (s *Scheduler) emit(ctx context.Context, result *model.ScanResult) {
	if _, err := s.sink.Write(result); err != nil {
		s.logger.Error("failed to record result", "url", result.URL, "error", err)
	}

	if result.IsFound() {
		if err := s.notifier.Notify(ctx, s.cfg.Destination, notify.FormatFound(result)); err != nil {
			s.logger.Warn("notification failed", "url", result.URL, "error", err)
		}
	}

	if result.Confirmed != nil && s.feedback != nil {
		if err := s.feedback.RecordFeedback(ctx, result.URL, *result.Confirmed); err != nil {
			s.logger.Warn("failed to record feedback", "url", result.URL, "error", err)
		}
	}
}

// pause sleeps a random duration in [MinDelay, MaxDelay].
func (s *Scheduler) pause(ctx context.Context) error {
	d := s.delay()
	s.logger.Debug("waiting before next candidate", "delay", d)
	return s.sleep(ctx, d)
}

func (s *Scheduler) delay() time.Duration {
	lo, hi := s.cfg.MinDelay, s.cfg.MaxDelay
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(s.jitter(int64(hi-lo)+1))
}

// probe checks the control URL. On failure it notifies and cools down.
func (s *Scheduler) probe(ctx context.Context) (bool, error) {
	err := s.prober.Probe(ctx, s.cfg.ProbeURL, s.cfg.ProbeTimeout)
	if err == nil {
		return false, nil
	}
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	s.logger.Warn("control probe failed, possible access block",
		"probe_url", s.cfg.ProbeURL, "cooldown", s.cfg.Cooldown, "error", err)

	if nerr := s.notifier.Notify(ctx, s.cfg.Destination, notify.FormatBlocked(s.cfg.ProbeURL, s.cfg.Cooldown)); nerr != nil {
		s.logger.Warn("notification failed", "error", nerr)
	}

	if err := s.sleep(ctx, s.cfg.Cooldown); err != nil {
		return true, fmt.Errorf("cool-down interrupted: %w", err)
	}
	return true, nil
}

// seenKey identifies a candidate for duplicate detection within a run.
func seenKey(raw string) string {
	if u, err := model.NormalizeURL(raw); err == nil {
		return u
	}
	return strings.TrimSpace(raw)
}
