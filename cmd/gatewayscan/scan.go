package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/semaphore"

	"github.com/nao1215/gatewayscan/internal/config"
	"github.com/nao1215/gatewayscan/internal/crawler"
	"github.com/nao1215/gatewayscan/internal/database"
	"github.com/nao1215/gatewayscan/internal/ledger"
	"github.com/nao1215/gatewayscan/internal/model"
	"github.com/nao1215/gatewayscan/internal/notify"
	"github.com/nao1215/gatewayscan/internal/pipeline"
	"github.com/nao1215/gatewayscan/internal/proxy"
	"github.com/nao1215/gatewayscan/internal/render"
	"github.com/nao1215/gatewayscan/internal/report"
	"github.com/nao1215/gatewayscan/internal/scheduler"
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [url...]",
		Short: "Scan web sites for a Braintree payment integration",
		Long: `Scan analyzes each candidate URL and classifies it as FOUND, NOT_FOUND or ERROR.

For every candidate:
- the root page is fetched (retrying connection errors and timeouts)
- links containing payment keywords are fetched concurrently
- inline and linked scripts of those pages are collected
- the aggregated text is scored against the signal bank

Settings come from the configuration file (created with defaults on first
use) and can be overridden with flags.

Examples:
  # Scan a single site
  gatewayscan scan https://shop.example.com

  # Scan a list of sites, one URL per line
  gatewayscan scan --list sites.txt

  # Read candidates from standard input and print JSON lines
  cat sites.txt | gatewayscan scan --list - --json

  # Route requests through proxies and write a Markdown summary
  gatewayscan scan --proxy socks5://127.0.0.1:9050 --summary run.md --list sites.txt`,
		Args: cobra.ArbitraryArgs,
		RunE: runScanCmd,
	}

	// Candidate sources
	cmd.Flags().StringP("list", "l", "",
		"File with one candidate URL per line ('-' reads standard input)")

	// Detection flags
	cmd.Flags().IntP("threshold", "n", config.DefaultMinSignalHits,
		"Minimum matched signals to classify a site as FOUND")
	cmd.Flags().Bool("same-site", false,
		"Only follow payment links on the candidate's own host")
	cmd.Flags().Bool("confirm", false,
		"Re-fetch candidates with hits and record a confirmation check")
	cmd.Flags().Bool("render", false,
		"Render root pages in headless Chrome before extraction")

	// Request flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultRequestTimeout,
		"Timeout for each sub-page and script request")
	cmd.Flags().Duration("root-timeout", config.DefaultRootRequestTimeout,
		"Timeout for each root page request")
	cmd.Flags().Int("retries", config.DefaultRetryAttempts,
		"Attempts per request for connection errors and timeouts")
	cmd.Flags().Duration("retry-delay", config.DefaultRetryDelay,
		"Pause between request attempts")
	cmd.Flags().Int("concurrency", config.DefaultSubpageConcurrency,
		"Maximum in-flight sub-page and script requests")
	cmd.Flags().StringP("user-agent", "u", config.DefaultUserAgent,
		"User-Agent header sent with every request")
	cmd.Flags().StringSliceP("proxy", "p", nil,
		"Proxy URL (http, https, socks5); repeatable, enables proxying")
	cmd.Flags().Float64("rate", 0,
		"Maximum requests per second across the run (0 = unlimited)")

	// Pacing flags
	cmd.Flags().Duration("delay-min", config.DefaultMinDelay,
		"Minimum pause between candidates")
	cmd.Flags().Duration("delay-max", config.DefaultMaxDelay,
		"Maximum pause between candidates")
	cmd.Flags().Bool("probe", false,
		"Probe a control URL after each candidate and cool down on failure")

	// Output flags
	cmd.Flags().BoolP("json", "j", false,
		"Print one JSON object per result instead of text blocks")
	cmd.Flags().StringP("summary", "s", "",
		"Write a Markdown run summary to the given file")
	cmd.Flags().String("ledger", config.DefaultLedgerPath,
		"CSV ledger path (empty disables the ledger)")
	cmd.Flags().Bool("no-db", false,
		"Do not store results in the history database")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the results database")

	return cmd
}

// runScanCmd executes the scan command.
func runScanCmd(cmd *cobra.Command, args []string) error {
	logger := setupLogger(cmd.ErrOrStderr(), getVerboseFlag(cmd), getLogJSONFlag(cmd))
	slog.SetDefault(logger)

	cfg, err := buildConfig(cmd, args, logger)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if len(cfg.Targets) == 0 && cfg.ListFile == "" {
		return config.ErrNoTarget
	}

	// Set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runScan(ctx, cfg, logger, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// buildConfig loads the configuration file and applies explicitly set flags.
func buildConfig(cmd *cobra.Command, args []string, logger *slog.Logger) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)

	loaded, err := config.LoadConfigFile(getConfigFlag(cmd))
	if err != nil {
		return nil, err
	}
	switch {
	case loaded.Created:
		logger.Info("created configuration file with defaults", "path", loaded.Path)
	case loaded.Replaced:
		logger.Warn("configuration file was unreadable and has been replaced with defaults",
			"path", loaded.Path, "backup", loaded.Path+".bak")
	}
	loaded.File.ApplyTo(cfg)
	cfg.ConfigFilePath = loaded.Path

	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}

	cfg.Targets = args
	return cfg, nil
}

// applyFlags overrides file values with flags the user set explicitly.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	var err error

	if flags.Changed("threshold") {
		if cfg.MinSignalHits, err = flags.GetInt("threshold"); err != nil {
			return err
		}
	}
	if flags.Changed("same-site") {
		if cfg.SameSiteOnly, err = flags.GetBool("same-site"); err != nil {
			return err
		}
	}
	if flags.Changed("confirm") {
		if cfg.ConfirmFound, err = flags.GetBool("confirm"); err != nil {
			return err
		}
	}
	if flags.Changed("render") {
		if cfg.RenderJavaScript, err = flags.GetBool("render"); err != nil {
			return err
		}
	}
	if flags.Changed("timeout") {
		if cfg.RequestTimeout, err = flags.GetDuration("timeout"); err != nil {
			return err
		}
	}
	if flags.Changed("root-timeout") {
		if cfg.RootRequestTimeout, err = flags.GetDuration("root-timeout"); err != nil {
			return err
		}
	}
	if flags.Changed("retries") {
		if cfg.RetryAttempts, err = flags.GetInt("retries"); err != nil {
			return err
		}
	}
	if flags.Changed("retry-delay") {
		if cfg.RetryDelay, err = flags.GetDuration("retry-delay"); err != nil {
			return err
		}
	}
	if flags.Changed("concurrency") {
		if cfg.SubpageConcurrency, err = flags.GetInt("concurrency"); err != nil {
			return err
		}
	}
	if flags.Changed("user-agent") {
		if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
			return err
		}
	}
	if flags.Changed("proxy") {
		if cfg.Proxies, err = flags.GetStringSlice("proxy"); err != nil {
			return err
		}
		cfg.ProxyEnabled = len(cfg.Proxies) > 0
	}
	if flags.Changed("rate") {
		if cfg.RequestsPerSecond, err = flags.GetFloat64("rate"); err != nil {
			return err
		}
	}
	if flags.Changed("delay-min") {
		if cfg.MinDelay, err = flags.GetDuration("delay-min"); err != nil {
			return err
		}
	}
	if flags.Changed("delay-max") {
		if cfg.MaxDelay, err = flags.GetDuration("delay-max"); err != nil {
			return err
		}
	}
	if flags.Changed("probe") {
		if cfg.ProbeEnabled, err = flags.GetBool("probe"); err != nil {
			return err
		}
	}
	if flags.Changed("ledger") {
		if cfg.LedgerPath, err = flags.GetString("ledger"); err != nil {
			return err
		}
	}

	if cfg.ListFile, err = flags.GetString("list"); err != nil {
		return err
	}
	if cfg.JSONOutput, err = flags.GetBool("json"); err != nil {
		return err
	}
	if cfg.SummaryFile, err = flags.GetString("summary"); err != nil {
		return err
	}
	noDB, err := flags.GetBool("no-db")
	if err != nil {
		return err
	}
	cfg.SaveToDB = !noDB
	if flags.Changed("db-dir") {
		if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
			return err
		}
	}

	return nil
}

// runScan wires the components and runs the scheduler.
func runScan(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout, stderr io.Writer) error {
	logger.Info("starting scan",
		"targets", len(cfg.Targets),
		"list", cfg.ListFile,
		"proxyEnabled", cfg.ProxyEnabled,
		"concurrency", cfg.SubpageConcurrency,
		"threshold", cfg.MinSignalHits,
	)

	pool, err := proxy.NewPool(cfg.ProxyEnabled, cfg.Proxies, proxy.ClientOptions{
		UserAgent:   cfg.UserAgent,
		Headers:     cfg.Headers,
		SiteHeaders: cfg.SiteHeaders(),
	})
	if err != nil {
		return fmt.Errorf("failed to configure proxies: %w", err)
	}
	checkProxies(ctx, pool, logger)

	fetcher := crawler.NewFetcher(pool, fetcherOptions(cfg, logger)...)

	analyzerOpts := []pipeline.AnalyzerOption{pipeline.WithAnalyzerLogger(logger)}
	if cfg.RenderJavaScript {
		renderer := newRenderer(cfg, pool)
		defer renderer.Close()
		analyzerOpts = append(analyzerOpts, pipeline.WithRenderer(renderer))
	}

	analyzer := pipeline.NewSiteAnalyzer(
		pipeline.AnalyzerConfig{
			Threshold:      cfg.MinSignalHits,
			RootTimeout:    cfg.RootRequestTimeout,
			RequestTimeout: cfg.RequestTimeout,
			Confirm:        cfg.ConfirmFound,
		},
		fetcher,
		crawler.NewExtractor(crawler.ExtractOptions{
			Keywords:     cfg.PaymentLinkKeywords,
			SameSiteOnly: cfg.SameSiteOnly,
		}),
		semaphore.NewWeighted(int64(cfg.SubpageConcurrency)),
		analyzerOpts...,
	)

	summary := report.NewSummary()
	sinks := []report.Writer{resultWriter(cfg, stdout), summary}
	schedOpts := []scheduler.Option{scheduler.WithLogger(logger)}

	if cfg.LedgerPath != "" {
		l, err := ledger.Open(cfg.LedgerPath)
		if err != nil {
			return err
		}
		defer l.Close()
		sinks = append(sinks, l)
	}

	if cfg.SaveToDB {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "path", db.Path())
		sinks = append(sinks, &dbWriter{ctx: ctx, db: db})
		schedOpts = append(schedOpts, scheduler.WithFeedback(db))
	}

	if cfg.NotificationsEnabled() {
		tg, err := notify.NewTelegram(cfg.TelegramToken, notify.WithAPIBase(cfg.TelegramAPIBase))
		if err != nil {
			return err
		}
		schedOpts = append(schedOpts, scheduler.WithNotifier(tg))
	}

	if cfg.ProbeEnabled {
		schedOpts = append(schedOpts, scheduler.WithProber(fetcher))
	}

	src, closeSrc, err := buildSource(cfg)
	if err != nil {
		return err
	}
	defer closeSrc()

	sched := scheduler.New(scheduler.Config{
		MinDelay:     cfg.MinDelay,
		MaxDelay:     cfg.MaxDelay,
		ProbeEnabled: cfg.ProbeEnabled,
		ProbeURL:     cfg.ProbeURL,
		ProbeTimeout: cfg.RequestTimeout,
		Cooldown:     cfg.Cooldown,
		Destination:  cfg.TelegramChatID,
	}, analyzer, append(schedOpts, scheduler.WithSinks(sinks...))...)

	stats, runErr := sched.Run(ctx, src)
	summary.Finish()

	fmt.Fprintf(stderr, "\nScanned %d site(s) in %s: %d found, %d not found, %d error(s), %d duplicate(s) skipped\n",
		stats.Processed, summary.Elapsed().Round(time.Millisecond),
		stats.Found, stats.NotFound, stats.Errors, stats.Skipped)

	if cfg.SummaryFile != "" {
		if err := writeSummary(cfg.SummaryFile, summary); err != nil {
			logger.Error("failed to write summary", "path", cfg.SummaryFile, "error", err)
		}
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

// fetcherOptions translates the configuration into Fetcher options.
func fetcherOptions(cfg *config.Config, logger *slog.Logger) []crawler.FetcherOption {
	opts := []crawler.FetcherOption{
		crawler.WithRetry(cfg.RetryAttempts, cfg.RetryDelay),
		crawler.WithFetcherLogger(logger),
	}
	if cfg.MaxBodySize > 0 {
		opts = append(opts, crawler.WithMaxBodySize(cfg.MaxBodySize))
	}
	if cfg.RequestsPerSecond > 0 {
		opts = append(opts, crawler.WithRateLimit(cfg.RequestsPerSecond))
	}
	return opts
}

// checkProxies logs proxies that do not accept TCP connections.
// Unreachable proxies stay in the pool; their requests fail and are retried.
func checkProxies(ctx context.Context, pool *proxy.Pool, logger *slog.Logger) {
	if !pool.Enabled() {
		return
	}
	for _, endpoint := range pool.Endpoints() {
		if err := proxy.CheckEndpoint(ctx, endpoint); err != nil {
			logger.Warn("proxy unreachable", "proxy", endpoint.Redacted(), "error", err)
		}
	}
}

// newRenderer creates the headless browser renderer. Chrome is pointed at the
// first configured proxy because it takes a single proxy server per browser.
func newRenderer(cfg *config.Config, pool *proxy.Pool) *render.ChromeRenderer {
	opts := []render.Option{
		render.WithUserAgent(cfg.UserAgent),
		render.WithTimeout(render.DefaultRenderTimeout),
	}
	if endpoints := pool.Endpoints(); len(endpoints) > 0 {
		scheme := endpoints[0].Scheme
		if scheme == "socks5h" {
			scheme = "socks5"
		}
		opts = append(opts, render.WithProxyServer(scheme+"://"+endpoints[0].Host))
	}
	return render.NewChromeRenderer(opts...)
}

// resultWriter returns the terminal writer for the selected format.
func resultWriter(cfg *config.Config, stdout io.Writer) report.Writer {
	if cfg.JSONOutput {
		return report.NewJSONWriter(stdout)
	}
	return report.NewSimpleWriter(stdout, report.WithVerbose(cfg.Verbose))
}

// buildSource chains command line targets and the --list file.
func buildSource(cfg *config.Config) (scheduler.Source, func(), error) {
	sources := []scheduler.Source{scheduler.NewSliceSource(cfg.Targets...)}
	closeFn := func() {}

	if cfg.ListFile != "" {
		fileSrc, err := scheduler.OpenFileSource(cfg.ListFile)
		if err != nil {
			return nil, nil, err
		}
		sources = append(sources, fileSrc)
		closeFn = func() { _ = fileSrc.Close() }
	}
	return scheduler.NewMultiSource(sources...), closeFn, nil
}

// writeSummary writes the Markdown run summary to path.
func writeSummary(path string, summary *report.Summary) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create summary directory: %w", err)
		}
	}

	f, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer f.Close()

	_, err = report.NewMarkdownWriter(f).WriteSummary(summary)
	return err
}

// dbWriter adapts ResultDB to report.Writer.
type dbWriter struct {
	ctx context.Context //nolint:containedctx // bound to one run
	db  *database.ResultDB
}

// Write implements report.Writer.
func (w *dbWriter) Write(result *model.ScanResult) (int, error) {
	if _, err := w.db.SaveResult(w.ctx, result); err != nil {
		return 0, err
	}
	return 1, nil
}
