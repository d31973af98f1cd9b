package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultMinSignalHits is the classification threshold.
	DefaultMinSignalHits = 4

	// DefaultRequestTimeout applies to sub-page and script asset fetches.
	DefaultRequestTimeout = 15 * time.Second

	// DefaultRootRequestTimeout applies to the candidate's root page.
	// It is shorter than DefaultRequestTimeout so dead hosts are skipped quickly.
	DefaultRootRequestTimeout = 3 * time.Second

	// DefaultRetryAttempts is the total number of attempts for a fetch that
	// keeps failing with connection errors or timeouts.
	DefaultRetryAttempts = 3

	// DefaultRetryDelay is the fixed sleep between fetch attempts.
	DefaultRetryDelay = 5 * time.Second

	// DefaultSubpageConcurrency bounds in-flight sub-page and asset fetches
	// across the whole run.
	DefaultSubpageConcurrency = 5

	// DefaultUserAgent is the client identity sent with every request.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/114.0.0.0 Safari/537.36"

	// DefaultMinDelay and DefaultMaxDelay bound the randomized pause between candidates.
	DefaultMinDelay = 5 * time.Second
	DefaultMaxDelay = 7 * time.Second

	// DefaultMaxBodySize limits how much of a response body is read.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultProbeURL is the control URL used to detect access blocks.
	DefaultProbeURL = "http://www.google.com"

	// DefaultCooldown is the pause after a failed liveness probe.
	DefaultCooldown = 60 * time.Second

	// DefaultTelegramAPIBase is the Bot API endpoint used for notifications.
	DefaultTelegramAPIBase = "https://api.telegram.org"

	// DefaultLedgerPath is the CSV results ledger, relative to the working directory.
	DefaultLedgerPath = "gatewayscan_results.csv"

	// AppName is the application name used for XDG directory paths.
	AppName = "gatewayscan"

	// DefaultConfigFileName is the configuration file name inside XDGConfigDir.
	DefaultConfigFileName = "config.yaml"
)

// DefaultPaymentLinkKeywords returns the substrings that mark an anchor as a
// payment sub-page. A new slice is returned on every call.
func DefaultPaymentLinkKeywords() []string {
	return []string{"checkout", "payment", "cart", "shop", "billing", "purchase", "order", "pay", "product"}
}

// Config holds all configuration options for gatewayscan.
// It is populated once at startup and passed by value or pointer into the
// components that need it; no component mutates it after construction.
type Config struct {
	// MinSignalHits is the minimum number of matched signals for FOUND.
	MinSignalHits int

	// RequestTimeout is the per-attempt timeout for sub-page and asset fetches.
	RequestTimeout time.Duration

	// RootRequestTimeout is the per-attempt timeout for the root page.
	RootRequestTimeout time.Duration

	// RetryAttempts is the maximum number of attempts per fetch.
	RetryAttempts int

	// RetryDelay is the sleep between attempts.
	RetryDelay time.Duration

	// SubpageConcurrency is the run-wide ceiling on in-flight sub-page fetches.
	SubpageConcurrency int

	// UserAgent is the User-Agent header value.
	UserAgent string

	// ProxyEnabled turns on proxy selection for every fetch attempt.
	ProxyEnabled bool

	// Proxies are proxy URLs (http, https or socks5 schemes).
	Proxies []string

	// PaymentLinkKeywords are matched case-insensitively against anchor hrefs.
	PaymentLinkKeywords []string

	// MinDelay and MaxDelay bound the randomized delay between candidates.
	MinDelay time.Duration
	MaxDelay time.Duration

	// MaxBodySize is the maximum number of response bytes read per fetch.
	MaxBodySize int64

	// RequestsPerSecond limits the overall request rate. Zero disables the limit.
	RequestsPerSecond float64

	// Headers are extra request headers added to every request.
	Headers map[string]string

	// Sites holds per-host header and cookie overrides keyed by lower-case host.
	Sites map[string]SiteConfig

	// SameSiteOnly restricts payment sub-pages to the candidate's host.
	SameSiteOnly bool

	// ProbeEnabled turns on the liveness probe after every candidate.
	ProbeEnabled bool

	// ProbeURL is the control URL fetched by the liveness probe.
	ProbeURL string

	// Cooldown is the pause after a failed probe.
	Cooldown time.Duration

	// TelegramToken and TelegramChatID configure FOUND notifications.
	// Notifications are disabled while either is empty.
	TelegramToken  string
	TelegramChatID string

	// TelegramAPIBase is the Bot API base URL.
	TelegramAPIBase string

	// LedgerPath is the CSV results ledger. Empty disables the ledger.
	LedgerPath string

	// RenderJavaScript renders the root page in a headless browser.
	RenderJavaScript bool

	// ConfirmFound runs the secondary confirmation check for candidates with hits.
	ConfirmFound bool

	// ConfigFilePath is the YAML file the values were loaded from.
	ConfigFilePath string

	// DBDir is the directory of the SQLite results database.
	DBDir string

	// SaveToDB records every result in the results database.
	SaveToDB bool

	// Verbose enables debug logging.
	Verbose bool

	// JSONOutput prints one JSON object per result instead of text blocks.
	JSONOutput bool

	// SummaryFile is an optional Markdown run summary path.
	SummaryFile string

	// ListFile is a file of candidate URLs, "-" for stdin.
	ListFile string

	// Targets are candidate URLs given on the command line.
	Targets []string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		MinSignalHits:       DefaultMinSignalHits,
		RequestTimeout:      DefaultRequestTimeout,
		RootRequestTimeout:  DefaultRootRequestTimeout,
		RetryAttempts:       DefaultRetryAttempts,
		RetryDelay:          DefaultRetryDelay,
		SubpageConcurrency:  DefaultSubpageConcurrency,
		UserAgent:           DefaultUserAgent,
		Proxies:             []string{},
		PaymentLinkKeywords: DefaultPaymentLinkKeywords(),
		MinDelay:            DefaultMinDelay,
		MaxDelay:            DefaultMaxDelay,
		MaxBodySize:         DefaultMaxBodySize,
		Headers:             map[string]string{},
		Sites:               map[string]SiteConfig{},
		ProbeURL:            DefaultProbeURL,
		Cooldown:            DefaultCooldown,
		TelegramAPIBase:     DefaultTelegramAPIBase,
		LedgerPath:          DefaultLedgerPath,
		SaveToDB:            true,
		DBDir:               XDGDataDir(),
	}
}

// NotificationsEnabled reports whether both Telegram settings are present.
func (c *Config) NotificationsEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != ""
}

// XDGDataDir returns the XDG data directory for gatewayscan.
// On Linux: ~/.local/share/gatewayscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for gatewayscan.
// On Linux: ~/.config/gatewayscan
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// DefaultConfigFilePath returns the configuration file used when --config is not given.
func DefaultConfigFilePath() string {
	return filepath.Join(XDGConfigDir(), DefaultConfigFileName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found.
func (c *Config) Validate() error {
	if c.MinSignalHits < 1 {
		return ErrInvalidThreshold
	}
	if c.RequestTimeout <= 0 || c.RootRequestTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.RetryAttempts < 1 {
		return ErrInvalidRetryAttempts
	}
	if c.RetryDelay < 0 {
		return ErrInvalidRetryDelay
	}
	if c.SubpageConcurrency < 1 {
		return ErrInvalidConcurrency
	}
	if c.MinDelay < 0 || c.MaxDelay < c.MinDelay {
		return ErrInvalidDelayBounds
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.RequestsPerSecond < 0 {
		return ErrInvalidRate
	}
	if c.Cooldown < 0 {
		return ErrInvalidCooldown
	}
	if c.ProbeEnabled && c.ProbeURL == "" {
		return ErrMissingProbeURL
	}
	return nil
}
