package crawler

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"syscall"
	"time"

	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"

	"github.com/nao1215/gatewayscan/internal/model"
)

// defaultMaxBodySize is used when no body limit is configured.
const defaultMaxBodySize int64 = 5 * 1024 * 1024

// ClientSource supplies the HTTP client for a single fetch attempt.
// *proxy.Pool implements it.
type ClientSource interface {
	Client() (*http.Client, *url.URL)
}

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Fetcher retrieves documents with bounded retries.
//
// Connection errors and timeouts are retried up to the configured number of
// attempts with a fixed delay between them. Non-200 responses and every
// other error fail immediately. A Fetcher is safe for concurrent use.
//
// Design decision: Fetch reports failures through model.FetchOutcome rather
// than a Go error because:
//  1. Callers fan out many fetches and need the failure kind per URL
//  2. A failed sub-page is data for the result, not a reason to stop
//  3. The root step maps the kind straight onto the ERROR detail
type Fetcher struct {
	clients     ClientSource
	attempts    int
	retryDelay  time.Duration
	maxBodySize int64
	limiter     *rate.Limiter
	sleep       SleepFunc
	logger      *slog.Logger
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithRetry sets the maximum attempts and the delay between them.
func WithRetry(attempts int, delay time.Duration) FetcherOption {
	return func(f *Fetcher) {
		if attempts > 0 {
			f.attempts = attempts
		}
		if delay >= 0 {
			f.retryDelay = delay
		}
	}
}

// WithMaxBodySize limits how many bytes of a response body are read.
func WithMaxBodySize(size int64) FetcherOption {
	return func(f *Fetcher) {
		if size > 0 {
			f.maxBodySize = size
		}
	}
}

// WithRateLimit caps the request rate across every caller of the Fetcher.
// A non-positive value disables the limit.
func WithRateLimit(perSecond float64) FetcherOption {
	return func(f *Fetcher) {
		if perSecond > 0 {
			f.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// WithSleep replaces the function used to wait between attempts.
func WithSleep(sleep SleepFunc) FetcherOption {
	return func(f *Fetcher) {
		if sleep != nil {
			f.sleep = sleep
		}
	}
}

// WithFetcherLogger sets the logger.
func WithFetcherLogger(logger *slog.Logger) FetcherOption {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewFetcher creates a Fetcher drawing clients from clients.
// Defaults: 3 attempts, 5s apart, 5MB body limit, no rate limit.
func NewFetcher(clients ClientSource, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		clients:     clients,
		attempts:    3,
		retryDelay:  5 * time.Second,
		maxBodySize: defaultMaxBodySize,
		sleep:       SleepContext,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch retrieves rawURL, allowing timeout per attempt.
// The returned outcome carries either the decoded body or a typed failure.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, timeout time.Duration) model.FetchOutcome {
	var last *model.FetchError
	status := 0

	for attempt := 1; attempt <= f.attempts; attempt++ {
		if attempt > 1 {
			if err := f.sleep(ctx, f.retryDelay); err != nil {
				break
			}
		}

		body, code, ferr := f.attempt(ctx, rawURL, timeout)
		status = code
		if ferr == nil {
			return model.FetchOutcome{Body: body, StatusCode: code}
		}
		ferr.Attempts = attempt
		last = ferr

		if !ferr.Kind.Retryable() || ctx.Err() != nil {
			break
		}
		f.logger.Debug("fetch attempt failed",
			"url", rawURL,
			"attempt", attempt,
			"max_attempts", f.attempts,
			"kind", ferr.Kind.String(),
			"error", ferr.Err,
		)
	}

	if last == nil {
		// Cancelled before the first attempt.
		last = &model.FetchError{Kind: model.KindUnexpected, URL: rawURL, Err: ctx.Err()}
	}
	return model.FetchOutcome{StatusCode: status, Err: last}
}

// Probe performs a single GET of rawURL and reports whether it returned 200.
// It is used as a liveness check and is not retried.
func (f *Fetcher) Probe(ctx context.Context, rawURL string, timeout time.Duration) error {
	_, _, ferr := f.attempt(ctx, rawURL, timeout)
	if ferr != nil {
		return ferr
	}
	return nil
}

func (f *Fetcher) attempt(ctx context.Context, rawURL string, timeout time.Duration) (string, int, *model.FetchError) {
	fail := func(kind model.ErrorKind, err error) *model.FetchError {
		return &model.FetchError{Kind: kind, URL: rawURL, Err: err}
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return "", 0, fail(model.KindUnexpected, err)
		}
	}

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", 0, fail(model.KindUnexpected, err)
	}

	client, _ := f.clients.Client()
	resp, err := client.Do(req)
	if err != nil {
		return "", 0, fail(classify(ctx, err), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain a little so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck // best effort
		ferr := fail(model.KindHTTPStatus, fmt.Errorf("status %s", resp.Status))
		ferr.StatusCode = resp.StatusCode
		return "", resp.StatusCode, ferr
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return "", resp.StatusCode, fail(classify(ctx, err), err)
	}

	body, err := decodeBody(raw, resp.Header.Get("Content-Type"))
	if err != nil {
		return "", resp.StatusCode, fail(model.KindParse, err)
	}
	return body, resp.StatusCode, nil
}

// decodeBody converts raw to UTF-8 using the declared or sniffed charset.
// An empty body decodes to the empty string.
func decodeBody(raw []byte, contentType string) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}
	r, err := charset.NewReader(bytes.NewReader(raw), contentType)
	if err != nil {
		return "", fmt.Errorf("failed to decode body: %w", err)
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to decode body: %w", err)
	}
	return string(decoded), nil
}

// classify maps a transport error to an ErrorKind. parent is the caller's
// context; its cancellation is not treated as a retryable timeout.
func classify(parent context.Context, err error) model.ErrorKind {
	if parent.Err() != nil {
		return model.KindUnexpected
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return model.KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return model.KindTimeout
	}

	var (
		opErr     *net.OpError
		dnsErr    *net.DNSError
		alertErr  tls.AlertError
		recordErr tls.RecordHeaderError
	)
	switch {
	case errors.As(err, &opErr), errors.As(err, &dnsErr):
		return model.KindConnection
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return model.KindConnection
	case errors.Is(err, syscall.ECONNREFUSED), errors.Is(err, syscall.ECONNRESET), errors.Is(err, syscall.EPIPE):
		return model.KindConnection
	case errors.As(err, &alertErr), errors.As(err, &recordErr):
		return model.KindConnection
	}
	return model.KindUnexpected
}

// SleepContext waits for d, returning early with ctx.Err() when ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
