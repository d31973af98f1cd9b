package render

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
)

// ErrClosed is returned by Render after Close.
var ErrClosed = errors.New("renderer is closed")

// Default render settings.
const (
	DefaultRenderTimeout = 30 * time.Second
	DefaultSettleDelay   = 2 * time.Second
)

// ChromeRenderer renders pages with chromedp.
// It is safe for concurrent use; each Render opens its own tab.
type ChromeRenderer struct {
	allocCtx    context.Context
	cancelAlloc context.CancelFunc
	timeout     time.Duration
	settle      time.Duration

	mu     sync.Mutex
	closed bool
}

// Option configures a ChromeRenderer.
type Option func(*settings)

type settings struct {
	userAgent string
	proxy     string
	timeout   time.Duration
	settle    time.Duration
	execPath  string
}

// WithUserAgent sets the browser's User-Agent.
func WithUserAgent(ua string) Option {
	return func(s *settings) {
		s.userAgent = ua
	}
}

// WithProxyServer routes browser traffic through proxy (scheme://host:port).
func WithProxyServer(proxy string) Option {
	return func(s *settings) {
		s.proxy = proxy
	}
}

// WithTimeout bounds one Render call.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithSettleDelay sets how long to wait after load for scripts to run.
func WithSettleDelay(d time.Duration) Option {
	return func(s *settings) {
		if d >= 0 {
			s.settle = d
		}
	}
}

// WithExecPath selects the browser binary.
func WithExecPath(path string) Option {
	return func(s *settings) {
		s.execPath = path
	}
}

// allocatorOptions builds the chromedp allocator flags for s.
func allocatorOptions(s *settings) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("ignore-certificate-errors", true),
	)
	if s.userAgent != "" {
		opts = append(opts, chromedp.UserAgent(s.userAgent))
	}
	if s.proxy != "" {
		opts = append(opts, chromedp.ProxyServer(s.proxy))
	}
	if s.execPath != "" {
		opts = append(opts, chromedp.ExecPath(s.execPath))
	}
	return opts
}

// NewChromeRenderer prepares a browser allocator. No browser process is
// started until the first Render.
func NewChromeRenderer(opts ...Option) *ChromeRenderer {
	s := &settings{timeout: DefaultRenderTimeout, settle: DefaultSettleDelay}
	for _, opt := range opts {
		opt(s)
	}
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), allocatorOptions(s)...)
	return &ChromeRenderer{
		allocCtx:    allocCtx,
		cancelAlloc: cancel,
		timeout:     s.timeout,
		settle:      s.settle,
	}
}

// Render navigates to pageURL and returns the serialized DOM.
func (r *ChromeRenderer) Render(ctx context.Context, pageURL string) (string, error) {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return "", ErrClosed
	}

	tabCtx, cancelTab := chromedp.NewContext(r.allocCtx)
	defer cancelTab()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, r.timeout)
	defer cancelTimeout()
	// chromedp contexts derive from the allocator, not from ctx.
	stop := context.AfterFunc(ctx, cancelTimeout)
	defer stop()

	var html string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(pageURL),
		chromedp.Sleep(r.settle),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("failed to render %s: %w", pageURL, err)
	}
	return html, nil
}

// Close shuts the browser down.
func (r *ChromeRenderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.closed {
		r.closed = true
		r.cancelAlloc()
	}
}
