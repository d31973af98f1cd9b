package crawler

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/gatewayscan/internal/model"
)

// staticClients always hands out the same client.
type staticClients struct {
	client *http.Client
}

func (s staticClients) Client() (*http.Client, *url.URL) {
	return s.client, nil
}

// sleepRecorder records requested delays without sleeping.
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return ctx.Err()
}

func (r *sleepRecorder) calls() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

func newTestFetcher(rec *sleepRecorder, opts ...FetcherOption) *Fetcher {
	base := []FetcherOption{WithRetry(3, 5*time.Second), WithSleep(rec.sleep)}
	return NewFetcher(staticClients{client: &http.Client{}}, append(base, opts...)...)
}

// blockUntilDone holds the request open until the client gives up.
func blockUntilDone(r *http.Request) {
	select {
	case <-r.Context().Done():
	case <-time.After(5 * time.Second):
	}
}

func TestFetcher_Success(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html>braintree</html>"))
	}))
	defer server.Close()

	rec := &sleepRecorder{}
	out := newTestFetcher(rec).Fetch(t.Context(), server.URL, time.Second)

	if !out.OK() {
		t.Fatalf("expected success, got %v", out.Err)
	}
	if out.Body != "<html>braintree</html>" {
		t.Errorf("unexpected body %q", out.Body)
	}
	if out.StatusCode != http.StatusOK {
		t.Errorf("status = %d", out.StatusCode)
	}
	if hits.Load() != 1 {
		t.Errorf("expected 1 request, got %d", hits.Load())
	}
	if len(rec.calls()) != 0 {
		t.Errorf("expected no sleeps, got %v", rec.calls())
	}
}

func TestFetcher_HTTPStatusIsNotRetried(t *testing.T) {
	t.Parallel()

	for _, code := range []int{http.StatusNotFound, http.StatusForbidden, http.StatusInternalServerError, http.StatusNoContent} {
		t.Run(http.StatusText(code), func(t *testing.T) {
			t.Parallel()

			var hits atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				hits.Add(1)
				w.WriteHeader(code)
			}))
			defer server.Close()

			rec := &sleepRecorder{}
			out := newTestFetcher(rec).Fetch(t.Context(), server.URL, time.Second)

			if out.OK() {
				t.Fatal("expected failure")
			}
			if out.Err.Kind != model.KindHTTPStatus {
				t.Errorf("kind = %v, want HTTPStatusError", out.Err.Kind)
			}
			if out.Err.StatusCode != code {
				t.Errorf("status code = %d, want %d", out.Err.StatusCode, code)
			}
			if hits.Load() != 1 {
				t.Errorf("expected exactly 1 request, got %d", hits.Load())
			}
			if len(rec.calls()) != 0 {
				t.Errorf("expected no retry sleeps, got %v", rec.calls())
			}
		})
	}
}

func TestFetcher_TimeoutExhaustsRetries(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		blockUntilDone(r)
	}))
	defer server.Close()

	rec := &sleepRecorder{}
	out := newTestFetcher(rec).Fetch(t.Context(), server.URL, 50*time.Millisecond)

	if out.OK() {
		t.Fatal("expected failure")
	}
	if out.Err.Kind != model.KindTimeout {
		t.Errorf("kind = %v, want Timeout", out.Err.Kind)
	}
	if out.Err.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", out.Err.Attempts)
	}
	if hits.Load() != 3 {
		t.Errorf("expected 3 requests, got %d", hits.Load())
	}
	delays := rec.calls()
	if len(delays) != 2 {
		t.Fatalf("expected 2 sleeps between 3 attempts, got %v", delays)
	}
	for _, d := range delays {
		if d != 5*time.Second {
			t.Errorf("sleep = %v, want fixed 5s", d)
		}
	}
}

func TestFetcher_ConnectionErrorExhaustsRetries(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	rec := &sleepRecorder{}
	out := newTestFetcher(rec).Fetch(t.Context(), "http://"+addr+"/", time.Second)

	if out.OK() {
		t.Fatal("expected failure")
	}
	if out.Err.Kind != model.KindConnection {
		t.Errorf("kind = %v, want ConnectionError (err: %v)", out.Err.Kind, out.Err.Err)
	}
	if out.Err.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", out.Err.Attempts)
	}
	if len(rec.calls()) != 2 {
		t.Errorf("expected 2 sleeps, got %d", len(rec.calls()))
	}
}

func TestFetcher_RecoversAfterTimeout(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			blockUntilDone(r)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	rec := &sleepRecorder{}
	out := newTestFetcher(rec).Fetch(t.Context(), server.URL, 100*time.Millisecond)

	if !out.OK() {
		t.Fatalf("expected success on second attempt, got %v", out.Err)
	}
	if out.Body != "ok" {
		t.Errorf("body = %q", out.Body)
	}
	if hits.Load() != 2 {
		t.Errorf("expected 2 requests, got %d", hits.Load())
	}
}

func TestFetcher_UnsupportedSchemeIsUnexpected(t *testing.T) {
	t.Parallel()

	rec := &sleepRecorder{}
	out := newTestFetcher(rec).Fetch(t.Context(), "ftp://files.example.com/", time.Second)

	if out.OK() {
		t.Fatal("expected failure")
	}
	if out.Err.Kind != model.KindUnexpected {
		t.Errorf("kind = %v, want Unexpected", out.Err.Kind)
	}
	if len(rec.calls()) != 0 {
		t.Errorf("unexpected errors must not be retried")
	}
}

func TestFetcher_CancelledContextStopsRetries(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		blockUntilDone(r)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(t.Context())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	rec := &sleepRecorder{}
	out := newTestFetcher(rec).Fetch(ctx, server.URL, 10*time.Second)

	if out.OK() {
		t.Fatal("expected failure")
	}
	if out.Err.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", out.Err.Attempts)
	}
	if out.Err.Kind.Retryable() {
		t.Errorf("cancellation must not be classified retryable, got %v", out.Err.Kind)
	}
}

func TestFetcher_DecodesCharset(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		_, _ = w.Write([]byte("caf\xe9"))
	}))
	defer server.Close()

	out := newTestFetcher(&sleepRecorder{}).Fetch(t.Context(), server.URL, time.Second)
	if !out.OK() {
		t.Fatal(out.Err)
	}
	if out.Body != "café" {
		t.Errorf("body = %q, want %q", out.Body, "café")
	}
}

func TestFetcher_MaxBodySize(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(strings.Repeat("a", 1000)))
	}))
	defer server.Close()

	out := newTestFetcher(&sleepRecorder{}, WithMaxBodySize(100)).Fetch(t.Context(), server.URL, time.Second)
	if !out.OK() {
		t.Fatal(out.Err)
	}
	if len(out.Body) != 100 {
		t.Errorf("body length = %d, want 100", len(out.Body))
	}
}

func TestFetcher_EmptyBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	rec := &sleepRecorder{}
	out := newTestFetcher(rec).Fetch(t.Context(), server.URL, time.Second)
	if !out.OK() {
		t.Fatalf("expected success for empty 200, got %v", out.Err)
	}
	if out.Body != "" || out.StatusCode != http.StatusOK {
		t.Errorf("body/status = %q/%d", out.Body, out.StatusCode)
	}
	if len(rec.calls()) != 0 {
		t.Errorf("empty body must not be retried, slept %v", rec.calls())
	}
}

func TestDecodeBodyEmpty(t *testing.T) {
	t.Parallel()

	for _, ct := range []string{"", "text/html", "text/html; charset=shift_jis"} {
		got, err := decodeBody(nil, ct)
		if err != nil || got != "" {
			t.Errorf("decodeBody(nil, %q) = %q, %v", ct, got, err)
		}
	}
}

func TestFetcher_Probe(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path == "/blocked" {
			w.WriteHeader(http.StatusTooManyRequests)
		}
	}))
	defer server.Close()

	f := newTestFetcher(&sleepRecorder{})
	if err := f.Probe(t.Context(), server.URL+"/ok", time.Second); err != nil {
		t.Errorf("expected healthy probe, got %v", err)
	}
	if err := f.Probe(t.Context(), server.URL+"/blocked", time.Second); err == nil {
		t.Error("expected probe failure for 429")
	}
	if hits.Load() != 2 {
		t.Errorf("probe must not retry, got %d requests", hits.Load())
	}
}

func TestSleepContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	start := time.Now()
	if err := SleepContext(ctx, time.Minute); err == nil {
		t.Error("expected context error")
	}
	if time.Since(start) > time.Second {
		t.Error("SleepContext did not return promptly on cancellation")
	}
	if err := SleepContext(t.Context(), time.Millisecond); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
