package proxy

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net"
	"net/http"
	"net/url"
	"strings"
)

// Pool hands out HTTP clients for fetch attempts.
// It is safe for concurrent use; the clients are built once in NewPool.
//
// Design decision: Pool keeps one client per endpoint and picks one at
// random per attempt instead of per candidate. A retry after a timeout
// then usually leaves through a different proxy, and keep-alive
// connections stay with the client that opened them.
type Pool struct {
	direct    *http.Client
	endpoints []*url.URL
	clients   []*http.Client
	intn      func(n int) int
}

// NewPool creates a Pool. When enabled is false or rawProxies is empty every
// Client call returns the direct client.
func NewPool(enabled bool, rawProxies []string, opts ClientOptions) (*Pool, error) {
	direct, err := newHTTPClient(nil, opts)
	if err != nil {
		return nil, err
	}
	p := &Pool{direct: direct, intn: rand.IntN}
	if !enabled {
		return p, nil
	}
	for _, raw := range rawProxies {
		endpoint, err := ParseEndpoint(raw)
		if err != nil {
			return nil, err
		}
		client, err := newHTTPClient(endpoint, opts)
		if err != nil {
			return nil, err
		}
		p.endpoints = append(p.endpoints, endpoint)
		p.clients = append(p.clients, client)
	}
	return p, nil
}

// Enabled reports whether requests go through proxies.
func (p *Pool) Enabled() bool {
	return len(p.clients) > 0
}

// Endpoints returns the parsed proxy endpoints.
func (p *Pool) Endpoints() []*url.URL {
	return p.endpoints
}

// Client returns the client for one fetch attempt along with its proxy
// endpoint, which is nil for the direct client.
func (p *Pool) Client() (*http.Client, *url.URL) {
	if len(p.clients) == 0 {
		return p.direct, nil
	}
	i := p.intn(len(p.clients))
	return p.clients[i], p.endpoints[i]
}

// Direct returns the client that bypasses every proxy.
func (p *Pool) Direct() *http.Client {
	return p.direct
}

// ParseEndpoint parses and validates a proxy URL.
// A bare "host:port" is treated as an http proxy.
func ParseEndpoint(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy url: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "socks5", "socks5h":
		u.Scheme = strings.ToLower(u.Scheme)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
	if u.Hostname() == "" || u.Port() == "" {
		return nil, fmt.Errorf("%w: %q", ErrMissingHost, u.Redacted())
	}
	return u, nil
}

// CheckEndpoint verifies that a TCP connection to the proxy can be opened.
// It does not send any proxy protocol traffic.
func CheckEndpoint(ctx context.Context, endpoint *url.URL) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", endpoint.Host)
	if err != nil {
		return fmt.Errorf("%w %s: %w", ErrProxyUnreachable, endpoint.Redacted(), err)
	}
	return conn.Close()
}
