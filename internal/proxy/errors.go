package proxy

import "errors"

var (
	// ErrUnsupportedScheme is returned for proxy URLs whose scheme is not
	// http, https, socks5 or socks5h.
	ErrUnsupportedScheme = errors.New("unsupported proxy scheme")

	// ErrMissingHost is returned for proxy URLs without host:port.
	ErrMissingHost = errors.New("proxy url has no host")

	// ErrProxyUnreachable is returned by CheckEndpoint when no TCP connection
	// to the proxy could be established.
	ErrProxyUnreachable = errors.New("cannot connect to proxy")
)
