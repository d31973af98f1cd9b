package model

import (
	"errors"
	"net/url"
	"strings"
)

// ErrInvalidURL is returned when a candidate URL lacks a scheme or host,
// or cannot be parsed at all.
var ErrInvalidURL = errors.New("invalid URL")

// defaultScheme is prefixed to candidates that carry no scheme.
const defaultScheme = "http://"

// NormalizeURL validates a raw candidate string and returns its absolute form.
//
// A string without an explicit "scheme://" prefix is prefixed with "http://",
// so hosts that merely begin with "http" (httpbin.org) are handled too.
// The result must have both a non-empty scheme and a non-empty host.
// Surrounding whitespace is ignored.
func NormalizeURL(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", ErrInvalidURL
	}
	if !hasScheme(s) {
		s = defaultScheme + s
	}
	if !IsValidURL(s) {
		return "", ErrInvalidURL
	}
	return s, nil
}

// IsValidURL reports whether s parses with a non-empty scheme and host.
// It does not add a scheme.
func IsValidURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}

// hasScheme reports whether s begins with an RFC 3986 scheme followed by "://".
func hasScheme(s string) bool {
	i := strings.Index(s, "://")
	if i <= 0 {
		return false
	}
	for j, r := range s[:i] {
		switch {
		case 'a' <= r && r <= 'z', 'A' <= r && r <= 'Z':
		case j > 0 && ('0' <= r && r <= '9' || r == '+' || r == '-' || r == '.'):
		default:
			return false
		}
	}
	return true
}
