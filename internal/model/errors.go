package model

import (
	"fmt"
)

// ErrorKind classifies a failure observed while processing a candidate.
type ErrorKind int

const (
	// KindNone means no failure.
	KindNone ErrorKind = iota
	// KindInvalidURL means the URL failed validation.
	KindInvalidURL
	// KindConnection is a transport level failure (refused, reset, DNS).
	KindConnection
	// KindTimeout means the request exceeded its deadline.
	KindTimeout
	// KindHTTPStatus means the server answered with a non-200 status.
	KindHTTPStatus
	// KindParse means the content could not be decoded or parsed.
	KindParse
	// KindUnexpected covers everything else.
	KindUnexpected
)

// unknownStr is the string representation for unknown values.
const unknownStr = "unknown"

// String returns the kind name.
func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindInvalidURL:
		return "InvalidURL"
	case KindConnection:
		return "ConnectionError"
	case KindTimeout:
		return "Timeout"
	case KindHTTPStatus:
		return "HTTPStatusError"
	case KindParse:
		return "ParseError"
	case KindUnexpected:
		return "Unexpected"
	default:
		return unknownStr
	}
}

// Retryable reports whether the fetcher retries failures of this kind.
// Only connection errors and timeouts are retried.
func (k ErrorKind) Retryable() bool {
	return k == KindConnection || k == KindTimeout
}

// FetchError is a typed fetch failure.
type FetchError struct {
	// Kind classifies the failure.
	Kind ErrorKind

	// URL is the requested URL.
	URL string

	// StatusCode is set for KindHTTPStatus.
	StatusCode int

	// Attempts is the number of attempts made before giving up.
	Attempts int

	// Err is the underlying error, if any.
	Err error
}

// Error implements error.
func (e *FetchError) Error() string {
	switch {
	case e.Kind == KindHTTPStatus:
		return fmt.Sprintf("%s: %s returned status %d", e.Kind, e.URL, e.StatusCode)
	case e.Err != nil && e.Attempts > 1:
		return fmt.Sprintf("%s: %s after %d attempts: %v", e.Kind, e.URL, e.Attempts, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.URL, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.URL)
	}
}

// Unwrap returns the underlying error.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// FetchOutcome is the value returned by the fetcher for one URL.
// Exactly one of Body (with Err == nil) or Err is meaningful.
type FetchOutcome struct {
	// Body is the decoded response text. Empty on failure.
	Body string

	// StatusCode is the HTTP status of the last response, or 0 if none arrived.
	StatusCode int

	// Err is nil on success.
	Err *FetchError
}

// OK reports whether the fetch succeeded. A successful body may be empty.
func (o FetchOutcome) OK() bool {
	return o.Err == nil
}
