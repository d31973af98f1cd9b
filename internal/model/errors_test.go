package model

import (
	"errors"
	"strings"
	"testing"
)

func TestErrorKindRetryable(t *testing.T) {
	t.Parallel()

	retryable := map[ErrorKind]bool{
		KindConnection: true,
		KindTimeout:    true,
		KindInvalidURL: false,
		KindHTTPStatus: false,
		KindParse:      false,
		KindUnexpected: false,
	}
	for kind, want := range retryable {
		if got := kind.Retryable(); got != want {
			t.Errorf("%s: expected Retryable()=%v, got %v", kind, want, got)
		}
	}
}

func TestFetchError(t *testing.T) {
	t.Parallel()

	t.Run("formats status errors", func(t *testing.T) {
		t.Parallel()

		err := &FetchError{Kind: KindHTTPStatus, URL: "http://example.com", StatusCode: 404}
		if !strings.Contains(err.Error(), "404") {
			t.Errorf("expected status code in message, got %q", err.Error())
		}
	})

	t.Run("unwraps the cause", func(t *testing.T) {
		t.Parallel()

		cause := errors.New("connection refused")
		err := &FetchError{Kind: KindConnection, URL: "http://example.com", Attempts: 3, Err: cause}
		if !errors.Is(err, cause) {
			t.Error("expected errors.Is to find the cause")
		}
		if !strings.Contains(err.Error(), "3 attempts") {
			t.Errorf("expected attempt count in message, got %q", err.Error())
		}
	})
}

func TestStateString(t *testing.T) {
	t.Parallel()

	if StateFetchingSubpages.String() != "FETCHING_SUBPAGES" {
		t.Errorf("unexpected name %q", StateFetchingSubpages.String())
	}
	if !StateFailed.IsTerminal() || !StateReported.IsTerminal() {
		t.Error("expected FAILED and REPORTED to be terminal")
	}
	if StateScoring.IsTerminal() {
		t.Error("expected SCORING to be non-terminal")
	}
}

func TestScanResultDetailsText(t *testing.T) {
	t.Parallel()

	errResult := NewErrorResult("not a url", KindInvalidURL, "Invalid URL")
	if errResult.DetailsText() != "Invalid URL" {
		t.Errorf("expected error detail, got %q", errResult.DetailsText())
	}
	if errResult.Hits != 0 || errResult.PagesChecked != 0 {
		t.Error("expected zero hits and pages for error result")
	}

	found := &ScanResult{Status: StatusFound, MatchedSignals: []string{"a", "b"}}
	if found.DetailsText() != "a, b" {
		t.Errorf("expected joined signals, got %q", found.DetailsText())
	}
}
