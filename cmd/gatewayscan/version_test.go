package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/nao1215/gatewayscan/internal/detect"
)

func TestCurrentBuild(t *testing.T) {
	t.Parallel()

	info := currentBuild()
	if info.Version == "" || info.Commit == "" || info.BuiltAt == "" {
		t.Errorf("expected every field to have a fallback, got %+v", info)
	}
	if len(info.Commit) > shortCommit {
		t.Errorf("commit %q not shortened", info.Commit)
	}
	if !strings.HasPrefix(info.GoVersion, "go") {
		t.Errorf("GoVersion = %q", info.GoVersion)
	}
	if info.Signals != detect.DefaultBank().Len() {
		t.Errorf("Signals = %d", info.Signals)
	}
	if getVersion() != info.Version {
		t.Errorf("getVersion() = %q, want %q", getVersion(), info.Version)
	}
}

func TestVersionCmd(t *testing.T) {
	t.Parallel()

	t.Run("text", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		cmd := NewVersionCmd()
		cmd.SetOut(&buf)
		cmd.SetArgs([]string{})
		if err := cmd.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		for _, want := range []string{"gatewayscan version", "commit:", "built:", "go:", "signals: 12"} {
			if !strings.Contains(buf.String(), want) {
				t.Errorf("expected %q in %q", want, buf.String())
			}
		}
	})

	t.Run("json", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		cmd := NewVersionCmd()
		cmd.SetOut(&buf)
		cmd.SetArgs([]string{"--json"})
		if err := cmd.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var got buildInfo
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("invalid JSON %q: %v", buf.String(), err)
		}
		if got.Version == "" || got.Signals != 12 || len(got.SignalNames) != 12 {
			t.Errorf("unexpected build info %+v", got)
		}
	})

	t.Run("rejects arguments", func(t *testing.T) {
		t.Parallel()

		cmd := NewVersionCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"extra"})
		if err := cmd.Execute(); err == nil {
			t.Error("expected error for extra argument")
		}
	})
}
