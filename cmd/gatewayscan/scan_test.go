package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/gatewayscan/internal/config"
	"github.com/nao1215/gatewayscan/internal/model"
)

// TestNewScanCmd tests the scan command creation.
func TestNewScanCmd(t *testing.T) {
	t.Parallel()

	cmd := NewScanCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "scan [url...]" {
			t.Errorf("expected use 'scan [url...]', got %q", cmd.Use)
		}
	})

	t.Run("has descriptions", func(t *testing.T) {
		t.Parallel()
		if cmd.Short == "" || cmd.Long == "" {
			t.Error("expected non-empty descriptions")
		}
	})

	flagTests := []struct {
		name      string
		shorthand string
		defValue  string
	}{
		{"list", "l", ""},
		{"threshold", "n", "4"},
		{"timeout", "t", "15s"},
		{"root-timeout", "", "3s"},
		{"retries", "", "3"},
		{"retry-delay", "", "5s"},
		{"concurrency", "", "5"},
		{"user-agent", "u", config.DefaultUserAgent},
		{"proxy", "p", "[]"},
		{"rate", "", "0"},
		{"delay-min", "", "5s"},
		{"delay-max", "", "7s"},
		{"probe", "", "false"},
		{"same-site", "", "false"},
		{"confirm", "", "false"},
		{"render", "", "false"},
		{"json", "j", "false"},
		{"summary", "s", ""},
		{"ledger", "", config.DefaultLedgerPath},
		{"no-db", "", "false"},
	}
	for _, tt := range flagTests {
		t.Run("has "+tt.name+" flag", func(t *testing.T) {
			t.Parallel()
			flag := cmd.Flags().Lookup(tt.name)
			if flag == nil {
				t.Fatalf("expected %s flag", tt.name)
			}
			if flag.Shorthand != tt.shorthand {
				t.Errorf("expected shorthand %q, got %q", tt.shorthand, flag.Shorthand)
			}
			if flag.DefValue != tt.defValue {
				t.Errorf("expected default %q, got %q", tt.defValue, flag.DefValue)
			}
		})
	}

	t.Run("has db-dir flag", func(t *testing.T) {
		t.Parallel()
		if cmd.Flags().Lookup("db-dir") == nil {
			t.Fatal("expected db-dir flag")
		}
	})
}

// TestApplyFlags tests that only explicitly set flags override the config.
func TestApplyFlags(t *testing.T) {
	t.Parallel()

	t.Run("unchanged flags keep file values", func(t *testing.T) {
		t.Parallel()

		cmd := NewScanCmd()
		if err := cmd.ParseFlags([]string{}); err != nil {
			t.Fatal(err)
		}

		cfg := config.NewConfig()
		cfg.MinSignalHits = 7
		cfg.RetryAttempts = 9
		cfg.LedgerPath = "from-file.csv"

		if err := applyFlags(cmd, cfg); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.MinSignalHits != 7 {
			t.Errorf("MinSignalHits = %d, want 7", cfg.MinSignalHits)
		}
		if cfg.RetryAttempts != 9 {
			t.Errorf("RetryAttempts = %d, want 9", cfg.RetryAttempts)
		}
		if cfg.LedgerPath != "from-file.csv" {
			t.Errorf("LedgerPath = %q", cfg.LedgerPath)
		}
		if !cfg.SaveToDB {
			t.Error("expected SaveToDB to stay true")
		}
	})

	t.Run("changed flags override", func(t *testing.T) {
		t.Parallel()

		cmd := NewScanCmd()
		err := cmd.ParseFlags([]string{
			"-n", "2",
			"--timeout", "2s",
			"--root-timeout", "1s",
			"--retries", "1",
			"--retry-delay", "0s",
			"--concurrency", "3",
			"-u", "agent/1.0",
			"-p", "socks5://127.0.0.1:9050",
			"-p", "http://127.0.0.1:8080",
			"--rate", "2.5",
			"--delay-min", "1s",
			"--delay-max", "2s",
			"--probe",
			"--same-site",
			"--confirm",
			"--ledger", "",
			"--no-db",
			"--db-dir", "/tmp/gatewayscan-db",
			"-l", "sites.txt",
			"-j",
			"-s", "run.md",
		})
		if err != nil {
			t.Fatal(err)
		}

		cfg := config.NewConfig()
		if err := applyFlags(cmd, cfg); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.MinSignalHits != 2 {
			t.Errorf("MinSignalHits = %d", cfg.MinSignalHits)
		}
		if cfg.RequestTimeout != 2*time.Second || cfg.RootRequestTimeout != time.Second {
			t.Errorf("timeouts = %v/%v", cfg.RequestTimeout, cfg.RootRequestTimeout)
		}
		if cfg.RetryAttempts != 1 || cfg.RetryDelay != 0 {
			t.Errorf("retry = %d/%v", cfg.RetryAttempts, cfg.RetryDelay)
		}
		if cfg.SubpageConcurrency != 3 {
			t.Errorf("SubpageConcurrency = %d", cfg.SubpageConcurrency)
		}
		if cfg.UserAgent != "agent/1.0" {
			t.Errorf("UserAgent = %q", cfg.UserAgent)
		}
		if !cfg.ProxyEnabled || len(cfg.Proxies) != 2 {
			t.Errorf("proxies = %v enabled=%v", cfg.Proxies, cfg.ProxyEnabled)
		}
		if cfg.RequestsPerSecond != 2.5 {
			t.Errorf("RequestsPerSecond = %v", cfg.RequestsPerSecond)
		}
		if cfg.MinDelay != time.Second || cfg.MaxDelay != 2*time.Second {
			t.Errorf("delay = %v..%v", cfg.MinDelay, cfg.MaxDelay)
		}
		if !cfg.ProbeEnabled || !cfg.SameSiteOnly || !cfg.ConfirmFound {
			t.Error("expected probe, same-site and confirm to be enabled")
		}
		if cfg.LedgerPath != "" {
			t.Errorf("LedgerPath = %q, want empty", cfg.LedgerPath)
		}
		if cfg.SaveToDB {
			t.Error("expected SaveToDB to be false")
		}
		if cfg.DBDir != "/tmp/gatewayscan-db" {
			t.Errorf("DBDir = %q", cfg.DBDir)
		}
		if cfg.ListFile != "sites.txt" || !cfg.JSONOutput || cfg.SummaryFile != "run.md" {
			t.Errorf("output settings = %q %v %q", cfg.ListFile, cfg.JSONOutput, cfg.SummaryFile)
		}
	})
}

// TestBuildConfig tests loading the config file and layering flags on top.
func TestBuildConfig(t *testing.T) {
	t.Parallel()

	t.Run("creates missing config file", func(t *testing.T) {
		t.Parallel()

		cfgPath := filepath.Join(t.TempDir(), "config.yaml")
		root := NewRootCmd()
		root.SetOut(&bytes.Buffer{})
		root.SetErr(&bytes.Buffer{})
		if err := root.PersistentFlags().Set("config", cfgPath); err != nil {
			t.Fatal(err)
		}
		scan, _, err := root.Find([]string{"scan"})
		if err != nil {
			t.Fatal(err)
		}
		if err := scan.ParseFlags([]string{}); err != nil {
			t.Fatal(err)
		}

		cfg, err := buildConfig(scan, []string{"example.com"}, setupLogger(&bytes.Buffer{}, false, false))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := os.Stat(cfgPath); err != nil {
			t.Errorf("expected config file to be created: %v", err)
		}
		if cfg.ConfigFilePath != cfgPath {
			t.Errorf("ConfigFilePath = %q", cfg.ConfigFilePath)
		}
		if cfg.MinSignalHits != config.DefaultMinSignalHits {
			t.Errorf("MinSignalHits = %d", cfg.MinSignalHits)
		}
		if len(cfg.Targets) != 1 || cfg.Targets[0] != "example.com" {
			t.Errorf("Targets = %v", cfg.Targets)
		}
	})

	t.Run("flags override file values", func(t *testing.T) {
		t.Parallel()

		cfgPath := filepath.Join(t.TempDir(), "config.yaml")
		content := "minSignalHits: 6\nretryAttempts: 2\nsameSiteOnly: true\n"
		if err := os.WriteFile(cfgPath, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}

		root := NewRootCmd()
		if err := root.PersistentFlags().Set("config", cfgPath); err != nil {
			t.Fatal(err)
		}
		scan, _, err := root.Find([]string{"scan"})
		if err != nil {
			t.Fatal(err)
		}
		if err := scan.ParseFlags([]string{"--retries", "5"}); err != nil {
			t.Fatal(err)
		}

		cfg, err := buildConfig(scan, nil, setupLogger(&bytes.Buffer{}, false, false))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.MinSignalHits != 6 {
			t.Errorf("MinSignalHits = %d, want 6 from file", cfg.MinSignalHits)
		}
		if cfg.RetryAttempts != 5 {
			t.Errorf("RetryAttempts = %d, want 5 from flag", cfg.RetryAttempts)
		}
		if !cfg.SameSiteOnly {
			t.Error("expected SameSiteOnly from file")
		}
	})
}

// TestRunScanCmd tests the scan command execution.
func TestRunScanCmd(t *testing.T) {
	t.Parallel()

	t.Run("requires a target", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		root := NewRootCmd()
		root.SetOut(&bytes.Buffer{})
		root.SetErr(&bytes.Buffer{})
		root.SetArgs([]string{"scan",
			"--config", filepath.Join(dir, "config.yaml"),
			"--db-dir", dir,
		})

		err := root.Execute()
		if !errors.Is(err, config.ErrNoTarget) {
			t.Errorf("expected ErrNoTarget, got %v", err)
		}
	})

	t.Run("rejects invalid configuration", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		root := NewRootCmd()
		root.SetOut(&bytes.Buffer{})
		root.SetErr(&bytes.Buffer{})
		root.SetArgs([]string{"scan",
			"--config", filepath.Join(dir, "config.yaml"),
			"--db-dir", dir,
			"--concurrency", "0",
			"example.com",
		})

		err := root.Execute()
		if err == nil || !strings.Contains(err.Error(), "configuration error") {
			t.Errorf("expected configuration error, got %v", err)
		}
	})
}

// TestScanEndToEnd runs scan and history against a local HTTP server.
func TestScanEndToEnd(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `<html><body><a href="/checkout">Buy</a></body></html>`)
	})
	mux.HandleFunc("/checkout", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><head><script>
			var c = "braintree.client";
			var d = "dropin.create";
			var t = "client-token";
			var id = "bt0123456789abcdefghijklmnop";
		</script></head><body></body></html>`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	dir := t.TempDir()
	ledgerPath := filepath.Join(dir, "results.csv")
	summaryPath := filepath.Join(dir, "run.md")

	var out, errOut bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs([]string{"scan",
		"--config", filepath.Join(dir, "config.yaml"),
		"--db-dir", dir,
		"--ledger", ledgerPath,
		"--summary", summaryPath,
		"--delay-min", "0s",
		"--delay-max", "0s",
		"--retries", "1",
		"--json",
		server.URL,
		"not a url",
		server.URL,
	})

	if err := root.Execute(); err != nil {
		t.Fatalf("scan failed: %v (stderr %q)", err, errOut.String())
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 JSON lines (duplicate skipped), got %d: %q", len(lines), out.String())
	}

	var found, failed model.ScanResult
	if err := json.Unmarshal([]byte(lines[0]), &found); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if err := json.Unmarshal([]byte(lines[1]), &failed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if found.Status != model.StatusFound || found.PagesChecked != 2 || found.Hits != 5 {
		t.Errorf("first result = %s pages=%d hits=%d", found.Status, found.PagesChecked, found.Hits)
	}
	if failed.Status != model.StatusError || failed.URL != "not a url" {
		t.Errorf("second result = %s %q", failed.Status, failed.URL)
	}
	if !strings.Contains(errOut.String(), "1 found") {
		t.Errorf("expected run statistics on stderr, got %q", errOut.String())
	}

	t.Run("ledger", func(t *testing.T) {
		f, err := os.Open(ledgerPath)
		if err != nil {
			t.Fatal(err)
		}
		defer f.Close()

		rows, err := csv.NewReader(f).ReadAll()
		if err != nil {
			t.Fatal(err)
		}
		if len(rows) != 3 {
			t.Fatalf("expected header and 2 rows, got %d", len(rows))
		}
		if rows[1][3] != "FOUND" || rows[2][3] != "ERROR" {
			t.Errorf("statuses = %q, %q", rows[1][3], rows[2][3])
		}
	})

	t.Run("summary", func(t *testing.T) {
		content, err := os.ReadFile(summaryPath)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(content), "Gatewayscan Summary") {
			t.Error("expected summary heading")
		}
	})

	t.Run("history", func(t *testing.T) {
		var histOut bytes.Buffer
		hist := NewRootCmd()
		hist.SetOut(&histOut)
		hist.SetErr(&bytes.Buffer{})
		hist.SetArgs([]string{"history", "--db-dir", dir, "--json"})

		if err := hist.Execute(); err != nil {
			t.Fatalf("history failed: %v", err)
		}
		histLines := strings.Split(strings.TrimSpace(histOut.String()), "\n")
		if len(histLines) != 2 {
			t.Errorf("expected 2 stored results, got %d", len(histLines))
		}
	})

	t.Run("history filtered by status", func(t *testing.T) {
		var histOut bytes.Buffer
		hist := NewRootCmd()
		hist.SetOut(&histOut)
		hist.SetErr(&bytes.Buffer{})
		hist.SetArgs([]string{"history", "--db-dir", dir, "--status", "found"})

		if err := hist.Execute(); err != nil {
			t.Fatalf("history failed: %v", err)
		}
		if !strings.Contains(histOut.String(), server.URL) {
			t.Errorf("expected found URL in history, got %q", histOut.String())
		}
		if strings.Contains(histOut.String(), "not a url") {
			t.Error("expected error result to be filtered out")
		}
	})
}
