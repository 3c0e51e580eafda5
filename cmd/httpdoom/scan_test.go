package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/httpdoom/internal/config"
	"github.com/nao1215/httpdoom/internal/database"
	"github.com/nao1215/httpdoom/internal/pipeline"
	"github.com/nao1215/httpdoom/internal/report"
	"github.com/nao1215/httpdoom/internal/wordlist"
)

// TestNewScanCmd tests the scan command creation.
func TestNewScanCmd(t *testing.T) {
	t.Parallel()

	cmd := NewScanCmd()

	if cmd.Use != "scan" {
		t.Errorf("expected use 'scan', got %q", cmd.Use)
	}
	if cmd.Short == "" || cmd.Long == "" {
		t.Error("expected non-empty descriptions")
	}

	flags := []struct {
		name      string
		shorthand string
		defValue  string
	}{
		{name: "word-list", shorthand: "w", defValue: ""},
		{name: "threads", shorthand: "T"},
		{name: "http-timeout", shorthand: "t", defValue: "5000"},
		{name: "ports", shorthand: "p", defValue: "[80,443,8080,8433]"},
		{name: "proxy", shorthand: "P", defValue: ""},
		{name: "header", shorthand: "H", defValue: "[]"},
		{name: "output-directory", shorthand: "o", defValue: ""},
		{name: "follow-redirects", shorthand: "f", defValue: "false"},
		{name: "config", shorthand: "c", defValue: ""},
		{name: "detect", defValue: "false"},
		{name: "screenshot", defValue: "false"},
		{name: "screenshot-resolution", defValue: "1920x1080"},
		{name: "no-resolve", defValue: "false"},
		{name: "sqlite", defValue: "false"},
		{name: "rate-limit", defValue: "0"},
		{name: "max-redirects", defValue: "10"},
		{name: "metrics-addr", defValue: ""},
		{name: "user-agent", defValue: ""},
		{name: "rules-url", defValue: ""},
	}

	for _, tt := range flags {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			flag := cmd.Flags().Lookup(tt.name)
			if flag == nil {
				t.Fatalf("expected %s flag", tt.name)
			}
			if flag.Shorthand != tt.shorthand {
				t.Errorf("expected shorthand %q, got %q", tt.shorthand, flag.Shorthand)
			}
			if tt.name != "threads" && flag.DefValue != tt.defValue {
				t.Errorf("expected default %q, got %q", tt.defValue, flag.DefValue)
			}
		})
	}
}

func TestGetDebugFlag(t *testing.T) {
	t.Parallel()

	t.Run("from root persistent flag", func(t *testing.T) {
		t.Parallel()
		root := NewRootCmd()
		if err := root.PersistentFlags().Set("debug", "true"); err != nil {
			t.Fatal(err)
		}
		scan, _, err := root.Find([]string{"scan"})
		if err != nil {
			t.Fatal(err)
		}
		if !getDebugFlag(scan) {
			t.Error("expected debug to be true")
		}
	})

	t.Run("standalone command", func(t *testing.T) {
		t.Parallel()
		if getDebugFlag(NewScanCmd()) {
			t.Error("expected debug to be false without a root command")
		}
	})
}

func TestBuildConfig(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()
		cmd := NewScanCmd()
		if err := cmd.ParseFlags([]string{"-w", "hosts.txt", "-c", writeConfigFile(t, "")}); err != nil {
			t.Fatal(err)
		}

		cfg, err := buildConfig(cmd, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.WordList != "hosts.txt" {
			t.Errorf("expected word list hosts.txt, got %q", cfg.WordList)
		}
		if cfg.Timeout != config.DefaultTimeout {
			t.Errorf("expected timeout %v, got %v", config.DefaultTimeout, cfg.Timeout)
		}
		if !slices.Equal(cfg.Ports, config.DefaultPorts()) {
			t.Errorf("expected ports %v, got %v", config.DefaultPorts(), cfg.Ports)
		}
		if !cfg.Resolve {
			t.Error("expected resolution to be enabled by default")
		}
		if cfg.FollowRedirects || cfg.Detect || cfg.Screenshot || cfg.SQLite {
			t.Error("expected optional steps to be disabled by default")
		}
		if cfg.OutputDir == "" {
			t.Error("expected a default output directory")
		}
	})

	t.Run("flags", func(t *testing.T) {
		t.Parallel()
		cmd := NewScanCmd()
		args := []string{
			"-w", "https://example.com/hosts.txt",
			"-T", "16",
			"-t", "8000",
			"-p", "80,8000",
			"-P", "127.0.0.1:8080",
			"-H", "X-One: 1",
			"-H", "X-Two: 2",
			"-o", "out",
			"-f",
			"--detect",
			"--screenshot",
			"--no-resolve",
			"--sqlite",
			"--rate-limit", "2.5",
			"-c", writeConfigFile(t, ""),
		}
		if err := cmd.ParseFlags(args); err != nil {
			t.Fatal(err)
		}

		cfg, err := buildConfig(cmd, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Threads != 16 {
			t.Errorf("expected 16 threads, got %d", cfg.Threads)
		}
		if cfg.Timeout != 8*time.Second {
			t.Errorf("expected 8s timeout, got %v", cfg.Timeout)
		}
		if !slices.Equal(cfg.Ports, []int{80, 8000}) {
			t.Errorf("expected ports [80 8000], got %v", cfg.Ports)
		}
		if cfg.Proxy != "127.0.0.1:8080" {
			t.Errorf("expected proxy, got %q", cfg.Proxy)
		}
		if !slices.Equal(cfg.Headers, []string{"X-One: 1", "X-Two: 2"}) {
			t.Errorf("unexpected headers %v", cfg.Headers)
		}
		if cfg.OutputDir != "out" {
			t.Errorf("expected output dir 'out', got %q", cfg.OutputDir)
		}
		if !cfg.FollowRedirects || !cfg.Detect || !cfg.Screenshot || !cfg.SQLite {
			t.Error("expected optional steps to be enabled")
		}
		if cfg.Resolve {
			t.Error("expected resolution to be disabled")
		}
		if cfg.RateLimit != 2.5 {
			t.Errorf("expected rate limit 2.5, got %v", cfg.RateLimit)
		}
	})

	t.Run("config file fills unset flags", func(t *testing.T) {
		t.Parallel()
		path := writeConfigFile(t, `defaults:
  ports: [8000, 9000]
  threads: 3
  timeout: 7000
  headers:
    X-File: file
hosts:
  App.Example.com:
    headers:
      Authorization: Bearer token
`)
		cmd := NewScanCmd()
		if err := cmd.ParseFlags([]string{"-w", "hosts.txt", "-c", path, "-T", "9", "-H", "X-Cli: cli"}); err != nil {
			t.Fatal(err)
		}

		cfg, err := buildConfig(cmd, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Threads != 9 {
			t.Errorf("expected explicit threads 9 to win, got %d", cfg.Threads)
		}
		if !slices.Equal(cfg.Ports, []int{8000, 9000}) {
			t.Errorf("expected ports from file, got %v", cfg.Ports)
		}
		if cfg.Timeout != 7*time.Second {
			t.Errorf("expected timeout from file, got %v", cfg.Timeout)
		}
		if !slices.Equal(cfg.Headers, []string{"X-File: file", "X-Cli: cli"}) {
			t.Errorf("expected file headers before CLI headers, got %v", cfg.Headers)
		}
		hostHeaders := cfg.File.HostHeaders()
		if got := hostHeaders["app.example.com"].Get("Authorization"); got != "Bearer token" {
			t.Errorf("expected host header override, got %q", got)
		}
	})

	t.Run("missing explicit config file", func(t *testing.T) {
		t.Parallel()
		cmd := NewScanCmd()
		missing := filepath.Join(t.TempDir(), "missing.yaml")
		if err := cmd.ParseFlags([]string{"-w", "hosts.txt", "-c", missing}); err != nil {
			t.Fatal(err)
		}
		if _, err := buildConfig(cmd, nil); err == nil {
			t.Fatal("expected error for a missing explicit config file")
		}
	})
}

func TestRunScanCmdValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want error
	}{
		{name: "no word list", args: []string{}, want: config.ErrNoWordList},
		{name: "short timeout", args: []string{"-w", "hosts.txt", "-t", "100"}, want: config.ErrTimeoutTooShort},
		{name: "zero threads", args: []string{"-w", "hosts.txt", "-T", "0"}, want: config.ErrInvalidThreads},
		{name: "bad port", args: []string{"-w", "hosts.txt", "-p", "70000"}, want: config.ErrInvalidPort},
		{name: "bad proxy", args: []string{"-w", "hosts.txt", "-P", "not a proxy"}, want: config.ErrInvalidProxy},
		{name: "bad header", args: []string{"-w", "hosts.txt", "-H", "no colon"}, want: config.ErrInvalidHeader},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cmd := NewScanCmd()
			cmd.SetOut(io.Discard)
			cmd.SetErr(io.Discard)
			cmd.SetArgs(append(tt.args, "-c", writeConfigFile(t, "")))

			err := cmd.Execute()
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if !errors.Is(err, config.ErrConfiguration) {
				t.Errorf("expected a configuration error, got %v", err)
			}
		})
	}
}

func TestRunScan(t *testing.T) {
	t.Parallel()

	srv := newTestSite(t)
	port := portOf(t, srv.Listener.Addr())

	t.Run("alive host is persisted", func(t *testing.T) {
		t.Parallel()
		cfg := testScanConfig(t, port, "127.0.0.1\n# comment\nnot a host!\n")
		cfg.SQLite = true

		var out bytes.Buffer
		if err := runScan(context.Background(), cfg, discardLogger(), &out); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		origin := "http://127.0.0.1:" + strconv.Itoa(port)
		summary := readGeneral(t, cfg.OutputDir)
		if summary.Total != 2 {
			t.Errorf("expected 2 targets, got %d", summary.Total)
		}
		if len(summary.Results) != 1 {
			t.Fatalf("expected 1 alive host, got %d", len(summary.Results))
		}
		r := summary.Results[0]
		if r.OriginURI != origin {
			t.Errorf("expected origin %s, got %s", origin, r.OriginURI)
		}
		if r.StatusCode != http.StatusOK || !r.Success {
			t.Errorf("expected a successful 200, got %d", r.StatusCode)
		}
		if r.Title != "Doom Test" {
			t.Errorf("expected title 'Doom Test', got %q", r.Title)
		}
		if !slices.Equal(r.ResolvedAddresses, []string{"127.0.0.1"}) {
			t.Errorf("expected resolved address 127.0.0.1, got %v", r.ResolvedAddresses)
		}
		if len(summary.Failures) != 1 || !strings.HasPrefix(summary.Failures[0].URL, "https://") {
			t.Errorf("expected the https target to fail, got %+v", summary.Failures)
		}

		for _, name := range []string{
			report.SummaryFileName,
			filepath.Join(report.IndividualDir, "127.0.0.1+"+strconv.Itoa(port)+".json"),
			database.FileName,
		} {
			if _, err := os.Stat(filepath.Join(cfg.OutputDir, name)); err != nil {
				t.Errorf("expected %s: %v", name, err)
			}
		}

		db, err := database.Open(cfg.OutputDir, database.DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		defer db.Close()
		stored, err := db.Results(context.Background(), summary.RunID)
		if err != nil {
			t.Fatal(err)
		}
		if len(stored) != 1 {
			t.Errorf("expected 1 stored result, got %d", len(stored))
		}

		if !strings.Contains(out.String(), "[+] "+origin+" (200)") {
			t.Errorf("expected report line for %s, got:\n%s", origin, out.String())
		}
	})

	t.Run("all hosts dead writes nothing", func(t *testing.T) {
		t.Parallel()
		cfg := testScanConfig(t, closedPort(t), "127.0.0.1\n")

		err := runScan(context.Background(), cfg, discardLogger(), io.Discard)
		if !errors.Is(err, pipeline.ErrAllTargetsUnreachable) {
			t.Fatalf("expected ErrAllTargetsUnreachable, got %v", err)
		}

		entries, err := os.ReadDir(cfg.OutputDir)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 0 {
			t.Errorf("expected an empty output directory, got %d entries", len(entries))
		}
	})

	t.Run("word list without valid hosts", func(t *testing.T) {
		t.Parallel()
		cfg := testScanConfig(t, port, "# nothing\nnot a host!\n")

		err := runScan(context.Background(), cfg, discardLogger(), io.Discard)
		if !errors.Is(err, wordlist.ErrEmpty) {
			t.Fatalf("expected wordlist.ErrEmpty, got %v", err)
		}
	})

	t.Run("non-empty output directory", func(t *testing.T) {
		t.Parallel()
		cfg := testScanConfig(t, port, "127.0.0.1\n")
		if err := os.MkdirAll(cfg.OutputDir, 0o750); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(cfg.OutputDir, "old.json"), []byte("{}"), 0o600); err != nil {
			t.Fatal(err)
		}

		err := runScan(context.Background(), cfg, discardLogger(), io.Discard)
		if !errors.Is(err, config.ErrOutputNotEmpty) {
			t.Fatalf("expected ErrOutputNotEmpty, got %v", err)
		}
	})
}

func TestRunScanCmdEndToEnd(t *testing.T) {
	t.Parallel()

	srv := newTestSite(t)
	port := portOf(t, srv.Listener.Addr())

	dir := t.TempDir()
	list := filepath.Join(dir, "hosts.txt")
	if err := os.WriteFile(list, []byte("127.0.0.1\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	outputDir := filepath.Join(dir, "out")

	var stdout, stderr bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs([]string{
		"scan",
		"-w", list,
		"-p", strconv.Itoa(port),
		"-o", outputDir,
		"-T", "2",
		"-H", "X-Scan: httpdoom",
		"-c", writeConfigFile(t, ""),
	})

	if err := root.Execute(); err != nil {
		t.Fatalf("unexpected error: %v\nstderr:\n%s", err, stderr.String())
	}

	summary := readGeneral(t, outputDir)
	if len(summary.Results) != 1 {
		t.Fatalf("expected 1 alive host, got %d", len(summary.Results))
	}
	if got := summary.Results[0].RequestHeaders.Get("X-Scan"); got != "httpdoom" {
		t.Errorf("expected X-Scan header to be sent, got %q", got)
	}
	if !strings.Contains(stdout.String(), "HTTPDOOM REPORT") {
		t.Errorf("expected report on stdout, got:\n%s", stdout.String())
	}
	if !strings.Contains(stderr.String(), "mind the DoS") {
		t.Errorf("expected DoS warning on stderr, got:\n%s", stderr.String())
	}
}

// newTestSite starts a plain HTTP server answering every path with a page.
func newTestSite(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Server", "httpdoom-test")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, "<html><head><title>Doom Test</title></head><body>ok</body></html>")
	}))
	t.Cleanup(srv.Close)
	return srv
}

// testScanConfig returns a valid config probing the hosts of words on port.
func testScanConfig(t *testing.T, port int, words string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	list := filepath.Join(dir, "hosts.txt")
	if err := os.WriteFile(list, []byte(words), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := config.NewConfig()
	cfg.WordList = list
	cfg.Ports = []int{port}
	cfg.Threads = 2
	cfg.OutputDir = filepath.Join(dir, "out")
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	return cfg
}

// writeConfigFile writes a .httpdoom file so tests never pick up one from
// the working or home directory.
func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".httpdoom")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func readGeneral(t *testing.T, dir string) *report.Summary {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, report.GeneralFileName))
	if err != nil {
		t.Fatalf("failed to read %s: %v", report.GeneralFileName, err)
	}
	var s report.Summary
	if err := json.Unmarshal(data, &s); err != nil {
		t.Fatalf("failed to decode %s: %v", report.GeneralFileName, err)
	}
	return &s
}

func portOf(t *testing.T, addr net.Addr) int {
	t.Helper()
	tcp, ok := addr.(*net.TCPAddr)
	if !ok {
		t.Fatalf("unexpected address type %T", addr)
	}
	return tcp.Port
}

// closedPort returns a local port nothing listens on.
func closedPort(t *testing.T) int {
	t.Helper()
	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := portOf(t, ln.Addr())
	if err := ln.Close(); err != nil {
		t.Fatal(err)
	}
	return port
}

func discardLogger() *slog.Logger {
	return setupLogger(io.Discard, false)
}
