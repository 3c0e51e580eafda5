package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/httpdoom/internal/config"
	applog "github.com/nao1215/httpdoom/internal/log"
	"github.com/nao1215/httpdoom/internal/probe"
	"github.com/nao1215/httpdoom/internal/wordlist"
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Probe every host of a word list over HTTP and HTTPS",
		Long: `Scan expands every host of a word list over a set of ports and probes each
target over HTTP and HTTPS.

Port 80 is probed over http only and 443 over https only; every other port is
probed over both. Alive hosts are written to the output directory:
  general.json          all alive hosts
  summary.md            Markdown summary
  individual/*.json     one file per alive host
  screenshots/*.png     with --screenshot
  results.db            with --sqlite

Examples:
  # Scan the hosts of a word list on the default ports
  httpdoom scan -w hosts.txt

  # Scan a remote word list on custom ports with 64 threads
  httpdoom scan -w https://example.com/hosts.txt -p 80,443,8000 -T 64

  # Route every probe through a proxy and send an extra header
  httpdoom scan -w hosts.txt -P 127.0.0.1:8080 -H "X-Scan: httpdoom"

  # Follow redirects, detect technologies and take screenshots
  httpdoom scan -w hosts.txt --follow-redirects --detect --screenshot

Configuration file (.httpdoom) example:
  defaults:
    ports: [80, 443, 8080]
    timeout: 8000
  hosts:
    app.example.com:
      headers:
        Authorization: "Bearer token"`,
		Args: cobra.NoArgs,
		RunE: runScanCmd,
	}

	cmd.Flags().StringP("word-list", "w", "",
		"Word list of hosts to probe: a file path or a http(s) URL (required)")

	addProbeFlags(cmd)

	cmd.Flags().BoolP("follow-redirects", "f", false,
		"Follow redirects up to --max-redirects hops")
	cmd.Flags().Bool("detect", false,
		"Detect technologies of alive hosts")
	cmd.Flags().Bool("screenshot", false,
		"Take a screenshot of every alive host (requires Chrome or Chromium)")

	return cmd
}

// addProbeFlags registers the flags shared by scan and inspect.
func addProbeFlags(cmd *cobra.Command) {
	defaults := config.NewConfig()

	cmd.Flags().IntP("threads", "T", defaults.Threads,
		"Maximum number of probes in flight (default is the processor count)")
	cmd.Flags().IntP("http-timeout", "t", int(config.DefaultTimeout.Milliseconds()),
		"Timeout in milliseconds for HTTP requests")
	cmd.Flags().IntSliceP("ports", "p", config.DefaultPorts(),
		"Set of ports to check")
	cmd.Flags().StringP("proxy", "P", "",
		"Proxy for HTTP requests: host:port or a http, https, socks5 or socks5h URL")
	cmd.Flags().StringArrayP("header", "H", nil,
		`Extra request header as "Name: value" (repeatable)`)
	cmd.Flags().StringP("output-directory", "o", "",
		"Directory for the results; must be empty or absent (default is a new temp directory)")
	cmd.Flags().Int("max-redirects", config.DefaultMaxRedirects,
		"Maximum redirect hops when following redirects")
	cmd.Flags().String("screenshot-resolution", config.DefaultScreenshotResolution,
		"Screenshot window size as WIDTHxHEIGHT")
	cmd.Flags().Bool("no-resolve", false,
		"Do not resolve the addresses of alive hosts")
	cmd.Flags().Float64("rate-limit", 0,
		"Maximum probe starts per second (0 disables the limit)")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Maximum response body bytes kept per probe")
	cmd.Flags().Bool("sqlite", false,
		"Also store the results in results.db inside the output directory")
	cmd.Flags().String("metrics-addr", "",
		"Serve Prometheus metrics on this address while probing (e.g., 127.0.0.1:9090)")
	cmd.Flags().String("user-agent", "",
		"User-Agent for every request")
	cmd.Flags().String("rules-url", "",
		"Download technology rules from this URL instead of the default")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .httpdoom in current or home directory)")
}

// runScanCmd executes the scan command.
func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd.ErrOrStderr(), cfg.Debug)
	slog.SetDefault(logger)

	ctx, cancel := signalContext(logger)
	defer cancel()

	return runScan(ctx, cfg, logger, cmd.OutOrStdout())
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// getDebugFlag retrieves the debug flag from the command or its parent.
func getDebugFlag(cmd *cobra.Command) bool {
	debug, err := cmd.Flags().GetBool("debug")
	if err != nil {
		debug, err = cmd.Root().PersistentFlags().GetBool("debug")
		if err != nil {
			return false
		}
	}
	return debug
}

// setupLogger creates the secure logger used by every command.
func setupLogger(w io.Writer, debug bool) *slog.Logger {
	return applog.NewSecureLogger(w, debug)
}

// buildConfig creates a Config from the scan command flags.
func buildConfig(cmd *cobra.Command, _ []string) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error
	cfg.WordList, err = cmd.Flags().GetString("word-list")
	if err != nil {
		return nil, err
	}

	if err := readProbeFlags(cmd, cfg); err != nil {
		return nil, err
	}

	cfg.FollowRedirects, err = cmd.Flags().GetBool("follow-redirects")
	if err != nil {
		return nil, err
	}

	cfg.Detect, err = cmd.Flags().GetBool("detect")
	if err != nil {
		return nil, err
	}

	cfg.Screenshot, err = cmd.Flags().GetBool("screenshot")
	if err != nil {
		return nil, err
	}

	if err := loadConfigFile(cmd, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// readProbeFlags copies the flags registered by addProbeFlags into cfg.
func readProbeFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	var err error

	cfg.Debug = getDebugFlag(cmd)

	if cfg.Threads, err = flags.GetInt("threads"); err != nil {
		return err
	}

	timeoutMS, err := flags.GetInt("http-timeout")
	if err != nil {
		return err
	}
	cfg.Timeout = msToDuration(timeoutMS)

	if cfg.Ports, err = flags.GetIntSlice("ports"); err != nil {
		return err
	}
	if cfg.Proxy, err = flags.GetString("proxy"); err != nil {
		return err
	}
	if cfg.Headers, err = flags.GetStringArray("header"); err != nil {
		return err
	}

	outputDir, err := flags.GetString("output-directory")
	if err != nil {
		return err
	}
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}

	if cfg.MaxRedirects, err = flags.GetInt("max-redirects"); err != nil {
		return err
	}
	if cfg.ScreenshotResolution, err = flags.GetString("screenshot-resolution"); err != nil {
		return err
	}

	noResolve, err := flags.GetBool("no-resolve")
	if err != nil {
		return err
	}
	cfg.Resolve = !noResolve

	if cfg.RateLimit, err = flags.GetFloat64("rate-limit"); err != nil {
		return err
	}
	if cfg.MaxBodySize, err = flags.GetInt64("max-body-size"); err != nil {
		return err
	}
	if cfg.SQLite, err = flags.GetBool("sqlite"); err != nil {
		return err
	}
	if cfg.MetricsAddr, err = flags.GetString("metrics-addr"); err != nil {
		return err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return err
	}
	if cfg.RulesURL, err = flags.GetString("rules-url"); err != nil {
		return err
	}
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return err
	}
	return nil
}

// loadConfigFile applies the .httpdoom file. An explicitly named file must
// exist; otherwise a missing file is ignored.
func loadConfigFile(cmd *cobra.Command, cfg *config.Config) error {
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	if configPath == "" {
		if cfg.ConfigFilePath != "" {
			return fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
		}
		return nil
	}

	file, err := config.LoadConfigFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config file %s: %w", configPath, err)
	}
	cfg.ApplyFile(file, cmd.Flags().Changed)
	return nil
}

// runScan loads the word list and probes every expanded target.
func runScan(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer) error {
	if err := config.PrepareOutputDir(cfg.OutputDir); err != nil {
		return err
	}

	if cfg.ThreadsExceedCPUs() {
		logger.Warn("you may have issues with a larger thread count than your processor count",
			"threads", cfg.Threads)
	} else {
		logger.Info("started", "threads", cfg.Threads)
	}

	loader := wordlist.NewLoader(wordlist.WithOnError(func(err error) {
		logger.Debug("skipping word list entry", "error", err)
	}))
	hosts, err := loader.Load(ctx, cfg.WordList)
	if err != nil {
		return fmt.Errorf("failed to load word list: %w", err)
	}
	logger.Info("word list sanitized", "hosts", len(hosts))
	logger.Debug("probing ports", "ports", cfg.Ports)

	caps := probe.ScanCapabilities()
	caps.FollowRedirects = cfg.FollowRedirects
	caps.DetectTechnology = cfg.Detect
	caps.CaptureScreenshot = cfg.Screenshot
	caps.ResolveDNS = cfg.Resolve

	return execute(ctx, cfg, caps, hosts, logger, out)
}
