package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nao1215/httpdoom/internal/config"
	"github.com/nao1215/httpdoom/internal/probe"
	"github.com/nao1215/httpdoom/internal/wordlist"
)

// NewInspectCmd creates the inspect command.
func NewInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <host>...",
		Short: "Deep inspection of a few hosts",
		Long: `Inspect probes the given hosts with every optional step enabled: redirects
are followed, technologies are detected, a screenshot is taken and the
addresses are resolved. The full report is printed and the results are
written to the output directory as with scan.

Screenshots need Chrome or Chromium; without a browser the probe still
succeeds and carries a screenshot warning.

Examples:
  # Inspect one host on the default ports
  httpdoom inspect example.com

  # Inspect two hosts on port 443 only, without a screenshot
  httpdoom inspect -p 443 --no-screenshot example.com www.example.org`,
		Args: cobra.MinimumNArgs(1),
		RunE: runInspectCmd,
	}

	addProbeFlags(cmd)
	cmd.Flags().Bool("no-screenshot", false, "Do not take screenshots")

	return cmd
}

// runInspectCmd executes the inspect command.
func runInspectCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildInspectConfig(cmd)
	if err != nil {
		return err
	}

	if err := cfg.ValidateProbe(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	hosts, err := normalizeHosts(args)
	if err != nil {
		return err
	}

	logger := setupLogger(cmd.ErrOrStderr(), cfg.Debug)
	slog.SetDefault(logger)

	ctx, cancel := signalContext(logger)
	defer cancel()

	if err := config.PrepareOutputDir(cfg.OutputDir); err != nil {
		return err
	}

	caps := probe.InspectCapabilities()
	caps.CaptureScreenshot = cfg.Screenshot
	caps.ResolveDNS = cfg.Resolve

	// The report is always verbose for inspect.
	cfg.Debug = true
	return execute(ctx, cfg, caps, hosts, logger, cmd.OutOrStdout())
}

// buildInspectConfig creates a Config from the inspect command flags.
func buildInspectConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	if err := readProbeFlags(cmd, cfg); err != nil {
		return nil, err
	}

	noScreenshot, err := cmd.Flags().GetBool("no-screenshot")
	if err != nil {
		return nil, err
	}
	cfg.FollowRedirects = true
	cfg.Detect = true
	cfg.Screenshot = !noScreenshot

	if err := loadConfigFile(cmd, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// normalizeHosts applies word list normalization to command line hosts.
func normalizeHosts(args []string) ([]string, error) {
	hosts := make([]string, 0, len(args))
	seen := make(map[string]bool, len(args))
	for _, arg := range args {
		host, err := wordlist.Normalize(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid host %q: %w", arg, err)
		}
		if seen[host] {
			continue
		}
		seen[host] = true
		hosts = append(hosts, host)
	}
	return hosts, nil
}
