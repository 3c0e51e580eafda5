package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/httpdoom/internal/report"
)

// NewCompareCmd creates the compare command.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <previous-dir> <current-dir>",
		Short: "Compare the results of two runs",
		Long: `Compare reads general.json from two output directories and shows:
- Hosts that answer now but did not before
- Hosts that no longer answer
- Hosts whose status, final URI, title, content, server or technologies changed

Examples:
  # Compare last week's run with today's
  httpdoom compare /tmp/httpdoom-old /tmp/httpdoom-new

  # Output the comparison as JSON
  httpdoom compare --json old new

  # Exit with status 1 when the runs differ
  httpdoom compare --fail-on-change old new`,
		Args: cobra.ExactArgs(2),
		RunE: runCompareCmd,
	}

	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().Bool("fail-on-change", false,
		"Return an error when the runs differ")

	return cmd
}

// errRunsDiffer is returned with --fail-on-change.
var errRunsDiffer = errors.New("runs differ")

// runCompareCmd executes the compare command.
func runCompareCmd(cmd *cobra.Command, args []string) error {
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	failOnChange, err := cmd.Flags().GetBool("fail-on-change")
	if err != nil {
		return err
	}

	previous, err := report.ReadSummary(args[0])
	if err != nil {
		return err
	}
	current, err := report.ReadSummary(args[1])
	if err != nil {
		return err
	}

	comparison := report.Compare(previous, current)
	comparison.Previous.Dir = args[0]
	comparison.Current.Dir = args[1]

	out := cmd.OutOrStdout()
	if jsonOutput {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		err = encoder.Encode(comparison)
	} else {
		err = outputComparisonText(out, comparison)
	}
	if err != nil {
		return err
	}

	if failOnChange && !comparison.Identical() {
		return errRunsDiffer
	}
	return nil
}

// outputComparisonText outputs the comparison result in human-readable text format.
func outputComparisonText(w io.Writer, c *report.Comparison) error {
	var sb strings.Builder

	sb.WriteString("Run Comparison\n")
	sb.WriteString(strings.Repeat("=", 60))
	sb.WriteString("\n\n")

	fmt.Fprintf(&sb, "  %-10s  %-24s  %-24s  %s\n", "", "Previous", "Current", "Change")
	sb.WriteString("  " + strings.Repeat("-", 70) + "\n")
	fmt.Fprintf(&sb, "  %-10s  %-24s  %-24s  %s\n", "Run",
		shortID(c.Previous.RunID), shortID(c.Current.RunID), "-")
	fmt.Fprintf(&sb, "  %-10s  %-24s  %-24s  %s\n", "Started",
		c.Previous.Started.Format("2006-01-02 15:04:05"), c.Current.Started.Format("2006-01-02 15:04:05"), "-")
	fmt.Fprintf(&sb, "  %-10s  %-24d  %-24d  %s\n", "Targets",
		c.Previous.Total, c.Current.Total, formatDelta(c.Current.Total-c.Previous.Total))
	fmt.Fprintf(&sb, "  %-10s  %-24d  %-24d  %s\n", "Alive",
		c.Previous.Alive, c.Current.Alive, formatDelta(c.Current.Alive-c.Previous.Alive))

	if c.Identical() {
		sb.WriteString("\nNo changes.\n")
	}

	if len(c.NewHosts) > 0 {
		fmt.Fprintf(&sb, "\nNew Hosts (%d):\n", len(c.NewHosts))
		for _, uri := range c.NewHosts {
			fmt.Fprintf(&sb, "  [+] %s\n", uri)
		}
	}

	if len(c.GoneHosts) > 0 {
		fmt.Fprintf(&sb, "\nGone Hosts (%d):\n", len(c.GoneHosts))
		for _, uri := range c.GoneHosts {
			fmt.Fprintf(&sb, "  [-] %s\n", uri)
		}
	}

	if len(c.Changes) > 0 {
		fmt.Fprintf(&sb, "\nChanges (%d):\n", len(c.Changes))
		last := ""
		for _, ch := range c.Changes {
			if ch.URI != last {
				fmt.Fprintf(&sb, "  [~] %s\n", ch.URI)
				last = ch.URI
			}
			fmt.Fprintf(&sb, "      %-16s %q -> %q\n", ch.Field+":", ch.Previous, ch.Current)
		}
	}

	if c.UnchangedCount > 0 {
		fmt.Fprintf(&sb, "\nUnchanged: %d hosts\n", c.UnchangedCount)
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// shortID shortens a run id for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	}
	return strconv.Itoa(delta)
}
