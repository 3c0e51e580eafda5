package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for HttpDoom.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "httpdoom",
		Short: "Response-based inspection of websites across many hosts",
		Long: `HttpDoom is a tool for response-based inspection of websites across a large
range of hosts. It expands a word list of hosts over a set of ports, probes
every target over HTTP and HTTPS, and stores what the alive ones answered.

Probing many hosts at once can cause instability on your network.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("debug", "d", false, "Print debugging information")

	// Add subcommands
	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewInspectCmd())
	cmd.AddCommand(NewRulesCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
