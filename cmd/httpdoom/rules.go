package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/httpdoom/internal/config"
)

// NewRulesCmd creates the rules command and its subcommands.
func NewRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage the cached technology rules",
		Long: `Rules manages the technology rule document used by --detect and inspect.

The document is downloaded once and cached under the XDG cache directory.`,
	}

	cmd.AddCommand(newRulesFetchCmd())
	cmd.AddCommand(newRulesPathCmd())
	cmd.AddCommand(newRulesShowCmd())

	return cmd
}

func newRulesFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download the technology rules into the cache",
		Args:  cobra.NoArgs,
		RunE:  runRulesFetchCmd,
	}
	cmd.Flags().BoolP("force", "f", false, "Download even when a cached copy exists")
	cmd.Flags().String("rules-url", "", "Download from this URL instead of the default")
	return cmd
}

func newRulesPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the location of the cached technology rules",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), config.RulesCachePath())
		},
	}
}

func newRulesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [vendor]...",
		Short: "Print the compiled technology rules",
		Long: `Show compiles the cached technology rules and prints how many were loaded.
With vendor names, it prints the categories and implications of each one.`,
		RunE: runRulesShowCmd,
	}
}

// runRulesFetchCmd executes the rules fetch command.
func runRulesFetchCmd(cmd *cobra.Command, _ []string) error {
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}
	sourceURL, err := cmd.Flags().GetString("rules-url")
	if err != nil {
		return err
	}

	cfg := config.NewConfig()
	cfg.RulesURL = sourceURL
	logger := setupLogger(cmd.ErrOrStderr(), getDebugFlag(cmd))

	if force {
		if err := os.Remove(cfg.RulesCachePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove cached rules: %w", err)
		}
	}

	loader := newRulesLoader(cfg, logger)
	set, err := loader.Load(cmd.Context())
	if err != nil {
		return err
	}

	stats := set.Stats()
	fmt.Fprintf(cmd.OutOrStdout(), "Cached %d technology rules at %s\n", stats.Rules, loader.CachePath())
	if stats.InvalidPatterns > 0 || stats.MissingCategories > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "  skipped %d invalid patterns and %d unknown categories\n",
			stats.InvalidPatterns, stats.MissingCategories)
	}
	return nil
}

// runRulesShowCmd executes the rules show command.
func runRulesShowCmd(cmd *cobra.Command, args []string) error {
	cfg := config.NewConfig()
	logger := setupLogger(cmd.ErrOrStderr(), getDebugFlag(cmd))

	set, err := newRulesLoader(cfg, logger).Load(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(args) == 0 {
		fmt.Fprintf(out, "%d technology rules loaded\n", set.Len())
		return nil
	}

	for _, vendor := range args {
		rule, ok := set.Get(vendor)
		if !ok {
			return fmt.Errorf("unknown technology: %s", vendor)
		}
		categories := make([]string, 0, len(rule.Categories))
		for _, c := range rule.Categories {
			categories = append(categories, c.Name)
		}
		fmt.Fprintf(out, "%s\n", rule.Vendor)
		if rule.Website != "" {
			fmt.Fprintf(out, "  Website:    %s\n", rule.Website)
		}
		fmt.Fprintf(out, "  Categories: %s\n", strings.Join(categories, ", "))
		if len(rule.Implies) > 0 {
			fmt.Fprintf(out, "  Implies:    %s\n", strings.Join(rule.Implies, ", "))
		}
	}
	return nil
}
