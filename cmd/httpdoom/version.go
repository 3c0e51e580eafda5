package main

import (
	"fmt"
	"io"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Version information set at build time via ldflags.
var (
	version = ""
	commit  = ""
	date    = ""
)

// buildInfo is the version metadata printed by the version command.
type buildInfo struct {
	Version string
	Commit  string
	Date    string
}

// shortCommitLength is the number of revision characters shown.
const shortCommitLength = 7

// currentBuildInfo resolves build metadata for the running binary.
func currentBuildInfo() buildInfo {
	info, _ := debug.ReadBuildInfo()
	return resolveBuildInfo(version, commit, date, info)
}

// resolveBuildInfo picks each field from ldflags first, then from the module
// build info, then a placeholder ("(devel)" or "unknown").
func resolveBuildInfo(ldVersion, ldCommit, ldDate string, info *debug.BuildInfo) buildInfo {
	bi := buildInfo{Version: "(devel)", Commit: "unknown", Date: "unknown"}

	if info != nil {
		if info.Main.Version != "" {
			bi.Version = info.Main.Version
		}
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				if setting.Value != "" {
					bi.Commit = setting.Value[:min(len(setting.Value), shortCommitLength)]
				}
			case "vcs.time":
				if setting.Value != "" {
					bi.Date = setting.Value
				}
			}
		}
	}

	if ldVersion != "" {
		bi.Version = ldVersion
	}
	if ldCommit != "" {
		bi.Commit = ldCommit
	}
	if ldDate != "" {
		bi.Date = ldDate
	}
	return bi
}

// getVersion returns the version shown by --version and the version command.
func getVersion() string {
	return currentBuildInfo().Version
}

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print the version, commit hash, and build date of httpdoom.`,
		Run: func(cmd *cobra.Command, _ []string) {
			printBuildInfo(cmd.OutOrStdout(), currentBuildInfo())
		},
	}
}

func printBuildInfo(w io.Writer, bi buildInfo) {
	fmt.Fprintf(w, "httpdoom version %s\n", bi.Version)
	fmt.Fprintf(w, "  commit: %s\n", bi.Commit)
	fmt.Fprintf(w, "  built:  %s\n", bi.Date)
}
