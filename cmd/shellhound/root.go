package shellhound

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/shellhound/shellhound/internal/ignore"
)

var (
	flagRules     string
	flagThreads   int
	flagNoColor   bool
	flagLogLevel  string
	flagLogDir    string
	flagNoLogFile bool
	flagConfig    string
	flagIgnore    string

	// Set via ldflags at build time.
	version = "0.1.0"
)

// rootCmd is the base Cobra command for the shellhound CLI.
var rootCmd = &cobra.Command{
	Use:           "shellhound",
	Short:         "Find web shells by signature",
	Long:          "shellhound walks a web root and scores every candidate file against known web shell fingerprints and patterns.",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// failError means the run worked but the fail policy tripped.
type failError struct{ msg string }

func (e *failError) Error() string { return e.msg }

// exitCode maps a command error to the process exit status: 1 when the fail
// policy tripped, 2 for everything else.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var fe *failError
	if errors.As(err, &fe) {
		return 1
	}
	return 2
}

// Execute runs the shellhound CLI. It should be called by the main package.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}

// RootCmd returns the root cobra command for documentation generation.
func RootCmd() *cobra.Command { return rootCmd }

func init() {
	rootCmd.SetVersionTemplate("shellhound {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&flagRules, "rules", "", "rule source: YAML file, directory of YAML files, or SQLite database (sqlite://path)")
	rootCmd.PersistentFlags().IntVar(&flagThreads, "threads", 0, "files scanned concurrently (0 = GOMAXPROCS, 1 = sequential)")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "disable colorized output")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: error|warn|info|debug|trace (default info)")
	rootCmd.PersistentFlags().StringVar(&flagLogDir, "log-dir", "", "directory for run log files (default ./logs)")
	rootCmd.PersistentFlags().BoolVar(&flagNoLogFile, "no-log-file", false, "do not write a run log file")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "local config file (default: .shellhound.yml etc. in the working directory)")
	rootCmd.PersistentFlags().StringVar(&flagIgnore, "ignore-file", "", "ignore file (default: "+ignore.FileName+" in the working directory)")
}
