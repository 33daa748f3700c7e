package shellhound

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shellhound/shellhound/internal/config"
	"github.com/shellhound/shellhound/internal/engine"
)

var (
	cfgOutput     string
	cfgGlobal     bool
	cfgForce      bool
	cfgMode       string
	cfgExtensions string
	cfgRules      string
	cfgThreads    int
	cfgMaxBytes   int64
	cfgFailLevel  int
)

func init() {
	cfgCmd := &cobra.Command{Use: "config", Short: "Configuration helpers"}
	rootCmd.AddCommand(cfgCmd)

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a .shellhound.yml with the default options",
		Args:  cobra.NoArgs,
		RunE:  runConfigInit,
	}
	cfgCmd.AddCommand(initCmd)

	initCmd.Flags().StringVar(&cfgOutput, "output", ".shellhound.yml", "output file path")
	initCmd.Flags().BoolVar(&cfgGlobal, "global", false, "write the global config file instead")
	initCmd.Flags().BoolVar(&cfgForce, "force", false, "overwrite an existing file")
	initCmd.Flags().StringVar(&cfgMode, "mode", "", "scan mode: quick|complete")
	initCmd.Flags().StringVar(&cfgExtensions, "ext", "", "comma-separated file extensions")
	initCmd.Flags().StringVar(&cfgRules, "rules", "", "rule source")
	initCmd.Flags().IntVar(&cfgThreads, "threads", 0, "worker threads (0=GOMAXPROCS)")
	initCmd.Flags().Int64Var(&cfgMaxBytes, "max-bytes", 0, "skip files larger than this (0 = no limit)")
	initCmd.Flags().IntVar(&cfgFailLevel, "fail-level", 0, "warning level that fails the run (0 = never)")
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	fc := config.Defaults()
	if cfgMode != "" {
		m, err := engine.ParseMode(cfgMode)
		if err != nil {
			return err
		}
		fc.Mode = strPtr(m.String())
	}
	if exts := engine.ParseExtensions(cfgExtensions); len(exts) > 0 {
		fc.Extensions = &exts
	}
	if cfgRules != "" {
		fc.Rules = strPtr(cfgRules)
	}
	if cmd.Flags().Changed("threads") {
		fc.Threads = &cfgThreads
	}
	if cmd.Flags().Changed("max-bytes") {
		fc.MaxBytes = &cfgMaxBytes
	}
	if cmd.Flags().Changed("fail-level") {
		fc.FailLevel = &cfgFailLevel
	}

	path := cfgOutput
	if cfgGlobal {
		p, err := config.GlobalPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := config.Save(path, fc, cfgForce); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Wrote", path)
	return nil
}

func strPtr(s string) *string { return &s }
