package shellhound

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/shellhound/shellhound/internal/engine"
	"github.com/shellhound/shellhound/internal/logging"
	"github.com/shellhound/shellhound/internal/report"
	"github.com/shellhound/shellhound/pkg/core"
)

var (
	flagPath            string
	flagMode            string
	flagExtensions      string
	flagInclude         string
	flagExclude         string
	flagMaxBytes        int64
	flagDefaultExcludes bool
	flagNoDedupe        bool
	flagFailLevel       int
	flagJSON            bool
	flagSARIF           bool
	flagText            bool
	flagAll             bool
)

func init() {
	cmd := &cobra.Command{
		Use:   "scan [path]",
		Short: "Scan a directory tree for web shells",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runScan,
		Example: `
# Score every PHP and JSP file under the web root
shellhound scan /var/www --rules rules.yml --ext php,jsp

# Stop at the first signal per file and fail CI on anything at level 5 or above
shellhound scan -p site --mode quick --fail-level 5 --sarif > shellhound.sarif`,
	}
	rootCmd.AddCommand(cmd)

	cmd.Flags().StringVarP(&flagPath, "path", "p", ".", "path to scan")
	cmd.Flags().StringVarP(&flagMode, "mode", "m", "", "scan mode: quick|complete|ai (default complete)")
	cmd.Flags().StringVar(&flagExtensions, "ext", "", "comma-separated file extensions to scan (default any, * = any)")
	cmd.Flags().StringVar(&flagInclude, "include", "", "comma-separated include globs")
	cmd.Flags().StringVar(&flagExclude, "exclude", "", "comma-separated exclude globs")
	cmd.Flags().Int64Var(&flagMaxBytes, "max-bytes", 0, "skip files larger than this (0 = no limit)")
	cmd.Flags().BoolVar(&flagDefaultExcludes, "default-excludes", true, "skip VCS and IDE metadata directories")
	cmd.Flags().BoolVar(&flagNoDedupe, "no-dedupe", false, "re-scan files whose content was already scored in this run")
	cmd.Flags().IntVar(&flagFailLevel, "fail-level", 0, "exit 1 when any file reaches this warning level (0 = never)")
	cmd.Flags().BoolVar(&flagJSON, "json", false, "emit JSON")
	cmd.Flags().BoolVar(&flagSARIF, "sarif", false, "emit SARIF 2.1.0")
	cmd.Flags().BoolVar(&flagText, "text", false, "output in plain text columnar format")
	cmd.Flags().BoolVar(&flagAll, "all", false, "list normal files too")
}

func runScan(cmd *cobra.Command, args []string) error {
	path := flagPath
	if len(args) == 1 {
		path = args[0]
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	// Load configs: CLI > local > global
	lf, err := loadConfigs(abs)
	if err != nil {
		return err
	}
	gcfg, lcfg := lf.global, lf.local

	modeName := pickString(flagMode, lcfg.Mode, gcfg.Mode)
	if modeName == "" {
		modeName = engine.ModeComplete.String()
	}
	mode, err := engine.ParseMode(modeName)
	if err != nil {
		return err
	}
	noColor := pickBool(flagNoColor, lcfg.NoColor, gcfg.NoColor)

	logDir := ""
	if !flagNoLogFile {
		if logDir = pickString(flagLogDir, lcfg.LogDir, gcfg.LogDir); logDir == "" {
			logDir = "logs"
		}
	}
	log, closeLog, logPath, err := logging.Setup(logging.Options{
		Level:   pickString(flagLogLevel, lcfg.LogLevel, gcfg.LogLevel),
		Output:  cmd.ErrOrStderr(),
		NoColor: noColor,
		Dir:     logDir,
		Version: version,
		Mode:    mode.String(),
	})
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()
	if logPath != "" {
		log.WithField("file", logPath).Debug("logging to file")
	}
	for _, p := range lf.skipped {
		log.WithField("file", p).Warn("not applying file inside the scan root; pass it with --config or --ignore-file")
	}
	if lf.localPath != "" {
		log.WithField("file", lf.localPath).Info("local config applied")
	}

	opts := core.Options{
		Root:            abs,
		Mode:            mode,
		RulesSource:     ruleSource(flagRules, lcfg.Rules, gcfg.Rules),
		Extensions:      pickExtensions(flagExtensions, lcfg.Extensions, gcfg.Extensions),
		IncludeGlobs:    pickString(flagInclude, lcfg.Include, gcfg.Include),
		ExcludeGlobs:    pickString(flagExclude, lcfg.Exclude, gcfg.Exclude),
		DefaultExcludes: pickFlagBool(cmd, "default-excludes", flagDefaultExcludes, lcfg.DefaultExcludes, gcfg.DefaultExcludes),
		IgnoreFile:      lf.ignoreFile,
		MaxBytes:        pickInt64(flagMaxBytes, lcfg.MaxBytes, gcfg.MaxBytes),
		Threads:         pickInt(flagThreads, lcfg.Threads, gcfg.Threads),
		NoDedupe:        pickBool(flagNoDedupe, lcfg.NoDedupe, gcfg.NoDedupe),
		Logger:          log,
	}
	failLevel := pickInt(flagFailLevel, lcfg.FailLevel, gcfg.FailLevel)

	machine := flagJSON || flagSARIF
	stderr := cmd.ErrOrStderr()
	interactive := !machine && isTTY(stderr)
	if interactive {
		_, _ = fmt.Fprintf(stderr, "Scanning %s (%s mode)...\n", abs, mode)
		opts.Progress = progressPrinter(stderr)
	}

	log.WithFields(logrus.Fields{
		"root":       abs,
		"mode":       mode.String(),
		"rules":      opts.RulesSource,
		"extensions": strings.Join(opts.Extensions, ","),
	}).Info("scan started")

	t, runErr := core.Run(cmd.Context(), opts)
	if interactive && t != nil && t.FileCount() > 0 {
		_, _ = fmt.Fprintln(stderr)
	}
	if t == nil {
		return runErr
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}

	out := cmd.OutOrStdout()
	popts := report.PrintOptions{NoColor: noColor || !isTTY(out), All: flagAll}
	switch {
	case flagSARIF:
		if err := report.WriteSARIF(out, t, version); err != nil {
			return fmt.Errorf("sarif error: %w", err)
		}
	case flagJSON:
		if err := report.WriteJSON(out, t); err != nil {
			return err
		}
	case flagText:
		report.PrintText(out, t, popts)
	default:
		if err := report.PrintTable(out, t, popts); err != nil {
			return err
		}
	}
	if runErr != nil {
		return fmt.Errorf("scan interrupted: %w", runErr)
	}

	if report.ShouldFail(t, failLevel) {
		return &failError{msg: fmt.Sprintf("%d file(s) flagged; fail level %d reached", t.DangerCount(), failLevel)}
	}
	return nil
}

func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// progressPrinter draws a simple textual bar, redrawn every ten files.
func progressPrinter(w io.Writer) func(done, total int) {
	return func(done, total int) {
		if total == 0 || (done%10 != 0 && done != total) {
			return
		}
		pct := float64(done) / float64(total) * 100
		_, _ = fmt.Fprintf(w, "\r[%d/%d] %.0f%%", done, total, pct)
	}
}
