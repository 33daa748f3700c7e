// Package logging builds the process logger: human readable lines on stderr
// plus an optional plain-text copy in a per-run log file.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"
)

// Options configures Setup.
type Options struct {
	Level   string    // panic|fatal|error|warn|info|debug|trace; empty means info
	Output  io.Writer // defaults to os.Stderr
	NoColor bool

	// Dir receives the run log file. Empty disables the file.
	Dir     string
	Version string
	Mode    string
	Now     func() time.Time
}

// Setup returns the logger and a cleanup func that closes the log file.
// The path of the log file, if any, is returned as well.
func Setup(opts Options) (*logrus.Logger, func() error, string, error) {
	noop := func() error { return nil }
	lvl := logrus.InfoLevel
	if s := strings.TrimSpace(opts.Level); s != "" {
		var err error
		if lvl, err = logrus.ParseLevel(s); err != nil {
			return nil, noop, "", fmt.Errorf("log level: %w", err)
		}
	}
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(lvl)
	l.SetFormatter(&logrus.TextFormatter{
		ForceColors:      !opts.NoColor && isTerminal(out),
		DisableColors:    opts.NoColor || !isTerminal(out),
		FullTimestamp:    true,
		TimestampFormat:  time.TimeOnly,
		QuoteEmptyFields: true,
	})

	if opts.Dir == "" {
		return l, noop, "", nil
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, noop, "", fmt.Errorf("log dir: %w", err)
	}
	path := filepath.Join(opts.Dir, FileName(now(), opts.Version, opts.Mode))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, noop, "", fmt.Errorf("log file: %w", err)
	}
	l.AddHook(&fileHook{w: f, levels: levelsUpTo(lvl), fmt: &logrus.TextFormatter{
		DisableColors:   true,
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	}})
	return l, f.Close, path, nil
}

// FileName is <YYYYmmddHHMM>_<version>_<mode>.log.
func FileName(t time.Time, version, mode string) string {
	if version == "" {
		version = "dev"
	}
	if mode == "" {
		mode = "scan"
	}
	return fmt.Sprintf("%s_%s_%s.log", t.Format("200601021504"), sanitize(version), sanitize(mode))
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', ' ':
			return '-'
		}
		return r
	}, s)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func levelsUpTo(max logrus.Level) []logrus.Level {
	var out []logrus.Level
	for _, l := range logrus.AllLevels {
		if l <= max {
			out = append(out, l)
		}
	}
	return out
}

// fileHook mirrors entries into w with its own formatter.
type fileHook struct {
	w      io.Writer
	levels []logrus.Level
	fmt    logrus.Formatter
}

func (h *fileHook) Levels() []logrus.Level { return h.levels }

func (h *fileHook) Fire(e *logrus.Entry) error {
	b, err := h.fmt.Format(e)
	if err != nil {
		return err
	}
	_, err = h.w.Write(b)
	return err
}
