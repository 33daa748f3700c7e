package core

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/shellhound/shellhound/internal/engine"
	"github.com/shellhound/shellhound/internal/report"
	"github.com/shellhound/shellhound/internal/rules"
	"github.com/shellhound/shellhound/internal/task"
)

// Re-export selected internal types as a stable public API surface.
type (
	Task            = task.Task
	Entry           = task.Entry
	EntryStatus     = task.EntryStatus
	Mode            = engine.Mode
	RuleStore       = rules.Store
	FingerprintRule = rules.FingerprintRule
	PatternRule     = rules.PatternRule
	LoadError       = rules.LoadError
)

const (
	ModeQuick    = engine.ModeQuick
	ModeComplete = engine.ModeComplete
	ModeAI       = engine.ModeAI

	Unchecked = task.Unchecked
	Normal    = task.Normal
	Danger    = task.Danger
	Error     = task.Error
)

var ErrModeNotImplemented = engine.ErrModeNotImplemented

// Options configures Run. Rules wins over RulesSource when both are set.
type Options struct {
	Root string
	Mode Mode

	Rules       RuleStore
	RulesSource string

	// Extensions restricts candidates by extension; nil or empty accepts any.
	Extensions      []string
	IncludeGlobs    string
	ExcludeGlobs    string
	DefaultExcludes bool
	// IgnoreFile is an explicit ignore file. Nothing under Root is read as
	// configuration.
	IgnoreFile string
	MaxBytes   int64

	Threads  int
	NoDedupe bool
	Logger   logrus.FieldLogger
	Progress func(done, total int)
}

// Run loads the rules, enumerates Root, scans every candidate and completes
// the task. When ctx is cancelled mid-scan the completed task is returned
// together with ctx's error; entries not reached stay Unchecked.
func Run(ctx context.Context, opts Options) (*Task, error) {
	log := opts.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	store := opts.Rules
	if store == nil {
		s, err := rules.Open(opts.RulesSource)
		if err != nil {
			return nil, err
		}
		defer func() { _ = rules.Close(s) }()
		store = s
	}

	eng := engine.New(opts.Mode,
		engine.WithThreads(opts.Threads),
		engine.WithLogger(log),
		engine.WithDedupe(!opts.NoDedupe),
		engine.WithProgress(opts.Progress),
	)
	if err := eng.LoadRules(ctx, store); err != nil {
		return nil, err
	}

	res, err := engine.Enumerate(ctx, engine.EnumerateOptions{
		Root:            opts.Root,
		Extensions:      opts.Extensions,
		IncludeGlobs:    opts.IncludeGlobs,
		ExcludeGlobs:    opts.ExcludeGlobs,
		DefaultExcludes: opts.DefaultExcludes,
		IgnoreFile:      opts.IgnoreFile,
		MaxBytes:        opts.MaxBytes,
		Logger:          log,
	})
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{"root": opts.Root, "files": len(res.Files), "dirs": res.Dirs}).Info("files enumerated")

	t := task.New(res.Files, task.WithRoot(opts.Root, opts.Extensions), task.WithLogger(log))
	t.DirCount = res.Dirs
	if err := eng.Scan(ctx, t); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			t.Complete()
			return t, err
		}
		return nil, fmt.Errorf("scan: %w", err)
	}
	t.Complete()
	return t, nil
}

// ParseMode accepts quick, complete or ai.
func ParseMode(s string) (Mode, error) { return engine.ParseMode(s) }

// MarshalTask writes the run summary and every entry as JSON.
func MarshalTask(w io.Writer, t *Task) error { return report.WriteJSON(w, t) }
