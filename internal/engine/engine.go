package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/shellhound/shellhound/internal/match"
	"github.com/shellhound/shellhound/internal/rules"
	"github.com/shellhound/shellhound/internal/task"
)

// Mode selects how exhaustively each file is searched.
type Mode int

const (
	// ModeQuick stops at the first positive signal.
	ModeQuick Mode = iota
	// ModeComplete evaluates every rule and sums all signals.
	ModeComplete
	// ModeAI is reserved for an external classifier and is not implemented.
	ModeAI
)

var modeNames = [...]string{"quick", "complete", "ai"}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("mode(%d)", int(m))
	}
	return modeNames[m]
}

// ParseMode accepts quick, complete or ai in any case.
func ParseMode(s string) (Mode, error) {
	for i, n := range modeNames {
		if strings.EqualFold(strings.TrimSpace(s), n) {
			return Mode(i), nil
		}
	}
	return 0, fmt.Errorf("unknown scan mode %q (want quick|complete|ai)", s)
}

// Set implements pflag.Value.
func (m *Mode) Set(s string) error {
	v, err := ParseMode(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Type implements pflag.Value.
func (m *Mode) Type() string { return "mode" }

var (
	// ErrModeNotImplemented is returned by Scan for ModeAI.
	ErrModeNotImplemented = errors.New("ai scan mode is not implemented")
	// ErrRulesNotLoaded is returned by Scan before LoadRules succeeded.
	ErrRulesNotLoaded = errors.New("scan rules not loaded")
)

// Engine applies one scan mode with one rule set to every entry of a task.
type Engine struct {
	mode     Mode
	threads  int
	dedupe   bool
	log      logrus.FieldLogger
	progress func(done, total int)

	set   *rules.Set
	index *match.FingerprintIndex
}

// Option configures an Engine.
type Option func(*Engine)

// WithThreads bounds the number of files scanned concurrently
// (0 = GOMAXPROCS, 1 = sequential).
func WithThreads(n int) Option {
	return func(e *Engine) { e.threads = n }
}

// WithLogger sets the engine logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(e *Engine) { e.log = l }
}

// WithProgress registers a callback invoked after every entry. Calls are
// serialized.
func WithProgress(fn func(done, total int)) Option {
	return func(e *Engine) { e.progress = fn }
}

// WithDedupe toggles the in-run verdict memo for files with identical
// content. It is on by default.
func WithDedupe(on bool) Option {
	return func(e *Engine) { e.dedupe = on }
}

// New returns an engine for mode. Rules must be loaded before Scan.
func New(mode Mode, opts ...Option) *Engine {
	e := &Engine{mode: mode, dedupe: true}
	for _, o := range opts {
		o(e)
	}
	if e.threads <= 0 {
		e.threads = runtime.GOMAXPROCS(0)
	}
	if e.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		e.log = l
	}
	return e
}

// Mode returns the engine's scan mode.
func (e *Engine) Mode() Mode { return e.mode }

// Rules returns the loaded rule set, or nil.
func (e *Engine) Rules() *rules.Set { return e.set }

// LoadRules reads the rule set from store. On failure the engine keeps no
// rules and the error is a *rules.LoadError.
func (e *Engine) LoadRules(ctx context.Context, store rules.Store) error {
	set, err := rules.Load(ctx, store)
	if err != nil {
		return err
	}
	e.UseRules(set)
	e.log.WithFields(logrus.Fields{
		"source":       set.Source(),
		"fingerprints": len(set.Fingerprints()),
		"patterns":     len(set.Patterns()),
	}).Info("rules loaded")
	for _, p := range set.Invalid() {
		e.log.WithField("pattern", p.Pattern).WithError(p.Err).Debug("pattern does not compile; it will never match")
	}
	return nil
}

// UseRules installs an already loaded rule set.
func (e *Engine) UseRules(set *rules.Set) {
	e.set = set
	e.index = match.NewFingerprintIndex(set.Fingerprints())
}

// Scan finalizes every Unchecked entry of t, up to the configured number of
// files at a time, then refreshes the task counters. Cancelling ctx stops
// the run between files; entries not reached stay Unchecked and ctx's error
// is returned.
func (e *Engine) Scan(ctx context.Context, t *task.Task) error {
	if e.mode == ModeAI {
		return ErrModeNotImplemented
	}
	if e.set == nil {
		return ErrRulesNotLoaded
	}

	memo := newMemo(e.dedupe)
	total := len(t.Entries)
	var (
		mu   sync.Mutex
		done int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.threads)
	for i := range t.Entries {
		if gctx.Err() != nil {
			break
		}
		entry := &t.Entries[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			e.scanEntry(entry, memo)
			if e.progress != nil {
				mu.Lock()
				done++
				e.progress(done, total)
				mu.Unlock()
			}
			return nil
		})
	}
	err := g.Wait()
	t.Refresh()
	if err == nil {
		err = ctx.Err()
	}
	return err
}

func (e *Engine) scanEntry(en *task.Entry, memo *memo) {
	if en.Status != task.Unchecked {
		return
	}
	data, err := os.ReadFile(en.Path)
	if err != nil {
		_ = en.Fail(err)
		e.log.WithField("path", en.Path).WithError(err).Debug("cannot read file")
		return
	}
	k, v, ok := memo.lookup(data)
	if !ok {
		v = e.evaluate(data)
		memo.store(k, data, v)
	}
	_ = en.Finalize(v)
	if en.Status == task.Danger {
		e.log.WithFields(logrus.Fields{
			"path":          en.Path,
			"warning_level": en.WarningLevel,
		}).Warn("dangerous file")
	}
}

func (e *Engine) evaluate(data []byte) task.Verdict {
	switch e.mode {
	case ModeQuick:
		return quickScan(e.set, data)
	default:
		return completeScan(e.set, e.index, data)
	}
}
