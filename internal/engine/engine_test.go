package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shellhound/shellhound/internal/match"
	"github.com/shellhound/shellhound/internal/rules"
	"github.com/shellhound/shellhound/internal/task"
)

type memStore struct {
	fps  []rules.FingerprintRule
	pats []rules.PatternRule
	err  error
}

func (s memStore) Name() string { return "memory" }

func (s memStore) Fingerprints(context.Context) ([]rules.FingerprintRule, error) {
	return s.fps, s.err
}

func (s memStore) Patterns(context.Context) ([]rules.PatternRule, error) { return s.pats, nil }

func badRule() rules.FingerprintRule {
	return rules.FingerprintRule{Digest: match.Digest([]byte("BAD!")), Length: 4, Severity: 5}
}

func newEngine(t *testing.T, mode Mode, store memStore, opts ...Option) *Engine {
	t.Helper()
	e := New(mode, opts...)
	require.NoError(t, e.LoadRules(context.Background(), store))
	return e
}

func scanFiles(t *testing.T, e *Engine, paths ...string) *task.Task {
	t.Helper()
	tk := task.New(paths)
	require.NoError(t, e.Scan(context.Background(), tk))
	tk.Complete()
	return tk
}

func assertConsistent(t *testing.T, tk *task.Task) {
	t.Helper()
	for _, en := range tk.Entries {
		switch en.Status {
		case task.Error:
			assert.Zero(t, en.FingerprintMatches, en.Path)
			assert.Zero(t, en.PatternMatches, en.Path)
			assert.Zero(t, en.WarningLevel, en.Path)
		case task.Normal, task.Danger:
			assert.Equal(t, en.FingerprintScore+en.PatternScore, en.WarningLevel, en.Path)
			assert.Equal(t, en.WarningLevel > 0, en.Status == task.Danger, en.Path)
		}
	}
}

func TestScan_QuickStopsAtFirstFingerprint(t *testing.T) {
	dir := t.TempDir()
	p := mustWrite(t, dir, "shell.php", "BAD!")
	e := newEngine(t, ModeQuick, memStore{
		fps:  []rules.FingerprintRule{badRule()},
		pats: []rules.PatternRule{{Pattern: "BAD", Severity: 7}},
	})

	tk := scanFiles(t, e, p)
	en := tk.Entries[0]
	assert.Equal(t, task.Danger, en.Status)
	assert.Equal(t, 1, en.FingerprintMatches)
	assert.Equal(t, 0, en.PatternMatches, "pattern rules are not evaluated once a fingerprint hit")
	assert.Equal(t, 5, en.WarningLevel)
	assertConsistent(t, tk)
}

func TestScan_QuickFirstPatternOnly(t *testing.T) {
	dir := t.TempDir()
	p := mustWrite(t, dir, "shell.php", "eval(eval(system(")
	e := newEngine(t, ModeQuick, memStore{pats: []rules.PatternRule{
		{Pattern: "assert", Severity: 9},
		{Pattern: `(broken`, Severity: 9},
		{Pattern: `system\(`, Severity: 0},
		{Pattern: `eval\(`, Severity: 2},
		{Pattern: `system\(`, Severity: 4},
	}})

	en := scanFiles(t, e, p).Entries[0]
	assert.Equal(t, task.Danger, en.Status)
	assert.Equal(t, 2, en.PatternMatches)
	assert.Equal(t, 4, en.PatternScore)
	assert.Equal(t, 4, en.WarningLevel)
}

func TestScan_QuickSkipsZeroSeverityFingerprint(t *testing.T) {
	dir := t.TempDir()
	p := mustWrite(t, dir, "shell.php", "BAD!")
	zero := badRule()
	zero.Severity = -3
	e := newEngine(t, ModeQuick, memStore{fps: []rules.FingerprintRule{zero}})

	en := scanFiles(t, e, p).Entries[0]
	assert.Equal(t, task.Normal, en.Status)
	assert.Zero(t, en.WarningLevel)
}

func TestScan_CompleteSumsEverything(t *testing.T) {
	dir := t.TempDir()
	p := mustWrite(t, dir, "shell.php", "BAD!evilevil")
	e := newEngine(t, ModeComplete, memStore{
		fps:  []rules.FingerprintRule{badRule()},
		pats: []rules.PatternRule{{Pattern: "evil", Severity: 3}},
	})

	tk := scanFiles(t, e, p)
	en := tk.Entries[0]
	assert.Equal(t, task.Danger, en.Status)
	assert.Equal(t, 1, en.FingerprintMatches)
	assert.Equal(t, 2, en.PatternMatches)
	assert.Equal(t, 5+2*3, en.WarningLevel)
	assertConsistent(t, tk)
}

func TestScan_CompleteNegativeSeverityNeverReducesScore(t *testing.T) {
	dir := t.TempDir()
	p := mustWrite(t, dir, "shell.php", "evil")
	e := newEngine(t, ModeComplete, memStore{pats: []rules.PatternRule{
		{Pattern: "evil", Severity: 3},
		{Pattern: "e", Severity: -10},
	}})

	en := scanFiles(t, e, p).Entries[0]
	assert.Equal(t, 3, en.WarningLevel)
	assert.Equal(t, 2, en.PatternMatches)
}

func TestScan_UnreadableFileIsError(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for this user")
	}
	dir := t.TempDir()
	locked := mustWrite(t, dir, "locked.php", "BAD!")
	require.NoError(t, os.Chmod(locked, 0))
	t.Cleanup(func() { _ = os.Chmod(locked, 0644) })
	mustWrite(t, dir, "clean.php", "<?php echo 'hello';")

	res, err := Enumerate(context.Background(), EnumerateOptions{Root: dir, Extensions: []string{"php"}})
	require.NoError(t, err)
	e := newEngine(t, ModeComplete, memStore{fps: []rules.FingerprintRule{badRule()}})
	tk := task.New(res.Files)
	require.NoError(t, e.Scan(context.Background(), tk))
	tk.Complete()

	assert.Equal(t, 2, tk.FileCount())
	assert.Equal(t, 1, tk.ErrorCount())
	assert.Equal(t, 0, tk.DangerCount())
	assertConsistent(t, tk)
}

func TestScan_ParentReplacedByFileIsError(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, dir, "upload/shell.php", "BAD!")
	mustWrite(t, dir, "clean.php", "<?php echo 'hello';")

	res, err := Enumerate(context.Background(), EnumerateOptions{Root: dir, Extensions: []string{"php"}})
	require.NoError(t, err)
	require.Len(t, res.Files, 2)

	// upload/ turns into a regular file between enumeration and scan, so
	// reading upload/shell.php fails with ENOTDIR whatever the uid.
	require.NoError(t, os.RemoveAll(filepath.Join(dir, "upload")))
	mustWrite(t, dir, "upload", "")

	e := newEngine(t, ModeComplete, memStore{fps: []rules.FingerprintRule{badRule()}})
	tk := task.New(res.Files)
	require.NoError(t, e.Scan(context.Background(), tk))
	tk.Complete()

	assert.Equal(t, 2, tk.FileCount())
	assert.Equal(t, 1, tk.ErrorCount())
	assert.Equal(t, 0, tk.DangerCount())
	for _, en := range tk.Entries {
		if en.Status == task.Error {
			assert.Equal(t, filepath.Join(dir, "upload", "shell.php"), en.Path)
			assert.NotEmpty(t, en.Cause)
		}
	}
	assertConsistent(t, tk)
}

func TestScan_ReadFailuresDoNotAbortTheRun(t *testing.T) {
	dir := t.TempDir()
	clean := mustWrite(t, dir, "clean.php", "<?php echo 'hello';")
	gone := filepath.Join(dir, "deleted.php")
	asDir := filepath.Join(dir, "folder.php")
	require.NoError(t, os.Mkdir(asDir, 0755))

	e := newEngine(t, ModeComplete, memStore{
		fps:  []rules.FingerprintRule{badRule()},
		pats: []rules.PatternRule{{Pattern: "evil", Severity: 3}},
	})
	tk := scanFiles(t, e, gone, clean, asDir)

	assert.Equal(t, 3, tk.FileCount())
	assert.Equal(t, 2, tk.ErrorCount())
	assert.Equal(t, 0, tk.DangerCount())
	assert.Equal(t, task.Normal, tk.Entries[1].Status)
	assert.NotEmpty(t, tk.Entries[0].Cause)
	assertConsistent(t, tk)
}

func TestScan_EmptyRuleSetIsAllNormal(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"a.php", "b.jsp", "c.asp"} {
		paths = append(paths, mustWrite(t, dir, name, "<?php eval($_POST['x']); BAD!"))
	}
	for _, mode := range []Mode{ModeQuick, ModeComplete} {
		e := newEngine(t, mode, memStore{})
		tk := scanFiles(t, e, paths...)
		assert.Equal(t, 0, tk.DangerCount(), mode.String())
		for _, en := range tk.Entries {
			assert.Equal(t, task.Normal, en.Status)
		}
	}
}

func TestScan_AIModeIsRejected(t *testing.T) {
	dir := t.TempDir()
	p := mustWrite(t, dir, "a.php", "BAD!")
	e := newEngine(t, ModeAI, memStore{fps: []rules.FingerprintRule{badRule()}})
	tk := task.New([]string{p})
	err := e.Scan(context.Background(), tk)
	assert.ErrorIs(t, err, ErrModeNotImplemented)
	assert.Equal(t, task.Unchecked, tk.Entries[0].Status)
}

func TestScan_RequiresRules(t *testing.T) {
	e := New(ModeQuick)
	assert.ErrorIs(t, e.Scan(context.Background(), task.New(nil)), ErrRulesNotLoaded)
}

func TestLoadRules_FailureKeepsNoRules(t *testing.T) {
	e := New(ModeQuick)
	err := e.LoadRules(context.Background(), memStore{err: errors.New("store unreachable")})
	var le *rules.LoadError
	require.True(t, errors.As(err, &le))
	assert.Nil(t, e.Rules())
}

func TestScan_CancelledLeavesEntriesUnchecked(t *testing.T) {
	dir := t.TempDir()
	p := mustWrite(t, dir, "a.php", "BAD!")
	e := newEngine(t, ModeQuick, memStore{fps: []rules.FingerprintRule{badRule()}}, WithThreads(1))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tk := task.New([]string{p, p, p})
	err := e.Scan(ctx, tk)
	assert.ErrorIs(t, err, context.Canceled)
	for _, en := range tk.Entries {
		assert.Equal(t, task.Unchecked, en.Status)
	}
	assert.Equal(t, 3, tk.FileCount())
}

func TestScan_ParallelMatchesSequential(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	bodies := []string{"BAD!", "clean", "evil evil", "BAD!BAD!evil", "", "nothing here"}
	for i := 0; i < 40; i++ {
		paths = append(paths, mustWrite(t, dir, filepath.Join("d", string(rune('a'+i%26))+string(rune('a'+i/26))+".php"), bodies[i%len(bodies)]))
	}
	store := memStore{
		fps:  []rules.FingerprintRule{badRule()},
		pats: []rules.PatternRule{{Pattern: "evil", Severity: 3}},
	}
	var calls atomic.Int64
	seq := scanFiles(t, newEngine(t, ModeComplete, store, WithThreads(1), WithDedupe(false)), paths...)
	par := scanFiles(t, newEngine(t, ModeComplete, store, WithThreads(8), WithProgress(func(done, total int) {
		calls.Add(1)
		assert.LessOrEqual(t, done, total)
	})), paths...)

	require.Equal(t, len(seq.Entries), len(par.Entries))
	for i := range seq.Entries {
		a, b := seq.Entries[i], par.Entries[i]
		assert.Equal(t, a.Status, b.Status, a.Path)
		assert.Equal(t, a.WarningLevel, b.WarningLevel, a.Path)
		assert.Equal(t, a.FingerprintMatches, b.FingerprintMatches, a.Path)
		assert.Equal(t, a.PatternMatches, b.PatternMatches, a.Path)
	}
	assert.Equal(t, seq.DangerCount(), par.DangerCount())
	assert.Equal(t, int64(len(paths)), calls.Load())
}

func TestScan_SkipsFinalizedEntries(t *testing.T) {
	dir := t.TempDir()
	p := mustWrite(t, dir, "a.php", "BAD!")
	e := newEngine(t, ModeQuick, memStore{fps: []rules.FingerprintRule{badRule()}})
	tk := task.New([]string{p})
	require.NoError(t, tk.Entries[0].Finalize(task.Verdict{}))
	require.NoError(t, e.Scan(context.Background(), tk))
	assert.Equal(t, task.Normal, tk.Entries[0].Status)
}

func TestScan_LogsDangerousFiles(t *testing.T) {
	dir := t.TempDir()
	p := mustWrite(t, dir, "a.php", "BAD!")
	logger, hook := logtest.NewNullLogger()
	e := newEngine(t, ModeQuick, memStore{fps: []rules.FingerprintRule{badRule()}}, WithLogger(logger))
	scanFiles(t, e, p)

	var warned bool
	for _, en := range hook.AllEntries() {
		if en.Message == "dangerous file" {
			warned = true
			assert.Equal(t, p, en.Data["path"])
			assert.Equal(t, 5, en.Data["warning_level"])
		}
	}
	assert.True(t, warned)
}

func TestMemo_SameContentSameVerdict(t *testing.T) {
	m := newMemo(true)
	k, _, ok := m.lookup([]byte("BAD!"))
	require.False(t, ok)
	m.store(k, []byte("BAD!"), task.Verdict{FingerprintMatches: 1, FingerprintScore: 5})
	_, v, ok := m.lookup([]byte("BAD!"))
	require.True(t, ok)
	assert.Equal(t, 5, v.WarningLevel())
	_, _, ok = m.lookup([]byte("BAD?"))
	assert.False(t, ok)
	assert.Equal(t, 1, m.len())

	var off *memo
	_, _, ok = off.lookup([]byte("BAD!"))
	assert.False(t, ok)
	off.store(k, []byte("BAD!"), task.Verdict{})
	assert.Zero(t, off.len())
}

func TestMemo_KeyCollisionIsNotAHit(t *testing.T) {
	m := newMemo(true)
	shell, clean := []byte("BAD!"), []byte("ok!!")
	// File the shell's verdict under the clean file's bucket, as a 64-bit
	// hash collision between equal-sized contents would.
	k := keyOf(clean)
	m.store(k, shell, task.Verdict{FingerprintMatches: 1, FingerprintScore: 5})

	_, _, ok := m.lookup(clean)
	assert.False(t, ok)

	m.store(k, clean, task.Verdict{})
	_, v, ok := m.lookup(clean)
	require.True(t, ok)
	assert.Zero(t, v.WarningLevel())
	assert.Equal(t, 2, m.len())

	m.store(k, clean, task.Verdict{})
	assert.Equal(t, 2, m.len())
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"quick": ModeQuick, "Complete": ModeComplete, " AI ": ModeAI} {
		got, err := ParseMode(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseMode("regex")
	assert.Error(t, err)

	var m Mode
	require.NoError(t, m.Set("complete"))
	assert.Equal(t, ModeComplete, m)
	assert.Equal(t, "mode", m.Type())
}
