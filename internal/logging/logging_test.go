package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileName(t *testing.T) {
	ts := time.Date(2024, 3, 9, 7, 5, 0, 0, time.UTC)
	assert.Equal(t, "202403090705_v1.2.0_quick.log", FileName(ts, "v1.2.0", "quick"))
	assert.Equal(t, "202403090705_dev_scan.log", FileName(ts, "", ""))
	assert.Equal(t, "202403090705_a-b_complete.log", FileName(ts, "a/b", "complete"))
}

func TestSetup_WritesStderrAndFile(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	ts := time.Date(2024, 3, 9, 7, 5, 0, 0, time.UTC)
	l, closeFn, path, err := Setup(Options{
		Level:   "debug",
		Output:  &buf,
		Dir:     filepath.Join(dir, "logs"),
		Version: "v0.1.0",
		Mode:    "complete",
		Now:     func() time.Time { return ts },
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "logs", "202403090705_v0.1.0_complete.log"), path)

	l.WithField("path", "/srv/www/x.php").Warn("dangerous file")
	l.Trace("not recorded")
	require.NoError(t, closeFn())

	assert.Contains(t, buf.String(), "dangerous file")
	assert.NotContains(t, buf.String(), "\x1b[", "non-terminal output must not be colored")
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "dangerous file")
	assert.Contains(t, string(b), "path=/srv/www/x.php")
	assert.NotContains(t, string(b), "not recorded")
}

func TestSetup_NoFile(t *testing.T) {
	var buf bytes.Buffer
	l, closeFn, path, err := Setup(Options{Output: &buf})
	require.NoError(t, err)
	assert.Empty(t, path)
	l.Debug("hidden")
	l.Info("shown")
	assert.NoError(t, closeFn())
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestSetup_BadLevel(t *testing.T) {
	_, _, _, err := Setup(Options{Level: "loud"})
	assert.Error(t, err)
}
