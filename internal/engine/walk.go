package engine

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/shellhound/shellhound/internal/ignore"
)

// EnumerateOptions selects the candidate files under Root.
type EnumerateOptions struct {
	Root string
	// Extensions accepted, case-insensitive, without dots. An empty list
	// accepts any extension, the same as "*"; callers wanting a restriction
	// must name the extensions.
	Extensions      []string
	IncludeGlobs    string
	ExcludeGlobs    string
	DefaultExcludes bool
	// IgnoreFile is an ignore file applied to root-relative paths. Empty
	// means none; files inside Root are never picked up implicitly.
	IgnoreFile string
	// MaxBytes skips larger files; 0 means no limit.
	MaxBytes int64
	Logger   logrus.FieldLogger
}

// Enumeration is the result of walking a root.
type Enumeration struct {
	Files []string
	// Dirs counts the subdirectories descended into, root excluded.
	Dirs int
}

// EnumerationError reports a root that is missing or not a directory.
type EnumerationError struct {
	Root string
	Err  error
}

func (e *EnumerationError) Error() string {
	return fmt.Sprintf("enumerate %s: %v", e.Root, e.Err)
}

func (e *EnumerationError) Unwrap() error { return e.Err }

// Enumerate walks opts.Root and returns the files accepted by the extension,
// glob, ignore-file and size filters. Unreadable subdirectories are skipped
// and logged; only a bad root is an error. Symlinks are not followed.
func Enumerate(ctx context.Context, opts EnumerateOptions) (Enumeration, error) {
	var res Enumeration
	st, err := os.Stat(opts.Root)
	if err != nil {
		return res, &EnumerationError{Root: opts.Root, Err: err}
	}
	if !st.IsDir() {
		return res, &EnumerationError{Root: opts.Root, Err: fmt.Errorf("not a directory")}
	}
	log := opts.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}

	exts := newExtensionSet(opts.Extensions)
	includes := parseGlobsList(opts.IncludeGlobs)
	excludes := parseGlobsList(opts.ExcludeGlobs)
	var ign ignore.Matcher
	if opts.IgnoreFile != "" {
		if ign, err = ignore.Load(opts.IgnoreFile); err != nil {
			return res, fmt.Errorf("ignore file: %w", err)
		}
		log.WithField("file", opts.IgnoreFile).Info("ignore file applied")
	}

	err = filepath.WalkDir(opts.Root, func(p string, d fs.DirEntry, err error) error {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if err != nil {
			if p == opts.Root {
				return &EnumerationError{Root: opts.Root, Err: err}
			}
			log.WithField("path", p).WithError(err).Warn("skipping unreadable path")
			return nil
		}
		if p == opts.Root {
			return nil
		}
		rel, _ := filepath.Rel(opts.Root, p)
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if opts.DefaultExcludes && isDefaultDirExcluded(d.Name()) {
				return filepath.SkipDir
			}
			if ign.MatchDir(rel) {
				return filepath.SkipDir
			}
			res.Dirs++
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if !exts.allows(d.Name()) {
			return nil
		}
		if !allowedByGlobs(rel, includes, excludes) {
			return nil
		}
		if ign.Match(rel) {
			return nil
		}
		if opts.MaxBytes > 0 {
			if info, _ := d.Info(); info != nil && info.Size() > opts.MaxBytes {
				log.WithField("path", p).Debug("skipping file over size limit")
				return nil
			}
		}
		res.Files = append(res.Files, p)
		return nil
	})
	if err != nil {
		return res, err
	}
	return res, nil
}
