package rules

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Store is the read-only rule source consulted once per run.
type Store interface {
	// Name identifies the store in logs and errors (usually a path).
	Name() string
	Fingerprints(ctx context.Context) ([]FingerprintRule, error)
	Patterns(ctx context.Context) ([]PatternRule, error)
}

// LoadError reports a rule store that could not be read or a row that could
// not be decoded. It is fatal to a run.
type LoadError struct {
	Source string
	Op     string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load rules from %s: %s: %v", e.Source, e.Op, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Load reads both rule lists from store and freezes them into a Set.
// It is all-or-nothing: any failure returns a *LoadError and no set.
func Load(ctx context.Context, store Store) (*Set, error) {
	name := store.Name()
	fps, err := store.Fingerprints(ctx)
	if err != nil {
		return nil, &LoadError{Source: name, Op: "fingerprints", Err: err}
	}
	pats, err := store.Patterns(ctx)
	if err != nil {
		return nil, &LoadError{Source: name, Op: "patterns", Err: err}
	}
	set, err := NewSet(name, fps, pats)
	if err != nil {
		return nil, &LoadError{Source: name, Op: "decode", Err: err}
	}
	return set, nil
}

// Open picks a store implementation for source. SQLite databases are
// recognised by a sqlite:// prefix or a .db/.sqlite/.sqlite3 extension;
// anything else is read as a YAML file or a directory of YAML files.
// Stores holding resources implement io.Closer.
func Open(source string) (Store, error) {
	if source == "" {
		return nil, &LoadError{Source: "<none>", Op: "open", Err: fmt.Errorf("no rule source configured")}
	}
	if p, ok := strings.CutPrefix(source, "sqlite://"); ok {
		return OpenSQLite(p)
	}
	switch strings.ToLower(filepath.Ext(source)) {
	case ".db", ".sqlite", ".sqlite3":
		return OpenSQLite(source)
	}
	if _, err := os.Stat(source); err != nil {
		return nil, &LoadError{Source: source, Op: "open", Err: err}
	}
	return NewFileStore(source), nil
}

// Close releases store resources when the store holds any.
func Close(s Store) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
