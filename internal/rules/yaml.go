package rules

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// File is the on-disk YAML shape of a rule file.
type File struct {
	Fingerprints []FingerprintRule `yaml:"fingerprints"`
	Patterns     []PatternRule     `yaml:"patterns"`
}

// FileStore reads rules from a YAML file, or from every *.yml/*.yaml file of
// a directory in lexical order.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore { return &FileStore{path: path} }

func (s *FileStore) Name() string { return s.path }

func (s *FileStore) Fingerprints(ctx context.Context) ([]FingerprintRule, error) {
	files, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	var out []FingerprintRule
	for _, f := range files {
		out = append(out, f.Fingerprints...)
	}
	return out, nil
}

func (s *FileStore) Patterns(ctx context.Context) ([]PatternRule, error) {
	files, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	var out []PatternRule
	for _, f := range files {
		out = append(out, f.Patterns...)
	}
	return out, nil
}

func (s *FileStore) read(ctx context.Context) ([]File, error) {
	paths, err := s.paths()
	if err != nil {
		return nil, err
	}
	out := make([]File, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f, err := ReadFile(p)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func (s *FileStore) paths() ([]string, error) {
	st, err := os.Stat(s.path)
	if err != nil {
		return nil, err
	}
	if !st.IsDir() {
		return []string{s.path}, nil
	}
	entries, err := os.ReadDir(s.path)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yml", ".yaml":
			out = append(out, filepath.Join(s.path, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}

// ReadFile decodes one YAML rule file. Unknown keys are rejected so that a
// typo in a rule row fails loudly instead of producing a silent zero value.
func ReadFile(path string) (File, error) {
	var f File
	b, err := os.ReadFile(path)
	if err != nil {
		return f, err
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return File{}, nil
		}
		return f, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// WriteFile encodes rules as YAML at path.
func WriteFile(path string, f File) error {
	b, err := yaml.Marshal(&f)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}
