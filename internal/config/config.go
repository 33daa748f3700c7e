package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

var (
	// ErrNotFound is returned by FindLocal, LoadLocal and LoadGlobal when no
	// file exists.
	ErrNotFound = errors.New("config not found")
	// ErrNoConfigDir means neither XDG_CONFIG_HOME nor a home directory is set.
	ErrNoConfigDir = errors.New("no config dir")
)

// LocalNames are searched in order in the working directory.
var LocalNames = []string{".shellhound.yml", ".shellhound.yaml", "shellhound.yml", "shellhound.yaml"}

// FileConfig is the on-disk YAML configuration shape for shellhound.
// Nil fields are unset and fall through to the next source.
type FileConfig struct {
	Mode            *string   `yaml:"mode,omitempty"`
	Extensions      *[]string `yaml:"extensions,omitempty"`
	Include         *string   `yaml:"include,omitempty"`
	Exclude         *string   `yaml:"exclude,omitempty"`
	Rules           *string   `yaml:"rules,omitempty"`
	Threads         *int      `yaml:"threads,omitempty"`
	MaxBytes        *int64    `yaml:"max_bytes,omitempty"`
	DefaultExcludes *bool     `yaml:"default_excludes,omitempty"`
	NoColor         *bool     `yaml:"no_color,omitempty"`
	NoDedupe        *bool     `yaml:"no_dedupe,omitempty"`
	FailLevel       *int      `yaml:"fail_level,omitempty"`
	LogDir          *string   `yaml:"log_dir,omitempty"`
	LogLevel        *string   `yaml:"log_level,omitempty"`
}

// LoadFile reads a YAML config file from the provided path. Unknown keys are
// rejected.
func LoadFile(path string) (FileConfig, error) {
	var cfg FileConfig
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer func() { _ = f.Close() }()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return FileConfig{}, nil
		}
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// FindLocal returns the first of LocalNames present in dir.
func FindLocal(dir string) (string, error) {
	for _, name := range LocalNames {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", ErrNotFound
}

// LoadLocal loads the config file FindLocal picks in dir.
func LoadLocal(dir string) (FileConfig, error) {
	p, err := FindLocal(dir)
	if err != nil {
		return FileConfig{}, err
	}
	return LoadFile(p)
}

// GlobalPath returns $XDG_CONFIG_HOME/shellhound/config.yml, falling back to
// ~/.config.
func GlobalPath() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, _ := os.UserHomeDir()
		if home != "" {
			base = filepath.Join(home, ".config")
		}
	}
	if base == "" {
		return "", ErrNoConfigDir
	}
	return filepath.Join(base, "shellhound", "config.yml"), nil
}

// LoadGlobal loads the global config file.
func LoadGlobal() (FileConfig, error) {
	p, err := GlobalPath()
	if err != nil {
		return FileConfig{}, err
	}
	if _, err := os.Stat(p); err != nil {
		return FileConfig{}, ErrNotFound
	}
	return LoadFile(p)
}

// Save writes cfg to path, creating parent directories. An existing file is
// only replaced when overwrite is set.
func Save(path string, cfg FileConfig, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// Defaults is the configuration written by `shellhound config init`.
func Defaults() FileConfig {
	mode := "complete"
	exts := []string{"php", "jsp", "jspx", "asp", "aspx"}
	threads := 0
	maxBytes := int64(0)
	defExcl := true
	failLevel := 0
	logDir := "logs"
	logLevel := "info"
	return FileConfig{
		Mode:            &mode,
		Extensions:      &exts,
		Threads:         &threads,
		MaxBytes:        &maxBytes,
		DefaultExcludes: &defExcl,
		FailLevel:       &failLevel,
		LogDir:          &logDir,
		LogLevel:        &logLevel,
	}
}
