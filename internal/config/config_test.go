package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return p
}

func TestLoadFile_Basic(t *testing.T) {
	dir := t.TempDir()
	p := writeTemp(t, dir, "shellhound.yaml", "threads: 4\nmax_bytes: 123\nmode: quick\nextensions: [php, jsp]\nfail_level: 10\n")
	cfg, err := LoadFile(p)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Threads == nil || *cfg.Threads != 4 {
		t.Fatalf("expected threads=4, got %#v", cfg.Threads)
	}
	if cfg.MaxBytes == nil || *cfg.MaxBytes != 123 {
		t.Fatalf("expected max_bytes=123, got %#v", cfg.MaxBytes)
	}
	if cfg.Mode == nil || *cfg.Mode != "quick" {
		t.Fatalf("expected mode=quick, got %#v", cfg.Mode)
	}
	if cfg.Extensions == nil || len(*cfg.Extensions) != 2 || (*cfg.Extensions)[1] != "jsp" {
		t.Fatalf("expected extensions=[php jsp], got %#v", cfg.Extensions)
	}
	if cfg.FailLevel == nil || *cfg.FailLevel != 10 {
		t.Fatalf("expected fail_level=10, got %#v", cfg.FailLevel)
	}
	if cfg.NoColor != nil {
		t.Fatalf("unset key must stay nil")
	}
}

func TestLoadFile_UnknownKey(t *testing.T) {
	dir := t.TempDir()
	p := writeTemp(t, dir, "shellhound.yaml", "threads: 4\nverify: safe\n")
	if _, err := LoadFile(p); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestLoadFile_Empty(t *testing.T) {
	dir := t.TempDir()
	p := writeTemp(t, dir, "shellhound.yaml", "")
	cfg, err := LoadFile(p)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Threads != nil {
		t.Fatalf("expected empty config, got %#v", cfg)
	}
}

func TestLoadLocal_PrefersDotfile(t *testing.T) {
	dir := t.TempDir()
	// place both, expect the dotfile to be picked first by search order
	writeTemp(t, dir, "shellhound.yaml", "threads: 1\n")
	writeTemp(t, dir, ".shellhound.yaml", "threads: 7\n")
	cfg, err := LoadLocal(dir)
	if err != nil {
		t.Fatalf("LoadLocal: %v", err)
	}
	if cfg.Threads == nil || *cfg.Threads != 7 {
		t.Fatalf("expected threads=7 from .shellhound.yaml, got %#v", cfg.Threads)
	}
}

func TestLoadLocal_NoConfig(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadLocal(dir); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLoadGlobal_XDG_Config(t *testing.T) {
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "shellhound")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	p := filepath.Join(cfgDir, "config.yml")
	if err := os.WriteFile(p, []byte("threads: 9\nrules: /etc/shellhound/rules.yml\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("XDG_CONFIG_HOME", dir)
	cfg, err := LoadGlobal()
	if err != nil {
		t.Fatalf("LoadGlobal: %v", err)
	}
	if cfg.Threads == nil || *cfg.Threads != 9 {
		t.Fatalf("expected threads=9 from global config, got %#v", cfg.Threads)
	}
	if cfg.Rules == nil || *cfg.Rules != "/etc/shellhound/rules.yml" {
		t.Fatalf("expected rules path, got %#v", cfg.Rules)
	}
}

func TestLoadGlobal_NoConfig(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")
	// Simulate no HOME as well by clearing HOME; LoadGlobal should error
	t.Setenv("HOME", "")
	if _, err := LoadGlobal(); err == nil {
		t.Fatal("expected error when no global config dir exists")
	}
	if _, err := LoadGlobal(); !errors.Is(err, ErrNoConfigDir) {
		t.Fatalf("expected ErrNoConfigDir, got %v", err)
	}
}

func TestSave_RoundTripAndNoClobber(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "nested", ".shellhound.yml")
	if err := Save(p, Defaults(), false); err != nil {
		t.Fatalf("Save: %v", err)
	}
	cfg, err := LoadFile(p)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Mode == nil || *cfg.Mode != "complete" {
		t.Fatalf("expected mode=complete, got %#v", cfg.Mode)
	}
	if cfg.Rules != nil {
		t.Fatalf("unset rules must be omitted, got %#v", cfg.Rules)
	}
	if err := Save(p, Defaults(), false); err == nil {
		t.Fatal("expected error when file exists")
	}
	if err := Save(p, FileConfig{}, true); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
}

func TestFindLocal(t *testing.T) {
	dir := t.TempDir()
	if _, err := FindLocal(dir); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	writeTemp(t, dir, "shellhound.yml", "threads: 2\n")
	p, err := FindLocal(dir)
	if err != nil {
		t.Fatalf("FindLocal: %v", err)
	}
	if p != filepath.Join(dir, "shellhound.yml") {
		t.Fatalf("unexpected path %q", p)
	}
}
