package shellhound

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/shellhound/shellhound/internal/config"
	"github.com/shellhound/shellhound/internal/engine"
	"github.com/shellhound/shellhound/internal/ignore"
)

// localFiles are the operator-side inputs of a run: the global and local
// configs and the ignore file. Nothing is read from the scan root by default
// lookup; explicit --config and --ignore-file paths always apply.
type localFiles struct {
	global, local config.FileConfig
	localPath     string
	ignoreFile    string
	skipped       []string
}

// loadConfigs resolves the local files for a scan of root. An empty root
// disables the containment check. Missing default files are empty configs.
func loadConfigs(root string) (localFiles, error) {
	var lf localFiles
	if c, err := config.LoadGlobal(); err == nil {
		lf.global = c
	} else if !isMissing(err) {
		return lf, err
	}
	wd, err := os.Getwd()
	if err != nil {
		return lf, err
	}

	if flagConfig != "" {
		lf.localPath = flagConfig
	} else if p, ferr := config.FindLocal(wd); ferr == nil {
		if within(root, p) {
			lf.skipped = append(lf.skipped, p)
		} else {
			lf.localPath = p
		}
	} else if !errors.Is(ferr, config.ErrNotFound) {
		return lf, ferr
	}
	if lf.localPath != "" {
		if lf.local, err = config.LoadFile(lf.localPath); err != nil {
			return lf, err
		}
	}

	if flagIgnore != "" {
		if _, err := os.Stat(flagIgnore); err != nil {
			return lf, fmt.Errorf("ignore file: %w", err)
		}
		lf.ignoreFile = flagIgnore
	} else if p := filepath.Join(wd, ignore.FileName); fileExists(p) {
		if within(root, p) {
			lf.skipped = append(lf.skipped, p)
		} else {
			lf.ignoreFile = p
		}
	}
	return lf, nil
}

// within reports whether p lies under root, symlinks resolved.
func within(root, p string) bool {
	if root == "" {
		return false
	}
	r, p := resolve(root), resolve(p)
	rel, err := filepath.Rel(r, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func fileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

func resolve(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	if r, err := filepath.EvalSymlinks(p); err == nil {
		return r
	}
	return p
}

func isMissing(err error) bool {
	return errors.Is(err, config.ErrNotFound) || errors.Is(err, config.ErrNoConfigDir)
}

// ruleSource resolves --rules, then the config files, then DATABASE_URL from
// the environment or a .env file in the working directory.
func ruleSource(cli string, local, global *string) string {
	if s := pickString(cli, local, global); s != "" {
		return s
	}
	_ = godotenv.Load()
	if u := strings.TrimSpace(os.Getenv("DATABASE_URL")); u != "" {
		if !strings.HasPrefix(u, "sqlite://") && filepath.Ext(u) == "" {
			u = "sqlite://" + u
		}
		return u
	}
	return ""
}

func pickString(cli string, local, global *string) string {
	if cli != "" {
		return cli
	}
	if local != nil && *local != "" {
		return *local
	}
	if global != nil && *global != "" {
		return *global
	}
	return ""
}

func pickInt(cli int, local, global *int) int {
	if cli != 0 {
		return cli
	}
	if local != nil && *local != 0 {
		return *local
	}
	if global != nil && *global != 0 {
		return *global
	}
	return 0
}

func pickInt64(cli int64, local, global *int64) int64 {
	if cli != 0 {
		return cli
	}
	if local != nil && *local != 0 {
		return *local
	}
	if global != nil && *global != 0 {
		return *global
	}
	return 0
}

func pickBool(cli bool, local, global *bool) bool {
	if cli {
		return true
	}
	if local != nil {
		return *local
	}
	if global != nil {
		return *global
	}
	return false
}

// pickFlagBool lets an explicitly set flag win in either direction, so flags
// that default to true can still be overridden by config.
func pickFlagBool(cmd *cobra.Command, name string, cli bool, local, global *bool) bool {
	if cmd.Flags().Changed(name) {
		return cli
	}
	if local != nil {
		return *local
	}
	if global != nil {
		return *global
	}
	return cli
}

func pickExtensions(cli string, local, global *[]string) []string {
	if strings.TrimSpace(cli) != "" {
		return engine.ParseExtensions(cli)
	}
	if local != nil {
		return *local
	}
	if global != nil {
		return *global
	}
	return nil
}
