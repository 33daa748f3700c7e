package engine

import (
	"path/filepath"
	"strings"

	doublestar "github.com/bmatcuk/doublestar/v4"
)

// version-control and editor metadata; never web content
var defaultExcludeDirs = map[string]bool{
	".git":          true,
	".svn":          true,
	".hg":           true,
	".bzr":          true,
	"CVS":           true,
	".idea":         true,
	".vscode":       true,
	"__pycache__":   true,
	".pytest_cache": true,
}

func isDefaultDirExcluded(name string) bool {
	return defaultExcludeDirs[name]
}

// extensionSet holds lowercased extensions without the leading dot. any is
// set for "*" or an empty list.
type extensionSet struct {
	any  bool
	exts map[string]bool
}

func newExtensionSet(list []string) extensionSet {
	s := extensionSet{exts: map[string]bool{}}
	for _, e := range list {
		e = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), "."))
		switch e {
		case "":
			continue
		case "*":
			s.any = true
		default:
			s.exts[e] = true
		}
	}
	if len(s.exts) == 0 {
		s.any = true
	}
	return s
}

// allows reports whether a file name is a candidate. Names without an
// extension (including dotfiles such as .htaccess) never are.
func (s extensionSet) allows(name string) bool {
	ext, ok := extensionOf(name)
	if !ok {
		return false
	}
	return s.any || s.exts[ext]
}

func extensionOf(name string) (string, bool) {
	i := strings.LastIndexByte(name, '.')
	if i <= 0 {
		return "", false
	}
	return strings.ToLower(name[i+1:]), true
}

// ParseExtensions splits a comma-separated extension list.
func ParseExtensions(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// allowedByGlobs returns true if the given path is allowed by the include/exclude
// glob configuration. Include globs are comma-separated and, if provided, act as
// a positive filter. Exclude globs are subtracted last.
func allowedByGlobs(relPath string, includes, excludes []string) bool {
	rp := strings.ReplaceAll(relPath, "\\", "/")
	if len(includes) > 0 && !matchAnyGlob(rp, includes) {
		return false
	}
	if len(excludes) > 0 && matchAnyGlob(rp, excludes) {
		return false
	}
	return true
}

func parseGlobsList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p, trimGlobPrefix(p))
		}
	}
	return out
}

func matchAnyGlob(pathToMatch string, globs []string) bool {
	for _, g := range globs {
		if ok, _ := doublestar.Match(g, pathToMatch); ok {
			return true
		}
		if ok, _ := doublestar.Match(g, filepath.Base(pathToMatch)); ok {
			return true
		}
	}
	return false
}

func trimGlobPrefix(g string) string {
	s := strings.TrimPrefix(g, "./")
	for strings.HasPrefix(s, "**/") {
		s = strings.TrimPrefix(s, "**/")
	}
	return s
}
