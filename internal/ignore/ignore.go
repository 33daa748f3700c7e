// Package ignore reads .shellhoundignore files: one gitignore-style glob per
// line, blank lines and # comments skipped.
package ignore

import (
	"bufio"
	"os"
	"strings"

	doublestar "github.com/bmatcuk/doublestar/v4"
)

// FileName is the ignore file looked up in the working directory. Patterns
// are matched against paths relative to the scan root.
const FileName = ".shellhoundignore"

// Matcher reports whether a root-relative, slash-separated path is ignored.
// The zero value ignores nothing.
type Matcher struct {
	globs    []string
	dirGlobs []string
}

// Load parses the ignore file at path. A missing file yields an empty matcher
// together with the open error.
func Load(path string) (Matcher, error) {
	f, err := os.Open(path)
	if err != nil {
		return Matcher{}, err
	}
	defer f.Close()

	var m Matcher
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		m.Add(sc.Text())
	}
	return m, sc.Err()
}

// Add appends one pattern line.
func (m *Matcher) Add(line string) {
	p := strings.TrimSpace(line)
	if p == "" || strings.HasPrefix(p, "#") {
		return
	}
	p = strings.ReplaceAll(p, "\\", "/")
	dirOnly := strings.HasSuffix(p, "/")
	p = strings.TrimSuffix(p, "/")
	anchored := strings.Contains(p, "/")
	p = strings.TrimPrefix(p, "/")
	if p == "" {
		return
	}
	var base []string
	if anchored {
		base = []string{p}
	} else {
		base = []string{p, "**/" + p}
	}
	for _, b := range base {
		if dirOnly {
			m.dirGlobs = append(m.dirGlobs, b)
		} else {
			m.globs = append(m.globs, b)
		}
		m.globs = append(m.globs, b+"/**")
	}
}

// Match reports whether the file rel is ignored.
func (m Matcher) Match(rel string) bool {
	return matchAny(m.globs, clean(rel))
}

// MatchDir reports whether the directory rel is ignored, which also honours
// patterns ending in a slash.
func (m Matcher) MatchDir(rel string) bool {
	rel = clean(rel)
	return matchAny(m.dirGlobs, rel) || matchAny(m.globs, rel)
}

func clean(rel string) string {
	return strings.TrimPrefix(strings.ReplaceAll(rel, "\\", "/"), "./")
}

func matchAny(globs []string, rel string) bool {
	for _, g := range globs {
		if ok, _ := doublestar.Match(g, rel); ok {
			return true
		}
	}
	return false
}

// Empty reports whether the matcher holds no patterns.
func (m Matcher) Empty() bool { return len(m.globs) == 0 && len(m.dirGlobs) == 0 }
