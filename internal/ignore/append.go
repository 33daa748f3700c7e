package ignore

import (
	"bufio"
	"os"
	"strings"
)

// Append ensures pattern is present in the ignore file at path. It creates
// the file if missing and reports whether a line was written. Idempotent.
func Append(path, pattern string) (bool, error) {
	pattern = strings.TrimSpace(pattern)
	existing := map[string]bool{}
	endsWithNewline := true
	if b, err := os.ReadFile(path); err == nil {
		sc := bufio.NewScanner(strings.NewReader(string(b)))
		for sc.Scan() {
			existing[strings.TrimSpace(sc.Text())] = true
		}
		endsWithNewline = len(b) == 0 || b[len(b)-1] == '\n'
	}
	if pattern == "" || existing[pattern] {
		return false, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return false, err
	}
	defer f.Close()
	line := pattern + "\n"
	if !endsWithNewline {
		line = "\n" + line
	}
	if _, err := f.WriteString(line); err != nil {
		return false, err
	}
	return true, nil
}

// CommonUploadDirs are upload and cache locations that often hold
// user-generated files; listed by `shellhound ignore --suggest`.
func CommonUploadDirs() []string {
	return []string{
		"node_modules/",
		"vendor/",
		"wp-content/cache/",
	}
}
