package match

import (
	"regexp"
	"strings"

	"github.com/shellhound/shellhound/internal/rules"
)

// Text returns a best-effort string view of b: invalid UTF-8 sequences are
// replaced with U+FFFD so that binary files can still be pattern-matched.
func Text(b []byte) string {
	return strings.ToValidUTF8(string(b), "�")
}

// Pattern compiles rule.Pattern and counts its non-overlapping matches in
// text. A pattern that does not compile matches nothing.
func Pattern(text string, rule rules.PatternRule) int {
	re, err := regexp.Compile(rule.Pattern)
	if err != nil {
		return 0
	}
	return CountCompiled(re, text)
}

// CountCompiled counts non-overlapping matches of re in text, scanning left
// to right. A nil re matches nothing.
func CountCompiled(re *regexp.Regexp, text string) int {
	if re == nil {
		return 0
	}
	return len(re.FindAllStringIndex(text, -1))
}
