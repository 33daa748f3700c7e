// Package rules holds the signature rule set used by the scan engine: content
// fingerprints (MD5 digest of a fixed-length byte sequence) and textual
// patterns (regular expressions). Rules come from a Store and are frozen into an
// immutable Set before any file is scanned.
package rules

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// FingerprintRule describes one known-bad byte sequence of exactly Length bytes
// whose MD5 digest, rendered as hex, equals Digest.
type FingerprintRule struct {
	Digest   string `yaml:"digest" json:"digest"`
	Length   uint32 `yaml:"length" json:"length"`
	Severity int32  `yaml:"severity" json:"severity"`
}

// Contribution is the score added per occurrence. Negative severities count as zero.
func (r FingerprintRule) Contribution() int {
	if r.Severity < 0 {
		return 0
	}
	return int(r.Severity)
}

// normalize lowercases the digest and rejects rows that can never match.
func (r FingerprintRule) normalize() (FingerprintRule, error) {
	d := strings.ToLower(strings.TrimSpace(r.Digest))
	raw, err := hex.DecodeString(d)
	if err != nil || len(raw) != 16 {
		return r, fmt.Errorf("invalid md5 digest %q", r.Digest)
	}
	if r.Length == 0 {
		return r, fmt.Errorf("fingerprint %s has zero length", d)
	}
	r.Digest = d
	return r, nil
}

// PatternRule is a regular expression whose every match adds Severity.
type PatternRule struct {
	Pattern  string `yaml:"pattern" json:"pattern"`
	Severity int32  `yaml:"severity" json:"severity"`
}

// Contribution is the score added per match. Negative severities count as zero.
func (r PatternRule) Contribution() int {
	if r.Severity < 0 {
		return 0
	}
	return int(r.Severity)
}

// CompiledPattern pairs a pattern rule with its compiled form. Regexp is nil
// when the pattern does not compile; such a rule never matches.
type CompiledPattern struct {
	PatternRule
	Regexp *regexp.Regexp
	Err    error
}

// Set is an immutable snapshot of a loaded rule set. Order within each list is
// the store's order and is the tie-break order for quick scans.
type Set struct {
	source       string
	fingerprints []FingerprintRule
	patterns     []CompiledPattern
}

// NewSet validates fingerprints and compiles patterns. Malformed fingerprints
// fail the whole set; patterns that do not compile are kept but inert.
func NewSet(source string, fps []FingerprintRule, pats []PatternRule) (*Set, error) {
	s := &Set{
		source:       source,
		fingerprints: make([]FingerprintRule, 0, len(fps)),
		patterns:     make([]CompiledPattern, 0, len(pats)),
	}
	for i, fp := range fps {
		n, err := fp.normalize()
		if err != nil {
			return nil, fmt.Errorf("fingerprint #%d: %w", i+1, err)
		}
		s.fingerprints = append(s.fingerprints, n)
	}
	for _, p := range pats {
		re, err := regexp.Compile(p.Pattern)
		s.patterns = append(s.patterns, CompiledPattern{PatternRule: p, Regexp: re, Err: err})
	}
	return s, nil
}

// Source names the store the set was loaded from.
func (s *Set) Source() string { return s.source }

// Fingerprints returns the fingerprint rules. Callers must not modify the slice.
func (s *Set) Fingerprints() []FingerprintRule { return s.fingerprints }

// Patterns returns the compiled pattern rules. Callers must not modify the slice.
func (s *Set) Patterns() []CompiledPattern { return s.patterns }

// Invalid returns the pattern rules that failed to compile.
func (s *Set) Invalid() []CompiledPattern {
	var out []CompiledPattern
	for _, p := range s.patterns {
		if p.Regexp == nil {
			out = append(out, p)
		}
	}
	return out
}

// Empty reports whether the set holds no rules at all.
func (s *Set) Empty() bool {
	return len(s.fingerprints) == 0 && len(s.patterns) == 0
}
