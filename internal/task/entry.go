package task

import (
	"errors"
	"fmt"
	"strings"
)

// EntryStatus is the per-file lifecycle: Unchecked until the file's scan pass
// finalizes it as Normal, Danger or Error. The three outcomes are terminal.
type EntryStatus int

const (
	// Unchecked is the initial status; the file has not been scanned yet.
	Unchecked EntryStatus = iota
	// Normal means the file was read and its warning level stayed at zero.
	Normal
	// Danger means the warning level came out positive.
	Danger
	// Error means the file could not be read; Cause holds the reason.
	Error
)

var entryStatusNames = [...]string{"Unchecked", "Normal", "Danger", "Error"}

func (s EntryStatus) String() string {
	if s < 0 || int(s) >= len(entryStatusNames) {
		return fmt.Sprintf("EntryStatus(%d)", int(s))
	}
	return entryStatusNames[s]
}

func (s EntryStatus) MarshalText() ([]byte, error) { return []byte(strings.ToLower(s.String())), nil }

func (s *EntryStatus) UnmarshalText(b []byte) error {
	for i, n := range entryStatusNames {
		if strings.EqualFold(n, string(b)) {
			*s = EntryStatus(i)
			return nil
		}
	}
	return fmt.Errorf("unknown entry status %q", b)
}

// ErrFinalized is returned when an entry that already left Unchecked is
// written again.
var ErrFinalized = errors.New("entry already finalized")

// Entry is the scan record of one candidate file. Match counts are
// occurrences; scores are the clamped severities those occurrences add up to.
// WarningLevel is always FingerprintScore + PatternScore.
type Entry struct {
	Path               string      `json:"path"`
	FingerprintMatches int         `json:"fingerprint_matches"`
	PatternMatches     int         `json:"pattern_matches"`
	FingerprintScore   int         `json:"fingerprint_score"`
	PatternScore       int         `json:"pattern_score"`
	WarningLevel       int         `json:"warning_level"`
	Status             EntryStatus `json:"status"`
	Cause              string      `json:"error,omitempty"`
}

// NewEntry returns an Unchecked entry for path.
func NewEntry(path string) Entry {
	return Entry{Path: path, Status: Unchecked}
}

// Verdict is what a scan strategy found in one file.
type Verdict struct {
	FingerprintMatches int
	FingerprintScore   int
	PatternMatches     int
	PatternScore       int
}

// WarningLevel is the total score of the verdict.
func (v Verdict) WarningLevel() int { return v.FingerprintScore + v.PatternScore }

// Finalize records v and moves the entry to Danger when the warning level is
// positive, Normal otherwise.
func (e *Entry) Finalize(v Verdict) error {
	if e.Status != Unchecked {
		return ErrFinalized
	}
	e.FingerprintMatches = v.FingerprintMatches
	e.FingerprintScore = v.FingerprintScore
	e.PatternMatches = v.PatternMatches
	e.PatternScore = v.PatternScore
	e.WarningLevel = v.WarningLevel()
	if e.WarningLevel > 0 {
		e.Status = Danger
	} else {
		e.Status = Normal
	}
	return nil
}

// Fail marks the entry as unreadable. Counts and scores stay zero.
func (e *Entry) Fail(cause error) error {
	if e.Status != Unchecked {
		return ErrFinalized
	}
	*e = Entry{Path: e.Path, Status: Error}
	if cause != nil {
		e.Cause = cause.Error()
	}
	return nil
}
