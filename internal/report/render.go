package report

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"

	"github.com/shellhound/shellhound/internal/task"
)

type PrintOptions struct {
	NoColor bool
	// All lists Normal entries too; by default only Danger and Error rows
	// are printed.
	All bool
}

var (
	dangerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	normalStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
)

// rows returns the entries to print, highest warning level first, errors
// after dangers, then by path.
func rows(t *task.Task, all bool) []task.Entry {
	var out []task.Entry
	for _, e := range t.Entries {
		if all || e.Status == task.Danger || e.Status == task.Error {
			out = append(out, e)
		}
	}
	rank := func(s task.EntryStatus) int {
		switch s {
		case task.Danger:
			return 0
		case task.Error:
			return 1
		default:
			return 2
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if rank(a.Status) != rank(b.Status) {
			return rank(a.Status) < rank(b.Status)
		}
		if a.WarningLevel != b.WarningLevel {
			return a.WarningLevel > b.WarningLevel
		}
		return a.Path < b.Path
	})
	return out
}

func colorStatus(s task.EntryStatus, noColor bool) string {
	txt, _ := s.MarshalText()
	if noColor {
		return string(txt)
	}
	switch s {
	case task.Danger:
		return dangerStyle.Render(string(txt))
	case task.Error:
		return errorStyle.Render(string(txt))
	case task.Normal:
		return normalStyle.Render(string(txt))
	}
	return string(txt)
}

func displayPath(root, p string) string {
	if root == "" {
		return p
	}
	if rel, err := filepath.Rel(root, p); err == nil {
		return filepath.ToSlash(rel)
	}
	return p
}

// PrintTable renders the flagged entries as a bordered table followed by the
// summary footer.
func PrintTable(w io.Writer, t *task.Task, opts PrintOptions) error {
	list := rows(t, opts.All)
	if len(list) == 0 {
		fmt.Fprintln(w, "No web shells found ✅")
	} else {
		table := tablewriter.NewWriter(w)
		table.Header("Status", "Level", "Fingerprints", "Patterns", "Path")
		for _, e := range list {
			path := displayPath(t.Root, e.Path)
			if e.Status == task.Error && e.Cause != "" {
				path += " (" + e.Cause + ")"
			}
			if err := table.Append([]string{
				colorStatus(e.Status, opts.NoColor),
				strconv.Itoa(e.WarningLevel),
				strconv.Itoa(e.FingerprintMatches),
				strconv.Itoa(e.PatternMatches),
				path,
			}); err != nil {
				return err
			}
		}
		if err := table.Render(); err != nil {
			return err
		}
	}
	printFooter(w, t)
	return nil
}

// PrintText writes one line per flagged entry, suitable for grep and logs.
func PrintText(w io.Writer, t *task.Task, opts PrintOptions) {
	list := rows(t, opts.All)
	if len(list) == 0 {
		fmt.Fprintln(w, "No web shells found ✅")
	} else {
		fmt.Fprintf(w, "Flagged: %d\n", len(list))
		for _, e := range list {
			fmt.Fprintf(w, "%-8s %4d  fp=%d re=%d  %s", colorStatus(e.Status, opts.NoColor), e.WarningLevel,
				e.FingerprintMatches, e.PatternMatches, displayPath(t.Root, e.Path))
			if e.Cause != "" {
				fmt.Fprintf(w, "  (%s)", e.Cause)
			}
			fmt.Fprintln(w)
		}
	}
	printFooter(w, t)
}

func printFooter(w io.Writer, t *task.Task) {
	s := t.Summary()
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Files: %d (dangers: %d, errors: %d, normal: %d)\n", s.Files, s.Dangers, s.Errors, s.Normal)
	if s.Dirs > 0 {
		fmt.Fprintf(w, "Directories: %d\n", s.Dirs)
	}
	fmt.Fprintf(w, "Scan duration: %.2fs\n", s.Duration.Round(time.Millisecond).Seconds())
}

// ShouldFail reports whether any entry reached level. A level of zero or
// less never fails.
func ShouldFail(t *task.Task, level int) bool {
	if level <= 0 {
		return false
	}
	for _, e := range t.Entries {
		if e.WarningLevel >= level {
			return true
		}
	}
	return false
}
