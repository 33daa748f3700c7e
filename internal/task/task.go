// Package task tracks one scan run: the entries of every candidate file, the
// run status, and counters derived from entry statuses.
//
// A Task is not safe for concurrent use. The engine partitions entries across
// workers and refreshes only after every worker has returned.
package task

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Status is the run-level state. Paused and Break are reserved and never
// entered by the current control flow.
type Status int

const (
	Running Status = iota
	Paused
	Break
	Completed
)

var statusNames = [...]string{"Running", "Paused", "Break", "Completed"}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("Status(%d)", int(s))
	}
	return statusNames[s]
}

func (s Status) MarshalText() ([]byte, error) { return []byte(strings.ToLower(s.String())), nil }

// Task owns every Entry of a run.
type Task struct {
	Root       string
	Extensions []string
	Entries    []Entry
	DirCount   int

	status      Status
	fileCount   int
	errorCount  int
	dangerCount int
	start       time.Time
	end         time.Time
	ended       bool
	duration    time.Duration

	now func() time.Time
	log logrus.FieldLogger
}

// Option configures a Task.
type Option func(*Task)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Task) { t.now = now }
}

// WithLogger sets the logger used for status lines.
func WithLogger(l logrus.FieldLogger) Option {
	return func(t *Task) { t.log = l }
}

// WithRoot records the scanned root and accepted extensions for reporting.
func WithRoot(root string, extensions []string) Option {
	return func(t *Task) {
		t.Root = root
		t.Extensions = extensions
	}
}

// New starts a Running task with one Unchecked entry per path.
func New(paths []string, opts ...Option) *Task {
	t := &Task{now: time.Now}
	for _, o := range opts {
		o(t)
	}
	if t.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		t.log = l
	}
	t.start = t.now()
	t.Entries = make([]Entry, 0, len(paths))
	for _, p := range paths {
		t.Entries = append(t.Entries, NewEntry(p))
	}
	t.Refresh()
	return t
}

// Refresh recomputes the file, error and danger counts from entry statuses and
// the duration from the start time to the end time (or now while running).
func (t *Task) Refresh() {
	t.fileCount = len(t.Entries)
	t.errorCount, t.dangerCount = 0, 0
	scanned := 0
	for i := range t.Entries {
		switch t.Entries[i].Status {
		case Error:
			t.errorCount++
		case Danger:
			t.dangerCount++
		}
		if t.Entries[i].Status != Unchecked {
			scanned++
		}
	}
	if t.ended {
		t.duration = t.end.Sub(t.start)
	} else {
		t.duration = t.now().Sub(t.start)
	}
	t.log.WithFields(logrus.Fields{
		"status":   t.status.String(),
		"scanned":  fmt.Sprintf("%d/%d", scanned, t.fileCount),
		"dangers":  t.dangerCount,
		"errors":   t.errorCount,
		"duration": t.duration.String(),
	}).Info("scan task status")
}

// Complete moves the task to Completed, freezing the end time. It is a no-op
// on a task that is already completed.
func (t *Task) Complete() {
	if t.status == Completed {
		return
	}
	t.end = t.now()
	t.ended = true
	t.status = Completed
	t.Refresh()
}

// Status returns the run-level state.
func (t *Task) Status() Status { return t.status }

// FileCount returns the number of entries as of the last Refresh.
func (t *Task) FileCount() int { return t.fileCount }

// ErrorCount returns the entries finalized as Error as of the last Refresh.
func (t *Task) ErrorCount() int { return t.errorCount }

// DangerCount returns the entries finalized as Danger as of the last Refresh.
func (t *Task) DangerCount() int { return t.dangerCount }

// Duration returns the elapsed time as of the last Refresh; it stops growing
// once the task completes.
func (t *Task) Duration() time.Duration { return t.duration }

// StartTime returns when the task was created.
func (t *Task) StartTime() time.Time { return t.start }

// EndTime returns the completion time; ok is false while the task runs.
func (t *Task) EndTime() (end time.Time, ok bool) { return t.end, t.ended }

// Dangers returns the entries that finalized as Danger, in entry order.
func (t *Task) Dangers() []Entry {
	var out []Entry
	for _, e := range t.Entries {
		if e.Status == Danger {
			out = append(out, e)
		}
	}
	return out
}

// Summary is a value snapshot of the run counters for reporting.
type Summary struct {
	Root     string        `json:"root"`
	Status   Status        `json:"status"`
	Files    int           `json:"files"`
	Dirs     int           `json:"dirs"`
	Scanned  int           `json:"scanned"`
	Normal   int           `json:"normal"`
	Dangers  int           `json:"dangers"`
	Errors   int           `json:"errors"`
	Started  time.Time     `json:"started"`
	Ended    *time.Time    `json:"ended,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// Summary reports the derived counters of the last Refresh together with
// normal and scanned counts read from the entries.
func (t *Task) Summary() Summary {
	s := Summary{
		Root:     t.Root,
		Status:   t.status,
		Files:    t.fileCount,
		Dirs:     t.DirCount,
		Dangers:  t.dangerCount,
		Errors:   t.errorCount,
		Started:  t.start,
		Duration: t.duration,
	}
	for _, e := range t.Entries {
		switch e.Status {
		case Normal:
			s.Normal++
			s.Scanned++
		case Danger, Error:
			s.Scanned++
		}
	}
	if t.ended {
		end := t.end
		s.Ended = &end
	}
	return s
}
