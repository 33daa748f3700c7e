package engine

import (
	"crypto/sha256"
	"sync"

	xxhash "github.com/cespare/xxhash/v2"

	"github.com/shellhound/shellhound/internal/task"
)

// memo remembers the verdict for file contents already seen in this run so
// that copies of the same file are matched once. It lives only as long as
// one Scan call.
//
// Entries are bucketed by xxhash and size; a hit also needs an equal SHA-256,
// so two different contents never share a verdict.
type memo struct {
	mu      sync.Mutex
	entries map[memoKey][]memoEntry
	n       int
}

type memoKey struct {
	sum  uint64
	size int
}

type memoEntry struct {
	digest  [sha256.Size]byte
	verdict task.Verdict
}

// newMemo returns nil when disabled; a nil memo never hits.
func newMemo(enabled bool) *memo {
	if !enabled {
		return nil
	}
	return &memo{entries: map[memoKey][]memoEntry{}}
}

func keyOf(b []byte) memoKey {
	return memoKey{sum: xxhash.Sum64(b), size: len(b)}
}

// lookup returns the key for b and any verdict already stored for the same
// content.
func (m *memo) lookup(b []byte) (memoKey, task.Verdict, bool) {
	if m == nil {
		return memoKey{}, task.Verdict{}, false
	}
	k := keyOf(b)
	m.mu.Lock()
	bucket := m.entries[k]
	m.mu.Unlock()
	if len(bucket) == 0 {
		return k, task.Verdict{}, false
	}
	d := sha256.Sum256(b)
	for _, e := range bucket {
		if e.digest == d {
			return k, e.verdict, true
		}
	}
	return k, task.Verdict{}, false
}

// store records v for b under k, the key lookup returned for b.
func (m *memo) store(k memoKey, b []byte, v task.Verdict) {
	if m == nil {
		return
	}
	d := sha256.Sum256(b)
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries[k] {
		if e.digest == d {
			return
		}
	}
	m.entries[k] = append(m.entries[k], memoEntry{digest: d, verdict: v})
	m.n++
}

func (m *memo) len() int {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.n
}
