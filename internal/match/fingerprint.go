// Package match implements the two stateless matchers used by the scan
// strategies: sliding-window MD5 fingerprints and regular-expression patterns.
package match

import (
	"crypto/md5"
	"encoding/hex"
	"sort"

	"github.com/shellhound/shellhound/internal/rules"
)

// Digest returns the MD5 of b rendered as lowercase hex.
func Digest(b []byte) string {
	sum := md5.Sum(b)
	return hex.EncodeToString(sum[:])
}

func decodeDigest(s string) ([md5.Size]byte, bool) {
	var out [md5.Size]byte
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != md5.Size {
		return out, false
	}
	copy(out[:], raw)
	return out, true
}

// Fingerprint counts the offsets i, with i+rule.Length <= len(buf), whose
// rule.Length-byte window hashes to rule.Digest. Buffers shorter than the
// window contribute nothing.
func Fingerprint(buf []byte, rule rules.FingerprintRule) int {
	want, ok := decodeDigest(rule.Digest)
	n := int(rule.Length)
	if !ok || n == 0 || len(buf) < n {
		return 0
	}
	count := 0
	for i := 0; i+n <= len(buf); i++ {
		if md5.Sum(buf[i:i+n]) == want {
			count++
		}
	}
	return count
}

// FirstFingerprint reports whether any window of buf matches rule, stopping
// at the first one.
func FirstFingerprint(buf []byte, rule rules.FingerprintRule) bool {
	want, ok := decodeDigest(rule.Digest)
	n := int(rule.Length)
	if !ok || n == 0 || len(buf) < n {
		return false
	}
	for i := 0; i+n <= len(buf); i++ {
		if md5.Sum(buf[i:i+n]) == want {
			return true
		}
	}
	return false
}

// FingerprintIndex groups rules by window length so that every
// (offset, length) window of a buffer is hashed once no matter how many
// rules share that length.
type FingerprintIndex struct {
	size    int
	lengths []int
	byLen   map[int]map[[md5.Size]byte][]int
}

// NewFingerprintIndex indexes fps. Rules with an undecodable digest or a zero
// length are left out and always count zero.
func NewFingerprintIndex(fps []rules.FingerprintRule) *FingerprintIndex {
	x := &FingerprintIndex{size: len(fps), byLen: map[int]map[[md5.Size]byte][]int{}}
	for i, fp := range fps {
		d, ok := decodeDigest(fp.Digest)
		n := int(fp.Length)
		if !ok || n == 0 {
			continue
		}
		m, seen := x.byLen[n]
		if !seen {
			m = map[[md5.Size]byte][]int{}
			x.byLen[n] = m
			x.lengths = append(x.lengths, n)
		}
		m[d] = append(m[d], i)
	}
	sort.Ints(x.lengths)
	return x
}

// Count returns per-rule occurrence counts, indexed like the rule slice the
// index was built from.
func (x *FingerprintIndex) Count(buf []byte) []int {
	counts := make([]int, x.size)
	for _, n := range x.lengths {
		if len(buf) < n {
			// lengths are ascending
			break
		}
		m := x.byLen[n]
		for i := 0; i+n <= len(buf); i++ {
			if ids, ok := m[md5.Sum(buf[i:i+n])]; ok {
				for _, id := range ids {
					counts[id]++
				}
			}
		}
	}
	return counts
}
