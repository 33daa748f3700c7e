package engine

import (
	"github.com/shellhound/shellhound/internal/match"
	"github.com/shellhound/shellhound/internal/rules"
	"github.com/shellhound/shellhound/internal/task"
)

// quickScan returns the verdict of the first rule that proves the file
// dangerous: fingerprints first, in rule order, then patterns. Rules whose
// severity clamps to zero cannot prove anything and are skipped.
func quickScan(set *rules.Set, data []byte) task.Verdict {
	for _, fp := range set.Fingerprints() {
		sev := fp.Contribution()
		if sev == 0 {
			continue
		}
		if match.FirstFingerprint(data, fp) {
			return task.Verdict{FingerprintMatches: 1, FingerprintScore: sev}
		}
	}
	pats := set.Patterns()
	if len(pats) == 0 {
		return task.Verdict{}
	}
	text := match.Text(data)
	for _, p := range pats {
		sev := p.Contribution()
		if sev == 0 || p.Regexp == nil {
			continue
		}
		if n := match.CountCompiled(p.Regexp, text); n > 0 {
			return task.Verdict{PatternMatches: n, PatternScore: n * sev}
		}
	}
	return task.Verdict{}
}

// completeScan sums every occurrence of every rule.
func completeScan(set *rules.Set, idx *match.FingerprintIndex, data []byte) task.Verdict {
	var v task.Verdict
	counts := idx.Count(data)
	for i, fp := range set.Fingerprints() {
		v.FingerprintMatches += counts[i]
		v.FingerprintScore += counts[i] * fp.Contribution()
	}
	pats := set.Patterns()
	if len(pats) == 0 {
		return v
	}
	text := match.Text(data)
	for _, p := range pats {
		n := match.CountCompiled(p.Regexp, text)
		v.PatternMatches += n
		v.PatternScore += n * p.Contribution()
	}
	return v
}
