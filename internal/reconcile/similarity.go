package reconcile

import (
	"sort"
	"strings"
)

// ProposalThreshold is the minimum similarity at which a correction is
// actually proposed to the operator.
const ProposalThreshold = 0.7

// alignmentFloor is the minimum per-character match ratio for the
// substring-alignment fallback.
const alignmentFloor = 0.85

// Match explains why two codes are considered probable OCR variants of the
// same physical item. This relation is advisory, never transitive, and must
// not be treated as equality.
type Match struct {
	Similarity float64 `json:"similarity"`
	Rule       string  `json:"rule"`
	Distance   int     `json:"distance"`
}

// Score rates two normalized codes for "probably the same item, OCR misread
// it". Rules are tried in priority order; the first qualifying rule wins.
// Returns false when no rule qualifies.
func Score(a, b string) (Match, bool) {
	if a == "" || b == "" || a == b {
		return Match{}, false
	}

	na := stripAlphaPrefix(a)
	nb := stripAlphaPrefix(b)
	if na == "" || nb == "" {
		return Match{}, false
	}
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}

	// Rule 1: suffix-anchored. Item serials diverge at the front far more
	// often than at the tail, so a byte-identical tail is a strong anchor.
	// A 4-digit anchor tolerates two head differences, a 3-digit anchor
	// only one.
	for _, anchor := range []struct {
		size    int
		maxDiff int
	}{{4, 2}, {3, 1}} {
		if len(na) <= anchor.size || len(nb) <= anchor.size {
			continue
		}
		if na[len(na)-anchor.size:] != nb[len(nb)-anchor.size:] {
			continue
		}
		ha, hb := na[:len(na)-anchor.size], nb[:len(nb)-anchor.size]
		diff := headDistance(ha, hb)
		if diff <= anchor.maxDiff {
			return Match{
				Similarity: 1 - float64(diff)/float64(maxLen),
				Rule:       "suffix-anchor",
				Distance:   diff,
			}, true
		}
	}

	// Rule 2: plain Hamming over equal-length codes.
	if len(a) == len(b) {
		d := hamming(a, b)
		if d <= 2 {
			return Match{
				Similarity: 1 - float64(d)/float64(len(a)),
				Rule:       "hamming",
				Distance:   d,
			}, true
		}
		return Match{}, false
	}

	// Rule 3: lengths differ; OCR dropped or added digits. Slide the shorter
	// numeric run over the longer and take the best alignment.
	short, long := na, nb
	if len(short) > len(long) {
		short, long = long, short
	}
	best := 0
	for off := 0; off+len(short) <= len(long); off++ {
		matches := 0
		for i := 0; i < len(short); i++ {
			if short[i] == long[off+i] {
				matches++
			}
		}
		if matches > best {
			best = matches
		}
	}
	ratio := float64(best) / float64(len(short))
	if ratio >= alignmentFloor {
		return Match{
			Similarity: ratio,
			Rule:       "alignment",
			Distance:   len(short) - best,
		}, true
	}

	return Match{}, false
}

// stripAlphaPrefix drops the leading letter run, leaving the numeric suffix.
func stripAlphaPrefix(code string) string {
	i := 0
	for i < len(code) && code[i] >= 'A' && code[i] <= 'Z' {
		i++
	}
	return code[i:]
}

// headDistance is a Hamming-style count over the shorter of the two heads.
// Extra leading characters on the longer head also count as differences.
func headDistance(a, b string) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	// Align from the right: the tail side sits next to the anchor.
	shift := len(b) - len(a)
	diff := shift
	for i := 0; i < len(a); i++ {
		if a[i] != b[shift+i] {
			diff++
		}
	}
	return diff
}

func hamming(a, b string) int {
	d := 0
	for i := 0; i < len(a); i++ {
		if a[i] != b[i] {
			d++
		}
	}
	return d
}

// Candidate pairs a pool entry with its match explanation.
type Candidate struct {
	Code  string `json:"code"`
	Match Match  `json:"match"`
}

// rankCandidates scores code against every entry in pool and returns the
// top-n qualifying candidates by descending similarity.
func rankCandidates(code string, pool []string, n int) []Candidate {
	var out []Candidate
	for _, p := range pool {
		if m, ok := Score(code, p); ok {
			out = append(out, Candidate{Code: p, Match: m})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Match.Similarity > out[j].Match.Similarity
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// normalizeToLength front-truncates an over-length code to the target length
// so a still-malformed value is never institutionalized as expected truth.
// Shorter values are kept as-is.
func normalizeToLength(code string, length int) string {
	code = strings.ToUpper(code)
	if length > 0 && len(code) > length {
		return code[:length]
	}
	return code
}
