package reconcile

import (
	"math"
	"testing"
)

func TestScoreHammingRule(t *testing.T) {
	// Last digit differs, which also breaks the suffix anchor; the
	// equal-length Hamming rule must still catch it.
	a, b := "2M000000000123", "2M000000000124"

	m, ok := Score(a, b)
	if !ok {
		t.Fatalf("Score(%s, %s) did not qualify", a, b)
	}
	if m.Rule != "hamming" {
		t.Errorf("rule = %s, want hamming", m.Rule)
	}
	if m.Distance != 1 {
		t.Errorf("distance = %d, want 1", m.Distance)
	}
	want := 1 - 1.0/14.0
	if math.Abs(m.Similarity-want) > 1e-9 {
		t.Errorf("similarity = %v, want %v", m.Similarity, want)
	}
	if m.Similarity < ProposalThreshold {
		t.Errorf("similarity %v below proposal threshold", m.Similarity)
	}
}

func TestScoreSuffixAnchor(t *testing.T) {
	// Tail is byte-identical; two head digits misread.
	a, b := "2M120000000456", "2M340000000456"

	m, ok := Score(a, b)
	if !ok {
		t.Fatalf("Score(%s, %s) did not qualify", a, b)
	}
	if m.Rule != "suffix-anchor" {
		t.Errorf("rule = %s, want suffix-anchor", m.Rule)
	}
	if m.Distance != 2 {
		t.Errorf("distance = %d, want 2", m.Distance)
	}
}

func TestScoreAlignmentFallback(t *testing.T) {
	// OCR dropped the final digit, which breaks the suffix anchors; the
	// shorter run still aligns into the longer with every char matching.
	a, b := "2M000000000123", "2M00000000012"

	m, ok := Score(a, b)
	if !ok {
		t.Fatalf("Score(%s, %s) did not qualify", a, b)
	}
	if m.Rule != "alignment" {
		t.Errorf("rule = %s, want alignment", m.Rule)
	}
	if m.Similarity < alignmentFloor {
		t.Errorf("similarity = %v, want >= %v", m.Similarity, alignmentFloor)
	}
}

func TestScoreSymmetric(t *testing.T) {
	pairs := [][2]string{
		{"2M000000000123", "2M000000000124"},
		{"2M120000000456", "2M340000000456"},
		{"2M000000000123", "2M00000000012"},
		{"2M999999999999", "2M000000000000"},
	}

	for _, p := range pairs {
		ma, oka := Score(p[0], p[1])
		mb, okb := Score(p[1], p[0])
		if oka != okb {
			t.Errorf("Score(%s, %s) qualify mismatch: %v vs %v", p[0], p[1], oka, okb)
			continue
		}
		if oka && math.Abs(ma.Similarity-mb.Similarity) > 1e-9 {
			t.Errorf("Score(%s, %s) asymmetric: %v vs %v", p[0], p[1], ma.Similarity, mb.Similarity)
		}
	}
}

func TestScoreRejects(t *testing.T) {
	testCases := [][2]string{
		{"2M000000000001", "2M000000000001"}, // identical is equality, not similarity
		{"2M000000000001", ""},
		{"2M111111111111", "2M999999999999"}, // too many differences
		{"2M000000000001", "XYZNODIGITS"},    // no numeric suffix on one side
	}

	for _, tc := range testCases {
		if m, ok := Score(tc[0], tc[1]); ok {
			t.Errorf("Score(%q, %q) unexpectedly qualified: %+v", tc[0], tc[1], m)
		}
	}
}

func TestRankCandidates(t *testing.T) {
	pool := []string{
		"2M000000000124", // distance 1
		"2M000000000453", // distance 2
		"2M999999999999", // no match
	}

	got := rankCandidates("2M000000000123", pool, 5)
	if len(got) != 2 {
		t.Fatalf("got %d candidates, want 2: %+v", len(got), got)
	}
	if got[0].Code != "2M000000000124" {
		t.Errorf("top candidate = %s, want 2M000000000124", got[0].Code)
	}
	if got[0].Match.Similarity <= got[1].Match.Similarity {
		t.Errorf("candidates not sorted by descending similarity")
	}

	if got := rankCandidates("2M000000000123", pool, 1); len(got) != 1 {
		t.Errorf("top-N limit not applied: %+v", got)
	}
}

func TestNormalizeToLength(t *testing.T) {
	if got := normalizeToLength("2M0000000000019", 14); got != "2M000000000001" {
		t.Errorf("over-length: got %q", got)
	}
	if got := normalizeToLength("2M0001", 14); got != "2M0001" {
		t.Errorf("short value should be kept: got %q", got)
	}
	if got := normalizeToLength("2m0000000000019", 14); got != "2M000000000001" {
		t.Errorf("over-length value should be uppercased too: got %q", got)
	}
}
