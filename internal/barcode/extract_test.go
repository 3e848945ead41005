package barcode

import (
	"testing"

	"github.com/MLeehwa/lhswms/internal/recognize"
)

func mustExtractor(t *testing.T) *Extractor {
	t.Helper()
	e, err := NewExtractor([]string{"2M"}, 14)
	if err != nil {
		t.Fatalf("NewExtractor failed: %v", err)
	}
	return e
}

func TestExtractFromLines(t *testing.T) {
	e := mustExtractor(t)

	page := recognize.Result{
		Lines: []recognize.Line{
			{Text: "PALLET MANIFEST", Confidence: 96},
			{Text: "2M000000000001", Confidence: 91},
			{Text: "qty 4  2m 0000 0000 0002", Confidence: 80},
		},
	}

	got := e.Extract(page)
	want := []string{"2M000000000001", "2M000000000002"}
	if len(got) != len(want) {
		t.Fatalf("got %d candidates, want %d: %v", len(got), len(want), got)
	}
	for i, w := range want {
		if got[i].Text != w {
			t.Errorf("candidate %d = %q, want %q", i, got[i].Text, w)
		}
	}
	if got[0].Confidence != 91 {
		t.Errorf("confidence = %v, want 91", got[0].Confidence)
	}
}

func TestExtractExactLineRoundTrip(t *testing.T) {
	e := mustExtractor(t)

	page := recognize.Result{Lines: []recognize.Line{{Text: "2M000000000001"}}}
	got := e.Extract(page)
	if len(got) != 1 || got[0].Text != "2M000000000001" {
		t.Fatalf("round trip failed: %v", got)
	}
	if len(got[0].Text) != 14 {
		t.Errorf("length = %d, want 14", len(got[0].Text))
	}
}

func TestExtractTruncatesFromLeft(t *testing.T) {
	e := mustExtractor(t)

	// OCR appended a trailing garbage digit; the first 14 chars are kept.
	page := recognize.Result{Lines: []recognize.Line{{Text: "2M0000000000019"}}}
	got := e.Extract(page)
	if len(got) != 1 {
		t.Fatalf("got %d candidates, want 1", len(got))
	}
	if got[0].Text != "2M000000000001" {
		t.Errorf("got %q, want 2M000000000001", got[0].Text)
	}
}

func TestExtractRepairsMisreads(t *testing.T) {
	e := mustExtractor(t)

	page := recognize.Result{Lines: []recognize.Line{{Text: "2M00000000000B", Confidence: 40}}}
	got := e.Extract(page)
	if len(got) != 1 || got[0].Text != "2M000000000008" {
		t.Fatalf("misread not repaired: %v", got)
	}
}

func TestExtractGroupsWordsByRow(t *testing.T) {
	e := mustExtractor(t)

	page := recognize.Result{
		Words: []recognize.Word{
			{Text: "2M0000", Bounds: recognize.Region{X: 10, Y: 100}, Confidence: 88},
			{Text: "00000003", Bounds: recognize.Region{X: 80, Y: 102}, Confidence: 85},
			{Text: "unrelated", Bounds: recognize.Region{X: 10, Y: 160}, Confidence: 90},
		},
	}

	got := e.Extract(page)
	if len(got) != 1 || got[0].Text != "2M000000000003" {
		t.Fatalf("row grouping failed: %v", got)
	}
}

func TestExtractRollingWindow(t *testing.T) {
	e := mustExtractor(t)

	// Lines exist but the code is split across word tokens on rows that are
	// too far apart for grouping; only the rolling window can catch it.
	page := recognize.Result{
		Lines: []recognize.Line{{Text: "no codes here"}},
		Words: []recognize.Word{
			{Text: "2M000000", Bounds: recognize.Region{X: 0, Y: 0}},
			{Text: "000004", Bounds: recognize.Region{X: 0, Y: 50}},
		},
	}

	got := e.Extract(page)
	if len(got) != 1 || got[0].Text != "2M000000000004" {
		t.Fatalf("rolling window failed: %v", got)
	}
}

func TestExtractFallsBackToPlainText(t *testing.T) {
	e := mustExtractor(t)

	page := recognize.Result{PlainText: "header\n2M000000000005\nfooter"}
	got := e.Extract(page)
	if len(got) != 1 || got[0].Text != "2M000000000005" {
		t.Fatalf("plain text fallback failed: %v", got)
	}
}

func TestExtractDeduplicates(t *testing.T) {
	e := mustExtractor(t)

	page := recognize.Result{
		Lines: []recognize.Line{
			{Text: "2M000000000001"},
			{Text: "2m 0000 0000 0001"},
		},
	}
	got := e.Extract(page)
	if len(got) != 1 {
		t.Fatalf("got %d candidates, want 1: %v", len(got), got)
	}
}
