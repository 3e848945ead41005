package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/MLeehwa/lhswms/internal/models"
)

// fakeRows is an in-memory Rows implementation with injectable failures.
type fakeRows struct {
	mu       sync.Mutex
	expected []models.OCRResult
	scans    []models.Scan
	items    []models.ScanItem
	deleted  []string
	upserted []models.OCRResult

	failScans bool
	failItems bool
	scanCalls int
}

func (f *fakeRows) ListExpected(ctx context.Context) ([]models.OCRResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.OCRResult(nil), f.expected...), nil
}

func (f *fakeRows) UpsertScan(ctx context.Context, row models.Scan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scanCalls++
	if f.failScans {
		return errors.New("network down")
	}
	f.scans = append(f.scans, row)
	return nil
}

func (f *fakeRows) UpsertScanItems(ctx context.Context, rows []models.ScanItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failItems {
		return errors.New("network down")
	}
	f.items = append(f.items, rows...)
	return nil
}

func (f *fakeRows) UpsertExpected(ctx context.Context, row models.OCRResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserted = append(f.upserted, row)
	return nil
}

func (f *fakeRows) DeleteExpected(ctx context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, text)
	return nil
}

func expectedRows(texts ...string) []models.OCRResult {
	rows := make([]models.OCRResult, 0, len(texts))
	for _, t := range texts {
		rows = append(rows, models.OCRResult{Text: t})
	}
	return rows
}

func testOptions() Options {
	return Options{
		Prefixes:            []string{"2M"},
		CodeLength:          14,
		SimilarityThreshold: ProposalThreshold,
		TopN:                5,
	}
}

func newTestSession(t *testing.T, rows *fakeRows) *Session {
	t.Helper()
	sess := NewSession("test-session", rows, testOptions())
	if err := sess.LoadExpected(context.Background()); err != nil {
		t.Fatalf("LoadExpected failed: %v", err)
	}
	return sess
}

func TestSessionClassification(t *testing.T) {
	rows := &fakeRows{expected: expectedRows("2M000000000001", "2M000000000002")}
	sess := newTestSession(t, rows)
	ctx := context.Background()

	// Scan one expected code (with scanner whitespace) and one stranger.
	if out, err := sess.AddScan(ctx, "2m 000000000001"); err != nil || out != OutcomeMatched {
		t.Fatalf("first scan: outcome=%v err=%v", out, err)
	}
	if out, err := sess.AddScan(ctx, "2M000000000003"); err != nil || out != OutcomeUnmatched {
		t.Fatalf("second scan: outcome=%v err=%v", out, err)
	}

	v := sess.View()
	if len(v.Matched) != 1 || v.Matched[0] != "2M000000000001" {
		t.Errorf("matched = %v", v.Matched)
	}
	if len(v.Missing) != 1 || v.Missing[0] != "2M000000000002" {
		t.Errorf("missing = %v", v.Missing)
	}
	if len(v.Unmatched) != 1 || v.Unmatched[0] != "2M000000000003" {
		t.Errorf("unmatched = %v", v.Unmatched)
	}
}

func TestSessionSkips(t *testing.T) {
	rows := &fakeRows{expected: expectedRows("2M000000000001")}
	sess := newTestSession(t, rows)
	ctx := context.Background()

	testCases := []struct {
		raw  string
		want Outcome
	}{
		{"", OutcomeSkippedEmpty},
		{"   ", OutcomeSkippedEmpty},
		{"XX000000000001", OutcomeSkippedPrefix},
	}
	for _, tc := range testCases {
		out, err := sess.AddScan(ctx, tc.raw)
		if err != nil {
			t.Errorf("AddScan(%q) error: %v", tc.raw, err)
		}
		if out != tc.want {
			t.Errorf("AddScan(%q) = %v, want %v", tc.raw, out, tc.want)
		}
	}

	// Skips must not touch the store.
	if rows.scanCalls != 0 {
		t.Errorf("skipped scans hit the store %d times", rows.scanCalls)
	}
}

func TestSessionDuplicateSuppression(t *testing.T) {
	rows := &fakeRows{expected: expectedRows("2M000000000001")}
	sess := newTestSession(t, rows)
	ctx := context.Background()

	if out, _ := sess.AddScan(ctx, "2M000000000001"); out != OutcomeMatched {
		t.Fatalf("first scan = %v", out)
	}
	// Same code with incidental whitespace.
	out, err := sess.AddScan(ctx, " 2m 0000 0000 0001 ")
	if err != nil {
		t.Fatalf("duplicate scan error: %v", err)
	}
	if out != OutcomeSkippedDuplicate {
		t.Errorf("duplicate scan = %v, want %v", out, OutcomeSkippedDuplicate)
	}

	v := sess.View()
	if got := len(v.Matched) + len(v.Unmatched); got != 1 {
		t.Errorf("partitions hold %d entries, want exactly 1", got)
	}
	if rows.scanCalls != 1 {
		t.Errorf("store called %d times, want 1", rows.scanCalls)
	}
}

func TestSessionMissingInvariant(t *testing.T) {
	rows := &fakeRows{expected: expectedRows("2M000000000001", "2M000000000002", "2M000000000003")}
	sess := newTestSession(t, rows)
	ctx := context.Background()

	scans := []string{"2M000000000002", "2M000000000009", "2M000000000002", "2M000000000001"}
	for _, s := range scans {
		sess.AddScan(ctx, s)
	}

	// missing == expected \ seen, recomputed each time.
	want := map[string]bool{"2M000000000003": true}
	got := sess.Missing()
	if len(got) != len(want) {
		t.Fatalf("missing = %v, want keys %v", got, want)
	}
	for _, code := range got {
		if !want[code] {
			t.Errorf("unexpected missing entry %s", code)
		}
	}
}

func TestSessionLoadExpectedPreservesSeen(t *testing.T) {
	rows := &fakeRows{expected: expectedRows("2M000000000001")}
	sess := newTestSession(t, rows)
	ctx := context.Background()

	sess.AddScan(ctx, "2M000000000009")

	// New manifest epoch includes the previously-unmatched code; the scan
	// must move into matched without being re-scanned.
	rows.mu.Lock()
	rows.expected = expectedRows("2M000000000009")
	rows.mu.Unlock()
	if err := sess.LoadExpected(ctx); err != nil {
		t.Fatalf("LoadExpected failed: %v", err)
	}

	v := sess.View()
	if len(v.Matched) != 1 || v.Matched[0] != "2M000000000009" {
		t.Errorf("matched = %v after refresh", v.Matched)
	}
	if len(v.Unmatched) != 0 {
		t.Errorf("unmatched = %v after refresh", v.Unmatched)
	}
	if out, _ := sess.AddScan(ctx, "2M000000000009"); out != OutcomeSkippedDuplicate {
		t.Errorf("seen cache lost across refresh: %v", out)
	}
}

func TestSessionPersistFailureIsOptimistic(t *testing.T) {
	rows := &fakeRows{expected: expectedRows("2M000000000001"), failScans: true}
	sess := newTestSession(t, rows)
	ctx := context.Background()

	out, err := sess.AddScan(ctx, "2M000000000001")
	if out != OutcomeMatched {
		t.Fatalf("outcome = %v, want matched despite persist failure", out)
	}
	if err == nil {
		t.Fatal("persist failure was not reported")
	}

	v := sess.View()
	if len(v.Matched) != 1 {
		t.Errorf("in-memory state rolled back: %v", v)
	}
	if len(v.Unsynced) != 1 {
		t.Errorf("unsynced = %v, want one pending write", v.Unsynced)
	}

	// The store recovers; the pending queue is not due yet, so nothing
	// lands on an early flush, but state remains queued.
	rows.mu.Lock()
	rows.failScans = false
	rows.mu.Unlock()
	if remaining := sess.Flush(ctx); remaining != 1 {
		t.Errorf("flush before backoff elapsed: remaining = %d, want 1", remaining)
	}
}

func TestSessionUploadBatch(t *testing.T) {
	rows := &fakeRows{expected: expectedRows("2M000000000001")}
	sess := newTestSession(t, rows)
	ctx := context.Background()

	sess.AddScan(ctx, "2M000000000001")
	sess.AddScan(ctx, "2M000000000002")
	if err := sess.UploadBatch(ctx); err != nil {
		t.Fatalf("UploadBatch failed: %v", err)
	}

	if len(rows.items) != 2 {
		t.Fatalf("uploaded %d items, want 2", len(rows.items))
	}
	byText := map[string]bool{}
	for _, it := range rows.items {
		byText[it.Text] = it.Matched
		if it.SessionID != sess.ID {
			t.Errorf("item %s has session %s", it.Text, it.SessionID)
		}
	}
	if !byText["2M000000000001"] {
		t.Errorf("expected code not tagged matched")
	}
	if byText["2M000000000002"] {
		t.Errorf("stranger code tagged matched")
	}
}

func TestSessionClear(t *testing.T) {
	rows := &fakeRows{expected: expectedRows("2M000000000001")}
	sess := newTestSession(t, rows)
	ctx := context.Background()

	sess.AddScan(ctx, "2M000000000001")
	sess.Clear()

	v := sess.View()
	if len(v.Matched)+len(v.Unmatched) != 0 {
		t.Errorf("partitions not cleared: %v", v)
	}
	if len(v.Missing) != 1 {
		t.Errorf("expected set should survive Clear: %v", v.Missing)
	}
	if out, _ := sess.AddScan(ctx, "2M000000000001"); out != OutcomeMatched {
		t.Errorf("seen cache not cleared: %v", out)
	}
}

func TestSessionCandidates(t *testing.T) {
	rows := &fakeRows{expected: expectedRows("2M000000000123", "2M000000000777")}
	sess := newTestSession(t, rows)
	ctx := context.Background()

	sess.AddScan(ctx, "2M000000000777") // matched
	sess.AddScan(ctx, "2M000000000124") // unmatched, near-miss of ...123

	groups := sess.Candidates(false)
	if len(groups) != 1 {
		t.Fatalf("got %d groups, want 1", len(groups))
	}
	g := groups[0]
	if g.Unmatched != "2M000000000124" {
		t.Errorf("group for %s", g.Unmatched)
	}
	if len(g.Missing) != 1 || g.Missing[0].Code != "2M000000000123" {
		t.Errorf("missing candidates = %+v", g.Missing)
	}
	if len(g.Scanned) != 0 {
		t.Errorf("scanned group present without extended mode")
	}

	ext := sess.Candidates(true)
	if len(ext) != 1 {
		t.Fatalf("extended: got %d groups", len(ext))
	}
	// ...777 vs ...124 shares no rule, so the scanned group stays empty,
	// but the partition split must still be offered.
	if ext[0].Missing == nil {
		t.Errorf("extended mode dropped missing candidates")
	}
}

func TestSessionApplyCorrection(t *testing.T) {
	rows := &fakeRows{expected: expectedRows("2M000000000123")}
	sess := newTestSession(t, rows)
	ctx := context.Background()

	sess.AddScan(ctx, "2M000000000124")
	if err := sess.ApplyCorrection(ctx, "2M000000000123", "2M000000000124"); err != nil {
		t.Fatalf("ApplyCorrection failed: %v", err)
	}

	if len(rows.deleted) != 1 || rows.deleted[0] != "2M000000000123" {
		t.Errorf("deleted = %v", rows.deleted)
	}
	if len(rows.upserted) != 1 || rows.upserted[0].Text != "2M000000000124" {
		t.Errorf("upserted = %+v", rows.upserted)
	}
	if len(rows.items) != 1 || !rows.items[0].Matched {
		t.Errorf("scan item not marked matched: %+v", rows.items)
	}

	v := sess.View()
	if len(v.Matched) != 1 || v.Matched[0] != "2M000000000124" {
		t.Errorf("matched = %v", v.Matched)
	}
	if len(v.Unmatched) != 0 {
		t.Errorf("unmatched = %v", v.Unmatched)
	}
	if len(v.Missing) != 0 {
		t.Errorf("missing = %v", v.Missing)
	}
}

func TestSessionApplyCorrectionRejects(t *testing.T) {
	rows := &fakeRows{expected: expectedRows("2M000000000123")}
	sess := newTestSession(t, rows)
	ctx := context.Background()

	sess.AddScan(ctx, "2M999999999999")

	// Codes that are nothing alike must not merge.
	err := sess.ApplyCorrection(ctx, "2M000000000123", "2M999999999999")
	if !errors.Is(err, ErrBelowThreshold) {
		t.Errorf("err = %v, want ErrBelowThreshold", err)
	}

	// Wrong partitions.
	if err := sess.ApplyCorrection(ctx, "2M999999999999", "2M000000000123"); !errors.Is(err, ErrNotMissing) {
		t.Errorf("err = %v, want ErrNotMissing", err)
	}
}
