package reconcile

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/MLeehwa/lhswms/internal/barcode"
	"github.com/MLeehwa/lhswms/internal/models"
)

// Outcome classifies the result of a single scan submission.
type Outcome string

const (
	OutcomeMatched          Outcome = "matched"
	OutcomeUnmatched        Outcome = "unmatched"
	OutcomeSkippedEmpty     Outcome = "skipped_empty"
	OutcomeSkippedPrefix    Outcome = "skipped_prefix"
	OutcomeSkippedDuplicate Outcome = "skipped_duplicate"
)

// Options parameterizes one reconciliation session. A single explicit options
// structure replaces per-deployment hand-forked rule variants.
type Options struct {
	Prefixes            []string `json:"prefixes"`
	CodeLength          int      `json:"code_length"`
	SimilarityThreshold float64  `json:"similarity_threshold"`
	TopN                int      `json:"top_n"`
}

// Rows is the slice of the row store a session needs.
type Rows interface {
	ListExpected(ctx context.Context) ([]models.OCRResult, error)
	UpsertScan(ctx context.Context, row models.Scan) error
	UpsertScanItems(ctx context.Context, rows []models.ScanItem) error
	UpsertExpected(ctx context.Context, row models.OCRResult) error
	DeleteExpected(ctx context.Context, text string) error
}

// Session owns the in-memory partition view for one working session (one
// manifest epoch). The row store owns durable truth; session state is
// optimistic and may briefly diverge from it on persistence failure, with the
// divergence tracked in the pending queue.
type Session struct {
	ID   string
	opts Options
	rows Rows

	mu          sync.Mutex
	expected    []string // normalized, prefix-filtered, insertion order
	expectedSet map[string]bool
	matched     []string
	unmatched   []string
	seen        map[string]bool // write-once per session; sole duplicate guard
	pending     *pendingQueue
}

// NewSession creates a session with its own state; no ambient module-level
// caches are involved, so independent sessions can coexist and tear down
// cleanly.
func NewSession(id string, rows Rows, opts Options) *Session {
	return &Session{
		ID:          id,
		opts:        opts,
		rows:        rows,
		expectedSet: make(map[string]bool),
		seen:        make(map[string]bool),
		pending:     newPendingQueue(),
	}
}

// Options returns the session configuration.
func (s *Session) Options() Options { return s.opts }

// LoadExpected fetches the full expected set from the row store, normalizes
// and prefix-filters it, and replaces the in-memory expected list. Idempotent
// and safe to call repeatedly; never mutates seen.
func (s *Session) LoadExpected(ctx context.Context) error {
	rows, err := s.rows.ListExpected(ctx)
	if err != nil {
		return fmt.Errorf("load expected set: %w", err)
	}

	expected := make([]string, 0, len(rows))
	set := make(map[string]bool, len(rows))
	for _, r := range rows {
		code := barcode.Normalize(r.Text)
		if code == "" || !s.allowedPrefix(code) || set[code] {
			continue
		}
		set[code] = true
		expected = append(expected, code)
	}

	s.mu.Lock()
	s.expected = expected
	s.expectedSet = set
	// Matched/unmatched are a function of (expected, seen); reclassify so a
	// refreshed manifest moves codes between partitions instead of letting
	// scan-time judgments go stale.
	s.reclassifyLocked()
	s.mu.Unlock()
	return nil
}

// AddScan processes one scan event: normalize, prefix-filter, suppress
// duplicates, classify against the expected cache, then persist the event.
// Persistence failure is reported but never rolls back the in-memory
// classification; the write is queued for the background flush instead.
func (s *Session) AddScan(ctx context.Context, raw string) (Outcome, error) {
	code := barcode.Normalize(raw)
	if code == "" {
		return OutcomeSkippedEmpty, nil
	}
	if !s.allowedPrefix(code) {
		return OutcomeSkippedPrefix, nil
	}

	s.mu.Lock()
	if s.seen[code] {
		s.mu.Unlock()
		return OutcomeSkippedDuplicate, nil
	}
	s.seen[code] = true

	outcome := OutcomeUnmatched
	if s.expectedSet[code] {
		outcome = OutcomeMatched
		s.matched = append(s.matched, code)
	} else {
		s.unmatched = append(s.unmatched, code)
	}
	s.mu.Unlock()

	row := models.Scan{Prefixes: s.prefixTag(), Text: code}
	if err := s.rows.UpsertScan(ctx, row); err != nil {
		s.pending.add("scan "+code, func(ctx context.Context) error {
			return s.rows.UpsertScan(ctx, row)
		})
		return outcome, fmt.Errorf("scan recorded locally, persist failed: %w", err)
	}
	return outcome, nil
}

// Missing derives Expected \ seen. Recomputed on demand, never stored.
func (s *Session) Missing() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.missingLocked()
}

func (s *Session) missingLocked() []string {
	out := make([]string, 0, len(s.expected))
	for _, code := range s.expected {
		if !s.seen[code] {
			out = append(out, code)
		}
	}
	return out
}

// View is the ordered presentation of the three partitions: unmatched first
// (possible data-entry errors), then missing (still need scanning), matched
// last. Unsynced lists writes awaiting a successful flush.
type View struct {
	SessionID string   `json:"session_id"`
	Unmatched []string `json:"unmatched"`
	Missing   []string `json:"missing"`
	Matched   []string `json:"matched"`
	Unsynced  []string `json:"unsynced,omitempty"`
}

// View snapshots the current partition state.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return View{
		SessionID: s.ID,
		Unmatched: append([]string(nil), s.unmatched...),
		Missing:   s.missingLocked(),
		Matched:   append([]string(nil), s.matched...),
		Unsynced:  s.pending.labels(),
	}
}

// Clear empties the in-memory partitions and the seen cache. Durable storage
// is untouched; destructive deletes are a separate, explicit call.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matched = nil
	s.unmatched = nil
	s.seen = make(map[string]bool)
}

// UploadBatch commits all currently-known scans as scan_items rows, each
// tagged with its matched status as of right now (recomputed against the
// current expected set, not the scan-time judgment).
func (s *Session) UploadBatch(ctx context.Context) error {
	s.mu.Lock()
	codes := make([]string, 0, len(s.matched)+len(s.unmatched))
	codes = append(codes, s.unmatched...)
	codes = append(codes, s.matched...)
	items := make([]models.ScanItem, 0, len(codes))
	dedup := make(map[string]bool, len(codes))
	for _, code := range codes {
		if dedup[code] {
			continue
		}
		dedup[code] = true
		items = append(items, models.ScanItem{
			SessionID: s.ID,
			Prefixes:  s.prefixTag(),
			Text:      code,
			Matched:   s.expectedSet[code],
		})
	}
	s.mu.Unlock()

	if err := s.rows.UpsertScanItems(ctx, items); err != nil {
		s.pending.add(fmt.Sprintf("batch of %d scans", len(items)), func(ctx context.Context) error {
			return s.rows.UpsertScanItems(ctx, items)
		})
		return fmt.Errorf("batch upload failed, queued for retry: %w", err)
	}
	return nil
}

// CandidateGroups holds ranked correction candidates for one unmatched code.
// Missing entries are actionable; Scanned entries (extended mode only) exist
// to rule out "this was already handled" confusion.
type CandidateGroups struct {
	Unmatched string      `json:"unmatched"`
	Missing   []Candidate `json:"missing"`
	Scanned   []Candidate `json:"scanned,omitempty"`
}

// Candidates computes, for every unmatched code, the top-N probable-misread
// candidates from the missing partition. In extended mode the whole expected
// list is considered, partitioned into still-missing and already-scanned
// groups. Advisory and read-only.
func (s *Session) Candidates(extended bool) []CandidateGroups {
	s.mu.Lock()
	unmatched := append([]string(nil), s.unmatched...)
	missing := s.missingLocked()
	var scanned []string
	if extended {
		for _, code := range s.expected {
			if s.seen[code] {
				scanned = append(scanned, code)
			}
		}
	}
	topN := s.opts.TopN
	s.mu.Unlock()

	out := make([]CandidateGroups, 0, len(unmatched))
	for _, code := range unmatched {
		g := CandidateGroups{
			Unmatched: code,
			Missing:   rankCandidates(code, missing, topN),
		}
		if extended {
			g.Scanned = rankCandidates(code, scanned, topN)
		}
		out = append(out, g)
	}
	return out
}

// Flush retries queued writes; returns the number still pending.
func (s *Session) Flush(ctx context.Context) int {
	return s.pending.flush(ctx)
}

// reclassifyLocked rebuilds matched/unmatched from (expected, seen),
// preserving scan order. Callers hold s.mu.
func (s *Session) reclassifyLocked() {
	order := make([]string, 0, len(s.matched)+len(s.unmatched))
	order = append(order, s.matched...)
	order = append(order, s.unmatched...)
	s.matched = nil
	s.unmatched = nil
	for _, code := range order {
		if s.expectedSet[code] {
			s.matched = append(s.matched, code)
		} else {
			s.unmatched = append(s.unmatched, code)
		}
	}
}

func (s *Session) allowedPrefix(code string) bool {
	if len(s.opts.Prefixes) == 0 {
		return true
	}
	for _, p := range s.opts.Prefixes {
		if strings.HasPrefix(code, strings.ToUpper(p)) {
			return true
		}
	}
	return false
}

func (s *Session) prefixTag() string {
	return strings.Join(s.opts.Prefixes, ",")
}
