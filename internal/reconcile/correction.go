package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/MLeehwa/lhswms/internal/models"
)

// Correction errors surfaced to the operator.
var (
	ErrNotMissing     = errors.New("code is not in the missing partition")
	ErrNotUnmatched   = errors.New("code is not in the unmatched partition")
	ErrBelowThreshold = errors.New("similarity below correction threshold")
)

// ApplyCorrection merges a probable OCR misread: the scanned-but-unexpected
// code is treated as ground truth, replacing the expected-but-unscanned one.
// Durable effects: delete the old expected entry, upsert the corrected one,
// and mark the scan item matched. The store calls are independent round
// trips; a partial failure is reported as such, and the in-memory partitions
// are updated optimistically either way.
func (s *Session) ApplyCorrection(ctx context.Context, missingCode, unmatchedCode string) error {
	s.mu.Lock()
	if !s.expectedSet[missingCode] || s.seen[missingCode] {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotMissing, missingCode)
	}
	if !s.seen[unmatchedCode] || s.expectedSet[unmatchedCode] {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotUnmatched, unmatchedCode)
	}
	threshold := s.opts.SimilarityThreshold
	length := s.opts.CodeLength
	s.mu.Unlock()

	m, ok := Score(missingCode, unmatchedCode)
	if !ok || m.Similarity < threshold {
		return fmt.Errorf("%w: %s vs %s", ErrBelowThreshold, missingCode, unmatchedCode)
	}

	// The scanner value is ground truth, but a malformed length is fixed
	// before it becomes the new expected entry.
	truth := normalizeToLength(unmatchedCode, length)

	var failures []error
	if err := s.rows.DeleteExpected(ctx, missingCode); err != nil {
		failures = append(failures, err)
	}
	if err := s.rows.UpsertExpected(ctx, models.OCRResult{
		Name:     "correction",
		Prefixes: s.prefixTag(),
		Text:     truth,
	}); err != nil {
		failures = append(failures, err)
	}
	if err := s.rows.UpsertScanItems(ctx, []models.ScanItem{{
		SessionID: s.ID,
		Prefixes:  s.prefixTag(),
		Text:      truth,
		Matched:   true,
	}}); err != nil {
		failures = append(failures, err)
	}

	s.mu.Lock()
	delete(s.expectedSet, missingCode)
	for i, code := range s.expected {
		if code == missingCode {
			s.expected = append(s.expected[:i], s.expected[i+1:]...)
			break
		}
	}
	if !s.expectedSet[truth] {
		s.expectedSet[truth] = true
		s.expected = append(s.expected, truth)
	}
	s.seen[truth] = true
	if truth != unmatchedCode {
		for i, code := range s.unmatched {
			if code == unmatchedCode {
				s.unmatched[i] = truth
				break
			}
		}
	}
	s.reclassifyLocked()
	s.mu.Unlock()

	if len(failures) > 0 {
		return fmt.Errorf("correction applied in memory, %d of 3 store writes failed: %w",
			len(failures), errors.Join(failures...))
	}
	return nil
}
