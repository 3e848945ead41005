package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/MLeehwa/lhswms/internal/models"
)

// Store exposes the three row-store primitives the core relies on, applied
// per table: upsert-by-unique-key, conditional delete, and filtered select.
// Every call is an independent round trip; there are no cross-call
// transactions except where a method explicitly opens one.
type Store struct {
	db *gorm.DB
}

// New wraps a gorm handle.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// ---- Expected set (ocr_results) ----

// ListExpected returns the full expected set.
func (s *Store) ListExpected(ctx context.Context) ([]models.OCRResult, error) {
	var rows []models.OCRResult
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("select ocr_results: %w", err)
	}
	return rows, nil
}

// ReplaceExpected swaps in a new manifest epoch: delete-all then insert.
// The two steps are separate statements inside one transaction so a failed
// insert does not leave the table half-cleared.
func (s *Store) ReplaceExpected(ctx context.Context, rows []models.OCRResult) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.OCRResult{}).Error; err != nil {
			return fmt.Errorf("clear ocr_results: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("insert ocr_results: %w", err)
		}
		return nil
	})
}

// UpsertExpected inserts or updates one expected entry keyed by text.
func (s *Store) UpsertExpected(ctx context.Context, row models.OCRResult) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "text"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "prefixes", "confidence"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert ocr_results: %w", err)
	}
	return nil
}

// DeleteExpected removes one expected entry by normalized text.
func (s *Store) DeleteExpected(ctx context.Context, text string) error {
	if err := s.db.WithContext(ctx).Where("text = ?", text).Delete(&models.OCRResult{}).Error; err != nil {
		return fmt.Errorf("delete ocr_results: %w", err)
	}
	return nil
}

// ---- Scan events (scans) ----

// UpsertScan records a scan event keyed by normalized text. Re-scans of the
// same code are idempotent.
func (s *Store) UpsertScan(ctx context.Context, row models.Scan) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "text"}},
		DoNothing: true,
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert scans: %w", err)
	}
	return nil
}

// ---- Batch scan items (scan_items) ----

// UpsertScanItems commits a batch of session scans, updating the stored
// matched flag on conflict of (session_id, text).
func (s *Store) UpsertScanItems(ctx context.Context, rows []models.ScanItem) error {
	if len(rows) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}, {Name: "text"}},
		DoUpdates: clause.AssignmentColumns([]string{"matched", "prefixes"}),
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("upsert scan_items: %w", err)
	}
	return nil
}

// ---- Inventory lifecycle (inventory) ----

// ActiveInventory returns the current non-disposed record for a barcode, or
// nil when none exists.
func (s *Store) ActiveInventory(ctx context.Context, code string) (*models.InventoryRecord, error) {
	var rec models.InventoryRecord
	err := s.db.WithContext(ctx).
		Where("barcode = ? AND disposed_at IS NULL", code).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select inventory: %w", err)
	}
	return &rec, nil
}

// HasDisposedInventory reports whether any disposed record exists for a
// barcode. Used to tell "never received" apart from "already disposed".
func (s *Store) HasDisposedInventory(ctx context.Context, code string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.InventoryRecord{}).
		Where("barcode = ? AND disposed_at IS NOT NULL", code).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("select inventory: %w", err)
	}
	return count > 0, nil
}

// CreateInventory inserts a fresh receipt record.
func (s *Store) CreateInventory(ctx context.Context, rec *models.InventoryRecord) error {
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("insert inventory: %w", err)
	}
	return nil
}

// DisposeInventory stamps the active record for a barcode. Returns the number
// of rows updated so the caller can detect a lost race.
func (s *Store) DisposeInventory(ctx context.Context, code string, at time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.InventoryRecord{}).
		Where("barcode = ? AND disposed_at IS NULL", code).
		Update("disposed_at", at)
	if res.Error != nil {
		return 0, fmt.Errorf("update inventory: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// ListInventory returns all lifecycle records ordered by receipt time.
func (s *Store) ListInventory(ctx context.Context) ([]models.InventoryRecord, error) {
	var rows []models.InventoryRecord
	if err := s.db.WithContext(ctx).Order("received_at").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("select inventory: %w", err)
	}
	return rows, nil
}
