package models

import (
	"time"

	"gorm.io/datatypes"
)

// OCRResult is one expected-set entry: a code believed to physically exist,
// extracted from a printed manifest. The whole table is replaced per manifest
// epoch (delete-all then insert), never accumulated.
type OCRResult struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	CreatedAt  time.Time      `json:"created_at"`
	Name       string         `json:"name"`                             // source document name
	Prefixes   string         `json:"prefixes"`                         // allowed-prefix filter active at capture time
	Text       string         `gorm:"uniqueIndex;not null" json:"text"` // normalized code
	Confidence float64        `gorm:"default:0" json:"confidence"`      // recognizer confidence, 0-100
	Raw        datatypes.JSON `json:"raw,omitempty"`                    // recognizer payload for the source line
}

// TableName specifies the table name for OCRResult model
func (OCRResult) TableName() string {
	return "ocr_results"
}

// Scan is a code captured by a hardware scanner or camera during a working
// session, persisted per scan event (upsert keyed by text).
type Scan struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Prefixes  string    `json:"prefixes"`
	Text      string    `gorm:"uniqueIndex;not null" json:"text"`
}

// TableName specifies the table name for Scan model
func (Scan) TableName() string {
	return "scans"
}

// ScanItem is a batch-committed scan tagged with the matched/unmatched status
// it had at upload time. The flag is write-time provenance only; partition
// views are always recomputed from the current expected set.
type ScanItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	SessionID string    `gorm:"uniqueIndex:uniq_scan_items_session_text;type:uuid" json:"session_id"`
	Prefixes  string    `json:"prefixes"`
	Text      string    `gorm:"uniqueIndex:uniq_scan_items_session_text;not null" json:"text"`
	Matched   bool      `gorm:"default:false" json:"matched"`
}

// TableName specifies the table name for ScanItem model
func (ScanItem) TableName() string {
	return "scan_items"
}
