package models

import "time"

// InventoryRecord is one physical-item lifecycle: created on receive scan,
// disposed_at set on dispose scan, never hard-deleted by normal flow. The
// partial index keeps the active-record lookup fast; at most one active
// (non-disposed) row may exist per barcode.
type InventoryRecord struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	Barcode    string     `gorm:"index:idx_inventory_active,where:disposed_at IS NULL;not null" json:"barcode"`
	ReceivedAt time.Time  `gorm:"not null" json:"received_at"`
	DisposedAt *time.Time `json:"disposed_at,omitempty"`
	Prefixes   string     `json:"prefixes"`
}

// TableName specifies the table name for InventoryRecord model
func (InventoryRecord) TableName() string {
	return "inventory"
}
