package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MLeehwa/lhswms/internal/barcode"
	"github.com/MLeehwa/lhswms/internal/models"
)

// Precondition errors, surfaced verbatim to the operator.
var (
	ErrEmptyCode       = errors.New("barcode is empty")
	ErrPrefixMismatch  = errors.New("barcode does not match an allowed prefix")
	ErrAlreadyReceived = errors.New("barcode is already received and still in stock")
	ErrNotReceived     = errors.New("barcode has no active receipt")
	ErrAlreadyDisposed = errors.New("barcode was already received and disposed")
)

// Lifecycle is the slice of the row store the tracker needs.
type Lifecycle interface {
	ActiveInventory(ctx context.Context, code string) (*models.InventoryRecord, error)
	HasDisposedInventory(ctx context.Context, code string) (bool, error)
	CreateInventory(ctx context.Context, rec *models.InventoryRecord) error
	DisposeInventory(ctx context.Context, code string, at time.Time) (int64, error)
	ListInventory(ctx context.Context) ([]models.InventoryRecord, error)
}

// Service enforces the Unreceived -> Received -> Disposed lifecycle. Disposed
// is terminal for a record; a fresh receipt after disposal opens a new one.
type Service struct {
	rows     Lifecycle
	prefixes []string
	now      func() time.Time
}

// NewService creates a tracker filtering on the given allowed prefixes.
func NewService(rows Lifecycle, prefixes []string) *Service {
	return &Service{rows: rows, prefixes: prefixes, now: time.Now}
}

// Receive records first receipt of a barcode. Fails with ErrAlreadyReceived
// while an active (non-disposed) record exists.
func (s *Service) Receive(ctx context.Context, raw string) (*models.InventoryRecord, error) {
	code, err := s.normalize(raw)
	if err != nil {
		return nil, err
	}

	active, err := s.rows.ActiveInventory(ctx, code)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyReceived, code)
	}

	rec := &models.InventoryRecord{
		Barcode:    code,
		ReceivedAt: s.now(),
		Prefixes:   strings.Join(s.prefixes, ","),
	}
	if err := s.rows.CreateInventory(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Dispose closes the active record for a barcode. Distinguishes "never
// received" from "already disposed" in the error so the operator knows which
// precondition failed.
func (s *Service) Dispose(ctx context.Context, raw string) (*models.InventoryRecord, error) {
	code, err := s.normalize(raw)
	if err != nil {
		return nil, err
	}

	active, err := s.rows.ActiveInventory(ctx, code)
	if err != nil {
		return nil, err
	}
	if active == nil {
		disposed, derr := s.rows.HasDisposedInventory(ctx, code)
		if derr != nil {
			return nil, derr
		}
		if disposed {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyDisposed, code)
		}
		return nil, fmt.Errorf("%w: %s", ErrNotReceived, code)
	}

	at := s.now()
	n, err := s.rows.DisposeInventory(ctx, code, at)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		// Another station disposed it between our check and the update.
		return nil, fmt.Errorf("%w: %s", ErrNotReceived, code)
	}
	active.DisposedAt = &at
	return active, nil
}

func (s *Service) normalize(raw string) (string, error) {
	code := barcode.Normalize(raw)
	if code == "" {
		return "", ErrEmptyCode
	}
	if len(s.prefixes) > 0 {
		ok := false
		for _, p := range s.prefixes {
			if strings.HasPrefix(code, strings.ToUpper(p)) {
				ok = true
				break
			}
		}
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrPrefixMismatch, code)
		}
	}
	return code, nil
}
