package riba

import (
	"context"

	"github.com/gestionale/backend/internal/domain/payment"
	"github.com/google/uuid"
)

// Repository defines the interface for RiBa persistence. The distinta
// lifecycle methods are transactional: header, items and emission-time
// credit-note payments commit or roll back together.
type Repository interface {
	FindItemByID(ctx context.Context, id uuid.UUID) (*Item, error)
	FindItemBySchedule(ctx context.Context, scheduleID uuid.UUID) (*Item, error)
	FindItemsByState(ctx context.Context, state CollectionState) ([]Item, error)
	FindItemsByDistinta(ctx context.Context, distintaID uuid.UUID) ([]Item, error)
	CreateItem(ctx context.Context, item *Item) error
	SaveItems(ctx context.Context, items []*Item) error

	FindDistintaByID(ctx context.Context, id uuid.UUID) (*Distinta, error)
	FindDistintaByNumber(ctx context.Context, number string) (*Distinta, error)
	FindAllDistinte(ctx context.Context) ([]Distinta, error)
	// CreateDistinta persists the header, the emitted items and the virtual
	// payments of the emission-time credit-note applications in one tx.
	CreateDistinta(ctx context.Context, distinta *Distinta, items []*Item, creditNotePayments []*payment.Payment) error
	// UpdateDistinta persists the header and every touched item in one tx.
	UpdateDistinta(ctx context.Context, distinta *Distinta, items []*Item) error
	// DeleteDistinta removes the header after the caller unwound the items.
	// Emission-time credit-note offsets are left in place.
	DeleteDistinta(ctx context.Context, distinta *Distinta, unwoundItems []*Item) error
}
