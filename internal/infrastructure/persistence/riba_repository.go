package persistence

import (
	"context"
	"errors"

	"github.com/gestionale/backend/internal/domain/payment"
	"github.com/gestionale/backend/internal/domain/riba"
	"github.com/gestionale/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormRibaRepository implements riba.Repository using GORM
type GormRibaRepository struct {
	db *gorm.DB
}

// NewGormRibaRepository creates a new GormRibaRepository
func NewGormRibaRepository(db *gorm.DB) *GormRibaRepository {
	return &GormRibaRepository{db: db}
}

// FindItemByID finds a RiBa item by ID
func (r *GormRibaRepository) FindItemByID(ctx context.Context, id uuid.UUID) (*riba.Item, error) {
	var item riba.Item
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// FindItemBySchedule finds the item attached to a schedule
func (r *GormRibaRepository) FindItemBySchedule(ctx context.Context, scheduleID uuid.UUID) (*riba.Item, error) {
	var item riba.Item
	if err := r.db.WithContext(ctx).First(&item, "schedule_id = ?", scheduleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// FindItemsByState lists items in a lifecycle state
func (r *GormRibaRepository) FindItemsByState(ctx context.Context, state riba.CollectionState) ([]riba.Item, error) {
	var items []riba.Item
	if err := r.db.WithContext(ctx).
		Where("state = ?", state).
		Order("created_at").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// FindItemsByDistinta lists the items attached to a distinta
func (r *GormRibaRepository) FindItemsByDistinta(ctx context.Context, distintaID uuid.UUID) ([]riba.Item, error) {
	var items []riba.Item
	if err := r.db.WithContext(ctx).
		Where("distinta_id = ?", distintaID).
		Order("created_at").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// CreateItem inserts a RiBa item
func (r *GormRibaRepository) CreateItem(ctx context.Context, item *riba.Item) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// SaveItems upserts a batch of items in one transaction
func (r *GormRibaRepository) SaveItems(ctx context.Context, items []*riba.Item) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return upsertItems(tx, items)
	})
}

// FindDistintaByID finds a distinta header by ID
func (r *GormRibaRepository) FindDistintaByID(ctx context.Context, id uuid.UUID) (*riba.Distinta, error) {
	var d riba.Distinta
	if err := r.db.WithContext(ctx).First(&d, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

// FindDistintaByNumber finds a distinta header by number
func (r *GormRibaRepository) FindDistintaByNumber(ctx context.Context, number string) (*riba.Distinta, error) {
	var d riba.Distinta
	if err := r.db.WithContext(ctx).First(&d, "number = ?", number).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

// FindAllDistinte lists distinta headers, newest first
func (r *GormRibaRepository) FindAllDistinte(ctx context.Context) ([]riba.Distinta, error) {
	var distinte []riba.Distinta
	if err := r.db.WithContext(ctx).
		Order("date DESC, number DESC").
		Find(&distinte).Error; err != nil {
		return nil, err
	}
	return distinte, nil
}

// CreateDistinta persists the header, the emitted items and the virtual
// payments of the emission-time credit-note applications in one tx.
func (r *GormRibaRepository) CreateDistinta(ctx context.Context, distinta *riba.Distinta, items []*riba.Item, creditNotePayments []*payment.Payment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(distinta).Error; err != nil {
			return err
		}
		if err := upsertItems(tx, items); err != nil {
			return err
		}
		for _, p := range creditNotePayments {
			if err := tx.Create(p).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdateDistinta persists the header and every touched item in one tx
func (r *GormRibaRepository) UpdateDistinta(ctx context.Context, distinta *riba.Distinta, items []*riba.Item) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(distinta).Error; err != nil {
			return err
		}
		return upsertItems(tx, items)
	})
}

// DeleteDistinta removes the header after the caller unwound the items.
// Emission-time credit-note offsets are left in place.
func (r *GormRibaRepository) DeleteDistinta(ctx context.Context, distinta *riba.Distinta, unwoundItems []*riba.Item) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := upsertItems(tx, unwoundItems); err != nil {
			return err
		}
		return tx.Delete(&riba.Distinta{}, "id = ?", distinta.ID).Error
	})
}

// upsertItems writes items that may be brand new (synthesized at emission
// time) or already persisted (state transitions).
func upsertItems(tx *gorm.DB, items []*riba.Item) error {
	for _, item := range items {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).Create(item).Error; err != nil {
			return err
		}
	}
	return nil
}

// Ensure GormRibaRepository implements the interface
var _ riba.Repository = (*GormRibaRepository)(nil)
