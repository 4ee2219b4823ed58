package persistence

import (
	"context"
	"errors"

	"github.com/gestionale/backend/internal/domain/billing"
	"github.com/gestionale/backend/internal/domain/intent"
	"github.com/gestionale/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormIntentRepository implements intent.Repository using GORM
type GormIntentRepository struct {
	db *gorm.DB
}

// NewGormIntentRepository creates a new GormIntentRepository
func NewGormIntentRepository(db *gorm.DB) *GormIntentRepository {
	return &GormIntentRepository{db: db}
}

// FindByID finds a declaration by ID
func (r *GormIntentRepository) FindByID(ctx context.Context, id uuid.UUID) (*intent.Declaration, error) {
	var d intent.Declaration
	if err := r.db.WithContext(ctx).First(&d, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

// FindByProtocol finds a declaration by protocol number
func (r *GormIntentRepository) FindByProtocol(ctx context.Context, protocol string) (*intent.Declaration, error) {
	var d intent.Declaration
	if err := r.db.WithContext(ctx).First(&d, "protocol = ?", protocol).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

// FindBySubject lists the subject's declarations, newest first
func (r *GormIntentRepository) FindBySubject(ctx context.Context, subjectID uuid.UUID) ([]intent.Declaration, error) {
	var declarations []intent.Declaration
	if err := r.db.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		Order("date DESC").
		Find(&declarations).Error; err != nil {
		return nil, err
	}
	return declarations, nil
}

// Create inserts a declaration
func (r *GormIntentRepository) Create(ctx context.Context, declaration *intent.Declaration) error {
	return r.db.WithContext(ctx).Create(declaration).Error
}

// Link persists the updated declaration, its new consumption rows and the
// now-linked documents in one transaction.
func (r *GormIntentRepository) Link(ctx context.Context, declaration *intent.Declaration, consumptions []*intent.Consumption) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(declaration).Error; err != nil {
			return err
		}
		for _, c := range consumptions {
			if err := tx.Create(c).Error; err != nil {
				return err
			}
			if err := tx.Model(&billing.Document{}).
				Where("id = ?", c.DocumentID).
				Updates(map[string]interface{}{
					"declaration_id": declaration.ID,
					"intent_pending": false,
				}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// FindConsumptionByDocument finds the consumption row of a linked document
func (r *GormIntentRepository) FindConsumptionByDocument(ctx context.Context, documentID uuid.UUID) (*intent.Consumption, error) {
	var c intent.Consumption
	if err := r.db.WithContext(ctx).First(&c, "document_id = ?", documentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// ReleaseForDocument removes the consumption row of a document and gives its
// amount back to the declaration, in one transaction. A document that was
// never linked is a no-op.
func (r *GormIntentRepository) ReleaseForDocument(ctx context.Context, documentID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c intent.Consumption
		if err := tx.First(&c, "document_id = ?", documentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}

		var d intent.Declaration
		if err := tx.First(&d, "id = ?", c.DeclarationID).Error; err != nil {
			return err
		}
		if err := d.Release(c.Amount); err != nil {
			return err
		}
		if err := tx.Save(&d).Error; err != nil {
			return err
		}
		if err := tx.Delete(&intent.Consumption{}, "id = ?", c.ID).Error; err != nil {
			return err
		}
		return tx.Model(&billing.Document{}).
			Where("id = ?", documentID).
			Updates(map[string]interface{}{
				"declaration_id": nil,
				"intent_pending": false,
			}).Error
	})
}

// Ensure GormIntentRepository implements the interface
var _ intent.Repository = (*GormIntentRepository)(nil)
