package persistence

import (
	"context"
	"errors"

	"github.com/gestionale/backend/internal/domain/payment"
	"github.com/gestionale/backend/internal/domain/riba"
	"github.com/gestionale/backend/internal/domain/shared"
	"github.com/gestionale/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPaymentRepository implements payment.Repository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// FindByID finds a payment with its associations
func (r *GormPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*payment.Payment, error) {
	var p payment.Payment
	if err := r.db.WithContext(ctx).
		Preload("Associations").
		First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// FindBySubject returns the subject's payments ordered by date
func (r *GormPaymentRepository) FindBySubject(ctx context.Context, subjectID uuid.UUID) ([]payment.Payment, error) {
	var payments []payment.Payment
	if err := r.db.WithContext(ctx).
		Preload("Associations").
		Where("subject_id = ?", subjectID).
		Order("date, created_at").
		Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

// SaveApplication atomically persists the payments of one apply-payment call
// and marks the RiBa items of settled schedules PAID.
func (r *GormPaymentRepository) SaveApplication(ctx context.Context, payments []*payment.Payment, settledSchedules []uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, p := range payments {
			if err := tx.Create(p).Error; err != nil {
				return err
			}
		}
		if len(settledSchedules) == 0 {
			return nil
		}
		return tx.Model(&riba.Item{}).
			Where("schedule_id IN ? AND state <> ?", settledSchedules, riba.StatePaid).
			Update("state", riba.StatePaid).Error
	})
}

// AllocatedByPayment returns the PAYMENT-association total of a payment
func (r *GormPaymentRepository) AllocatedByPayment(ctx context.Context, paymentID uuid.UUID) (valueobject.Money, error) {
	var total valueobject.Money
	if err := r.db.WithContext(ctx).
		Model(&payment.Association{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("payment_id = ? AND kind = ?", paymentID, payment.KindPayment).
		Scan(&total).Error; err != nil {
		return valueobject.Zero(), err
	}
	return total, nil
}

// Delete removes a payment together with its associations
func (r *GormPaymentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&payment.Association{}, "payment_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&payment.Payment{}, "id = ?", id).Error
	})
}

// Ensure GormPaymentRepository implements the interface
var _ payment.Repository = (*GormPaymentRepository)(nil)
