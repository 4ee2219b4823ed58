package payment

import (
	"context"

	"github.com/gestionale/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// Repository defines the interface for payment persistence. Save persists a
// payment with all its associations and the derived RiBa transitions in one
// transaction; a logical apply-payment operation may carry several payments
// (one virtual per consumed credit note, at most one real).
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	FindBySubject(ctx context.Context, subjectID uuid.UUID) ([]Payment, error)
	// SaveApplication atomically persists the payments of one apply-payment
	// call and marks the RiBa items of settled schedules PAID.
	SaveApplication(ctx context.Context, payments []*Payment, settledSchedules []uuid.UUID) error
	// AllocatedByPayment returns the PAYMENT-association total of a payment.
	AllocatedByPayment(ctx context.Context, paymentID uuid.UUID) (valueobject.Money, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
