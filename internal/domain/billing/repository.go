package billing

import (
	"context"

	"github.com/gestionale/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// DocumentRepository defines the interface for document persistence
type DocumentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Document, error)
	// FindBySubjectAndNumber matches on the normalized number.
	FindBySubjectAndNumber(ctx context.Context, subjectID uuid.UUID, number string) (*Document, error)
	FindBySubject(ctx context.Context, subjectID uuid.UUID) ([]Document, error)
	FindSchedules(ctx context.Context, scheduleIDs []uuid.UUID) ([]Schedule, error)
	// OpenCreditNotes returns credit-note documents of the subject whose
	// residual is still positive.
	OpenCreditNotes(ctx context.Context, subjectID uuid.UUID) ([]Document, error)
	// Allocations returns the PAYMENT and CREDIT_NOTE_OFFSET totals already
	// booked against each of the given documents.
	Allocations(ctx context.Context, documentIDs []uuid.UUID) (map[uuid.UUID]AllocationTotals, error)
	// PendingIntent lists documents flagged with a declaration of intent
	// that has not been linked to a plafond yet.
	PendingIntent(ctx context.Context) ([]Document, error)
	Create(ctx context.Context, doc *Document) error
	Update(ctx context.Context, doc *Document) error
	// Delete removes associations, schedules, RiBa rows and the document in
	// one transaction.
	Delete(ctx context.Context, id uuid.UUID) error
}

// AllocationTotals carries the booked totals the residual formula consumes
type AllocationTotals struct {
	Paid   valueobject.Money // PAYMENT-kind associations
	Offset valueobject.Money // CREDIT_NOTE_OFFSET-kind associations
}
