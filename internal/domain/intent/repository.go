package intent

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for declaration-of-intent persistence
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Declaration, error)
	FindByProtocol(ctx context.Context, protocol string) (*Declaration, error)
	FindBySubject(ctx context.Context, subjectID uuid.UUID) ([]Declaration, error)
	Create(ctx context.Context, declaration *Declaration) error
	// Link persists the updated declaration, its new consumption rows and
	// the now-linked documents in one transaction.
	Link(ctx context.Context, declaration *Declaration, consumptions []*Consumption) error
	FindConsumptionByDocument(ctx context.Context, documentID uuid.UUID) (*Consumption, error)
	// ReleaseForDocument removes the consumption row of a document and gives
	// its amount back to the declaration, in one transaction.
	ReleaseForDocument(ctx context.Context, documentID uuid.UUID) error
}
