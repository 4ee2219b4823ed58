package anagrafica

import (
	"context"

	"github.com/google/uuid"
)

// SubjectRepository defines the interface for subject persistence
type SubjectRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Subject, error)
	FindByCode(ctx context.Context, code string) (*Subject, error)
	// FindDomestic matches a domestic party on (VAT number, fiscal code).
	FindDomestic(ctx context.Context, vatNumber, fiscalCode string) (*Subject, error)
	// FindForeign matches a foreign party on (legal name, city) with NULL VAT.
	FindForeign(ctx context.Context, name, city string) (*Subject, error)
	FindAll(ctx context.Context) ([]Subject, error)
	// NextCode allocates prefix + zero-padded max+1 within the prefix.
	// Implementations must not hand the same code to concurrent callers.
	NextCode(ctx context.Context, prefix string) (string, error)
	Create(ctx context.Context, subject *Subject) error
	Update(ctx context.Context, subject *Subject) error
	Delete(ctx context.Context, id uuid.UUID) error
}
