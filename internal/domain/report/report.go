package report

import (
	"context"

	"github.com/gestionale/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// OverduePosition is one row of the overdue_clients / overdue_suppliers
// views: the aged position of a subject as of today.
type OverduePosition struct {
	SubjectID       uuid.UUID
	SubjectCode     string
	SubjectName     string
	OverdueCount    int
	TotalDue        valueobject.Money
	TotalPaid       valueobject.Money
	TotalOffset     valueobject.Money
	OverdueBalance  valueobject.Money
	OldestDueDate   valueobject.Date
}

// Movement is one row of the movements view: a chronological ledger event
// for a subject. Document rows carry the document total with the class sign;
// payment rows carry the applied amount with the payment direction. Offset
// rows are recognizable by the virtual modality.
type Movement struct {
	SubjectID   uuid.UUID
	Date        valueobject.Date
	Description string
	Modality    string
	Debit       valueobject.Money
	Credit      valueobject.Money
}

// AccountCardEntry is one document line of a subject's account card with the
// residual already derived.
type AccountCardEntry struct {
	DocumentID uuid.UUID
	Number     string
	Class      string
	Date       valueobject.Date
	DueDate    valueobject.Date
	Total      valueobject.Money
	Paid       valueobject.Money
	Offset     valueobject.Money
	Residual   valueobject.Money
	Status     string
}

// Repository defines the read side over the derived views
type Repository interface {
	// OverdueClients aggregates sign +1 schedules past due as of today.
	OverdueClients(ctx context.Context) ([]OverduePosition, error)
	// OverdueSuppliers aggregates sign -1 schedules past due as of today.
	OverdueSuppliers(ctx context.Context) ([]OverduePosition, error)
	// Movements streams the subject's ledger events in chronological order.
	Movements(ctx context.Context, subjectID uuid.UUID) ([]Movement, error)
	// AccountCard lists the subject's documents with derived residuals.
	AccountCard(ctx context.Context, subjectID uuid.UUID, asOf valueobject.Date) ([]AccountCardEntry, error)
}
