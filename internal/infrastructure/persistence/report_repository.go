package persistence

import (
	"context"

	"github.com/gestionale/backend/internal/domain/billing"
	"github.com/gestionale/backend/internal/domain/report"
	"github.com/gestionale/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormReportRepository implements report.Repository over the derived views
type GormReportRepository struct {
	db        *gorm.DB
	documents *GormDocumentRepository
}

// NewGormReportRepository creates a new GormReportRepository
func NewGormReportRepository(db *gorm.DB) *GormReportRepository {
	return &GormReportRepository{db: db, documents: NewGormDocumentRepository(db)}
}

// OverdueClients aggregates sign +1 schedules past due as of today
func (r *GormReportRepository) OverdueClients(ctx context.Context) ([]report.OverduePosition, error) {
	return r.overdue(ctx, "overdue_clients")
}

// OverdueSuppliers aggregates sign -1 schedules past due as of today
func (r *GormReportRepository) OverdueSuppliers(ctx context.Context) ([]report.OverduePosition, error) {
	return r.overdue(ctx, "overdue_suppliers")
}

func (r *GormReportRepository) overdue(ctx context.Context, view string) ([]report.OverduePosition, error) {
	var positions []report.OverduePosition
	if err := r.db.WithContext(ctx).
		Table(view).
		Order("subject_code").
		Find(&positions).Error; err != nil {
		return nil, err
	}
	return positions, nil
}

// Movements streams the subject's ledger events in chronological order
func (r *GormReportRepository) Movements(ctx context.Context, subjectID uuid.UUID) ([]report.Movement, error) {
	var movements []report.Movement
	if err := r.db.WithContext(ctx).
		Table("movements_view").
		Where("subject_id = ?", subjectID).
		Order("date, description").
		Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

// AccountCard lists the subject's documents with derived residuals. The
// residual and status are computed here, never read from a persisted column.
func (r *GormReportRepository) AccountCard(ctx context.Context, subjectID uuid.UUID, asOf valueobject.Date) ([]report.AccountCardEntry, error) {
	docs, err := r.documents.FindBySubject(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	totals, err := r.documents.Allocations(ctx, ids)
	if err != nil {
		return nil, err
	}

	entries := make([]report.AccountCardEntry, 0, len(docs))
	for i := range docs {
		doc := &docs[i]
		t, ok := totals[doc.ID]
		if !ok {
			t = billing.AllocationTotals{Paid: valueobject.Zero(), Offset: valueobject.Zero()}
		}
		entries = append(entries, report.AccountCardEntry{
			DocumentID: doc.ID,
			Number:     doc.Number,
			Class:      string(doc.Class),
			Date:       doc.DocumentDate,
			DueDate:    doc.MaxDueDate(),
			Total:      doc.Total,
			Paid:       t.Paid,
			Offset:     t.Offset,
			Residual:   doc.Residual(t.Paid, t.Offset),
			Status:     string(doc.Status(t.Paid, t.Offset, asOf)),
		})
	}
	return entries, nil
}

// Ensure GormReportRepository implements the interface
var _ report.Repository = (*GormReportRepository)(nil)
