package persistence

import (
	"context"
	"errors"

	"github.com/gestionale/backend/internal/domain/billing"
	"github.com/gestionale/backend/internal/domain/payment"
	"github.com/gestionale/backend/internal/domain/riba"
	"github.com/gestionale/backend/internal/domain/shared"
	"github.com/gestionale/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormDocumentRepository implements billing.DocumentRepository using GORM
type GormDocumentRepository struct {
	db *gorm.DB
}

// NewGormDocumentRepository creates a new GormDocumentRepository
func NewGormDocumentRepository(db *gorm.DB) *GormDocumentRepository {
	return &GormDocumentRepository{db: db}
}

// FindByID finds a document with its schedules
func (r *GormDocumentRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Document, error) {
	var doc billing.Document
	if err := r.db.WithContext(ctx).
		Preload("Schedules", func(db *gorm.DB) *gorm.DB { return db.Order("rata_number") }).
		First(&doc, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

// FindBySubjectAndNumber matches on the normalized number
func (r *GormDocumentRepository) FindBySubjectAndNumber(ctx context.Context, subjectID uuid.UUID, number string) (*billing.Document, error) {
	var doc billing.Document
	if err := r.db.WithContext(ctx).
		Preload("Schedules", func(db *gorm.DB) *gorm.DB { return db.Order("rata_number") }).
		First(&doc, "subject_id = ? AND number = ?", subjectID, billing.NormalizeNumber(number)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

// FindBySubject returns the subject's documents ordered by document date
func (r *GormDocumentRepository) FindBySubject(ctx context.Context, subjectID uuid.UUID) ([]billing.Document, error) {
	var docs []billing.Document
	if err := r.db.WithContext(ctx).
		Preload("Schedules", func(db *gorm.DB) *gorm.DB { return db.Order("rata_number") }).
		Where("subject_id = ?", subjectID).
		Order("document_date, number").
		Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

// FindSchedules loads schedules by ID
func (r *GormDocumentRepository) FindSchedules(ctx context.Context, scheduleIDs []uuid.UUID) ([]billing.Schedule, error) {
	if len(scheduleIDs) == 0 {
		return nil, nil
	}
	var schedules []billing.Schedule
	if err := r.db.WithContext(ctx).
		Where("id IN ?", scheduleIDs).
		Find(&schedules).Error; err != nil {
		return nil, err
	}
	return schedules, nil
}

// OpenCreditNotes returns credit-note documents of the subject whose residual
// is still positive, oldest first.
func (r *GormDocumentRepository) OpenCreditNotes(ctx context.Context, subjectID uuid.UUID) ([]billing.Document, error) {
	var notes []billing.Document
	if err := r.db.WithContext(ctx).
		Preload("Schedules", func(db *gorm.DB) *gorm.DB { return db.Order("rata_number") }).
		Where("subject_id = ? AND class IN ?", subjectID,
			[]billing.DocumentClass{billing.ClassClientCreditNote, billing.ClassSupplierCreditNote}).
		Order("document_date, number").
		Find(&notes).Error; err != nil {
		return nil, err
	}
	if len(notes) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, len(notes))
	for i, n := range notes {
		ids[i] = n.ID
	}
	totals, err := r.Allocations(ctx, ids)
	if err != nil {
		return nil, err
	}

	open := notes[:0]
	for _, n := range notes {
		t := totals[n.ID]
		if n.Residual(t.Paid, t.Offset).IsPositive() {
			open = append(open, n)
		}
	}
	return open, nil
}

// Allocations returns the PAYMENT and CREDIT_NOTE_OFFSET totals already
// booked against each of the given documents.
func (r *GormDocumentRepository) Allocations(ctx context.Context, documentIDs []uuid.UUID) (map[uuid.UUID]billing.AllocationTotals, error) {
	result := make(map[uuid.UUID]billing.AllocationTotals, len(documentIDs))
	if len(documentIDs) == 0 {
		return result, nil
	}

	var rows []struct {
		DocumentID uuid.UUID
		Kind       payment.AssociationKind
		Total      valueobject.Money
	}
	if err := r.db.WithContext(ctx).
		Model(&payment.Association{}).
		Select("document_id, kind, COALESCE(SUM(amount), 0) AS total").
		Where("document_id IN ?", documentIDs).
		Group("document_id, kind").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	for _, row := range rows {
		totals, ok := result[row.DocumentID]
		if !ok {
			totals = billing.AllocationTotals{Paid: valueobject.Zero(), Offset: valueobject.Zero()}
		}
		switch row.Kind {
		case payment.KindPayment:
			totals.Paid = totals.Paid.Add(row.Total)
		case payment.KindCreditNoteOffset:
			totals.Offset = totals.Offset.Add(row.Total)
		}
		result[row.DocumentID] = totals
	}
	return result, nil
}

// PendingIntent lists documents flagged with a declaration of intent that has
// not been linked to a plafond yet.
func (r *GormDocumentRepository) PendingIntent(ctx context.Context) ([]billing.Document, error) {
	var docs []billing.Document
	if err := r.db.WithContext(ctx).
		Preload("Schedules", func(db *gorm.DB) *gorm.DB { return db.Order("rata_number") }).
		Where("intent_pending = ?", true).
		Order("document_date, number").
		Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

// Create inserts the document with its schedules
func (r *GormDocumentRepository) Create(ctx context.Context, doc *billing.Document) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

// Update persists document changes without touching the schedules
func (r *GormDocumentRepository) Update(ctx context.Context, doc *billing.Document) error {
	return r.db.WithContext(ctx).Omit("Schedules").Save(doc).Error
}

// Delete removes associations, schedules, RiBa rows and the document in one
// transaction.
func (r *GormDocumentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&payment.Association{}, "document_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&riba.Item{}, "document_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&billing.Schedule{}, "document_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&billing.Document{}, "id = ?", id).Error
	})
}

// Ensure GormDocumentRepository implements the interface
var _ billing.DocumentRepository = (*GormDocumentRepository)(nil)
