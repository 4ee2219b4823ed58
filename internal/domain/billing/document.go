package billing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gestionale/backend/internal/domain/shared"
	"github.com/gestionale/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// DocumentClass is the normalized classification of a document. The raw type
// stays free text; the class drives the sign and the engine behavior.
type DocumentClass string

const (
	ClassSaleInvoice        DocumentClass = "SALE_INVOICE"
	ClassPurchaseInvoice    DocumentClass = "PURCHASE_INVOICE"
	ClassClientCreditNote   DocumentClass = "CLIENT_CREDIT_NOTE"
	ClassSupplierCreditNote DocumentClass = "SUPPLIER_CREDIT_NOTE"
)

// IsValid checks if the class is a valid DocumentClass
func (c DocumentClass) IsValid() bool {
	switch c {
	case ClassSaleInvoice, ClassPurchaseInvoice, ClassClientCreditNote, ClassSupplierCreditNote:
		return true
	}
	return false
}

// Sign returns +1 for documents that increase the claim on the subject and
// -1 for documents that decrease it.
func (c DocumentClass) Sign() int {
	switch c {
	case ClassSaleInvoice, ClassSupplierCreditNote:
		return +1
	default:
		return -1
	}
}

// IsCreditNote returns true for both credit-note classes
func (c DocumentClass) IsCreditNote() bool {
	return c == ClassClientCreditNote || c == ClassSupplierCreditNote
}

// DocumentStatus is the residual-derived status. It is always a projection,
// never persisted.
type DocumentStatus string

const (
	StatusOpen    DocumentStatus = "OPEN"
	StatusOverdue DocumentStatus = "OVERDUE"
	StatusPaid    DocumentStatus = "PAID"
)

// Schedule is one payment installment (rata) of a document. Amounts are
// signed: client credit-note schedules carry negative amounts so per-subject
// sums stay consistent.
type Schedule struct {
	shared.BaseEntity
	DocumentID uuid.UUID         `gorm:"type:uuid;not null;index"`
	RataNumber int               `gorm:"not null"`
	DueDate    valueobject.Date  `gorm:"type:date;not null;index"`
	Modality   Modality          `gorm:"type:varchar(20);not null"`
	Amount     valueobject.Money `gorm:"type:decimal(12,2);not null"`
}

// TableName returns the table name for GORM
func (Schedule) TableName() string {
	return "schedules"
}

// Document is the aggregate root for an invoice or credit note together with
// its schedules. Identity within a subject is the normalized number.
type Document struct {
	shared.BaseAggregateRoot
	SubjectID        uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_documents_subject_number,priority:1"`
	Number           string            `gorm:"type:varchar(50);not null;uniqueIndex:idx_documents_subject_number,priority:2"`
	RawType          string            `gorm:"type:varchar(100);not null"`
	Class            DocumentClass     `gorm:"type:varchar(30);not null;index"`
	Sign             int               `gorm:"not null"`
	DocumentDate     valueobject.Date  `gorm:"type:date;not null"`
	RegistrationDate valueobject.Date  `gorm:"type:date;not null"`
	Total            valueobject.Money `gorm:"type:decimal(12,2);not null"`
	TaxableBase      valueobject.Money `gorm:"type:decimal(12,2);not null"`
	DeclarationID    *uuid.UUID        `gorm:"type:uuid;index"` // declaration of intent, once linked
	IntentPending    bool              `gorm:"not null;default:false"`
	Schedules        []Schedule        `gorm:"foreignKey:DocumentID;references:ID"`
}

// TableName returns the table name for GORM
func (Document) TableName() string {
	return "documents"
}

// NewDocument creates a document with its schedules, validating that the
// schedule amounts close on the document total within the tolerance.
func NewDocument(
	subjectID uuid.UUID,
	number string,
	rawType string,
	class DocumentClass,
	documentDate valueobject.Date,
	registrationDate valueobject.Date,
	total valueobject.Money,
	taxableBase valueobject.Money,
	schedules []ScheduleInput,
) (*Document, error) {
	if subjectID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SUBJECT", "Subject ID cannot be empty")
	}
	number = NormalizeNumber(number)
	if number == "" {
		return nil, shared.NewDomainError("INVALID_NUMBER", "Document number cannot be empty")
	}
	if !class.IsValid() {
		return nil, shared.NewDomainError("INVALID_CLASS", "Document class is not valid")
	}
	if documentDate.IsZero() || registrationDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_DATE", "Document dates cannot be empty")
	}
	if len(schedules) == 0 {
		return nil, shared.NewDomainError("INVALID_SCHEDULES", "A document needs at least one schedule")
	}

	doc := &Document{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		SubjectID:         subjectID,
		Number:            number,
		RawType:           strings.ToUpper(strings.TrimSpace(rawType)),
		Class:             class,
		Sign:              class.Sign(),
		DocumentDate:      documentDate,
		RegistrationDate:  registrationDate,
		Total:             total,
		TaxableBase:       taxableBase,
	}

	sum := valueobject.Zero()
	for i, in := range schedules {
		if in.DueDate.IsZero() {
			return nil, shared.NewDomainError("INVALID_DUE_DATE", fmt.Sprintf("Schedule %d has no due date", i+1))
		}
		if !in.Modality.IsValid() || in.Modality.IsVirtual() {
			return nil, shared.NewDomainError("INVALID_MODALITY", fmt.Sprintf("Schedule %d has an invalid modality", i+1))
		}
		doc.Schedules = append(doc.Schedules, Schedule{
			BaseEntity: shared.NewBaseEntity(),
			DocumentID: doc.ID,
			RataNumber: i + 1,
			DueDate:    in.DueDate,
			Modality:   in.Modality,
			Amount:     in.Amount,
		})
		sum = sum.Add(in.Amount)
	}
	if !sum.Equals(total) {
		return nil, shared.NewDomainError("SCHEDULES_MISMATCH",
			fmt.Sprintf("Schedule amounts %s do not close on document total %s", sum, total))
	}

	return doc, nil
}

// ScheduleInput is the constructor input for one schedule
type ScheduleInput struct {
	DueDate  valueobject.Date
	Modality Modality
	Amount   valueobject.Money
}

// ScheduledTotal sums the schedule amounts (signed)
func (d *Document) ScheduledTotal() valueobject.Money {
	sum := valueobject.Zero()
	for _, s := range d.Schedules {
		sum = sum.Add(s.Amount)
	}
	return sum
}

// Residual applies the accounting invariant:
//
//	residual = |sum(schedule.amount)| - sum(PAYMENT assoc) - sum(CREDIT_NOTE_OFFSET assoc)
//
// Schedule amounts are signed but associations always carry positive
// amounts, so the open balance starts from the absolute scheduled total on
// sign -1 documents too. Client credit notes are consumed by offsets only;
// cash never lands on a note.
func (d *Document) Residual(paid, offset valueobject.Money) valueobject.Money {
	if d.Class == ClassClientCreditNote {
		return d.ScheduledTotal().Abs().Sub(offset)
	}
	return d.ScheduledTotal().Abs().Sub(paid).Sub(offset)
}

// ScheduleResiduals distributes the consumed total (paid + offset) across
// the schedules FIFO by due date and returns the residual of each schedule,
// in absolute value. Associations are booked per document, so the schedule
// split is always a derivation, never stored.
func (d *Document) ScheduleResiduals(paid, offset valueobject.Money) map[uuid.UUID]valueobject.Money {
	ordered := make([]Schedule, len(d.Schedules))
	copy(ordered, d.Schedules)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].DueDate.Equal(ordered[j].DueDate) {
			return ordered[i].DueDate.Before(ordered[j].DueDate)
		}
		return ordered[i].ID.String() < ordered[j].ID.String()
	})

	consumed := paid.Add(offset)
	residuals := make(map[uuid.UUID]valueobject.Money, len(ordered))
	for _, s := range ordered {
		amount := s.Amount.Abs()
		applied := consumed.Min(amount)
		if applied.IsNegative() {
			applied = valueobject.Zero()
		}
		residuals[s.ID] = amount.Sub(applied)
		consumed = consumed.Sub(applied)
	}
	return residuals
}

// FindSchedule returns the schedule with the given id, or nil
func (d *Document) FindSchedule(scheduleID uuid.UUID) *Schedule {
	for i := range d.Schedules {
		if d.Schedules[i].ID == scheduleID {
			return &d.Schedules[i]
		}
	}
	return nil
}

// MaxDueDate returns the latest schedule due date
func (d *Document) MaxDueDate() valueobject.Date {
	var max valueobject.Date
	for _, s := range d.Schedules {
		if max.IsZero() || s.DueDate.After(max) {
			max = s.DueDate
		}
	}
	return max
}

// Status projects the residual-derived status as of a reference date
func (d *Document) Status(paid, offset valueobject.Money, asOf valueobject.Date) DocumentStatus {
	if d.Residual(paid, offset).IsSettled() {
		return StatusPaid
	}
	if due := d.MaxDueDate(); !due.IsZero() && due.Before(asOf) {
		return StatusOverdue
	}
	return StatusOpen
}

// FlagIntent marks the document as carrying a declaration of intent whose
// binding to a plafond happens in a later interactive step.
func (d *Document) FlagIntent() {
	d.IntentPending = true
}

// LinkDeclaration binds the document to a declaration of intent
func (d *Document) LinkDeclaration(declarationID uuid.UUID) error {
	if declarationID == uuid.Nil {
		return shared.NewDomainError("INVALID_DECLARATION", "Declaration ID cannot be empty")
	}
	d.DeclarationID = &declarationID
	d.IntentPending = false
	d.IncrementVersion()
	return nil
}

// ReleaseDeclaration detaches the declaration reference (used when the
// document is deleted and its plafond consumption is returned)
func (d *Document) ReleaseDeclaration() {
	d.DeclarationID = nil
	d.IntentPending = false
}
