package payment

import (
	"github.com/gestionale/backend/internal/domain/billing"
	"github.com/gestionale/backend/internal/domain/shared"
	"github.com/gestionale/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// Direction represents which way the cash moves
type Direction string

const (
	DirectionReceipt      Direction = "RECEIPT"
	DirectionDisbursement Direction = "DISBURSEMENT"
)

// IsValid checks if the direction is valid
func (d Direction) IsValid() bool {
	return d == DirectionReceipt || d == DirectionDisbursement
}

// String returns the string representation of Direction
func (d Direction) String() string {
	return string(d)
}

// AssociationKind distinguishes cash applications from credit-note offsets
type AssociationKind string

const (
	KindPayment          AssociationKind = "PAYMENT"
	KindCreditNoteOffset AssociationKind = "CREDIT_NOTE_OFFSET"
)

// IsValid checks if the kind is valid
func (k AssociationKind) IsValid() bool {
	return k == KindPayment || k == KindCreditNoteOffset
}

// Association joins a payment to a document for an amount. Offset rows carry
// the credit note they were consumed from, so the symmetric pair on invoice
// and credit note stays attributable.
type Association struct {
	shared.BaseEntity
	PaymentID    uuid.UUID         `gorm:"type:uuid;not null;index"`
	DocumentID   uuid.UUID         `gorm:"type:uuid;not null;index"`
	Kind         AssociationKind   `gorm:"type:varchar(20);not null;index"`
	Amount       valueobject.Money `gorm:"type:decimal(12,2);not null"`
	CreditNoteID *uuid.UUID        `gorm:"type:uuid;index"`
}

// TableName returns the table name for GORM
func (Association) TableName() string {
	return "payment_associations"
}

// Payment is the aggregate root for one cash event. A payment with the
// NOTE_CREDIT_APPLIED modality is virtual: zero total, zero fees, it exists
// only to carry the offset associations of a credit-note application.
type Payment struct {
	shared.BaseAggregateRoot
	SubjectID    uuid.UUID         `gorm:"type:uuid;not null;index"`
	Date         valueobject.Date  `gorm:"type:date;not null;index"`
	Modality     billing.Modality  `gorm:"type:varchar(20);not null"`
	Direction    Direction         `gorm:"type:varchar(15);not null"`
	Total        valueobject.Money `gorm:"type:decimal(12,2);not null"`
	Accessories  valueobject.Money `gorm:"type:decimal(12,2);not null"`
	Associations []Association     `gorm:"foreignKey:PaymentID;references:ID"`
}

// TableName returns the table name for GORM
func (Payment) TableName() string {
	return "payments"
}

// NewPayment creates a real cash payment
func NewPayment(
	subjectID uuid.UUID,
	date valueobject.Date,
	modality billing.Modality,
	direction Direction,
	total valueobject.Money,
	accessories valueobject.Money,
) (*Payment, error) {
	if subjectID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SUBJECT", "Subject ID cannot be empty")
	}
	if date.IsZero() {
		return nil, shared.NewDomainError("INVALID_DATE", "Payment date must be a valid calendar date")
	}
	if !modality.IsValid() || modality.IsVirtual() {
		return nil, shared.NewDomainError("INVALID_MODALITY", "Payment modality is not valid")
	}
	if !direction.IsValid() {
		return nil, shared.NewDomainError("INVALID_DIRECTION", "Payment direction is not valid")
	}
	if total.IsNegative() || accessories.IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payment amounts cannot be negative")
	}
	if accessories.GreaterThan(total) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Accessory fees cannot exceed the payment total")
	}

	return &Payment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		SubjectID:         subjectID,
		Date:              date,
		Modality:          modality,
		Direction:         direction,
		Total:             total,
		Accessories:       accessories,
	}, nil
}

// NewVirtualPayment creates the zero-total payment that carries the offset
// associations of one credit-note application.
func NewVirtualPayment(subjectID uuid.UUID, date valueobject.Date) (*Payment, error) {
	if subjectID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SUBJECT", "Subject ID cannot be empty")
	}
	if date.IsZero() {
		return nil, shared.NewDomainError("INVALID_DATE", "Payment date must be a valid calendar date")
	}
	return &Payment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		SubjectID:         subjectID,
		Date:              date,
		Modality:          billing.ModalityNoteCreditApplied,
		Direction:         DirectionReceipt,
		Total:             valueobject.Zero(),
		Accessories:       valueobject.Zero(),
	}, nil
}

// IsVirtual returns true for credit-note carrier payments
func (p *Payment) IsVirtual() bool {
	return p.Modality.IsVirtual()
}

// Associate appends a PAYMENT-kind association, guarding the invariant that
// cash associations never exceed the payment total.
func (p *Payment) Associate(documentID uuid.UUID, amount valueobject.Money) error {
	if documentID == uuid.Nil {
		return shared.NewDomainError("INVALID_DOCUMENT", "Document ID cannot be empty")
	}
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Association amount must be positive")
	}
	if p.IsVirtual() {
		return shared.NewDomainError("INVALID_STATE", "Virtual payments only carry credit-note offsets")
	}
	if p.AllocatedTotal().Add(amount).Sub(p.Total).IsPositive() {
		return shared.ErrResidualExceeded
	}
	p.Associations = append(p.Associations, Association{
		BaseEntity: shared.NewBaseEntity(),
		PaymentID:  p.ID,
		DocumentID: documentID,
		Kind:       KindPayment,
		Amount:     amount,
	})
	return nil
}

// AssociateOffset writes the symmetric pair of CREDIT_NOTE_OFFSET rows for
// one credit-note application: one on the consuming invoice, one on the
// consumed credit note, both for the same amount.
func (p *Payment) AssociateOffset(invoiceDocumentID, creditNoteDocumentID uuid.UUID, amount valueobject.Money) error {
	if !p.IsVirtual() {
		return shared.NewDomainError("INVALID_STATE", "Offset associations belong to virtual payments")
	}
	if invoiceDocumentID == uuid.Nil || creditNoteDocumentID == uuid.Nil {
		return shared.NewDomainError("INVALID_DOCUMENT", "Document IDs cannot be empty")
	}
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Offset amount must be positive")
	}
	cn := creditNoteDocumentID
	p.Associations = append(p.Associations,
		Association{
			BaseEntity:   shared.NewBaseEntity(),
			PaymentID:    p.ID,
			DocumentID:   invoiceDocumentID,
			Kind:         KindCreditNoteOffset,
			Amount:       amount,
			CreditNoteID: &cn,
		},
		Association{
			BaseEntity:   shared.NewBaseEntity(),
			PaymentID:    p.ID,
			DocumentID:   creditNoteDocumentID,
			Kind:         KindCreditNoteOffset,
			Amount:       amount,
			CreditNoteID: &cn,
		},
	)
	return nil
}

// AllocatedTotal sums the PAYMENT-kind associations
func (p *Payment) AllocatedTotal() valueobject.Money {
	sum := valueobject.Zero()
	for _, a := range p.Associations {
		if a.Kind == KindPayment {
			sum = sum.Add(a.Amount)
		}
	}
	return sum
}

// UnallocatedAmount is the overpayment retained on the payment: cash beyond
// the selected schedules does not spawn further associations.
func (p *Payment) UnallocatedAmount() valueobject.Money {
	return p.Total.Sub(p.Accessories).Sub(p.AllocatedTotal())
}
