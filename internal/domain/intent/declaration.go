package intent

import (
	"fmt"
	"strings"

	"github.com/gestionale/backend/internal/domain/shared"
	"github.com/gestionale/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// Declaration is a declaration of intent: it authorizes VAT-zero-rated
// supply to a subject up to a plafond ceiling.
type Declaration struct {
	shared.BaseAggregateRoot
	SubjectID uuid.UUID         `gorm:"type:uuid;not null;index"`
	Protocol  string            `gorm:"type:varchar(50);not null;uniqueIndex"`
	Date      valueobject.Date  `gorm:"type:date;not null"`
	Plafond   valueobject.Money `gorm:"type:decimal(12,2);not null"`
	Consumed  valueobject.Money `gorm:"type:decimal(12,2);not null"`
}

// TableName returns the table name for GORM
func (Declaration) TableName() string {
	return "intent_declarations"
}

// Consumption records the plafond consumed by one linked document
type Consumption struct {
	shared.BaseEntity
	DeclarationID uuid.UUID         `gorm:"type:uuid;not null;index"`
	DocumentID    uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex"`
	Amount        valueobject.Money `gorm:"type:decimal(12,2);not null"`
}

// TableName returns the table name for GORM
func (Consumption) TableName() string {
	return "intent_consumptions"
}

// NewDeclaration creates a declaration of intent
func NewDeclaration(subjectID uuid.UUID, protocol string, date valueobject.Date, plafond valueobject.Money) (*Declaration, error) {
	if subjectID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SUBJECT", "Subject ID cannot be empty")
	}
	protocol = strings.ToUpper(strings.TrimSpace(protocol))
	if protocol == "" {
		return nil, shared.NewDomainError("INVALID_PROTOCOL", "Declaration protocol cannot be empty")
	}
	if date.IsZero() {
		return nil, shared.NewDomainError("INVALID_DATE", "Declaration date must be a valid calendar date")
	}
	if !plafond.IsPositive() {
		return nil, shared.NewDomainError("INVALID_PLAFOND", "Plafond must be positive")
	}
	return &Declaration{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		SubjectID:         subjectID,
		Protocol:          protocol,
		Date:              date,
		Plafond:           plafond,
		Consumed:          valueobject.Zero(),
	}, nil
}

// Residual returns the plafond still available
func (d *Declaration) Residual() valueobject.Money {
	return d.Plafond.Sub(d.Consumed)
}

// Consume books taxable base against the plafond, producing the consumption
// row for the linked document.
func (d *Declaration) Consume(documentID uuid.UUID, amount valueobject.Money) (*Consumption, error) {
	if documentID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_DOCUMENT", "Document ID cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Consumption amount must be positive")
	}
	if amount.GreaterThan(d.Residual()) {
		return nil, shared.NewDomainError("PLAFOND_EXCEEDED",
			fmt.Sprintf("Consumption %s exceeds residual plafond %s", amount, d.Residual()))
	}
	d.Consumed = d.Consumed.Add(amount)
	d.IncrementVersion()
	return &Consumption{
		BaseEntity:    shared.NewBaseEntity(),
		DeclarationID: d.ID,
		DocumentID:    documentID,
		Amount:        amount,
	}, nil
}

// Release returns previously consumed plafond when a linked document is
// deleted.
func (d *Declaration) Release(amount valueobject.Money) error {
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Release amount must be positive")
	}
	if amount.GreaterThan(d.Consumed) {
		return shared.NewDomainError("INVALID_AMOUNT", "Cannot release more than was consumed")
	}
	d.Consumed = d.Consumed.Sub(amount)
	d.IncrementVersion()
	return nil
}
