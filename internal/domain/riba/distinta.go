package riba

import (
	"strings"

	"github.com/gestionale/backend/internal/domain/shared"
	"github.com/gestionale/backend/internal/domain/shared/valueobject"
)

// Distinta is a batch of RiBa items presented to a bank for collection
type Distinta struct {
	shared.BaseAggregateRoot
	Number string           `gorm:"type:varchar(20);not null;uniqueIndex"`
	Date   valueobject.Date `gorm:"type:date;not null"`
	Bank   string           `gorm:"type:varchar(100);not null"`
}

// TableName returns the table name for GORM
func (Distinta) TableName() string {
	return "distinte"
}

// NewDistinta creates a distinta header
func NewDistinta(number string, date valueobject.Date, bank string) (*Distinta, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, shared.NewDomainError("INVALID_NUMBER", "Distinta number cannot be empty")
	}
	if date.IsZero() {
		return nil, shared.NewDomainError("INVALID_DATE", "Distinta date must be a valid calendar date")
	}
	bank = strings.ToUpper(strings.TrimSpace(bank))
	if bank == "" {
		return nil, shared.NewDomainError("INVALID_BANK", "Distinta bank cannot be empty")
	}
	return &Distinta{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Number:            number,
		Date:              date,
		Bank:              bank,
	}, nil
}

// Rename updates the distinta header fields; callers restamp the attached
// items with the new metadata.
func (d *Distinta) Rename(number string, date valueobject.Date, bank string) error {
	number = strings.TrimSpace(number)
	if number == "" {
		return shared.NewDomainError("INVALID_NUMBER", "Distinta number cannot be empty")
	}
	if date.IsZero() {
		return shared.NewDomainError("INVALID_DATE", "Distinta date must be a valid calendar date")
	}
	bank = strings.ToUpper(strings.TrimSpace(bank))
	if bank == "" {
		return shared.NewDomainError("INVALID_BANK", "Distinta bank cannot be empty")
	}
	d.Number = number
	d.Date = date
	d.Bank = bank
	d.IncrementVersion()
	return nil
}
