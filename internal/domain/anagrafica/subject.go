package anagrafica

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gestionale/backend/internal/domain/shared"
)

// SubjectKind represents which side of the ledger a subject sits on
type SubjectKind string

const (
	SubjectKindClient   SubjectKind = "CLIENT"
	SubjectKindSupplier SubjectKind = "SUPPLIER"
	SubjectKindBoth     SubjectKind = "BOTH"
)

// IsValid checks if the kind is a valid SubjectKind
func (k SubjectKind) IsValid() bool {
	switch k {
	case SubjectKindClient, SubjectKindSupplier, SubjectKindBoth:
		return true
	}
	return false
}

// String returns the string representation of SubjectKind
func (k SubjectKind) String() string {
	return string(k)
}

// CodePrefix returns the business-code prefix for the kind ("C" or "F").
// BOTH subjects keep the prefix they were first created with.
func (k SubjectKind) CodePrefix() string {
	if k == SubjectKindSupplier {
		return "F"
	}
	return "C"
}

// DomesticCountry is the country code of domestic parties
const DomesticCountry = "IT"

var subjectCodePattern = regexp.MustCompile(`^[CF]\d{4}$`)

// FormatCode builds a business code from a prefix and a progressive number,
// zero-padded to four digits (C0001, F0042, ...)
func FormatCode(prefix string, n int) string {
	return fmt.Sprintf("%s%04d", prefix, n)
}

// ValidateCode checks that a business code has the Cxxxx/Fxxxx shape
func ValidateCode(code string) error {
	if !subjectCodePattern.MatchString(code) {
		return shared.NewDomainError("INVALID_SUBJECT_CODE", fmt.Sprintf("Subject code %q must match C/F followed by four digits", code))
	}
	return nil
}

// Subject is the aggregate root for a counterparty (client, supplier or both).
// Domestic subjects are identified by (VAT id, fiscal code); foreign subjects
// carry a NULL VAT id and are identified by (legal name, city).
type Subject struct {
	shared.BaseAggregateRoot
	Code          string      `gorm:"type:varchar(10);not null;uniqueIndex"`
	Name          string      `gorm:"type:varchar(200);not null;index:idx_subjects_name_city"`
	Kind          SubjectKind `gorm:"type:varchar(10);not null"`
	FiscalCode    string      `gorm:"type:varchar(16);index:idx_subjects_identity"`
	VATNumber     *string     `gorm:"type:varchar(28);index:idx_subjects_identity"`
	Country       string      `gorm:"type:varchar(2);not null;default:'IT'"`
	Address       string      `gorm:"type:varchar(200)"`
	City          string      `gorm:"type:varchar(100);index:idx_subjects_name_city"`
	Province      string      `gorm:"type:varchar(2)"`
	PostalCode    string      `gorm:"type:varchar(10)"`
	InvoiceType   string      `gorm:"type:varchar(50)"` // default document type for manual entry
	PaymentMethod string      `gorm:"type:varchar(10)"` // default payment modality code
	BankFees      bool        `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (Subject) TableName() string {
	return "subjects"
}

// NewSubject creates a new subject with a pre-allocated business code
func NewSubject(code, name string, kind SubjectKind) (*Subject, error) {
	if err := ValidateCode(code); err != nil {
		return nil, err
	}
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" {
		return nil, shared.NewDomainError("INVALID_SUBJECT_NAME", "Subject name cannot be empty")
	}
	if !kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_SUBJECT_KIND", "Subject kind is not valid")
	}

	return &Subject{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              code,
		Name:              name,
		Kind:              kind,
		Country:           DomesticCountry,
	}, nil
}

// IsForeign returns true for non-IT subjects
func (s *Subject) IsForeign() bool {
	return s.Country != "" && s.Country != DomesticCountry
}

// IsClient returns true if the subject can appear on the receivables side
func (s *Subject) IsClient() bool {
	return s.Kind == SubjectKindClient || s.Kind == SubjectKindBoth
}

// IsSupplier returns true if the subject can appear on the payables side
func (s *Subject) IsSupplier() bool {
	return s.Kind == SubjectKindSupplier || s.Kind == SubjectKindBoth
}

// Promote widens the subject kind when it is encountered on the other side
// of the ledger. Promotion only goes towards BOTH, never back.
func (s *Subject) Promote(encountered SubjectKind) bool {
	if !encountered.IsValid() || encountered == SubjectKindBoth {
		return false
	}
	if s.Kind == SubjectKindBoth || s.Kind == encountered {
		return false
	}
	s.Kind = SubjectKindBoth
	s.IncrementVersion()
	return true
}

// SetIdentity records the fiscal identifiers. A nil vat marks a foreign party.
func (s *Subject) SetIdentity(vatNumber *string, fiscalCode string) {
	if vatNumber != nil {
		v := strings.ToUpper(strings.TrimSpace(*vatNumber))
		s.VATNumber = &v
	} else {
		s.VATNumber = nil
	}
	s.FiscalCode = strings.ToUpper(strings.TrimSpace(fiscalCode))
}

// SetAddress records the address block, normalizing to upper case
func (s *Subject) SetAddress(address, city, province, postalCode, country string) {
	s.Address = strings.ToUpper(strings.TrimSpace(address))
	s.City = strings.ToUpper(strings.TrimSpace(city))
	s.Province = strings.ToUpper(strings.TrimSpace(province))
	s.PostalCode = strings.TrimSpace(postalCode)
	if c := strings.ToUpper(strings.TrimSpace(country)); c != "" {
		s.Country = c
	}
}

// MarkBankFees flags the subject as fee-bearing
func (s *Subject) MarkBankFees() {
	s.BankFees = true
}
