package importing

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gestionale/backend/internal/domain/anagrafica"
	"github.com/gestionale/backend/internal/domain/billing"
	"github.com/gestionale/backend/internal/domain/riba"
	"github.com/gestionale/backend/internal/domain/shared"
	"github.com/gestionale/backend/internal/infrastructure/fatturapa"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Side selects which ledger side a month folder belongs to: issued invoices
// or received ones.
type Side string

const (
	SideSales     Side = "SALES"
	SidePurchases Side = "PURCHASES"
)

// IsValid checks if the side is a valid Side
func (s Side) IsValid() bool {
	return s == SideSales || s == SidePurchases
}

// counterpartyKind returns the subject kind the imported party plays
func (s Side) counterpartyKind() anagrafica.SubjectKind {
	if s == SidePurchases {
		return anagrafica.SubjectKindSupplier
	}
	return anagrafica.SubjectKindClient
}

// documentClass returns the document class of an invoice on this side
func (s Side) documentClass() billing.DocumentClass {
	if s == SidePurchases {
		return billing.ClassPurchaseInvoice
	}
	return billing.ClassSaleInvoice
}

// Service imports FatturaPA month folders into the ledger
type Service struct {
	parser    *fatturapa.Parser
	subjects  anagrafica.SubjectRepository
	documents billing.DocumentRepository
	items     riba.Repository
	root      string
	logger    *zap.Logger
}

// NewService creates an import Service rooted at the month-folder tree
func NewService(
	parser *fatturapa.Parser,
	subjects anagrafica.SubjectRepository,
	documents billing.DocumentRepository,
	items riba.Repository,
	root string,
	logger *zap.Logger,
) *Service {
	return &Service{
		parser:    parser,
		subjects:  subjects,
		documents: documents,
		items:     items,
		root:      root,
		logger:    logger,
	}
}

// ImportedInvoice is one successfully imported document
type ImportedInvoice struct {
	DocumentID  uuid.UUID `json:"document_id"`
	SubjectCode string    `json:"subject_code"`
	SubjectName string    `json:"subject_name"`
	Number      string    `json:"number"`
	Total       string    `json:"total"`
	File        string    `json:"file"`

	declarationPending bool
}

// FileError is one file the importer could not process
type FileError struct {
	File string `json:"file"`
	Err  error  `json:"-"`
}

func (e FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.File, e.Err)
}

// Result summarizes one import run. WithDeclaration lists the subset of
// Imported that carries a declaration of intent and waits for plafond
// linking.
type Result struct {
	Imported        []ImportedInvoice `json:"imported"`
	WithDeclaration []ImportedInvoice `json:"with_declaration"`
	Skipped         int               `json:"skipped"`
	Errors          []FileError       `json:"errors"`
}

// ImportMonth processes every .xml file under <root>/<YYYY>/<MM>. Each
// document commits on its own; a failing file is recorded and the run
// continues with the next one.
func (s *Service) ImportMonth(ctx context.Context, side Side, year, month int) (*Result, error) {
	if !side.IsValid() {
		return nil, shared.NewDomainError("INVALID_SIDE", "Import side must be SALES or PURCHASES")
	}
	if month < 1 || month > 12 {
		return nil, shared.NewDomainError("INVALID_MONTH", fmt.Sprintf("Month %d is out of range", month))
	}

	dir := filepath.Join(s.root, fmt.Sprintf("%04d", year), fmt.Sprintf("%02d", month))
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading month folder %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".xml") {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)

	result := &Result{}
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		imported, err := s.importFile(ctx, side, file)
		switch {
		case err == nil && imported == nil:
			result.Skipped++
		case err == nil:
			result.Imported = append(result.Imported, *imported)
			if imported.declarationPending {
				result.WithDeclaration = append(result.WithDeclaration, *imported)
			}
		default:
			var unsupported *fatturapa.UnsupportedTypeError
			if errors.As(err, &unsupported) {
				s.logger.Warn("unsupported document type",
					zap.String("file", filepath.Base(file)),
					zap.String("type", unsupported.TypeCode),
				)
				result.Skipped++
				continue
			}
			s.logger.Error("import failed",
				zap.String("file", filepath.Base(file)),
				zap.Error(err),
			)
			result.Errors = append(result.Errors, FileError{File: file, Err: err})
		}
	}

	s.logger.Info("month imported",
		zap.String("side", string(side)),
		zap.String("folder", dir),
		zap.Int("imported", len(result.Imported)),
		zap.Int("with_declaration", len(result.WithDeclaration)),
		zap.Int("skipped", result.Skipped),
		zap.Int("errors", len(result.Errors)),
	)
	return result, nil
}

// importFile parses and persists one invoice. A nil, nil return means the
// document was already present.
func (s *Service) importFile(ctx context.Context, side Side, file string) (*ImportedInvoice, error) {
	invoice, err := s.parser.ParseFile(file)
	if err != nil {
		return nil, err
	}

	party := invoice.Customer
	if side == SidePurchases {
		party = invoice.Supplier
	}

	subject, err := s.resolveSubject(ctx, side, party, invoice)
	if err != nil {
		return nil, err
	}

	if _, err := s.documents.FindBySubjectAndNumber(ctx, subject.ID, invoice.Number); err == nil {
		s.logger.Info("already present",
			zap.String("file", filepath.Base(file)),
			zap.String("subject", subject.Code),
			zap.String("number", invoice.Number),
		)
		return nil, nil
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	doc, err := s.buildDocument(side, subject, invoice)
	if err != nil {
		return nil, err
	}
	if err := s.documents.Create(ctx, doc); err != nil {
		return nil, err
	}

	if err := s.createRibaItems(ctx, doc); err != nil {
		// the document committed on its own; take it back out so the file
		// can be retried as a whole
		if delErr := s.documents.Delete(ctx, doc.ID); delErr != nil {
			s.logger.Error("orphan document left behind",
				zap.String("number", doc.Number),
				zap.Error(delErr),
			)
		}
		return nil, err
	}

	return &ImportedInvoice{
		DocumentID:         doc.ID,
		SubjectCode:        subject.Code,
		SubjectName:        subject.Name,
		Number:             doc.Number,
		Total:              doc.Total.String(),
		File:               filepath.Base(file),
		declarationPending: doc.IntentPending,
	}, nil
}

// resolveSubject finds or creates the counterparty and applies the
// promotion, bank-fee and default-modality side effects.
func (s *Service) resolveSubject(ctx context.Context, side Side, party fatturapa.Party, invoice *fatturapa.Invoice) (*anagrafica.Subject, error) {
	var subject *anagrafica.Subject
	var err error

	foreign := party.Country != "" && party.Country != anagrafica.DomesticCountry
	if foreign {
		subject, err = s.subjects.FindForeign(ctx, party.Name, party.City)
	} else {
		subject, err = s.subjects.FindDomestic(ctx, party.VATNumber, party.FiscalCode)
	}
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	kind := side.counterpartyKind()
	if subject == nil {
		subject, err = s.createSubject(ctx, kind, party, foreign)
		if err != nil {
			return nil, err
		}
	}

	dirty := subject.Promote(kind)
	if invoice.BankFees && !subject.BankFees {
		subject.MarkBankFees()
		dirty = true
	}
	if subject.PaymentMethod == "" && len(invoice.Schedules) > 0 {
		subject.PaymentMethod = invoice.Schedules[0].ModalityCode
		dirty = true
	}
	if dirty {
		if err := s.subjects.Update(ctx, subject); err != nil {
			return nil, err
		}
	}
	return subject, nil
}

// createSubject inserts a new party, retrying the code allocation once if a
// concurrent import grabbed the same progressive.
func (s *Service) createSubject(ctx context.Context, kind anagrafica.SubjectKind, party fatturapa.Party, foreign bool) (*anagrafica.Subject, error) {
	prefix := kind.CodePrefix()
	for attempt := 0; attempt < 2; attempt++ {
		code, err := s.subjects.NextCode(ctx, prefix)
		if err != nil {
			return nil, err
		}
		subject, err := anagrafica.NewSubject(code, party.Name, kind)
		if err != nil {
			return nil, err
		}
		if foreign {
			subject.SetIdentity(nil, party.FiscalCode)
		} else {
			vat := party.VATNumber
			subject.SetIdentity(&vat, party.FiscalCode)
		}
		subject.SetAddress(party.Address, party.City, party.Province, party.PostalCode, party.Country)

		err = s.subjects.Create(ctx, subject)
		if err == nil {
			s.logger.Info("subject created",
				zap.String("code", subject.Code),
				zap.String("name", subject.Name),
			)
			return subject, nil
		}
		if attempt == 0 && errors.Is(err, shared.ErrAlreadyExists) {
			continue
		}
		return nil, err
	}
	return nil, shared.ErrAlreadyExists
}

func (s *Service) buildDocument(side Side, subject *anagrafica.Subject, invoice *fatturapa.Invoice) (*billing.Document, error) {
	negate := side == SidePurchases

	total := invoice.Total
	if negate {
		total = total.Neg()
	}
	schedules := make([]billing.ScheduleInput, 0, len(invoice.Schedules))
	for _, rec := range invoice.Schedules {
		amount := rec.Amount
		if negate {
			amount = amount.Neg()
		}
		schedules = append(schedules, billing.ScheduleInput{
			DueDate:  rec.DueDate,
			Modality: billing.ModalityFromFatturaPA(rec.ModalityCode),
			Amount:   amount,
		})
	}

	doc, err := billing.NewDocument(
		subject.ID, invoice.Number, invoice.TypeCode, side.documentClass(),
		invoice.Date, invoice.Date,
		total, invoice.TaxableSum,
		schedules,
	)
	if err != nil {
		return nil, err
	}
	if invoice.HasDeclarationOfIntent {
		doc.FlagIntent()
	}
	return doc, nil
}

// createRibaItems inserts a TO_EMIT item for every RIBA schedule
func (s *Service) createRibaItems(ctx context.Context, doc *billing.Document) error {
	for _, schedule := range doc.Schedules {
		if schedule.Modality != billing.ModalityRiba {
			continue
		}
		item, err := riba.NewItem(schedule.ID, doc.ID)
		if err != nil {
			return err
		}
		if err := s.items.CreateItem(ctx, item); err != nil {
			return err
		}
	}
	return nil
}
