package fatturapa

import (
	"encoding/xml"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/gestionale/backend/internal/domain/shared/valueobject"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Supported TipoDocumento codes: plain invoice and deferred invoice.
const (
	TypeInvoice         = "TD01"
	TypeDeferredInvoice = "TD24"
)

// Party is the normalized counterparty block of an invoice
type Party struct {
	Country    string
	VATNumber  string // country prefix + code; empty for parties without a VAT id
	FiscalCode string
	Name       string
	Address    string
	City       string
	Province   string
	PostalCode string
}

// ScheduleRecord is one payment installment read from DatiPagamento
type ScheduleRecord struct {
	DueDate      valueobject.Date
	ModalityCode string // raw ModalitaPagamento (MPxx)
	Amount       valueobject.Money
}

// Invoice is the intermediate record the importer consumes
type Invoice struct {
	TypeCode   string
	Number     string
	Date       valueobject.Date
	Total      valueobject.Money
	TaxableSum valueobject.Money
	Supplier   Party // CedentePrestatore
	Customer   Party // CessionarioCommittente
	Schedules  []ScheduleRecord
	// Declaration of intent: at least one VAT summary with zero rate and a
	// Natura in the N3 family other than N3.1.
	HasDeclarationOfIntent bool
	DeclarationTaxable     valueobject.Money
	// BankFees marks a detail line of kind AC mentioning bank fees.
	BankFees bool
}

// Parser reads FatturaPA 1.2 XML files into intermediate invoice records
type Parser struct{}

// NewParser creates a Parser
func NewParser() *Parser {
	return &Parser{}
}

// ParseFile parses one already-unwrapped .xml file
func (p *Parser) ParseFile(path string) (*Invoice, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ParseError{File: path, Err: err}
	}
	defer f.Close()

	inv, err := p.Parse(f)
	if err != nil {
		var unsupported *UnsupportedTypeError
		if errors.As(err, &unsupported) {
			return nil, err
		}
		var parseErr *ParseError
		if errors.As(err, &parseErr) {
			parseErr.File = path
			return nil, parseErr
		}
		return nil, &ParseError{File: path, Err: err}
	}
	return inv, nil
}

// Parse decodes a FatturaPA document from a reader
func (p *Parser) Parse(r io.Reader) (*Invoice, error) {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = charsetReader

	var doc fatturaElettronica
	if err := decoder.Decode(&doc); err != nil {
		return nil, &ParseError{Err: err}
	}
	if len(doc.Bodies) == 0 {
		return nil, &ParseError{Err: errors.New("no FatturaElettronicaBody")}
	}
	body := doc.Bodies[0]

	typeCode := normalize(body.DatiGenerali.DatiGeneraliDocumento.TipoDocumento)
	if typeCode != TypeInvoice && typeCode != TypeDeferredInvoice {
		return nil, &UnsupportedTypeError{TypeCode: typeCode}
	}

	date, err := valueobject.ParseDate(body.DatiGenerali.DatiGeneraliDocumento.Data)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	total, err := parseAmount(body.DatiGenerali.DatiGeneraliDocumento.ImportoTotaleDocumento)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	number := normalize(body.DatiGenerali.DatiGeneraliDocumento.Numero)
	if number == "" {
		return nil, &ParseError{Err: errors.New("empty document number")}
	}

	inv := &Invoice{
		TypeCode: typeCode,
		Number:   number,
		Date:     date,
		Total:    total,
		Supplier: toParty(doc.Header.CedentePrestatore),
		Customer: toParty(doc.Header.CessionarioCommittente),
	}

	taxable := valueobject.Zero()
	for _, riep := range body.DatiBeniServizi.DatiRiepilogo {
		imponibile, err := parseAmount(riep.ImponibileImporto)
		if err != nil {
			return nil, &ParseError{Err: err}
		}
		taxable = taxable.Add(imponibile)

		rate, err := parseAmount(riep.AliquotaIVA)
		if err != nil {
			return nil, &ParseError{Err: err}
		}
		natura := normalize(riep.Natura)
		if rate.IsZero() && strings.HasPrefix(natura, "N3.") && natura != "N3.1" {
			if !inv.HasDeclarationOfIntent {
				inv.HasDeclarationOfIntent = true
				inv.DeclarationTaxable = imponibile
			}
		}
	}
	inv.TaxableSum = taxable

	for _, line := range body.DatiBeniServizi.DettaglioLinee {
		if normalize(line.TipoCessionePrestazione) == "AC" &&
			strings.Contains(strings.ToLower(line.Descrizione), "spese bancarie") {
			inv.BankFees = true
			break
		}
	}

	for _, dp := range body.DatiPagamento {
		for _, det := range dp.DettaglioPagamento {
			amount, err := parseAmount(det.ImportoPagamento)
			if err != nil {
				return nil, &ParseError{Err: err}
			}
			due, err := valueobject.ParseDate(det.DataScadenzaPagamento)
			if err != nil {
				// a missing due date falls back to the document date
				due = date
			}
			inv.Schedules = append(inv.Schedules, ScheduleRecord{
				DueDate:      due,
				ModalityCode: normalize(det.ModalitaPagamento),
				Amount:       amount,
			})
		}
	}
	if len(inv.Schedules) == 0 {
		// no DatiPagamento block: a single schedule due today by transfer
		inv.Schedules = []ScheduleRecord{{
			DueDate:      valueobject.Today(),
			ModalityCode: "MP05",
			Amount:       total,
		}}
	}

	return inv, nil
}

func toParty(p parteContraente) Party {
	party := Party{
		Country:    normalize(p.DatiAnagrafici.IdFiscaleIVA.IdPaese),
		FiscalCode: normalize(p.DatiAnagrafici.CodiceFiscale),
		Address:    normalize(p.Sede.Indirizzo),
		City:       normalize(p.Sede.Comune),
		Province:   normalize(p.Sede.Provincia),
		PostalCode: normalize(p.Sede.CAP),
	}
	if party.Country == "" {
		party.Country = normalize(p.Sede.Nazione)
	}
	if code := normalize(p.DatiAnagrafici.IdFiscaleIVA.IdCodice); code != "" {
		party.VATNumber = party.Country + code
	}
	if den := normalize(p.DatiAnagrafici.Anagrafica.Denominazione); den != "" {
		party.Name = den
	} else {
		party.Name = strings.TrimSpace(normalize(p.DatiAnagrafici.Anagrafica.Nome) + " " +
			normalize(p.DatiAnagrafici.Anagrafica.Cognome))
	}
	return party
}

// normalize upper-cases and trims every textual field before comparison or
// persistence.
func normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func parseAmount(s string) (valueobject.Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return valueobject.Zero(), nil
	}
	return valueobject.NewMoneyFromString(s)
}

// charsetReader decodes the legacy single-byte encodings some transmitters
// still declare; UTF-8 passes through.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(label) {
	case "utf-8", "":
		return input, nil
	case "iso-8859-1", "latin1":
		return transform.NewReader(input, charmap.ISO8859_1.NewDecoder()), nil
	case "windows-1252", "cp1252":
		return transform.NewReader(input, charmap.Windows1252.NewDecoder()), nil
	default:
		return nil, errors.New("unsupported charset " + label)
	}
}
