package billing

// Modality represents how money moves for a schedule or a payment
type Modality string

const (
	ModalityCash              Modality = "CASH"
	ModalityBankTransfer      Modality = "BANK_TRANSFER"
	ModalityCheck             Modality = "CHECK"
	ModalityRID               Modality = "RID"
	ModalityRiba              Modality = "RIBA"
	ModalitySEPA              Modality = "SEPA"
	ModalityPagoPA            Modality = "PAGO_PA"
	ModalityNoteCreditApplied Modality = "NOTE_CREDIT_APPLIED"
)

// IsValid checks if the modality is known
func (m Modality) IsValid() bool {
	switch m {
	case ModalityCash, ModalityBankTransfer, ModalityCheck, ModalityRID,
		ModalityRiba, ModalitySEPA, ModalityPagoPA, ModalityNoteCreditApplied:
		return true
	}
	return false
}

// String returns the string representation of Modality
func (m Modality) String() string {
	return string(m)
}

// IsVirtual returns true for the bookkeeping-only modality that carries
// credit-note applications; such payments always have a zero total.
func (m Modality) IsVirtual() bool {
	return m == ModalityNoteCreditApplied
}

// fatturaPAModality maps ModalitaPagamento codes (FatturaPA 1.2) to modalities.
// Codes outside the map fall back to BANK_TRANSFER.
var fatturaPAModality = map[string]Modality{
	"MP01": ModalityCash,
	"MP02": ModalityCheck,
	"MP03": ModalityCheck, // assegno circolare
	"MP05": ModalityBankTransfer,
	"MP10": ModalityRID,
	"MP11": ModalityRID,
	"MP12": ModalityRiba,
	"MP19": ModalitySEPA,
	"MP20": ModalitySEPA,
	"MP21": ModalitySEPA,
	"MP23": ModalityPagoPA,
}

// ModalityFromFatturaPA resolves a ModalitaPagamento code
func ModalityFromFatturaPA(code string) Modality {
	if m, ok := fatturaPAModality[code]; ok {
		return m
	}
	return ModalityBankTransfer
}
