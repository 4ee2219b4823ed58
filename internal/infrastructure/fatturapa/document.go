package fatturapa

import "encoding/xml"

// XML mapping of the FatturaPA 1.2 tract, limited to the elements the
// importer consumes. Field names follow the tract's element names.

type fatturaElettronica struct {
	XMLName xml.Name             `xml:"FatturaElettronica"`
	Header  fatturaHeader        `xml:"FatturaElettronicaHeader"`
	Bodies  []fatturaElettronicaBody `xml:"FatturaElettronicaBody"`
}

type fatturaHeader struct {
	CedentePrestatore      parteContraente `xml:"CedentePrestatore"`
	CessionarioCommittente parteContraente `xml:"CessionarioCommittente"`
}

type parteContraente struct {
	DatiAnagrafici datiAnagrafici `xml:"DatiAnagrafici"`
	Sede           sede           `xml:"Sede"`
}

type datiAnagrafici struct {
	IdFiscaleIVA  idFiscale  `xml:"IdFiscaleIVA"`
	CodiceFiscale string     `xml:"CodiceFiscale"`
	Anagrafica    anagrafica `xml:"Anagrafica"`
}

type idFiscale struct {
	IdPaese  string `xml:"IdPaese"`
	IdCodice string `xml:"IdCodice"`
}

type anagrafica struct {
	Denominazione string `xml:"Denominazione"`
	Nome          string `xml:"Nome"`
	Cognome       string `xml:"Cognome"`
}

type sede struct {
	Indirizzo string `xml:"Indirizzo"`
	CAP       string `xml:"CAP"`
	Comune    string `xml:"Comune"`
	Provincia string `xml:"Provincia"`
	Nazione   string `xml:"Nazione"`
}

type fatturaElettronicaBody struct {
	DatiGenerali    datiGenerali    `xml:"DatiGenerali"`
	DatiBeniServizi datiBeniServizi `xml:"DatiBeniServizi"`
	DatiPagamento   []datiPagamento `xml:"DatiPagamento"`
}

type datiGenerali struct {
	DatiGeneraliDocumento datiGeneraliDocumento `xml:"DatiGeneraliDocumento"`
}

type datiGeneraliDocumento struct {
	TipoDocumento          string `xml:"TipoDocumento"`
	Data                   string `xml:"Data"`
	Numero                 string `xml:"Numero"`
	ImportoTotaleDocumento string `xml:"ImportoTotaleDocumento"`
}

type datiBeniServizi struct {
	DettaglioLinee []dettaglioLinea `xml:"DettaglioLinee"`
	DatiRiepilogo  []datiRiepilogo  `xml:"DatiRiepilogo"`
}

type dettaglioLinea struct {
	TipoCessionePrestazione string `xml:"TipoCessionePrestazione"`
	Descrizione             string `xml:"Descrizione"`
}

type datiRiepilogo struct {
	AliquotaIVA       string `xml:"AliquotaIVA"`
	Natura            string `xml:"Natura"`
	ImponibileImporto string `xml:"ImponibileImporto"`
}

type datiPagamento struct {
	DettaglioPagamento []dettaglioPagamento `xml:"DettaglioPagamento"`
}

type dettaglioPagamento struct {
	ModalitaPagamento      string `xml:"ModalitaPagamento"`
	DataScadenzaPagamento  string `xml:"DataScadenzaPagamento"`
	ImportoPagamento       string `xml:"ImportoPagamento"`
}
