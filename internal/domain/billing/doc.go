// Package billing provides the document side of the ledger: invoices and
// credit notes with their payment schedules.
//
// This package implements the document bounded context, which is responsible for:
//   - Recording imported and manually entered documents with their schedules
//   - Normalizing document numbers for deduplication
//   - Deriving residuals and statuses from booked payment associations
//
// Key Aggregates:
//   - Document: An invoice or credit note with its schedules and class sign
//
// Value Objects:
//   - DocumentClass: Classification driving the ledger sign
//   - Modality: Payment modality, mapped from FatturaPA ModalitaPagamento codes
//
// The billing domain integrates with:
//   - Anagrafica domain: Every document belongs to a subject
//   - Payment domain: Associations against documents feed the residual formula
package billing
