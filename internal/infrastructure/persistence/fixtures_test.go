package persistence

import (
	"testing"
	"time"

	"github.com/gestionale/backend/internal/domain/anagrafica"
	"github.com/gestionale/backend/internal/domain/billing"
	"github.com/gestionale/backend/internal/domain/shared/valueobject"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func money(amount float64) valueobject.Money {
	return valueobject.NewMoneyFromFloat(amount)
}

func date(year int, month time.Month, day int) valueobject.Date {
	return valueobject.NewDate(year, month, day)
}

func seedSubject(t *testing.T, db *gorm.DB, code, name string, kind anagrafica.SubjectKind) *anagrafica.Subject {
	t.Helper()
	subject, err := anagrafica.NewSubject(code, name, kind)
	require.NoError(t, err)
	require.NoError(t, db.Create(subject).Error)
	return subject
}

// seedInvoice creates a sale invoice with a single schedule
func seedInvoice(t *testing.T, db *gorm.DB, subject *anagrafica.Subject, number string, total float64, due valueobject.Date, modality billing.Modality) *billing.Document {
	t.Helper()
	doc, err := billing.NewDocument(
		subject.ID, number, "FATTURA", billing.ClassSaleInvoice,
		due.AddDays(-30), due.AddDays(-30),
		money(total), money(total),
		[]billing.ScheduleInput{{DueDate: due, Modality: modality, Amount: money(total)}},
	)
	require.NoError(t, err)
	require.NoError(t, db.Create(doc).Error)
	return doc
}

// seedCreditNote creates a client credit note with one negative schedule
func seedCreditNote(t *testing.T, db *gorm.DB, subject *anagrafica.Subject, number string, total float64, docDate valueobject.Date) *billing.Document {
	t.Helper()
	doc, err := billing.NewDocument(
		subject.ID, number, "NOTA DI CREDITO", billing.ClassClientCreditNote,
		docDate, docDate,
		money(-total), money(-total),
		[]billing.ScheduleInput{{DueDate: docDate, Modality: billing.ModalityBankTransfer, Amount: money(-total)}},
	)
	require.NoError(t, err)
	require.NoError(t, db.Create(doc).Error)
	return doc
}
