package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/gestionale/backend/internal/domain/anagrafica"
	"github.com/gestionale/backend/internal/domain/billing"
	"github.com/gestionale/backend/internal/domain/payment"
	"github.com/gestionale/backend/internal/domain/shared/valueobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormReportRepository_OverdueClients(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormReportRepository(db)
	ctx := context.Background()

	subject := seedSubject(t, db, "C0001", "Acme", anagrafica.SubjectKindClient)
	pastDue := valueobject.Today().AddDays(-10)
	future := valueobject.Today().AddDays(30)

	overdue := seedInvoice(t, db, subject, "1", 100, pastDue, billing.ModalityBankTransfer)
	seedInvoice(t, db, subject, "2", 500, future, billing.ModalityBankTransfer)

	cash, err := payment.NewPayment(subject.ID, valueobject.Today(),
		billing.ModalityBankTransfer, payment.DirectionReceipt, money(40), money(0))
	require.NoError(t, err)
	require.NoError(t, cash.Associate(overdue.ID, money(40)))
	require.NoError(t, db.Create(cash).Error)

	positions, err := repo.OverdueClients(ctx)
	require.NoError(t, err)
	require.Len(t, positions, 1)

	pos := positions[0]
	assert.Equal(t, "C0001", pos.SubjectCode)
	assert.Equal(t, 1, pos.OverdueCount, "future schedules do not count")
	assert.Equal(t, "100.00", pos.TotalDue.String())
	assert.Equal(t, "40.00", pos.TotalPaid.String())
	assert.Equal(t, "60.00", pos.OverdueBalance.String())
	assert.Equal(t, pastDue.String(), pos.OldestDueDate.String())
}

func TestGormReportRepository_OverdueClients_IgnoresFutureDocumentPayments(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormReportRepository(db)
	ctx := context.Background()

	subject := seedSubject(t, db, "C0001", "Acme", anagrafica.SubjectKindClient)
	seedInvoice(t, db, subject, "1", 100, valueobject.Today().AddDays(-10), billing.ModalityBankTransfer)
	future := seedInvoice(t, db, subject, "2", 200, valueobject.Today().AddDays(30), billing.ModalityBankTransfer)

	cash, err := payment.NewPayment(subject.ID, valueobject.Today(),
		billing.ModalityBankTransfer, payment.DirectionReceipt, money(200), money(0))
	require.NoError(t, err)
	require.NoError(t, cash.Associate(future.ID, money(200)))
	require.NoError(t, db.Create(cash).Error)

	positions, err := repo.OverdueClients(ctx)
	require.NoError(t, err)
	require.Len(t, positions, 1)

	pos := positions[0]
	assert.Equal(t, "100.00", pos.TotalDue.String())
	assert.Equal(t, "0.00", pos.TotalPaid.String(), "payments on non-overdue documents do not count")
	assert.Equal(t, "100.00", pos.OverdueBalance.String())
}

func TestGormReportRepository_OverdueSuppliers(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormReportRepository(db)
	ctx := context.Background()

	supplier := seedSubject(t, db, "F0001", "Fornitore", anagrafica.SubjectKindSupplier)
	pastDue := valueobject.Today().AddDays(-5)

	doc, err := billing.NewDocument(
		supplier.ID, "77", "FATTURA ACQUISTO", billing.ClassPurchaseInvoice,
		pastDue.AddDays(-30), pastDue.AddDays(-30),
		money(-200), money(-200),
		[]billing.ScheduleInput{{DueDate: pastDue, Modality: billing.ModalityBankTransfer, Amount: money(-200)}},
	)
	require.NoError(t, err)
	require.NoError(t, db.Create(doc).Error)

	positions, err := repo.OverdueSuppliers(ctx)
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, "200.00", positions[0].TotalDue.String())
	assert.Equal(t, "200.00", positions[0].OverdueBalance.String())

	disbursement, err := payment.NewPayment(supplier.ID, valueobject.Today(),
		billing.ModalityBankTransfer, payment.DirectionDisbursement, money(50), money(0))
	require.NoError(t, err)
	require.NoError(t, disbursement.Associate(doc.ID, money(50)))
	require.NoError(t, db.Create(disbursement).Error)

	positions, err = repo.OverdueSuppliers(ctx)
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, "50.00", positions[0].TotalPaid.String())
	assert.Equal(t, "150.00", positions[0].OverdueBalance.String())

	clients, err := repo.OverdueClients(ctx)
	require.NoError(t, err)
	assert.Empty(t, clients, "purchase invoices never show on the client side")
}

func TestGormReportRepository_Movements(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormReportRepository(db)
	ctx := context.Background()

	subject := seedSubject(t, db, "C0001", "Acme", anagrafica.SubjectKindClient)
	invoice := seedInvoice(t, db, subject, "1", 100, date(2024, time.March, 31), billing.ModalityBankTransfer)
	note := seedCreditNote(t, db, subject, "NC1", 20, date(2024, time.April, 1))

	cash, err := payment.NewPayment(subject.ID, date(2024, time.April, 10),
		billing.ModalityBankTransfer, payment.DirectionReceipt, money(50), money(0))
	require.NoError(t, err)
	require.NoError(t, cash.Associate(invoice.ID, money(50)))
	require.NoError(t, db.Create(cash).Error)

	virtual, err := payment.NewVirtualPayment(subject.ID, date(2024, time.April, 12))
	require.NoError(t, err)
	require.NoError(t, virtual.AssociateOffset(invoice.ID, note.ID, money(20)))
	require.NoError(t, db.Create(virtual).Error)

	movements, err := repo.Movements(ctx, subject.ID)
	require.NoError(t, err)
	// invoice row, credit-note row, payment row, one offset row on the
	// invoice side only
	require.Len(t, movements, 4)

	assert.Equal(t, "100.00", movements[0].Debit.String())
	assert.Equal(t, "0.00", movements[0].Credit.String())

	assert.Equal(t, "20.00", movements[1].Credit.String(), "credit note credits the account")

	assert.Equal(t, "50.00", movements[2].Credit.String())

	assert.Equal(t, string(billing.ModalityNoteCreditApplied), movements[3].Modality)
	assert.Equal(t, "20.00", movements[3].Credit.String())
}

func TestGormReportRepository_AccountCard(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormReportRepository(db)
	ctx := context.Background()

	subject := seedSubject(t, db, "C0001", "Acme", anagrafica.SubjectKindClient)
	invoice := seedInvoice(t, db, subject, "1", 100, date(2024, time.March, 31), billing.ModalityBankTransfer)

	cash, err := payment.NewPayment(subject.ID, date(2024, time.April, 10),
		billing.ModalityBankTransfer, payment.DirectionReceipt, money(100), money(0))
	require.NoError(t, err)
	require.NoError(t, cash.Associate(invoice.ID, money(100)))
	require.NoError(t, db.Create(cash).Error)

	entries, err := repo.AccountCard(ctx, subject.ID, date(2024, time.May, 1))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entry := entries[0]
	assert.Equal(t, "0001", entry.Number)
	assert.Equal(t, "0.00", entry.Residual.String())
	assert.Equal(t, string(billing.StatusPaid), entry.Status)
}
