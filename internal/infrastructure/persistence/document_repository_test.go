package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/gestionale/backend/internal/domain/anagrafica"
	"github.com/gestionale/backend/internal/domain/billing"
	"github.com/gestionale/backend/internal/domain/payment"
	"github.com/gestionale/backend/internal/domain/riba"
	"github.com/gestionale/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormDocumentRepository_FindBySubjectAndNumber(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormDocumentRepository(db)
	ctx := context.Background()

	subject := seedSubject(t, db, "C0001", "Acme", anagrafica.SubjectKindClient)
	seedInvoice(t, db, subject, "12/A", 100, date(2024, time.March, 31), billing.ModalityBankTransfer)

	// the stored number is normalized, so the raw form must still match
	found, err := repo.FindBySubjectAndNumber(ctx, subject.ID, "12/A")
	require.NoError(t, err)
	assert.Equal(t, "0012/A", found.Number)
	require.Len(t, found.Schedules, 1)

	_, err = repo.FindBySubjectAndNumber(ctx, subject.ID, "99")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormDocumentRepository_Allocations(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormDocumentRepository(db)
	ctx := context.Background()

	subject := seedSubject(t, db, "C0001", "Acme", anagrafica.SubjectKindClient)
	invoice := seedInvoice(t, db, subject, "1", 100, date(2024, time.March, 31), billing.ModalityBankTransfer)
	note := seedCreditNote(t, db, subject, "NC1", 20, date(2024, time.March, 1))

	cash, err := payment.NewPayment(subject.ID, date(2024, time.April, 2),
		billing.ModalityBankTransfer, payment.DirectionReceipt, money(50), money(0))
	require.NoError(t, err)
	require.NoError(t, cash.Associate(invoice.ID, money(50)))
	require.NoError(t, db.Create(cash).Error)

	virtual, err := payment.NewVirtualPayment(subject.ID, date(2024, time.April, 2))
	require.NoError(t, err)
	require.NoError(t, virtual.AssociateOffset(invoice.ID, note.ID, money(20)))
	require.NoError(t, db.Create(virtual).Error)

	totals, err := repo.Allocations(ctx, []uuid.UUID{invoice.ID, note.ID})
	require.NoError(t, err)

	assert.Equal(t, "50.00", totals[invoice.ID].Paid.String())
	assert.Equal(t, "20.00", totals[invoice.ID].Offset.String())
	assert.Equal(t, "0.00", totals[note.ID].Paid.String())
	assert.Equal(t, "20.00", totals[note.ID].Offset.String())

	// residual closes: 100 - 50 - 20 = 30
	inv, err := repo.FindByID(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, "30.00", inv.Residual(totals[invoice.ID].Paid, totals[invoice.ID].Offset).String())
}

func TestGormDocumentRepository_OpenCreditNotes(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormDocumentRepository(db)
	ctx := context.Background()

	subject := seedSubject(t, db, "C0001", "Acme", anagrafica.SubjectKindClient)
	invoice := seedInvoice(t, db, subject, "1", 100, date(2024, time.March, 31), billing.ModalityBankTransfer)
	open := seedCreditNote(t, db, subject, "NC1", 30, date(2024, time.February, 1))
	spent := seedCreditNote(t, db, subject, "NC2", 20, date(2024, time.January, 1))

	virtual, err := payment.NewVirtualPayment(subject.ID, date(2024, time.April, 2))
	require.NoError(t, err)
	require.NoError(t, virtual.AssociateOffset(invoice.ID, spent.ID, money(20)))
	require.NoError(t, db.Create(virtual).Error)

	notes, err := repo.OpenCreditNotes(ctx, subject.ID)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, open.ID, notes[0].ID)
}

func TestGormDocumentRepository_PendingIntent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormDocumentRepository(db)
	ctx := context.Background()

	subject := seedSubject(t, db, "C0001", "Acme", anagrafica.SubjectKindClient)
	flagged := seedInvoice(t, db, subject, "1", 100, date(2024, time.March, 31), billing.ModalityBankTransfer)
	seedInvoice(t, db, subject, "2", 200, date(2024, time.March, 31), billing.ModalityBankTransfer)

	flagged.FlagIntent()
	require.NoError(t, repo.Update(ctx, flagged))

	pending, err := repo.PendingIntent(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, flagged.ID, pending[0].ID)
}

func TestGormDocumentRepository_DeleteCascades(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormDocumentRepository(db)
	ctx := context.Background()

	subject := seedSubject(t, db, "C0001", "Acme", anagrafica.SubjectKindClient)
	invoice := seedInvoice(t, db, subject, "1", 100, date(2024, time.March, 31), billing.ModalityRiba)

	item, err := riba.NewItem(invoice.Schedules[0].ID, invoice.ID)
	require.NoError(t, err)
	require.NoError(t, db.Create(item).Error)

	cash, err := payment.NewPayment(subject.ID, date(2024, time.April, 2),
		billing.ModalityBankTransfer, payment.DirectionReceipt, money(40), money(0))
	require.NoError(t, err)
	require.NoError(t, cash.Associate(invoice.ID, money(40)))
	require.NoError(t, db.Create(cash).Error)

	require.NoError(t, repo.Delete(ctx, invoice.ID))

	_, err = repo.FindByID(ctx, invoice.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	var scheduleCount, assocCount, itemCount int64
	require.NoError(t, db.Model(&billing.Schedule{}).Where("document_id = ?", invoice.ID).Count(&scheduleCount).Error)
	require.NoError(t, db.Model(&payment.Association{}).Where("document_id = ?", invoice.ID).Count(&assocCount).Error)
	require.NoError(t, db.Model(&riba.Item{}).Where("document_id = ?", invoice.ID).Count(&itemCount).Error)
	assert.Zero(t, scheduleCount)
	assert.Zero(t, assocCount)
	assert.Zero(t, itemCount)

	// the payment itself survives; only its associations go
	var paymentCount int64
	require.NoError(t, db.Model(&payment.Payment{}).Count(&paymentCount).Error)
	assert.EqualValues(t, 1, paymentCount)
}
