package reportapp

import (
	"context"
	"testing"
	"time"

	"github.com/gestionale/backend/internal/domain/anagrafica"
	"github.com/gestionale/backend/internal/domain/billing"
	"github.com/gestionale/backend/internal/domain/intent"
	"github.com/gestionale/backend/internal/domain/payment"
	"github.com/gestionale/backend/internal/domain/riba"
	"github.com/gestionale/backend/internal/domain/shared"
	"github.com/gestionale/backend/internal/domain/shared/valueobject"
	"github.com/gestionale/backend/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&anagrafica.Subject{},
		&billing.Document{},
		&billing.Schedule{},
		&payment.Payment{},
		&payment.Association{},
		&riba.Distinta{},
		&riba.Item{},
		&intent.Declaration{},
		&intent.Consumption{},
	))

	svc := NewService(
		persistence.NewGormReportRepository(db),
		persistence.NewGormDocumentRepository(db),
		persistence.NewGormIntentRepository(db),
		zap.NewNop(),
	)
	return svc, db
}

func money(amount float64) valueobject.Money {
	return valueobject.NewMoneyFromFloat(amount)
}

func date(year int, month time.Month, day int) valueobject.Date {
	return valueobject.NewDate(year, month, day)
}

func seedFlaggedInvoice(t *testing.T, db *gorm.DB, subject *anagrafica.Subject, number string, taxable float64) *billing.Document {
	t.Helper()
	total := taxable // export invoices carry no VAT
	doc, err := billing.NewDocument(
		subject.ID, number, "FATTURA", billing.ClassSaleInvoice,
		date(2025, 2, 1), date(2025, 2, 1),
		money(total), money(taxable),
		[]billing.ScheduleInput{{DueDate: date(2025, 3, 31), Modality: billing.ModalityBankTransfer, Amount: money(total)}},
	)
	require.NoError(t, err)
	doc.FlagIntent()
	require.NoError(t, db.Create(doc).Error)
	return doc
}

func TestPendingIntent(t *testing.T) {
	svc, db := setupService(t)
	ctx := context.Background()

	subject, err := anagrafica.NewSubject("C0001", "EXPORT SRL", anagrafica.SubjectKindClient)
	require.NoError(t, err)
	require.NoError(t, db.Create(subject).Error)

	flagged := seedFlaggedInvoice(t, db, subject, "0010", 1000)

	pending, err := svc.PendingIntent(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, flagged.ID, pending[0].DocumentID)
	assert.Equal(t, "1000.00", pending[0].TaxableBase.String())
}

func TestLinkDocuments(t *testing.T) {
	svc, db := setupService(t)
	ctx := context.Background()

	subject, err := anagrafica.NewSubject("C0001", "EXPORT SRL", anagrafica.SubjectKindClient)
	require.NoError(t, err)
	require.NoError(t, db.Create(subject).Error)

	first := seedFlaggedInvoice(t, db, subject, "0010", 1000)
	second := seedFlaggedInvoice(t, db, subject, "0011", 2500)

	declaration, err := svc.RegisterDeclaration(ctx, subject.ID, "08060120341234567-000001", date(2025, 1, 1), money(50000))
	require.NoError(t, err)

	require.NoError(t, svc.LinkDocuments(ctx, declaration.ID, []uuid.UUID{first.ID, second.ID}))

	reloaded, err := persistence.NewGormIntentRepository(db).FindByID(ctx, declaration.ID)
	require.NoError(t, err)
	assert.Equal(t, "3500.00", reloaded.Consumed.String())
	assert.Equal(t, "46500.00", reloaded.Residual().String())

	pending, err := svc.PendingIntent(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	doc, err := persistence.NewGormDocumentRepository(db).FindByID(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, doc.DeclarationID)
	assert.Equal(t, declaration.ID, *doc.DeclarationID)
	assert.False(t, doc.IntentPending)
}

func TestLinkDocuments_PlafondOverrun(t *testing.T) {
	svc, db := setupService(t)
	ctx := context.Background()

	subject, err := anagrafica.NewSubject("C0001", "EXPORT SRL", anagrafica.SubjectKindClient)
	require.NoError(t, err)
	require.NoError(t, db.Create(subject).Error)

	big := seedFlaggedInvoice(t, db, subject, "0010", 9000)

	declaration, err := svc.RegisterDeclaration(ctx, subject.ID, "08060120341234567-000002", date(2025, 1, 1), money(5000))
	require.NoError(t, err)

	err = svc.LinkDocuments(ctx, declaration.ID, []uuid.UUID{big.ID})
	require.Error(t, err)

	// nothing committed
	reloaded, err := persistence.NewGormIntentRepository(db).FindByID(ctx, declaration.ID)
	require.NoError(t, err)
	assert.Equal(t, "0.00", reloaded.Consumed.String())
}

func TestLinkDocuments_EmptySelection(t *testing.T) {
	svc, _ := setupService(t)

	err := svc.LinkDocuments(context.Background(), uuid.New(), nil)
	assert.ErrorIs(t, err, shared.ErrEmptySelection)
}
