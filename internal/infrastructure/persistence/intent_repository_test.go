package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/gestionale/backend/internal/domain/anagrafica"
	"github.com/gestionale/backend/internal/domain/billing"
	"github.com/gestionale/backend/internal/domain/intent"
	"github.com/gestionale/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormIntentRepository_Link(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormIntentRepository(db)
	docs := NewGormDocumentRepository(db)
	ctx := context.Background()

	subject := seedSubject(t, db, "C0001", "Acme", anagrafica.SubjectKindClient)
	invoice := seedInvoice(t, db, subject, "1", 1000, date(2024, time.March, 31), billing.ModalityBankTransfer)
	invoice.FlagIntent()
	require.NoError(t, docs.Update(ctx, invoice))

	declaration, err := intent.NewDeclaration(subject.ID, "PROT/2024/1", date(2024, time.January, 10), money(50000))
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, declaration))

	consumption, err := declaration.Consume(invoice.ID, invoice.TaxableBase)
	require.NoError(t, err)
	require.NoError(t, invoice.LinkDeclaration(declaration.ID))
	require.NoError(t, repo.Link(ctx, declaration, []*intent.Consumption{consumption}))

	reloaded, err := repo.FindByProtocol(ctx, "PROT/2024/1")
	require.NoError(t, err)
	assert.Equal(t, "1000.00", reloaded.Consumed.String())
	assert.Equal(t, "49000.00", reloaded.Residual().String())

	linked, err := docs.FindByID(ctx, invoice.ID)
	require.NoError(t, err)
	require.NotNil(t, linked.DeclarationID)
	assert.Equal(t, declaration.ID, *linked.DeclarationID)
	assert.False(t, linked.IntentPending)

	c, err := repo.FindConsumptionByDocument(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, "1000.00", c.Amount.String())

	pending, err := docs.PendingIntent(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestGormIntentRepository_ReleaseForDocument(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormIntentRepository(db)
	docs := NewGormDocumentRepository(db)
	ctx := context.Background()

	subject := seedSubject(t, db, "C0001", "Acme", anagrafica.SubjectKindClient)
	invoice := seedInvoice(t, db, subject, "1", 1000, date(2024, time.March, 31), billing.ModalityBankTransfer)

	declaration, err := intent.NewDeclaration(subject.ID, "PROT/2024/1", date(2024, time.January, 10), money(50000))
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, declaration))

	consumption, err := declaration.Consume(invoice.ID, invoice.TaxableBase)
	require.NoError(t, err)
	require.NoError(t, repo.Link(ctx, declaration, []*intent.Consumption{consumption}))

	require.NoError(t, repo.ReleaseForDocument(ctx, invoice.ID))

	reloaded, err := repo.FindByID(ctx, declaration.ID)
	require.NoError(t, err)
	assert.Equal(t, "0.00", reloaded.Consumed.String())

	_, err = repo.FindConsumptionByDocument(ctx, invoice.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	cleared, err := docs.FindByID(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Nil(t, cleared.DeclarationID)

	// releasing an unlinked document is a no-op
	require.NoError(t, repo.ReleaseForDocument(ctx, invoice.ID))
}
