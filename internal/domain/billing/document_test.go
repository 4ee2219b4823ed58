package billing

import (
	"testing"
	"time"

	"github.com/gestionale/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func singleSchedule(due valueobject.Date, amount float64) []ScheduleInput {
	return []ScheduleInput{{
		DueDate:  due,
		Modality: ModalityBankTransfer,
		Amount:   valueobject.NewMoneyFromFloat(amount),
	}}
}

func createTestInvoice(t *testing.T) *Document {
	doc, err := NewDocument(
		uuid.New(),
		"0010",
		"FATTURA VENDITA",
		ClassSaleInvoice,
		valueobject.NewDate(2024, time.March, 1),
		valueobject.NewDate(2024, time.March, 1),
		valueobject.NewMoneyFromFloat(1220.00),
		valueobject.NewMoneyFromFloat(1000.00),
		singleSchedule(valueobject.NewDate(2024, time.March, 31), 1220.00),
	)
	require.NoError(t, err)
	return doc
}

func TestDocumentClass_Sign(t *testing.T) {
	tests := []struct {
		class DocumentClass
		sign  int
	}{
		{ClassSaleInvoice, +1},
		{ClassSupplierCreditNote, +1},
		{ClassPurchaseInvoice, -1},
		{ClassClientCreditNote, -1},
	}

	for _, tt := range tests {
		t.Run(string(tt.class), func(t *testing.T) {
			assert.Equal(t, tt.sign, tt.class.Sign())
		})
	}
}

func TestNewDocument(t *testing.T) {
	doc := createTestInvoice(t)

	assert.Equal(t, "0010", doc.Number)
	assert.Equal(t, +1, doc.Sign)
	assert.Len(t, doc.Schedules, 1)
	assert.Equal(t, 1, doc.Schedules[0].RataNumber)
	assert.Equal(t, doc.ID, doc.Schedules[0].DocumentID)
}

func TestNewDocument_NormalizesNumber(t *testing.T) {
	doc, err := NewDocument(
		uuid.New(), "14/A", "FATTURA VENDITA", ClassSaleInvoice,
		valueobject.NewDate(2024, time.March, 1),
		valueobject.NewDate(2024, time.March, 1),
		valueobject.NewMoneyFromFloat(100.00),
		valueobject.NewMoneyFromFloat(81.97),
		singleSchedule(valueobject.NewDate(2024, time.March, 31), 100.00),
	)
	require.NoError(t, err)
	assert.Equal(t, "0014/A", doc.Number)
}

func TestNewDocument_SchedulesMustCloseOnTotal(t *testing.T) {
	_, err := NewDocument(
		uuid.New(), "0010", "FATTURA VENDITA", ClassSaleInvoice,
		valueobject.NewDate(2024, time.March, 1),
		valueobject.NewDate(2024, time.March, 1),
		valueobject.NewMoneyFromFloat(1220.00),
		valueobject.NewMoneyFromFloat(1000.00),
		singleSchedule(valueobject.NewDate(2024, time.March, 31), 1000.00),
	)
	assert.Error(t, err)

	// within tolerance is accepted
	_, err = NewDocument(
		uuid.New(), "0010", "FATTURA VENDITA", ClassSaleInvoice,
		valueobject.NewDate(2024, time.March, 1),
		valueobject.NewDate(2024, time.March, 1),
		valueobject.NewMoneyFromFloat(1220.00),
		valueobject.NewMoneyFromFloat(1000.00),
		singleSchedule(valueobject.NewDate(2024, time.March, 31), 1220.01),
	)
	assert.NoError(t, err)
}

func TestNewDocument_RequiresSchedules(t *testing.T) {
	_, err := NewDocument(
		uuid.New(), "0010", "FATTURA VENDITA", ClassSaleInvoice,
		valueobject.NewDate(2024, time.March, 1),
		valueobject.NewDate(2024, time.March, 1),
		valueobject.NewMoneyFromFloat(1220.00),
		valueobject.NewMoneyFromFloat(1000.00),
		nil,
	)
	assert.Error(t, err)
}

func TestDocument_Residual(t *testing.T) {
	doc := createTestInvoice(t)

	residual := doc.Residual(valueobject.Zero(), valueobject.Zero())
	assert.Equal(t, "1220.00", residual.String())

	residual = doc.Residual(valueobject.NewMoneyFromFloat(500.00), valueobject.Zero())
	assert.Equal(t, "720.00", residual.String())

	residual = doc.Residual(valueobject.NewMoneyFromFloat(500.00), valueobject.NewMoneyFromFloat(720.00))
	assert.True(t, residual.IsSettled())
}

func TestDocument_Residual_PurchaseInvoice(t *testing.T) {
	doc, err := NewDocument(
		uuid.New(), "77", "FATTURA ACQUISTO", ClassPurchaseInvoice,
		valueobject.NewDate(2024, time.March, 1),
		valueobject.NewDate(2024, time.March, 1),
		valueobject.NewMoneyFromFloat(-200.00),
		valueobject.NewMoneyFromFloat(-200.00),
		[]ScheduleInput{{
			DueDate:  valueobject.NewDate(2024, time.March, 31),
			Modality: ModalityBankTransfer,
			Amount:   valueobject.NewMoneyFromFloat(-200.00),
		}},
	)
	require.NoError(t, err)

	// schedule amounts are negative, paid associations are positive
	assert.Equal(t, "200.00", doc.Residual(valueobject.Zero(), valueobject.Zero()).String())
	assert.Equal(t, "50.00", doc.Residual(valueobject.NewMoneyFromFloat(150.00), valueobject.Zero()).String())

	paidInFull := valueobject.NewMoneyFromFloat(200.00)
	assert.True(t, doc.Residual(paidInFull, valueobject.Zero()).IsSettled())
	assert.Equal(t, StatusPaid, doc.Status(paidInFull, valueobject.Zero(), valueobject.NewDate(2024, time.April, 10)))
}

func TestDocument_Residual_ClientCreditNote(t *testing.T) {
	cn, err := NewDocument(
		uuid.New(), "0001", "NOTA CREDITO", ClassClientCreditNote,
		valueobject.NewDate(2024, time.March, 10),
		valueobject.NewDate(2024, time.March, 10),
		valueobject.NewMoneyFromFloat(-1220.00),
		valueobject.NewMoneyFromFloat(-1000.00),
		[]ScheduleInput{{
			DueDate:  valueobject.NewDate(2024, time.March, 10),
			Modality: ModalityBankTransfer,
			Amount:   valueobject.NewMoneyFromFloat(-1220.00),
		}},
	)
	require.NoError(t, err)

	// the UI-facing residual of a credit note is |scheduled| - offsets
	assert.Equal(t, "1220.00", cn.Residual(valueobject.Zero(), valueobject.Zero()).String())
	assert.True(t, cn.Residual(valueobject.Zero(), valueobject.NewMoneyFromFloat(1220.00)).IsSettled())
}

func TestDocument_Status(t *testing.T) {
	doc := createTestInvoice(t)
	none := valueobject.Zero()
	due := valueobject.NewDate(2024, time.March, 31)

	assert.Equal(t, StatusOpen, doc.Status(none, none, due.AddDays(-10)))
	assert.Equal(t, StatusOverdue, doc.Status(none, none, due.AddDays(1)))
	assert.Equal(t, StatusPaid, doc.Status(valueobject.NewMoneyFromFloat(1220.00), none, due.AddDays(1)))
	// residual within tolerance counts as paid
	assert.Equal(t, StatusPaid, doc.Status(valueobject.NewMoneyFromFloat(1219.99), none, due.AddDays(1)))
}

func TestDocument_MaxDueDate(t *testing.T) {
	doc, err := NewDocument(
		uuid.New(), "0011", "FATTURA VENDITA", ClassSaleInvoice,
		valueobject.NewDate(2024, time.March, 1),
		valueobject.NewDate(2024, time.March, 1),
		valueobject.NewMoneyFromFloat(1200.00),
		valueobject.NewMoneyFromFloat(983.61),
		[]ScheduleInput{
			{DueDate: valueobject.NewDate(2024, time.April, 30), Modality: ModalityRiba, Amount: valueobject.NewMoneyFromFloat(500.00)},
			{DueDate: valueobject.NewDate(2024, time.May, 31), Modality: ModalityRiba, Amount: valueobject.NewMoneyFromFloat(700.00)},
		},
	)
	require.NoError(t, err)
	assert.Equal(t, "2024-05-31", doc.MaxDueDate().String())
}

func TestDocument_DeclarationLifecycle(t *testing.T) {
	doc := createTestInvoice(t)

	doc.FlagIntent()
	assert.True(t, doc.IntentPending)

	declID := uuid.New()
	require.NoError(t, doc.LinkDeclaration(declID))
	assert.False(t, doc.IntentPending)
	require.NotNil(t, doc.DeclarationID)
	assert.Equal(t, declID, *doc.DeclarationID)

	assert.Error(t, doc.LinkDeclaration(uuid.Nil))

	doc.ReleaseDeclaration()
	assert.Nil(t, doc.DeclarationID)
}

func TestDocument_ScheduleResiduals(t *testing.T) {
	doc, err := NewDocument(
		uuid.New(),
		"0020",
		"FATTURA VENDITA",
		ClassSaleInvoice,
		valueobject.NewDate(2024, time.March, 1),
		valueobject.NewDate(2024, time.March, 1),
		valueobject.NewMoneyFromFloat(300.00),
		valueobject.NewMoneyFromFloat(300.00),
		[]ScheduleInput{
			{DueDate: valueobject.NewDate(2024, time.April, 30), Modality: ModalityRiba, Amount: valueobject.NewMoneyFromFloat(200.00)},
			{DueDate: valueobject.NewDate(2024, time.March, 31), Modality: ModalityRiba, Amount: valueobject.NewMoneyFromFloat(100.00)},
		},
	)
	require.NoError(t, err)
	first := doc.Schedules[1].ID  // due 31/03, consumed first
	second := doc.Schedules[0].ID // due 30/04

	t.Run("nothing consumed", func(t *testing.T) {
		residuals := doc.ScheduleResiduals(valueobject.Zero(), valueobject.Zero())
		assert.Equal(t, "100.00", residuals[first].String())
		assert.Equal(t, "200.00", residuals[second].String())
	})

	t.Run("partial consumption settles the earliest rata first", func(t *testing.T) {
		residuals := doc.ScheduleResiduals(valueobject.NewMoneyFromFloat(150.00), valueobject.Zero())
		assert.Equal(t, "0.00", residuals[first].String())
		assert.Equal(t, "150.00", residuals[second].String())
	})

	t.Run("offsets count as consumption", func(t *testing.T) {
		residuals := doc.ScheduleResiduals(valueobject.NewMoneyFromFloat(100.00), valueobject.NewMoneyFromFloat(200.00))
		assert.Equal(t, "0.00", residuals[first].String())
		assert.Equal(t, "0.00", residuals[second].String())
	})
}
