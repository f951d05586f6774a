package payments

import (
	"context"
	"sync"
	"testing"
	"time"

	"bitbucket.org/akrix/backend/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completedPayment(t *testing.T, f *fixture) *models.Payment {
	t.Helper()
	payment := createPayment(t, f)
	require.NoError(t, f.storage.UpdatePaymentStatusDirect(payment.ID, models.PaymentStatusCompleted))
	stored, err := f.store.FindPaymentByID(payment.ID)
	require.NoError(t, err)
	return stored
}

func TestEnsureReceiptSequential(t *testing.T) {
	f := newFixture(t)
	payment := completedPayment(t, f)

	first, err := f.receipts.EnsureReceiptForPayment(payment)
	require.NoError(t, err)
	second, err := f.receipts.EnsureReceiptForPayment(payment)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, payment.ReceiptNumber, first.ReceiptNumber)
	assert.Equal(t, 1, f.storage.receiptCount(payment.ID))
}

func TestEnsureReceiptConcurrent(t *testing.T) {
	f := newFixture(t)
	payment := completedPayment(t, f)

	const callers = 16
	ids := make([]string, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			receipt, err := f.receipts.EnsureReceiptForPayment(payment)
			errs[i] = err
			if receipt != nil {
				ids[i] = receipt.ID
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	assert.Equal(t, 1, f.storage.receiptCount(payment.ID))
}

func TestEnsureReceiptRecoversFromDuplicateInsert(t *testing.T) {
	f := newFixture(t)
	payment := completedPayment(t, f)

	existing, err := f.receipts.EnsureReceiptForPayment(payment)
	require.NoError(t, err)

	f.storage.hideReceipts = 1

	again, err := f.receipts.EnsureReceiptForPayment(payment)
	require.NoError(t, err)
	assert.Equal(t, existing.ID, again.ID)
	assert.Equal(t, 1, f.storage.receiptCount(payment.ID))
}

func TestEnsureReceiptRejectsPendingPayment(t *testing.T) {
	f := newFixture(t)
	payment := createPayment(t, f)

	_, err := f.receipts.EnsureReceiptForPayment(payment)
	assert.Error(t, err)
	assert.Equal(t, 0, f.storage.receiptCount(payment.ID))
}

func TestRenderDocument(t *testing.T) {
	f := newFixture(t)
	payment := completedPayment(t, f)

	doc, err := f.receipts.RenderDocument(context.Background(), models.NewReceiptView(payment))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-"+payment.ReceiptNumber, string(doc))

	require.Len(t, f.renderer.views, 1)
	view := f.renderer.views[0]
	assert.Equal(t, "Asha Rao", view.CustomerName)
	assert.Equal(t, "asha@example.com", view.CustomerEmail)
	assert.Equal(t, models.PaymentStatusCompleted, view.Status)
	assert.True(t, payment.Amount.Equal(view.Amount))
}

func TestRenderDocumentTimeout(t *testing.T) {
	f := newFixture(t)
	f.renderer.delay = 200 * time.Millisecond
	f.receipts.timeout = 10 * time.Millisecond

	_, err := f.receipts.RenderDocument(context.Background(), models.ReceiptView{ReceiptNumber: "AKRX-20240101-0001"})
	require.Error(t, err)
	assert.True(t, models.IsRender(err))
}

func TestRenderDocumentFailure(t *testing.T) {
	f := newFixture(t)
	f.renderer.err = errors.New("font missing")

	_, err := f.receipts.RenderDocument(context.Background(), models.ReceiptView{})
	require.Error(t, err)
	assert.True(t, models.IsRender(err))
	assert.Contains(t, err.Error(), "font missing")
}
