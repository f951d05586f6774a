package payments

import (
	"context"
	"time"

	"bitbucket.org/akrix/backend/db"
	"bitbucket.org/akrix/backend/helpers"
	"bitbucket.org/akrix/backend/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type ReceiptGenerator struct {
	db       db.ReceiptStorage
	renderer Renderer
	timeout  time.Duration
	now      func() time.Time
	log      *log.Entry
}

func NewReceiptGenerator(storage db.ReceiptStorage, renderer Renderer, timeout time.Duration, logger *log.Entry) *ReceiptGenerator {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &ReceiptGenerator{
		db:       storage,
		renderer: renderer,
		timeout:  timeout,
		now:      func() time.Time { return time.Now().UTC() },
		log:      logger.WithField("component", "receipt_generator"),
	}
}

// EnsureReceiptForPayment returns the receipt of a completed payment, creating it
// the first time. Concurrent callers all get the same row.
func (g *ReceiptGenerator) EnsureReceiptForPayment(payment *models.Payment) (*models.Receipt, error) {
	if payment.Status != models.PaymentStatusCompleted {
		return nil, errors.Errorf("payment %s is %s, receipts need a completed payment", payment.ID, payment.Status)
	}

	existing, err := g.db.GetReceiptByPaymentID(payment.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed getting receipt")
	}
	if existing != nil {
		return existing, nil
	}

	receipt := &models.Receipt{
		ID:            uuid.New().String(),
		PaymentID:     payment.ID,
		ReceiptNumber: payment.ReceiptNumber,
		GeneratedAt:   g.now(),
	}

	err = g.db.InsertReceipt(receipt)
	if err == nil {
		g.log.WithFields(log.Fields{
			"payment_id":     payment.ID,
			"receipt_id":     receipt.ID,
			"receipt_number": receipt.ReceiptNumber,
		}).Info("receipt generated")
		return receipt, nil
	}
	if !models.IsConflict(err) {
		return nil, errors.Wrap(err, "failed inserting receipt")
	}

	existing, err = g.db.GetReceiptByPaymentID(payment.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed getting receipt after conflict")
	}
	if existing == nil {
		return nil, errors.Errorf("receipt for payment %s conflicted but could not be read back", payment.ID)
	}

	return existing, nil
}

// RenderDocument renders view within the configured timeout.
func (g *ReceiptGenerator) RenderDocument(ctx context.Context, view models.ReceiptView) ([]byte, error) {
	var doc []byte
	err := helpers.RunWithTimeout(ctx, g.timeout, func() error {
		var err error
		doc, err = g.renderer.Render(view)
		return err
	})
	if err != nil {
		return nil, &models.RenderError{Err: err}
	}
	return doc, nil
}
