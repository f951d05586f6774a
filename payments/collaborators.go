package payments

import (
	"context"

	"bitbucket.org/akrix/backend/models"
	"github.com/shopspring/decimal"
)

// Gateway is the remote payment processor.
type Gateway interface {
	CreateOrder(ctx context.Context, amount decimal.Decimal, currency string, receiptRef string) (*models.GatewayOrder, error)
	VerifySignature(orderID, paymentID, signature string) bool
	VerifyWebhook(body []byte, signature string) bool
	FetchPaymentDetails(ctx context.Context, paymentID string) (map[string]interface{}, error)
}

// Renderer turns a receipt view into a document. It must not touch storage.
type Renderer interface {
	Render(view models.ReceiptView) ([]byte, error)
}

// Notifier delivers a rendered document. Delivery retries are not its caller's concern.
type Notifier interface {
	Deliver(ctx context.Context, d models.Delivery, doc []byte) error
}

// Archiver keeps a copy of rendered documents and returns where they live.
type Archiver interface {
	Archive(ctx context.Context, name string, doc []byte) (string, error)
}
