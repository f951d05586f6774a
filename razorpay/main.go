package razorpay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"bitbucket.org/akrix/backend/helpers"
	"bitbucket.org/akrix/backend/models"
	"github.com/pkg/errors"
	rzp "github.com/razorpay/razorpay-go"
	"github.com/razorpay/razorpay-go/utils"
	"github.com/shopspring/decimal"
)

const DefaultCurrency = "INR"

type orderAPI interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

type paymentAPI interface {
	Fetch(paymentID string, queryParams map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// Client talks to Razorpay with one set of credentials.
type Client struct {
	KeyID         string
	keySecret     string
	webhookSecret string
	timeout       time.Duration
	orders        orderAPI
	payments      paymentAPI
}

type Options struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
	Timeout       time.Duration
}

func NewClient(opts Options) *Client {
	client := rzp.NewClient(opts.KeyID, opts.KeySecret)
	return &Client{
		KeyID:         opts.KeyID,
		keySecret:     opts.KeySecret,
		webhookSecret: opts.WebhookSecret,
		timeout:       opts.Timeout,
		orders:        client.Order,
		payments:      client.Payment,
	}
}

// ToMinorUnits converts an amount to the integer unit the gateway expects (paise for INR).
func ToMinorUnits(amount decimal.Decimal) int64 {
	return models.MinorUnits(amount)
}

// CreateOrder registers an order for amount, using receiptRef as the idempotency reference.
func (c *Client) CreateOrder(ctx context.Context, amount decimal.Decimal, currency string, receiptRef string) (*models.GatewayOrder, error) {
	if currency == "" {
		currency = DefaultCurrency
	}

	data := map[string]interface{}{
		"amount":          ToMinorUnits(amount),
		"currency":        currency,
		"receipt":         receiptRef,
		"payment_capture": 1,
	}

	var body map[string]interface{}
	err := helpers.RunWithTimeout(ctx, c.timeout, func() error {
		var err error
		body, err = c.orders.Create(data, nil)
		return err
	})
	if err != nil {
		return nil, &models.GatewayError{Op: "create order", Err: err}
	}

	order, err := parseOrder(body)
	if err != nil {
		return nil, &models.GatewayError{Op: "create order", Err: err}
	}

	return order, nil
}

// VerifySignature checks a checkout signature with the client's key secret.
func (c *Client) VerifySignature(orderID, paymentID, signature string) bool {
	return VerifySignature(orderID, paymentID, signature, c.keySecret)
}

// VerifySignature recomputes HMAC-SHA256(orderID|paymentID) and compares it with
// signature in constant time. An empty secret never verifies.
func VerifySignature(orderID, paymentID, signature, secret string) bool {
	if secret == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}

// VerifyWebhook checks the X-Razorpay-Signature of a webhook body.
func (c *Client) VerifyWebhook(body []byte, signature string) bool {
	if c.webhookSecret == "" || signature == "" {
		return false
	}
	return utils.VerifyWebhookSignature(string(body), signature, c.webhookSecret)
}

func (c *Client) FetchPaymentDetails(ctx context.Context, paymentID string) (map[string]interface{}, error) {
	var body map[string]interface{}
	err := helpers.RunWithTimeout(ctx, c.timeout, func() error {
		var err error
		body, err = c.payments.Fetch(paymentID, nil, nil)
		return err
	})
	if err != nil {
		return nil, &models.GatewayError{Op: "fetch payment", Err: err}
	}

	if body == nil {
		return nil, &models.GatewayError{Op: "fetch payment", Err: errors.New("empty response")}
	}

	return body, nil
}

func parseOrder(body map[string]interface{}) (*models.GatewayOrder, error) {
	if body == nil {
		return nil, errors.New("empty response")
	}

	id, _ := body["id"].(string)
	if id == "" {
		return nil, errors.Errorf("bad response %v", body)
	}

	order := &models.GatewayOrder{ID: id}
	order.Currency, _ = body["currency"].(string)
	order.Receipt, _ = body["receipt"].(string)

	switch amount := body["amount"].(type) {
	case float64:
		order.Amount = int64(amount)
	case int64:
		order.Amount = amount
	case int:
		order.Amount = int64(amount)
	case fmt.Stringer:
		d, err := decimal.NewFromString(amount.String())
		if err != nil {
			return nil, err
		}
		order.Amount = d.IntPart()
	}

	return order, nil
}
