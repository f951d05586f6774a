package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"bitbucket.org/akrix/backend/models"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

var referenceCodePattern = regexp.MustCompile(`^[0-9]{12}$`)

const defaultQRDescription = "Payment to Akrix"

type Flow int

const (
	// FlowGatewayOrder creates a remote order the customer pays through checkout.
	FlowGatewayOrder Flow = iota
	// FlowDirect records a payment settled out of band.
	FlowDirect
	// FlowQR records a UPI payment confirmed later with a reference code.
	FlowQR
)

func (f Flow) String() string {
	switch f {
	case FlowGatewayOrder:
		return "gateway_order"
	case FlowDirect:
		return "direct"
	case FlowQR:
		return "qr"
	}
	return "unknown"
}

type Customer struct {
	Name    string
	Email   string
	Phone   string
	Address string
}

// InitiateRequest is validated at the HTTP boundary and again here.
type InitiateRequest struct {
	Flow        Flow
	Customer    Customer
	Amount      decimal.Decimal
	Mode        models.PaymentMode
	Description string
}

// NewInitiateRequest builds a request for flow from a decoded body.
func NewInitiateRequest(flow Flow, opts *models.CreatePaymentOpts) InitiateRequest {
	return InitiateRequest{
		Flow: flow,
		Customer: Customer{
			Name:    strings.TrimSpace(opts.Name),
			Email:   strings.ToLower(strings.TrimSpace(opts.Email)),
			Phone:   strings.TrimSpace(opts.Phone),
			Address: strings.TrimSpace(opts.Address),
		},
		Amount:      opts.DecimalAmount(),
		Mode:        models.PaymentMode(opts.PaymentMode),
		Description: opts.Description,
	}
}

func (r *InitiateRequest) normalize() error {
	if r.Flow == FlowQR {
		r.Mode = models.PaymentModeUPI
		if r.Description == "" {
			r.Description = defaultQRDescription
		}
	}
	if r.Customer.Email == "" {
		return &models.ValidationError{Field: "email", Reason: "is required"}
	}
	if !r.Amount.IsPositive() {
		return &models.ValidationError{Field: "amount", Reason: "must be greater than zero"}
	}
	if !r.Mode.Valid() {
		return &models.ValidationError{Field: "payment_mode", Reason: fmt.Sprintf("%q is not supported", r.Mode)}
	}
	return nil
}

type InitiateResult struct {
	Payment     *models.Payment      `json:"payment"`
	Order       *models.GatewayOrder `json:"order,omitempty"`
	Description string               `json:"description,omitempty"`
}

// Result is the outcome of a confirmation. A false Success is an expected outcome, not an error.
type Result struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Payment *models.Payment `json:"payment,omitempty"`
	Receipt *models.Receipt `json:"receipt,omitempty"`
	Reason  error           `json:"-"`
}

type SendResult struct {
	Receipt    *models.Receipt `json:"receipt"`
	SentTo     string          `json:"sent_to"`
	ArchiveURL string          `json:"archive_url,omitempty"`
}

type Config struct {
	Store    *Store
	Receipts *ReceiptGenerator
	Gateway  Gateway
	Notifier Notifier
	Archiver Archiver
	Logger   *log.Entry

	Currency        string
	AdminEmail      string
	CustomerSubject string
	AdminSubject    string
	AutoSend        bool
}

// Orchestrator drives payments through PENDING -> COMPLETED | FAILED.
type Orchestrator struct {
	store    *Store
	receipts *ReceiptGenerator
	gateway  Gateway
	notifier Notifier
	archiver Archiver
	log      *log.Entry

	currency        string
	adminEmail      string
	customerSubject string
	adminSubject    string
	autoSend        bool
}

func NewOrchestrator(c Config) *Orchestrator {
	logger := c.Logger
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	if c.CustomerSubject == "" {
		c.CustomerSubject = "Payment Successful - Receipt %s"
	}
	if c.AdminSubject == "" {
		c.AdminSubject = "New payment received - Receipt %s"
	}
	return &Orchestrator{
		store:           c.Store,
		receipts:        c.Receipts,
		gateway:         c.Gateway,
		notifier:        c.Notifier,
		archiver:        c.Archiver,
		log:             logger.WithField("component", "payment_orchestrator"),
		currency:        c.Currency,
		adminEmail:      c.AdminEmail,
		customerSubject: c.CustomerSubject,
		adminSubject:    c.AdminSubject,
		autoSend:        c.AutoSend,
	}
}

// Initiate creates the user if needed and a pending payment. The gateway-order flow
// also registers a remote order; if that fails the returned result still carries
// the pending payment so CreateGatewayOrder can retry with the same reference.
func (o *Orchestrator) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	if err := req.normalize(); err != nil {
		return nil, err
	}

	payment, err := o.createPending(req)
	if err != nil {
		return nil, err
	}

	result := &InitiateResult{Payment: payment, Description: req.Description}
	if req.Flow != FlowGatewayOrder {
		return result, nil
	}

	order, err := o.createOrder(ctx, payment)
	if err != nil {
		return result, err
	}
	result.Order = order

	return result, nil
}

func (o *Orchestrator) createPending(req InitiateRequest) (*models.Payment, error) {
	c := req.Customer
	user, err := o.store.FindOrCreateUser(c.Email, c.Name, c.Phone, c.Address)
	if err != nil {
		return nil, err
	}

	payment, err := o.store.CreatePayment(user.ID, req.Amount, req.Mode)
	if err != nil {
		return nil, err
	}
	payment.User = user

	return payment, nil
}

// CreateGatewayOrder registers a remote order for a pending payment that has none,
// reusing its receipt number as the reference. A payment that already has an order
// gets that order back without a remote call.
func (o *Orchestrator) CreateGatewayOrder(ctx context.Context, paymentID string) (*InitiateResult, error) {
	payment, err := o.store.FindPaymentByID(paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, &models.NotFoundError{Resource: "payment", ID: paymentID}
	}
	if payment.Status != models.PaymentStatusPending {
		return nil, &models.ValidationError{Field: "payment", Reason: fmt.Sprintf("payment is %s", payment.Status)}
	}

	// the first registered order stays authoritative
	if payment.GatewayOrderID != nil {
		return &InitiateResult{Payment: payment, Order: &models.GatewayOrder{
			ID:       *payment.GatewayOrderID,
			Amount:   models.MinorUnits(payment.Amount),
			Currency: o.currency,
			Receipt:  payment.ReceiptNumber,
		}}, nil
	}

	order, err := o.createOrder(ctx, payment)
	if err != nil {
		return nil, err
	}

	return &InitiateResult{Payment: payment, Order: order}, nil
}

func (o *Orchestrator) createOrder(ctx context.Context, payment *models.Payment) (*models.GatewayOrder, error) {
	order, err := o.gateway.CreateOrder(ctx, payment.Amount, o.currency, payment.ReceiptNumber)
	if err != nil {
		o.log.WithFields(log.Fields{
			"payment_id": payment.ID,
			"error":      err,
		}).Warn("gateway order failed, payment stays pending")
		return nil, err
	}

	if err := o.store.SetGatewayOrder(payment.ID, order.ID); err != nil {
		return nil, err
	}
	payment.GatewayOrderID = models.StringPtr(order.ID)

	return order, nil
}

// ConfirmViaGatewaySignature completes the payment when the checkout signature is
// authentic and marks it failed otherwise.
func (o *Orchestrator) ConfirmViaGatewaySignature(ctx context.Context, paymentID, orderID, gatewayPaymentID, signature string) (*Result, error) {
	payment, err := o.store.FindPaymentByID(paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, &models.NotFoundError{Resource: "payment", ID: paymentID}
	}

	logger := o.log.WithFields(log.Fields{
		"payment_id":       paymentID,
		"gateway_order_id": orderID,
	})

	verified := o.gateway.VerifySignature(orderID, gatewayPaymentID, signature)
	if verified && payment.GatewayOrderID != nil && *payment.GatewayOrderID != orderID {
		logger.Warn("signature belongs to a different gateway order")
		verified = false
	}

	if !verified {
		failed, err := o.store.TransitionStatus(paymentID, models.PaymentStatusFailed, TransitionOpts{})
		if err != nil {
			logger.WithField("error", err).Warn("could not mark payment failed")
		} else {
			payment = failed
		}
		return &Result{
			Success: false,
			Message: "Payment verification failed",
			Payment: payment,
			Reason:  &models.ValidationError{Field: "signature", Reason: "does not match"},
		}, nil
	}

	completed, err := o.store.TransitionStatus(paymentID, models.PaymentStatusCompleted, TransitionOpts{
		GatewayPaymentID: gatewayPaymentID,
		GatewayOrderID:   orderID,
		GatewaySignature: signature,
	})
	if models.IsInvalidTransition(err) {
		return &Result{Success: false, Message: "Payment can no longer be completed", Payment: payment, Reason: err}, nil
	}
	if err != nil {
		return nil, err
	}

	logger.Info("payment verified")
	if payment.Status != models.PaymentStatusCompleted {
		o.afterCompletion(completed)
	}

	return &Result{
		Success: true,
		Message: "Payment verified successfully",
		Payment: completed,
		Receipt: completed.Receipt,
	}, nil
}

// ConfirmViaReference completes a payment proven by a 12 digit bank reference (UTR).
// A malformed code leaves the payment untouched.
func (o *Orchestrator) ConfirmViaReference(ctx context.Context, paymentID, referenceCode string) (*Result, error) {
	if !referenceCodePattern.MatchString(referenceCode) {
		return &Result{
			Success: false,
			Message: "Invalid UTR number. UTR should be 12 digits.",
			Reason:  &models.ValidationError{Field: "utr", Reason: "must be exactly 12 digits"},
		}, nil
	}

	payment, err := o.store.FindPaymentByID(paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, &models.NotFoundError{Resource: "payment", ID: paymentID}
	}

	completed, err := o.store.TransitionStatus(paymentID, models.PaymentStatusCompleted, TransitionOpts{
		GatewayPaymentID: referenceCode,
	})
	if models.IsInvalidTransition(err) {
		return &Result{Success: false, Message: "Payment can no longer be completed", Payment: payment, Reason: err}, nil
	}
	if err != nil {
		return nil, err
	}

	o.log.WithFields(log.Fields{
		"payment_id": paymentID,
		"utr":        referenceCode,
	}).Info("payment confirmed by reference")
	if payment.Status != models.PaymentStatusCompleted {
		o.afterCompletion(completed)
	}

	return &Result{
		Success: true,
		Message: "Payment verified successfully",
		Payment: completed,
		Receipt: completed.Receipt,
	}, nil
}

// CreateDirectReceipt records a payment already settled at the desk and returns it completed.
func (o *Orchestrator) CreateDirectReceipt(ctx context.Context, req InitiateRequest) (*Result, error) {
	req.Flow = FlowDirect
	if err := req.normalize(); err != nil {
		return nil, err
	}

	payment, err := o.createPending(req)
	if err != nil {
		return nil, err
	}

	completed, err := o.store.TransitionStatus(payment.ID, models.PaymentStatusCompleted, TransitionOpts{})
	if err != nil {
		return nil, err
	}

	return &Result{
		Success: true,
		Message: "Receipt generated",
		Payment: completed,
		Receipt: completed.Receipt,
	}, nil
}

type webhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
			} `json:"entity"`
		} `json:"payment"`
		Order struct {
			Entity struct {
				ID string `json:"id"`
			} `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

// HandleWebhook applies a signed gateway event to the payment owning its order.
// Unknown events and orders are acknowledged and ignored.
func (o *Orchestrator) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if !o.gateway.VerifyWebhook(body, signature) {
		return &models.ValidationError{Field: "signature", Reason: "webhook signature does not match"}
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return &models.ValidationError{Field: "body", Reason: err.Error()}
	}

	var status models.PaymentStatus
	switch event.Event {
	case "payment.captured", "order.paid":
		status = models.PaymentStatusCompleted
	case "payment.failed":
		status = models.PaymentStatusFailed
	default:
		o.log.WithField("event", event.Event).Info("ignoring webhook event")
		return nil
	}

	orderID := event.Payload.Payment.Entity.OrderID
	if orderID == "" {
		orderID = event.Payload.Order.Entity.ID
	}

	logger := o.log.WithFields(log.Fields{
		"event":            event.Event,
		"gateway_order_id": orderID,
	})

	payment, err := o.store.FindPaymentByGatewayOrderID(orderID)
	if err != nil {
		return err
	}
	if payment == nil {
		logger.Warn("webhook for unknown order")
		return nil
	}

	opts := TransitionOpts{}
	if status == models.PaymentStatusCompleted {
		opts.GatewayPaymentID = event.Payload.Payment.Entity.ID
		opts.GatewayOrderID = orderID
	}

	updated, err := o.store.TransitionStatus(payment.ID, status, opts)
	if models.IsInvalidTransition(err) {
		logger.WithField("error", err).Warn("webhook does not apply to payment")
		return nil
	}
	if err != nil {
		return err
	}

	logger.WithField("payment_id", payment.ID).Info("webhook applied")
	if status == models.PaymentStatusCompleted && payment.Status != models.PaymentStatusCompleted {
		o.afterCompletion(updated)
	}

	return nil
}

func (o *Orchestrator) FetchGatewayPayment(ctx context.Context, gatewayPaymentID string) (map[string]interface{}, error) {
	return o.gateway.FetchPaymentDetails(ctx, gatewayPaymentID)
}

func (o *Orchestrator) FindPaymentByID(id string) (*models.Payment, error) {
	return o.store.FindPaymentByID(id)
}

// FindReceiptByID returns the receipt with its payment and user loaded.
func (o *Orchestrator) FindReceiptByID(id string) (*models.Receipt, error) {
	receipt, err := o.store.FindReceiptByID(id)
	if err != nil || receipt == nil {
		return receipt, err
	}

	payment, err := o.store.FindPaymentByID(receipt.PaymentID)
	if err != nil {
		return nil, err
	}
	if payment != nil {
		payment.Receipt = nil
		receipt.Payment = payment
	}

	return receipt, nil
}

// ReceiptDocument renders the receipt with the given id.
func (o *Orchestrator) ReceiptDocument(ctx context.Context, receiptID string) ([]byte, *models.Receipt, error) {
	receipt, err := o.FindReceiptByID(receiptID)
	if err != nil {
		return nil, nil, err
	}
	if receipt == nil || receipt.Payment == nil {
		return nil, nil, &models.NotFoundError{Resource: "receipt", ID: receiptID}
	}

	doc, err := o.receipts.RenderDocument(ctx, models.NewReceiptView(receipt.Payment))
	if err != nil {
		return nil, nil, err
	}

	return doc, receipt, nil
}

// PaymentDocument renders the receipt document of a payment in whatever status it is.
func (o *Orchestrator) PaymentDocument(ctx context.Context, paymentID string) ([]byte, *models.Payment, error) {
	payment, err := o.store.FindPaymentByID(paymentID)
	if err != nil {
		return nil, nil, err
	}
	if payment == nil {
		return nil, nil, &models.NotFoundError{Resource: "payment", ID: paymentID}
	}

	doc, err := o.receipts.RenderDocument(ctx, models.NewReceiptView(payment))
	if err != nil {
		return nil, nil, err
	}

	return doc, payment, nil
}

// SendReceipt renders a receipt, archives it when an archiver is set and mails it
// to the customer with a copy to the admin address.
func (o *Orchestrator) SendReceipt(ctx context.Context, receiptID string) (*SendResult, error) {
	if o.notifier == nil {
		return nil, errors.New("no notifier configured")
	}

	doc, receipt, err := o.ReceiptDocument(ctx, receiptID)
	if err != nil {
		return nil, err
	}

	payment := receipt.Payment
	logger := o.log.WithFields(log.Fields{
		"receipt_id":     receipt.ID,
		"receipt_number": receipt.ReceiptNumber,
	})
	fileName := ReceiptFileName(receipt.ReceiptNumber)
	result := &SendResult{Receipt: receipt}

	if o.archiver != nil {
		url, err := o.archiver.Archive(ctx, fileName, doc)
		if err != nil {
			logger.WithField("error", err).Warn("failed archiving receipt")
		} else {
			result.ArchiveURL = url
		}
	}

	delivery := models.Delivery{
		Kind:          models.DeliveryCustomer,
		FileName:      fileName,
		ReceiptNumber: receipt.ReceiptNumber,
		Amount:        payment.Amount.StringFixed(2),
		Date:          payment.CreatedAt.Format("02 Jan 2006"),
		Mode:          string(payment.Mode),
		Subject:       fmt.Sprintf(o.customerSubject, receipt.ReceiptNumber),
	}
	if payment.User != nil {
		delivery.To = payment.User.Email
		delivery.Name = payment.User.Name
		delivery.CustomerEmail = payment.User.Email
	}
	if delivery.To == "" {
		return nil, &models.ValidationError{Field: "email", Reason: "receipt has no customer email"}
	}

	if err := o.notifier.Deliver(ctx, delivery, doc); err != nil {
		return nil, err
	}
	result.SentTo = delivery.To
	logger.WithField("to", delivery.To).Info("receipt sent")

	if o.adminEmail != "" {
		copyDelivery := delivery
		copyDelivery.Kind = models.DeliveryAdminCopy
		copyDelivery.To = o.adminEmail
		copyDelivery.Subject = fmt.Sprintf(o.adminSubject, receipt.ReceiptNumber)
		if err := o.notifier.Deliver(ctx, copyDelivery, doc); err != nil {
			logger.WithField("error", err).Warn("failed sending admin copy")
		}
	}

	return result, nil
}

func (o *Orchestrator) afterCompletion(payment *models.Payment) {
	if !o.autoSend || o.notifier == nil || payment == nil || payment.Receipt == nil {
		return
	}

	go func(receiptID string) {
		if _, err := o.SendReceipt(context.Background(), receiptID); err != nil {
			o.log.WithFields(log.Fields{
				"receipt_id": receiptID,
				"error":      err,
			}).Error("failed sending receipt")
		}
	}(payment.Receipt.ID)
}

func ReceiptFileName(receiptNumber string) string {
	return fmt.Sprintf("Receipt_%s.pdf", receiptNumber)
}
