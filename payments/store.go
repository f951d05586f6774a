package payments

import (
	"time"

	"bitbucket.org/akrix/backend/db"
	"bitbucket.org/akrix/backend/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const maxTransitionAttempts = 3

// Store owns the lifecycle of users, payments and their receipts.
type Store struct {
	db       db.Storage
	receipts *ReceiptGenerator
	prefix   string
	now      func() time.Time
	log      *log.Entry
}

func NewStore(storage db.Storage, receipts *ReceiptGenerator, receiptPrefix string, logger *log.Entry) *Store {
	if receiptPrefix == "" {
		receiptPrefix = db.DefaultReceiptPrefix
	}
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Store{
		db:       storage,
		receipts: receipts,
		prefix:   receiptPrefix,
		now:      func() time.Time { return time.Now().UTC() },
		log:      logger.WithField("component", "payment_store"),
	}
}

// TransitionOpts carries the gateway identifiers recorded with a status change.
// Empty fields leave the stored value untouched.
type TransitionOpts struct {
	GatewayPaymentID string
	GatewayOrderID   string
	GatewaySignature string
}

// FindOrCreateUser returns the user owning email, creating it on first use.
// An existing user is returned unchanged.
func (s *Store) FindOrCreateUser(email, name, phone, address string) (*models.User, error) {
	user, err := s.db.GetUserByEmail(email)
	if err != nil {
		return nil, errors.Wrap(err, "failed getting user")
	}
	if user != nil {
		return user, nil
	}

	now := s.now()
	user = &models.User{
		ID:        uuid.New().String(),
		Name:      name,
		Email:     email,
		Phone:     phone,
		Address:   address,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.db.InsertUser(user)
	if err == nil {
		return user, nil
	}
	if !models.IsConflict(err) {
		return nil, errors.Wrap(err, "failed inserting user")
	}

	existing, err := s.db.GetUserByEmail(email)
	if err != nil {
		return nil, errors.Wrap(err, "failed getting user after conflict")
	}
	if existing == nil {
		return nil, errors.Errorf("user %s conflicted but could not be read back", email)
	}

	s.log.WithField("email", email).Info("user created concurrently, reusing existing row")
	return existing, nil
}

// CreatePayment stores a pending payment and assigns its receipt number.
// amount is expected to be positive already.
func (s *Store) CreatePayment(userID string, amount decimal.Decimal, mode models.PaymentMode) (*models.Payment, error) {
	now := s.now()
	payment := &models.Payment{
		ID:            uuid.New().String(),
		UserID:        userID,
		Amount:        amount,
		Mode:          mode,
		Status:        models.PaymentStatusPending,
		ReceiptNumber: db.GenerateReceiptNumber(s.prefix, now),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.db.InsertPayment(payment); err != nil {
		return nil, errors.Wrap(err, "failed inserting payment")
	}

	s.log.WithFields(log.Fields{
		"payment_id":     payment.ID,
		"receipt_number": payment.ReceiptNumber,
		"amount":         payment.Amount.StringFixed(2),
	}).Info("payment created")

	return payment, nil
}

// TransitionStatus moves a payment to status. Repeating the transition a payment
// already made is a no-op; any other move out of a terminal status is an
// *models.InvalidTransitionError. Reaching completed ensures the receipt exists
// before returning.
func (s *Store) TransitionStatus(paymentID string, status models.PaymentStatus, opts TransitionOpts) (*models.Payment, error) {
	for attempt := 0; attempt < maxTransitionAttempts; attempt++ {
		payment, err := s.FindPaymentByID(paymentID)
		if err != nil {
			return nil, err
		}
		if payment == nil {
			return nil, &models.NotFoundError{Resource: "payment", ID: paymentID}
		}

		if payment.Status == status {
			return s.afterTransition(payment)
		}

		if !payment.Status.CanTransitionTo(status) {
			return nil, &models.InvalidTransitionError{PaymentID: paymentID, From: payment.Status, To: status}
		}

		err = s.db.UpdatePaymentStatus(&db.UpdatePaymentStatusOpts{
			ID:               paymentID,
			From:             payment.Status,
			To:               status,
			GatewayPaymentID: models.StringPtr(opts.GatewayPaymentID),
			GatewayOrderID:   models.StringPtr(opts.GatewayOrderID),
			GatewaySignature: models.StringPtr(opts.GatewaySignature),
			UpdatedAt:        s.now(),
		})
		if err == db.ErrStatusChanged {
			continue
		}
		if err != nil {
			return nil, errors.Wrap(err, "failed updating payment status")
		}

		s.log.WithFields(log.Fields{
			"payment_id": paymentID,
			"from":       payment.Status,
			"to":         status,
		}).Info("payment status changed")

		updated, err := s.FindPaymentByID(paymentID)
		if err != nil {
			return nil, err
		}
		if updated == nil {
			return nil, &models.NotFoundError{Resource: "payment", ID: paymentID}
		}

		return s.afterTransition(updated)
	}

	return nil, errors.Errorf("payment %s kept changing while moving to %s", paymentID, status)
}

func (s *Store) afterTransition(payment *models.Payment) (*models.Payment, error) {
	if payment.Status != models.PaymentStatusCompleted {
		return payment, nil
	}

	receipt, err := s.receipts.EnsureReceiptForPayment(payment)
	if err != nil {
		return nil, err
	}
	payment.Receipt = receipt

	return payment, nil
}

// FindPaymentByID returns nil when the payment does not exist.
func (s *Store) FindPaymentByID(id string) (*models.Payment, error) {
	payment, err := s.db.GetPaymentByID(id)
	if err != nil {
		return nil, errors.Wrap(err, "failed getting payment")
	}
	return payment, nil
}

func (s *Store) FindPaymentByGatewayOrderID(orderID string) (*models.Payment, error) {
	payment, err := s.db.GetPaymentByGatewayOrderID(orderID)
	if err != nil {
		return nil, errors.Wrap(err, "failed getting payment by order")
	}
	return payment, nil
}

// SetGatewayOrder records the gateway order of a pending payment that has none yet.
func (s *Store) SetGatewayOrder(paymentID string, orderID string) error {
	err := s.db.SetPaymentGatewayOrder(paymentID, orderID)
	if err == db.ErrStatusChanged {
		return &models.ValidationError{Field: "payment", Reason: "payment is no longer pending or already has a gateway order"}
	}
	if err != nil {
		return errors.Wrap(err, "failed saving gateway order")
	}
	return nil
}

// FindReceiptByID returns nil when the receipt does not exist.
func (s *Store) FindReceiptByID(id string) (*models.Receipt, error) {
	receipt, err := s.db.GetReceiptByID(id)
	if err != nil {
		return nil, errors.Wrap(err, "failed getting receipt")
	}
	return receipt, nil
}

func (s *Store) FindReceiptByPaymentID(paymentID string) (*models.Receipt, error) {
	receipt, err := s.db.GetReceiptByPaymentID(paymentID)
	if err != nil {
		return nil, errors.Wrap(err, "failed getting receipt by payment")
	}
	return receipt, nil
}
