package models

import (
	"database/sql/driver"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusCancelled PaymentStatus = "cancelled"

	// legacy rows written before completed was the only success value
	paymentStatusSuccess = "success"
)

// ParsePaymentStatus maps a stored or requested status to its canonical value.
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch s {
	case string(PaymentStatusPending), string(PaymentStatusCompleted), string(PaymentStatusFailed), string(PaymentStatusCancelled):
		return PaymentStatus(s), nil
	case paymentStatusSuccess:
		return PaymentStatusCompleted, nil
	}
	return "", errors.Errorf("unknown payment status %q", s)
}

// IsTerminal reports whether no operation may move the payment out of this status.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusCompleted || s == PaymentStatusFailed || s == PaymentStatusCancelled
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	if s != PaymentStatusPending {
		return false
	}
	return next == PaymentStatusCompleted || next == PaymentStatusFailed
}

func (s *PaymentStatus) Scan(src interface{}) error {
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	case nil:
		return errors.New("payment status is null")
	default:
		return errors.Errorf("cannot scan %T into PaymentStatus", src)
	}
	status, err := ParsePaymentStatus(raw)
	if err != nil {
		return err
	}
	*s = status
	return nil
}

func (s PaymentStatus) Value() (driver.Value, error) {
	return string(s), nil
}

type PaymentMode string

const (
	PaymentModeCash         PaymentMode = "cash"
	PaymentModeCard         PaymentMode = "card"
	PaymentModeUPI          PaymentMode = "upi"
	PaymentModeNetBanking   PaymentMode = "net_banking"
	PaymentModeWallet       PaymentMode = "wallet"
	PaymentModeCheque       PaymentMode = "cheque"
	PaymentModeBankTransfer PaymentMode = "bank_transfer"
)

var PaymentModes = []PaymentMode{
	PaymentModeCash,
	PaymentModeCard,
	PaymentModeUPI,
	PaymentModeNetBanking,
	PaymentModeWallet,
	PaymentModeCheque,
	PaymentModeBankTransfer,
}

func (m PaymentMode) Valid() bool {
	for _, mode := range PaymentModes {
		if m == mode {
			return true
		}
	}
	return false
}

type Payment struct {
	ID               string          `json:"id"`
	UserID           string          `json:"user_id"`
	User             *User           `json:"user,omitempty"`
	Amount           decimal.Decimal `json:"amount"`
	Mode             PaymentMode     `json:"payment_mode"`
	Status           PaymentStatus   `json:"status"`
	GatewayPaymentID *string         `json:"gateway_payment_id,omitempty"`
	GatewayOrderID   *string         `json:"gateway_order_id,omitempty"`
	GatewaySignature *string         `json:"-"`
	ReceiptNumber    string          `json:"receipt_number"`
	Receipt          *Receipt        `json:"receipt,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

type GatewayOrder struct {
	ID       string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

// MinorUnits converts an amount to its integer minor unit (paise for INR).
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// StringPtr returns nil for an empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
