package models

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/thedevsaddam/govalidator"
)

// CreatePaymentOpts is the body shared by the gateway-order, direct and QR entry flows.
type CreatePaymentOpts struct {
	Name        string      `json:"name"`
	Email       string      `json:"email"`
	Phone       string      `json:"phone"`
	Address     string      `json:"address"`
	Amount      json.Number `json:"amount"`
	PaymentMode string      `json:"payment_mode"`
	Description string      `json:"description"`
}

var paymentModeRule = "in:" + strings.Join(paymentModeNames(), ",")

var CreatePaymentRules = govalidator.MapData{
	"name":         []string{"required", "max:255"},
	"email":        []string{"required", "email"},
	"phone":        []string{"required", "max:20"},
	"address":      []string{"required"},
	"amount":       []string{"required", "positive_amount"},
	"payment_mode": []string{"required", paymentModeRule},
}

// QRPaymentRules leaves payment_mode out, the QR flow always settles over UPI.
var QRPaymentRules = govalidator.MapData{
	"name":    []string{"required", "max:255"},
	"email":   []string{"required", "email"},
	"phone":   []string{"required", "max:20"},
	"address": []string{"required"},
	"amount":  []string{"required", "positive_amount"},
}

// DecimalAmount parses the amount literal as sent, rounded to two places.
// An unparsable amount is zero.
func (o *CreatePaymentOpts) DecimalAmount() decimal.Decimal {
	amount, err := decimal.NewFromString(o.Amount.String())
	if err != nil {
		return decimal.Zero
	}
	return amount.Round(2)
}

type VerifyPaymentOpts struct {
	PaymentID         string `json:"payment_id"`
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpaySignature string `json:"razorpay_signature"`
}

var VerifyPaymentRules = govalidator.MapData{
	"payment_id":          []string{"required"},
	"razorpay_order_id":   []string{"required"},
	"razorpay_payment_id": []string{"required"},
	"razorpay_signature":  []string{"required"},
}

type VerifyReferenceOpts struct {
	PaymentID string `json:"payment_id"`
	UTR       string `json:"utr"`
}

var VerifyReferenceRules = govalidator.MapData{
	"payment_id": []string{"required"},
	"utr":        []string{"required"},
}

type ListOpts struct {
	Page   int    `schema:"page"`
	Limit  int    `schema:"limit"`
	Search string `schema:"search"`
	Status string `schema:"status"`
}

const (
	defaultListLimit = 10
	maxListLimit     = 100
)

// Normalize clamps paging values into their accepted range.
func (o *ListOpts) Normalize() {
	if o.Page < 1 {
		o.Page = 1
	}
	if o.Limit < 1 {
		o.Limit = defaultListLimit
	}
	if o.Limit > maxListLimit {
		o.Limit = maxListLimit
	}
	o.Search = strings.TrimSpace(o.Search)
}

func (o *ListOpts) Offset() int {
	return (o.Page - 1) * o.Limit
}

type Page struct {
	Items interface{} `json:"items"`
	Total int         `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}

func paymentModeNames() []string {
	names := make([]string, 0, len(PaymentModes))
	for _, m := range PaymentModes {
		names = append(names, string(m))
	}
	return names
}
