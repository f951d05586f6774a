package models

import (
	"html/template"
	"time"

	"github.com/shopspring/decimal"
)

type Receipt struct {
	ID            string    `json:"id"`
	PaymentID     string    `json:"payment_id"`
	ReceiptNumber string    `json:"receipt_number"`
	GeneratedAt   time.Time `json:"generated_at"`
	Payment       *Payment  `json:"payment,omitempty"`
}

// ReceiptView is the flat projection handed to a document renderer.
type ReceiptView struct {
	ReceiptNumber    string
	Date             time.Time
	CustomerName     string
	CustomerEmail    string
	CustomerPhone    string
	CustomerAddress  string
	Amount           decimal.Decimal
	Mode             PaymentMode
	Status           PaymentStatus
	GatewayPaymentID string
	GatewayOrderID   string
}

// NewReceiptView flattens a payment and its user. The user may be nil.
func NewReceiptView(p *Payment) ReceiptView {
	view := ReceiptView{
		ReceiptNumber:    p.ReceiptNumber,
		Date:             p.CreatedAt,
		Amount:           p.Amount,
		Mode:             p.Mode,
		Status:           p.Status,
		GatewayPaymentID: StringValue(p.GatewayPaymentID),
		GatewayOrderID:   StringValue(p.GatewayOrderID),
	}
	if p.User != nil {
		view.CustomerName = p.User.Name
		view.CustomerEmail = p.User.Email
		view.CustomerPhone = p.User.Phone
		view.CustomerAddress = p.User.Address
	}
	return view
}

type ReceiptPDFHTML struct {
	CompanyName     string
	CompanyAddress  string
	CompanyEmail    string
	ReceiptNumber   string
	Date            string
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	CustomerAddress string
	Amount          string
	Mode            string
	Status          string
	GatewayPayment  string
	GatewayOrder    string
	Image           template.URL
}

type ReceiptMailHTML struct {
	Name          string
	Email         string
	ReceiptNumber string
	Amount        string
	Date          string
	Mode          string
}

type DeliveryKind int

const (
	DeliveryCustomer DeliveryKind = iota
	DeliveryAdminCopy
)

// Delivery describes one receipt email.
type Delivery struct {
	Kind          DeliveryKind
	To            string
	Name          string
	CustomerEmail string
	Subject       string
	FileName      string
	ReceiptNumber string
	Amount        string
	Date          string
	Mode          string
}
