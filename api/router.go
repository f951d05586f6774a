package api

import (
	"net/http"

	"bitbucket.org/akrix/backend/config"
	"bitbucket.org/akrix/backend/middlewares"
	"bitbucket.org/akrix/backend/server"
)

// HealthcheckHandler indicates the service's healthy
func HealthcheckHandler(_ *config.AppContext, w *middlewares.ResponseWriter, _ *http.Request) {
	w.String(http.StatusOK, "OK")
}

// GetRoutes ...
func GetRoutes() []*server.Route {
	return []*server.Route{
		{Path: "/healthcheck", Methods: []string{"GET", "HEAD"}, Handler: HealthcheckHandler, IsProtected: false},

		// Payment
		{Path: "/api/payment/create-order", Methods: []string{"POST"}, Handler: CreatePaymentOrder},
		{Path: "/api/payment/verify", Methods: []string{"POST"}, Handler: VerifyPayment},
		{Path: "/api/payment/initiate", Methods: []string{"POST"}, Handler: InitiatePayment},
		{Path: "/api/payment/qr-payment", Methods: []string{"POST"}, Handler: CreateQRPayment},
		{Path: "/api/payment/verify-utr", Methods: []string{"POST"}, Handler: VerifyUTR},
		{Path: "/api/payment/webhook", Methods: []string{"POST"}, Handler: PaymentWebhook},
		{Path: "/api/payment/{id}/order", Methods: []string{"POST"}, Handler: RetryPaymentOrder},
		{Path: "/api/payment/{id}", Methods: []string{"GET", "HEAD"}, Handler: GetPayment},

		// Receipt
		{Path: "/api/receipt/generate", Methods: []string{"POST"}, Handler: GenerateReceipt},
		{Path: "/api/receipt/send-email/{id}", Methods: []string{"POST"}, Handler: SendReceiptEmail},
		{Path: "/api/receipt/download/{id}", Methods: []string{"GET"}, Handler: DownloadReceipt},
		{Path: "/api/receipt/payment/{id}/pdf", Methods: []string{"GET"}, Handler: DownloadPaymentReceipt},
		{Path: "/api/receipt/{id}", Methods: []string{"GET", "HEAD"}, Handler: GetReceipt},

		// Admin
		{Path: "/api/admin/login", Methods: []string{"POST"}, Handler: Login},
		{Path: "/api/admin/payments", Methods: []string{"GET"}, Handler: ListPayments, IsRoleProtected: true},
		{Path: "/api/admin/receipts", Methods: []string{"GET"}, Handler: ListReceipts, IsRoleProtected: true},
		{Path: "/api/admin/gateway/payments/{id}", Methods: []string{"GET"}, Handler: GetGatewayPayment, IsRoleProtected: true},
	}
}
