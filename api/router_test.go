package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bitbucket.org/akrix/backend/config"
	"bitbucket.org/akrix/backend/db"
	"bitbucket.org/akrix/backend/helpers"
	"bitbucket.org/akrix/backend/models"
	"bitbucket.org/akrix/backend/payments"
	"bitbucket.org/akrix/backend/razorpay"
	"bitbucket.org/akrix/backend/server"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-jwt-secret"

func newTestHandler(t *testing.T) (http.Handler, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	storage := db.Wrap(sqlx.NewDb(mockDB, db.DriverMySQL))
	gateway := razorpay.NewClient(razorpay.Options{KeyID: "rzp_test", KeySecret: "secret", WebhookSecret: "whsec"})
	receipts := payments.NewReceiptGenerator(storage, &helpers.FPDFRenderer{}, time.Second, nil)

	ctx := &config.AppContext{
		Config:   config.Configuration{JWTSecret: testSecret},
		DB:       storage,
		Razorpay: gateway,
		Payments: payments.NewOrchestrator(payments.Config{
			Store:    payments.NewStore(storage, receipts, db.DefaultReceiptPrefix, nil),
			Receipts: receipts,
			Gateway:  gateway,
		}),
	}

	return server.NewHandler(ctx, GetRoutes()), mock
}

func do(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func bearer(t *testing.T, role string) map[string]string {
	t.Helper()
	token, err := helpers.GenerateToken(&models.Admin{ID: "a-1", Username: "admin", Role: role}, testSecret, time.Now())
	require.NoError(t, err)
	return map[string]string{"Authorization": "Bearer " + token}
}

func TestHealthcheck(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := do(t, h, http.MethodGet, "/healthcheck", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestCreateOrderValidation(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := do(t, h, http.MethodPost, "/api/payment/create-order", `{"name":"Asha","email":"not-an-email","amount":0}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateOrderRejectsSubPaiseAmount(t *testing.T) {
	h, mock := newTestHandler(t)

	body := `{"name":"Asha","email":"asha@example.com","phone":"9876543210","address":"12 MG Road","amount":0.009,"payment_mode":"card"}`
	rec := do(t, h, http.MethodPost, "/api/payment/create-order", body, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "amount")
	assert.NoError(t, mock.ExpectationsWereMet(), "storage must not be touched")
}

func TestVerifyUTRRejectsMalformedCode(t *testing.T) {
	h, mock := newTestHandler(t)

	rec := do(t, h, http.MethodPost, "/api/payment/verify-utr", `{"payment_id":"p-1","utr":"12345"}`, map[string]string{"Accept-Language": "en-IN,en;q=0.9"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.NoError(t, mock.ExpectationsWereMet(), "storage must not be touched")
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := do(t, h, http.MethodPost, "/api/payment/webhook", `{"event":"payment.captured"}`, map[string]string{"X-Razorpay-Signature": "forged"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetPaymentNotFound(t *testing.T) {
	h, mock := newTestHandler(t)
	mock.ExpectPrepare("SELECT").ExpectQuery().WillReturnRows(sqlmock.NewRows([]string{"id"}))

	rec := do(t, h, http.MethodGet, "/api/payment/missing", "", map[string]string{"Accept-Language": "hi"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "भुगतान नहीं मिला")
}

func TestAdminRoutesRequireToken(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := do(t, h, http.MethodGet, "/api/admin/payments", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/admin/payments", "", bearer(t, "viewer"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminListPayments(t *testing.T) {
	h, mock := newTestHandler(t)
	mock.ExpectPrepare("SELECT COUNT").ExpectQuery().WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectPrepare("SELECT").ExpectQuery().WillReturnRows(sqlmock.NewRows([]string{"id"}))

	rec := do(t, h, http.MethodGet, "/api/admin/payments?page=2&limit=5&status=completed", "", bearer(t, models.AdminRole))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var page models.Page
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 5, page.Limit)
	assert.Equal(t, 0, page.Total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginUnknownAdmin(t *testing.T) {
	h, mock := newTestHandler(t)
	mock.ExpectPrepare("FROM admins").ExpectQuery().WillReturnRows(sqlmock.NewRows([]string{"id"}))

	rec := do(t, h, http.MethodPost, "/api/admin/login", `{"username":"nobody","password":"secret123"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
