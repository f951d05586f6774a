package db

import (
	"testing"
	"time"

	"bitbucket.org/akrix/backend/models"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var paymentColumns = []string{
	"id", "user_id", "amount", "payment_mode", "status",
	"gateway_payment_id", "gateway_order_id", "gateway_signature",
	"receipt_number", "created_at", "updated_at",
	"user_id", "name", "email", "phone", "address", "user_created_at", "user_updated_at",
	"receipt_id", "receipt_number", "generated_at",
}

func setupMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	return Wrap(sqlx.NewDb(mockDB, DriverMySQL)), mock
}

func TestIsDuplicateEntry(t *testing.T) {
	assert.True(t, isDuplicateEntry(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}))
	assert.True(t, isDuplicateEntry(errors.Wrap(&pq.Error{Code: "23505"}, "insert")))
	assert.False(t, isDuplicateEntry(&mysql.MySQLError{Number: 1213}))
	assert.False(t, isDuplicateEntry(errors.New("boom")))
	assert.False(t, isDuplicateEntry(nil))
}

func TestGenerateReceiptNumber(t *testing.T) {
	now := time.Date(2024, 12, 1, 8, 0, 0, 0, time.UTC)

	for i := 0; i < 50; i++ {
		number := GenerateReceiptNumber("AKRX", now)
		assert.Regexp(t, `^AKRX-20241201-\d{4}$`, number)
	}
}

func TestValidReceiptPrefix(t *testing.T) {
	assert.True(t, ValidReceiptPrefix("AKRX"))
	assert.True(t, ValidReceiptPrefix("P"))
	assert.False(t, ValidReceiptPrefix("akrx"))
	assert.False(t, ValidReceiptPrefix("AK-1"))
	assert.False(t, ValidReceiptPrefix("ÅKRX"))
	assert.False(t, ValidReceiptPrefix(""))
}

func TestInsertPaymentCommits(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectPrepare("INSERT INTO payments").
		ExpectExec().
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := db.InsertPayment(&models.Payment{
		ID:            "p-1",
		UserID:        "u-1",
		Amount:        decimal.RequireFromString("99.90"),
		Mode:          models.PaymentModeUPI,
		Status:        models.PaymentStatusPending,
		ReceiptNumber: "AKRX-20241201-0042",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertReceiptDuplicateIsConflict(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectPrepare("INSERT INTO receipts").
		ExpectExec().
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'p-1' for key 'uq_receipts_payment'"})
	mock.ExpectRollback()

	err := db.InsertReceipt(&models.Receipt{ID: "r-1", PaymentID: "p-1", ReceiptNumber: "AKRX-20241201-0042"})
	require.Error(t, err)
	assert.True(t, models.IsConflict(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertUserDuplicateIsConflict(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectPrepare("INSERT INTO users").
		ExpectExec().
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	err := db.InsertUser(&models.User{ID: "u-1", Email: "asha@example.com"})
	assert.True(t, models.IsConflict(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePaymentStatusNoRowsIsStatusChanged(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectPrepare("UPDATE").
		ExpectExec().
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := db.UpdatePaymentStatus(&UpdatePaymentStatusOpts{
		ID:   "p-1",
		From: models.PaymentStatusPending,
		To:   models.PaymentStatusCompleted,
	})
	assert.Equal(t, ErrStatusChanged, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetPaymentGatewayOrderKeepsExistingOrder(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectPrepare(`gateway_order_id IS NULL`).
		ExpectExec().
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := db.SetPaymentGatewayOrder("p-1", "order_2")
	assert.Equal(t, ErrStatusChanged, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePaymentStatusCommits(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectPrepare("UPDATE").
		ExpectExec().
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := db.UpdatePaymentStatus(&UpdatePaymentStatusOpts{
		ID:               "p-1",
		From:             models.PaymentStatusPending,
		To:               models.PaymentStatusCompleted,
		GatewayPaymentID: models.StringPtr("pay_1"),
		UpdatedAt:        time.Now(),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPaymentByIDNotFound(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectPrepare("SELECT").
		ExpectQuery().
		WillReturnRows(sqlmock.NewRows(paymentColumns))

	payment, err := db.GetPaymentByID("missing")
	assert.NoError(t, err)
	assert.Nil(t, payment)
}

func TestGetPaymentByIDLoadsUserAndReceipt(t *testing.T) {
	db, mock := setupMockDB(t)
	now := time.Date(2024, 12, 1, 8, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(paymentColumns).AddRow(
		"p-1", "u-1", "1500.50", "upi", "success",
		"123456789012", nil, nil,
		"AKRX-20241201-0042", now, now,
		"u-1", "Asha Rao", "asha@example.com", "9876543210", "12 MG Road", now, now,
		"r-1", "AKRX-20241201-0042", now,
	)
	mock.ExpectPrepare("SELECT").
		ExpectQuery().
		WithArgs("p-1").
		WillReturnRows(rows)

	payment, err := db.GetPaymentByID("p-1")
	require.NoError(t, err)
	require.NotNil(t, payment)

	assert.Equal(t, models.PaymentStatusCompleted, payment.Status)
	assert.Equal(t, models.PaymentModeUPI, payment.Mode)
	assert.True(t, decimal.RequireFromString("1500.50").Equal(payment.Amount))
	assert.Equal(t, "123456789012", models.StringValue(payment.GatewayPaymentID))
	assert.Nil(t, payment.GatewayOrderID)
	assert.Equal(t, "asha@example.com", payment.User.Email)
	require.NotNil(t, payment.Receipt)
	assert.Equal(t, "r-1", payment.Receipt.ID)
	assert.Equal(t, "p-1", payment.Receipt.PaymentID)
}

func TestMigrateUsesDriverTimestamp(t *testing.T) {
	db, mock := setupMockDB(t)

	for range schema {
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS .* DATETIME").
			WillReturnResult(sqlmock.NewResult(0, 0))
	}

	require.NoError(t, db.Migrate())
	assert.NoError(t, mock.ExpectationsWereMet())
}
