package db

import (
	"database/sql"
	"time"

	"bitbucket.org/akrix/backend/models"
	"github.com/pkg/errors"
)

type PaymentStorage interface {
	InsertPayment(*models.Payment) error
	GetPaymentByID(id string) (*models.Payment, error)
	GetPaymentByGatewayOrderID(orderID string) (*models.Payment, error)
	SetPaymentGatewayOrder(id string, orderID string) error
	UpdatePaymentStatus(*UpdatePaymentStatusOpts) error
	ListPayments(models.ListOpts) ([]models.Payment, int, error)
}

// UpdatePaymentStatusOpts moves a payment from From to To. Nil gateway fields keep their stored value.
type UpdatePaymentStatusOpts struct {
	ID               string
	From             models.PaymentStatus
	To               models.PaymentStatus
	GatewayPaymentID *string
	GatewayOrderID   *string
	GatewaySignature *string
	UpdatedAt        time.Time
}

const (
	selectPayment = `
	SELECT
		payments.id,
		payments.user_id,
		payments.amount,
		payments.payment_mode,
		payments.status,
		payments.gateway_payment_id,
		payments.gateway_order_id,
		payments.gateway_signature,
		payments.receipt_number,
		payments.created_at,
		payments.updated_at,
		users.id,
		users.name,
		users.email,
		users.phone,
		users.address,
		users.created_at,
		users.updated_at,
		receipts.id,
		receipts.receipt_number,
		receipts.generated_at
	FROM payments
	INNER JOIN users ON (users.id = payments.user_id)
	LEFT JOIN receipts ON (receipts.payment_id = payments.id)
	`

	getPaymentByID = selectPayment + `
	WHERE payments.id = :id
	`

	getPaymentByGatewayOrderID = selectPayment + `
	WHERE payments.gateway_order_id = :gateway_order_id
	`

	listFilter = `
	WHERE (:status = '' OR payments.status = :status)
	AND (
		:search = ''
		OR LOWER(users.name) LIKE LOWER(:search)
		OR LOWER(users.email) LIKE LOWER(:search)
		OR LOWER(payments.receipt_number) LIKE LOWER(:search)
	)
	`

	listPayments = selectPayment + listFilter + `
	ORDER BY payments.created_at DESC
	LIMIT :limit OFFSET :offset
	`

	countPayments = `
	SELECT
		COUNT(*)
	FROM payments
	INNER JOIN users ON (users.id = payments.user_id)
	` + listFilter

	insertPayment = `
	INSERT INTO payments
		(id, user_id, amount, payment_mode, status, receipt_number, created_at, updated_at)
	VALUES
		(:id, :user_id, :amount, :payment_mode, :status, :receipt_number, :created_at, :updated_at)
	`

	setPaymentGatewayOrder = `
	UPDATE
		payments
	SET
		gateway_order_id = :gateway_order_id,
		updated_at = :updated_at
	WHERE
		id = :id AND status = :status AND gateway_order_id IS NULL
	`

	updatePaymentStatus = `
	UPDATE
		payments
	SET
		status = :to,
		gateway_payment_id = COALESCE(:gateway_payment_id, gateway_payment_id),
		gateway_order_id = COALESCE(:gateway_order_id, gateway_order_id),
		gateway_signature = COALESCE(:gateway_signature, gateway_signature),
		updated_at = :updated_at
	WHERE
		id = :id AND status = :from
	`
)

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanPayment(row scanner) (*models.Payment, error) {
	var (
		payment          models.Payment
		user             models.User
		receiptID        sql.NullString
		receiptNumber    sql.NullString
		receiptGenerated sql.NullTime
	)

	if err := row.Scan(
		&payment.ID,
		&payment.UserID,
		&payment.Amount,
		&payment.Mode,
		&payment.Status,
		&payment.GatewayPaymentID,
		&payment.GatewayOrderID,
		&payment.GatewaySignature,
		&payment.ReceiptNumber,
		&payment.CreatedAt,
		&payment.UpdatedAt,
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Phone,
		&user.Address,
		&user.CreatedAt,
		&user.UpdatedAt,
		&receiptID,
		&receiptNumber,
		&receiptGenerated,
	); err != nil {
		return nil, err
	}

	payment.User = &user
	if receiptID.Valid {
		payment.Receipt = &models.Receipt{
			ID:            receiptID.String,
			PaymentID:     payment.ID,
			ReceiptNumber: receiptNumber.String,
			GeneratedAt:   receiptGenerated.Time,
		}
	}

	return &payment, nil
}

func (db *DB) InsertPayment(payment *models.Payment) error {
	return db.withTx(func(tx Tx) error {
		stmt, err := tx.PrepareNamed(insertPayment)
		if err != nil {
			return err
		}
		defer stmt.Close()

		args := map[string]interface{}{
			"id":             payment.ID,
			"user_id":        payment.UserID,
			"amount":         payment.Amount,
			"payment_mode":   payment.Mode,
			"status":         payment.Status,
			"receipt_number": payment.ReceiptNumber,
			"created_at":     payment.CreatedAt,
			"updated_at":     payment.UpdatedAt,
		}

		result, err := stmt.Exec(args)
		if err != nil {
			return conflictOrErr("payment", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return err
		}

		if int(rowsAffected) != 1 {
			return errors.Errorf("expected %d and inserted %d", 1, rowsAffected)
		}

		return nil
	})
}

func (db *DB) getPayment(query string, args map[string]interface{}) (*models.Payment, error) {
	stmt, err := db.PrepareNamed(query)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	payment, err := scanPayment(stmt.QueryRow(args))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	return payment, nil
}

func (db *DB) GetPaymentByID(id string) (*models.Payment, error) {
	return db.getPayment(getPaymentByID, map[string]interface{}{
		"id": id,
	})
}

func (db *DB) GetPaymentByGatewayOrderID(orderID string) (*models.Payment, error) {
	return db.getPayment(getPaymentByGatewayOrderID, map[string]interface{}{
		"gateway_order_id": orderID,
	})
}

// SetPaymentGatewayOrder records the gateway order of a pending payment.
func (db *DB) SetPaymentGatewayOrder(id string, orderID string) error {
	return db.withTx(func(tx Tx) error {
		stmt, err := tx.PrepareNamed(setPaymentGatewayOrder)
		if err != nil {
			return err
		}
		defer stmt.Close()

		args := map[string]interface{}{
			"id":               id,
			"gateway_order_id": orderID,
			"status":           models.PaymentStatusPending,
			"updated_at":       time.Now().UTC(),
		}

		result, err := stmt.Exec(args)
		if err != nil {
			return err
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return err
		}

		if int(rowsAffected) != 1 {
			return ErrStatusChanged
		}

		return nil
	})
}

// UpdatePaymentStatus is a compare-and-set on the payment status. It returns
// ErrStatusChanged when the row is missing or no longer in opts.From.
func (db *DB) UpdatePaymentStatus(opts *UpdatePaymentStatusOpts) error {
	return db.withTx(func(tx Tx) error {
		stmt, err := tx.PrepareNamed(updatePaymentStatus)
		if err != nil {
			return err
		}
		defer stmt.Close()

		args := map[string]interface{}{
			"id":                 opts.ID,
			"from":               opts.From,
			"to":                 opts.To,
			"gateway_payment_id": opts.GatewayPaymentID,
			"gateway_order_id":   opts.GatewayOrderID,
			"gateway_signature":  opts.GatewaySignature,
			"updated_at":         opts.UpdatedAt,
		}

		result, err := stmt.Exec(args)
		if err != nil {
			return err
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return err
		}

		if int(rowsAffected) != 1 {
			return ErrStatusChanged
		}

		return nil
	})
}

func (db *DB) ListPayments(opts models.ListOpts) ([]models.Payment, int, error) {
	args := listArgs(opts)

	total, err := db.count(countPayments, args)
	if err != nil {
		return nil, 0, err
	}

	stmt, err := db.PrepareNamed(listPayments)
	if err != nil {
		return nil, 0, err
	}
	defer stmt.Close()

	rows, err := stmt.Query(args)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	payments := []models.Payment{}
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, 0, err
		}
		payments = append(payments, *payment)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return payments, total, nil
}

func listArgs(opts models.ListOpts) map[string]interface{} {
	opts.Normalize()
	return map[string]interface{}{
		"status": opts.Status,
		"search": likePattern(opts.Search),
		"limit":  opts.Limit,
		"offset": opts.Offset(),
	}
}

func (db *DB) count(query string, args map[string]interface{}) (int, error) {
	stmt, err := db.PrepareNamed(query)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	var total int
	if err := stmt.QueryRow(args).Scan(&total); err != nil {
		return 0, err
	}

	return total, nil
}
