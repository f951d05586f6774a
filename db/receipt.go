package db

import (
	"database/sql"

	"bitbucket.org/akrix/backend/models"
	"github.com/pkg/errors"
)

type ReceiptStorage interface {
	GetReceiptByID(id string) (*models.Receipt, error)
	GetReceiptByPaymentID(paymentID string) (*models.Receipt, error)
	InsertReceipt(*models.Receipt) error
	ListReceipts(models.ListOpts) ([]models.Receipt, int, error)
}

const (
	selectReceipt = `
	SELECT
		receipts.id,
		receipts.payment_id,
		receipts.receipt_number,
		receipts.generated_at
	FROM receipts
	`

	getReceiptByID = selectReceipt + `
	WHERE receipts.id = :id
	`

	getReceiptByPaymentID = selectReceipt + `
	WHERE receipts.payment_id = :payment_id
	`

	insertReceipt = `
	INSERT INTO receipts
		(id, payment_id, receipt_number, generated_at)
	VALUES
		(:id, :payment_id, :receipt_number, :generated_at)
	`

	listReceipts = selectPayment + `
	INNER JOIN receipts AS listed ON (listed.payment_id = payments.id)
	` + listFilter + `
	ORDER BY listed.generated_at DESC
	LIMIT :limit OFFSET :offset
	`

	countReceipts = `
	SELECT
		COUNT(*)
	FROM receipts
	INNER JOIN payments ON (payments.id = receipts.payment_id)
	INNER JOIN users ON (users.id = payments.user_id)
	` + listFilter
)

func (db *DB) getReceipt(query string, args map[string]interface{}) (*models.Receipt, error) {
	stmt, err := db.PrepareNamed(query)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	var receipt models.Receipt

	row := stmt.QueryRow(args)
	if err := row.Scan(
		&receipt.ID,
		&receipt.PaymentID,
		&receipt.ReceiptNumber,
		&receipt.GeneratedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	return &receipt, nil
}

func (db *DB) GetReceiptByID(id string) (*models.Receipt, error) {
	return db.getReceipt(getReceiptByID, map[string]interface{}{
		"id": id,
	})
}

func (db *DB) GetReceiptByPaymentID(paymentID string) (*models.Receipt, error) {
	return db.getReceipt(getReceiptByPaymentID, map[string]interface{}{
		"payment_id": paymentID,
	})
}

// InsertReceipt returns a *models.ConflictError when the payment already has a receipt.
func (db *DB) InsertReceipt(receipt *models.Receipt) error {
	return db.withTx(func(tx Tx) error {
		stmt, err := tx.PrepareNamed(insertReceipt)
		if err != nil {
			return err
		}
		defer stmt.Close()

		args := map[string]interface{}{
			"id":             receipt.ID,
			"payment_id":     receipt.PaymentID,
			"receipt_number": receipt.ReceiptNumber,
			"generated_at":   receipt.GeneratedAt,
		}

		result, err := stmt.Exec(args)
		if err != nil {
			return conflictOrErr("receipt", err)
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

// ListReceipts returns receipts with their payment and user loaded.
func (db *DB) ListReceipts(opts models.ListOpts) ([]models.Receipt, int, error) {
	args := listArgs(opts)

	total, err := db.count(countReceipts, args)
	if err != nil {
		return nil, 0, err
	}

	stmt, err := db.PrepareNamed(listReceipts)
	if err != nil {
		return nil, 0, err
	}
	defer stmt.Close()

	rows, err := stmt.Query(args)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	receipts := []models.Receipt{}
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, 0, err
		}
		receipt := *payment.Receipt
		payment.Receipt = nil
		receipt.Payment = payment
		receipts = append(receipts, receipt)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return receipts, total, nil
}
