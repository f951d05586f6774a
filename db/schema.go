package db

import (
	"fmt"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Unique constraints on users.email and receipts.payment_id back the
// get-or-create paths in InsertUser and InsertReceipt.
// receipts.receipt_number is not unique.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id VARCHAR(36) NOT NULL PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		email VARCHAR(255) NOT NULL,
		phone VARCHAR(20) NOT NULL,
		address TEXT NOT NULL,
		created_at %[1]s NOT NULL,
		updated_at %[1]s NOT NULL,
		CONSTRAINT uq_users_email UNIQUE (email)
	)`,
	`CREATE TABLE IF NOT EXISTS payments (
		id VARCHAR(36) NOT NULL PRIMARY KEY,
		user_id VARCHAR(36) NOT NULL,
		amount DECIMAL(10,2) NOT NULL,
		payment_mode VARCHAR(20) NOT NULL,
		status VARCHAR(20) NOT NULL,
		gateway_payment_id VARCHAR(255) NULL,
		gateway_order_id VARCHAR(255) NULL,
		gateway_signature VARCHAR(255) NULL,
		receipt_number VARCHAR(50) NOT NULL,
		created_at %[1]s NOT NULL,
		updated_at %[1]s NOT NULL,
		CONSTRAINT fk_payments_user FOREIGN KEY (user_id) REFERENCES users (id)
	)`,
	`CREATE TABLE IF NOT EXISTS receipts (
		id VARCHAR(36) NOT NULL PRIMARY KEY,
		payment_id VARCHAR(36) NOT NULL,
		receipt_number VARCHAR(50) NOT NULL,
		generated_at %[1]s NOT NULL,
		CONSTRAINT uq_receipts_payment UNIQUE (payment_id),
		CONSTRAINT fk_receipts_payment FOREIGN KEY (payment_id) REFERENCES payments (id)
	)`,
	`CREATE TABLE IF NOT EXISTS admins (
		id VARCHAR(36) NOT NULL PRIMARY KEY,
		username VARCHAR(100) NOT NULL,
		email VARCHAR(255) NOT NULL,
		password VARCHAR(255) NOT NULL,
		name VARCHAR(255) NOT NULL,
		role VARCHAR(20) NOT NULL,
		active BOOLEAN NOT NULL,
		created_at %[1]s NOT NULL,
		updated_at %[1]s NOT NULL,
		CONSTRAINT uq_admins_username UNIQUE (username),
		CONSTRAINT uq_admins_email UNIQUE (email)
	)`,
}

func timestampType(driver string) string {
	if driver == DriverPostgres {
		return "TIMESTAMP"
	}
	return "DATETIME"
}

// Migrate creates the tables that do not exist yet.
func (db *DB) Migrate() error {
	ts := timestampType(db.DriverName())
	for i, statement := range schema {
		if _, err := db.Exec(fmt.Sprintf(statement, ts)); err != nil {
			return errors.Wrapf(err, "failed running schema statement %d", i)
		}
	}

	log.WithFields(log.Fields{
		"driver": db.DriverName(),
		"tables": len(schema),
	}).Info("schema up to date")

	return nil
}
