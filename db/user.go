package db

import (
	"database/sql"

	"bitbucket.org/akrix/backend/models"
	"github.com/pkg/errors"
)

type UserStorage interface {
	GetUserByEmail(email string) (*models.User, error)
	InsertUser(*models.User) error
}

const (
	getUserByEmail = `
	SELECT
		users.id,
		users.name,
		users.email,
		users.phone,
		users.address,
		users.created_at,
		users.updated_at
	FROM users
	WHERE users.email = :email
	`

	insertUser = `
	INSERT INTO users
		(id, name, email, phone, address, created_at, updated_at)
	VALUES
		(:id, :name, :email, :phone, :address, :created_at, :updated_at)
	`
)

func (db *DB) GetUserByEmail(email string) (*models.User, error) {
	stmt, err := db.PrepareNamed(getUserByEmail)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	args := map[string]interface{}{
		"email": email,
	}

	var user models.User

	row := stmt.QueryRow(args)
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Phone,
		&user.Address,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	return &user, nil
}

// InsertUser returns a *models.ConflictError when the email is already taken.
func (db *DB) InsertUser(user *models.User) error {
	return db.withTx(func(tx Tx) error {
		stmt, err := tx.PrepareNamed(insertUser)
		if err != nil {
			return err
		}
		defer stmt.Close()

		args := map[string]interface{}{
			"id":         user.ID,
			"name":       user.Name,
			"email":      user.Email,
			"phone":      user.Phone,
			"address":    user.Address,
			"created_at": user.CreatedAt,
			"updated_at": user.UpdatedAt,
		}

		result, err := stmt.Exec(args)
		if err != nil {
			return conflictOrErr("user", err)
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
