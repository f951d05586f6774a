package db

import (
	"database/sql"

	"bitbucket.org/akrix/backend/models"
	"github.com/pkg/errors"
)

type AdminStorage interface {
	GetAdminLoginByUsername(string) (*models.Admin, error)
	InsertAdmin(*models.Admin) error
}

const (
	getAdminLoginByUsername = `
	SELECT
		admins.id,
		admins.username,
		admins.email,
		admins.password,
		admins.name,
		admins.role,
		admins.active,
		admins.created_at,
		admins.updated_at
	FROM admins
	WHERE (admins.username = :username OR admins.email = :username)
	AND admins.active = :active
	`

	insertAdmin = `
	INSERT INTO admins
		(id, username, email, password, name, role, active, created_at, updated_at)
	VALUES
		(:id, :username, :email, :password, :name, :role, :active, :created_at, :updated_at)
	`
)

func (db *DB) GetAdminLoginByUsername(username string) (*models.Admin, error) {
	stmt, err := db.PrepareNamed(getAdminLoginByUsername)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	args := map[string]interface{}{
		"username": username,
		"active":   true,
	}

	row := stmt.QueryRow(args)

	var admin models.Admin

	if err := row.Scan(
		&admin.ID,
		&admin.Username,
		&admin.Email,
		&admin.Password,
		&admin.Name,
		&admin.Role,
		&admin.Active,
		&admin.CreatedAt,
		&admin.UpdatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return &admin, nil
}

func (db *DB) InsertAdmin(admin *models.Admin) error {
	return db.withTx(func(tx Tx) error {
		stmt, err := tx.PrepareNamed(insertAdmin)
		if err != nil {
			return err
		}
		defer stmt.Close()

		args := map[string]interface{}{
			"id":         admin.ID,
			"username":   admin.Username,
			"email":      admin.Email,
			"password":   admin.Password,
			"name":       admin.Name,
			"role":       admin.Role,
			"active":     admin.Active,
			"created_at": admin.CreatedAt,
			"updated_at": admin.UpdatedAt,
		}

		result, err := stmt.Exec(args)
		if err != nil {
			return conflictOrErr("admin", err)
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
