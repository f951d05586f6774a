package models

import (
	"time"

	"github.com/thedevsaddam/govalidator"
)

type Admin struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	Token     string    `json:"token,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const AdminRole = "admin"

// InfoAdmin is the identity decoded from a verified token.
type InfoAdmin struct {
	ID       string
	Username string
	Role     string
	IsAdmin  bool
}

type LoginOpts struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

var LoginRules = govalidator.MapData{
	"username": []string{"required"},
	"password": []string{"required"},
}

type InsertAdminOpts struct {
	Username string
	Email    string
	Name     string
	Password string
}
