package models

import (
	"time"
)

// AllowedUser is a row of the login allow-list.
type AllowedUser struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      *string   `json:"name"`
	Notes     *string   `json:"notes"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

type ClinicLocation struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// NewAllowedUser is the input to an allow-list insert.
type NewAllowedUser struct {
	Email   string
	Name    *string
	Notes   *string
	IsAdmin bool
}
