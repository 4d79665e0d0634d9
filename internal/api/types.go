// Package api holds the JSON shapes exchanged between the browser-facing
// client and the Lambda handlers.
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/clinicbook/internal/models"
)

// Envelope is the {success, data|error} body most endpoints return.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

type CheckAccessRequest struct {
	Email string `json:"email" validate:"required"`
}

type CheckAccessResponse struct {
	IsAllowed bool   `json:"isAllowed"`
	IsAdmin   *bool  `json:"isAdmin,omitempty"`
	Token     string `json:"token,omitempty"`
}

type PersistAppointmentRequest struct {
	Payload *Booking `json:"payload" validate:"required"`
}

type Booking struct {
	DateTime       string  `json:"datetime" validate:"required"`
	Name           string  `json:"name" validate:"required,max=100"`
	ClinicLocation FlexInt `json:"clinicLocation" validate:"required,gt=0"`
	Phone          string  `json:"phone" validate:"omitempty,phone_in"`
	Notes          string  `json:"notes"`
	UpdatedBy      string  `json:"updated_by" validate:"max=255"`
	TimeZone       string  `json:"timeZone" validate:"omitempty,timezone"`
}

type UpdateAppointmentRequest struct {
	Payload *AppointmentChanges `json:"payload" validate:"required"`
}

type AppointmentChanges struct {
	ID          FlexInt   `json:"id" validate:"required,gt=0"`
	PatientName string    `json:"patientName" validate:"required,max=100"`
	PhoneNumber string    `json:"phoneNumber" validate:"omitempty,phone_in"`
	Status      string    `json:"status" validate:"omitempty,status"`
	Diagnosis   string    `json:"diagnosis"`
	Notes       string    `json:"notes"`
	Amount      FlexFloat `json:"amount" validate:"gte=0"`
	UpdatedBy   string    `json:"updated_by" validate:"max=255"`
	ClinicID    FlexInt   `json:"clinic_id" validate:"required,gt=0"`
	TimeZone    string    `json:"timeZone" validate:"omitempty,timezone"`
}

type UpdatedID struct {
	ID int64 `json:"id"`
}

// ManageUsersRequest is the wire form of every manage-users action; the
// handler converts it into one typed command per action.
type ManageUsersRequest struct {
	Action  string  `json:"action"`
	Email   string  `json:"email,omitempty"`
	IsAdmin bool    `json:"isAdmin,omitempty"`
	UserID  FlexInt `json:"userId,omitempty"`
	Name    *string `json:"name,omitempty"`
	Notes   *string `json:"notes,omitempty"`
}

// manage-users actions
const (
	ActionGetUserByEmail = "get-user-by-email"
	ActionGetAllUsers    = "get-all-users"
	ActionAddUser        = "add-user"
	ActionUpdateUser     = "update-user"
	ActionDeleteUser     = "delete-user"
)

type UserResponse struct {
	Success bool                `json:"success,omitempty"`
	User    *models.AllowedUser `json:"user"`
}

type UsersResponse struct {
	Users []models.AllowedUser `json:"users"`
}

// FlexInt accepts a JSON number or a numeric string, since HTML select
// values arrive as strings.
type FlexInt int64

func (f *FlexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = 0
		return nil
	}
	s := strings.Trim(string(b), `"`)
	if s == "" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid integer %s", b)
	}
	*f = FlexInt(n)
	return nil
}

type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = 0
		return nil
	}
	s := strings.Trim(string(b), `"`)
	if s == "" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid number %s", b)
	}
	*f = FlexFloat(n)
	return nil
}

// MarshalJSON keeps FlexInt a plain number on the way out.
func (f FlexInt) MarshalJSON() ([]byte, error) {
	return json.Marshal(int64(f))
}
