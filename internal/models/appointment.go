package models

import (
	"time"
)

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is one of the known appointment statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Appointment mirrors the appointment table. AppointmentDateTime and
// UpdatedAt are always UTC instants.
type Appointment struct {
	ID                  int64     `json:"id"`
	AppointmentDateTime time.Time `json:"appointment_date_time"`
	Status              Status    `json:"status"`
	PatientName         string    `json:"patient_name"`
	PatientPhoneNumber  *string   `json:"patient_phone_number"`
	ClinicLocation      int64     `json:"clinic_location"`
	ClinicLocationName  string    `json:"clinic_location_name,omitempty"`
	Diagnosis           string    `json:"diagnosis"`
	Notes               string    `json:"notes"`
	Amount              float64   `json:"amount"`
	UpdatedAt           time.Time `json:"updated_at"`
	UpdatedBy           *string   `json:"updated_by"`
}

// NewAppointment is what the booking form submits.
type NewAppointment struct {
	DateTime       time.Time
	PatientName    string
	ClinicLocation int64
	Phone          *string
	Notes          string
	UpdatedBy      string
}

// AppointmentUpdate is a full-row overwrite; zero values are written as-is.
type AppointmentUpdate struct {
	ID             int64
	PatientName    string
	Phone          *string
	Status         Status
	Diagnosis      string
	Notes          string
	Amount         float64
	UpdatedBy      string
	ClinicLocation int64
	UpdatedAt      time.Time
}
