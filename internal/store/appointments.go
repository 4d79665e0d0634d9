package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/clinicbook/internal/models"
	"github.com/clinicbook/internal/timeutil"
)

const appointmentColumns = `a.id, a.appointment_date_time, a.status, a.patient_name,
	a.patient_phone_number, a.clinic_location, COALESCE(l.name, ''), a.diagnosis,
	a.notes, a.amount, a.updated_at, a.updated_by`

// ListByDateAndLocation returns the appointments falling on calendar day
// date in loc, ordered by time. A nil locationID covers every location.
func (s *Store) ListByDateAndLocation(ctx context.Context, date string, loc *time.Location, locationID *int64) ([]models.Appointment, error) {
	start, end, err := timeutil.DayRange(date, loc)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + appointmentColumns + ` FROM appointment a `
	args := []any{start, end}
	if locationID != nil {
		query += `JOIN clinic_locations l ON l.id = a.clinic_location
			WHERE a.appointment_date_time BETWEEN $1 AND $2 AND a.clinic_location = $3`
		args = append(args, *locationID)
	} else {
		query += `LEFT JOIN clinic_locations l ON l.id = a.clinic_location
			WHERE a.appointment_date_time BETWEEN $1 AND $2`
	}
	query += ` ORDER BY a.appointment_date_time ASC, a.id ASC`

	appointments := []models.Appointment{}
	err = s.withConn(ctx, "list appointments", func(c *sql.Conn) error {
		rows, err := c.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			a, err := s.scanAppointment(ctx, rows)
			if err != nil {
				return err
			}
			appointments = append(appointments, a)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return appointments, nil
}

func (s *Store) scanAppointment(ctx context.Context, row scanner) (models.Appointment, error) {
	var (
		a         models.Appointment
		status    string
		phone     sql.NullString
		updatedBy sql.NullString
	)
	err := row.Scan(&a.ID, &a.AppointmentDateTime, &status, &a.PatientName,
		&phone, &a.ClinicLocation, &a.ClinicLocationName, &a.Diagnosis,
		&a.Notes, &a.Amount, &a.UpdatedAt, &updatedBy)
	if err != nil {
		return a, err
	}
	a.Status = models.Status(status)
	a.AppointmentDateTime = a.AppointmentDateTime.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
	if phone.Valid {
		a.PatientPhoneNumber = &phone.String
	}
	if updatedBy.Valid {
		a.UpdatedBy = &updatedBy.String
	}
	if a.Diagnosis, err = s.open(ctx, a.Diagnosis); err != nil {
		return a, err
	}
	if a.Notes, err = s.open(ctx, a.Notes); err != nil {
		return a, err
	}
	return a, nil
}

// CreateAppointment books a new appointment. Status starts as scheduled
// and diagnosis as empty.
func (s *Store) CreateAppointment(ctx context.Context, in models.NewAppointment) (int64, error) {
	notes, err := s.seal(ctx, in.Notes)
	if err != nil {
		return 0, classify("create appointment", err)
	}

	var id int64
	err = s.withConn(ctx, "create appointment", func(c *sql.Conn) error {
		return c.QueryRowContext(ctx,
			`INSERT INTO appointment
				(appointment_date_time, status, patient_name, patient_phone_number,
				 clinic_location, diagnosis, notes, updated_at, updated_by)
			 VALUES ($1, $2, $3, $4, $5, '', $6, $7, $8)
			 RETURNING id`,
			in.DateTime.UTC(), models.StatusScheduled, in.PatientName, in.Phone,
			in.ClinicLocation, notes, s.now().UTC(), in.UpdatedBy,
		).Scan(&id)
	})
	return id, err
}

// UpdateAppointment overwrites every mutable column. A blank status becomes
// scheduled; blank diagnosis, notes and zero amount are written as such.
// There is no version check: the last write wins.
func (s *Store) UpdateAppointment(ctx context.Context, in models.AppointmentUpdate) (int64, error) {
	if in.Status == "" {
		in.Status = models.StatusScheduled
	}
	if in.UpdatedAt.IsZero() {
		in.UpdatedAt = s.now()
	}

	diagnosis, err := s.seal(ctx, in.Diagnosis)
	if err != nil {
		return 0, classify("update appointment", err)
	}
	notes, err := s.seal(ctx, in.Notes)
	if err != nil {
		return 0, classify("update appointment", err)
	}

	var id int64
	err = s.withConn(ctx, "update appointment", func(c *sql.Conn) error {
		err := c.QueryRowContext(ctx,
			`UPDATE appointment SET
				patient_name = $1, patient_phone_number = $2, status = $3,
				diagnosis = $4, notes = $5, amount = $6, updated_by = $7,
				clinic_location = $8, updated_at = $9
			 WHERE id = $10
			 RETURNING id`,
			in.PatientName, in.Phone, in.Status, diagnosis, notes, in.Amount,
			in.UpdatedBy, in.ClinicLocation, in.UpdatedAt.UTC(), in.ID,
		).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	})
	return id, err
}

// DeleteAppointment removes the row permanently.
func (s *Store) DeleteAppointment(ctx context.Context, id int64) error {
	return s.withConn(ctx, "delete appointment", func(c *sql.Conn) error {
		var deleted int64
		err := c.QueryRowContext(ctx,
			`DELETE FROM appointment WHERE id = $1 RETURNING id`, id,
		).Scan(&deleted)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	})
}
