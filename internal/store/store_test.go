package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/clinicbook/internal/models"
	"github.com/clinicbook/internal/timeutil"
)

type timeArg time.Time

func (a timeArg) Match(v driver.Value) bool {
	t, ok := v.(time.Time)
	return ok && t.Equal(time.Time(a))
}

var fixedNow = time.Date(2024, 3, 10, 5, 0, 0, 0, time.UTC)

func newMock(t *testing.T, opts ...Option) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		conn.Close()
	})
	s := New(conn, opts...)
	s.now = func() time.Time { return fixedNow }
	return s, mock
}

var userCols = []string{"id", "email", "name", "notes", "is_admin", "created_at"}

func TestUserExists(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM allowed_users WHERE email = \$1\)`).
		WithArgs("asha@clinic.in").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := s.UserExists(context.Background(), "asha@clinic.in")
	if err != nil || !ok {
		t.Fatalf("UserExists = %v, %v", ok, err)
	}
}

func TestGetUserByEmailAbsent(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(`FROM allowed_users WHERE email = \$1`).
		WithArgs("nobody@clinic.in").
		WillReturnRows(sqlmock.NewRows(userCols))

	u, err := s.GetUserByEmail(context.Background(), "nobody@clinic.in")
	if err != nil || u != nil {
		t.Fatalf("expected absent user, got %v, %v", u, err)
	}
}

func TestGetUserByEmailNullableColumns(t *testing.T) {
	s, mock := newMock(t)
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`FROM allowed_users WHERE email = \$1`).
		WithArgs("asha@clinic.in").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(int64(3), "asha@clinic.in", "Asha", nil, true, created))

	u, err := s.GetUserByEmail(context.Background(), "asha@clinic.in")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if u.ID != 3 || u.Name == nil || *u.Name != "Asha" || u.Notes != nil || !u.IsAdmin || !u.CreatedAt.Equal(created) {
		t.Fatalf("unexpected user %+v", u)
	}
}

func TestListUsersNewestFirst(t *testing.T) {
	s, mock := newMock(t)
	now := time.Now()
	mock.ExpectQuery(`FROM allowed_users ORDER BY created_at DESC`).
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(int64(2), "b@clinic.in", nil, nil, false, now).
			AddRow(int64(1), "a@clinic.in", nil, nil, true, now.Add(-time.Hour)))

	users, err := s.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 2 || users[0].ID != 2 || users[1].ID != 1 {
		t.Fatalf("unexpected users %+v", users)
	}
}

func TestListUsersEmptyIsNotNil(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(`FROM allowed_users`).WillReturnRows(sqlmock.NewRows(userCols))

	users, err := s.ListUsers(context.Background())
	if err != nil || users == nil || len(users) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v, %v", users, err)
	}
}

func TestAddUserConflictIsAbsent(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(`INSERT INTO allowed_users .* ON CONFLICT \(email\) DO NOTHING`).
		WithArgs("asha@clinic.in", nil, nil, true).
		WillReturnRows(sqlmock.NewRows(userCols))

	u, err := s.AddUser(context.Background(), models.NewAllowedUser{Email: "asha@clinic.in", IsAdmin: true})
	if err != nil || u != nil {
		t.Fatalf("expected absent result on conflict, got %v, %v", u, err)
	}
}

func TestUpdateUserEmailTaken(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(`UPDATE allowed_users SET email = \$1, is_admin = \$2`).
		WithArgs("taken@clinic.in", false, int64(4)).
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := s.UpdateUser(context.Background(), 4, "taken@clinic.in", false)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestDeleteUserUnknownID(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(`DELETE FROM allowed_users WHERE id = \$1`).
		WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows(userCols))

	u, err := s.DeleteUser(context.Background(), 404)
	if err != nil || u != nil {
		t.Fatalf("expected absent result, got %v, %v", u, err)
	}
}

func TestDatabaseErrorsAreGeneric(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(`SELECT EXISTS`).WillReturnError(errors.New("connection reset by peer"))

	_, err := s.UserExists(context.Background(), "asha@clinic.in")
	if !errors.Is(err, ErrDatabase) {
		t.Fatalf("expected ErrDatabase, got %v", err)
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatalf("database error must not look like not-found")
	}
}

func TestListLocations(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(`SELECT id, name FROM clinic_locations ORDER BY id`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(1), "Indiranagar").AddRow(int64(2), "Whitefield"))

	locs, err := s.ListLocations(context.Background())
	if err != nil {
		t.Fatalf("ListLocations: %v", err)
	}
	if len(locs) != 2 || locs[0].Name != "Indiranagar" || locs[1].ID != 2 {
		t.Fatalf("unexpected locations %+v", locs)
	}
}

var appointmentCols = []string{"id", "appointment_date_time", "status", "patient_name",
	"patient_phone_number", "clinic_location", "name", "diagnosis", "notes", "amount",
	"updated_at", "updated_by"}

func kolkata(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return loc
}

func TestListByDateAndLocationFiltersLocation(t *testing.T) {
	s, mock := newMock(t)
	loc := kolkata(t)
	start, end, _ := timeutil.DayRange("2024-03-10", loc)
	at := time.Date(2024, 3, 10, 4, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM appointment a JOIN clinic_locations l .*AND a.clinic_location = \$3 ORDER BY a.appointment_date_time ASC`).
		WithArgs(timeArg(start), timeArg(end), int64(1)).
		WillReturnRows(sqlmock.NewRows(appointmentCols).
			AddRow(int64(7), at, "scheduled", "Asha", "9876543210", int64(1), "Indiranagar", "", "", 0.0, at, "Dr Rao"))

	locationID := int64(1)
	got, err := s.ListByDateAndLocation(context.Background(), "2024-03-10", loc, &locationID)
	if err != nil {
		t.Fatalf("ListByDateAndLocation: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected one appointment, got %d", len(got))
	}
	a := got[0]
	if a.ID != 7 || a.Status != models.StatusScheduled || a.ClinicLocationName != "Indiranagar" {
		t.Fatalf("unexpected appointment %+v", a)
	}
	if a.PatientPhoneNumber == nil || *a.PatientPhoneNumber != "9876543210" || a.UpdatedBy == nil {
		t.Fatalf("nullable columns not mapped: %+v", a)
	}
	if !a.AppointmentDateTime.Equal(at) || a.AppointmentDateTime.Location() != time.UTC {
		t.Fatalf("appointment time %v", a.AppointmentDateTime)
	}
}

func TestListByDateAndLocationAllLocations(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(`FROM appointment a LEFT JOIN clinic_locations l`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(appointmentCols))

	got, err := s.ListByDateAndLocation(context.Background(), "2024-03-10", time.UTC, nil)
	if err != nil || got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v, %v", got, err)
	}
}

func TestListByDateAndLocationBadDate(t *testing.T) {
	s, _ := newMock(t)
	if _, err := s.ListByDateAndLocation(context.Background(), "10-03-2024", time.UTC, nil); !errors.Is(err, timeutil.ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestCreateAppointmentDefaults(t *testing.T) {
	s, mock := newMock(t)
	at, _ := timeutil.WallClockToUTC("2024-03-10T09:30", kolkata(t))

	mock.ExpectQuery(`INSERT INTO appointment`).
		WithArgs(timeArg(time.Date(2024, 3, 10, 4, 0, 0, 0, time.UTC)), "scheduled", "Asha", nil,
			int64(1), "", timeArg(fixedNow), "Dr Rao").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))

	id, err := s.CreateAppointment(context.Background(), models.NewAppointment{
		DateTime: at, PatientName: "Asha", ClinicLocation: 1, UpdatedBy: "Dr Rao",
	})
	if err != nil || id != 11 {
		t.Fatalf("CreateAppointment = %d, %v", id, err)
	}
}

func TestCreateAppointmentUnknownLocation(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(`INSERT INTO appointment`).WillReturnError(&pq.Error{Code: "23503"})

	_, err := s.CreateAppointment(context.Background(), models.NewAppointment{
		DateTime: fixedNow, PatientName: "Asha", ClinicLocation: 99, UpdatedBy: "Dr Rao",
	})
	if !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("expected ErrInvalidReference, got %v", err)
	}
}

func TestUpdateAppointmentOverwritesWithDefaults(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(`UPDATE appointment SET`).
		WithArgs("Asha", nil, "scheduled", "", "", 0.0, "Dr Rao", int64(2), timeArg(fixedNow), int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(9)))

	id, err := s.UpdateAppointment(context.Background(), models.AppointmentUpdate{
		ID: 9, PatientName: "Asha", UpdatedBy: "Dr Rao", ClinicLocation: 2,
	})
	if err != nil || id != 9 {
		t.Fatalf("UpdateAppointment = %d, %v", id, err)
	}
}

func TestUpdateAppointmentNotFound(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(`UPDATE appointment SET`).WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := s.UpdateAppointment(context.Background(), models.AppointmentUpdate{ID: 404, PatientName: "x"})
	if !errors.Is(err, ErrNotFound) || errors.Is(err, ErrDatabase) {
		t.Fatalf("expected ErrNotFound only, got %v", err)
	}
}

func TestDeleteAppointment(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(`DELETE FROM appointment WHERE id = \$1`).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(5)))
	mock.ExpectQuery(`DELETE FROM appointment WHERE id = \$1`).
		WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	if err := s.DeleteAppointment(context.Background(), 5); err != nil {
		t.Fatalf("DeleteAppointment: %v", err)
	}
	if err := s.DeleteAppointment(context.Background(), 404); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

type prefixCipher struct{}

func (prefixCipher) Encrypt(_ context.Context, v string) (string, error) {
	if v == "" {
		return "", nil
	}
	return "enc:" + v, nil
}

func (prefixCipher) Decrypt(_ context.Context, v string) (string, error) {
	return strings.TrimPrefix(v, "enc:"), nil
}

func TestCipherAppliedToClinicalText(t *testing.T) {
	s, mock := newMock(t, WithCipher(prefixCipher{}))
	mock.ExpectQuery(`UPDATE appointment SET`).
		WithArgs("Asha", nil, "completed", "enc:sprain", "enc:ice", 500.0, "Dr Rao", int64(1), sqlmock.AnyArg(), int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))
	mock.ExpectQuery(`FROM appointment a LEFT JOIN`).
		WillReturnRows(sqlmock.NewRows(appointmentCols).
			AddRow(int64(3), fixedNow, "completed", "Asha", nil, int64(1), "", "enc:sprain", "enc:ice", 500.0, fixedNow, nil))

	_, err := s.UpdateAppointment(context.Background(), models.AppointmentUpdate{
		ID: 3, PatientName: "Asha", Status: models.StatusCompleted, Diagnosis: "sprain",
		Notes: "ice", Amount: 500, UpdatedBy: "Dr Rao", ClinicLocation: 1,
	})
	if err != nil {
		t.Fatalf("UpdateAppointment: %v", err)
	}

	got, err := s.ListByDateAndLocation(context.Background(), "2024-03-10", time.UTC, nil)
	if err != nil {
		t.Fatalf("ListByDateAndLocation: %v", err)
	}
	if got[0].Diagnosis != "sprain" || got[0].Notes != "ice" || got[0].UpdatedBy != nil {
		t.Fatalf("expected decrypted fields, got %+v", got[0])
	}
}
