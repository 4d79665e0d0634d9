package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/clinicbook/internal/api"
	"github.com/clinicbook/internal/models"
)

// recorder serves canned JSON and keeps the last request it saw.
type recorder struct {
	status int
	body   string
	last   *http.Request
	sent   map[string]any
}

func (r *recorder) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.last = req
	r.sent = nil
	if req.Body != nil {
		_ = json.NewDecoder(req.Body).Decode(&r.sent)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(r.status)
	w.Write([]byte(r.body))
}

func newTestClient(t *testing.T, status int, body string, opts ...Option) (*Client, *recorder) {
	t.Helper()
	rec := &recorder{status: status, body: body}
	srv := httptest.NewServer(rec)
	t.Cleanup(srv.Close)
	opts = append([]Option{WithTimeZone("Asia/Kolkata")}, opts...)
	return New(srv.URL+"/", opts...), rec
}

func TestFormatDateKeepsLocalDay(t *testing.T) {
	la, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Fatal(err)
	}
	// 20:00 on the 9th in LA is already the 10th in UTC
	d := time.Date(2024, 3, 9, 20, 0, 0, 0, la)
	if got := FormatDate(d); got != "2024-03-09" {
		t.Fatalf("FormatDate = %s, want 2024-03-09", got)
	}
}

func TestLocalTimeZone(t *testing.T) {
	t.Setenv("TZ", "Asia/Kolkata")
	if got := LocalTimeZone(); got != "Asia/Kolkata" {
		t.Fatalf("LocalTimeZone = %q", got)
	}
	t.Setenv("TZ", "Not/AZone")
	if got := LocalTimeZone(); got == "" || got == "Not/AZone" {
		t.Fatalf("LocalTimeZone with bad TZ = %q", got)
	}
}

func TestCheckAccess(t *testing.T) {
	c, rec := newTestClient(t, http.StatusOK, `{"isAllowed":true}`)

	out, err := c.CheckAccess(context.Background(), "dr@clinic.example")
	if err != nil {
		t.Fatal(err)
	}
	if !out.IsAllowed {
		t.Fatalf("out = %+v", out)
	}
	if rec.last.Method != http.MethodPost || rec.last.URL.Path != "/api/check-access" {
		t.Fatalf("request = %s %s", rec.last.Method, rec.last.URL.Path)
	}
	if rec.sent["email"] != "dr@clinic.example" {
		t.Fatalf("sent = %v", rec.sent)
	}
}

func TestAppointmentsByDateQuery(t *testing.T) {
	c, rec := newTestClient(t, http.StatusOK,
		`{"success":true,"data":[{"id":1,"appointment_date_time":"2024-03-10T04:00:00Z","patient_name":"Asha","clinic_location":1}]}`)

	loc := int64(1)
	ist, _ := time.LoadLocation("Asia/Kolkata")
	got, err := c.AppointmentsByDate(context.Background(), time.Date(2024, 3, 10, 0, 0, 0, 0, ist), &loc)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].PatientName != "Asha" {
		t.Fatalf("got = %+v", got)
	}
	if !got[0].AppointmentDateTime.Equal(time.Date(2024, 3, 10, 4, 0, 0, 0, time.UTC)) {
		t.Fatalf("datetime = %v", got[0].AppointmentDateTime)
	}
	q := rec.last.URL.Query()
	if q.Get("date") != "2024-03-10" || q.Get("timeZone") != "Asia/Kolkata" || q.Get("location") != "1" {
		t.Fatalf("query = %v", q)
	}
}

func TestPersistAppointmentSendsPayload(t *testing.T) {
	c, rec := newTestClient(t, http.StatusOK, `{"success":true}`, WithToken("tok"))

	err := c.PersistAppointment(context.Background(), api.Booking{
		DateTime:       "2024-03-10T09:30",
		Name:           "Asha",
		ClinicLocation: 1,
	}, "form-42")
	if err != nil {
		t.Fatal(err)
	}
	payload, _ := rec.sent["payload"].(map[string]any)
	if payload["name"] != "Asha" || payload["clinicLocation"] != float64(1) || payload["timeZone"] != "Asia/Kolkata" {
		t.Fatalf("payload = %v", payload)
	}
	if rec.last.Header.Get("Idempotency-Key") != "form-42" {
		t.Fatalf("idempotency key = %q", rec.last.Header.Get("Idempotency-Key"))
	}
	if rec.last.Header.Get("Authorization") != "Bearer tok" {
		t.Fatalf("authorization = %q", rec.last.Header.Get("Authorization"))
	}
}

func TestUpdateAppointmentReturnsID(t *testing.T) {
	c, rec := newTestClient(t, http.StatusOK, `{"success":true,"data":{"id":7}}`)

	id, err := c.UpdateAppointment(context.Background(), api.AppointmentChanges{ID: 7, PatientName: "Asha", ClinicID: 1})
	if err != nil {
		t.Fatal(err)
	}
	if id != 7 || rec.last.Method != http.MethodPut {
		t.Fatalf("id = %d, method = %s", id, rec.last.Method)
	}
}

func TestErrorsCarryStatusAndMessage(t *testing.T) {
	c, rec := newTestClient(t, http.StatusNotFound, `{"success":false,"error":"Appointment not found"}`)

	err := c.DeleteAppointment(context.Background(), 404)
	if !IsNotFound(err) {
		t.Fatalf("err = %v, want not found", err)
	}
	if err.Error() != "clinic api: status 404: Appointment not found" {
		t.Fatalf("message = %q", err.Error())
	}
	if rec.last.URL.Query().Get("id") != "404" || rec.last.Method != http.MethodDelete {
		t.Fatalf("request = %s %s", rec.last.Method, rec.last.URL)
	}
}

func TestManageUsers(t *testing.T) {
	c, rec := newTestClient(t, http.StatusOK, `{"user":null}`)

	u, err := c.GetUserByEmail(context.Background(), "ghost@clinic.example")
	if err != nil || u != nil {
		t.Fatalf("absent user = %v, %v", u, err)
	}
	if rec.sent["action"] != api.ActionGetUserByEmail {
		t.Fatalf("sent = %v", rec.sent)
	}

	rec.body = `{"success":true,"user":{"id":3,"email":"nurse@clinic.example","is_admin":false}}`
	u, err = c.AddUser(context.Background(), models.NewAllowedUser{Email: "nurse@clinic.example"})
	if err != nil || u == nil || u.ID != 3 {
		t.Fatalf("add = %+v, %v", u, err)
	}

	rec.body = `{"users":[{"id":3,"email":"nurse@clinic.example"}]}`
	users, err := c.ListUsers(context.Background())
	if err != nil || len(users) != 1 {
		t.Fatalf("list = %+v, %v", users, err)
	}

	if _, err := c.DeleteUser(context.Background(), 3); err != nil {
		t.Fatal(err)
	}
	if rec.sent["action"] != api.ActionDeleteUser || rec.sent["userId"] != float64(3) {
		t.Fatalf("delete sent = %v", rec.sent)
	}
}
