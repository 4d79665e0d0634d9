package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"github.com/clinicbook/internal/api"
	"github.com/clinicbook/internal/idempotency"
	"github.com/clinicbook/internal/models"
	"github.com/clinicbook/internal/store"
	"github.com/clinicbook/internal/timeutil"
	"github.com/clinicbook/internal/validation"
)

// GetAppointments lists the appointments on ?date (a calendar day in
// ?timeZone), optionally narrowed to one ?location.
func (h *Handler) GetAppointments(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	c := h.begin("get-appointments", req, http.MethodGet)
	if resp, ok := c.allowed(); !ok {
		return resp, nil
	}

	date := c.query("date")
	if date == "" {
		return c.fail(http.StatusBadRequest, "Date parameter is required"), nil
	}
	loc, err := timeutil.LoadLocation(c.query("timeZone"), h.defaultTZ)
	if err != nil {
		return c.fail(http.StatusBadRequest, "Invalid timeZone parameter"), nil
	}

	var locationID *int64
	if raw := c.query("location"); raw != "" && raw != "all" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return c.fail(http.StatusBadRequest, "Invalid location parameter"), nil
		}
		locationID = &id
	}

	appointments, err := h.appointments.ListByDateAndLocation(ctx, date, loc, locationID)
	if errors.Is(err, timeutil.ErrInvalidDate) {
		return c.fail(http.StatusBadRequest, "Invalid date parameter, expected YYYY-MM-DD"), nil
	}
	if err != nil {
		return c.internal(err), nil
	}
	return c.json(http.StatusOK, api.Envelope{Success: true, Data: appointments}), nil
}

// PersistAppointment books an appointment from the booking form. With a
// Deduper configured, a resubmission carrying the same Idempotency-Key
// replays the first result. Requests without the header always book.
func (h *Handler) PersistAppointment(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	c := h.begin("persist-appointment", req, http.MethodPost)
	if resp, ok := c.allowed(); !ok {
		return resp, nil
	}

	clientKey := strings.TrimSpace(c.header("Idempotency-Key"))
	if h.dedupe == nil || clientKey == "" {
		return h.persist(ctx, c), nil
	}

	key := idempotency.Key("persist-appointment", clientKey)
	res, err := h.dedupe.Process(ctx, key, req.Body, func() (idempotency.Response, error) {
		r := h.persist(ctx, c)
		return idempotency.Response{StatusCode: r.StatusCode, Body: r.Body}, nil
	})
	switch {
	case errors.Is(err, idempotency.ErrInProgress):
		return c.fail(http.StatusConflict, "Request is already being processed"), nil
	case errors.Is(err, idempotency.ErrKeyConflict):
		return c.fail(http.StatusUnprocessableEntity, "Idempotency key reused with a different request"), nil
	case err != nil:
		return c.internal(err), nil
	}
	return c.raw(res.StatusCode, res.Body), nil
}

func (h *Handler) persist(ctx context.Context, c *call) events.APIGatewayProxyResponse {
	var in api.PersistAppointmentRequest
	if err := c.decode(&in); err != nil {
		return c.fail(http.StatusBadRequest, "Invalid request body")
	}
	if err := h.validate.Struct(in); err != nil {
		return c.fail(http.StatusBadRequest, err.Error())
	}
	p := in.Payload

	loc, err := timeutil.LoadLocation(p.TimeZone, h.defaultTZ)
	if err != nil {
		return c.fail(http.StatusBadRequest, "timeZone is invalid")
	}
	at, err := timeutil.WallClockToUTC(p.DateTime, loc)
	if err != nil {
		return c.fail(http.StatusBadRequest, "datetime is invalid")
	}

	id, err := h.appointments.CreateAppointment(ctx, models.NewAppointment{
		DateTime:       at,
		PatientName:    p.Name,
		ClinicLocation: int64(p.ClinicLocation),
		Phone:          normalizedPhone(p.Phone),
		Notes:          p.Notes,
		UpdatedBy:      p.UpdatedBy,
	})
	if errors.Is(err, store.ErrInvalidReference) {
		return c.fail(http.StatusBadRequest, "Invalid clinic location")
	}
	if err != nil {
		return c.internal(err)
	}

	c.log.Info("appointment booked", slog.Int64("id", id), slog.Int64("clinic_location", int64(p.ClinicLocation)))
	return c.json(http.StatusOK, api.Envelope{Success: true})
}

// UpdateAppointment overwrites an appointment with the management form's
// values; omitted fields revert to their defaults.
func (h *Handler) UpdateAppointment(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	c := h.begin("update-appointment", req, http.MethodPut)
	if resp, ok := c.allowed(); !ok {
		return resp, nil
	}

	var in api.UpdateAppointmentRequest
	if err := c.decode(&in); err != nil {
		return c.fail(http.StatusBadRequest, "Invalid request body"), nil
	}
	if err := h.validate.Struct(in); err != nil {
		return c.fail(http.StatusBadRequest, err.Error()), nil
	}
	p := in.Payload

	loc, err := timeutil.LoadLocation(p.TimeZone, h.defaultTZ)
	if err != nil {
		return c.fail(http.StatusBadRequest, "timeZone is invalid"), nil
	}

	id, err := h.appointments.UpdateAppointment(ctx, models.AppointmentUpdate{
		ID:             int64(p.ID),
		PatientName:    p.PatientName,
		Phone:          normalizedPhone(p.PhoneNumber),
		Status:         models.Status(p.Status),
		Diagnosis:      p.Diagnosis,
		Notes:          p.Notes,
		Amount:         float64(p.Amount),
		UpdatedBy:      p.UpdatedBy,
		ClinicLocation: int64(p.ClinicID),
		UpdatedAt:      h.now().In(loc),
	})
	switch {
	case errors.Is(err, store.ErrNotFound):
		return c.fail(http.StatusNotFound, "Appointment not found"), nil
	case errors.Is(err, store.ErrInvalidReference):
		return c.fail(http.StatusBadRequest, "Invalid clinic location"), nil
	case err != nil:
		return c.internal(err), nil
	}

	c.log.Info("appointment updated", slog.Int64("id", id))
	return c.json(http.StatusOK, api.Envelope{Success: true, Data: api.UpdatedID{ID: id}}), nil
}

// DeleteAppointment removes ?id for good; there is no soft delete.
func (h *Handler) DeleteAppointment(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	c := h.begin("delete-appointment", req, http.MethodDelete)
	if resp, ok := c.allowed(); !ok {
		return resp, nil
	}

	raw := c.query("id")
	if raw == "" {
		return c.fail(http.StatusBadRequest, "Appointment ID is required"), nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return c.fail(http.StatusBadRequest, "Invalid appointment ID"), nil
	}

	err = h.appointments.DeleteAppointment(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return c.fail(http.StatusNotFound, "Appointment not found"), nil
	}
	if err != nil {
		return c.internal(err), nil
	}

	c.log.Info("appointment deleted", slog.Int64("id", id))
	return c.json(http.StatusOK, api.Envelope{Success: true}), nil
}

// normalizedPhone returns nil for a blank number. Callers validate first.
func normalizedPhone(raw string) *string {
	if raw == "" {
		return nil
	}
	n, ok := validation.NormalizePhone(raw)
	if !ok {
		return nil
	}
	return &n
}
