package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/clinicbook/internal/auth"
	"github.com/clinicbook/internal/idempotency"
	"github.com/clinicbook/internal/models"
	"github.com/clinicbook/internal/ratelimit"
	"github.com/clinicbook/internal/validation"
)

type AccessStore interface {
	UserExists(ctx context.Context, email string) (bool, error)
	GetUserByEmail(ctx context.Context, email string) (*models.AllowedUser, error)
	ListUsers(ctx context.Context) ([]models.AllowedUser, error)
	AddUser(ctx context.Context, in models.NewAllowedUser) (*models.AllowedUser, error)
	UpdateUser(ctx context.Context, id int64, email string, isAdmin bool) (*models.AllowedUser, error)
	DeleteUser(ctx context.Context, id int64) (*models.AllowedUser, error)
}

type AppointmentStore interface {
	ListByDateAndLocation(ctx context.Context, date string, loc *time.Location, locationID *int64) ([]models.Appointment, error)
	CreateAppointment(ctx context.Context, in models.NewAppointment) (int64, error)
	UpdateAppointment(ctx context.Context, in models.AppointmentUpdate) (int64, error)
	DeleteAppointment(ctx context.Context, id int64) error
}

type LocationStore interface {
	ListLocations(ctx context.Context) ([]models.ClinicLocation, error)
}

// Deduper runs a request at most once per idempotency key.
type Deduper interface {
	Process(ctx context.Context, key, body string, fn func() (idempotency.Response, error)) (idempotency.Response, error)
}

// Deps wires a Handler. Tokens, Limiter and Dedupe are optional; a nil
// value disables the feature.
type Deps struct {
	Users           AccessStore
	Appointments    AppointmentStore
	Locations       LocationStore
	Log             *slog.Logger
	AllowedOrigin   string
	DefaultTimeZone *time.Location
	Tokens          *auth.Issuer
	Limiter         *ratelimit.Limiter
	Dedupe          Deduper
}

// Handler serves every endpoint; each Lambda binary starts one method.
type Handler struct {
	users        AccessStore
	appointments AppointmentStore
	locations    LocationStore
	log          *slog.Logger
	origin       string
	defaultTZ    *time.Location
	tokens       *auth.Issuer
	limiter      *ratelimit.Limiter
	dedupe       Deduper
	validate     *validation.Validator
	now          func() time.Time
}

func New(d Deps) *Handler {
	h := &Handler{
		users:        d.Users,
		appointments: d.Appointments,
		locations:    d.Locations,
		log:          d.Log,
		origin:       d.AllowedOrigin,
		defaultTZ:    d.DefaultTimeZone,
		tokens:       d.Tokens,
		limiter:      d.Limiter,
		dedupe:       d.Dedupe,
		validate:     validation.New(),
		now:          time.Now,
	}
	if h.log == nil {
		h.log = slog.Default()
	}
	if h.origin == "" {
		h.origin = "*"
	}
	if h.defaultTZ == nil {
		h.defaultTZ = time.UTC
	}
	return h
}
