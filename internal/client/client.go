// Package client is a Go client for the clinic booking API. Every method
// returns (T, error); a non-2xx answer surfaces as *APIError.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/clinicbook/internal/api"
	"github.com/clinicbook/internal/models"
	"github.com/clinicbook/internal/timeutil"
)

type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("clinic api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("clinic api: status %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

type Client struct {
	baseURL  string
	http     *http.Client
	token    string
	timeZone string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken sends the session token from check-access on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithTimeZone overrides the zone forwarded to the server, which otherwise
// is LocalTimeZone().
func WithTimeZone(name string) Option {
	return func(c *Client) { c.timeZone = name }
}

// New returns a client for the API served under baseURL, e.g.
// "https://clinic.example"; endpoints live at /api/<name>.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: 15 * time.Second},
		timeZone: LocalTimeZone(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FormatDate encodes the calendar day t falls on in its own location.
func FormatDate(t time.Time) string {
	return timeutil.FormatDate(t)
}

// LocalTimeZone names the caller's IANA zone: $TZ when it loads, else
// time.Local, else UTC.
func LocalTimeZone() string {
	if tz := strings.TrimPrefix(os.Getenv("TZ"), ":"); tz != "" {
		if _, err := time.LoadLocation(tz); err == nil {
			return tz
		}
	}
	if name := time.Local.String(); name != "" && name != "Local" {
		return name
	}
	return "UTC"
}

func (c *Client) do(ctx context.Context, method, endpoint string, query url.Values, in, out any, header http.Header) error {
	u := c.baseURL + "/api/" + endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", endpoint, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", endpoint, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var env api.Envelope
		_ = json.Unmarshal(raw, &env)
		return &APIError{StatusCode: resp.StatusCode, Message: env.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return nil
}

func (c *Client) CheckAccess(ctx context.Context, email string) (api.CheckAccessResponse, error) {
	var out api.CheckAccessResponse
	err := c.do(ctx, http.MethodPost, "check-access", nil, api.CheckAccessRequest{Email: email}, &out, nil)
	return out, err
}

func (c *Client) Locations(ctx context.Context) ([]models.ClinicLocation, error) {
	var out struct {
		Data []models.ClinicLocation `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "get-clinic-locations", nil, nil, &out, nil); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// AppointmentsByDate lists the appointments on the calendar day of date.
// A nil locationID means every location.
func (c *Client) AppointmentsByDate(ctx context.Context, date time.Time, locationID *int64) ([]models.Appointment, error) {
	q := url.Values{}
	q.Set("date", FormatDate(date))
	q.Set("timeZone", c.timeZone)
	if locationID != nil {
		q.Set("location", strconv.FormatInt(*locationID, 10))
	}
	var out struct {
		Data []models.Appointment `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "get-appointments", q, nil, &out, nil); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// PersistAppointment books b. A non-empty idempotencyKey lets a retry of
// the same submission replay the first result instead of booking twice.
func (c *Client) PersistAppointment(ctx context.Context, b api.Booking, idempotencyKey string) error {
	if b.TimeZone == "" {
		b.TimeZone = c.timeZone
	}
	var header http.Header
	if idempotencyKey != "" {
		header = http.Header{"Idempotency-Key": {idempotencyKey}}
	}
	return c.do(ctx, http.MethodPost, "persist-appointment", nil, api.PersistAppointmentRequest{Payload: &b}, nil, header)
}

func (c *Client) UpdateAppointment(ctx context.Context, ch api.AppointmentChanges) (int64, error) {
	if ch.TimeZone == "" {
		ch.TimeZone = c.timeZone
	}
	var out struct {
		Data api.UpdatedID `json:"data"`
	}
	if err := c.do(ctx, http.MethodPut, "update-appointment", nil, api.UpdateAppointmentRequest{Payload: &ch}, &out, nil); err != nil {
		return 0, err
	}
	return out.Data.ID, nil
}

func (c *Client) DeleteAppointment(ctx context.Context, id int64) error {
	q := url.Values{"id": {strconv.FormatInt(id, 10)}}
	return c.do(ctx, http.MethodDelete, "delete-appointment", q, nil, nil, nil)
}

func (c *Client) manage(ctx context.Context, req api.ManageUsersRequest, out any) error {
	return c.do(ctx, http.MethodPost, "manage-users", nil, req, out, nil)
}

// GetUserByEmail returns nil, nil when email is not on the allow-list.
func (c *Client) GetUserByEmail(ctx context.Context, email string) (*models.AllowedUser, error) {
	var out api.UserResponse
	err := c.manage(ctx, api.ManageUsersRequest{Action: api.ActionGetUserByEmail, Email: email}, &out)
	return out.User, err
}

func (c *Client) ListUsers(ctx context.Context) ([]models.AllowedUser, error) {
	var out api.UsersResponse
	if err := c.manage(ctx, api.ManageUsersRequest{Action: api.ActionGetAllUsers}, &out); err != nil {
		return nil, err
	}
	return out.Users, nil
}

func (c *Client) AddUser(ctx context.Context, u models.NewAllowedUser) (*models.AllowedUser, error) {
	var out api.UserResponse
	err := c.manage(ctx, api.ManageUsersRequest{
		Action:  api.ActionAddUser,
		Email:   u.Email,
		IsAdmin: u.IsAdmin,
		Name:    u.Name,
		Notes:   u.Notes,
	}, &out)
	return out.User, err
}

func (c *Client) UpdateUser(ctx context.Context, id int64, email string, isAdmin bool) (*models.AllowedUser, error) {
	var out api.UserResponse
	err := c.manage(ctx, api.ManageUsersRequest{
		Action:  api.ActionUpdateUser,
		UserID:  api.FlexInt(id),
		Email:   email,
		IsAdmin: isAdmin,
	}, &out)
	return out.User, err
}

func (c *Client) DeleteUser(ctx context.Context, id int64) (*models.AllowedUser, error) {
	var out api.UserResponse
	err := c.manage(ctx, api.ManageUsersRequest{Action: api.ActionDeleteUser, UserID: api.FlexInt(id)}, &out)
	return out.User, err
}
