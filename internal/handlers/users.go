package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"github.com/clinicbook/internal/api"
	"github.com/clinicbook/internal/auth"
	"github.com/clinicbook/internal/models"
	"github.com/clinicbook/internal/store"
)

var errUnknownAction = errors.New("unknown action")

// userCommand is one manage-users action with its own payload.
type userCommand interface {
	run(ctx context.Context, h *Handler, c *call) events.APIGatewayProxyResponse
}

type getUserByEmail struct {
	Email string `json:"email" validate:"required"`
}

type getAllUsers struct{}

type addUser struct {
	Email   string  `json:"email" validate:"required,email,max=255"`
	IsAdmin bool    `json:"isAdmin"`
	Name    *string `json:"name" validate:"omitempty,max=255"`
	Notes   *string `json:"notes"`
}

type updateUser struct {
	UserID  int64  `json:"userId" validate:"required,gt=0"`
	Email   string `json:"email" validate:"required,email,max=255"`
	IsAdmin bool   `json:"isAdmin"`
}

type deleteUser struct {
	UserID int64 `json:"userId" validate:"required,gt=0"`
}

func parseUserCommand(in api.ManageUsersRequest) (userCommand, error) {
	email := strings.TrimSpace(in.Email)
	switch in.Action {
	case api.ActionGetUserByEmail:
		return getUserByEmail{Email: email}, nil
	case api.ActionGetAllUsers:
		return getAllUsers{}, nil
	case api.ActionAddUser:
		return addUser{Email: email, IsAdmin: in.IsAdmin, Name: in.Name, Notes: in.Notes}, nil
	case api.ActionUpdateUser:
		return updateUser{UserID: int64(in.UserID), Email: email, IsAdmin: in.IsAdmin}, nil
	case api.ActionDeleteUser:
		return deleteUser{UserID: int64(in.UserID)}, nil
	}
	return nil, errUnknownAction
}

// ManageUsers administers the allow-list through a single action-keyed
// endpoint.
func (h *Handler) ManageUsers(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	c := h.begin("manage-users", req, http.MethodPost)
	if resp, ok := c.allowed(); !ok {
		return resp, nil
	}

	var in api.ManageUsersRequest
	if err := c.decode(&in); err != nil {
		return c.fail(http.StatusBadRequest, "Invalid request body"), nil
	}
	cmd, err := parseUserCommand(in)
	if err != nil {
		return c.fail(http.StatusBadRequest, "Invalid action"), nil
	}
	if resp, ok := h.authorize(c, cmd); !ok {
		return resp, nil
	}
	if err := h.validate.Struct(cmd); err != nil {
		return c.fail(http.StatusBadRequest, err.Error()), nil
	}

	c.log = c.log.With(slog.String("action", in.Action))
	return cmd.run(ctx, h, c), nil
}

// authorize enforces the admin gate when session tokens are enabled. A
// non-admin may only look up their own record.
func (h *Handler) authorize(c *call, cmd userCommand) (events.APIGatewayProxyResponse, bool) {
	if h.tokens == nil {
		return events.APIGatewayProxyResponse{}, true
	}
	claims, err := h.tokens.Validate(auth.BearerToken(c.header("Authorization")))
	if err != nil {
		return c.fail(http.StatusUnauthorized, "Unauthorized"), false
	}
	if claims.Admin {
		return events.APIGatewayProxyResponse{}, true
	}
	if q, ok := cmd.(getUserByEmail); ok && q.Email == claims.Email {
		return events.APIGatewayProxyResponse{}, true
	}
	return c.fail(http.StatusForbidden, "Admin access required"), false
}

func (q getUserByEmail) run(ctx context.Context, h *Handler, c *call) events.APIGatewayProxyResponse {
	user, err := h.users.GetUserByEmail(ctx, q.Email)
	if err != nil {
		return c.internal(err)
	}
	return c.json(http.StatusOK, api.UserResponse{User: user})
}

func (getAllUsers) run(ctx context.Context, h *Handler, c *call) events.APIGatewayProxyResponse {
	users, err := h.users.ListUsers(ctx)
	if err != nil {
		return c.internal(err)
	}
	return c.json(http.StatusOK, api.UsersResponse{Users: users})
}

func (a addUser) run(ctx context.Context, h *Handler, c *call) events.APIGatewayProxyResponse {
	user, err := h.users.AddUser(ctx, models.NewAllowedUser{
		Email:   a.Email,
		Name:    a.Name,
		Notes:   a.Notes,
		IsAdmin: a.IsAdmin,
	})
	if err != nil {
		return c.internal(err)
	}
	if user == nil {
		return c.fail(http.StatusConflict, "User already exists")
	}
	c.log.Info("user added", slog.Int64("user_id", user.ID), slog.Bool("is_admin", user.IsAdmin))
	return c.json(http.StatusOK, api.UserResponse{Success: true, User: user})
}

func (u updateUser) run(ctx context.Context, h *Handler, c *call) events.APIGatewayProxyResponse {
	user, err := h.users.UpdateUser(ctx, u.UserID, u.Email, u.IsAdmin)
	if errors.Is(err, store.ErrConflict) {
		return c.fail(http.StatusConflict, "Email is already in use")
	}
	if err != nil {
		return c.internal(err)
	}
	if user == nil {
		return c.fail(http.StatusNotFound, "User not found")
	}
	c.log.Info("user updated", slog.Int64("user_id", user.ID), slog.Bool("is_admin", user.IsAdmin))
	return c.json(http.StatusOK, api.UserResponse{Success: true, User: user})
}

func (d deleteUser) run(ctx context.Context, h *Handler, c *call) events.APIGatewayProxyResponse {
	user, err := h.users.DeleteUser(ctx, d.UserID)
	if err != nil {
		return c.internal(err)
	}
	if user == nil {
		return c.fail(http.StatusNotFound, "User not found")
	}
	c.log.Info("user deleted", slog.Int64("user_id", user.ID))
	return c.json(http.StatusOK, api.UserResponse{Success: true, User: user})
}
