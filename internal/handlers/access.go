package handlers

import (
	"context"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/clinicbook/internal/api"
)

// CheckAccess is the login gate: it tells the UI whether an email is on
// the allow-list and, when sessions are enabled, issues a token.
func (h *Handler) CheckAccess(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	c := h.begin("check-access", req, http.MethodPost)
	if resp, ok := c.allowed(); !ok {
		return resp, nil
	}

	if h.limiter != nil && !h.limiter.Allow(c.sourceIP()) {
		return c.fail(http.StatusTooManyRequests, "Too many requests"), nil
	}

	var in api.CheckAccessRequest
	if err := c.decode(&in); err != nil {
		return c.fail(http.StatusBadRequest, "Invalid request body"), nil
	}
	if err := h.validate.Struct(in); err != nil {
		return c.fail(http.StatusBadRequest, err.Error()), nil
	}

	if h.tokens == nil {
		allowed, err := h.users.UserExists(ctx, in.Email)
		if err != nil {
			return c.internal(err), nil
		}
		return c.json(http.StatusOK, api.CheckAccessResponse{IsAllowed: allowed}), nil
	}

	user, err := h.users.GetUserByEmail(ctx, in.Email)
	if err != nil {
		return c.internal(err), nil
	}
	if user == nil {
		return c.json(http.StatusOK, api.CheckAccessResponse{IsAllowed: false}), nil
	}

	token, err := h.tokens.Issue(user.Email, user.IsAdmin)
	if err != nil {
		return c.internal(err), nil
	}
	isAdmin := user.IsAdmin
	return c.json(http.StatusOK, api.CheckAccessResponse{
		IsAllowed: true,
		IsAdmin:   &isAdmin,
		Token:     token,
	}), nil
}
