package handlers

import (
	"context"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/clinicbook/internal/api"
)

func (h *Handler) GetClinicLocations(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	c := h.begin("get-clinic-locations", req, http.MethodGet)
	if resp, ok := c.allowed(); !ok {
		return resp, nil
	}

	locations, err := h.locations.ListLocations(ctx)
	if err != nil {
		return c.internal(err), nil
	}
	return c.json(http.StatusOK, api.Envelope{Success: true, Data: locations}), nil
}
