package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"github.com/clinicbook/internal/api"
)

const allowHeaders = "X-CSRF-Token, X-Requested-With, Accept, Accept-Version, Content-Length, " +
	"Content-MD5, Content-Type, Date, X-Api-Version, Authorization, Idempotency-Key"

const internalErrorMessage = "Internal server error"

// call carries per-request state through one endpoint invocation.
type call struct {
	h      *Handler
	method string
	req    events.APIGatewayProxyRequest
	log    *slog.Logger
}

func (h *Handler) begin(endpoint string, req events.APIGatewayProxyRequest, method string) *call {
	reqID := req.RequestContext.RequestID
	if reqID == "" {
		reqID = uuid.NewString()
	}
	return &call{
		h:      h,
		method: method,
		req:    req,
		log: h.log.With(
			slog.String("endpoint", endpoint),
			slog.String("request_id", reqID),
		),
	}
}

// allowed answers CORS preflight and rejects other methods. When ok is
// false the returned response is final.
func (c *call) allowed() (resp events.APIGatewayProxyResponse, ok bool) {
	switch strings.ToUpper(c.req.HTTPMethod) {
	case http.MethodOptions:
		return events.APIGatewayProxyResponse{StatusCode: http.StatusOK, Headers: c.headers()}, false
	case c.method:
		return resp, true
	default:
		return c.fail(http.StatusMethodNotAllowed, "Method not allowed"), false
	}
}

func (c *call) headers() map[string]string {
	return map[string]string{
		"Access-Control-Allow-Credentials": "true",
		"Access-Control-Allow-Origin":      c.h.origin,
		"Access-Control-Allow-Methods":     c.method + ",OPTIONS",
		"Access-Control-Allow-Headers":     allowHeaders,
	}
}

func (c *call) raw(status int, body string) events.APIGatewayProxyResponse {
	headers := c.headers()
	headers["Content-Type"] = "application/json"
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    headers,
		Body:       body,
	}
}

func (c *call) json(status int, payload any) events.APIGatewayProxyResponse {
	body, err := json.Marshal(payload)
	if err != nil {
		c.log.Error("failed to serialize response", slog.String("error", err.Error()))
		return c.raw(http.StatusInternalServerError, `{"success":false,"error":"`+internalErrorMessage+`"}`)
	}
	return c.raw(status, string(body))
}

func (c *call) fail(status int, message string) events.APIGatewayProxyResponse {
	return c.json(status, api.Envelope{Success: false, Error: message})
}

// internal logs err and answers with a generic 500.
func (c *call) internal(err error) events.APIGatewayProxyResponse {
	c.log.Error("request failed", slog.String("error", err.Error()))
	return c.fail(http.StatusInternalServerError, internalErrorMessage)
}

var errEmptyBody = errors.New("empty request body")

func (c *call) decode(v any) error {
	body := c.req.Body
	if c.req.IsBase64Encoded {
		b, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return err
		}
		body = string(b)
	}
	if strings.TrimSpace(body) == "" {
		return errEmptyBody
	}
	return json.Unmarshal([]byte(body), v)
}

func (c *call) query(name string) string {
	return strings.TrimSpace(c.req.QueryStringParameters[name])
}

// header looks a header up case-insensitively; API Gateway preserves the
// client's casing.
func (c *call) header(name string) string {
	for k, v := range c.req.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	for k, v := range c.req.MultiValueHeaders {
		if strings.EqualFold(k, name) && len(v) > 0 {
			return v[0]
		}
	}
	return ""
}

func (c *call) sourceIP() string {
	if ip := c.req.RequestContext.Identity.SourceIP; ip != "" {
		return ip
	}
	if fwd := c.header("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.SplitN(fwd, ",", 2)[0])
	}
	return "unknown"
}
