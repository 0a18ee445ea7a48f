package backend

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/twilio/twilio-go/client"
	"github.com/twilio/twilio-go/twiml"

	"github.com/jo-hoe/kwhledger/internal/backend/database"
	"github.com/jo-hoe/kwhledger/internal/core"
)

const signatureHeader = "X-Twilio-Signature"

// LedgerService is the part of the core the HTTP surface talks to.
type LedgerService interface {
	HandleMessage(ctx context.Context, msg core.InboundMessage) string
	CurrentTotals(ctx context.Context) (string, []database.SenderTotal, error)
	Ping(ctx context.Context) error
}

type APIService struct {
	service   LedgerService
	publicURL string
	validator *client.RequestValidator
}

func NewAPIService(config *core.ServiceConfig, service LedgerService) *APIService {
	api := &APIService{
		service:   service,
		publicURL: strings.TrimSuffix(config.Webhook.PublicURL, "/"),
	}
	if config.Webhook.ValidateSignature {
		validator := client.NewRequestValidator(config.Twilio.AuthToken)
		api.validator = &validator
	}
	return api
}

// smsRequest is the subset of the messaging webhook form the ledger uses.
type smsRequest struct {
	From      string `form:"From" validate:"required"`
	Body      string `form:"Body"`
	NumMedia  int    `form:"NumMedia" validate:"min=0"`
	MediaURL0 string `form:"MediaUrl0"`
}

type statusResponse struct {
	Month  string                 `json:"month"`
	Totals []database.SenderTotal `json:"totals"`
}

func (s *APIService) SetRoutes(e *echo.Echo) {
	e.POST("/sms", s.smsHandler)
	e.GET("/status", s.statusHandler)
	e.GET("/health", s.healthHandler)
	e.GET("/probe", func(c echo.Context) error {
		return c.String(http.StatusOK, "API Service is running")
	})
}

func (s *APIService) smsHandler(ctx echo.Context) error {
	if s.validator != nil && !s.validSignature(ctx) {
		slog.Warn("smsHandler: rejected request with invalid signature",
			"status", http.StatusForbidden, "remote_ip", ctx.RealIP())
		return ctx.String(http.StatusForbidden, "invalid signature")
	}

	var req smsRequest
	if err := ctx.Bind(&req); err != nil {
		slog.Error("smsHandler: failed to bind request", "status", http.StatusBadRequest, "error", err)
		return ctx.String(http.StatusBadRequest, "invalid request")
	}
	if err := ctx.Validate(&req); err != nil {
		slog.Error("smsHandler: invalid request", "status", http.StatusBadRequest, "error", err)
		return err
	}

	msg := core.InboundMessage{From: req.From, Body: req.Body}
	if req.NumMedia > 0 && req.MediaURL0 != "" {
		msg.MediaURLs = []string{req.MediaURL0}
	}

	reply := s.service.HandleMessage(ctx.Request().Context(), msg)
	response, err := twiml.Messages([]twiml.Element{twiml.MessagingMessage{Body: reply}})
	if err != nil {
		slog.Error("smsHandler: failed to render reply", "status", http.StatusInternalServerError, "error", err)
		return ctx.String(http.StatusInternalServerError, "failed to render reply")
	}
	return ctx.Blob(http.StatusOK, echo.MIMEApplicationXMLCharsetUTF8, []byte(response))
}

func (s *APIService) validSignature(ctx echo.Context) bool {
	form, err := ctx.FormParams()
	if err != nil {
		return false
	}
	params := make(map[string]string, len(form))
	for key, values := range form {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}
	url := s.publicURL + ctx.Request().URL.RequestURI()
	return s.validator.Validate(url, params, ctx.Request().Header.Get(signatureHeader))
}

func (s *APIService) statusHandler(ctx echo.Context) error {
	month, totals, err := s.service.CurrentTotals(ctx.Request().Context())
	if err != nil {
		slog.Error("statusHandler: failed to read totals", "status", http.StatusInternalServerError, "error", err)
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if totals == nil {
		totals = []database.SenderTotal{}
	}
	return ctx.JSON(http.StatusOK, statusResponse{Month: month, Totals: totals})
}

func (s *APIService) healthHandler(ctx echo.Context) error {
	if err := s.service.Ping(ctx.Request().Context()); err != nil {
		slog.Error("healthHandler: store unreachable", "status", http.StatusServiceUnavailable, "error", err)
		return ctx.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
	}
	return ctx.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}
