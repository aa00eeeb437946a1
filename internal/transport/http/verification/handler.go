package verification

import (
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"

	"github.com/Additional-Code/handyman/internal/dto"
	"github.com/Additional-Code/handyman/internal/presentation/http/response"
	httpserver "github.com/Additional-Code/handyman/internal/server/http"
	service "github.com/Additional-Code/handyman/internal/service/verification"
	"github.com/Additional-Code/handyman/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/handyman/transport/http/verification")

// Handler exposes SMS verification endpoints.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs a verification Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with provided router.
func Register(r httpserver.Router, h *Handler) {
	g := r.API.Group("/sms")
	g.POST("/send", h.send)
	g.POST("/send-code", h.send)
	g.POST("/verify", h.verify)
	g.POST("/verify-code", h.verify)
}

func (h *Handler) send(c echo.Context) error {
	b := response.New(c)

	var payload dto.SMSSendRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "sms.send")
	defer span.End()

	res, err := h.svc.Issue(ctx, payload.Phone)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.SMSResponse{Success: true, Message: res.Message}).Build()
}

func (h *Handler) verify(c echo.Context) error {
	b := response.New(c)

	var payload dto.SMSVerifyRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "sms.verify")
	defer span.End()

	if err := h.svc.Confirm(ctx, payload.Phone, payload.Code); err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.SMSResponse{Success: true, Message: service.ConfirmedMessage}).Build()
}
