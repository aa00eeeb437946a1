package order

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/handyman/internal/dto"
	"github.com/Additional-Code/handyman/internal/entity"
	"github.com/Additional-Code/handyman/internal/presentation/http/response"
	httpserver "github.com/Additional-Code/handyman/internal/server/http"
	service "github.com/Additional-Code/handyman/internal/service/order"
	"github.com/Additional-Code/handyman/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/handyman/transport/http/order")

// photoFields are the multipart field names accepted for uploaded photos.
var photoFields = []string{"files", "photos"}

// Handler exposes order endpoints over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs an order Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with provided router.
func Register(r httpserver.Router, h *Handler) {
	g := r.API.Group("/orders")
	g.POST("", h.create)
	g.GET("", h.list, r.Admin)
	g.GET("/:id", h.getByID, r.Admin)
	g.PATCH("/:id/status", h.setStatus, r.Admin)
	g.DELETE("/:id", h.delete, r.Admin)
}

func (h *Handler) create(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.create")
	defer span.End()

	var headers []*multipart.FileHeader
	form, err := c.MultipartForm()
	switch {
	case err == nil:
		for _, field := range photoFields {
			headers = append(headers, form.File[field]...)
		}
	case errors.Is(err, http.ErrNotMultipart):
		// fields may arrive url-encoded when no photos are attached
	default:
		return b.WithError(errorbank.BadRequest("invalid multipart form", errorbank.WithCause(err))).Build()
	}

	photos := make([]service.Photo, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return b.WithError(errorbank.BadRequest("unreadable photo upload", errorbank.WithCause(err))).Build()
		}
		defer f.Close()
		photos = append(photos, service.Photo{Filename: fh.Filename, Content: f})
	}

	in := service.CreateInput{
		Phone:        c.FormValue("phone"),
		Address:      c.FormValue("address"),
		Description:  c.FormValue("description"),
		SelectedDate: c.FormValue("selected_date"),
		Photos:       photos,
	}
	span.SetAttributes(attribute.Int("order.photos", len(photos)))

	order, err := h.svc.Create(ctx, in)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.Created(toDTO(order)).Build()
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c)

	status := c.QueryParam("status")
	ctx, span := httpTracer.Start(c.Request().Context(), "orders.list", trace.WithAttributes(attribute.String("order.status", status)))
	defer span.End()

	orders, err := h.svc.List(ctx, status)
	if err != nil {
		return b.WithError(err).Build()
	}

	out := make([]dto.OrderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, toDTO(&orders[i]))
	}
	if status != "" {
		b.WithMeta("status", status)
	}
	return b.WithData(out).WithTotal(len(out)).Build()
}

func (h *Handler) getByID(c echo.Context) error {
	b := response.New(c)

	id, err := parseID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.getByID", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order, err := h.svc.Get(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(toDTO(order)).Build()
}

func (h *Handler) setStatus(c echo.Context) error {
	b := response.New(c)

	id, err := parseID(c)
	if err != nil {
		return b.WithError(err).Build()
	}
	var payload dto.OrderStatusRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.setStatus", trace.WithAttributes(
		attribute.Int64("order.id", id),
		attribute.String("order.status", payload.Status),
	))
	defer span.End()

	order, err := h.svc.SetStatus(ctx, id, payload.Status)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(toDTO(order)).Build()
}

func (h *Handler) delete(c echo.Context) error {
	b := response.New(c)

	id, err := parseID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.delete", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	res, err := h.svc.Delete(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.OrderDeleteResponse{
		Message:      "order deleted",
		FilesDeleted: res.FilesDeleted,
		FilesFailed:  res.FilesFailed,
	}).Build()
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errorbank.BadRequest("invalid id", errorbank.WithCause(err))
	}
	return id, nil
}

func toDTO(order *entity.Order) dto.OrderResponse {
	out := dto.OrderResponse{
		ID:           order.ID,
		Phone:        order.Phone,
		Address:      order.Address,
		Description:  order.Description,
		SelectedDate: order.SelectedDate,
		Photos:       order.Photos,
		Status:       order.Status,
		CreatedAt:    order.CreatedAt,
	}
	if out.Photos == nil {
		out.Photos = []string{}
	}
	if !order.UpdatedAt.IsZero() {
		updated := order.UpdatedAt
		out.UpdatedAt = &updated
	}
	return out
}
