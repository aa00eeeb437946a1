package availability

import (
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/handyman/internal/dto"
	"github.com/Additional-Code/handyman/internal/entity"
	"github.com/Additional-Code/handyman/internal/presentation/http/response"
	httpserver "github.com/Additional-Code/handyman/internal/server/http"
	service "github.com/Additional-Code/handyman/internal/service/availability"
	"github.com/Additional-Code/handyman/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/handyman/transport/http/availability")

// Handler exposes calendar endpoints over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs a date Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with provided router.
func Register(r httpserver.Router, h *Handler) {
	g := r.API.Group("/dates")
	g.GET("/available", h.listOpen)
	g.GET("/all", h.listAll, r.Admin)
	g.POST("", h.create, r.Admin)
	g.POST("/bulk", h.bulkCreate, r.Admin)
	g.PATCH("/:id", h.setAvailability, r.Admin)
	g.DELETE("/:id", h.delete, r.Admin)

	r.API.GET("/orders/availability/check-dates", h.occupied)
}

func (h *Handler) listOpen(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "dates.listOpen")
	defer span.End()

	dates, err := h.svc.ListOpenFromToday(ctx)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(toDTOs(dates)).WithTotal(len(dates)).Build()
}

func (h *Handler) listAll(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "dates.listAll")
	defer span.End()

	dates, err := h.svc.ListAll(ctx)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(toDTOs(dates)).WithTotal(len(dates)).Build()
}

func (h *Handler) create(c echo.Context) error {
	b := response.New(c)

	var payload dto.AvailableDateRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}
	available := true
	if payload.IsAvailable != nil {
		available = *payload.IsAvailable
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "dates.create", trace.WithAttributes(attribute.String("date.value", payload.Date)))
	defer span.End()

	date, err := h.svc.Create(ctx, payload.Date, available)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.Created(toDTO(date)).Build()
}

func (h *Handler) setAvailability(c echo.Context) error {
	b := response.New(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return b.WithError(errorbank.BadRequest("invalid id", errorbank.WithCause(err))).Build()
	}
	var payload dto.AvailableDateRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}
	if payload.IsAvailable == nil {
		return b.WithError(errorbank.BadRequest("is_available is required")).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "dates.setAvailability", trace.WithAttributes(attribute.Int64("date.id", id)))
	defer span.End()

	date, err := h.svc.SetAvailability(ctx, id, *payload.IsAvailable)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(toDTO(date)).Build()
}

func (h *Handler) delete(c echo.Context) error {
	b := response.New(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return b.WithError(errorbank.BadRequest("invalid id", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "dates.delete", trace.WithAttributes(attribute.Int64("date.id", id)))
	defer span.End()

	if err := h.svc.Delete(ctx, id); err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.MessageResponse{Message: "date deleted"}).Build()
}

// bulkCreate accepts its parameters from the query string, a JSON body, or both.
func (h *Handler) bulkCreate(c echo.Context) error {
	b := response.New(c)

	var payload dto.BulkDatesRequest
	if err := (&echo.DefaultBinder{}).BindBody(c, &payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}
	if v := c.QueryParam("start_date"); v != "" {
		payload.StartDate = v
	}
	if v := c.QueryParam("end_date"); v != "" {
		payload.EndDate = v
	}
	skipWeekends := true
	if payload.SkipWeekends != nil {
		skipWeekends = *payload.SkipWeekends
	}
	if v := c.QueryParam("skip_weekends"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return b.WithError(errorbank.BadRequest("skip_weekends must be true or false")).Build()
		}
		skipWeekends = parsed
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "dates.bulkCreate", trace.WithAttributes(
		attribute.String("date.start", payload.StartDate),
		attribute.String("date.end", payload.EndDate),
		attribute.Bool("date.skip_weekends", skipWeekends),
	))
	defer span.End()

	res, err := h.svc.BulkCreate(ctx, payload.StartDate, payload.EndDate, skipWeekends)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.BulkDatesResponse{
		Created: res.Created,
		Skipped: res.Skipped,
		Message: fmt.Sprintf("created %d dates, skipped %d", res.Created, res.Skipped),
	}).Build()
}

func (h *Handler) occupied(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "dates.occupied")
	defer span.End()

	report, err := h.svc.OccupiedDates(ctx)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.OccupancyResponse{
		OccupiedDates:   report.OccupiedDates,
		MaxOrdersPerDay: report.MaxOrdersPerDay,
	}).Build()
}

func toDTO(date *entity.AvailableDate) dto.AvailableDateResponse {
	return dto.AvailableDateResponse{
		ID:          date.ID,
		Date:        date.Date,
		IsAvailable: date.IsAvailable,
	}
}

func toDTOs(dates []entity.AvailableDate) []dto.AvailableDateResponse {
	out := make([]dto.AvailableDateResponse, 0, len(dates))
	for i := range dates {
		out = append(out, toDTO(&dates[i]))
	}
	return out
}
