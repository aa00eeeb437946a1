package availability

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/handyman/internal/config"
	"github.com/Additional-Code/handyman/internal/entity"
	daterepo "github.com/Additional-Code/handyman/internal/repository/availability"
	orderrepo "github.com/Additional-Code/handyman/internal/repository/order"
	"github.com/Additional-Code/handyman/internal/validate"
	"github.com/Additional-Code/handyman/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/Additional-Code/handyman/service/availability")

const msgInvalidDate = "invalid date format, use YYYY-MM-DD"

// BulkResult reports how many days of a range were created or skipped.
type BulkResult struct {
	Created int
	Skipped int
}

// OccupancyReport lists dates that reached the per-day capacity.
type OccupancyReport struct {
	OccupiedDates   []string
	MaxOrdersPerDay int
}

// Service manages bookable calendar dates.
type Service struct {
	dates    *daterepo.Repository
	orders   *orderrepo.Repository
	logger   *zap.Logger
	capacity int
	loc      *time.Location
	now      func() time.Time
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Dates  *daterepo.Repository
	Orders *orderrepo.Repository
	Config config.Config
	Logger *zap.Logger
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	loc := p.Config.Booking.Location
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		dates:    p.Dates,
		orders:   p.Orders,
		logger:   p.Logger,
		capacity: p.Config.Booking.CapacityPerDay,
		loc:      loc,
		now:      time.Now,
	}
}

// Today returns the current booking day as an ISO date.
func (s *Service) Today() string {
	return validate.Today(s.now(), s.loc).Format(validate.DateLayout)
}

// ListOpen returns available dates on or after from.
func (s *Service) ListOpen(ctx context.Context, from string) ([]entity.AvailableDate, error) {
	if _, ok := validate.Date(from, s.loc); !ok {
		return nil, errorbank.BadRequest(msgInvalidDate)
	}
	dates, err := s.dates.ListOpen(ctx, from)
	if err != nil {
		return nil, errorbank.Internal("failed to load dates", errorbank.WithCause(err))
	}
	return dates, nil
}

// ListOpenFromToday returns available dates from today onward.
func (s *Service) ListOpenFromToday(ctx context.Context) ([]entity.AvailableDate, error) {
	return s.ListOpen(ctx, s.Today())
}

// ListAll returns every date for administration.
func (s *Service) ListAll(ctx context.Context) ([]entity.AvailableDate, error) {
	dates, err := s.dates.ListAll(ctx)
	if err != nil {
		return nil, errorbank.Internal("failed to load dates", errorbank.WithCause(err))
	}
	return dates, nil
}

// Create adds a single date. Past dates are rejected; today is allowed.
func (s *Service) Create(ctx context.Context, date string, available bool) (*entity.AvailableDate, error) {
	ctx, span := serviceTracer.Start(ctx, "AvailabilityService.Create", trace.WithAttributes(attribute.String("date.value", date)))
	defer span.End()

	day, ok := validate.Date(date, s.loc)
	if !ok {
		return nil, errorbank.BadRequest(msgInvalidDate)
	}
	if day.Before(validate.Today(s.now(), s.loc)) {
		return nil, errorbank.BadRequest("cannot add dates from the past")
	}

	row := &entity.AvailableDate{
		Date:        day.Format(validate.DateLayout),
		IsAvailable: available,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.dates.Create(ctx, row); err != nil {
		if errors.Is(err, daterepo.ErrDuplicate) {
			return nil, errorbank.Conflict("date already exists, use PATCH to update")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to create date", errorbank.WithCause(err))
	}
	return row, nil
}

// SetAvailability toggles whether a date accepts bookings.
func (s *Service) SetAvailability(ctx context.Context, id int64, available bool) (*entity.AvailableDate, error) {
	date, err := s.dates.SetAvailability(ctx, id, available)
	if err != nil {
		if errors.Is(err, daterepo.ErrNotFound) {
			return nil, errorbank.NotFound("date not found")
		}
		return nil, errorbank.Internal("failed to update date", errorbank.WithCause(err))
	}
	return date, nil
}

// Delete removes a date.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.dates.Delete(ctx, id); err != nil {
		if errors.Is(err, daterepo.ErrNotFound) {
			return errorbank.NotFound("date not found")
		}
		return errorbank.Internal("failed to delete date", errorbank.WithCause(err))
	}
	return nil
}

// BulkCreate opens every day in [start, end]. Weekend days (when skipped) and
// existing dates count as skipped. All inserts commit together.
func (s *Service) BulkCreate(ctx context.Context, start, end string, skipWeekends bool) (BulkResult, error) {
	ctx, span := serviceTracer.Start(ctx, "AvailabilityService.BulkCreate", trace.WithAttributes(
		attribute.String("date.start", start),
		attribute.String("date.end", end),
		attribute.Bool("date.skip_weekends", skipWeekends),
	))
	defer span.End()

	from, ok := validate.Date(start, s.loc)
	if !ok {
		return BulkResult{}, errorbank.BadRequest(msgInvalidDate)
	}
	to, ok := validate.Date(end, s.loc)
	if !ok {
		return BulkResult{}, errorbank.BadRequest(msgInvalidDate)
	}
	if from.After(to) {
		return BulkResult{}, errorbank.BadRequest("start date must not be after end date")
	}

	var (
		candidates []string
		total      int
	)
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		total++
		if skipWeekends && isWeekend(day) {
			continue
		}
		candidates = append(candidates, day.Format(validate.DateLayout))
	}

	created, err := s.dates.InsertMissing(ctx, candidates, time.Now().UTC())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return BulkResult{}, errorbank.Internal("failed to create dates", errorbank.WithCause(err))
	}

	result := BulkResult{Created: created, Skipped: total - created}
	s.logger.Info("bulk dates created",
		zap.String("start", start),
		zap.String("end", end),
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

// OccupiedDates returns dates whose active order count reached capacity.
func (s *Service) OccupiedDates(ctx context.Context) (OccupancyReport, error) {
	loads, err := s.orders.LoadByDate(ctx, s.capacity)
	if err != nil {
		return OccupancyReport{}, errorbank.Internal("failed to check dates", errorbank.WithCause(err))
	}
	report := OccupancyReport{
		OccupiedDates:   make([]string, 0, len(loads)),
		MaxOrdersPerDay: s.capacity,
	}
	for _, l := range loads {
		report.OccupiedDates = append(report.OccupiedDates, l.SelectedDate)
	}
	return report, nil
}

func isWeekend(day time.Time) bool {
	wd := day.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
