package order

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/handyman/internal/cache"
	"github.com/Additional-Code/handyman/internal/config"
	"github.com/Additional-Code/handyman/internal/entity"
	"github.com/Additional-Code/handyman/internal/logger"
	"github.com/Additional-Code/handyman/internal/notification"
	repo "github.com/Additional-Code/handyman/internal/repository/order"
	"github.com/Additional-Code/handyman/internal/storage"
	"github.com/Additional-Code/handyman/internal/validate"
	"github.com/Additional-Code/handyman/pkg/errorbank"
)

var (
	serviceTracer = otel.Tracer("github.com/Additional-Code/handyman/service/order")
	serviceMeter  = otel.Meter("github.com/Additional-Code/handyman/service/order")
)

// Verifier reports whether a phone passed SMS verification.
type Verifier interface {
	IsVerified(ctx context.Context, phone string) (bool, error)
}

// Notifier schedules order notifications without blocking.
type Notifier interface {
	OrderCreated(ctx context.Context, evt notification.OrderCreated)
	StatusChanged(ctx context.Context, evt notification.StatusChanged)
}

// Photo is an uploaded file awaiting storage.
type Photo struct {
	Filename string
	Content  io.Reader
}

// CreateInput carries an order submission as received from the client.
type CreateInput struct {
	Phone        string
	Address      string
	Description  string
	SelectedDate string
	Photos       []Photo
}

// DeleteResult reports how many photo files were removed with the order.
type DeleteResult struct {
	FilesDeleted int
	FilesFailed  int
}

// Service encapsulates business logic around orders.
type Service struct {
	repo        *repo.Repository
	verifier    Verifier
	files       storage.Store
	notifier    Notifier
	cache       cache.Store
	cacheTTL    time.Duration
	logger      *zap.Logger
	maxPerPhone int
	maxPhotos   int
	loc         *time.Location
	now         func() time.Time

	created       metric.Int64Counter
	statusChanges metric.Int64Counter
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Repository *repo.Repository
	Verifier   Verifier
	Files      storage.Store
	Notifier   Notifier
	Cache      cache.Store
	Config     config.Config
	Logger     *zap.Logger
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	s := &Service{
		repo:        p.Repository,
		verifier:    p.Verifier,
		files:       p.Files,
		notifier:    p.Notifier,
		cache:       p.Cache,
		cacheTTL:    p.Config.Cache.DefaultTTL,
		logger:      p.Logger,
		maxPerPhone: p.Config.Booking.MaxOrdersPerPhone,
		maxPhotos:   p.Config.Upload.MaxPhotos,
		loc:         p.Config.Booking.Location,
		now:         func() time.Time { return time.Now().UTC() },
	}

	var err error
	if s.created, err = serviceMeter.Int64Counter("handyman.orders.created",
		metric.WithDescription("Orders accepted by intake")); err != nil {
		p.Logger.Warn("orders created counter unavailable", zap.Error(err))
	}
	if s.statusChanges, err = serviceMeter.Int64Counter("handyman.orders.status_changes",
		metric.WithDescription("Order status updates by target status")); err != nil {
		p.Logger.Warn("status change counter unavailable", zap.Error(err))
	}
	return s
}

// Create runs the intake workflow. Checks run in a fixed order and the first
// failure is returned; photos are stored only after every check passes.
func (s *Service) Create(ctx context.Context, in CreateInput) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Create", trace.WithAttributes(
		attribute.String("order.selected_date", in.SelectedDate),
		attribute.Int("order.photos", len(in.Photos)),
	))
	defer span.End()

	phone, ok := validate.Phone(in.Phone)
	if !ok {
		return nil, errorbank.BadRequest("invalid phone number format")
	}

	verified, err := s.verifier.IsVerified(ctx, phone)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "verification lookup failed")
		return nil, errorbank.Internal("failed to check phone verification", errorbank.WithCause(err))
	}
	if !verified {
		return nil, errorbank.Conflict("phone number is not verified")
	}

	count, err := s.repo.CountByPhone(ctx, phone)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to count orders", errorbank.WithCause(err))
	}
	if count >= s.maxPerPhone {
		return nil, s.limitError()
	}

	if !validate.Length(in.Address, 5, 255) {
		return nil, errorbank.BadRequest("address must be between 5 and 255 characters")
	}
	if !validate.Length(in.Description, 10, 1000) {
		return nil, errorbank.BadRequest("description must be between 10 and 1000 characters")
	}
	if _, ok := validate.Date(in.SelectedDate, s.loc); !ok {
		return nil, errorbank.BadRequest("selected_date must be a valid date in YYYY-MM-DD format")
	}
	if len(in.Photos) > s.maxPhotos {
		return nil, errorbank.BadRequest(fmt.Sprintf("at most %d photos can be attached", s.maxPhotos))
	}

	names, err := s.savePhotos(ctx, in.Photos)
	if err != nil {
		return nil, err
	}

	order := &entity.Order{
		Phone:        phone,
		Address:      strings.TrimSpace(in.Address),
		Description:  strings.TrimSpace(in.Description),
		SelectedDate: strings.TrimSpace(in.SelectedDate),
		Photos:       names,
		Status:       entity.StatusNew,
		CreatedAt:    s.now(),
	}
	if err := s.repo.Create(ctx, order, s.maxPerPhone); err != nil {
		storage.DeleteAll(context.WithoutCancel(ctx), s.files, names, s.logger)
		if errors.Is(err, repo.ErrPhoneLimit) {
			return nil, s.limitError()
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to create order", errorbank.WithCause(err))
	}

	s.logger.Info("order created",
		zap.Int64("order_id", order.ID),
		logger.Phone(order.Phone),
		zap.String("selected_date", order.SelectedDate),
		zap.Int("photos", len(order.Photos)),
	)
	if s.created != nil {
		s.created.Add(ctx, 1)
	}
	s.storeInCache(ctx, order)

	s.notifier.OrderCreated(ctx, notification.OrderCreated{
		OrderID:      order.ID,
		Phone:        order.Phone,
		Address:      order.Address,
		Description:  order.Description,
		SelectedDate: order.SelectedDate,
		Photos:       order.Photos,
		CreatedAt:    order.CreatedAt,
	})
	return order, nil
}

func (s *Service) limitError() error {
	return errorbank.Conflict(fmt.Sprintf("maximum of %d orders per phone number reached", s.maxPerPhone))
}

func (s *Service) savePhotos(ctx context.Context, photos []Photo) ([]string, error) {
	names := make([]string, 0, len(photos))
	for _, p := range photos {
		saved, err := s.files.Save(ctx, p.Filename, p.Content)
		if err != nil {
			storage.DeleteAll(context.WithoutCancel(ctx), s.files, names, s.logger)
			if errors.Is(err, storage.ErrRejected) {
				return nil, errorbank.BadRequest(storage.RejectionReason(err))
			}
			return nil, errorbank.Internal("failed to store photo", errorbank.WithCause(err))
		}
		names = append(names, saved.Filename)
	}
	return names, nil
}

// List returns orders newest first, optionally filtered by status.
func (s *Service) List(ctx context.Context, status string) ([]entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.List", trace.WithAttributes(attribute.String("order.status", status)))
	defer span.End()

	if status != "" && !entity.ValidStatus(status) {
		return nil, invalidStatus()
	}
	orders, err := s.repo.List(ctx, status)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to list orders", errorbank.WithCause(err))
	}
	return orders, nil
}

// Get retrieves an order by id, consulting cache when available.
func (s *Service) Get(ctx context.Context, id int64) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Get", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	if order, err := s.getFromCache(ctx, id); err == nil {
		return order, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("orders cache read failed", zap.Int64("order_id", id), zap.Error(err))
	}

	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errorbank.NotFound("order not found")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to load order", errorbank.WithCause(err))
	}

	s.storeInCache(ctx, order)
	return order, nil
}

// SetStatus moves an order to status. Any transition is allowed.
func (s *Service) SetStatus(ctx context.Context, id int64, status string) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.SetStatus", trace.WithAttributes(
		attribute.Int64("order.id", id),
		attribute.String("order.status", status),
	))
	defer span.End()

	if !entity.ValidStatus(status) {
		return nil, invalidStatus()
	}

	at := s.now()
	order, previous, err := s.repo.UpdateStatus(ctx, id, status, at)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errorbank.NotFound("order not found")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to update order status", errorbank.WithCause(err))
	}

	s.logger.Info("order status changed",
		zap.Int64("order_id", id),
		zap.String("from", previous),
		zap.String("to", status),
	)
	if s.statusChanges != nil {
		s.statusChanges.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	}
	s.storeInCache(ctx, order)

	s.notifier.StatusChanged(ctx, notification.StatusChanged{
		OrderID:   id,
		Previous:  previous,
		Current:   status,
		ChangedAt: at,
	})
	return order, nil
}

// Delete removes the order's photos and then the order itself. Photo
// failures are counted, never fatal.
func (s *Service) Delete(ctx context.Context, id int64) (DeleteResult, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Delete", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return DeleteResult{}, errorbank.NotFound("order not found")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return DeleteResult{}, errorbank.Internal("failed to load order", errorbank.WithCause(err))
	}

	files := storage.DeleteAll(ctx, s.files, order.Photos, s.logger)

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return DeleteResult{}, errorbank.NotFound("order not found")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return DeleteResult{}, errorbank.Internal("failed to delete order", errorbank.WithCause(err))
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, s.cacheKey(id)); err != nil {
			s.logger.Warn("orders cache evict failed", zap.Int64("order_id", id), zap.Error(err))
		}
	}
	s.logger.Info("order deleted",
		zap.Int64("order_id", id),
		zap.Int("files_deleted", files.Deleted),
		zap.Int("files_failed", files.Failed),
	)
	return DeleteResult{FilesDeleted: files.Deleted, FilesFailed: files.Failed}, nil
}

func invalidStatus() error {
	return errorbank.BadRequest("invalid status", errorbank.WithDetail("allowed", entity.Statuses))
}

func (s *Service) cacheKey(id int64) string {
	return fmt.Sprintf("orders:%d", id)
}

func (s *Service) getFromCache(ctx context.Context, id int64) (*entity.Order, error) {
	if s.cache == nil {
		return nil, cache.ErrCacheMiss
	}
	return cache.GetJSON[entity.Order](ctx, s.cache, s.cacheKey(id))
}

func (s *Service) storeInCache(ctx context.Context, order *entity.Order) {
	if s.cache == nil || order == nil {
		return
	}
	if err := cache.SetJSON(ctx, s.cache, s.cacheKey(order.ID), order, s.cacheTTL); err != nil {
		s.logger.Warn("orders cache write failed", zap.Int64("order_id", order.ID), zap.Error(err))
	}
}
