package order

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/handyman/internal/database"
	"github.com/Additional-Code/handyman/internal/entity"
)

var repoTracer = otel.Tracer("github.com/Additional-Code/handyman/repository/order")

var (
	// ErrNotFound is returned when an order is missing.
	ErrNotFound = errors.New("order not found")
	// ErrPhoneLimit is returned when the phone already holds the maximum number of orders.
	ErrPhoneLimit = errors.New("order limit reached for phone")
)

// DateLoad is the number of active orders booked on a date.
type DateLoad struct {
	SelectedDate string `bun:"selected_date"`
	OrderCount   int    `bun:"order_count"`
}

// Repository encapsulates read/write access for orders.
type Repository struct {
	writer *bun.DB
	reader *bun.DB
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{
		writer: conns.Writer,
		reader: conns.Reader,
	}
}

// Create persists a new order. The per-phone count is re-checked inside the
// insert transaction; concurrent submissions for one phone may still race.
func (r *Repository) Create(ctx context.Context, order *entity.Order, maxPerPhone int) error {
	if order == nil {
		return errors.New("nil order")
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Create", trace.WithAttributes(attribute.String("order.selected_date", order.SelectedDate)))
	defer span.End()

	if order.Photos == nil {
		order.Photos = []string{}
	}

	err := r.writer.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if maxPerPhone > 0 {
			count, err := tx.NewSelect().Model((*entity.Order)(nil)).Where("phone = ?", order.Phone).Count(ctx)
			if err != nil {
				return err
			}
			if count >= maxPerPhone {
				return ErrPhoneLimit
			}
		}
		_, err := tx.NewInsert().Model(order).Exec(ctx)
		return err
	})
	if err != nil && !errors.Is(err, ErrPhoneLimit) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// GetByID fetches an order by primary key using the read replica when available.
func (r *Repository) GetByID(ctx context.Context, id int64) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.GetByID", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order := new(entity.Order)
	err := r.reader.NewSelect().Model(order).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return order, nil
}

// List returns orders newest first, optionally filtered by status.
func (r *Repository) List(ctx context.Context, status string) ([]entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.List", trace.WithAttributes(attribute.String("order.status", status)))
	defer span.End()

	orders := make([]entity.Order, 0)
	q := r.reader.NewSelect().Model(&orders).OrderExpr("created_at DESC, id DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Scan(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return orders, nil
}

// CountByPhone returns how many orders exist for phone.
func (r *Repository) CountByPhone(ctx context.Context, phone string) (int, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.CountByPhone")
	defer span.End()

	count, err := r.reader.NewSelect().Model((*entity.Order)(nil)).Where("phone = ?", phone).Count(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "count failed")
	}
	return count, err
}

// UpdateStatus sets a new status and returns the updated order together with
// the status it replaced.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, status string, at time.Time) (*entity.Order, string, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.UpdateStatus", trace.WithAttributes(
		attribute.Int64("order.id", id),
		attribute.String("order.status", status),
	))
	defer span.End()

	order := new(entity.Order)
	var previous string
	err := r.writer.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := tx.NewSelect().Model(order).Where("id = ?", id).Scan(ctx); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		previous = order.Status
		order.Status = status
		order.UpdatedAt = at
		_, err := tx.NewUpdate().Model(order).Column("status", "updated_at").WherePK().Exec(ctx)
		return err
	})
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "update failed")
		}
		return nil, "", err
	}
	return order, previous, nil
}

// Delete removes the order row.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Delete", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	res, err := r.writer.NewDelete().Model((*entity.Order)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// LoadByDate counts non-cancelled orders per date and keeps dates with at
// least minCount orders, ascending.
func (r *Repository) LoadByDate(ctx context.Context, minCount int) ([]DateLoad, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.LoadByDate", trace.WithAttributes(attribute.Int("order.min_count", minCount)))
	defer span.End()

	loads := make([]DateLoad, 0)
	err := r.reader.NewSelect().
		Model((*entity.Order)(nil)).
		Column("selected_date").
		ColumnExpr("COUNT(*) AS order_count").
		Where("status != ?", entity.StatusCancelled).
		Group("selected_date").
		Having("COUNT(*) >= ?", minCount).
		Order("selected_date ASC").
		Scan(ctx, &loads)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "aggregate failed")
		return nil, err
	}
	return loads, nil
}
