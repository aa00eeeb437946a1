package availability

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

var repoTracer = otel.Tracer("github.com/Additional-Code/handyman/repository/availability")

var (
	// ErrNotFound is returned when a date id is unknown.
	ErrNotFound = errors.New("date not found")
	// ErrDuplicate is returned when the calendar date already exists.
	ErrDuplicate = errors.New("date already exists")
)

// Repository encapsulates access to available dates.
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

// ListOpen returns available dates on or after from, ascending.
func (r *Repository) ListOpen(ctx context.Context, from string) ([]entity.AvailableDate, error) {
	ctx, span := repoTracer.Start(ctx, "DateRepository.ListOpen", trace.WithAttributes(attribute.String("date.from", from)))
	defer span.End()

	dates := make([]entity.AvailableDate, 0)
	err := r.reader.NewSelect().Model(&dates).
		Where("is_available = ?", true).
		Where("date >= ?", from).
		Order("date ASC").
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return dates, nil
}

// ListAll returns every date, newest first.
func (r *Repository) ListAll(ctx context.Context) ([]entity.AvailableDate, error) {
	ctx, span := repoTracer.Start(ctx, "DateRepository.ListAll")
	defer span.End()

	dates := make([]entity.AvailableDate, 0)
	if err := r.reader.NewSelect().Model(&dates).Order("date DESC").Scan(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return dates, nil
}

// Create inserts a single date.
func (r *Repository) Create(ctx context.Context, date *entity.AvailableDate) error {
	if date == nil {
		return errors.New("nil date")
	}
	ctx, span := repoTracer.Start(ctx, "DateRepository.Create", trace.WithAttributes(attribute.String("date.value", date.Date)))
	defer span.End()

	err := r.writer.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().Model((*entity.AvailableDate)(nil)).Where("date = ?", date.Date).Exists(ctx)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicate
		}
		_, err = tx.NewInsert().Model(date).Exec(ctx)
		return err
	})
	if database.IsUniqueViolation(err) {
		err = ErrDuplicate
	}
	if err != nil && !errors.Is(err, ErrDuplicate) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// GetByID fetches a date by primary key.
func (r *Repository) GetByID(ctx context.Context, id int64) (*entity.AvailableDate, error) {
	ctx, span := repoTracer.Start(ctx, "DateRepository.GetByID", trace.WithAttributes(attribute.Int64("date.id", id)))
	defer span.End()

	date := new(entity.AvailableDate)
	err := r.reader.NewSelect().Model(date).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return date, nil
}

// SetAvailability flips the availability flag and returns the updated row.
func (r *Repository) SetAvailability(ctx context.Context, id int64, available bool) (*entity.AvailableDate, error) {
	ctx, span := repoTracer.Start(ctx, "DateRepository.SetAvailability", trace.WithAttributes(
		attribute.Int64("date.id", id),
		attribute.Bool("date.available", available),
	))
	defer span.End()

	date := new(entity.AvailableDate)
	err := r.writer.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := tx.NewSelect().Model(date).Where("id = ?", id).Scan(ctx); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		date.IsAvailable = available
		_, err := tx.NewUpdate().Model(date).Column("is_available").WherePK().Exec(ctx)
		return err
	})
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "update failed")
		}
		return nil, err
	}
	return date, nil
}

// Delete removes a date.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	ctx, span := repoTracer.Start(ctx, "DateRepository.Delete", trace.WithAttributes(attribute.Int64("date.id", id)))
	defer span.End()

	res, err := r.writer.NewDelete().Model((*entity.AvailableDate)(nil)).Where("id = ?", id).Exec(ctx)
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

// InsertMissing inserts every date in candidates that does not exist yet, in a
// single transaction. It returns how many rows were inserted.
func (r *Repository) InsertMissing(ctx context.Context, candidates []string, createdAt time.Time) (int, error) {
	ctx, span := repoTracer.Start(ctx, "DateRepository.InsertMissing", trace.WithAttributes(attribute.Int("date.candidates", len(candidates))))
	defer span.End()

	if len(candidates) == 0 {
		return 0, nil
	}

	var inserted int
	err := r.writer.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var existing []string
		if err := tx.NewSelect().
			Model((*entity.AvailableDate)(nil)).
			Column("date").
			Where("date IN (?)", bun.In(candidates)).
			Scan(ctx, &existing); err != nil {
			return err
		}
		seen := make(map[string]struct{}, len(existing))
		for _, d := range existing {
			seen[d] = struct{}{}
		}

		rows := make([]entity.AvailableDate, 0, len(candidates))
		for _, d := range candidates {
			if _, ok := seen[d]; ok {
				continue
			}
			seen[d] = struct{}{}
			rows = append(rows, entity.AvailableDate{Date: d, IsAvailable: true, CreatedAt: createdAt})
		}
		if len(rows) == 0 {
			return nil
		}
		if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
			return err
		}
		inserted = len(rows)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "bulk insert failed")
		return 0, err
	}
	return inserted, nil
}
