package verification

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/Additional-Code/handyman/internal/database"
	"github.com/Additional-Code/handyman/internal/entity"
)

var repoTracer = otel.Tracer("github.com/Additional-Code/handyman/repository/verification")

// ErrNotFound is returned when no verification exists for a phone.
var ErrNotFound = errors.New("verification not found")

// Repository stores one verification row per phone.
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

// Upsert replaces the code and expiry for phone and clears the verified flag.
func (r *Repository) Upsert(ctx context.Context, phone, code string, expiresAt, now time.Time) error {
	ctx, span := repoTracer.Start(ctx, "VerificationRepository.Upsert")
	defer span.End()

	err := r.writer.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing := new(entity.SMSVerification)
		err := tx.NewSelect().Model(existing).Where("phone = ?", phone).Scan(ctx)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			row := &entity.SMSVerification{
				Phone:     phone,
				Code:      code,
				ExpiresAt: expiresAt,
				CreatedAt: now,
			}
			_, err = tx.NewInsert().Model(row).Exec(ctx)
			return err
		case err != nil:
			return err
		}

		existing.Code = code
		existing.ExpiresAt = expiresAt
		existing.IsVerified = false
		_, err = tx.NewUpdate().Model(existing).Column("code", "expires_at", "is_verified").WherePK().Exec(ctx)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upsert failed")
	}
	return err
}

// GetByPhone returns the verification row for phone.
func (r *Repository) GetByPhone(ctx context.Context, phone string) (*entity.SMSVerification, error) {
	ctx, span := repoTracer.Start(ctx, "VerificationRepository.GetByPhone")
	defer span.End()

	v := new(entity.SMSVerification)
	err := r.reader.NewSelect().Model(v).Where("phone = ?", phone).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return v, nil
}

// MarkVerified flags the row as verified.
func (r *Repository) MarkVerified(ctx context.Context, id int64) error {
	ctx, span := repoTracer.Start(ctx, "VerificationRepository.MarkVerified")
	defer span.End()

	_, err := r.writer.NewUpdate().
		Model((*entity.SMSVerification)(nil)).
		Set("is_verified = ?", true).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
	}
	return err
}
