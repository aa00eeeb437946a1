package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// queryLogger reports failed statements and statements slower than the
// configured threshold.
type queryLogger struct {
	logger    *zap.Logger
	threshold time.Duration
	role      string
}

var _ bun.QueryHook = (*queryLogger)(nil)

func (h *queryLogger) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *queryLogger) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	took := time.Since(event.StartTime)
	fields := []zap.Field{
		zap.String("db.role", h.role),
		zap.String("db.operation", event.Operation()),
		zap.Duration("took", took),
	}

	switch {
	case event.Err != nil && !errors.Is(event.Err, sql.ErrNoRows):
		h.logger.Warn("query failed", append(fields, zap.String("query", event.Query), zap.Error(event.Err))...)
	case h.threshold > 0 && took >= h.threshold:
		h.logger.Warn("slow query", append(fields, zap.String("query", event.Query))...)
	}
}
