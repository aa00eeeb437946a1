package seeder

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	availability "github.com/Additional-Code/handyman/internal/service/availability"
	"github.com/Additional-Code/handyman/internal/validate"
)

// DefaultDays is how far ahead Dates opens the calendar.
const DefaultDays = 60

// Module provides the Seeder to Fx.
var Module = fx.Provide(New)

// Seeder performs database seeding for local/dev setups.
type Seeder struct {
	dates  *availability.Service
	logger *zap.Logger
}

// New constructs a Seeder on top of the availability service.
func New(dates *availability.Service, logger *zap.Logger) *Seeder {
	return &Seeder{dates: dates, logger: logger}
}

// Dates opens every weekday from tomorrow up to days ahead. Existing dates are
// left untouched, so the seeder can run repeatedly.
func (s *Seeder) Dates(ctx context.Context, days int) (availability.BulkResult, error) {
	if days <= 1 {
		days = DefaultDays
	}
	today, _ := validate.Date(s.dates.Today(), time.UTC)
	start := today.AddDate(0, 0, 1).Format(validate.DateLayout)
	end := today.AddDate(0, 0, days-1).Format(validate.DateLayout)

	res, err := s.dates.BulkCreate(ctx, start, end, true)
	if err != nil {
		return availability.BulkResult{}, err
	}

	if s.logger != nil {
		s.logger.Info("seeded available dates",
			zap.String("from", start),
			zap.String("to", end),
			zap.Int("created", res.Created),
			zap.Int("skipped", res.Skipped),
		)
	}
	return res, nil
}
