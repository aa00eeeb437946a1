package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// AvailableDate is a calendar day that may accept bookings.
type AvailableDate struct {
	bun.BaseModel `bun:"table:available_dates"`

	ID          int64     `bun:",pk,autoincrement"`
	Date        string    `bun:"date,notnull,unique"`
	IsAvailable bool      `bun:"is_available,notnull"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
}
