package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// Order statuses. Transitions between them are unrestricted.
const (
	StatusNew        = "new"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// Statuses lists every accepted order status in display order.
var Statuses = []string{StatusNew, StatusInProgress, StatusCompleted, StatusCancelled}

// ValidStatus reports whether status is one of Statuses.
func ValidStatus(status string) bool {
	for _, s := range Statuses {
		if s == status {
			return true
		}
	}
	return false
}

// Order represents a customer service request stored in the relational database.
type Order struct {
	bun.BaseModel `bun:"table:orders"`

	ID           int64     `bun:",pk,autoincrement"`
	Phone        string    `bun:"phone,notnull"`
	Address      string    `bun:"address,notnull"`
	Description  string    `bun:"description,notnull"`
	SelectedDate string    `bun:"selected_date,notnull"`
	Photos       []string  `bun:"photos,type:jsonb"`
	Status       string    `bun:"status,notnull"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time `bun:"updated_at,nullzero"`
}
