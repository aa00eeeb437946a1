package dto

import "time"

// OrderResponse represents an order as exposed via transport layers.
type OrderResponse struct {
	ID           int64      `json:"id"`
	Phone        string     `json:"phone"`
	Address      string     `json:"address"`
	Description  string     `json:"description"`
	SelectedDate string     `json:"selected_date"`
	Photos       []string   `json:"photos"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at"`
}

// OrderStatusRequest is the body of a status change.
type OrderStatusRequest struct {
	Status string `json:"status"`
}

// OrderDeleteResponse reports the outcome of an order deletion.
type OrderDeleteResponse struct {
	Message      string `json:"message"`
	FilesDeleted int    `json:"files_deleted"`
	FilesFailed  int    `json:"files_failed"`
}

// OccupancyResponse lists fully booked dates.
type OccupancyResponse struct {
	OccupiedDates   []string `json:"occupied_dates"`
	MaxOrdersPerDay int      `json:"max_orders_per_day"`
}
