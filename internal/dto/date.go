package dto

// AvailableDateResponse represents a calendar date exposed via HTTP.
type AvailableDateResponse struct {
	ID          int64  `json:"id"`
	Date        string `json:"date"`
	IsAvailable bool   `json:"is_available"`
}

// AvailableDateRequest creates or updates a date.
type AvailableDateRequest struct {
	Date        string `json:"date"`
	IsAvailable *bool  `json:"is_available"`
}

// BulkDatesRequest opens a range of dates.
type BulkDatesRequest struct {
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
	SkipWeekends *bool  `json:"skip_weekends"`
}

// BulkDatesResponse reports bulk creation counters.
type BulkDatesResponse struct {
	Created int    `json:"created"`
	Skipped int    `json:"skipped"`
	Message string `json:"message"`
}

// MessageResponse carries a plain confirmation message.
type MessageResponse struct {
	Message string `json:"message"`
}
