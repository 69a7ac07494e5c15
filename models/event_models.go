package models

import "time"

// EventRow is a bare events table row, before tasks are attached.
type EventRow struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
	Color       string    `json:"color"`
	Company     string    `json:"company"`
	CreatedBy   int64     `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Event is the nested structure served to clients: an event row with
// its tasks (and their assignees and derived editable flags) attached.
type Event struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
	Color       string    `json:"color"`
	Company     string    `json:"company"`
	CreatedBy   int64     `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Tasks       []Task    `json:"tasks"`
}

// CreateEventRequest defines the body for creating an event.
// Date accepts "2006-01-02" or RFC3339.
type CreateEventRequest struct {
	Title       string `json:"title"`
	Date        string `json:"date"`
	Description string `json:"description"`
	Color       string `json:"color"`
	Company     string `json:"company"`
}

// UpdateEventRequest is a full update of an event's own fields.
type UpdateEventRequest struct {
	Title       string `json:"title"`
	Date        string `json:"date"`
	Description string `json:"description"`
	Color       string `json:"color"`
	Company     string `json:"company"`
}
