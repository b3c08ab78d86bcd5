package entity

import "time"

// Request represents a single maintenance ticket tracked through its lifecycle.
type Request struct {
	ID            string     `json:"id"`
	RequestNumber string     `json:"request_number"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Status        string     `json:"status"`
	CategoryID    int64      `json:"category_id"`
	LocationID    int64      `json:"location_id"`
	RequesterID   string     `json:"requester_id"`
	TechnicianID  *string    `json:"technician_id,omitempty"`
	AssignedAt    *time.Time `json:"assigned_at,omitempty"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// RequestDetail is a Request with its relations loaded for API responses
// and notification payloads.
type RequestDetail struct {
	Request
	Category   *Category `json:"category,omitempty"`
	Location   *Location `json:"location,omitempty"`
	Requester  *User     `json:"requester,omitempty"`
	Technician *User     `json:"technician,omitempty"`
}

// RequestLog is an append-only audit entry recording one transition.
// Entries are never mutated or deleted; replaying them in CreatedAt order
// reconstructs the full transition history of a Request.
type RequestLog struct {
	ID        int64     `json:"id"`
	RequestID string    `json:"request_id"`
	Action    string    `json:"action"`
	OldStatus string    `json:"old_status"`
	NewStatus string    `json:"new_status"`
	Note      string    `json:"note,omitempty"`
	ActorID   string    `json:"actor_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Category is a maintenance category lookup entry.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Location identifies where the maintenance work is needed.
type Location struct {
	ID       int64  `json:"id"`
	Building string `json:"building"`
	Floor    string `json:"floor"`
	Room     string `json:"room"`
}

// Label returns the human-readable location string used in notifications.
func (l *Location) Label() string {
	if l == nil {
		return ""
	}
	label := l.Building
	if l.Floor != "" {
		label += " " + l.Floor
	}
	if l.Room != "" {
		label += " " + l.Room
	}
	return label
}
