package requests

import "time"

// Service request statuses.
const (
	StatusOpen       = "open"
	StatusInProgress = "in_progress"
	StatusResolved   = "resolved"
	StatusCancelled  = "cancelled"
)

// ServiceRequest tracks housekeeping and maintenance work against a room.
type ServiceRequest struct {
	ID          int64      `json:"id"`
	RoomID      int64      `json:"room_id"`
	GuestID     int64      `json:"guest_id,omitempty"`
	Type        string     `json:"type"`
	Priority    string     `json:"priority"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	AssignedTo  int64      `json:"assigned_to,omitempty"`
	CreatedBy   int64      `json:"created_by"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CreateRequestInput carries the fields for a new service request.
type CreateRequestInput struct {
	RoomID      int64
	GuestID     int64
	Type        string
	Priority    string
	Description string
	ActorID     int64
}

// ListRequestsRequest filters service request listings.
type ListRequestsRequest struct {
	RoomID     int64
	Status     string
	Type       string
	AssignedTo int64
	Limit      int
	Offset     int
}
