package rooms

import "time"

// Room statuses.
const (
	StatusAvailable   = "available"
	StatusOccupied    = "occupied"
	StatusMaintenance = "maintenance"
)

// Room is a rentable unit.
type Room struct {
	ID           int64     `json:"id"`
	Number       string    `json:"number"`
	Type         string    `json:"type"`
	Floor        int       `json:"floor"`
	Capacity     int       `json:"capacity"`
	RatePerNight float64   `json:"rate_per_night"`
	Status       string    `json:"status"`
	Description  string    `json:"description"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreateRoomInput carries the fields for a new room.
type CreateRoomInput struct {
	Number       string
	Type         string
	Floor        int
	Capacity     int
	RatePerNight float64
	Description  string
	ActorID      int64
}

// UpdateRoomInput patches room fields. Nil pointers leave stored values alone.
type UpdateRoomInput struct {
	RoomID       int64
	Number       *string
	Type         *string
	Floor        *int
	Capacity     *int
	RatePerNight *float64
	Status       *string
	Description  *string
	ActorID      int64
}

// ListRoomsRequest filters room listings.
type ListRoomsRequest struct {
	Status string
	Type   string
	Limit  int
	Offset int
}
