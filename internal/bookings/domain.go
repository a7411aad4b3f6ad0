package bookings

import "time"

// Booking statuses.
const (
	StatusReserved   = "reserved"
	StatusCheckedIn  = "checked_in"
	StatusCheckedOut = "checked_out"
	StatusCancelled  = "cancelled"
)

// Booking reserves a room for a guest over a date range.
type Booking struct {
	ID        int64     `json:"id"`
	GuestID   int64     `json:"guest_id"`
	RoomID    int64     `json:"room_id"`
	CheckIn   time.Time `json:"check_in"`
	CheckOut  time.Time `json:"check_out"`
	Adults    int       `json:"adults"`
	Children  int       `json:"children"`
	Status    string    `json:"status"`
	Notes     string    `json:"notes"`
	CreatedBy int64     `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateBookingInput carries the fields for a new reservation.
type CreateBookingInput struct {
	GuestID  int64
	RoomID   int64
	CheckIn  time.Time
	CheckOut time.Time
	Adults   int
	Children int
	Notes    string
	ActorID  int64
}

// UpdateBookingInput patches reservation fields. Nil pointers leave stored
// values alone.
type UpdateBookingInput struct {
	BookingID int64
	RoomID    *int64
	CheckIn   *time.Time
	CheckOut  *time.Time
	Adults    *int
	Children  *int
	Notes     *string
	ActorID   int64
}

// Charge is an extra item accrued during the stay, folded into the
// checkout invoice alongside the room charge.
type Charge struct {
	ID          int64     `json:"id"`
	BookingID   int64     `json:"booking_id"`
	Description string    `json:"description"`
	Quantity    float64   `json:"quantity"`
	Rate        float64   `json:"rate"`
	Amount      float64   `json:"amount"`
	CreatedBy   int64     `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// AddChargeInput carries the fields for a new stay charge.
type AddChargeInput struct {
	BookingID   int64
	Description string
	Quantity    float64
	Rate        float64
	ActorID     int64
}

// ListBookingsRequest filters booking listings.
type ListBookingsRequest struct {
	GuestID int64
	RoomID  int64
	Status  string
	Limit   int
	Offset  int
}

// Nights returns the billable night count of the stay, never below one.
func (b Booking) Nights() int {
	n := int(b.CheckOut.Sub(b.CheckIn).Hours() / 24)
	if n < 1 {
		return 1
	}
	return n
}
