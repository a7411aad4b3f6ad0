package guests

import "time"

// Guest is a registered hotel guest.
type Guest struct {
	ID        int64     `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	IDType    string    `json:"id_type"`
	IDNumber  string    `json:"id_number"`
	Address   string    `json:"address"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateGuestInput carries the fields for a new guest.
type CreateGuestInput struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	IDType    string
	IDNumber  string
	Address   string
	Notes     string
	ActorID   int64
}

// UpdateGuestInput patches guest fields. Nil pointers leave stored values alone.
type UpdateGuestInput struct {
	GuestID   int64
	FirstName *string
	LastName  *string
	Email     *string
	Phone     *string
	IDType    *string
	IDNumber  *string
	Address   *string
	Notes     *string
	ActorID   int64
}

// ListGuestsRequest filters guest listings.
type ListGuestsRequest struct {
	Search string
	Limit  int
	Offset int
}
