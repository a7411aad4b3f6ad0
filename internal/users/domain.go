package users

import "time"

// Account is a staff login account.
type Account struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateAccountInput carries the fields for a new account.
type CreateAccountInput struct {
	Email    string
	Name     string
	Password string
	ActorID  int64
}

// UpdateAccountInput patches account fields. Nil pointers leave stored values
// alone; a non-nil Password rotates the hash.
type UpdateAccountInput struct {
	AccountID int64
	Email     *string
	Name      *string
	Password  *string
	IsActive  *bool
	ActorID   int64
}
