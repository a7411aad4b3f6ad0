package vendors

import "time"

// CategoryVendorPayment labels ledger rows appended when a vendor is paid.
const CategoryVendorPayment = "Vendor Payments"

// Vendor is a supplier the hotel owes money to. OutstandingBalance, TotalPaid
// and TotalTransactions are denormalized aggregates maintained alongside the
// expense ledger and vendor payments.
type Vendor struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	Category           string    `json:"category"`
	ContactPerson      string    `json:"contact_person"`
	Phone              string    `json:"phone"`
	Email              string    `json:"email"`
	Address            string    `json:"address"`
	OutstandingBalance float64   `json:"outstanding_balance"`
	TotalPaid          float64   `json:"total_paid"`
	TotalTransactions  int64     `json:"total_transactions"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// CreateVendorInput carries the profile fields for a new vendor.
type CreateVendorInput struct {
	Name          string
	Category      string
	ContactPerson string
	Phone         string
	Email         string
	Address       string
	ActorID       int64
}

// UpdateVendorInput patches profile fields. Nil pointers leave the stored
// value unchanged. Balance aggregates are never patched directly.
type UpdateVendorInput struct {
	VendorID      int64
	Name          *string
	Category      *string
	ContactPerson *string
	Phone         *string
	Email         *string
	Address       *string
	ActorID       int64
}

// RecordPaymentInput settles part of a vendor's outstanding balance.
type RecordPaymentInput struct {
	VendorID int64
	Amount   float64
	Mode     string
	Notes    string
	PaidAt   time.Time
	ActorID  int64
}

// PaymentEntry is the expense ledger row appended when a vendor is paid.
type PaymentEntry struct {
	VendorID    int64
	Amount      float64
	Date        time.Time
	PaymentMode string
	Notes       string
	CreatedBy   int64
}

// ListVendorsRequest filters vendor listings.
type ListVendorsRequest struct {
	Search   string
	Category string
	Limit    int
	Offset   int
}
