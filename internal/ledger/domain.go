package ledger

import "time"

// Transaction types.
const (
	TypeRevenue = "revenue"
	TypeExpense = "expense"
)

// Transaction is one row in the accounting ledger. Revenue rows may link back
// to the invoice and booking that produced them; expense rows may name a
// vendor, whose aggregates then track this row's amount.
type Transaction struct {
	ID          int64     `json:"id"`
	Type        string    `json:"type"`
	Category    string    `json:"category"`
	Amount      float64   `json:"amount"`
	Date        time.Time `json:"date"`
	PaymentMode string    `json:"payment_mode"`
	Description string    `json:"description"`
	VendorID    int64     `json:"vendor_id,omitempty"`
	InvoiceID   int64     `json:"invoice_id,omitempty"`
	BookingID   int64     `json:"booking_id,omitempty"`
	CreatedBy   int64     `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateTransactionInput carries a manual ledger entry.
type CreateTransactionInput struct {
	Type        string
	Category    string
	Amount      float64
	Date        time.Time
	PaymentMode string
	Description string
	VendorID    int64
	ActorID     int64
}

// TransactionPatch updates an existing entry. Nil pointers leave the stored
// value unchanged.
type TransactionPatch struct {
	TransactionID int64
	Category      *string
	Amount        *float64
	Date          *time.Time
	PaymentMode   *string
	Description   *string
	VendorID      *int64
	ActorID       int64
}

// ListTransactionsRequest filters ledger listings.
type ListTransactionsRequest struct {
	Type     string
	Category string
	VendorID int64
	From     time.Time
	To       time.Time
	Limit    int
	Offset   int
}
