package billing

import (
	"time"
)

// PaymentStatus enumerates invoice payment states.
type PaymentStatus string

const (
	StatusPending PaymentStatus = "pending"
	StatusPartial PaymentStatus = "partial"
	StatusPaid    PaymentStatus = "paid"
)

// StatusFor derives the payment status from the paid and total amounts.
// Status is always recomputed from the amounts, never transitioned, so a
// charge revision that moves totals backward can never leave it stale. An
// invoice whose total has been revised to zero or below counts as paid once
// anything was collected against it.
func StatusFor(paidAmount, totalAmount float64) PaymentStatus {
	switch {
	case paidAmount >= totalAmount:
		return StatusPaid
	case paidAmount > 0:
		return StatusPartial
	default:
		return StatusPending
	}
}

// CategoryRoomBooking is the ledger category stamped on invoice payments.
const CategoryRoomBooking = "Room Booking"

// InvoiceItem is a billable line embedded in an invoice.
type InvoiceItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	Rate        float64 `json:"rate"`
	Amount      float64 `json:"amount"`
}

// Invoice model. PaidAmount + DueAmount == TotalAmount holds after every
// mutation; DueAmount may go negative when charges are revised below the
// amount already collected.
type Invoice struct {
	ID            int64         `json:"id"`
	Number        string        `json:"number"`
	BookingID     int64         `json:"booking_id"`
	Items         []InvoiceItem `json:"items"`
	Subtotal      float64       `json:"subtotal"`
	Tax           float64       `json:"tax"`
	Discount      float64       `json:"discount"`
	TotalAmount   float64       `json:"total_amount"`
	PaidAmount    float64       `json:"paid_amount"`
	DueAmount     float64       `json:"due_amount"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	PaymentMode   string        `json:"payment_mode,omitempty"`
	CreatedBy     int64         `json:"created_by"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Payment is a receipt against one invoice. Immutable once recorded.
type Payment struct {
	ID         int64     `json:"id"`
	InvoiceID  int64     `json:"invoice_id"`
	Amount     float64   `json:"amount"`
	Mode       string    `json:"mode"`
	Reference  string    `json:"reference,omitempty"`
	Notes      string    `json:"notes,omitempty"`
	ReceivedBy int64     `json:"received_by"`
	PaidAt     time.Time `json:"paid_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// RevenueEntry is the ledger row appended alongside a recorded payment.
type RevenueEntry struct {
	Category    string
	Amount      float64
	Date        time.Time
	PaymentMode string
	InvoiceID   int64
	BookingID   int64
	CreatedBy   int64
}

// --- Input DTOs ---

// CreateInvoiceInput for creating a booking invoice.
type CreateInvoiceInput struct {
	BookingID int64
	Number    string
	Items     []InvoiceItem
	Tax       float64
	Discount  float64
	CreatedBy int64
}

// RecordPaymentInput for recording a payment against an invoice.
type RecordPaymentInput struct {
	InvoiceID  int64
	Amount     float64
	Mode       string
	Reference  string
	Notes      string
	ReceivedBy int64
	PaidAt     time.Time
}

// ReviseChargesInput replaces invoice charges. Nil fields are left untouched.
type ReviseChargesInput struct {
	InvoiceID int64
	Items     *[]InvoiceItem
	Tax       *float64
	Discount  *float64
	ActorID   int64
}

// ListInvoicesRequest filters invoice listings.
type ListInvoicesRequest struct {
	BookingID int64
	Status    PaymentStatus
	Limit     int
	Offset    int
}
