package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/atrium-hms/atrium/internal/shared"
)

var (
	ErrInvoiceNotFound      = errors.New("invoice not found")
	ErrInvalidPaymentAmount = errors.New("payment amount must be positive and within the due amount")
)

// Service maintains the arithmetic relationship between invoice totals and
// recorded payments.
type Service struct {
	repo   Repository
	locks  *shared.KeyedMutex
	audit  *shared.AuditLogger
	logger *slog.Logger
}

// NewService constructs a billing Service.
func NewService(repo Repository, locks *shared.KeyedMutex, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	return &Service{repo: repo, locks: locks, audit: audit, logger: logger}
}

// CreateInvoice creates an invoice for a finalized booking.
func (s *Service) CreateInvoice(ctx context.Context, input CreateInvoiceInput) (Invoice, error) {
	if input.BookingID == 0 {
		return Invoice{}, errors.New("booking id required")
	}
	if len(input.Items) == 0 {
		return Invoice{}, errors.New("at least one invoice item is required")
	}

	items := make([]InvoiceItem, len(input.Items))
	var subtotal float64
	for i, item := range input.Items {
		item.Amount = item.Quantity * item.Rate
		items[i] = item
		subtotal += item.Amount
	}

	total := subtotal + input.Tax - input.Discount
	inv := Invoice{
		Number:        input.Number,
		BookingID:     input.BookingID,
		Items:         items,
		Subtotal:      subtotal,
		Tax:           input.Tax,
		Discount:      input.Discount,
		TotalAmount:   total,
		PaidAmount:    0,
		DueAmount:     total,
		PaymentStatus: StatusPending,
		CreatedBy:     input.CreatedBy,
	}

	var invoiceID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if inv.Number == "" {
			num, err := tx.GenerateInvoiceNumber(ctx)
			if err != nil {
				return err
			}
			inv.Number = num
		}
		id, err := tx.CreateInvoice(ctx, inv)
		if err != nil {
			return err
		}
		invoiceID = id
		return nil
	})
	if err != nil {
		return Invoice{}, err
	}

	s.audit.RecordChange(ctx, shared.AuditEntry{
		ActorID:  input.CreatedBy,
		Action:   "invoice.create",
		Entity:   "invoice",
		EntityID: strconv.FormatInt(invoiceID, 10),
	})
	return s.repo.GetInvoice(ctx, invoiceID)
}

// RecordPayment records a receipt against an invoice. The payment row, the
// invoice aggregate update and the revenue ledger row commit as one
// transaction. Duplicate submissions are not deduplicated: each call is a
// distinct payment and the caller owns retry semantics.
func (s *Service) RecordPayment(ctx context.Context, input RecordPaymentInput) (Payment, error) {
	unlock := s.locks.Lock(shared.InvoiceLockKey(input.InvoiceID))
	defer unlock()

	inv, err := s.repo.GetInvoice(ctx, input.InvoiceID)
	if err != nil {
		return Payment{}, err
	}
	if input.Amount <= 0 || input.Amount > inv.DueAmount {
		return Payment{}, fmt.Errorf("%w: amount %.2f, due %.2f", ErrInvalidPaymentAmount, input.Amount, inv.DueAmount)
	}

	paidAt := input.PaidAt
	if paidAt.IsZero() {
		paidAt = time.Now()
	}

	firstPayment := inv.PaidAmount == 0
	inv.PaidAmount += input.Amount
	inv.DueAmount = inv.TotalAmount - inv.PaidAmount
	inv.PaymentStatus = StatusFor(inv.PaidAmount, inv.TotalAmount)
	if firstPayment && inv.PaymentMode == "" {
		inv.PaymentMode = input.Mode
	}

	payment := Payment{
		InvoiceID:  inv.ID,
		Amount:     input.Amount,
		Mode:       input.Mode,
		Reference:  input.Reference,
		Notes:      input.Notes,
		ReceivedBy: input.ReceivedBy,
		PaidAt:     paidAt,
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.CreatePayment(ctx, payment)
		if err != nil {
			return err
		}
		payment.ID = id
		if err := tx.UpdateInvoiceTotals(ctx, inv); err != nil {
			return err
		}
		return tx.AppendRevenueTransaction(ctx, RevenueEntry{
			Category:    CategoryRoomBooking,
			Amount:      input.Amount,
			Date:        paidAt,
			PaymentMode: input.Mode,
			InvoiceID:   inv.ID,
			BookingID:   inv.BookingID,
			CreatedBy:   input.ReceivedBy,
		})
	})
	if err != nil {
		return Payment{}, err
	}

	s.audit.RecordChange(ctx, shared.AuditEntry{
		ActorID:  input.ReceivedBy,
		Action:   "invoice.payment",
		Entity:   "invoice",
		EntityID: strconv.FormatInt(inv.ID, 10),
		Field:    "paid_amount",
		OldValue: formatAmount(inv.PaidAmount - input.Amount),
		NewValue: formatAmount(inv.PaidAmount),
	})
	return payment, nil
}

// ReviseCharges replaces the invoice items, tax and/or discount and recomputes
// the derived totals. Recorded payments are never touched: revising charges
// below the collected amount leaves DueAmount negative.
func (s *Service) ReviseCharges(ctx context.Context, input ReviseChargesInput) (Invoice, error) {
	unlock := s.locks.Lock(shared.InvoiceLockKey(input.InvoiceID))
	defer unlock()

	inv, err := s.repo.GetInvoice(ctx, input.InvoiceID)
	if err != nil {
		return Invoice{}, err
	}

	if input.Items != nil {
		items := make([]InvoiceItem, len(*input.Items))
		for i, item := range *input.Items {
			item.Amount = item.Quantity * item.Rate
			items[i] = item
		}
		inv.Items = items
	}
	if input.Tax != nil {
		inv.Tax = *input.Tax
	}
	if input.Discount != nil {
		inv.Discount = *input.Discount
	}

	var subtotal float64
	for _, item := range inv.Items {
		subtotal += item.Amount
	}
	oldTotal := inv.TotalAmount
	inv.Subtotal = subtotal
	inv.TotalAmount = subtotal + inv.Tax - inv.Discount
	inv.DueAmount = inv.TotalAmount - inv.PaidAmount
	inv.PaymentStatus = StatusFor(inv.PaidAmount, inv.TotalAmount)

	if inv.DueAmount < 0 && s.logger != nil {
		s.logger.Warn("invoice due amount negative after revision",
			slog.Int64("invoice_id", inv.ID),
			slog.Float64("due", inv.DueAmount))
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if input.Items != nil {
			if err := tx.ReplaceInvoiceItems(ctx, inv.ID, inv.Items); err != nil {
				return err
			}
		}
		return tx.UpdateInvoiceTotals(ctx, inv)
	})
	if err != nil {
		return Invoice{}, err
	}

	s.audit.RecordChange(ctx, shared.AuditEntry{
		ActorID:  input.ActorID,
		Action:   "invoice.revise",
		Entity:   "invoice",
		EntityID: strconv.FormatInt(inv.ID, 10),
		Field:    "total_amount",
		OldValue: formatAmount(oldTotal),
		NewValue: formatAmount(inv.TotalAmount),
	})
	return inv, nil
}

// GetInvoice fetches one invoice with items.
func (s *Service) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	return s.repo.GetInvoice(ctx, id)
}

// GetInvoiceByBooking fetches the invoice raised for a booking.
func (s *Service) GetInvoiceByBooking(ctx context.Context, bookingID int64) (Invoice, error) {
	return s.repo.GetInvoiceByBooking(ctx, bookingID)
}

// ListInvoices lists invoices with optional filters.
func (s *Service) ListInvoices(ctx context.Context, req ListInvoicesRequest) ([]Invoice, error) {
	return s.repo.ListInvoices(ctx, req)
}

// ListPayments lists the payments recorded against an invoice.
func (s *Service) ListPayments(ctx context.Context, invoiceID int64) ([]Payment, error) {
	return s.repo.ListPayments(ctx, invoiceID)
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
