package billing

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/atrium-hms/atrium/internal/shared"
)

type memoryRepo struct {
	invoices     map[int64]Invoice
	payments     map[int64][]Payment
	revenue      []RevenueEntry
	nextID       int64
	nextPayID    int64
	numberCursor int64
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		invoices: make(map[int64]Invoice),
		payments: make(map[int64][]Payment),
	}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	inv, ok := r.invoices[id]
	if !ok {
		return Invoice{}, ErrInvoiceNotFound
	}
	return inv, nil
}

func (r *memoryRepo) GetInvoiceByBooking(ctx context.Context, bookingID int64) (Invoice, error) {
	for _, inv := range r.invoices {
		if inv.BookingID == bookingID {
			return inv, nil
		}
	}
	return Invoice{}, ErrInvoiceNotFound
}

func (r *memoryRepo) ListInvoices(ctx context.Context, req ListInvoicesRequest) ([]Invoice, error) {
	var out []Invoice
	for _, inv := range r.invoices {
		if req.BookingID != 0 && inv.BookingID != req.BookingID {
			continue
		}
		if req.Status != "" && inv.PaymentStatus != req.Status {
			continue
		}
		out = append(out, inv)
	}
	return out, nil
}

func (r *memoryRepo) ListPayments(ctx context.Context, invoiceID int64) ([]Payment, error) {
	return append([]Payment(nil), r.payments[invoiceID]...), nil
}

func (tx *memoryTx) CreateInvoice(ctx context.Context, inv Invoice) (int64, error) {
	tx.repo.nextID++
	inv.ID = tx.repo.nextID
	now := time.Now()
	inv.CreatedAt = now
	inv.UpdatedAt = now
	tx.repo.invoices[inv.ID] = inv
	return inv.ID, nil
}

func (tx *memoryTx) ReplaceInvoiceItems(ctx context.Context, invoiceID int64, items []InvoiceItem) error {
	inv, ok := tx.repo.invoices[invoiceID]
	if !ok {
		return ErrInvoiceNotFound
	}
	inv.Items = append([]InvoiceItem(nil), items...)
	tx.repo.invoices[invoiceID] = inv
	return nil
}

func (tx *memoryTx) UpdateInvoiceTotals(ctx context.Context, inv Invoice) error {
	stored, ok := tx.repo.invoices[inv.ID]
	if !ok {
		return ErrInvoiceNotFound
	}
	inv.Items = stored.Items
	inv.UpdatedAt = time.Now()
	tx.repo.invoices[inv.ID] = inv
	return nil
}

func (tx *memoryTx) CreatePayment(ctx context.Context, p Payment) (int64, error) {
	tx.repo.nextPayID++
	p.ID = tx.repo.nextPayID
	p.CreatedAt = time.Now()
	tx.repo.payments[p.InvoiceID] = append(tx.repo.payments[p.InvoiceID], p)
	return p.ID, nil
}

func (tx *memoryTx) AppendRevenueTransaction(ctx context.Context, entry RevenueEntry) error {
	tx.repo.revenue = append(tx.repo.revenue, entry)
	return nil
}

func (tx *memoryTx) GenerateInvoiceNumber(ctx context.Context) (string, error) {
	tx.repo.numberCursor++
	return "INV-TEST-" + time.Now().Format("20060102") + "-" + itoa64(tx.repo.numberCursor), nil
}

func newTestService(repo Repository) *Service {
	return NewService(repo, shared.NewKeyedMutex(), nil, slog.Default())
}

func requireInvariant(t *testing.T, inv Invoice) {
	t.Helper()
	require.InDelta(t, inv.TotalAmount, inv.PaidAmount+inv.DueAmount, 0.001)
	require.Equal(t, StatusFor(inv.PaidAmount, inv.TotalAmount), inv.PaymentStatus)
}

func seedInvoice(t *testing.T, svc *Service, total float64) Invoice {
	t.Helper()
	inv, err := svc.CreateInvoice(context.Background(), CreateInvoiceInput{
		BookingID: 7,
		Items:     []InvoiceItem{{Description: "Deluxe Room x 2 nights", Quantity: 2, Rate: total / 2}},
		CreatedBy: 1,
	})
	require.NoError(t, err)
	require.InDelta(t, total, inv.TotalAmount, 0.001)
	require.Equal(t, StatusPending, inv.PaymentStatus)
	return inv
}

func TestRecordPaymentPartialThenPaid(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	svc := newTestService(repo)
	inv := seedInvoice(t, svc, 1000)

	_, err := svc.RecordPayment(ctx, RecordPaymentInput{InvoiceID: inv.ID, Amount: 400, Mode: "CASH", ReceivedBy: 1})
	require.NoError(t, err)

	got, err := svc.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	require.InDelta(t, 400.0, got.PaidAmount, 0.001)
	require.InDelta(t, 600.0, got.DueAmount, 0.001)
	require.Equal(t, StatusPartial, got.PaymentStatus)
	require.Equal(t, "CASH", got.PaymentMode)
	requireInvariant(t, got)

	_, err = svc.RecordPayment(ctx, RecordPaymentInput{InvoiceID: inv.ID, Amount: 600, Mode: "CARD", ReceivedBy: 1})
	require.NoError(t, err)

	got, err = svc.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	require.InDelta(t, 1000.0, got.PaidAmount, 0.001)
	require.InDelta(t, 0.0, got.DueAmount, 0.001)
	require.Equal(t, StatusPaid, got.PaymentStatus)
	// Mode was stamped by the first payment and stays put.
	require.Equal(t, "CASH", got.PaymentMode)
	requireInvariant(t, got)

	_, err = svc.RecordPayment(ctx, RecordPaymentInput{InvoiceID: inv.ID, Amount: 700, Mode: "CASH", ReceivedBy: 1})
	require.ErrorIs(t, err, ErrInvalidPaymentAmount)
}

func TestRecordPaymentRejectsNonPositive(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemoryRepo())
	inv := seedInvoice(t, svc, 500)

	_, err := svc.RecordPayment(ctx, RecordPaymentInput{InvoiceID: inv.ID, Amount: 0, Mode: "CASH"})
	require.ErrorIs(t, err, ErrInvalidPaymentAmount)
	_, err = svc.RecordPayment(ctx, RecordPaymentInput{InvoiceID: inv.ID, Amount: -10, Mode: "CASH"})
	require.ErrorIs(t, err, ErrInvalidPaymentAmount)
}

func TestRecordPaymentAppendsRevenueRow(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	svc := newTestService(repo)
	inv := seedInvoice(t, svc, 1000)

	_, err := svc.RecordPayment(ctx, RecordPaymentInput{InvoiceID: inv.ID, Amount: 250, Mode: "TRANSFER", ReceivedBy: 9})
	require.NoError(t, err)

	require.Len(t, repo.revenue, 1)
	entry := repo.revenue[0]
	require.Equal(t, CategoryRoomBooking, entry.Category)
	require.InDelta(t, 250.0, entry.Amount, 0.001)
	require.Equal(t, inv.ID, entry.InvoiceID)
	require.Equal(t, inv.BookingID, entry.BookingID)
}

func TestDuplicatePaymentIsNotDeduplicated(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	svc := newTestService(repo)
	inv := seedInvoice(t, svc, 1000)

	input := RecordPaymentInput{InvoiceID: inv.ID, Amount: 300, Mode: "CASH", Reference: "RCPT-1", ReceivedBy: 1}
	_, err := svc.RecordPayment(ctx, input)
	require.NoError(t, err)
	_, err = svc.RecordPayment(ctx, input)
	require.NoError(t, err)

	payments, err := svc.ListPayments(ctx, inv.ID)
	require.NoError(t, err)
	require.Len(t, payments, 2)

	got, err := svc.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	require.InDelta(t, 600.0, got.PaidAmount, 0.001)
	requireInvariant(t, got)
}

func TestReviseChargesRecomputesTotals(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemoryRepo())
	inv := seedInvoice(t, svc, 1000)

	tax := 100.0
	discount := 50.0
	items := []InvoiceItem{
		{Description: "Deluxe Room x 3 nights", Quantity: 3, Rate: 400},
		{Description: "Breakfast", Quantity: 3, Rate: 25.5},
	}
	revised, err := svc.ReviseCharges(ctx, ReviseChargesInput{
		InvoiceID: inv.ID,
		Items:     &items,
		Tax:       &tax,
		Discount:  &discount,
	})
	require.NoError(t, err)
	require.InDelta(t, 1276.5, revised.Subtotal, 0.001)
	require.InDelta(t, 1326.5, revised.TotalAmount, 0.001)
	require.InDelta(t, 1326.5, revised.DueAmount, 0.001)
	requireInvariant(t, revised)
}

func TestReviseChargesBelowPaidLeavesNegativeDue(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemoryRepo())
	inv := seedInvoice(t, svc, 1000)

	_, err := svc.RecordPayment(ctx, RecordPaymentInput{InvoiceID: inv.ID, Amount: 800, Mode: "CASH"})
	require.NoError(t, err)

	items := []InvoiceItem{{Description: "Standard Room x 1 night", Quantity: 1, Rate: 500}}
	revised, err := svc.ReviseCharges(ctx, ReviseChargesInput{InvoiceID: inv.ID, Items: &items})
	require.NoError(t, err)
	require.InDelta(t, 500.0, revised.TotalAmount, 0.001)
	require.InDelta(t, 800.0, revised.PaidAmount, 0.001)
	require.InDelta(t, -300.0, revised.DueAmount, 0.001)
	// Status recomputes from amounts, so overpayment reads as paid.
	require.Equal(t, StatusPaid, revised.PaymentStatus)
	requireInvariant(t, revised)

	payments, err := svc.ListPayments(ctx, inv.ID)
	require.NoError(t, err)
	require.Len(t, payments, 1)
}

func TestReviseChargesToZeroTotalReadsPaid(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemoryRepo())
	inv := seedInvoice(t, svc, 1000)

	_, err := svc.RecordPayment(ctx, RecordPaymentInput{InvoiceID: inv.ID, Amount: 800, Mode: "CASH"})
	require.NoError(t, err)

	// Waiving every charge leaves the collected amount above the total, so
	// the invoice reads paid, not partial.
	items := []InvoiceItem{}
	revised, err := svc.ReviseCharges(ctx, ReviseChargesInput{InvoiceID: inv.ID, Items: &items})
	require.NoError(t, err)
	require.InDelta(t, 0.0, revised.TotalAmount, 0.001)
	require.InDelta(t, 800.0, revised.PaidAmount, 0.001)
	require.InDelta(t, -800.0, revised.DueAmount, 0.001)
	require.Equal(t, StatusPaid, revised.PaymentStatus)
	requireInvariant(t, revised)
}

func TestStatusForDrift(t *testing.T) {
	require.Equal(t, StatusPending, StatusFor(0, 1000))
	require.Equal(t, StatusPartial, StatusFor(0.01, 1000))
	require.Equal(t, StatusPartial, StatusFor(999.99, 1000))
	require.Equal(t, StatusPaid, StatusFor(1000, 1000))
	require.Equal(t, StatusPaid, StatusFor(1000.01, 1000))
	require.Equal(t, StatusPaid, StatusFor(800, 0))
	require.Equal(t, StatusPaid, StatusFor(800, -200))
}
