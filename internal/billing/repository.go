package billing

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines billing data access.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error

	GetInvoice(ctx context.Context, id int64) (Invoice, error)
	GetInvoiceByBooking(ctx context.Context, bookingID int64) (Invoice, error)
	ListInvoices(ctx context.Context, req ListInvoicesRequest) ([]Invoice, error)
	ListPayments(ctx context.Context, invoiceID int64) ([]Payment, error)
}

// TxRepository defines billing writes within a transaction. Payment row,
// invoice aggregate update and the revenue ledger append commit together.
type TxRepository interface {
	CreateInvoice(ctx context.Context, inv Invoice) (int64, error)
	ReplaceInvoiceItems(ctx context.Context, invoiceID int64, items []InvoiceItem) error
	UpdateInvoiceTotals(ctx context.Context, inv Invoice) error
	CreatePayment(ctx context.Context, p Payment) (int64, error)
	AppendRevenueTransaction(ctx context.Context, entry RevenueEntry) error
	GenerateInvoiceNumber(ctx context.Context) (string, error)
}

var _ Repository = (*pgRepository)(nil)
var _ TxRepository = (*pgTxRepository)(nil)

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the postgres-backed billing repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(ctx, &pgTxRepository{tx: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

const invoiceColumns = `id, number, booking_id, subtotal, tax, discount, total_amount, paid_amount, due_amount, payment_status, payment_mode, created_by, created_at, updated_at`

func (r *pgRepository) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)
	inv, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, ErrInvoiceNotFound
		}
		return Invoice{}, err
	}
	items, err := r.listItems(ctx, inv.ID)
	if err != nil {
		return Invoice{}, err
	}
	inv.Items = items
	return inv, nil
}

func (r *pgRepository) GetInvoiceByBooking(ctx context.Context, bookingID int64) (Invoice, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE booking_id = $1`, bookingID)
	inv, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, ErrInvoiceNotFound
		}
		return Invoice{}, err
	}
	items, err := r.listItems(ctx, inv.ID)
	if err != nil {
		return Invoice{}, err
	}
	inv.Items = items
	return inv, nil
}

func (r *pgRepository) ListInvoices(ctx context.Context, req ListInvoicesRequest) ([]Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE 1=1`
	args := []any{}
	if req.BookingID != 0 {
		args = append(args, req.BookingID)
		query += ` AND booking_id = $1`
	}
	if req.Status != "" {
		args = append(args, string(req.Status))
		query += ` AND payment_status = $` + itoa(len(args))
	}
	query += ` ORDER BY created_at DESC`
	if req.Limit > 0 {
		args = append(args, req.Limit)
		query += ` LIMIT $` + itoa(len(args))
		args = append(args, req.Offset)
		query += ` OFFSET $` + itoa(len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

func (r *pgRepository) ListPayments(ctx context.Context, invoiceID int64) ([]Payment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, invoice_id, amount, mode, reference, notes, received_by, paid_at, created_at
		 FROM invoice_payments WHERE invoice_id = $1 ORDER BY paid_at, id`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.InvoiceID, &p.Amount, &p.Mode, &p.Reference, &p.Notes, &p.ReceivedBy, &p.PaidAt, &p.CreatedAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (r *pgRepository) listItems(ctx context.Context, invoiceID int64) ([]InvoiceItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT description, quantity, rate, amount FROM invoice_items WHERE invoice_id = $1 ORDER BY id`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []InvoiceItem
	for rows.Next() {
		var item InvoiceItem
		if err := rows.Scan(&item.Description, &item.Quantity, &item.Rate, &item.Amount); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

type pgTxRepository struct {
	tx pgx.Tx
}

func (t *pgTxRepository) CreateInvoice(ctx context.Context, inv Invoice) (int64, error) {
	now := time.Now()
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO invoices (number, booking_id, subtotal, tax, discount, total_amount, paid_amount, due_amount, payment_status, payment_mode, created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12) RETURNING id`,
		inv.Number, inv.BookingID, inv.Subtotal, inv.Tax, inv.Discount, inv.TotalAmount,
		inv.PaidAmount, inv.DueAmount, string(inv.PaymentStatus), inv.PaymentMode, inv.CreatedBy, now).Scan(&id)
	if err != nil {
		return 0, err
	}
	if err := t.ReplaceInvoiceItems(ctx, id, inv.Items); err != nil {
		return 0, err
	}
	return id, nil
}

func (t *pgTxRepository) ReplaceInvoiceItems(ctx context.Context, invoiceID int64, items []InvoiceItem) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM invoice_items WHERE invoice_id = $1`, invoiceID); err != nil {
		return err
	}
	for _, item := range items {
		if _, err := t.tx.Exec(ctx,
			`INSERT INTO invoice_items (invoice_id, description, quantity, rate, amount) VALUES ($1, $2, $3, $4, $5)`,
			invoiceID, item.Description, item.Quantity, item.Rate, item.Amount); err != nil {
			return err
		}
	}
	return nil
}

func (t *pgTxRepository) UpdateInvoiceTotals(ctx context.Context, inv Invoice) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE invoices SET subtotal = $1, tax = $2, discount = $3, total_amount = $4, paid_amount = $5,
		 due_amount = $6, payment_status = $7, payment_mode = $8, updated_at = $9 WHERE id = $10`,
		inv.Subtotal, inv.Tax, inv.Discount, inv.TotalAmount, inv.PaidAmount,
		inv.DueAmount, string(inv.PaymentStatus), inv.PaymentMode, time.Now(), inv.ID)
	return err
}

func (t *pgTxRepository) CreatePayment(ctx context.Context, p Payment) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO invoice_payments (invoice_id, amount, mode, reference, notes, received_by, paid_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		p.InvoiceID, p.Amount, p.Mode, p.Reference, p.Notes, p.ReceivedBy, p.PaidAt, time.Now()).Scan(&id)
	return id, err
}

func (t *pgTxRepository) AppendRevenueTransaction(ctx context.Context, entry RevenueEntry) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO transactions (type, category, amount, date, payment_mode, invoice_id, booking_id, created_by, created_at, updated_at)
		 VALUES ('revenue', $1, $2, $3, $4, $5, $6, $7, $8, $8)`,
		entry.Category, entry.Amount, entry.Date, entry.PaymentMode, entry.InvoiceID, entry.BookingID, entry.CreatedBy, time.Now())
	return err
}

func (t *pgTxRepository) GenerateInvoiceNumber(ctx context.Context) (string, error) {
	var seq int64
	if err := t.tx.QueryRow(ctx, `SELECT nextval('invoice_number_seq')`).Scan(&seq); err != nil {
		return "", err
	}
	return "INV-" + time.Now().Format("20060102") + "-" + itoa64(seq), nil
}

func itoa(i int) string {
	return strconv.Itoa(i)
}

func itoa64(i int64) string {
	return strconv.FormatInt(i, 10)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvoice(row rowScanner) (Invoice, error) {
	var inv Invoice
	var status string
	err := row.Scan(&inv.ID, &inv.Number, &inv.BookingID, &inv.Subtotal, &inv.Tax, &inv.Discount,
		&inv.TotalAmount, &inv.PaidAmount, &inv.DueAmount, &status, &inv.PaymentMode,
		&inv.CreatedBy, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return Invoice{}, err
	}
	inv.PaymentStatus = PaymentStatus(status)
	return inv, nil
}
