package ledger

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines ledger data access.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error

	GetTransaction(ctx context.Context, id int64) (Transaction, error)
	ListTransactions(ctx context.Context, req ListTransactionsRequest) ([]Transaction, error)
}

// TxRepository defines ledger writes within a transaction.
type TxRepository interface {
	CreateTransaction(ctx context.Context, tr Transaction) (int64, error)
	UpdateTransaction(ctx context.Context, tr Transaction) error
	DeleteTransaction(ctx context.Context, id int64) error
}

var _ Repository = (*pgRepository)(nil)
var _ TxRepository = (*pgTxRepository)(nil)

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the postgres-backed ledger repository.
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

const transactionColumns = `id, type, category, amount, date, payment_mode, description, COALESCE(vendor_id, 0), COALESCE(invoice_id, 0), COALESCE(booking_id, 0), created_by, created_at, updated_at`

func (r *pgRepository) GetTransaction(ctx context.Context, id int64) (Transaction, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id)
	tr, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, ErrTransactionNotFound
		}
		return Transaction{}, err
	}
	return tr, nil
}

func (r *pgRepository) ListTransactions(ctx context.Context, req ListTransactionsRequest) ([]Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE 1=1`
	args := []any{}
	if req.Type != "" {
		args = append(args, req.Type)
		query += ` AND type = $` + strconv.Itoa(len(args))
	}
	if req.Category != "" {
		args = append(args, req.Category)
		query += ` AND category = $` + strconv.Itoa(len(args))
	}
	if req.VendorID != 0 {
		args = append(args, req.VendorID)
		query += ` AND vendor_id = $` + strconv.Itoa(len(args))
	}
	if !req.From.IsZero() {
		args = append(args, req.From)
		query += ` AND date >= $` + strconv.Itoa(len(args))
	}
	if !req.To.IsZero() {
		args = append(args, req.To)
		query += ` AND date <= $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY date DESC, id DESC`
	if req.Limit > 0 {
		args = append(args, req.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
		args = append(args, req.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []Transaction
	for rows.Next() {
		tr, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tr)
	}
	return transactions, rows.Err()
}

type pgTxRepository struct {
	tx pgx.Tx
}

func (t *pgTxRepository) CreateTransaction(ctx context.Context, tr Transaction) (int64, error) {
	now := time.Now()
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO transactions (type, category, amount, date, payment_mode, description, vendor_id, invoice_id, booking_id, created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, 0), NULLIF($8, 0), NULLIF($9, 0), $10, $11, $11) RETURNING id`,
		tr.Type, tr.Category, tr.Amount, tr.Date, tr.PaymentMode, tr.Description,
		tr.VendorID, tr.InvoiceID, tr.BookingID, tr.CreatedBy, now).Scan(&id)
	return id, err
}

func (t *pgTxRepository) UpdateTransaction(ctx context.Context, tr Transaction) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE transactions SET category = $1, amount = $2, date = $3, payment_mode = $4, description = $5,
		 vendor_id = NULLIF($6, 0), updated_at = $7 WHERE id = $8`,
		tr.Category, tr.Amount, tr.Date, tr.PaymentMode, tr.Description, tr.VendorID, time.Now(), tr.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

func (t *pgTxRepository) DeleteTransaction(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (Transaction, error) {
	var tr Transaction
	err := row.Scan(&tr.ID, &tr.Type, &tr.Category, &tr.Amount, &tr.Date, &tr.PaymentMode, &tr.Description,
		&tr.VendorID, &tr.InvoiceID, &tr.BookingID, &tr.CreatedBy, &tr.CreatedAt, &tr.UpdatedAt)
	if err != nil {
		return Transaction{}, err
	}
	return tr, nil
}
