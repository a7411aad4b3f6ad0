package vendors

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines vendor data access.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error

	GetVendor(ctx context.Context, id int64) (Vendor, error)
	ListVendors(ctx context.Context, req ListVendorsRequest) ([]Vendor, error)
	CountTransactions(ctx context.Context, vendorID int64) (int64, error)
}

// TxRepository defines vendor writes within a transaction. A payment updates
// the vendor aggregates and appends its expense ledger row in one commit.
type TxRepository interface {
	CreateVendor(ctx context.Context, v Vendor) (int64, error)
	UpdateProfile(ctx context.Context, v Vendor) error
	UpdateAggregates(ctx context.Context, vendorID int64, outstanding, totalPaid float64, totalTransactions int64) error
	DeleteVendor(ctx context.Context, id int64) error
	AppendPaymentTransaction(ctx context.Context, entry PaymentEntry) error
}

var _ Repository = (*pgRepository)(nil)
var _ TxRepository = (*pgTxRepository)(nil)

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the postgres-backed vendor repository.
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

const vendorColumns = `id, name, category, contact_person, phone, email, address, outstanding_balance, total_paid, total_transactions, created_at, updated_at`

func (r *pgRepository) GetVendor(ctx context.Context, id int64) (Vendor, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+vendorColumns+` FROM vendors WHERE id = $1`, id)
	v, err := scanVendor(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Vendor{}, ErrVendorNotFound
		}
		return Vendor{}, err
	}
	return v, nil
}

func (r *pgRepository) ListVendors(ctx context.Context, req ListVendorsRequest) ([]Vendor, error) {
	query := `SELECT ` + vendorColumns + ` FROM vendors WHERE 1=1`
	args := []any{}
	if req.Search != "" {
		args = append(args, "%"+req.Search+"%")
		query += ` AND (name ILIKE $1 OR contact_person ILIKE $1)`
	}
	if req.Category != "" {
		args = append(args, req.Category)
		query += ` AND category = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY name`
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

	var vendors []Vendor
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, err
		}
		vendors = append(vendors, v)
	}
	return vendors, rows.Err()
}

// CountTransactions counts the live ledger rows linked to a vendor. The delete
// guard reads this instead of the denormalized counter so a drifted aggregate
// can never unblock a delete.
func (r *pgRepository) CountTransactions(ctx context.Context, vendorID int64) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM transactions WHERE vendor_id = $1`, vendorID).Scan(&n)
	return n, err
}

type pgTxRepository struct {
	tx pgx.Tx
}

func (t *pgTxRepository) CreateVendor(ctx context.Context, v Vendor) (int64, error) {
	now := time.Now()
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO vendors (name, category, contact_person, phone, email, address, outstanding_balance, total_paid, total_transactions, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, 0, 0, 0, $7, $7) RETURNING id`,
		v.Name, v.Category, v.ContactPerson, v.Phone, v.Email, v.Address, now).Scan(&id)
	return id, err
}

func (t *pgTxRepository) UpdateProfile(ctx context.Context, v Vendor) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE vendors SET name = $1, category = $2, contact_person = $3, phone = $4, email = $5, address = $6, updated_at = $7 WHERE id = $8`,
		v.Name, v.Category, v.ContactPerson, v.Phone, v.Email, v.Address, time.Now(), v.ID)
	return err
}

func (t *pgTxRepository) UpdateAggregates(ctx context.Context, vendorID int64, outstanding, totalPaid float64, totalTransactions int64) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE vendors SET outstanding_balance = $1, total_paid = $2, total_transactions = $3, updated_at = $4 WHERE id = $5`,
		outstanding, totalPaid, totalTransactions, time.Now(), vendorID)
	return err
}

func (t *pgTxRepository) DeleteVendor(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM vendors WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrVendorNotFound
	}
	return nil
}

func (t *pgTxRepository) AppendPaymentTransaction(ctx context.Context, entry PaymentEntry) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO transactions (type, category, amount, date, payment_mode, description, vendor_id, created_by, created_at, updated_at)
		 VALUES ('expense', $1, $2, $3, $4, $5, $6, $7, $8, $8)`,
		CategoryVendorPayment, entry.Amount, entry.Date, entry.PaymentMode, entry.Notes, entry.VendorID, entry.CreatedBy, time.Now())
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVendor(row rowScanner) (Vendor, error) {
	var v Vendor
	err := row.Scan(&v.ID, &v.Name, &v.Category, &v.ContactPerson, &v.Phone, &v.Email, &v.Address,
		&v.OutstandingBalance, &v.TotalPaid, &v.TotalTransactions, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return Vendor{}, err
	}
	return v, nil
}
