package reports

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads aggregated figures for reporting.
type Repository interface {
	MonthlyTotals(ctx context.Context, year int) ([]MonthlyTotals, error)
	Occupancy(ctx context.Context) (OccupancySnapshot, error)
	VendorsOutstanding(ctx context.Context, limit int) ([]VendorOutstanding, error)
	InvoiceAging(ctx context.Context, asOf time.Time) ([]AgingBucket, error)
}

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewPGRepository constructs a PGRepository.
func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// MonthlyTotals sums ledger revenue and expense per month of a year.
func (r *PGRepository) MonthlyTotals(ctx context.Context, year int) ([]MonthlyTotals, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT EXTRACT(MONTH FROM date)::int AS month,
		  COALESCE(SUM(amount) FILTER (WHERE type = 'revenue'), 0),
		  COALESCE(SUM(amount) FILTER (WHERE type = 'expense'), 0)
		 FROM transactions
		 WHERE EXTRACT(YEAR FROM date)::int = $1
		 GROUP BY 1`, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byMonth := map[int]MonthlyTotals{}
	for rows.Next() {
		var month int
		var revenue, expense float64
		if err := rows.Scan(&month, &revenue, &expense); err != nil {
			return nil, err
		}
		byMonth[month] = MonthlyTotals{
			Month:   time.Month(month),
			Revenue: revenue,
			Expense: expense,
			Net:     revenue - expense,
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]MonthlyTotals, 0, 12)
	for m := 1; m <= 12; m++ {
		totals, ok := byMonth[m]
		if !ok {
			totals = MonthlyTotals{Month: time.Month(m)}
		}
		out = append(out, totals)
	}
	return out, nil
}

// Occupancy counts rooms per status.
func (r *PGRepository) Occupancy(ctx context.Context) (OccupancySnapshot, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM rooms GROUP BY status`)
	if err != nil {
		return OccupancySnapshot{}, err
	}
	defer rows.Close()

	var snap OccupancySnapshot
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return OccupancySnapshot{}, err
		}
		snap.Total += count
		switch status {
		case "available":
			snap.Available = count
		case "occupied":
			snap.Occupied = count
		case "maintenance":
			snap.Maintenance = count
		}
	}
	if err := rows.Err(); err != nil {
		return OccupancySnapshot{}, err
	}
	if snap.Total > 0 {
		snap.Rate = float64(snap.Occupied) / float64(snap.Total)
	}
	return snap, nil
}

// VendorsOutstanding lists vendors with open balances, largest first.
func (r *PGRepository) VendorsOutstanding(ctx context.Context, limit int) ([]VendorOutstanding, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, outstanding_balance, total_paid
		 FROM vendors
		 WHERE outstanding_balance > 0
		 ORDER BY outstanding_balance DESC, id
		 LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []VendorOutstanding
	for rows.Next() {
		var v VendorOutstanding
		if err := rows.Scan(&v.VendorID, &v.Name, &v.Outstanding, &v.TotalPaid); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// InvoiceAging buckets unpaid invoice value by days outstanding.
func (r *PGRepository) InvoiceAging(ctx context.Context, asOf time.Time) ([]AgingBucket, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT
		  CASE
		   WHEN $1::date - created_at::date <= 30 THEN '0-30'
		   WHEN $1::date - created_at::date <= 60 THEN '31-60'
		   WHEN $1::date - created_at::date <= 90 THEN '61-90'
		   ELSE '90+'
		  END AS bucket,
		  COUNT(*), COALESCE(SUM(amount_due), 0)
		 FROM invoices
		 WHERE amount_due > 0
		 GROUP BY 1`, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byLabel := map[string]AgingBucket{}
	for rows.Next() {
		var b AgingBucket
		if err := rows.Scan(&b.Label, &b.Count, &b.Due); err != nil {
			return nil, err
		}
		byLabel[b.Label] = b
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]AgingBucket, 0, 4)
	for _, label := range []string{"0-30", "31-60", "61-90", "90+"} {
		b, ok := byLabel[label]
		if !ok {
			b = AgingBucket{Label: label}
		}
		out = append(out, b)
	}
	return out, nil
}
