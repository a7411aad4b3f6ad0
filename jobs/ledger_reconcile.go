package jobs

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Reconciler heals aggregate drift between the ledger and its denormalized
// views. Stored amounts are floats, so repeated increments can wander a few
// cents away from the sums they mirror; the nightly run snaps them back.
type Reconciler struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewReconciler constructs a Reconciler.
func NewReconciler(pool *pgxpool.Pool, logger *slog.Logger) *Reconciler {
	return &Reconciler{pool: pool, logger: logger}
}

// Run reconciles invoices and vendors in one pass.
func (r *Reconciler) Run(ctx context.Context) error {
	if r.pool == nil {
		return nil
	}
	if err := r.reconcileInvoices(ctx); err != nil {
		return err
	}
	return r.reconcileVendors(ctx)
}

// reconcileInvoices recomputes paid/due amounts and status from payments.
func (r *Reconciler) reconcileInvoices(ctx context.Context) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE invoices i SET
		  paid_amount = p.paid,
		  due_amount = i.total_amount - p.paid,
		  payment_status = CASE
		   WHEN p.paid >= i.total_amount - 0.001 THEN 'paid'
		   WHEN p.paid > 0 THEN 'partial'
		   ELSE 'pending'
		  END,
		  updated_at = NOW()
		FROM (
		  SELECT inv.id AS invoice_id, COALESCE(SUM(ip.amount), 0) AS paid
		  FROM invoices inv
		  LEFT JOIN invoice_payments ip ON ip.invoice_id = inv.id
		  GROUP BY inv.id
		) p
		WHERE p.invoice_id = i.id
		  AND (ABS(i.paid_amount - p.paid) > 0.001
		   OR ABS(i.due_amount - (i.total_amount - p.paid)) > 0.001)`)
	if err != nil {
		if r.logger != nil {
			r.logger.Error("invoice reconcile", slog.Any("error", err))
		}
		return err
	}
	if r.logger != nil && tag.RowsAffected() > 0 {
		r.logger.Warn("healed drifted invoices",
			slog.String("job", "ledger_reconcile"),
			slog.Int64("count", tag.RowsAffected()))
	}
	return nil
}

// reconcileVendors recomputes outstanding balance, total paid and the
// transaction count from the ledger rows linked to each vendor.
func (r *Reconciler) reconcileVendors(ctx context.Context) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE vendors v SET
		  outstanding_balance = GREATEST(t.expenses - t.payments, 0),
		  total_paid = t.payments,
		  total_transactions = t.count,
		  updated_at = NOW()
		FROM (
		  SELECT ven.id AS vendor_id,
		   COALESCE(SUM(tx.amount) FILTER (WHERE tx.category <> 'Vendor Payments'), 0) AS expenses,
		   COALESCE(SUM(tx.amount) FILTER (WHERE tx.category = 'Vendor Payments'), 0) AS payments,
		   COUNT(tx.id) AS count
		  FROM vendors ven
		  LEFT JOIN transactions tx ON tx.vendor_id = ven.id AND tx.type = 'expense'
		  GROUP BY ven.id
		) t
		WHERE t.vendor_id = v.id
		  AND (ABS(v.outstanding_balance - GREATEST(t.expenses - t.payments, 0)) > 0.001
		   OR ABS(v.total_paid - t.payments) > 0.001
		   OR v.total_transactions <> t.count)`)
	if err != nil {
		if r.logger != nil {
			r.logger.Error("vendor reconcile", slog.Any("error", err))
		}
		return err
	}
	if r.logger != nil && tag.RowsAffected() > 0 {
		r.logger.Warn("healed drifted vendors",
			slog.String("job", "ledger_reconcile"),
			slog.Int64("count", tag.RowsAffected()))
	}
	return nil
}
