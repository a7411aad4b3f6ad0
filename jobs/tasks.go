package jobs

import (
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerReconcile recomputes invoice and vendor aggregates from the ledger.
	TaskLedgerReconcile = "ledger:reconcile"
	// TaskIdempotencyCleanup removes stale idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// NewLedgerReconcileTask constructs the nightly reconciliation task.
func NewLedgerReconcileTask() *asynq.Task {
	return asynq.NewTask(TaskLedgerReconcile, nil)
}

// NewIdempotencyCleanupTask constructs the idempotency key cleanup task.
func NewIdempotencyCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskIdempotencyCleanup, nil)
}
